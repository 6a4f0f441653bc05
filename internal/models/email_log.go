package models

import "time"

// EmailLog statuses.
const (
	EmailStatusPending = "pending"
	EmailStatusSent    = "sent"
	EmailStatusFailed  = "failed"
)

// EmailLog records every outbound delivery attempt. A failed send never
// aborts the operation that triggered it, so the log is the only trace.
type EmailLog struct {
	BaseModel

	ToEmail      string     `gorm:"not null;index" json:"toEmail"`
	Subject      string     `gorm:"not null" json:"subject"`
	Template     string     `gorm:"not null" json:"template"`
	Status       string     `gorm:"default:pending;index" json:"status"`
	Provider     string     `json:"provider"`
	ErrorMessage string     `json:"errorMessage"`
	SentAt       *time.Time `json:"sentAt"`
}
