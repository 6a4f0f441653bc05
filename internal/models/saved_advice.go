package models

// SavedAdvice is a coach message the user pinned for later.
type SavedAdvice struct {
	BaseModel

	UserID         string `gorm:"type:uuid;not null;index" json:"userId"`
	SessionID      string `gorm:"type:uuid;index" json:"sessionId"`
	CoachType      string `gorm:"not null" json:"coachType"`
	MessageContent string `gorm:"not null" json:"messageContent"`
}
