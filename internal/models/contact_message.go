package models

// ContactMessage statuses.
const (
	ContactStatusNew    = "new"
	ContactStatusOpen   = "open"
	ContactStatusClosed = "closed"
)

// ContactMessage is a submission from the public contact form. UserID is set
// when the sender was signed in at the time.
type ContactMessage struct {
	BaseModel

	Name     string  `gorm:"not null" json:"name"`
	Email    string  `gorm:"not null" json:"email"`
	Subject  string  `gorm:"not null" json:"subject"`
	Message  string  `gorm:"not null" json:"message"`
	Category string  `json:"category"`
	Status   string  `gorm:"default:new" json:"status"`
	Priority string  `gorm:"default:normal" json:"priority"`
	UserID   *string `gorm:"type:uuid;index" json:"userId,omitempty"`
}
