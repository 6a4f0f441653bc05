package models

import "time"

// EmailVerificationToken stores pending verification tokens, keyed by email
// so signup can reissue before a user row is confirmed verified.
type EmailVerificationToken struct {
	BaseModel

	Email     string    `gorm:"not null;index" json:"email"`
	TokenHash string    `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `gorm:"index" json:"expiresAt"`
}
