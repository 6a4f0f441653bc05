package models

import "time"

// PasswordResetToken is single use. Consumed tokens are marked with UsedAt
// and kept so a replayed link can be rejected outright.
type PasswordResetToken struct {
	BaseModel

	UserID    string     `gorm:"type:uuid;not null;index" json:"userId"`
	TokenHash string     `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time  `gorm:"index" json:"expiresAt"`
	UsedAt    *time.Time `json:"usedAt"`
}
