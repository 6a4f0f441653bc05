package models

import (
	"time"

	"gorm.io/datatypes"
)

// MFASecret holds the encrypted TOTP secret and hashed backup codes.
type MFASecret struct {
	BaseModel

	UserID      string         `gorm:"type:uuid;uniqueIndex;not null" json:"userId"`
	Secret      string         `gorm:"not null" json:"-"`
	BackupCodes datatypes.JSON `json:"-"`
	LastUsedAt  *time.Time     `json:"lastUsedAt"`
}
