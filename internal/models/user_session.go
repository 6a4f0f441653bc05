package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserSession is an opaque-token browser session. The token is stored as a
// SHA-256 hash so a database leak does not expose live credentials.
type UserSession struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID       string    `gorm:"type:uuid;not null;index" json:"userId"`
	User         *User     `gorm:"foreignKey:UserID" json:"-"`
	TokenHash    string    `gorm:"uniqueIndex;not null" json:"-"`
	DeviceInfo   string    `json:"deviceInfo"`
	IPAddress    string    `json:"ipAddress"`
	LastActiveAt time.Time `json:"lastActiveAt"`
	ExpiresAt    time.Time `gorm:"index" json:"expiresAt"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (s *UserSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// IsExpired reports whether the session has passed its expiry.
func (s *UserSession) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
