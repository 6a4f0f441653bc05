package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User describes a registered account together with its coaching profile
// and notification preferences.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`

	EmailVerified bool `gorm:"default:false" json:"emailVerified"`
	IsActive      bool `gorm:"default:true" json:"isActive"`

	TermsAccepted     bool       `gorm:"default:false" json:"termsAccepted"`
	TermsAcceptedAt   *time.Time `json:"termsAcceptedAt"`
	PrivacyAccepted   bool       `gorm:"default:false" json:"privacyAccepted"`
	PrivacyAcceptedAt *time.Time `json:"privacyAcceptedAt"`

	// Coaching profile collected during onboarding.
	CurrentRole      string         `json:"currentRole"`
	Industry         string         `json:"industry"`
	CareerStage      string         `json:"careerStage"`
	FiveYearGoal     string         `json:"fiveYearGoal"`
	BiggestChallenge string         `json:"biggestChallenge"`
	WorkEnvironment  string         `json:"workEnvironment"`
	PrimaryCoaches   datatypes.JSON `json:"primaryCoaches"`

	// Notification preferences.
	EmailNotifications bool `gorm:"default:true" json:"emailNotifications"`
	MarketingEmails    bool `gorm:"default:false" json:"marketingEmails"`
	WeeklyDigest       bool `gorm:"default:true" json:"weeklyDigest"`
	CoachingReminders  bool `gorm:"default:true" json:"coachingReminders"`

	MFAEnabled bool       `gorm:"default:false" json:"mfaEnabled"`
	MFASecret  *MFASecret `gorm:"foreignKey:UserID" json:"-"`

	LastLoginAt *time.Time `json:"lastLoginAt"`
	LastLoginIP string     `json:"-"`

	FailedAttempts int        `gorm:"default:0" json:"-"`
	LockedUntil    *time.Time `json:"-"`

	Sessions []UserSession `gorm:"foreignKey:UserID" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// HasPassword reports whether the account carries a usable password hash.
func (u *User) HasPassword() bool {
	return u.Password != ""
}

// IsLocked reports whether the account is inside an active lockout window.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}
