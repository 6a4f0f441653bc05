package database

import (
	"gorm.io/gorm"

	"github.com/ascendhq/ascend/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.UserSession{},
		&models.EmailVerificationToken{},
		&models.PasswordResetToken{},
		&models.MFASecret{},
		&models.CoachingSession{},
		&models.SavedAdvice{},
		&models.ContactMessage{},
		&models.EmailLog{},
	)
}
