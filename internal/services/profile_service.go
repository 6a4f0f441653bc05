package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ascendhq/ascend/internal/ai"
	"github.com/ascendhq/ascend/internal/models"
)

// MaxPrimaryCoaches is the cap on coaches a user can mark as primary.
const MaxPrimaryCoaches = 2

// ErrTooManyPrimaryCoaches is returned when the primary coach cap is exceeded.
var ErrTooManyPrimaryCoaches = fmt.Errorf("profile: at most %d primary coaches allowed", MaxPrimaryCoaches)

// ProfileService updates the coaching profile and notification preferences.
type ProfileService struct {
	db *gorm.DB
}

// NewProfileService builds a profile service.
func NewProfileService(db *gorm.DB) (*ProfileService, error) {
	if db == nil {
		return nil, errors.New("profile service: db is required")
	}
	return &ProfileService{db: db}, nil
}

// ProfileUpdate carries partial profile changes; nil fields are untouched.
type ProfileUpdate struct {
	FirstName        *string
	LastName         *string
	CurrentRole      *string
	Industry         *string
	CareerStage      *string
	FiveYearGoal     *string
	BiggestChallenge *string
	WorkEnvironment  *string
	PrimaryCoaches   []string
}

// UpdateProfile applies the changes and returns the fresh user row.
func (s *ProfileService) UpdateProfile(userID string, update ProfileUpdate) (*models.User, error) {
	updates := map[string]any{}

	setIfPresent := func(column string, value *string) {
		if value != nil {
			updates[column] = *value
		}
	}
	setIfPresent("first_name", update.FirstName)
	setIfPresent("last_name", update.LastName)
	setIfPresent("current_role", update.CurrentRole)
	setIfPresent("industry", update.Industry)
	setIfPresent("career_stage", update.CareerStage)
	setIfPresent("five_year_goal", update.FiveYearGoal)
	setIfPresent("biggest_challenge", update.BiggestChallenge)
	setIfPresent("work_environment", update.WorkEnvironment)

	if update.PrimaryCoaches != nil {
		if len(update.PrimaryCoaches) > MaxPrimaryCoaches {
			return nil, ErrTooManyPrimaryCoaches
		}
		for _, coachType := range update.PrimaryCoaches {
			if !ai.IsValidCoachType(coachType) {
				return nil, fmt.Errorf("%w: %q", ErrUnknownCoachType, coachType)
			}
		}
		encoded, err := json.Marshal(update.PrimaryCoaches)
		if err != nil {
			return nil, fmt.Errorf("profile: encode primary coaches: %w", err)
		}
		updates["primary_coaches"] = datatypes.JSON(encoded)
	}

	if len(updates) > 0 {
		result := s.db.Model(&models.User{}).Where("id = ?", userID).Updates(updates)
		if result.Error != nil {
			return nil, fmt.Errorf("profile: update: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}
	}

	return s.load(userID)
}

// NotificationUpdate carries partial notification preference changes.
type NotificationUpdate struct {
	EmailNotifications *bool
	MarketingEmails    *bool
	WeeklyDigest       *bool
	CoachingReminders  *bool
}

// UpdateNotifications applies preference changes and returns the fresh user row.
func (s *ProfileService) UpdateNotifications(userID string, update NotificationUpdate) (*models.User, error) {
	updates := map[string]any{}
	setIfPresent := func(column string, value *bool) {
		if value != nil {
			updates[column] = *value
		}
	}
	setIfPresent("email_notifications", update.EmailNotifications)
	setIfPresent("marketing_emails", update.MarketingEmails)
	setIfPresent("weekly_digest", update.WeeklyDigest)
	setIfPresent("coaching_reminders", update.CoachingReminders)

	if len(updates) > 0 {
		result := s.db.Model(&models.User{}).Where("id = ?", userID).Updates(updates)
		if result.Error != nil {
			return nil, fmt.Errorf("profile: update notifications: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}
	}

	return s.load(userID)
}

func (s *ProfileService) load(userID string) (*models.User, error) {
	var user models.User
	if err := s.db.Take(&user, "id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("profile: load user: %w", err)
	}
	return &user, nil
}
