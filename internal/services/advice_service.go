package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/ascendhq/ascend/internal/models"
)

// ErrAdviceNotFound covers missing and foreign-owned advice records.
var ErrAdviceNotFound = errors.New("advice: not found")

// AdviceService manages the user's pinned coach messages.
type AdviceService struct {
	db *gorm.DB
}

// NewAdviceService builds an advice service.
func NewAdviceService(db *gorm.DB) (*AdviceService, error) {
	if db == nil {
		return nil, errors.New("advice service: db is required")
	}
	return &AdviceService{db: db}, nil
}

// SaveInput describes a new saved-advice entry.
type SaveInput struct {
	SessionID      string
	CoachType      string
	MessageContent string
}

// Save pins a coach message. The referenced session must belong to the user.
func (s *AdviceService) Save(userID string, input SaveInput) (*models.SavedAdvice, error) {
	if strings.TrimSpace(input.MessageContent) == "" {
		return nil, errors.New("advice service: message content is required")
	}

	if strings.TrimSpace(input.SessionID) != "" {
		var count int64
		err := s.db.Model(&models.CoachingSession{}).
			Where("id = ? AND user_id = ?", input.SessionID, userID).
			Count(&count).Error
		if err != nil {
			return nil, fmt.Errorf("advice service: verify session: %w", err)
		}
		if count == 0 {
			return nil, ErrSessionNotFound
		}
	}

	advice := &models.SavedAdvice{
		UserID:         userID,
		SessionID:      strings.TrimSpace(input.SessionID),
		CoachType:      strings.TrimSpace(input.CoachType),
		MessageContent: input.MessageContent,
	}
	if err := s.db.Create(advice).Error; err != nil {
		return nil, fmt.Errorf("advice service: save: %w", err)
	}
	return advice, nil
}

// List returns the user's saved advice, newest first.
func (s *AdviceService) List(userID string) ([]models.SavedAdvice, error) {
	var advice []models.SavedAdvice
	err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&advice).Error
	if err != nil {
		return nil, fmt.Errorf("advice service: list: %w", err)
	}
	return advice, nil
}

// Delete removes one saved-advice entry the user owns.
func (s *AdviceService) Delete(userID, adviceID string) error {
	result := s.db.Where("id = ? AND user_id = ?", adviceID, userID).Delete(&models.SavedAdvice{})
	if result.Error != nil {
		return fmt.Errorf("advice service: delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAdviceNotFound
	}
	return nil
}
