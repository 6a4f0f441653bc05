package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ascendhq/ascend/internal/models"
	"github.com/ascendhq/ascend/pkg/logger"
)

// ContactService persists contact form submissions and acknowledges them
// by email on a best-effort basis.
type ContactService struct {
	db    *gorm.DB
	email *EmailService
	log   *zap.Logger
}

// NewContactService builds a contact service.
func NewContactService(db *gorm.DB, email *EmailService) (*ContactService, error) {
	if db == nil {
		return nil, errors.New("contact service: db is required")
	}
	if email == nil {
		return nil, errors.New("contact service: email service is required")
	}
	return &ContactService{db: db, email: email, log: logger.WithModule("contact")}, nil
}

// SubmitInput is one contact form submission. UserID is set when the sender
// was signed in.
type SubmitInput struct {
	Name     string
	Email    string
	Subject  string
	Message  string
	Category string
	UserID   string
}

// Submit stores the message and sends the acknowledgement email.
func (s *ContactService) Submit(ctx context.Context, input SubmitInput) (*models.ContactMessage, error) {
	msg := &models.ContactMessage{
		Name:     strings.TrimSpace(input.Name),
		Email:    strings.ToLower(strings.TrimSpace(input.Email)),
		Subject:  strings.TrimSpace(input.Subject),
		Message:  strings.TrimSpace(input.Message),
		Category: strings.TrimSpace(input.Category),
		Status:   models.ContactStatusNew,
		Priority: "normal",
	}
	if userID := strings.TrimSpace(input.UserID); userID != "" {
		msg.UserID = &userID
	}

	if msg.Name == "" || msg.Email == "" || msg.Subject == "" || msg.Message == "" {
		return nil, errors.New("contact service: name, email, subject and message are required")
	}

	if err := s.db.Create(msg).Error; err != nil {
		return nil, fmt.Errorf("contact service: save message: %w", err)
	}

	if err := s.email.SendContactAcknowledgement(ctx, msg); err != nil {
		s.log.Warn("contact acknowledgement failed", zap.String("contact_id", msg.ID), zap.Error(err))
	}

	return msg, nil
}
