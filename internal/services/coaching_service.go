package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ascendhq/ascend/internal/ai"
	"github.com/ascendhq/ascend/internal/models"
)

var (
	// ErrSessionNotFound covers missing sessions and sessions owned by
	// someone else; the two cases are indistinguishable to the caller.
	ErrSessionNotFound = errors.New("coaching: session not found")
	// ErrUnknownCoachType is returned for coach types outside the catalog.
	ErrUnknownCoachType = errors.New("coaching: unknown coach type")
)

// ChatTurn is the result of one round trip with the coach.
type ChatTurn struct {
	UserMessage  models.ChatMessage `json:"userMessage"`
	CoachMessage models.ChatMessage `json:"coachMessage"`
}

// CoachingService manages coaching sessions and proxies chat turns to the
// coach personas.
type CoachingService struct {
	db      *gorm.DB
	coach   *ai.CoachService
	summary *ai.SummaryService
	clock   func() time.Time
}

// NewCoachingService builds a coaching service.
func NewCoachingService(db *gorm.DB, coach *ai.CoachService, summary *ai.SummaryService, clock func() time.Time) (*CoachingService, error) {
	if db == nil {
		return nil, errors.New("coaching service: db is required")
	}
	if coach == nil || summary == nil {
		return nil, errors.New("coaching service: ai services are required")
	}
	if clock == nil {
		clock = time.Now
	}
	return &CoachingService{db: db, coach: coach, summary: summary, clock: clock}, nil
}

// Create opens a new coaching session with the chosen persona.
func (s *CoachingService) Create(userID, coachType string) (*models.CoachingSession, error) {
	if !ai.IsValidCoachType(coachType) {
		return nil, ErrUnknownCoachType
	}

	session := &models.CoachingSession{UserID: userID, CoachType: coachType}
	if err := session.SetTranscript([]models.ChatMessage{}); err != nil {
		return nil, fmt.Errorf("coaching service: init transcript: %w", err)
	}
	if err := s.db.Create(session).Error; err != nil {
		return nil, fmt.Errorf("coaching service: create session: %w", err)
	}
	return session, nil
}

// List returns the user's sessions, most recent first.
func (s *CoachingService) List(userID string) ([]models.CoachingSession, error) {
	var sessions []models.CoachingSession
	err := s.db.Where("user_id = ?", userID).Order("updated_at DESC").Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("coaching service: list sessions: %w", err)
	}
	return sessions, nil
}

// Get returns one session, enforcing ownership.
func (s *CoachingService) Get(userID, sessionID string) (*models.CoachingSession, error) {
	var session models.CoachingSession
	err := s.db.Where("id = ? AND user_id = ?", sessionID, userID).Take(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("coaching service: load session: %w", err)
	}
	return &session, nil
}

// SessionUpdate carries the mutable session fields.
type SessionUpdate struct {
	Hearted *bool
}

// Update applies partial changes to a session the user owns.
func (s *CoachingService) Update(userID, sessionID string, update SessionUpdate) (*models.CoachingSession, error) {
	session, err := s.Get(userID, sessionID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if update.Hearted != nil {
		updates["hearted"] = *update.Hearted
	}
	if len(updates) == 0 {
		return session, nil
	}

	if err := s.db.Model(session).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("coaching service: update session: %w", err)
	}
	return session, nil
}

// AppendChatTurn records the user's message, asks the coach for a reply,
// and persists both on the transcript.
func (s *CoachingService) AppendChatTurn(ctx context.Context, user *models.User, sessionID, message string) (*ChatTurn, error) {
	if strings.TrimSpace(message) == "" {
		return nil, errors.New("coaching service: message is required")
	}

	session, err := s.Get(user.ID, sessionID)
	if err != nil {
		return nil, err
	}

	history, err := session.Transcript()
	if err != nil {
		return nil, fmt.Errorf("coaching service: decode transcript: %w", err)
	}

	now := s.clock()
	userMsg := models.ChatMessage{
		ID:        "msg_" + uuid.NewString(),
		Content:   message,
		IsUser:    true,
		Timestamp: now,
	}

	reply := s.coach.GenerateResponse(ctx, session.CoachType, message, history, profileOf(user))
	coachMsg := models.ChatMessage{
		ID:        "msg_" + uuid.NewString(),
		Content:   reply,
		IsUser:    false,
		Timestamp: s.clock(),
	}

	history = append(history, userMsg, coachMsg)
	if err := session.SetTranscript(history); err != nil {
		return nil, fmt.Errorf("coaching service: encode transcript: %w", err)
	}

	if err := s.db.Model(session).Update("messages", session.Messages).Error; err != nil {
		return nil, fmt.Errorf("coaching service: persist transcript: %w", err)
	}

	return &ChatTurn{UserMessage: userMsg, CoachMessage: coachMsg}, nil
}

// GenerateSummary produces and stores a prose summary of the session.
func (s *CoachingService) GenerateSummary(ctx context.Context, userID, sessionID string) (string, error) {
	session, err := s.Get(userID, sessionID)
	if err != nil {
		return "", err
	}

	messages, err := session.Transcript()
	if err != nil {
		return "", fmt.Errorf("coaching service: decode transcript: %w", err)
	}

	summary := s.summary.Summarize(ctx, messages, session.CoachType)
	if err := s.db.Model(session).Update("summary", summary).Error; err != nil {
		return "", fmt.Errorf("coaching service: persist summary: %w", err)
	}
	return summary, nil
}

// DetailedAnalysis produces a structured analysis of the session.
func (s *CoachingService) DetailedAnalysis(ctx context.Context, userID, sessionID string) (*ai.ConversationAnalysis, error) {
	session, err := s.Get(userID, sessionID)
	if err != nil {
		return nil, err
	}

	messages, err := session.Transcript()
	if err != nil {
		return nil, fmt.Errorf("coaching service: decode transcript: %w", err)
	}

	analysis := s.summary.Analyze(ctx, messages, session.CoachType)
	return &analysis, nil
}

func profileOf(user *models.User) *ai.UserProfile {
	if user == nil {
		return nil
	}
	return &ai.UserProfile{
		CurrentRole:      user.CurrentRole,
		Industry:         user.Industry,
		CareerStage:      user.CareerStage,
		FiveYearGoal:     user.FiveYearGoal,
		BiggestChallenge: user.BiggestChallenge,
		WorkEnvironment:  user.WorkEnvironment,
	}
}
