package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ascendhq/ascend/internal/models"
	"github.com/ascendhq/ascend/pkg/crypto"
	"github.com/ascendhq/ascend/pkg/metrics"
)

// Session lifetimes. Remember-me extends the cookie and the database row.
const (
	DefaultSessionTTL    = 7 * 24 * time.Hour
	RememberMeSessionTTL = 30 * 24 * time.Hour
)

var (
	// ErrSessionNotFound indicates that no session matches the provided token or identifier.
	ErrSessionNotFound = errors.New("session: not found")
	// ErrSessionExpired signals that a session token has reached its expiry.
	ErrSessionExpired = errors.New("session: expired")
	// ErrSessionInvalidToken is returned when the supplied token is malformed or empty.
	ErrSessionInvalidToken = errors.New("session: invalid token")
)

// SessionConfig describes tunable behaviour for the SessionService.
type SessionConfig struct {
	SessionTTL    time.Duration
	RememberMeTTL time.Duration
	Clock         func() time.Time
}

// SessionMetadata captures contextual information about the client.
type SessionMetadata struct {
	IPAddress  string
	DeviceInfo string
}

// SessionService manages creation, validation, and revocation of opaque
// cookie sessions.
type SessionService struct {
	db          *gorm.DB
	ttl         time.Duration
	rememberTTL time.Duration
	now         func() time.Time
}

// NewSessionService constructs a session manager backed by the provided database.
func NewSessionService(db *gorm.DB, cfg SessionConfig) (*SessionService, error) {
	if db == nil {
		return nil, errors.New("session service: db is required")
	}

	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	rememberTTL := cfg.RememberMeTTL
	if rememberTTL <= 0 {
		rememberTTL = RememberMeSessionTTL
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &SessionService{db: db, ttl: ttl, rememberTTL: rememberTTL, now: clock}, nil
}

// TTL returns the session lifetime for the given remember-me choice.
func (s *SessionService) TTL(rememberMe bool) time.Duration {
	if rememberMe {
		return s.rememberTTL
	}
	return s.ttl
}

// Create issues a new session and returns the plaintext token exactly once.
// Only the SHA-256 hash is persisted.
func (s *SessionService) Create(userID string, rememberMe bool, meta SessionMetadata) (string, *models.UserSession, error) {
	if strings.TrimSpace(userID) == "" {
		return "", nil, errors.New("session service: user id is required")
	}

	token, err := crypto.GenerateToken(crypto.TokenBytes)
	if err != nil {
		return "", nil, fmt.Errorf("session service: generate token: %w", err)
	}

	now := s.now()
	session := &models.UserSession{
		UserID:       userID,
		TokenHash:    crypto.HashToken(token),
		IPAddress:    strings.TrimSpace(meta.IPAddress),
		DeviceInfo:   strings.TrimSpace(meta.DeviceInfo),
		LastActiveAt: now,
		ExpiresAt:    now.Add(s.TTL(rememberMe)),
	}

	if err := s.db.Create(session).Error; err != nil {
		return "", nil, fmt.Errorf("session service: create session: %w", err)
	}

	metrics.ActiveSessions.Inc()

	return token, session, nil
}

// Validate resolves a session token to its user. A valid lookup refreshes
// the session's last-active timestamp.
func (s *SessionService) Validate(token string) (*models.User, *models.UserSession, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil, ErrSessionInvalidToken
	}

	var session models.UserSession
	err := s.db.Preload("User").Where("token_hash = ?", crypto.HashToken(token)).Take(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("session service: find session: %w", err)
	}

	now := s.now()
	if session.IsExpired(now) {
		_ = s.db.Delete(&models.UserSession{}, "id = ?", session.ID).Error
		return nil, nil, ErrSessionExpired
	}
	if session.User == nil || !session.User.IsActive {
		return nil, nil, ErrSessionNotFound
	}

	// Best effort; a failed touch never invalidates the session.
	_ = s.db.Model(&models.UserSession{}).Where("id = ?", session.ID).
		Update("last_active_at", now).Error
	session.LastActiveAt = now

	return session.User, &session, nil
}

// Revoke deletes the session identified by its plaintext token.
func (s *SessionService) Revoke(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrSessionInvalidToken
	}

	result := s.db.Where("token_hash = ?", crypto.HashToken(token)).Delete(&models.UserSession{})
	if result.Error != nil {
		return fmt.Errorf("session service: revoke session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}

	metrics.ActiveSessions.Sub(float64(result.RowsAffected))
	return nil
}

// RevokeByID deletes one of the user's sessions by identifier. The user
// scope prevents revoking another account's session.
func (s *SessionService) RevokeByID(userID, sessionID string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(sessionID) == "" {
		return ErrSessionInvalidToken
	}

	result := s.db.Where("id = ? AND user_id = ?", sessionID, userID).Delete(&models.UserSession{})
	if result.Error != nil {
		return fmt.Errorf("session service: revoke session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}

	metrics.ActiveSessions.Sub(float64(result.RowsAffected))
	return nil
}

// RevokeAll deletes every session belonging to the user and returns the count.
func (s *SessionService) RevokeAll(userID string) (int64, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, ErrSessionInvalidToken
	}

	result := s.db.Where("user_id = ?", userID).Delete(&models.UserSession{})
	if result.Error != nil {
		return 0, fmt.Errorf("session service: revoke all: %w", result.Error)
	}

	metrics.ActiveSessions.Sub(float64(result.RowsAffected))
	return result.RowsAffected, nil
}

// List returns the user's live sessions, newest activity first.
func (s *SessionService) List(userID string) ([]models.UserSession, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrSessionInvalidToken
	}

	var sessions []models.UserSession
	err := s.db.Where("user_id = ? AND expires_at > ?", userID, s.now()).
		Order("last_active_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("session service: list sessions: %w", err)
	}
	return sessions, nil
}

// CleanupExpired removes expired sessions and updates the active session gauge.
func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	result := s.db.WithContext(ctx).
		Where("expires_at <= ?", s.now()).
		Delete(&models.UserSession{})
	if result.Error != nil {
		return 0, fmt.Errorf("session service: cleanup expired: %w", result.Error)
	}

	metrics.ActiveSessions.Sub(float64(result.RowsAffected))
	return result.RowsAffected, nil
}
