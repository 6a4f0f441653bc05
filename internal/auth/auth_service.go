package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ascendhq/ascend/internal/models"
	"github.com/ascendhq/ascend/pkg/crypto"
	"github.com/ascendhq/ascend/pkg/logger"
	"github.com/ascendhq/ascend/pkg/metrics"
)

// Lockout and token lifetimes.
const (
	DefaultLockoutThreshold = 5
	DefaultLockoutDuration  = 30 * time.Minute
	VerificationTokenTTL    = 24 * time.Hour
	ResetTokenTTL           = time.Hour
)

var (
	// ErrInvalidCredentials is returned when the supplied email/password pair is invalid.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrAccountLocked signals that the user has exceeded the permitted failed attempts.
	ErrAccountLocked = errors.New("auth: account locked")
	// ErrAccountDisabled signals that the user has been deactivated.
	ErrAccountDisabled = errors.New("auth: account disabled")
	// ErrDuplicateEmail is returned when an account already exists for the address.
	ErrDuplicateEmail = errors.New("auth: email already registered")
	// ErrInvalidResetToken covers unknown, expired, and already used reset tokens.
	ErrInvalidResetToken = errors.New("auth: invalid or expired reset token")
	// ErrInvalidVerificationToken covers unknown and expired verification tokens.
	ErrInvalidVerificationToken = errors.New("auth: invalid or expired verification token")
)

// Notifier delivers account lifecycle emails. Implementations must treat
// delivery as best effort; the auth service never fails an operation because
// an email could not be sent.
type Notifier interface {
	SendVerificationEmail(ctx context.Context, toEmail, firstName, token string) error
	SendWelcomeEmail(ctx context.Context, toEmail, firstName string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, firstName, token string) error
	SendPasswordChangedEmail(ctx context.Context, toEmail, firstName string) error
}

// Config defines tunable behaviour for the Service.
type Config struct {
	LockoutThreshold int
	LockoutDuration  time.Duration
	Clock            func() time.Time
}

// SignUpInput captures the details required to register a new account.
type SignUpInput struct {
	Email           string
	Password        string
	FirstName       string
	LastName        string
	TermsAccepted   bool
	PrivacyAccepted bool
}

// SignInInput contains credentials and client metadata for authentication.
type SignInInput struct {
	Email      string
	Password   string
	RememberMe bool
	IPAddress  string
	DeviceInfo string
}

// AccountExport is the data snapshot returned when an account is deleted.
type AccountExport struct {
	User             *models.User             `json:"user"`
	CoachingSessions []models.CoachingSession `json:"coachingSessions"`
	SavedAdvice      []models.SavedAdvice     `json:"savedAdvice"`
	ExportedAt       time.Time                `json:"exportedAt"`
}

// Service implements account registration, authentication with lockout
// controls, and the email verification and password reset flows.
type Service struct {
	db        *gorm.DB
	sessions  *SessionService
	notifier  Notifier
	log       *zap.Logger
	clock     func() time.Time
	threshold int
	duration  time.Duration
}

// NewService builds an auth service with sane defaults.
func NewService(db *gorm.DB, sessions *SessionService, notifier Notifier, cfg Config) (*Service, error) {
	if db == nil {
		return nil, errors.New("auth service: db is required")
	}
	if sessions == nil {
		return nil, errors.New("auth service: session service is required")
	}
	if notifier == nil {
		return nil, errors.New("auth service: notifier is required")
	}

	threshold := cfg.LockoutThreshold
	if threshold <= 0 {
		threshold = DefaultLockoutThreshold
	}
	duration := cfg.LockoutDuration
	if duration <= 0 {
		duration = DefaultLockoutDuration
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Service{
		db:        db,
		sessions:  sessions,
		notifier:  notifier,
		log:       logger.WithModule("auth"),
		clock:     clock,
		threshold: threshold,
		duration:  duration,
	}, nil
}

// SignUp registers a new account and issues an email verification token.
func (s *Service) SignUp(ctx context.Context, input SignUpInput) (*models.User, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, errors.New("auth service: email and password are required")
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("LOWER(email) = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("auth service: check existing account: %w", err)
	}
	if count > 0 {
		return nil, ErrDuplicateEmail
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth service: hash password: %w", err)
	}

	now := s.clock()
	user := &models.User{
		Email:     email,
		Password:  hashed,
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		IsActive:  true,
	}
	if input.TermsAccepted {
		user.TermsAccepted = true
		user.TermsAcceptedAt = &now
	}
	if input.PrivacyAccepted {
		user.PrivacyAccepted = true
		user.PrivacyAcceptedAt = &now
	}

	if err := s.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("auth service: create user: %w", err)
	}

	s.issueVerification(ctx, user)

	return user, nil
}

// SignIn verifies credentials and opens a session. The lockout window is
// checked before the password so a locked account answers identically for
// right and wrong passwords.
func (s *Service) SignIn(ctx context.Context, input SignInInput) (*models.User, string, *models.UserSession, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, "", nil, ErrInvalidCredentials
	}

	var user models.User
	err := s.db.Where("LOWER(email) = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", nil, fmt.Errorf("auth service: query user: %w", err)
	}

	now := s.clock()

	if !user.IsActive {
		return nil, "", nil, ErrAccountDisabled
	}

	if user.IsLocked(now) {
		metrics.AuthAttempts.WithLabelValues("locked").Inc()
		return nil, "", nil, ErrAccountLocked
	}

	// The lockout window has elapsed; clear it before counting this attempt.
	if user.LockedUntil != nil {
		user.LockedUntil = nil
		user.FailedAttempts = 0
		if err := s.db.Model(&user).Updates(map[string]any{
			"locked_until":    nil,
			"failed_attempts": 0,
		}).Error; err != nil {
			return nil, "", nil, fmt.Errorf("auth service: reset lock state: %w", err)
		}
	}

	if !crypto.VerifyPassword(user.Password, input.Password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, "", nil, s.recordFailedAttempt(&user, now)
	}

	// Unverified accounts may sign in; verified-only routes are gated downstream.
	if !user.EmailVerified {
		s.log.Warn("sign-in with unverified email", zap.String("user_id", user.ID))
	}

	user.FailedAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now
	user.LastLoginIP = strings.TrimSpace(input.IPAddress)

	if err := s.db.Model(&user).Updates(map[string]any{
		"failed_attempts": 0,
		"locked_until":    nil,
		"last_login_at":   now,
		"last_login_ip":   user.LastLoginIP,
	}).Error; err != nil {
		return nil, "", nil, fmt.Errorf("auth service: update user: %w", err)
	}

	token, session, err := s.sessions.Create(user.ID, input.RememberMe, SessionMetadata{
		IPAddress:  input.IPAddress,
		DeviceInfo: input.DeviceInfo,
	})
	if err != nil {
		return nil, "", nil, err
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()

	return &user, token, session, nil
}

func (s *Service) recordFailedAttempt(user *models.User, now time.Time) error {
	user.FailedAttempts++

	updates := map[string]any{"failed_attempts": user.FailedAttempts}
	if user.FailedAttempts >= s.threshold {
		lockUntil := now.Add(s.duration)
		user.LockedUntil = &lockUntil
		updates["locked_until"] = lockUntil
	}

	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		return fmt.Errorf("auth service: update failed attempts: %w", err)
	}

	if user.IsLocked(now) {
		return ErrAccountLocked
	}
	return ErrInvalidCredentials
}

// VerifyEmail consumes a verification token and marks the account verified.
func (s *Service) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidVerificationToken
	}

	var record models.EmailVerificationToken
	err := s.db.Where("token_hash = ?", crypto.HashToken(token)).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidVerificationToken
	}
	if err != nil {
		return nil, fmt.Errorf("auth service: find verification token: %w", err)
	}

	now := s.clock()
	if !now.Before(record.ExpiresAt) {
		return nil, ErrInvalidVerificationToken
	}

	var user models.User
	err = s.db.Where("LOWER(email) = ?", normalizeEmail(record.Email)).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidVerificationToken
	}
	if err != nil {
		return nil, fmt.Errorf("auth service: find user: %w", err)
	}

	if !user.EmailVerified {
		if err := s.db.Model(&user).Update("email_verified", true).Error; err != nil {
			return nil, fmt.Errorf("auth service: mark verified: %w", err)
		}
		user.EmailVerified = true

		if err := s.notifier.SendWelcomeEmail(ctx, user.Email, user.FirstName); err != nil {
			s.log.Warn("welcome email failed", zap.String("user_id", user.ID), zap.Error(err))
		}
	}

	if err := s.db.Where("email = ?", record.Email).Delete(&models.EmailVerificationToken{}).Error; err != nil {
		s.log.Warn("verification token cleanup failed", zap.Error(err))
	}

	return &user, nil
}

// ResendVerification reissues a verification email. The response never
// reveals whether the address is registered.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return nil
	}

	var user models.User
	err := s.db.Where("LOWER(email) = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("auth service: query user: %w", err)
	}
	if user.EmailVerified {
		return nil
	}

	s.issueVerification(ctx, &user)
	return nil
}

func (s *Service) issueVerification(ctx context.Context, user *models.User) {
	token, err := crypto.GenerateToken(crypto.TokenBytes)
	if err != nil {
		s.log.Error("verification token generation failed", zap.Error(err))
		return
	}

	if err := s.db.Where("email = ?", user.Email).Delete(&models.EmailVerificationToken{}).Error; err != nil {
		s.log.Warn("stale verification token cleanup failed", zap.Error(err))
	}

	record := &models.EmailVerificationToken{
		Email:     user.Email,
		TokenHash: crypto.HashToken(token),
		ExpiresAt: s.clock().Add(VerificationTokenTTL),
	}
	if err := s.db.Create(record).Error; err != nil {
		s.log.Error("verification token persist failed", zap.Error(err))
		return
	}

	if err := s.notifier.SendVerificationEmail(ctx, user.Email, user.FirstName, token); err != nil {
		s.log.Warn("verification email failed", zap.String("user_id", user.ID), zap.Error(err))
	}
}

// RequestPasswordReset issues a reset token. The response never reveals
// whether the address is registered.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return nil
	}

	var user models.User
	err := s.db.Where("LOWER(email) = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("auth service: query user: %w", err)
	}

	token, err := crypto.GenerateToken(crypto.TokenBytes)
	if err != nil {
		return fmt.Errorf("auth service: generate reset token: %w", err)
	}

	record := &models.PasswordResetToken{
		UserID:    user.ID,
		TokenHash: crypto.HashToken(token),
		ExpiresAt: s.clock().Add(ResetTokenTTL),
	}
	if err := s.db.Create(record).Error; err != nil {
		return fmt.Errorf("auth service: persist reset token: %w", err)
	}

	if err := s.notifier.SendPasswordResetEmail(ctx, user.Email, user.FirstName, token); err != nil {
		s.log.Warn("password reset email failed", zap.String("user_id", user.ID), zap.Error(err))
	}

	return nil
}

// ResetPassword consumes a reset token. Tokens are single use; a consumed
// token is marked rather than deleted so replays are rejected.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" || newPassword == "" {
		return ErrInvalidResetToken
	}

	var record models.PasswordResetToken
	err := s.db.Where("token_hash = ?", crypto.HashToken(token)).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return fmt.Errorf("auth service: find reset token: %w", err)
	}

	now := s.clock()
	if record.UsedAt != nil || !now.Before(record.ExpiresAt) {
		return ErrInvalidResetToken
	}

	var user models.User
	if err := s.db.Take(&user, "id = ?", record.UserID).Error; err != nil {
		return ErrInvalidResetToken
	}

	hashed, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth service: hash password: %w", err)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Updates(map[string]any{
			"password":        hashed,
			"failed_attempts": 0,
			"locked_until":    nil,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&record).Update("used_at", now).Error
	})
	if err != nil {
		return fmt.Errorf("auth service: reset password: %w", err)
	}

	if _, err := s.sessions.RevokeAll(user.ID); err != nil {
		s.log.Warn("session revocation after reset failed", zap.String("user_id", user.ID), zap.Error(err))
	}

	if err := s.notifier.SendPasswordChangedEmail(ctx, user.Email, user.FirstName); err != nil {
		s.log.Warn("password changed email failed", zap.String("user_id", user.ID), zap.Error(err))
	}

	return nil
}

// ChangePassword verifies the current credential, replaces it, and signs the
// user out everywhere.
func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if strings.TrimSpace(userID) == "" || newPassword == "" {
		return errors.New("auth service: user id and new password are required")
	}

	var user models.User
	err := s.db.Take(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("auth service: query user: %w", err)
	}

	if !crypto.VerifyPassword(user.Password, currentPassword) {
		return ErrInvalidCredentials
	}

	hashed, err := crypto.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("auth service: hash password: %w", err)
	}

	if err := s.db.Model(&user).Update("password", hashed).Error; err != nil {
		return fmt.Errorf("auth service: update password: %w", err)
	}

	if _, err := s.sessions.RevokeAll(user.ID); err != nil {
		s.log.Warn("session revocation after change failed", zap.String("user_id", user.ID), zap.Error(err))
	}

	if err := s.notifier.SendPasswordChangedEmail(ctx, user.Email, user.FirstName); err != nil {
		s.log.Warn("password changed email failed", zap.String("user_id", user.ID), zap.Error(err))
	}

	return nil
}

// DeleteAccount verifies the password, assembles a final data export, and
// hard deletes the account with everything attached to it.
func (s *Service) DeleteAccount(ctx context.Context, userID, password string) (*AccountExport, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidCredentials
	}

	var user models.User
	err := s.db.Take(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("auth service: query user: %w", err)
	}

	if !crypto.VerifyPassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}

	export := &AccountExport{User: &user, ExportedAt: s.clock()}
	if err := s.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&export.CoachingSessions).Error; err != nil {
		return nil, fmt.Errorf("auth service: export sessions: %w", err)
	}
	if err := s.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&export.SavedAdvice).Error; err != nil {
		return nil, fmt.Errorf("auth service: export advice: %w", err)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, target := range []any{
			&models.UserSession{},
			&models.PasswordResetToken{},
			&models.MFASecret{},
			&models.CoachingSession{},
			&models.SavedAdvice{},
		} {
			if err := tx.Where("user_id = ?", userID).Delete(target).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("email = ?", user.Email).Delete(&models.EmailVerificationToken{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, "id = ?", userID).Error
	})
	if err != nil {
		return nil, fmt.Errorf("auth service: delete account: %w", err)
	}

	return export, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
