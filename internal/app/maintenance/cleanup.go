package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	iauth "github.com/ascendhq/ascend/internal/auth"
	"github.com/ascendhq/ascend/internal/models"
	"github.com/ascendhq/ascend/pkg/logger"
)

const (
	defaultEmailLogRetentionDays = 90
	defaultSessionSpec           = "@hourly"
	defaultTokenSpec             = "@daily"
	defaultEmailLogSpec          = "@daily"
)

// Cleaner coordinates background maintenance tasks such as purging expired
// sessions, removing stale tokens, and pruning old email delivery logs.
type Cleaner struct {
	db        *gorm.DB
	sessions  *iauth.SessionService
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	enabled   bool
	retention int

	sessionSchedule  string
	tokenSchedule    string
	emailLogSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for scheduling and cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithEmailLogRetentionDays adjusts how long email delivery logs are retained.
func WithEmailLogRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithSessionSchedule overrides the cron expression for session cleanup.
func WithSessionSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.sessionSchedule = spec
		}
	}
}

// WithTokenSchedule overrides the cron expression for token cleanup.
func WithTokenSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.tokenSchedule = spec
		}
	}
}

// WithEmailLogSchedule overrides the cron expression for email log pruning.
func WithEmailLogSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.emailLogSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency
// results in the corresponding cleanup job being skipped.
func NewCleaner(db *gorm.DB, sessions *iauth.SessionService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:               db,
		sessions:         sessions,
		now:              time.Now,
		retention:        defaultEmailLogRetentionDays,
		sessionSchedule:  defaultSessionSpec,
		tokenSchedule:    defaultTokenSpec,
		emailLogSchedule: defaultEmailLogSpec,
		log:              logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	cleaner.enabled = cleaner.sessions != nil || cleaner.db != nil

	return cleaner
}

// Start registers cleanup jobs with the cron scheduler and launches it if at
// least one cleanup is enabled.
func (c *Cleaner) Start() error {
	if !c.enabled {
		return nil
	}

	if c.sessions != nil {
		if _, err := c.cron.AddFunc(c.sessionSchedule, func() {
			ctx := context.Background()
			if _, err := c.sessions.CleanupExpired(ctx); err != nil {
				c.log.Warn("session cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.db != nil {
		if _, err := c.cron.AddFunc(c.tokenSchedule, func() {
			ctx := context.Background()
			if _, err := CleanupTokens(ctx, c.db, c.now()); err != nil {
				c.log.Warn("token cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}

		if c.retention > 0 {
			if _, err := c.cron.AddFunc(c.emailLogSchedule, func() {
				ctx := context.Background()
				if _, err := CleanupEmailLogs(ctx, c.db, c.now(), c.retention); err != nil {
					c.log.Warn("email log cleanup failed", zap.Error(err))
				}
			}); err != nil {
				return err
			}
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Primarily used
// in tests and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.sessions != nil {
		if _, err := c.sessions.CleanupExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.db != nil {
		if _, err := CleanupTokens(ctx, c.db, c.now()); err != nil {
			errs = multierr.Append(errs, err)
		}
		if c.retention > 0 {
			if _, err := CleanupEmailLogs(ctx, c.db, c.now(), c.retention); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
	}

	return errs
}

// TokenCleanupStats captures the number of records removed for each token type.
type TokenCleanupStats struct {
	PasswordResets     int64
	EmailVerifications int64
}

// CleanupTokens removes expired or consumed tokens across the core tables.
func CleanupTokens(ctx context.Context, db *gorm.DB, now time.Time) (TokenCleanupStats, error) {
	if db == nil {
		return TokenCleanupStats{}, errors.New("cleanup tokens: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	stats := TokenCleanupStats{}

	if result := db.WithContext(ctx).
		Where("expires_at < ? OR used_at IS NOT NULL", now).
		Delete(&models.PasswordResetToken{}); result.Error != nil {
		return stats, fmt.Errorf("cleanup tokens: password reset tokens: %w", result.Error)
	} else {
		stats.PasswordResets = result.RowsAffected
	}

	if result := db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.EmailVerificationToken{}); result.Error != nil {
		return stats, fmt.Errorf("cleanup tokens: email verification tokens: %w", result.Error)
	} else {
		stats.EmailVerifications = result.RowsAffected
	}

	return stats, nil
}

// CleanupEmailLogs prunes email delivery logs older than the retention window.
func CleanupEmailLogs(ctx context.Context, db *gorm.DB, now time.Time, retentionDays int) (int64, error) {
	if db == nil {
		return 0, errors.New("cleanup email logs: db is required")
	}
	if retentionDays <= 0 {
		return 0, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cutoff := now.AddDate(0, 0, -retentionDays)
	result := db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.EmailLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("cleanup email logs: %w", result.Error)
	}
	return result.RowsAffected, nil
}
