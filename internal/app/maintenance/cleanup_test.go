package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	iauth "github.com/ascendhq/ascend/internal/auth"
	testutil "github.com/ascendhq/ascend/internal/database/testutil"
	"github.com/ascendhq/ascend/internal/models"
	"github.com/ascendhq/ascend/pkg/crypto"
)

func TestCleanupTokens(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	now := time.Date(2026, 2, 10, 15, 0, 0, 0, time.UTC)

	usedAt := now.Add(-30 * time.Minute)
	expiredReset := models.PasswordResetToken{
		UserID:    "user-expired",
		TokenHash: "reset-expired",
		ExpiresAt: now.Add(-time.Hour),
	}
	usedReset := models.PasswordResetToken{
		UserID:    "user-used",
		TokenHash: "reset-used",
		ExpiresAt: now.Add(time.Hour),
		UsedAt:    &usedAt,
	}
	activeReset := models.PasswordResetToken{
		UserID:    "user-active",
		TokenHash: "reset-active",
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, db.Create(&expiredReset).Error)
	require.NoError(t, db.Create(&usedReset).Error)
	require.NoError(t, db.Create(&activeReset).Error)

	expiredVerification := models.EmailVerificationToken{
		Email:     "expired@example.com",
		TokenHash: "verify-expired",
		ExpiresAt: now.Add(-time.Hour),
	}
	activeVerification := models.EmailVerificationToken{
		Email:     "active@example.com",
		TokenHash: "verify-active",
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, db.Create(&expiredVerification).Error)
	require.NoError(t, db.Create(&activeVerification).Error)

	stats, err := CleanupTokens(context.Background(), db, now)
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.PasswordResets)
	require.Equal(t, int64(1), stats.EmailVerifications)

	assertRemaining := func(model any, expected int64) {
		var count int64
		require.NoError(t, db.Model(model).Count(&count).Error)
		require.Equal(t, expected, count)
	}

	assertRemaining(&models.PasswordResetToken{}, 1)
	assertRemaining(&models.EmailVerificationToken{}, 1)
}

func TestCleanupEmailLogs(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	now := time.Date(2026, 2, 10, 15, 0, 0, 0, time.UTC)

	old := models.EmailLog{ToEmail: "old@example.com", Subject: "Welcome", Template: "welcome", Status: "sent"}
	recent := models.EmailLog{ToEmail: "new@example.com", Subject: "Welcome", Template: "welcome", Status: "sent"}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Create(&recent).Error)
	require.NoError(t, db.Model(&old).Update("created_at", now.AddDate(0, 0, -120)).Error)
	require.NoError(t, db.Model(&recent).Update("created_at", now.AddDate(0, 0, -5)).Error)

	removed, err := CleanupEmailLogs(context.Background(), db, now, 90)
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	var count int64
	require.NoError(t, db.Model(&models.EmailLog{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestCleanerRunOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	clock := fixedClock{current: time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC)}

	sessionSvc, err := iauth.NewSessionService(db, iauth.SessionConfig{
		SessionTTL: time.Hour,
		Clock:      clock.Now,
	})
	require.NoError(t, err)

	user := seedUser(t, db, "cleanup-user@example.com")

	_, expiredSession, err := sessionSvc.Create(user.ID, false, iauth.SessionMetadata{})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.UserSession{}).Where("id = ?", expiredSession.ID).
		Update("expires_at", clock.Now().Add(-2*time.Hour)).Error)

	_, activeSession, err := sessionSvc.Create(user.ID, false, iauth.SessionMetadata{})
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.PasswordResetToken{
		UserID:    user.ID,
		TokenHash: "reset-expired",
		ExpiresAt: clock.Now().Add(-time.Hour),
	}).Error)
	require.NoError(t, db.Create(&models.EmailVerificationToken{
		Email:     user.Email,
		TokenHash: "verify-expired",
		ExpiresAt: clock.Now().Add(-time.Hour),
	}).Error)

	c := NewCleaner(db, sessionSvc,
		WithNow(clock.Now),
		WithEmailLogRetentionDays(7),
		WithCron(cron.New(cron.WithLogger(cron.DiscardLogger))),
	)

	require.NoError(t, c.RunOnce(context.Background()))

	var gone models.UserSession
	err = db.First(&gone, "id = ?", expiredSession.ID).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var remaining models.UserSession
	require.NoError(t, db.First(&remaining, "id = ?", activeSession.ID).Error)

	var tokenCount int64
	require.NoError(t, db.Model(&models.PasswordResetToken{}).Count(&tokenCount).Error)
	require.Equal(t, int64(0), tokenCount)
	require.NoError(t, db.Model(&models.EmailVerificationToken{}).Count(&tokenCount).Error)
	require.Equal(t, int64(0), tokenCount)
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := crypto.HashPassword("Password123!")
	require.NoError(t, err)

	user := &models.User{
		Email:         email,
		Password:      hash,
		EmailVerified: true,
		IsActive:      true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

type fixedClock struct {
	current time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.current
}
