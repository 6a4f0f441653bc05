package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ascendhq/ascend/internal/database/testutil"
	"github.com/ascendhq/ascend/internal/models"
)

func TestSaveAdviceVerifiesSessionOwnership(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewAdviceService(db)
	require.NoError(t, err)

	alice := &models.User{Email: "alice@example.com", Password: "hash"}
	bob := &models.User{Email: "bob@example.com", Password: "hash"}
	require.NoError(t, db.Create(alice).Error)
	require.NoError(t, db.Create(bob).Error)

	session := &models.CoachingSession{UserID: alice.ID, CoachType: "career"}
	require.NoError(t, db.Create(session).Error)

	_, err = svc.Save(bob.ID, SaveInput{SessionID: session.ID, CoachType: "career", MessageContent: "advice"})
	require.ErrorIs(t, err, ErrSessionNotFound)

	advice, err := svc.Save(alice.ID, SaveInput{SessionID: session.ID, CoachType: "career", MessageContent: "Negotiate scope before salary."})
	require.NoError(t, err)
	require.Equal(t, alice.ID, advice.UserID)
}

func TestListAndDeleteAdvice(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewAdviceService(db)
	require.NoError(t, err)

	user := &models.User{Email: "alex@example.com", Password: "hash"}
	other := &models.User{Email: "sam@example.com", Password: "hash"}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(other).Error)

	first, err := svc.Save(user.ID, SaveInput{CoachType: "life", MessageContent: "Protect one evening a week."})
	require.NoError(t, err)
	_, err = svc.Save(user.ID, SaveInput{CoachType: "career", MessageContent: "Write down wins monthly."})
	require.NoError(t, err)

	list, err := svc.List(user.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.ErrorIs(t, svc.Delete(other.ID, first.ID), ErrAdviceNotFound)
	require.NoError(t, svc.Delete(user.ID, first.ID))

	list, err = svc.List(user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestSaveAdviceRequiresContent(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	svc, err := NewAdviceService(db)
	require.NoError(t, err)

	_, err = svc.Save("user-1", SaveInput{MessageContent: "  "})
	require.Error(t, err)
}
