package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ascendhq/ascend/internal/models"
	"github.com/ascendhq/ascend/pkg/crypto"
)

func TestMustOpenTestDBIsolatesFixtures(t *testing.T) {
	first := MustOpenTestDB(t)
	second := MustOpenTestDB(t)

	hash, err := crypto.HashPassword("Sup3r$ecret")
	require.NoError(t, err)
	require.NoError(t, first.Create(&models.User{
		Email:    "alex@example.com",
		Password: hash,
		IsActive: true,
	}).Error)

	// the same email inserts cleanly in the second database
	require.NoError(t, second.Create(&models.User{
		Email:    "alex@example.com",
		Password: hash,
		IsActive: true,
	}).Error)

	var count int64
	require.NoError(t, second.Model(&models.User{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}
