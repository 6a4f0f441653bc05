package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInitAcceptsKnownLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		require.NoError(t, Init(level))
		require.NotNil(t, Logger())
	}
}

func TestInitDefaultsToInfo(t *testing.T) {
	for _, level := range []string{"", "  ", "not-a-level"} {
		require.NoError(t, Init(level))
		require.True(t, Logger().Core().Enabled(zapcore.InfoLevel))
		require.False(t, Logger().Core().Enabled(zapcore.DebugLevel))
	}
}

func TestWithModuleReturnsChild(t *testing.T) {
	require.NoError(t, Init("info"))
	require.NotNil(t, WithModule("auth"))
}
