package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewDevelopmentEnablesDebug(t *testing.T) {
	logger, err := New(true)
	require.NoError(t, err)
	require.NotNil(t, logger)
	require.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNewProductionFiltersDebug(t *testing.T) {
	logger, err := New(false)
	require.NoError(t, err)
	require.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	require.True(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestNamedSubloggersKeepLevels(t *testing.T) {
	logger, err := New(false)
	require.NoError(t, err)
	sub := logger.Named("governor")
	require.True(t, sub.Core().Enabled(zapcore.WarnLevel))
	require.False(t, sub.Core().Enabled(zapcore.DebugLevel))
}
