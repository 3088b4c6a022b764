package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevelKnownValues(t *testing.T) {
	require.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	require.Equal(t, zapcore.WarnLevel, parseLevel("WARN"))
	require.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	require.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	require.Equal(t, zapcore.InfoLevel, parseLevel("info"))
}

func TestParseLevelUnknownDefaultsToInfo(t *testing.T) {
	require.Equal(t, zapcore.InfoLevel, parseLevel("nonsense"))
	require.Equal(t, zapcore.InfoLevel, parseLevel(""))
}

func TestNewBuildsLoggerAtRequestedLevel(t *testing.T) {
	log, err := New("debug")
	require.NoError(t, err)
	require.NotNil(t, log)
	require.True(t, log.Core().Enabled(zapcore.DebugLevel))
}
