package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]log.Level{
		"debug":   log.DebugLevel,
		"INFO":    log.InfoLevel,
		"warn":    log.WarnLevel,
		"warning": log.WarnLevel,
		"error":   log.ErrorLevel,
		"fatal":   log.FatalLevel,
		"":        log.InfoLevel,
		"chatty":  log.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestConfigureFlagBeatsEnv(t *testing.T) {
	t.Setenv("TRIALKIT_LOG_LEVEL", "error")

	require.NoError(t, Configure("debug", "", false))
	assert.Equal(t, log.DebugLevel, Logger.GetLevel())

	require.NoError(t, Configure("", "", false))
	assert.Equal(t, log.ErrorLevel, Logger.GetLevel())
}

func TestConfigureTestModePinsInfo(t *testing.T) {
	require.NoError(t, Configure("debug", "", true))
	assert.Equal(t, log.InfoLevel, Logger.GetLevel())
}

func TestConfigureLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trialkit.log")
	require.NoError(t, Configure("info", path, false))
	t.Cleanup(func() { SetOutput(os.Stderr) })

	Info("session processed", "session", "m1_day3")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "session processed")
	assert.Contains(t, string(data), "m1_day3")
}

func TestConfigureBadLogFile(t *testing.T) {
	err := Configure("info", filepath.Join(t.TempDir(), "missing", "dir", "x.log"), false)
	assert.Error(t, err)
}

func TestStyledLoggerSharesLevelAndOutput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Configure("warn", "", false))
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stderr) })

	l := NewStyledLogger("Behavior")
	assert.Equal(t, log.WarnLevel, l.GetLevel())

	l.Info("hidden")
	l.Warn("shown", "session", "s1")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "Behavior")
	assert.Contains(t, buf.String(), "shown")
}
