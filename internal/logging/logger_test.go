package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		" warn ":  LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"verbose": LevelInfo,
		"":        LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, LevelWarn)
	l.now = func() time.Time { return time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC) }

	l.Debug("hidden %d", 1)
	l.Info("hidden %d", 2)
	l.Warn("[catalog] duplicate %s", "12 Oak St")
	l.Error("boom")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[2025-07-01 09:30:00] WARN  [catalog] duplicate 12 Oak St\n")
	assert.Contains(t, out, "ERROR boom")
}

func TestLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rentradar.log")
	var buf bytes.Buffer
	l := NewWithWriter(&buf, LevelInfo).WithFile(FileOptions{Path: path, MaxSizeMB: 1})

	l.Info("scored %d listings", 3)
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "INFO  scored 3 listings")
	assert.NotContains(t, string(data), "\033[")
}

func TestNilAndDiscard(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() { l.Info("x") })
	assert.NotPanics(t, func() { Discard().Error("x") })
}
