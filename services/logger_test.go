package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLogLine(t *testing.T, buf *bytes.Buffer) LogEntry {
	t.Helper()
	var entry LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestStructuredLogger_WritesJSONLine(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger(LogLevelInfo, &buf)

	logger.Info("cache invalidated", String("story_id", "story-1"), Int("entries", 2))

	entry := decodeLogLine(t, &buf)
	assert.Equal(t, LogLevelInfo, entry.Level)
	assert.Equal(t, "cache invalidated", entry.Message)
	assert.Equal(t, "story-1", entry.Fields["story_id"])
	assert.Equal(t, float64(2), entry.Fields["entries"])
	assert.NotEmpty(t, entry.Timestamp)
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestStructuredLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger(LogLevelWarn, &buf)

	logger.Debug("dropped")
	logger.Info("dropped too")
	assert.Zero(t, buf.Len())

	logger.Warn("kept")
	assert.NotZero(t, buf.Len())
}

func TestStructuredLogger_ErrorEntryCarriesError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger(LogLevelInfo, &buf)

	logger.Error("backend write failed", errors.New("connection refused"))

	entry := decodeLogLine(t, &buf)
	assert.Equal(t, LogLevelError, entry.Level)
	assert.Equal(t, "connection refused", entry.Error)
}

func TestStructuredLogger_WithAttachesBaseFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewStructuredLogger(LogLevelInfo, &buf)
	child := base.With(String("component", "tree_cache"))

	child.Info("hit", String("mode", "full"))

	entry := decodeLogLine(t, &buf)
	assert.Equal(t, "tree_cache", entry.Fields["component"])
	assert.Equal(t, "full", entry.Fields["mode"])

	// The parent is untouched
	buf.Reset()
	base.Info("plain")
	entry = decodeLogLine(t, &buf)
	assert.Nil(t, entry.Fields)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  LogLevel
	}{
		{"debug", LogLevelDebug},
		{"info", LogLevelInfo},
		{"warn", LogLevelWarn},
		{"warning", LogLevelWarn},
		{"error", LogLevelError},
		{"verbose", LogLevelInfo},
		{"", LogLevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLogLevel(tt.input), "input %q", tt.input)
	}
}
