package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestNewWithWriter_ProductionIsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "production", "info")

	logger.Debug("hidden")
	logger.Info("login succeeded", slog.String("email", "a@x.com"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "login succeeded", entry["msg"])
	assert.Equal(t, "a@x.com", entry["email"])
}

func TestNewWithWriter_DevelopmentIsText(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "development", "debug")

	logger.Debug("token rejected", slog.String("reason", "expired"))

	out := buf.String()
	assert.Contains(t, out, "token rejected")
	assert.Contains(t, out, "expired")
	assert.False(t, json.Valid([]byte(strings.TrimSpace(out))))
}
