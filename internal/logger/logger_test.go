package logger

import (
	"bytes"
	"encoding/json/v2"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "json", Level: slog.LevelInfo})

	log.Info("refresh complete", "authors", 3)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "refresh complete", line["msg"])
	assert.Equal(t, "INFO", line["level"])
	assert.EqualValues(t, 3, line["authors"])
}

func TestNewDefaultsByEnvironment(t *testing.T) {
	var buf bytes.Buffer

	prod := New(Config{Writer: &buf, Environment: "production"})
	prod.Info("up")
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("{")), "production defaults to JSON")

	buf.Reset()
	dev := New(Config{Writer: &buf, Environment: "development"})
	dev.Info("up")
	assert.False(t, bytes.HasPrefix(buf.Bytes(), []byte("{")), "development defaults to console format")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "json", Level: slog.LevelWarn})

	log.Debug("noise")
	log.Info("noise")
	assert.Zero(t, buf.Len())

	log.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"Info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"loud", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "json"})

	log.WithError(assert.AnError).Error("refresh failed")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, assert.AnError.Error(), line["error"])
	assert.Equal(t, "refresh failed", line["msg"])
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "json"})

	log.WithFields(map[string]any{
		"author_id": int64(42),
		"manual":    true,
	}).Info("queued")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.EqualValues(t, 42, line["author_id"])
	assert.Equal(t, true, line["manual"])
}

func TestConsoleHandlerOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "pretty", Level: slog.LevelDebug})

	log.Warn("rate limited", "key", "bookinfo")

	out := buf.String()
	assert.Contains(t, out, "WRN")
	assert.Contains(t, out, "rate limited")
	assert.Contains(t, out, "key=bookinfo")
}

func TestConsoleHandlerCarriesBoundAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "pretty"})

	bound := log.WithFields(map[string]any{"worker": "refresh"})
	bound.Info("tick")

	assert.Contains(t, buf.String(), "worker=refresh")
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "pretty", Level: slog.LevelError})

	log.Info("noise")
	assert.Zero(t, buf.Len())

	log.Error("boom")
	assert.Contains(t, buf.String(), "ERR")
}
