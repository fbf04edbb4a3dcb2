package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		value string
		env   string
		want  slog.Level
	}{
		{"debug", "production", slog.LevelDebug},
		{"WARN", "production", slog.LevelWarn},
		{"error", "production", slog.LevelError},
		{"fatal", "production", LevelCritical},
		{"", "development", slog.LevelDebug},
		{"", "production", slog.LevelInfo},
		{"bogus", "development", slog.LevelDebug},
		{"info", "development", slog.LevelInfo},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseLevel(tc.value, tc.env), "value=%q env=%q", tc.value, tc.env)
	}
}

func TestCriticalLevelIsRenamed(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf, Level: slog.LevelDebug, Format: "json", Service: "shoplist"})

	log.Critical("app: boom", "k", "v")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "CRITICAL", line["level"])
	assert.Equal(t, "shoplist", line["service"])
	assert.Equal(t, "v", line["k"])
}

func TestBusinessErrorSkipsNil(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf, Level: slog.LevelDebug})

	log.BusinessError("noop", nil)
	assert.Zero(t, buf.Len())

	log.With("item_id", "x").BusinessError("shopping.get: not found", errors.New("item not found"))
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "item not found", line["err"])
	assert.Equal(t, "x", line["item_id"])
}
