package logging

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemLogFromRecord(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	record := slog.NewRecord(now, slog.LevelError, "save failed", 0)
	record.AddAttrs(
		slog.String("user_id", "u-1"),
		slog.Any("error", errors.New("document too large")),
		slog.Float64("latency_ms", 12.6),
		slog.String("path", "site/content"),
	)

	entry := systemLogFromRecord(record, []slog.Attr{slog.String("component", "contentsync")})

	assert.Equal(t, now, entry.Timestamp)
	assert.Equal(t, "ERROR", entry.Level)
	assert.Equal(t, "save failed", entry.Message)
	assert.Equal(t, "contentsync", entry.Component)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "u-1", *entry.UserID)
	assert.Equal(t, "document too large", entry.Error)
	assert.Equal(t, 13, entry.LatencyMs)

	var extra map[string]any
	require.NoError(t, json.Unmarshal(entry.Extra, &extra))
	assert.Equal(t, map[string]any{"path": "site/content"}, extra)
}

func TestPGHandlerLevelsAndAttrs(t *testing.T) {
	h := &PGHandler{}
	assert.False(t, h.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))

	child := h.WithAttrs([]slog.Attr{slog.String("component", "http")}).(*PGHandler)
	assert.Len(t, child.attrs, 1)
	assert.Empty(t, h.attrs)
}
