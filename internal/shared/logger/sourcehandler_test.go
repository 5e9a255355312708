package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLeveledSourceHandler(t *testing.T) {
	tests := []struct {
		name       string
		level      slog.Level
		from       slog.Level
		wantSource bool
	}{
		{name: "info below warn threshold", level: slog.LevelInfo, from: slog.LevelWarn, wantSource: false},
		{name: "warn at threshold", level: slog.LevelWarn, from: slog.LevelWarn, wantSource: true},
		{name: "error above threshold", level: slog.LevelError, from: slog.LevelWarn, wantSource: true},
		{name: "debug threshold shows info", level: slog.LevelInfo, from: slog.LevelDebug, wantSource: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			base := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
			log := slog.New(NewLeveledSourceHandler(base, tt.from))

			log.Log(context.Background(), tt.level, "test message")

			assert.Equal(t, tt.wantSource, bytes.Contains(buf.Bytes(), []byte("source=")), buf.String())
		})
	}
}

func TestLeveledSourceHandler_KeepsAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewTextHandler(&buf, nil)
	log := slog.New(NewLeveledSourceHandler(base, slog.LevelError)).With("user_id", 7).WithGroup("request")

	log.Info("test message", "path", "/me/plan")

	out := buf.String()
	assert.Contains(t, out, "user_id=7")
	assert.Contains(t, out, "request.path=/me/plan")
	assert.NotContains(t, out, "source=")
}

func TestLeveledSourceHandler_Enabled(t *testing.T) {
	base := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo})
	h := NewLeveledSourceHandler(base, slog.LevelError)

	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}
