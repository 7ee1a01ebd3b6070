package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLogger(t *testing.T) {
	ctx := context.Background()

	assert.True(t, newLogger("debug", "text").Enabled(ctx, slog.LevelDebug))
	assert.False(t, newLogger("info", "json").Enabled(ctx, slog.LevelDebug))
	assert.False(t, newLogger("WARN", "text").Enabled(ctx, slog.LevelInfo))
	assert.False(t, newLogger("error", "text").Enabled(ctx, slog.LevelWarn))
	assert.True(t, newLogger("bogus", "text").Enabled(ctx, slog.LevelInfo))
}
