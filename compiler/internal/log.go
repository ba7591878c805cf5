package internal

import (
	"context"
	"log/slog"
)

// LevelTrace sits below slog.LevelDebug and covers per-identifier and per-label events.
const LevelTrace slog.Level = slog.LevelDebug - 4

func Trace(msg string, args ...any) {
	slog.Log(context.Background(), LevelTrace, msg, args...)
}
