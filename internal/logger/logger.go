// Package logger provides structured logging for WhatsDeX.
// It uses Go's slog package with configurable levels and formats.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/edgard/whatsdex/internal/message"
)

// ParseLevel maps a config level name onto a slog level, defaulting to info.
func ParseLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a new slog Logger with the specified level and format.
// If jsonOutput is true, logs will be formatted as JSON, otherwise as text.
func NewLogger(levelStr string, jsonOutput bool) *slog.Logger {
	return newLogger(os.Stdout, levelStr, jsonOutput)
}

func newLogger(w io.Writer, levelStr string, jsonOutput bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(levelStr)}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// HandlerFunc processes one inbound message.
type HandlerFunc func(ctx context.Context, mc *message.Context)

type ctxKey struct{}

// FromContext returns the per-message logger stored by Middleware, or fallback.
func FromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return fallback
}

// Middleware logs the start and end of every inbound message and tags it with
// a request id that downstream components pick up through FromContext.
func Middleware(log *slog.Logger) func(next HandlerFunc) HandlerFunc {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, mc *message.Context) {
			startTime := time.Now()

			logEntry := log.With(
				"request_id", uuid.NewString(),
				"message_id", mc.Msg.ID,
				"chat_id", mc.Msg.ChatID,
				"sender_id", mc.Msg.SenderID,
				"is_group", mc.Msg.IsGroup,
				"text_preview", truncateString(mc.Msg.Text, 50),
			)
			if mc.Msg.Media != message.MediaNone {
				logEntry = logEntry.With("media", string(mc.Msg.Media))
			}

			logEntry.DebugContext(ctx, "Processing message")

			next(context.WithValue(ctx, ctxKey{}, logEntry), mc)

			logEntry.DebugContext(ctx, "Finished processing message", "duration", time.Since(startTime))
		}
	}
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(r[:maxLen-3]) + "..."
}
