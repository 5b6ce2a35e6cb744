package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/whatsdex/internal/message"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"bogus": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcdefg...", truncateString("abcdefghijklmnop", 10))
	assert.Equal(t, "...", truncateString("abcdef", 2))
	assert.Equal(t, "héllo w...", truncateString("héllo wörld!", 10), "cuts on runes")
}

func TestMiddlewareAttachesRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var inner *slog.Logger
	h := Middleware(log)(func(ctx context.Context, mc *message.Context) {
		inner = FromContext(ctx, nil)
		inner.InfoContext(ctx, "inside")
	})

	mc := message.NewContext(message.Message{ID: "m1", ChatID: "c1", SenderID: "s1", Text: "!ping"}, nil)
	h(context.Background(), mc)

	require.NotNil(t, inner)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	assert.Equal(t, "inside", rec["msg"])
	assert.Equal(t, "m1", rec["message_id"])
	assert.NotEmpty(t, rec["request_id"])
}

func TestFromContextFallback(t *testing.T) {
	t.Parallel()

	fallback := Discard()
	assert.Same(t, fallback, FromContext(context.Background(), fallback))
}

func TestWhatsmeowLevels(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	wl := Whatsmeow(log, "Client", "WARN")
	wl.Infof("dropped %d", 1)
	wl.Sub("Socket").Errorf("kept %s", "x")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "kept x")
	assert.Contains(t, out, "sub=Socket")
}
