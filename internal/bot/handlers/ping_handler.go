package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/edgard/whatsdex/internal/command"
	"github.com/edgard/whatsdex/internal/message"
)

// NewPingHandler returns a handler for the ping command.
func NewPingHandler(deps HandlerDeps) command.HandlerFunc {
	return pingHandler{deps}.Handle
}

type pingHandler struct {
	deps HandlerDeps
}

func (h pingHandler) Handle(ctx context.Context, mc *message.Context) error {
	if mc.Msg.Timestamp.IsZero() {
		return mc.Reply(ctx, "🏓 Pong!")
	}
	latency := h.deps.now().Sub(mc.Msg.Timestamp)
	if latency < 0 {
		latency = 0
	}
	return mc.Reply(ctx, fmt.Sprintf("🏓 Pong! Response time: %s", latency.Round(time.Millisecond)))
}
