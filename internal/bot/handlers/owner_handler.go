package handlers

import (
	"context"
	"strings"

	"github.com/edgard/whatsdex/internal/command"
	"github.com/edgard/whatsdex/internal/message"
)

// NewOwnerHandler returns a handler that shares the owner contacts. It is
// the one command banned users can still run.
func NewOwnerHandler(deps HandlerDeps) command.HandlerFunc {
	return func(ctx context.Context, mc *message.Context) error {
		var b strings.Builder
		b.WriteString("👑 Bot owner:")
		for _, id := range deps.Config.Owner.IDs {
			b.WriteString("\nhttps://wa.me/" + id)
		}
		return mc.Reply(ctx, b.String())
	}
}
