package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/edgard/whatsdex/internal/command"
	"github.com/edgard/whatsdex/internal/logger"
	"github.com/edgard/whatsdex/internal/message"
)

// NewAddHandler returns a handler adding phone numbers to the group.
func NewAddHandler(deps HandlerDeps) command.HandlerFunc {
	return func(ctx context.Context, mc *message.Context) error {
		users := targets(mc, mc.Used.Args)
		if len(users) == 0 {
			return usage(ctx, mc, "<number...>")
		}
		if err := mc.Transport.Add(ctx, mc.Msg.ChatID, users...); err != nil {
			return fmt.Errorf("failed to add members: %w", err)
		}
		logger.FromContext(ctx, deps.Logger).InfoContext(ctx, "Members added", "chat_id", mc.Msg.ChatID, "count", len(users))

		names := make([]string, len(users))
		for i, u := range users {
			names[i] = mention(u)
		}
		return mc.Reply(ctx, fmt.Sprintf("➕ Added %s.", strings.Join(names, ", ")))
	}
}
