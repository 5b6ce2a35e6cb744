package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/edgard/whatsdex/internal/command"
	"github.com/edgard/whatsdex/internal/message"
)

// NewWarningsHandler returns a handler showing warning counts. Without a
// target it reports the sender's own count.
func NewWarningsHandler(deps HandlerDeps) command.HandlerFunc {
	return func(ctx context.Context, mc *message.Context) error {
		users := targets(mc, mc.Used.Args)
		if len(users) == 0 {
			users = []string{message.User(mc.Msg.SenderID)}
		}

		lines := make([]string, 0, len(users))
		for _, u := range users {
			n, err := deps.Store.Warnings(ctx, mc.Msg.ChatID, u)
			if err != nil {
				return err
			}
			lines = append(lines, fmt.Sprintf("⚠️ %s: %d/%d", mention(u), n, deps.Config.Moderation.MaxWarnings))
		}
		return mc.Reply(ctx, strings.Join(lines, "\n"))
	}
}

// NewResetWarnHandler returns a handler clearing warning counts.
func NewResetWarnHandler(deps HandlerDeps) command.HandlerFunc {
	return func(ctx context.Context, mc *message.Context) error {
		users := targets(mc, mc.Used.Args)
		if len(users) == 0 {
			return usage(ctx, mc, "@member...")
		}
		names := make([]string, 0, len(users))
		for _, u := range users {
			if err := deps.Store.ResetWarnings(ctx, mc.Msg.ChatID, u); err != nil {
				return err
			}
			names = append(names, mention(u))
		}
		return mc.Reply(ctx, fmt.Sprintf("✅ Warnings cleared for %s.", strings.Join(names, ", ")))
	}
}
