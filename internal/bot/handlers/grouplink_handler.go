package handlers

import (
	"context"
	"fmt"

	"github.com/edgard/whatsdex/internal/command"
	"github.com/edgard/whatsdex/internal/message"
)

// NewGroupLinkHandler returns a handler replying with the invite link.
func NewGroupLinkHandler(_ HandlerDeps) command.HandlerFunc {
	return func(ctx context.Context, mc *message.Context) error {
		link, err := mc.Transport.InviteLink(ctx, mc.Msg.ChatID)
		if err != nil {
			return fmt.Errorf("failed to get invite link: %w", err)
		}
		return mc.Reply(ctx, "🔗 "+link)
	}
}

// NewSetDescHandler returns a handler that shows the group description, or
// replaces it with the argument text.
func NewSetDescHandler(_ HandlerDeps) command.HandlerFunc {
	return func(ctx context.Context, mc *message.Context) error {
		if len(mc.Used.Args) == 0 {
			desc, err := mc.Transport.GroupDescription(ctx, mc.Msg.ChatID)
			if err != nil {
				return fmt.Errorf("failed to get group description: %w", err)
			}
			if desc == "" {
				return mc.Reply(ctx, "📝 This group has no description.")
			}
			return mc.Reply(ctx, "📝 "+desc)
		}

		desc := joinArgs(mc.Used.Args)
		if err := mc.Transport.SetGroupDescription(ctx, mc.Msg.ChatID, desc); err != nil {
			return fmt.Errorf("failed to set group description: %w", err)
		}
		return mc.Reply(ctx, "✅ Group description updated.")
	}
}
