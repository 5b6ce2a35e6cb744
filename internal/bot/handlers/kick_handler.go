package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/edgard/whatsdex/internal/command"
	"github.com/edgard/whatsdex/internal/logger"
	"github.com/edgard/whatsdex/internal/message"
)

// NewKickHandler returns a handler removing members from the group. Owners
// and the bot itself are never kicked.
func NewKickHandler(deps HandlerDeps) command.HandlerFunc {
	return kickHandler{deps}.Handle
}

type kickHandler struct {
	deps HandlerDeps
}

func (h kickHandler) Handle(ctx context.Context, mc *message.Context) error {
	log := logger.FromContext(ctx, h.deps.Logger).With("handler", "kick")

	users := targets(mc, mc.Used.Args)
	if len(users) == 0 {
		return usage(ctx, mc, "@member...")
	}

	self := message.User(mc.Transport.SelfID())
	var kick []string
	for _, u := range users {
		if u == self || h.deps.Config.Owner.IsOwner(u) {
			continue
		}
		kick = append(kick, u)
	}
	if len(kick) == 0 {
		return mc.Reply(ctx, "❌ Nobody to kick.")
	}

	if err := mc.Transport.Kick(ctx, mc.Msg.ChatID, kick...); err != nil {
		return fmt.Errorf("failed to kick members: %w", err)
	}
	log.InfoContext(ctx, "Members kicked", "chat_id", mc.Msg.ChatID, "count", len(kick))

	names := make([]string, len(kick))
	for i, u := range kick {
		names[i] = mention(u)
	}
	return mc.Reply(ctx, fmt.Sprintf("👢 Kicked %s.", strings.Join(names, ", ")))
}
