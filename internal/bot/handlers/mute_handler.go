package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/edgard/whatsdex/internal/command"
	"github.com/edgard/whatsdex/internal/logger"
	"github.com/edgard/whatsdex/internal/message"
	"github.com/edgard/whatsdex/internal/middleware"
)

// NewMuteHandler returns a handler that mutes the chat or single members.
// "owner" mode also silences admins and may only be set by an owner.
func NewMuteHandler(deps HandlerDeps) command.HandlerFunc {
	return muteHandler{deps}.Handle
}

type muteHandler struct {
	deps HandlerDeps
}

func (h muteHandler) Handle(ctx context.Context, mc *message.Context) error {
	log := logger.FromContext(ctx, h.deps.Logger).With("handler", "mute")

	rest := withoutNumbers(mc.Used.Args)
	modeArg := ""
	if len(rest) > 0 {
		modeArg = strings.ToLower(rest[0])
	}
	mode, err := middleware.ParseMuteMode(modeArg)
	if err != nil {
		return usage(ctx, mc, "[owner] [@member...]")
	}
	if mode == middleware.MuteOwner && !mc.Facts().IsOwner {
		return mc.Reply(ctx, h.deps.Config.Messages.Owner)
	}

	chatID := mc.Msg.ChatID
	users := targets(mc, mc.Used.Args)
	if len(users) == 0 {
		if err := h.deps.Mutes.Mute(ctx, chatID, "", mode); err != nil {
			return err
		}
		log.InfoContext(ctx, "Chat muted", "chat_id", chatID, "mode", mode)
		return mc.Reply(ctx, fmt.Sprintf("🔇 This group is now muted (%s).", mode))
	}

	var muted []string
	for _, u := range users {
		if h.deps.Config.Owner.IsOwner(u) {
			continue
		}
		if err := h.deps.Mutes.Mute(ctx, chatID, u, mode); err != nil {
			return err
		}
		muted = append(muted, mention(u))
	}
	if len(muted) == 0 {
		return mc.Reply(ctx, "❌ Owners cannot be muted.")
	}
	log.InfoContext(ctx, "Members muted", "chat_id", chatID, "count", len(muted), "mode", mode)
	return mc.Reply(ctx, fmt.Sprintf("🔇 Muted %s.", strings.Join(muted, ", ")))
}

// NewUnmuteHandler returns a handler lifting chat or member mutes.
func NewUnmuteHandler(deps HandlerDeps) command.HandlerFunc {
	return func(ctx context.Context, mc *message.Context) error {
		chatID := mc.Msg.ChatID
		users := targets(mc, mc.Used.Args)
		if len(users) == 0 {
			if mode, ok := deps.Mutes.Lookup(chatID, ""); ok && mode == middleware.MuteOwner && !mc.Facts().IsOwner {
				return mc.Reply(ctx, deps.Config.Messages.Owner)
			}
			if err := deps.Mutes.Unmute(ctx, chatID, ""); err != nil {
				return err
			}
			return mc.Reply(ctx, "🔊 This group is no longer muted.")
		}

		names := make([]string, 0, len(users))
		for _, u := range users {
			if err := deps.Mutes.Unmute(ctx, chatID, u); err != nil {
				return err
			}
			names = append(names, mention(u))
		}
		return mc.Reply(ctx, fmt.Sprintf("🔊 Unmuted %s.", strings.Join(names, ", ")))
	}
}
