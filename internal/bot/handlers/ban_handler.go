package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/edgard/whatsdex/internal/command"
	"github.com/edgard/whatsdex/internal/database"
	"github.com/edgard/whatsdex/internal/logger"
	"github.com/edgard/whatsdex/internal/message"
)

// NewBanHandler returns the ban command when banned is true and the unban
// command otherwise.
func NewBanHandler(deps HandlerDeps, banned bool) command.HandlerFunc {
	return banHandler{deps: deps, banned: banned}.Handle
}

type banHandler struct {
	deps   HandlerDeps
	banned bool
}

func (h banHandler) Handle(ctx context.Context, mc *message.Context) error {
	log := logger.FromContext(ctx, h.deps.Logger).With("handler", "ban", "banned", h.banned)

	users := targets(mc, mc.Used.Args)
	if len(users) == 0 {
		return usage(ctx, mc, "@user...")
	}

	var names []string
	for _, u := range users {
		if h.banned && h.deps.Config.Owner.IsOwner(u) {
			continue
		}
		if _, err := h.deps.Store.EnsureUser(ctx, u, database.User{Coin: h.deps.Config.Economy.StartCoin}); err != nil {
			return err
		}
		if err := h.deps.Store.Update(ctx, database.UserPath(u), map[string]any{"banned": h.banned}); err != nil {
			return fmt.Errorf("failed to update ban for %s: %w", u, err)
		}
		names = append(names, mention(u))
	}
	if len(names) == 0 {
		return mc.Reply(ctx, "❌ Owners cannot be banned.")
	}
	log.InfoContext(ctx, "Ban state changed", "count", len(names))

	if h.banned {
		return mc.Reply(ctx, fmt.Sprintf("⛔ Banned %s.", strings.Join(names, ", ")))
	}
	return mc.Reply(ctx, fmt.Sprintf("✅ Unbanned %s.", strings.Join(names, ", ")))
}
