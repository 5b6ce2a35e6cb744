package handlers

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/edgard/whatsdex/internal/command"
	"github.com/edgard/whatsdex/internal/database"
	"github.com/edgard/whatsdex/internal/message"
)

// NewAddPremiumHandler returns a handler granting premium. A day count of
// zero, or none, makes it permanent.
func NewAddPremiumHandler(deps HandlerDeps) command.HandlerFunc {
	return addPremiumHandler{deps}.Handle
}

type addPremiumHandler struct {
	deps HandlerDeps
}

func (h addPremiumHandler) Handle(ctx context.Context, mc *message.Context) error {
	users := targets(mc, mc.Used.Args)
	if len(users) != 1 {
		return usage(ctx, mc, "@user [days]")
	}
	u := users[0]

	days := 0
	if rest := withoutNumbers(mc.Used.Args); len(rest) > 0 {
		n, err := strconv.Atoi(rest[0])
		if err != nil || n < 0 {
			return usage(ctx, mc, "@user [days]")
		}
		days = n
	}

	var expiration int64
	if days > 0 {
		expiration = h.deps.now().Add(time.Duration(days) * 24 * time.Hour).UnixMilli()
	}

	if _, err := h.deps.Store.EnsureUser(ctx, u, database.User{Coin: h.deps.Config.Economy.StartCoin}); err != nil {
		return err
	}
	if err := h.deps.Store.Update(ctx, database.UserPath(u), map[string]any{
		"premium":           true,
		"premiumExpiration": expiration,
	}); err != nil {
		return fmt.Errorf("failed to grant premium to %s: %w", u, err)
	}

	if days == 0 {
		return mc.Reply(ctx, fmt.Sprintf("⭐ %s is now premium permanently.", mention(u)))
	}
	return mc.Reply(ctx, fmt.Sprintf("⭐ %s is now premium for %d days.", mention(u), days))
}
