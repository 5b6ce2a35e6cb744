package handlers

import (
	"context"
	"fmt"

	"github.com/edgard/whatsdex/internal/command"
	"github.com/edgard/whatsdex/internal/database"
	"github.com/edgard/whatsdex/internal/message"
)

// NewCoinHandler returns a handler reporting the sender's balance.
func NewCoinHandler(deps HandlerDeps) command.HandlerFunc {
	return coinHandler{deps}.Handle
}

type coinHandler struct {
	deps HandlerDeps
}

func (h coinHandler) Handle(ctx context.Context, mc *message.Context) error {
	f := mc.Facts()
	if f.IsOwner || f.IsPremium {
		return mc.Reply(ctx, "💰 Your coins: unlimited")
	}

	var u database.User
	if _, err := h.deps.Store.Get(ctx, database.UserPath(message.User(mc.Msg.SenderID)), &u); err != nil {
		return fmt.Errorf("failed to load balance: %w", err)
	}
	return mc.Reply(ctx, fmt.Sprintf("💰 Your coins: %d", u.Coin))
}
