package handlers

import (
	"context"
	"fmt"
	"strconv"

	"github.com/edgard/whatsdex/internal/command"
	"github.com/edgard/whatsdex/internal/database"
	"github.com/edgard/whatsdex/internal/message"
)

// NewAddCoinHandler returns a handler crediting coins. A negative amount
// debits; balances never go below zero.
func NewAddCoinHandler(deps HandlerDeps) command.HandlerFunc {
	return func(ctx context.Context, mc *message.Context) error {
		users := targets(mc, mc.Used.Args)
		rest := withoutNumbers(mc.Used.Args)
		if len(users) != 1 || len(rest) != 1 {
			return usage(ctx, mc, "@user <amount>")
		}
		amount, err := strconv.ParseInt(rest[0], 10, 64)
		if err != nil || amount == 0 {
			return usage(ctx, mc, "@user <amount>")
		}

		u := users[0]
		if _, err := deps.Store.EnsureUser(ctx, u, database.User{Coin: deps.Config.Economy.StartCoin}); err != nil {
			return err
		}
		balance, err := deps.Store.AddCoin(ctx, u, amount)
		if err != nil {
			return err
		}
		return mc.Reply(ctx, fmt.Sprintf("💰 %s now has %d coins.", mention(u), balance))
	}
}
