// Package middleware implements the ordered guard chain every inbound message
// passes through, plus the shared cooldown and mute state guards consult.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/edgard/whatsdex/internal/logger"
	"github.com/edgard/whatsdex/internal/message"
)

// CheckFunc returns false to stop processing. An error also stops it.
type CheckFunc func(ctx context.Context, mc *message.Context) (bool, error)

// Guard is a named check in the chain.
type Guard struct {
	Name  string
	Check CheckFunc
}

// Chain runs guards in a fixed order and fails closed.
type Chain struct {
	guards []Guard
	log    *slog.Logger
}

// NewChain builds a chain. The order of guards is the execution order.
func NewChain(log *slog.Logger, guards ...Guard) *Chain {
	if log == nil {
		log = logger.Discard()
	}
	return &Chain{
		guards: append([]Guard(nil), guards...),
		log:    log.With("component", "guard_chain"),
	}
}

// Names returns the guard names in execution order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.guards))
	for i, g := range c.guards {
		names[i] = g.Name
	}
	return names
}

// Run reports whether mc may proceed to dispatch. The first guard that
// returns false, errors, or panics stops the chain.
func (c *Chain) Run(ctx context.Context, mc *message.Context) bool {
	log := logger.FromContext(ctx, c.log)

	if !mc.Resolved() {
		log.ErrorContext(ctx, "Role facts not resolved before guard chain, blocking message", "message_id", mc.Msg.ID)
		return false
	}

	for _, g := range c.guards {
		ok, err := runGuard(ctx, g, mc)
		if err != nil {
			log.ErrorContext(ctx, "Guard failed, blocking message",
				"guard", g.Name,
				"chat_id", mc.Msg.ChatID,
				"sender_id", mc.Msg.SenderID,
				"message_id", mc.Msg.ID,
				"error", err)
			return false
		}
		if !ok {
			log.DebugContext(ctx, "Message blocked by guard", "guard", g.Name)
			return false
		}
	}
	return true
}

func runGuard(ctx context.Context, g Guard, mc *message.Context) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = fmt.Errorf("guard %s panicked: %v\n%s", g.Name, r, debug.Stack())
		}
	}()
	return g.Check(ctx, mc)
}
