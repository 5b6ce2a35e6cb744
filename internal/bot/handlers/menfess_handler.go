package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/edgard/whatsdex/internal/command"
	"github.com/edgard/whatsdex/internal/database"
	"github.com/edgard/whatsdex/internal/logger"
	"github.com/edgard/whatsdex/internal/message"
)

const menfessUsage = "<number> <text> | reply <id> <text>"

// NewMenfessHandler returns the anonymous message relay. A thread is stored
// at menfess.<id> so the recipient can answer without learning the sender.
func NewMenfessHandler(deps HandlerDeps) command.HandlerFunc {
	return menfessHandler{deps}.Handle
}

type menfessHandler struct {
	deps HandlerDeps
}

func (h menfessHandler) Handle(ctx context.Context, mc *message.Context) error {
	args := mc.Used.Args
	if len(args) >= 3 && strings.EqualFold(args[0], "reply") {
		return h.reply(ctx, mc, args[1], joinArgs(args[2:]))
	}
	if len(args) < 2 {
		return usage(ctx, mc, menfessUsage)
	}
	to, ok := number(args[0])
	if !ok {
		return usage(ctx, mc, menfessUsage)
	}
	from := message.User(mc.Msg.SenderID)
	if to == from {
		return mc.Reply(ctx, "❌ You cannot send a menfess to yourself.")
	}

	id := strings.SplitN(uuid.NewString(), "-", 2)[0]
	if err := h.deps.Store.Set(ctx, database.MenfessPath(id), database.Menfess{From: from, To: to}); err != nil {
		return fmt.Errorf("failed to save menfess thread: %w", err)
	}

	text := fmt.Sprintf("📨 You received an anonymous message:\n\n%s\n\nAnswer with %smenfess reply %s <text>",
		joinArgs(args[1:]), h.deps.Config.Bot.DisplayPrefix, id)
	if err := mc.Transport.SendText(ctx, to, text); err != nil {
		return fmt.Errorf("failed to deliver menfess: %w", err)
	}
	logger.FromContext(ctx, h.deps.Logger).InfoContext(ctx, "Menfess delivered", "thread_id", id)
	return mc.Reply(ctx, fmt.Sprintf("✅ Message delivered. Thread id: %s", id))
}

// reply relays an answer back along an existing thread. Either side may
// answer; the other side receives it.
func (h menfessHandler) reply(ctx context.Context, mc *message.Context, id, text string) error {
	var thread database.Menfess
	found, err := h.deps.Store.Get(ctx, database.MenfessPath(id), &thread)
	if err != nil {
		return err
	}
	sender := message.User(mc.Msg.SenderID)
	if !found || (sender != thread.From && sender != thread.To) {
		return mc.Reply(ctx, fmt.Sprintf("❌ No menfess thread %q.", id))
	}

	to := thread.From
	if sender == thread.From {
		to = thread.To
	}
	out := fmt.Sprintf("📨 Menfess reply [%s]:\n\n%s", id, text)
	if err := mc.Transport.SendText(ctx, to, out); err != nil {
		return fmt.Errorf("failed to deliver menfess reply: %w", err)
	}
	return mc.Reply(ctx, "✅ Reply delivered.")
}
