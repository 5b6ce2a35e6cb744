package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/edgard/whatsdex/internal/command"
	"github.com/edgard/whatsdex/internal/database"
	"github.com/edgard/whatsdex/internal/logger"
	"github.com/edgard/whatsdex/internal/message"
	"github.com/edgard/whatsdex/internal/middleware"
)

var botModes = []string{middleware.ModePublic, middleware.ModeGroup, middleware.ModePrivate, middleware.ModeSelf}

// NewBotModeHandler returns a handler showing or switching the bot mode.
func NewBotModeHandler(deps HandlerDeps) command.HandlerFunc {
	return botModeHandler{deps}.Handle
}

type botModeHandler struct {
	deps HandlerDeps
}

func (h botModeHandler) Handle(ctx context.Context, mc *message.Context) error {
	if len(mc.Used.Args) == 0 {
		st, err := h.deps.Store.Bot(ctx)
		if err != nil {
			return err
		}
		mode := st.Mode
		if mode == "" {
			mode = h.deps.Config.Bot.Mode
		}
		return mc.Reply(ctx, fmt.Sprintf("🤖 Bot mode: %s\nAvailable: %s", mode, strings.Join(botModes, ", ")))
	}

	mode := strings.ToLower(mc.Used.Args[0])
	valid := false
	for _, m := range botModes {
		valid = valid || m == mode
	}
	if !valid {
		return usage(ctx, mc, "["+strings.Join(botModes, "|")+"]")
	}

	if err := h.deps.Store.Update(ctx, database.BotPath, map[string]any{"mode": mode}); err != nil {
		return fmt.Errorf("failed to save bot mode: %w", err)
	}
	logger.FromContext(ctx, h.deps.Logger).InfoContext(ctx, "Bot mode changed", "mode", mode)
	return mc.Reply(ctx, "✅ Bot mode set to "+mode)
}
