package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/edgard/whatsdex/internal/command"
	"github.com/edgard/whatsdex/internal/database"
	"github.com/edgard/whatsdex/internal/message"
)

const setOptionUsage = "[antilink|autokick|antimedia <kind>] [on|off]"

// NewSetOptionHandler returns a handler for the per-group moderation
// toggles. Without arguments it prints the current options.
func NewSetOptionHandler(deps HandlerDeps) command.HandlerFunc {
	return setOptionHandler{deps}.Handle
}

type setOptionHandler struct {
	deps HandlerDeps
}

func (h setOptionHandler) Handle(ctx context.Context, mc *message.Context) error {
	args := mc.Used.Args
	chatID := mc.Msg.ChatID

	if len(args) == 0 {
		g, err := h.deps.Store.Group(ctx, chatID)
		if err != nil {
			return err
		}
		return mc.Reply(ctx, formatOptions(g.Option))
	}

	var patch map[string]any
	var label string
	switch name := strings.ToLower(args[0]); name {
	case "antilink", "autokick":
		if len(args) != 2 {
			return usage(ctx, mc, setOptionUsage)
		}
		on, ok := onOff(args[1])
		if !ok {
			return usage(ctx, mc, setOptionUsage)
		}
		patch = map[string]any{name: on}
		label = fmt.Sprintf("%s %s", name, state(on))
	case "antimedia":
		if len(args) != 3 {
			return usage(ctx, mc, setOptionUsage)
		}
		kind, ok := mediaKind(args[1])
		if !ok {
			return mc.Reply(ctx, fmt.Sprintf("❌ Unknown media kind %q. Use one of: %s", args[1], mediaKindList()))
		}
		on, ok := onOff(args[2])
		if !ok {
			return usage(ctx, mc, setOptionUsage)
		}
		patch = map[string]any{"antimedia": map[string]any{string(kind): on}}
		label = fmt.Sprintf("antimedia %s %s", kind, state(on))
	default:
		return usage(ctx, mc, setOptionUsage)
	}

	if err := h.deps.Store.Update(ctx, database.GroupPath(chatID), map[string]any{"option": patch}); err != nil {
		return err
	}
	return mc.Reply(ctx, "✅ "+label)
}

func formatOptions(o database.GroupOption) string {
	var b strings.Builder
	b.WriteString("⚙️ Group options")
	fmt.Fprintf(&b, "\nantilink: %s", state(o.AntiLink))
	fmt.Fprintf(&b, "\nautokick: %s", state(o.AutoKick))
	for _, k := range message.MediaKinds {
		fmt.Fprintf(&b, "\nantimedia %s: %s", k, state(o.AntiMedia[string(k)]))
	}
	return b.String()
}

func mediaKind(s string) (message.MediaKind, bool) {
	for _, k := range message.MediaKinds {
		if strings.EqualFold(string(k), s) {
			return k, true
		}
	}
	return message.MediaNone, false
}

func mediaKindList() string {
	names := make([]string, len(message.MediaKinds))
	for i, k := range message.MediaKinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

func state(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
