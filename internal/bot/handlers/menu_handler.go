package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/edgard/whatsdex/internal/command"
	"github.com/edgard/whatsdex/internal/message"
)

// NewMenuHandler returns a handler listing the registered commands.
func NewMenuHandler(deps HandlerDeps) command.HandlerFunc {
	return menuHandler{deps}.Handle
}

type menuHandler struct {
	deps HandlerDeps
}

func (h menuHandler) Handle(ctx context.Context, mc *message.Context) error {
	prefix := h.deps.Config.Bot.DisplayPrefix

	if len(mc.Used.Args) > 0 {
		d, ok := h.deps.Registry.Resolve(mc.Used.Args[0])
		if !ok {
			return mc.Reply(ctx, fmt.Sprintf("❌ Unknown command %q.", mc.Used.Args[0]))
		}
		return mc.Reply(ctx, describe(prefix, d))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n", h.deps.Config.Bot.Name)
	cats, byCat := h.deps.Registry.Categories()
	for _, cat := range cats {
		fmt.Fprintf(&b, "\n*%s*\n", strings.ToUpper(cat))
		for _, d := range byCat[cat] {
			fmt.Fprintf(&b, "➤ %s%s", prefix, d.Name)
			if d.Description != "" {
				fmt.Fprintf(&b, " - %s", d.Description)
			}
			b.WriteByte('\n')
		}
	}
	return mc.Reply(ctx, strings.TrimRight(b.String(), "\n"))
}

func describe(prefix string, d *command.Descriptor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s%s*", prefix, d.Name)
	if d.Description != "" {
		fmt.Fprintf(&b, "\n%s", d.Description)
	}
	if d.Usage != "" {
		fmt.Fprintf(&b, "\nUsage: %s%s %s", prefix, d.Name, d.Usage)
	}
	if len(d.Aliases) > 0 {
		fmt.Fprintf(&b, "\nAliases: %s", strings.Join(d.Aliases, ", "))
	}
	if req := requirements(d); req != "" {
		fmt.Fprintf(&b, "\nRequires: %s", req)
	}
	return b.String()
}

func requirements(d *command.Descriptor) string {
	p := d.Permissions
	var out []string
	for _, r := range []struct {
		on   bool
		name string
	}{
		{p.Owner, "owner"},
		{p.Admin, "admin"},
		{p.BotAdmin, "bot admin"},
		{p.Group, "group"},
		{p.Private, "private chat"},
		{p.Premium, "premium"},
	} {
		if r.on {
			out = append(out, r.name)
		}
	}
	if p.Coin > 0 {
		out = append(out, fmt.Sprintf("%d coin", p.Coin))
	}
	return strings.Join(out, ", ")
}
