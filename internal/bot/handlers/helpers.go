package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/edgard/whatsdex/internal/message"
)

// targets collects the users a command acts on: mentions first, then the
// quoted sender, then numeric arguments. Results are bare user IDs without
// duplicates.
func targets(mc *message.Context, args []string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(id string) {
		u := message.User(id)
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		out = append(out, u)
	}

	for _, m := range mc.Msg.Mentions {
		add(m)
	}
	add(mc.Msg.QuotedSender)
	for _, a := range args {
		if n, ok := number(a); ok {
			add(n)
		}
	}
	return out
}

// number extracts a phone number from "@628123", "+62 812-3" style tokens.
// Tokens shorter than five digits are not treated as numbers.
func number(s string) (string, bool) {
	s = strings.TrimLeft(s, "@+")
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == ' ':
		default:
			return "", false
		}
	}
	if b.Len() < 5 {
		return "", false
	}
	return b.String(), true
}

// withoutNumbers drops argument tokens that name users.
func withoutNumbers(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if _, ok := number(a); !ok {
			out = append(out, a)
		}
	}
	return out
}

// usage replies with the correct invocation, echoing the prefix and command
// token the sender typed.
func usage(ctx context.Context, mc *message.Context, args string) error {
	return mc.Reply(ctx, fmt.Sprintf("Usage: %s%s %s", mc.Used.Prefix, mc.Used.Command, args))
}

func mention(id string) string {
	return "@" + message.User(id)
}

func onOff(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "on", "enable", "true", "1":
		return true, true
	case "off", "disable", "false", "0":
		return false, true
	}
	return false, false
}

func joinArgs(args []string) string {
	return strings.Join(args, " ")
}
