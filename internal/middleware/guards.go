package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mvdan.cc/xurls/v2"

	"github.com/edgard/whatsdex/internal/config"
	"github.com/edgard/whatsdex/internal/database"
	"github.com/edgard/whatsdex/internal/logger"
	"github.com/edgard/whatsdex/internal/message"
)

// Guard names, in chain order.
const (
	GuardBotMode   = "bot_mode"
	GuardMute      = "mute"
	GuardNightMode = "night_mode"
	GuardMalicious = "malicious_content"
	GuardAntiMedia = "anti_media"
	GuardAntiLink  = "anti_link"
	GuardBanned    = "banned"
	GuardRateLimit = "rate_limit"
)

// Bot modes stored in the bot document.
const (
	ModePublic  = "public"
	ModeGroup   = "group"
	ModePrivate = "private"
	ModeSelf    = "self"
)

// Deps are the collaborators and shared state the guards consult.
type Deps struct {
	Logger   *slog.Logger
	Config   *config.Config
	Store    database.Store
	Mutes    *MuteRegistry
	Cooldown *Cooldown
	Safety   SafetyAnalyzer
	Now      func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// DefaultGuards returns every guard in execution order.
func DefaultGuards(deps Deps) []Guard {
	return []Guard{
		BotMode(deps),
		Mute(deps),
		NightMode(deps),
		Malicious(deps),
		AntiMedia(deps),
		AntiLink(deps),
		Banned(deps),
		RateLimit(deps),
	}
}

// BotMode restricts where the bot answers: everywhere, groups only,
// private chats only, or the owner only.
func BotMode(deps Deps) Guard {
	return Guard{Name: GuardBotMode, Check: func(ctx context.Context, mc *message.Context) (bool, error) {
		f := mc.Facts()
		if f.IsOwner {
			return true, nil
		}

		state, err := deps.Store.Bot(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to load bot mode: %w", err)
		}
		mode := state.Mode
		if mode == "" {
			mode = deps.Config.Bot.Mode
		}

		switch mode {
		case ModeSelf:
			return false, nil
		case ModeGroup:
			return f.IsGroup || f.IsPremium, nil
		case ModePrivate:
			return !f.IsGroup || f.IsPremium, nil
		}
		return true, nil
	}}
}

// Mute blocks muted chats and senders. Owners always pass; admins pass
// unless the mute is owner-only.
func Mute(deps Deps) Guard {
	return Guard{Name: GuardMute, Check: func(_ context.Context, mc *message.Context) (bool, error) {
		f := mc.Facts()
		if f.IsOwner {
			return true, nil
		}
		mode, muted := deps.Mutes.Lookup(mc.Msg.ChatID, message.User(mc.Msg.SenderID))
		if !muted {
			return true, nil
		}
		if mode == MuteAll && f.IsAdmin {
			return true, nil
		}
		return false, nil
	}}
}

// NightMode blocks everyone but owners and premium users inside the
// configured local hours.
func NightMode(deps Deps) Guard {
	cfg := deps.Config.NightMode
	loc := cfg.Location()
	return Guard{Name: GuardNightMode, Check: func(_ context.Context, mc *message.Context) (bool, error) {
		if !cfg.Enabled {
			return true, nil
		}
		f := mc.Facts()
		if f.IsOwner || f.IsPremium {
			return true, nil
		}
		return !InWindow(deps.now().In(loc).Hour(), cfg.StartHour, cfg.EndHour), nil
	}}
}

// InWindow reports whether hour falls in [start, end), wrapping past midnight.
func InWindow(hour, start, end int) bool {
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

// Malicious runs the safety analyzer. A flagged sender has the message
// deleted, is blocked on the platform, is banned, and the owners hear about it.
func Malicious(deps Deps) Guard {
	return Guard{Name: GuardMalicious, Check: func(ctx context.Context, mc *message.Context) (bool, error) {
		if !deps.Config.Moderation.Malicious || deps.Safety == nil {
			return true, nil
		}
		f := mc.Facts()
		if f.IsOwner || mc.Msg.FromMe {
			return true, nil
		}

		verdict, err := deps.Safety.Analyze(ctx, mc.Msg)
		if err != nil {
			return false, fmt.Errorf("safety analysis failed: %w", err)
		}
		if !verdict.Malicious {
			return true, nil
		}

		log := logger.FromContext(ctx, deps.Logger)
		log.WarnContext(ctx, "Malicious message detected", "sender_id", mc.Msg.SenderID, "reason", verdict.Reason)

		// Each step runs regardless of the others failing.
		var errs []error
		if err := mc.Transport.DeleteMessage(ctx, mc.Msg); err != nil {
			errs = append(errs, fmt.Errorf("delete: %w", err))
		}
		if err := mc.Transport.Block(ctx, mc.Msg.SenderID); err != nil {
			errs = append(errs, fmt.Errorf("block: %w", err))
		}
		if err := deps.Store.Update(ctx, database.UserPath(message.User(mc.Msg.SenderID)), map[string]any{"banned": true}); err != nil {
			errs = append(errs, fmt.Errorf("ban: %w", err))
		}
		if err := mc.Reply(ctx, deps.Config.Messages.Malicious); err != nil {
			errs = append(errs, fmt.Errorf("reply: %w", err))
		}
		report := fmt.Sprintf("🚨 Banned %s in %s: %s", message.User(mc.Msg.SenderID), mc.Msg.ChatID, verdict.Reason)
		for _, owner := range deps.Config.Owner.IDs {
			if err := mc.Transport.SendText(ctx, owner, report); err != nil {
				errs = append(errs, fmt.Errorf("notify owner %s: %w", owner, err))
			}
		}
		if err := errors.Join(errs...); err != nil {
			log.ErrorContext(ctx, "Malicious message handling incomplete", "error", err)
		}
		return false, nil
	}}
}

// AntiMedia removes media kinds a group has switched off.
func AntiMedia(deps Deps) Guard {
	return Guard{Name: GuardAntiMedia, Check: func(ctx context.Context, mc *message.Context) (bool, error) {
		if mc.Msg.Media == message.MediaNone || !moderatable(mc) {
			return true, nil
		}
		group, err := deps.Store.Group(ctx, mc.Msg.ChatID)
		if err != nil {
			return false, fmt.Errorf("failed to load group options: %w", err)
		}
		if !group.Option.AntiMedia[string(mc.Msg.Media)] {
			return true, nil
		}
		kind := string(mc.Msg.Media)
		return false, punish(ctx, deps, mc, group.Option.AutoKick, func(n, limit int) string {
			return fmt.Sprintf(deps.Config.Messages.AntiMedia, strings.ToUpper(kind[:1])+kind[1:], n, limit)
		})
	}}
}

// AntiLink removes messages carrying URLs in groups that forbid them.
func AntiLink(deps Deps) Guard {
	urls := xurls.Relaxed()
	return Guard{Name: GuardAntiLink, Check: func(ctx context.Context, mc *message.Context) (bool, error) {
		if mc.Msg.Text == "" || !moderatable(mc) {
			return true, nil
		}
		group, err := deps.Store.Group(ctx, mc.Msg.ChatID)
		if err != nil {
			return false, fmt.Errorf("failed to load group options: %w", err)
		}
		if !group.Option.AntiLink || !urls.MatchString(mc.Msg.Text) {
			return true, nil
		}
		return false, punish(ctx, deps, mc, group.Option.AutoKick, func(n, limit int) string {
			return fmt.Sprintf(deps.Config.Messages.AntiLink, n, limit)
		})
	}}
}

// moderatable is true for group messages from ordinary members when the bot
// has the admin rights needed to act.
func moderatable(mc *message.Context) bool {
	f := mc.Facts()
	return f.IsGroup && !f.IsOwner && !f.IsAdmin && f.IsBotAdmin && !mc.Msg.FromMe
}

// punish deletes the offending message, then kicks the sender outright when
// autoKick is set, otherwise adds a warning and kicks once the limit is hit.
func punish(ctx context.Context, deps Deps, mc *message.Context, autoKick bool, notice func(n, limit int) string) error {
	log := logger.FromContext(ctx, deps.Logger)
	groupID, senderID := mc.Msg.ChatID, message.User(mc.Msg.SenderID)

	if err := mc.Transport.DeleteMessage(ctx, mc.Msg); err != nil {
		log.WarnContext(ctx, "Failed to delete moderated message", "error", err)
	}

	if autoKick {
		return kick(ctx, deps, mc)
	}

	maxWarnings := deps.Config.Moderation.MaxWarnings
	count, err := deps.Store.IncrementWarning(ctx, groupID, senderID)
	if err != nil {
		return err
	}
	log.InfoContext(ctx, "Warning issued", "group_id", groupID, "sender_id", senderID, "count", count, "max", maxWarnings)

	if count >= maxWarnings {
		if err := kick(ctx, deps, mc); err != nil {
			return err
		}
		return deps.Store.ResetWarnings(ctx, groupID, senderID)
	}
	if err := mc.Reply(ctx, notice(count, maxWarnings)); err != nil {
		log.WarnContext(ctx, "Failed to send warning notice", "error", err)
	}
	return nil
}

func kick(ctx context.Context, deps Deps, mc *message.Context) error {
	if err := mc.Transport.Kick(ctx, mc.Msg.ChatID, mc.Msg.SenderID); err != nil {
		return fmt.Errorf("failed to kick %s: %w", mc.Msg.SenderID, err)
	}
	text := fmt.Sprintf(deps.Config.Messages.Kicked, "@"+message.User(mc.Msg.SenderID))
	if err := mc.Transport.SendText(ctx, mc.Msg.ChatID, text); err != nil {
		logger.FromContext(ctx, deps.Logger).WarnContext(ctx, "Failed to announce kick", "error", err)
	}
	return nil
}

// Banned keeps banned senders away from every command except the owner
// contact card.
func Banned(deps Deps) Guard {
	return Guard{Name: GuardBanned, Check: func(ctx context.Context, mc *message.Context) (bool, error) {
		f := mc.Facts()
		if !f.IsBanned || f.IsOwner || !mc.Used.IsCommand() {
			return true, nil
		}
		if strings.EqualFold(mc.Used.Command, "owner") {
			return true, nil
		}
		logger.FromContext(ctx, deps.Logger).DebugContext(ctx, "Banned sender blocked", "sender_id", mc.Msg.SenderID)
		return false, nil
	}}
}

// RateLimit enforces the per-sender cooldown on registered commands. Text
// that merely starts with a prefix character is not limited. Owners and
// premium users are exempt.
func RateLimit(deps Deps) Guard {
	return Guard{Name: GuardRateLimit, Check: func(ctx context.Context, mc *message.Context) (bool, error) {
		if !mc.Used.Known {
			return true, nil
		}
		f := mc.Facts()
		if f.IsOwner || f.IsPremium {
			return true, nil
		}
		if deps.Cooldown.Allow(mc.Msg.SenderID) {
			return true, nil
		}
		if err := mc.Reply(ctx, cooldownNotice(deps.Config.Messages.Cooldown, deps.Cooldown.Remaining(mc.Msg.SenderID))); err != nil {
			logger.FromContext(ctx, deps.Logger).WarnContext(ctx, "Failed to send cooldown notice", "error", err)
		}
		return false, nil
	}}
}

// cooldownNotice appends the wait time in whole seconds, at least one.
func cooldownNotice(text string, wait time.Duration) string {
	if wait <= 0 {
		return text
	}
	secs := max(int64(wait.Round(time.Second)/time.Second), 1)
	return fmt.Sprintf("%s (%ds)", text, secs)
}
