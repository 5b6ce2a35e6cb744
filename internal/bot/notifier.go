package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/edgard/whatsdex/internal/command"
	"github.com/edgard/whatsdex/internal/config"
	"github.com/edgard/whatsdex/internal/database"
	"github.com/edgard/whatsdex/internal/logger"
	"github.com/edgard/whatsdex/internal/message"
	"github.com/edgard/whatsdex/internal/permission"
)

// NoticeInterval is how often a sender gets the full text for one denial
// reason. Inside the interval the bot only reacts.
const NoticeInterval = 24 * time.Hour

// ReasonEmoji is the reaction sent instead of a repeated denial text.
var ReasonEmoji = map[permission.Reason]string{
	permission.ReasonAdmin:    "🛡️",
	permission.ReasonBotAdmin: "🤖",
	permission.ReasonCoin:     "💰",
	permission.ReasonGroup:    "👥",
	permission.ReasonOwner:    "👑",
	permission.ReasonPremium:  "💎",
	permission.ReasonPrivate:  "📩",
	permission.ReasonRestrict: "🚫",
}

// Notifier sends denial and failure notices, throttling repeated denial
// texts per sender and reason.
type Notifier struct {
	log   *slog.Logger
	cfg   *config.Config
	store database.Store
	now   func() time.Time
}

// NewNotifier returns a notifier persisting throttle state in store.
func NewNotifier(log *slog.Logger, cfg *config.Config, store database.Store) *Notifier {
	return &Notifier{
		log:   log.With("component", "notifier"),
		cfg:   cfg,
		store: store,
		now:   time.Now,
	}
}

// DenialText returns the configured text for reason.
func DenialText(m config.MessagesConfig, reason permission.Reason) string {
	switch reason {
	case permission.ReasonAdmin:
		return m.Admin
	case permission.ReasonBotAdmin:
		return m.BotAdmin
	case permission.ReasonCoin:
		return m.Coin
	case permission.ReasonGroup:
		return m.Group
	case permission.ReasonOwner:
		return m.Owner
	case permission.ReasonPremium:
		return m.Premium
	case permission.ReasonPrivate:
		return m.Private
	case permission.ReasonRestrict:
		return m.Restrict
	}
	return ""
}

func (n *Notifier) NotifyDenied(ctx context.Context, mc *message.Context, reason permission.Reason) {
	log := logger.FromContext(ctx, n.log)
	userID := message.User(mc.Msg.SenderID)
	path := database.UserPath(userID)

	var user database.User
	if _, err := n.store.Get(ctx, path, &user); err != nil {
		log.WarnContext(ctx, "Failed to load notice throttle state", "error", err)
	}

	now := n.now()
	last := time.UnixMilli(user.LastSentMsg[string(reason)])
	if user.LastSentMsg[string(reason)] > 0 && now.Sub(last) < NoticeInterval {
		if emoji, ok := ReasonEmoji[reason]; ok {
			if err := mc.React(ctx, emoji); err != nil {
				log.WarnContext(ctx, "Failed to react to denied command", "reason", reason, "error", err)
			}
		}
		return
	}

	text := DenialText(n.cfg.Messages, reason)
	if text == "" {
		return
	}
	if err := mc.Reply(ctx, text); err != nil {
		log.WarnContext(ctx, "Failed to send denial notice", "reason", reason, "error", err)
		return
	}
	patch := map[string]any{"lastSentMsg": map[string]any{string(reason): now.UnixMilli()}}
	if err := n.store.Update(ctx, path, patch); err != nil {
		log.WarnContext(ctx, "Failed to save notice throttle state", "error", err)
	}
}

// NotifyFailure apologizes to the sender and, when enabled, reports the
// error to every owner.
func (n *Notifier) NotifyFailure(ctx context.Context, mc *message.Context, desc *command.Descriptor, err error) {
	log := logger.FromContext(ctx, n.log)
	if replyErr := mc.Reply(ctx, n.cfg.Messages.GeneralError); replyErr != nil {
		log.WarnContext(ctx, "Failed to send error notice", "error", replyErr)
	}
	if !n.cfg.Owner.ReportErrors || desc == nil {
		return
	}
	report := fmt.Sprintf("⚠️ Command %s failed for %s in %s:\n%v", desc.Name, message.User(mc.Msg.SenderID), mc.Msg.ChatID, err)
	for _, owner := range n.cfg.Owner.IDs {
		if sendErr := mc.Transport.SendText(ctx, owner, report); sendErr != nil {
			log.WarnContext(ctx, "Failed to report error to owner", "owner", owner, "error", sendErr)
		}
	}
}
