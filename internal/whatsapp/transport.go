package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	"github.com/edgard/whatsdex/internal/message"
)

var errNoRaw = errors.New("message has no whatsmeow event attached")

func rawEvent(msg message.Message) (*events.Message, error) {
	evt, ok := msg.Raw.(*events.Message)
	if !ok || evt == nil {
		return nil, errNoRaw
	}
	return evt, nil
}

func (c *Client) send(ctx context.Context, to types.JID, m *waE2E.Message) error {
	if _, err := c.wa.SendMessage(ctx, to, m); err != nil {
		return fmt.Errorf("failed to send message to %s: %w", to, err)
	}
	return nil
}

// Reply sends text to the chat of the original message, quoting it.
func (c *Client) Reply(ctx context.Context, to message.Message, text string) error {
	evt, err := rawEvent(to)
	if err != nil {
		return c.SendText(ctx, to.ChatID, text)
	}
	return c.send(ctx, evt.Info.Chat, &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text: proto.String(text),
			ContextInfo: &waE2E.ContextInfo{
				StanzaID:      proto.String(evt.Info.ID),
				Participant:   proto.String(evt.Info.Sender.ToNonAD().String()),
				QuotedMessage: evt.Message,
			},
		},
	})
}

// SendText sends a plain message. chatID may be a bare user number.
func (c *Client) SendText(ctx context.Context, chatID, text string) error {
	jid, err := ParseJID(chatID)
	if err != nil {
		return err
	}
	return c.send(ctx, jid, &waE2E.Message{Conversation: proto.String(text)})
}

// SendButtons renders buttons as a command list; interactive buttons are
// not delivered to regular accounts.
func (c *Client) SendButtons(ctx context.Context, to message.Message, text string, buttons []message.Button) error {
	return c.Reply(ctx, to, RenderButtons(text, buttons))
}

// RenderButtons formats buttons as a plain-text list under text.
func RenderButtons(text string, buttons []message.Button) string {
	if len(buttons) == 0 {
		return text
	}
	var sb strings.Builder
	sb.WriteString(text)
	sb.WriteString("\n")
	for _, b := range buttons {
		sb.WriteString("\n➤ ")
		sb.WriteString(b.Command)
		if b.Label != "" && b.Label != b.Command {
			sb.WriteString(" (")
			sb.WriteString(b.Label)
			sb.WriteString(")")
		}
	}
	return sb.String()
}

func (c *Client) React(ctx context.Context, to message.Message, emoji string) error {
	evt, err := rawEvent(to)
	if err != nil {
		return err
	}
	return c.send(ctx, evt.Info.Chat, c.wa.BuildReaction(evt.Info.Chat, evt.Info.Sender, evt.Info.ID, emoji))
}

// DeleteMessage revokes msg for everyone. In groups the bot must be admin
// to revoke other members' messages.
func (c *Client) DeleteMessage(ctx context.Context, msg message.Message) error {
	evt, err := rawEvent(msg)
	if err != nil {
		return err
	}
	sender := evt.Info.Sender
	if evt.Info.IsFromMe {
		sender = types.EmptyJID
	}
	return c.send(ctx, evt.Info.Chat, c.wa.BuildRevoke(evt.Info.Chat, sender, evt.Info.ID))
}

func (c *Client) ForwardMessage(ctx context.Context, msg message.Message, chatID string) error {
	evt, err := rawEvent(msg)
	if err != nil {
		return err
	}
	to, err := ParseJID(chatID)
	if err != nil {
		return err
	}
	fwd := proto.Clone(evt.Message).(*waE2E.Message)
	if fwd.GetConversation() != "" {
		fwd = &waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: proto.String(fwd.GetConversation())}}
	}
	if ext := fwd.GetExtendedTextMessage(); ext != nil {
		if ext.ContextInfo == nil {
			ext.ContextInfo = &waE2E.ContextInfo{}
		}
		ext.ContextInfo.IsForwarded = proto.Bool(true)
		ext.ContextInfo.ForwardingScore = proto.Uint32(1)
	}
	return c.send(ctx, to, fwd)
}

func (c *Client) Block(ctx context.Context, userID string) error {
	jid, err := ParseJID(userID)
	if err != nil {
		return err
	}
	if _, err := c.wa.UpdateBlocklist(ctx, jid.ToNonAD(), events.BlocklistChangeActionBlock); err != nil {
		return fmt.Errorf("failed to block %s: %w", jid, err)
	}
	return nil
}

func (c *Client) updateParticipants(ctx context.Context, groupID string, ids []string, action whatsmeow.ParticipantChange) error {
	group, err := types.ParseJID(groupID)
	if err != nil {
		return fmt.Errorf("invalid group id %q: %w", groupID, err)
	}
	jids, err := parseJIDs(ids)
	if err != nil {
		return err
	}
	for i := range jids {
		jids[i] = jids[i].ToNonAD()
	}
	if _, err := c.wa.UpdateGroupParticipants(ctx, group, jids, action); err != nil {
		return fmt.Errorf("failed to %s participants in %s: %w", action, group, err)
	}
	return nil
}

func (c *Client) Kick(ctx context.Context, groupID string, userIDs ...string) error {
	return c.updateParticipants(ctx, groupID, userIDs, whatsmeow.ParticipantChangeRemove)
}

func (c *Client) Add(ctx context.Context, groupID string, userIDs ...string) error {
	return c.updateParticipants(ctx, groupID, userIDs, whatsmeow.ParticipantChangeAdd)
}

func (c *Client) groupInfo(ctx context.Context, groupID string) (*types.GroupInfo, error) {
	group, err := types.ParseJID(groupID)
	if err != nil {
		return nil, fmt.Errorf("invalid group id %q: %w", groupID, err)
	}
	info, err := c.wa.GetGroupInfo(ctx, group)
	if err != nil {
		return nil, fmt.Errorf("failed to get group info for %s: %w", group, err)
	}
	return info, nil
}

func (c *Client) GroupMembers(ctx context.Context, groupID string) ([]message.Member, error) {
	info, err := c.groupInfo(ctx, groupID)
	if err != nil {
		return nil, err
	}
	// Participants may be addressed by phone JID or LID; list every alias so
	// senders match whichever form the message carried.
	members := make([]message.Member, 0, len(info.Participants))
	for _, p := range info.Participants {
		seen := make(map[types.JID]bool, 3)
		for _, jid := range []types.JID{p.JID, p.PhoneNumber, p.LID} {
			jid = jid.ToNonAD()
			if jid.IsEmpty() || seen[jid] {
				continue
			}
			seen[jid] = true
			members = append(members, message.Member{
				ID:           jid.String(),
				IsAdmin:      p.IsAdmin || p.IsSuperAdmin,
				IsSuperAdmin: p.IsSuperAdmin,
			})
		}
	}
	return members, nil
}

func (c *Client) GroupDescription(ctx context.Context, groupID string) (string, error) {
	info, err := c.groupInfo(ctx, groupID)
	if err != nil {
		return "", err
	}
	return info.Topic, nil
}

func (c *Client) SetGroupDescription(ctx context.Context, groupID, description string) error {
	group, err := types.ParseJID(groupID)
	if err != nil {
		return fmt.Errorf("invalid group id %q: %w", groupID, err)
	}
	if err := c.wa.SetGroupTopic(ctx, group, "", "", description); err != nil {
		return fmt.Errorf("failed to set description of %s: %w", group, err)
	}
	return nil
}

func (c *Client) InviteLink(ctx context.Context, groupID string) (string, error) {
	group, err := types.ParseJID(groupID)
	if err != nil {
		return "", fmt.Errorf("invalid group id %q: %w", groupID, err)
	}
	link, err := c.wa.GetGroupInviteLink(ctx, group, false)
	if err != nil {
		return "", fmt.Errorf("failed to get invite link of %s: %w", group, err)
	}
	return link, nil
}

// SelfID returns the paired account's JID, or "" before pairing.
func (c *Client) SelfID() string {
	if c.wa.Store.ID == nil {
		return ""
	}
	return c.wa.Store.ID.ToNonAD().String()
}

// SelfLID returns the paired account's LID, or "" when unknown.
func (c *Client) SelfLID() string {
	if c.wa.Store.LID.IsEmpty() {
		return ""
	}
	return c.wa.Store.LID.ToNonAD().String()
}
