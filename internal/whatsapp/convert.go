package whatsapp

import (
	"fmt"
	"strings"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/edgard/whatsdex/internal/message"
)

// FromEvent converts a whatsmeow message event. It reports false for
// events the bot never processes: status broadcasts, protocol messages
// and messages carrying neither text nor media.
func FromEvent(evt *events.Message) (message.Message, bool) {
	if evt == nil || evt.Message == nil {
		return message.Message{}, false
	}
	if evt.Info.Chat.Server == types.BroadcastServer {
		return message.Message{}, false
	}

	m := unwrap(evt.Message)
	if m.GetProtocolMessage() != nil || m.GetReactionMessage() != nil {
		return message.Message{}, false
	}

	text := textOf(m)
	media := mediaOf(m)
	if text == "" && media == message.MediaNone {
		return message.Message{}, false
	}

	var mentions []string
	var quoted string
	if ci := contextInfo(m); ci != nil {
		for _, j := range ci.GetMentionedJID() {
			if jid, err := types.ParseJID(j); err == nil {
				mentions = append(mentions, jid.ToNonAD().String())
			}
		}
		if p := ci.GetParticipant(); p != "" {
			if jid, err := types.ParseJID(p); err == nil {
				quoted = jid.ToNonAD().String()
			}
		}
	}

	return message.Message{
		ID:           evt.Info.ID,
		ChatID:       evt.Info.Chat.ToNonAD().String(),
		SenderID:     evt.Info.Sender.ToNonAD().String(),
		PushName:     evt.Info.PushName,
		Text:         text,
		Media:        media,
		Mentions:     mentions,
		QuotedSender: quoted,
		IsGroup:      evt.Info.IsGroup,
		FromMe:       evt.Info.IsFromMe,
		Timestamp:    evt.Info.Timestamp,
		Raw:          evt,
	}, true
}

// unwrap strips the ephemeral and view-once envelopes.
func unwrap(m *waE2E.Message) *waE2E.Message {
	for i := 0; i < 3; i++ {
		switch {
		case m.GetEphemeralMessage().GetMessage() != nil:
			m = m.GetEphemeralMessage().GetMessage()
		case m.GetViewOnceMessage().GetMessage() != nil:
			m = m.GetViewOnceMessage().GetMessage()
		case m.GetViewOnceMessageV2().GetMessage() != nil:
			m = m.GetViewOnceMessageV2().GetMessage()
		case m.GetDocumentWithCaptionMessage().GetMessage() != nil:
			m = m.GetDocumentWithCaptionMessage().GetMessage()
		default:
			return m
		}
	}
	return m
}

func textOf(m *waE2E.Message) string {
	switch {
	case m.GetConversation() != "":
		return m.GetConversation()
	case m.GetExtendedTextMessage() != nil:
		return m.GetExtendedTextMessage().GetText()
	case m.GetImageMessage() != nil:
		return m.GetImageMessage().GetCaption()
	case m.GetVideoMessage() != nil:
		return m.GetVideoMessage().GetCaption()
	case m.GetDocumentMessage() != nil:
		return m.GetDocumentMessage().GetCaption()
	case m.GetButtonsResponseMessage() != nil:
		return m.GetButtonsResponseMessage().GetSelectedButtonID()
	case m.GetTemplateButtonReplyMessage() != nil:
		return m.GetTemplateButtonReplyMessage().GetSelectedID()
	case m.GetListResponseMessage() != nil:
		return m.GetListResponseMessage().GetSingleSelectReply().GetSelectedRowID()
	}
	return ""
}

func contextInfo(m *waE2E.Message) *waE2E.ContextInfo {
	switch {
	case m.GetExtendedTextMessage() != nil:
		return m.GetExtendedTextMessage().GetContextInfo()
	case m.GetImageMessage() != nil:
		return m.GetImageMessage().GetContextInfo()
	case m.GetVideoMessage() != nil:
		return m.GetVideoMessage().GetContextInfo()
	case m.GetDocumentMessage() != nil:
		return m.GetDocumentMessage().GetContextInfo()
	case m.GetStickerMessage() != nil:
		return m.GetStickerMessage().GetContextInfo()
	case m.GetAudioMessage() != nil:
		return m.GetAudioMessage().GetContextInfo()
	}
	return nil
}

func mediaOf(m *waE2E.Message) message.MediaKind {
	switch {
	case m.GetImageMessage() != nil:
		return message.MediaImage
	case m.GetVideoMessage() != nil:
		if m.GetVideoMessage().GetGifPlayback() {
			return message.MediaGIF
		}
		return message.MediaVideo
	case m.GetAudioMessage() != nil:
		return message.MediaAudio
	case m.GetDocumentMessage() != nil:
		return message.MediaDocument
	case m.GetStickerMessage() != nil:
		return message.MediaSticker
	}
	return message.MediaNone
}

// ParseJID accepts a full JID or a bare user (phone number), optionally
// prefixed with "@" or "+".
func ParseJID(id string) (types.JID, error) {
	id = strings.TrimSpace(id)
	if strings.Contains(id, "@") && !strings.HasPrefix(id, "@") {
		jid, err := types.ParseJID(id)
		if err != nil {
			return types.JID{}, fmt.Errorf("invalid jid %q: %w", id, err)
		}
		return jid, nil
	}
	user := strings.TrimLeft(id, "@+")
	if user == "" {
		return types.JID{}, fmt.Errorf("invalid jid %q: empty user", id)
	}
	for _, r := range user {
		if r < '0' || r > '9' {
			return types.JID{}, fmt.Errorf("invalid jid %q: bare users must be numeric", id)
		}
	}
	return types.NewJID(user, types.DefaultUserServer), nil
}

func parseJIDs(ids []string) ([]types.JID, error) {
	out := make([]types.JID, 0, len(ids))
	for _, id := range ids {
		jid, err := ParseJID(id)
		if err != nil {
			return nil, err
		}
		out = append(out, jid)
	}
	return out, nil
}
