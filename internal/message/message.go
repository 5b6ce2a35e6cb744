// Package message defines the per-message context that flows through the
// guard chain, the dispatcher and the intent router, together with the
// transport contract the core talks to.
package message

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MediaKind identifies the media attached to a message, if any.
type MediaKind string

const (
	MediaNone     MediaKind = ""
	MediaAudio    MediaKind = "audio"
	MediaDocument MediaKind = "document"
	MediaGIF      MediaKind = "gif"
	MediaImage    MediaKind = "image"
	MediaSticker  MediaKind = "sticker"
	MediaVideo    MediaKind = "video"
)

// MediaKinds lists every media kind a group can toggle.
var MediaKinds = []MediaKind{MediaAudio, MediaDocument, MediaGIF, MediaImage, MediaSticker, MediaVideo}

// Message is the transport-neutral view of an inbound chat message.
type Message struct {
	ID       string
	ChatID   string
	SenderID string
	PushName string
	Text     string
	Media    MediaKind
	// Mentions are the identities tagged in the text.
	Mentions []string
	// QuotedSender is the author of the message this one replies to.
	QuotedSender string
	IsGroup      bool
	FromMe       bool
	Timestamp    time.Time
	// Raw carries the transport's native event so adapters can act on it.
	Raw any
}

// Facts are the role facts resolved for the sender before any guard runs.
type Facts struct {
	IsOwner    bool
	IsAdmin    bool
	IsBotAdmin bool
	IsGroup    bool
	IsPremium  bool
	IsBanned   bool
	Coin       int64
}

// Used records which prefix and command token literally matched.
type Used struct {
	Prefix  string
	Command string
	Args    []string
	// Known is set when Command resolves to a registered command.
	Known bool
}

// IsCommand reports whether the message parsed as a prefixed command.
func (u Used) IsCommand() bool {
	return u.Prefix != "" && u.Command != ""
}

// Context is created once per inbound message and discarded after processing.
type Context struct {
	Msg       Message
	Used      Used
	Transport Transport

	mu       sync.Mutex
	facts    Facts
	resolved bool
}

// NewContext builds a context for msg. Facts must be set with Resolve.
func NewContext(msg Message, transport Transport) *Context {
	return &Context{Msg: msg, Transport: transport}
}

// Resolve stores the role facts. Facts are read-only afterwards, so a second
// call panics.
func (c *Context) Resolve(f Facts) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resolved {
		panic("message: role facts already resolved")
	}
	f.IsGroup = c.Msg.IsGroup
	c.facts = f
	c.resolved = true
}

// Resolved reports whether Resolve has been called.
func (c *Context) Resolved() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolved
}

// Facts returns a copy of the resolved role facts.
func (c *Context) Facts() Facts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.facts
}

// Reply sends text back to the originating chat, quoting the message.
func (c *Context) Reply(ctx context.Context, text string) error {
	return c.Transport.Reply(ctx, c.Msg, text)
}

// React places an emoji reaction on the originating message.
func (c *Context) React(ctx context.Context, emoji string) error {
	return c.Transport.React(ctx, c.Msg, emoji)
}

// User strips the server and device parts from a platform identity, so
// "628123:4@s.whatsapp.net" becomes "628123".
func User(id string) string {
	if i := strings.IndexByte(id, '@'); i >= 0 {
		id = id[:i]
	}
	if i := strings.IndexByte(id, ':'); i >= 0 {
		id = id[:i]
	}
	return id
}
