package message

import "context"

// Button is a quick-reply action. Selecting it sends Command back to the bot.
type Button struct {
	Label   string
	Command string
}

// Member is one participant of a group.
type Member struct {
	ID           string
	IsAdmin      bool
	IsSuperAdmin bool
}

// Transport is the chat platform as seen by the core.
type Transport interface {
	Reply(ctx context.Context, to Message, text string) error
	SendText(ctx context.Context, chatID, text string) error
	SendButtons(ctx context.Context, to Message, text string, buttons []Button) error
	React(ctx context.Context, to Message, emoji string) error
	DeleteMessage(ctx context.Context, msg Message) error
	ForwardMessage(ctx context.Context, msg Message, chatID string) error
	Block(ctx context.Context, userID string) error
	Kick(ctx context.Context, groupID string, userIDs ...string) error
	Add(ctx context.Context, groupID string, userIDs ...string) error
	GroupMembers(ctx context.Context, groupID string) ([]Member, error)
	GroupDescription(ctx context.Context, groupID string) (string, error)
	SetGroupDescription(ctx context.Context, groupID, description string) error
	InviteLink(ctx context.Context, groupID string) (string, error)
	// SelfID returns the bot account's own user identity.
	SelfID() string
}
