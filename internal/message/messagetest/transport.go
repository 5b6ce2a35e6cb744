// Package messagetest provides an in-memory Transport for tests.
package messagetest

import (
	"context"
	"sync"

	"github.com/edgard/whatsdex/internal/message"
)

// Sent is a text that the fake transport delivered.
type Sent struct {
	ChatID  string
	Text    string
	Buttons []message.Button
}

// Transport records every call it receives. Err, when set, is returned by
// every method.
type Transport struct {
	mu sync.Mutex

	Self        string
	Err         error
	Members     map[string][]message.Member
	Description map[string]string

	Replies   []Sent
	Reactions []string
	Deleted   []string
	Forwarded []string
	Blocked   []string
	Kicked    []string
	Added     []string
}

// New returns an empty fake transport whose own identity is self.
func New(self string) *Transport {
	return &Transport{
		Self:        self,
		Members:     map[string][]message.Member{},
		Description: map[string]string{},
	}
}

func (t *Transport) Reply(_ context.Context, to message.Message, text string) error {
	return t.SendText(context.Background(), to.ChatID, text)
}

func (t *Transport) SendText(_ context.Context, chatID, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return t.Err
	}
	t.Replies = append(t.Replies, Sent{ChatID: chatID, Text: text})
	return nil
}

func (t *Transport) SendButtons(_ context.Context, to message.Message, text string, buttons []message.Button) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return t.Err
	}
	t.Replies = append(t.Replies, Sent{ChatID: to.ChatID, Text: text, Buttons: buttons})
	return nil
}

func (t *Transport) React(_ context.Context, _ message.Message, emoji string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return t.Err
	}
	t.Reactions = append(t.Reactions, emoji)
	return nil
}

func (t *Transport) DeleteMessage(_ context.Context, msg message.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return t.Err
	}
	t.Deleted = append(t.Deleted, msg.ID)
	return nil
}

func (t *Transport) ForwardMessage(_ context.Context, msg message.Message, _ string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return t.Err
	}
	t.Forwarded = append(t.Forwarded, msg.ID)
	return nil
}

func (t *Transport) Block(_ context.Context, userID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return t.Err
	}
	t.Blocked = append(t.Blocked, userID)
	return nil
}

func (t *Transport) Kick(_ context.Context, _ string, userIDs ...string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return t.Err
	}
	t.Kicked = append(t.Kicked, userIDs...)
	return nil
}

func (t *Transport) Add(_ context.Context, _ string, userIDs ...string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return t.Err
	}
	t.Added = append(t.Added, userIDs...)
	return nil
}

func (t *Transport) GroupMembers(_ context.Context, groupID string) ([]message.Member, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return nil, t.Err
	}
	return t.Members[groupID], nil
}

func (t *Transport) GroupDescription(_ context.Context, groupID string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return "", t.Err
	}
	return t.Description[groupID], nil
}

func (t *Transport) SetGroupDescription(_ context.Context, groupID, description string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return t.Err
	}
	t.Description[groupID] = description
	return nil
}

func (t *Transport) InviteLink(_ context.Context, groupID string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return "", t.Err
	}
	return "https://chat.whatsapp.com/" + groupID, nil
}

func (t *Transport) SelfID() string { return t.Self }

// Texts returns the text of every reply, in order.
func (t *Transport) Texts() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.Replies))
	for _, r := range t.Replies {
		out = append(out, r.Text)
	}
	return out
}

// KickedIDs returns a snapshot of kicked user IDs.
func (t *Transport) KickedIDs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.Kicked...)
}
