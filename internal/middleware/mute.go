package middleware

import (
	"context"
	"fmt"
	"sync"

	"github.com/edgard/whatsdex/internal/database"
)

// MuteMode says who is still allowed through a mute.
type MuteMode string

const (
	// MuteAll silences everyone except owners and group admins.
	MuteAll MuteMode = "all"
	// MuteOwner silences everyone except owners.
	MuteOwner MuteMode = "owner"
)

// ParseMuteMode validates s.
func ParseMuteMode(s string) (MuteMode, error) {
	switch MuteMode(s) {
	case MuteAll, MuteOwner:
		return MuteMode(s), nil
	case "":
		return MuteAll, nil
	}
	return "", fmt.Errorf("unknown mute mode %q", s)
}

// MuteRegistry caches mutes in memory and writes them through to the group
// document, so they survive restarts.
type MuteRegistry struct {
	mu    sync.RWMutex
	chats map[string]MuteMode
	users map[string]MuteMode
	store database.Store
}

// NewMuteRegistry returns an empty registry persisting to store.
func NewMuteRegistry(store database.Store) *MuteRegistry {
	return &MuteRegistry{
		chats: make(map[string]MuteMode),
		users: make(map[string]MuteMode),
		store: store,
	}
}

func userKey(chatID, userID string) string { return chatID + "|" + userID }

// Mute silences a chat, or one sender in it when userID is set.
func (r *MuteRegistry) Mute(ctx context.Context, chatID, userID string, mode MuteMode) error {
	patch := map[string]any{"mute": string(mode)}
	if userID != "" {
		patch = map[string]any{"mutedUsers": map[string]any{userID: string(mode)}}
	}
	if err := r.store.Update(ctx, database.GroupPath(chatID), patch); err != nil {
		return fmt.Errorf("failed to persist mute: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if userID != "" {
		r.users[userKey(chatID, userID)] = mode
	} else {
		r.chats[chatID] = mode
	}
	return nil
}

// Unmute lifts a chat or sender mute.
func (r *MuteRegistry) Unmute(ctx context.Context, chatID, userID string) error {
	patch := map[string]any{"mute": nil}
	if userID != "" {
		patch = map[string]any{"mutedUsers": map[string]any{userID: nil}}
	}
	if err := r.store.Update(ctx, database.GroupPath(chatID), patch); err != nil {
		return fmt.Errorf("failed to persist unmute: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if userID != "" {
		delete(r.users, userKey(chatID, userID))
	} else {
		delete(r.chats, chatID)
	}
	return nil
}

// Lookup returns the mute that applies to userID in chatID. A sender mute
// wins over the chat mute.
func (r *MuteRegistry) Lookup(chatID, userID string) (MuteMode, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := r.users[userKey(chatID, userID)]; ok {
		return m, true
	}
	m, ok := r.chats[chatID]
	return m, ok
}

// Warm loads every persisted mute. It replaces the in-memory state.
func (r *MuteRegistry) Warm(ctx context.Context) (int, error) {
	paths, err := r.store.List(ctx, database.GroupPrefix)
	if err != nil {
		return 0, err
	}

	chats := make(map[string]MuteMode)
	users := make(map[string]MuteMode)
	for _, p := range paths {
		var g database.Group
		if _, err := r.store.Get(ctx, p, &g); err != nil {
			return 0, err
		}
		chatID := database.TrimPath(p, database.GroupPrefix)
		if g.Mute != "" {
			chats[chatID] = MuteMode(g.Mute)
		}
		for u, m := range g.MutedUsers {
			users[userKey(chatID, u)] = MuteMode(m)
		}
	}

	r.mu.Lock()
	r.chats, r.users = chats, users
	r.mu.Unlock()
	return len(chats) + len(users), nil
}
