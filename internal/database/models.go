package database

import (
	"strings"
	"time"
)

// Document path roots.
const (
	UserPrefix    = "user."
	GroupPrefix   = "group."
	MenfessPrefix = "menfess."
	BotPath       = "bot"
)

// UserPath returns the document path of a user.
func UserPath(id string) string { return UserPrefix + id }

// GroupPath returns the document path of a group.
func GroupPath(id string) string { return GroupPrefix + id }

// MenfessPath returns the document path of an anonymous-message thread.
func MenfessPath(id string) string { return MenfessPrefix + id }

// TrimPath strips a root prefix from a document path.
func TrimPath(path, prefix string) string { return strings.TrimPrefix(path, prefix) }

// User is the document stored at user.<id>.
type User struct {
	Banned  bool  `json:"banned"`
	Premium bool  `json:"premium"`
	Coin    int64 `json:"coin"`
	// PremiumExpiration is a unix millisecond timestamp; zero means permanent.
	PremiumExpiration int64 `json:"premiumExpiration,omitempty"`
	// LastSentMsg maps a denial reason to the unix millisecond time the
	// text notice was last sent.
	LastSentMsg map[string]int64 `json:"lastSentMsg,omitempty"`
}

// GroupOption holds per-group moderation toggles.
type GroupOption struct {
	AntiLink  bool            `json:"antilink"`
	AutoKick  bool            `json:"autokick"`
	AntiMedia map[string]bool `json:"antimedia,omitempty"`
}

// Group is the document stored at group.<id>.
type Group struct {
	Option GroupOption `json:"option"`
	// Mute is "", "all" or "owner".
	Mute string `json:"mute,omitempty"`
	// MutedUsers maps a sender to its mute mode.
	MutedUsers map[string]string `json:"mutedUsers,omitempty"`
}

// BotState is the document stored at bot.
type BotState struct {
	Mode string `json:"mode,omitempty"`
}

// Menfess is the document stored at menfess.<id>: a relay between two users.
type Menfess struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// AuditEntry is one row of audit_log.
type AuditEntry struct {
	ID        int64     `db:"id"`
	ActorID   string    `db:"actor_id"`
	ChatID    string    `db:"chat_id"`
	Command   string    `db:"command"`
	Args      string    `db:"args"`
	Outcome   string    `db:"outcome"`
	CreatedAt time.Time `db:"created_at"`
}
