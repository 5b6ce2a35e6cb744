package handlers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/whatsdex/internal/command"
	"github.com/edgard/whatsdex/internal/config"
	"github.com/edgard/whatsdex/internal/database"
	"github.com/edgard/whatsdex/internal/database/databasetest"
	"github.com/edgard/whatsdex/internal/logger"
	"github.com/edgard/whatsdex/internal/message"
	"github.com/edgard/whatsdex/internal/message/messagetest"
	"github.com/edgard/whatsdex/internal/middleware"
)

const (
	groupID  = "120363@g.us"
	memberID = "628111@s.whatsapp.net"
	otherID  = "628222"
	ownerID  = "628999"
	selfID   = "628000@s.whatsapp.net"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	deps HandlerDeps
	reg  *command.Registry
	tr   *messagetest.Transport
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := databasetest.NewStore(t)
	reg := command.NewRegistry()
	deps := HandlerDeps{
		Logger:    logger.Discard(),
		Config:    config.Default(ownerID),
		Store:     store,
		Mutes:     middleware.NewMuteRegistry(store),
		Registry:  reg,
		Guards:    []string{middleware.GuardBotMode, middleware.GuardRateLimit},
		StartTime: fixedNow.Add(-90 * time.Minute),
		Now:       func() time.Time { return fixedNow },
	}
	require.NoError(t, Register(reg, deps))
	return &fixture{deps: deps, reg: reg, tr: messagetest.New(selfID)}
}

// run invokes the named command directly, skipping guards and permissions.
func (fx *fixture) run(t *testing.T, msg message.Message, f message.Facts, name string, args ...string) error {
	t.Helper()
	d, ok := fx.reg.Resolve(name)
	require.True(t, ok, name)
	if msg.ID == "" {
		msg.ID = "msg-1"
	}
	mc := message.NewContext(msg, fx.tr)
	mc.Resolve(f)
	mc.Used = message.Used{Prefix: ".", Command: name, Args: args}
	return d.Handler(context.Background(), mc)
}

func groupMsg() message.Message {
	return message.Message{ChatID: groupID, SenderID: memberID, IsGroup: true}
}

func privateMsg() message.Message {
	return message.Message{ChatID: memberID, SenderID: memberID}
}

func (fx *fixture) lastText(t *testing.T) string {
	t.Helper()
	texts := fx.tr.Texts()
	require.NotEmpty(t, texts)
	return texts[len(texts)-1]
}

func TestRegisterAllCommands(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	for _, name := range []string{
		"ping", "menu", "help", "allmenu", "list", "owner", "coin", "menfess",
		"mute", "unmute", "setoption", "warnings", "resetwarn", "kick", "add",
		"grouplink", "setdesc", "ban", "unban", "addpremium", "addcoin", "botmode", "diag",
	} {
		_, ok := fx.reg.Resolve(name)
		assert.True(t, ok, name)
	}

	err := Register(fx.reg, fx.deps)
	var dup *command.DuplicateNameError
	assert.True(t, errors.As(err, &dup), "second registration collides")
}

func TestTargets(t *testing.T) {
	t.Parallel()

	msg := message.Message{
		Mentions:     []string{"628222@s.whatsapp.net", "628333@s.whatsapp.net"},
		QuotedSender: "628222:4@s.whatsapp.net",
	}
	mc := message.NewContext(msg, nil)
	got := targets(mc, []string{"@628222", "+628444", "owner", "30"})
	assert.Equal(t, []string{"628222", "628333", "628444"}, got)

	assert.Equal(t, []string{"owner", "30"}, withoutNumbers([]string{"owner", "@628111", "30"}))
}

func TestPingAndOwner(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	msg := privateMsg()
	msg.Timestamp = fixedNow.Add(-250 * time.Millisecond)
	require.NoError(t, fx.run(t, msg, message.Facts{}, "ping"))
	assert.Equal(t, "🏓 Pong! Response time: 250ms", fx.lastText(t))

	require.NoError(t, fx.run(t, privateMsg(), message.Facts{}, "owner"))
	assert.Contains(t, fx.lastText(t), "https://wa.me/"+ownerID)
}

func TestMenu(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	require.NoError(t, fx.run(t, privateMsg(), message.Facts{}, "menu"))
	text := fx.lastText(t)
	assert.True(t, strings.HasPrefix(text, "*"+config.DefaultBotName+"*"))
	assert.Contains(t, text, "*GROUP*")
	assert.Contains(t, text, "➤ .ping - Check that the bot is alive")

	require.NoError(t, fx.run(t, privateMsg(), message.Facts{}, "menu", "help"))
	detail := fx.lastText(t)
	assert.Contains(t, detail, "*.menu*")
	assert.Contains(t, detail, "Aliases: help, allmenu, list")

	require.NoError(t, fx.run(t, privateMsg(), message.Facts{}, "menu", "kick"))
	assert.Contains(t, fx.lastText(t), "Requires: admin, bot admin, group")

	require.NoError(t, fx.run(t, privateMsg(), message.Facts{}, "menu", "nope"))
	assert.Contains(t, fx.lastText(t), "Unknown command")
}

func TestCoin(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()
	_, err := fx.deps.Store.EnsureUser(ctx, "628111", database.User{Coin: 42})
	require.NoError(t, err)

	require.NoError(t, fx.run(t, privateMsg(), message.Facts{}, "coin"))
	assert.Equal(t, "💰 Your coins: 42", fx.lastText(t))

	require.NoError(t, fx.run(t, privateMsg(), message.Facts{IsPremium: true}, "coin"))
	assert.Equal(t, "💰 Your coins: unlimited", fx.lastText(t))
}

func TestMuteAndUnmute(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	admin := message.Facts{IsAdmin: true}

	require.NoError(t, fx.run(t, groupMsg(), admin, "mute"))
	mode, ok := fx.deps.Mutes.Lookup(groupID, "")
	require.True(t, ok)
	assert.Equal(t, middleware.MuteAll, mode)

	require.NoError(t, fx.run(t, groupMsg(), admin, "mute", "owner"))
	assert.Equal(t, config.DefaultMessages.Owner, fx.lastText(t), "admins cannot set owner mode")

	msg := groupMsg()
	msg.Mentions = []string{otherID + "@s.whatsapp.net", ownerID + "@s.whatsapp.net"}
	require.NoError(t, fx.run(t, msg, admin, "mute", "@"+otherID, "@"+ownerID))
	_, ok = fx.deps.Mutes.Lookup(groupID, otherID)
	assert.True(t, ok)
	assert.Equal(t, "🔇 Muted @"+otherID+".", fx.lastText(t))

	require.NoError(t, fx.run(t, groupMsg(), admin, "mute", "sideways"))
	assert.Contains(t, fx.lastText(t), "Usage: .mute")

	require.NoError(t, fx.run(t, groupMsg(), admin, "unmute"))
	require.NoError(t, fx.run(t, groupMsg(), admin, "unmute", otherID))
	_, ok = fx.deps.Mutes.Lookup(groupID, otherID)
	assert.False(t, ok)

	var g database.Group
	_, err := fx.deps.Store.Get(context.Background(), database.GroupPath(groupID), &g)
	require.NoError(t, err)
	assert.Empty(t, g.Mute)
	assert.Empty(t, g.MutedUsers)
}

func TestSetOption(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()
	admin := message.Facts{IsAdmin: true}

	require.NoError(t, fx.run(t, groupMsg(), admin, "setoption", "antilink", "on"))
	require.NoError(t, fx.run(t, groupMsg(), admin, "setoption", "antimedia", "Sticker", "on"))
	require.NoError(t, fx.run(t, groupMsg(), admin, "setoption", "autokick", "off"))

	g, err := fx.deps.Store.Group(ctx, groupID)
	require.NoError(t, err)
	assert.True(t, g.Option.AntiLink)
	assert.False(t, g.Option.AutoKick)
	assert.True(t, g.Option.AntiMedia["sticker"])

	require.NoError(t, fx.run(t, groupMsg(), admin, "setoption"))
	assert.Contains(t, fx.lastText(t), "antilink: on")
	assert.Contains(t, fx.lastText(t), "antimedia sticker: on")

	require.NoError(t, fx.run(t, groupMsg(), admin, "setoption", "antimedia", "hologram", "on"))
	assert.Contains(t, fx.lastText(t), "Unknown media kind")

	require.NoError(t, fx.run(t, groupMsg(), admin, "setoption", "antilink", "maybe"))
	assert.Contains(t, fx.lastText(t), "Usage:")
}

func TestWarnings(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()
	_, err := fx.deps.Store.IncrementWarning(ctx, groupID, otherID)
	require.NoError(t, err)

	require.NoError(t, fx.run(t, groupMsg(), message.Facts{}, "warnings", otherID))
	assert.Equal(t, "⚠️ @628222: 1/3", fx.lastText(t))

	require.NoError(t, fx.run(t, groupMsg(), message.Facts{}, "warnings"))
	assert.Equal(t, "⚠️ @628111: 0/3", fx.lastText(t))

	require.NoError(t, fx.run(t, groupMsg(), message.Facts{IsAdmin: true}, "resetwarn", otherID))
	n, err := fx.deps.Store.Warnings(ctx, groupID, otherID)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, fx.run(t, groupMsg(), message.Facts{IsAdmin: true}, "resetwarn"))
	assert.Contains(t, fx.lastText(t), "Usage:")
}

func TestKickAndAdd(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	facts := message.Facts{IsAdmin: true, IsBotAdmin: true}

	require.NoError(t, fx.run(t, groupMsg(), facts, "kick", otherID, ownerID, "628000"))
	assert.Equal(t, []string{otherID}, fx.tr.KickedIDs(), "owner and bot are spared")

	require.NoError(t, fx.run(t, groupMsg(), facts, "kick", ownerID))
	assert.Equal(t, "❌ Nobody to kick.", fx.lastText(t))

	require.NoError(t, fx.run(t, groupMsg(), facts, "add", "628555", "+628666"))
	assert.Equal(t, []string{"628555", "628666"}, fx.tr.Added)

	fx.tr.Err = errors.New("not authorized")
	assert.Error(t, fx.run(t, groupMsg(), facts, "kick", otherID))
}

func TestGroupLinkAndDescription(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	facts := message.Facts{IsAdmin: true, IsBotAdmin: true}

	require.NoError(t, fx.run(t, groupMsg(), facts, "grouplink"))
	assert.Equal(t, "🔗 https://chat.whatsapp.com/"+groupID, fx.lastText(t))

	require.NoError(t, fx.run(t, groupMsg(), facts, "setdesc"))
	assert.Equal(t, "📝 This group has no description.", fx.lastText(t))

	require.NoError(t, fx.run(t, groupMsg(), facts, "setdesc", "no", "spam"))
	assert.Equal(t, "no spam", fx.tr.Description[groupID])
}

func TestBanAndUnban(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()
	owner := message.Facts{IsOwner: true}

	require.NoError(t, fx.run(t, privateMsg(), owner, "ban", otherID))
	var u database.User
	_, err := fx.deps.Store.Get(ctx, database.UserPath(otherID), &u)
	require.NoError(t, err)
	assert.True(t, u.Banned)
	assert.Equal(t, int64(config.DefaultStartCoin), u.Coin, "new users get the starting balance")

	require.NoError(t, fx.run(t, privateMsg(), owner, "ban", ownerID))
	assert.Equal(t, "❌ Owners cannot be banned.", fx.lastText(t))

	require.NoError(t, fx.run(t, privateMsg(), owner, "unban", otherID))
	_, err = fx.deps.Store.Get(ctx, database.UserPath(otherID), &u)
	require.NoError(t, err)
	assert.False(t, u.Banned)
}

func TestAddPremium(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()
	owner := message.Facts{IsOwner: true}

	require.NoError(t, fx.run(t, privateMsg(), owner, "addpremium", otherID, "30"))
	var u database.User
	_, err := fx.deps.Store.Get(ctx, database.UserPath(otherID), &u)
	require.NoError(t, err)
	assert.True(t, u.Premium)
	assert.Equal(t, fixedNow.Add(30*24*time.Hour).UnixMilli(), u.PremiumExpiration)

	require.NoError(t, fx.run(t, privateMsg(), owner, "addpremium", "628333"))
	_, err = fx.deps.Store.Get(ctx, database.UserPath("628333"), &u)
	require.NoError(t, err)
	assert.True(t, u.Premium)
	assert.Zero(t, u.PremiumExpiration)

	require.NoError(t, fx.run(t, privateMsg(), owner, "addpremium", otherID, "soon"))
	assert.Contains(t, fx.lastText(t), "Usage:")
}

func TestAddCoin(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	owner := message.Facts{IsOwner: true}

	require.NoError(t, fx.run(t, privateMsg(), owner, "addcoin", otherID, "100"))
	assert.Equal(t, "💰 @628222 now has 600 coins.", fx.lastText(t))

	require.NoError(t, fx.run(t, privateMsg(), owner, "addcoin", otherID, "-1000"))
	assert.Equal(t, "💰 @628222 now has 0 coins.", fx.lastText(t))

	require.NoError(t, fx.run(t, privateMsg(), owner, "addcoin", otherID))
	assert.Contains(t, fx.lastText(t), "Usage:")
}

func TestBotMode(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	owner := message.Facts{IsOwner: true}

	require.NoError(t, fx.run(t, privateMsg(), owner, "botmode"))
	assert.Contains(t, fx.lastText(t), "Bot mode: "+config.DefaultBotMode)

	require.NoError(t, fx.run(t, privateMsg(), owner, "botmode", "SELF"))
	st, err := fx.deps.Store.Bot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, middleware.ModeSelf, st.Mode)

	require.NoError(t, fx.run(t, privateMsg(), owner, "botmode", "chaos"))
	assert.Contains(t, fx.lastText(t), "Usage:")
}

func TestDiag(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()
	owner := message.Facts{IsOwner: true}
	_, err := fx.deps.Store.EnsureUser(ctx, "628111", database.User{})
	require.NoError(t, err)

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"uptime"}, "⏱ Uptime: 1h30m0s"},
		{[]string{"goroutines"}, "🧵 Goroutines:"},
		{[]string{"memory"}, "🧠 Heap:"},
		{[]string{"db"}, "user: 1"},
		{[]string{"guards"}, "🛡 Guards: bot_mode → rate_limit"},
		{[]string{"commands"}, "📚 Commands: 20"},
		{[]string{"audit"}, "628111 diag commands (ok)"},
		{[]string{"os.Exit(1)"}, "Usage: .diag"},
		{nil, "Usage: .diag"},
	}
	for _, tt := range tests {
		require.NoError(t, fx.run(t, privateMsg(), owner, "diag", tt.args...))
		assert.Contains(t, fx.lastText(t), tt.want, tt.args)
	}

	audit, err := fx.deps.Store.RecentAudit(ctx, 100)
	require.NoError(t, err)
	require.Len(t, audit, len(tests), "every invocation is audited")
	assert.Equal(t, auditRejected, audit[0].Outcome)
	assert.Equal(t, "os.Exit(1)", audit[1].Args)
	assert.Equal(t, auditRejected, audit[1].Outcome)
	assert.Equal(t, auditOK, audit[len(audit)-1].Outcome)
	assert.Equal(t, "628111", audit[0].ActorID)
}

func TestMenfess(t *testing.T) {
	t.Parallel()

	fx := newFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.run(t, privateMsg(), message.Facts{}, "menfess", otherID, "hi", "there"))
	require.Len(t, fx.tr.Replies, 2)
	delivered := fx.tr.Replies[0]
	assert.Equal(t, otherID, delivered.ChatID)
	assert.Contains(t, delivered.Text, "hi there")
	assert.NotContains(t, delivered.Text, "628111", "sender stays anonymous")

	paths, err := fx.deps.Store.List(ctx, database.MenfessPrefix)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	id := database.TrimPath(paths[0], database.MenfessPrefix)
	assert.Contains(t, delivered.Text, ".menfess reply "+id)

	answer := message.Message{ChatID: otherID + "@s.whatsapp.net", SenderID: otherID + "@s.whatsapp.net"}
	require.NoError(t, fx.run(t, answer, message.Facts{}, "menfess", "reply", id, "who", "is", "this"))
	relayed := fx.tr.Replies[2]
	assert.Equal(t, "628111", relayed.ChatID)
	assert.Contains(t, relayed.Text, "who is this")

	stranger := message.Message{ChatID: "628777@s.whatsapp.net", SenderID: "628777@s.whatsapp.net"}
	require.NoError(t, fx.run(t, stranger, message.Facts{}, "menfess", "reply", id, "hello"))
	assert.Contains(t, fx.lastText(t), "No menfess thread")

	require.NoError(t, fx.run(t, privateMsg(), message.Facts{}, "menfess", "628111", "me"))
	assert.Contains(t, fx.lastText(t), "yourself")

	require.NoError(t, fx.run(t, privateMsg(), message.Facts{}, "menfess", "hi"))
	assert.Contains(t, fx.lastText(t), "Usage:")
}
