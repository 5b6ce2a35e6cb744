package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/whatsdex/internal/config"
	"github.com/edgard/whatsdex/internal/database"
	"github.com/edgard/whatsdex/internal/database/databasetest"
	"github.com/edgard/whatsdex/internal/logger"
	"github.com/edgard/whatsdex/internal/message"
	"github.com/edgard/whatsdex/internal/message/messagetest"
	"github.com/edgard/whatsdex/internal/permission"
)

const (
	ownerID  = "628999"
	memberID = "628111@s.whatsapp.net"
	selfID   = "628000@s.whatsapp.net"
	groupID  = "120363@g.us"
)

type harness struct {
	app   *App
	tr    *messagetest.Transport
	store database.Store
	cfg   *config.Config
}

func newHarness(t *testing.T, tweak func(*config.Config)) *harness {
	t.Helper()
	cfg := config.Default(ownerID)
	cfg.RateLimit.Cooldown = 0
	if tweak != nil {
		tweak(cfg)
	}
	store := databasetest.NewStore(t)
	tr := messagetest.New(selfID)
	app, err := NewApp(AppDeps{Logger: logger.Discard(), Config: cfg, Store: store, Transport: tr})
	require.NoError(t, err)
	return &harness{app: app, tr: tr, store: store, cfg: cfg}
}

func private(text string) message.Message {
	return message.Message{ID: "m1", ChatID: memberID, SenderID: memberID, PushName: "Ana", Text: text}
}

func group(text string) message.Message {
	return message.Message{ID: "m2", ChatID: groupID, SenderID: memberID, PushName: "Ana", Text: text, IsGroup: true}
}

func TestNewAppRejectsBadPrefix(t *testing.T) {
	t.Parallel()

	cfg := config.Default(ownerID)
	cfg.Bot.Prefix = "["
	_, err := NewApp(AppDeps{Logger: logger.Discard(), Config: cfg, Store: databasetest.NewStore(t), Transport: messagetest.New(selfID)})
	assert.Error(t, err)
}

func TestPipelineRunsCommand(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.app.Pipeline.Handle(context.Background(), private("!ping"))
	assert.Equal(t, []string{"🏓 Pong!"}, h.tr.Texts())

	var u database.User
	found, err := h.store.Get(context.Background(), database.UserPath("628111"), &u)
	require.NoError(t, err)
	assert.True(t, found, "first message creates the user")
	assert.Equal(t, int64(config.DefaultStartCoin), u.Coin)
}

func TestPipelineSuggestsWithButton(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.app.Pipeline.Handle(context.Background(), private("#pign now"))

	require.Len(t, h.tr.Replies, 1)
	got := h.tr.Replies[0]
	assert.Equal(t, "❓ Did you mean #ping?", got.Text)
	assert.Equal(t, []message.Button{{Label: "#ping", Command: "#ping now"}}, got.Buttons)

	h.app.Pipeline.Handle(context.Background(), private("!zzzzzzzz"))
	assert.Len(t, h.tr.Replies, 1, "unknown commands without a close match are ignored")
}

func TestPipelineDenialThrottled(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	ctx := context.Background()

	h.app.Pipeline.Handle(ctx, private("!kick 628222"))
	assert.Equal(t, []string{h.cfg.Messages.Group}, h.tr.Texts())
	assert.Empty(t, h.tr.Reactions)

	h.app.Pipeline.Handle(ctx, private("!kick 628222"))
	assert.Len(t, h.tr.Texts(), 1, "second denial within a day is not texted")
	assert.Equal(t, []string{ReasonEmoji[permission.ReasonGroup]}, h.tr.Reactions)
}

func TestPipelineGroupRoles(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	ctx := context.Background()
	h.tr.Members[groupID] = []message.Member{
		{ID: memberID, IsAdmin: true},
		{ID: selfID, IsAdmin: true},
		{ID: "628222@s.whatsapp.net"},
	}

	h.app.Pipeline.Handle(ctx, group("!kick 628222"))
	assert.Equal(t, []string{"628222"}, h.tr.KickedIDs())

	h.tr.Members[groupID] = nil
	h.app.Pipeline.Handle(ctx, group("!kick 628333"))
	assert.Equal(t, []string{"628222", "628333"}, h.tr.KickedIDs(), "roles come from the cached member list")
}

func TestPipelineRoutesIntent(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	ctx := context.Background()

	h.app.Pipeline.Handle(ctx, private("hello there"))
	assert.Equal(t, []string{"👋 Hello Ana! How can I help you?"}, h.tr.Texts())

	h.app.Pipeline.Handle(ctx, group("hello there"))
	assert.Len(t, h.tr.Texts(), 1, "groups are not routed by default")

	h.app.Pipeline.Handle(ctx, private("pign"))
	assert.Equal(t, "❓ Did you mean .ping?", h.tr.Texts()[1])
}

func TestPipelineIntentDisabled(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(c *config.Config) { c.Intent.Enabled = false })
	assert.Nil(t, h.app.Router)
	h.app.Pipeline.Handle(context.Background(), private("hello there"))
	assert.Empty(t, h.tr.Texts())
}

func TestPipelineGuardBlocks(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(c *config.Config) { c.RateLimit.Cooldown = time.Hour })
	ctx := context.Background()

	h.app.Pipeline.Handle(ctx, private("!ping"))
	h.app.Pipeline.Handle(ctx, private("!ping"))
	texts := h.tr.Texts()
	require.Len(t, texts, 2)
	assert.Equal(t, "🏓 Pong!", texts[0])
	assert.True(t, strings.HasPrefix(texts[1], h.cfg.Messages.Cooldown), texts[1])
}

func TestPipelineCooldownIgnoresPrefixedChat(t *testing.T) {
	t.Parallel()

	h := newHarness(t, func(c *config.Config) { c.RateLimit.Cooldown = 10 * time.Second })
	ctx := context.Background()

	h.tr.Members[groupID] = []message.Member{{ID: memberID}, {ID: selfID, IsAdmin: true}}
	h.app.Pipeline.Handle(ctx, group("@628222 are you coming tonight"))
	h.app.Pipeline.Handle(ctx, group("@628333 bring the charger"))
	assert.Empty(t, h.tr.Texts(), "mentions are chat, not commands")

	h.app.Pipeline.Handle(ctx, private("...lol"))
	h.app.Pipeline.Handle(ctx, private("!ping"))
	assert.Equal(t, []string{"🏓 Pong!"}, h.tr.Texts())
}

type fakeListener struct {
	msgs      []message.Message
	delivered chan struct{}
}

func (l *fakeListener) Run(ctx context.Context, h func(ctx context.Context, msg message.Message)) error {
	for _, m := range l.msgs {
		h(ctx, m)
	}
	close(l.delivered)
	<-ctx.Done()
	return nil
}

func TestBotRunDeliversAndStops(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, h.app.Mutes.Mute(ctx, groupID, "", "all"))

	msgs := make([]message.Message, 5)
	for i := range msgs {
		msgs[i] = private("!ping")
		msgs[i].ID = string(rune('a' + i))
	}
	l := &fakeListener{msgs: msgs, delivered: make(chan struct{})}

	var wg sync.WaitGroup
	var runErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		runErr = h.app.Bot(l).Run(ctx)
	}()

	select {
	case <-l.delivered:
	case <-time.After(5 * time.Second):
		t.Fatal("listener never delivered")
	}
	h.app.Pipeline.Wait()
	assert.Len(t, h.tr.Texts(), len(msgs))
	assert.Eventually(t, func() bool { return len(h.app.Scheduler.Jobs()) == 3 }, 5*time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, []string{"cooldown_sweep", "premium_expiry", "sql_maintenance"}, h.app.Scheduler.Jobs())

	_, muted := h.app.Mutes.Lookup(groupID, "")
	assert.True(t, muted, "mutes are warmed on start")

	cancel()
	wg.Wait()
	assert.NoError(t, runErr)
}
