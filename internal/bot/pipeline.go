package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/edgard/whatsdex/internal/command"
	"github.com/edgard/whatsdex/internal/config"
	"github.com/edgard/whatsdex/internal/database"
	"github.com/edgard/whatsdex/internal/dispatch"
	"github.com/edgard/whatsdex/internal/intent"
	"github.com/edgard/whatsdex/internal/logger"
	"github.com/edgard/whatsdex/internal/message"
	"github.com/edgard/whatsdex/internal/middleware"
)

// memberCacheTTL bounds how stale cached group admin lists may be.
const memberCacheTTL = time.Minute

// PipelineDeps wires a Pipeline.
type PipelineDeps struct {
	Logger     *slog.Logger
	Config     *config.Config
	Store      database.Store
	Transport  message.Transport
	Parser     *dispatch.Parser
	Registry   *command.Registry
	Chain      *middleware.Chain
	Dispatcher *dispatch.Dispatcher
	// Router is nil when intent routing is disabled.
	Router *intent.Router
	Now    func() time.Time
}

// Pipeline processes inbound messages: it resolves the sender's facts,
// parses the command, runs the guard chain and then either dispatches the
// command or routes the text by intent.
type Pipeline struct {
	deps    PipelineDeps
	log     *slog.Logger
	handle  logger.HandlerFunc
	workers errgroup.Group

	mu      sync.Mutex
	members map[string]cachedMembers
}

type cachedMembers struct {
	members []message.Member
	fetched time.Time
}

// NewPipeline returns a pipeline running at most cfg.Bot.MaxConcurrency
// messages at once.
func NewPipeline(deps PipelineDeps) *Pipeline {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	p := &Pipeline{
		deps:    deps,
		log:     deps.Logger.With("component", "pipeline"),
		members: make(map[string]cachedMembers),
	}
	p.workers.SetLimit(deps.Config.Bot.MaxConcurrency)
	p.handle = logger.Middleware(deps.Logger)(p.process)
	return p
}

// Submit queues msg, blocking while the concurrency limit is reached.
func (p *Pipeline) Submit(ctx context.Context, msg message.Message) {
	p.workers.Go(func() error {
		p.Handle(ctx, msg)
		return nil
	})
}

// Wait blocks until every submitted message is done.
func (p *Pipeline) Wait() {
	_ = p.workers.Wait()
}

// Handle processes one message synchronously. It never panics.
func (p *Pipeline) Handle(ctx context.Context, msg message.Message) {
	defer func() {
		if r := recover(); r != nil {
			p.log.ErrorContext(ctx, "Panic while processing message", "message_id", msg.ID, "panic", r, "stack", string(debug.Stack()))
		}
	}()

	mc := message.NewContext(msg, p.deps.Transport)
	facts, err := p.resolveFacts(ctx, msg)
	if err != nil {
		p.log.ErrorContext(ctx, "Failed to resolve sender facts, dropping message", "message_id", msg.ID, "chat_id", msg.ChatID, "error", err)
		return
	}
	mc.Resolve(facts)
	mc.Used = p.deps.Parser.Parse(msg.Text)
	if mc.Used.IsCommand() {
		_, mc.Used.Known = p.deps.Registry.Resolve(mc.Used.Command)
	}

	p.handle(ctx, mc)
}

func (p *Pipeline) process(ctx context.Context, mc *message.Context) {
	log := logger.FromContext(ctx, p.log)

	if !p.deps.Chain.Run(ctx, mc) {
		return
	}

	res := p.deps.Dispatcher.Dispatch(ctx, mc)
	switch res.Outcome {
	case dispatch.NotCommand:
		p.route(ctx, mc)
	case dispatch.Suggestion:
		p.suggest(ctx, mc, res.Suggestion)
	case dispatch.Unknown:
		log.DebugContext(ctx, "Ignoring unknown command", "command", mc.Used.Command)
	}
}

func (p *Pipeline) route(ctx context.Context, mc *message.Context) {
	cfg := p.deps.Config.Intent
	if p.deps.Router == nil || !cfg.Enabled || mc.Msg.FromMe || mc.Msg.Text == "" {
		return
	}
	if mc.Msg.IsGroup && !cfg.Groups {
		return
	}
	if err := p.deps.Router.Route(ctx, mc); err != nil {
		logger.FromContext(ctx, p.log).WarnContext(ctx, "Intent routing failed", "error", err)
	}
}

// suggest answers a mistyped command with the closest match and a
// quick-reply that re-runs it with the sender's original prefix and args.
func (p *Pipeline) suggest(ctx context.Context, mc *message.Context, name string) {
	prefix := mc.Used.Prefix
	text := fmt.Sprintf(p.deps.Config.Messages.Suggestion, prefix, name)
	cmd := prefix + name
	for _, a := range mc.Used.Args {
		cmd += " " + a
	}
	buttons := []message.Button{{Label: prefix + name, Command: cmd}}
	if err := mc.Transport.SendButtons(ctx, mc.Msg, text, buttons); err != nil {
		logger.FromContext(ctx, p.log).WarnContext(ctx, "Failed to send suggestion", "error", err)
	}
}

// resolveFacts loads everything guards and permissions need about the
// sender before the chain runs.
func (p *Pipeline) resolveFacts(ctx context.Context, msg message.Message) (message.Facts, error) {
	cfg := p.deps.Config
	userID := message.User(msg.SenderID)

	f := message.Facts{
		IsOwner: msg.FromMe || cfg.Owner.IsOwner(userID),
		IsGroup: msg.IsGroup,
	}

	user, err := p.deps.Store.EnsureUser(ctx, userID, database.User{Coin: cfg.Economy.StartCoin})
	if err != nil {
		return f, fmt.Errorf("failed to load user %s: %w", userID, err)
	}
	f.IsBanned = user.Banned
	f.Coin = user.Coin
	f.IsPremium = user.Premium && (user.PremiumExpiration == 0 || user.PremiumExpiration > p.deps.Now().UnixMilli())

	if msg.IsGroup {
		members, err := p.groupMembers(ctx, msg.ChatID)
		if err != nil {
			return f, err
		}
		self := selfIDs(p.deps.Transport)
		for _, m := range members {
			if !m.IsAdmin {
				continue
			}
			if m.ID == msg.SenderID {
				f.IsAdmin = true
			}
			if self[m.ID] {
				f.IsBotAdmin = true
			}
		}
	}
	return f, nil
}

func selfIDs(t message.Transport) map[string]bool {
	ids := map[string]bool{t.SelfID(): true}
	if l, ok := t.(interface{ SelfLID() string }); ok && l.SelfLID() != "" {
		ids[l.SelfLID()] = true
	}
	return ids
}

func (p *Pipeline) groupMembers(ctx context.Context, groupID string) ([]message.Member, error) {
	now := p.deps.Now()
	p.mu.Lock()
	cached, ok := p.members[groupID]
	p.mu.Unlock()
	if ok && now.Sub(cached.fetched) < memberCacheTTL {
		return cached.members, nil
	}

	members, err := p.deps.Transport.GroupMembers(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load members of %s: %w", groupID, err)
	}
	p.mu.Lock()
	p.members[groupID] = cachedMembers{members: members, fetched: now}
	p.mu.Unlock()
	return members, nil
}

// Sweep drops cached member lists older than the cache TTL.
func (p *Pipeline) Sweep() int {
	now := p.deps.Now()
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for id, c := range p.members {
		if now.Sub(c.fetched) >= memberCacheTTL {
			delete(p.members, id)
			n++
		}
	}
	return n
}
