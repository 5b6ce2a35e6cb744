package intent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/edgard/whatsdex/internal/command"
	"github.com/edgard/whatsdex/internal/logger"
	"github.com/edgard/whatsdex/internal/message"
)

// Handler answers a classified message.
type Handler func(ctx context.Context, mc *message.Context, res Result) error

// Router sends each message to the handler registered for its label, or to
// the default handler.
type Router struct {
	classifier Classifier
	handlers   map[Label]Handler
	fallback   Handler
	log        *slog.Logger
}

// NewRouter returns a router with no handlers. The default handler does
// nothing until SetDefault is called.
func NewRouter(c Classifier, log *slog.Logger) *Router {
	if log == nil {
		log = logger.Discard()
	}
	return &Router{
		classifier: c,
		handlers:   make(map[Label]Handler),
		fallback:   func(context.Context, *message.Context, Result) error { return nil },
		log:        log.With("component", "intent_router"),
	}
}

// Handle registers h for label, replacing any previous handler.
func (r *Router) Handle(label Label, h Handler) {
	r.handlers[label] = h
}

func (r *Router) SetDefault(h Handler) {
	r.fallback = h
}

// Route classifies mc.Msg.Text and runs exactly one handler. A classifier
// error abandons the message.
func (r *Router) Route(ctx context.Context, mc *message.Context) error {
	log := logger.FromContext(ctx, r.log)

	res, err := r.classifier.Classify(ctx, mc.Msg.Text)
	if err != nil {
		log.WarnContext(ctx, "Intent classification failed", "error", err)
		return fmt.Errorf("classify intent: %w", err)
	}
	log.DebugContext(ctx, "Intent classified", "intent", res.Intent, "confidence", res.Confidence)

	h, ok := r.handlers[res.Intent]
	if !ok {
		h = r.fallback
	}
	return h(ctx, mc, res)
}

// Replies are the texts used by the standard handlers. Greeting and Farewell
// take the sender's display name; Suggestion takes a prefix and a command.
type Replies struct {
	Greeting   string
	Farewell   string
	Question   string
	Unknown    string
	Suggestion string
}

// Standard wires the built-in handlers. Command-like text and unrecognized
// labels get a did-you-mean suggestion from m when one exists.
func Standard(r *Router, replies Replies, m *command.Matcher, displayPrefix string) {
	r.Handle(Greeting, func(ctx context.Context, mc *message.Context, _ Result) error {
		return mc.Reply(ctx, fmt.Sprintf(replies.Greeting, displayName(mc.Msg)))
	})
	r.Handle(Farewell, func(ctx context.Context, mc *message.Context, _ Result) error {
		return mc.Reply(ctx, fmt.Sprintf(replies.Farewell, displayName(mc.Msg)))
	})
	r.Handle(Question, func(ctx context.Context, mc *message.Context, _ Result) error {
		return mc.Reply(ctx, replies.Question)
	})

	suggest := func(ctx context.Context, mc *message.Context, _ Result) error {
		if m != nil {
			if fields := strings.Fields(mc.Msg.Text); len(fields) > 0 {
				if s, ok := m.Suggest(fields[0]); ok {
					return mc.Reply(ctx, fmt.Sprintf(replies.Suggestion, displayPrefix, s))
				}
			}
		}
		return mc.Reply(ctx, replies.Unknown)
	}
	r.Handle(Command, suggest)
	r.SetDefault(suggest)
}

func displayName(msg message.Message) string {
	if msg.PushName != "" {
		return msg.PushName
	}
	return message.User(msg.SenderID)
}
