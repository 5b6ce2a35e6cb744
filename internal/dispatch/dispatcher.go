package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/edgard/whatsdex/internal/command"
	"github.com/edgard/whatsdex/internal/database"
	"github.com/edgard/whatsdex/internal/logger"
	"github.com/edgard/whatsdex/internal/message"
	"github.com/edgard/whatsdex/internal/permission"
)

// Outcome classifies what Dispatch did with a message.
type Outcome int

const (
	// NotCommand means the message had no command; route it to intents.
	NotCommand Outcome = iota
	// Unknown means no command and no close match.
	Unknown
	// Suggestion means no command but a close match exists.
	Suggestion
	// Denied means a permission requirement failed.
	Denied
	// Executed means the handler ran and returned nil.
	Executed
	// Failed means the handler errored, panicked, or timed out.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case NotCommand:
		return "not_command"
	case Unknown:
		return "unknown"
	case Suggestion:
		return "suggestion"
	case Denied:
		return "denied"
	case Executed:
		return "executed"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result is returned by Dispatch.
type Result struct {
	Outcome    Outcome
	Command    *command.Descriptor
	Suggestion string
	Reason     permission.Reason
	Err        error
	Duration   time.Duration
}

// Charger debits coin balances.
type Charger interface {
	ChargeCoin(ctx context.Context, userID string, amount int64) (int64, error)
}

// Notifier tells the user about denials and handler failures.
type Notifier interface {
	NotifyDenied(ctx context.Context, mc *message.Context, reason permission.Reason)
	NotifyFailure(ctx context.Context, mc *message.Context, desc *command.Descriptor, err error)
}

// Deps wires a Dispatcher.
type Deps struct {
	Logger   *slog.Logger
	Registry *command.Registry
	Matcher  *command.Matcher
	Policy   func() permission.Policy
	Charger  Charger
	Notifier Notifier
	Timeout  time.Duration
}

// Dispatcher resolves, authorizes, and runs commands.
type Dispatcher struct {
	deps Deps
	log  *slog.Logger
}

// New returns a dispatcher. A zero Timeout means 30 seconds.
func New(deps Deps) *Dispatcher {
	if deps.Logger == nil {
		deps.Logger = logger.Discard()
	}
	if deps.Timeout <= 0 {
		deps.Timeout = 30 * time.Second
	}
	if deps.Policy == nil {
		deps.Policy = func() permission.Policy { return permission.Policy{} }
	}
	if deps.Matcher == nil {
		deps.Matcher = command.NewMatcher(deps.Registry, 0)
	}
	return &Dispatcher{deps: deps, log: deps.Logger.With("component", "dispatcher")}
}

// Dispatch handles mc.Used. Exactly one handler runs per approved command.
func (d *Dispatcher) Dispatch(ctx context.Context, mc *message.Context) Result {
	if !mc.Used.IsCommand() {
		return Result{Outcome: NotCommand}
	}
	log := logger.FromContext(ctx, d.log)

	desc, ok := d.deps.Registry.Resolve(mc.Used.Command)
	if !ok {
		if s, found := d.deps.Matcher.Suggest(mc.Used.Command); found {
			log.DebugContext(ctx, "Unknown command with suggestion", "command", mc.Used.Command, "suggestion", s)
			return Result{Outcome: Suggestion, Suggestion: s}
		}
		log.DebugContext(ctx, "Unknown command", "command", mc.Used.Command)
		return Result{Outcome: Unknown}
	}

	decision := permission.Evaluate(desc.Permissions, mc.Facts(), d.deps.Policy())
	if !decision.Allowed {
		log.InfoContext(ctx, "Command denied", "command", desc.Name, "reason", decision.Reason)
		d.notifyDenied(ctx, mc, decision.Reason)
		return Result{Outcome: Denied, Command: desc, Reason: decision.Reason}
	}

	if decision.Charge > 0 && d.deps.Charger != nil {
		if _, err := d.deps.Charger.ChargeCoin(ctx, message.User(mc.Msg.SenderID), decision.Charge); err != nil {
			if errors.Is(err, database.ErrInsufficientCoin) {
				d.notifyDenied(ctx, mc, permission.ReasonCoin)
				return Result{Outcome: Denied, Command: desc, Reason: permission.ReasonCoin}
			}
			log.ErrorContext(ctx, "Failed to charge coin, abandoning command", "command", desc.Name, "error", err)
			return Result{Outcome: Failed, Command: desc, Err: err}
		}
	}

	start := time.Now()
	err := d.invoke(ctx, desc, mc)
	res := Result{Outcome: Executed, Command: desc, Duration: time.Since(start)}
	if err != nil {
		res.Outcome, res.Err = Failed, err
		log.ErrorContext(ctx, "Command handler failed", "command", desc.Name, "duration", res.Duration, "error", err)
		if !desc.SuppressErrorReply && d.deps.Notifier != nil {
			d.deps.Notifier.NotifyFailure(ctx, mc, desc, err)
		}
		return res
	}
	log.InfoContext(ctx, "Command executed", "command", desc.Name, "duration", res.Duration)
	return res
}

func (d *Dispatcher) notifyDenied(ctx context.Context, mc *message.Context, reason permission.Reason) {
	if d.deps.Notifier != nil {
		d.deps.Notifier.NotifyDenied(ctx, mc, reason)
	}
}

// invoke runs the handler on its own goroutine so a handler that ignores
// its context cannot hold the caller past the timeout.
func (d *Dispatcher) invoke(ctx context.Context, desc *command.Descriptor, mc *message.Context) error {
	hctx, cancel := context.WithTimeout(ctx, d.deps.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("handler %s panicked: %v\n%s", desc.Name, r, debug.Stack())
			}
		}()
		done <- desc.Handler(hctx, mc)
	}()

	select {
	case err := <-done:
		return err
	case <-hctx.Done():
		return fmt.Errorf("handler %s: %w", desc.Name, hctx.Err())
	}
}
