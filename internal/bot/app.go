package bot

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/edgard/whatsdex/internal/bot/handlers"
	"github.com/edgard/whatsdex/internal/bot/tasks"
	"github.com/edgard/whatsdex/internal/command"
	"github.com/edgard/whatsdex/internal/config"
	"github.com/edgard/whatsdex/internal/database"
	"github.com/edgard/whatsdex/internal/dispatch"
	"github.com/edgard/whatsdex/internal/gemini"
	"github.com/edgard/whatsdex/internal/intent"
	"github.com/edgard/whatsdex/internal/message"
	"github.com/edgard/whatsdex/internal/middleware"
	"github.com/edgard/whatsdex/internal/permission"
)

// AppDeps are the external collaborators the core is assembled around.
type AppDeps struct {
	Logger    *slog.Logger
	Config    *config.Config
	Store     database.Store
	Transport message.Transport
	// Gemini is optional. When set it fronts the rule classifier if
	// gemini.enabled, and the rule safety analyzer if gemini.safety. The
	// rule implementations answer whenever a Gemini call fails.
	Gemini *gemini.Client
	Now    func() time.Time
}

// App holds the assembled core.
type App struct {
	Registry   *command.Registry
	Matcher    *command.Matcher
	Mutes      *middleware.MuteRegistry
	Cooldown   *middleware.Cooldown
	Chain      *middleware.Chain
	Dispatcher *dispatch.Dispatcher
	Router     *intent.Router
	Pipeline   *Pipeline
	Scheduler  *Scheduler

	log *slog.Logger
}

// NewRegistry returns a registry holding every built-in command, using the
// configured case sensitivity.
func NewRegistry(deps handlers.HandlerDeps) (*command.Registry, error) {
	var opts []command.Option
	if deps.Config.Bot.CaseSensitive {
		opts = append(opts, command.WithNormalizer(command.Exact))
	}
	reg := command.NewRegistry(opts...)
	if err := handlers.Register(reg, deps); err != nil {
		return nil, fmt.Errorf("failed to register commands: %w", err)
	}
	return reg, nil
}

// NewApp builds every component. Registration and prefix errors are fatal.
func NewApp(deps AppDeps) (*App, error) {
	cfg, log := deps.Config, deps.Logger
	if deps.Now == nil {
		deps.Now = time.Now
	}

	mutes := middleware.NewMuteRegistry(deps.Store)
	cooldown := middleware.NewCooldown(cfg.RateLimit.Cooldown, cfg.RateLimit.IdleTTL, cfg.RateLimit.MaxKeys)

	var safety middleware.SafetyAnalyzer = middleware.NewRuleAnalyzer(cfg.Moderation.MaxTextLength)
	if deps.Gemini != nil && cfg.Gemini.Safety {
		safety = middleware.FallbackAnalyzer{Primary: deps.Gemini, Secondary: safety, Log: log}
	}
	chain := middleware.NewChain(log, middleware.DefaultGuards(middleware.Deps{
		Logger:   log,
		Config:   cfg,
		Store:    deps.Store,
		Mutes:    mutes,
		Cooldown: cooldown,
		Safety:   safety,
		Now:      deps.Now,
	})...)

	registry, err := NewRegistry(handlers.HandlerDeps{
		Logger:    log,
		Config:    cfg,
		Store:     deps.Store,
		Mutes:     mutes,
		Guards:    chain.Names(),
		StartTime: deps.Now(),
		Now:       deps.Now,
	})
	if err != nil {
		return nil, err
	}
	matcher := command.NewMatcher(registry, cfg.Bot.SuggestMaxDistance)

	parser, err := dispatch.NewParser(cfg.Bot.Prefix)
	if err != nil {
		return nil, fmt.Errorf("invalid command prefix: %w", err)
	}

	dispatcher := dispatch.New(dispatch.Deps{
		Logger:   log,
		Registry: registry,
		Matcher:  matcher,
		Policy: func() permission.Policy {
			return permission.Policy{Restricted: cfg.Bot.Restrict, UseCoin: cfg.Economy.UseCoin}
		},
		Charger:  deps.Store,
		Notifier: NewNotifier(log, cfg, deps.Store),
		Timeout:  cfg.Bot.HandlerTimeout,
	})

	var router *intent.Router
	if cfg.Intent.Enabled {
		var classifier intent.Classifier = intent.RuleClassifier{IsCommand: func(token string) bool {
			_, ok := registry.Resolve(token)
			return ok
		}}
		if deps.Gemini != nil && cfg.Gemini.Enabled {
			classifier = intent.Fallback{Primary: deps.Gemini, Secondary: classifier, Log: log}
		}
		router = intent.NewRouter(classifier, log)
		intent.Standard(router, intent.Replies{
			Greeting:   cfg.Messages.Greeting,
			Farewell:   cfg.Messages.Farewell,
			Question:   cfg.Messages.Question,
			Unknown:    cfg.Messages.Unknown,
			Suggestion: cfg.Messages.Suggestion,
		}, matcher, cfg.Bot.DisplayPrefix)
	}

	pipeline := NewPipeline(PipelineDeps{
		Logger:     log,
		Config:     cfg,
		Store:      deps.Store,
		Transport:  deps.Transport,
		Parser:     parser,
		Registry:   registry,
		Chain:      chain,
		Dispatcher: dispatcher,
		Router:     router,
		Now:        deps.Now,
	})

	taskMap := tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger:   log,
		Store:    deps.Store,
		Config:   cfg,
		Sweepers: map[string]tasks.Sweeper{"cooldown": cooldown, "members": pipeline},
		Now:      deps.Now,
	})
	scheduler, err := NewScheduler(log, &cfg.Scheduler, taskMap)
	if err != nil {
		return nil, err
	}

	log.Info("Core assembled", "commands", registry.Len(), "guards", len(chain.Names()), "intent", router != nil)

	return &App{
		Registry:   registry,
		Matcher:    matcher,
		Mutes:      mutes,
		Cooldown:   cooldown,
		Chain:      chain,
		Dispatcher: dispatcher,
		Router:     router,
		Pipeline:   pipeline,
		Scheduler:  scheduler,
		log:        log,
	}, nil
}

// Bot returns the runnable bot fed by listener.
func (a *App) Bot(listener Listener) *Bot {
	return NewBot(a.log, listener, a.Pipeline, a.Scheduler, a.Mutes)
}
