// Package bot wires the message pipeline, the scheduler and the WhatsApp
// connection together and manages their lifecycle.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/edgard/whatsdex/internal/message"
	"github.com/edgard/whatsdex/internal/middleware"
)

// Listener delivers inbound messages until ctx is cancelled.
type Listener interface {
	Run(ctx context.Context, h func(ctx context.Context, msg message.Message)) error
}

// Bot represents the main bot application and manages its components' lifecycle.
type Bot struct {
	logger    *slog.Logger
	listener  Listener
	pipeline  *Pipeline
	scheduler *Scheduler
	mutes     *middleware.MuteRegistry
}

// NewBot creates a new instance of the bot with all required dependencies.
func NewBot(
	logger *slog.Logger,
	listener Listener,
	pipeline *Pipeline,
	scheduler *Scheduler,
	mutes *middleware.MuteRegistry,
) *Bot {
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		listener:  listener,
		pipeline:  pipeline,
		scheduler: scheduler,
		mutes:     mutes,
	}
}

// Run starts the bot and all its components, handling graceful shutdown on context cancellation.
// It returns an error if any component fails during startup or execution.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	if b.mutes != nil {
		n, err := b.mutes.Warm(ctx)
		if err != nil {
			return fmt.Errorf("failed to load mutes: %w", err)
		}
		b.logger.Info("Loaded persisted mutes", "count", n)
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Starting WhatsApp listener...")
		err := b.listener.Run(gCtx, b.pipeline.Submit)

		b.logger.Info("WhatsApp listener stopped, draining in-flight messages...")
		b.pipeline.Wait()

		if err != nil {
			return fmt.Errorf("whatsapp listener failed: %w", err)
		}
		if gCtx.Err() == nil {
			b.logger.Warn("WhatsApp listener stopped unexpectedly without context cancellation.")
			return fmt.Errorf("whatsapp listener stopped unexpectedly")
		}
		return nil
	})

	g.Go(func() error {
		b.logger.Info("Starting scheduler...")
		if err := b.scheduler.Start(); err != nil {
			b.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}

		return nil
	})

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}
