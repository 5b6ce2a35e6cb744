package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/edgard/whatsdex/internal/bot"
	"github.com/edgard/whatsdex/internal/config"
	"github.com/edgard/whatsdex/internal/database"
	"github.com/edgard/whatsdex/internal/gemini"
	"github.com/edgard/whatsdex/internal/logger"
	"github.com/edgard/whatsdex/internal/whatsapp"
)

// run initializes every component (config, logger, db, gemini, whatsapp,
// core, scheduler), blocks until ctx is cancelled or a component fails, and
// returns an exit code (0 for success, 1 for failure).
func run(ctx context.Context) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db) // Ensure DB is closed on function exit
	store := database.NewStore(db, log)

	var gemClient *gemini.Client
	if cfg.Gemini.Enabled || cfg.Gemini.Safety {
		gemClient, err = gemini.NewClient(ctx, cfg.Gemini, log)
		if err != nil {
			log.Error("Failed to initialize Gemini client", "error", err)
			return 1
		}
	}

	wa, err := whatsapp.New(ctx, cfg.Session, log)
	if err != nil {
		log.Error("Failed to open WhatsApp session", "path", cfg.Session.Path, "error", err)
		return 1
	}
	defer wa.Close()

	app, err := bot.NewApp(bot.AppDeps{
		Logger:    log,
		Config:    cfg,
		Store:     store,
		Transport: wa,
		Gemini:    gemClient,
	})
	if err != nil {
		log.Error("Failed to assemble bot", "error", err)
		return 1
	}

	log.Info("Starting bot...")
	runErr := app.Bot(wa).Run(ctx) // Run blocks until context is cancelled or an error occurs
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		// Allow logs to flush before exiting on error
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	return 0
}
