package handlers

import (
	"log/slog"
	"time"

	"github.com/edgard/whatsdex/internal/command"
	"github.com/edgard/whatsdex/internal/config"
	"github.com/edgard/whatsdex/internal/database"
	"github.com/edgard/whatsdex/internal/middleware"
)

// HandlerDeps provides dependencies for chat command handlers.
type HandlerDeps struct {
	Logger   *slog.Logger
	Config   *config.Config
	Store    database.Store
	Mutes    *middleware.MuteRegistry
	Registry *command.Registry
	// Guards are the guard names in chain order, reported by diag.
	Guards    []string
	StartTime time.Time
	Now       func() time.Time
}

func (d HandlerDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
