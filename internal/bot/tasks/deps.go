// Package tasks implements the bot's scheduled tasks. It includes task
// definitions, dependencies, and registration mechanisms.
package tasks

import (
	"log/slog"
	"time"

	"github.com/edgard/whatsdex/internal/config"
	"github.com/edgard/whatsdex/internal/database"
)

// Sweeper drops expired entries from an in-memory cache and reports how
// many it removed.
type Sweeper interface {
	Sweep() int
}

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
	Config *config.Config
	// Sweepers are the caches swept by the cooldown_sweep task, by name.
	Sweepers map[string]Sweeper
	Now      func() time.Time
}

func (d TaskDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
