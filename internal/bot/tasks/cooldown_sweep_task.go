package tasks

import "context"

// newCooldownSweepTask evicts idle rate-limit entries and stale caches.
func newCooldownSweepTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", CooldownSweep)

	return func(ctx context.Context) error {
		for name, s := range deps.Sweepers {
			if err := ctx.Err(); err != nil {
				return err
			}
			if n := s.Sweep(); n > 0 {
				log.DebugContext(ctx, "Swept idle entries", "cache", name, "evicted", n)
			}
		}
		return nil
	}
}
