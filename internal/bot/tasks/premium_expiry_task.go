package tasks

import (
	"context"
	"fmt"
)

// newPremiumExpiryTask revokes premium from users whose expiration passed.
func newPremiumExpiryTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", PremiumExpiry)

	return func(ctx context.Context) error {
		n, err := deps.Store.ExpirePremium(ctx, deps.now())
		if err != nil {
			return fmt.Errorf("premium expiry failed: %w", err)
		}
		if n > 0 {
			log.InfoContext(ctx, "Expired premium users", "count", n)
		}
		return nil
	}
}
