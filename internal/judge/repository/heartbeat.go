package repository

import (
	"context"
	"time"

	"go.uber.org/zap"

	"grader/pkg/utils/logger"
)

// DefaultHeartbeatInterval is how often the store connection is pinged.
const DefaultHeartbeatInterval = 240 * time.Second

// StartHeartbeat pings the store on a fixed interval in the
// background. A failed ping is fatal: the process exits so the
// supervisor can restart it with a fresh connection.
func (r *SubmissionRepository) StartHeartbeat(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := r.db.Ping(ctx); err != nil {
					logger.Fatal(ctx, "store heartbeat failed", zap.Error(err))
				}
			}
		}
	}()
}
