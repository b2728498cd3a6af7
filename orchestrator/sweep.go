package orchestrator

import (
	"context"
	"time"
)

// defaultRetention matches the step graph's documented retention window:
// a completed request and its artifacts are eligible for cleanup 24h
// after the graph last changed.
const defaultRetention = 24 * time.Hour

// StartCleanupSweep runs a background ticker that removes completed step
// graphs (and their artifacts) older than maxAge, at the given interval.
// Pass maxAge <= 0 for the default 24h retention. The goroutine exits when
// ctx is cancelled.
func (o *Orchestrator) StartCleanupSweep(ctx context.Context, interval, maxAge time.Duration) {
	if maxAge <= 0 {
		maxAge = defaultRetention
	}
	if interval <= 0 {
		interval = time.Hour
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				o.logger.Error("cleanup sweep panicked", map[string]interface{}{"recover": r})
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				o.sweepOnce(ctx, maxAge)
			}
		}
	}()
}

func (o *Orchestrator) sweepOnce(ctx context.Context, maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge)

	o.mu.RLock()
	var expired []string
	for id, g := range o.active {
		if g.IsComplete() && g.UpdatedAt.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	o.mu.RUnlock()

	for _, id := range expired {
		if _, err := o.Cleanup(ctx, id); err != nil {
			o.logger.Warn("cleanup sweep failed for request", map[string]interface{}{
				"request_id": id,
				"error":      err.Error(),
			})
		}
	}
}
