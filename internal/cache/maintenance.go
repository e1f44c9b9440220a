package cache

import (
	"context"
	"time"
)

// Start runs the eviction loop every half TTL. Blocks until ctx is cancelled.
func (c *TableCache) Start(ctx context.Context) {
	ticker := time.NewTicker(c.config.TTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("cache maintenance stopped")
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}
