package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type sweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// runCleanup sweeps expired entries every freq until stopCh is closed
func runCleanup(s sweeper, freq time.Duration, stopCh <-chan struct{}, now func() time.Time, logger *zap.Logger) {
	ticker := time.NewTicker(freq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.Sweep(context.Background(), now()); err != nil {
				logger.Error("Failed to clean up cache", zap.Error(err))
			}
		case <-stopCh:
			return
		}
	}
}
