package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/supportbase/keel/internal/service"
)

// Sweeper periodically retires stale resolved tickets. It backs up the
// opportunistic sweep run on webhook traffic so closure still happens
// during quiet periods.
type Sweeper struct {
	threading *service.ThreadingService
	interval  time.Duration
	logger    *zap.Logger
}

// NewSweeper constructs the sweeper.
func NewSweeper(threading *service.ThreadingService, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{threading: threading, interval: interval, logger: logger}
}

// Start runs the sweep loop until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.threading.CloseStale(ctx); err != nil {
					s.logger.Error("periodic ticket sweep failed", zap.Error(err))
				}
			}
		}
	}()
}
