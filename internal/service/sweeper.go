package service

import (
	"context"
	"log/slog"
	"time"

	"nexus/internal/middleware"
	"nexus/internal/observability"
)

// Sweeper periodically deletes networks whose suspension window lapsed.
// Runs are strictly sequential; a slow sweep delays the next tick instead
// of overlapping with it.
type Sweeper struct {
	interval time.Duration
	cleanup  func(ctx context.Context) (int, error)
}

// NewSweeper returns a sweeper invoking cleanup every interval.
func NewSweeper(interval time.Duration, cleanup func(ctx context.Context) (int, error)) *Sweeper {
	return &Sweeper{interval: interval, cleanup: cleanup}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	observability.SweepRuns.Inc()

	deleted, err := s.cleanup(ctx)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "suspension sweep failed", slog.String("error", err.Error()))
		return
	}
	if deleted > 0 {
		middleware.Logger.InfoContext(ctx, "suspension sweep deleted networks", slog.Int("count", deleted))
	}
}
