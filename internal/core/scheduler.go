package core

// scheduler.go runs the periodic retention sweep.
//
// Previews that were never submitted and operations whose results were
// never collected would otherwise accumulate forever. The scheduler is
// long-running and context-aware for graceful shutdown; a sweep that
// removes nothing is logged at debug only.

import (
	"context"
	"log/slog"
	"time"
)

// StartSweepScheduler starts a background loop that sweeps expired
// previews and operations. It runs immediately on start, then every
// interval, and stops when the context is cancelled.
func (s *Service) StartSweepScheduler(ctx context.Context, interval time.Duration) {
	slog.Info("sweep scheduler started",
		"interval", interval,
		"preview_max_age", s.cfg.Retention.PreviewMaxAge,
		"operation_max_age", s.cfg.Retention.OperationMaxAge,
	)

	s.runSweep()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("sweep scheduler stopped")
			return
		case <-ticker.C:
			s.runSweep()
		}
	}
}

// runSweep performs one sweep cycle.
func (s *Service) runSweep() {
	start := time.Now()
	previews, operations := s.Sweep()

	if previews == 0 && operations == 0 {
		slog.Debug("sweep completed, nothing expired")
		return
	}
	slog.Info("sweep completed",
		"previews_removed", previews,
		"operations_removed", operations,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
