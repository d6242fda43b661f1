package reconcile

import (
	"context"
	"log/slog"
	"time"
)

// defaultSnapshotInterval is 5m: frequent enough for a usable utilization
// history, sparse enough to keep the snapshot table small.
const defaultSnapshotInterval = 5 * time.Minute

// Snapshotter periodically persists fleet-count snapshots. It is a separate
// timer-driven worker so the reconciler's read paths stay free of hidden
// writes.
type Snapshotter struct {
	Reconciler *Reconciler
	Interval   time.Duration
}

// Run takes one snapshot immediately, then one per interval, until ctx is
// cancelled. Snapshot failures are logged and the loop keeps going.
func (s *Snapshotter) Run(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = defaultSnapshotInterval
	}

	s.snapshot(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.snapshot(ctx)
		}
	}
}

func (s *Snapshotter) snapshot(ctx context.Context) {
	if _, err := s.Reconciler.SnapshotFleet(ctx); err != nil {
		slog.Warn("fleet snapshot", "err", err)
	}
}
