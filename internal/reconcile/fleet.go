package reconcile

import (
	"context"
	"log/slog"
	"time"

	"microiaas"
	"microiaas/internal/stats"
)

// FleetEntry is one live container enriched for display.
type FleetEntry struct {
	Container     microiaas.Container `json:"container"`
	Usage         microiaas.Usage     `json:"usage"`
	UptimeSeconds int64               `json:"uptime_seconds"`
}

// ListFleet returns the engine's current containers enriched with derived
// utilization and uptime. Stats are best-effort: a container whose sample
// cannot be fetched shows all-zero usage rather than failing the listing.
func (r *Reconciler) ListFleet(ctx context.Context, includeStopped bool) ([]FleetEntry, error) {
	containers, err := r.Engine.List(ctx, includeStopped)
	if err != nil {
		return nil, err
	}

	now := r.now()
	out := make([]FleetEntry, 0, len(containers))
	for _, c := range containers {
		entry := FleetEntry{Container: c}
		if !c.Created.IsZero() {
			entry.UptimeSeconds = int64(now.Sub(c.Created) / time.Second)
		}
		if raw, err := r.Engine.RawStats(ctx, c.ID); err != nil {
			slog.Debug("container stats unavailable", "container", c.Name, "err", err)
		} else {
			entry.Usage = stats.Summarize(raw)
		}
		out = append(out, entry)
	}
	return out, nil
}

// ContainerStats returns the point utilization payload for one container.
// An unresolved id is an error (the panel polls by id and needs the 404);
// a resolved container whose sample fails yields the zero Usage.
func (r *Reconciler) ContainerStats(ctx context.Context, id string) (microiaas.Usage, error) {
	c, err := r.Engine.Get(ctx, id)
	if err != nil {
		return microiaas.Usage{}, err
	}
	raw, err := r.Engine.RawStats(ctx, c.ID)
	if err != nil {
		slog.Debug("container stats unavailable", "container", c.Name, "err", err)
		return microiaas.Usage{}, nil
	}
	return stats.Summarize(raw), nil
}

// Logs returns the last tail lines of a container's output.
func (r *Reconciler) Logs(ctx context.Context, id string, tail int) (string, error) {
	return r.Engine.Logs(ctx, id, tail)
}

// Counts partitions the live fleet into running/stopped/other and returns
// the totals without persisting anything.
func (r *Reconciler) Counts(ctx context.Context) (microiaas.SystemSnapshot, error) {
	containers, err := r.Engine.List(ctx, true)
	if err != nil {
		return microiaas.SystemSnapshot{}, err
	}
	snap := microiaas.SystemSnapshot{TakenAt: r.now(), Total: len(containers)}
	for _, c := range containers {
		switch c.State {
		case "running":
			snap.Running++
		case "exited":
			snap.Stopped++
		}
	}
	return snap, nil
}

// SnapshotFleet takes a Counts sample and appends it to the snapshot series.
// Persistence failures are logged, never escalated: the snapshot series is
// purely additive and must not fail its caller.
func (r *Reconciler) SnapshotFleet(ctx context.Context) (microiaas.SystemSnapshot, error) {
	snap, err := r.Counts(ctx)
	if err != nil {
		return microiaas.SystemSnapshot{}, err
	}
	if err := r.Ledger.InsertSnapshot(ctx, snap); err != nil {
		slog.Warn("persist system snapshot", "err", err)
	}
	return snap, nil
}
