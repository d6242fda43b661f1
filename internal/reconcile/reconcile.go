// Package reconcile orchestrates every lifecycle operation on the sandbox
// fleet. It is the only component allowed to straddle the engine gateway and
// the rental ledger: each operation validates its input, drives the engine,
// then brings the ledger in line with what the engine did.
//
// The two stores are independently mutable and there is no cross-store
// transaction. The engine is authoritative: when the ledger write after a
// successful engine action fails, the engine action is never undone — the
// divergence is reported as a Result warning and logged.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"microiaas"
)

// Engine is the runtime gateway surface the reconciler needs. Implemented by
// the docker adapter and by the in-memory fake.
type Engine interface {
	List(ctx context.Context, includeStopped bool) ([]microiaas.Container, error)
	Get(ctx context.Context, id string) (microiaas.Container, error)
	Create(ctx context.Context, spec microiaas.CreateSpec) (string, error)
	Start(ctx context.Context, id string) error
	Stop(ctx context.Context, id string) error
	Restart(ctx context.Context, id string) error
	Remove(ctx context.Context, id string, force bool) error
	PullImage(ctx context.Context, image string) error
	RawStats(ctx context.Context, id string) (microiaas.RawStats, error)
	Logs(ctx context.Context, id string, tail int) (string, error)
}

// Ledger is the persistence surface the reconciler needs.
type Ledger interface {
	InsertRental(ctx context.Context, r microiaas.Rental) error
	UpdateStatus(ctx context.Context, name string, status microiaas.Status, now time.Time) error
	UpdateStatusAndUptimeStart(ctx context.Context, name string, status microiaas.Status, now time.Time) error
	ListRecent(ctx context.Context, limit int) ([]microiaas.Rental, error)
	AppendActivity(ctx context.Context, e microiaas.ActivityEntry) error
	ListRecentActivity(ctx context.Context, limit int) ([]microiaas.ActivityEntry, error)
	InsertSnapshot(ctx context.Context, s microiaas.SystemSnapshot) error
	ListRecentSnapshots(ctx context.Context, limit int) ([]microiaas.SystemSnapshot, error)
}

// Result is the outcome of one reconciler operation. Warning is set when the
// primary engine action succeeded but the secondary ledger write failed —
// the documented inconsistency window, reported rather than rolled back.
type Result struct {
	Message string `json:"message"`
	Warning string `json:"warning,omitempty"`
}

// Reconciler drives lifecycle operations against an injected engine and
// ledger. The zero Clock means real time.
type Reconciler struct {
	Engine Engine
	Ledger Ledger
	Clock  microiaas.Clock
}

// New creates a Reconciler on the real clock.
func New(e Engine, l Ledger) *Reconciler {
	return &Reconciler{Engine: e, Ledger: l, Clock: microiaas.RealClock{}}
}

func (r *Reconciler) now() time.Time {
	if r.Clock != nil {
		return r.Clock.Now()
	}
	return time.Now().UTC()
}

// audit appends one activity entry. Audit failures are logged and swallowed:
// the audit trail must never turn a completed operation into a failure, and
// there is nowhere to audit a broken audit store.
func (r *Reconciler) audit(ctx context.Context, action, name, actor string, outcome microiaas.Outcome, detail string) {
	e := microiaas.ActivityEntry{
		Action:        action,
		ContainerName: name,
		Actor:         actor,
		Outcome:       outcome,
		Detail:        detail,
		OccurredAt:    r.now(),
	}
	if err := r.Ledger.AppendActivity(ctx, e); err != nil {
		slog.Warn("append activity entry", "action", action, "container", name, "err", err)
	}
}
