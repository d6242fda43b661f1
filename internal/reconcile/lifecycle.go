package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"microiaas"
)

// lifecycleOp describes one engine lifecycle verb and the ledger write that
// follows it.
type lifecycleOp struct {
	okAction   string
	failAction string
	doneVerb   string // past tense for the user-facing message
	engine     func(ctx context.Context, e Engine, id string) error
	ledger     func(ctx context.Context, l Ledger, name string, now time.Time) error
}

var (
	opStart = lifecycleOp{
		okAction:   "Container Started",
		failAction: "Container Start Failed",
		doneVerb:   "started",
		engine:     func(ctx context.Context, e Engine, id string) error { return e.Start(ctx, id) },
		ledger: func(ctx context.Context, l Ledger, name string, now time.Time) error {
			return l.UpdateStatusAndUptimeStart(ctx, name, microiaas.StatusRunning, now)
		},
	}
	opStop = lifecycleOp{
		okAction:   "Container Stopped",
		failAction: "Container Stop Failed",
		doneVerb:   "stopped",
		engine:     func(ctx context.Context, e Engine, id string) error { return e.Stop(ctx, id) },
		ledger: func(ctx context.Context, l Ledger, name string, now time.Time) error {
			// Stop never touches uptime_start: the last run's start stays on record.
			return l.UpdateStatus(ctx, name, microiaas.StatusStopped, now)
		},
	}
	opRestart = lifecycleOp{
		okAction:   "Container Restarted",
		failAction: "Container Restart Failed",
		doneVerb:   "restarted",
		engine:     func(ctx context.Context, e Engine, id string) error { return e.Restart(ctx, id) },
		ledger: func(ctx context.Context, l Ledger, name string, now time.Time) error {
			return l.UpdateStatusAndUptimeStart(ctx, name, microiaas.StatusRunning, now)
		},
	}
	opDelete = lifecycleOp{
		okAction:   "Container Deleted",
		failAction: "Container Delete Failed",
		doneVerb:   "deleted",
		engine:     func(ctx context.Context, e Engine, id string) error { return e.Remove(ctx, id, true) },
		ledger: func(ctx context.Context, l Ledger, name string, now time.Time) error {
			// Row retained with status deleted; history outlives the container.
			return l.UpdateStatus(ctx, name, microiaas.StatusDeleted, now)
		},
	}
)

// Start starts a stopped container and marks its rental running, resetting
// the uptime start.
func (r *Reconciler) Start(ctx context.Context, id, actor string) (Result, error) {
	return r.lifecycle(ctx, id, actor, opStart)
}

// Stop stops a running container and marks its rental stopped.
func (r *Reconciler) Stop(ctx context.Context, id, actor string) (Result, error) {
	return r.lifecycle(ctx, id, actor, opStop)
}

// Restart restarts a container and resets the rental's uptime start.
func (r *Reconciler) Restart(ctx context.Context, id, actor string) (Result, error) {
	return r.lifecycle(ctx, id, actor, opRestart)
}

// Delete force-removes a container regardless of run state and marks its
// rental deleted. The rental row is kept for history.
func (r *Reconciler) Delete(ctx context.Context, id, actor string) (Result, error) {
	return r.lifecycle(ctx, id, actor, opDelete)
}

// lifecycle resolves the target, runs the engine verb, then updates the
// ledger. Ordering matters: the engine call is authoritative, the ledger
// write is compensating. NotFound never touches the ledger's rental rows;
// the attempt is still audited (with an empty container name, since the
// identity never resolved).
func (r *Reconciler) lifecycle(ctx context.Context, id, actor string, op lifecycleOp) (Result, error) {
	c, err := r.Engine.Get(ctx, id)
	if err != nil {
		r.audit(ctx, op.failAction, "", actor, microiaas.OutcomeError,
			fmt.Sprintf("container %s: %v", id, err))
		return Result{}, err
	}

	if err := op.engine(ctx, r.Engine, c.ID); err != nil {
		r.audit(ctx, op.failAction, c.Name, actor, microiaas.OutcomeError, err.Error())
		return Result{}, err
	}

	res := Result{Message: fmt.Sprintf("container %s %s", c.Name, op.doneVerb)}
	detail := fmt.Sprintf("ID: %s", c.ID)
	if err := op.ledger(ctx, r.Ledger, c.Name, r.now()); err != nil {
		slog.Warn("ledger update after engine operation",
			"action", op.okAction, "container", c.Name, "err", err)
		res.Warning = fmt.Sprintf("engine operation succeeded but the ledger update failed: %v", err)
		detail = fmt.Sprintf("ID: %s; ledger update failed: %v", c.ID, err)
	}
	r.audit(ctx, op.okAction, c.Name, actor, microiaas.OutcomeSuccess, detail)
	return res, nil
}
