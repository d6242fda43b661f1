package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"microiaas"
)

// BulkAction is one lifecycle verb applied across a set of containers.
type BulkAction string

const (
	BulkStart   BulkAction = "start"
	BulkStop    BulkAction = "stop"
	BulkRestart BulkAction = "restart"
	BulkDelete  BulkAction = "delete"
)

// BulkResult reports aggregate counts. A batch is never all-or-nothing:
// partial success is the expected shape, so there is no single pass/fail
// verdict here.
type BulkResult struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Bulk applies one action to each identifier in order. Duplicates are
// processed independently. A failing item is counted and skipped; it never
// prevents the remaining items from being attempted. Each item goes through
// the corresponding single-container operation and therefore carries its own
// audit entry.
func (r *Reconciler) Bulk(ctx context.Context, action BulkAction, ids []string, actor string) (BulkResult, error) {
	switch action {
	case BulkStart, BulkStop, BulkRestart, BulkDelete:
	default:
		return BulkResult{}, microiaas.Classify(microiaas.ErrValidation,
			fmt.Errorf("unknown bulk action %q", action))
	}

	var res BulkResult
	for _, id := range ids {
		var err error
		switch action {
		case BulkStart:
			_, err = r.Start(ctx, id, actor)
		case BulkStop:
			_, err = r.Stop(ctx, id, actor)
		case BulkRestart:
			_, err = r.Restart(ctx, id, actor)
		case BulkDelete:
			_, err = r.Delete(ctx, id, actor)
		}
		if err != nil {
			res.Failed++
			slog.Warn("bulk item failed", "action", action, "container", id, "err", err)
			continue
		}
		res.Succeeded++
	}
	return res, nil
}
