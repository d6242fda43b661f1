package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"microiaas"
)

// Defaults applied when the operator leaves a field empty.
const (
	DefaultImage       = "ubuntu:latest"
	DefaultCPULimit    = "1"
	DefaultMemoryLimit = "1g"
)

const (
	actionCreated      = "Container Created"
	actionCreateFailed = "Container Creation Failed"
)

// Create provisions a new rented sandbox: engine container created and
// started, rental row inserted with status running. Uniqueness is enforced
// against the engine's live listing — the engine owns runtime identity, the
// ledger merely records history (a deleted rental does not reserve its name).
//
// A missing image triggers one explicit pull followed by exactly one retry.
// On any failure no rental row is written; every attempt that reaches the
// engine leaves one activity entry.
func (r *Reconciler) Create(ctx context.Context, spec microiaas.CreateSpec) (Result, error) {
	spec.Name = strings.TrimSpace(spec.Name)
	spec.Tenant = strings.TrimSpace(spec.Tenant)
	if spec.Name == "" || spec.Tenant == "" {
		// Rejected before touching engine or ledger; deliberately unaudited.
		return Result{}, microiaas.Classify(microiaas.ErrValidation,
			errors.New("container name and tenant are required"))
	}
	if spec.Image == "" {
		spec.Image = DefaultImage
	}
	if spec.CPULimit == "" {
		spec.CPULimit = DefaultCPULimit
	}
	if spec.MemoryLimit == "" {
		spec.MemoryLimit = DefaultMemoryLimit
	}

	existing, err := r.Engine.List(ctx, true)
	if err != nil {
		r.audit(ctx, actionCreateFailed, spec.Name, spec.Tenant, microiaas.OutcomeError, err.Error())
		return Result{}, err
	}
	for _, c := range existing {
		if c.Name == spec.Name {
			err := microiaas.Classify(microiaas.ErrNameCollision,
				fmt.Errorf("container name %q is already in use", spec.Name))
			r.audit(ctx, actionCreateFailed, spec.Name, spec.Tenant, microiaas.OutcomeError, err.Error())
			return Result{}, err
		}
	}

	id, err := r.Engine.Create(ctx, spec)
	if errors.Is(err, microiaas.ErrImageUnavailable) {
		slog.Info("image missing, pulling and retrying", "image", spec.Image, "container", spec.Name)
		if pullErr := r.Engine.PullImage(ctx, spec.Image); pullErr != nil {
			r.audit(ctx, actionCreateFailed, spec.Name, spec.Tenant, microiaas.OutcomeError, pullErr.Error())
			return Result{}, pullErr
		}
		id, err = r.Engine.Create(ctx, spec)
	}
	if err != nil {
		r.audit(ctx, actionCreateFailed, spec.Name, spec.Tenant, microiaas.OutcomeError, err.Error())
		return Result{}, err
	}

	if err := r.Engine.Start(ctx, id); err != nil {
		r.audit(ctx, actionCreateFailed, spec.Name, spec.Tenant, microiaas.OutcomeError,
			fmt.Sprintf("created but failed to start: %v", err))
		return Result{}, err
	}

	now := r.now()
	res := Result{Message: fmt.Sprintf("container %s created and running", spec.Name)}
	rental := microiaas.Rental{
		ContainerName: spec.Name,
		Tenant:        spec.Tenant,
		Description:   spec.Description,
		Status:        microiaas.StatusRunning,
		Image:         spec.Image,
		CPULimit:      spec.CPULimit,
		MemoryLimit:   spec.MemoryLimit,
		CreatedAt:     now,
		UptimeStart:   &now,
		LastActivity:  now,
	}
	if err := r.Ledger.InsertRental(ctx, rental); err != nil {
		slog.Warn("rental ledger write after engine create", "container", spec.Name, "err", err)
		res.Warning = fmt.Sprintf("container is running but the rental ledger write failed: %v", err)
	}
	r.audit(ctx, actionCreated, spec.Name, spec.Tenant, microiaas.OutcomeSuccess,
		fmt.Sprintf("Image: %s, CPU: %s, Memory: %s", spec.Image, spec.CPULimit, spec.MemoryLimit))
	return res, nil
}
