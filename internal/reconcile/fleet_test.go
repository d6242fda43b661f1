package reconcile

import (
	"context"
	"errors"
	"testing"

	"microiaas"
	"microiaas/internal/adapter/fake"
)

// sampleRaw is a two-point counter sample that summarizes to nonzero usage:
// 20% CPU over two cores, 512 of 1024 MB.
var sampleRaw = microiaas.RawStats{
	CPUTotal:     200,
	PreCPUTotal:  100,
	SystemCPU:    2000,
	PreSystemCPU: 1000,
	OnlineCPUs:   2,
	MemoryUsage:  512 << 20,
	MemoryLimit:  1 << 30,
}

func TestListFleetStatsErrorYieldsZeroUsage(t *testing.T) {
	engine := fake.NewEngine()
	r, _, clock := newTestReconciler(engine)
	idA := seedRental(engine, fake.NewLedger(), "boxA", true, clock.Now())
	seedRental(engine, fake.NewLedger(), "boxB", true, clock.Now())
	engine.SetRawStats("boxB", sampleRaw)
	engine.RawStatsErr = func(ctx context.Context, id string) error {
		if id == idA {
			return microiaas.Classify(microiaas.ErrEngineAPI, errors.New("stream truncated"))
		}
		return nil
	}

	fleet, err := r.ListFleet(context.Background(), true)
	if err != nil {
		t.Fatalf("ListFleet: %v", err)
	}
	if len(fleet) != 2 {
		t.Fatalf("got %d entries, want 2", len(fleet))
	}
	byName := map[string]FleetEntry{}
	for _, e := range fleet {
		byName[e.Container.Name] = e
	}
	if got := byName["boxA"].Usage; got != (microiaas.Usage{}) {
		t.Fatalf("boxA usage = %+v, want zero on stats failure", got)
	}
	if got := byName["boxB"].Usage; got.CPUPercent != 20.0 || got.MemoryUsedMB != 512 {
		t.Fatalf("boxB usage = %+v", got)
	}
}

func TestListFleetHonorsIncludeStopped(t *testing.T) {
	engine := fake.NewEngine()
	r, _, clock := newTestReconciler(engine)
	seedRental(engine, fake.NewLedger(), "up", true, clock.Now())
	seedRental(engine, fake.NewLedger(), "down", false, clock.Now())

	running, err := r.ListFleet(context.Background(), false)
	if err != nil {
		t.Fatalf("ListFleet: %v", err)
	}
	if len(running) != 1 || running[0].Container.Name != "up" {
		t.Fatalf("running-only fleet = %+v", running)
	}

	all, err := r.ListFleet(context.Background(), true)
	if err != nil {
		t.Fatalf("ListFleet all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d entries with stopped included, want 2", len(all))
	}
}

func TestContainerStats(t *testing.T) {
	engine := fake.NewEngine()
	r, _, clock := newTestReconciler(engine)
	id := seedRental(engine, fake.NewLedger(), "box1", true, clock.Now())
	engine.SetRawStats("box1", sampleRaw)

	usage, err := r.ContainerStats(context.Background(), id)
	if err != nil {
		t.Fatalf("ContainerStats: %v", err)
	}
	if usage.CPUPercent != 20.0 || usage.MemoryPercent != 50.0 {
		t.Fatalf("usage = %+v", usage)
	}

	// An id that does not resolve is an error.
	if _, err := r.ContainerStats(context.Background(), "ghost"); !errors.Is(err, microiaas.ErrNotFound) {
		t.Fatalf("ContainerStats(ghost) = %v, want ErrNotFound", err)
	}

	// A resolved container whose sample fails reads as idle, not as broken.
	engine.RawStatsErr = func(ctx context.Context, id string) error {
		return microiaas.Classify(microiaas.ErrEngineAPI, errors.New("stream truncated"))
	}
	usage, err = r.ContainerStats(context.Background(), id)
	if err != nil {
		t.Fatalf("ContainerStats with failing sample: %v", err)
	}
	if usage != (microiaas.Usage{}) {
		t.Fatalf("usage = %+v, want zero", usage)
	}
}

func TestCountsPartitionsFleet(t *testing.T) {
	engine := fake.NewEngine()
	r, _, clock := newTestReconciler(engine)
	seedRental(engine, fake.NewLedger(), "a", true, clock.Now())
	seedRental(engine, fake.NewLedger(), "b", true, clock.Now())
	seedRental(engine, fake.NewLedger(), "c", false, clock.Now())

	snap, err := r.Counts(context.Background())
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if snap.Total != 3 || snap.Running != 2 || snap.Stopped != 1 {
		t.Fatalf("snapshot = %+v, want 3/2/1", snap)
	}
	if !snap.TakenAt.Equal(clock.Now()) {
		t.Fatalf("TakenAt = %v, want %v", snap.TakenAt, clock.Now())
	}
}

func TestSnapshotFleetPersists(t *testing.T) {
	engine := fake.NewEngine()
	r, ledger, clock := newTestReconciler(engine)
	seedRental(engine, ledger, "a", true, clock.Now())

	snap, err := r.SnapshotFleet(context.Background())
	if err != nil {
		t.Fatalf("SnapshotFleet: %v", err)
	}
	stored := ledger.Snapshots()
	if len(stored) != 1 {
		t.Fatalf("got %d stored snapshots, want 1", len(stored))
	}
	if stored[0].Total != snap.Total || stored[0].Running != snap.Running {
		t.Fatalf("stored = %+v, returned = %+v", stored[0], snap)
	}
}

func TestSnapshotFleetToleratesPersistFailure(t *testing.T) {
	engine := fake.NewEngine()
	r, ledger, clock := newTestReconciler(engine)
	seedRental(engine, ledger, "a", true, clock.Now())
	ledger.InsertSnapshotErr = func(ctx context.Context, s microiaas.SystemSnapshot) error {
		return microiaas.Classify(microiaas.ErrStoreUnavailable, errors.New("db locked"))
	}

	snap, err := r.SnapshotFleet(context.Background())
	if err != nil {
		t.Fatalf("SnapshotFleet = %v, want counts despite persist failure", err)
	}
	if snap.Total != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if len(ledger.Snapshots()) != 0 {
		t.Fatal("snapshot stored despite injected failure")
	}
}

func TestLogsPassthrough(t *testing.T) {
	engine := fake.NewEngine()
	r, _, clock := newTestReconciler(engine)
	id := seedRental(engine, fake.NewLedger(), "box1", true, clock.Now())
	engine.SetLogs("box1", "hello\nworld")

	out, err := r.Logs(context.Background(), id, 50)
	if err != nil {
		t.Fatalf("Logs: %v", err)
	}
	if out != "hello\nworld" {
		t.Fatalf("Logs = %q", out)
	}
}
