package fake

import (
	"context"
	"sync"
	"time"

	"microiaas"
)

// Ledger is an in-memory ledger store double. Like the SQLite store, status
// updates match by container name and are silent no-ops for unknown names.
type Ledger struct {
	CallRecorder
	mu        sync.Mutex
	nextID    int64
	rentals   []microiaas.Rental
	activity  []microiaas.ActivityEntry
	snapshots []microiaas.SystemSnapshot

	InsertRentalErr   func(ctx context.Context, r microiaas.Rental) error
	UpdateStatusErr   func(ctx context.Context, name string) error
	AppendActivityErr func(ctx context.Context, e microiaas.ActivityEntry) error
	InsertSnapshotErr func(ctx context.Context, s microiaas.SystemSnapshot) error
}

// NewLedger creates an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Rentals returns a copy of all rental rows in insertion order.
func (l *Ledger) Rentals() []microiaas.Rental {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]microiaas.Rental(nil), l.rentals...)
}

// Activity returns a copy of all activity entries in insertion order.
func (l *Ledger) Activity() []microiaas.ActivityEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]microiaas.ActivityEntry(nil), l.activity...)
}

// Snapshots returns a copy of all snapshot rows in insertion order.
func (l *Ledger) Snapshots() []microiaas.SystemSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]microiaas.SystemSnapshot(nil), l.snapshots...)
}

// RentalByName returns the newest rental row for a container name.
func (l *Ledger) RentalByName(name string) (microiaas.Rental, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.rentals) - 1; i >= 0; i-- {
		if l.rentals[i].ContainerName == name {
			return l.rentals[i], true
		}
	}
	return microiaas.Rental{}, false
}

func (l *Ledger) InsertRental(ctx context.Context, r microiaas.Rental) error {
	l.record("InsertRental", r.ContainerName)
	if l.InsertRentalErr != nil {
		if err := l.InsertRentalErr(ctx, r); err != nil {
			return err
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	r.ID = l.nextID
	l.rentals = append(l.rentals, r)
	return nil
}

func (l *Ledger) UpdateStatus(ctx context.Context, name string, status microiaas.Status, now time.Time) error {
	l.record("UpdateStatus", name, status)
	if l.UpdateStatusErr != nil {
		if err := l.UpdateStatusErr(ctx, name); err != nil {
			return err
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.rentals {
		if l.rentals[i].ContainerName == name {
			l.rentals[i].Status = status
			l.rentals[i].LastActivity = now
		}
	}
	return nil
}

func (l *Ledger) UpdateStatusAndUptimeStart(ctx context.Context, name string, status microiaas.Status, now time.Time) error {
	l.record("UpdateStatusAndUptimeStart", name, status)
	if l.UpdateStatusErr != nil {
		if err := l.UpdateStatusErr(ctx, name); err != nil {
			return err
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.rentals {
		if l.rentals[i].ContainerName == name {
			l.rentals[i].Status = status
			t := now
			l.rentals[i].UptimeStart = &t
			l.rentals[i].LastActivity = now
		}
	}
	return nil
}

func (l *Ledger) ListRecent(ctx context.Context, limit int) ([]microiaas.Rental, error) {
	l.record("ListRecent", limit)
	l.mu.Lock()
	defer l.mu.Unlock()
	return newestFirst(l.rentals, limit), nil
}

func (l *Ledger) AppendActivity(ctx context.Context, e microiaas.ActivityEntry) error {
	l.record("AppendActivity", e.Action, e.ContainerName)
	if l.AppendActivityErr != nil {
		if err := l.AppendActivityErr(ctx, e); err != nil {
			return err
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	e.ID = l.nextID
	l.activity = append(l.activity, e)
	return nil
}

func (l *Ledger) ListRecentActivity(ctx context.Context, limit int) ([]microiaas.ActivityEntry, error) {
	l.record("ListRecentActivity", limit)
	l.mu.Lock()
	defer l.mu.Unlock()
	return newestFirst(l.activity, limit), nil
}

func (l *Ledger) InsertSnapshot(ctx context.Context, s microiaas.SystemSnapshot) error {
	l.record("InsertSnapshot", s.Total, s.Running, s.Stopped)
	if l.InsertSnapshotErr != nil {
		if err := l.InsertSnapshotErr(ctx, s); err != nil {
			return err
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	s.ID = l.nextID
	l.snapshots = append(l.snapshots, s)
	return nil
}

func (l *Ledger) ListRecentSnapshots(ctx context.Context, limit int) ([]microiaas.SystemSnapshot, error) {
	l.record("ListRecentSnapshots", limit)
	l.mu.Lock()
	defer l.mu.Unlock()
	return newestFirst(l.snapshots, limit), nil
}

func newestFirst[T any](in []T, limit int) []T {
	out := make([]T, 0, limit)
	for i := len(in) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, in[i])
	}
	return out
}
