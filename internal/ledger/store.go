// Package ledger persists rental records, the append-only activity log and
// the periodic system snapshot series in a local SQLite database.
//
// Every mutating method is a single atomic statement. Callers must not
// assume two calls are transactionally linked; status updates match by
// container name and are silent no-ops when no row matches, because the
// engine and the ledger are independently mutable and may disagree.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"microiaas"
	"microiaas/internal/reconcile"

	_ "modernc.org/sqlite"
)

var _ reconcile.Ledger = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS rentals (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	container_name TEXT NOT NULL,
	tenant TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	image TEXT NOT NULL,
	cpu_limit TEXT NOT NULL DEFAULT '1',
	memory_limit TEXT NOT NULL DEFAULT '1g',
	created_at TEXT NOT NULL,
	uptime_start TEXT,
	last_activity TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rentals_name ON rentals(container_name);

CREATE TABLE IF NOT EXISTS activity_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	occurred_at TEXT NOT NULL,
	action TEXT NOT NULL,
	container_name TEXT NOT NULL DEFAULT '',
	actor TEXT NOT NULL DEFAULT '',
	outcome TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS system_stats (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	taken_at TEXT NOT NULL,
	total_containers INTEGER NOT NULL DEFAULT 0,
	running_containers INTEGER NOT NULL DEFAULT 0,
	stopped_containers INTEGER NOT NULL DEFAULT 0
);
`

// Store is the SQLite-backed ledger.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the ledger database at path and
// bootstraps the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set ledger journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set ledger busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize ledger schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// InsertRental inserts a new rental row. CreatedAt and LastActivity are
// taken from r; UptimeStart may be nil.
func (s *Store) InsertRental(ctx context.Context, r microiaas.Rental) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO rentals (container_name, tenant, description, status, image, cpu_limit, memory_limit, created_at, uptime_start, last_activity)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ContainerName, r.Tenant, r.Description, string(r.Status), r.Image,
		r.CPULimit, r.MemoryLimit, fmtTime(r.CreatedAt), fmtTimePtr(r.UptimeStart), fmtTime(r.LastActivity))
	if err != nil {
		return storeErr("insert rental %q", r.ContainerName, err)
	}
	return nil
}

// UpdateStatus sets the status and bumps last_activity for every rental row
// matching the container name. A missing row is not an error.
func (s *Store) UpdateStatus(ctx context.Context, name string, status microiaas.Status, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE rentals SET status = ?, last_activity = ? WHERE container_name = ?`,
		string(status), fmtTime(now), name)
	if err != nil {
		return storeErr("update rental status %q", name, err)
	}
	return nil
}

// UpdateStatusAndUptimeStart additionally resets uptime_start to now.
func (s *Store) UpdateStatusAndUptimeStart(ctx context.Context, name string, status microiaas.Status, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE rentals SET status = ?, uptime_start = ?, last_activity = ? WHERE container_name = ?`,
		string(status), fmtTime(now), fmtTime(now), name)
	if err != nil {
		return storeErr("update rental status and uptime %q", name, err)
	}
	return nil
}

// ListRecent returns the newest rental rows, most recent first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]microiaas.Rental, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, container_name, tenant, description, status, image, cpu_limit, memory_limit, created_at, uptime_start, last_activity
FROM rentals ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, storeErr("list rentals", "", err)
	}
	defer rows.Close()

	out := make([]microiaas.Rental, 0)
	for rows.Next() {
		var r microiaas.Rental
		var status, createdAt, lastActivity string
		var uptimeStart sql.NullString
		if err := rows.Scan(&r.ID, &r.ContainerName, &r.Tenant, &r.Description, &status,
			&r.Image, &r.CPULimit, &r.MemoryLimit, &createdAt, &uptimeStart, &lastActivity); err != nil {
			return nil, storeErr("scan rental row", "", err)
		}
		r.Status = microiaas.Status(status)
		r.CreatedAt = parseTime(createdAt)
		r.LastActivity = parseTime(lastActivity)
		if uptimeStart.Valid {
			t := parseTime(uptimeStart.String)
			r.UptimeStart = &t
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate rental rows", "", err)
	}
	return out, nil
}

// AppendActivity appends one audit entry. Entries are immutable; there is no
// update or delete path.
func (s *Store) AppendActivity(ctx context.Context, e microiaas.ActivityEntry) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO activity_log (occurred_at, action, container_name, actor, outcome, detail)
VALUES (?, ?, ?, ?, ?, ?)`,
		fmtTime(e.OccurredAt), e.Action, e.ContainerName, e.Actor, string(e.Outcome), e.Detail)
	if err != nil {
		return storeErr("append activity %q", e.Action, err)
	}
	return nil
}

// ListRecentActivity returns the newest audit entries, most recent first.
func (s *Store) ListRecentActivity(ctx context.Context, limit int) ([]microiaas.ActivityEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, occurred_at, action, container_name, actor, outcome, detail
FROM activity_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, storeErr("list activity", "", err)
	}
	defer rows.Close()

	out := make([]microiaas.ActivityEntry, 0)
	for rows.Next() {
		var e microiaas.ActivityEntry
		var occurredAt, outcome string
		if err := rows.Scan(&e.ID, &occurredAt, &e.Action, &e.ContainerName, &e.Actor, &outcome, &e.Detail); err != nil {
			return nil, storeErr("scan activity row", "", err)
		}
		e.OccurredAt = parseTime(occurredAt)
		e.Outcome = microiaas.Outcome(outcome)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate activity rows", "", err)
	}
	return out, nil
}

// InsertSnapshot appends one system snapshot row.
func (s *Store) InsertSnapshot(ctx context.Context, snap microiaas.SystemSnapshot) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO system_stats (taken_at, total_containers, running_containers, stopped_containers)
VALUES (?, ?, ?, ?)`,
		fmtTime(snap.TakenAt), snap.Total, snap.Running, snap.Stopped)
	if err != nil {
		return storeErr("insert system snapshot", "", err)
	}
	return nil
}

// ListRecentSnapshots returns the newest snapshot rows, most recent first.
func (s *Store) ListRecentSnapshots(ctx context.Context, limit int) ([]microiaas.SystemSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, taken_at, total_containers, running_containers, stopped_containers
FROM system_stats ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, storeErr("list system snapshots", "", err)
	}
	defer rows.Close()

	out := make([]microiaas.SystemSnapshot, 0)
	for rows.Next() {
		var snap microiaas.SystemSnapshot
		var takenAt string
		if err := rows.Scan(&snap.ID, &takenAt, &snap.Total, &snap.Running, &snap.Stopped); err != nil {
			return nil, storeErr("scan system snapshot row", "", err)
		}
		snap.TakenAt = parseTime(takenAt)
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate system snapshot rows", "", err)
	}
	return out, nil
}

func storeErr(format, arg string, err error) error {
	if arg != "" {
		return microiaas.Classify(microiaas.ErrStoreUnavailable, fmt.Errorf(format+": %w", arg, err))
	}
	return microiaas.Classify(microiaas.ErrStoreUnavailable, fmt.Errorf(format+": %w", err))
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func fmtTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
