// Package microiaas holds the domain types shared by the rental ledger, the
// container engine gateway and the reconciler.
//
// Two independently mutable views exist for every sandbox: the engine's live
// container (authoritative for existence and run state) and the ledger's
// rental record (authoritative for ownership and declared limits). The
// reconciler keeps the second consistent with the first on a best-effort
// basis; nothing in this package assumes the two agree.
package microiaas

import "time"

// Status is the ledger-side lifecycle status of a rental. The engine reports
// a finer-grained state string; the reconciler maps it down to these three.
type Status string

const (
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
	StatusDeleted Status = "deleted"
)

// Outcome classifies an activity log entry.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

// Rental is a ledger row binding a container name to a tenant. The container
// name is immutable once inserted; rows are never physically deleted, a
// removed container keeps its row with StatusDeleted for history.
type Rental struct {
	ID            int64      `json:"id"`
	ContainerName string     `json:"container_name"`
	Tenant        string     `json:"tenant"`
	Description   string     `json:"description"`
	Status        Status     `json:"status"`
	Image         string     `json:"image"`
	CPULimit      string     `json:"cpu_limit"`
	MemoryLimit   string     `json:"memory_limit"`
	CreatedAt     time.Time  `json:"created_at"`
	UptimeStart   *time.Time `json:"uptime_start,omitempty"`
	LastActivity  time.Time  `json:"last_activity"`
}

// ActivityEntry is one append-only audit record. ContainerName may be empty
// when the target id never resolved to a live container.
type ActivityEntry struct {
	ID            int64     `json:"id"`
	Action        string    `json:"action"`
	ContainerName string    `json:"container_name"`
	Actor         string    `json:"actor"`
	Outcome       Outcome   `json:"outcome"`
	Detail        string    `json:"detail"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// SystemSnapshot is one row of the periodic fleet-count time series.
type SystemSnapshot struct {
	ID      int64     `json:"id"`
	TakenAt time.Time `json:"taken_at"`
	Total   int       `json:"total_containers"`
	Running int       `json:"running_containers"`
	Stopped int       `json:"stopped_containers"`
}

// Container is the engine-owned view of a live container. It is never
// persisted; every read re-queries the engine.
type Container struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Image   string    `json:"image"`
	State   string    `json:"state"` // engine state string: running, exited, ...
	Running bool      `json:"running"`
	Created time.Time `json:"created"`
}

// CreateSpec is the operator input for creating a rental. CPULimit and
// MemoryLimit are kept as entered ("1", "512m") and parsed at the engine
// boundary.
type CreateSpec struct {
	Name        string `json:"name"`
	Tenant      string `json:"tenant"`
	Description string `json:"description"`
	Image       string `json:"image"`
	CPULimit    string `json:"cpu_limit"`
	MemoryLimit string `json:"memory_limit"`
}

// NetworkCounters are cumulative per-interface byte counters.
type NetworkCounters struct {
	RxBytes uint64
	TxBytes uint64
}

// RawStats is a two-point raw counter sample for one container: the engine
// reports the current and the previous reading in a single payload. All CPU
// counters are cumulative nanoseconds.
type RawStats struct {
	CPUTotal     uint64 // container cpu time, current reading
	PreCPUTotal  uint64 // container cpu time, previous reading
	SystemCPU    uint64 // whole-host cpu time, current reading
	PreSystemCPU uint64 // whole-host cpu time, previous reading
	OnlineCPUs   int
	PerCPUCount  int // fallback core count when OnlineCPUs is unreported

	MemoryUsage uint64
	MemoryLimit uint64 // zero when unlimited or unknown

	Networks map[string]NetworkCounters
}

// Usage is the derived utilization payload served to the panel for
// polling-style refresh. Byte figures are truncated to whole megabytes,
// percentages rounded to one decimal.
type Usage struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryUsedMB  uint64  `json:"memory_used_mb"`
	MemoryPercent float64 `json:"memory_percent"`
	NetworkRxMB   uint64  `json:"network_rx_mb"`
	NetworkTxMB   uint64  `json:"network_tx_mb"`
}

// Clock abstracts time.Now so reconciler timestamps are testable.
type Clock interface {
	Now() time.Time
}

// RealClock is the Clock used outside tests.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }
