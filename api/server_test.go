package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"microiaas"
	"microiaas/internal/adapter/fake"
	"microiaas/internal/ledger"
	"microiaas/internal/reconcile"
)

var (
	_ Fleet   = (*reconcile.Reconciler)(nil)
	_ History = (*fake.Ledger)(nil)
	_ History = (*ledger.Store)(nil)
)

func newTestServer(t *testing.T) (*Server, *fake.Engine, *fake.Ledger) {
	t.Helper()
	engine := fake.NewEngine("ubuntu:latest")
	store := fake.NewLedger()
	r := &reconcile.Reconciler{
		Engine: engine,
		Ledger: store,
		Clock:  fake.NewClock(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)),
	}
	return New(r, store), engine, store
}

func doJSON(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestCreateContainerEndpoint(t *testing.T) {
	s, engine, store := newTestServer(t)
	h := s.Router()

	rec := doJSON(t, h, http.MethodPost, "/api/containers",
		`{"name":"box1","tenant":"alice","image":"ubuntu:latest"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res reconcile.Result
	decode(t, rec, &res)
	if res.Message == "" || res.Warning != "" {
		t.Fatalf("result = %+v", res)
	}
	if c, err := engine.Get(t.Context(), "box1"); err != nil || !c.Running {
		t.Fatalf("engine container = %+v, %v", c, err)
	}
	if _, ok := store.RentalByName("box1"); !ok {
		t.Fatal("no rental row")
	}
}

func TestCreateContainerRejectsBadInput(t *testing.T) {
	s, _, _ := newTestServer(t)
	h := s.Router()

	rec := doJSON(t, h, http.MethodPost, "/api/containers", `{"name":"","tenant":"alice"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("validation status = %d", rec.Code)
	}
	var payload map[string]string
	decode(t, rec, &payload)
	if payload["error"] == "" {
		t.Fatalf("error envelope missing: %s", rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, "/api/containers", `{not json`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body status = %d", rec.Code)
	}
}

func TestCreateContainerNameCollision(t *testing.T) {
	s, engine, _ := newTestServer(t)
	engine.AddContainer("box1", "ubuntu:latest", false)
	h := s.Router()

	rec := doJSON(t, h, http.MethodPost, "/api/containers",
		`{"name":"box1","tenant":"bob"}`, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestLifecycleEndpoints(t *testing.T) {
	s, engine, store := newTestServer(t)
	id := engine.AddContainer("box1", "ubuntu:latest", false)
	_ = store.InsertRental(t.Context(), microiaas.Rental{ContainerName: "box1", Tenant: "alice", Status: microiaas.StatusStopped})
	h := s.Router()

	rec := doJSON(t, h, http.MethodPost, "/api/containers/"+id+"/start", "", map[string]string{"X-Actor": "alice"})
	if rec.Code != http.StatusOK {
		t.Fatalf("start status = %d, body %s", rec.Code, rec.Body.String())
	}
	if c, _ := engine.Get(t.Context(), id); !c.Running {
		t.Fatal("container not running after start")
	}

	rec = doJSON(t, h, http.MethodPost, "/api/containers/"+id+"/restart", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("restart status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/containers/"+id+"/stop", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stop status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/containers/"+id, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rental, _ := store.RentalByName("box1")
	if rental.Status != microiaas.StatusDeleted {
		t.Fatalf("rental status = %q after delete", rental.Status)
	}

	// The actor header flows into the audit trail.
	var started bool
	for _, e := range store.Activity() {
		if e.Action == "Container Started" && e.Actor == "alice" {
			started = true
		}
	}
	if !started {
		t.Fatalf("no started entry with actor, activity = %+v", store.Activity())
	}
}

func TestLifecycleUnknownContainerIs404(t *testing.T) {
	s, _, _ := newTestServer(t)
	h := s.Router()

	rec := doJSON(t, h, http.MethodPost, "/api/containers/ghost/stop", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestContainerStatsEndpoint(t *testing.T) {
	s, engine, _ := newTestServer(t)
	id := engine.AddContainer("box1", "ubuntu:latest", true)
	engine.SetRawStats("box1", microiaas.RawStats{
		CPUTotal: 200, PreCPUTotal: 100, SystemCPU: 2000, PreSystemCPU: 1000,
		OnlineCPUs: 2, MemoryUsage: 512 << 20, MemoryLimit: 1 << 30,
	})
	h := s.Router()

	rec := doJSON(t, h, http.MethodGet, "/api/containers/"+id+"/stats", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var usage microiaas.Usage
	decode(t, rec, &usage)
	if usage.CPUPercent != 20.0 || usage.MemoryUsedMB != 512 {
		t.Fatalf("usage = %+v", usage)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/containers/ghost/stats", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("ghost stats status = %d", rec.Code)
	}
}

func TestContainerLogsEndpoint(t *testing.T) {
	s, engine, _ := newTestServer(t)
	id := engine.AddContainer("box1", "ubuntu:latest", true)
	engine.SetLogs("box1", "line1\nline2")
	h := s.Router()

	rec := doJSON(t, h, http.MethodGet, "/api/containers/"+id+"/logs?tail=10", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload map[string]string
	decode(t, rec, &payload)
	if payload["logs"] != "line1\nline2" {
		t.Fatalf("logs = %q", payload["logs"])
	}

	rec = doJSON(t, h, http.MethodGet, "/api/containers/"+id+"/logs?tail=zero", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad tail status = %d", rec.Code)
	}
}

func TestBulkEndpoint(t *testing.T) {
	s, engine, _ := newTestServer(t)
	idA := engine.AddContainer("boxA", "ubuntu:latest", true)
	idC := engine.AddContainer("boxC", "ubuntu:latest", true)
	h := s.Router()

	body := `{"action":"stop","ids":["` + idA + `","ghost","` + idC + `"]}`
	rec := doJSON(t, h, http.MethodPost, "/api/bulk", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res reconcile.BulkResult
	decode(t, rec, &res)
	if res.Succeeded != 2 || res.Failed != 1 {
		t.Fatalf("bulk result = %+v", res)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/bulk", `{"action":"explode","ids":["a"]}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown action status = %d", rec.Code)
	}
}

func TestSystemStatsEndpoint(t *testing.T) {
	s, engine, _ := newTestServer(t)
	engine.AddContainer("a", "ubuntu:latest", true)
	engine.AddContainer("b", "ubuntu:latest", false)
	h := s.Router()

	rec := doJSON(t, h, http.MethodGet, "/api/system-stats", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var snap microiaas.SystemSnapshot
	decode(t, rec, &snap)
	if snap.Total != 2 || snap.Running != 1 || snap.Stopped != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestHistoryEndpoints(t *testing.T) {
	s, _, store := newTestServer(t)
	for _, name := range []string{"a", "b", "c"} {
		_ = store.InsertRental(t.Context(), microiaas.Rental{ContainerName: name, Tenant: "alice", Status: microiaas.StatusRunning})
		_ = store.AppendActivity(t.Context(), microiaas.ActivityEntry{Action: "Container Created", ContainerName: name, Outcome: microiaas.OutcomeSuccess})
	}
	_ = store.InsertSnapshot(t.Context(), microiaas.SystemSnapshot{Total: 3, Running: 3})
	h := s.Router()

	rec := doJSON(t, h, http.MethodGet, "/api/rentals?limit=2", "", nil)
	var rentals []microiaas.Rental
	decode(t, rec, &rentals)
	if len(rentals) != 2 || rentals[0].ContainerName != "c" {
		t.Fatalf("rentals = %+v, want newest 2 first", rentals)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/activity", "", nil)
	var entries []microiaas.ActivityEntry
	decode(t, rec, &entries)
	if len(entries) != 3 {
		t.Fatalf("got %d activity entries", len(entries))
	}

	rec = doJSON(t, h, http.MethodGet, "/api/snapshots", "", nil)
	var snaps []microiaas.SystemSnapshot
	decode(t, rec, &snaps)
	if len(snaps) != 1 || snaps[0].Total != 3 {
		t.Fatalf("snapshots = %+v", snaps)
	}
}
