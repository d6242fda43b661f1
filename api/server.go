// Package api exposes the reconciler over a JSON HTTP API for the operator
// panel. Handlers translate between HTTP and the reconciler; they hold no
// fleet logic of their own.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"microiaas"
	"microiaas/internal/reconcile"

	"github.com/go-chi/chi/v5"
)

// Fleet is the reconciler surface the API server needs.
type Fleet interface {
	Create(ctx context.Context, spec microiaas.CreateSpec) (reconcile.Result, error)
	Start(ctx context.Context, id, actor string) (reconcile.Result, error)
	Stop(ctx context.Context, id, actor string) (reconcile.Result, error)
	Restart(ctx context.Context, id, actor string) (reconcile.Result, error)
	Delete(ctx context.Context, id, actor string) (reconcile.Result, error)
	Bulk(ctx context.Context, action reconcile.BulkAction, ids []string, actor string) (reconcile.BulkResult, error)
	ListFleet(ctx context.Context, includeStopped bool) ([]reconcile.FleetEntry, error)
	ContainerStats(ctx context.Context, id string) (microiaas.Usage, error)
	Logs(ctx context.Context, id string, tail int) (string, error)
	Counts(ctx context.Context) (microiaas.SystemSnapshot, error)
}

// History is the ledger read surface the API server needs.
type History interface {
	ListRecent(ctx context.Context, limit int) ([]microiaas.Rental, error)
	ListRecentActivity(ctx context.Context, limit int) ([]microiaas.ActivityEntry, error)
	ListRecentSnapshots(ctx context.Context, limit int) ([]microiaas.SystemSnapshot, error)
}

const (
	defaultHistoryLimit = 50
	defaultLogTail      = 100
)

type Server struct {
	fleet   Fleet
	history History
}

func New(fleet Fleet, history History) *Server {
	return &Server{fleet: fleet, history: history}
}

// Router builds the HTTP route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/containers", s.handleListContainers)
		r.Post("/containers", s.handleCreateContainer)
		r.Post("/containers/{id}/start", s.lifecycleHandler(s.fleet.Start))
		r.Post("/containers/{id}/stop", s.lifecycleHandler(s.fleet.Stop))
		r.Post("/containers/{id}/restart", s.lifecycleHandler(s.fleet.Restart))
		r.Delete("/containers/{id}", s.lifecycleHandler(s.fleet.Delete))
		r.Get("/containers/{id}/stats", s.handleContainerStats)
		r.Get("/containers/{id}/logs", s.handleContainerLogs)
		r.Post("/bulk", s.handleBulk)
		r.Get("/system-stats", s.handleSystemStats)
		r.Get("/rentals", s.handleRentals)
		r.Get("/activity", s.handleActivity)
		r.Get("/snapshots", s.handleSnapshots)
	})
	return r
}

// ListenAndServe runs the HTTP server until ctx is cancelled, then shuts it
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("api listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve api: %w", err)
	}
	return nil
}

type bulkRequest struct {
	Action string   `json:"action"`
	IDs    []string `json:"ids"`
}

func (s *Server) handleCreateContainer(w http.ResponseWriter, r *http.Request) {
	var spec microiaas.CreateSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	res, err := s.fleet.Create(r.Context(), spec)
	if err != nil {
		writeClassified(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// lifecycleHandler adapts one single-container reconciler verb to HTTP.
func (s *Server) lifecycleHandler(op func(ctx context.Context, id, actor string) (reconcile.Result, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := op(r.Context(), chi.URLParam(r, "id"), actor(r))
		if err != nil {
			writeClassified(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) handleListContainers(w http.ResponseWriter, r *http.Request) {
	all := r.URL.Query().Get("all")
	includeStopped := all == "1" || all == "true"
	fleet, err := s.fleet.ListFleet(r.Context(), includeStopped)
	if err != nil {
		writeClassified(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fleet)
}

func (s *Server) handleContainerStats(w http.ResponseWriter, r *http.Request) {
	usage, err := s.fleet.ContainerStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeClassified(w, err)
		return
	}
	writeJSON(w, http.StatusOK, usage)
}

func (s *Server) handleContainerLogs(w http.ResponseWriter, r *http.Request) {
	tail := defaultLogTail
	if v := r.URL.Query().Get("tail"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid tail %q", v))
			return
		}
		tail = n
	}
	logs, err := s.fleet.Logs(r.Context(), chi.URLParam(r, "id"), tail)
	if err != nil {
		writeClassified(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"logs": logs})
}

func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	res, err := s.fleet.Bulk(r.Context(), reconcile.BulkAction(req.Action), req.IDs, actor(r))
	if err != nil {
		writeClassified(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSystemStats(w http.ResponseWriter, r *http.Request) {
	snap, err := s.fleet.Counts(r.Context())
	if err != nil {
		writeClassified(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleRentals(w http.ResponseWriter, r *http.Request) {
	rentals, err := s.history.ListRecent(r.Context(), historyLimit(r))
	if err != nil {
		writeClassified(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rentals)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	entries, err := s.history.ListRecentActivity(r.Context(), historyLimit(r))
	if err != nil {
		writeClassified(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := s.history.ListRecentSnapshots(r.Context(), historyLimit(r))
	if err != nil {
		writeClassified(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}

// actor identifies who asked, for the audit trail. The panel sends it in a
// header; an empty actor is allowed.
func actor(r *http.Request) string {
	return r.Header.Get("X-Actor")
}

func historyLimit(r *http.Request) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultHistoryLimit
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeClassified maps the failure taxonomy onto HTTP status codes.
func writeClassified(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, microiaas.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, microiaas.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, microiaas.ErrNameCollision):
		status = http.StatusConflict
	case errors.Is(err, microiaas.ErrImageUnavailable):
		status = http.StatusBadGateway
	case errors.Is(err, microiaas.ErrEngineUnreachable):
		status = http.StatusBadGateway
	}
	writeError(w, status, err)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("http request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start))
	})
}
