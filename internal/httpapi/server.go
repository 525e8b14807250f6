// Package httpapi exposes the binder core to UI collaborators over HTTP:
// a mux-routed JSON API for every core operation and a websocket stream
// carrying service events, including cache-invalidation hints.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"

	"github.com/biroman/pkmnbindrnew-sub000/internal/layout"
	"github.com/biroman/pkmnbindrnew-sub000/internal/service"
)

// Deps holds the services the API fronts.
type Deps struct {
	Binders *service.BinderService
	Cards   *service.CardService
	Ledger  *service.LedgerService
	Sync    *service.SyncService
	Hub     *Hub
	Logger  hclog.Logger
}

// Server is the HTTP surface over the binder core.
type Server struct {
	deps Deps
	http *http.Server
}

// New builds the router and wraps it in an http.Server listening on addr.
func New(addr string, deps Deps) *Server {
	s := &Server{deps: deps}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/ws", deps.Hub.ServeWS)

	r.HandleFunc("/binders", s.handleCreateBinder).Methods("POST")
	r.HandleFunc("/binders", s.handleListBinders).Methods("GET")
	r.HandleFunc("/binders/reorder", s.handleReorderBinders).Methods("POST")
	r.HandleFunc("/binders/{id}", s.handleGetBinder).Methods("GET")
	r.HandleFunc("/binders/{id}", s.handleDeleteBinder).Methods("DELETE")
	r.HandleFunc("/binders/{id}/name", s.handleRenameBinder).Methods("PUT")
	r.HandleFunc("/binders/{id}/grid-size", s.handleSetGridSize).Methods("PUT")
	r.HandleFunc("/binders/{id}/page-count", s.handleSetPageCount).Methods("PUT")
	r.HandleFunc("/binders/{id}/pages", s.handleAddPages).Methods("POST")
	r.HandleFunc("/binders/{id}/reverse-holo", s.handleSetReverseHolo).Methods("PUT")
	r.HandleFunc("/binders/{id}/auto-sync", s.handleSetAutoSync).Methods("PUT")
	r.HandleFunc("/binders/{id}/capacity", s.handleCapacity).Methods("GET")
	r.HandleFunc("/binders/{id}/slots", s.handleFindSlots).Methods("GET")
	r.HandleFunc("/binders/{id}/layout", s.handleLayout).Methods("GET")

	r.HandleFunc("/cards", s.handleCreateCard).Methods("POST")
	r.HandleFunc("/cards", s.handleListCards).Methods("GET")
	r.HandleFunc("/cards/import", s.handleImportCards).Methods("POST")
	r.HandleFunc("/cards/{id}", s.handleGetCard).Methods("GET")
	r.HandleFunc("/cards/{id}", s.handleUpdateCard).Methods("PUT")
	r.HandleFunc("/cards/{id}", s.handleDeleteCard).Methods("DELETE")

	r.HandleFunc("/binders/{id}/changes", s.handleRecordChange).Methods("POST")
	r.HandleFunc("/binders/{id}/changes", s.handleListChanges).Methods("GET")
	r.HandleFunc("/binders/{id}/changes/summary", s.handleSummarizeChanges).Methods("GET")

	r.HandleFunc("/binders/{id}/sync", s.handleSync).Methods("POST")
	r.HandleFunc("/binders/{id}/revert", s.handleRevert).Methods("POST")
	r.HandleFunc("/binders/{id}/pull", s.handlePull).Methods("POST")
	r.HandleFunc("/binders/{id}/runs", s.handleListRuns).Methods("GET")
	r.HandleFunc("/gate", s.handleGateState).Methods("GET")

	r.HandleFunc("/owners/{id}/totals", s.handleUserTotals).Methods("GET")

	s.http = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // sync can wait on the remote store
	}
	return s
}

// ListenAndServe blocks serving requests until Shutdown.
func (s *Server) ListenAndServe() error {
	s.deps.Logger.Info("http: listening", "addr", s.http.Addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ── Request plumbing ───────────────────────────────────────

func pathID(r *http.Request) string {
	return mux.Vars(r)["id"]
}

func decodeBody(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorBody is the JSON shape of every error response. Kind lets the UI
// pick a remediation (add pages, wait out the cooldown) without string
// matching.
type errorBody struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Shortfall int    `json:"shortfall,omitempty"`
	Remaining int    `json:"remainingSeconds,omitempty"`
	Window    string `json:"window,omitempty"`
}

// writeError maps core errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	body := errorBody{Error: err.Error(), Kind: "internal"}
	status := http.StatusInternalServerError

	var gridErr *layout.InvalidGridTokenError
	var capErr *layout.InsufficientCapacityError
	var collision *layout.SlotCollisionError
	var cooling *service.CoolingError
	var limited *service.RateLimitedError
	var syncErr *service.SyncError

	switch {
	case errors.As(err, &gridErr):
		status, body.Kind = http.StatusBadRequest, "invalid_grid_token"
	case errors.As(err, &capErr):
		status, body.Kind = http.StatusConflict, "insufficient_capacity"
		body.Shortfall = capErr.Shortfall()
	case errors.As(err, &collision):
		status, body.Kind = http.StatusConflict, "slot_collision"
	case errors.Is(err, layout.ErrSlotOutOfRange):
		status, body.Kind = http.StatusBadRequest, "slot_out_of_range"
	case errors.As(err, &cooling):
		status, body.Kind = http.StatusTooManyRequests, "cooling"
		body.Remaining = cooling.RemainingSeconds
	case errors.As(err, &limited):
		status, body.Kind = http.StatusTooManyRequests, "rate_limited"
		body.Window = string(limited.Window)
	case errors.Is(err, service.ErrSyncInFlight):
		status, body.Kind = http.StatusConflict, "sync_in_flight"
	case errors.Is(err, service.ErrCardNotPlaced), errors.Is(err, service.ErrCardAlreadyPlaced):
		status, body.Kind = http.StatusConflict, "placement_conflict"
	case errors.As(err, &syncErr):
		status, body.Kind = http.StatusBadGateway, "sync_failed"
	case errors.Is(err, sql.ErrNoRows):
		status, body.Kind = http.StatusNotFound, "not_found"
	}

	if status == http.StatusInternalServerError {
		s.deps.Logger.Error("http: request failed", "error", err)
	}
	writeJSON(w, status, body)
}
