package httpapi

import (
	"net/http"

	"github.com/biroman/pkmnbindrnew-sub000/internal/service"
)

// ── Pending changes ────────────────────────────────────────

func (s *Server) handleRecordChange(w http.ResponseWriter, r *http.Request) {
	var input service.RecordChangeInput
	if err := decodeBody(r, &input); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Kind: "bad_request"})
		return
	}
	input.BinderID = pathID(r)

	ch, err := s.deps.Ledger.Record(r.Context(), input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if ch == nil {
		// The edit cancelled out against an earlier queued change.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, ch)
}

func (s *Server) handleListChanges(w http.ResponseWriter, r *http.Request) {
	changes, err := s.deps.Ledger.List(pathID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, changes)
}

func (s *Server) handleSummarizeChanges(w http.ResponseWriter, r *http.Request) {
	summary, err := s.deps.Ledger.Summarize(pathID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ── Reconciliation ─────────────────────────────────────────

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Sync.SyncToRemote(r.Context(), pathID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleRevert(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Sync.RevertToRemote(r.Context(), pathID(r)); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePull(w http.ResponseWriter, r *http.Request) {
	snap, err := s.deps.Sync.Pull(r.Context(), pathID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.deps.Sync.ListRuns(pathID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGateState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Sync.GateState())
}
