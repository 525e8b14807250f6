package httpapi

import (
	"net/http"
	"strconv"

	"github.com/biroman/pkmnbindrnew-sub000/internal/service"
)

// ── Binder CRUD ────────────────────────────────────────────

func (s *Server) handleCreateBinder(w http.ResponseWriter, r *http.Request) {
	var input service.CreateBinderInput
	if err := decodeBody(r, &input); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Kind: "bad_request"})
		return
	}
	b, err := s.deps.Binders.CreateBinder(r.Context(), input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleListBinders(w http.ResponseWriter, r *http.Request) {
	binders, err := s.deps.Binders.ListBinders(r.URL.Query().Get("owner"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, binders)
}

func (s *Server) handleGetBinder(w http.ResponseWriter, r *http.Request) {
	b, err := s.deps.Binders.GetBinder(pathID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBinder(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Binders.DeleteBinder(r.Context(), pathID(r)); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRenameBinder(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &input); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Kind: "bad_request"})
		return
	}
	if err := s.deps.Binders.RenameBinder(r.Context(), pathID(r), input.Name); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReorderBinders(w http.ResponseWriter, r *http.Request) {
	var input struct {
		OwnerID   string   `json:"ownerId"`
		BinderIDs []string `json:"binderIds"`
	}
	if err := decodeBody(r, &input); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Kind: "bad_request"})
		return
	}
	if err := s.deps.Binders.ReorderBinders(r.Context(), input.OwnerID, input.BinderIDs); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Preferences ────────────────────────────────────────────

func (s *Server) handleSetGridSize(w http.ResponseWriter, r *http.Request) {
	var input struct {
		GridSize string `json:"gridSize"`
	}
	if err := decodeBody(r, &input); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Kind: "bad_request"})
		return
	}
	b, err := s.deps.Binders.SetGridSize(r.Context(), pathID(r), input.GridSize)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleSetPageCount(w http.ResponseWriter, r *http.Request) {
	var input struct {
		PageCount int `json:"pageCount"`
	}
	if err := decodeBody(r, &input); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Kind: "bad_request"})
		return
	}
	b, err := s.deps.Binders.SetPageCount(r.Context(), pathID(r), input.PageCount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleAddPages(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Pages int `json:"pages"`
	}
	if err := decodeBody(r, &input); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Kind: "bad_request"})
		return
	}
	b, err := s.deps.Binders.AddPages(r.Context(), pathID(r), input.Pages)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleSetReverseHolo(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Enabled bool `json:"enabled"`
	}
	if err := decodeBody(r, &input); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Kind: "bad_request"})
		return
	}
	b, err := s.deps.Binders.SetReverseHolo(r.Context(), pathID(r), input.Enabled)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleSetAutoSync(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Cron string `json:"cron"`
	}
	if err := decodeBody(r, &input); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Kind: "bad_request"})
		return
	}
	if err := s.deps.Sync.SetAutoSyncCron(r.Context(), pathID(r), input.Cron); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Layout reads ───────────────────────────────────────────

func (s *Server) handleCapacity(w http.ResponseWriter, r *http.Request) {
	cap, err := s.deps.Binders.Capacity(pathID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cap)
}

func (s *Server) handleFindSlots(w http.ResponseWriter, r *http.Request) {
	count := 1
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "count must be a positive integer", Kind: "bad_request"})
			return
		}
		count = n
	}
	slots, err := s.deps.Binders.FindAvailableSlots(pathID(r), count)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	placements, err := s.deps.Binders.RenderLayout(pathID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, placements)
}

// ── Totals ─────────────────────────────────────────────────

func (s *Server) handleUserTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := s.deps.Binders.UserTotals(pathID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}
