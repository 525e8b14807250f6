package httpapi

import (
	"net/http"

	"github.com/biroman/pkmnbindrnew-sub000/internal/service"
)

// ── Card catalog ───────────────────────────────────────────

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var input service.CreateCardInput
	if err := decodeBody(r, &input); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Kind: "bad_request"})
		return
	}
	c, err := s.deps.Cards.CreateCard(input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleListCards(w http.ResponseWriter, _ *http.Request) {
	cards, err := s.deps.Cards.ListCards()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.Cards.GetCard(pathID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	var input service.CreateCardInput
	if err := decodeBody(r, &input); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Kind: "bad_request"})
		return
	}
	c, err := s.deps.Cards.UpdateCard(pathID(r), input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Cards.DeleteCard(pathID(r)); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleImportCards loads a card-list file already on the server's disk,
// the same path the drop-directory watcher consumes.
func (s *Server) handleImportCards(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Path string `json:"path"`
	}
	if err := decodeBody(r, &input); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Kind: "bad_request"})
		return
	}
	if input.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "path is required", Kind: "bad_request"})
		return
	}
	result, err := s.deps.Cards.ImportFile(r.Context(), input.Path)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
