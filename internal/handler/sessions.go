package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mzhang055/twirl/internal/dom"
	"github.com/mzhang055/twirl/internal/middleware"
	"github.com/mzhang055/twirl/internal/session"
	"github.com/mzhang055/twirl/pkg/logger"
)

// SessionHandler handles live extraction session endpoints.
type SessionHandler struct {
	manager *session.Manager
	logger  *logger.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(mgr *session.Manager, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		manager: mgr,
		logger:  log,
	}
}

type createSessionRequest struct {
	URL string `json:"url"`
}

type sessionResponse struct {
	ID       string `json:"id"`
	Platform string `json:"platform"`
	URL      string `json:"url"`
	State    string `json:"state"`
	Attempts int    `json:"attempts"`
}

func toSessionResponse(s *session.Session) sessionResponse {
	return sessionResponse{
		ID:       s.ID,
		Platform: string(s.Profile.ID),
		URL:      s.PageURL,
		State:    s.Extractor.State().String(),
		Attempts: s.Extractor.Attempts(),
	}
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidatePageURL(req.URL); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s, err := h.manager.Create(r.Context(), req.URL)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, toSessionResponse(s))
}

// Get handles GET /api/v1/sessions/:id
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.manager.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(s))
}

type snapshotRequest struct {
	Document *dom.Node `json:"document"`
}

// Snapshot handles POST /api/v1/sessions/:id/snapshot
func (h *SessionHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req snapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Document == nil {
		writeError(w, http.StatusBadRequest, "document is required")
		return
	}

	state, err := h.manager.PushSnapshot(id, req.Document)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to apply snapshot")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"state": state.String(),
	})
}

// Delete handles DELETE /api/v1/sessions/:id
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Close(chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
