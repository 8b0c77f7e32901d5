package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mzhang055/twirl/internal/events"
	"github.com/mzhang055/twirl/internal/middleware"
	"github.com/mzhang055/twirl/internal/paste"
	"github.com/mzhang055/twirl/internal/session"
	"github.com/mzhang055/twirl/pkg/logger"
)

// PasteHandler handles pasted-conversation capture.
type PasteHandler struct {
	sessions  *session.Manager
	monitor   *paste.Monitor
	publisher *events.Publisher
	logger    *logger.Logger
}

// NewPasteHandler creates a new paste handler. mon handles events from pages
// without a session; session-bound events use the owning session's monitor so
// dedupe tracks the page's lifetime.
func NewPasteHandler(sessions *session.Manager, mon *paste.Monitor, pub *events.Publisher, log *logger.Logger) *PasteHandler {
	return &PasteHandler{
		sessions:  sessions,
		monitor:   mon,
		publisher: pub,
		logger:    log,
	}
}

type pasteRequest struct {
	Text string `json:"text"`
	URL  string `json:"url"`
	// SessionID scopes the event (and its dedupe) to a live page session.
	SessionID string `json:"session_id,omitempty"`
	// Trigger is "paste" for direct paste events, "input" for editable
	// surface changes. Input events are length gated.
	Trigger string `json:"trigger,omitempty"`
}

// Paste handles POST /api/v1/paste
func (h *PasteHandler) Paste(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req pasteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidatePasteText(req.Text); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	monitor := h.monitor
	if req.SessionID != "" {
		s, err := h.sessions.Get(req.SessionID)
		if err != nil {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		monitor = s.Monitor
	}

	handle := monitor.HandlePaste
	if req.Trigger == "input" {
		handle = monitor.HandleInput
	}

	rec, err := handle(ctx, req.Text, req.URL)
	switch {
	case errors.Is(err, paste.ErrNotConversational), errors.Is(err, paste.ErrEmptyParse):
		writeJSON(w, http.StatusOK, map[string]bool{"conversational": false})
		return
	case errors.Is(err, paste.ErrDuplicatePaste):
		writeJSON(w, http.StatusOK, map[string]bool{"conversational": true, "duplicate": true})
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "failed to store pasted conversation")
		return
	}

	h.publisher.PasteDetected(ctx, rec)
	writeJSON(w, http.StatusCreated, rec)
}
