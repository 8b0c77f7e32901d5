package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mzhang055/twirl/internal/middleware"
	"github.com/mzhang055/twirl/internal/model"
	"github.com/mzhang055/twirl/internal/store"
	"github.com/mzhang055/twirl/pkg/logger"
)

// ChatHandler handles stored conversation endpoints.
type ChatHandler struct {
	store  *store.Store
	logger *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(st *store.Store, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		store:  st,
		logger: log,
	}
}

type chatListResponse struct {
	Chats    []*model.ConversationRecord `json:"chats"`
	Selected string                      `json:"selected,omitempty"`
}

// List handles GET /api/v1/chats
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	records, selected, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list chats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list chats")
		return
	}
	writeJSON(w, http.StatusOK, chatListResponse{Chats: records, Selected: selected})
}

// Get handles GET /api/v1/chats/:id
func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateChatID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "chat not found")
			return
		}
		h.logger.Error("failed to load chat", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load chat")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetSelected handles GET /api/v1/chats/selected
func (h *ChatHandler) GetSelected(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.GetSelected(r.Context())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no chats stored")
			return
		}
		h.logger.Error("failed to load selected chat", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load selected chat")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Select handles PUT /api/v1/chats/:id/select
func (h *ChatHandler) Select(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateChatID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Select(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "chat not found")
			return
		}
		h.logger.Error("failed to select chat", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to select chat")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"selected": id})
}

// Clear handles DELETE /api/v1/chats
func (h *ChatHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ClearAll(r.Context()); err != nil {
		h.logger.Error("failed to clear chats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to clear chats")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
