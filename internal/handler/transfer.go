package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mzhang055/twirl/internal/events"
	"github.com/mzhang055/twirl/internal/llm"
	"github.com/mzhang055/twirl/internal/middleware"
	"github.com/mzhang055/twirl/internal/model"
	"github.com/mzhang055/twirl/internal/store"
	"github.com/mzhang055/twirl/internal/transfer"
	"github.com/mzhang055/twirl/pkg/logger"
)

// TransferHandler handles conversation handoff endpoints.
type TransferHandler struct {
	store     *store.Store
	formatter *transfer.Formatter
	continuer *llm.Continuer
	publisher *events.Publisher
	logger    *logger.Logger
}

// NewTransferHandler creates a new transfer handler.
func NewTransferHandler(st *store.Store, f *transfer.Formatter, c *llm.Continuer, pub *events.Publisher, log *logger.Logger) *TransferHandler {
	return &TransferHandler{
		store:     st,
		formatter: f,
		continuer: c,
		publisher: pub,
		logger:    log,
	}
}

type createTransferRequest struct {
	// ChatID selects a specific record; empty uses the current selection.
	ChatID         string `json:"chat_id,omitempty"`
	TargetPlatform string `json:"target_platform"`
}

// loadRecord resolves the record a transfer request refers to.
func (h *TransferHandler) loadRecord(r *http.Request, chatID string) (*model.ConversationRecord, int, string) {
	ctx := r.Context()
	if chatID != "" {
		if err := middleware.ValidateChatID(chatID); err != nil {
			return nil, http.StatusBadRequest, err.Error()
		}
		rec, err := h.store.Get(ctx, chatID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, http.StatusNotFound, "chat not found"
		}
		if err != nil {
			return nil, http.StatusInternalServerError, "failed to load chat"
		}
		return rec, 0, ""
	}
	rec, err := h.store.GetSelected(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, http.StatusNotFound, "no chats stored"
	}
	if err != nil {
		return nil, http.StatusInternalServerError, "failed to load chat"
	}
	return rec, 0, ""
}

// Create handles POST /api/v1/transfer
func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidatePlatform(req.TargetPlatform); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, status, msg := h.loadRecord(r, req.ChatID)
	if rec == nil {
		writeError(w, status, msg)
		return
	}

	target := model.Platform(req.TargetPlatform)
	slot := &model.TransferSlot{
		Text:           h.formatter.Format(rec, target),
		TargetPlatform: target,
		Source:         transfer.StripBrackets(rec.Source),
	}
	if err := h.store.PutSlot(ctx, slot); err != nil {
		h.logger.Error("failed to stage transfer", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to stage transfer")
		return
	}

	h.publisher.TransferCreated(ctx, slot)
	writeJSON(w, http.StatusCreated, slot)
}

// Consume handles POST /api/v1/transfer/consume
func (h *TransferHandler) Consume(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	slot, err := h.store.ConsumeSlot(ctx)
	switch {
	case errors.Is(err, store.ErrNoSlot):
		writeError(w, http.StatusNotFound, "no pending transfer")
		return
	case errors.Is(err, store.ErrSlotExpired):
		writeError(w, http.StatusGone, "transfer expired")
		return
	case err != nil:
		h.logger.Error("failed to consume transfer", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to consume transfer")
		return
	}

	h.publisher.TransferConsumed(ctx, slot)
	writeJSON(w, http.StatusOK, slot)
}

type continueRequest struct {
	ChatID string `json:"chat_id,omitempty"`
	Model  string `json:"model,omitempty"`
}

type continueResponse struct {
	Content   string `json:"content"`
	Model     string `json:"model"`
	Provider  string `json:"provider"`
	LatencyMs int64  `json:"latency_ms"`
}

// Continue handles POST /api/v1/transfer/continue
func (h *TransferHandler) Continue(w http.ResponseWriter, r *http.Request) {
	if h.continuer == nil {
		writeError(w, http.StatusServiceUnavailable, "no LLM provider configured")
		return
	}

	var req continueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, status, msg := h.loadRecord(r, req.ChatID)
	if rec == nil {
		writeError(w, status, msg)
		return
	}

	resp, err := h.continuer.Continue(r.Context(), rec, req.Model)
	if err != nil {
		h.logger.Error("continuation failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "continuation failed")
		return
	}

	writeJSON(w, http.StatusOK, continueResponse{
		Content:   resp.Content,
		Model:     resp.Model,
		Provider:  h.continuer.Provider(),
		LatencyMs: resp.LatencyMs,
	})
}
