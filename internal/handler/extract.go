// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/mzhang055/twirl/internal/dom"
	"github.com/mzhang055/twirl/internal/events"
	"github.com/mzhang055/twirl/internal/extract"
	"github.com/mzhang055/twirl/internal/middleware"
	"github.com/mzhang055/twirl/internal/model"
	"github.com/mzhang055/twirl/internal/platform"
	"github.com/mzhang055/twirl/internal/store"
	"github.com/mzhang055/twirl/pkg/logger"
)

// ExtractHandler handles one-shot extraction of a document snapshot.
type ExtractHandler struct {
	store     *store.Store
	publisher *events.Publisher
	logger    *logger.Logger
}

// NewExtractHandler creates a new extract handler.
func NewExtractHandler(st *store.Store, pub *events.Publisher, log *logger.Logger) *ExtractHandler {
	return &ExtractHandler{
		store:     st,
		publisher: pub,
		logger:    log,
	}
}

type extractRequest struct {
	URL      string    `json:"url"`
	Platform string    `json:"platform,omitempty"`
	Document *dom.Node `json:"document"`
	Persist  bool      `json:"persist"`
}

type extractResponse struct {
	Platform string                    `json:"platform"`
	Turns    []model.Turn              `json:"turns"`
	Record   *model.ConversationRecord `json:"record,omitempty"`
}

// Extract handles POST /api/v1/extract
func (h *ExtractHandler) Extract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidatePageURL(req.URL); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Document == nil {
		writeError(w, http.StatusBadRequest, "document is required")
		return
	}

	profile := h.resolveProfile(&req)
	req.Document.Link()
	turns := extract.BuildTurns(profile, req.Document)

	resp := extractResponse{
		Platform: string(profile.ID),
		Turns:    turns,
	}
	if req.Persist && len(turns) > 0 {
		rec := model.NewRecord(profile.ID, profile.DisplayName, req.URL, turns, timeNow())
		if err := h.store.Merge(ctx, rec); err != nil {
			h.logger.Error("failed to persist extraction", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to persist conversation")
			return
		}
		h.publisher.ConversationSaved(ctx, rec)
		resp.Record = rec
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *ExtractHandler) resolveProfile(req *extractRequest) *platform.Profile {
	if req.Platform != "" {
		return platform.ByID(model.Platform(req.Platform))
	}
	if u, err := url.Parse(req.URL); err == nil {
		return platform.Detect(u.Hostname())
	}
	return platform.Generic()
}
