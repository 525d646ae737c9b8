package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/speaktex/speaktex/pkg/speaktex"
)

// ProcessRequest is the body of POST /process
type ProcessRequest struct {
	FileKey string `json:"file_key"`
}

// Process handles POST /process: it triggers one pipeline run for an
// uploaded object and replies immediately. Clients learn the outcome by
// polling the results endpoints; the same invocation contract serves a
// queue consumer or webhook calling ProcessUpload directly.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !speaktex.IsUploadKey(req.FileKey) {
		http.Error(w, "file_key must be an upload key", http.StatusBadRequest)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.ProcessBudget)
		defer cancel()

		if _, err := h.service.ProcessUpload(ctx, req.FileKey); err != nil {
			slog.Error("pipeline run failed", "file_key", req.FileKey, "error", err)
		}
	}()

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]any{
		"file_key": req.FileKey,
		"status":   speaktex.PollStatusProcessing,
	})
}

// PollResult handles GET /results/{key}. Replies 202 while the pipeline is
// still running and 200 once a terminal result exists.
func (h *Handler) PollResult(w http.ResponseWriter, r *http.Request) {
	uploadKey := chi.URLParam(r, "*")

	result, err := h.service.PollResult(r.Context(), uploadKey)
	if err != nil {
		renderError(w, r, err)
		return
	}

	if result.Status == speaktex.PollStatusProcessing {
		render.Status(r, http.StatusAccepted)
	}
	render.JSON(w, r, result)
}

// PollBatchRequest is the body of POST /results/batch
type PollBatchRequest struct {
	FileKeys []string `json:"file_keys"`
}

// PollBatch handles POST /results/batch. Per-key failures are isolated:
// one bad key yields a status "error" entry without aborting the rest.
func (h *Handler) PollBatch(w http.ResponseWriter, r *http.Request) {
	var req PollBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.FileKeys == nil {
		http.Error(w, "missing file_keys in request body", http.StatusBadRequest)
		return
	}

	results := h.service.PollResults(r.Context(), req.FileKeys)
	render.JSON(w, r, map[string]any{"results": results})
}

// ResultStatus handles GET /results/status/{key}, the cheap existence-only
// check for polling loops.
func (h *Handler) ResultStatus(w http.ResponseWriter, r *http.Request) {
	uploadKey := chi.URLParam(r, "*")

	status, err := h.service.ResultStatus(r.Context(), uploadKey)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, status)
}
