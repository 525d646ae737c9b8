package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/speaktex/speaktex/pkg/speaktex"
)

// SaveHistoryRequest is the body of POST /history
type SaveHistoryRequest struct {
	UserID     string `json:"user_id"`
	Transcript string `json:"transcript"`
	Latex      string `json:"latex"`
}

// SaveHistory handles POST /history
func (h *Handler) SaveHistory(w http.ResponseWriter, r *http.Request) {
	var req SaveHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	record, err := h.service.SaveHistory(r.Context(), speaktex.SaveHistoryRequest{
		UserID:     req.UserID,
		Transcript: req.Transcript,
		Latex:      req.Latex,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]any{"record": record})
}

// ListHistory handles GET /history/{user_id}?limit=N
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	records, err := h.service.ListHistory(r.Context(), userID, limit)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]any{
		"records": records,
		"count":   len(records),
	})
}

// DeleteHistory handles DELETE /history/{user_id}/{timestamp}
func (h *Handler) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	timestamp := chi.URLParam(r, "timestamp")

	record, err := h.service.DeleteHistory(r.Context(), userID, timestamp)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]any{"deleted_record": record})
}

// DeleteAllHistory handles DELETE /history/{user_id}
func (h *Handler) DeleteAllHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	result, err := h.service.DeleteAllHistory(r.Context(), userID)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, result)
}
