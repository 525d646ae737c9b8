// Package api exposes the speaktex pipeline over HTTP.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/speaktex/speaktex/pkg/speaktex"
)

// Handler serves the pipeline API endpoints
type Handler struct {
	service speaktex.Service

	// MaxUploadBytes caps direct (non-presigned) uploads. Default 10 MiB.
	MaxUploadBytes int64

	// ProcessBudget bounds one asynchronous pipeline run triggered over
	// HTTP. Default 10 minutes, comfortably above the polling budget.
	ProcessBudget time.Duration
}

// NewHandler creates a new API handler
func NewHandler(service speaktex.Service) *Handler {
	return &Handler{
		service:        service,
		MaxUploadBytes: 10 << 20,
		ProcessBudget:  10 * time.Minute,
	}
}

// Routes returns the router for the pipeline endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/upload", func(r chi.Router) {
		r.Post("/presigned-url", h.IssueUpload)
		r.Post("/direct", h.DirectUpload)
	})
	r.Get("/uploads/*", h.GetAudioDownloadURL)

	r.Post("/process", h.Process)

	r.Route("/results", func(r chi.Router) {
		r.Post("/batch", h.PollBatch)
		r.Get("/status/*", h.ResultStatus)
		r.Get("/*", h.PollResult)
	})

	r.Route("/history", func(r chi.Router) {
		r.Post("/", h.SaveHistory)
		r.Get("/{user_id}", h.ListHistory)
		r.Delete("/{user_id}", h.DeleteAllHistory)
		r.Delete("/{user_id}/{timestamp}", h.DeleteHistory)
	})

	return r
}

// renderError maps service errors onto HTTP statuses. Upstream failure
// messages are surfaced as-is; they never carry credentials.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, speaktex.ErrInvalidContentType),
		errors.Is(err, speaktex.ErrInvalidUploadKey),
		errors.Is(err, speaktex.ErrMissingField):
		status = http.StatusBadRequest
	case errors.Is(err, speaktex.ErrRecordNotFound):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "error", err)
	}

	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": err.Error()})
}
