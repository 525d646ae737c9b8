package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/speaktex/speaktex/pkg/speaktex"
)

// IssueUploadRequest is the body of POST /upload/presigned-url
type IssueUploadRequest struct {
	FileName    string `json:"filename"`
	ContentType string `json:"content_type"`
}

// IssueUpload handles POST /upload/presigned-url
func (h *Handler) IssueUpload(w http.ResponseWriter, r *http.Request) {
	var req IssueUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.IssueUpload(r.Context(), speaktex.IssueUploadRequest{
		FileName:    req.FileName,
		ContentType: req.ContentType,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}

	slog.Info("issued presigned upload", "file_key", resp.FileKey)
	render.JSON(w, r, resp)
}

// DirectUpload handles POST /upload/direct (multipart "audio" field).
// The presigned flow is preferred; this path buffers audio through the
// server for clients that cannot PUT to the store directly.
func (h *Handler) DirectUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)

	file, header, err := r.FormFile("audio")
	if err != nil {
		http.Error(w, "no audio file provided", http.StatusBadRequest)
		return
	}
	defer file.Close()

	fileKey, err := h.service.DirectUpload(r.Context(), speaktex.DirectUploadRequest{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Reader:      file,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}

	slog.Info("direct upload stored", "file_key", fileKey)
	render.JSON(w, r, map[string]string{"file_key": fileKey})
}

// GetAudioDownloadURL handles GET /uploads/{key}
func (h *Handler) GetAudioDownloadURL(w http.ResponseWriter, r *http.Request) {
	uploadKey := chi.URLParam(r, "*")

	url, err := h.service.GetAudioDownloadURL(r.Context(), uploadKey)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]string{"download_url": url})
}
