package http

import (
	"log/slog"
	"net/http"

	"github.com/nahankar/shatika/internal/service"
	"github.com/nahankar/shatika/pkg/httputil"
)

// UploadHandler accepts admin file uploads.
type UploadHandler struct {
	media  *service.MediaService
	logger *slog.Logger
}

// NewUploadHandler creates a new upload HTTP handler.
func NewUploadHandler(media *service.MediaService, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		media:  media,
		logger: logger,
	}
}

// Upload handles POST /api/v1/uploads (multipart, fields "file" and
// optional "folder"). It answers with the stored file and its public URL.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	input, cleanup, err := readUpload(w, r, h.media.MaxBytes())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	defer cleanup()

	file, err := h.media.Upload(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, file)
}
