package handler

import (
	"log/slog"
	"net/http"
)

const maxUploadSize = 32 << 20

// handleMediaUpload forwards an uploaded file to the media host and
// returns its public URL.
func (h *Handler) handleMediaUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "ErrInvalidPayload")
		return
	}
	defer file.Close()

	url, err := h.media.Upload(r.Context(), header.Filename, file)
	if err != nil {
		slog.Error("media upload", "filename", header.Filename, "error", err)
		respondError(w, r, http.StatusBadGateway, "ErrMediaUpload")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"url": url})
}
