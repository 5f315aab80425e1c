package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/NeroQue/onboarding-flow-backend/internal/generation"
	"github.com/NeroQue/onboarding-flow-backend/internal/logger"
)

// MediaHandler relays generated assets that the browser cannot fetch on its own
type MediaHandler struct {
	Gateway generation.Gateway
	log     *logger.Logger
}

func NewMediaHandler(gw generation.Gateway, log *logger.Logger) *MediaHandler {
	if gw == nil {
		gw = generation.Unavailable{}
	}
	return &MediaHandler{Gateway: gw, log: log.With("handler", "media")}
}

// Video handles GET /api/media/video?uri={uri} - streams a generated video
func (h *MediaHandler) Video(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		SendErrorResponse(w, h.log, "Video uri is required", http.StatusBadRequest, "Missing video uri", nil)
		return
	}

	media, err := h.Gateway.OpenVideo(r.Context(), uri)
	if err != nil {
		SendServiceError(w, h.log, "Failed to open generated video", err)
		return
	}
	defer media.Body.Close()

	w.Header().Set("Content-Type", media.ContentType)
	if media.ContentLength >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(media.ContentLength, 10))
	}
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)

	n, err := io.Copy(w, media.Body)
	if err != nil {
		// headers are out, all we can do is log
		h.log.Warn("Video stream interrupted", "bytes", n, "error", err)
		return
	}
	h.log.Debug("Video streamed", "bytes", n)
}
