package handlers

import (
	"net/http"

	"github.com/NeroQue/onboarding-flow-backend/internal/logger"
	"github.com/NeroQue/onboarding-flow-backend/internal/services"
)

// Request bodies for player endpoints
type StartPlayerRequest struct {
	CourseID string `json:"courseId"`
	UserID   string `json:"userId,omitempty"`
}

type FollowLinkRequest struct {
	CourseID string `json:"courseId,omitempty"`
}

type ReviewRequest struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback,omitempty"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

// PlayerHandler exposes player sessions, progress and analytics
type PlayerHandler struct {
	Service *services.PlayerService
	log     *logger.Logger
}

func NewPlayerHandler(service *services.PlayerService, log *logger.Logger) *PlayerHandler {
	return &PlayerHandler{Service: service, log: log.With("handler", "player")}
}

// Start handles POST /api/player
func (h *PlayerHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartPlayerRequest
	if err := ValidateJSONBody(r, &req); err != nil {
		SendServiceError(w, h.log, "Invalid start request", err)
		return
	}
	view, err := h.Service.Start(r.Context(), req.CourseID, req.UserID)
	if err != nil {
		SendServiceError(w, h.log, "Error starting player", err)
		return
	}
	SendCreatedResponse(w, h.log, "Player started", view, "Player started")
}

// Get handles GET /api/player/{id}
func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respond(w, "Player retrieved", func() (services.PlayerView, error) {
		return h.Service.Get(r.Context(), r.PathValue("id"))
	})
}

// Advance handles POST /api/player/{id}/advance
func (h *PlayerHandler) Advance(w http.ResponseWriter, r *http.Request) {
	h.respond(w, "Advanced", func() (services.PlayerView, error) {
		return h.Service.Advance(r.Context(), r.PathValue("id"))
	})
}

// Interact handles POST /api/player/{id}/interact
func (h *PlayerHandler) Interact(w http.ResponseWriter, r *http.Request) {
	h.respond(w, "Step marked as interacted", func() (services.PlayerView, error) {
		return h.Service.Interact(r.Context(), r.PathValue("id"))
	})
}

// FollowLink handles POST /api/player/{id}/follow-link
func (h *PlayerHandler) FollowLink(w http.ResponseWriter, r *http.Request) {
	var req FollowLinkRequest
	if r.ContentLength != 0 {
		if err := ValidateJSONBody(r, &req); err != nil {
			SendServiceError(w, h.log, "Invalid follow-link request", err)
			return
		}
	}
	h.respond(w, "Linked course opened", func() (services.PlayerView, error) {
		return h.Service.FollowLink(r.Context(), r.PathValue("id"), req.CourseID)
	})
}

// Reset handles POST /api/player/{id}/reset
func (h *PlayerHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.respond(w, "Course restarted", func() (services.PlayerView, error) {
		return h.Service.Reset(r.Context(), r.PathValue("id"))
	})
}

// Review handles POST /api/player/{id}/review
func (h *PlayerHandler) Review(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if err := ValidateJSONBody(r, &req); err != nil {
		SendServiceError(w, h.log, "Invalid review request", err)
		return
	}
	review, err := h.Service.SubmitReview(r.Context(), r.PathValue("id"), req.Rating, req.Feedback)
	if err != nil {
		SendServiceError(w, h.log, "Error submitting review", err)
		return
	}
	SendCreatedResponse(w, h.log, "Thanks for your feedback", review, "Review submitted")
}

// Chat handles POST /api/player/{id}/chat
func (h *PlayerHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := ValidateJSONBody(r, &req); err != nil {
		SendServiceError(w, h.log, "Invalid chat request", err)
		return
	}
	reply, err := h.Service.Chat(r.Context(), r.PathValue("id"), req.Message)
	if err != nil {
		SendServiceError(w, h.log, "Concierge chat failed", err)
		return
	}
	SendSuccessResponse(w, h.log, "Reply received", reply, "Concierge replied")
}

// Close handles DELETE /api/player/{id}
func (h *PlayerHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Close(r.PathValue("id")); err != nil {
		SendServiceError(w, h.log, "Error closing player", err)
		return
	}
	SendSuccessResponse(w, h.log, "Player closed", nil, "Player closed")
}

// Progress handles GET /api/progress?userId=&courseId= - data is null when nothing is recorded
func (h *PlayerHandler) Progress(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rec, err := h.Service.Progress(r.Context(), q.Get("userId"), q.Get("courseId"))
	if err != nil {
		SendServiceError(w, h.log, "Error loading progress", err)
		return
	}
	SendSuccessResponse(w, h.log, "Progress retrieved", rec, "Progress retrieved")
}

// Analytics handles GET /api/analytics
func (h *PlayerHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Analytics(r.Context())
	if err != nil {
		SendServiceError(w, h.log, "Error building analytics", err)
		return
	}
	SendSuccessResponse(w, h.log, "Analytics retrieved", stats, "Analytics retrieved")
}

func (h *PlayerHandler) respond(w http.ResponseWriter, message string, fn func() (services.PlayerView, error)) {
	view, err := fn()
	if err != nil {
		SendServiceError(w, h.log, "Player operation failed", err)
		return
	}
	SendSuccessResponse(w, h.log, message, view, message)
}
