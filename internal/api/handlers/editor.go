package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/NeroQue/onboarding-flow-backend/internal/logger"
	"github.com/NeroQue/onboarding-flow-backend/internal/models"
	"github.com/NeroQue/onboarding-flow-backend/internal/services"
)

const maxPatchBody = 16 << 20 // generated images arrive as data URIs

// Request bodies for editor endpoints
type OpenEditorRequest struct {
	CourseID string `json:"courseId"`
}

type SetNameRequest struct {
	Name string `json:"name"`
}

type ReorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type InsertTextRequest struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

type AddBlockRequest struct {
	Type models.BlockType `json:"type"`
}

// EditorHandler exposes the course editor sessions
type EditorHandler struct {
	Service *services.EditorService
	log     *logger.Logger
}

func NewEditorHandler(service *services.EditorService, log *logger.Logger) *EditorHandler {
	return &EditorHandler{Service: service, log: log.With("handler", "editor")}
}

// Open handles POST /api/editor - starts editing a course, or a new one without courseId
func (h *EditorHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req OpenEditorRequest
	if r.ContentLength != 0 {
		if err := ValidateJSONBody(r, &req); err != nil {
			SendServiceError(w, h.log, "Invalid open editor request", err)
			return
		}
	}
	view, err := h.Service.Open(r.Context(), req.CourseID)
	if err != nil {
		SendServiceError(w, h.log, "Error opening editor", err)
		return
	}
	SendCreatedResponse(w, h.log, "Editor opened", view, "Editor opened")
}

// Get handles GET /api/editor/{id}
func (h *EditorHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respond(w, "Editor retrieved", func() (services.EditorView, error) {
		return h.Service.View(r.Context(), r.PathValue("id"))
	})
}

// SetName handles PUT /api/editor/{id}/name
func (h *EditorHandler) SetName(w http.ResponseWriter, r *http.Request) {
	var req SetNameRequest
	if err := ValidateJSONBody(r, &req); err != nil {
		SendServiceError(w, h.log, "Invalid name request", err)
		return
	}
	h.respond(w, "Course name updated", func() (services.EditorView, error) {
		return h.Service.SetName(r.Context(), r.PathValue("id"), req.Name)
	})
}

// AddStep handles POST /api/editor/{id}/steps
func (h *EditorHandler) AddStep(w http.ResponseWriter, r *http.Request) {
	h.respond(w, "Step added", func() (services.EditorView, error) {
		return h.Service.AddStep(r.Context(), r.PathValue("id"))
	})
}

// SelectStep handles POST /api/editor/{id}/steps/{index}/select
func (h *EditorHandler) SelectStep(w http.ResponseWriter, r *http.Request) {
	index, ok := h.pathIndex(w, r)
	if !ok {
		return
	}
	h.respond(w, "Step selected", func() (services.EditorView, error) {
		return h.Service.SelectStep(r.Context(), r.PathValue("id"), index)
	})
}

// DeleteStep handles DELETE /api/editor/{id}/steps/{index}
func (h *EditorHandler) DeleteStep(w http.ResponseWriter, r *http.Request) {
	index, ok := h.pathIndex(w, r)
	if !ok {
		return
	}
	h.respond(w, "Step deleted", func() (services.EditorView, error) {
		return h.Service.DeleteStep(r.Context(), r.PathValue("id"), index)
	})
}

// ReorderStep handles POST /api/editor/{id}/steps/reorder
func (h *EditorHandler) ReorderStep(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if err := ValidateJSONBody(r, &req); err != nil {
		SendServiceError(w, h.log, "Invalid reorder request", err)
		return
	}
	h.respond(w, "Step moved", func() (services.EditorView, error) {
		return h.Service.ReorderStep(r.Context(), r.PathValue("id"), req.From, req.To)
	})
}

// PatchActive handles PATCH /api/editor/{id}/active - shallow merge into the active step
func (h *EditorHandler) PatchActive(w http.ResponseWriter, r *http.Request) {
	raw, ok := h.readBody(w, r)
	if !ok {
		return
	}
	h.respond(w, "Step updated", func() (services.EditorView, error) {
		return h.Service.PatchActiveStep(r.Context(), r.PathValue("id"), raw)
	})
}

// InsertText handles POST /api/editor/{id}/active/text
func (h *EditorHandler) InsertText(w http.ResponseWriter, r *http.Request) {
	var req InsertTextRequest
	if err := ValidateJSONBody(r, &req); err != nil {
		SendServiceError(w, h.log, "Invalid insert request", err)
		return
	}
	h.respond(w, "Text inserted", func() (services.EditorView, error) {
		return h.Service.InsertText(r.Context(), r.PathValue("id"), req.Start, req.End, req.Text)
	})
}

// AddBlock handles POST /api/editor/{id}/blocks
func (h *EditorHandler) AddBlock(w http.ResponseWriter, r *http.Request) {
	var req AddBlockRequest
	if err := ValidateJSONBody(r, &req); err != nil {
		SendServiceError(w, h.log, "Invalid block request", err)
		return
	}
	h.respond(w, "Block added", func() (services.EditorView, error) {
		return h.Service.AddBlock(r.Context(), r.PathValue("id"), req.Type)
	})
}

// PatchBlock handles PATCH /api/editor/{id}/blocks/{blockId}
func (h *EditorHandler) PatchBlock(w http.ResponseWriter, r *http.Request) {
	raw, ok := h.readBody(w, r)
	if !ok {
		return
	}
	h.respond(w, "Block updated", func() (services.EditorView, error) {
		return h.Service.PatchBlock(r.Context(), r.PathValue("id"), r.PathValue("blockId"), raw)
	})
}

// RemoveBlock handles DELETE /api/editor/{id}/blocks/{blockId}
func (h *EditorHandler) RemoveBlock(w http.ResponseWriter, r *http.Request) {
	h.respond(w, "Block removed", func() (services.EditorView, error) {
		return h.Service.RemoveBlock(r.Context(), r.PathValue("id"), r.PathValue("blockId"))
	})
}

// Commit handles POST /api/editor/{id}/commit - saves the course and closes the editor
func (h *EditorHandler) Commit(w http.ResponseWriter, r *http.Request) {
	res, err := h.Service.Commit(r.Context(), r.PathValue("id"))
	if err != nil {
		SendServiceError(w, h.log, "Error committing course", err)
		return
	}
	if res.Created {
		SendCreatedResponse(w, h.log, "Course created successfully", res, "Course created from editor")
		return
	}
	SendSuccessResponse(w, h.log, "Course saved successfully", res, "Course updated from editor")
}

// Discard handles DELETE /api/editor/{id}
func (h *EditorHandler) Discard(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Discard(r.PathValue("id")); err != nil {
		SendServiceError(w, h.log, "Error discarding editor", err)
		return
	}
	SendSuccessResponse(w, h.log, "Editor discarded", nil, "Editor discarded")
}

// Generate handles POST /api/editor/{id}/generate/{action} - starts a generation task
func (h *EditorHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req services.GenerateRequest
	if r.ContentLength != 0 {
		if err := ValidateJSONBody(r, &req); err != nil {
			SendServiceError(w, h.log, "Invalid generate request", err)
			return
		}
	}
	taskID, err := h.Service.Generate(r.Context(), r.PathValue("id"), r.PathValue("action"), req)
	if err != nil {
		SendServiceError(w, h.log, "Error starting generation", err)
		return
	}
	SendAcceptedResponse(w, h.log, "Generation started", TaskStartedResponse{TaskID: taskID}, "Generation task started")
}

func (h *EditorHandler) respond(w http.ResponseWriter, message string, fn func() (services.EditorView, error)) {
	view, err := fn()
	if err != nil {
		SendServiceError(w, h.log, "Editor operation failed", err)
		return
	}
	SendSuccessResponse(w, h.log, message, view, message)
}

func (h *EditorHandler) pathIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		SendErrorResponse(w, h.log, "Step index must be a number", http.StatusBadRequest, "Invalid step index", err)
		return 0, false
	}
	return index, true
}

func (h *EditorHandler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPatchBody))
	if err != nil {
		SendErrorResponse(w, h.log, "Request body too large or unreadable", http.StatusRequestEntityTooLarge, "Failed to read body", err)
		return nil, false
	}
	if len(raw) == 0 {
		SendErrorResponse(w, h.log, "Request body is required", http.StatusBadRequest, "Empty patch body", nil)
		return nil, false
	}
	return raw, true
}
