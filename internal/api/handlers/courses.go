package handlers

import (
	"net/http"

	"github.com/NeroQue/onboarding-flow-backend/internal/logger"
	"github.com/NeroQue/onboarding-flow-backend/internal/services"
)

// ImportRequest lists the exports to import, relative to the import directory
type ImportRequest struct {
	Paths []string `json:"paths"`
}

type ShareLinkResponse struct {
	URL string `json:"url"`
}

type TaskStartedResponse struct {
	TaskID string `json:"task_id"`
}

// CourseHandler processes course-related HTTP requests
type CourseHandler struct {
	Service *services.CourseService // handles all course business logic
	log     *logger.Logger
}

// NewCourseHandler creates handler with injected service
func NewCourseHandler(service *services.CourseService, log *logger.Logger) *CourseHandler {
	return &CourseHandler{Service: service, log: log.With("handler", "courses")}
}

// Boot handles GET /api/boot?courseId= - resolves the shared course parameter
func (h *CourseHandler) Boot(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.Boot(r.Context(), r.URL.Query().Get("courseId"))
	if err != nil {
		SendServiceError(w, h.log, "Error resolving boot parameter", err)
		return
	}
	SendSuccessResponse(w, h.log, "Boot resolved", result, "Boot resolved to "+result.View)
}

// List handles GET /api/courses - returns all courses
func (h *CourseHandler) List(w http.ResponseWriter, r *http.Request) {
	courses, err := h.Service.ListCourses(r.Context())
	if err != nil {
		SendServiceError(w, h.log, "Error retrieving courses", err)
		return
	}
	SendSuccessResponse(w, h.log, "Courses retrieved successfully", courses, "Courses listed")
}

// Get handles GET /api/courses/{id}
func (h *CourseHandler) Get(w http.ResponseWriter, r *http.Request) {
	course, err := h.Service.GetCourse(r.Context(), r.PathValue("id"))
	if err != nil {
		SendServiceError(w, h.log, "Error retrieving course", err)
		return
	}
	SendSuccessResponse(w, h.log, "Course retrieved successfully", course, "Course retrieved")
}

// Delete handles DELETE /api/courses/{id}
func (h *CourseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteCourse(r.Context(), r.PathValue("id")); err != nil {
		SendServiceError(w, h.log, "Error deleting course", err)
		return
	}
	SendSuccessResponse(w, h.log, "Course deleted successfully", nil, "Course deleted")
}

// Share handles GET /api/courses/{id}/share - the link that opens the course player
func (h *CourseHandler) Share(w http.ResponseWriter, r *http.Request) {
	link, err := h.Service.ShareLink(r.Context(), r.PathValue("id"))
	if err != nil {
		SendServiceError(w, h.log, "Error building share link", err)
		return
	}
	SendSuccessResponse(w, h.log, "Share link created", ShareLinkResponse{URL: link}, "Share link created")
}

// ScanImports handles GET /api/courses/import/scan - lists importable exports
func (h *CourseHandler) ScanImports(w http.ResponseWriter, r *http.Request) {
	files, err := h.Service.ScanImports()
	if err != nil {
		SendServiceError(w, h.log, "Error scanning import directory", err)
		return
	}
	SendSuccessResponse(w, h.log, "Import directory scanned", files, "Import directory scanned")
}

// Import handles POST /api/courses/import - starts a batch import task
func (h *CourseHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := ValidateJSONBody(r, &req); err != nil {
		SendServiceError(w, h.log, "Invalid import request", err)
		return
	}
	taskID, err := h.Service.ImportCourses(r.Context(), req.Paths)
	if err != nil {
		SendServiceError(w, h.log, "Error starting import", err)
		return
	}
	SendAcceptedResponse(w, h.log, "Import started", TaskStartedResponse{TaskID: taskID}, "Import task started")
}
