package handlers

import (
	"net/http"
	"time"

	"github.com/NeroQue/onboarding-flow-backend/internal/logger"
	"github.com/NeroQue/onboarding-flow-backend/pkg/task"
)

type TaskCleanupResponse struct {
	Cleaned int `json:"cleaned"`
}

// TaskHandler handles task status requests
type TaskHandler struct {
	Tasks *task.Manager
	log   *logger.Logger
}

// NewTaskHandler creates new task handler
func NewTaskHandler(tasks *task.Manager, log *logger.Logger) *TaskHandler {
	return &TaskHandler{Tasks: tasks, log: log.With("handler", "tasks")}
}

// GetTask handles GET /api/tasks?id={taskId} - checks task status
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID := r.URL.Query().Get("id")
	if taskID == "" {
		SendErrorResponse(w, h.log, "Task ID is required", http.StatusBadRequest, "Missing task id", nil)
		return
	}

	t, exists := h.Tasks.GetTask(taskID)
	if !exists {
		SendErrorResponse(w, h.log, "Task not found", http.StatusNotFound, "Unknown task", nil)
		return
	}
	SendSuccessResponse(w, h.log, "Task retrieved", t, "Task retrieved")
}

// CleanupTasks handles POST /api/tasks/cleanup - manually cleans old tasks
func (h *TaskHandler) CleanupTasks(w http.ResponseWriter, r *http.Request) {
	// default to 24 hours if not specified
	age := 24 * time.Hour
	if ageStr := r.URL.Query().Get("age"); ageStr != "" {
		var err error
		age, err = time.ParseDuration(ageStr)
		if err != nil {
			SendErrorResponse(w, h.log, "Invalid duration format", http.StatusBadRequest, "Invalid cleanup age", err)
			return
		}
	}

	cleaned := h.Tasks.CleanupOldTasks(age)
	h.log.Info("Task cleanup requested", "cleaned", cleaned, "age", age.String())
	SendSuccessResponse(w, h.log, "Cleanup completed", TaskCleanupResponse{Cleaned: cleaned}, "Tasks cleaned")
}
