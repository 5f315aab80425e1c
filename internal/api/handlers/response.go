package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/NeroQue/onboarding-flow-backend/internal/editor"
	"github.com/NeroQue/onboarding-flow-backend/internal/generation"
	"github.com/NeroQue/onboarding-flow-backend/internal/logger"
	"github.com/NeroQue/onboarding-flow-backend/internal/player"
	"github.com/NeroQue/onboarding-flow-backend/internal/services"
	"github.com/NeroQue/onboarding-flow-backend/pkg/session"
)

// Common response structures for consistency across all handlers
type ErrorResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// SendErrorResponse sends a consistent error response with logging
func SendErrorResponse(w http.ResponseWriter, log *logger.Logger, message string, statusCode int, logMessage string, err error) {
	switch {
	case statusCode >= http.StatusInternalServerError:
		log.Error(logMessage, "status", statusCode, "error", err)
	default:
		log.Debug(logMessage, "status", statusCode, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Message: message,
		Success: false,
	}
	if encodeErr := json.NewEncoder(w).Encode(response); encodeErr != nil {
		log.Error("Failed to encode error response", "error", encodeErr)
	}
}

// SendSuccessResponse sends a consistent success response with logging
func SendSuccessResponse(w http.ResponseWriter, log *logger.Logger, message string, data interface{}, logMessage string) {
	sendData(w, log, http.StatusOK, message, data, logMessage)
}

// SendCreatedResponse sends a consistent response for created resources
func SendCreatedResponse(w http.ResponseWriter, log *logger.Logger, message string, data interface{}, logMessage string) {
	sendData(w, log, http.StatusCreated, message, data, logMessage)
}

// SendAcceptedResponse is used when work continues in a background task
func SendAcceptedResponse(w http.ResponseWriter, log *logger.Logger, message string, data interface{}, logMessage string) {
	sendData(w, log, http.StatusAccepted, message, data, logMessage)
}

func sendData(w http.ResponseWriter, log *logger.Logger, statusCode int, message string, data interface{}, logMessage string) {
	log.Debug(logMessage, "status", statusCode)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := SuccessResponse{
		Message: message,
		Success: true,
		Data:    data,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		// headers are already out, all we can do is log
		log.Error("Failed to encode response", "error", err)
	}
}

// SendServiceError maps a service or state machine error to a status code
func SendServiceError(w http.ResponseWriter, log *logger.Logger, logMessage string, err error) {
	status, message := statusFor(err)
	SendErrorResponse(w, log, message, status, logMessage, err)
}

func statusFor(err error) (int, string) {
	var genErr *generation.Error
	var validation *ValidationError

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Message
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, "Session not found or expired"
	case errors.Is(err, services.ErrCourseNotFound):
		return http.StatusNotFound, "Course not found"
	case errors.Is(err, player.ErrDeadLink):
		return http.StatusNotFound, "This course is no longer available"
	case errors.Is(err, editor.ErrBlockNotFound):
		return http.StatusNotFound, "Content block not found"
	case errors.Is(err, editor.ErrStepNotFound):
		return http.StatusNotFound, "Step not found"
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, editor.ErrIndexOutOfRange),
		errors.Is(err, editor.ErrUnknownField),
		errors.Is(err, editor.ErrInvalidValue),
		errors.Is(err, generation.ErrEmptyPrompt),
		errors.Is(err, generation.ErrForeignURI):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, editor.ErrNoStepSelected),
		errors.Is(err, editor.ErrCommitted),
		errors.Is(err, generation.ErrInFlight),
		services.IsPlayerConflict(err):
		return http.StatusConflict, err.Error()
	case errors.Is(err, generation.ErrNotConfigured):
		return http.StatusServiceUnavailable, "AI features are not configured"
	case errors.As(err, &genErr):
		return http.StatusBadGateway, "The AI service failed: " + genErr.Error()
	}
	return http.StatusInternalServerError, "Internal server error"
}

// ValidateJSONBody validates and decodes JSON request body
func ValidateJSONBody(r *http.Request, dest interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return &ValidationError{Message: "Request body is required"}
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields() // Strict validation

	if err := decoder.Decode(dest); err != nil {
		return &ValidationError{Message: "Invalid JSON format: " + err.Error()}
	}

	return nil
}

// ValidationError represents validation errors
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
