package handlers

import (
	"net/http"

	"github.com/NeroQue/onboarding-flow-backend/internal/logger"
	"github.com/NeroQue/onboarding-flow-backend/internal/models"
	"github.com/NeroQue/onboarding-flow-backend/internal/services"
)

type DeviceResponse struct {
	UserID string `json:"userId"`
}

// SettingsHandler serves the global branding settings and the device identity
type SettingsHandler struct {
	Service *services.SettingsService
	log     *logger.Logger
}

func NewSettingsHandler(service *services.SettingsService, log *logger.Logger) *SettingsHandler {
	return &SettingsHandler{Service: service, log: log.With("handler", "settings")}
}

// Get handles GET /api/settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Service.GetSettings(r.Context())
	if err != nil {
		SendServiceError(w, h.log, "Error loading settings", err)
		return
	}
	SendSuccessResponse(w, h.log, "Settings retrieved successfully", settings, "Settings retrieved")
}

// Update handles PUT /api/settings
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input models.GlobalSettings
	if err := ValidateJSONBody(r, &input); err != nil {
		SendServiceError(w, h.log, "Invalid settings body", err)
		return
	}
	settings, err := h.Service.UpdateSettings(r.Context(), input)
	if err != nil {
		SendServiceError(w, h.log, "Error saving settings", err)
		return
	}
	SendSuccessResponse(w, h.log, "Settings updated successfully", settings, "Settings updated")
}

// Device handles GET /api/device - the stable user id of this installation
func (h *SettingsHandler) Device(w http.ResponseWriter, r *http.Request) {
	id, err := h.Service.DeviceUserID(r.Context())
	if err != nil {
		SendServiceError(w, h.log, "Error resolving device id", err)
		return
	}
	SendSuccessResponse(w, h.log, "Device identity retrieved", DeviceResponse{UserID: id}, "Device identity retrieved")
}
