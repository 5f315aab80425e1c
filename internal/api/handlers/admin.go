package handlers

import (
	"net/http"

	"github.com/NeroQue/onboarding-flow-backend/internal/logger"
	"github.com/NeroQue/onboarding-flow-backend/internal/services"
)

// AdminHandler handles administrative operations
type AdminHandler struct {
	Service *services.AdminService // admin operations go through here
	log     *logger.Logger
}

// NewAdminHandler creates handler with injected admin service
func NewAdminHandler(service *services.AdminService, log *logger.Logger) *AdminHandler {
	return &AdminHandler{Service: service, log: log.With("handler", "admin")}
}

// FactoryReset handles POST /api/admin/factory-reset - clears every stored key, session and task
func (h *AdminHandler) FactoryReset(w http.ResponseWriter, r *http.Request) {
	h.log.Warn("Factory reset requested")

	res, err := h.Service.FactoryReset(r.Context())
	if err != nil {
		SendErrorResponse(w, h.log, "Factory reset failed: "+err.Error(), http.StatusInternalServerError, "Error during factory reset", err)
		return
	}
	SendSuccessResponse(w, h.log, "Factory reset completed successfully - all data cleared", res, "Factory reset completed")
}

// GetStats handles GET /api/admin/stats - counts of stored and running things
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Stats(r.Context())
	if err != nil {
		SendErrorResponse(w, h.log, "Failed to get stats", http.StatusInternalServerError, "Error getting stats", err)
		return
	}
	SendSuccessResponse(w, h.log, "Stats retrieved successfully", stats, "Stats retrieved")
}
