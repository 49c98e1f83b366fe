package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-integrity/pkg/middleware"
	"github.com/ekaya-inc/ekaya-integrity/pkg/models"
	"github.com/ekaya-inc/ekaya-integrity/pkg/services"
)

// SettingsHandler serves the settings UI.
type SettingsHandler struct {
	settingsService services.SettingsService
	logger          *zap.Logger
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(settingsService services.SettingsService, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService, logger: logger}
}

// RegisterRoutes registers the settings handler's routes on the given mux.
func (h *SettingsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/settings", middleware.RequireActor(h.Get))
	mux.HandleFunc("PUT /api/settings", middleware.RequireActor(h.Update))
	mux.HandleFunc("POST /api/settings/test-connection", middleware.RequireActor(h.TestConnection))
}

// Get handles GET /api/settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	views, err := h.settingsService.Get(r.Context())
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, views, h.logger)
}

type updateSettingsRequest struct {
	Settings []models.SettingUpdate `json:"settings"`
}

// Update handles PUT /api/settings. Keys are applied independently; see BatchResult.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	result, err := h.settingsService.BatchUpdate(r.Context(), req.Settings)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, result, h.logger)
}

// TestConnection handles POST /api/settings/test-connection.
// A failed connection check is still a 200; the outcome is in the body.
func (h *SettingsHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	var req models.ProviderTestRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	result, err := h.settingsService.TestProviderConnection(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, result, h.logger)
}
