package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-integrity/pkg/middleware"
	"github.com/ekaya-inc/ekaya-integrity/pkg/models"
	"github.com/ekaya-inc/ekaya-integrity/pkg/services"
)

// AssignmentHandler handles assignment requests.
type AssignmentHandler struct {
	assignmentService services.AssignmentService
	logger            *zap.Logger
}

// NewAssignmentHandler creates a new AssignmentHandler.
func NewAssignmentHandler(assignmentService services.AssignmentService, logger *zap.Logger) *AssignmentHandler {
	return &AssignmentHandler{assignmentService: assignmentService, logger: logger}
}

// RegisterRoutes registers the assignment handler's routes on the given mux.
func (h *AssignmentHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/assignments", middleware.RequireActor(h.Create))
	mux.HandleFunc("GET /api/assignments/{aid}", middleware.RequireActor(h.Get))
}

// Create handles POST /api/assignments
func (h *AssignmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAssignmentRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	assignment, err := h.assignmentService.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusCreated, assignment, h.logger)
}

// Get handles GET /api/assignments/{aid}
func (h *AssignmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	assignmentID, ok := ParseAssignmentID(w, r, h.logger)
	if !ok {
		return
	}

	assignment, err := h.assignmentService.Get(r.Context(), assignmentID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, assignment, h.logger)
}
