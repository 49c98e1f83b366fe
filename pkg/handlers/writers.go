package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-integrity/pkg/middleware"
	"github.com/ekaya-inc/ekaya-integrity/pkg/models"
	"github.com/ekaya-inc/ekaya-integrity/pkg/services"
)

// WriterHandler handles writer profile requests.
type WriterHandler struct {
	writerService services.WriterService
	logger        *zap.Logger
}

// NewWriterHandler creates a new WriterHandler.
func NewWriterHandler(writerService services.WriterService, logger *zap.Logger) *WriterHandler {
	return &WriterHandler{writerService: writerService, logger: logger}
}

// RegisterRoutes registers the writer handler's routes on the given mux.
func (h *WriterHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/writers", middleware.RequireActor(h.Register))
	mux.HandleFunc("GET /api/writers/{wid}", middleware.RequireActor(h.Get))
	mux.HandleFunc("POST /api/writers/{wid}/baseline", middleware.RequireActor(h.EstablishBaseline))
	mux.HandleFunc("PUT /api/writers/{wid}/status", middleware.RequireActor(h.SetStatus))
}

// Register handles POST /api/writers
func (h *WriterHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterWriterRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	writer, err := h.writerService.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusCreated, writer, h.logger)
}

// Get handles GET /api/writers/{wid}
func (h *WriterHandler) Get(w http.ResponseWriter, r *http.Request) {
	writerID, ok := ParseWriterID(w, r, h.logger)
	if !ok {
		return
	}

	writer, err := h.writerService.Get(r.Context(), writerID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, writer, h.logger)
}

// EstablishBaseline handles POST /api/writers/{wid}/baseline
func (h *WriterHandler) EstablishBaseline(w http.ResponseWriter, r *http.Request) {
	writerID, ok := ParseWriterID(w, r, h.logger)
	if !ok {
		return
	}
	var req models.BaselineRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	writer, err := h.writerService.EstablishBaseline(r.Context(), writerID, req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, writer, h.logger)
}

// SetStatus handles PUT /api/writers/{wid}/status
func (h *WriterHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	writerID, ok := ParseWriterID(w, r, h.logger)
	if !ok {
		return
	}
	var req models.WriterStatusRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	writer, err := h.writerService.SetStatus(r.Context(), writerID, req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeData(w, http.StatusOK, writer, h.logger)
}
