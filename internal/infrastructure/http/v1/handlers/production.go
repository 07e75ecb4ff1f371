package handlers

import (
	"github.com/gin-gonic/gin"

	"provender/internal/core/apperror"
	"provender/internal/core/id"
	"provender/internal/domain/attribution"
	"provender/internal/infrastructure/http/v1/dto"
)

// ProductionHandler handles HTTP requests for production runs.
type ProductionHandler struct {
	*BaseHandler
	service *attribution.Service
}

// NewProductionHandler creates a new production run handler.
func NewProductionHandler(base *BaseHandler, service *attribution.Service) *ProductionHandler {
	return &ProductionHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Record handles POST /production-runs
func (h *ProductionHandler) Record(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RecordRunRequest
	if !h.BindJSON(c, &req) {
		return
	}

	run, err := req.ToRun()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.RecordRun(ctx, run); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, run.ID.String())
}

// Get handles GET /production-runs/:id
func (h *ProductionHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	runID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid run id format"))
		return
	}

	run, err := h.service.GetRun(ctx, runID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, run)
}

// RegisterRoutes registers production run routes.
func (h *ProductionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Record)
	rg.GET("/:id", h.Get)
}
