package handlers

import (
	"github.com/gin-gonic/gin"

	"provender/internal/domain/attribution"
	"provender/internal/domain/reconciliation"
)

// JobsHandler exposes the batch engines over HTTP so operators can run
// them on demand between scheduled passes.
type JobsHandler struct {
	*BaseHandler
	attribution    *attribution.Service
	reconciliation *reconciliation.Service
}

// NewJobsHandler creates a new batch jobs handler.
func NewJobsHandler(base *BaseHandler, attr *attribution.Service, recon *reconciliation.Service) *JobsHandler {
	return &JobsHandler{
		BaseHandler:    base,
		attribution:    attr,
		reconciliation: recon,
	}
}

// LinkLots handles POST /jobs/link-lots
func (h *JobsHandler) LinkLots(c *gin.Context) {
	report, err := h.attribution.LinkLots(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

// Reconcile handles POST /jobs/reconcile
func (h *JobsHandler) Reconcile(c *gin.Context) {
	report, err := h.reconciliation.Reconcile(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

// BackfillIdentities handles POST /jobs/backfill-identities
func (h *JobsHandler) BackfillIdentities(c *gin.Context) {
	report, err := h.reconciliation.BackfillIdentities(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}

// RegisterRoutes registers batch job routes.
func (h *JobsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/link-lots", h.LinkLots)
	rg.POST("/reconcile", h.Reconcile)
	rg.POST("/backfill-identities", h.BackfillIdentities)
}
