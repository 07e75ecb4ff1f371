package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"provender/internal/core/apperror"
	"provender/internal/core/id"
	"provender/internal/domain/ledger"
	"provender/internal/infrastructure/http/v1/dto"
)

// StockHandler handles HTTP requests for the stock ledger.
type StockHandler struct {
	*BaseHandler
	service *ledger.Service
}

// NewStockHandler creates a new stock ledger handler.
func NewStockHandler(base *BaseHandler, service *ledger.Service) *StockHandler {
	return &StockHandler{
		BaseHandler: base,
		service:     service,
	}
}

// GetBalance handles GET /stock/balances/:productId
func (h *StockHandler) GetBalance(c *gin.Context) {
	ctx := c.Request.Context()

	productID, err := id.Parse(c.Param("productId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid productId format"))
		return
	}

	balance, err := h.service.GetBalance(ctx, productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, balance)
}

// GetTransactions handles GET /stock/transactions
func (h *StockHandler) GetTransactions(c *gin.Context) {
	ctx := c.Request.Context()

	productIDStr := c.Query("productId")
	if productIDStr == "" {
		h.Error(c, apperror.NewValidation("productId is required"))
		return
	}

	productID, err := id.Parse(productIDStr)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid productId format"))
		return
	}

	filter := ledger.HistoryFilter{
		Limit:  h.ParseIntQuery(c, "limit", 100),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	if typeStr := c.Query("type"); typeStr != "" {
		t := ledger.TransactionType(typeStr)
		if !t.Valid() {
			h.Error(c, apperror.NewValidation("unknown transaction type"))
			return
		}
		filter.Type = &t
	}

	if fromStr := c.Query("fromDate"); fromStr != "" {
		if parsed, err := time.Parse(time.RFC3339, fromStr); err == nil {
			filter.FromDate = &parsed
		}
	}

	if toStr := c.Query("toDate"); toStr != "" {
		if parsed, err := time.Parse(time.RFC3339, toStr); err == nil {
			filter.ToDate = &parsed
		}
	}

	transactions, err := h.service.History(ctx, productID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      transactions,
		TotalCount: len(transactions),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// CreateAdjustment handles POST /stock/adjustments
func (h *StockHandler) CreateAdjustment(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.AdjustmentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	input, err := req.ToApplyInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	balance, err := h.service.Apply(ctx, input)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, balance)
}

// Audit handles GET /stock/audit/:productId
func (h *StockHandler) Audit(c *gin.Context) {
	ctx := c.Request.Context()

	productID, err := id.Parse(c.Param("productId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid productId format"))
		return
	}

	consistent, err := h.service.Audit(ctx, productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.AuditResponse{
		ProductID:  productID.String(),
		Consistent: consistent,
	})
}

// RegisterRoutes registers stock ledger routes.
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/balances/:productId", h.GetBalance)
	rg.GET("/transactions", h.GetTransactions)
	rg.POST("/adjustments", h.CreateAdjustment)
	rg.GET("/audit/:productId", h.Audit)
}
