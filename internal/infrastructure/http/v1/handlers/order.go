package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"provender/internal/core/apperror"
	"provender/internal/core/id"
	"provender/internal/domain/fulfillment"
	"provender/internal/infrastructure/http/v1/dto"
)

// OrderHandler handles HTTP requests for order fulfillment.
type OrderHandler struct {
	*BaseHandler
	service *fulfillment.Service
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(base *BaseHandler, service *fulfillment.Service) *OrderHandler {
	return &OrderHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /orders
func (h *OrderHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := req.ToOrder()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Create(ctx, order); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, order.ID.String())
}

// Get handles GET /orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	orderID, ok := h.parseOrderID(c)
	if !ok {
		return
	}

	order, err := h.service.GetByID(ctx, orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, order)
}

// List handles GET /orders
func (h *OrderHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	filter := fulfillment.ListFilter{
		IncludeDisabled: c.Query("includeDisabled") == "true",
		Limit:           h.ParseIntQuery(c, "limit", 100),
		Offset:          h.ParseIntQuery(c, "offset", 0),
	}

	if custStr := c.Query("customerId"); custStr != "" {
		parsed, err := id.Parse(custStr)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid customerId format"))
			return
		}
		filter.CustomerID = &parsed
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := fulfillment.Status(statusStr)
		if !status.Valid() {
			h.Error(c, apperror.NewValidation("unknown order status"))
			return
		}
		filter.Status = &status
	}

	if fromStr := c.Query("dateFrom"); fromStr != "" {
		if parsed, err := time.Parse(time.RFC3339, fromStr); err == nil {
			filter.DateFrom = &parsed
		}
	}

	if toStr := c.Query("dateTo"); toStr != "" {
		if parsed, err := time.Parse(time.RFC3339, toStr); err == nil {
			filter.DateTo = &parsed
		}
	}

	orders, err := h.service.List(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      orders,
		TotalCount: len(orders),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
}

// UpdateItems handles PUT /orders/:id/items
func (h *OrderHandler) UpdateItems(c *gin.Context) {
	ctx := c.Request.Context()

	orderID, ok := h.parseOrderID(c)
	if !ok {
		return
	}

	var req dto.UpdateItemsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	items, err := req.ToItems()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.UpdateItems(ctx, orderID, items); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "items updated")
}

// StartAssembly handles POST /orders/:id/start-assembly
func (h *OrderHandler) StartAssembly(c *gin.Context) {
	ctx := c.Request.Context()

	orderID, ok := h.parseOrderID(c)
	if !ok {
		return
	}

	if err := h.service.StartAssembly(ctx, orderID, h.GetActorID(c)); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "assembly started")
}

// CompleteAssembly handles POST /orders/:id/complete-assembly
func (h *OrderHandler) CompleteAssembly(c *gin.Context) {
	ctx := c.Request.Context()

	orderID, ok := h.parseOrderID(c)
	if !ok {
		return
	}

	var req dto.CompleteAssemblyRequest
	if !h.BindJSON(c, &req) {
		return
	}

	facts, err := req.ToFacts()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.CompleteAssembly(ctx, orderID, facts, h.GetActorID(c)); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "assembly completed")
}

// AssignExpeditor handles POST /orders/:id/expeditor
func (h *OrderHandler) AssignExpeditor(c *gin.Context) {
	ctx := c.Request.Context()

	orderID, ok := h.parseOrderID(c)
	if !ok {
		return
	}

	var req dto.AssignExpeditorRequest
	if !h.BindJSON(c, &req) {
		return
	}

	expeditorID, err := id.Parse(req.ExpeditorID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid expeditorId format"))
		return
	}

	if err := h.service.AssignExpeditor(ctx, orderID, expeditorID); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "expeditor assigned")
}

// Load handles POST /orders/:id/load
func (h *OrderHandler) Load(c *gin.Context) {
	ctx := c.Request.Context()

	orderID, ok := h.parseOrderID(c)
	if !ok {
		return
	}

	if err := h.service.Load(ctx, orderID, h.GetActorID(c)); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "order loaded")
}

// Ship handles POST /orders/:id/ship
func (h *OrderHandler) Ship(c *gin.Context) {
	ctx := c.Request.Context()

	orderID, ok := h.parseOrderID(c)
	if !ok {
		return
	}

	if err := h.service.Ship(ctx, orderID, h.GetActorID(c)); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "order shipped")
}

// Cancel handles POST /orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	ctx := c.Request.Context()

	orderID, ok := h.parseOrderID(c)
	if !ok {
		return
	}

	if err := h.service.Cancel(ctx, orderID, h.GetActorID(c)); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "order cancelled")
}

func (h *OrderHandler) parseOrderID(c *gin.Context) (id.ID, bool) {
	orderID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid order id format"))
		return id.Nil(), false
	}
	return orderID, true
}

// RegisterRoutes registers order fulfillment routes.
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id/items", h.UpdateItems)
	rg.POST("/:id/start-assembly", h.StartAssembly)
	rg.POST("/:id/complete-assembly", h.CompleteAssembly)
	rg.POST("/:id/expeditor", h.AssignExpeditor)
	rg.POST("/:id/load", h.Load)
	rg.POST("/:id/ship", h.Ship)
	rg.POST("/:id/cancel", h.Cancel)
}
