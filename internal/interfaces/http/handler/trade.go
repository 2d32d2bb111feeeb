package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apptrade "github.com/tradeops/backoffice/internal/application/trade"
	"github.com/tradeops/backoffice/internal/domain/inventory"
	"github.com/tradeops/backoffice/internal/domain/trade"
	"github.com/tradeops/backoffice/internal/interfaces/http/dto"
)

// TradeHandler exposes the sales order delivery workflow
type TradeHandler struct {
	BaseHandler
	service *apptrade.Service
}

// NewTradeHandler creates a new TradeHandler
func NewTradeHandler(service *apptrade.Service) *TradeHandler {
	return &TradeHandler{service: service}
}

// OrderLineResponse represents a sales order line in API responses
type OrderLineResponse struct {
	ID           string          `json:"id"`
	TenantID     string          `json:"tenant_id"`
	OrderNumber  string          `json:"order_number"`
	MaterialID   string          `json:"material_id"`
	BranchID     *string         `json:"branch_id,omitempty"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Status       string          `json:"status"`
	COGS         decimal.Decimal `json:"cogs"`
	Revenue      decimal.Decimal `json:"revenue"`
	DeliveredAt  *time.Time      `json:"delivered_at,omitempty"`
	CancelledAt  *time.Time      `json:"cancelled_at,omitempty"`
	CancelReason string          `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Version      int             `json:"version"`
}

// DeliverOutcomeResponse pairs the line with the allocation that priced it
type DeliverOutcomeResponse struct {
	Line       OrderLineResponse           `json:"line"`
	Allocation *inventory.AllocationResult `json:"allocation,omitempty"`
}

func toOrderLineResponse(l *trade.SalesOrderLine) OrderLineResponse {
	return OrderLineResponse{
		ID:           l.ID.String(),
		TenantID:     l.TenantID.String(),
		OrderNumber:  l.OrderNumber,
		MaterialID:   l.MaterialID.String(),
		BranchID:     uuidToString(l.BranchID),
		Quantity:     l.Quantity,
		UnitPrice:    l.UnitPrice,
		Status:       l.Status.String(),
		COGS:         l.COGS,
		Revenue:      l.Revenue(),
		DeliveredAt:  l.DeliveredAt,
		CancelledAt:  l.CancelledAt,
		CancelReason: l.CancelReason,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
		Version:      l.Version,
	}
}

// CreateOrderLineRequest represents a request to confirm one order line
type CreateOrderLineRequest struct {
	OrderNumber string          `json:"order_number" binding:"required"`
	MaterialID  string          `json:"material_id" binding:"required,uuid"`
	BranchID    *string         `json:"branch_id" binding:"omitempty,uuid"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"required"`
}

// CancelOrderLineRequest carries the mandatory cancellation reason
type CancelOrderLineRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// CreateLine confirms a new order line awaiting delivery
func (h *TradeHandler) CreateLine(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}

	var req CreateOrderLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	line, err := h.service.CreateLine(c.Request.Context(), tenantID, apptrade.CreateLineInput{
		OrderNumber: req.OrderNumber,
		MaterialID:  uuid.MustParse(req.MaterialID),
		BranchID:    parseOptionalUUID(req.BranchID),
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toOrderLineResponse(line))
}

// Deliver ships the line, pricing its COGS by FIFO allocation
func (h *TradeHandler) Deliver(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}
	actorID, err := getActorID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid user")
		return
	}
	lineID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order line ID")
		return
	}

	outcome, err := h.service.Deliver(c.Request.Context(), tenantID, lineID, actorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	resp := DeliverOutcomeResponse{
		Line:       toOrderLineResponse(outcome.Line),
		Allocation: outcome.Allocation,
	}
	if !outcome.Delivered() {
		h.UnprocessableWithData(c, dto.ErrCodeInsufficientStock, "Insufficient stock to deliver", resp)
		return
	}

	h.Success(c, resp)
}

// Cancel voids a line, restoring stock and reversing COGS when delivered
func (h *TradeHandler) Cancel(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}
	actorID, err := getActorID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid user")
		return
	}
	lineID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order line ID")
		return
	}

	var req CancelOrderLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	line, err := h.service.Cancel(c.Request.Context(), tenantID, lineID, actorID, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toOrderLineResponse(line))
}

// ListByOrder returns every line of one order
func (h *TradeHandler) ListByOrder(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}

	orderNumber := c.Param("number")
	if orderNumber == "" {
		h.BadRequest(c, "Missing order number")
		return
	}

	lines, err := h.service.OrderLines(c.Request.Context(), tenantID, orderNumber)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]OrderLineResponse, 0, len(lines))
	for i := range lines {
		items = append(items, toOrderLineResponse(&lines[i]))
	}
	h.Success(c, items)
}

// RegisterRoutes registers all sales order routes
func (h *TradeHandler) RegisterRoutes(rg *gin.RouterGroup) {
	lines := rg.Group("/sales/lines")
	{
		lines.POST("", h.CreateLine)
		lines.POST("/:id/deliver", h.Deliver)
		lines.POST("/:id/cancel", h.Cancel)
	}

	orders := rg.Group("/sales/orders")
	{
		orders.GET("/:number/lines", h.ListByOrder)
	}
}
