package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appinventory "github.com/tradeops/backoffice/internal/application/inventory"
	"github.com/tradeops/backoffice/internal/domain/inventory"
	"github.com/tradeops/backoffice/internal/interfaces/http/dto"
)

// InventoryHandler exposes the batch ledger and the FIFO allocation engine
type InventoryHandler struct {
	BaseHandler
	allocator *appinventory.AllocatorService
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(allocator *appinventory.AllocatorService) *InventoryHandler {
	return &InventoryHandler{allocator: allocator}
}

// BatchResponse represents an inventory lot in API responses
type BatchResponse struct {
	ID                string          `json:"id"`
	TenantID          string          `json:"tenant_id"`
	MaterialID        string          `json:"material_id"`
	SupplierID        *string         `json:"supplier_id,omitempty"`
	BranchID          *string         `json:"branch_id,omitempty"`
	PurchaseDate      time.Time       `json:"purchase_date"`
	QuantityReceived  decimal.Decimal `json:"quantity_received"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	Depleted          bool            `json:"depleted"`
	CreatedAt         time.Time       `json:"created_at"`
}

func toBatchResponse(b *inventory.Batch) BatchResponse {
	return BatchResponse{
		ID:                b.ID.String(),
		TenantID:          b.TenantID.String(),
		MaterialID:        b.MaterialID.String(),
		SupplierID:        uuidToString(b.SupplierID),
		BranchID:          uuidToString(b.BranchID),
		PurchaseDate:      b.PurchaseDate,
		QuantityReceived:  b.QuantityReceived,
		RemainingQuantity: b.RemainingQuantity,
		UnitCost:          b.UnitCost,
		Depleted:          b.Depleted,
		CreatedAt:         b.CreatedAt,
	}
}

// CreateBatchRequest represents a request to open a new inventory lot
type CreateBatchRequest struct {
	MaterialID    string          `json:"material_id" binding:"required,uuid"`
	SupplierID    *string         `json:"supplier_id" binding:"omitempty,uuid"`
	BranchID      *string         `json:"branch_id" binding:"omitempty,uuid"`
	PurchaseDate  time.Time       `json:"purchase_date" binding:"required"`
	Quantity      decimal.Decimal `json:"quantity" binding:"required"`
	UnitCost      decimal.Decimal `json:"unit_cost" binding:"required"`
	ReferenceType string          `json:"reference_type" binding:"required"`
	ReferenceID   string          `json:"reference_id" binding:"required"`
	Note          string          `json:"note"`
}

// AllocateRequest represents a FIFO consumption request
type AllocateRequest struct {
	MaterialID    string          `json:"material_id" binding:"required,uuid"`
	BranchID      *string         `json:"branch_id" binding:"omitempty,uuid"`
	Quantity      decimal.Decimal `json:"quantity" binding:"required"`
	ReferenceType string          `json:"reference_type" binding:"required"`
	ReferenceID   string          `json:"reference_id" binding:"required"`
	Note          string          `json:"note"`
}

// ReverseRequest identifies the consumption to unwind by its business reference
type ReverseRequest struct {
	ReferenceType string `json:"reference_type" binding:"required"`
	ReferenceID   string `json:"reference_id" binding:"required"`
}

// PreviewRequest represents a dry-run allocation query
type PreviewRequest struct {
	Quantity string  `form:"quantity" binding:"required"`
	BranchID *string `form:"branch_id" binding:"omitempty,uuid"`
}

// CreateBatch opens a new lot from a receipt event
func (h *InventoryHandler) CreateBatch(c *gin.Context) {
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

	var req CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	input := appinventory.CreateBatchInput{
		MaterialID:    uuid.MustParse(req.MaterialID),
		SupplierID:    parseOptionalUUID(req.SupplierID),
		BranchID:      parseOptionalUUID(req.BranchID),
		PurchaseDate:  req.PurchaseDate,
		Quantity:      req.Quantity,
		UnitCost:      req.UnitCost,
		ReferenceType: inventory.ReferenceType(req.ReferenceType),
		ReferenceID:   req.ReferenceID,
		ActorID:       actorID,
		Note:          req.Note,
	}

	batch, err := h.allocator.CreateBatch(c.Request.Context(), tenantID, input)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toBatchResponse(batch))
}

// Allocate consumes stock oldest-first against a business reference
func (h *InventoryHandler) Allocate(c *gin.Context) {
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

	var req AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	input := appinventory.AllocateInput{
		MaterialID:    uuid.MustParse(req.MaterialID),
		BranchID:      parseOptionalUUID(req.BranchID),
		Quantity:      req.Quantity,
		ReferenceType: inventory.ReferenceType(req.ReferenceType),
		ReferenceID:   req.ReferenceID,
		ActorID:       actorID,
		Note:          req.Note,
	}

	result, err := h.allocator.Allocate(c.Request.Context(), tenantID, input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !result.Success {
		h.UnprocessableWithData(c, dto.ErrCodeInsufficientStock, "Insufficient stock", result)
		return
	}

	h.Success(c, result)
}

// Preview plans an allocation without writing anything
func (h *InventoryHandler) Preview(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}

	materialID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid material ID")
		return
	}

	var req PreviewRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		h.BadRequest(c, "Invalid quantity")
		return
	}

	result, err := h.allocator.Preview(c.Request.Context(), tenantID, materialID, parseOptionalUUID(req.BranchID), quantity)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Reverse unwinds every outstanding consumption of a business reference
func (h *InventoryHandler) Reverse(c *gin.Context) {
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

	var req ReverseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	outcome, err := h.allocator.Reverse(c.Request.Context(), tenantID, inventory.ReferenceType(req.ReferenceType), req.ReferenceID, actorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, outcome)
}

// GetSummary returns the live stock position of one material
func (h *InventoryHandler) GetSummary(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}

	materialID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid material ID")
		return
	}

	summary, err := h.allocator.GetBatchSummary(c.Request.Context(), tenantID, materialID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, summary)
}

// RegisterRoutes registers all inventory routes
func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	batches := rg.Group("/inventory/batches")
	{
		batches.POST("", h.CreateBatch)
	}

	materials := rg.Group("/inventory/materials")
	{
		materials.GET("/:id/summary", h.GetSummary)
		materials.GET("/:id/preview", h.Preview)
	}

	allocations := rg.Group("/inventory/allocations")
	{
		allocations.POST("", h.Allocate)
		allocations.POST("/reverse", h.Reverse)
	}
}

// uuidToString converts an optional uuid for API responses
func uuidToString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

// parseOptionalUUID converts an already-validated optional uuid string
func parseOptionalUUID(s *string) *uuid.UUID {
	if s == nil || *s == "" {
		return nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil
	}
	return &id
}
