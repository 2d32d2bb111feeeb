package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appwastage "github.com/tradeops/backoffice/internal/application/wastage"
	"github.com/tradeops/backoffice/internal/domain/inventory"
	"github.com/tradeops/backoffice/internal/domain/shared"
	"github.com/tradeops/backoffice/internal/domain/wastage"
	"github.com/tradeops/backoffice/internal/interfaces/http/dto"
)

// WastageHandler exposes the wastage approval workflow
type WastageHandler struct {
	BaseHandler
	service *appwastage.Service
}

// NewWastageHandler creates a new WastageHandler
func NewWastageHandler(service *appwastage.Service) *WastageHandler {
	return &WastageHandler{service: service}
}

// WastageRecordResponse represents a wastage record in API responses
type WastageRecordResponse struct {
	ID            string          `json:"id"`
	TenantID      string          `json:"tenant_id"`
	MaterialID    string          `json:"material_id"`
	BranchID      *string         `json:"branch_id,omitempty"`
	Quantity      decimal.Decimal `json:"quantity"`
	EstimatedCost decimal.Decimal `json:"estimated_cost"`
	RealizedCost  decimal.Decimal `json:"realized_cost"`
	Reason        string          `json:"reason"`
	Status        string          `json:"status"`
	SubmittedByID string          `json:"submitted_by_id"`
	ApprovedByID  *string         `json:"approved_by_id,omitempty"`
	ApprovedAt    *time.Time      `json:"approved_at,omitempty"`
	ApprovalNote  string          `json:"approval_note,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Version       int             `json:"version"`
}

// WastageOutcomeResponse pairs the record with the allocation that priced it
type WastageOutcomeResponse struct {
	Record     WastageRecordResponse       `json:"record"`
	Allocation *inventory.AllocationResult `json:"allocation,omitempty"`
	CostDelta  *decimal.Decimal            `json:"cost_delta,omitempty"`
}

func toWastageRecordResponse(r *wastage.Record) WastageRecordResponse {
	return WastageRecordResponse{
		ID:            r.ID.String(),
		TenantID:      r.TenantID.String(),
		MaterialID:    r.MaterialID.String(),
		BranchID:      uuidToString(r.BranchID),
		Quantity:      r.Quantity,
		EstimatedCost: r.EstimatedCost,
		RealizedCost:  r.RealizedCost,
		Reason:        r.Reason,
		Status:        r.Status.String(),
		SubmittedByID: r.SubmittedByID.String(),
		ApprovedByID:  uuidToString(r.ApprovedByID),
		ApprovedAt:    r.ApprovedAt,
		ApprovalNote:  r.ApprovalNote,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		Version:       r.Version,
	}
}

// SubmitWastageRequest represents a request to report wastage
type SubmitWastageRequest struct {
	MaterialID string          `json:"material_id" binding:"required,uuid"`
	BranchID   *string         `json:"branch_id" binding:"omitempty,uuid"`
	Quantity   decimal.Decimal `json:"quantity" binding:"required"`
	Reason     string          `json:"reason" binding:"required"`
}

// WastageActionRequest carries the optional note of an approval decision
type WastageActionRequest struct {
	Note string `json:"note"`
}

// RejectWastageRequest carries the mandatory rejection reason
type RejectWastageRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// AmendWastageRequest represents a post-approval quantity correction
type AmendWastageRequest struct {
	NewQuantity   decimal.Decimal `json:"new_quantity" binding:"required"`
	Justification string          `json:"justification" binding:"required"`
}

// Submit reports new wastage, pending approval
func (h *WastageHandler) Submit(c *gin.Context) {
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

	var req SubmitWastageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	record, err := h.service.Submit(c.Request.Context(), tenantID, appwastage.SubmitInput{
		MaterialID:  uuid.MustParse(req.MaterialID),
		BranchID:    parseOptionalUUID(req.BranchID),
		Quantity:    req.Quantity,
		Reason:      req.Reason,
		SubmittedBy: actorID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toWastageRecordResponse(record))
}

// Approve realizes the wastage cost through FIFO allocation
func (h *WastageHandler) Approve(c *gin.Context) {
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
	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid wastage record ID")
		return
	}

	var req WastageActionRequest
	_ = c.ShouldBindJSON(&req) // note is optional

	outcome, err := h.service.Approve(c.Request.Context(), tenantID, recordID, actorID, req.Note)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	resp := WastageOutcomeResponse{
		Record:     toWastageRecordResponse(outcome.Record),
		Allocation: outcome.Allocation,
	}
	if !outcome.Approved() {
		h.UnprocessableWithData(c, dto.ErrCodeInsufficientStock, "Insufficient stock to realize wastage cost", resp)
		return
	}

	h.Success(c, resp)
}

// Reject closes the record without touching stock
func (h *WastageHandler) Reject(c *gin.Context) {
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
	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid wastage record ID")
		return
	}

	var req RejectWastageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	record, err := h.service.Reject(c.Request.Context(), tenantID, recordID, actorID, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toWastageRecordResponse(record))
}

// Amend corrects the quantity of an approved record
func (h *WastageHandler) Amend(c *gin.Context) {
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
	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid wastage record ID")
		return
	}

	var req AmendWastageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	outcome, err := h.service.Amend(c.Request.Context(), tenantID, recordID, req.NewQuantity, req.Justification, actorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	resp := WastageOutcomeResponse{
		Record:     toWastageRecordResponse(outcome.Record),
		Allocation: outcome.Allocation,
	}
	if !outcome.Amended() {
		h.UnprocessableWithData(c, dto.ErrCodeInsufficientStock, "Insufficient stock to cover the amended quantity", resp)
		return
	}
	resp.CostDelta = &outcome.CostDelta

	h.Success(c, resp)
}

// List returns wastage records filtered by status
func (h *WastageHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}

	status := wastage.Status(c.DefaultQuery("status", string(wastage.StatusPending)))
	if !status.IsValid() {
		h.BadRequest(c, "Invalid status")
		return
	}

	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	filter := shared.DefaultFilter()
	if req.Page > 0 {
		filter.Page = req.Page
	}
	if req.PageSize > 0 {
		filter.PageSize = req.PageSize
	}

	records, err := h.service.ListByStatus(c.Request.Context(), tenantID, status, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]WastageRecordResponse, 0, len(records))
	for i := range records {
		responses = append(responses, toWastageRecordResponse(&records[i]))
	}
	h.Success(c, responses)
}

// RegisterRoutes registers all wastage routes
func (h *WastageHandler) RegisterRoutes(rg *gin.RouterGroup) {
	wastages := rg.Group("/wastages")
	{
		wastages.GET("", h.List)
		wastages.POST("", h.Submit)
		wastages.POST("/:id/approve", h.Approve)
		wastages.POST("/:id/reject", h.Reject)
		wastages.POST("/:id/amend", h.Amend)
	}
}
