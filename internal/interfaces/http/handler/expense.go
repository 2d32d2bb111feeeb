package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appexpense "github.com/tradeops/backoffice/internal/application/expense"
	"github.com/tradeops/backoffice/internal/domain/expense"
	"github.com/tradeops/backoffice/internal/domain/shared"
	"github.com/tradeops/backoffice/internal/interfaces/http/dto"
)

// ExpenseHandler exposes the petty-cash expense workflow
type ExpenseHandler struct {
	BaseHandler
	service *appexpense.Service
}

// NewExpenseHandler creates a new ExpenseHandler
func NewExpenseHandler(service *appexpense.Service) *ExpenseHandler {
	return &ExpenseHandler{service: service}
}

// ExpenseRecordResponse represents an expense record in API responses
type ExpenseRecordResponse struct {
	ID            string          `json:"id"`
	TenantID      string          `json:"tenant_id"`
	Category      string          `json:"category"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	BranchID      *string         `json:"branch_id,omitempty"`
	Status        string          `json:"status"`
	SubmittedByID string          `json:"submitted_by_id"`
	ApprovedByID  *string         `json:"approved_by_id,omitempty"`
	ApprovedAt    *time.Time      `json:"approved_at,omitempty"`
	ApprovalNote  string          `json:"approval_note,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Version       int             `json:"version"`
}

func toExpenseRecordResponse(r *expense.Record) ExpenseRecordResponse {
	return ExpenseRecordResponse{
		ID:            r.ID.String(),
		TenantID:      r.TenantID.String(),
		Category:      r.Category,
		Description:   r.Description,
		Amount:        r.Amount,
		BranchID:      uuidToString(r.BranchID),
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

// SubmitExpenseRequest represents a request to record a petty-cash expense
type SubmitExpenseRequest struct {
	Category    string          `json:"category" binding:"required"`
	Description string          `json:"description" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	BranchID    *string         `json:"branch_id" binding:"omitempty,uuid"`
}

// ExpenseActionRequest carries the optional note of an approval decision
type ExpenseActionRequest struct {
	Note string `json:"note"`
}

// RejectExpenseRequest carries the mandatory rejection reason
type RejectExpenseRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Submit records a pending expense
func (h *ExpenseHandler) Submit(c *gin.Context) {
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

	var req SubmitExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	record, err := h.service.Submit(c.Request.Context(), tenantID, appexpense.SubmitInput{
		Category:    req.Category,
		Description: req.Description,
		Amount:      req.Amount,
		BranchID:    parseOptionalUUID(req.BranchID),
		SubmittedBy: actorID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toExpenseRecordResponse(record))
}

// Approve books the expense outflow to the ledger
func (h *ExpenseHandler) Approve(c *gin.Context) {
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
		h.BadRequest(c, "Invalid expense record ID")
		return
	}

	var req ExpenseActionRequest
	_ = c.ShouldBindJSON(&req) // note is optional

	record, err := h.service.Approve(c.Request.Context(), tenantID, recordID, actorID, req.Note)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toExpenseRecordResponse(record))
}

// Reject finalizes the expense with no financial side effects
func (h *ExpenseHandler) Reject(c *gin.Context) {
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
		h.BadRequest(c, "Invalid expense record ID")
		return
	}

	var req RejectExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	record, err := h.service.Reject(c.Request.Context(), tenantID, recordID, actorID, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toExpenseRecordResponse(record))
}

// List returns expense records filtered by status
func (h *ExpenseHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}

	status := expense.Status(c.DefaultQuery("status", string(expense.StatusPending)))
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

	responses := make([]ExpenseRecordResponse, 0, len(records))
	for i := range records {
		responses = append(responses, toExpenseRecordResponse(&records[i]))
	}
	h.Success(c, responses)
}

// RegisterRoutes registers all expense routes
func (h *ExpenseHandler) RegisterRoutes(rg *gin.RouterGroup) {
	expenses := rg.Group("/expenses")
	{
		expenses.GET("", h.List)
		expenses.POST("", h.Submit)
		expenses.POST("/:id/approve", h.Approve)
		expenses.POST("/:id/reject", h.Reject)
	}
}
