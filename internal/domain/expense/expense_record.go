package expense

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradeops/backoffice/internal/domain/shared"
)

// Status represents the approval state of a petty-cash expense
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsValid checks if the status is a valid expense Status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// IsTerminal returns true for states that allow no further transition
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Record represents a petty-cash expense awaiting approval. Expenses touch no
// stock; approval only writes the signed financial record.
type Record struct {
	shared.TenantAggregateRoot
	Category      string          `gorm:"type:varchar(50);not null;index"`
	Description   string          `gorm:"type:varchar(255);not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	BranchID      *uuid.UUID      `gorm:"type:uuid;index"`
	Status        Status          `gorm:"type:varchar(20);not null;index"`
	SubmittedByID uuid.UUID       `gorm:"type:uuid;not null"`
	ApprovedByID  *uuid.UUID      `gorm:"type:uuid"`
	ApprovedAt    *time.Time
	ApprovalNote  string          `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (Record) TableName() string {
	return "expense_records"
}

// NewRecord creates a pending expense record
func NewRecord(
	tenantID uuid.UUID,
	category, description string,
	amount decimal.Decimal,
	branchID *uuid.UUID,
	submittedByID uuid.UUID,
) (*Record, error) {
	if category == "" {
		return nil, shared.NewValidationError("Expense category is required")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("Expense amount must be positive")
	}
	if submittedByID == uuid.Nil {
		return nil, shared.NewValidationError("Submitter ID cannot be empty")
	}

	return &Record{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Category:            category,
		Description:         description,
		Amount:              amount,
		BranchID:            branchID,
		Status:              StatusPending,
		SubmittedByID:       submittedByID,
	}, nil
}

// Approve marks the expense approved
func (r *Record) Approve(approverID uuid.UUID, note string) error {
	if r.Status != StatusPending {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot approve expense in %s status", r.Status))
	}
	if approverID == uuid.Nil {
		return shared.NewValidationError("Approver ID cannot be empty")
	}

	now := time.Now()
	r.Status = StatusApproved
	r.ApprovedByID = &approverID
	r.ApprovedAt = &now
	r.ApprovalNote = note
	r.UpdatedAt = now
	r.IncrementVersion()
	return nil
}

// Reject marks the expense rejected
func (r *Record) Reject(approverID uuid.UUID, reason string) error {
	if r.Status != StatusPending {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot reject expense in %s status", r.Status))
	}
	if approverID == uuid.Nil {
		return shared.NewValidationError("Approver ID cannot be empty")
	}
	if reason == "" {
		return shared.NewValidationError("Rejection reason is required")
	}

	now := time.Now()
	r.Status = StatusRejected
	r.ApprovedByID = &approverID
	r.ApprovedAt = &now
	r.ApprovalNote = reason
	r.UpdatedAt = now
	r.IncrementVersion()
	return nil
}
