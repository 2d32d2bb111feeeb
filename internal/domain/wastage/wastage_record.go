package wastage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradeops/backoffice/internal/domain/shared"
)

// Status represents the approval state of a wastage record
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// IsValid checks if the status is a valid wastage Status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true for states that allow no further transition
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	if s != StatusPending {
		return false
	}
	return target == StatusApproved || target == StatusRejected
}

// Record represents a wastage (spoilage/damage) report awaiting approval.
// The cost recorded at submission is an estimate from the material's average
// cost; approval replaces it with the actual FIFO cost of the lots consumed.
type Record struct {
	shared.TenantAggregateRoot
	MaterialID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	BranchID      *uuid.UUID      `gorm:"type:uuid;index"`
	Quantity      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	EstimatedCost decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	RealizedCost  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Reason        string          `gorm:"type:varchar(255);not null"`
	Status        Status          `gorm:"type:varchar(20);not null;index"`
	SubmittedByID uuid.UUID       `gorm:"type:uuid;not null"`
	ApprovedByID  *uuid.UUID      `gorm:"type:uuid"`
	ApprovedAt    *time.Time
	ApprovalNote  string          `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (Record) TableName() string {
	return "wastage_records"
}

// NewRecord creates a pending wastage record
func NewRecord(
	tenantID, materialID uuid.UUID,
	branchID *uuid.UUID,
	quantity, estimatedCost decimal.Decimal,
	reason string,
	submittedByID uuid.UUID,
) (*Record, error) {
	if materialID == uuid.Nil {
		return nil, shared.NewValidationError("Material ID cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("Wastage quantity must be positive")
	}
	if estimatedCost.IsNegative() {
		return nil, shared.NewValidationError("Estimated cost cannot be negative")
	}
	if reason == "" {
		return nil, shared.NewValidationError("Wastage reason is required")
	}
	if submittedByID == uuid.Nil {
		return nil, shared.NewValidationError("Submitter ID cannot be empty")
	}

	return &Record{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		MaterialID:          materialID,
		BranchID:            branchID,
		Quantity:            quantity,
		EstimatedCost:       estimatedCost,
		RealizedCost:        decimal.Zero,
		Reason:              reason,
		Status:              StatusPending,
		SubmittedByID:       submittedByID,
	}, nil
}

// Approve marks the record approved and replaces the estimated cost with the
// realized FIFO cost of the allocation that backed the approval
func (r *Record) Approve(approverID uuid.UUID, note string, realizedCost decimal.Decimal) error {
	if !r.Status.CanTransitionTo(StatusApproved) {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot approve wastage in %s status", r.Status))
	}
	if approverID == uuid.Nil {
		return shared.NewValidationError("Approver ID cannot be empty")
	}
	if realizedCost.IsNegative() {
		return shared.NewValidationError("Realized cost cannot be negative")
	}

	now := time.Now()
	r.Status = StatusApproved
	r.RealizedCost = realizedCost
	r.ApprovedByID = &approverID
	r.ApprovedAt = &now
	r.ApprovalNote = note
	r.UpdatedAt = now
	r.IncrementVersion()
	return nil
}

// Reject marks the record rejected; no stock or financial side effects
func (r *Record) Reject(approverID uuid.UUID, reason string) error {
	if !r.Status.CanTransitionTo(StatusRejected) {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot reject wastage in %s status", r.Status))
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

// AmendQuantity adjusts the quantity of an already-approved record. The cost
// delta comes from the incremental allocation (positive) or the partial
// reversal (negative) that accompanied the amendment; the realized cost moves
// by exactly that delta. A human-readable justification is mandatory for the
// audit trail.
func (r *Record) AmendQuantity(newQuantity, costDelta decimal.Decimal, justification string) error {
	if r.Status != StatusApproved {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot amend wastage in %s status", r.Status))
	}
	if newQuantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("Amended quantity must be positive")
	}
	if justification == "" {
		return shared.NewValidationError("Amendment justification is required")
	}

	newCost := r.RealizedCost.Add(costDelta)
	if newCost.IsNegative() {
		return shared.NewConsistencyError("Amendment would drive realized cost below zero")
	}

	now := time.Now()
	r.Quantity = newQuantity
	r.RealizedCost = newCost
	r.ApprovalNote = justification
	r.UpdatedAt = now
	r.IncrementVersion()
	return nil
}
