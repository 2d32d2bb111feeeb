package trade

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradeops/backoffice/internal/domain/shared"
)

// Status represents the lifecycle state of a sales order line
type Status string

const (
	StatusConfirmed Status = "CONFIRMED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusConfirmed:
		return target == StatusDelivered
	case StatusDelivered:
		return target == StatusCancelled
	}
	return false
}

// SalesOrderLine is one material line of a sales order. Delivery consumes
// stock FIFO and snapshots the exact COGS; cancellation of a delivered line
// returns the consumed quantity to its original lots and zeroes the snapshot.
type SalesOrderLine struct {
	shared.TenantAggregateRoot
	OrderNumber  string          `gorm:"type:varchar(50);not null;index"`
	MaterialID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	BranchID     *uuid.UUID      `gorm:"type:uuid;index"`
	Quantity     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Status       Status          `gorm:"type:varchar(20);not null;index"`
	COGS         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DeliveredAt  *time.Time
	CancelledAt  *time.Time
	CancelReason string          `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (SalesOrderLine) TableName() string {
	return "sales_order_lines"
}

// NewSalesOrderLine creates a confirmed sales order line
func NewSalesOrderLine(
	tenantID uuid.UUID,
	orderNumber string,
	materialID uuid.UUID,
	branchID *uuid.UUID,
	quantity, unitPrice decimal.Decimal,
) (*SalesOrderLine, error) {
	if orderNumber == "" {
		return nil, shared.NewValidationError("Order number is required")
	}
	if materialID == uuid.Nil {
		return nil, shared.NewValidationError("Material ID cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("Order quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewValidationError("Unit price cannot be negative")
	}

	return &SalesOrderLine{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		OrderNumber:         orderNumber,
		MaterialID:          materialID,
		BranchID:            branchID,
		Quantity:            quantity,
		UnitPrice:           unitPrice,
		Status:              StatusConfirmed,
		COGS:                decimal.Zero,
	}, nil
}

// Deliver marks the line delivered with the realized FIFO cost
func (l *SalesOrderLine) Deliver(cogs decimal.Decimal) error {
	if !l.Status.CanTransitionTo(StatusDelivered) {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot deliver order line in %s status", l.Status))
	}
	if cogs.IsNegative() {
		return shared.NewValidationError("COGS cannot be negative")
	}

	now := time.Now()
	l.Status = StatusDelivered
	l.COGS = cogs
	l.DeliveredAt = &now
	l.UpdatedAt = now
	l.IncrementVersion()
	return nil
}

// Cancel voids a delivered line after its stock has been returned
func (l *SalesOrderLine) Cancel(reason string) error {
	if !l.Status.CanTransitionTo(StatusCancelled) {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot cancel order line in %s status", l.Status))
	}
	if reason == "" {
		return shared.NewValidationError("Cancellation reason is required")
	}

	now := time.Now()
	l.Status = StatusCancelled
	l.COGS = decimal.Zero
	l.CancelledAt = &now
	l.CancelReason = reason
	l.UpdatedAt = now
	l.IncrementVersion()
	return nil
}

// Revenue returns the quantity valued at the sale price
func (l *SalesOrderLine) Revenue() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}

// GrossMargin returns revenue minus the realized COGS
func (l *SalesOrderLine) GrossMargin() decimal.Decimal {
	return l.Revenue().Sub(l.COGS)
}
