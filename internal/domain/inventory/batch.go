package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradeops/backoffice/internal/domain/shared"
)

// DepletionEpsilon is the threshold below which a batch is considered
// depleted and excluded from further allocation scans. Batches are never
// deleted once depleted; the flag only removes them from the scan set.
var DepletionEpsilon = decimal.New(1, -3) // 0.001

// Batch represents one inventory lot: a discrete receipt of a material at a
// specific unit cost on a specific date. PurchaseDate defines FIFO order.
// QuantityReceived and UnitCost are immutable once the lot is created; FIFO
// costing depends on the unit cost never changing after receipt.
type Batch struct {
	shared.BaseEntity
	TenantID          uuid.UUID       `gorm:"type:uuid;not null;index:idx_batches_tenant_material,priority:1"`
	MaterialID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_batches_tenant_material,priority:2"`
	SupplierID        *uuid.UUID      `gorm:"type:uuid;index"`
	BranchID          *uuid.UUID      `gorm:"type:uuid;index"`
	PurchaseDate      time.Time       `gorm:"type:date;not null;index"`
	QuantityReceived  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	RemainingQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCost          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Depleted          bool            `gorm:"not null;default:false;index"`
}

// TableName returns the table name for GORM
func (Batch) TableName() string {
	return "batches"
}

// NewBatch creates a new inventory lot with remaining quantity equal to the
// received quantity.
func NewBatch(
	tenantID, materialID uuid.UUID,
	supplierID, branchID *uuid.UUID,
	purchaseDate time.Time,
	quantityReceived, unitCost decimal.Decimal,
) (*Batch, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewValidationError("Tenant ID cannot be empty")
	}
	if materialID == uuid.Nil {
		return nil, shared.NewValidationError("Material ID cannot be empty")
	}
	if quantityReceived.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("Received quantity must be positive")
	}
	if unitCost.IsNegative() {
		return nil, shared.NewValidationError("Unit cost cannot be negative")
	}

	return &Batch{
		BaseEntity:        shared.NewBaseEntity(),
		TenantID:          tenantID,
		MaterialID:        materialID,
		SupplierID:        supplierID,
		BranchID:          branchID,
		PurchaseDate:      purchaseDate,
		QuantityReceived:  quantityReceived,
		RemainingQuantity: quantityReceived,
		UnitCost:          unitCost,
		Depleted:          false,
	}, nil
}

// Apply adjusts the remaining quantity by a signed delta (negative =
// consumption, positive = reversal credit) and recomputes the depleted flag.
// It is the only mutation path for batch quantities; a delta that would drive
// the remaining quantity below zero or above the received quantity violates
// the lot invariant and is rejected.
func (b *Batch) Apply(delta decimal.Decimal) error {
	next := b.RemainingQuantity.Add(delta)
	if next.IsNegative() {
		return shared.NewConsistencyError("Movement would drive batch " + b.ID.String() + " below zero")
	}
	if next.GreaterThan(b.QuantityReceived) {
		return shared.NewConsistencyError("Movement would drive batch " + b.ID.String() + " above its received quantity")
	}

	b.RemainingQuantity = next
	b.Depleted = next.LessThanOrEqual(DepletionEpsilon)
	b.UpdatedAt = time.Now()
	return nil
}

// HasStock returns true if the batch is still eligible for allocation
func (b *Batch) HasStock() bool {
	return !b.Depleted && b.RemainingQuantity.GreaterThan(decimal.Zero)
}

// Value returns the remaining quantity valued at the lot's unit cost
func (b *Batch) Value() decimal.Decimal {
	return b.RemainingQuantity.Mul(b.UnitCost)
}
