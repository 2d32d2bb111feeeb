package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradeops/backoffice/internal/domain/shared"
)

// MovementType represents the kind of quantity change applied to a batch
type MovementType string

const (
	// MovementTypeReceipt records stock entering a lot when it is created
	MovementTypeReceipt MovementType = "RECEIPT"
	// MovementTypeConsumption records stock leaving a lot (sale, wastage, transfer-out)
	MovementTypeConsumption MovementType = "CONSUMPTION"
	// MovementTypeReversal records stock credited back onto the lot it was
	// originally consumed from
	MovementTypeReversal MovementType = "REVERSAL"
)

// String returns the string representation of MovementType
func (t MovementType) String() string {
	return string(t)
}

// IsValid returns true if the movement type is valid
func (t MovementType) IsValid() bool {
	switch t {
	case MovementTypeReceipt, MovementTypeConsumption, MovementTypeReversal:
		return true
	}
	return false
}

// IsInflow returns true if the movement type carries a positive quantity
func (t MovementType) IsInflow() bool {
	return t == MovementTypeReceipt || t == MovementTypeReversal
}

// ReferenceType identifies the business event that caused a movement
type ReferenceType string

const (
	ReferenceTypePurchaseOrder ReferenceType = "purchase_order"
	ReferenceTypeStockIn       ReferenceType = "stock_in"
	ReferenceTypeSalesOrder    ReferenceType = "sales_order"
	ReferenceTypeWastage       ReferenceType = "wastage"
	ReferenceTypeTransfer      ReferenceType = "transfer"
)

// String returns the string representation of ReferenceType
func (r ReferenceType) String() string {
	return string(r)
}

// IsValid returns true if the reference type is valid
func (r ReferenceType) IsValid() bool {
	switch r {
	case ReferenceTypePurchaseOrder, ReferenceTypeStockIn, ReferenceTypeSalesOrder,
		ReferenceTypeWastage, ReferenceTypeTransfer:
		return true
	}
	return false
}

// Movement is one atomic, immutable change applied to exactly one batch.
// Movements form the append-only ledger: for any batch, the received quantity
// plus the sum of movement quantities equals the remaining quantity at all
// times. Corrections are made with new movements, never by editing old ones.
//
// Reversed marks a consumption movement whose quantity has been credited back
// (or superseded during amendment); reversed movements are skipped by
// subsequent reversal passes, which makes reversal a safe no-op to repeat.
type Movement struct {
	shared.BaseEntity
	TenantID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_movements_tenant_ref,priority:1"`
	BatchID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	MaterialID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	MovementType  MovementType    `gorm:"type:varchar(20);not null;index"`
	Quantity      decimal.Decimal `gorm:"type:decimal(18,4);not null"` // signed: positive = inflow, negative = outflow
	UnitCost      decimal.Decimal `gorm:"type:decimal(18,4);not null"` // cost basis of the lot at movement time
	ReferenceType ReferenceType   `gorm:"type:varchar(30);not null;index:idx_movements_tenant_ref,priority:2"`
	ReferenceID   string          `gorm:"type:varchar(50);not null;index:idx_movements_tenant_ref,priority:3"`
	MovementDate  time.Time       `gorm:"not null;index"`
	Note          string          `gorm:"type:varchar(255)"`
	ActorID       uuid.UUID       `gorm:"type:uuid;not null"`
	Reversed      bool            `gorm:"not null;default:false;index"`
	ReversedAt    *time.Time
}

// TableName returns the table name for GORM
func (Movement) TableName() string {
	return "movements"
}

// NewMovement creates a new movement record. The quantity sign must agree
// with the movement type: receipts and reversals are inflows (positive),
// consumptions are outflows (negative).
func NewMovement(
	tenantID, batchID, materialID uuid.UUID,
	movementType MovementType,
	quantity, unitCost decimal.Decimal,
	referenceType ReferenceType,
	referenceID string,
	actorID uuid.UUID,
) (*Movement, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewValidationError("Tenant ID cannot be empty")
	}
	if batchID == uuid.Nil {
		return nil, shared.NewValidationError("Batch ID cannot be empty")
	}
	if materialID == uuid.Nil {
		return nil, shared.NewValidationError("Material ID cannot be empty")
	}
	if !movementType.IsValid() {
		return nil, shared.NewValidationError("Invalid movement type")
	}
	if quantity.IsZero() {
		return nil, shared.NewValidationError("Movement quantity cannot be zero")
	}
	if movementType.IsInflow() && quantity.IsNegative() {
		return nil, shared.NewValidationError("Inflow movements must carry a positive quantity")
	}
	if !movementType.IsInflow() && quantity.IsPositive() {
		return nil, shared.NewValidationError("Consumption movements must carry a negative quantity")
	}
	if unitCost.IsNegative() {
		return nil, shared.NewValidationError("Unit cost cannot be negative")
	}
	if !referenceType.IsValid() {
		return nil, shared.NewValidationError("Invalid reference type")
	}
	if referenceID == "" {
		return nil, shared.NewValidationError("Reference ID cannot be empty")
	}
	if actorID == uuid.Nil {
		return nil, shared.NewValidationError("Actor ID cannot be empty")
	}

	return &Movement{
		BaseEntity:    shared.NewBaseEntity(),
		TenantID:      tenantID,
		BatchID:       batchID,
		MaterialID:    materialID,
		MovementType:  movementType,
		Quantity:      quantity,
		UnitCost:      unitCost,
		ReferenceType: referenceType,
		ReferenceID:   referenceID,
		MovementDate:  time.Now(),
		ActorID:       actorID,
	}, nil
}

// WithNote sets the free-text note for the movement
func (m *Movement) WithNote(note string) *Movement {
	m.Note = note
	return m
}

// WithMovementDate sets the movement date
func (m *Movement) WithMovementDate(date time.Time) *Movement {
	m.MovementDate = date
	return m
}

// MarkReversed tags the movement as reversed so later reversal passes skip it
func (m *Movement) MarkReversed(at time.Time) {
	m.Reversed = true
	m.ReversedAt = &at
	m.UpdatedAt = at
}

// Cost returns the absolute cost carried by this movement
func (m *Movement) Cost() decimal.Decimal {
	return m.Quantity.Abs().Mul(m.UnitCost)
}
