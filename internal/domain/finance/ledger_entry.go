package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradeops/backoffice/internal/domain/shared"
)

// EntryType classifies a financial ledger entry
type EntryType string

const (
	// EntryTypeWastageCost is the outflow recorded when a wastage is approved
	EntryTypeWastageCost EntryType = "WASTAGE_COST"
	// EntryTypeWastageAdjustment is the signed correction from an amendment
	EntryTypeWastageAdjustment EntryType = "WASTAGE_ADJUSTMENT"
	// EntryTypeSalesCOGS is the outflow recorded when a sales line is delivered
	EntryTypeSalesCOGS EntryType = "SALES_COGS"
	// EntryTypeCOGSReversal is the compensating inflow from a cancellation
	EntryTypeCOGSReversal EntryType = "COGS_REVERSAL"
	// EntryTypeExpense is the outflow recorded when a petty-cash expense is approved
	EntryTypeExpense EntryType = "EXPENSE"
)

// String returns the string representation of EntryType
func (t EntryType) String() string {
	return string(t)
}

// IsValid returns true if the entry type is valid
func (t EntryType) IsValid() bool {
	switch t {
	case EntryTypeWastageCost, EntryTypeWastageAdjustment, EntryTypeSalesCOGS,
		EntryTypeCOGSReversal, EntryTypeExpense:
		return true
	}
	return false
}

// LedgerEntry is one immutable signed financial record written by the
// orchestrator alongside a workflow's stock effects. Negative amounts are
// outflows. Entries are append-only; corrections are new entries.
type LedgerEntry struct {
	shared.BaseEntity
	TenantID      uuid.UUID       `gorm:"type:uuid;not null;index:idx_ledger_tenant_ref,priority:1"`
	EntryType     EntryType       `gorm:"type:varchar(30);not null;index"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ReferenceType string          `gorm:"type:varchar(30);not null;index:idx_ledger_tenant_ref,priority:2"`
	ReferenceID   string          `gorm:"type:varchar(50);not null;index:idx_ledger_tenant_ref,priority:3"`
	Note          string          `gorm:"type:varchar(255)"`
	ActorID       uuid.UUID       `gorm:"type:uuid;not null"`
	EntryDate     time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// NewLedgerEntry creates a new signed ledger entry
func NewLedgerEntry(
	tenantID uuid.UUID,
	entryType EntryType,
	amount decimal.Decimal,
	referenceType, referenceID string,
	actorID uuid.UUID,
) (*LedgerEntry, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewValidationError("Tenant ID cannot be empty")
	}
	if !entryType.IsValid() {
		return nil, shared.NewValidationError("Invalid ledger entry type")
	}
	if amount.IsZero() {
		return nil, shared.NewValidationError("Ledger amount cannot be zero")
	}
	if referenceType == "" || referenceID == "" {
		return nil, shared.NewValidationError("Ledger reference is required")
	}
	if actorID == uuid.Nil {
		return nil, shared.NewValidationError("Actor ID cannot be empty")
	}

	return &LedgerEntry{
		BaseEntity:    shared.NewBaseEntity(),
		TenantID:      tenantID,
		EntryType:     entryType,
		Amount:        amount,
		ReferenceType: referenceType,
		ReferenceID:   referenceID,
		ActorID:       actorID,
		EntryDate:     time.Now(),
	}, nil
}

// WithNote sets the free-text note for the entry
func (e *LedgerEntry) WithNote(note string) *LedgerEntry {
	e.Note = note
	return e
}

// IsOutflow returns true if the entry reduces cash/value
func (e *LedgerEntry) IsOutflow() bool {
	return e.Amount.IsNegative()
}
