package finance

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerRepository defines the interface for the append-only financial ledger
type LedgerRepository interface {
	// Create appends one entry
	Create(ctx context.Context, entry *LedgerEntry) error

	// FindByReference returns every entry tagged with a business reference,
	// oldest first
	FindByReference(ctx context.Context, tenantID uuid.UUID, referenceType, referenceID string) ([]LedgerEntry, error)

	// SumByReference sums the signed amounts of a reference's entries
	SumByReference(ctx context.Context, tenantID uuid.UUID, referenceType, referenceID string) (decimal.Decimal, error)
}
