package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradeops/backoffice/internal/domain/shared"
)

// BatchSummary aggregates the live lots of one material for reporting
type BatchSummary struct {
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	TotalValue    decimal.Decimal `json:"total_value"`
	AverageCost   decimal.Decimal `json:"average_cost"`
	BatchCount    int64           `json:"batch_count"`
	OldestDate    *time.Time      `json:"oldest_date"`
	NewestDate    *time.Time      `json:"newest_date"`
}

// BatchRepository defines the interface for batch (lot) persistence.
//
// Mutation of batch quantities is owned exclusively by the allocation engine
// via movements; no other code path may write RemainingQuantity directly.
type BatchRepository interface {
	// FindByID finds a batch by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Batch, error)

	// FindByIDs finds multiple batches by ID, locking each row for update
	FindByIDsForUpdate(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]Batch, error)

	// FindEligibleForUpdate returns the non-depleted batches of a material
	// with remaining quantity > 0, ordered purchase_date ascending with
	// creation order as the tiebreak, each row locked for update so a
	// concurrent allocation cannot consume them between read and write.
	//
	// When branchID is set, the result is narrowed to that branch only if at
	// least one eligible batch carries the branch tag; otherwise the unscoped
	// set is returned. Older lots may predate branch tagging and scope
	// filtering must never make stock invisible.
	FindEligibleForUpdate(ctx context.Context, tenantID, materialID uuid.UUID, branchID *uuid.UUID) ([]Batch, error)

	// FindEligible is the read-only variant used by previews: same ordering
	// and branch fallback, no row locks.
	FindEligible(ctx context.Context, tenantID, materialID uuid.UUID, branchID *uuid.UUID) ([]Batch, error)

	// FindByMaterial lists all batches of a material (reporting, no locks)
	FindByMaterial(ctx context.Context, tenantID, materialID uuid.UUID, filter shared.Filter) ([]Batch, error)

	// Create inserts a new lot
	Create(ctx context.Context, batch *Batch) error

	// Save persists quantity/depletion changes for a lot
	Save(ctx context.Context, batch *Batch) error

	// SaveAll persists changes for multiple lots
	SaveAll(ctx context.Context, batches []*Batch) error

	// Summarize aggregates the non-depleted lots of a material
	Summarize(ctx context.Context, tenantID, materialID uuid.UUID) (*BatchSummary, error)
}

// MovementRepository defines the interface for the append-only movement log.
// Movements are never updated except to set the reversed flag, and never
// deleted.
type MovementRepository interface {
	// Create appends one movement
	Create(ctx context.Context, movement *Movement) error

	// CreateAll appends multiple movements
	CreateAll(ctx context.Context, movements []*Movement) error

	// FindByReference returns every movement tagged with a business reference,
	// oldest first
	FindByReference(ctx context.Context, tenantID uuid.UUID, referenceType ReferenceType, referenceID string) ([]Movement, error)

	// FindOutstandingConsumptions returns the consumption movements of a
	// reference that have not been reversed, newest first, with their rows
	// locked for update so concurrent reversals cannot double-credit.
	FindOutstandingConsumptions(ctx context.Context, tenantID uuid.UUID, referenceType ReferenceType, referenceID string) ([]Movement, error)

	// FindByBatch returns the movement history of one batch, oldest first
	FindByBatch(ctx context.Context, batchID uuid.UUID, filter shared.Filter) ([]Movement, error)

	// MarkReversed tags the given consumption movements as reversed
	MarkReversed(ctx context.Context, ids []uuid.UUID, at time.Time) error
}
