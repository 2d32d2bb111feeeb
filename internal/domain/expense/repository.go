package expense

import (
	"context"

	"github.com/google/uuid"

	"github.com/tradeops/backoffice/internal/domain/shared"
)

// Repository defines the interface for expense record persistence
type Repository interface {
	// FindByIDForTenant finds an expense record by ID within a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Record, error)

	// FindByStatus finds expense records in a given status
	FindByStatus(ctx context.Context, tenantID uuid.UUID, status Status, filter shared.Filter) ([]Record, error)

	// Create inserts a new record
	Create(ctx context.Context, record *Record) error

	// Save persists state changes with an optimistic version check
	Save(ctx context.Context, record *Record) error
}
