package trade

import (
	"context"

	"github.com/google/uuid"

	"github.com/tradeops/backoffice/internal/domain/shared"
)

// SalesOrderLineRepository defines the interface for sales order line persistence
type SalesOrderLineRepository interface {
	// FindByIDForTenant finds a sales order line by ID within a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*SalesOrderLine, error)

	// FindByOrderNumber finds all lines of one order
	FindByOrderNumber(ctx context.Context, tenantID uuid.UUID, orderNumber string) ([]SalesOrderLine, error)

	// FindByStatus finds lines in a given status
	FindByStatus(ctx context.Context, tenantID uuid.UUID, status Status, filter shared.Filter) ([]SalesOrderLine, error)

	// Create inserts a new line
	Create(ctx context.Context, line *SalesOrderLine) error

	// Save persists state changes with an optimistic version check
	Save(ctx context.Context, line *SalesOrderLine) error
}
