package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradeops/backoffice/internal/domain/shared"
	"github.com/tradeops/backoffice/internal/domain/trade"
)

// GormSalesOrderLineRepository implements trade.SalesOrderLineRepository using GORM
type GormSalesOrderLineRepository struct {
	db *gorm.DB
}

// NewGormSalesOrderLineRepository creates a new GormSalesOrderLineRepository
func NewGormSalesOrderLineRepository(db *gorm.DB) *GormSalesOrderLineRepository {
	return &GormSalesOrderLineRepository{db: db}
}

// FindByIDForTenant finds a sales order line by ID within a tenant
func (r *GormSalesOrderLineRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*trade.SalesOrderLine, error) {
	var line trade.SalesOrderLine
	if err := r.db.WithContext(ctx).
		First(&line, "tenant_id = ? AND id = ?", tenantID, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &line, nil
}

// FindByOrderNumber finds all lines of one order
func (r *GormSalesOrderLineRepository) FindByOrderNumber(ctx context.Context, tenantID uuid.UUID, orderNumber string) ([]trade.SalesOrderLine, error) {
	var lines []trade.SalesOrderLine
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND order_number = ?", tenantID, orderNumber).
		Order("created_at ASC, id ASC").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

// FindByStatus finds lines in a given status
func (r *GormSalesOrderLineRepository) FindByStatus(ctx context.Context, tenantID uuid.UUID, status trade.Status, filter shared.Filter) ([]trade.SalesOrderLine, error) {
	var lines []trade.SalesOrderLine
	query := applyFilter(
		r.db.WithContext(ctx).Model(&trade.SalesOrderLine{}).
			Where("tenant_id = ? AND status = ?", tenantID, status),
		filter,
	)
	if err := query.Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

// Create inserts a new line
func (r *GormSalesOrderLineRepository) Create(ctx context.Context, line *trade.SalesOrderLine) error {
	return r.db.WithContext(ctx).Create(line).Error
}

// Save persists state changes with an optimistic version check
func (r *GormSalesOrderLineRepository) Save(ctx context.Context, line *trade.SalesOrderLine) error {
	result := r.db.WithContext(ctx).
		Model(line).
		Where("id = ? AND version = ?", line.ID, line.Version-1).
		Updates(map[string]interface{}{
			"status":        line.Status,
			"cogs":          line.COGS,
			"delivered_at":  line.DeliveredAt,
			"cancelled_at":  line.CancelledAt,
			"cancel_reason": line.CancelReason,
			"updated_at":    line.UpdatedAt,
			"version":       line.Version,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

var _ trade.SalesOrderLineRepository = (*GormSalesOrderLineRepository)(nil)
