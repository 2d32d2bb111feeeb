package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradeops/backoffice/internal/domain/shared"
	"github.com/tradeops/backoffice/internal/domain/wastage"
)

// GormWastageRepository implements wastage.Repository using GORM
type GormWastageRepository struct {
	db *gorm.DB
}

// NewGormWastageRepository creates a new GormWastageRepository
func NewGormWastageRepository(db *gorm.DB) *GormWastageRepository {
	return &GormWastageRepository{db: db}
}

// FindByIDForTenant finds a wastage record by ID within a tenant
func (r *GormWastageRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*wastage.Record, error) {
	var record wastage.Record
	if err := r.db.WithContext(ctx).
		First(&record, "tenant_id = ? AND id = ?", tenantID, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindByStatus finds wastage records in a given status
func (r *GormWastageRepository) FindByStatus(ctx context.Context, tenantID uuid.UUID, status wastage.Status, filter shared.Filter) ([]wastage.Record, error) {
	var records []wastage.Record
	query := applyFilter(
		r.db.WithContext(ctx).Model(&wastage.Record{}).
			Where("tenant_id = ? AND status = ?", tenantID, status),
		filter,
	)
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Create inserts a new record
func (r *GormWastageRepository) Create(ctx context.Context, record *wastage.Record) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// Save persists state changes with an optimistic version check. The aggregate
// increments its version on every transition, so the previous version is the
// row we expect to overwrite.
func (r *GormWastageRepository) Save(ctx context.Context, record *wastage.Record) error {
	result := r.db.WithContext(ctx).
		Model(record).
		Where("id = ? AND version = ?", record.ID, record.Version-1).
		Updates(map[string]interface{}{
			"quantity":       record.Quantity,
			"estimated_cost": record.EstimatedCost,
			"realized_cost":  record.RealizedCost,
			"status":         record.Status,
			"approved_by_id": record.ApprovedByID,
			"approved_at":    record.ApprovedAt,
			"approval_note":  record.ApprovalNote,
			"updated_at":     record.UpdatedAt,
			"version":        record.Version,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

var _ wastage.Repository = (*GormWastageRepository)(nil)
