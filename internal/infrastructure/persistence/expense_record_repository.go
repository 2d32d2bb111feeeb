package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradeops/backoffice/internal/domain/expense"
	"github.com/tradeops/backoffice/internal/domain/shared"
)

// GormExpenseRepository implements expense.Repository using GORM
type GormExpenseRepository struct {
	db *gorm.DB
}

// NewGormExpenseRepository creates a new GormExpenseRepository
func NewGormExpenseRepository(db *gorm.DB) *GormExpenseRepository {
	return &GormExpenseRepository{db: db}
}

// FindByIDForTenant finds an expense record by ID within a tenant
func (r *GormExpenseRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*expense.Record, error) {
	var record expense.Record
	if err := r.db.WithContext(ctx).
		First(&record, "tenant_id = ? AND id = ?", tenantID, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// FindByStatus finds expense records in a given status
func (r *GormExpenseRepository) FindByStatus(ctx context.Context, tenantID uuid.UUID, status expense.Status, filter shared.Filter) ([]expense.Record, error) {
	var records []expense.Record
	query := applyFilter(
		r.db.WithContext(ctx).Model(&expense.Record{}).
			Where("tenant_id = ? AND status = ?", tenantID, status),
		filter,
	)
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Create inserts a new record
func (r *GormExpenseRepository) Create(ctx context.Context, record *expense.Record) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// Save persists state changes with an optimistic version check
func (r *GormExpenseRepository) Save(ctx context.Context, record *expense.Record) error {
	result := r.db.WithContext(ctx).
		Model(record).
		Where("id = ? AND version = ?", record.ID, record.Version-1).
		Updates(map[string]interface{}{
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

var _ expense.Repository = (*GormExpenseRepository)(nil)
