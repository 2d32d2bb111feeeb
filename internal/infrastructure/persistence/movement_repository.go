package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradeops/backoffice/internal/domain/inventory"
	"github.com/tradeops/backoffice/internal/domain/shared"
)

// GormMovementRepository implements inventory.MovementRepository using GORM.
// The log is append-only: the reversed flag is the only field ever updated.
type GormMovementRepository struct {
	db *gorm.DB
}

// NewGormMovementRepository creates a new GormMovementRepository
func NewGormMovementRepository(db *gorm.DB) *GormMovementRepository {
	return &GormMovementRepository{db: db}
}

// Create appends one movement
func (r *GormMovementRepository) Create(ctx context.Context, movement *inventory.Movement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

// CreateAll appends multiple movements
func (r *GormMovementRepository) CreateAll(ctx context.Context, movements []*inventory.Movement) error {
	if len(movements) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(movements).Error
}

// FindByReference returns every movement of a business reference, oldest first
func (r *GormMovementRepository) FindByReference(ctx context.Context, tenantID uuid.UUID, referenceType inventory.ReferenceType, referenceID string) ([]inventory.Movement, error) {
	var movements []inventory.Movement
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND reference_type = ? AND reference_id = ?", tenantID, referenceType, referenceID).
		Order("created_at ASC, id ASC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// FindOutstandingConsumptions returns the unreversed consumption movements of
// a reference, newest-allocated first, with their rows locked. An allocation
// consumes lots in purchase order, so walking the lots backwards yields the
// exact reverse of the allocation; movements written in the same transaction
// share a timestamp, which makes batch order the only reliable key.
func (r *GormMovementRepository) FindOutstandingConsumptions(ctx context.Context, tenantID uuid.UUID, referenceType inventory.ReferenceType, referenceID string) ([]inventory.Movement, error) {
	var movements []inventory.Movement
	if err := lockForUpdate(r.db.WithContext(ctx)).
		Model(&inventory.Movement{}).
		Select("movements.*").
		Joins("JOIN batches ON batches.id = movements.batch_id").
		Where("movements.tenant_id = ? AND movements.reference_type = ? AND movements.reference_id = ?", tenantID, referenceType, referenceID).
		Where("movements.movement_type = ? AND movements.reversed = ?", inventory.MovementTypeConsumption, false).
		Order("batches.purchase_date DESC, batches.created_at DESC, movements.created_at DESC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// FindByBatch returns the movement history of one batch, oldest first
func (r *GormMovementRepository) FindByBatch(ctx context.Context, batchID uuid.UUID, filter shared.Filter) ([]inventory.Movement, error) {
	var movements []inventory.Movement
	query := r.db.WithContext(ctx).Model(&inventory.Movement{}).
		Where("batch_id = ?", batchID)
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
	if err := query.Order("created_at ASC, id ASC").Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// MarkReversed tags the given consumption movements as reversed
func (r *GormMovementRepository) MarkReversed(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&inventory.Movement{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"reversed":    true,
			"reversed_at": at,
		}).Error
}

var _ inventory.MovementRepository = (*GormMovementRepository)(nil)
