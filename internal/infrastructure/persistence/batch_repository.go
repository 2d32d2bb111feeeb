package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tradeops/backoffice/internal/domain/inventory"
	"github.com/tradeops/backoffice/internal/domain/shared"
)

// fifoOrder is the canonical consumption order: oldest purchase first, with
// creation time and id as stable tiebreaks.
const fifoOrder = "purchase_date ASC, created_at ASC, id ASC"

// lockForUpdate applies a pessimistic row lock. SQLite (used by repository
// tests) has no FOR UPDATE; its writes serialize on the database level
// instead.
func lockForUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// GormBatchRepository implements inventory.BatchRepository using GORM
type GormBatchRepository struct {
	db *gorm.DB
}

// NewGormBatchRepository creates a new GormBatchRepository
func NewGormBatchRepository(db *gorm.DB) *GormBatchRepository {
	return &GormBatchRepository{db: db}
}

// FindByID finds a batch by its ID
func (r *GormBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Batch, error) {
	var batch inventory.Batch
	if err := r.db.WithContext(ctx).First(&batch, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// FindByIDsForUpdate finds multiple batches by ID with their rows locked
func (r *GormBatchRepository) FindByIDsForUpdate(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]inventory.Batch, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var batches []inventory.Batch
	if err := lockForUpdate(r.db.WithContext(ctx)).
		Where("tenant_id = ? AND id IN ?", tenantID, ids).
		Find(&batches).Error; err != nil {
		return nil, err
	}
	if len(batches) != len(ids) {
		return nil, shared.ErrNotFound
	}
	return batches, nil
}

// eligibleQuery builds the two-step branch-scoped query over live lots.
// When a branch is requested, batches tagged with that branch win; if none
// exist the unscoped set is used, so stock recorded before branch tagging
// stays allocatable.
func (r *GormBatchRepository) eligibleQuery(ctx context.Context, tenantID, materialID uuid.UUID, branchID *uuid.UUID) (*gorm.DB, error) {
	base := r.db.WithContext(ctx).Model(&inventory.Batch{}).
		Where("tenant_id = ? AND material_id = ?", tenantID, materialID).
		Where("depleted = ? AND remaining_quantity > 0", false)

	if branchID != nil {
		var scoped int64
		if err := base.Session(&gorm.Session{}).
			Where("branch_id = ?", *branchID).
			Count(&scoped).Error; err != nil {
			return nil, err
		}
		if scoped > 0 {
			base = base.Where("branch_id = ?", *branchID)
		}
	}
	return base.Order(fifoOrder), nil
}

// FindEligibleForUpdate returns the material's live lots in FIFO order with
// their rows locked for update
func (r *GormBatchRepository) FindEligibleForUpdate(ctx context.Context, tenantID, materialID uuid.UUID, branchID *uuid.UUID) ([]inventory.Batch, error) {
	query, err := r.eligibleQuery(ctx, tenantID, materialID, branchID)
	if err != nil {
		return nil, err
	}
	var batches []inventory.Batch
	if err := lockForUpdate(query).Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// FindEligible is the unlocked read used by previews
func (r *GormBatchRepository) FindEligible(ctx context.Context, tenantID, materialID uuid.UUID, branchID *uuid.UUID) ([]inventory.Batch, error) {
	query, err := r.eligibleQuery(ctx, tenantID, materialID, branchID)
	if err != nil {
		return nil, err
	}
	var batches []inventory.Batch
	if err := query.Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// FindByMaterial lists all batches of a material
func (r *GormBatchRepository) FindByMaterial(ctx context.Context, tenantID, materialID uuid.UUID, filter shared.Filter) ([]inventory.Batch, error) {
	var batches []inventory.Batch
	query := applyFilter(
		r.db.WithContext(ctx).Model(&inventory.Batch{}).
			Where("tenant_id = ? AND material_id = ?", tenantID, materialID),
		filter,
	)
	if err := query.Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// Create inserts a new lot
func (r *GormBatchRepository) Create(ctx context.Context, batch *inventory.Batch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

// Save persists quantity and depletion changes for a lot
func (r *GormBatchRepository) Save(ctx context.Context, batch *inventory.Batch) error {
	return r.db.WithContext(ctx).Save(batch).Error
}

// SaveAll persists changes for multiple lots
func (r *GormBatchRepository) SaveAll(ctx context.Context, batches []*inventory.Batch) error {
	if len(batches) == 0 {
		return nil
	}
	for _, batch := range batches {
		if err := r.Save(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

// Summarize aggregates the material's live lots
func (r *GormBatchRepository) Summarize(ctx context.Context, tenantID, materialID uuid.UUID) (*inventory.BatchSummary, error) {
	live := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&inventory.Batch{}).
			Where("tenant_id = ? AND material_id = ?", tenantID, materialID).
			Where("depleted = ? AND remaining_quantity > 0", false)
	}

	var row struct {
		TotalQuantity decimal.Decimal
		TotalValue    decimal.Decimal
		BatchCount    int64
	}
	err := live().
		Select("COALESCE(SUM(remaining_quantity), 0) AS total_quantity, " +
			"COALESCE(SUM(remaining_quantity * unit_cost), 0) AS total_value, " +
			"COUNT(*) AS batch_count").
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	summary := &inventory.BatchSummary{
		TotalQuantity: row.TotalQuantity,
		TotalValue:    row.TotalValue,
		AverageCost:   decimal.Zero,
		BatchCount:    row.BatchCount,
	}
	if row.BatchCount == 0 {
		return summary, nil
	}
	if row.TotalQuantity.IsPositive() {
		summary.AverageCost = row.TotalValue.DivRound(row.TotalQuantity, 4)
	}

	// Date bounds come from typed columns rather than MIN/MAX expressions,
	// which not every driver scans back as time values.
	var oldest, newest inventory.Batch
	if err := live().Order("purchase_date ASC").First(&oldest).Error; err != nil {
		return nil, err
	}
	if err := live().Order("purchase_date DESC").First(&newest).Error; err != nil {
		return nil, err
	}
	summary.OldestDate = &oldest.PurchaseDate
	summary.NewestDate = &newest.PurchaseDate
	return summary, nil
}

var _ inventory.BatchRepository = (*GormBatchRepository)(nil)
