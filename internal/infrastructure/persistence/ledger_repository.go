package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tradeops/backoffice/internal/domain/finance"
)

// GormLedgerRepository implements finance.LedgerRepository using GORM.
// Entries are append-only.
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewGormLedgerRepository creates a new GormLedgerRepository
func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// Create appends one entry
func (r *GormLedgerRepository) Create(ctx context.Context, entry *finance.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// FindByReference returns every entry of a business reference, oldest first
func (r *GormLedgerRepository) FindByReference(ctx context.Context, tenantID uuid.UUID, referenceType, referenceID string) ([]finance.LedgerEntry, error) {
	var entries []finance.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND reference_type = ? AND reference_id = ?", tenantID, referenceType, referenceID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// SumByReference sums the signed amounts of a reference's entries
func (r *GormLedgerRepository) SumByReference(ctx context.Context, tenantID uuid.UUID, referenceType, referenceID string) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).Model(&finance.LedgerEntry{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("tenant_id = ? AND reference_type = ? AND reference_id = ?", tenantID, referenceType, referenceID).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}

var _ finance.LedgerRepository = (*GormLedgerRepository)(nil)
