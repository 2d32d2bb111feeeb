package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tradeops/backoffice/internal/domain/expense"
	"github.com/tradeops/backoffice/internal/domain/finance"
	"github.com/tradeops/backoffice/internal/domain/inventory"
	"github.com/tradeops/backoffice/internal/domain/shared"
	"github.com/tradeops/backoffice/internal/domain/trade"
	"github.com/tradeops/backoffice/internal/domain/wastage"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&inventory.Batch{},
		&inventory.Movement{},
		&wastage.Record{},
		&expense.Record{},
		&trade.SalesOrderLine{},
		&finance.LedgerEntry{},
	))
	return db
}

func mustBatch(t *testing.T, tenantID, materialID uuid.UUID, branchID *uuid.UUID, day int, qty, cost string) *inventory.Batch {
	t.Helper()
	batch, err := inventory.NewBatch(
		tenantID, materialID, nil, branchID,
		time.Date(2026, 4, day, 0, 0, 0, 0, time.UTC),
		decimal.RequireFromString(qty), decimal.RequireFromString(cost),
	)
	require.NoError(t, err)
	return batch
}

func TestGormBatchRepository_CreateAndFindByID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormBatchRepository(db)
	ctx := context.Background()

	batch := mustBatch(t, uuid.New(), uuid.New(), nil, 1, "100", "10")
	require.NoError(t, repo.Create(ctx, batch))

	found, err := repo.FindByID(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, batch.ID, found.ID)
	assert.True(t, found.RemainingQuantity.Equal(decimal.RequireFromString("100")))

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormBatchRepository_FindEligible_FIFOOrder(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormBatchRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	materialID := uuid.New()

	// Inserted newest first to prove ordering comes from the query.
	b3 := mustBatch(t, tenantID, materialID, nil, 9, "10", "14")
	b1 := mustBatch(t, tenantID, materialID, nil, 1, "10", "10")
	b2 := mustBatch(t, tenantID, materialID, nil, 5, "10", "12")
	for _, b := range []*inventory.Batch{b3, b1, b2} {
		require.NoError(t, repo.Create(ctx, b))
	}

	// Depleted lots never appear.
	depleted := mustBatch(t, tenantID, materialID, nil, 2, "5", "10")
	require.NoError(t, depleted.Apply(decimal.RequireFromString("-5")))
	require.NoError(t, repo.Create(ctx, depleted))

	batches, err := repo.FindEligible(ctx, tenantID, materialID, nil)
	require.NoError(t, err)
	require.Len(t, batches, 3)
	assert.Equal(t, b1.ID, batches[0].ID)
	assert.Equal(t, b2.ID, batches[1].ID)
	assert.Equal(t, b3.ID, batches[2].ID)
}

func TestGormBatchRepository_FindEligible_BranchFallback(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormBatchRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	materialID := uuid.New()
	branchID := uuid.New()

	unscoped := mustBatch(t, tenantID, materialID, nil, 1, "100", "10")
	require.NoError(t, repo.Create(ctx, unscoped))

	t.Run("falls back to unscoped stock when no batch carries the branch", func(t *testing.T) {
		batches, err := repo.FindEligible(ctx, tenantID, materialID, &branchID)
		require.NoError(t, err)
		require.Len(t, batches, 1)
		assert.Equal(t, unscoped.ID, batches[0].ID)
	})

	t.Run("narrows to the branch once tagged stock exists", func(t *testing.T) {
		scoped := mustBatch(t, tenantID, materialID, &branchID, 5, "40", "11")
		require.NoError(t, repo.Create(ctx, scoped))

		batches, err := repo.FindEligible(ctx, tenantID, materialID, &branchID)
		require.NoError(t, err)
		require.Len(t, batches, 1)
		assert.Equal(t, scoped.ID, batches[0].ID)
	})
}

func TestGormBatchRepository_FindByIDsForUpdate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormBatchRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	materialID := uuid.New()

	batch := mustBatch(t, tenantID, materialID, nil, 1, "100", "10")
	require.NoError(t, repo.Create(ctx, batch))

	found, err := repo.FindByIDsForUpdate(ctx, tenantID, []uuid.UUID{batch.ID})
	require.NoError(t, err)
	require.Len(t, found, 1)

	_, err = repo.FindByIDsForUpdate(ctx, tenantID, []uuid.UUID{batch.ID, uuid.New()})
	assert.ErrorIs(t, err, shared.ErrNotFound, "a missing id must fail the whole lookup")

	_, err = repo.FindByIDsForUpdate(ctx, uuid.New(), []uuid.UUID{batch.ID})
	assert.ErrorIs(t, err, shared.ErrNotFound, "tenant scoping applies to locked lookups")
}

func TestGormBatchRepository_SaveAll(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormBatchRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	materialID := uuid.New()

	b1 := mustBatch(t, tenantID, materialID, nil, 1, "100", "10")
	b2 := mustBatch(t, tenantID, materialID, nil, 5, "50", "12")
	require.NoError(t, repo.Create(ctx, b1))
	require.NoError(t, repo.Create(ctx, b2))

	require.NoError(t, b1.Apply(decimal.RequireFromString("-100")))
	require.NoError(t, b2.Apply(decimal.RequireFromString("-20")))
	require.NoError(t, repo.SaveAll(ctx, []*inventory.Batch{b1, b2}))

	stored1, err := repo.FindByID(ctx, b1.ID)
	require.NoError(t, err)
	assert.True(t, stored1.Depleted)
	stored2, err := repo.FindByID(ctx, b2.ID)
	require.NoError(t, err)
	assert.True(t, stored2.RemainingQuantity.Equal(decimal.RequireFromString("30")))
}

func TestGormBatchRepository_Summarize(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormBatchRepository(db)
	ctx := context.Background()
	tenantID := uuid.New()
	materialID := uuid.New()

	t.Run("empty material yields zero summary", func(t *testing.T) {
		summary, err := repo.Summarize(ctx, tenantID, materialID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), summary.BatchCount)
		assert.True(t, summary.TotalQuantity.IsZero())
		assert.Nil(t, summary.OldestDate)
	})

	t.Run("aggregates live lots only", func(t *testing.T) {
		b1 := mustBatch(t, tenantID, materialID, nil, 1, "100", "10")
		b2 := mustBatch(t, tenantID, materialID, nil, 5, "50", "12")
		depleted := mustBatch(t, tenantID, materialID, nil, 3, "10", "99")
		require.NoError(t, depleted.Apply(decimal.RequireFromString("-10")))
		for _, b := range []*inventory.Batch{b1, b2, depleted} {
			require.NoError(t, repo.Create(ctx, b))
		}

		summary, err := repo.Summarize(ctx, tenantID, materialID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), summary.BatchCount)
		assert.True(t, summary.TotalQuantity.Equal(decimal.RequireFromString("150")))
		assert.True(t, summary.TotalValue.Equal(decimal.RequireFromString("1600")))
		assert.True(t, summary.AverageCost.Equal(decimal.RequireFromString("10.6667")), "got %s", summary.AverageCost)
		require.NotNil(t, summary.OldestDate)
		require.NotNil(t, summary.NewestDate)
		assert.Equal(t, b1.PurchaseDate.Day(), summary.OldestDate.Day())
		assert.Equal(t, b2.PurchaseDate.Day(), summary.NewestDate.Day())
	})
}
