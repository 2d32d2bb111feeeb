package wastage_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tradeops/backoffice/internal/application/apptest"
	appinventory "github.com/tradeops/backoffice/internal/application/inventory"
	appwastage "github.com/tradeops/backoffice/internal/application/wastage"
	"github.com/tradeops/backoffice/internal/domain/finance"
	"github.com/tradeops/backoffice/internal/domain/shared"
	"github.com/tradeops/backoffice/internal/domain/wastage"
)

type wastageFixture struct {
	fixture   *apptest.Fixture
	allocator *appinventory.AllocatorService
	service   *appwastage.Service
	tenantID  uuid.UUID
}

func newWastageFixture() *wastageFixture {
	fixture := apptest.NewFixture()
	allocator := appinventory.NewAllocatorService(fixture, zap.NewNop())
	return &wastageFixture{
		fixture:   fixture,
		allocator: allocator,
		service:   appwastage.NewService(fixture, allocator, zap.NewNop()),
		tenantID:  uuid.New(),
	}
}

func (f *wastageFixture) seedStock(t *testing.T, materialID uuid.UUID, day int, qty, cost string) {
	t.Helper()
	_, err := f.allocator.CreateBatch(context.Background(), f.tenantID, appinventory.CreateBatchInput{
		MaterialID:    materialID,
		PurchaseDate:  time.Date(2026, 2, day, 0, 0, 0, 0, time.UTC),
		Quantity:      decimal.RequireFromString(qty),
		UnitCost:      decimal.RequireFromString(cost),
		ReferenceType: "purchase_order",
		ReferenceID:   uuid.NewString(),
		ActorID:       uuid.New(),
	})
	require.NoError(t, err)
}

func (f *wastageFixture) submit(t *testing.T, materialID uuid.UUID, qty string) *wastage.Record {
	t.Helper()
	record, err := f.service.Submit(context.Background(), f.tenantID, appwastage.SubmitInput{
		MaterialID:  materialID,
		Quantity:    decimal.RequireFromString(qty),
		Reason:      "spoiled in storage",
		SubmittedBy: uuid.New(),
	})
	require.NoError(t, err)
	return record
}

func TestWastageService_SubmitEstimatesFromAverageCost(t *testing.T) {
	f := newWastageFixture()
	materialID := uuid.New()
	f.seedStock(t, materialID, 1, "100", "10")
	f.seedStock(t, materialID, 5, "100", "14")

	record := f.submit(t, materialID, "10")
	assert.Equal(t, wastage.StatusPending, record.Status)
	// Average cost over the two lots is 12.
	assert.True(t, record.EstimatedCost.Equal(decimal.RequireFromString("120")), "got %s", record.EstimatedCost)
	assert.True(t, record.RealizedCost.IsZero())
}

func TestWastageService_ApproveRealizesFIFOCost(t *testing.T) {
	f := newWastageFixture()
	materialID := uuid.New()
	approverID := uuid.New()
	f.seedStock(t, materialID, 1, "20", "10")
	f.seedStock(t, materialID, 5, "50", "12")

	record := f.submit(t, materialID, "30")

	outcome, err := f.service.Approve(context.Background(), f.tenantID, record.ID, approverID, "confirmed on site")
	require.NoError(t, err)
	require.True(t, outcome.Approved())

	assert.Equal(t, wastage.StatusApproved, outcome.Record.Status)
	// 20*10 from the older lot, then 10*12.
	assert.True(t, outcome.Record.RealizedCost.Equal(decimal.RequireFromString("320")), "got %s", outcome.Record.RealizedCost)
	require.NotNil(t, outcome.Record.ApprovedByID)
	assert.Equal(t, approverID, *outcome.Record.ApprovedByID)

	entries := f.fixture.Ledger.All()
	require.Len(t, entries, 1)
	assert.Equal(t, finance.EntryTypeWastageCost, entries[0].EntryType)
	assert.True(t, entries[0].Amount.Equal(decimal.RequireFromString("-320")), "outflow must be negative, got %s", entries[0].Amount)
	assert.True(t, entries[0].IsOutflow())
}

func TestWastageService_ApproveShortfallLeavesRecordPending(t *testing.T) {
	f := newWastageFixture()
	materialID := uuid.New()
	f.seedStock(t, materialID, 1, "10", "10")

	record := f.submit(t, materialID, "30")

	outcome, err := f.service.Approve(context.Background(), f.tenantID, record.ID, uuid.New(), "")
	require.NoError(t, err, "insufficient stock is reported, not raised")
	require.False(t, outcome.Approved())
	assert.True(t, outcome.Allocation.Shortfall.Equal(decimal.RequireFromString("20")))

	stored, err := f.fixture.Wastages.FindByIDForTenant(context.Background(), f.tenantID, record.ID)
	require.NoError(t, err)
	assert.Equal(t, wastage.StatusPending, stored.Status, "record must stay pending on shortfall")
	assert.Empty(t, f.fixture.Ledger.All())
}

func TestWastageService_ApproveTwiceFailsWithInvalidState(t *testing.T) {
	f := newWastageFixture()
	materialID := uuid.New()
	f.seedStock(t, materialID, 1, "100", "10")

	record := f.submit(t, materialID, "30")

	_, err := f.service.Approve(context.Background(), f.tenantID, record.ID, uuid.New(), "")
	require.NoError(t, err)

	_, err = f.service.Approve(context.Background(), f.tenantID, record.ID, uuid.New(), "")
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, shared.CodeInvalidState, domainErr.Code)
}

func TestWastageService_RejectHasNoSideEffects(t *testing.T) {
	f := newWastageFixture()
	materialID := uuid.New()
	f.seedStock(t, materialID, 1, "100", "10")

	record := f.submit(t, materialID, "30")

	rejected, err := f.service.Reject(context.Background(), f.tenantID, record.ID, uuid.New(), "not actually wasted")
	require.NoError(t, err)
	assert.Equal(t, wastage.StatusRejected, rejected.Status)

	summary, err := f.fixture.Batches.Summarize(context.Background(), f.tenantID, materialID)
	require.NoError(t, err)
	assert.True(t, summary.TotalQuantity.Equal(decimal.RequireFromString("100")), "rejection must not touch stock")
	assert.Empty(t, f.fixture.Ledger.All())

	_, err = f.service.Approve(context.Background(), f.tenantID, record.ID, uuid.New(), "")
	require.Error(t, err, "terminal state admits no further transition")
}

func TestWastageService_RejectRequiresReason(t *testing.T) {
	f := newWastageFixture()
	materialID := uuid.New()
	f.seedStock(t, materialID, 1, "100", "10")
	record := f.submit(t, materialID, "30")

	_, err := f.service.Reject(context.Background(), f.tenantID, record.ID, uuid.New(), "")
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, shared.CodeValidation, domainErr.Code)
}

func TestWastageService_AmendUpAllocatesIncrement(t *testing.T) {
	f := newWastageFixture()
	materialID := uuid.New()
	actorID := uuid.New()
	f.seedStock(t, materialID, 1, "100", "10")

	record := f.submit(t, materialID, "30")
	_, err := f.service.Approve(context.Background(), f.tenantID, record.ID, actorID, "")
	require.NoError(t, err)

	outcome, err := f.service.Amend(context.Background(), f.tenantID, record.ID, decimal.RequireFromString("45"), "recount found more spoilage", actorID)
	require.NoError(t, err)
	require.True(t, outcome.Amended())
	assert.True(t, outcome.CostDelta.Equal(decimal.RequireFromString("150")))
	assert.True(t, outcome.Record.Quantity.Equal(decimal.RequireFromString("45")))
	assert.True(t, outcome.Record.RealizedCost.Equal(decimal.RequireFromString("450")))

	summary, err := f.fixture.Batches.Summarize(context.Background(), f.tenantID, materialID)
	require.NoError(t, err)
	assert.True(t, summary.TotalQuantity.Equal(decimal.RequireFromString("55")))

	entries := f.fixture.Ledger.All()
	require.Len(t, entries, 2)
	assert.Equal(t, finance.EntryTypeWastageAdjustment, entries[1].EntryType)
	assert.True(t, entries[1].Amount.Equal(decimal.RequireFromString("-150")))
}

func TestWastageService_AmendDownReturnsStockAtOriginalCost(t *testing.T) {
	f := newWastageFixture()
	materialID := uuid.New()
	actorID := uuid.New()
	f.seedStock(t, materialID, 1, "20", "10")
	f.seedStock(t, materialID, 5, "50", "12")

	record := f.submit(t, materialID, "30")
	_, err := f.service.Approve(context.Background(), f.tenantID, record.ID, actorID, "")
	require.NoError(t, err)
	// Realized: 20*10 + 10*12 = 320.

	outcome, err := f.service.Amend(context.Background(), f.tenantID, record.ID, decimal.RequireFromString("15"), "partially salvaged", actorID)
	require.NoError(t, err)
	require.True(t, outcome.Amended())
	// Unwinding 15 LIFO from the allocation: 10 at 12, then 5 at 10.
	assert.True(t, outcome.CostDelta.Equal(decimal.RequireFromString("-170")), "got %s", outcome.CostDelta)
	assert.True(t, outcome.Record.RealizedCost.Equal(decimal.RequireFromString("150")))

	summary, err := f.fixture.Batches.Summarize(context.Background(), f.tenantID, materialID)
	require.NoError(t, err)
	assert.True(t, summary.TotalQuantity.Equal(decimal.RequireFromString("55")))

	entries := f.fixture.Ledger.All()
	require.Len(t, entries, 2)
	assert.True(t, entries[1].Amount.Equal(decimal.RequireFromString("170")), "cost recovery is an inflow")
}

func TestWastageService_AmendRequiresJustification(t *testing.T) {
	f := newWastageFixture()
	materialID := uuid.New()
	f.seedStock(t, materialID, 1, "100", "10")

	record := f.submit(t, materialID, "30")
	_, err := f.service.Approve(context.Background(), f.tenantID, record.ID, uuid.New(), "")
	require.NoError(t, err)

	_, err = f.service.Amend(context.Background(), f.tenantID, record.ID, decimal.RequireFromString("40"), "", uuid.New())
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, shared.CodeValidation, domainErr.Code)
}

func TestWastageService_AmendPendingFails(t *testing.T) {
	f := newWastageFixture()
	materialID := uuid.New()
	f.seedStock(t, materialID, 1, "100", "10")

	record := f.submit(t, materialID, "30")

	_, err := f.service.Amend(context.Background(), f.tenantID, record.ID, decimal.RequireFromString("40"), "typo", uuid.New())
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, shared.CodeInvalidState, domainErr.Code)
}
