package inventory

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// fifoFixture returns B1(Jan-1, 100 @ 10) and B2(Jan-5, 50 @ 12) in FIFO order
func fifoFixture(t *testing.T) []Batch {
	t.Helper()
	b1 := newTestBatch(t, "100", "10", date("2024-01-01"))
	b2 := newTestBatch(t, "50", "12", date("2024-01-05"))
	return []Batch{*b1, *b2}
}

func TestPlanConsumption_FIFOOrder(t *testing.T) {
	batches := fifoFixture(t)

	result, err := PlanConsumption(batches, decimal.NewFromInt(120))
	require.NoError(t, err)
	require.True(t, result.Success)

	// all of B1 before any of B2
	require.Len(t, result.Lines, 2)
	assert.Equal(t, batches[0].ID, result.Lines[0].BatchID)
	assert.True(t, result.Lines[0].Quantity.Equal(decimal.NewFromInt(100)))
	assert.True(t, result.Lines[0].Depletes)
	assert.Equal(t, batches[1].ID, result.Lines[1].BatchID)
	assert.True(t, result.Lines[1].Quantity.Equal(decimal.NewFromInt(20)))
	assert.False(t, result.Lines[1].Depletes)

	// exact per-lot costing: 100×10 + 20×12 = 1240
	assert.True(t, result.TotalCOGS.Equal(decimal.NewFromInt(1240)), "got %s", result.TotalCOGS)
	assert.Equal(t, 2, result.BatchesUsed)
}

func TestPlanConsumption_AllOrNothing(t *testing.T) {
	batches := fifoFixture(t) // 150 total

	result, err := PlanConsumption(batches, decimal.NewFromInt(200))
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.True(t, result.Shortfall.Equal(decimal.NewFromInt(50)))
	assert.True(t, result.Available.Equal(decimal.NewFromInt(150)))
	assert.Empty(t, result.Lines)
	assert.True(t, result.TotalCOGS.IsZero())
}

func TestPlanConsumption_SingleBatch(t *testing.T) {
	batches := fifoFixture(t)

	result, err := PlanConsumption(batches, decimal.NewFromInt(40))
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Len(t, result.Lines, 1)
	assert.Equal(t, batches[0].ID, result.Lines[0].BatchID)
	assert.True(t, result.TotalCOGS.Equal(decimal.NewFromInt(400)))
}

func TestPlanConsumption_SkipsDepletedBatches(t *testing.T) {
	batches := fifoFixture(t)
	require.NoError(t, batches[0].Apply(decimal.NewFromInt(-100)))
	require.True(t, batches[0].Depleted)

	result, err := PlanConsumption(batches, decimal.NewFromInt(30))
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Len(t, result.Lines, 1)
	assert.Equal(t, batches[1].ID, result.Lines[0].BatchID)
	assert.True(t, result.TotalCOGS.Equal(decimal.NewFromInt(360)))
}

func TestPlanConsumption_RejectsNonPositiveQuantity(t *testing.T) {
	_, err := PlanConsumption(fifoFixture(t), decimal.Zero)
	require.Error(t, err)
	_, err = PlanConsumption(fifoFixture(t), decimal.NewFromInt(-5))
	require.Error(t, err)
}

func TestPlanConsumption_Deterministic(t *testing.T) {
	// identical batch state yields an identical plan
	first, err := PlanConsumption(fifoFixture(t), decimal.RequireFromString("123.45"))
	require.NoError(t, err)
	second, err := PlanConsumption(fifoFixture(t), decimal.RequireFromString("123.45"))
	require.NoError(t, err)

	assert.True(t, first.TotalCOGS.Equal(second.TotalCOGS))
	require.Equal(t, len(first.Lines), len(second.Lines))
	for i := range first.Lines {
		assert.True(t, first.Lines[i].Quantity.Equal(second.Lines[i].Quantity))
		assert.True(t, first.Lines[i].Cost.Equal(second.Lines[i].Cost))
	}
}

func newConsumptionMovement(t *testing.T, batchID uuid.UUID, qty, cost string) *Movement {
	t.Helper()
	m, err := NewMovement(
		uuid.New(), batchID, uuid.New(),
		MovementTypeConsumption,
		decimal.RequireFromString(qty).Neg(),
		decimal.RequireFromString(cost),
		ReferenceTypeWastage, "W-1", uuid.New(),
	)
	require.NoError(t, err)
	return m
}

func TestPlanPartialReversal(t *testing.T) {
	t.Run("unwinds newest movement first", func(t *testing.T) {
		older := newConsumptionMovement(t, uuid.New(), "100", "10")
		newer := newConsumptionMovement(t, uuid.New(), "20", "12")

		// newest-first input
		credits, err := PlanPartialReversal([]*Movement{newer, older}, decimal.NewFromInt(30))
		require.NoError(t, err)
		require.Len(t, credits, 2)

		assert.Equal(t, newer.ID, credits[0].Movement.ID)
		assert.True(t, credits[0].Quantity.Equal(decimal.NewFromInt(20)))
		assert.True(t, credits[0].Full())
		assert.True(t, credits[0].Cost.Equal(decimal.NewFromInt(240)))

		assert.Equal(t, older.ID, credits[1].Movement.ID)
		assert.True(t, credits[1].Quantity.Equal(decimal.NewFromInt(10)))
		assert.False(t, credits[1].Full())
		assert.True(t, credits[1].Cost.Equal(decimal.NewFromInt(100)))
	})

	t.Run("skips reversed movements", func(t *testing.T) {
		m1 := newConsumptionMovement(t, uuid.New(), "50", "10")
		m2 := newConsumptionMovement(t, uuid.New(), "50", "10")
		m2.MarkReversed(time.Now())

		credits, err := PlanPartialReversal([]*Movement{m2, m1}, decimal.NewFromInt(40))
		require.NoError(t, err)
		require.Len(t, credits, 1)
		assert.Equal(t, m1.ID, credits[0].Movement.ID)
	})

	t.Run("fails when movements cannot cover the reduction", func(t *testing.T) {
		m := newConsumptionMovement(t, uuid.New(), "10", "10")
		_, err := PlanPartialReversal([]*Movement{m}, decimal.NewFromInt(25))
		require.Error(t, err)
	})
}

func TestNewMovement_SignDiscipline(t *testing.T) {
	batchID, materialID, actor := uuid.New(), uuid.New(), uuid.New()

	_, err := NewMovement(uuid.New(), batchID, materialID, MovementTypeReceipt,
		decimal.NewFromInt(-5), decimal.NewFromInt(10), ReferenceTypeStockIn, "SI-1", actor)
	require.Error(t, err, "receipt must be positive")

	_, err = NewMovement(uuid.New(), batchID, materialID, MovementTypeConsumption,
		decimal.NewFromInt(5), decimal.NewFromInt(10), ReferenceTypeSalesOrder, "SO-1", actor)
	require.Error(t, err, "consumption must be negative")

	m, err := NewMovement(uuid.New(), batchID, materialID, MovementTypeReversal,
		decimal.NewFromInt(5), decimal.NewFromInt(10), ReferenceTypeSalesOrder, "SO-1", actor)
	require.NoError(t, err)
	assert.True(t, m.Cost().Equal(decimal.NewFromInt(50)))
}
