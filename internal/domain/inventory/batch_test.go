package inventory

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeops/backoffice/internal/domain/shared"
)

func newTestBatch(t *testing.T, qty, cost string, date time.Time) *Batch {
	t.Helper()
	b, err := NewBatch(
		uuid.New(), uuid.New(), nil, nil,
		date,
		decimal.RequireFromString(qty),
		decimal.RequireFromString(cost),
	)
	require.NoError(t, err)
	return b
}

func TestNewBatch(t *testing.T) {
	t.Run("creates lot with remaining equal to received", func(t *testing.T) {
		b := newTestBatch(t, "100", "10.5", time.Now())
		assert.True(t, b.RemainingQuantity.Equal(b.QuantityReceived))
		assert.False(t, b.Depleted)
		assert.True(t, b.HasStock())
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := NewBatch(uuid.New(), uuid.New(), nil, nil, time.Now(), decimal.Zero, decimal.NewFromInt(10))
		require.Error(t, err)
		domainErr := &shared.DomainError{}
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeValidation, domainErr.Code)
	})

	t.Run("rejects negative unit cost", func(t *testing.T) {
		_, err := NewBatch(uuid.New(), uuid.New(), nil, nil, time.Now(), decimal.NewFromInt(5), decimal.NewFromInt(-1))
		require.Error(t, err)
	})

	t.Run("allows zero unit cost", func(t *testing.T) {
		_, err := NewBatch(uuid.New(), uuid.New(), nil, nil, time.Now(), decimal.NewFromInt(5), decimal.Zero)
		require.NoError(t, err)
	})
}

func TestBatch_Apply(t *testing.T) {
	t.Run("consumption reduces remaining quantity", func(t *testing.T) {
		b := newTestBatch(t, "100", "10", time.Now())
		require.NoError(t, b.Apply(decimal.NewFromInt(-40)))
		assert.True(t, b.RemainingQuantity.Equal(decimal.NewFromInt(60)))
		assert.False(t, b.Depleted)
	})

	t.Run("rejects consumption below zero", func(t *testing.T) {
		b := newTestBatch(t, "100", "10", time.Now())
		err := b.Apply(decimal.NewFromInt(-101))
		require.Error(t, err)
		domainErr := &shared.DomainError{}
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.CodeConsistency, domainErr.Code)
		// no partial application
		assert.True(t, b.RemainingQuantity.Equal(decimal.NewFromInt(100)))
	})

	t.Run("rejects credit above received quantity", func(t *testing.T) {
		b := newTestBatch(t, "100", "10", time.Now())
		require.NoError(t, b.Apply(decimal.NewFromInt(-30)))
		err := b.Apply(decimal.NewFromInt(31))
		require.Error(t, err)
		assert.True(t, b.RemainingQuantity.Equal(decimal.NewFromInt(70)))
	})

	t.Run("sets depleted when remaining falls within epsilon", func(t *testing.T) {
		b := newTestBatch(t, "100", "10", time.Now())
		require.NoError(t, b.Apply(decimal.RequireFromString("-99.9995")))
		assert.True(t, b.Depleted)
		assert.False(t, b.HasStock())
	})

	t.Run("reversal clears the depleted flag", func(t *testing.T) {
		b := newTestBatch(t, "50", "12", time.Now())
		require.NoError(t, b.Apply(decimal.NewFromInt(-50)))
		require.True(t, b.Depleted)

		require.NoError(t, b.Apply(decimal.NewFromInt(50)))
		assert.False(t, b.Depleted)
		assert.True(t, b.RemainingQuantity.Equal(decimal.NewFromInt(50)))
	})
}

func TestBatch_Value(t *testing.T) {
	b := newTestBatch(t, "30", "12.5", time.Now())
	assert.True(t, b.Value().Equal(decimal.RequireFromString("375")))
}
