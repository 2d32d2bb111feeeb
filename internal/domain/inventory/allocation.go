package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradeops/backoffice/internal/domain/shared"
)

// AllocationLine is one (batch, quantity taken) tuple of a FIFO consumption.
// Cost is always the exact product of the taken quantity and the lot's own
// unit cost, never an average.
type AllocationLine struct {
	BatchID      uuid.UUID       `json:"batch_id"`
	PurchaseDate time.Time       `json:"purchase_date"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	Cost         decimal.Decimal `json:"cost"`
	Depletes     bool            `json:"depletes"` // batch crosses the depletion threshold
}

// AllocationResult is the immutable outcome of one FIFO consumption request.
// Insufficient stock is carried as data (Success=false plus shortfall detail),
// not as an error: it is an expected business outcome, and by contract no
// mutation has been applied when it occurs.
type AllocationResult struct {
	Success     bool             `json:"success"`
	Requested   decimal.Decimal  `json:"requested"`
	Available   decimal.Decimal  `json:"available"`
	Shortfall   decimal.Decimal  `json:"shortfall"`
	TotalCOGS   decimal.Decimal  `json:"total_cogs"`
	BatchesUsed int              `json:"batches_used"`
	Lines       []AllocationLine `json:"lines"`
}

// PlanConsumption walks the given batches in order and plans a FIFO
// consumption of the requested quantity. The caller supplies batches already
// ordered oldest-first; this function never reorders them, so the repository
// query defines the consumption order.
//
// The plan is all-or-nothing: if the batches cannot jointly satisfy the
// request, the result reports the shortfall and carries no lines, and the
// caller must not apply anything.
func PlanConsumption(batches []Batch, requested decimal.Decimal) (*AllocationResult, error) {
	if requested.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("Requested quantity must be positive")
	}

	available := decimal.Zero
	for i := range batches {
		if batches[i].HasStock() {
			available = available.Add(batches[i].RemainingQuantity)
		}
	}

	if available.LessThan(requested) {
		return &AllocationResult{
			Success:   false,
			Requested: requested,
			Available: available,
			Shortfall: requested.Sub(available),
			TotalCOGS: decimal.Zero,
			Lines:     nil,
		}, nil
	}

	lines := make([]AllocationLine, 0, len(batches))
	remaining := requested
	totalCOGS := decimal.Zero

	for i := range batches {
		if remaining.IsZero() {
			break
		}
		b := &batches[i]
		if !b.HasStock() {
			continue
		}

		take := decimal.Min(remaining, b.RemainingQuantity)
		cost := take.Mul(b.UnitCost)
		leftInBatch := b.RemainingQuantity.Sub(take)

		lines = append(lines, AllocationLine{
			BatchID:      b.ID,
			PurchaseDate: b.PurchaseDate,
			Quantity:     take,
			UnitCost:     b.UnitCost,
			Cost:         cost,
			Depletes:     leftInBatch.LessThanOrEqual(DepletionEpsilon),
		})

		totalCOGS = totalCOGS.Add(cost)
		remaining = remaining.Sub(take)
	}

	return &AllocationResult{
		Success:     true,
		Requested:   requested,
		Available:   available,
		Shortfall:   decimal.Zero,
		TotalCOGS:   totalCOGS,
		BatchesUsed: len(lines),
		Lines:       lines,
	}, nil
}

// ReversalCredit is one planned credit of previously consumed quantity back
// onto the batch it originally came from.
type ReversalCredit struct {
	Movement *Movement       // the consumption movement being unwound
	Quantity decimal.Decimal // how much of it to credit back (≤ its magnitude)
	Cost     decimal.Decimal // quantity × the movement's recorded unit cost
}

// Full reports whether the credit unwinds the whole movement
func (c ReversalCredit) Full() bool {
	return c.Quantity.Equal(c.Movement.Quantity.Abs())
}

// PlanPartialReversal plans the unwinding of the most recently allocated
// portion of a consumption, used for downward amendments. Movements are
// walked newest-first (LIFO over the original allocation) and credited back
// until the requested reduction is reached. Stock always returns to the batch
// it was consumed from; re-running FIFO selection here would corrupt the
// historical cost basis.
//
// The caller supplies the outstanding (unreversed) consumption movements for
// one reference, ordered newest-first. An error is returned if the movements
// cannot cover the reduction, since that means the caller's recorded quantity
// and the ledger disagree.
func PlanPartialReversal(movements []*Movement, reduceBy decimal.Decimal) ([]ReversalCredit, error) {
	if reduceBy.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("Reduction quantity must be positive")
	}

	credits := make([]ReversalCredit, 0, len(movements))
	remaining := reduceBy

	for _, m := range movements {
		if remaining.IsZero() {
			break
		}
		if m.MovementType != MovementTypeConsumption || m.Reversed {
			continue
		}

		magnitude := m.Quantity.Abs()
		credit := decimal.Min(remaining, magnitude)
		credits = append(credits, ReversalCredit{
			Movement: m,
			Quantity: credit,
			Cost:     credit.Mul(m.UnitCost),
		})
		remaining = remaining.Sub(credit)
	}

	if remaining.GreaterThan(decimal.Zero) {
		return nil, shared.NewConsistencyError("Outstanding consumption movements do not cover the requested reduction")
	}
	return credits, nil
}
