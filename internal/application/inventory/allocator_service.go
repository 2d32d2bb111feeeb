package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tradeops/backoffice/internal/domain/inventory"
	"github.com/tradeops/backoffice/internal/domain/shared"
)

// CreateBatchInput describes one receipt event (purchase completion or manual
// stock-in) that opens a new lot.
type CreateBatchInput struct {
	MaterialID    uuid.UUID
	SupplierID    *uuid.UUID
	BranchID      *uuid.UUID
	PurchaseDate  time.Time
	Quantity      decimal.Decimal
	UnitCost      decimal.Decimal
	ReferenceType inventory.ReferenceType
	ReferenceID   string
	ActorID       uuid.UUID
	Note          string
}

// AllocateInput describes one FIFO consumption request
type AllocateInput struct {
	MaterialID    uuid.UUID
	BranchID      *uuid.UUID
	Quantity      decimal.Decimal
	ReferenceType inventory.ReferenceType
	ReferenceID   string
	ActorID       uuid.UUID
	Note          string
}

// ReverseOutcome reports how many consumption movements a reversal unwound
type ReverseOutcome struct {
	ReversedCount    int             `json:"reversed_count"`
	RestoredQuantity decimal.Decimal `json:"restored_quantity"`
	RestoredCost     decimal.Decimal `json:"restored_cost"`
}

// AllocatorService is the FIFO costing engine. It owns every mutation of
// batch quantities: callers either go through its public operations, which
// each run in their own transaction scope, or through the *Within variants
// from inside a workflow's own scope so that allocation and workflow state
// commit together.
type AllocatorService struct {
	scope  TransactionScope
	logger *zap.Logger
}

// NewAllocatorService creates a new AllocatorService
func NewAllocatorService(scope TransactionScope, logger *zap.Logger) *AllocatorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AllocatorService{scope: scope, logger: logger}
}

// CreateBatch inserts a new lot and appends its receipt movement
func (s *AllocatorService) CreateBatch(ctx context.Context, tenantID uuid.UUID, input CreateBatchInput) (*inventory.Batch, error) {
	var created *inventory.Batch
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		batch, err := s.CreateBatchWithin(ctx, repos, tenantID, input)
		if err != nil {
			return err
		}
		created = batch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateBatchWithin is CreateBatch inside an existing transaction scope
func (s *AllocatorService) CreateBatchWithin(ctx context.Context, repos TransactionalRepositories, tenantID uuid.UUID, input CreateBatchInput) (*inventory.Batch, error) {
	batch, err := inventory.NewBatch(
		tenantID, input.MaterialID,
		input.SupplierID, input.BranchID,
		input.PurchaseDate,
		input.Quantity, input.UnitCost,
	)
	if err != nil {
		return nil, err
	}
	if err := repos.BatchRepo().Create(ctx, batch); err != nil {
		return nil, err
	}

	receipt, err := inventory.NewMovement(
		tenantID, batch.ID, batch.MaterialID,
		inventory.MovementTypeReceipt,
		input.Quantity, input.UnitCost,
		input.ReferenceType, input.ReferenceID,
		input.ActorID,
	)
	if err != nil {
		return nil, err
	}
	receipt.WithNote(input.Note).WithMovementDate(input.PurchaseDate)
	if err := repos.MovementRepo().Create(ctx, receipt); err != nil {
		return nil, err
	}

	s.logger.Info("batch created",
		zap.String("batch_id", batch.ID.String()),
		zap.String("material_id", batch.MaterialID.String()),
		zap.String("quantity", input.Quantity.String()),
		zap.String("unit_cost", input.UnitCost.String()),
	)
	return batch, nil
}

// Allocate consumes the requested quantity FIFO across the material's lots,
// writing one consumption movement per lot touched. The operation is
// all-or-nothing: on insufficient stock the returned result reports the
// shortfall and nothing has been written.
func (s *AllocatorService) Allocate(ctx context.Context, tenantID uuid.UUID, input AllocateInput) (*inventory.AllocationResult, error) {
	var result *inventory.AllocationResult
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		r, err := s.AllocateWithin(ctx, repos, tenantID, input)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AllocateWithin is Allocate inside an existing transaction scope. The
// eligible lots are fetched with their rows locked, so the quantities the
// plan is computed from cannot be consumed by a concurrent allocation before
// the movements commit.
func (s *AllocatorService) AllocateWithin(ctx context.Context, repos TransactionalRepositories, tenantID uuid.UUID, input AllocateInput) (*inventory.AllocationResult, error) {
	batches, err := repos.BatchRepo().FindEligibleForUpdate(ctx, tenantID, input.MaterialID, input.BranchID)
	if err != nil {
		return nil, err
	}

	result, err := inventory.PlanConsumption(batches, input.Quantity)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		s.logger.Info("allocation short",
			zap.String("material_id", input.MaterialID.String()),
			zap.String("requested", result.Requested.String()),
			zap.String("available", result.Available.String()),
			zap.String("shortfall", result.Shortfall.String()),
		)
		return result, nil
	}

	byID := make(map[uuid.UUID]*inventory.Batch, len(batches))
	for i := range batches {
		byID[batches[i].ID] = &batches[i]
	}

	touched := make([]*inventory.Batch, 0, len(result.Lines))
	movements := make([]*inventory.Movement, 0, len(result.Lines))
	for _, line := range result.Lines {
		batch, ok := byID[line.BatchID]
		if !ok {
			return nil, shared.NewConsistencyError("Planned batch disappeared from the locked set")
		}
		if err := batch.Apply(line.Quantity.Neg()); err != nil {
			return nil, err
		}
		touched = append(touched, batch)

		movement, err := inventory.NewMovement(
			tenantID, batch.ID, batch.MaterialID,
			inventory.MovementTypeConsumption,
			line.Quantity.Neg(), line.UnitCost,
			input.ReferenceType, input.ReferenceID,
			input.ActorID,
		)
		if err != nil {
			return nil, err
		}
		movements = append(movements, movement.WithNote(input.Note))
	}

	if err := repos.BatchRepo().SaveAll(ctx, touched); err != nil {
		return nil, err
	}
	if err := repos.MovementRepo().CreateAll(ctx, movements); err != nil {
		return nil, err
	}

	s.logger.Info("allocation applied",
		zap.String("material_id", input.MaterialID.String()),
		zap.String("reference", input.ReferenceType.String()+"/"+input.ReferenceID),
		zap.String("quantity", input.Quantity.String()),
		zap.String("total_cogs", result.TotalCOGS.String()),
		zap.Int("batches_used", result.BatchesUsed),
	)
	return result, nil
}

// Preview runs the identical read path and arithmetic as Allocate without
// writing anything; given the same batch state it returns numerically
// identical results.
func (s *AllocatorService) Preview(ctx context.Context, tenantID uuid.UUID, materialID uuid.UUID, branchID *uuid.UUID, quantity decimal.Decimal) (*inventory.AllocationResult, error) {
	var result *inventory.AllocationResult
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		batches, err := repos.BatchRepo().FindEligible(ctx, tenantID, materialID, branchID)
		if err != nil {
			return err
		}
		r, err := inventory.PlanConsumption(batches, quantity)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Reverse credits every outstanding consumption of a business reference back
// onto the exact lots it was taken from, then marks those consumptions
// reversed so a repeated call is a safe no-op. Stock never goes through a
// fresh FIFO pass here; re-deriving cost against the current lot mix would
// corrupt historical COGS.
func (s *AllocatorService) Reverse(ctx context.Context, tenantID uuid.UUID, referenceType inventory.ReferenceType, referenceID string, actorID uuid.UUID) (*ReverseOutcome, error) {
	var outcome *ReverseOutcome
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		o, err := s.ReverseWithin(ctx, repos, tenantID, referenceType, referenceID, actorID)
		if err != nil {
			return err
		}
		outcome = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// ReverseWithin is Reverse inside an existing transaction scope
func (s *AllocatorService) ReverseWithin(ctx context.Context, repos TransactionalRepositories, tenantID uuid.UUID, referenceType inventory.ReferenceType, referenceID string, actorID uuid.UUID) (*ReverseOutcome, error) {
	if actorID == uuid.Nil {
		return nil, shared.NewValidationError("Actor ID cannot be empty")
	}

	consumptions, err := repos.MovementRepo().FindOutstandingConsumptions(ctx, tenantID, referenceType, referenceID)
	if err != nil {
		return nil, err
	}
	if len(consumptions) == 0 {
		return &ReverseOutcome{ReversedCount: 0, RestoredQuantity: decimal.Zero, RestoredCost: decimal.Zero}, nil
	}

	batchIDs := make([]uuid.UUID, 0, len(consumptions))
	seen := make(map[uuid.UUID]bool, len(consumptions))
	for i := range consumptions {
		if !seen[consumptions[i].BatchID] {
			seen[consumptions[i].BatchID] = true
			batchIDs = append(batchIDs, consumptions[i].BatchID)
		}
	}
	batches, err := repos.BatchRepo().FindByIDsForUpdate(ctx, tenantID, batchIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*inventory.Batch, len(batches))
	for i := range batches {
		byID[batches[i].ID] = &batches[i]
	}

	restoredQty := decimal.Zero
	restoredCost := decimal.Zero
	reversedIDs := make([]uuid.UUID, 0, len(consumptions))
	reversals := make([]*inventory.Movement, 0, len(consumptions))
	touched := make([]*inventory.Batch, 0, len(batches))

	for i := range consumptions {
		m := &consumptions[i]
		batch, ok := byID[m.BatchID]
		if !ok {
			return nil, shared.NewConsistencyError("Consumption movement references a missing batch")
		}

		credit := m.Quantity.Abs()
		if err := batch.Apply(credit); err != nil {
			return nil, err
		}

		reversal, err := inventory.NewMovement(
			tenantID, batch.ID, batch.MaterialID,
			inventory.MovementTypeReversal,
			credit, m.UnitCost,
			referenceType, referenceID,
			actorID,
		)
		if err != nil {
			return nil, err
		}
		reversals = append(reversals, reversal)
		reversedIDs = append(reversedIDs, m.ID)
		restoredQty = restoredQty.Add(credit)
		restoredCost = restoredCost.Add(credit.Mul(m.UnitCost))
	}
	for _, batch := range byID {
		touched = append(touched, batch)
	}

	if err := repos.BatchRepo().SaveAll(ctx, touched); err != nil {
		return nil, err
	}
	if err := repos.MovementRepo().CreateAll(ctx, reversals); err != nil {
		return nil, err
	}
	if err := repos.MovementRepo().MarkReversed(ctx, reversedIDs, time.Now()); err != nil {
		return nil, err
	}

	s.logger.Info("reversal applied",
		zap.String("reference", referenceType.String()+"/"+referenceID),
		zap.Int("reversed_count", len(reversedIDs)),
		zap.String("restored_quantity", restoredQty.String()),
	)
	return &ReverseOutcome{
		ReversedCount:    len(reversedIDs),
		RestoredQuantity: restoredQty,
		RestoredCost:     restoredCost,
	}, nil
}

// ReducePortionWithin unwinds |reduceBy| worth of the most recently allocated
// portion of a reference, for downward amendments. Fully credited consumption
// movements are marked reversed; a partially credited one is superseded: the
// original is marked reversed and a replacement consumption for the remainder
// is appended, so a later full Reverse still nets out exactly.
func (s *AllocatorService) ReducePortionWithin(ctx context.Context, repos TransactionalRepositories, tenantID uuid.UUID, referenceType inventory.ReferenceType, referenceID string, reduceBy decimal.Decimal, actorID uuid.UUID, note string) (decimal.Decimal, error) {
	consumptions, err := repos.MovementRepo().FindOutstandingConsumptions(ctx, tenantID, referenceType, referenceID)
	if err != nil {
		return decimal.Zero, err
	}
	outstanding := make([]*inventory.Movement, len(consumptions))
	for i := range consumptions {
		outstanding[i] = &consumptions[i]
	}

	credits, err := inventory.PlanPartialReversal(outstanding, reduceBy)
	if err != nil {
		return decimal.Zero, err
	}

	batchIDs := make([]uuid.UUID, 0, len(credits))
	seen := make(map[uuid.UUID]bool, len(credits))
	for _, c := range credits {
		if !seen[c.Movement.BatchID] {
			seen[c.Movement.BatchID] = true
			batchIDs = append(batchIDs, c.Movement.BatchID)
		}
	}
	batches, err := repos.BatchRepo().FindByIDsForUpdate(ctx, tenantID, batchIDs)
	if err != nil {
		return decimal.Zero, err
	}
	byID := make(map[uuid.UUID]*inventory.Batch, len(batches))
	for i := range batches {
		byID[batches[i].ID] = &batches[i]
	}

	costDelta := decimal.Zero
	reversedIDs := make([]uuid.UUID, 0, len(credits))
	appended := make([]*inventory.Movement, 0, len(credits)*2)

	for _, c := range credits {
		batch, ok := byID[c.Movement.BatchID]
		if !ok {
			return decimal.Zero, shared.NewConsistencyError("Consumption movement references a missing batch")
		}
		if err := batch.Apply(c.Quantity); err != nil {
			return decimal.Zero, err
		}

		reversal, err := inventory.NewMovement(
			tenantID, batch.ID, batch.MaterialID,
			inventory.MovementTypeReversal,
			c.Quantity, c.Movement.UnitCost,
			referenceType, referenceID,
			actorID,
		)
		if err != nil {
			return decimal.Zero, err
		}
		appended = append(appended, reversal.WithNote(note))
		reversedIDs = append(reversedIDs, c.Movement.ID)
		costDelta = costDelta.Add(c.Cost)

		if !c.Full() {
			remainder := c.Movement.Quantity.Abs().Sub(c.Quantity)
			replacement, err := inventory.NewMovement(
				tenantID, batch.ID, batch.MaterialID,
				inventory.MovementTypeConsumption,
				remainder.Neg(), c.Movement.UnitCost,
				referenceType, referenceID,
				actorID,
			)
			if err != nil {
				return decimal.Zero, err
			}
			appended = append(appended, replacement.WithNote("supersedes partially reversed consumption"))
		}
	}

	touched := make([]*inventory.Batch, 0, len(byID))
	for _, batch := range byID {
		touched = append(touched, batch)
	}
	if err := repos.BatchRepo().SaveAll(ctx, touched); err != nil {
		return decimal.Zero, err
	}
	if err := repos.MovementRepo().CreateAll(ctx, appended); err != nil {
		return decimal.Zero, err
	}
	if err := repos.MovementRepo().MarkReversed(ctx, reversedIDs, time.Now()); err != nil {
		return decimal.Zero, err
	}

	return costDelta, nil
}

// GetBatchSummary aggregates the live lots of a material for reporting
func (s *AllocatorService) GetBatchSummary(ctx context.Context, tenantID, materialID uuid.UUID) (*inventory.BatchSummary, error) {
	var summary *inventory.BatchSummary
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		sm, err := repos.BatchRepo().Summarize(ctx, tenantID, materialID)
		if err != nil {
			return err
		}
		summary = sm
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}
