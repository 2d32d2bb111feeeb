package wastage

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appinventory "github.com/tradeops/backoffice/internal/application/inventory"
	"github.com/tradeops/backoffice/internal/domain/finance"
	"github.com/tradeops/backoffice/internal/domain/inventory"
	"github.com/tradeops/backoffice/internal/domain/shared"
	"github.com/tradeops/backoffice/internal/domain/wastage"
)

// SubmitInput describes a wastage report raised by branch staff
type SubmitInput struct {
	MaterialID  uuid.UUID
	BranchID    *uuid.UUID
	Quantity    decimal.Decimal
	Reason      string
	SubmittedBy uuid.UUID
}

// ApproveOutcome carries the approved record together with the allocation
// that realized its cost. When the allocation came up short the record is
// unchanged (still pending) and Allocation reports the shortfall.
type ApproveOutcome struct {
	Record     *wastage.Record
	Allocation *inventory.AllocationResult
}

// Approved reports whether the approval went through
func (o *ApproveOutcome) Approved() bool {
	return o.Allocation != nil && o.Allocation.Success
}

// AmendOutcome carries the amended record; on an upward amendment that the
// stock could not cover, Allocation reports the shortfall and the record is
// unchanged.
type AmendOutcome struct {
	Record     *wastage.Record
	Allocation *inventory.AllocationResult
	CostDelta  decimal.Decimal
}

// Amended reports whether the amendment went through
func (o *AmendOutcome) Amended() bool {
	return o.Allocation == nil || o.Allocation.Success
}

// Service orchestrates the wastage approval workflow. Approval consumes the
// wasted stock FIFO, replaces the submission-time cost estimate with the
// realized COGS, and books the outflow to the ledger, all in one transaction.
type Service struct {
	scope     appinventory.TransactionScope
	allocator *appinventory.AllocatorService
	logger    *zap.Logger
}

// NewService creates a wastage workflow service
func NewService(scope appinventory.TransactionScope, allocator *appinventory.AllocatorService, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{scope: scope, allocator: allocator, logger: logger}
}

// Submit records a pending wastage report. The cost on the record is an
// estimate from the material's current average cost; the exact figure is only
// known at approval time, when specific lots are consumed.
func (s *Service) Submit(ctx context.Context, tenantID uuid.UUID, input SubmitInput) (*wastage.Record, error) {
	var record *wastage.Record
	err := s.scope.Execute(ctx, func(repos appinventory.TransactionalRepositories) error {
		summary, err := repos.BatchRepo().Summarize(ctx, tenantID, input.MaterialID)
		if err != nil {
			return err
		}
		estimated := summary.AverageCost.Mul(input.Quantity)

		record, err = wastage.NewRecord(
			tenantID, input.MaterialID, input.BranchID,
			input.Quantity, estimated,
			input.Reason, input.SubmittedBy,
		)
		if err != nil {
			return err
		}
		return repos.WastageRepo().Create(ctx, record)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("wastage submitted",
		zap.String("record_id", record.ID.String()),
		zap.String("material_id", input.MaterialID.String()),
		zap.String("quantity", input.Quantity.String()),
	)
	return record, nil
}

// Approve consumes the wasted quantity FIFO and finalizes the record. The
// status update, the stock movements, and the ledger entry commit as one
// unit. Insufficient stock is a reported outcome, not an error: the record
// stays pending and nothing is written.
func (s *Service) Approve(ctx context.Context, tenantID, recordID, approverID uuid.UUID, note string) (*ApproveOutcome, error) {
	var outcome *ApproveOutcome
	err := s.scope.Execute(ctx, func(repos appinventory.TransactionalRepositories) error {
		record, err := repos.WastageRepo().FindByIDForTenant(ctx, tenantID, recordID)
		if err != nil {
			return err
		}
		if record.Status.IsTerminal() {
			return shared.NewInvalidStateError("Cannot approve wastage in " + record.Status.String() + " status")
		}

		allocation, err := s.allocator.AllocateWithin(ctx, repos, tenantID, appinventory.AllocateInput{
			MaterialID:    record.MaterialID,
			BranchID:      record.BranchID,
			Quantity:      record.Quantity,
			ReferenceType: inventory.ReferenceTypeWastage,
			ReferenceID:   record.ID.String(),
			ActorID:       approverID,
			Note:          record.Reason,
		})
		if err != nil {
			return err
		}
		if !allocation.Success {
			s.logger.Warn("wastage approval short on stock",
				zap.String("record_id", record.ID.String()),
				zap.String("shortfall", allocation.Shortfall.String()),
			)
			outcome = &ApproveOutcome{Record: record, Allocation: allocation}
			return nil
		}

		if err := record.Approve(approverID, note, allocation.TotalCOGS); err != nil {
			return err
		}
		if err := repos.WastageRepo().Save(ctx, record); err != nil {
			return err
		}

		entry, err := finance.NewLedgerEntry(
			tenantID, finance.EntryTypeWastageCost,
			allocation.TotalCOGS.Neg(),
			string(inventory.ReferenceTypeWastage), record.ID.String(),
			approverID,
		)
		if err != nil {
			return err
		}
		if err := repos.LedgerRepo().Create(ctx, entry.WithNote(record.Reason)); err != nil {
			return err
		}

		s.logger.Info("wastage approved",
			zap.String("record_id", record.ID.String()),
			zap.String("realized_cost", allocation.TotalCOGS.String()),
			zap.Int("batches_used", allocation.BatchesUsed),
		)
		outcome = &ApproveOutcome{Record: record, Allocation: allocation}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// Reject finalizes the record without any stock or financial side effects
func (s *Service) Reject(ctx context.Context, tenantID, recordID, approverID uuid.UUID, reason string) (*wastage.Record, error) {
	var record *wastage.Record
	err := s.scope.Execute(ctx, func(repos appinventory.TransactionalRepositories) error {
		found, err := repos.WastageRepo().FindByIDForTenant(ctx, tenantID, recordID)
		if err != nil {
			return err
		}
		if err := found.Reject(approverID, reason); err != nil {
			return err
		}
		if err := repos.WastageRepo().Save(ctx, found); err != nil {
			return err
		}
		record = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("wastage rejected", zap.String("record_id", record.ID.String()))
	return record, nil
}

// ListByStatus returns the tenant's wastage records in the given status
func (s *Service) ListByStatus(ctx context.Context, tenantID uuid.UUID, status wastage.Status, filter shared.Filter) ([]wastage.Record, error) {
	var records []wastage.Record
	err := s.scope.Execute(ctx, func(repos appinventory.TransactionalRepositories) error {
		var err error
		records, err = repos.WastageRepo().FindByStatus(ctx, tenantID, status, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Amend changes the quantity of an approved record. An increase allocates
// just the incremental amount with a fresh FIFO pass; a decrease unwinds the
// most recently allocated portion back onto its original lots. The record's
// realized cost moves by exactly the delta's cost, and the difference is
// booked as a signed adjustment entry.
func (s *Service) Amend(ctx context.Context, tenantID, recordID uuid.UUID, newQuantity decimal.Decimal, justification string, actorID uuid.UUID) (*AmendOutcome, error) {
	if newQuantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("Amended quantity must be positive")
	}
	if justification == "" {
		return nil, shared.NewValidationError("Amendment justification is required")
	}

	var outcome *AmendOutcome
	err := s.scope.Execute(ctx, func(repos appinventory.TransactionalRepositories) error {
		record, err := repos.WastageRepo().FindByIDForTenant(ctx, tenantID, recordID)
		if err != nil {
			return err
		}
		if record.Status != wastage.StatusApproved {
			return shared.NewInvalidStateError("Cannot amend wastage in " + record.Status.String() + " status")
		}

		delta := newQuantity.Sub(record.Quantity)
		if delta.IsZero() {
			return shared.NewValidationError("Amended quantity equals the current quantity")
		}

		var costDelta decimal.Decimal
		var allocation *inventory.AllocationResult
		if delta.IsPositive() {
			allocation, err = s.allocator.AllocateWithin(ctx, repos, tenantID, appinventory.AllocateInput{
				MaterialID:    record.MaterialID,
				BranchID:      record.BranchID,
				Quantity:      delta,
				ReferenceType: inventory.ReferenceTypeWastage,
				ReferenceID:   record.ID.String(),
				ActorID:       actorID,
				Note:          justification,
			})
			if err != nil {
				return err
			}
			if !allocation.Success {
				outcome = &AmendOutcome{Record: record, Allocation: allocation}
				return nil
			}
			costDelta = allocation.TotalCOGS
		} else {
			returned, err := s.allocator.ReducePortionWithin(ctx, repos, tenantID, inventory.ReferenceTypeWastage, record.ID.String(), delta.Abs(), actorID, justification)
			if err != nil {
				return err
			}
			costDelta = returned.Neg()
		}

		if err := record.AmendQuantity(newQuantity, costDelta, justification); err != nil {
			return err
		}
		if err := repos.WastageRepo().Save(ctx, record); err != nil {
			return err
		}

		entry, err := finance.NewLedgerEntry(
			tenantID, finance.EntryTypeWastageAdjustment,
			costDelta.Neg(),
			string(inventory.ReferenceTypeWastage), record.ID.String(),
			actorID,
		)
		if err != nil {
			return err
		}
		if err := repos.LedgerRepo().Create(ctx, entry.WithNote(justification)); err != nil {
			return err
		}

		s.logger.Info("wastage amended",
			zap.String("record_id", record.ID.String()),
			zap.String("new_quantity", newQuantity.String()),
			zap.String("cost_delta", costDelta.String()),
		)
		outcome = &AmendOutcome{Record: record, Allocation: allocation, CostDelta: costDelta}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}
