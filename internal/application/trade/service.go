package trade

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appinventory "github.com/tradeops/backoffice/internal/application/inventory"
	"github.com/tradeops/backoffice/internal/domain/finance"
	"github.com/tradeops/backoffice/internal/domain/inventory"
	"github.com/tradeops/backoffice/internal/domain/shared"
	"github.com/tradeops/backoffice/internal/domain/trade"
)

// CreateLineInput describes one confirmed sales order line
type CreateLineInput struct {
	OrderNumber string
	MaterialID  uuid.UUID
	BranchID    *uuid.UUID
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// DeliverOutcome carries the delivered line with the allocation that priced
// it. On insufficient stock the line stays confirmed and Allocation reports
// the shortfall.
type DeliverOutcome struct {
	Line       *trade.SalesOrderLine
	Allocation *inventory.AllocationResult
}

// Delivered reports whether the delivery went through
func (o *DeliverOutcome) Delivered() bool {
	return o.Allocation != nil && o.Allocation.Success
}

// Service orchestrates sales order line delivery and cancellation. Delivery
// consumes stock FIFO and books the COGS; cancellation returns the stock to
// the exact lots it came from and books the compensating entry.
type Service struct {
	scope     appinventory.TransactionScope
	allocator *appinventory.AllocatorService
	logger    *zap.Logger
}

// NewService creates a trade workflow service
func NewService(scope appinventory.TransactionScope, allocator *appinventory.AllocatorService, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{scope: scope, allocator: allocator, logger: logger}
}

// CreateLine records a confirmed sales order line
func (s *Service) CreateLine(ctx context.Context, tenantID uuid.UUID, input CreateLineInput) (*trade.SalesOrderLine, error) {
	line, err := trade.NewSalesOrderLine(
		tenantID, input.OrderNumber, input.MaterialID,
		input.BranchID, input.Quantity, input.UnitPrice,
	)
	if err != nil {
		return nil, err
	}
	err = s.scope.Execute(ctx, func(repos appinventory.TransactionalRepositories) error {
		return repos.SalesOrderRepo().Create(ctx, line)
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// Deliver consumes the line's quantity FIFO, snapshots the exact COGS on the
// line, and books it to the ledger. Status, movements, and the ledger entry
// commit as one unit; a shortfall leaves the line confirmed and writes
// nothing.
func (s *Service) Deliver(ctx context.Context, tenantID, lineID, actorID uuid.UUID) (*DeliverOutcome, error) {
	var outcome *DeliverOutcome
	err := s.scope.Execute(ctx, func(repos appinventory.TransactionalRepositories) error {
		line, err := repos.SalesOrderRepo().FindByIDForTenant(ctx, tenantID, lineID)
		if err != nil {
			return err
		}
		if line.Status != trade.StatusConfirmed {
			return shared.NewInvalidStateError("Cannot deliver order line in " + line.Status.String() + " status")
		}

		allocation, err := s.allocator.AllocateWithin(ctx, repos, tenantID, appinventory.AllocateInput{
			MaterialID:    line.MaterialID,
			BranchID:      line.BranchID,
			Quantity:      line.Quantity,
			ReferenceType: inventory.ReferenceTypeSalesOrder,
			ReferenceID:   line.ID.String(),
			ActorID:       actorID,
			Note:          line.OrderNumber,
		})
		if err != nil {
			return err
		}
		if !allocation.Success {
			s.logger.Warn("delivery short on stock",
				zap.String("line_id", line.ID.String()),
				zap.String("order_number", line.OrderNumber),
				zap.String("shortfall", allocation.Shortfall.String()),
			)
			outcome = &DeliverOutcome{Line: line, Allocation: allocation}
			return nil
		}

		if err := line.Deliver(allocation.TotalCOGS); err != nil {
			return err
		}
		if err := repos.SalesOrderRepo().Save(ctx, line); err != nil {
			return err
		}

		entry, err := finance.NewLedgerEntry(
			tenantID, finance.EntryTypeSalesCOGS,
			allocation.TotalCOGS.Neg(),
			string(inventory.ReferenceTypeSalesOrder), line.ID.String(),
			actorID,
		)
		if err != nil {
			return err
		}
		if err := repos.LedgerRepo().Create(ctx, entry.WithNote(line.OrderNumber)); err != nil {
			return err
		}

		s.logger.Info("order line delivered",
			zap.String("line_id", line.ID.String()),
			zap.String("order_number", line.OrderNumber),
			zap.String("cogs", allocation.TotalCOGS.String()),
		)
		outcome = &DeliverOutcome{Line: line, Allocation: allocation}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// OrderLines returns every line of one order
func (s *Service) OrderLines(ctx context.Context, tenantID uuid.UUID, orderNumber string) ([]trade.SalesOrderLine, error) {
	var lines []trade.SalesOrderLine
	err := s.scope.Execute(ctx, func(repos appinventory.TransactionalRepositories) error {
		var err error
		lines, err = repos.SalesOrderRepo().FindByOrderNumber(ctx, tenantID, orderNumber)
		return err
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// Cancel voids a delivered line: every consumption is credited back onto the
// lot it originally came from, the COGS is reversed in the ledger, and the
// line moves to cancelled, all in one transaction.
func (s *Service) Cancel(ctx context.Context, tenantID, lineID, actorID uuid.UUID, reason string) (*trade.SalesOrderLine, error) {
	var line *trade.SalesOrderLine
	err := s.scope.Execute(ctx, func(repos appinventory.TransactionalRepositories) error {
		found, err := repos.SalesOrderRepo().FindByIDForTenant(ctx, tenantID, lineID)
		if err != nil {
			return err
		}
		if err := found.Cancel(reason); err != nil {
			return err
		}

		reversed, err := s.allocator.ReverseWithin(ctx, repos, tenantID, inventory.ReferenceTypeSalesOrder, found.ID.String(), actorID)
		if err != nil {
			return err
		}
		if reversed.RestoredCost.IsPositive() {
			entry, err := finance.NewLedgerEntry(
				tenantID, finance.EntryTypeCOGSReversal,
				reversed.RestoredCost,
				string(inventory.ReferenceTypeSalesOrder), found.ID.String(),
				actorID,
			)
			if err != nil {
				return err
			}
			if err := repos.LedgerRepo().Create(ctx, entry.WithNote(reason)); err != nil {
				return err
			}
		}

		if err := repos.SalesOrderRepo().Save(ctx, found); err != nil {
			return err
		}

		s.logger.Info("order line cancelled",
			zap.String("line_id", found.ID.String()),
			zap.Int("reversed_count", reversed.ReversedCount),
			zap.String("restored_cost", reversed.RestoredCost.String()),
		)
		line = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}
