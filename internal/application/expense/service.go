package expense

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appinventory "github.com/tradeops/backoffice/internal/application/inventory"
	"github.com/tradeops/backoffice/internal/domain/expense"
	"github.com/tradeops/backoffice/internal/domain/finance"
	"github.com/tradeops/backoffice/internal/domain/shared"
)

// ReferenceType tags ledger entries booked by the expense workflow
const ReferenceType = "expense"

// SubmitInput describes a petty-cash expense raised by branch staff
type SubmitInput struct {
	Category    string
	Description string
	Amount      decimal.Decimal
	BranchID    *uuid.UUID
	SubmittedBy uuid.UUID
}

// Service orchestrates the petty-cash expense workflow. Expenses never touch
// stock; approval is a status update plus one ledger outflow, committed
// together.
type Service struct {
	scope  appinventory.TransactionScope
	logger *zap.Logger
}

// NewService creates an expense workflow service
func NewService(scope appinventory.TransactionScope, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{scope: scope, logger: logger}
}

// Submit records a pending expense
func (s *Service) Submit(ctx context.Context, tenantID uuid.UUID, input SubmitInput) (*expense.Record, error) {
	record, err := expense.NewRecord(
		tenantID, input.Category, input.Description,
		input.Amount, input.BranchID, input.SubmittedBy,
	)
	if err != nil {
		return nil, err
	}
	err = s.scope.Execute(ctx, func(repos appinventory.TransactionalRepositories) error {
		return repos.ExpenseRepo().Create(ctx, record)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("expense submitted",
		zap.String("record_id", record.ID.String()),
		zap.String("category", record.Category),
		zap.String("amount", record.Amount.String()),
	)
	return record, nil
}

// Approve finalizes the expense and books its outflow
func (s *Service) Approve(ctx context.Context, tenantID, recordID, approverID uuid.UUID, note string) (*expense.Record, error) {
	var record *expense.Record
	err := s.scope.Execute(ctx, func(repos appinventory.TransactionalRepositories) error {
		found, err := repos.ExpenseRepo().FindByIDForTenant(ctx, tenantID, recordID)
		if err != nil {
			return err
		}
		if err := found.Approve(approverID, note); err != nil {
			return err
		}
		if err := repos.ExpenseRepo().Save(ctx, found); err != nil {
			return err
		}

		entry, err := finance.NewLedgerEntry(
			tenantID, finance.EntryTypeExpense,
			found.Amount.Neg(),
			ReferenceType, found.ID.String(),
			approverID,
		)
		if err != nil {
			return err
		}
		if err := repos.LedgerRepo().Create(ctx, entry.WithNote(found.Description)); err != nil {
			return err
		}
		record = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("expense approved",
		zap.String("record_id", record.ID.String()),
		zap.String("amount", record.Amount.String()),
	)
	return record, nil
}

// ListByStatus returns the tenant's expense records in the given status
func (s *Service) ListByStatus(ctx context.Context, tenantID uuid.UUID, status expense.Status, filter shared.Filter) ([]expense.Record, error) {
	var records []expense.Record
	err := s.scope.Execute(ctx, func(repos appinventory.TransactionalRepositories) error {
		var err error
		records, err = repos.ExpenseRepo().FindByStatus(ctx, tenantID, status, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Reject finalizes the expense with no financial side effects
func (s *Service) Reject(ctx context.Context, tenantID, recordID, approverID uuid.UUID, reason string) (*expense.Record, error) {
	var record *expense.Record
	err := s.scope.Execute(ctx, func(repos appinventory.TransactionalRepositories) error {
		found, err := repos.ExpenseRepo().FindByIDForTenant(ctx, tenantID, recordID)
		if err != nil {
			return err
		}
		if err := found.Reject(approverID, reason); err != nil {
			return err
		}
		if err := repos.ExpenseRepo().Save(ctx, found); err != nil {
			return err
		}
		record = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("expense rejected", zap.String("record_id", record.ID.String()))
	return record, nil
}
