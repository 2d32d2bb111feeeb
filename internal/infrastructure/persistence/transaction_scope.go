package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	appinventory "github.com/tradeops/backoffice/internal/application/inventory"
	"github.com/tradeops/backoffice/internal/domain/expense"
	"github.com/tradeops/backoffice/internal/domain/finance"
	"github.com/tradeops/backoffice/internal/domain/inventory"
	"github.com/tradeops/backoffice/internal/domain/shared"
	"github.com/tradeops/backoffice/internal/domain/trade"
	"github.com/tradeops/backoffice/internal/domain/wastage"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// Every workflow body runs inside one database transaction bounded by a
// timeout; expiry rolls the whole body back and surfaces as a transaction
// timeout error.
type GormTransactionScope struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB, timeout time.Duration) *GormTransactionScope {
	return &GormTransactionScope{db: db, timeout: timeout}
}

// Execute runs the given function within a bounded database transaction.
// If the function returns an error or the deadline passes, the transaction
// is rolled back; otherwise it is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appinventory.TransactionalRepositories) error) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
	if err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		return shared.ErrTransactionTimeout
	}
	return err
}

// gormTransactionalRepositories provides access to all repositories within a transaction
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// BatchRepo returns the batch repository scoped to the current transaction
func (r *gormTransactionalRepositories) BatchRepo() inventory.BatchRepository {
	return NewGormBatchRepository(r.tx)
}

// MovementRepo returns the movement repository scoped to the current transaction
func (r *gormTransactionalRepositories) MovementRepo() inventory.MovementRepository {
	return NewGormMovementRepository(r.tx)
}

// WastageRepo returns the wastage repository scoped to the current transaction
func (r *gormTransactionalRepositories) WastageRepo() wastage.Repository {
	return NewGormWastageRepository(r.tx)
}

// ExpenseRepo returns the expense repository scoped to the current transaction
func (r *gormTransactionalRepositories) ExpenseRepo() expense.Repository {
	return NewGormExpenseRepository(r.tx)
}

// SalesOrderRepo returns the sales order line repository scoped to the current transaction
func (r *gormTransactionalRepositories) SalesOrderRepo() trade.SalesOrderLineRepository {
	return NewGormSalesOrderLineRepository(r.tx)
}

// LedgerRepo returns the ledger repository scoped to the current transaction
func (r *gormTransactionalRepositories) LedgerRepo() finance.LedgerRepository {
	return NewGormLedgerRepository(r.tx)
}

var _ appinventory.TransactionScope = (*GormTransactionScope)(nil)
var _ appinventory.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
