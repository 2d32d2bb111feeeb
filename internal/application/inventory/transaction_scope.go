package inventory

import (
	"context"

	"github.com/tradeops/backoffice/internal/domain/expense"
	"github.com/tradeops/backoffice/internal/domain/finance"
	"github.com/tradeops/backoffice/internal/domain/inventory"
	"github.com/tradeops/backoffice/internal/domain/trade"
	"github.com/tradeops/backoffice/internal/domain/wastage"
)

// TransactionScope executes a workflow body as one all-or-nothing unit of
// work. Every repository operation performed through the provided
// TransactionalRepositories joins the same database transaction; if the
// function returns an error the transaction rolls back, otherwise it commits.
// The concrete implementation bounds the whole body with a timeout and maps
// its expiry to shared.ErrTransactionTimeout.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to every repository the workflows
// touch, all scoped to one shared database transaction. Batch quantities are
// only ever mutated through the allocation engine inside such a scope.
type TransactionalRepositories interface {
	// BatchRepo returns the batch repository scoped to the current transaction
	BatchRepo() inventory.BatchRepository
	// MovementRepo returns the movement log scoped to the current transaction
	MovementRepo() inventory.MovementRepository
	// WastageRepo returns the wastage repository scoped to the current transaction
	WastageRepo() wastage.Repository
	// ExpenseRepo returns the expense repository scoped to the current transaction
	ExpenseRepo() expense.Repository
	// SalesOrderRepo returns the sales order line repository scoped to the current transaction
	SalesOrderRepo() trade.SalesOrderLineRepository
	// LedgerRepo returns the financial ledger scoped to the current transaction
	LedgerRepo() finance.LedgerRepository
}

// NoOpTransactionScope runs workflow bodies without a real transaction.
// Useful for tests that supply in-memory repositories.
type NoOpTransactionScope struct {
	batchRepo    inventory.BatchRepository
	movementRepo inventory.MovementRepository
	wastageRepo  wastage.Repository
	expenseRepo  expense.Repository
	salesRepo    trade.SalesOrderLineRepository
	ledgerRepo   finance.LedgerRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over the given repositories
func NewNoOpTransactionScope(
	batchRepo inventory.BatchRepository,
	movementRepo inventory.MovementRepository,
	wastageRepo wastage.Repository,
	expenseRepo expense.Repository,
	salesRepo trade.SalesOrderLineRepository,
	ledgerRepo finance.LedgerRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		batchRepo:    batchRepo,
		movementRepo: movementRepo,
		wastageRepo:  wastageRepo,
		expenseRepo:  expenseRepo,
		salesRepo:    salesRepo,
		ledgerRepo:   ledgerRepo,
	}
}

// Execute runs the function without transactional guarantees
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// BatchRepo returns the batch repository
func (s *NoOpTransactionScope) BatchRepo() inventory.BatchRepository { return s.batchRepo }

// MovementRepo returns the movement repository
func (s *NoOpTransactionScope) MovementRepo() inventory.MovementRepository { return s.movementRepo }

// WastageRepo returns the wastage repository
func (s *NoOpTransactionScope) WastageRepo() wastage.Repository { return s.wastageRepo }

// ExpenseRepo returns the expense repository
func (s *NoOpTransactionScope) ExpenseRepo() expense.Repository { return s.expenseRepo }

// SalesOrderRepo returns the sales order line repository
func (s *NoOpTransactionScope) SalesOrderRepo() trade.SalesOrderLineRepository { return s.salesRepo }

// LedgerRepo returns the ledger repository
func (s *NoOpTransactionScope) LedgerRepo() finance.LedgerRepository { return s.ledgerRepo }

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
