// Package apptest provides in-memory repository implementations and a
// serializing transaction scope for application-layer tests.
package apptest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appinventory "github.com/tradeops/backoffice/internal/application/inventory"
	"github.com/tradeops/backoffice/internal/domain/expense"
	"github.com/tradeops/backoffice/internal/domain/finance"
	"github.com/tradeops/backoffice/internal/domain/inventory"
	"github.com/tradeops/backoffice/internal/domain/shared"
	"github.com/tradeops/backoffice/internal/domain/trade"
	"github.com/tradeops/backoffice/internal/domain/wastage"
)

// Fixture bundles in-memory repositories behind a TransactionScope whose
// Execute serializes bodies with a mutex, standing in for the row locks the
// database scope takes. Rollback is not simulated; tests that need rollback
// semantics assert against the real GORM scope instead.
type Fixture struct {
	mu sync.Mutex

	Batches     *MemoryBatchRepository
	Movements   *MemoryMovementRepository
	Wastages    *MemoryWastageRepository
	Expenses    *MemoryExpenseRepository
	SalesOrders *MemorySalesOrderRepository
	Ledger      *MemoryLedgerRepository
}

// NewFixture creates a Fixture with empty repositories
func NewFixture() *Fixture {
	return &Fixture{
		Batches:     NewMemoryBatchRepository(),
		Movements:   NewMemoryMovementRepository(),
		Wastages:    NewMemoryWastageRepository(),
		Expenses:    NewMemoryExpenseRepository(),
		SalesOrders: NewMemorySalesOrderRepository(),
		Ledger:      NewMemoryLedgerRepository(),
	}
}

// Execute runs the body under the fixture mutex
func (f *Fixture) Execute(_ context.Context, fn func(repos appinventory.TransactionalRepositories) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(f)
}

// BatchRepo returns the in-memory batch repository
func (f *Fixture) BatchRepo() inventory.BatchRepository { return f.Batches }

// MovementRepo returns the in-memory movement repository
func (f *Fixture) MovementRepo() inventory.MovementRepository { return f.Movements }

// WastageRepo returns the in-memory wastage repository
func (f *Fixture) WastageRepo() wastage.Repository { return f.Wastages }

// ExpenseRepo returns the in-memory expense repository
func (f *Fixture) ExpenseRepo() expense.Repository { return f.Expenses }

// SalesOrderRepo returns the in-memory sales order line repository
func (f *Fixture) SalesOrderRepo() trade.SalesOrderLineRepository { return f.SalesOrders }

// LedgerRepo returns the in-memory ledger repository
func (f *Fixture) LedgerRepo() finance.LedgerRepository { return f.Ledger }

var _ appinventory.TransactionScope = (*Fixture)(nil)
var _ appinventory.TransactionalRepositories = (*Fixture)(nil)

// MemoryBatchRepository stores batches by value, so mutations only become
// visible once saved back, the way rows behave.
type MemoryBatchRepository struct {
	mu      sync.Mutex
	batches map[uuid.UUID]inventory.Batch
	order   []uuid.UUID
}

// NewMemoryBatchRepository creates an empty MemoryBatchRepository
func NewMemoryBatchRepository() *MemoryBatchRepository {
	return &MemoryBatchRepository{batches: make(map[uuid.UUID]inventory.Batch)}
}

// FindByID finds a batch by its ID
func (r *MemoryBatchRepository) FindByID(_ context.Context, id uuid.UUID) (*inventory.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.batches[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &b, nil
}

// FindByIDsForUpdate finds multiple batches by ID
func (r *MemoryBatchRepository) FindByIDsForUpdate(_ context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]inventory.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]inventory.Batch, 0, len(ids))
	for _, id := range ids {
		b, ok := r.batches[id]
		if !ok || b.TenantID != tenantID {
			return nil, shared.ErrNotFound
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *MemoryBatchRepository) eligible(tenantID, materialID uuid.UUID, branchID *uuid.UUID) []inventory.Batch {
	all := make([]inventory.Batch, 0)
	for _, id := range r.order {
		b := r.batches[id]
		if b.TenantID == tenantID && b.MaterialID == materialID && b.HasStock() {
			all = append(all, b)
		}
	}
	if branchID != nil {
		scoped := make([]inventory.Batch, 0, len(all))
		for _, b := range all {
			if b.BranchID != nil && *b.BranchID == *branchID {
				scoped = append(scoped, b)
			}
		}
		if len(scoped) > 0 {
			all = scoped
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].PurchaseDate.Equal(all[j].PurchaseDate) {
			return all[i].PurchaseDate.Before(all[j].PurchaseDate)
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	return all
}

// FindEligibleForUpdate returns the non-depleted batches of a material in FIFO order
func (r *MemoryBatchRepository) FindEligibleForUpdate(_ context.Context, tenantID, materialID uuid.UUID, branchID *uuid.UUID) ([]inventory.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.eligible(tenantID, materialID, branchID), nil
}

// FindEligible is the unlocked variant used by previews
func (r *MemoryBatchRepository) FindEligible(_ context.Context, tenantID, materialID uuid.UUID, branchID *uuid.UUID) ([]inventory.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.eligible(tenantID, materialID, branchID), nil
}

// FindByMaterial lists all batches of a material
func (r *MemoryBatchRepository) FindByMaterial(_ context.Context, tenantID, materialID uuid.UUID, _ shared.Filter) ([]inventory.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]inventory.Batch, 0)
	for _, id := range r.order {
		b := r.batches[id]
		if b.TenantID == tenantID && b.MaterialID == materialID {
			out = append(out, b)
		}
	}
	return out, nil
}

// Create inserts a new lot
func (r *MemoryBatchRepository) Create(_ context.Context, batch *inventory.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches[batch.ID] = *batch
	r.order = append(r.order, batch.ID)
	return nil
}

// Save persists changes for a lot
func (r *MemoryBatchRepository) Save(_ context.Context, batch *inventory.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.batches[batch.ID]; !ok {
		return shared.ErrNotFound
	}
	r.batches[batch.ID] = *batch
	return nil
}

// SaveAll persists changes for multiple lots
func (r *MemoryBatchRepository) SaveAll(ctx context.Context, batches []*inventory.Batch) error {
	for _, b := range batches {
		if err := r.Save(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

// Summarize aggregates the non-depleted lots of a material
func (r *MemoryBatchRepository) Summarize(_ context.Context, tenantID, materialID uuid.UUID) (*inventory.BatchSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	summary := &inventory.BatchSummary{
		TotalQuantity: decimal.Zero,
		TotalValue:    decimal.Zero,
		AverageCost:   decimal.Zero,
	}
	for _, id := range r.order {
		b := r.batches[id]
		if b.TenantID != tenantID || b.MaterialID != materialID || !b.HasStock() {
			continue
		}
		summary.BatchCount++
		summary.TotalQuantity = summary.TotalQuantity.Add(b.RemainingQuantity)
		summary.TotalValue = summary.TotalValue.Add(b.Value())
		d := b.PurchaseDate
		if summary.OldestDate == nil || d.Before(*summary.OldestDate) {
			summary.OldestDate = &d
		}
		if summary.NewestDate == nil || d.After(*summary.NewestDate) {
			summary.NewestDate = &d
		}
	}
	if summary.TotalQuantity.IsPositive() {
		summary.AverageCost = summary.TotalValue.DivRound(summary.TotalQuantity, 4)
	}
	return summary, nil
}

var _ inventory.BatchRepository = (*MemoryBatchRepository)(nil)

// MemoryMovementRepository is an append-only in-memory movement log
type MemoryMovementRepository struct {
	mu        sync.Mutex
	movements []inventory.Movement
}

// NewMemoryMovementRepository creates an empty MemoryMovementRepository
func NewMemoryMovementRepository() *MemoryMovementRepository {
	return &MemoryMovementRepository{}
}

// Create appends one movement
func (r *MemoryMovementRepository) Create(_ context.Context, movement *inventory.Movement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movements = append(r.movements, *movement)
	return nil
}

// CreateAll appends multiple movements
func (r *MemoryMovementRepository) CreateAll(ctx context.Context, movements []*inventory.Movement) error {
	for _, m := range movements {
		if err := r.Create(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// FindByReference returns every movement of a reference, oldest first
func (r *MemoryMovementRepository) FindByReference(_ context.Context, tenantID uuid.UUID, referenceType inventory.ReferenceType, referenceID string) ([]inventory.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]inventory.Movement, 0)
	for _, m := range r.movements {
		if m.TenantID == tenantID && m.ReferenceType == referenceType && m.ReferenceID == referenceID {
			out = append(out, m)
		}
	}
	return out, nil
}

// FindOutstandingConsumptions returns unreversed consumptions of a reference, newest first
func (r *MemoryMovementRepository) FindOutstandingConsumptions(_ context.Context, tenantID uuid.UUID, referenceType inventory.ReferenceType, referenceID string) ([]inventory.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]inventory.Movement, 0)
	for i := len(r.movements) - 1; i >= 0; i-- {
		m := r.movements[i]
		if m.TenantID == tenantID &&
			m.MovementType == inventory.MovementTypeConsumption &&
			!m.Reversed &&
			m.ReferenceType == referenceType && m.ReferenceID == referenceID {
			out = append(out, m)
		}
	}
	return out, nil
}

// FindByBatch returns the movement history of one batch, oldest first
func (r *MemoryMovementRepository) FindByBatch(_ context.Context, batchID uuid.UUID, _ shared.Filter) ([]inventory.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]inventory.Movement, 0)
	for _, m := range r.movements {
		if m.BatchID == batchID {
			out = append(out, m)
		}
	}
	return out, nil
}

// MarkReversed tags the given movements as reversed
func (r *MemoryMovementRepository) MarkReversed(_ context.Context, ids []uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for i := range r.movements {
		if want[r.movements[i].ID] {
			r.movements[i].MarkReversed(at)
		}
	}
	return nil
}

// All returns a copy of every stored movement, insertion order
func (r *MemoryMovementRepository) All() []inventory.Movement {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]inventory.Movement, len(r.movements))
	copy(out, r.movements)
	return out
}

var _ inventory.MovementRepository = (*MemoryMovementRepository)(nil)

// MemoryWastageRepository stores wastage records by value
type MemoryWastageRepository struct {
	mu      sync.Mutex
	records map[uuid.UUID]wastage.Record
}

// NewMemoryWastageRepository creates an empty MemoryWastageRepository
func NewMemoryWastageRepository() *MemoryWastageRepository {
	return &MemoryWastageRepository{records: make(map[uuid.UUID]wastage.Record)}
}

// FindByIDForTenant finds a wastage record by ID within a tenant
func (r *MemoryWastageRepository) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*wastage.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return &rec, nil
}

// FindByStatus finds wastage records in a given status
func (r *MemoryWastageRepository) FindByStatus(_ context.Context, tenantID uuid.UUID, status wastage.Status, _ shared.Filter) ([]wastage.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]wastage.Record, 0)
	for _, rec := range r.records {
		if rec.TenantID == tenantID && rec.Status == status {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Create inserts a new record
func (r *MemoryWastageRepository) Create(_ context.Context, record *wastage.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ID] = *record
	return nil
}

// Save persists state changes with an optimistic version check
func (r *MemoryWastageRepository) Save(_ context.Context, record *wastage.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.records[record.ID]
	if !ok {
		return shared.ErrNotFound
	}
	// Callers bump the version before saving, so the stored copy must
	// still be one behind.
	if stored.Version != record.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.records[record.ID] = *record
	return nil
}

var _ wastage.Repository = (*MemoryWastageRepository)(nil)

// MemoryExpenseRepository stores expense records by value
type MemoryExpenseRepository struct {
	mu      sync.Mutex
	records map[uuid.UUID]expense.Record
}

// NewMemoryExpenseRepository creates an empty MemoryExpenseRepository
func NewMemoryExpenseRepository() *MemoryExpenseRepository {
	return &MemoryExpenseRepository{records: make(map[uuid.UUID]expense.Record)}
}

// FindByIDForTenant finds an expense record by ID within a tenant
func (r *MemoryExpenseRepository) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*expense.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return &rec, nil
}

// FindByStatus finds expense records in a given status
func (r *MemoryExpenseRepository) FindByStatus(_ context.Context, tenantID uuid.UUID, status expense.Status, _ shared.Filter) ([]expense.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]expense.Record, 0)
	for _, rec := range r.records {
		if rec.TenantID == tenantID && rec.Status == status {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Create inserts a new record
func (r *MemoryExpenseRepository) Create(_ context.Context, record *expense.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ID] = *record
	return nil
}

// Save persists state changes with an optimistic version check
func (r *MemoryExpenseRepository) Save(_ context.Context, record *expense.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.records[record.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Version != record.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.records[record.ID] = *record
	return nil
}

var _ expense.Repository = (*MemoryExpenseRepository)(nil)

// MemorySalesOrderRepository stores sales order lines by value
type MemorySalesOrderRepository struct {
	mu    sync.Mutex
	lines map[uuid.UUID]trade.SalesOrderLine
}

// NewMemorySalesOrderRepository creates an empty MemorySalesOrderRepository
func NewMemorySalesOrderRepository() *MemorySalesOrderRepository {
	return &MemorySalesOrderRepository{lines: make(map[uuid.UUID]trade.SalesOrderLine)}
}

// FindByIDForTenant finds a sales order line by ID within a tenant
func (r *MemorySalesOrderRepository) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*trade.SalesOrderLine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	line, ok := r.lines[id]
	if !ok || line.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return &line, nil
}

// FindByOrderNumber finds all lines of one order
func (r *MemorySalesOrderRepository) FindByOrderNumber(_ context.Context, tenantID uuid.UUID, orderNumber string) ([]trade.SalesOrderLine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]trade.SalesOrderLine, 0)
	for _, line := range r.lines {
		if line.TenantID == tenantID && line.OrderNumber == orderNumber {
			out = append(out, line)
		}
	}
	return out, nil
}

// FindByStatus finds lines in a given status
func (r *MemorySalesOrderRepository) FindByStatus(_ context.Context, tenantID uuid.UUID, status trade.Status, _ shared.Filter) ([]trade.SalesOrderLine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]trade.SalesOrderLine, 0)
	for _, line := range r.lines {
		if line.TenantID == tenantID && line.Status == status {
			out = append(out, line)
		}
	}
	return out, nil
}

// Create inserts a new line
func (r *MemorySalesOrderRepository) Create(_ context.Context, line *trade.SalesOrderLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[line.ID] = *line
	return nil
}

// Save persists state changes with an optimistic version check
func (r *MemorySalesOrderRepository) Save(_ context.Context, line *trade.SalesOrderLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.lines[line.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Version != line.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.lines[line.ID] = *line
	return nil
}

var _ trade.SalesOrderLineRepository = (*MemorySalesOrderRepository)(nil)

// MemoryLedgerRepository is an append-only in-memory ledger
type MemoryLedgerRepository struct {
	mu      sync.Mutex
	entries []finance.LedgerEntry
}

// NewMemoryLedgerRepository creates an empty MemoryLedgerRepository
func NewMemoryLedgerRepository() *MemoryLedgerRepository {
	return &MemoryLedgerRepository{}
}

// Create appends one entry
func (r *MemoryLedgerRepository) Create(_ context.Context, entry *finance.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

// FindByReference returns every entry of a reference, oldest first
func (r *MemoryLedgerRepository) FindByReference(_ context.Context, tenantID uuid.UUID, referenceType, referenceID string) ([]finance.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]finance.LedgerEntry, 0)
	for _, e := range r.entries {
		if e.TenantID == tenantID && e.ReferenceType == referenceType && e.ReferenceID == referenceID {
			out = append(out, e)
		}
	}
	return out, nil
}

// SumByReference sums the signed amounts of a reference's entries
func (r *MemoryLedgerRepository) SumByReference(ctx context.Context, tenantID uuid.UUID, referenceType, referenceID string) (decimal.Decimal, error) {
	entries, err := r.FindByReference(ctx, tenantID, referenceType, referenceID)
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Amount)
	}
	return sum, nil
}

// All returns a copy of every stored entry, insertion order
func (r *MemoryLedgerRepository) All() []finance.LedgerEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]finance.LedgerEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

var _ finance.LedgerRepository = (*MemoryLedgerRepository)(nil)
