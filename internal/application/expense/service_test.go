package expense_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tradeops/backoffice/internal/application/apptest"
	appexpense "github.com/tradeops/backoffice/internal/application/expense"
	"github.com/tradeops/backoffice/internal/domain/expense"
	"github.com/tradeops/backoffice/internal/domain/finance"
	"github.com/tradeops/backoffice/internal/domain/shared"
)

func newExpenseFixture() (*appexpense.Service, *apptest.Fixture, uuid.UUID) {
	fixture := apptest.NewFixture()
	return appexpense.NewService(fixture, zap.NewNop()), fixture, uuid.New()
}

func submitExpense(t *testing.T, service *appexpense.Service, tenantID uuid.UUID, amount string) *expense.Record {
	t.Helper()
	record, err := service.Submit(context.Background(), tenantID, appexpense.SubmitInput{
		Category:    "delivery",
		Description: "fuel for the morning route",
		Amount:      decimal.RequireFromString(amount),
		SubmittedBy: uuid.New(),
	})
	require.NoError(t, err)
	return record
}

func TestExpenseService_Submit(t *testing.T) {
	service, fixture, tenantID := newExpenseFixture()

	record := submitExpense(t, service, tenantID, "85.50")
	assert.Equal(t, expense.StatusPending, record.Status)

	stored, err := fixture.Expenses.FindByIDForTenant(context.Background(), tenantID, record.ID)
	require.NoError(t, err)
	assert.True(t, stored.Amount.Equal(decimal.RequireFromString("85.50")))
}

func TestExpenseService_SubmitRejectsNonPositiveAmount(t *testing.T) {
	service, _, tenantID := newExpenseFixture()

	_, err := service.Submit(context.Background(), tenantID, appexpense.SubmitInput{
		Category:    "delivery",
		Description: "zero",
		Amount:      decimal.Zero,
		SubmittedBy: uuid.New(),
	})
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, shared.CodeValidation, domainErr.Code)
}

func TestExpenseService_ApproveBooksOutflow(t *testing.T) {
	service, fixture, tenantID := newExpenseFixture()
	approverID := uuid.New()

	record := submitExpense(t, service, tenantID, "85.50")

	approved, err := service.Approve(context.Background(), tenantID, record.ID, approverID, "receipt attached")
	require.NoError(t, err)
	assert.Equal(t, expense.StatusApproved, approved.Status)

	entries := fixture.Ledger.All()
	require.Len(t, entries, 1)
	assert.Equal(t, finance.EntryTypeExpense, entries[0].EntryType)
	assert.True(t, entries[0].Amount.Equal(decimal.RequireFromString("-85.50")))

	sum, err := fixture.Ledger.SumByReference(context.Background(), tenantID, appexpense.ReferenceType, record.ID.String())
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.RequireFromString("-85.50")))
}

func TestExpenseService_TerminalStatesAreFinal(t *testing.T) {
	service, fixture, tenantID := newExpenseFixture()

	record := submitExpense(t, service, tenantID, "40")
	_, err := service.Reject(context.Background(), tenantID, record.ID, uuid.New(), "no receipt")
	require.NoError(t, err)

	_, err = service.Approve(context.Background(), tenantID, record.ID, uuid.New(), "")
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, shared.CodeInvalidState, domainErr.Code)

	assert.Empty(t, fixture.Ledger.All(), "rejection must not book anything")
}
