package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeops/backoffice/internal/application/apptest"
	appexpense "github.com/tradeops/backoffice/internal/application/expense"
	"github.com/tradeops/backoffice/internal/interfaces/http/dto"
	"github.com/tradeops/backoffice/internal/interfaces/http/middleware"
	"github.com/tradeops/backoffice/internal/interfaces/http/router"
)

type expenseAPIFixture struct {
	wastageAPIFixture
}

func newExpenseAPIFixture(t *testing.T) *expenseAPIFixture {
	t.Helper()

	fixture := apptest.NewFixture()
	service := appexpense.NewService(fixture, nil)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Tenant(middleware.DefaultTenantConfig()))
	router.NewRouter(engine).Register(NewExpenseHandler(service)).Setup()

	return &expenseAPIFixture{wastageAPIFixture{
		engine:   engine,
		fixture:  fixture,
		tenantID: uuid.New(),
		actorID:  uuid.New(),
	}}
}

func (f *expenseAPIFixture) submit(t *testing.T) string {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/v1/expenses", gin.H{
		"category":    "utilities",
		"description": "warehouse electricity",
		"amount":      "180.50",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Data ExpenseRecordResponse `json:"data"`
	}
	require.NoError(t, decodeBody(w, &resp))
	require.NotEmpty(t, resp.Data.ID)
	assert.Equal(t, "PENDING", resp.Data.Status)
	return resp.Data.ID
}

func TestExpenseAPI_SubmitAndApprove(t *testing.T) {
	f := newExpenseAPIFixture(t)
	recordID := f.submit(t)

	w := f.do(t, http.MethodPost, "/api/v1/expenses/"+recordID+"/approve", gin.H{"note": "receipts attached"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data ExpenseRecordResponse `json:"data"`
	}
	require.NoError(t, decodeBody(w, &resp))
	assert.Equal(t, "APPROVED", resp.Data.Status)
	assert.NotNil(t, resp.Data.ApprovedAt)

	// Terminal records cannot be re-approved.
	w = f.do(t, http.MethodPost, "/api/v1/expenses/"+recordID+"/approve", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var errResp dto.Response
	require.NoError(t, decodeBody(w, &errResp))
	assert.Equal(t, dto.ErrCodeInvalidState, errResp.Error.Code)
}

func TestExpenseAPI_RejectRequiresReason(t *testing.T) {
	f := newExpenseAPIFixture(t)
	recordID := f.submit(t)

	w := f.do(t, http.MethodPost, "/api/v1/expenses/"+recordID+"/reject", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/expenses/"+recordID+"/reject", gin.H{"reason": "duplicate claim"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data ExpenseRecordResponse `json:"data"`
	}
	require.NoError(t, decodeBody(w, &resp))
	assert.Equal(t, "REJECTED", resp.Data.Status)
}

func TestExpenseAPI_ListByStatus(t *testing.T) {
	f := newExpenseAPIFixture(t)
	recordID := f.submit(t)
	f.submit(t)

	w := f.do(t, http.MethodPost, "/api/v1/expenses/"+recordID+"/approve", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodGet, "/api/v1/expenses?status=PENDING", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data []ExpenseRecordResponse `json:"data"`
	}
	require.NoError(t, decodeBody(w, &resp))
	assert.Len(t, resp.Data, 1)

	w = f.do(t, http.MethodGet, "/api/v1/expenses?status=BOGUS", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
