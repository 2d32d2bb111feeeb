package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeops/backoffice/internal/application/apptest"
	appinventory "github.com/tradeops/backoffice/internal/application/inventory"
	appwastage "github.com/tradeops/backoffice/internal/application/wastage"
	"github.com/tradeops/backoffice/internal/domain/inventory"
	"github.com/tradeops/backoffice/internal/interfaces/http/dto"
	"github.com/tradeops/backoffice/internal/interfaces/http/middleware"
	"github.com/tradeops/backoffice/internal/interfaces/http/router"
)

type wastageAPIFixture struct {
	engine    *gin.Engine
	fixture   *apptest.Fixture
	allocator *appinventory.AllocatorService
	tenantID  uuid.UUID
	actorID   uuid.UUID
}

func newWastageAPIFixture(t *testing.T) *wastageAPIFixture {
	t.Helper()

	fixture := apptest.NewFixture()
	allocator := appinventory.NewAllocatorService(fixture, nil)
	service := appwastage.NewService(fixture, allocator, nil)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Tenant(middleware.DefaultTenantConfig()))
	router.NewRouter(engine).Register(NewWastageHandler(service)).Setup()

	return &wastageAPIFixture{
		engine:    engine,
		fixture:   fixture,
		allocator: allocator,
		tenantID:  uuid.New(),
		actorID:   uuid.New(),
	}
}

func (f *wastageAPIFixture) seedStock(t *testing.T, materialID uuid.UUID, qty, cost string) {
	t.Helper()
	_, err := f.allocator.CreateBatch(context.Background(), f.tenantID, appinventory.CreateBatchInput{
		MaterialID:    materialID,
		PurchaseDate:  time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		Quantity:      decimal.RequireFromString(qty),
		UnitCost:      decimal.RequireFromString(cost),
		ReferenceType: inventory.ReferenceTypePurchaseOrder,
		ReferenceID:   "PO-1",
		ActorID:       f.actorID,
	})
	require.NoError(t, err)
}

func (f *wastageAPIFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.TenantHeaderKey, f.tenantID.String())
	req.Header.Set(middleware.ActorHeaderKey, f.actorID.String())

	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func TestWastageAPI_SubmitAndApprove(t *testing.T) {
	f := newWastageAPIFixture(t)
	materialID := uuid.New()
	f.seedStock(t, materialID, "100", "10")

	w := f.do(t, http.MethodPost, "/api/v1/wastages", gin.H{
		"material_id": materialID.String(),
		"quantity":    "30",
		"reason":      "spoiled in transit",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var submitResp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &submitResp))
	recordID := submitResp.Data.ID
	require.NotEmpty(t, recordID)

	w = f.do(t, http.MethodPost, "/api/v1/wastages/"+recordID+"/approve", gin.H{"note": "confirmed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// A second approval hits a terminal record.
	w = f.do(t, http.MethodPost, "/api/v1/wastages/"+recordID+"/approve", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var errResp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, dto.ErrCodeInvalidState, errResp.Error.Code)
}

func TestWastageAPI_ApproveShortfallReturns422WithDetail(t *testing.T) {
	f := newWastageAPIFixture(t)
	materialID := uuid.New()
	f.seedStock(t, materialID, "10", "10")

	w := f.do(t, http.MethodPost, "/api/v1/wastages", gin.H{
		"material_id": materialID.String(),
		"quantity":    "30",
		"reason":      "damaged pallet",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var submitResp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &submitResp))

	w = f.do(t, http.MethodPost, "/api/v1/wastages/"+submitResp.Data.ID+"/approve", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeInsufficientStock, resp.Error.Code)
	assert.NotNil(t, resp.Data, "shortfall detail travels with the error")
}

func TestWastageAPI_MissingTenantHeaderRejected(t *testing.T) {
	f := newWastageAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wastages", nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWastageAPI_ListByStatus(t *testing.T) {
	f := newWastageAPIFixture(t)
	materialID := uuid.New()
	f.seedStock(t, materialID, "100", "10")

	w := f.do(t, http.MethodPost, "/api/v1/wastages", gin.H{
		"material_id": materialID.String(),
		"quantity":    "5",
		"reason":      "breakage",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/wastages?status=PENDING", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 1)

	w = f.do(t, http.MethodGet, "/api/v1/wastages?status=BOGUS", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
