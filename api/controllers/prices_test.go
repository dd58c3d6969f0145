package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tavola-backend/api/middleware"
	"github.com/angelmondragon/tavola-backend/internal/pricechanges"
	"github.com/angelmondragon/tavola-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tavola-backend/pkg/errors"
	"github.com/angelmondragon/tavola-backend/pkg/logger"
	"github.com/angelmondragon/tavola-backend/pkg/types"
)

type stubPriceChangeService struct {
	bulkInput    pricechanges.BulkPriceChangeInput
	tenant       pricechanges.Tenant
	historyID    uuid.UUID
	page, limit  int
	err          error
	bulkResult   *pricechanges.BulkPriceChangeResult
	deleteCalled bool
}

func (s *stubPriceChangeService) ApplyBulkPriceChange(_ context.Context, tenant pricechanges.Tenant, input pricechanges.BulkPriceChangeInput) (*pricechanges.BulkPriceChangeResult, error) {
	s.tenant = tenant
	s.bulkInput = input
	if s.err != nil {
		return nil, s.err
	}
	return s.bulkResult, nil
}

func (s *stubPriceChangeService) Rollback(_ context.Context, tenant pricechanges.Tenant, historyID uuid.UUID) (*pricechanges.RollbackResult, error) {
	s.tenant = tenant
	s.historyID = historyID
	if s.err != nil {
		return nil, s.err
	}
	return &pricechanges.RollbackResult{HistoryID: historyID, Restored: 1}, nil
}

func (s *stubPriceChangeService) List(_ context.Context, tenant pricechanges.Tenant, page, limit int) (*pricechanges.HistoryList, error) {
	s.tenant = tenant
	s.page, s.limit = page, limit
	if s.err != nil {
		return nil, s.err
	}
	return &pricechanges.HistoryList{Items: []pricechanges.HistorySummary{}, Pagination: types.PageMeta{Page: page, Limit: limit}}, nil
}

func (s *stubPriceChangeService) Get(_ context.Context, tenant pricechanges.Tenant, historyID uuid.UUID) (*pricechanges.HistoryDetail, error) {
	s.historyID = historyID
	if s.err != nil {
		return nil, s.err
	}
	return &pricechanges.HistoryDetail{
		HistorySummary: pricechanges.HistorySummary{ID: historyID, BusinessID: tenant.BusinessID, Target: enums.PriceTargetItems},
		Snapshot:       pricechanges.ItemSnapshots{},
	}, nil
}

func (s *stubPriceChangeService) Delete(_ context.Context, _ pricechanges.Tenant, historyID uuid.UUID) error {
	s.historyID = historyID
	s.deleteCalled = true
	return s.err
}

func (s *stubPriceChangeService) Clear(_ context.Context, _ pricechanges.Tenant) (*pricechanges.ClearResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &pricechanges.ClearResult{Deleted: 4}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func adminContext(businessID, userID uuid.UUID, params map[string]string) context.Context {
	ctx := middleware.WithBusinessID(context.Background(), businessID.String())
	ctx = middleware.WithUserID(ctx, userID.String())
	routeCtx := chi.NewRouteContext()
	for k, v := range params {
		routeCtx.URLParams.Add(k, v)
	}
	return context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
}

func TestAdminBulkPriceChange(t *testing.T) {
	businessID, userID := uuid.New(), uuid.New()
	historyID := uuid.New()

	serve := func(svc pricechanges.Service, ctx context.Context, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/prices/bulk", strings.NewReader(body)).WithContext(ctx)
		rec := httptest.NewRecorder()
		AdminBulkPriceChange(svc, testLogger()).ServeHTTP(rec, req)
		return rec
	}

	t.Run("success defaults target", func(t *testing.T) {
		stub := &stubPriceChangeService{bulkResult: &pricechanges.BulkPriceChangeResult{HistoryID: historyID, Affected: 7}}
		rec := serve(stub, adminContext(businessID, userID, nil), `{"type":"INCREASE","value_type":"PERCENTAGE","value":10}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.tenant.BusinessID != businessID || stub.tenant.AdminID != userID {
			t.Fatalf("unexpected tenant %+v", stub.tenant)
		}
		if !stub.bulkInput.Value.Equal(decimal.NewFromInt(10)) || stub.bulkInput.Target != "" {
			t.Fatalf("unexpected input %+v", stub.bulkInput)
		}

		var body struct {
			Data pricechanges.BulkPriceChangeResult `json:"data"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Data.Affected != 7 || body.Data.HistoryID != historyID {
			t.Fatalf("unexpected body %+v", body.Data)
		}
	})

	t.Run("modifier target with decimal string", func(t *testing.T) {
		stub := &stubPriceChangeService{bulkResult: &pricechanges.BulkPriceChangeResult{}}
		rec := serve(stub, adminContext(businessID, userID, nil), `{"type":"DECREASE","value_type":"FIXED","value":"0.25","target":"MODIFIERS"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if stub.bulkInput.Target != enums.PriceTargetModifiers || stub.bulkInput.Type != enums.PriceChangeDecrease {
			t.Fatalf("unexpected input %+v", stub.bulkInput)
		}
		if !stub.bulkInput.Value.Equal(decimal.RequireFromString("0.25")) {
			t.Fatalf("unexpected value %s", stub.bulkInput.Value)
		}
	})

	cases := []struct {
		name string
		body string
	}{
		{"bad type", `{"type":"RAISE","value_type":"PERCENTAGE","value":10}`},
		{"bad value type", `{"type":"INCREASE","value_type":"RATIO","value":10}`},
		{"missing value", `{"type":"INCREASE","value_type":"PERCENTAGE"}`},
		{"bad target", `{"type":"INCREASE","value_type":"PERCENTAGE","value":1,"target":"SIZES"}`},
		{"unknown field", `{"type":"INCREASE","value_type":"PERCENTAGE","value":1,"extra":true}`},
		{"malformed", `{"type":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(&stubPriceChangeService{}, adminContext(businessID, userID, nil), tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}

	t.Run("service validation error", func(t *testing.T) {
		stub := &stubPriceChangeService{err: pkgerrors.New(pkgerrors.CodeValidation, "no items to update")}
		rec := serve(stub, adminContext(businessID, userID, nil), `{"type":"INCREASE","value_type":"FIXED","value":1}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("missing business", func(t *testing.T) {
		ctx := middleware.WithUserID(context.Background(), userID.String())
		rec := serve(&stubPriceChangeService{}, ctx, `{"type":"INCREASE","value_type":"FIXED","value":1}`)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("missing user", func(t *testing.T) {
		ctx := middleware.WithBusinessID(context.Background(), businessID.String())
		rec := serve(&stubPriceChangeService{}, ctx, `{"type":"INCREASE","value_type":"FIXED","value":1}`)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestAdminRollbackPriceChange(t *testing.T) {
	businessID, userID, historyID := uuid.New(), uuid.New(), uuid.New()

	t.Run("success returns empty payload", func(t *testing.T) {
		stub := &stubPriceChangeService{}
		ctx := adminContext(businessID, userID, map[string]string{"historyId": historyID.String()})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/prices/history/"+historyID.String()+"/rollback", nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		AdminRollbackPriceChange(stub, testLogger()).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if stub.historyID != historyID {
			t.Fatalf("expected history %s, got %s", historyID, stub.historyID)
		}
		if got := strings.TrimSpace(rec.Body.String()); got != `{"data":null}` {
			t.Fatalf("unexpected body %s", got)
		}
	})

	t.Run("already rolled back", func(t *testing.T) {
		stub := &stubPriceChangeService{err: pkgerrors.New(pkgerrors.CodeValidation, "price change already rolled back")}
		ctx := adminContext(businessID, userID, map[string]string{"historyId": historyID.String()})
		req := httptest.NewRequest(http.MethodPost, "/", nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		AdminRollbackPriceChange(stub, testLogger()).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("unknown history", func(t *testing.T) {
		stub := &stubPriceChangeService{err: pkgerrors.New(pkgerrors.CodeNotFound, "price change not found")}
		ctx := adminContext(businessID, userID, map[string]string{"historyId": historyID.String()})
		req := httptest.NewRequest(http.MethodPost, "/", nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		AdminRollbackPriceChange(stub, testLogger()).ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		ctx := adminContext(businessID, userID, map[string]string{"historyId": "nope"})
		req := httptest.NewRequest(http.MethodPost, "/", nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		AdminRollbackPriceChange(&stubPriceChangeService{}, testLogger()).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestAdminListPriceHistory(t *testing.T) {
	businessID, userID := uuid.New(), uuid.New()

	stub := &stubPriceChangeService{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/prices/history?page=2&limit=5", nil).
		WithContext(adminContext(businessID, userID, nil))
	rec := httptest.NewRecorder()
	AdminListPriceHistory(stub, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if stub.page != 2 || stub.limit != 5 {
		t.Fatalf("unexpected paging %d/%d", stub.page, stub.limit)
	}

	stub = &stubPriceChangeService{}
	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/prices/history", nil).
		WithContext(adminContext(businessID, userID, nil))
	rec = httptest.NewRecorder()
	AdminListPriceHistory(stub, testLogger()).ServeHTTP(rec, req)
	if stub.page != 1 || stub.limit != 25 {
		t.Fatalf("expected default paging, got %d/%d", stub.page, stub.limit)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/prices/history?limit=500", nil).
		WithContext(adminContext(businessID, userID, nil))
	rec = httptest.NewRecorder()
	AdminListPriceHistory(&stubPriceChangeService{}, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out of range limit, got %d", rec.Code)
	}
}

func TestAdminGetPriceHistory(t *testing.T) {
	businessID, userID, historyID := uuid.New(), uuid.New(), uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil).
		WithContext(adminContext(businessID, userID, map[string]string{"historyId": historyID.String()}))
	rec := httptest.NewRecorder()
	AdminGetPriceHistory(&stubPriceChangeService{}, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Data map[string]any `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data["id"] != historyID.String() {
		t.Fatalf("unexpected id %v", body.Data["id"])
	}
	if _, ok := body.Data["snapshot"]; !ok {
		t.Fatalf("expected snapshot in detail payload")
	}
}

func TestAdminDeletePriceHistory(t *testing.T) {
	businessID, userID, historyID := uuid.New(), uuid.New(), uuid.New()

	stub := &stubPriceChangeService{}
	req := httptest.NewRequest(http.MethodDelete, "/", nil).
		WithContext(adminContext(businessID, userID, map[string]string{"historyId": historyID.String()}))
	rec := httptest.NewRecorder()
	AdminDeletePriceHistory(stub, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if !stub.deleteCalled || stub.historyID != historyID {
		t.Fatalf("delete not forwarded")
	}

	stub = &stubPriceChangeService{err: pkgerrors.New(pkgerrors.CodeNotFound, "price change not found")}
	rec = httptest.NewRecorder()
	AdminDeletePriceHistory(stub, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestAdminClearPriceHistory(t *testing.T) {
	businessID, userID := uuid.New(), uuid.New()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/prices/history", nil).
		WithContext(adminContext(businessID, userID, nil))
	rec := httptest.NewRecorder()
	AdminClearPriceHistory(&stubPriceChangeService{}, testLogger()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"data":{"deleted":4}}` {
		t.Fatalf("unexpected body %s", got)
	}
}
