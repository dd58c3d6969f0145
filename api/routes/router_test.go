package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tavola-backend/internal/pricechanges"
	"github.com/angelmondragon/tavola-backend/internal/pricing"
	pkgAuth "github.com/angelmondragon/tavola-backend/pkg/auth"
	"github.com/angelmondragon/tavola-backend/pkg/config"
	"github.com/angelmondragon/tavola-backend/pkg/db/models"
	"github.com/angelmondragon/tavola-backend/pkg/enums"
	"github.com/angelmondragon/tavola-backend/pkg/logger"
	"github.com/angelmondragon/tavola-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubBusinesses struct{ id uuid.UUID }

func (s stubBusinesses) Current(context.Context) (*models.Business, error) {
	return &models.Business{ID: s.id, Name: "Trattoria"}, nil
}

type stubPriceChanges struct {
	bulkCalls     int
	rollbackCalls int
	tenants       []pricechanges.Tenant
}

func (s *stubPriceChanges) ApplyBulkPriceChange(_ context.Context, tenant pricechanges.Tenant, _ pricechanges.BulkPriceChangeInput) (*pricechanges.BulkPriceChangeResult, error) {
	s.bulkCalls++
	s.tenants = append(s.tenants, tenant)
	return &pricechanges.BulkPriceChangeResult{HistoryID: uuid.New(), Affected: 3}, nil
}

func (s *stubPriceChanges) Rollback(_ context.Context, _ pricechanges.Tenant, id uuid.UUID) (*pricechanges.RollbackResult, error) {
	s.rollbackCalls++
	return &pricechanges.RollbackResult{HistoryID: id}, nil
}

func (s *stubPriceChanges) List(_ context.Context, _ pricechanges.Tenant, page, limit int) (*pricechanges.HistoryList, error) {
	return &pricechanges.HistoryList{Items: []pricechanges.HistorySummary{}}, nil
}

func (s *stubPriceChanges) Get(_ context.Context, _ pricechanges.Tenant, id uuid.UUID) (*pricechanges.HistoryDetail, error) {
	return &pricechanges.HistoryDetail{HistorySummary: pricechanges.HistorySummary{ID: id}, Snapshot: pricechanges.ItemSnapshots{}}, nil
}

func (s *stubPriceChanges) Delete(context.Context, pricechanges.Tenant, uuid.UUID) error {
	return nil
}

func (s *stubPriceChanges) Clear(context.Context, pricechanges.Tenant) (*pricechanges.ClearResult, error) {
	return &pricechanges.ClearResult{}, nil
}

type stubQuotes struct{}

func (stubQuotes) QuoteItem(_ context.Context, itemID uuid.UUID, req pricing.QuoteRequest) (*pricing.Quote, error) {
	return &pricing.Quote{ItemID: itemID, Quantity: req.Quantity}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "tavola", ExpirationMinutes: 30},
		Pricing: config.PricingConfig{
			MutationRateWindow: time.Minute,
			MutationRateLimit:  2,
		},
	}
}

func newTestRouter(t *testing.T, withRedis bool) (http.Handler, *stubPriceChanges, uuid.UUID) {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
	businessID := uuid.New()

	var redisClient *redis.Client
	if withRedis {
		mr := miniredis.RunT(t)
		raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = raw.Close() })
		redisClient = redis.NewFromRaw(raw)
	}

	svc := &stubPriceChanges{}
	router := NewRouter(testConfig(), logg, stubPinger{}, redisClient, prometheus.NewRegistry(), stubBusinesses{id: businessID}, svc, stubQuotes{})
	return router, svc, businessID
}

func bearer(t *testing.T, role enums.MemberRole, businessID *uuid.UUID) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(testConfig().JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:     uuid.New(),
		BusinessID: businessID,
		Role:       role,
	})
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRouterHealthAndMetrics(t *testing.T) {
	router, _, _ := newTestRouter(t, false)

	for _, path := range []string{"/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestRouterAdminRequiresAuth(t *testing.T) {
	router, svc, _ := newTestRouter(t, false)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/prices/history", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/prices/bulk", strings.NewReader(`{"type":"INCREASE","value_type":"FIXED","value":1}`))
	req.Header.Set("Authorization", bearer(t, enums.MemberRoleStaff, nil))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Zero(t, svc.bulkCalls)
}

func TestRouterAdminFallsBackToCurrentBusiness(t *testing.T) {
	router, svc, businessID := newTestRouter(t, false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/prices/bulk", strings.NewReader(`{"type":"INCREASE","value_type":"FIXED","value":1}`))
	req.Header.Set("Authorization", bearer(t, enums.MemberRoleOwner, nil))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, svc.tenants, 1)
	require.Equal(t, businessID, svc.tenants[0].BusinessID)
}

func TestRouterAdminIdempotencyAndRateLimit(t *testing.T) {
	router, svc, _ := newTestRouter(t, true)
	businessID := uuid.New()
	token := bearer(t, enums.MemberRoleAdmin, &businessID)
	body := `{"type":"DECREASE","value_type":"PERCENTAGE","value":5,"target":"MODIFIERS"}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/prices/bulk", strings.NewReader(body))
	req.Header.Set("Authorization", token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code, "idempotency key is required")

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/prices/bulk", strings.NewReader(body))
		req.Header.Set("Authorization", token)
		req.Header.Set("Idempotency-Key", "bulk-1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	first := send()
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, 1, svc.bulkCalls)
	require.Equal(t, businessID, svc.tenants[0].BusinessID)

	// The limit is two mutations per window; the missing-key attempt above
	// already counted.
	third := send()
	require.Equal(t, http.StatusTooManyRequests, third.Code)
	require.Equal(t, 1, svc.bulkCalls)
}

func TestRouterQuoteIsPublic(t *testing.T) {
	router, _, _ := newTestRouter(t, false)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/menu/items/"+uuid.NewString()+"/quote", strings.NewReader(`{"quantity":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"quantity":2`)
}

func TestRouterRollbackReplaysPerHistoryRow(t *testing.T) {
	router, svc, _ := newTestRouter(t, true)
	businessID := uuid.New()
	token := bearer(t, enums.MemberRoleOwner, &businessID)
	historyID := uuid.NewString()

	rollback := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/prices/history/"+historyID+"/rollback", nil)
		req.Header.Set("Authorization", token)
		req.Header.Set("Idempotency-Key", "undo-1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	first := rollback()
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	require.Empty(t, first.Header().Get("Idempotent-Replayed"))

	second := rollback()
	require.Equal(t, http.StatusOK, second.Code)
	require.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	require.Equal(t, first.Header().Get("X-Request-Id"), second.Header().Get("X-Request-Id"))
	require.JSONEq(t, first.Body.String(), second.Body.String())
	require.Equal(t, 1, svc.rollbackCalls)

	// reads are never guarded
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/prices/history", nil)
	req.Header.Set("Authorization", token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
