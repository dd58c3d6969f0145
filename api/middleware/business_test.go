package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tavola-backend/pkg/db/models"
)

type stubBusinessLookup struct {
	business *models.Business
	err      error
	calls    int
}

func (s *stubBusinessLookup) Current(context.Context) (*models.Business, error) {
	s.calls++
	return s.business, s.err
}

func serveBusiness(t *testing.T, lookup currentBusiness, ctx context.Context) (*httptest.ResponseRecorder, string) {
	t.Helper()
	var seen string
	handler := BusinessContext(lookup, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = BusinessIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp, seen
}

func TestBusinessContextKeepsTokenBusiness(t *testing.T) {
	lookup := &stubBusinessLookup{}
	ctx := WithBusinessID(context.Background(), "from-token")
	resp, seen := serveBusiness(t, lookup, ctx)
	if resp.Code != http.StatusOK || seen != "from-token" {
		t.Fatalf("unexpected result %d %q", resp.Code, seen)
	}
	if lookup.calls != 0 {
		t.Fatal("lookup should not run when the token carries a business")
	}
}

func TestBusinessContextFallsBackToCurrent(t *testing.T) {
	business := &models.Business{ID: uuid.New(), Name: "Trattoria"}
	resp, seen := serveBusiness(t, &stubBusinessLookup{business: business}, context.Background())
	if resp.Code != http.StatusOK || seen != business.ID.String() {
		t.Fatalf("unexpected result %d %q", resp.Code, seen)
	}
}

func TestBusinessContextErrors(t *testing.T) {
	resp, _ := serveBusiness(t, &stubBusinessLookup{err: gorm.ErrRecordNotFound}, context.Background())
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
	resp, _ = serveBusiness(t, &stubBusinessLookup{err: errors.New("db down")}, context.Background())
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	resp, _ = serveBusiness(t, nil, context.Background())
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}
