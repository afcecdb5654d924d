package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/threadmart-backend/internal/access"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
)

type countingLimiter struct {
	counts map[string]int64
}

func (c *countingLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	c.counts[scope]++
	return c.counts[scope] <= limit, c.counts[scope], nil
}

func TestRateLimitBlocksAfterLimit(t *testing.T) {
	limiter := &countingLimiter{counts: map[string]int64{}}
	mw := RateLimit(RateLimitPolicy{Name: "api", Window: time.Minute, Limit: 2}, limiter, nil)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		codes = append(codes, resp.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}
	if _, ok := limiter.counts["api:ip:10.0.0.1"]; !ok {
		t.Fatalf("expected ip scoped counter, got %v", limiter.counts)
	}
}

func TestRateLimitKeysByUser(t *testing.T) {
	limiter := &countingLimiter{counts: map[string]int64{}}
	mw := RateLimit(RateLimitPolicy{Name: "api", Window: time.Minute, Limit: 5}, limiter, nil)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	userID := uuid.New()
	req = req.WithContext(access.WithActor(req.Context(), access.Actor{UserID: userID, Role: enums.UserRoleShopper}))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if limiter.counts["api:user:"+userID.String()] != 1 {
		t.Fatalf("expected user scoped counter, got %v", limiter.counts)
	}
}

func TestRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	mw := RateLimit(RateLimitPolicy{}, &countingLimiter{counts: map[string]int64{}}, nil)
	calls := 0
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	for i := 0; i < 10; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	if calls != 10 {
		t.Fatalf("expected all requests through, got %d", calls)
	}
}
