package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/threadmart-backend/api/controllers"
	"github.com/angelmondragon/threadmart-backend/internal/access"
	"github.com/angelmondragon/threadmart-backend/internal/categories"
	"github.com/angelmondragon/threadmart-backend/internal/discounts"
	"github.com/angelmondragon/threadmart-backend/pkg/auth"
	"github.com/angelmondragon/threadmart-backend/pkg/config"
	"github.com/angelmondragon/threadmart-backend/pkg/enums"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubResolver struct{}

func (stubResolver) Resolve(_ context.Context, userID uuid.UUID, role enums.UserRole) (access.Actor, error) {
	actor := access.Actor{UserID: userID, Role: role}
	if role == enums.UserRoleSeller {
		shopID := uuid.New()
		actor.ShopID = &shopID
	}
	return actor, nil
}

type memoryStore struct {
	mu     sync.Mutex
	values map[string]string
	counts map[string]int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}, counts: map[string]int64{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (m *memoryStore) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[scope]++
	return m.counts[scope] <= limit, m.counts[scope], nil
}

type stubCategories struct{}

func (stubCategories) Tree(context.Context) ([]*categories.CategoryDTO, error) {
	return []*categories.CategoryDTO{}, nil
}

func (stubCategories) Create(context.Context, access.Actor, categories.CreateCategoryInput) (*categories.CategoryDTO, error) {
	return &categories.CategoryDTO{}, nil
}

type stubDiscounts struct {
	discounts.Service
	created int
}

func (s *stubDiscounts) Create(_ context.Context, actor access.Actor, input discounts.CreateInput) (*discounts.DiscountDTO, error) {
	s.created++
	return &discounts.DiscountDTO{ID: uuid.New(), ShopID: *actor.ShopID, Name: input.Name}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:       config.AppConfig{Env: "test"},
		JWT:       config.JWTConfig{Secret: "router-secret", Issuer: "threadmart-test", ExpirationMinutes: 30},
		Checkout:  config.CheckoutConfig{IdempotencyTTL: time.Hour},
		RateLimit: config.RateLimitConfig{Window: time.Minute, Writes: 100, Orders: 2},
	}
}

func token(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	tok, err := auth.MintAccessToken(cfg.JWT, time.Now(), auth.AccessTokenPayload{UserID: uuid.New(), Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return tok
}

func newTestRouter(cfg *config.Config, store RequestStore, svc Services) http.Handler {
	return NewRouter(cfg, nil, Infra{
		Resolver: stubResolver{},
		Store:    store,
		Pingers:  []controllers.NamedPinger{{Name: "db", Pinger: stubPinger{}}},
	}, svc)
}

func do(h http.Handler, method, target, tok, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestRouter(testConfig(), nil, Services{})

	if rec := do(h, http.MethodGet, "/health/live", "", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("live: expected 200 got %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/health/ready", "", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("ready: expected 200 got %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/metrics", "", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200 got %d", rec.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	h := newTestRouter(testConfig(), nil, Services{})
	rec := do(h, http.MethodGet, "/health/live", "", "", nil)
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestPublicCatalogAllowsAnonymous(t *testing.T) {
	h := newTestRouter(testConfig(), nil, Services{Categories: stubCategories{}})

	rec := do(h, http.MethodGet, "/api/v1/categories", "", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestPrivateRoutesRequireToken(t *testing.T) {
	h := newTestRouter(testConfig(), nil, Services{})

	for _, target := range []string{"/api/v1/cart", "/api/v1/orders", "/api/v1/wishlist", "/api/v1/discounts", "/api/v1/admin/users"} {
		if rec := do(h, http.MethodGet, target, "", "", nil); rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 got %d", target, rec.Code)
		}
	}
}

func TestRoleGates(t *testing.T) {
	cfg := testConfig()
	h := newTestRouter(cfg, nil, Services{})
	shopper := token(t, cfg, enums.UserRoleShopper)
	seller := token(t, cfg, enums.UserRoleSeller)

	if rec := do(h, http.MethodGet, "/api/v1/admin/users", shopper, "", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("shopper on admin: expected 403 got %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/api/v1/admin/orders", seller, "", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("seller on admin: expected 403 got %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/api/v1/discounts", shopper, "", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("shopper on discounts: expected 403 got %d", rec.Code)
	}
}

func TestSellerCreatesDiscountWithReplay(t *testing.T) {
	cfg := testConfig()
	store := newMemoryStore()
	svc := &stubDiscounts{}
	h := newTestRouter(cfg, store, Services{Discounts: svc})
	seller := token(t, cfg, enums.UserRoleSeller)

	body := `{"name":"Spring","discount_type":"PERCENTAGE","discount_scope":"PRODUCT","value":"15"}`
	headers := map[string]string{"Idempotency-Key": "abc-123"}

	first := do(h, http.MethodPost, "/api/v1/discounts", seller, body, headers)
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", first.Code, first.Body.String())
	}
	second := do(h, http.MethodPost, "/api/v1/discounts", seller, body, headers)
	if second.Code != http.StatusCreated {
		t.Fatalf("replay: expected 201 got %d", second.Code)
	}
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replay header")
	}
	if svc.created != 1 {
		t.Fatalf("expected one create, got %d", svc.created)
	}
}

func TestOrderCreateRequiresIdempotencyKey(t *testing.T) {
	cfg := testConfig()
	h := newTestRouter(cfg, newMemoryStore(), Services{})
	shopper := token(t, cfg, enums.UserRoleShopper)

	rec := do(h, http.MethodPost, "/api/v1/orders", shopper, `{}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestOrderCreateRateLimited(t *testing.T) {
	cfg := testConfig()
	h := newTestRouter(cfg, newMemoryStore(), Services{})
	shopper := token(t, cfg, enums.UserRoleShopper)

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = do(h, http.MethodPost, "/api/v1/orders", shopper, `{}`, map[string]string{"Idempotency-Key": uuid.NewString()})
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on third order got %d", last.Code)
	}
}
