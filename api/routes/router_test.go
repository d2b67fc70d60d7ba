package routes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/cakeverse/cakeverse-backend/internal/complaints"
	"github.com/cakeverse/cakeverse-backend/internal/wallet"
	pkgAuth "github.com/cakeverse/cakeverse-backend/pkg/auth"
	"github.com/cakeverse/cakeverse-backend/pkg/config"
	"github.com/cakeverse/cakeverse-backend/pkg/db/models"
	"github.com/cakeverse/cakeverse-backend/pkg/enums"
	"github.com/cakeverse/cakeverse-backend/pkg/logger"
	"github.com/cakeverse/cakeverse-backend/pkg/pagination"
)

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type stubWalletService struct {
	wallet.Service
}

func (stubWalletService) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	return &models.Wallet{ID: uuid.New(), UserID: userID, Balance: decimal.NewFromInt(1000)}, nil
}

type stubComplaintService struct {
	complaints.Service
}

func (stubComplaintService) ListPending(ctx context.Context, params pagination.Params) (*complaints.ComplaintList, error) {
	return &complaints.ComplaintList{Complaints: []complaints.ComplaintView{}}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
		RateLimit: config.RateLimitConfig{Window: time.Minute},
	}
}

func newTestRouter(cfg *config.Config, deps Dependencies) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	if deps.Wallets == nil {
		deps.Wallets = stubWalletService{}
	}
	if deps.Complaints == nil {
		deps.Complaints = stubComplaintService{}
	}
	if deps.Tokens == nil {
		tokens, err := pkgAuth.NewTokens(cfg.JWT)
		if err != nil {
			panic(err)
		}
		deps.Tokens = tokens
	}
	return NewRouter(cfg, logg, deps)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.Role) string {
	t.Helper()
	tokens, err := pkgAuth.NewTokens(cfg.JWT)
	if err != nil {
		t.Fatalf("token issuer: %v", err)
	}
	token, err := tokens.Mint(pkgAuth.Actor{UserID: uuid.New(), Role: role}, time.Now())
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig(), Dependencies{})
	resp := serve(router, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestHealthReadyReportsFailingDependency(t *testing.T) {
	router := newTestRouter(testConfig(), Dependencies{
		DB:    stubPinger{},
		Redis: stubPinger{err: errors.New("connection refused")},
	})
	resp := serve(router, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestMetricsExposesRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	router := newTestRouter(testConfig(), Dependencies{Gatherer: registry})
	resp := serve(router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestWalletRequiresJWT(t *testing.T) {
	router := newTestRouter(testConfig(), Dependencies{})
	resp := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestWalletSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, Dependencies{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleCustomer))
	resp := serve(router, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestPayRequiresIdempotencyKey(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, Dependencies{Idempotency: newMemoryIdempotencyStore()})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+uuid.NewString()+"/pay", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleCustomer))
	resp := serve(router, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without Idempotency-Key got %d", resp.Code)
	}
}

func TestShopRoutesRequireShopOwner(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, Dependencies{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/shop/"+uuid.NewString()+"/orders", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleCustomer))
	resp := serve(router, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer got %d", resp.Code)
	}
}

func TestStaffComplaintsRequireStaffCapability(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, Dependencies{})

	customer := httptest.NewRequest(http.MethodGet, "/api/staff/v1/complaints", nil)
	customer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleCustomer))
	if resp := serve(router, customer); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer got %d", resp.Code)
	}

	staff := httptest.NewRequest(http.MethodGet, "/api/staff/v1/complaints", nil)
	staff.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleStaff))
	if resp := serve(router, staff); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for staff got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAdminWithdrawalsRejectStaff(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, Dependencies{})
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/withdrawals", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleStaff))
	if resp := serve(router, req); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff got %d", resp.Code)
	}
}

type memoryIdempotencyStore struct {
	values map[string]string
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{values: map[string]string{}}
}

func (m *memoryIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	return m.values[key], nil
}

func (m *memoryIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "idempotency:" + scope + ":" + id
}

func (m *memoryIdempotencyStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}
