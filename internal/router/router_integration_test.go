//go:build integration

package router_test

// End-to-end tests against real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"warehouse/internal/config"
	"warehouse/internal/dto"
	"warehouse/internal/infra"
	"warehouse/internal/model"
	"warehouse/internal/repository"
	"warehouse/internal/router"
	"warehouse/internal/service"
	"warehouse/internal/worker"

	"github.com/bsm/redislock"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"gorm.io/gorm"
)

const day = "2024-01-01"

// ── Helpers ──────────────────────────────────────────────────────────────────

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, srv *httptest.Server, method, path string, body *bytes.Buffer, token string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+path, body)
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// ── Test Suite Setup ─────────────────────────────────────────────────────────

type testEnv struct {
	server *httptest.Server
	token  string // admin JWT
	db     *gorm.DB
	rdb    *redis.Client
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("warehouse_test"),
		tcPostgres.WithUsername("warehouse"),
		tcPostgres.WithPassword("warehouse"),
		testcontainers.WithWaitStrategy(tcPostgres.BasicWaitStrategies()...),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Env:                "test",
		Timezone:           "UTC",
		JWTSecret:          "test-secret-key",
		JWTExpirationHours: 8,
		JWTRefreshHours:    24,
		DatabaseURL:        pgURL,
		RedisURL:           rdURL,
		DashboardCacheTTL:  time.Minute,
		LowStockThreshold:  5,
		AlertEmail:         "store@example.com",
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL, false)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	auth := service.NewAuthService(repository.NewUserRepository(db), cfg)
	_, err = auth.CreateUser(ctx, dto.CreateUserRequest{
		Username: "admin", Name: "Admin E2E", Password: "admin-pass-1", Role: model.RoleAdmin,
	})
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	routerCtx, cancel := context.WithCancel(ctx)
	t.Cleanup(cancel)
	engine, err := router.New(routerCtx, cfg, router.Deps{
		DB:         db,
		Redis:      rdb,
		Dispatcher: worker.NewDispatcher(rdb, cfg.AlertEmail),
	})
	require.NoError(t, err)

	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)

	resp := do(t, srv, http.MethodPost, "/v1/auth/login", jsonBody(t, dto.LoginRequest{Username: "admin", Password: "admin-pass-1"}), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login dto.LoginResponse
	decodeJSON(t, resp, &login)

	return &testEnv{server: srv, token: login.AccessToken, db: db, rdb: rdb}
}

func (e *testEnv) createProduct(t *testing.T, title string, qty int) uint {
	t.Helper()
	resp := do(t, e.server, http.MethodPost, "/v1/products", jsonBody(t, map[string]any{
		"title": title, "item_quantity": qty, "product_rate": "10.00", "item_bundle": 5,
	}), e.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var p dto.ProductResponse
	decodeJSON(t, resp, &p)
	return p.PID
}

func (e *testEnv) quantity(t *testing.T, pid uint) int {
	t.Helper()
	resp := do(t, e.server, http.MethodGet, fmt.Sprintf("/v1/products/%d", pid), nil, e.token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var p dto.ProductResponse
	decodeJSON(t, resp, &p)
	return p.ItemQuantity
}

func (e *testEnv) save(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	return do(t, e.server, http.MethodPost, path, jsonBody(t, body), e.token)
}

func items(pairs ...any) map[string]any {
	m := map[string]any{}
	for i := 0; i < len(pairs); i += 2 {
		m[fmt.Sprint(pairs[i])] = pairs[i+1]
	}
	return m
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestIntegration_StockLifecycle(t *testing.T) {
	env := setupTestEnv(t)
	p1 := env.createProduct(t, "LPG Cylinder 12.5kg", 50)

	// Issue 10, correct to 15, repeat 15.
	resp := env.save(t, "/v1/stock/issues", map[string]any{"date": day, "items": items(p1, 10)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 40, env.quantity(t, p1))

	resp = env.save(t, "/v1/stock/issues", map[string]any{"date": day, "items": items(p1, 15)})
	var saved dto.SaveMovementsResponse
	decodeJSON(t, resp, &saved)
	assert.Equal(t, 35, env.quantity(t, p1))
	require.Len(t, saved.Sheet.Rows, 1)
	assert.Equal(t, 15, saved.Sheet.Rows[0].IssuedQty)

	resp = env.save(t, "/v1/stock/issues", map[string]any{"date": day, "items": items(p1, 15)})
	decodeJSON(t, resp, &saved)
	assert.Equal(t, 0, saved.Changed)
	assert.Equal(t, 35, env.quantity(t, p1))

	// Return of the same date shares the movement row.
	resp = env.save(t, "/v1/stock/returns", map[string]any{"date": day, "items": items(p1, 15)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 50, env.quantity(t, p1))

	var rows int64
	require.NoError(t, env.db.Model(&model.Movement{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	// Losses and restock.
	resp = env.save(t, "/v1/stock/losses", map[string]any{"items": map[string]any{fmt.Sprint(p1): map[string]int{"gas_out_qty": 2, "expired_qty": 3}}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 45, env.quantity(t, p1))

	resp = env.save(t, "/v1/restocks", map[string]any{"date": day, "items": items(p1, 5)})
	var restocked dto.SaveRestockResponse
	decodeJSON(t, resp, &restocked)
	assert.Equal(t, 50, env.quantity(t, p1))
	require.Len(t, restocked.Restocks, 1)
	assert.Equal(t, "LPG Cylinder 12.5kg", restocked.Restocks[0].Title)
}

func TestIntegration_BatchIsAtomic(t *testing.T) {
	env := setupTestEnv(t)
	p1 := env.createProduct(t, "Cylinder A", 50)
	p2 := env.createProduct(t, "Cylinder B", 3)

	resp := env.save(t, "/v1/stock/issues", map[string]any{"date": day, "items": items(p1, 5, p2, 4)})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()

	assert.Equal(t, 50, env.quantity(t, p1))
	assert.Equal(t, 3, env.quantity(t, p2))

	var rows int64
	require.NoError(t, env.db.Model(&model.Movement{}).Count(&rows).Error)
	assert.Zero(t, rows)
}

func TestIntegration_WriteFailureRollsBackEarlierWrites(t *testing.T) {
	env := setupTestEnv(t)
	p1 := env.createProduct(t, "Cylinder A", 50)
	p2 := env.createProduct(t, "Cylinder B", 20)

	// p2 is written after p1 and its balance update is refused by the database.
	require.NoError(t, env.db.Exec(
		"ALTER TABLE products ADD CONSTRAINT chk_test_not_thirteen CHECK (item_quantity <> 13)").Error)

	resp := env.save(t, "/v1/stock/issues", map[string]any{"date": day, "items": items(p1, 5, p2, 7)})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	resp.Body.Close()

	assert.Equal(t, 50, env.quantity(t, p1))
	assert.Equal(t, 20, env.quantity(t, p2))

	var rows int64
	require.NoError(t, env.db.Model(&model.Movement{}).Where("p_id IN ?", []uint{p1, p2}).Count(&rows).Error)
	assert.Zero(t, rows)

	// The same batch goes through once the constraint is gone.
	require.NoError(t, env.db.Exec("ALTER TABLE products DROP CONSTRAINT chk_test_not_thirteen").Error)
	resp = env.save(t, "/v1/stock/issues", map[string]any{"date": day, "items": items(p1, 5, p2, 7)})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 45, env.quantity(t, p1))
	assert.Equal(t, 13, env.quantity(t, p2))
}

func TestIntegration_RestockWriteFailureLeavesNoLog(t *testing.T) {
	env := setupTestEnv(t)
	p1 := env.createProduct(t, "Cylinder A", 10)
	p2 := env.createProduct(t, "Cylinder B", 10)

	require.NoError(t, env.db.Exec(
		"ALTER TABLE products ADD CONSTRAINT chk_test_not_thirteen CHECK (item_quantity <> 13)").Error)

	resp := env.save(t, "/v1/restocks", map[string]any{"date": day, "items": items(p1, 2, p2, 3)})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	resp.Body.Close()

	assert.Equal(t, 10, env.quantity(t, p1))
	assert.Equal(t, 10, env.quantity(t, p2))

	var logged int64
	require.NoError(t, env.db.Model(&model.Restock{}).Count(&logged).Error)
	assert.Zero(t, logged)
}

func TestIntegration_UnknownProduct(t *testing.T) {
	env := setupTestEnv(t)
	p1 := env.createProduct(t, "Cylinder A", 10)

	resp := env.save(t, "/v1/restocks", map[string]any{"date": day, "items": items(p1, 5, 9999, 5)})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 10, env.quantity(t, p1))
}

func TestIntegration_BusySheetConflicts(t *testing.T) {
	env := setupTestEnv(t)
	p1 := env.createProduct(t, "Cylinder A", 10)

	lock, err := redislock.New(env.rdb).Obtain(context.Background(), "lock:stock:issue:"+day, time.Minute, nil)
	require.NoError(t, err)
	defer lock.Release(context.Background())

	resp := env.save(t, "/v1/stock/issues", map[string]any{"date": day, "items": items(p1, 1)})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 10, env.quantity(t, p1))
}

func TestIntegration_ConcurrentIssuesKeepBalance(t *testing.T) {
	env := setupTestEnv(t)
	p1 := env.createProduct(t, "Cylinder A", 100)

	// Different dates take different sheet locks, so only the row lock
	// serializes these writes.
	var wg sync.WaitGroup
	for i := 1; i <= 5; i++ {
		wg.Add(1)
		go func(d int) {
			defer wg.Done()
			resp := env.save(t, "/v1/stock/issues", map[string]any{
				"date": fmt.Sprintf("2024-01-%02d", d), "items": items(p1, 3),
			})
			resp.Body.Close()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 85, env.quantity(t, p1))
}

func TestIntegration_DashboardCacheInvalidated(t *testing.T) {
	env := setupTestEnv(t)
	p1 := env.createProduct(t, "Cylinder A", 10)

	var d dto.DashboardResponse
	decodeJSON(t, do(t, env.server, http.MethodGet, "/v1/dashboard", nil, env.token), &d)
	assert.Equal(t, 10, d.Summary.TotalItems)

	resp := env.save(t, "/v1/restocks", map[string]any{"date": day, "items": items(p1, 7)})
	resp.Body.Close()

	decodeJSON(t, do(t, env.server, http.MethodGet, "/v1/dashboard", nil, env.token), &d)
	assert.Equal(t, 17, d.Summary.TotalItems)
	assert.Equal(t, "170", d.Summary.TotalValue.String())
}

func TestIntegration_LowStockAlertQueued(t *testing.T) {
	env := setupTestEnv(t)
	p1 := env.createProduct(t, "Cylinder A", 8)

	resp := env.save(t, "/v1/stock/issues", map[string]any{"date": day, "items": items(p1, 4)})
	resp.Body.Close()

	n, err := env.rdb.LLen(context.Background(), worker.QueueEmail).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
