package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"warehouse/internal/config"
	"warehouse/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "router-test-secret"

func newEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	r, err := New(ctx, &config.Config{Env: "test", JWTSecret: testSecret, JWTExpirationHours: 1}, Deps{})
	require.NoError(t, err)
	return r
}

func token(t *testing.T, role string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "00000000-0000-0000-0000-000000000001",
		"role":    role,
		"typ":     model.TokenTypeAccess,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func request(r http.Handler, method, path, tok, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRoutes_RequireAuth(t *testing.T) {
	r := newEngine(t)

	for _, path := range []string{"/v1/dashboard", "/v1/products", "/v1/stock/issues", "/v1/stock/returns", "/v1/stock/losses", "/v1/restocks"} {
		assert.Equal(t, http.StatusUnauthorized, request(r, http.MethodGet, path, "", "").Code, path)
	}
}

func TestRoutes_ViewerCannotWrite(t *testing.T) {
	r := newEngine(t)
	viewer := token(t, model.RoleViewer)

	writes := []string{"/v1/stock/issues", "/v1/stock/returns", "/v1/stock/losses", "/v1/restocks", "/v1/products"}
	for _, path := range writes {
		assert.Equal(t, http.StatusForbidden, request(r, http.MethodPost, path, viewer, `{}`).Code, path)
	}
}

func TestRoutes_StorekeeperCannotEditCatalog(t *testing.T) {
	r := newEngine(t)
	keeper := token(t, model.RoleStorekeeper)

	assert.Equal(t, http.StatusForbidden, request(r, http.MethodPost, "/v1/products", keeper, `{}`).Code)
	assert.Equal(t, http.StatusForbidden, request(r, http.MethodPut, "/v1/products/1", keeper, `{}`).Code)
	// Passes the role check and fails validation before touching the database.
	assert.Equal(t, http.StatusUnprocessableEntity, request(r, http.MethodPost, "/v1/stock/issues", keeper, `{"items":{"1":-1}}`).Code)
}

func TestRoutes_RequestIDHeader(t *testing.T) {
	r := newEngine(t)

	w := request(r, http.MethodGet, "/v1/products", "", "")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestNew_BadTimezone(t *testing.T) {
	_, err := New(context.Background(), &config.Config{Timezone: "Nowhere/Land"}, Deps{})
	assert.Error(t, err)
}
