package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/xiebiao/bookstore-core/pkg/errors"
	"github.com/xiebiao/bookstore-core/pkg/jwt"
	"github.com/xiebiao/bookstore-core/pkg/metrics"
	"github.com/xiebiao/bookstore-core/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func newAuthRouter(m *jwt.Manager) *gin.Engine {
	auth := NewAuthMiddleware(m)
	r := gin.New()
	r.GET("/me", auth.RequireAuth(), func(c *gin.Context) {
		response.Success(c, gin.H{"user_id": MustGetUserID(c), "role": GetRole(c)})
	})
	r.GET("/admin", auth.RequireAuth(), auth.RequireAdmin(), func(c *gin.Context) {
		response.Success(c, nil)
	})
	return r
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth_ValidToken(t *testing.T) {
	m := jwt.NewManager("test-secret", time.Hour)
	token, err := m.Issue(42, jwt.RoleUser)
	require.NoError(t, err)

	w := get(newAuthRouter(m), "/me", token)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, 0, body.Code)
	data := body.Data.(map[string]interface{})
	assert.Equal(t, float64(42), data["user_id"])
	assert.Equal(t, "user", data["role"])
}

func TestRequireAuth_MissingToken(t *testing.T) {
	w := get(newAuthRouter(jwt.NewManager("test-secret", time.Hour)), "/me", "")
	assert.Equal(t, apperrors.ErrCodeUnauthorized, decode(t, w).Code)
}

func TestRequireAuth_MalformedHeader(t *testing.T) {
	r := newAuthRouter(jwt.NewManager("test-secret", time.Hour))
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, apperrors.ErrCodeInvalidToken, decode(t, w).Code)
}

func TestRequireAuth_WrongSecret(t *testing.T) {
	token, err := jwt.NewManager("other-secret", time.Hour).Issue(1, jwt.RoleUser)
	require.NoError(t, err)

	w := get(newAuthRouter(jwt.NewManager("test-secret", time.Hour)), "/me", token)
	assert.Equal(t, apperrors.ErrCodeInvalidToken, decode(t, w).Code)
}

func TestRequireAdmin(t *testing.T) {
	m := jwt.NewManager("test-secret", time.Hour)
	r := newAuthRouter(m)

	userToken, err := m.Issue(1, jwt.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, apperrors.ErrCodeForbidden, decode(t, get(r, "/admin", userToken)).Code)

	adminToken, err := m.Issue(2, jwt.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, 0, decode(t, get(r, "/admin", adminToken)).Code)
}

func TestRequestLogger_SetsRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	w := get(r, "/test", "")
	require.Equal(t, http.StatusOK, w.Code)
	id := w.Header().Get(RequestIDHeader)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, "client-supplied")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "client-supplied", w.Header().Get(RequestIDHeader))
}

func TestMetrics_RecordsRouteTemplate(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/orders/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	get(r, "/orders/1", "")
	get(r, "/orders/2", "")
	get(r, "/nowhere", "")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/orders/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.HTTPRequestsInProgress))
}

func TestTracing_PassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(Tracing(), RequestLogger())
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := get(r, "/test", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}
