package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardiopredict-server/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(handlers...)
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return router
}

func perform(router http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSecurityHeaders(t *testing.T) {
	rec := perform(newRouter(SecurityHeaders()), http.MethodGet, "/ping", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"), "HSTS only in release mode")
}

func TestCORS_Preflight(t *testing.T) {
	rec := perform(newRouter(CORS()), http.MethodOptions, "/ping", nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PUT")
}

func TestCORS_PreflightAllowsEveryRouteMethod(t *testing.T) {
	rec := perform(newRouter(CORS()), http.MethodOptions, "/ping", map[string]string{
		"Origin":                        "http://localhost:5173",
		"Access-Control-Request-Method": http.MethodPatch,
	})

	require.Equal(t, http.StatusNoContent, rec.Code)
	allowed := rec.Header().Get("Access-Control-Allow-Methods")
	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		assert.Contains(t, allowed, method)
	}
}

func TestRequestID(t *testing.T) {
	t.Run("generated", func(t *testing.T) {
		rec := perform(newRouter(RequestID()), http.MethodGet, "/ping", nil)
		assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
	})

	t.Run("propagated", func(t *testing.T) {
		var seen string
		router := gin.New()
		router.Use(RequestID())
		router.GET("/ping", func(c *gin.Context) {
			seen = GetRequestID(c)
			c.Status(http.StatusOK)
		})

		rec := perform(router, http.MethodGet, "/ping", map[string]string{RequestIDHeader: "req-42"})
		assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))
		assert.Equal(t, "req-42", seen)
	})
}

func TestRequestTimeout(t *testing.T) {
	router := gin.New()
	router.Use(RequestTimeout(20 * time.Millisecond))
	router.GET("/slow", func(c *gin.Context) {
		select {
		case <-c.Request.Context().Done():
			c.Status(http.StatusGatewayTimeout)
		case <-time.After(time.Second):
			c.Status(http.StatusOK)
		}
	})

	rec := perform(router, http.MethodGet, "/slow", nil)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

func TestAccessLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	router := newRouter(RequestID(), AccessLogger(logger))
	perform(router, http.MethodGet, "/ping", map[string]string{RequestIDHeader: "req-7"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-7", entry["request_id"])
	assert.Equal(t, "/ping", entry["path"])
	assert.Equal(t, float64(http.StatusOK), entry["status"])
	assert.Equal(t, "info", entry["level"])
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(domain.RateLimitConfig{RequestsPerSecond: 1, Burst: 2, IdleTTL: time.Minute})
	now := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"), "burst exhausted")
	assert.True(t, rl.Allow("10.0.0.2"), "clients have separate buckets")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("10.0.0.1"), "one token refilled")
}

func TestRateLimiter_DropsIdleClients(t *testing.T) {
	rl := NewRateLimiter(domain.RateLimitConfig{RequestsPerSecond: 5, Burst: 5, IdleTTL: time.Minute})
	now := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	rl.Allow("b")
	assert.Equal(t, 2, rl.Clients())

	now = now.Add(2 * time.Minute)
	rl.Allow("c")
	assert.Equal(t, 1, rl.Clients())
}

func TestRateLimit_Middleware(t *testing.T) {
	rl := NewRateLimiter(domain.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1})
	router := newRouter(RequestID(), RateLimit(rl))

	assert.Equal(t, http.StatusOK, perform(router, http.MethodGet, "/ping", nil).Code)

	rec := perform(router, http.MethodGet, "/ping", map[string]string{RequestIDHeader: "req-9"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	var apiErr domain.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, domain.ErrRateLimit, apiErr.Code)
	assert.Equal(t, "req-9", apiErr.RequestID)
}

func TestMetrics(t *testing.T) {
	router := newRouter(Metrics())

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/ping", http.MethodGet, "200"))
	perform(router, http.MethodGet, "/ping", nil)
	perform(router, http.MethodGet, "/missing", nil)

	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/ping", http.MethodGet, "200")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("unmatched", http.MethodGet, "404")), float64(1))
}
