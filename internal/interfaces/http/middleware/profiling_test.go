package middleware

import (
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesoreria/backend/internal/domain/shared"
)

// labelCapture records the pprof labels visible inside the handler.
type labelCapture map[string]string

func captureHandler(captured labelCapture, keys ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, key := range keys {
			if value, ok := pprof.Label(c.Request.Context(), key); ok {
				captured[key] = value
			}
		}
		c.Status(http.StatusOK)
	}
}

func TestProfiling_LabelsRouteMethodController(t *testing.T) {
	captured := labelCapture{}
	router := gin.New()
	router.Use(Profiling())
	router.GET("/api/v1/records/:kind/:id", captureHandler(captured, "route", "method", "controller"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/records/expense/42", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "/api/v1/records/:kind/:id", captured["route"])
	assert.Equal(t, "GET", captured["method"])
	assert.Equal(t, "records", captured["controller"])
}

func TestProfiling_LabelsRoleWhenAuthenticated(t *testing.T) {
	captured := labelCapture{}
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(IdentityKey, shared.Identity{Subject: "user-1", Role: shared.RoleAccountant})
		c.Next()
	})
	router.Use(Profiling())
	router.GET("/api/v1/records", captureHandler(captured, "role"))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/records", nil))

	assert.Equal(t, shared.RoleAccountant.String(), captured["role"])
}

func TestProfiling_SkipsConfiguredPaths(t *testing.T) {
	captured := labelCapture{}
	router := gin.New()
	router.Use(Profiling())
	router.GET("/health", captureHandler(captured, "route", "method"))
	router.GET("/swagger/index.html", captureHandler(captured, "route", "method"))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))

	assert.Empty(t, captured)
}

func TestProfiling_DisabledAddsNoLabels(t *testing.T) {
	captured := labelCapture{}
	router := gin.New()
	router.Use(ProfilingWithConfig(ProfilingConfig{Enabled: false}))
	router.GET("/api/v1/records", captureHandler(captured, "route"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/records", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, captured)
}

func TestControllerFromRoute(t *testing.T) {
	cases := map[string]string{
		"/api/v1/records/:kind/:id": "records",
		"/api/v1/agreements":        "agreements",
		"/api/v2/vouchers/:id":      "vouchers",
		"/health":                   "health",
		"":                          "",
	}
	for route, want := range cases {
		assert.Equal(t, want, controllerFromRoute(route), "route %q", route)
	}
}
