package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/tesoreria/backend/internal/domain/shared"
)

func collectedMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) (metricdata.Metrics, bool) {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func TestHTTPMetrics_RecordsRequestWithRouteAndStatus(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("http.server")

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(meter, true))
	router.GET("/api/v1/records/:kind/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records/expense/42", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	m, ok := collectedMetric(t, reader, "http_server_request_total")
	require.True(t, ok)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	dp := sum.DataPoints[0]
	assert.Equal(t, int64(1), dp.Value)

	route, found := dp.Attributes.Value("http.route")
	require.True(t, found)
	assert.Equal(t, "/api/v1/records/:kind/:id", route.AsString())
	status, found := dp.Attributes.Value("http.status_code")
	require.True(t, found)
	assert.Equal(t, int64(http.StatusOK), status.AsInt64())
}

func TestHTTPMetrics_RecordsRoleWhenAuthenticated(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("http.server")

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(IdentityKey, shared.Identity{Subject: "user-1", Role: shared.RoleAccountant})
		c.Next()
	})
	router.Use(HTTPMetricsWithMeter(meter, true))
	router.GET("/api/v1/records", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/records", nil))

	m, ok := collectedMetric(t, reader, "http_server_request_total")
	require.True(t, ok)
	sum := m.Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 1)
	role, found := sum.DataPoints[0].Attributes.Value("user_role")
	require.True(t, found)
	assert.Equal(t, shared.RoleAccountant.String(), role.AsString())
}

func TestHTTPMetrics_UnmatchedRouteCollapsesToUnknown(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("http.server")

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(meter, true))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/no/such/route", nil))

	m, ok := collectedMetric(t, reader, "http_server_request_total")
	require.True(t, ok)
	sum := m.Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 1)
	route, found := sum.DataPoints[0].Attributes.Value("http.route")
	require.True(t, found)
	assert.Equal(t, "unknown", route.AsString())
}

func TestHTTPMetrics_RecordsDurationAndSizes(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("http.server")

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(meter, true))
	router.POST("/api/v1/records", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/records", nil)
	req.ContentLength = 64
	router.ServeHTTP(httptest.NewRecorder(), req)

	duration, ok := collectedMetric(t, reader, "http_server_request_duration_seconds")
	require.True(t, ok)
	hist := duration.Data.(metricdata.Histogram[float64])
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)

	_, ok = collectedMetric(t, reader, "http_server_request_size_bytes")
	assert.True(t, ok)
	_, ok = collectedMetric(t, reader, "http_server_response_size_bytes")
	assert.True(t, ok)
}

func TestHTTPMetrics_DisabledPassesThrough(t *testing.T) {
	router := gin.New()
	router.Use(HTTPMetrics(HTTPMetricsConfig{Enabled: false}))
	router.GET("/api/v1/records", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/records", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
