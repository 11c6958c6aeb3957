// Package middleware provides HTTP middleware for the treasury service.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/tesoreria/backend/internal/infrastructure/telemetry"
)

// HTTPMetricsConfig holds configuration for the HTTP metrics middleware.
type HTTPMetricsConfig struct {
	MeterProvider *telemetry.MeterProvider
	ServiceName   string
	Enabled       bool
}

// httpInstruments are the per-request instruments. Request counts carry
// status and role; duration and sizes carry only method and route to keep
// series cardinality down.
type httpInstruments struct {
	requestTotal    *telemetry.Counter
	requestDuration *telemetry.Histogram
	requestSize     *telemetry.Histogram
	responseSize    *telemetry.Histogram
	activeRequests  metric.Int64UpDownCounter
}

var sizeBuckets = []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000, 1000000, 5000000}

func newHTTPInstruments(meter metric.Meter) (*httpInstruments, error) {
	inst := &httpInstruments{}
	var err error
	if inst.requestTotal, err = telemetry.NewCounter(meter,
		"http_server_request_total", "HTTP requests", "{request}"); err != nil {
		return nil, err
	}
	if inst.requestDuration, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "HTTP request latency",
		Unit:        "s",
		Boundaries:  telemetry.HTTPDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if inst.requestSize, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_size_bytes",
		Description: "HTTP request body size",
		Unit:        "By",
		Boundaries:  sizeBuckets,
	}); err != nil {
		return nil, err
	}
	if inst.responseSize, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_response_size_bytes",
		Description: "HTTP response body size",
		Unit:        "By",
		Boundaries:  sizeBuckets,
	}); err != nil {
		return nil, err
	}
	if inst.activeRequests, err = meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("In-flight HTTP requests"),
		metric.WithUnit("{request}")); err != nil {
		return nil, err
	}
	return inst, nil
}

func (inst *httpInstruments) handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()

		inst.activeRequests.Add(ctx, 1)
		c.Next()
		inst.activeRequests.Add(ctx, -1)

		// The matched pattern, not the raw path: "/api/v1/records/:id"
		// instead of one series per UUID.
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		base := []attribute.KeyValue{
			telemetry.AttrHTTPMethod.String(c.Request.Method),
			telemetry.AttrHTTPRoute.String(route),
		}

		counted := append(base, telemetry.AttrHTTPStatusCode.Int(c.Writer.Status()))
		if identity, ok := IdentityFrom(c); ok {
			counted = append(counted, telemetry.AttrUserRole.String(identity.Role.String()))
		}
		inst.requestTotal.Inc(ctx, counted...)

		inst.requestDuration.RecordDuration(ctx, time.Since(start), base...)
		if size := c.Request.ContentLength; size > 0 {
			inst.requestSize.Record(ctx, float64(size), base...)
		}
		if size := c.Writer.Size(); size > 0 {
			inst.responseSize.Record(ctx, float64(size), base...)
		}
	}
}

func passthrough(c *gin.Context) { c.Next() }

// HTTPMetrics returns a middleware recording per-request metrics. When
// metrics are disabled, or instrument registration fails, requests pass
// through unrecorded.
func HTTPMetrics(cfg HTTPMetricsConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.MeterProvider == nil || !cfg.MeterProvider.IsEnabled() {
		return passthrough
	}
	return HTTPMetricsWithMeter(cfg.MeterProvider.Meter("http.server"), true)
}

// HTTPMetricsWithMeter builds the middleware on a caller-supplied meter.
func HTTPMetricsWithMeter(meter metric.Meter, enabled bool) gin.HandlerFunc {
	if !enabled {
		return passthrough
	}
	inst, err := newHTTPInstruments(meter)
	if err != nil {
		return passthrough
	}
	return inst.handler()
}
