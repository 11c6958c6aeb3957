package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// maxRequestIDLength caps request IDs taken from client headers.
const maxRequestIDLength = 128

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// Tracing returns the request tracing middleware with default settings.
func Tracing() gin.HandlerFunc {
	return TracingWithConfig(TracingConfig{ServiceName: "tesoreria-backend", Enabled: true})
}

// TracingWithConfig opens one span per request via otelgin. Span names follow
// otelgin's "METHOD route_pattern" convention. Custom attributes are added by
// SpanErrorMarker and TracingAttributeInjector, which run inside the span;
// otelgin restores the original request context before returning, so
// annotation cannot happen after the fact.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return passthrough
	}
	return otelgin.Middleware(cfg.ServiceName)
}

// SpanErrorMarker annotates the request span with the request ID and marks
// it failed on 4xx and 5xx responses. Place it after the Tracing middleware.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if requestID := requestIDFrom(c); requestID != "" {
				span.SetAttributes(attribute.String("request_id", requestID))
			}
		}

		c.Next()

		if !span.IsRecording() {
			return
		}
		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			return
		}
		message := http.StatusText(status)
		if message == "" {
			message = "Client Error"
		}
		span.SetStatus(codes.Error, message)
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
}

// TracingAttributeInjector annotates the span with the caller identity. Place
// it after both Tracing and the JWT middleware, so the identity is set.
func TracingAttributeInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		if span := trace.SpanFromContext(c.Request.Context()); span.IsRecording() {
			if identity, ok := IdentityFrom(c); ok {
				if identity.Subject != "" {
					span.SetAttributes(attribute.String("user_id", identity.Subject))
				}
				span.SetAttributes(attribute.String("user_role", identity.Role.String()))
			}
		}
		c.Next()
	}
}

// requestIDFrom prefers the ID set by the RequestID middleware and falls back
// to the raw header, truncated so oversized client values cannot bloat spans.
func requestIDFrom(c *gin.Context) string {
	if v, ok := c.Get("request_id"); ok {
		if id, ok := v.(string); ok && id != "" {
			return id
		}
	}
	headerID := c.GetHeader("X-Request-ID")
	if len(headerID) > maxRequestIDLength {
		return headerID[:maxRequestIDLength]
	}
	return headerID
}
