package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func bodyLimitRouter(maxBytes int64) *gin.Engine {
	router := gin.New()
	router.Use(BodyLimit(maxBytes))
	router.POST("/api/v1/records", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})
	return router
}

func TestBodyLimit_AllowsSmallBody(t *testing.T) {
	router := bodyLimitRouter(1024)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/records", strings.NewReader("pequeño"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBodyLimit_RejectsDeclaredOversize(t *testing.T) {
	router := bodyLimitRouter(100)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/records", strings.NewReader(strings.Repeat("x", 200)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "REQUEST_TOO_LARGE")
}

func TestBodyLimit_CapsStreamedBody(t *testing.T) {
	router := bodyLimitRouter(50)

	// No Content-Length, so the declared-size check cannot fire; the
	// MaxBytesReader must stop the read instead.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/records", strings.NewReader(strings.Repeat("x", 200)))
	req.ContentLength = -1
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
