package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tesoreria/backend/internal/domain/shared"
	"github.com/tesoreria/backend/internal/interfaces/http/dto"
	"github.com/tesoreria/backend/internal/interfaces/http/middleware"
)

// RequestIDKey is the gin context key carrying the request ID.
const RequestIDKey = "request_id"

// BaseHandler carries the response helpers shared by every handler.
type BaseHandler struct{}

func getRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader("X-Request-ID")
}

// requireIdentity extracts the authenticated identity or aborts with 401.
func (h *BaseHandler) requireIdentity(c *gin.Context) (shared.Identity, bool) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return shared.Identity{}, false
	}
	return identity, true
}

// ok writes a success payload, optionally tagged with an advisory warning.
func (h *BaseHandler) ok(c *gin.Context, status int, data any, warning string) {
	if warning != "" {
		c.JSON(status, dto.NewSuccessResponseWithWarning(data, warning))
		return
	}
	c.JSON(status, dto.NewSuccessResponse(data))
}

// fail writes an error payload tagged with the request ID.
func (h *BaseHandler) fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// Success sends a 200 response wrapping data.
func (h *BaseHandler) Success(c *gin.Context, data any) { h.ok(c, http.StatusOK, data, "") }

// SuccessWithWarning sends a 200 response with an advisory warning.
func (h *BaseHandler) SuccessWithWarning(c *gin.Context, data any, warning string) {
	h.ok(c, http.StatusOK, data, warning)
}

// SuccessWithMeta sends a 200 response with pagination meta.
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 response wrapping data.
func (h *BaseHandler) Created(c *gin.Context, data any) { h.ok(c, http.StatusCreated, data, "") }

// CreatedWithWarning sends a 201 response with an advisory warning.
func (h *BaseHandler) CreatedWithWarning(c *gin.Context, data any, warning string) {
	h.ok(c, http.StatusCreated, data, warning)
}

// NoContent sends an empty 204 response.
func (h *BaseHandler) NoContent(c *gin.Context) { c.Status(http.StatusNoContent) }

// Error sends an error response with an explicit status code.
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	h.fail(c, statusCode, code, message)
}

// ErrorWithCode sends an error response, deriving the status from the code.
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.fail(c, dto.GetHTTPStatus(code), code, message)
}

func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.fail(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.fail(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.fail(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

func (h *BaseHandler) Forbidden(c *gin.Context, message string) {
	h.fail(c, http.StatusForbidden, dto.ErrCodeForbidden, message)
}

func (h *BaseHandler) Conflict(c *gin.Context, message string) {
	h.fail(c, http.StatusConflict, dto.ErrCodeConflict, message)
}

func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.fail(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// ValidationError sends a 400 response carrying per-field details.
func (h *BaseHandler) ValidationError(c *gin.Context, details []dto.ValidationDetail) {
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
		"Request validation failed",
		getRequestID(c),
		details,
	))
}

// HandleError converts domain errors to HTTP responses. Domain error codes
// map to their closest HTTP status; anything unrecognized becomes a 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		h.fail(c, dto.GetHTTPStatus(code), code, domainErr.Message)
		return
	}
	h.fail(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
}
