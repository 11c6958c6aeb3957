package dto

import (
	"net/http"
	"strings"
)

// Wire-level error codes. Handlers may pass either one of these or a raw
// domain code; NormalizeErrorCode translates the latter.
const (
	ErrCodeInternal   = "ERR_INTERNAL"
	ErrCodeBadRequest = "ERR_BAD_REQUEST"

	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"

	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"

	ErrCodeNotFound      = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	ErrCodeConflict      = "ERR_CONFLICT"

	// Document lifecycle failures.
	ErrCodeUploadBusy      = "ERR_UPLOAD_BUSY"
	ErrCodeUnsupportedType = "ERR_UNSUPPORTED_TYPE"
	ErrCodeRenderFailed    = "ERR_RENDER_FAILED"
	ErrCodeInvalidState    = "ERR_INVALID_STATE"

	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// GetHTTPStatus returns the HTTP status a given error code maps to.
// Codes without a mapping report as internal server errors.
func GetHTTPStatus(code string) int {
	switch code {
	case ErrCodeValidation, ErrCodeInvalidInput, ErrCodeInvalidJSON,
		ErrCodeBadRequest, ErrCodeUnsupportedType:
		return http.StatusBadRequest
	case ErrCodeUnauthorized, ErrCodeTokenExpired, ErrCodeTokenInvalid:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeAlreadyExists, ErrCodeConflict, ErrCodeUploadBusy:
		return http.StatusConflict
	case ErrCodeInvalidState:
		return http.StatusUnprocessableEntity
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeRenderFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// domainCodes maps the codes produced by the domain layer onto the wire
// convention above.
var domainCodes = map[string]string{
	"NOT_FOUND":         ErrCodeNotFound,
	"ALREADY_EXISTS":    ErrCodeAlreadyExists,
	"INVALID_INPUT":     ErrCodeInvalidInput,
	"INVALID_STATE":     ErrCodeInvalidState,
	"UNAUTHORIZED":      ErrCodeUnauthorized,
	"FORBIDDEN":         ErrCodeForbidden,
	"PERMISSION_DENIED": ErrCodeForbidden,
	"ALREADY_VOIDED":    ErrCodeConflict,
	"NO_ROWS_UPDATED":   ErrCodeConflict,
	"VOID_FAILED":       ErrCodeConflict,
	"UPLOAD_BUSY":       ErrCodeUploadBusy,
	"UNSUPPORTED_TYPE":  ErrCodeUnsupportedType,
	"EMPTY_UPLOAD":      ErrCodeBadRequest,
	"RENDER_FAILED":     ErrCodeRenderFailed,
	"VALIDATION_ERROR":  ErrCodeValidation,
	"BAD_REQUEST":       ErrCodeBadRequest,
	"INTERNAL_ERROR":    ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the wire format.
// Unmapped INVALID_* codes collapse into ErrCodeInvalidInput; anything else
// unknown passes through unchanged.
func NormalizeErrorCode(code string) string {
	if wire, ok := domainCodes[code]; ok {
		return wire
	}
	if strings.HasPrefix(code, "INVALID_") {
		return ErrCodeInvalidInput
	}
	return code
}
