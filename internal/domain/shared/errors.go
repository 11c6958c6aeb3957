package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound         = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput     = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrPermissionDenied = NewDomainError("PERMISSION_DENIED", "Not allowed to perform this action")
	ErrAlreadyVoided    = NewDomainError("ALREADY_VOIDED", "Record is already voided")
	ErrUploadInFlight   = NewDomainError("UPLOAD_BUSY", "An upload for this document is already in progress")
	ErrNoRowsUpdated    = NewDomainError("NO_ROWS_UPDATED", "Update affected no rows")
)
