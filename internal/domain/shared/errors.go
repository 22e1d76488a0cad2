package shared

import "errors"

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

// HasErrorCode reports whether err is a DomainError carrying the given code
func HasErrorCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}

// IsNotFound reports whether err is a NOT_FOUND domain error
func IsNotFound(err error) bool {
	return HasErrorCode(err, "NOT_FOUND")
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrIllegalTransition   = NewDomainError("ILLEGAL_TRANSITION", "Status transition not allowed")
	ErrInvalidPolicy       = NewDomainError("INVALID_POLICY", "Tolerance policy configuration is invalid")
	// ErrConcurrentUpdateConflict signals contention on the per-order critical
	// section. No partial write occurred; callers may retry with backoff.
	ErrConcurrentUpdateConflict = NewDomainError("CONCURRENT_UPDATE_CONFLICT", "Another reconciliation for this purchase order is in progress")
)
