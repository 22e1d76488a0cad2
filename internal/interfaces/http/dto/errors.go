package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeInvalidPageToken is used when a listing cursor cannot be decoded
	ErrCodeInvalidPageToken = "ERR_INVALID_PAGE_TOKEN"
)

// Authentication error codes
const (
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeForbidden is used when the actor lacks permission
	ErrCodeForbidden = "ERR_FORBIDDEN"
	// ErrCodeTokenExpired is used when the auth token has expired
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	// ErrCodeTokenInvalid is used when the auth token is invalid
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	// ErrCodeConcurrentUpdate is used when the per-order critical section is
	// contended; the request is safe to retry
	ErrCodeConcurrentUpdate = "ERR_CONCURRENT_UPDATE"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeBusinessRule is used for generic business rule violations
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
	// ErrCodeIllegalTransition is used when an invoice status transition is not allowed
	ErrCodeIllegalTransition = "ERR_ILLEGAL_TRANSITION"
	// ErrCodeInvalidPolicy is used when the tolerance rule set fails validation
	ErrCodeInvalidPolicy = "ERR_INVALID_POLICY"
	// ErrCodeUnlinkedInvoice is used when matching is requested for an invoice
	// that has no purchase order link
	ErrCodeUnlinkedInvoice = "ERR_UNLINKED_INVOICE"
	// ErrCodeInvalidMatchInput is used when match inputs are inconsistent
	ErrCodeInvalidMatchInput = "ERR_INVALID_MATCH_INPUT"
)

// Rate limiting error codes
const (
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation and input errors -> 400 Bad Request
	ErrCodeValidation:       http.StatusBadRequest,
	ErrCodeBadRequest:       http.StatusBadRequest,
	ErrCodeInvalidInput:     http.StatusBadRequest,
	ErrCodeInvalidJSON:      http.StatusBadRequest,
	ErrCodeInvalidPageToken: http.StatusBadRequest,

	// Auth errors
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeConcurrentUpdate:    http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:      http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:      http.StatusUnprocessableEntity,
	ErrCodeIllegalTransition: http.StatusUnprocessableEntity,
	ErrCodeInvalidPolicy:     http.StatusUnprocessableEntity,
	ErrCodeUnlinkedInvoice:   http.StatusUnprocessableEntity,
	ErrCodeInvalidMatchInput: http.StatusUnprocessableEntity,

	// Rate limiting -> 429 Too Many Requests
	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to transport codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":                  ErrCodeNotFound,
	"ALREADY_EXISTS":             ErrCodeAlreadyExists,
	"INVALID_INPUT":              ErrCodeInvalidInput,
	"INVALID_STATE":              ErrCodeInvalidState,
	"UNAUTHORIZED":               ErrCodeUnauthorized,
	"FORBIDDEN":                  ErrCodeForbidden,
	"CONCURRENCY_CONFLICT":       ErrCodeConcurrencyConflict,
	"OPTIMISTIC_LOCK_ERROR":      ErrCodeConcurrencyConflict,
	"CONCURRENT_UPDATE_CONFLICT": ErrCodeConcurrentUpdate,
	"ILLEGAL_TRANSITION":         ErrCodeIllegalTransition,
	"INVALID_POLICY":             ErrCodeInvalidPolicy,
	"UNLINKED_INVOICE":           ErrCodeUnlinkedInvoice,
	"INVALID_MATCH_INPUT":        ErrCodeInvalidMatchInput,
	"INVALID_MATCH_RESULT":       ErrCodeInvalidMatchInput,
	"INVALID_AGGREGATION":        ErrCodeInvalidMatchInput,
	"INVALID_PAGE_TOKEN":         ErrCodeInvalidPageToken,
	"INVALID_QUANTITY":           ErrCodeValidation,
	"INVALID_PRICE":              ErrCodeValidation,
	"INVALID_PRODUCT":            ErrCodeValidation,
	"INVALID_PO_LINE":            ErrCodeValidation,
	"INVALID_ORDER":              ErrCodeValidation,
	"INVALID_ORDER_NUMBER":       ErrCodeValidation,
	"INVALID_RECEIPT_NUMBER":     ErrCodeValidation,
	"INVALID_INVOICE_NUMBER":     ErrCodeValidation,
	"INVALID_VENDOR":             ErrCodeValidation,
	"INVALID_REASON":             ErrCodeValidation,
	"INVALID_ACTOR":              ErrCodeValidation,
	"INVALID_JUSTIFICATION":      ErrCodeValidation,
	"INVALID_LEVEL":              ErrCodeValidation,
	"NO_LINES":                   ErrCodeValidation,
	"ALREADY_LINKED":             ErrCodeConflict,
	"DUPLICATE_PO_LINE":          ErrCodeValidation,
	"DUPLICATE_PRODUCT":          ErrCodeValidation,
}

// NormalizeErrorCode converts a domain error code to the transport format.
// Codes already in the transport format or unknown pass through unchanged.
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
