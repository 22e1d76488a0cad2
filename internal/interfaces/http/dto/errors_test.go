package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		expected int
	}{
		{"not found maps to 404", ErrCodeNotFound, http.StatusNotFound},
		{"validation maps to 400", ErrCodeValidation, http.StatusBadRequest},
		{"page token maps to 400", ErrCodeInvalidPageToken, http.StatusBadRequest},
		{"unauthorized maps to 401", ErrCodeUnauthorized, http.StatusUnauthorized},
		{"concurrency conflict maps to 409", ErrCodeConcurrencyConflict, http.StatusConflict},
		{"concurrent update maps to 409", ErrCodeConcurrentUpdate, http.StatusConflict},
		{"illegal transition maps to 422", ErrCodeIllegalTransition, http.StatusUnprocessableEntity},
		{"invalid policy maps to 422", ErrCodeInvalidPolicy, http.StatusUnprocessableEntity},
		{"unlinked invoice maps to 422", ErrCodeUnlinkedInvoice, http.StatusUnprocessableEntity},
		{"unknown code maps to 500", "ERR_SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		expected string
	}{
		{"domain not found", "NOT_FOUND", ErrCodeNotFound},
		{"optimistic lock", "OPTIMISTIC_LOCK_ERROR", ErrCodeConcurrencyConflict},
		{"lock contention", "CONCURRENT_UPDATE_CONFLICT", ErrCodeConcurrentUpdate},
		{"illegal transition", "ILLEGAL_TRANSITION", ErrCodeIllegalTransition},
		{"unlinked invoice", "UNLINKED_INVOICE", ErrCodeUnlinkedInvoice},
		{"field validation", "INVALID_QUANTITY", ErrCodeValidation},
		{"already transport format", ErrCodeNotFound, ErrCodeNotFound},
		{"unknown passes through", "SOMETHING_ELSE", "SOMETHING_ELSE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.code))
		})
	}
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "Invoice not found", "req-123")

	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "Invoice not found", resp.Error.Message)
	assert.Equal(t, "req-123", resp.Error.RequestID)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{{Field: "invoice_number", Message: "This field is required"}}
	resp := NewValidationErrorResponse("Request validation failed", "req-456", details)

	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, details, resp.Error.Details)
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]string{"a"}, 41, 2, 20)

	assert.True(t, resp.Success)
	assert.Equal(t, int64(41), resp.Meta.Total)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}
