package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func performHandleError(t *testing.T, err error) (*httptest.ResponseRecorder, dto.Response) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := &BaseHandler{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/", nil)

	h.HandleError(c, err)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestBaseHandler_HandleErrorNotFound(t *testing.T) {
	w, resp := performHandleError(t, shared.NewDomainError("NOT_FOUND", "Invoice not found"))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "Invoice not found", resp.Error.Message)
}

func TestBaseHandler_HandleErrorOptimisticLock(t *testing.T) {
	w, resp := performHandleError(t,
		shared.NewDomainError("OPTIMISTIC_LOCK_ERROR", "The record has been modified by another transaction"))

	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeConcurrencyConflict, resp.Error.Code)
}

func TestBaseHandler_HandleErrorIllegalTransition(t *testing.T) {
	w, resp := performHandleError(t,
		shared.NewDomainError("ILLEGAL_TRANSITION", "Cannot approve an invoice in status DRAFT"))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeIllegalTransition, resp.Error.Code)
}

func TestBaseHandler_HandleErrorUnknownType(t *testing.T) {
	w, resp := performHandleError(t, assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeInternal, resp.Error.Code)
	// Raw error text never leaks to clients
	assert.NotContains(t, resp.Error.Message, assert.AnError.Error())
}
