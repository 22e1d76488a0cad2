package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/procurement/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler_Health(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewHealthHandler(nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/health", nil)

	h.Health(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
	assert.NotEmpty(t, data["go_version"])
}

func TestHealthHandler_ReadyWithoutDatabase(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewHealthHandler(nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/ready", nil)

	h.Ready(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBaseHandler_HandleErrorNil(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := &BaseHandler{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.HandleError(c, nil)

	// No response written for nil errors
	assert.Empty(t, w.Body.Bytes())
}

func TestGetActor_FallbackOrder(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	actor, err := getActor(c, "body-actor")
	require.NoError(t, err)
	assert.Equal(t, "body-actor", actor)

	c.Set("jwt_actor", "token-actor")
	actor, err = getActor(c, "body-actor")
	require.NoError(t, err)
	assert.Equal(t, "token-actor", actor)

	c2, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, err = getActor(c2, "")
	assert.Error(t, err)
}
