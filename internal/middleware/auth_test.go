package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupIdentityRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/messages", IdentityMiddleware(), RequireConfirmedEmail(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"userID":      c.GetInt("userID"),
			"displayName": c.GetString("displayName"),
			"moderator":   c.GetBool("moderator"),
		})
	})
	return r
}

func TestIdentityMiddlewareResolvesHeaders(t *testing.T) {
	router := setupIdentityRouter()

	req := httptest.NewRequest(http.MethodPost, "/messages", nil)
	req.Header.Set("X-User-ID", "42")
	req.Header.Set("X-Display-Name", "ada")
	req.Header.Set("X-Moderator", "true")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, float64(42), resp["userID"])
	assert.Equal(t, "ada", resp["displayName"])
	assert.Equal(t, true, resp["moderator"])
}

func TestIdentityMiddlewareRejectsMissingUser(t *testing.T) {
	router := setupIdentityRouter()

	req := httptest.NewRequest(http.MethodPost, "/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireConfirmedEmailUsesWellKnownMessage(t *testing.T) {
	router := setupIdentityRouter()

	req := httptest.NewRequest(http.MethodPost, "/messages", nil)
	req.Header.Set("X-User-ID", "42")
	req.Header.Set("X-Email-Confirmed", "false")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, ErrEmailNotConfirmed, resp["error"])
}
