package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/me", SessionMiddleware(secret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"did": SessionDID(c), "handle": SessionHandle(c)})
	})
	return router
}

func TestSessionTokenRoundTrip(t *testing.T) {
	config := SessionConfig{Secret: "test-secret", Expiration: time.Hour}
	token, err := GenerateSessionToken("did:plc:alice", "alice.example.com", config)
	require.NoError(t, err)

	router := sessionRouter(config.Secret)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "did:plc:alice")
	assert.Contains(t, w.Body.String(), "alice.example.com")
}

func TestSessionMiddlewareRejections(t *testing.T) {
	config := SessionConfig{Secret: "test-secret", Expiration: time.Hour}
	token, err := GenerateSessionToken("did:plc:alice", "alice.example.com", config)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "not bearer", header: "Token " + token},
		{name: "garbage token", header: "Bearer not-a-jwt"},
		{name: "wrong secret", header: "Bearer " + token},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secret := config.Secret
			if tt.name == "wrong secret" {
				secret = "other-secret"
			}
			router := sessionRouter(secret)

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}
