package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionConfig holds local session token configuration
type SessionConfig struct {
	Secret     string
	Expiration time.Duration
}

// SessionClaims identifies the acting repository owner.
type SessionClaims struct {
	DID    string `json:"did"`
	Handle string `json:"handle"`
	jwt.RegisteredClaims
}

// GenerateSessionToken creates a new signed session token for a DID
func GenerateSessionToken(did, handle string, config SessionConfig) (string, error) {
	claims := SessionClaims{
		DID:    did,
		Handle: handle,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(config.Expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.Secret))
}

// SessionMiddleware creates a Gin middleware that requires a valid
// session token and exposes the acting DID to handlers.
func SessionMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		token, err := jwt.ParseWithClaims(parts[1], &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		})
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
			c.Set("did", claims.DID)
			c.Set("handle", claims.Handle)
			c.Next()
		} else {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			c.Abort()
		}
	}
}

// SessionDID extracts the acting DID from context
func SessionDID(c *gin.Context) string {
	did, _ := c.Get("did")
	s, _ := did.(string)
	return s
}

// SessionHandle extracts the acting handle from context
func SessionHandle(c *gin.Context) string {
	handle, _ := c.Get("handle")
	s, _ := handle.(string)
	return s
}
