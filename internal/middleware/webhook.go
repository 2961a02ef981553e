package middleware

import (
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// WebhookAuthMiddleware rejects event deliveries that do not carry the
// shared secret, either as a bearer token or as the password segment of
// HTTP basic credentials. An empty secret disables the check entirely.
// This is the only distinguishable rejection on the ingestion path;
// everything past it is acknowledged uniformly.
func WebhookAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		if !webhookAuthorized(c.GetHeader("Authorization"), secret) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func webhookAuthorized(authHeader, secret string) bool {
	if authHeader == "" {
		return false
	}

	if bearer, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		return secretEqual(bearer, secret)
	}

	if encoded, ok := strings.CutPrefix(authHeader, "Basic "); ok {
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
		if err != nil {
			return false
		}
		credential := string(decoded)
		// The username is ignored; only the password segment counts.
		if _, password, found := strings.Cut(credential, ":"); found {
			return secretEqual(password, secret)
		}
		return secretEqual(credential, secret)
	}

	return false
}

func secretEqual(candidate, secret string) bool {
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(secret)) == 1
}
