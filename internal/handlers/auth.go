package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/athub-social/appview/internal/atproto"
	"github.com/athub-social/appview/internal/middleware"
	"github.com/athub-social/appview/internal/models"
	"github.com/athub-social/appview/internal/services"
)

// PDSAuthenticator exchanges an identifier and app password for a PDS
// token pair.
type PDSAuthenticator interface {
	CreateSession(ctx context.Context, pdsURL, identifier, password string) (*atproto.AuthSession, error)
}

// AuthHandler handles sign-in against the user's PDS and issues local
// session tokens.
type AuthHandler struct {
	authenticator PDSAuthenticator
	sessions      *services.SessionService
	accounts      *services.AccountService
	pdsURL        string
	sessionConfig middleware.SessionConfig
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authenticator PDSAuthenticator, sessions *services.SessionService, accounts *services.AccountService, pdsURL string, sessionConfig middleware.SessionConfig) *AuthHandler {
	return &AuthHandler{
		authenticator: authenticator,
		sessions:      sessions,
		accounts:      accounts,
		pdsURL:        pdsURL,
		sessionConfig: sessionConfig,
	}
}

// Login authenticates against the PDS with an app password. The password
// is forwarded and never stored; only the returned token pair is kept.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Identifier string `json:"identifier" binding:"required"`
		Password   string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "identifier and password are required"})
		return
	}

	auth, err := h.authenticator.CreateSession(c.Request.Context(), h.pdsURL, req.Identifier, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "login failed"})
		return
	}

	now := time.Now()
	err = h.sessions.SavePDSSession(c.Request.Context(), models.PDSSession{
		DID:        auth.DID,
		Handle:     auth.Handle,
		Endpoint:   h.pdsURL,
		AccessJWT:  auth.AccessJWT,
		RefreshJWT: auth.RefreshJWT,
		UpdatedAt:  now,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save session"})
		return
	}

	// Seed the handle cache so the user's own records render with a
	// handle before any identity event arrives.
	_ = h.accounts.UpsertAccount(c.Request.Context(), models.Account{
		DID:       auth.DID,
		Handle:    auth.Handle,
		Active:    true,
		IndexedAt: now,
	})

	token, err := middleware.GenerateSessionToken(auth.DID, auth.Handle, h.sessionConfig)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":  token,
		"did":    auth.DID,
		"handle": auth.Handle,
	})
}

// Logout drops the stored PDS tokens for the acting DID.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.DeletePDSSession(c.Request.Context(), middleware.SessionDID(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Me returns the acting identity from the session token.
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"did":    middleware.SessionDID(c),
		"handle": middleware.SessionHandle(c),
	})
}
