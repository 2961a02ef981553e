package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/athub-social/appview/internal/atproto"
	"github.com/athub-social/appview/internal/middleware"
	"github.com/athub-social/appview/internal/models"
)

// Gateway is the slice of the XRPC client the write path uses. The cache
// is never the system of record: every local mutation is submitted to the
// owner's repository first and only mirrored into the cache afterwards.
type Gateway interface {
	CreateRecord(ctx context.Context, session atproto.Session, collection string, record any) (atproto.CreatedRecord, error)
	PutRecord(ctx context.Context, session atproto.Session, collection, rkey string, record any) (atproto.CreatedRecord, error)
	DeleteRecord(ctx context.Context, session atproto.Session, collection, rkey string) error
	UploadBlob(ctx context.Context, session atproto.Session, contentType string, data []byte) (json.RawMessage, error)
	DescribeRepo(ctx context.Context, session atproto.Session, did string) (string, error)
}

// SessionStore resolves the stored PDS tokens for a signed-in DID.
type SessionStore interface {
	PDSSessionByDID(ctx context.Context, did string) (*models.PDSSession, error)
}

// loadPDSSession turns the request's local session into the PDS session
// needed for repository writes. It writes the error response itself and
// returns false when no usable session exists.
func loadPDSSession(c *gin.Context, store SessionStore) (atproto.Session, bool) {
	did := middleware.SessionDID(c)
	stored, err := store.PDSSessionByDID(c.Request.Context(), did)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return atproto.Session{}, false
	}
	if stored == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no active PDS session, sign in again"})
		return atproto.Session{}, false
	}
	return atproto.Session{
		DID:       stored.DID,
		Endpoint:  stored.Endpoint,
		AccessJWT: stored.AccessJWT,
	}, true
}

// gatewayError maps a failed repository write to a response. Remote
// rejections keep their status; transport failures read as bad gateway.
func gatewayError(c *gin.Context, err error) {
	if xe, ok := err.(*atproto.XRPCError); ok {
		c.JSON(xe.Status, gin.H{"error": xe.Error()})
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": "repository write failed"})
}
