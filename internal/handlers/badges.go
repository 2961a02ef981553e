package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/athub-social/appview/internal/athub"
	"github.com/athub-social/appview/internal/models"
	"github.com/athub-social/appview/internal/services"
)

const maxBadgeCommentLen = 300

// RefResolver recovers the strong reference for a cached record.
type RefResolver interface {
	StrongRefByURI(ctx context.Context, uri string) (*athub.StrongRef, error)
}

// BadgeHandler handles badge listing and the badge write path.
type BadgeHandler struct {
	badges   *services.BadgeService
	refs     RefResolver
	sessions SessionStore
	gateway  Gateway
}

// NewBadgeHandler creates a new badge handler
func NewBadgeHandler(badges *services.BadgeService, refs RefResolver, sessions SessionStore, gateway Gateway) *BadgeHandler {
	return &BadgeHandler{badges: badges, refs: refs, sessions: sessions, gateway: gateway}
}

// List returns the badges awarded to one or more subjects. A single
// subjectUri yields a flat list; several yield a map keyed by subject.
func (h *BadgeHandler) List(c *gin.Context) {
	subjects := c.QueryArray("subjectUri")
	switch len(subjects) {
	case 0:
		c.JSON(http.StatusBadRequest, gin.H{"error": "subjectUri is required"})
	case 1:
		badges, err := h.badges.ListBadgesBySubject(c.Request.Context(), subjects[0])
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list badges"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"badges": badges})
	default:
		grouped, err := h.badges.ListBadgesBySubjects(c.Request.Context(), subjects)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list badges"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"badges": grouped})
	}
}

// Create awards a badge to a proposal or contribution. The subject must
// resolve in the cache first; its last-seen content hash is pinned into
// the award.
func (h *BadgeHandler) Create(c *gin.Context) {
	var req struct {
		SubjectURI string `json:"subjectUri"`
		BadgeType  string `json:"badgeType"`
		Comment    string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !athub.IsBadgeType(req.BadgeType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown badge type"})
		return
	}
	req.Comment = strings.TrimSpace(req.Comment)
	if req.Comment == "" || len(req.Comment) > maxBadgeCommentLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "comment is required and must be at most 300 characters"})
		return
	}

	ref, err := h.refs.StrongRefByURI(c.Request.Context(), req.SubjectURI)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve subject"})
		return
	}
	if ref == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "subject not found"})
		return
	}

	session, ok := loadPDSSession(c, h.sessions)
	if !ok {
		return
	}

	record := athub.BadgeRecord{
		Subject:   *ref,
		BadgeType: athub.BadgeType(req.BadgeType),
		Comment:   req.Comment,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	created, err := h.gateway.CreateRecord(c.Request.Context(), session, string(athub.CollectionBadge), record)
	if err != nil {
		gatewayError(c, err)
		return
	}
	rkey, ok := athub.RkeyFromURI(created.URI)
	if !ok {
		c.JSON(http.StatusBadGateway, gin.H{"error": "repository returned an unusable record URI"})
		return
	}

	badge := models.Badge{
		URI:        created.URI,
		DID:        session.DID,
		Rkey:       rkey,
		CID:        created.CID,
		SubjectURI: record.Subject.URI,
		SubjectCID: record.Subject.CID,
		BadgeType:  record.BadgeType,
		Comment:    record.Comment,
		CreatedAt:  record.CreatedAt,
		IndexedAt:  time.Now(),
	}
	if err := h.badges.UpsertBadge(c.Request.Context(), badge); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cache badge"})
		return
	}
	c.JSON(http.StatusCreated, badge)
}
