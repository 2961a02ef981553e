package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/athub-social/appview/internal/athub"
	"github.com/athub-social/appview/internal/middleware"
	"github.com/athub-social/appview/internal/models"
	"github.com/athub-social/appview/internal/services"
)

const (
	maxProposalTitleLen = 100
	maxProposalBodyLen  = 3000
)

// ProposalStore is the slice of the proposal cache this handler uses.
type ProposalStore interface {
	UpsertProposal(ctx context.Context, proposal models.Proposal) error
	ListProposalsByQuest(ctx context.Context, questURI string, limit int) ([]services.ProposalView, error)
	GetProposalByDidRkey(ctx context.Context, did, rkey string) (*services.ProposalView, error)
}

// QuestGetter resolves a quest by URI.
type QuestGetter interface {
	GetQuestByURI(ctx context.Context, uri string) (*models.Quest, error)
}

// ProposalHandler handles proposal listing and the proposal write path.
type ProposalHandler struct {
	proposals ProposalStore
	quests    QuestGetter
	sessions  SessionStore
	gateway   Gateway
}

// NewProposalHandler creates a new proposal handler
func NewProposalHandler(proposals ProposalStore, quests QuestGetter, sessions SessionStore, gateway Gateway) *ProposalHandler {
	return &ProposalHandler{proposals: proposals, quests: quests, sessions: sessions, gateway: gateway}
}

// List returns a quest's proposals, newest first.
func (h *ProposalHandler) List(c *gin.Context) {
	questURI := c.Query("questUri")
	if questURI == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "questUri is required"})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	proposals, err := h.proposals.ListProposalsByQuest(c.Request.Context(), questURI, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list proposals"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"proposals": proposals})
}

// Create submits a new proposal against a quest. The quest must already
// be cached; its last-seen content hash becomes the strong reference.
func (h *ProposalHandler) Create(c *gin.Context) {
	var req struct {
		QuestURI string `json:"questUri"`
		Title    string `json:"title"`
		Body     string `json:"body"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || len(req.Title) > maxProposalTitleLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required and must be at most 100 characters"})
		return
	}
	if len(req.Body) > maxProposalBodyLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be at most 3000 characters"})
		return
	}

	quest, err := h.quests.GetQuestByURI(c.Request.Context(), req.QuestURI)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve quest"})
		return
	}
	if quest == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "quest not found"})
		return
	}

	session, ok := loadPDSSession(c, h.sessions)
	if !ok {
		return
	}

	record := athub.ProposalRecord{
		RepoRef:   athub.StrongRef{URI: quest.URI, CID: quest.CID},
		Title:     req.Title,
		State:     athub.ProposalOpen,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if body := strings.TrimSpace(req.Body); body != "" {
		record.Body = &body
	}

	created, err := h.gateway.CreateRecord(c.Request.Context(), session, string(athub.CollectionProposal), record)
	if err != nil {
		gatewayError(c, err)
		return
	}
	rkey, ok := athub.RkeyFromURI(created.URI)
	if !ok {
		c.JSON(http.StatusBadGateway, gin.H{"error": "repository returned an unusable record URI"})
		return
	}

	proposal := models.Proposal{
		URI:       created.URI,
		DID:       session.DID,
		Rkey:      rkey,
		CID:       created.CID,
		QuestURI:  record.RepoRef.URI,
		QuestCID:  record.RepoRef.CID,
		Title:     record.Title,
		Body:      record.Body,
		State:     record.State,
		CreatedAt: record.CreatedAt,
		IndexedAt: time.Now(),
	}
	if err := h.proposals.UpsertProposal(c.Request.Context(), proposal); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cache proposal"})
		return
	}
	c.JSON(http.StatusCreated, proposal)
}

// SetState toggles a proposal between open and closed. The lookup is
// keyed by the acting DID, so a non-owner sees not found and the
// repository is never contacted on their behalf.
func (h *ProposalHandler) SetState(c *gin.Context) {
	var req struct {
		State string `json:"state"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || !athub.IsProposalState(req.State) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "state must be open or closed"})
		return
	}

	did := middleware.SessionDID(c)
	rkey := c.Param("rkey")

	view, err := h.proposals.GetProposalByDidRkey(c.Request.Context(), did, rkey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get proposal"})
		return
	}
	if view == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "proposal not found"})
		return
	}

	session, ok := loadPDSSession(c, h.sessions)
	if !ok {
		return
	}

	record := athub.ProposalRecord{
		RepoRef:       athub.StrongRef{URI: view.QuestURI, CID: view.QuestCID},
		Title:         view.Title,
		Body:          view.Body,
		State:         req.State,
		BskyThreadURI: view.BskyThreadURI,
		CreatedAt:     view.CreatedAt,
	}
	created, err := h.gateway.PutRecord(c.Request.Context(), session, string(athub.CollectionProposal), rkey, record)
	if err != nil {
		gatewayError(c, err)
		return
	}

	updated := view.Proposal
	updated.CID = created.CID
	updated.State = req.State
	updated.IndexedAt = time.Now()
	if err := h.proposals.UpsertProposal(c.Request.Context(), updated); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cache proposal"})
		return
	}
	c.JSON(http.StatusOK, updated)
}
