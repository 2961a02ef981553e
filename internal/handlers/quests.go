package handlers

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/athub-social/appview/internal/athub"
	"github.com/athub-social/appview/internal/atproto"
	"github.com/athub-social/appview/internal/middleware"
	"github.com/athub-social/appview/internal/models"
	"github.com/athub-social/appview/internal/services"
)

const (
	maxQuestNameLen = 100
	maxTopicCount   = 12
)

// QuestHandler handles quest listing, search and the quest write path.
type QuestHandler struct {
	quests   *services.QuestService
	accounts *services.AccountService
	sessions SessionStore
	gateway  Gateway
}

// NewQuestHandler creates a new quest handler
func NewQuestHandler(quests *services.QuestService, accounts *services.AccountService, sessions SessionStore, gateway Gateway) *QuestHandler {
	return &QuestHandler{quests: quests, accounts: accounts, sessions: sessions, gateway: gateway}
}

// List returns quests, filtered by keyword or owner when requested.
func (h *QuestHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	if keyword := strings.TrimSpace(c.Query("q")); keyword != "" {
		quests, err := h.quests.SearchQuests(ctx, keyword)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to search quests"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"quests": quests})
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	var (
		quests []models.Quest
		err    error
	)
	if did := c.Query("did"); did != "" {
		quests, err = h.quests.ListQuestsByDID(ctx, did, limit)
	} else {
		quests, err = h.quests.ListLatestQuests(ctx, limit)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list quests"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"quests": quests})
}

// Mine returns the acting user's quests.
func (h *QuestHandler) Mine(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	quests, err := h.quests.ListQuestsByDID(c.Request.Context(), middleware.SessionDID(c), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list quests"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"quests": quests})
}

// Get returns one quest by owner DID and record key.
func (h *QuestHandler) Get(c *gin.Context) {
	quest, err := h.quests.GetQuestByDIDRkey(c.Request.Context(), c.Param("did"), c.Param("rkey"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get quest"})
		return
	}
	if quest == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "quest not found"})
		return
	}
	c.JSON(http.StatusOK, quest)
}

// cleanTopics drops empty entries and caps the list.
func cleanTopics(topics []string) []string {
	cleaned := make([]string, 0, len(topics))
	for _, topic := range topics {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			continue
		}
		cleaned = append(cleaned, topic)
		if len(cleaned) == maxTopicCount {
			break
		}
	}
	return cleaned
}

// Create submits a new quest to the acting user's repository and mirrors
// it into the cache.
func (h *QuestHandler) Create(c *gin.Context) {
	var req struct {
		Name        string   `json:"name"`
		Description string   `json:"description"`
		Topics      []string `json:"topics"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || len(req.Name) > maxQuestNameLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required and must be at most 100 characters"})
		return
	}

	session, ok := loadPDSSession(c, h.sessions)
	if !ok {
		return
	}

	record := athub.QuestRecord{
		Name:      req.Name,
		Topics:    cleanTopics(req.Topics),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if desc := strings.TrimSpace(req.Description); desc != "" {
		record.Description = &desc
	}

	created, err := h.gateway.CreateRecord(c.Request.Context(), session, string(athub.CollectionQuest), record)
	if err != nil {
		gatewayError(c, err)
		return
	}
	rkey, ok := athub.RkeyFromURI(created.URI)
	if !ok {
		c.JSON(http.StatusBadGateway, gin.H{"error": "repository returned an unusable record URI"})
		return
	}

	quest := models.Quest{
		URI:         created.URI,
		DID:         session.DID,
		Rkey:        rkey,
		CID:         created.CID,
		Name:        record.Name,
		Description: record.Description,
		Topics:      record.Topics,
		CreatedAt:   record.CreatedAt,
		IndexedAt:   time.Now(),
	}
	if err := h.quests.UpsertQuest(c.Request.Context(), quest); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cache quest"})
		return
	}

	h.refreshHandle(c, session)

	c.JSON(http.StatusCreated, quest)
}

// Delete removes a quest from the acting user's repository and from the
// cache. Proposals and contributions under it are left to their own
// delete events.
func (h *QuestHandler) Delete(c *gin.Context) {
	session, ok := loadPDSSession(c, h.sessions)
	if !ok {
		return
	}

	rkey := c.Param("rkey")
	if err := h.gateway.DeleteRecord(c.Request.Context(), session, string(athub.CollectionQuest), rkey); err != nil {
		gatewayError(c, err)
		return
	}

	uri := athub.BuildURI(session.DID, athub.CollectionQuest, rkey)
	if err := h.quests.DeleteQuest(c.Request.Context(), uri); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to evict quest"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// refreshHandle opportunistically refreshes the cached handle after a
// successful write. Failures are logged and never surface to the caller.
func (h *QuestHandler) refreshHandle(c *gin.Context, session atproto.Session) {
	handle, err := h.gateway.DescribeRepo(c.Request.Context(), session, session.DID)
	if err != nil || handle == "" {
		if err != nil {
			log.Printf("handlers: handle refresh for %s failed: %v", session.DID, err)
		}
		return
	}
	_ = h.accounts.UpsertAccount(c.Request.Context(), models.Account{
		DID:       session.DID,
		Handle:    handle,
		Active:    true,
		IndexedAt: time.Now(),
	})
}
