package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/athub-social/appview/internal/athub"
	"github.com/athub-social/appview/internal/atproto"
	"github.com/athub-social/appview/internal/models"
	"github.com/athub-social/appview/internal/services"
)

const (
	maxContributionMessageLen = 300
	maxContributionBodyLen    = 3000
	maxMediaBytes             = 10 << 20
)

// allowedMediaTypes is the closed set of attachment content types.
var allowedMediaTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// ContributionHandler handles contribution listing and the contribution
// write path, including media uploads.
type ContributionHandler struct {
	contributions *services.ContributionService
	quests        QuestGetter
	sessions      SessionStore
	gateway       Gateway
}

// NewContributionHandler creates a new contribution handler
func NewContributionHandler(contributions *services.ContributionService, quests QuestGetter, sessions SessionStore, gateway Gateway) *ContributionHandler {
	return &ContributionHandler{contributions: contributions, quests: quests, sessions: sessions, gateway: gateway}
}

// List returns a quest's contributions, newest first.
func (h *ContributionHandler) List(c *gin.Context) {
	questURI := c.Query("questUri")
	if questURI == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "questUri is required"})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	contributions, err := h.contributions.ListContributionsByQuest(c.Request.Context(), questURI, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list contributions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"contributions": contributions})
}

// Create submits a new contribution with optional media attachments. The
// request is multipart: text fields plus zero or more files under media.
func (h *ContributionHandler) Create(c *gin.Context) {
	message := strings.TrimSpace(c.PostForm("message"))
	if message == "" || len(message) > maxContributionMessageLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required and must be at most 300 characters"})
		return
	}
	body := c.PostForm("body")
	if len(body) > maxContributionBodyLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be at most 3000 characters"})
		return
	}

	questURI := c.PostForm("questUri")
	quest, err := h.quests.GetQuestByURI(c.Request.Context(), questURI)
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

	var files []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil && form != nil {
		files = form.File["media"]
	}

	var media []athub.MediaItem
	for _, header := range files {
		item, ok := h.uploadMedia(c, session, header)
		if !ok {
			return
		}
		media = append(media, item)
	}

	record := athub.ContributionRecord{
		RepoRef:   athub.StrongRef{URI: quest.URI, CID: quest.CID},
		Message:   message,
		Media:     media,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if body = strings.TrimSpace(body); body != "" {
		record.Body = &body
	}

	created, err := h.gateway.CreateRecord(c.Request.Context(), session, string(athub.CollectionContribution), record)
	if err != nil {
		gatewayError(c, err)
		return
	}
	rkey, ok := athub.RkeyFromURI(created.URI)
	if !ok {
		c.JSON(http.StatusBadGateway, gin.H{"error": "repository returned an unusable record URI"})
		return
	}

	contribution := models.Contribution{
		URI:       created.URI,
		DID:       session.DID,
		Rkey:      rkey,
		CID:       created.CID,
		QuestURI:  record.RepoRef.URI,
		QuestCID:  record.RepoRef.CID,
		Message:   record.Message,
		Body:      record.Body,
		Media:     record.Media,
		CreatedAt: record.CreatedAt,
		IndexedAt: time.Now(),
	}
	if err := h.contributions.UpsertContribution(c.Request.Context(), contribution); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cache contribution"})
		return
	}
	c.JSON(http.StatusCreated, contribution)
}

// uploadMedia validates one attachment and stores it on the session's
// PDS. It writes the error response itself and returns false on failure.
func (h *ContributionHandler) uploadMedia(c *gin.Context, session atproto.Session, header *multipart.FileHeader) (athub.MediaItem, bool) {
	if header.Size > maxMediaBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "media files must be at most 10 MiB"})
		return athub.MediaItem{}, false
	}
	contentType := header.Header.Get("Content-Type")
	if !allowedMediaTypes[contentType] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported media type"})
		return athub.MediaItem{}, false
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read media file"})
		return athub.MediaItem{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxMediaBytes+1))
	if err != nil || int64(len(data)) > maxMediaBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read media file"})
		return athub.MediaItem{}, false
	}

	blob, err := h.gateway.UploadBlob(c.Request.Context(), session, contentType, data)
	if err != nil {
		gatewayError(c, err)
		return athub.MediaItem{}, false
	}

	item := athub.MediaItem{
		Blob:     blob,
		MimeType: contentType,
		Size:     int64(len(data)),
	}
	if name := header.Filename; name != "" {
		item.OriginalName = &name
	}
	return item, true
}
