package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/athub-social/appview/internal/ingest"
)

// EventDispatcher applies one decoded event envelope to the cache.
type EventDispatcher interface {
	Dispatch(ctx context.Context, payload any) error
}

// WebhookHandler receives relay deliveries on the ingestion endpoint.
type WebhookHandler struct {
	dispatcher EventDispatcher
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(dispatcher EventDispatcher) *WebhookHandler {
	return &WebhookHandler{dispatcher: dispatcher}
}

// HandleEvent applies one delivery. The response is deliberately uniform:
// a sender can tell broken JSON and broken envelopes apart from applied
// events, but never whether an accepted event changed anything.
func (h *WebhookHandler) HandleEvent(c *gin.Context) {
	var payload any
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid JSON"})
		return
	}

	if err := h.dispatcher.Dispatch(c.Request.Context(), payload); err != nil {
		if errors.Is(err, ingest.ErrInvalidEnvelope) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to apply event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
