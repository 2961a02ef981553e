package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/athub-social/appview/internal/atproto"
)

// ThreadReader fetches a thread summary from the public network.
type ThreadReader interface {
	FetchThreadSummary(ctx context.Context, uri string) (*atproto.ThreadSummary, error)
}

// BskyHandler serves read-only thread summaries for proposals that link
// a discussion thread.
type BskyHandler struct {
	reader ThreadReader
}

// NewBskyHandler creates a new bsky handler
func NewBskyHandler(reader ThreadReader) *BskyHandler {
	return &BskyHandler{reader: reader}
}

// Thread returns the root post of a linked discussion thread.
func (h *BskyHandler) Thread(c *gin.Context) {
	uri := c.Query("uri")
	if !strings.HasPrefix(uri, "at://") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "uri must be an at:// URI"})
		return
	}

	summary, err := h.reader.FetchThreadSummary(c.Request.Context(), uri)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch thread"})
		return
	}
	if summary == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
		return
	}
	c.JSON(http.StatusOK, summary)
}
