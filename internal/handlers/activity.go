package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/athub-social/appview/internal/services"
)

const (
	defaultHeatmapDays = 90
	maxHeatmapDays     = 366
)

// ActivityHandler serves the cross-entity activity feed and per-user
// contribution statistics.
type ActivityHandler struct {
	activity      *services.ActivityService
	contributions *services.ContributionService
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(activity *services.ActivityService, contributions *services.ContributionService) *ActivityHandler {
	return &ActivityHandler{activity: activity, contributions: contributions}
}

// Recent returns the newest proposals, contributions and badges merged
// into one feed.
func (h *ActivityHandler) Recent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	items, err := h.activity.RecentActivity(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load activity"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"activity": items})
}

func heatmapParams(c *gin.Context) (string, int, bool) {
	did := c.Query("did")
	if did == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "did is required"})
		return "", 0, false
	}
	days, _ := strconv.Atoi(c.Query("days"))
	if days <= 0 {
		days = defaultHeatmapDays
	}
	if days > maxHeatmapDays {
		days = maxHeatmapDays
	}
	return did, days, true
}

// Heatmap returns a user's per-day contribution counts over a trailing
// window, one entry per day, oldest first.
func (h *ActivityHandler) Heatmap(c *gin.Context) {
	did, days, ok := heatmapParams(c)
	if !ok {
		return
	}
	heatmap, err := h.contributions.ContributionHeatmap(c.Request.Context(), did, days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build heatmap"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"did": did, "days": days, "heatmap": heatmap})
}

// ContributionCount returns a user's total contributions over a trailing
// window.
func (h *ActivityHandler) ContributionCount(c *gin.Context) {
	did, days, ok := heatmapParams(c)
	if !ok {
		return
	}
	count, err := h.contributions.ContributionCountLastDays(c.Request.Context(), did, days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count contributions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"did": did, "days": days, "count": count})
}
