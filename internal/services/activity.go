package services

import (
	"context"
	"sort"

	"github.com/athub-social/appview/internal/storage"
)

const activityLimit = 10

// ActivityItem is one entry in the cross-entity recent-activity feed.
type ActivityItem struct {
	Type      string  `json:"type"`
	URI       string  `json:"uri"`
	DID       string  `json:"did"`
	Handle    *string `json:"handle"`
	CreatedAt string  `json:"createdAt"`
	Message   string  `json:"message"`
}

// ActivityService merges recent proposals, contributions and badges
// into a single feed.
type ActivityService struct {
	db       *storage.DB
	accounts *AccountService
}

// NewActivityService creates a new activity service
func NewActivityService(db *storage.DB, accounts *AccountService) *ActivityService {
	return &ActivityService{db: db, accounts: accounts}
}

type activityRow struct {
	uri       string
	did       string
	text      string
	createdAt string
}

func (s *ActivityService) recentRows(ctx context.Context, query string, limit int) ([]activityRow, error) {
	rows, err := s.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []activityRow
	for rows.Next() {
		var r activityRow
		if err := rows.Scan(&r.uri, &r.did, &r.text, &r.createdAt); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// RecentActivity returns the newest activity across all three record
// kinds, handle-enriched, newest first.
func (s *ActivityService) RecentActivity(ctx context.Context, limit int) ([]ActivityItem, error) {
	if limit <= 0 {
		limit = activityLimit
	}

	proposals, err := s.recentRows(ctx,
		`SELECT uri, did, title, created_at FROM proposal_cache ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	contributions, err := s.recentRows(ctx,
		`SELECT uri, did, message, created_at FROM contribution_cache ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	badges, err := s.recentRows(ctx,
		`SELECT uri, did, comment, created_at FROM badge_cache ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}

	var dids []string
	for _, r := range proposals {
		dids = append(dids, r.did)
	}
	for _, r := range contributions {
		dids = append(dids, r.did)
	}
	for _, r := range badges {
		dids = append(dids, r.did)
	}
	handles, err := s.accounts.HandleMap(ctx, dids)
	if err != nil {
		return nil, err
	}

	var items []ActivityItem
	for _, r := range proposals {
		items = append(items, ActivityItem{
			Type: "proposal", URI: r.uri, DID: r.did,
			Handle: handleOrNil(handles, r.did), CreatedAt: r.createdAt,
			Message: "opened proposal: " + r.text,
		})
	}
	for _, r := range contributions {
		items = append(items, ActivityItem{
			Type: "contribution", URI: r.uri, DID: r.did,
			Handle: handleOrNil(handles, r.did), CreatedAt: r.createdAt,
			Message: "contributed: " + r.text,
		})
	}
	for _, r := range badges {
		items = append(items, ActivityItem{
			Type: "badge", URI: r.uri, DID: r.did,
			Handle: handleOrNil(handles, r.did), CreatedAt: r.createdAt,
			Message: "sent a badge: " + r.text,
		})
	}

	// RFC3339 strings sort correctly as text.
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt > items[j].CreatedAt
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
