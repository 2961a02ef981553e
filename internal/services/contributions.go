package services

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/athub-social/appview/internal/models"
	"github.com/athub-social/appview/internal/storage"
)

const contributionListLimit = 300

// ContributionView is a cached contribution enriched with its owner's
// handle.
type ContributionView struct {
	models.Contribution
	Handle *string `json:"handle"`
}

// HeatmapDay is one calendar-day bucket of contribution activity.
type HeatmapDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// ContributionService handles the contribution cache table.
type ContributionService struct {
	db       *storage.DB
	accounts *AccountService
}

// NewContributionService creates a new contribution service
func NewContributionService(db *storage.DB, accounts *AccountService) *ContributionService {
	return &ContributionService{db: db, accounts: accounts}
}

// UpsertContribution overwrites the row keyed by URI.
func (s *ContributionService) UpsertContribution(ctx context.Context, contribution models.Contribution) error {
	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO contribution_cache (uri, did, rkey, cid, quest_uri, quest_cid, message, body, media_json, created_at, indexed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (uri) DO UPDATE SET
		   did = EXCLUDED.did,
		   rkey = EXCLUDED.rkey,
		   cid = EXCLUDED.cid,
		   quest_uri = EXCLUDED.quest_uri,
		   quest_cid = EXCLUDED.quest_cid,
		   message = EXCLUDED.message,
		   body = EXCLUDED.body,
		   media_json = EXCLUDED.media_json,
		   created_at = EXCLUDED.created_at,
		   indexed_at = EXCLUDED.indexed_at`,
		contribution.URI, contribution.DID, contribution.Rkey, contribution.CID,
		contribution.QuestURI, contribution.QuestCID, contribution.Message,
		contribution.Body, marshalMedia(contribution.Media),
		contribution.CreatedAt, contribution.IndexedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert contribution: %w", err)
	}
	return nil
}

// DeleteContribution removes the row; unknown URIs are a no-op.
func (s *ContributionService) DeleteContribution(ctx context.Context, uri string) error {
	_, err := s.db.Pool.Exec(ctx, "DELETE FROM contribution_cache WHERE uri = $1", uri)
	if err != nil {
		return fmt.Errorf("failed to delete contribution: %w", err)
	}
	return nil
}

const contributionColumns = "uri, did, rkey, cid, quest_uri, quest_cid, message, body, media_json, created_at, indexed_at"

func scanContribution(row pgx.Row) (models.Contribution, error) {
	var c models.Contribution
	var mediaJSON string
	err := row.Scan(&c.URI, &c.DID, &c.Rkey, &c.CID, &c.QuestURI, &c.QuestCID,
		&c.Message, &c.Body, &mediaJSON, &c.CreatedAt, &c.IndexedAt)
	if err != nil {
		return models.Contribution{}, err
	}
	c.Media = unmarshalMedia(mediaJSON)
	return c, nil
}

// ListContributionsByQuest retrieves a quest's contributions, newest
// first, with owner handles attached from a single batch lookup.
func (s *ContributionService) ListContributionsByQuest(ctx context.Context, questURI string, limit int) ([]ContributionView, error) {
	if limit <= 0 {
		limit = contributionListLimit
	}
	rows, err := s.db.Pool.Query(ctx,
		`SELECT `+contributionColumns+` FROM contribution_cache
		 WHERE quest_uri = $1 ORDER BY created_at DESC LIMIT $2`,
		questURI, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contributions []models.Contribution
	for rows.Next() {
		c, err := scanContribution(rows)
		if err != nil {
			return nil, err
		}
		contributions = append(contributions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	dids := make([]string, len(contributions))
	for i, c := range contributions {
		dids[i] = c.DID
	}
	handles, err := s.accounts.HandleMap(ctx, dids)
	if err != nil {
		return nil, err
	}

	views := make([]ContributionView, len(contributions))
	for i, c := range contributions {
		views[i] = ContributionView{Contribution: c, Handle: handleOrNil(handles, c.DID)}
	}
	return views, nil
}

// ContributionHeatmap buckets a user's contributions by calendar day
// over a trailing window. The result always has exactly days entries,
// oldest first, zero-filling days with no activity.
func (s *ContributionService) ContributionHeatmap(ctx context.Context, did string, days int) ([]HeatmapDay, error) {
	start := heatmapWindowStart(time.Now(), days)

	rows, err := s.db.Pool.Query(ctx,
		`SELECT created_at FROM contribution_cache
		 WHERE did = $1 AND created_at >= $2`,
		did, start.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var createdAts []string
	for rows.Next() {
		var createdAt string
		if err := rows.Scan(&createdAt); err != nil {
			return nil, err
		}
		createdAts = append(createdAts, createdAt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return buildHeatmap(start, days, createdAts), nil
}

// ContributionCountLastDays sums the heatmap over the trailing window.
func (s *ContributionService) ContributionCountLastDays(ctx context.Context, did string, days int) (int, error) {
	heatmap, err := s.ContributionHeatmap(ctx, did, days)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, day := range heatmap {
		total += day.Count
	}
	return total, nil
}

// heatmapWindowStart returns local midnight days-1 calendar days ago.
func heatmapWindowStart(now time.Time, days int) time.Time {
	day := now.AddDate(0, 0, -(days - 1))
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
}

// buildHeatmap assigns each owner-asserted timestamp to its calendar
// day (the date prefix of the RFC3339 string) and zero-fills the rest
// of the window.
func buildHeatmap(start time.Time, days int, createdAts []string) []HeatmapDay {
	counts := make(map[string]int, len(createdAts))
	for _, createdAt := range createdAts {
		if len(createdAt) < 10 {
			continue
		}
		counts[createdAt[:10]]++
	}

	result := make([]HeatmapDay, 0, days)
	for i := 0; i < days; i++ {
		key := start.AddDate(0, 0, i).UTC().Format("2006-01-02")
		result = append(result, HeatmapDay{Date: key, Count: counts[key]})
	}
	return result
}
