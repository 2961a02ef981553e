package services

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/athub-social/appview/internal/models"
	"github.com/athub-social/appview/internal/storage"
)

// BadgeView is a cached badge enriched with its sender's handle.
type BadgeView struct {
	models.Badge
	Handle *string `json:"handle"`
}

// BadgeService handles the badge cache table.
type BadgeService struct {
	db       *storage.DB
	accounts *AccountService
}

// NewBadgeService creates a new badge service
func NewBadgeService(db *storage.DB, accounts *AccountService) *BadgeService {
	return &BadgeService{db: db, accounts: accounts}
}

// UpsertBadge overwrites the row keyed by URI.
func (s *BadgeService) UpsertBadge(ctx context.Context, badge models.Badge) error {
	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO badge_cache (uri, did, rkey, cid, subject_uri, subject_cid, badge_type, comment, created_at, indexed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (uri) DO UPDATE SET
		   did = EXCLUDED.did,
		   rkey = EXCLUDED.rkey,
		   cid = EXCLUDED.cid,
		   subject_uri = EXCLUDED.subject_uri,
		   subject_cid = EXCLUDED.subject_cid,
		   badge_type = EXCLUDED.badge_type,
		   comment = EXCLUDED.comment,
		   created_at = EXCLUDED.created_at,
		   indexed_at = EXCLUDED.indexed_at`,
		badge.URI, badge.DID, badge.Rkey, badge.CID, badge.SubjectURI,
		badge.SubjectCID, badge.BadgeType, badge.Comment, badge.CreatedAt, badge.IndexedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert badge: %w", err)
	}
	return nil
}

// DeleteBadge removes the row; unknown URIs are a no-op.
func (s *BadgeService) DeleteBadge(ctx context.Context, uri string) error {
	_, err := s.db.Pool.Exec(ctx, "DELETE FROM badge_cache WHERE uri = $1", uri)
	if err != nil {
		return fmt.Errorf("failed to delete badge: %w", err)
	}
	return nil
}

const badgeColumns = "uri, did, rkey, cid, subject_uri, subject_cid, badge_type, comment, created_at, indexed_at"

func scanBadge(row pgx.Row) (models.Badge, error) {
	var b models.Badge
	err := row.Scan(&b.URI, &b.DID, &b.Rkey, &b.CID, &b.SubjectURI,
		&b.SubjectCID, &b.BadgeType, &b.Comment, &b.CreatedAt, &b.IndexedAt)
	if err != nil {
		return models.Badge{}, err
	}
	return b, nil
}

func (s *BadgeService) queryBadges(ctx context.Context, query string, args ...any) ([]models.Badge, error) {
	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var badges []models.Badge
	for rows.Next() {
		b, err := scanBadge(rows)
		if err != nil {
			return nil, err
		}
		badges = append(badges, b)
	}
	return badges, rows.Err()
}

func (s *BadgeService) enrich(ctx context.Context, badges []models.Badge) ([]BadgeView, error) {
	dids := make([]string, len(badges))
	for i, b := range badges {
		dids[i] = b.DID
	}
	handles, err := s.accounts.HandleMap(ctx, dids)
	if err != nil {
		return nil, err
	}

	views := make([]BadgeView, len(badges))
	for i, b := range badges {
		views[i] = BadgeView{Badge: b, Handle: handleOrNil(handles, b.DID)}
	}
	return views, nil
}

// ListBadgesBySubject retrieves all badges awarded to one subject,
// newest first.
func (s *BadgeService) ListBadgesBySubject(ctx context.Context, subjectURI string) ([]BadgeView, error) {
	badges, err := s.queryBadges(ctx,
		`SELECT `+badgeColumns+` FROM badge_cache
		 WHERE subject_uri = $1 ORDER BY created_at DESC`,
		subjectURI)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, badges)
}

// ListBadgesBySubjects retrieves badges for a set of subjects in one
// query, grouped by subject URI.
func (s *BadgeService) ListBadgesBySubjects(ctx context.Context, subjectURIs []string) (map[string][]BadgeView, error) {
	grouped := make(map[string][]BadgeView)
	if len(subjectURIs) == 0 {
		return grouped, nil
	}

	badges, err := s.queryBadges(ctx,
		`SELECT `+badgeColumns+` FROM badge_cache
		 WHERE subject_uri = ANY($1) ORDER BY created_at DESC`,
		subjectURIs)
	if err != nil {
		return nil, err
	}
	views, err := s.enrich(ctx, badges)
	if err != nil {
		return nil, err
	}
	for _, view := range views {
		grouped[view.SubjectURI] = append(grouped[view.SubjectURI], view)
	}
	return grouped, nil
}
