package services

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/athub-social/appview/internal/athub"
	"github.com/athub-social/appview/internal/storage"
)

// RefService recovers the strong reference (URI plus last-seen content
// hash) for a record cached in any of the subject tables. It is used on
// the local write path to populate references before submitting a new
// record to the repository; reads never go through it.
type RefService struct {
	db *storage.DB
}

// NewRefService creates a new ref service
func NewRefService(db *storage.DB) *RefService {
	return &RefService{db: db}
}

// refTables is the fixed scan order. A URI only ever lives in one table
// in practice, so the order is a lookup heuristic, not a priority rule.
var refTables = []string{"quest_cache", "proposal_cache", "contribution_cache"}

// StrongRefByURI returns the cached strong reference for uri, or nil
// when no table holds it. The hash is the cache's own last-seen value;
// it is not re-verified against the remote.
func (s *RefService) StrongRefByURI(ctx context.Context, uri string) (*athub.StrongRef, error) {
	for _, table := range refTables {
		var ref athub.StrongRef
		err := s.db.Pool.QueryRow(ctx,
			"SELECT uri, cid FROM "+table+" WHERE uri = $1", uri).Scan(&ref.URI, &ref.CID)
		if err == pgx.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve strong ref: %w", err)
		}
		return &ref, nil
	}
	return nil, nil
}
