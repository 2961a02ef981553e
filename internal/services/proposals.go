package services

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/athub-social/appview/internal/models"
	"github.com/athub-social/appview/internal/storage"
)

const proposalListLimit = 200

// ProposalView is a cached proposal enriched with its owner's handle.
type ProposalView struct {
	models.Proposal
	Handle *string `json:"handle"`
}

// ProposalService handles the proposal cache table.
type ProposalService struct {
	db       *storage.DB
	accounts *AccountService
}

// NewProposalService creates a new proposal service
func NewProposalService(db *storage.DB, accounts *AccountService) *ProposalService {
	return &ProposalService{db: db, accounts: accounts}
}

// UpsertProposal overwrites the row keyed by URI.
func (s *ProposalService) UpsertProposal(ctx context.Context, proposal models.Proposal) error {
	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO proposal_cache (uri, did, rkey, cid, quest_uri, quest_cid, title, body, state, bsky_thread_uri, created_at, indexed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (uri) DO UPDATE SET
		   did = EXCLUDED.did,
		   rkey = EXCLUDED.rkey,
		   cid = EXCLUDED.cid,
		   quest_uri = EXCLUDED.quest_uri,
		   quest_cid = EXCLUDED.quest_cid,
		   title = EXCLUDED.title,
		   body = EXCLUDED.body,
		   state = EXCLUDED.state,
		   bsky_thread_uri = EXCLUDED.bsky_thread_uri,
		   created_at = EXCLUDED.created_at,
		   indexed_at = EXCLUDED.indexed_at`,
		proposal.URI, proposal.DID, proposal.Rkey, proposal.CID,
		proposal.QuestURI, proposal.QuestCID, proposal.Title, proposal.Body,
		proposal.State, proposal.BskyThreadURI, proposal.CreatedAt, proposal.IndexedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert proposal: %w", err)
	}
	return nil
}

// DeleteProposal removes the row; unknown URIs are a no-op.
func (s *ProposalService) DeleteProposal(ctx context.Context, uri string) error {
	_, err := s.db.Pool.Exec(ctx, "DELETE FROM proposal_cache WHERE uri = $1", uri)
	if err != nil {
		return fmt.Errorf("failed to delete proposal: %w", err)
	}
	return nil
}

const proposalColumns = "uri, did, rkey, cid, quest_uri, quest_cid, title, body, state, bsky_thread_uri, created_at, indexed_at"

func scanProposal(row pgx.Row) (models.Proposal, error) {
	var p models.Proposal
	err := row.Scan(&p.URI, &p.DID, &p.Rkey, &p.CID, &p.QuestURI, &p.QuestCID,
		&p.Title, &p.Body, &p.State, &p.BskyThreadURI, &p.CreatedAt, &p.IndexedAt)
	if err != nil {
		return models.Proposal{}, err
	}
	return p, nil
}

// ListProposalsByQuest retrieves a quest's proposals, newest first,
// with owner handles attached from a single batch lookup.
func (s *ProposalService) ListProposalsByQuest(ctx context.Context, questURI string, limit int) ([]ProposalView, error) {
	if limit <= 0 {
		limit = proposalListLimit
	}
	rows, err := s.db.Pool.Query(ctx,
		`SELECT `+proposalColumns+` FROM proposal_cache
		 WHERE quest_uri = $1 ORDER BY created_at DESC LIMIT $2`,
		questURI, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var proposals []models.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	dids := make([]string, len(proposals))
	for i, p := range proposals {
		dids[i] = p.DID
	}
	handles, err := s.accounts.HandleMap(ctx, dids)
	if err != nil {
		return nil, err
	}

	views := make([]ProposalView, len(proposals))
	for i, p := range proposals {
		views[i] = ProposalView{Proposal: p, Handle: handleOrNil(handles, p.DID)}
	}
	return views, nil
}

// GetProposalByURI retrieves a proposal by URI with its owner's handle.
func (s *ProposalService) GetProposalByURI(ctx context.Context, uri string) (*ProposalView, error) {
	p, err := scanProposal(s.db.Pool.QueryRow(ctx,
		`SELECT `+proposalColumns+` FROM proposal_cache WHERE uri = $1`, uri))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get proposal: %w", err)
	}
	return s.withHandle(ctx, p)
}

// GetProposalByDidRkey retrieves a proposal by its owner and record key.
// Keying the lookup by DID is what limits state toggles to the owner.
func (s *ProposalService) GetProposalByDidRkey(ctx context.Context, did, rkey string) (*ProposalView, error) {
	p, err := scanProposal(s.db.Pool.QueryRow(ctx,
		`SELECT `+proposalColumns+` FROM proposal_cache WHERE did = $1 AND rkey = $2`,
		did, rkey))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get proposal: %w", err)
	}
	return s.withHandle(ctx, p)
}

func (s *ProposalService) withHandle(ctx context.Context, p models.Proposal) (*ProposalView, error) {
	handles, err := s.accounts.HandleMap(ctx, []string{p.DID})
	if err != nil {
		return nil, err
	}
	return &ProposalView{Proposal: p, Handle: handleOrNil(handles, p.DID)}, nil
}
