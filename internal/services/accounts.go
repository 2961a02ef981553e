package services

import (
	"context"
	"fmt"

	"github.com/athub-social/appview/internal/models"
	"github.com/athub-social/appview/internal/storage"
)

// AccountService maintains the DID -> handle lookup table.
type AccountService struct {
	db *storage.DB
}

// NewAccountService creates a new account service
func NewAccountService(db *storage.DB) *AccountService {
	return &AccountService{db: db}
}

// UpsertAccount overwrites the row for the account's DID.
func (s *AccountService) UpsertAccount(ctx context.Context, account models.Account) error {
	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO account (did, handle, active, indexed_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (did) DO UPDATE SET
		   handle = EXCLUDED.handle,
		   active = EXCLUDED.active,
		   indexed_at = EXCLUDED.indexed_at`,
		account.DID, account.Handle, account.Active, account.IndexedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}
	return nil
}

// DeleteAccount removes the row entirely. Deleting an unknown DID is a
// no-op so redelivered events stay idempotent.
func (s *AccountService) DeleteAccount(ctx context.Context, did string) error {
	_, err := s.db.Pool.Exec(ctx, "DELETE FROM account WHERE did = $1", did)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

// HandleByDID returns the cached handle for a DID, or nil when the
// account is unknown.
func (s *AccountService) HandleByDID(ctx context.Context, did string) (*string, error) {
	var handle string
	err := s.db.Pool.QueryRow(ctx,
		"SELECT handle FROM account WHERE did = $1", did).Scan(&handle)
	if err != nil {
		return nil, nil
	}
	return &handle, nil
}

// HandleMap resolves handles for the distinct set of DIDs in one query,
// bounding enrichment to one lookup per distinct owner rather than one
// per row.
func (s *AccountService) HandleMap(ctx context.Context, dids []string) (map[string]string, error) {
	unique := make([]string, 0, len(dids))
	seen := make(map[string]bool, len(dids))
	for _, did := range dids {
		if did == "" || seen[did] {
			continue
		}
		seen[did] = true
		unique = append(unique, did)
	}
	if len(unique) == 0 {
		return map[string]string{}, nil
	}

	rows, err := s.db.Pool.Query(ctx,
		"SELECT did, handle FROM account WHERE did = ANY($1)", unique)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve handles: %w", err)
	}
	defer rows.Close()

	handles := make(map[string]string, len(unique))
	for rows.Next() {
		var did, handle string
		if err := rows.Scan(&did, &handle); err != nil {
			return nil, err
		}
		handles[did] = handle
	}
	return handles, rows.Err()
}

func handleOrNil(handles map[string]string, did string) *string {
	if h, ok := handles[did]; ok {
		return &h
	}
	return nil
}
