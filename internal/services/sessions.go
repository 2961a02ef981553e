package services

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/athub-social/appview/internal/models"
	"github.com/athub-social/appview/internal/storage"
)

// SessionService persists the PDS token pair for each signed-in DID so
// write-path handlers can act against the user's own repository.
type SessionService struct {
	db *storage.DB
}

// NewSessionService creates a new session service
func NewSessionService(db *storage.DB) *SessionService {
	return &SessionService{db: db}
}

// SavePDSSession overwrites the stored tokens for the session's DID.
func (s *SessionService) SavePDSSession(ctx context.Context, session models.PDSSession) error {
	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO pds_session (did, handle, endpoint, access_jwt, refresh_jwt, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (did) DO UPDATE SET
		   handle = EXCLUDED.handle,
		   endpoint = EXCLUDED.endpoint,
		   access_jwt = EXCLUDED.access_jwt,
		   refresh_jwt = EXCLUDED.refresh_jwt,
		   updated_at = EXCLUDED.updated_at`,
		session.DID, session.Handle, session.Endpoint,
		session.AccessJWT, session.RefreshJWT, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// PDSSessionByDID retrieves the stored tokens, or nil when the user has
// no active session.
func (s *SessionService) PDSSessionByDID(ctx context.Context, did string) (*models.PDSSession, error) {
	var session models.PDSSession
	err := s.db.Pool.QueryRow(ctx,
		`SELECT did, handle, endpoint, access_jwt, refresh_jwt, updated_at
		 FROM pds_session WHERE did = $1`, did).Scan(
		&session.DID, &session.Handle, &session.Endpoint,
		&session.AccessJWT, &session.RefreshJWT, &session.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &session, nil
}

// DeletePDSSession drops the stored tokens; unknown DIDs are a no-op.
func (s *SessionService) DeletePDSSession(ctx context.Context, did string) error {
	_, err := s.db.Pool.Exec(ctx, "DELETE FROM pds_session WHERE did = $1", did)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
