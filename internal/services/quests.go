package services

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/athub-social/appview/internal/models"
	"github.com/athub-social/appview/internal/storage"
)

const (
	questListLimit   = 50
	questSearchLimit = 30
)

// QuestService handles the quest cache table.
type QuestService struct {
	db *storage.DB
}

// NewQuestService creates a new quest service
func NewQuestService(db *storage.DB) *QuestService {
	return &QuestService{db: db}
}

// UpsertQuest overwrites the row keyed by URI. There is no version or
// timestamp comparison: the most recently applied write wins.
func (s *QuestService) UpsertQuest(ctx context.Context, quest models.Quest) error {
	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO quest_cache (uri, did, rkey, cid, name, description, topics_json, created_at, indexed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (uri) DO UPDATE SET
		   did = EXCLUDED.did,
		   rkey = EXCLUDED.rkey,
		   cid = EXCLUDED.cid,
		   name = EXCLUDED.name,
		   description = EXCLUDED.description,
		   topics_json = EXCLUDED.topics_json,
		   created_at = EXCLUDED.created_at,
		   indexed_at = EXCLUDED.indexed_at`,
		quest.URI, quest.DID, quest.Rkey, quest.CID, quest.Name,
		quest.Description, marshalTopics(quest.Topics), quest.CreatedAt, quest.IndexedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert quest: %w", err)
	}
	return nil
}

// DeleteQuest removes the row. Child proposals and contributions are
// left in place; cascaded deletes arrive as their own events from the
// repository of record.
func (s *QuestService) DeleteQuest(ctx context.Context, uri string) error {
	_, err := s.db.Pool.Exec(ctx, "DELETE FROM quest_cache WHERE uri = $1", uri)
	if err != nil {
		return fmt.Errorf("failed to delete quest: %w", err)
	}
	return nil
}

const questColumns = "uri, did, rkey, cid, name, description, topics_json, created_at, indexed_at"

func scanQuest(row pgx.Row) (models.Quest, error) {
	var q models.Quest
	var topicsJSON string
	err := row.Scan(&q.URI, &q.DID, &q.Rkey, &q.CID, &q.Name,
		&q.Description, &topicsJSON, &q.CreatedAt, &q.IndexedAt)
	if err != nil {
		return models.Quest{}, err
	}
	q.Topics = unmarshalTopics(topicsJSON)
	return q, nil
}

func (s *QuestService) queryQuests(ctx context.Context, query string, args ...any) ([]models.Quest, error) {
	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quests []models.Quest
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, err
		}
		quests = append(quests, q)
	}
	return quests, rows.Err()
}

// ListQuestsByDID retrieves a user's quests, newest first.
func (s *QuestService) ListQuestsByDID(ctx context.Context, did string, limit int) ([]models.Quest, error) {
	if limit <= 0 {
		limit = questListLimit
	}
	return s.queryQuests(ctx,
		`SELECT `+questColumns+` FROM quest_cache
		 WHERE did = $1 ORDER BY created_at DESC LIMIT $2`,
		did, limit)
}

// ListLatestQuests retrieves the most recent quests across all owners.
func (s *QuestService) ListLatestQuests(ctx context.Context, limit int) ([]models.Quest, error) {
	if limit <= 0 {
		limit = questListLimit
	}
	return s.queryQuests(ctx,
		`SELECT `+questColumns+` FROM quest_cache
		 ORDER BY created_at DESC LIMIT $1`,
		limit)
}

// GetQuestByDIDRkey retrieves a quest by its owner and record key.
func (s *QuestService) GetQuestByDIDRkey(ctx context.Context, did, rkey string) (*models.Quest, error) {
	q, err := scanQuest(s.db.Pool.QueryRow(ctx,
		`SELECT `+questColumns+` FROM quest_cache WHERE did = $1 AND rkey = $2`,
		did, rkey))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quest: %w", err)
	}
	return &q, nil
}

// GetQuestByURI retrieves a quest by its URI.
func (s *QuestService) GetQuestByURI(ctx context.Context, uri string) (*models.Quest, error) {
	q, err := scanQuest(s.db.Pool.QueryRow(ctx,
		`SELECT `+questColumns+` FROM quest_cache WHERE uri = $1`, uri))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quest: %w", err)
	}
	return &q, nil
}

// SearchQuests is a best-effort substring scan over name, description
// and the serialized topic list, capped and ordered newest first.
func (s *QuestService) SearchQuests(ctx context.Context, keyword string) ([]models.Quest, error) {
	term := "%" + keyword + "%"
	return s.queryQuests(ctx,
		`SELECT `+questColumns+` FROM quest_cache
		 WHERE name LIKE $1 OR description LIKE $1 OR topics_json LIKE $1
		 ORDER BY created_at DESC LIMIT $2`,
		term, questSearchLimit)
}
