package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athub-social/appview/internal/models"
)

// memCache implements all five store interfaces over plain maps.
type memCache struct {
	accounts      map[string]models.Account
	quests        map[string]models.Quest
	proposals     map[string]models.Proposal
	contributions map[string]models.Contribution
	badges        map[string]models.Badge
}

func newMemCache() *memCache {
	return &memCache{
		accounts:      map[string]models.Account{},
		quests:        map[string]models.Quest{},
		proposals:     map[string]models.Proposal{},
		contributions: map[string]models.Contribution{},
		badges:        map[string]models.Badge{},
	}
}

func (m *memCache) UpsertAccount(_ context.Context, a models.Account) error {
	m.accounts[a.DID] = a
	return nil
}

func (m *memCache) DeleteAccount(_ context.Context, did string) error {
	delete(m.accounts, did)
	return nil
}

func (m *memCache) UpsertQuest(_ context.Context, q models.Quest) error {
	m.quests[q.URI] = q
	return nil
}

func (m *memCache) DeleteQuest(_ context.Context, uri string) error {
	delete(m.quests, uri)
	return nil
}

func (m *memCache) UpsertProposal(_ context.Context, p models.Proposal) error {
	m.proposals[p.URI] = p
	return nil
}

func (m *memCache) DeleteProposal(_ context.Context, uri string) error {
	delete(m.proposals, uri)
	return nil
}

func (m *memCache) UpsertContribution(_ context.Context, c models.Contribution) error {
	m.contributions[c.URI] = c
	return nil
}

func (m *memCache) DeleteContribution(_ context.Context, uri string) error {
	delete(m.contributions, uri)
	return nil
}

func (m *memCache) UpsertBadge(_ context.Context, b models.Badge) error {
	m.badges[b.URI] = b
	return nil
}

func (m *memCache) DeleteBadge(_ context.Context, uri string) error {
	delete(m.badges, uri)
	return nil
}

func newTestDispatcher(cache *memCache) *Dispatcher {
	d := NewDispatcher(cache, cache, cache, cache, cache)
	d.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return d
}

func questEvent() map[string]any {
	return map[string]any{
		"type":       "record",
		"action":     "create",
		"did":        "did:plc:alice",
		"collection": "app.athub.repo",
		"rkey":       "3kaaa",
		"cid":        "bafyquest",
		"record": map[string]any{
			"name":      "Docs",
			"createdAt": "2024-01-01T00:00:00Z",
		},
	}
}

func TestDispatchQuestCreate(t *testing.T) {
	cache := newMemCache()
	d := newTestDispatcher(cache)

	err := d.Dispatch(context.Background(), questEvent())
	require.NoError(t, err)

	quest, ok := cache.quests["at://did:plc:alice/app.athub.repo/3kaaa"]
	require.True(t, ok)
	assert.Equal(t, "did:plc:alice", quest.DID)
	assert.Equal(t, "3kaaa", quest.Rkey)
	assert.Equal(t, "bafyquest", quest.CID)
	assert.Equal(t, "Docs", quest.Name)
	assert.Nil(t, quest.Description)
	assert.Nil(t, quest.Topics)
	assert.Equal(t, "2024-01-01T00:00:00Z", quest.CreatedAt)
}

func TestDispatchIsIdempotent(t *testing.T) {
	cache := newMemCache()
	d := newTestDispatcher(cache)

	require.NoError(t, d.Dispatch(context.Background(), questEvent()))
	first := cache.quests["at://did:plc:alice/app.athub.repo/3kaaa"]

	require.NoError(t, d.Dispatch(context.Background(), questEvent()))
	second := cache.quests["at://did:plc:alice/app.athub.repo/3kaaa"]

	assert.Equal(t, first, second)
	assert.Len(t, cache.quests, 1)
}

func TestDispatchDeleteIsIdempotent(t *testing.T) {
	cache := newMemCache()
	d := newTestDispatcher(cache)

	require.NoError(t, d.Dispatch(context.Background(), questEvent()))

	deleteEvent := map[string]any{
		"type":       "record",
		"action":     "delete",
		"did":        "did:plc:alice",
		"collection": "app.athub.repo",
		"rkey":       "3kaaa",
	}
	require.NoError(t, d.Dispatch(context.Background(), deleteEvent))
	assert.Empty(t, cache.quests)

	// Deleting what is already gone still acknowledges.
	require.NoError(t, d.Dispatch(context.Background(), deleteEvent))
	assert.Empty(t, cache.quests)
}

func TestDispatchEnvelopeRejections(t *testing.T) {
	tests := []struct {
		name    string
		payload any
	}{
		{name: "non-object payload", payload: []any{"nope"}},
		{
			name: "identity without did",
			payload: map[string]any{
				"type": "identity",
			},
		},
		{
			name: "record missing rkey",
			payload: map[string]any{
				"type":       "record",
				"action":     "create",
				"did":        "did:plc:alice",
				"collection": "app.athub.repo",
			},
		},
		{
			name: "unknown collection",
			payload: map[string]any{
				"type":       "record",
				"action":     "create",
				"did":        "did:plc:alice",
				"collection": "app.bsky.feed.post",
				"rkey":       "3kaaa",
			},
		},
	}

	cache := newMemCache()
	d := newTestDispatcher(cache)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := d.Dispatch(context.Background(), tt.payload)
			assert.ErrorIs(t, err, ErrInvalidEnvelope)
		})
	}
	assert.Empty(t, cache.quests)
}

func TestDispatchUnknownTypeAndActionAck(t *testing.T) {
	cache := newMemCache()
	d := newTestDispatcher(cache)

	assert.NoError(t, d.Dispatch(context.Background(), map[string]any{"type": "sync"}))

	event := questEvent()
	event["action"] = "merge"
	assert.NoError(t, d.Dispatch(context.Background(), event))
	assert.Empty(t, cache.quests)
	assert.Zero(t, d.Dropped())
}

func TestDispatchMalformedRecordIsDropped(t *testing.T) {
	cache := newMemCache()
	d := newTestDispatcher(cache)

	event := questEvent()
	event["record"] = map[string]any{"createdAt": "2024-01-01T00:00:00Z"}

	// The sender sees the same acknowledgement as for an applied event.
	assert.NoError(t, d.Dispatch(context.Background(), event))
	assert.Empty(t, cache.quests)
	assert.Equal(t, int64(1), d.Dropped())
}

func TestDispatchCIDAndURIDefaults(t *testing.T) {
	cache := newMemCache()
	d := newTestDispatcher(cache)

	event := questEvent()
	delete(event, "cid")
	event["uri"] = "at://did:plc:alice/app.athub.repo/asserted"

	require.NoError(t, d.Dispatch(context.Background(), event))

	quest, ok := cache.quests["at://did:plc:alice/app.athub.repo/asserted"]
	require.True(t, ok, "the event's own uri wins over the reconstructed one")
	assert.Equal(t, "unknown", quest.CID)
}

func TestDispatchIdentity(t *testing.T) {
	cache := newMemCache()
	d := newTestDispatcher(cache)

	// Handle defaults to the DID; active defaults to true.
	require.NoError(t, d.Dispatch(context.Background(), map[string]any{
		"type": "identity",
		"did":  "did:plc:bob",
	}))
	account := cache.accounts["did:plc:bob"]
	assert.Equal(t, "did:plc:bob", account.Handle)
	assert.True(t, account.Active)

	require.NoError(t, d.Dispatch(context.Background(), map[string]any{
		"type":     "identity",
		"did":      "did:plc:bob",
		"handle":   "bob.example.com",
		"isActive": false,
	}))
	account = cache.accounts["did:plc:bob"]
	assert.Equal(t, "bob.example.com", account.Handle)
	assert.False(t, account.Active)

	require.NoError(t, d.Dispatch(context.Background(), map[string]any{
		"type":   "identity",
		"did":    "did:plc:bob",
		"status": "deleted",
	}))
	_, ok := cache.accounts["did:plc:bob"]
	assert.False(t, ok)
}

func TestDispatchProposalAndBadge(t *testing.T) {
	cache := newMemCache()
	d := newTestDispatcher(cache)

	require.NoError(t, d.Dispatch(context.Background(), map[string]any{
		"type":       "record",
		"action":     "create",
		"did":        "did:plc:carol",
		"collection": "app.athub.issue",
		"rkey":       "3kppp",
		"cid":        "bafyissue",
		"record": map[string]any{
			"repoRef":   map[string]any{"uri": "at://did:plc:alice/app.athub.repo/3kaaa", "cid": "bafyquest"},
			"title":     "Typo in chapter two",
			"state":     "open",
			"createdAt": "2024-02-02T00:00:00Z",
		},
	}))
	proposal := cache.proposals["at://did:plc:carol/app.athub.issue/3kppp"]
	assert.Equal(t, "at://did:plc:alice/app.athub.repo/3kaaa", proposal.QuestURI)
	assert.Equal(t, "bafyquest", proposal.QuestCID)
	assert.Equal(t, "open", proposal.State)

	require.NoError(t, d.Dispatch(context.Background(), map[string]any{
		"type":       "record",
		"action":     "update",
		"did":        "did:plc:alice",
		"collection": "app.athub.award",
		"rkey":       "3kbbb",
		"cid":        "bafyaward",
		"record": map[string]any{
			"subject":   map[string]any{"uri": "at://did:plc:carol/app.athub.issue/3kppp", "cid": "bafyissue"},
			"badgeType": "insightful",
			"comment":   "good find",
			"createdAt": "2024-02-03T00:00:00Z",
		},
	}))
	badge := cache.badges["at://did:plc:alice/app.athub.award/3kbbb"]
	assert.Equal(t, "at://did:plc:carol/app.athub.issue/3kppp", badge.SubjectURI)
	assert.Equal(t, "insightful", string(badge.BadgeType))
}
