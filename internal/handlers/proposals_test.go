package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athub-social/appview/internal/atproto"
	"github.com/athub-social/appview/internal/models"
	"github.com/athub-social/appview/internal/services"
)

type fakeProposalStore struct {
	views   map[string]services.ProposalView
	upserts []models.Proposal
}

func (f *fakeProposalStore) UpsertProposal(_ context.Context, p models.Proposal) error {
	f.upserts = append(f.upserts, p)
	return nil
}

func (f *fakeProposalStore) ListProposalsByQuest(_ context.Context, _ string, _ int) ([]services.ProposalView, error) {
	return nil, nil
}

func (f *fakeProposalStore) GetProposalByDidRkey(_ context.Context, did, rkey string) (*services.ProposalView, error) {
	if view, ok := f.views[did+"/"+rkey]; ok {
		return &view, nil
	}
	return nil, nil
}

type fakeQuestGetter struct {
	quests map[string]models.Quest
}

func (f *fakeQuestGetter) GetQuestByURI(_ context.Context, uri string) (*models.Quest, error) {
	if quest, ok := f.quests[uri]; ok {
		return &quest, nil
	}
	return nil, nil
}

type fakeSessionStore struct {
	sessions map[string]models.PDSSession
}

func (f *fakeSessionStore) PDSSessionByDID(_ context.Context, did string) (*models.PDSSession, error) {
	if session, ok := f.sessions[did]; ok {
		return &session, nil
	}
	return nil, nil
}

type fakeGateway struct {
	creates int
	puts    int
	deletes int
	uploads int
}

func (f *fakeGateway) CreateRecord(_ context.Context, session atproto.Session, collection string, _ any) (atproto.CreatedRecord, error) {
	f.creates++
	return atproto.CreatedRecord{
		URI: "at://" + session.DID + "/" + collection + "/3knew",
		CID: "bafynew",
	}, nil
}

func (f *fakeGateway) PutRecord(_ context.Context, session atproto.Session, collection, rkey string, _ any) (atproto.CreatedRecord, error) {
	f.puts++
	return atproto.CreatedRecord{
		URI: "at://" + session.DID + "/" + collection + "/" + rkey,
		CID: "bafyput",
	}, nil
}

func (f *fakeGateway) DeleteRecord(_ context.Context, _ atproto.Session, _, _ string) error {
	f.deletes++
	return nil
}

func (f *fakeGateway) UploadBlob(_ context.Context, _ atproto.Session, _ string, _ []byte) (json.RawMessage, error) {
	f.uploads++
	return json.RawMessage(`{"ref":"bafyblob"}`), nil
}

func (f *fakeGateway) DescribeRepo(_ context.Context, _ atproto.Session, _ string) (string, error) {
	return "alice.example.com", nil
}

func proposalTestFixture() (*fakeProposalStore, *fakeQuestGetter, *fakeSessionStore, *fakeGateway, *ProposalHandler) {
	proposals := &fakeProposalStore{
		views: map[string]services.ProposalView{
			"did:plc:owner/3kp": {
				Proposal: models.Proposal{
					URI:       "at://did:plc:owner/app.athub.issue/3kp",
					DID:       "did:plc:owner",
					Rkey:      "3kp",
					CID:       "bafyold",
					QuestURI:  "at://did:plc:alice/app.athub.repo/3kq",
					QuestCID:  "bafyquest",
					Title:     "Typo in chapter two",
					State:     "open",
					CreatedAt: "2024-02-02T00:00:00Z",
					IndexedAt: time.Now(),
				},
			},
		},
	}
	quests := &fakeQuestGetter{
		quests: map[string]models.Quest{
			"at://did:plc:alice/app.athub.repo/3kq": {
				URI: "at://did:plc:alice/app.athub.repo/3kq",
				DID: "did:plc:alice", Rkey: "3kq", CID: "bafyquest",
				Name: "Docs", CreatedAt: "2024-01-01T00:00:00Z",
			},
		},
	}
	sessions := &fakeSessionStore{
		sessions: map[string]models.PDSSession{
			"did:plc:owner":    {DID: "did:plc:owner", Endpoint: "https://pds.example", AccessJWT: "tok"},
			"did:plc:intruder": {DID: "did:plc:intruder", Endpoint: "https://pds.example", AccessJWT: "tok"},
		},
	}
	gateway := &fakeGateway{}
	handler := NewProposalHandler(proposals, quests, sessions, gateway)
	return proposals, quests, sessions, gateway, handler
}

func setStateRequest(t *testing.T, handler *ProposalHandler, actingDID, rkey, state string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	body, err := json.Marshal(map[string]string{"state": state})
	require.NoError(t, err)
	c.Request = httptest.NewRequest(http.MethodPatch, "/api/proposals/"+rkey+"/state", bytes.NewReader(body))
	c.Params = gin.Params{{Key: "rkey", Value: rkey}}
	c.Set("did", actingDID)

	handler.SetState(c)
	return w
}

func TestSetStateOwnerCloses(t *testing.T) {
	proposals, _, _, gateway, handler := proposalTestFixture()

	w := setStateRequest(t, handler, "did:plc:owner", "3kp", "closed")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, gateway.puts)
	require.Len(t, proposals.upserts, 1)
	assert.Equal(t, "closed", proposals.upserts[0].State)
	assert.Equal(t, "bafyput", proposals.upserts[0].CID)
	// The owner's original timestamp is preserved across the rewrite.
	assert.Equal(t, "2024-02-02T00:00:00Z", proposals.upserts[0].CreatedAt)
}

func TestSetStateNonOwnerRejectedBeforeGateway(t *testing.T) {
	proposals, _, _, gateway, handler := proposalTestFixture()

	w := setStateRequest(t, handler, "did:plc:intruder", "3kp", "closed")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Zero(t, gateway.puts, "the repository must never see a non-owner toggle")
	assert.Empty(t, proposals.upserts)
}

func TestSetStateRejectsUnknownState(t *testing.T) {
	_, _, _, gateway, handler := proposalTestFixture()

	w := setStateRequest(t, handler, "did:plc:owner", "3kp", "reopened")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, gateway.puts)
}

func createProposalRequest(t *testing.T, handler *ProposalHandler, actingDID string, payload map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	body, err := json.Marshal(payload)
	require.NoError(t, err)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/proposals", bytes.NewReader(body))
	c.Set("did", actingDID)

	handler.Create(c)
	return w
}

func TestCreateProposal(t *testing.T) {
	proposals, _, _, gateway, handler := proposalTestFixture()

	w := createProposalRequest(t, handler, "did:plc:owner", map[string]any{
		"questUri": "at://did:plc:alice/app.athub.repo/3kq",
		"title":    "Broken link",
		"body":     "Chapter three links nowhere.",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, gateway.creates)
	require.Len(t, proposals.upserts, 1)

	created := proposals.upserts[0]
	assert.Equal(t, "open", created.State)
	assert.Equal(t, "at://did:plc:alice/app.athub.repo/3kq", created.QuestURI)
	assert.Equal(t, "bafyquest", created.QuestCID, "the quest's last-seen hash is pinned into the reference")
	assert.Equal(t, "bafynew", created.CID)
}

func TestCreateProposalUnknownQuestRejectedBeforeGateway(t *testing.T) {
	proposals, _, _, gateway, handler := proposalTestFixture()

	w := createProposalRequest(t, handler, "did:plc:owner", map[string]any{
		"questUri": "at://did:plc:alice/app.athub.repo/missing",
		"title":    "Broken link",
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Zero(t, gateway.creates)
	assert.Empty(t, proposals.upserts)
}

func TestCreateProposalValidatesLengths(t *testing.T) {
	_, _, _, gateway, handler := proposalTestFixture()

	long := make([]byte, maxProposalTitleLen+1)
	for i := range long {
		long[i] = 'x'
	}
	w := createProposalRequest(t, handler, "did:plc:owner", map[string]any{
		"questUri": "at://did:plc:alice/app.athub.repo/3kq",
		"title":    string(long),
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, gateway.creates)
}
