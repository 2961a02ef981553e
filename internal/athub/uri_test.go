package athub

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		name   string
		uri    string
		want   ParsedURI
		wantOK bool
	}{
		{
			name:   "valid quest uri",
			uri:    "at://did:plc:abc123/app.athub.repo/3kxyz",
			want:   ParsedURI{DID: "did:plc:abc123", Collection: "app.athub.repo", Rkey: "3kxyz"},
			wantOK: true,
		},
		{
			name:   "valid bsky post uri",
			uri:    "at://did:plc:abc123/app.bsky.feed.post/3kabc",
			want:   ParsedURI{DID: "did:plc:abc123", Collection: "app.bsky.feed.post", Rkey: "3kabc"},
			wantOK: true,
		},
		{
			name: "missing scheme",
			uri:  "did:plc:abc123/app.athub.repo/3kxyz",
		},
		{
			name: "missing rkey",
			uri:  "at://did:plc:abc123/app.athub.repo",
		},
		{
			name: "trailing segment",
			uri:  "at://did:plc:abc123/app.athub.repo/3kxyz/extra",
		},
		{
			name: "query string in rkey",
			uri:  "at://did:plc:abc123/app.athub.repo/3kxyz?x=1",
		},
		{
			name: "fragment in rkey",
			uri:  "at://did:plc:abc123/app.athub.repo/3kxyz#frag",
		},
		{
			name: "empty string",
			uri:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, ok := ParseURI(tt.uri)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, parsed)
		})
	}
}

func TestBuildURIRoundTrip(t *testing.T) {
	uri := BuildURI("did:plc:abc123", CollectionProposal, "3kxyz")
	assert.Equal(t, "at://did:plc:abc123/app.athub.issue/3kxyz", uri)

	parsed, ok := ParseURI(uri)
	assert.True(t, ok)
	assert.Equal(t, "did:plc:abc123", parsed.DID)
	assert.Equal(t, string(CollectionProposal), parsed.Collection)
	assert.Equal(t, "3kxyz", parsed.Rkey)
}

func TestRkeyFromURI(t *testing.T) {
	rkey, ok := RkeyFromURI("at://did:plc:abc/app.athub.commit/3kaaa")
	assert.True(t, ok)
	assert.Equal(t, "3kaaa", rkey)

	_, ok = RkeyFromURI("not-a-uri")
	assert.False(t, ok)
}

func TestCollectionFromURI(t *testing.T) {
	collection, ok := CollectionFromURI("at://did:plc:abc/app.athub.award/3kaaa")
	assert.True(t, ok)
	assert.Equal(t, CollectionBadge, collection)

	// Well-formed URI, but not one of ours.
	_, ok = CollectionFromURI("at://did:plc:abc/app.bsky.feed.post/3kaaa")
	assert.False(t, ok)
}

func TestBskyWebURL(t *testing.T) {
	url, ok := BskyWebURL("at://did:plc:abc/app.bsky.feed.post/3kaaa")
	assert.True(t, ok)
	assert.Equal(t, "https://bsky.app/profile/did:plc:abc/post/3kaaa", url)

	// Only post URIs have a public viewer.
	_, ok = BskyWebURL("at://did:plc:abc/app.athub.repo/3kaaa")
	assert.False(t, ok)

	_, ok = BskyWebURL("garbage")
	assert.False(t, ok)
}
