package athub

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseQuestRecord(t *testing.T) {
	tests := []struct {
		name   string
		value  any
		wantOK bool
	}{
		{
			name: "minimal valid record",
			value: map[string]any{
				"name":      "Docs",
				"createdAt": "2024-01-01T00:00:00Z",
			},
			wantOK: true,
		},
		{
			name: "missing name",
			value: map[string]any{
				"createdAt": "2024-01-01T00:00:00Z",
			},
		},
		{
			name: "missing createdAt",
			value: map[string]any{
				"name": "Docs",
			},
		},
		{
			name: "name wrong type",
			value: map[string]any{
				"name":      42,
				"createdAt": "2024-01-01T00:00:00Z",
			},
		},
		{
			name:  "not an object",
			value: "just a string",
		},
		{
			name:  "nil payload",
			value: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseQuestRecord(tt.value)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestParseQuestRecordOptionals(t *testing.T) {
	record, ok := ParseQuestRecord(map[string]any{
		"name":      "Docs",
		"createdAt": "2024-01-01T00:00:00Z",
	})
	assert.True(t, ok)
	assert.Nil(t, record.Description, "absent description must stay nil")
	assert.Nil(t, record.Topics)

	record, ok = ParseQuestRecord(map[string]any{
		"name":        "Docs",
		"description": "",
		"createdAt":   "2024-01-01T00:00:00Z",
	})
	assert.True(t, ok)
	// Empty string is still set; only absence maps to nil.
	assert.NotNil(t, record.Description)
	assert.Equal(t, "", *record.Description)
}

func TestParseQuestRecordTopics(t *testing.T) {
	record, ok := ParseQuestRecord(map[string]any{
		"name":      "Docs",
		"createdAt": "2024-01-01T00:00:00Z",
		"topics":    []any{"go", 7, "atproto", nil, "cache"},
	})
	assert.True(t, ok)
	assert.Equal(t, []string{"go", "atproto", "cache"}, record.Topics)

	// Over the cap: the surviving list is truncated, not rejected.
	var many []any
	for i := 0; i < 20; i++ {
		many = append(many, "topic")
	}
	record, ok = ParseQuestRecord(map[string]any{
		"name":      "Docs",
		"createdAt": "2024-01-01T00:00:00Z",
		"topics":    many,
	})
	assert.True(t, ok)
	assert.Len(t, record.Topics, 12)

	// A non-list topics field is ignored entirely.
	record, ok = ParseQuestRecord(map[string]any{
		"name":      "Docs",
		"createdAt": "2024-01-01T00:00:00Z",
		"topics":    "go",
	})
	assert.True(t, ok)
	assert.Nil(t, record.Topics)
}

func TestParseProposalRecord(t *testing.T) {
	validRef := map[string]any{"uri": "at://did:plc:abc/app.athub.repo/3k", "cid": "bafyabc"}

	tests := []struct {
		name   string
		value  any
		wantOK bool
	}{
		{
			name: "valid open proposal",
			value: map[string]any{
				"repoRef":   validRef,
				"title":     "Fix the docs",
				"state":     "open",
				"createdAt": "2024-01-01T00:00:00Z",
			},
			wantOK: true,
		},
		{
			name: "missing repoRef",
			value: map[string]any{
				"title":     "Fix the docs",
				"state":     "open",
				"createdAt": "2024-01-01T00:00:00Z",
			},
		},
		{
			name: "ref with empty cid",
			value: map[string]any{
				"repoRef":   map[string]any{"uri": "at://did:plc:abc/app.athub.repo/3k", "cid": ""},
				"title":     "Fix the docs",
				"state":     "open",
				"createdAt": "2024-01-01T00:00:00Z",
			},
		},
		{
			name: "state outside the closed set",
			value: map[string]any{
				"repoRef":   validRef,
				"title":     "Fix the docs",
				"state":     "reopened",
				"createdAt": "2024-01-01T00:00:00Z",
			},
		},
		{
			name: "missing title",
			value: map[string]any{
				"repoRef":   validRef,
				"state":     "closed",
				"createdAt": "2024-01-01T00:00:00Z",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseProposalRecord(tt.value)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestParseContributionRecordMedia(t *testing.T) {
	base := map[string]any{
		"repoRef":   map[string]any{"uri": "at://did:plc:abc/app.athub.repo/3k", "cid": "bafyabc"},
		"message":   "Add chapter one",
		"createdAt": "2024-01-01T00:00:00Z",
	}

	record, ok := ParseContributionRecord(base)
	assert.True(t, ok)
	assert.Nil(t, record.Media)

	// Malformed entries drop individually; the record survives.
	base["media"] = []any{
		map[string]any{"mimeType": "image/png", "size": float64(1024), "blob": map[string]any{"ref": "bafyblob"}},
		map[string]any{"mimeType": "image/png"},
		map[string]any{"size": float64(10)},
		"not an object",
	}
	record, ok = ParseContributionRecord(base)
	assert.True(t, ok)
	assert.Len(t, record.Media, 1)
	assert.Equal(t, "image/png", record.Media[0].MimeType)
	assert.Equal(t, int64(1024), record.Media[0].Size)
	assert.NotEmpty(t, record.Media[0].Blob)

	// Missing message still rejects regardless of media.
	delete(base, "message")
	_, ok = ParseContributionRecord(base)
	assert.False(t, ok)
}

func TestParseBadgeRecord(t *testing.T) {
	validSubject := map[string]any{"uri": "at://did:plc:abc/app.athub.issue/3k", "cid": "bafyabc"}

	tests := []struct {
		name   string
		value  any
		wantOK bool
	}{
		{
			name: "valid badge",
			value: map[string]any{
				"subject":   validSubject,
				"badgeType": "insightful",
				"comment":   "great catch",
				"createdAt": "2024-01-01T00:00:00Z",
			},
			wantOK: true,
		},
		{
			name: "badge type outside the closed set",
			value: map[string]any{
				"subject":   validSubject,
				"badgeType": "legendary",
				"comment":   "great catch",
				"createdAt": "2024-01-01T00:00:00Z",
			},
		},
		{
			name: "missing subject",
			value: map[string]any{
				"badgeType": "brave",
				"comment":   "great catch",
				"createdAt": "2024-01-01T00:00:00Z",
			},
		},
		{
			name: "missing comment",
			value: map[string]any{
				"subject":   validSubject,
				"badgeType": "brave",
				"createdAt": "2024-01-01T00:00:00Z",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseBadgeRecord(tt.value)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}
