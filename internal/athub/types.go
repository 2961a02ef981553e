package athub

import "encoding/json"

// StrongRef points at a specific version of a remote record.
type StrongRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

// QuestRecord is the lexicon shape of an app.athub.repo record.
type QuestRecord struct {
	Name        string   `json:"name"`
	Description *string  `json:"description,omitempty"`
	Topics      []string `json:"topics,omitempty"`
	CreatedAt   string   `json:"createdAt"`
}

// ProposalRecord is the lexicon shape of an app.athub.issue record.
type ProposalRecord struct {
	RepoRef       StrongRef `json:"repoRef"`
	Title         string    `json:"title"`
	Body          *string   `json:"body,omitempty"`
	State         string    `json:"state"`
	BskyThreadURI *string   `json:"bskyThreadUri,omitempty"`
	CreatedAt     string    `json:"createdAt"`
}

// MediaItem describes one attachment on a contribution. Blob carries the
// PDS blob reference verbatim; the app never interprets it.
type MediaItem struct {
	Blob         json.RawMessage `json:"blob"`
	MimeType     string          `json:"mimeType"`
	Size         int64           `json:"size"`
	OriginalName *string         `json:"originalName,omitempty"`
}

// ContributionRecord is the lexicon shape of an app.athub.commit record.
type ContributionRecord struct {
	RepoRef   StrongRef   `json:"repoRef"`
	Message   string      `json:"message"`
	Body      *string     `json:"body,omitempty"`
	Media     []MediaItem `json:"media,omitempty"`
	CreatedAt string      `json:"createdAt"`
}

// BadgeRecord is the lexicon shape of an app.athub.award record.
type BadgeRecord struct {
	Subject   StrongRef `json:"subject"`
	BadgeType BadgeType `json:"badgeType"`
	Comment   string    `json:"comment"`
	CreatedAt string    `json:"createdAt"`
}
