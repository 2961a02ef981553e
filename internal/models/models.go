package models

import (
	"time"

	"github.com/athub-social/appview/internal/athub"
)

// Every cached record carries two timestamps. CreatedAt is asserted by
// the record's owner and stored as the raw RFC3339 string it arrived
// with (untrusted). IndexedAt is assigned locally at ingestion time
// (trusted) and is the only value used for staleness reasoning.

// Account maps a DID to its human-readable handle.
type Account struct {
	DID       string    `db:"did" json:"did"`
	Handle    string    `db:"handle" json:"handle"`
	Active    bool      `db:"active" json:"active"`
	IndexedAt time.Time `db:"indexed_at" json:"indexedAt"`
}

// Quest is a cached app.athub.repo record.
type Quest struct {
	URI         string    `db:"uri" json:"uri"`
	DID         string    `db:"did" json:"did"`
	Rkey        string    `db:"rkey" json:"rkey"`
	CID         string    `db:"cid" json:"cid"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description"`
	Topics      []string  `db:"topics_json" json:"topics"`
	CreatedAt   string    `db:"created_at" json:"createdAt"`
	IndexedAt   time.Time `db:"indexed_at" json:"indexedAt"`
}

// Proposal is a cached app.athub.issue record.
type Proposal struct {
	URI           string    `db:"uri" json:"uri"`
	DID           string    `db:"did" json:"did"`
	Rkey          string    `db:"rkey" json:"rkey"`
	CID           string    `db:"cid" json:"cid"`
	QuestURI      string    `db:"quest_uri" json:"questUri"`
	QuestCID      string    `db:"quest_cid" json:"questCid"`
	Title         string    `db:"title" json:"title"`
	Body          *string   `db:"body" json:"body"`
	State         string    `db:"state" json:"state"`
	BskyThreadURI *string   `db:"bsky_thread_uri" json:"bskyThreadUri"`
	CreatedAt     string    `db:"created_at" json:"createdAt"`
	IndexedAt     time.Time `db:"indexed_at" json:"indexedAt"`
}

// Contribution is a cached app.athub.commit record.
type Contribution struct {
	URI       string            `db:"uri" json:"uri"`
	DID       string            `db:"did" json:"did"`
	Rkey      string            `db:"rkey" json:"rkey"`
	CID       string            `db:"cid" json:"cid"`
	QuestURI  string            `db:"quest_uri" json:"questUri"`
	QuestCID  string            `db:"quest_cid" json:"questCid"`
	Message   string            `db:"message" json:"message"`
	Body      *string           `db:"body" json:"body"`
	Media     []athub.MediaItem `db:"media_json" json:"media"`
	CreatedAt string            `db:"created_at" json:"createdAt"`
	IndexedAt time.Time         `db:"indexed_at" json:"indexedAt"`
}

// Badge is a cached app.athub.award record. Its subject is a Proposal
// or Contribution URI plus the content hash observed at award time.
type Badge struct {
	URI        string          `db:"uri" json:"uri"`
	DID        string          `db:"did" json:"did"`
	Rkey       string          `db:"rkey" json:"rkey"`
	CID        string          `db:"cid" json:"cid"`
	SubjectURI string          `db:"subject_uri" json:"subjectUri"`
	SubjectCID string          `db:"subject_cid" json:"subjectCid"`
	BadgeType  athub.BadgeType `db:"badge_type" json:"badgeType"`
	Comment    string          `db:"comment" json:"comment"`
	CreatedAt  string          `db:"created_at" json:"createdAt"`
	IndexedAt  time.Time       `db:"indexed_at" json:"indexedAt"`
}

// PDSSession holds the tokens for a user's personal data server, keyed
// by the owning DID.
type PDSSession struct {
	DID        string    `db:"did" json:"did"`
	Handle     string    `db:"handle" json:"handle"`
	Endpoint   string    `db:"endpoint" json:"endpoint"`
	AccessJWT  string    `db:"access_jwt" json:"-"`
	RefreshJWT string    `db:"refresh_jwt" json:"-"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}
