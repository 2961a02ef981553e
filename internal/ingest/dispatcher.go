package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/athub-social/appview/internal/athub"
	"github.com/athub-social/appview/internal/models"
)

// ErrInvalidEnvelope marks a structural rejection: the event never
// reached a parser and the sender should see a client error.
var ErrInvalidEnvelope = errors.New("invalid event envelope")

// AccountStore is the slice of the cache the dispatcher needs for
// identity events.
type AccountStore interface {
	UpsertAccount(ctx context.Context, account models.Account) error
	DeleteAccount(ctx context.Context, did string) error
}

// QuestStore applies quest record events.
type QuestStore interface {
	UpsertQuest(ctx context.Context, quest models.Quest) error
	DeleteQuest(ctx context.Context, uri string) error
}

// ProposalStore applies proposal record events.
type ProposalStore interface {
	UpsertProposal(ctx context.Context, proposal models.Proposal) error
	DeleteProposal(ctx context.Context, uri string) error
}

// ContributionStore applies contribution record events.
type ContributionStore interface {
	UpsertContribution(ctx context.Context, contribution models.Contribution) error
	DeleteContribution(ctx context.Context, uri string) error
}

// BadgeStore applies badge record events.
type BadgeStore interface {
	UpsertBadge(ctx context.Context, badge models.Badge) error
	DeleteBadge(ctx context.Context, uri string) error
}

// Dispatcher routes identity and record lifecycle events to the cache.
// It owns no locks; concurrent dispatches rely on the store's per-row
// write atomicity, and the most recently applied write wins.
type Dispatcher struct {
	accounts      AccountStore
	quests        QuestStore
	proposals     ProposalStore
	contributions ContributionStore
	badges        BadgeStore

	now     func() time.Time
	dropped atomic.Int64
}

// NewDispatcher creates a new dispatcher over the given cache stores.
func NewDispatcher(accounts AccountStore, quests QuestStore, proposals ProposalStore, contributions ContributionStore, badges BadgeStore) *Dispatcher {
	return &Dispatcher{
		accounts:      accounts,
		quests:        quests,
		proposals:     proposals,
		contributions: contributions,
		badges:        badges,
		now:           time.Now,
	}
}

// Dropped reports how many well-enveloped record events were discarded
// because their payload failed shape validation. A climbing counter
// points at a systematically misbehaving sender.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

func asObject(value any) (map[string]any, bool) {
	obj, ok := value.(map[string]any)
	return obj, ok
}

func asString(value any) (string, bool) {
	s, ok := value.(string)
	return s, ok
}

// Dispatch applies one decoded event envelope. A nil return means the
// event was acknowledged, whether or not it produced a visible effect;
// ErrInvalidEnvelope means the envelope itself was unusable. Other
// errors are store failures.
func (d *Dispatcher) Dispatch(ctx context.Context, payload any) error {
	event, ok := asObject(payload)
	if !ok {
		return fmt.Errorf("%w: payload is not an object", ErrInvalidEnvelope)
	}

	switch event["type"] {
	case "identity":
		return d.dispatchIdentity(ctx, event)
	case "record":
		return d.dispatchRecord(ctx, event)
	}

	// Unknown event types are acknowledged and ignored so the sender
	// cannot distinguish them from applied events.
	return nil
}

func (d *Dispatcher) dispatchIdentity(ctx context.Context, event map[string]any) error {
	did, _ := asString(event["did"])
	if did == "" {
		return fmt.Errorf("%w: identity event without did", ErrInvalidEnvelope)
	}

	if status, _ := asString(event["status"]); status == "deleted" {
		return d.accounts.DeleteAccount(ctx, did)
	}

	handle, ok := asString(event["handle"])
	if !ok || handle == "" {
		handle = did
	}
	// Active defaults to true unless the event says false explicitly.
	active := event["isActive"] != false

	return d.accounts.UpsertAccount(ctx, models.Account{
		DID:       did,
		Handle:    handle,
		Active:    active,
		IndexedAt: d.now(),
	})
}

func (d *Dispatcher) dispatchRecord(ctx context.Context, event map[string]any) error {
	did, _ := asString(event["did"])
	collection, _ := asString(event["collection"])
	rkey, _ := asString(event["rkey"])
	action, _ := asString(event["action"])

	if did == "" || collection == "" || rkey == "" || action == "" {
		return fmt.Errorf("%w: record event missing did/collection/rkey/action", ErrInvalidEnvelope)
	}
	if !athub.IsCollection(collection) {
		return fmt.Errorf("%w: unknown collection %q", ErrInvalidEnvelope, collection)
	}

	uri := d.eventURI(did, athub.Collection(collection), rkey, event["uri"])

	switch action {
	case "delete":
		return d.applyDelete(ctx, athub.Collection(collection), uri)
	case "create", "update":
		cid, ok := asString(event["cid"])
		if !ok || cid == "" {
			cid = "unknown"
		}
		return d.applyUpsert(ctx, did, athub.Collection(collection), rkey, cid, uri, event["record"])
	}

	// Unknown actions fall through to the uniform acknowledgement.
	return nil
}

// eventURI prefers the URI asserted by the event and reconstructs the
// canonical one otherwise.
func (d *Dispatcher) eventURI(did string, collection athub.Collection, rkey string, raw any) string {
	if uri, ok := asString(raw); ok && uri != "" {
		return uri
	}
	return athub.BuildURI(did, collection, rkey)
}

func (d *Dispatcher) applyDelete(ctx context.Context, collection athub.Collection, uri string) error {
	switch collection {
	case athub.CollectionQuest:
		return d.quests.DeleteQuest(ctx, uri)
	case athub.CollectionProposal:
		return d.proposals.DeleteProposal(ctx, uri)
	case athub.CollectionContribution:
		return d.contributions.DeleteContribution(ctx, uri)
	default:
		return d.badges.DeleteBadge(ctx, uri)
	}
}

// applyUpsert validates the record body and overwrites the cache row. A
// payload that fails validation is dropped without an error: redelivery
// cannot fix a permanently malformed record, so the sender gets the
// same acknowledgement either way.
func (d *Dispatcher) applyUpsert(ctx context.Context, did string, collection athub.Collection, rkey, cid, uri string, record any) error {
	indexedAt := d.now()

	switch collection {
	case athub.CollectionQuest:
		parsed, ok := athub.ParseQuestRecord(record)
		if !ok {
			return d.drop(did, collection, rkey)
		}
		return d.quests.UpsertQuest(ctx, models.Quest{
			URI: uri, DID: did, Rkey: rkey, CID: cid,
			Name:        parsed.Name,
			Description: parsed.Description,
			Topics:      parsed.Topics,
			CreatedAt:   parsed.CreatedAt,
			IndexedAt:   indexedAt,
		})

	case athub.CollectionProposal:
		parsed, ok := athub.ParseProposalRecord(record)
		if !ok {
			return d.drop(did, collection, rkey)
		}
		return d.proposals.UpsertProposal(ctx, models.Proposal{
			URI: uri, DID: did, Rkey: rkey, CID: cid,
			QuestURI:      parsed.RepoRef.URI,
			QuestCID:      parsed.RepoRef.CID,
			Title:         parsed.Title,
			Body:          parsed.Body,
			State:         parsed.State,
			BskyThreadURI: parsed.BskyThreadURI,
			CreatedAt:     parsed.CreatedAt,
			IndexedAt:     indexedAt,
		})

	case athub.CollectionContribution:
		parsed, ok := athub.ParseContributionRecord(record)
		if !ok {
			return d.drop(did, collection, rkey)
		}
		return d.contributions.UpsertContribution(ctx, models.Contribution{
			URI: uri, DID: did, Rkey: rkey, CID: cid,
			QuestURI:  parsed.RepoRef.URI,
			QuestCID:  parsed.RepoRef.CID,
			Message:   parsed.Message,
			Body:      parsed.Body,
			Media:     parsed.Media,
			CreatedAt: parsed.CreatedAt,
			IndexedAt: indexedAt,
		})

	default:
		parsed, ok := athub.ParseBadgeRecord(record)
		if !ok {
			return d.drop(did, collection, rkey)
		}
		return d.badges.UpsertBadge(ctx, models.Badge{
			URI: uri, DID: did, Rkey: rkey, CID: cid,
			SubjectURI: parsed.Subject.URI,
			SubjectCID: parsed.Subject.CID,
			BadgeType:  parsed.BadgeType,
			Comment:    parsed.Comment,
			CreatedAt:  parsed.CreatedAt,
			IndexedAt:  indexedAt,
		})
	}
}

func (d *Dispatcher) drop(did string, collection athub.Collection, rkey string) error {
	d.dropped.Add(1)
	log.Printf("ingest: dropped malformed %s record from %s (rkey %s)", collection, did, rkey)
	return nil
}
