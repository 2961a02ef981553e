package athub

import "encoding/json"

// Record parsers convert untrusted, untyped webhook payloads into typed
// records. They are pure: no I/O, no partial results. A record either
// parses completely or is rejected with ok=false.

const maxTopics = 12

func asObject(value any) (map[string]any, bool) {
	obj, ok := value.(map[string]any)
	return obj, ok
}

func asString(value any) (string, bool) {
	s, ok := value.(string)
	return s, ok
}

// optString returns nil when the field is missing or not a string,
// preserving the distinction between "not set" and "set to empty".
func optString(obj map[string]any, key string) *string {
	if s, ok := obj[key].(string); ok {
		return &s
	}
	return nil
}

func parseStrongRef(value any) (StrongRef, bool) {
	obj, ok := asObject(value)
	if !ok {
		return StrongRef{}, false
	}
	uri, _ := asString(obj["uri"])
	cid, _ := asString(obj["cid"])
	if uri == "" || cid == "" {
		return StrongRef{}, false
	}
	return StrongRef{URI: uri, CID: cid}, true
}

// ParseQuestRecord validates an app.athub.repo payload.
func ParseQuestRecord(value any) (QuestRecord, bool) {
	obj, ok := asObject(value)
	if !ok {
		return QuestRecord{}, false
	}

	name, _ := asString(obj["name"])
	createdAt, _ := asString(obj["createdAt"])
	if name == "" || createdAt == "" {
		return QuestRecord{}, false
	}

	// Non-string topics are dropped rather than failing the record;
	// the surviving list is capped independently.
	var topics []string
	if raw, ok := obj["topics"].([]any); ok {
		for _, item := range raw {
			if s, ok := asString(item); ok {
				topics = append(topics, s)
			}
		}
		if len(topics) > maxTopics {
			topics = topics[:maxTopics]
		}
	}

	return QuestRecord{
		Name:        name,
		Description: optString(obj, "description"),
		Topics:      topics,
		CreatedAt:   createdAt,
	}, true
}

// ParseProposalRecord validates an app.athub.issue payload.
func ParseProposalRecord(value any) (ProposalRecord, bool) {
	obj, ok := asObject(value)
	if !ok {
		return ProposalRecord{}, false
	}

	repoRef, ok := parseStrongRef(obj["repoRef"])
	if !ok {
		return ProposalRecord{}, false
	}

	title, _ := asString(obj["title"])
	state, _ := asString(obj["state"])
	createdAt, _ := asString(obj["createdAt"])
	if title == "" || createdAt == "" || !IsProposalState(state) {
		return ProposalRecord{}, false
	}

	return ProposalRecord{
		RepoRef:       repoRef,
		Title:         title,
		Body:          optString(obj, "body"),
		State:         state,
		BskyThreadURI: optString(obj, "bskyThreadUri"),
		CreatedAt:     createdAt,
	}, true
}

// ParseContributionRecord validates an app.athub.commit payload.
// Malformed media entries are dropped element-wise; a record is never
// rejected because of its attachments.
func ParseContributionRecord(value any) (ContributionRecord, bool) {
	obj, ok := asObject(value)
	if !ok {
		return ContributionRecord{}, false
	}

	repoRef, ok := parseStrongRef(obj["repoRef"])
	if !ok {
		return ContributionRecord{}, false
	}

	message, _ := asString(obj["message"])
	createdAt, _ := asString(obj["createdAt"])
	if message == "" || createdAt == "" {
		return ContributionRecord{}, false
	}

	var media []MediaItem
	if raw, ok := obj["media"].([]any); ok {
		for _, item := range raw {
			entry, ok := asObject(item)
			if !ok {
				continue
			}
			mimeType, _ := asString(entry["mimeType"])
			size, sizeOK := entry["size"].(float64)
			if mimeType == "" || !sizeOK {
				continue
			}

			var blob json.RawMessage
			if rawBlob, ok := entry["blob"]; ok {
				if encoded, err := json.Marshal(rawBlob); err == nil {
					blob = encoded
				}
			}

			media = append(media, MediaItem{
				Blob:         blob,
				MimeType:     mimeType,
				Size:         int64(size),
				OriginalName: optString(entry, "originalName"),
			})
		}
	}

	return ContributionRecord{
		RepoRef:   repoRef,
		Message:   message,
		Body:      optString(obj, "body"),
		Media:     media,
		CreatedAt: createdAt,
	}, true
}

// ParseBadgeRecord validates an app.athub.award payload.
func ParseBadgeRecord(value any) (BadgeRecord, bool) {
	obj, ok := asObject(value)
	if !ok {
		return BadgeRecord{}, false
	}

	subject, ok := parseStrongRef(obj["subject"])
	if !ok {
		return BadgeRecord{}, false
	}

	badgeType, _ := asString(obj["badgeType"])
	comment, _ := asString(obj["comment"])
	createdAt, _ := asString(obj["createdAt"])
	if comment == "" || createdAt == "" || !IsBadgeType(badgeType) {
		return BadgeRecord{}, false
	}

	return BadgeRecord{
		Subject:   subject,
		BadgeType: BadgeType(badgeType),
		Comment:   comment,
		CreatedAt: createdAt,
	}, true
}
