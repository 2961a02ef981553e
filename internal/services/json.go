package services

import (
	"encoding/json"

	"github.com/athub-social/appview/internal/athub"
)

// The cache keeps auxiliary lists (topic tags, media descriptors) as
// serialized JSON text columns. A row that fails to decode yields an
// empty list rather than a read error.

func marshalTopics(topics []string) string {
	if topics == nil {
		topics = []string{}
	}
	data, err := json.Marshal(topics)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func unmarshalTopics(raw string) []string {
	var topics []string
	if err := json.Unmarshal([]byte(raw), &topics); err != nil || topics == nil {
		return []string{}
	}
	return topics
}

func marshalMedia(media []athub.MediaItem) string {
	if media == nil {
		media = []athub.MediaItem{}
	}
	data, err := json.Marshal(media)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func unmarshalMedia(raw string) []athub.MediaItem {
	var media []athub.MediaItem
	if err := json.Unmarshal([]byte(raw), &media); err != nil || media == nil {
		return []athub.MediaItem{}
	}
	return media
}
