package athub

import (
	"fmt"
	"regexp"
)

// atURIRe matches the strict at://authority/collection/rkey grammar. The
// rkey segment additionally rejects query strings and fragments so a
// partial match can never slip through.
var atURIRe = regexp.MustCompile(`^at://([^/]+)/([^/]+)/([^/?#]+)$`)

// ParsedURI is the decomposed form of an AT URI.
type ParsedURI struct {
	DID        string
	Collection string
	Rkey       string
}

// ParseURI decomposes an at:// URI, or returns false when the input does
// not match the grammar exactly.
func ParseURI(uri string) (ParsedURI, bool) {
	m := atURIRe.FindStringSubmatch(uri)
	if m == nil {
		return ParsedURI{}, false
	}
	return ParsedURI{DID: m[1], Collection: m[2], Rkey: m[3]}, true
}

// BuildURI assembles the canonical at:// URI for a record.
func BuildURI(did string, collection Collection, rkey string) string {
	return fmt.Sprintf("at://%s/%s/%s", did, collection, rkey)
}

// RkeyFromURI returns the record key segment of an AT URI.
func RkeyFromURI(uri string) (string, bool) {
	parsed, ok := ParseURI(uri)
	if !ok {
		return "", false
	}
	return parsed.Rkey, true
}

// CollectionFromURI returns the collection segment of an AT URI when it
// names one of the app's collections.
func CollectionFromURI(uri string) (Collection, bool) {
	parsed, ok := ParseURI(uri)
	if !ok || !IsCollection(parsed.Collection) {
		return "", false
	}
	return Collection(parsed.Collection), true
}

// bskyPostCollection is the only collection with a public web viewer.
const bskyPostCollection = "app.bsky.feed.post"

// BskyWebURL maps a Bluesky post URI to its public web viewer URL. It
// returns false for any other collection.
func BskyWebURL(uri string) (string, bool) {
	parsed, ok := ParseURI(uri)
	if !ok || parsed.Collection != bskyPostCollection {
		return "", false
	}
	return fmt.Sprintf("https://bsky.app/profile/%s/post/%s", parsed.DID, parsed.Rkey), true
}
