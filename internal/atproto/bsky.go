package atproto

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/athub-social/appview/internal/athub"
)

// ThreadSummary is a read-only snapshot of an externally hosted
// discussion thread, used purely for display enrichment.
type ThreadSummary struct {
	URI          string  `json:"uri"`
	Text         *string `json:"text"`
	AuthorHandle *string `json:"authorHandle"`
	ReplyCount   int     `json:"replyCount"`
	RepostCount  int     `json:"repostCount"`
	LikeCount    int     `json:"likeCount"`
	WebURL       *string `json:"webUrl"`
}

// BskyReader fetches thread summaries from the public Bluesky AppView.
type BskyReader struct {
	httpClient *http.Client
	baseURL    string
}

// NewBskyReader creates a new reader against the given AppView URL.
func NewBskyReader(baseURL string) *BskyReader {
	return &BskyReader{
		httpClient: http.DefaultClient,
		baseURL:    baseURL,
	}
}

// FetchThreadSummary returns the root post of a thread, or nil when the
// thread cannot be fetched. Cache correctness never depends on it.
func (r *BskyReader) FetchThreadSummary(ctx context.Context, uri string) (*ThreadSummary, error) {
	endpoint := fmt.Sprintf("%s/xrpc/app.bsky.feed.getPostThread?uri=%s&depth=1",
		r.baseURL, url.QueryEscape(uri))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	var data struct {
		Thread struct {
			Post struct {
				URI    string `json:"uri"`
				Author struct {
					Handle *string `json:"handle"`
				} `json:"author"`
				ReplyCount  int `json:"replyCount"`
				RepostCount int `json:"repostCount"`
				LikeCount   int `json:"likeCount"`
				Record      struct {
					Text *string `json:"text"`
				} `json:"record"`
			} `json:"post"`
		} `json:"thread"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, nil
	}

	post := data.Thread.Post
	if post.URI == "" {
		return nil, nil
	}

	summary := &ThreadSummary{
		URI:          post.URI,
		Text:         post.Record.Text,
		AuthorHandle: post.Author.Handle,
		ReplyCount:   post.ReplyCount,
		RepostCount:  post.RepostCount,
		LikeCount:    post.LikeCount,
	}
	if webURL, ok := athub.BskyWebURL(post.URI); ok {
		summary.WebURL = &webURL
	}
	return summary, nil
}
