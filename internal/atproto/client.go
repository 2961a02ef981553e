package atproto

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client speaks XRPC to personal data servers. Calls fail with the
// remote's own error surfaced verbatim; nothing is retried here.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new XRPC client
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Session carries what a write call needs: whose repository, where it
// lives, and the access token for it.
type Session struct {
	DID       string
	Endpoint  string
	AccessJWT string
}

// CreatedRecord is the canonical identity a PDS assigns to a record.
type CreatedRecord struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

// XRPCError is a failed XRPC call.
type XRPCError struct {
	Status  int
	Code    string
	Message string
}

func (e *XRPCError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("xrpc: %s (status %d)", e.Message, e.Status)
	}
	return fmt.Sprintf("xrpc: request failed with status %d", e.Status)
}

func (c *Client) do(ctx context.Context, endpoint, accessJWT, method, nsid string, query url.Values, contentType string, body io.Reader, out any) error {
	u := endpoint + "/xrpc/" + nsid
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if accessJWT != "" {
		req.Header.Set("Authorization", "Bearer "+accessJWT)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("xrpc request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		xe := &XRPCError{Status: resp.StatusCode}
		var remote struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &remote) == nil {
			xe.Code = remote.Error
			xe.Message = remote.Message
		}
		return xe
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("invalid xrpc response: %w", err)
		}
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, session Session, nsid string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	return c.do(ctx, session.Endpoint, session.AccessJWT, http.MethodPost, nsid,
		nil, "application/json", bytes.NewReader(body), out)
}

// AuthSession is the result of an app-password login.
type AuthSession struct {
	DID        string `json:"did"`
	Handle     string `json:"handle"`
	AccessJWT  string `json:"accessJwt"`
	RefreshJWT string `json:"refreshJwt"`
}

// CreateSession logs in with an identifier and app password.
func (c *Client) CreateSession(ctx context.Context, pdsURL, identifier, password string) (*AuthSession, error) {
	body, err := json.Marshal(map[string]string{
		"identifier": identifier,
		"password":   password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var session AuthSession
	err = c.do(ctx, pdsURL, "", http.MethodPost, "com.atproto.server.createSession",
		nil, "application/json", bytes.NewReader(body), &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// CreateRecord writes a new record into the session's repository and
// returns the URI and content hash the PDS assigned.
func (c *Client) CreateRecord(ctx context.Context, session Session, collection string, record any) (CreatedRecord, error) {
	var created CreatedRecord
	err := c.postJSON(ctx, session, "com.atproto.repo.createRecord", map[string]any{
		"repo":       session.DID,
		"collection": collection,
		"record":     record,
	}, &created)
	return created, err
}

// PutRecord overwrites an existing record at a known record key.
func (c *Client) PutRecord(ctx context.Context, session Session, collection, rkey string, record any) (CreatedRecord, error) {
	var created CreatedRecord
	err := c.postJSON(ctx, session, "com.atproto.repo.putRecord", map[string]any{
		"repo":       session.DID,
		"collection": collection,
		"rkey":       rkey,
		"record":     record,
	}, &created)
	return created, err
}

// DeleteRecord removes a record from the session's repository.
func (c *Client) DeleteRecord(ctx context.Context, session Session, collection, rkey string) error {
	return c.postJSON(ctx, session, "com.atproto.repo.deleteRecord", map[string]any{
		"repo":       session.DID,
		"collection": collection,
		"rkey":       rkey,
	}, nil)
}

// UploadBlob stores raw bytes on the session's PDS and returns the blob
// reference to embed in a record.
func (c *Client) UploadBlob(ctx context.Context, session Session, contentType string, data []byte) (json.RawMessage, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var result struct {
		Blob json.RawMessage `json:"blob"`
	}
	err := c.do(ctx, session.Endpoint, session.AccessJWT, http.MethodPost,
		"com.atproto.repo.uploadBlob", nil, contentType, bytes.NewReader(data), &result)
	if err != nil {
		return nil, err
	}
	if len(result.Blob) == 0 {
		return nil, &XRPCError{Status: http.StatusBadGateway, Message: "upload returned no blob"}
	}
	return result.Blob, nil
}

// DescribeRepo returns repository metadata, used to refresh the cached
// handle after a write.
func (c *Client) DescribeRepo(ctx context.Context, session Session, did string) (string, error) {
	query := url.Values{"repo": {did}}
	var result struct {
		Handle string `json:"handle"`
	}
	err := c.do(ctx, session.Endpoint, session.AccessJWT, http.MethodGet,
		"com.atproto.repo.describeRepo", query, "", nil, &result)
	if err != nil {
		return "", err
	}
	return result.Handle, nil
}
