// Package rest accesses the collaborator REST surface around the chat
// channel: the profile store that supplies current-user identity and the
// read-state service that owns cross-device unread counts. The live channel
// never depends on it; shells use it to seed identity and to reconcile the
// in-memory unread counter with the service-side one.
package rest

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

// Client provides REST API access to the mapmeet services.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new REST API client.
// baseURL should be the base URL of the API, e.g., "https://api.mapmeet.app/api".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient allows setting a custom HTTP client.
func (c *Client) SetHTTPClient(client *http.Client) {
	if client != nil {
		c.httpClient = client
	}
}

// SetToken sets the bearer token for authenticated requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Me returns the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (*Profile, error) {
	var resp Profile
	if err := c.get(ctx, "/me", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UnreadCounts returns the service-side unread counts per room. The live
// channel keeps its own counter for open rooms; this is the source of truth
// for rooms that are not open.
func (c *Client) UnreadCounts(ctx context.Context) (map[string]int, error) {
	var resp UnreadCountsResponse
	if err := c.get(ctx, "/chats/unread", &resp); err != nil {
		return nil, err
	}
	return resp.Counts, nil
}

// MarkRead tells the read-state service that the room has been read up to
// now. Shells call it when a room expands, alongside the local reset.
func (c *Client) MarkRead(ctx context.Context, roomID string) error {
	return c.post(ctx, "/chats/"+url.PathEscape(roomID)+"/read", nil, nil)
}

// Helper methods

func (c *Client) post(ctx context.Context, path string, body, dest any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	return c.do(req, dest)
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("api error (status %d): %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("http error: %s (status %d)", string(body), resp.StatusCode)
	}

	if dest != nil {
		if err := json.Unmarshal(body, dest); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
