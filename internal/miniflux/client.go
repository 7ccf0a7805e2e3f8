// Package miniflux is a thin client for the Miniflux v1 REST API,
// covering the handful of endpoints the bot needs. All failures surface
// as *Error values with a closed Kind taxonomy; the client never retries.
package miniflux

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"miniflux_bot/internal/model"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Credentials authenticate against the Miniflux instance. APIKey wins
// over username/password when both are set.
type Credentials struct {
	Username string
	Password string
	APIKey   string
}

// Client talks to a single Miniflux instance.
type Client struct {
	baseURL string
	creds   Credentials
	client  HTTPClient
	timeout time.Duration
	log     *slog.Logger
}

// New creates a Client for the instance at baseURL.
func New(baseURL string, creds Credentials, client HTTPClient, log *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		client:  client,
		timeout: 30 * time.Second,
		log:     log,
	}
}

// BaseURL returns the configured instance URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Categories returns all categories known to the reader.
func (c *Client) Categories(ctx context.Context) ([]model.Category, error) {
	var cats []model.Category
	if err := c.do(ctx, "categories", http.MethodGet, "/v1/categories", nil, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

// Feeds returns all subscribed feeds.
func (c *Client) Feeds(ctx context.Context) ([]model.Feed, error) {
	var feeds []model.Feed
	if err := c.do(ctx, "feeds", http.MethodGet, "/v1/feeds", nil, &feeds); err != nil {
		return nil, err
	}
	return feeds, nil
}

// FeedsByCategory returns the feeds assigned to a category.
func (c *Client) FeedsByCategory(ctx context.Context, categoryID int64) ([]model.Feed, error) {
	var feeds []model.Feed
	path := fmt.Sprintf("/v1/categories/%d/feeds", categoryID)
	if err := c.do(ctx, "feeds by category", http.MethodGet, path, nil, &feeds); err != nil {
		return nil, err
	}
	return feeds, nil
}

// Feed returns a single feed by id.
func (c *Client) Feed(ctx context.Context, feedID int64) (*model.Feed, error) {
	var feed model.Feed
	path := fmt.Sprintf("/v1/feeds/%d", feedID)
	if err := c.do(ctx, "feed", http.MethodGet, path, nil, &feed); err != nil {
		return nil, err
	}
	return &feed, nil
}

// FeedExists reports whether a subscription with the exact feed URL
// already exists.
func (c *Client) FeedExists(ctx context.Context, feedURL string) (bool, error) {
	feeds, err := c.Feeds(ctx)
	if err != nil {
		return false, err
	}
	for _, f := range feeds {
		if f.FeedURL == feedURL {
			return true, nil
		}
	}
	return false, nil
}

// CreateFeed subscribes to feedURL in the given category and returns the
// new feed id. A duplicate subscription surfaces as a KindAPI error.
func (c *Client) CreateFeed(ctx context.Context, feedURL string, categoryID int64) (int64, error) {
	body := map[string]any{
		"feed_url":    feedURL,
		"category_id": categoryID,
	}
	var out struct {
		FeedID int64 `json:"feed_id"`
	}
	if err := c.do(ctx, "create feed", http.MethodPost, "/v1/feeds", body, &out); err != nil {
		return 0, err
	}
	return out.FeedID, nil
}

// UpdateFeedURL replaces the feed's source URL, then re-fetches the feed
// to confirm the change took effect. It returns false (with a nil error)
// when the backend accepted the request but the URL did not change.
func (c *Client) UpdateFeedURL(ctx context.Context, feedID int64, newURL string) (bool, error) {
	body := map[string]any{"feed_url": newURL}
	path := fmt.Sprintf("/v1/feeds/%d", feedID)
	if err := c.do(ctx, "update feed", http.MethodPut, path, body, nil); err != nil {
		return false, err
	}

	feed, err := c.Feed(ctx, feedID)
	if err != nil {
		return false, err
	}
	if feed.FeedURL != newURL {
		c.log.Warn("feed url update was a no-op", "feed_id", feedID, "want", newURL, "got", feed.FeedURL)
		return false, nil
	}
	return true, nil
}

// DeleteFeed removes a subscription.
func (c *Client) DeleteFeed(ctx context.Context, feedID int64) error {
	path := fmt.Sprintf("/v1/feeds/%d", feedID)
	return c.do(ctx, "delete feed", http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindAPI, Op: op, Message: fmt.Sprintf("encode request: %v", err)}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return &Error{Kind: KindAPI, Op: op, Message: fmt.Sprintf("create request: %v", err)}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.creds.APIKey != "" {
		req.Header.Set("X-Auth-Token", c.creds.APIKey)
	} else {
		req.SetBasicAuth(c.creds.Username, c.creds.Password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &Error{Kind: KindTransient, Op: op, Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return &Error{Kind: KindTransient, Op: op, Status: resp.StatusCode, Message: fmt.Sprintf("read body: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{
			Kind:    classifyStatus(resp.StatusCode),
			Op:      op,
			Status:  resp.StatusCode,
			Message: errorMessage(data),
		}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return &Error{Kind: KindAPI, Op: op, Status: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err)}
		}
	}
	return nil
}

// errorMessage pulls the error_message field out of a Miniflux error
// payload, falling back to the raw body.
func errorMessage(data []byte) string {
	var payload struct {
		ErrorMessage string `json:"error_message"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.ErrorMessage != "" {
		return payload.ErrorMessage
	}
	msg := strings.TrimSpace(string(data))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
