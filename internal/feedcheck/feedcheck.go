// Package feedcheck verifies that a URL serves a real RSS/Atom feed,
// either directly or via feed links advertised in an HTML page.
package feedcheck

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// FeedLink is an RSS/Atom feed advertised by an HTML page.
type FeedLink struct {
	Title string
	Href  string
}

// Checker probes URLs for feed documents.
type Checker struct {
	client  HTTPClient
	timeout time.Duration
	log     *slog.Logger
}

// New creates a Checker with the given HTTP client.
func New(client HTTPClient, log *slog.Logger) *Checker {
	return &Checker{
		client:  client,
		timeout: 30 * time.Second,
		log:     log,
	}
}

// Content types that identify a feed document directly.
var feedContentTypes = []string{
	"application/rss+xml",
	"application/atom+xml",
	"application/xml",
	"text/xml",
}

// Validate reports whether url serves a feed document: a direct XML feed,
// or an HTML page advertising at least one feed <link>. Network failures,
// bad URLs, and anything else return false; the reason is logged.
func (c *Checker) Validate(ctx context.Context, rawURL string) bool {
	body, contentType, ok := c.get(ctx, rawURL)
	if !ok {
		return false
	}

	if isFeedContentType(contentType) {
		return true
	}

	if strings.Contains(contentType, "text/html") {
		links := extractFeedLinks(body, rawURL)
		if len(links) > 0 {
			return true
		}
		c.log.Debug("html page advertises no feed links", "url", rawURL)
		return false
	}

	// No usable content type; fall back to sniffing the body as a feed.
	if _, err := gofeed.NewParser().ParseString(body); err == nil {
		return true
	}
	c.log.Debug("response is neither a feed nor html", "url", rawURL, "content_type", contentType)
	return false
}

// DiscoverLinks fetches an HTML page and returns the RSS/Atom feed links
// it advertises. A direct feed URL yields a single link to itself.
func (c *Checker) DiscoverLinks(ctx context.Context, rawURL string) []FeedLink {
	body, contentType, ok := c.get(ctx, rawURL)
	if !ok {
		return nil
	}
	if isFeedContentType(contentType) {
		return []FeedLink{{Title: rawURL, Href: rawURL}}
	}
	if strings.Contains(contentType, "text/html") {
		return extractFeedLinks(body, rawURL)
	}
	return nil
}

func (c *Checker) get(ctx context.Context, rawURL string) (body, contentType string, ok bool) {
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		c.log.Debug("malformed url", "url", rawURL, "error", err)
		return "", "", false
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		c.log.Debug("create request", "url", rawURL, "error", err)
		return "", "", false
	}
	req.Header.Set("User-Agent", "MinifluxChannelBot/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Debug("http get failed", "url", rawURL, "error", err)
		return "", "", false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.log.Debug("unexpected status", "url", rawURL, "status", resp.StatusCode)
		return "", "", false
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		c.log.Debug("read body", "url", rawURL, "error", err)
		return "", "", false
	}

	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(resp.Header.Get("Content-Type"), ";", 2)[0]))
	return string(data), ct, true
}

func isFeedContentType(contentType string) bool {
	for _, ft := range feedContentTypes {
		if strings.Contains(contentType, ft) {
			return true
		}
	}
	return false
}

// extractFeedLinks pulls RSS/Atom <link rel="alternate"> targets out of
// an HTML document, resolving relative hrefs against the page URL.
func extractFeedLinks(html, pageURL string) []FeedLink {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	base, _ := url.Parse(pageURL)

	var links []FeedLink
	doc.Find(`link[rel="alternate"]`).Each(func(_ int, s *goquery.Selection) {
		typ, _ := s.Attr("type")
		typ = strings.ToLower(typ)
		if !strings.Contains(typ, "rss+xml") && !strings.Contains(typ, "atom+xml") {
			return
		}
		href, _ := s.Attr("href")
		if href == "" {
			return
		}
		if base != nil {
			if ref, err := url.Parse(href); err == nil {
				href = base.ResolveReference(ref).String()
			}
		}
		title := strings.TrimSpace(s.AttrOr("title", ""))
		if title == "" {
			title = fmt.Sprintf("Feed %d", len(links)+1)
		}
		links = append(links, FeedLink{Title: title, Href: href})
	})
	return links
}
