// Package bridge builds and parses RSS-Bridge feed URLs for Telegram
// channels. The base URL comes from configuration and either carries a
// {channel} placeholder or takes the channel as a trailing path segment.
// Per-feed settings ride on the query string: exclude_flags (comma
// joined), exclude_text (a regex applied by the bridge), and
// merge_seconds (coalescing window).
package bridge

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Placeholder marks where the channel identifier goes in the base URL.
const Placeholder = "{channel}"

// Query parameter names understood by the bridge.
const (
	paramExcludeFlags = "exclude_flags"
	paramExcludeText  = "exclude_text"
	paramMergeSeconds = "merge_seconds"
)

// Configuration errors reported by Build.
var (
	ErrNoBridgeURL  = errors.New("bridge base URL is not configured")
	ErrBadBridgeURL = errors.New("bridge base URL is not a valid absolute http(s) URL")
)

// Flags is the set of content flags the bridge understands.
var Flags = []string{
	"fwd", "video", "stream", "donat", "clown", "poo",
	"advert", "link", "mention", "hid_channel", "foreign_channel",
}

// Options are the per-feed settings encoded on a bridge URL.
type Options struct {
	ExcludeFlags []string
	ExcludeText  string
	MergeSeconds int
}

// Parsed is the result of decomposing a bridge feed URL.
type Parsed struct {
	Channel string
	Options Options
}

// Build composes the bridge feed URL for a channel. base must be an
// absolute http(s) URL; a {channel} placeholder is substituted, otherwise
// the channel is appended as a path segment. Zero-valued options are
// omitted from the query string.
func Build(base, channel string, opts Options) (string, error) {
	if base == "" {
		return "", ErrNoBridgeURL
	}
	if err := checkBase(base); err != nil {
		return "", err
	}

	raw := base
	if strings.Contains(raw, Placeholder) {
		raw = strings.Replace(raw, Placeholder, url.PathEscape(channel), 1)
	} else {
		raw = strings.TrimRight(raw, "/") + "/" + url.PathEscape(channel)
	}

	q := url.Values{}
	if len(opts.ExcludeFlags) > 0 {
		q.Set(paramExcludeFlags, strings.Join(opts.ExcludeFlags, ","))
	}
	if opts.ExcludeText != "" {
		q.Set(paramExcludeText, opts.ExcludeText)
	}
	if opts.MergeSeconds > 0 {
		q.Set(paramMergeSeconds, strconv.Itoa(opts.MergeSeconds))
	}
	if len(q) > 0 {
		sep := "?"
		if strings.Contains(raw, "?") {
			sep = "&"
		}
		raw += sep + q.Encode()
	}
	return raw, nil
}

// Parse decomposes a feed URL built against base. The second return is
// false when the URL does not belong to the configured bridge, is
// malformed, or is empty.
func Parse(feedURL, base string) (Parsed, bool) {
	channel := ExtractChannel(feedURL, base)
	if channel == "" {
		return Parsed{}, false
	}

	u, err := url.Parse(feedURL)
	if err != nil {
		return Parsed{}, false
	}
	q := u.Query()

	var opts Options
	if raw := q.Get(paramExcludeFlags); raw != "" {
		opts.ExcludeFlags = strings.Split(raw, ",")
	}
	opts.ExcludeText = q.Get(paramExcludeText)
	if raw := q.Get(paramMergeSeconds); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			opts.MergeSeconds = n
		}
	}
	return Parsed{Channel: channel, Options: opts}, true
}

// ExtractChannel recovers the channel identifier from a feed URL built
// against base, or "" when the URL does not match the bridge pattern.
func ExtractChannel(feedURL, base string) string {
	if feedURL == "" || base == "" {
		return ""
	}

	prefix := base
	if i := strings.Index(base, Placeholder); i >= 0 {
		prefix = base[:i]
	} else {
		prefix = strings.TrimRight(base, "/") + "/"
	}
	if !strings.HasPrefix(feedURL, prefix) {
		return ""
	}

	rest := feedURL[len(prefix):]
	rest = strings.SplitN(rest, "?", 2)[0]
	rest = strings.SplitN(rest, "/", 2)[0]
	if rest == "" {
		return ""
	}
	channel, err := url.PathUnescape(rest)
	if err != nil {
		return ""
	}
	return channel
}

func checkBase(base string) error {
	// The placeholder is not valid URL syntax; blank it out for parsing.
	probe := strings.Replace(base, Placeholder, "probe", 1)
	u, err := url.Parse(probe)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadBridgeURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrBadBridgeURL
	}
	return nil
}
