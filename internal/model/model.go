// Package model defines the domain types used across the application.
package model

import "time"

// ChannelRef is a normalized Telegram channel identifier derived from a
// forwarded message, a t.me link, or an @mention. ID is either a public
// username (without the @) or a private-channel numeric id in the -100
// prefixed form. Two references to the same channel compare equal no
// matter which surface form they were parsed from.
type ChannelRef struct {
	ID    string
	Title string
}

// Private reports whether the reference is a numeric private-channel id.
func (c ChannelRef) Private() bool {
	return len(c.ID) > 0 && c.ID[0] == '-'
}

// Category is a Miniflux category. Read-only from the bot's perspective.
type Category struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// Feed is a Miniflux subscription record.
type Feed struct {
	ID       int64    `json:"id"`
	Title    string   `json:"title"`
	FeedURL  string   `json:"feed_url"`
	SiteURL  string   `json:"site_url"`
	Category Category `json:"category"`
}

// Channel is a row in the local channel registry: a bridge subscription
// the bot created, kept for display and audit purposes.
type Channel struct {
	ID         int64
	Channel    string
	Title      string
	FeedID     int64
	CategoryID int64
	CreatedAt  time.Time
}
