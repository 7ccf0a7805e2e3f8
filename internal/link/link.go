// Package link parses Telegram channel links and mentions into
// normalized channel references.
package link

import (
	"regexp"
	"strings"

	"miniflux_bot/internal/model"
)

// tmeRe matches t.me channel links with an optional scheme, an optional
// message id, and an optional trailing slash. The path segment is either
// a username, a raw numeric id (possibly already -100 prefixed), or a
// private-channel "c/<id>" path.
var (
	tmeRe     = regexp.MustCompile(`^(?:https?://)?t\.me/(c/\d+|-?\d+|[a-zA-Z][a-zA-Z0-9_]{4,31})(?:/\d+)?/?$`)
	mentionRe = regexp.MustCompile(`^@([a-zA-Z][a-zA-Z0-9_]{4,31})$`)
)

// Path segments under t.me that never name a channel.
var reservedPaths = map[string]bool{
	"share":       true,
	"proxy":       true,
	"socks":       true,
	"addstickers": true,
	"addtheme":    true,
	"joinchat":    true,
	"s":           true,
}

// privatePrefix is Telegram's documented marker for supergroup/channel
// chat ids as used by the Bot API.
const privatePrefix = "-100"

// ParseChannelLink extracts a channel reference from a t.me link or an
// @mention. It returns nil for invite links, user-profile-style paths,
// non-Telegram URLs, and plain text. Private-channel paths such as
// t.me/c/1234567890/42 normalize to the -100-prefixed numeric id.
func ParseChannelLink(text string) *model.ChannelRef {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if m := mentionRe.FindStringSubmatch(text); m != nil {
		return &model.ChannelRef{ID: m[1]}
	}

	m := tmeRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	seg := m[1]

	switch {
	case strings.HasPrefix(seg, "c/"):
		return &model.ChannelRef{ID: privatePrefix + seg[len("c/"):]}
	case strings.HasPrefix(seg, privatePrefix):
		return &model.ChannelRef{ID: seg}
	case strings.HasPrefix(seg, "-"):
		// Bare negative id without the -100 marker; normalize it.
		return &model.ChannelRef{ID: privatePrefix + strings.TrimLeft(seg, "-")}
	case seg[0] >= '0' && seg[0] <= '9':
		return &model.ChannelRef{ID: privatePrefix + seg}
	default:
		if reservedPaths[strings.ToLower(seg)] {
			return nil
		}
		return &model.ChannelRef{ID: seg}
	}
}
