package bot

import (
	"context"
	"time"

	"miniflux_bot/internal/feedcheck"
	"miniflux_bot/internal/model"
)

// Await is the single conversation step a chat is waiting on. At most
// one awaiting state is active per chat; entering a new one always
// replaces the previous one.
type Await int

// Conversation steps.
const (
	AwaitNone Await = iota
	AwaitCategory
	AwaitRegex
	AwaitMergeTime
	AwaitDeleteConfirm
)

func (a Await) String() string {
	switch a {
	case AwaitNone:
		return "none"
	case AwaitCategory:
		return "category"
	case AwaitRegex:
		return "regex"
	case AwaitMergeTime:
		return "merge_time"
	case AwaitDeleteConfirm:
		return "delete_confirm"
	default:
		return "unknown"
	}
}

// sessionTTL is how long an awaiting conversation survives without
// input before the sweeper clears it.
const sessionTTL = 10 * time.Minute

// session is the per-chat conversation context. Owned exclusively by
// the bot; access goes through the session helpers below.
type session struct {
	await Await

	// Pending subscription target: a Telegram channel, a direct feed
	// URL, or feed links discovered on an HTML page.
	channel *model.ChannelRef
	feedURL string
	links   []feedcheck.FeedLink

	// Feed under edit, for regex/merge/delete.
	feedID int64

	categories   map[int64]string
	mediaGroupID string
	touchedAt    time.Time
}

// session returns the conversation context for a chat, creating it on
// first use and lazily expiring a stale awaiting state.
func (b *Bot) session(chatID int64) *session {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.sessions[chatID]
	if !ok {
		s = &session{touchedAt: time.Now()}
		b.sessions[chatID] = s
		return s
	}
	if s.await != AwaitNone && time.Since(s.touchedAt) > sessionTTL {
		b.log.Debug("expiring stale session", "chat_id", chatID, "await", s.await.String())
		*s = session{}
	}
	s.touchedAt = time.Now()
	return s
}

// resetSession clears all conversation context for a chat and reports
// whether anything was pending.
func (b *Bot) resetSession(chatID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.sessions[chatID]
	if !ok {
		return false
	}
	pending := s.await != AwaitNone
	// The last album id survives a reset so duplicate media-group
	// updates stay deduplicated across flow restarts.
	*s = session{mediaGroupID: s.mediaGroupID, touchedAt: time.Now()}
	return pending
}

// RunSessionSweeper clears stale awaiting conversations on a fixed
// interval, blocking until ctx is cancelled.
func (b *Bot) RunSessionSweeper(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.sweepSessions()
		}
	}
}

func (b *Bot) sweepSessions() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for chatID, s := range b.sessions {
		if s.await != AwaitNone && time.Since(s.touchedAt) > sessionTTL {
			b.log.Info("session expired", "chat_id", chatID, "await", s.await.String())
			delete(b.sessions, chatID)
		}
	}
}
