package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"miniflux_bot/internal/bridge"
	"miniflux_bot/internal/link"
	"miniflux_bot/internal/miniflux"
	"miniflux_bot/internal/model"
)

const helpText = `Forward a message from a channel (or send its t.me link or @mention) to subscribe it through the RSS bridge.

Commands:
/list - show bridge subscriptions
/cancel - abort the current operation
/help - this message

You can also send a direct RSS/Atom URL, or a page URL to pick from the feeds it advertises.`

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, "Hi! I manage channel subscriptions in your feed reader.\n\n"+helpText)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, helpText)
}

func (b *Bot) handleCancel(chatID int64) {
	if b.resetSession(chatID) {
		b.reply(chatID, "Cancelled.")
		return
	}
	b.reply(chatID, "Nothing to cancel.")
}

func (b *Bot) handleList(ctx context.Context, chatID int64) {
	feeds, err := b.reader.Feeds(ctx)
	if err != nil {
		b.log.Error("list feeds", "chat_id", chatID, "error", err)
		b.reply(chatID, "Failed to fetch feeds: "+userMessage(err))
		return
	}

	titles := make(map[int64]string)
	if channels, err := b.store.ListChannels(ctx); err != nil {
		b.log.Error("list channels from registry", "error", err)
	} else {
		for _, ch := range channels {
			titles[ch.FeedID] = ch.Title
		}
	}

	var entries []listEntry
	for _, f := range feeds {
		parsed, ok := bridge.Parse(f.FeedURL, b.cfg.BridgeURL)
		if !ok {
			continue
		}
		entries = append(entries, listEntry{feed: f, parsed: parsed, local: titles[f.ID]})
	}
	if len(entries) == 0 {
		b.reply(chatID, "No bridge subscriptions yet. Forward a channel message to add one.")
		return
	}

	for _, chunk := range formatFeedList(entries) {
		b.reply(chatID, chunk)
	}
}

// handleMessage routes a non-command message: pending text input first,
// then channel detection, then direct feed URLs.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	s := b.session(chatID)

	if msg.MediaGroupID != "" {
		if s.mediaGroupID == msg.MediaGroupID {
			b.log.Debug("dropping media group duplicate", "chat_id", chatID, "group", msg.MediaGroupID)
			return
		}
		s.mediaGroupID = msg.MediaGroupID
	}

	// A new forward or link preempts a pending edit, so channel
	// detection runs before the awaiting-input states.
	if ref := channelFromMessage(msg); ref != nil {
		b.handleChannel(ctx, chatID, ref)
		return
	}

	switch s.await {
	case AwaitRegex:
		b.handleRegexInput(ctx, chatID, msg.Text)
		return
	case AwaitMergeTime:
		b.handleMergeTimeInput(ctx, chatID, msg.Text)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://") {
		b.handleDirectURL(ctx, chatID, text)
		return
	}

	b.reply(chatID, "I did not recognize that. "+helpText)
}

// channelFromMessage extracts a channel reference from a forwarded
// channel post or from a t.me link / @mention in the text.
func channelFromMessage(msg *tgbotapi.Message) *model.ChannelRef {
	if fc := msg.ForwardFromChat; fc != nil && fc.Type == "channel" {
		if fc.UserName != "" {
			return &model.ChannelRef{ID: fc.UserName, Title: fc.Title}
		}
		return &model.ChannelRef{ID: strconv.FormatInt(fc.ID, 10), Title: fc.Title}
	}
	return link.ParseChannelLink(msg.Text)
}

func (b *Bot) handleChannel(ctx context.Context, chatID int64, ref *model.ChannelRef) {
	if b.resetSession(chatID) {
		b.reply(chatID, "Previous operation cancelled.")
	}

	if ref.Private() && !b.cfg.AcceptWithoutUsername {
		b.reply(chatID, "This channel has no public username. Set ACCEPT_CHANNELS_WITHOUT_USERNAME=true to allow subscribing private channels.")
		return
	}

	feeds, err := b.reader.Feeds(ctx)
	if err != nil {
		b.log.Error("check existing feeds", "chat_id", chatID, "channel", ref.ID, "error", err)
		b.reply(chatID, "Failed to check existing subscriptions: "+userMessage(err))
		return
	}
	for i := range feeds {
		parsed, ok := bridge.Parse(feeds[i].FeedURL, b.cfg.BridgeURL)
		if !ok || parsed.Channel != ref.ID {
			continue
		}
		b.replyKeyboard(chatID,
			"Already subscribed.\n"+manageText(&feeds[i], parsed),
			manageKeyboard(feeds[i].ID, parsed.Options))
		return
	}

	s := b.session(chatID)
	s.channel = ref
	b.askCategory(ctx, chatID, fmt.Sprintf("Pick a category for %s:", channelLabel(ref)))
}

// handleDirectURL subscribes a pasted URL: a feed document goes straight
// to category selection, an HTML page offers its advertised feed links.
func (b *Bot) handleDirectURL(ctx context.Context, chatID int64, rawURL string) {
	if b.resetSession(chatID) {
		b.reply(chatID, "Previous operation cancelled.")
	}

	if b.checker.Validate(ctx, rawURL) {
		s := b.session(chatID)
		s.feedURL = rawURL
		b.askCategory(ctx, chatID, "Pick a category for this feed:")
		return
	}

	links := b.checker.DiscoverLinks(ctx, rawURL)
	if len(links) == 0 {
		b.reply(chatID, "No feed found at that URL.")
		return
	}
	s := b.session(chatID)
	s.links = links
	b.replyKeyboard(chatID, "That page advertises these feeds. Pick one:", linksKeyboard(links))
}

// askCategory fetches backend categories and moves the chat into
// AwaitCategory. The pending channel or feed URL must already be on the
// session; any failure resets to idle.
func (b *Bot) askCategory(ctx context.Context, chatID int64, prompt string) {
	categories, err := b.reader.Categories(ctx)
	if err != nil {
		b.log.Error("fetch categories", "chat_id", chatID, "error", err)
		b.resetSession(chatID)
		b.reply(chatID, "Failed to fetch categories: "+userMessage(err))
		return
	}
	if len(categories) == 0 {
		b.resetSession(chatID)
		b.reply(chatID, "The feed reader has no categories. Create one first.")
		return
	}

	s := b.session(chatID)
	s.await = AwaitCategory
	s.categories = make(map[int64]string, len(categories))
	for _, c := range categories {
		s.categories[c.ID] = c.Title
	}
	b.replyKeyboard(chatID, prompt, categoryKeyboard(categories))
}

func (b *Bot) handleCategoryPick(ctx context.Context, chatID int64, categoryID int64) {
	s := b.session(chatID)
	if s.await != AwaitCategory {
		b.reply(chatID, "Nothing is pending. Forward a channel message to start.")
		return
	}
	if _, ok := s.categories[categoryID]; !ok {
		b.reply(chatID, "Unknown action.")
		return
	}

	feedURL := s.feedURL
	channel := s.channel
	if channel != nil {
		var err error
		feedURL, err = bridge.Build(b.cfg.BridgeURL, channel.ID, bridge.Options{})
		if err != nil {
			b.log.Error("build bridge url", "chat_id", chatID, "channel", channel.ID, "error", err)
			b.resetSession(chatID)
			b.reply(chatID, "Bridge URL is misconfigured: "+err.Error())
			return
		}
	}
	if feedURL == "" {
		b.resetSession(chatID)
		b.reply(chatID, "Nothing is pending. Forward a channel message to start.")
		return
	}

	if !b.checker.Validate(ctx, feedURL) {
		b.resetSession(chatID)
		b.reply(chatID, "The feed URL is not reachable or does not serve a feed:\n"+feedURL)
		return
	}

	exists, err := b.reader.FeedExists(ctx, feedURL)
	if err != nil {
		b.log.Error("check feed exists", "chat_id", chatID, "url", feedURL, "error", err)
		b.resetSession(chatID)
		b.reply(chatID, "Failed to check existing subscriptions: "+userMessage(err))
		return
	}
	if exists {
		b.resetSession(chatID)
		b.reply(chatID, "This feed is already subscribed.")
		return
	}

	feedID, err := b.reader.CreateFeed(ctx, feedURL, categoryID)
	if err != nil {
		b.log.Error("create feed", "chat_id", chatID, "url", feedURL, "error", err)
		b.resetSession(chatID)
		b.reply(chatID, "Failed to create the feed: "+userMessage(err))
		return
	}

	if channel != nil {
		rec := &model.Channel{
			Channel:    channel.ID,
			Title:      channel.Title,
			FeedID:     feedID,
			CategoryID: categoryID,
			CreatedAt:  time.Now().UTC(),
		}
		if err := b.store.RecordChannel(ctx, rec); err != nil {
			b.log.Error("record channel", "feed_id", feedID, "error", err)
		}
	}

	b.log.Info("feed created", "chat_id", chatID, "feed_id", feedID, "url", feedURL)
	b.resetSession(chatID)
	b.reply(chatID, fmt.Sprintf("Subscribed! Feed id %d.", feedID))
}

func (b *Bot) handleFeedPick(ctx context.Context, chatID int64, feedID int64) {
	b.resetSession(chatID)

	feed, parsed, ok := b.bridgeFeed(ctx, chatID, feedID)
	if !ok {
		return
	}
	b.replyKeyboard(chatID, manageText(feed, parsed), manageKeyboard(feed.ID, parsed.Options))
}

func (b *Bot) handleLinkPick(ctx context.Context, chatID int64, index int) {
	s := b.session(chatID)
	if index >= len(s.links) {
		b.reply(chatID, "Unknown action.")
		return
	}
	href := s.links[index].Href
	b.resetSession(chatID)

	s = b.session(chatID)
	s.feedURL = href
	b.askCategory(ctx, chatID, "Pick a category for this feed:")
}

func (b *Bot) handleFlagToggle(ctx context.Context, chatID int64, feedID int64, flag string) {
	if !knownFlag(flag) {
		b.reply(chatID, "Unknown action.")
		return
	}

	feed, parsed, ok := b.bridgeFeed(ctx, chatID, feedID)
	if !ok {
		return
	}

	opts := parsed.Options
	opts.ExcludeFlags = toggleFlag(opts.ExcludeFlags, flag)
	if !b.updateOptions(ctx, chatID, feed, parsed.Channel, opts) {
		return
	}
	b.replyKeyboard(chatID, manageText(feed, bridge.Parsed{Channel: parsed.Channel, Options: opts}),
		manageKeyboard(feed.ID, opts))
}

func (b *Bot) handleEditRegexInit(ctx context.Context, chatID int64, feedID int64) {
	feed, parsed, ok := b.bridgeFeed(ctx, chatID, feedID)
	if !ok {
		return
	}

	b.resetSession(chatID)
	s := b.session(chatID)
	s.await = AwaitRegex
	s.feedID = feedID

	current := parsed.Options.ExcludeText
	if current == "" {
		current = "(none)"
	}
	b.reply(chatID, fmt.Sprintf(
		"Send a regex to exclude matching posts from %s.\nCurrent: %s\nSend %s to clear the filter.",
		feedTitle(feed, parsed.Channel), current, clearToken))
}

func (b *Bot) handleRegexInput(ctx context.Context, chatID int64, text string) {
	s := b.session(chatID)
	feedID := s.feedID

	text = strings.TrimSpace(text)
	pattern := text
	if text == clearToken {
		pattern = ""
	} else if err := validateRegex(text); err != nil {
		// Invalid input re-prompts without losing the awaiting state.
		b.reply(chatID, fmt.Sprintf("Invalid regex: %v\nTry again, or send %s to clear.", err, clearToken))
		return
	}

	feed, parsed, ok := b.bridgeFeed(ctx, chatID, feedID)
	if !ok {
		b.resetSession(chatID)
		return
	}

	opts := parsed.Options
	opts.ExcludeText = pattern
	b.resetSession(chatID)
	if !b.updateOptions(ctx, chatID, feed, parsed.Channel, opts) {
		return
	}
	if pattern == "" {
		b.reply(chatID, "Regex filter cleared.")
		return
	}
	b.reply(chatID, "Regex filter updated: "+pattern)
}

func (b *Bot) handleEditMergeTimeInit(ctx context.Context, chatID int64, feedID int64) {
	feed, parsed, ok := b.bridgeFeed(ctx, chatID, feedID)
	if !ok {
		return
	}

	b.resetSession(chatID)
	s := b.session(chatID)
	s.await = AwaitMergeTime
	s.feedID = feedID

	b.reply(chatID, fmt.Sprintf(
		"Send the merge window in minutes (0-%d) for %s. Current: %d min. 0 disables merging.",
		maxMergeMinutes, feedTitle(feed, parsed.Channel), parsed.Options.MergeSeconds/60))
}

func (b *Bot) handleMergeTimeInput(ctx context.Context, chatID int64, text string) {
	s := b.session(chatID)
	feedID := s.feedID

	minutes, err := parseMergeMinutes(text)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Invalid merge time: %v\nSend a number of minutes between 0 and %d.", err, maxMergeMinutes))
		return
	}

	feed, parsed, ok := b.bridgeFeed(ctx, chatID, feedID)
	if !ok {
		b.resetSession(chatID)
		return
	}

	opts := parsed.Options
	opts.MergeSeconds = minutes * 60
	b.resetSession(chatID)
	if !b.updateOptions(ctx, chatID, feed, parsed.Channel, opts) {
		return
	}
	if minutes == 0 {
		b.reply(chatID, "Merge window disabled.")
		return
	}
	b.reply(chatID, fmt.Sprintf("Merge window set to %d min.", minutes))
}

func (b *Bot) handleDeleteInit(ctx context.Context, chatID int64, feedID int64) {
	feed, parsed, ok := b.bridgeFeed(ctx, chatID, feedID)
	if !ok {
		return
	}

	b.resetSession(chatID)
	s := b.session(chatID)
	s.await = AwaitDeleteConfirm
	s.feedID = feedID

	b.replyKeyboard(chatID,
		fmt.Sprintf("Delete feed %d (%s)? This cannot be undone.", feed.ID, feedTitle(feed, parsed.Channel)),
		confirmDeleteKeyboard(feedID))
}

func (b *Bot) handleDeleteConfirm(ctx context.Context, chatID int64, feedID int64) {
	s := b.session(chatID)
	if s.await != AwaitDeleteConfirm || s.feedID != feedID {
		// A stale confirmation button must not delete anything.
		b.reply(chatID, "Nothing pending to confirm.")
		return
	}
	b.resetSession(chatID)

	if err := b.reader.DeleteFeed(ctx, feedID); err != nil {
		b.log.Error("delete feed", "chat_id", chatID, "feed_id", feedID, "error", err)
		b.reply(chatID, "Failed to delete the feed: "+userMessage(err))
		return
	}
	if err := b.store.RemoveChannelByFeedID(ctx, feedID); err != nil {
		b.log.Error("remove channel from registry", "feed_id", feedID, "error", err)
	}
	b.log.Info("feed deleted", "chat_id", chatID, "feed_id", feedID)
	b.reply(chatID, fmt.Sprintf("Feed %d deleted.", feedID))
}

// bridgeFeed fetches a feed and decomposes its bridge URL. Failures are
// reported to the chat; ok is false when the caller should stop.
func (b *Bot) bridgeFeed(ctx context.Context, chatID int64, feedID int64) (*model.Feed, bridge.Parsed, bool) {
	feed, err := b.reader.Feed(ctx, feedID)
	if err != nil {
		b.log.Error("get feed", "chat_id", chatID, "feed_id", feedID, "error", err)
		b.reply(chatID, "Failed to fetch the feed: "+userMessage(err))
		return nil, bridge.Parsed{}, false
	}
	parsed, ok := bridge.Parse(feed.FeedURL, b.cfg.BridgeURL)
	if !ok {
		b.reply(chatID, "This feed is not managed through the bridge.")
		return nil, bridge.Parsed{}, false
	}
	return feed, parsed, true
}

// updateOptions rebuilds the bridge URL with new options and pushes it
// to the backend. Reports failures and no-ops to the chat; the return
// is false when the caller should not announce success.
func (b *Bot) updateOptions(ctx context.Context, chatID int64, feed *model.Feed, channel string, opts bridge.Options) bool {
	newURL, err := bridge.Build(b.cfg.BridgeURL, channel, opts)
	if err != nil {
		b.log.Error("build bridge url", "chat_id", chatID, "channel", channel, "error", err)
		b.reply(chatID, "Bridge URL is misconfigured: "+err.Error())
		return false
	}

	applied, err := b.reader.UpdateFeedURL(ctx, feed.ID, newURL)
	if err != nil {
		b.log.Error("update feed url", "chat_id", chatID, "feed_id", feed.ID, "error", err)
		b.reply(chatID, "Failed to update the feed: "+userMessage(err))
		return false
	}
	if !applied {
		b.log.Warn("feed update not applied", "feed_id", feed.ID, "url", newURL)
		b.reply(chatID, "The feed reader accepted the request but did not apply the change.")
		return false
	}
	feed.FeedURL = newURL
	return true
}

func knownFlag(flag string) bool {
	for _, f := range bridge.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

func toggleFlag(flags []string, flag string) []string {
	for i, f := range flags {
		if f == flag {
			return append(flags[:i:i], flags[i+1:]...)
		}
	}
	return append(flags, flag)
}

func channelLabel(ref *model.ChannelRef) string {
	if ref.Private() {
		if ref.Title != "" {
			return ref.Title
		}
		return ref.ID
	}
	return "@" + ref.ID
}

// userMessage sanitizes a backend error for the chat: classified API
// failures get a short kind-based phrase, everything else a generic one.
func userMessage(err error) string {
	switch miniflux.KindOf(err) {
	case miniflux.KindTransient:
		return "the feed reader is unavailable, try again later."
	case miniflux.KindNotFound:
		return "the feed reader reports it does not exist."
	case miniflux.KindAuth:
		return "the feed reader rejected the credentials."
	case miniflux.KindAPI:
		return "the feed reader rejected the request."
	default:
		return "unexpected error."
	}
}
