package bot

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"miniflux_bot/internal/bridge"
	"miniflux_bot/internal/feedcheck"
	"miniflux_bot/internal/model"
)

// maxMessageLen is the chunk size for long replies. Telegram caps
// messages at 4096 characters; a little headroom avoids edge cases.
const maxMessageLen = 4000

func categoryKeyboard(categories []model.Category) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, c := range categories {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(c.Title, "cat:"+strconv.FormatInt(c.ID, 10)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func linksKeyboard(links []feedcheck.FeedLink) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, l := range links {
		label := l.Title
		if label == "" {
			label = l.Href
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "link:"+strconv.Itoa(i)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// manageKeyboard builds the per-feed settings keyboard: one button per
// content flag (tap to toggle), then the regex, merge-time, and delete
// actions. An excluded flag shows ❌; an active one shows ✅.
func manageKeyboard(feedID int64, opts bridge.Options) tgbotapi.InlineKeyboardMarkup {
	excluded := make(map[string]bool, len(opts.ExcludeFlags))
	for _, f := range opts.ExcludeFlags {
		excluded[f] = true
	}

	id := strconv.FormatInt(feedID, 10)
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, f := range bridge.Flags {
		mark := "✅"
		if excluded[f] {
			mark = "❌"
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(mark+" "+f, "flag:"+id+":"+f))
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Edit regex", "regex:"+id),
		tgbotapi.NewInlineKeyboardButtonData("Edit merge time", "merge:"+id),
	))
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Delete feed", "del:"+id),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func confirmDeleteKeyboard(feedID int64) tgbotapi.InlineKeyboardMarkup {
	id := strconv.FormatInt(feedID, 10)
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Yes, delete", "delc:"+id),
			tgbotapi.NewInlineKeyboardButtonData("Keep it", "feed:"+id),
		),
	)
}

// manageText describes a feed's current bridge settings.
func manageText(feed *model.Feed, parsed bridge.Parsed) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Feed %d: %s\n", feed.ID, feedTitle(feed, parsed.Channel))
	fmt.Fprintf(&b, "Category: %s\n", feed.Category.Title)
	fmt.Fprintf(&b, "%s\n", describeOptions(parsed.Options))
	b.WriteString("Tap a flag to toggle it, or pick an action below.")
	return b.String()
}

func describeOptions(opts bridge.Options) string {
	var parts []string
	if len(opts.ExcludeFlags) > 0 {
		parts = append(parts, "excluded: "+strings.Join(opts.ExcludeFlags, ", "))
	}
	if opts.ExcludeText != "" {
		parts = append(parts, "regex: "+opts.ExcludeText)
	}
	if opts.MergeSeconds > 0 {
		parts = append(parts, fmt.Sprintf("merge: %d min", opts.MergeSeconds/60))
	}
	if len(parts) == 0 {
		return "No filters configured."
	}
	return strings.Join(parts, " | ")
}

func feedTitle(feed *model.Feed, channel string) string {
	if feed.Title != "" {
		return feed.Title
	}
	if channel != "" {
		return channel
	}
	return feed.FeedURL
}

// listEntry is one bridge subscription prepared for /list output.
type listEntry struct {
	feed    model.Feed
	parsed  bridge.Parsed
	local   string // title from the local registry, "" if unknown
}

// formatFeedList renders bridge subscriptions grouped by category and
// splits the output into Telegram-sized chunks.
func formatFeedList(entries []listEntry) []string {
	byCategory := make(map[string][]listEntry)
	for _, e := range entries {
		byCategory[e.feed.Category.Title] = append(byCategory[e.feed.Category.Title], e)
	}
	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	var b strings.Builder
	for _, c := range byCategory {
		sort.Slice(c, func(i, j int) bool { return c[i].feed.ID < c[j].feed.ID })
	}
	for _, cat := range categories {
		fmt.Fprintf(&b, "📂 %s\n", cat)
		for _, e := range byCategory[cat] {
			title := e.local
			if title == "" {
				title = feedTitle(&e.feed, e.parsed.Channel)
			}
			fmt.Fprintf(&b, "  %d: %s (%s)\n", e.feed.ID, title, e.parsed.Channel)
			if desc := describeOptions(e.parsed.Options); desc != "No filters configured." {
				fmt.Fprintf(&b, "     %s\n", desc)
			}
		}
		b.WriteString("\n")
	}
	return chunkLines(b.String(), maxMessageLen)
}

// chunkLines splits text into pieces of at most limit characters,
// breaking on line boundaries. A single line longer than the limit
// becomes its own chunk.
func chunkLines(text string, limit int) []string {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return nil
	}

	var chunks []string
	var cur strings.Builder
	for _, line := range strings.Split(text, "\n") {
		if cur.Len() > 0 && cur.Len()+len(line)+1 > limit {
			chunks = append(chunks, strings.TrimRight(cur.String(), "\n"))
			cur.Reset()
		}
		cur.WriteString(line)
		cur.WriteString("\n")
	}
	if cur.Len() > 0 {
		chunks = append(chunks, strings.TrimRight(cur.String(), "\n"))
	}
	return chunks
}
