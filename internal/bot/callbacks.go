package bot

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// actionKind enumerates the callback-button namespaces. Every payload
// decodes into exactly one kind; anything that does not parse is
// actionUnknown and must be answered, never silently dropped.
type actionKind int

const (
	actionUnknown actionKind = iota
	actionCategoryPick
	actionFeedPick
	actionLinkPick
	actionFlagToggle
	actionEditRegex
	actionEditMergeTime
	actionDelete
	actionDeleteConfirm
	actionNoop
)

// action is a decoded callback payload.
type action struct {
	kind       actionKind
	feedID     int64
	categoryID int64
	linkIndex  int
	flag       string
}

// decodeAction parses a namespaced callback payload of the form
// "ns:arg" (or "flag:id:name"). Unrecognized namespaces and malformed
// arguments decode to actionUnknown.
func decodeAction(data string) action {
	if data == "noop" {
		return action{kind: actionNoop}
	}

	parts := strings.Split(data, ":")
	if len(parts) < 2 {
		return action{}
	}

	switch parts[0] {
	case "cat":
		if id, err := strconv.ParseInt(parts[1], 10, 64); err == nil && len(parts) == 2 {
			return action{kind: actionCategoryPick, categoryID: id}
		}
	case "feed":
		if id, err := strconv.ParseInt(parts[1], 10, 64); err == nil && len(parts) == 2 {
			return action{kind: actionFeedPick, feedID: id}
		}
	case "link":
		if i, err := strconv.Atoi(parts[1]); err == nil && i >= 0 && len(parts) == 2 {
			return action{kind: actionLinkPick, linkIndex: i}
		}
	case "flag":
		if len(parts) == 3 && parts[2] != "" {
			if id, err := strconv.ParseInt(parts[1], 10, 64); err == nil {
				return action{kind: actionFlagToggle, feedID: id, flag: parts[2]}
			}
		}
	case "regex":
		if id, err := strconv.ParseInt(parts[1], 10, 64); err == nil && len(parts) == 2 {
			return action{kind: actionEditRegex, feedID: id}
		}
	case "merge":
		if id, err := strconv.ParseInt(parts[1], 10, 64); err == nil && len(parts) == 2 {
			return action{kind: actionEditMergeTime, feedID: id}
		}
	case "del":
		if id, err := strconv.ParseInt(parts[1], 10, 64); err == nil && len(parts) == 2 {
			return action{kind: actionDelete, feedID: id}
		}
	case "delc":
		if id, err := strconv.ParseInt(parts[1], 10, 64); err == nil && len(parts) == 2 {
			return action{kind: actionDeleteConfirm, feedID: id}
		}
	}
	return action{}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	ack := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Request(ack); err != nil {
		b.log.Error("answer callback query", "error", err)
	}

	if cb.From == nil || !b.cfg.IsAdmin(cb.From.UserName) {
		b.log.Warn("unauthorized callback", "chat_id", chatID, "data", cb.Data)
		b.reply(chatID, "Access denied. Only admin can use this bot.")
		return
	}

	act := decodeAction(cb.Data)
	b.log.Info("callback",
		"data", cb.Data,
		"chat_id", chatID,
		"user", cb.From.UserName,
	)

	switch act.kind {
	case actionCategoryPick:
		b.handleCategoryPick(ctx, chatID, act.categoryID)
	case actionFeedPick:
		b.handleFeedPick(ctx, chatID, act.feedID)
	case actionLinkPick:
		b.handleLinkPick(ctx, chatID, act.linkIndex)
	case actionFlagToggle:
		b.handleFlagToggle(ctx, chatID, act.feedID, act.flag)
	case actionEditRegex:
		b.handleEditRegexInit(ctx, chatID, act.feedID)
	case actionEditMergeTime:
		b.handleEditMergeTimeInit(ctx, chatID, act.feedID)
	case actionDelete:
		b.handleDeleteInit(ctx, chatID, act.feedID)
	case actionDeleteConfirm:
		b.handleDeleteConfirm(ctx, chatID, act.feedID)
	case actionNoop:
		// Acknowledged above; nothing to do.
	default:
		// State is deliberately left untouched.
		b.reply(chatID, "Unknown action.")
	}
}
