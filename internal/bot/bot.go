// Package bot implements the Telegram conversation flow for managing
// bridge-backed channel subscriptions in a Miniflux instance.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"miniflux_bot/internal/config"
	"miniflux_bot/internal/feedcheck"
	"miniflux_bot/internal/miniflux"
	"miniflux_bot/internal/model"
	"miniflux_bot/internal/storage"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// readerAPI is the slice of the Miniflux client the bot consumes.
type readerAPI interface {
	BaseURL() string
	Categories(ctx context.Context) ([]model.Category, error)
	Feeds(ctx context.Context) ([]model.Feed, error)
	Feed(ctx context.Context, feedID int64) (*model.Feed, error)
	FeedExists(ctx context.Context, feedURL string) (bool, error)
	CreateFeed(ctx context.Context, feedURL string, categoryID int64) (int64, error)
	UpdateFeedURL(ctx context.Context, feedID int64, newURL string) (bool, error)
	DeleteFeed(ctx context.Context, feedID int64) error
}

// feedChecker probes URLs for feed documents.
type feedChecker interface {
	Validate(ctx context.Context, url string) bool
	DiscoverLinks(ctx context.Context, url string) []feedcheck.FeedLink
}

// Bot is the Telegram bot that drives the subscription conversation.
type Bot struct {
	api     telegramAPI
	reader  readerAPI
	checker feedChecker
	store   storage.Storage
	cfg     *config.Config
	log     *slog.Logger

	mu       sync.Mutex
	sessions map[int64]*session
}

// New creates a Bot with the given Telegram token, Miniflux client,
// registry storage, and config.
func New(token string, reader *miniflux.Client, store storage.Storage, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:      api,
		reader:   reader,
		checker:  feedcheck.New(http.DefaultClient, log),
		store:    store,
		cfg:      cfg,
		log:      log,
		sessions: make(map[int64]*session),
	}, nil
}

// Run starts the bot's long-polling loop, blocking until ctx is
// cancelled. Updates are processed strictly one at a time; there is no
// per-update concurrency.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}

	msg := update.Message
	if msg == nil {
		// Edited messages and other update types carry no new intent.
		return
	}
	chatID := msg.Chat.ID

	if msg.From == nil || !b.cfg.IsAdmin(msg.From.UserName) {
		b.log.Warn("unauthorized message", "chat_id", chatID)
		b.reply(chatID, "Access denied. Only admin can use this bot.")
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	b.handleMessage(ctx, msg)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	cmd := msg.Command()
	b.log.Debug("command", "cmd", cmd, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case "list":
		b.handleList(ctx, chatID)
	case "cancel":
		b.handleCancel(chatID)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}

// SendMessage sends a plain text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

func (b *Bot) replyKeyboard(chatID int64, text string, markup tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = markup
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send keyboard", "chat_id", chatID, "error", err)
	}
}
