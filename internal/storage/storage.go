// Package storage defines the persistence interface for the local
// channel registry and its SQLite implementation. The registry is an
// audit trail of bridge subscriptions the bot created; the reader
// backend stays the source of truth.
package storage

import (
	"context"

	"miniflux_bot/internal/model"
)

// Storage is the interface for all channel registry operations.
type Storage interface {
	RecordChannel(ctx context.Context, ch *model.Channel) error
	ChannelByFeedID(ctx context.Context, feedID int64) (*model.Channel, error)
	ListChannels(ctx context.Context) ([]model.Channel, error)
	RemoveChannelByFeedID(ctx context.Context, feedID int64) error

	Close() error
}
