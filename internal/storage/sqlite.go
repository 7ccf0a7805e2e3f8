package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"miniflux_bot/internal/model"
	"miniflux_bot/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// RecordChannel inserts a registry row, replacing any previous row for
// the same feed id, and populates ID and CreatedAt.
func (s *SQLite) RecordChannel(ctx context.Context, ch *model.Channel) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO channels (channel, title, feed_id, category_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		ch.Channel, ch.Title, ch.FeedID, ch.CategoryID, now,
	)
	if err != nil {
		return fmt.Errorf("insert channel: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	ch.ID = id
	ch.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// ChannelByFeedID returns the registry row for a feed, or sql.ErrNoRows.
func (s *SQLite) ChannelByFeedID(ctx context.Context, feedID int64) (*model.Channel, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, channel, title, feed_id, category_id, created_at
		 FROM channels WHERE feed_id = ?`, feedID,
	)
	return scanChannel(row)
}

// ListChannels returns all registry rows ordered by channel identifier.
func (s *SQLite) ListChannels(ctx context.Context) ([]model.Channel, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, channel, title, feed_id, category_id, created_at
		 FROM channels ORDER BY channel`,
	)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var channels []model.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, *ch)
	}
	return channels, rows.Err()
}

// RemoveChannelByFeedID deletes the registry row for a feed, if any.
func (s *SQLite) RemoveChannelByFeedID(ctx context.Context, feedID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM channels WHERE feed_id = ?`, feedID)
	if err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanChannel(row scannable) (*model.Channel, error) {
	var ch model.Channel
	var created sql.NullString
	err := row.Scan(&ch.ID, &ch.Channel, &ch.Title, &ch.FeedID, &ch.CategoryID, &created)
	if err != nil {
		return nil, fmt.Errorf("scan channel: %w", err)
	}
	if created.Valid {
		ch.CreatedAt, _ = time.Parse(timeLayout, created.String)
	}
	return &ch, nil
}
