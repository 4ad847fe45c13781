package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/hxnx/rockola/internal/music"
)

const historyRepoTimeout = 2 * time.Second

type HistoryEntry struct {
	Title       string
	Artist      string
	Locator     string
	RequestedBy string
	PlayedAt    time.Time
}

// HistoryRepository stores one row per playback that reached Playing.
type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) RecordPlayback(ctx context.Context, guildID string, track music.Track) error {
	if r == nil || r.db == nil {
		return nil
	}

	guild, err := snowflake.Parse(guildID)
	if err != nil {
		return fmt.Errorf("invalid guild id %q: %w", guildID, err)
	}

	var requestedBy sql.NullInt64
	if track.RequestedBy != "" {
		if user, err := snowflake.Parse(track.RequestedBy); err == nil {
			requestedBy = sql.NullInt64{Int64: int64(user), Valid: true}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, historyRepoTimeout)
	defer cancel()

	const query = `
		INSERT INTO play_history (guild_id, title, artist, locator, requested_by, played_at)
		VALUES ($1, $2, $3, $4, $5, NOW());
	`

	_, err = r.db.ExecContext(ctx, query, int64(guild), track.Title, track.Artist, track.Locator, requestedBy)
	return err
}

func (r *HistoryRepository) Recent(ctx context.Context, guildID string, limit int) ([]HistoryEntry, error) {
	if r == nil || r.db == nil {
		return nil, nil
	}

	guild, err := snowflake.Parse(guildID)
	if err != nil {
		return nil, fmt.Errorf("invalid guild id %q: %w", guildID, err)
	}
	if limit <= 0 {
		limit = 10
	}

	ctx, cancel := context.WithTimeout(ctx, historyRepoTimeout)
	defer cancel()

	const query = `
		SELECT title, artist, locator, requested_by, played_at
		FROM play_history
		WHERE guild_id = $1
		ORDER BY played_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, int64(guild), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var (
			e           HistoryEntry
			requestedBy sql.NullInt64
		)
		if err := rows.Scan(&e.Title, &e.Artist, &e.Locator, &requestedBy, &e.PlayedAt); err != nil {
			return nil, err
		}
		if requestedBy.Valid {
			e.RequestedBy = snowflake.ID(requestedBy.Int64).String()
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
