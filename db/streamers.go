package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Platform identifies which external streaming service a streamer broadcasts on.
// The set is closed; adding a platform means adding an adapter package and a
// poller binding in main.
type Platform string

const (
	PlatformTwitch      Platform = "twitch"
	PlatformYouTube     Platform = "youtube"
	PlatformKick        Platform = "kick"
	PlatformTwitCasting Platform = "twitcasting"
)

// Streamer is a tracked streamer configuration row. The core reads these;
// administration of the set happens elsewhere in the site.
type Streamer struct {
	ID         string
	Name       string
	Platform   Platform
	PlatformID string
}

// ListStreamers returns all configured streamers in stable id order. Rows with
// a platform tag the service has no poller for are returned as-is; the
// aggregator skips them.
func ListStreamers(ctx context.Context, dbc *sql.DB) ([]Streamer, error) {
	rows, err := dbc.QueryContext(ctx, `SELECT id, name, platform, platform_id FROM streamers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query streamers: %w", err)
	}
	defer rows.Close()

	out := make([]Streamer, 0)
	for rows.Next() {
		var s Streamer
		var platform string
		if err := rows.Scan(&s.ID, &s.Name, &platform, &s.PlatformID); err != nil {
			return nil, fmt.Errorf("scan streamer row: %w", err)
		}
		s.Platform = Platform(platform)
		out = append(out, s)
	}
	return out, rows.Err()
}

// CountStreamers is used by the readiness probe to verify the table exists and
// is reachable.
func CountStreamers(ctx context.Context, dbc *sql.DB) (int, error) {
	var n int
	err := dbc.QueryRowContext(ctx, `SELECT COUNT(*) FROM streamers`).Scan(&n)
	if err != nil && err != sql.ErrNoRows {
		return 0, err
	}
	return n, nil
}
