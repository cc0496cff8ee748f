package chat

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"time"

	"github.com/onnwee/livehub/db"
	"github.com/onnwee/livehub/telemetry"
)

// RetentionPolicy defines which messages the sweep removes and how often it runs.
type RetentionPolicy struct {
	// Window: messages older than this are deleted.
	Window time.Duration
	// Interval: how often the sweep runs.
	Interval time.Duration
	// DryRun: when true, log what would be deleted but keep everything.
	DryRun bool
}

// LoadRetentionPolicy loads retention configuration from environment variables.
func LoadRetentionPolicy() RetentionPolicy {
	policy := RetentionPolicy{
		Window:   14 * 24 * time.Hour,
		Interval: 24 * time.Hour,
	}

	if s := os.Getenv("RETENTION_WINDOW"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			policy.Window = d
		}
	}

	if s := os.Getenv("RETENTION_INTERVAL"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			policy.Interval = d
		}
	}

	if os.Getenv("RETENTION_DRY_RUN") == "1" {
		policy.DryRun = true
	}

	return policy
}

// StartRetentionJob runs a background job that periodically deletes chat
// messages older than the retention window. It runs once immediately, then on
// every tick; a failed sweep is logged and the next scheduled run proceeds
// regardless.
func StartRetentionJob(ctx context.Context, dbc *sql.DB) {
	policy := LoadRetentionPolicy()

	slog.Info("retention job starting",
		slog.Duration("window", policy.Window),
		slog.Duration("interval", policy.Interval),
		slog.Bool("dry_run", policy.DryRun))

	if err := runRetentionSweep(ctx, dbc, policy); err != nil {
		slog.Warn("retention sweep failed", slog.Any("err", err))
	}

	ticker := time.NewTicker(policy.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("retention job stopped")
			return
		case <-ticker.C:
			if err := runRetentionSweep(ctx, dbc, policy); err != nil {
				slog.Warn("retention sweep failed", slog.Any("err", err))
			}
		}
	}
}

// runRetentionSweep performs a single sweep cycle.
func runRetentionSweep(ctx context.Context, dbc *sql.DB, policy RetentionPolicy) error {
	logger := slog.Default().With(
		slog.String("component", "retention_sweep"),
		slog.Bool("dry_run", policy.DryRun),
	)
	cutoff := time.Now().Add(-policy.Window)

	if policy.DryRun {
		var n int64
		err := dbc.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE created_at < $1`, cutoff).Scan(&n)
		if err != nil {
			return err
		}
		logger.Info("dry-run: would delete messages", slog.Int64("count", n), slog.Time("cutoff", cutoff))
		return nil
	}

	deleted, err := db.DeleteMessagesOlderThan(ctx, dbc, cutoff)
	if err != nil {
		return err
	}
	if telemetry.RetentionDeleted != nil {
		telemetry.RetentionDeleted.Add(float64(deleted))
	}
	logger.Info("retention sweep completed", slog.Int64("deleted", deleted), slog.Time("cutoff", cutoff))
	return nil
}
