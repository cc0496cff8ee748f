package chat

import (
	"context"
	"testing"
	"time"

	"github.com/onnwee/livehub/db"
	"github.com/onnwee/livehub/testutil"
)

func TestLoadRetentionPolicy(t *testing.T) {
	tests := []struct {
		name         string
		window       string
		interval     string
		dryRun       string
		wantWindow   time.Duration
		wantInterval time.Duration
		wantDryRun   bool
	}{
		{
			name:         "defaults",
			wantWindow:   14 * 24 * time.Hour,
			wantInterval: 24 * time.Hour,
		},
		{
			name:         "overrides",
			window:       "72h",
			interval:     "1h",
			dryRun:       "1",
			wantWindow:   72 * time.Hour,
			wantInterval: time.Hour,
			wantDryRun:   true,
		},
		{
			name:         "invalid values fall back to defaults",
			window:       "not-a-duration",
			interval:     "-5m",
			wantWindow:   14 * 24 * time.Hour,
			wantInterval: 24 * time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("RETENTION_WINDOW", tt.window)
			t.Setenv("RETENTION_INTERVAL", tt.interval)
			t.Setenv("RETENTION_DRY_RUN", tt.dryRun)

			policy := LoadRetentionPolicy()
			if policy.Window != tt.wantWindow {
				t.Errorf("Window = %v, want %v", policy.Window, tt.wantWindow)
			}
			if policy.Interval != tt.wantInterval {
				t.Errorf("Interval = %v, want %v", policy.Interval, tt.wantInterval)
			}
			if policy.DryRun != tt.wantDryRun {
				t.Errorf("DryRun = %v, want %v", policy.DryRun, tt.wantDryRun)
			}
		})
	}
}

func TestRunRetentionSweep(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	testutil.SeedUser(t, database, "u1", "someone")

	old, err := db.CreateMessage(ctx, database, "old message", "u1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := database.ExecContext(ctx,
		`UPDATE messages SET created_at = NOW() - INTERVAL '20 days' WHERE id = $1`, old.ID); err != nil {
		t.Fatal(err)
	}
	recent, err := db.CreateMessage(ctx, database, "recent message", "u1", nil)
	if err != nil {
		t.Fatal(err)
	}

	policy := RetentionPolicy{Window: 14 * 24 * time.Hour, Interval: time.Hour}
	if err := runRetentionSweep(ctx, database, policy); err != nil {
		t.Fatalf("runRetentionSweep() error = %v", err)
	}

	var count int
	if err := database.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("messages remaining = %d, want 1", count)
	}
	var id string
	if err := database.QueryRowContext(ctx, `SELECT id FROM messages`).Scan(&id); err != nil {
		t.Fatal(err)
	}
	if id != recent.ID {
		t.Errorf("surviving message = %s, want %s", id, recent.ID)
	}

	// A second sweep with nothing to delete is a no-op.
	if err := runRetentionSweep(ctx, database, policy); err != nil {
		t.Fatalf("second runRetentionSweep() error = %v", err)
	}
	if err := database.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("messages remaining after idempotent sweep = %d, want 1", count)
	}
}

func TestRunRetentionSweepDryRun(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	testutil.SeedUser(t, database, "u1", "someone")

	old, err := db.CreateMessage(ctx, database, "old message", "u1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := database.ExecContext(ctx,
		`UPDATE messages SET created_at = NOW() - INTERVAL '20 days' WHERE id = $1`, old.ID); err != nil {
		t.Fatal(err)
	}

	policy := RetentionPolicy{Window: 14 * 24 * time.Hour, Interval: time.Hour, DryRun: true}
	if err := runRetentionSweep(ctx, database, policy); err != nil {
		t.Fatalf("runRetentionSweep() error = %v", err)
	}

	var count int
	if err := database.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("messages remaining = %d, want 1 (dry run deletes nothing)", count)
	}
}
