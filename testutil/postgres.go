package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/onnwee/livehub/db"
)

// SetupTestDB creates a test database connection and runs migrations.
// It skips the test if TEST_PG_DSN environment variable is not set.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}
	database, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Migrate(context.Background(), database); err != nil {
		database.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() {
		// Leave the schema in place but clear rows so tests stay independent.
		_, _ = database.Exec("TRUNCATE messages, users, streamers CASCADE")
		database.Close()
	})
	return database
}

// SeedUser inserts a user row for message author joins.
func SeedUser(t *testing.T, database *sql.DB, id, name string) {
	t.Helper()
	_, err := database.Exec(
		"INSERT INTO users (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING", id, name)
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
}

// SeedStreamer inserts a streamer roster row.
func SeedStreamer(t *testing.T, database *sql.DB, id, name string, platform db.Platform, platformID string) {
	t.Helper()
	_, err := database.Exec(
		"INSERT INTO streamers (id, name, platform, platform_id) VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING",
		id, name, string(platform), platformID)
	if err != nil {
		t.Fatalf("failed to seed streamer: %v", err)
	}
}
