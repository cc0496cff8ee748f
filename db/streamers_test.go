package db_test

import (
	"context"
	"testing"

	"github.com/onnwee/livehub/db"
	"github.com/onnwee/livehub/testutil"
)

func TestListStreamers(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()

	testutil.SeedStreamer(t, database, "s2", "beta", db.PlatformYouTube, "UCbeta")
	testutil.SeedStreamer(t, database, "s1", "alpha", db.PlatformTwitch, "111")
	testutil.SeedStreamer(t, database, "s3", "gamma", db.PlatformTwitCasting, "gamma_tc")

	got, err := db.ListStreamers(ctx, database)
	if err != nil {
		t.Fatalf("ListStreamers() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d streamers, want 3", len(got))
	}
	// Stable id order regardless of insert order.
	for i, wantID := range []string{"s1", "s2", "s3"} {
		if got[i].ID != wantID {
			t.Errorf("streamer[%d].ID = %s, want %s", i, got[i].ID, wantID)
		}
	}
	if got[0].Platform != db.PlatformTwitch || got[0].PlatformID != "111" {
		t.Errorf("streamer[0] = %+v, want twitch/111", got[0])
	}
}

func TestCountStreamers(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()

	n, err := db.CountStreamers(ctx, database)
	if err != nil {
		t.Fatalf("CountStreamers() error = %v", err)
	}
	if n != 0 {
		t.Errorf("CountStreamers() = %d, want 0", n)
	}

	testutil.SeedStreamer(t, database, "s1", "alpha", db.PlatformKick, "alpha_kick")
	n, err = db.CountStreamers(ctx, database)
	if err != nil {
		t.Fatalf("CountStreamers() error = %v", err)
	}
	if n != 1 {
		t.Errorf("CountStreamers() = %d, want 1", n)
	}
}
