package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/onnwee/livehub/db"
	"github.com/onnwee/livehub/testutil"
)

func TestCreateMessageRoundTrip(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	testutil.SeedUser(t, database, "u1", "alice")

	msg, err := db.CreateMessage(ctx, database, "hello there", "u1", nil)
	if err != nil {
		t.Fatalf("CreateMessage() error = %v", err)
	}
	if msg.ID == "" {
		t.Error("ID is empty, want generated uuid")
	}
	if msg.Content != "hello there" {
		t.Errorf("Content = %s, want hello there", msg.Content)
	}
	if msg.ParentID != nil {
		t.Errorf("ParentID = %v, want nil", msg.ParentID)
	}
	if msg.Author.Name != "alice" {
		t.Errorf("Author.Name = %s, want alice (joined from users)", msg.Author.Name)
	}
	if msg.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero, want server timestamp")
	}
}

func TestCreateMessageUnknownAuthor(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()

	// No users row: the message still persists and the author projection falls
	// back to the raw id.
	msg, err := db.CreateMessage(ctx, database, "orphan author", "ghost", nil)
	if err != nil {
		t.Fatalf("CreateMessage() error = %v", err)
	}
	if msg.Author.ID != "ghost" || msg.Author.Name != "" {
		t.Errorf("Author = %+v, want fallback projection", msg.Author)
	}
}

func TestListRecentMessages(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	testutil.SeedUser(t, database, "u1", "alice")

	var ids []string
	for _, content := range []string{"first", "second", "third"} {
		msg, err := db.CreateMessage(ctx, database, content, "u1", nil)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, msg.ID)
	}
	// Push one message outside the window.
	if _, err := database.ExecContext(ctx,
		`UPDATE messages SET created_at = NOW() - INTERVAL '30 days' WHERE id = $1`, ids[0]); err != nil {
		t.Fatal(err)
	}
	// Spread the rest so ordering is deterministic.
	if _, err := database.ExecContext(ctx,
		`UPDATE messages SET created_at = NOW() - INTERVAL '1 hour' WHERE id = $1`, ids[1]); err != nil {
		t.Fatal(err)
	}

	since := time.Now().Add(-14 * 24 * time.Hour)
	got, err := db.ListRecentMessages(ctx, database, since, 100)
	if err != nil {
		t.Fatalf("ListRecentMessages() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2 (window excludes the old one)", len(got))
	}
	if got[0].ID != ids[1] || got[1].ID != ids[2] {
		t.Errorf("order = [%s %s], want oldest first [%s %s]", got[0].ID, got[1].ID, ids[1], ids[2])
	}
}

func TestListRecentMessagesLimit(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	testutil.SeedUser(t, database, "u1", "alice")

	var ids []string
	for i := 0; i < 5; i++ {
		msg, err := db.CreateMessage(ctx, database, "m", "u1", nil)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, msg.ID)
		// Distinct timestamps, oldest first.
		if _, err := database.ExecContext(ctx,
			`UPDATE messages SET created_at = NOW() - ($2 || ' minutes')::interval WHERE id = $1`,
			msg.ID, 5-i); err != nil {
			t.Fatal(err)
		}
	}

	got, err := db.ListRecentMessages(ctx, database, time.Now().Add(-time.Hour), 2)
	if err != nil {
		t.Fatalf("ListRecentMessages() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2", len(got))
	}
	// The cap truncates the ascending sequence.
	if got[0].ID != ids[0] || got[1].ID != ids[1] {
		t.Errorf("capped result = [%s %s], want [%s %s]", got[0].ID, got[1].ID, ids[0], ids[1])
	}
}

func TestIsReply(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	testutil.SeedUser(t, database, "u1", "alice")

	root, err := db.CreateMessage(ctx, database, "root", "u1", nil)
	if err != nil {
		t.Fatal(err)
	}
	reply, err := db.CreateMessage(ctx, database, "reply", "u1", &root.ID)
	if err != nil {
		t.Fatal(err)
	}

	if got, err := db.IsReply(ctx, database, root.ID); err != nil || got {
		t.Errorf("IsReply(root) = %v, %v, want false, nil", got, err)
	}
	if got, err := db.IsReply(ctx, database, reply.ID); err != nil || !got {
		t.Errorf("IsReply(reply) = %v, %v, want true, nil", got, err)
	}
	if _, err := db.IsReply(ctx, database, "missing-id"); err == nil {
		t.Error("IsReply(missing) error = nil, want not-found error")
	}
}

func TestDeleteMessagesOlderThanClearsParentRefs(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	testutil.SeedUser(t, database, "u1", "alice")

	root, err := db.CreateMessage(ctx, database, "root", "u1", nil)
	if err != nil {
		t.Fatal(err)
	}
	reply, err := db.CreateMessage(ctx, database, "reply", "u1", &root.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := database.ExecContext(ctx,
		`UPDATE messages SET created_at = NOW() - INTERVAL '20 days' WHERE id = $1`, root.ID); err != nil {
		t.Fatal(err)
	}

	deleted, err := db.DeleteMessagesOlderThan(ctx, database, time.Now().Add(-14*24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteMessagesOlderThan() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	// The surviving reply has its parent reference cleared, not a dangling id.
	var parent *string
	if err := database.QueryRowContext(ctx,
		`SELECT parent_id FROM messages WHERE id = $1`, reply.ID).Scan(&parent); err != nil {
		t.Fatal(err)
	}
	if parent != nil {
		t.Errorf("surviving reply parent_id = %v, want NULL", *parent)
	}
}
