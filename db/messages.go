package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Author is the minimal user projection joined onto messages for display.
type Author struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"image"`
}

// Message is a chat message record. ParentID is non-nil for replies; a reply
// may not itself have replies (one level deep, enforced at create time).
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	AuthorID  string    `json:"authorId"`
	ParentID  *string   `json:"parentId"`
	CreatedAt time.Time `json:"createdAt"`
	Author    Author    `json:"author"`
}

// CreateMessage inserts a new message and returns it joined with author display fields.
func CreateMessage(ctx context.Context, dbc *sql.DB, content, authorID string, parentID *string) (Message, error) {
	id := uuid.New().String()
	if _, err := dbc.ExecContext(ctx,
		`INSERT INTO messages (id, content, author_id, parent_id, created_at) VALUES ($1,$2,$3,$4,NOW())`,
		id, content, authorID, parentID); err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}
	msg, err := getMessage(ctx, dbc, id)
	if err != nil {
		return Message{}, fmt.Errorf("read back message %s: %w", id, err)
	}
	return msg, nil
}

func getMessage(ctx context.Context, dbc *sql.DB, id string) (Message, error) {
	row := dbc.QueryRowContext(ctx, `
		SELECT m.id, m.content, m.author_id, m.parent_id, m.created_at,
		       COALESCE(u.id, m.author_id), COALESCE(u.name, ''), COALESCE(u.avatar_url, '')
		FROM messages m
		LEFT JOIN users u ON u.id = m.author_id
		WHERE m.id = $1`, id)
	var m Message
	if err := row.Scan(&m.ID, &m.Content, &m.AuthorID, &m.ParentID, &m.CreatedAt,
		&m.Author.ID, &m.Author.Name, &m.Author.AvatarURL); err != nil {
		return Message{}, err
	}
	return m, nil
}

// ListRecentMessages returns messages with created_at >= since, oldest first,
// capped at limit, each joined with author display fields. A missing user row
// never hides a message (LEFT JOIN).
func ListRecentMessages(ctx context.Context, dbc *sql.DB, since time.Time, limit int) ([]Message, error) {
	rows, err := dbc.QueryContext(ctx, `
		SELECT m.id, m.content, m.author_id, m.parent_id, m.created_at,
		       COALESCE(u.id, m.author_id), COALESCE(u.name, ''), COALESCE(u.avatar_url, '')
		FROM messages m
		LEFT JOIN users u ON u.id = m.author_id
		WHERE m.created_at >= $1
		ORDER BY m.created_at ASC
		LIMIT $2`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent messages: %w", err)
	}
	defer rows.Close()

	out := make([]Message, 0)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Content, &m.AuthorID, &m.ParentID, &m.CreatedAt,
			&m.Author.ID, &m.Author.Name, &m.Author.AvatarURL); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// IsReply reports whether the given message id refers to a message that is
// itself a reply. Used to keep the reply relationship one level deep.
func IsReply(ctx context.Context, dbc *sql.DB, id string) (bool, error) {
	var parent *string
	err := dbc.QueryRowContext(ctx, `SELECT parent_id FROM messages WHERE id=$1`, id).Scan(&parent)
	if err == sql.ErrNoRows {
		return false, fmt.Errorf("message %s not found", id)
	}
	if err != nil {
		return false, err
	}
	return parent != nil, nil
}

// DeleteMessagesOlderThan removes every message created strictly before cutoff
// and returns the number of rows deleted. Replies to a deleted parent survive
// with parent_id cleared (FK ON DELETE SET NULL).
func DeleteMessagesOlderThan(ctx context.Context, dbc *sql.DB, cutoff time.Time) (int64, error) {
	res, err := dbc.ExecContext(ctx, `DELETE FROM messages WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old messages: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}
