package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Notification is one recorded dispatch.
type Notification struct {
	ID         string
	MessageID  string
	Sender     string
	ReceivedAt *time.Time // nil when the source message had no timestamp
	NotifiedAt time.Time
}

// Seen reports whether a notification for the message has already been
// recorded.
func (db *DB) Seen(ctx context.Context, messageID string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE message_id = ?`, messageID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query ledger: %w", err)
	}
	return count > 0, nil
}

// Record stores a dispatched notification. Recording the same message twice
// is an error; callers check Seen first.
func (db *DB) Record(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.NotifiedAt.IsZero() {
		n.NotifiedAt = time.Now()
	}

	var received sql.NullTime
	if n.ReceivedAt != nil {
		received = sql.NullTime{Time: *n.ReceivedAt, Valid: true}
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO notifications (id, message_id, sender, received_at, notified_at)
		VALUES (?, ?, ?, ?, ?)
	`, n.ID, n.MessageID, n.Sender, received, n.NotifiedAt)
	if err != nil {
		return fmt.Errorf("record notification: %w", err)
	}
	return nil
}

// Recent returns the most recently dispatched notifications, newest first.
func (db *DB) Recent(ctx context.Context, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, message_id, sender, received_at, notified_at
		FROM notifications
		ORDER BY notified_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		var received sql.NullTime
		if err := rows.Scan(&n.ID, &n.MessageID, &n.Sender, &received, &n.NotifiedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if received.Valid {
			t := received.Time
			n.ReceivedAt = &t
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
