package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func TestOpen(t *testing.T) {
	db := setupTestDB(t)

	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='notifications'").Scan(&count)
	if err != nil {
		t.Fatalf("failed to query tables: %v", err)
	}
	if count != 1 {
		t.Error("expected notifications table to exist")
	}
}

func TestSeenAndRecord(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	seen, err := db.Seen(ctx, "msg-1")
	if err != nil {
		t.Fatalf("Seen failed: %v", err)
	}
	if seen {
		t.Error("Seen = true for an unrecorded message")
	}

	received := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	n := &Notification{
		MessageID:  "msg-1",
		Sender:     "loopsbot@mail.loops.so",
		ReceivedAt: &received,
	}
	if err := db.Record(ctx, n); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if n.ID == "" {
		t.Error("expected ID to be set after record")
	}
	if n.NotifiedAt.IsZero() {
		t.Error("expected NotifiedAt to be set after record")
	}

	seen, err = db.Seen(ctx, "msg-1")
	if err != nil {
		t.Fatalf("Seen failed: %v", err)
	}
	if !seen {
		t.Error("Seen = false after record")
	}
}

func TestRecordDuplicateFails(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.Record(ctx, &Notification{MessageID: "dup", Sender: "s"}); err != nil {
		t.Fatalf("first Record failed: %v", err)
	}
	if err := db.Record(ctx, &Notification{MessageID: "dup", Sender: "s"}); err == nil {
		t.Error("expected duplicate record to fail")
	}
}

func TestRecent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		n := &Notification{
			MessageID:  string(rune('a' + i)),
			Sender:     "loopsbot@mail.loops.so",
			NotifiedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := db.Record(ctx, n); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	recent, err := db.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("len(recent) = %d, want 2", len(recent))
	}
	if recent[0].MessageID != "c" {
		t.Errorf("newest first: got %q, want c", recent[0].MessageID)
	}
	if recent[0].ReceivedAt != nil {
		t.Errorf("ReceivedAt = %v, want nil for unset", recent[0].ReceivedAt)
	}
}
