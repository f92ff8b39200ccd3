package events

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terra-clan/quest-ledger/internal/models"
	"github.com/terra-clan/quest-ledger/internal/storage"
)

func TestJournalPublishAndSince(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set, skipping")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := storage.MigrateFromDSN(ctx, dsn, ""); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	// Sequences far above anything a real ledger in the test database produced
	base := uint64(time.Now().UnixNano())
	t.Cleanup(func() {
		pool.Exec(context.Background(), `DELETE FROM ledger_events WHERE sequence >= $1`, int64(base))
	})

	j := NewJournal(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)
	for i := uint64(0); i < 3; i++ {
		evt := models.Event{
			ID:         uuid.NewString(),
			Sequence:   base + i,
			Topic:      models.TopicQuestCompleted,
			Principal:  "GALICE",
			Payload:    map[string]any{"quest_id": "Q1"},
			LedgerTime: now,
		}
		if err := j.Publish(ctx, evt); err != nil {
			t.Fatalf("publish: %v", err)
		}
		// Replays are ignored
		if err := j.Publish(ctx, evt); err != nil {
			t.Fatalf("replay: %v", err)
		}
	}

	got, err := j.Since(ctx, base, 10)
	if err != nil {
		t.Fatalf("since: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events after %d, got %d", base, len(got))
	}
	if got[0].Sequence != base+1 || got[0].Principal != "GALICE" || got[0].Payload["quest_id"] != "Q1" {
		t.Fatalf("unexpected event: %+v", got[0])
	}
}
