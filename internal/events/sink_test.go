package events

import (
	"context"
	"errors"
	"testing"

	"github.com/terra-clan/quest-ledger/internal/models"
)

func TestRecorderSince(t *testing.T) {
	r := NewRecorder()
	ctx := context.Background()
	for i := uint64(1); i <= 5; i++ {
		if err := r.Publish(ctx, models.Event{Sequence: i, Topic: models.TopicQuestCreated}); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	got, err := r.Since(ctx, 2, 2)
	if err != nil {
		t.Fatalf("since: %v", err)
	}
	if len(got) != 2 || got[0].Sequence != 3 || got[1].Sequence != 4 {
		t.Fatalf("unexpected events: %+v", got)
	}

	all, _ := r.Since(ctx, 0, 0)
	if len(all) != 5 {
		t.Fatalf("expected all 5 events, got %d", len(all))
	}

	none, _ := r.Since(ctx, 5, 10)
	if len(none) != 0 {
		t.Fatalf("expected no events after the last, got %d", len(none))
	}
}

func TestMultiFansOutAndJoinsErrors(t *testing.T) {
	a := NewRecorder()
	b := NewRecorder()
	broken := errors.New("broken sink")

	m := Multi{
		a,
		SinkFunc(func(context.Context, models.Event) error { return broken }),
		b,
	}

	err := m.Publish(context.Background(), models.Event{Sequence: 1, Topic: models.TopicBadgeMinted})
	if !errors.Is(err, broken) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Fatal("a failing sink must not stop delivery to the others")
	}
	if topics := b.Topics(); topics[0] != models.TopicBadgeMinted {
		t.Fatalf("unexpected topics: %v", topics)
	}
}

func TestDiscard(t *testing.T) {
	if err := Discard.Publish(context.Background(), models.Event{}); err != nil {
		t.Fatalf("discard returned %v", err)
	}
}
