package storage

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreCommitAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	err := s.Commit(ctx, []Mutation{
		{Tier: TierInstance, Key: "quests", Value: []byte(`{"Q1":{}}`)},
		{Tier: TierPersistent, Key: "quests", Value: []byte(`other`)},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	value, ok, err := s.Get(ctx, TierInstance, "quests")
	if err != nil || !ok || string(value) != `{"Q1":{}}` {
		t.Fatalf("unexpected instance value: %q %v %v", value, ok, err)
	}

	// Tiers are separate namespaces
	value, _, _ = s.Get(ctx, TierPersistent, "quests")
	if string(value) != "other" {
		t.Fatalf("unexpected persistent value: %q", value)
	}

	if _, ok, _ := s.Get(ctx, TierInstance, "missing"); ok {
		t.Fatal("expected missing key")
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	raw := []byte("abc")
	s.Commit(ctx, []Mutation{{Tier: TierInstance, Key: "k", Value: raw}})
	raw[0] = 'x'

	value, _, _ := s.Get(ctx, TierInstance, "k")
	if string(value) != "abc" {
		t.Fatalf("store aliased the caller's buffer: %q", value)
	}

	value[1] = 'y'
	again, _, _ := s.Get(ctx, TierInstance, "k")
	if string(again) != "abc" {
		t.Fatalf("store aliased the returned buffer: %q", again)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Commit(ctx, []Mutation{{Tier: TierPersistent, Key: "payouts", Value: []byte("[]")}})
	if s.Len(TierPersistent) != 1 {
		t.Fatalf("expected 1 key, got %d", s.Len(TierPersistent))
	}

	s.Commit(ctx, []Mutation{{Tier: TierPersistent, Key: "payouts", Delete: true}})
	if s.Len(TierPersistent) != 0 {
		t.Fatalf("expected key deleted, got %d", s.Len(TierPersistent))
	}
}

func TestMemoryStoreRejectsInvalidBatch(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	err := s.Commit(ctx, []Mutation{
		{Tier: TierInstance, Key: "good", Value: []byte("1")},
		{Tier: "temporary", Key: "bad", Value: []byte("2")},
	})
	if !errors.Is(err, ErrUnknownTier) {
		t.Fatalf("expected ErrUnknownTier, got %v", err)
	}
	if s.Len(TierInstance) != 0 {
		t.Fatal("invalid batch was partially applied")
	}

	if err := s.Commit(ctx, []Mutation{{Tier: TierInstance, Value: []byte("1")}}); err == nil {
		t.Fatal("expected error for empty key")
	}

	if _, _, err := s.Get(ctx, "temporary", "k"); !errors.Is(err, ErrUnknownTier) {
		t.Fatalf("expected ErrUnknownTier on get, got %v", err)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	fsys, err := Migrations("")
	if err != nil {
		t.Fatalf("migrations: %v", err)
	}

	for _, name := range []string{"001_ledger_entries.sql", "002_ledger_events.sql"} {
		if _, err := fsys.Open(name); err != nil {
			t.Errorf("embedded migration %s missing: %v", name, err)
		}
	}
}
