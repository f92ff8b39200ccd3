package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/terra-clan/quest-ledger/internal/models"
)

func TestCreateQuest(t *testing.T) {
	f := newFixture(t)

	expires := f.clock().Add(24 * time.Hour)
	quest := f.createQuest(t, CreateQuestParams{
		Creator:        "GCREATOR",
		ID:             "Q1",
		Title:          "First quest",
		Description:    "Do the thing",
		RewardAmount:   1000,
		BadgeID:        symbolPtr("B1"),
		ExpiresAt:      &expires,
		MaxCompletions: int64Ptr(10),
	})

	if quest.Status != models.QuestActive {
		t.Errorf("expected active, got %s", quest.Status)
	}
	if quest.RewardToken != testToken {
		t.Errorf("expected reward token from platform, got %s", quest.RewardToken)
	}
	if quest.CurrentCompletions != 0 {
		t.Errorf("expected 0 completions, got %d", quest.CurrentCompletions)
	}
	if !quest.CreatedAt.Equal(f.clock()) {
		t.Errorf("expected created at ledger time, got %s", quest.CreatedAt)
	}

	stored := f.quest(t, "Q1")
	if stored.Title != "First quest" || *stored.MaxCompletions != 10 || *stored.BadgeID != "B1" {
		t.Fatalf("unexpected stored quest: %+v", stored)
	}

	count, _ := f.ledger.Quests.QuestCount(context.Background())
	if count != 1 {
		t.Fatalf("expected quest count 1, got %d", count)
	}

	evts := f.recorder.Events()
	last := evts[len(evts)-1]
	if last.Topic != models.TopicQuestCreated || last.Principal != "GCREATOR" {
		t.Fatalf("unexpected event: %+v", last)
	}
	if last.Payload["quest_id"] != models.Symbol("Q1") || last.Payload["reward_amount"] != int64(1000) {
		t.Fatalf("unexpected payload: %v", last.Payload)
	}
}

func TestCreateQuestDuplicate(t *testing.T) {
	f := newFixture(t)
	f.createQuest(t, CreateQuestParams{ID: "Q1"})

	_, err := f.ledger.Quests.Create(as(testAdmin), CreateQuestParams{Creator: testAdmin, ID: "Q1", Title: "again"})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	count, _ := f.ledger.Quests.QuestCount(context.Background())
	if count != 1 {
		t.Fatalf("failed create must not bump the counter, got %d", count)
	}
	if f.quest(t, "Q1").Title != "Q1" {
		t.Fatal("failed create overwrote the quest")
	}
}

func TestCreateQuestUninitialized(t *testing.T) {
	f := newBareFixture()

	_, err := f.ledger.Quests.Create(as(testAdmin), CreateQuestParams{Creator: testAdmin, ID: "Q1"})
	if !errors.Is(err, ErrUninitialized) {
		t.Fatalf("expected ErrUninitialized, got %v", err)
	}
}

func TestCreateQuestRequiresCreatorAuth(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.Quests.Create(as("GMALLORY"), CreateQuestParams{Creator: "GCREATOR", ID: "Q1"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	_, err = f.ledger.Quests.Create(context.Background(), CreateQuestParams{Creator: "GCREATOR", ID: "Q1"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized without caller, got %v", err)
	}
}

func TestCreateQuestValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		p    CreateQuestParams
	}{
		{"bad id", CreateQuestParams{ID: "no-dashes"}},
		{"long id", CreateQuestParams{ID: "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456"}},
		{"negative reward", CreateQuestParams{ID: "Q1", RewardAmount: -1}},
		{"negative cap", CreateQuestParams{ID: "Q1", MaxCompletions: int64Ptr(-1)}},
		{"bad badge", CreateQuestParams{ID: "Q1", BadgeID: symbolPtr("")}},
	}

	for _, tt := range tests {
		tt.p.Creator = testAdmin
		if _, err := f.ledger.Quests.Create(as(testAdmin), tt.p); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: expected ErrInvalidInput, got %v", tt.name, err)
		}
	}
}

func TestCancelQuest(t *testing.T) {
	f := newFixture(t)
	f.createQuest(t, CreateQuestParams{ID: "Q1"})

	if _, err := f.ledger.Quests.Cancel(as("GALICE"), "Q1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	quest, err := f.ledger.Quests.Cancel(as(testAdmin), "Q1")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if quest.Status != models.QuestCancelled {
		t.Fatalf("expected cancelled, got %s", quest.Status)
	}
	if f.countTopic(models.TopicQuestCancelled) != 1 {
		t.Fatalf("expected one cancel event, got %v", f.recorder.Topics())
	}

	// Cancelling again is a no-op without a second event
	if _, err := f.ledger.Quests.Cancel(as(testAdmin), "Q1"); err != nil {
		t.Fatalf("second cancel: %v", err)
	}
	if f.countTopic(models.TopicQuestCancelled) != 1 {
		t.Fatalf("expected still one cancel event, got %v", f.recorder.Topics())
	}

	if _, err := f.ledger.Quests.Cancel(as(testAdmin), "NOPE"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCancelCompletedQuestFails(t *testing.T) {
	f := newFixture(t)
	f.createQuest(t, CreateQuestParams{ID: "Q1", MaxCompletions: int64Ptr(1)})

	if _, err := f.ledger.Completions.Complete(as("GALICE"), "GALICE", "Q1"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if _, err := f.ledger.Quests.Cancel(as(testAdmin), "Q1"); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
	if f.quest(t, "Q1").Status != models.QuestCompleted {
		t.Fatal("completed quest must stay completed")
	}
}

func TestListQuests(t *testing.T) {
	f := newFixture(t)
	for _, id := range []models.Symbol{"Q3", "Q1", "Q2"} {
		f.createQuest(t, CreateQuestParams{ID: id})
	}
	if _, err := f.ledger.Quests.Cancel(as(testAdmin), "Q1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	all, err := f.ledger.Quests.ListQuests(context.Background(), "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != "Q3" || all[1].ID != "Q1" || all[2].ID != "Q2" {
		t.Fatalf("expected creation order, got %v", questIDs(all))
	}

	active, _ := f.ledger.Quests.ListQuests(context.Background(), models.QuestActive)
	if len(active) != 2 {
		t.Fatalf("expected 2 active quests, got %v", questIDs(active))
	}

	if _, err := f.ledger.Quests.ListQuests(context.Background(), "paused"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func questIDs(quests []*models.Quest) []models.Symbol {
	ids := make([]models.Symbol, 0, len(quests))
	for _, q := range quests {
		ids = append(ids, q.ID)
	}
	return ids
}
