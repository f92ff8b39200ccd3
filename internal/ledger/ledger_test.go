package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/terra-clan/quest-ledger/internal/events"
	"github.com/terra-clan/quest-ledger/internal/models"
	"github.com/terra-clan/quest-ledger/internal/storage"
)

const (
	testAdmin        models.Principal = "GADMIN"
	testOrchestrator models.Principal = "GORCH"
	testToken        models.Principal = "CREWARD"
)

type fixture struct {
	ledger   *Ledger
	store    *storage.MemoryStore
	recorder *events.Recorder

	mu  sync.Mutex
	now time.Time
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// newFixture returns an initialized ledger over a memory store
func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := newBareFixture()
	if _, err := f.ledger.Platform.Initialize(context.Background(), testAdmin, testToken, testOrchestrator); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return f
}

func newBareFixture() *fixture {
	f := &fixture{
		store:    storage.NewMemoryStore(),
		recorder: events.NewRecorder(),
		now:      time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	host := NewHost(f.store, WithSink(f.recorder), WithClock(f.clock))
	f.ledger = New(host)
	return f
}

func as(p models.Principal) context.Context {
	return WithCaller(context.Background(), p)
}

func int64Ptr(v int64) *int64 {
	return &v
}

func symbolPtr(s models.Symbol) *models.Symbol {
	return &s
}

func (f *fixture) createQuest(t *testing.T, p CreateQuestParams) *models.Quest {
	t.Helper()
	if p.Creator == "" {
		p.Creator = testAdmin
	}
	if p.Title == "" {
		p.Title = string(p.ID)
	}
	quest, err := f.ledger.Quests.Create(as(p.Creator), p)
	if err != nil {
		t.Fatalf("create quest %s: %v", p.ID, err)
	}
	return quest
}

func (f *fixture) quest(t *testing.T, id models.Symbol) *models.Quest {
	t.Helper()
	quest, err := f.ledger.Quests.GetQuest(context.Background(), id)
	if err != nil {
		t.Fatalf("get quest %s: %v", id, err)
	}
	return quest
}

func (f *fixture) countTopic(topic string) int {
	n := 0
	for _, got := range f.recorder.Topics() {
		if got == topic {
			n++
		}
	}
	return n
}
