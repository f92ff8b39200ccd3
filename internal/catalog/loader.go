// Package catalog loads quest definitions from YAML files and seeds them
// into the ledger at startup.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gosimple/slug"
	"gopkg.in/yaml.v3"

	"github.com/terra-clan/quest-ledger/internal/ledger"
	"github.com/terra-clan/quest-ledger/internal/models"
)

// Entry is a quest definition from the catalog
type Entry struct {
	ID             models.Symbol
	Title          string
	Description    string
	RewardAmount   int64
	BadgeID        *models.Symbol
	ExpiresAt      *time.Time
	ExpiresIn      time.Duration // relative to seeding time, ignored when ExpiresAt is set
	MaxCompletions *int64
	Source         string
}

// Params converts the entry into creation parameters for creator at now
func (e *Entry) Params(creator models.Principal, now time.Time) ledger.CreateQuestParams {
	expiresAt := e.ExpiresAt
	if expiresAt == nil && e.ExpiresIn > 0 {
		t := now.Add(e.ExpiresIn)
		expiresAt = &t
	}

	return ledger.CreateQuestParams{
		Creator:        creator,
		ID:             e.ID,
		Title:          e.Title,
		Description:    e.Description,
		RewardAmount:   e.RewardAmount,
		BadgeID:        e.BadgeID,
		ExpiresAt:      expiresAt,
		MaxCompletions: e.MaxCompletions,
	}
}

// Loader manages loading of catalog entries
type Loader struct {
	mu      sync.RWMutex
	entries map[models.Symbol]*Entry
}

// NewLoader creates an empty catalog loader
func NewLoader() *Loader {
	return &Loader{
		entries: make(map[models.Symbol]*Entry),
	}
}

// LoadFromDir loads every YAML quest in dir and its direct subdirectories.
// Broken files are logged and skipped.
func (l *Loader) LoadFromDir(dir string) error {
	slog.Info("loading quest catalog", "dir", dir)

	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("failed to open catalog dir: %w", err)
	}

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		for _, glob := range []string{filepath.Join(dir, pattern), filepath.Join(dir, "*", pattern)} {
			matches, err := filepath.Glob(glob)
			if err != nil {
				continue
			}
			files = append(files, matches...)
		}
	}
	sort.Strings(files)

	loaded := 0
	for _, file := range files {
		if err := l.LoadFromFile(file); err != nil {
			slog.Warn("failed to load quest", "file", file, "error", err)
			continue
		}
		loaded++
	}

	slog.Info("quest catalog loaded", "count", loaded, "total_files", len(files))
	return nil
}

// LoadFromFile loads a single quest definition
func (l *Loader) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var qf questFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	if qf.Title == "" {
		return fmt.Errorf("quest title is required")
	}
	if qf.Reward < 0 {
		return fmt.Errorf("reward must not be negative")
	}

	// Use id from YAML, fall back to the title, then the filename
	id := models.Symbol(qf.ID)
	if id == "" {
		id = symbolFrom(qf.Title)
	}
	if id == "" {
		base := filepath.Base(path)
		id = symbolFrom(strings.TrimSuffix(base, filepath.Ext(base)))
	}
	if err := id.Validate(); err != nil {
		return fmt.Errorf("invalid quest id: %w", err)
	}

	entry := &Entry{
		ID:             id,
		Title:          qf.Title,
		Description:    qf.Description,
		RewardAmount:   qf.Reward,
		MaxCompletions: qf.MaxCompletions,
		Source:         path,
	}

	if qf.BadgeID != "" {
		badge := models.Symbol(qf.BadgeID)
		if err := badge.Validate(); err != nil {
			return fmt.Errorf("invalid badge id: %w", err)
		}
		entry.BadgeID = &badge
	}

	if qf.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, qf.ExpiresAt)
		if err != nil {
			return fmt.Errorf("invalid expires_at: %w", err)
		}
		t = t.UTC()
		entry.ExpiresAt = &t
	} else if qf.ExpiresIn != "" {
		d, err := time.ParseDuration(qf.ExpiresIn)
		if err != nil {
			return fmt.Errorf("invalid expires_in: %w", err)
		}
		entry.ExpiresIn = d
	}

	l.mu.Lock()
	l.entries[id] = entry
	l.mu.Unlock()

	slog.Debug("quest loaded", "id", id, "title", qf.Title)
	return nil
}

// Get retrieves an entry by quest id
func (l *Loader) Get(id models.Symbol) *Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.entries[id]
}

// List returns all entries ordered by id
func (l *Loader) List() []*Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*Entry, 0, len(l.entries))
	for _, e := range l.entries {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Seed creates every catalog quest that does not exist yet.
// ctx must carry creator as the caller.
func (l *Loader) Seed(ctx context.Context, quests *ledger.QuestLedger, creator models.Principal, now time.Time) (int, error) {
	created := 0
	for _, entry := range l.List() {
		_, err := quests.Create(ctx, entry.Params(creator, now))
		switch {
		case err == nil:
			created++
		case errors.Is(err, ledger.ErrAlreadyExists):
		default:
			return created, fmt.Errorf("failed to seed quest %s: %w", entry.ID, err)
		}
	}

	slog.Info("quest catalog seeded", "created", created, "total", len(l.entries))
	return created, nil
}

// symbolFrom turns free text into a quest symbol: "Daily Login!" -> "daily_login"
func symbolFrom(s string) models.Symbol {
	sym := strings.ReplaceAll(slug.Make(s), "-", "_")
	if len(sym) > models.MaxSymbolLen {
		sym = strings.TrimRight(sym[:models.MaxSymbolLen], "_")
	}
	return models.Symbol(sym)
}

// questFile represents the YAML structure of a quest file
type questFile struct {
	ID             string `yaml:"id"`
	Title          string `yaml:"title"`
	Description    string `yaml:"description"`
	Reward         int64  `yaml:"reward"`
	BadgeID        string `yaml:"badge_id"`
	ExpiresAt      string `yaml:"expires_at"`
	ExpiresIn      string `yaml:"expires_in"`
	MaxCompletions *int64 `yaml:"max_completions"`
}
