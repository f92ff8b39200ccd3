package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/terra-clan/quest-ledger/internal/models"
)

// CreateQuestParams holds the inputs of QuestLedger.Create
type CreateQuestParams struct {
	Creator        models.Principal
	ID             models.Symbol
	Title          string
	Description    string
	RewardAmount   int64
	BadgeID        *models.Symbol
	ExpiresAt      *time.Time
	MaxCompletions *int64
}

func (p CreateQuestParams) validate() error {
	if p.Creator == "" {
		return fmt.Errorf("creator is required: %w", ErrInvalidInput)
	}
	if err := p.ID.Validate(); err != nil {
		return fmt.Errorf("quest id: %v: %w", err, ErrInvalidInput)
	}
	if p.BadgeID != nil {
		if err := p.BadgeID.Validate(); err != nil {
			return fmt.Errorf("badge id: %v: %w", err, ErrInvalidInput)
		}
	}
	if p.RewardAmount < 0 {
		return fmt.Errorf("reward amount must not be negative: %w", ErrInvalidInput)
	}
	if p.MaxCompletions != nil && *p.MaxCompletions < 0 {
		return fmt.Errorf("max completions must not be negative: %w", ErrInvalidInput)
	}
	return nil
}

// QuestLedger owns quest records, their lifecycle and the quest counter
type QuestLedger struct {
	host *Host
}

// Create registers a new active quest on behalf of its creator
func (l *QuestLedger) Create(ctx context.Context, p CreateQuestParams) (*models.Quest, error) {
	var quest models.Quest
	err := l.host.Invoke(ctx, "create_quest", func(env *Env) error {
		if err := env.RequireAuth(p.Creator); err != nil {
			return err
		}
		if err := p.validate(); err != nil {
			return err
		}

		platform, err := loadPlatform(env)
		if err != nil {
			return err
		}

		quests, err := loadQuests(env)
		if err != nil {
			return err
		}
		if _, exists := quests[p.ID]; exists {
			return fmt.Errorf("quest %s: %w", p.ID, ErrAlreadyExists)
		}

		quest = models.Quest{
			ID:                 p.ID,
			Creator:            p.Creator,
			Title:              p.Title,
			Description:        p.Description,
			RewardAmount:       p.RewardAmount,
			RewardToken:        platform.RewardToken,
			BadgeID:            p.BadgeID,
			Status:             models.QuestActive,
			CreatedAt:          env.Now(),
			ExpiresAt:          p.ExpiresAt,
			MaxCompletions:     p.MaxCompletions,
			CurrentCompletions: 0,
		}
		quests[p.ID] = quest

		count, err := loadCounter(env.instance, keyQuestCount)
		if err != nil {
			return err
		}
		index, _, err := load[[]models.Symbol](env.instance, keyQuestIndex)
		if err != nil {
			return err
		}

		if err := save(env.instance, keyQuestCount, count+1); err != nil {
			return err
		}
		if err := save(env.instance, keyQuestIndex, append(index, p.ID)); err != nil {
			return err
		}
		if err := save(env.instance, keyQuests, quests); err != nil {
			return err
		}

		env.Publish(models.TopicQuestCreated, p.Creator, map[string]any{
			"quest_id":      p.ID,
			"title":         p.Title,
			"reward_amount": p.RewardAmount,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &quest, nil
}

// Cancel moves an active quest to cancelled. Only the platform admin may call it.
// Cancelling an already cancelled quest succeeds without effect; a completed
// quest stays completed and the call fails with ErrNotActive.
func (l *QuestLedger) Cancel(ctx context.Context, questID models.Symbol) (*models.Quest, error) {
	var quest models.Quest
	err := l.host.Invoke(ctx, "cancel_quest", func(env *Env) error {
		platform, err := loadPlatform(env)
		if err != nil {
			return err
		}
		if err := env.RequireAuth(platform.Admin); err != nil {
			return err
		}

		quests, err := loadQuests(env)
		if err != nil {
			return err
		}
		var ok bool
		quest, ok = quests[questID]
		if !ok {
			return fmt.Errorf("quest %s: %w", questID, ErrNotFound)
		}

		if quest.Status == models.QuestCancelled {
			return nil
		}
		if quest.Status.IsTerminal() {
			return fmt.Errorf("quest %s is %s: %w", questID, quest.Status, ErrNotActive)
		}

		quest.Status = models.QuestCancelled
		quests[questID] = quest
		if err := save(env.instance, keyQuests, quests); err != nil {
			return err
		}

		env.Publish(models.TopicQuestCancelled, platform.Admin, map[string]any{
			"quest_id": questID,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &quest, nil
}

// GetQuest returns the quest or ErrNotFound
func (l *QuestLedger) GetQuest(ctx context.Context, questID models.Symbol) (*models.Quest, error) {
	var quest models.Quest
	err := l.host.View(ctx, func(env *Env) error {
		quests, err := loadQuests(env)
		if err != nil {
			return err
		}
		var ok bool
		if quest, ok = quests[questID]; !ok {
			return fmt.Errorf("quest %s: %w", questID, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &quest, nil
}

// QuestCount returns the number of quests ever created
func (l *QuestLedger) QuestCount(ctx context.Context) (int64, error) {
	var count int64
	err := l.host.View(ctx, func(env *Env) error {
		var err error
		count, err = loadCounter(env.instance, keyQuestCount)
		return err
	})
	return count, err
}

// ListQuests returns quests in creation order, optionally filtered by status.
// An empty status returns every quest.
func (l *QuestLedger) ListQuests(ctx context.Context, status models.QuestStatus) ([]*models.Quest, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("unknown status %q: %w", status, ErrInvalidInput)
	}

	var result []*models.Quest
	err := l.host.View(ctx, func(env *Env) error {
		quests, err := loadQuests(env)
		if err != nil {
			return err
		}
		index, _, err := load[[]models.Symbol](env.instance, keyQuestIndex)
		if err != nil {
			return err
		}

		result = make([]*models.Quest, 0, len(index))
		for _, id := range index {
			quest, ok := quests[id]
			if !ok {
				continue
			}
			if status != "" && quest.Status != status {
				continue
			}
			result = append(result, &quest)
		}
		return nil
	})
	return result, err
}
