package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/terra-clan/quest-ledger/internal/models"
)

// CompletionLedger records exactly-once completions and the rewards they owe
type CompletionLedger struct {
	host *Host
}

// Complete records that user finished questID.
//
// Checks run in a fixed order: existence, active status, expiry, cap, then
// the per-user record. A quest already closed by its cap fails with
// ErrCapReached; any other terminal quest fails with ErrNotActive. Expiry and cap detection flip the quest to its
// terminal status and keep that write even though the call fails.
func (l *CompletionLedger) Complete(ctx context.Context, user models.Principal, questID models.Symbol) (*models.CompletionRecord, error) {
	var record models.CompletionRecord
	err := l.host.Invoke(ctx, "complete_quest", func(env *Env) error {
		if err := env.RequireAuth(user); err != nil {
			return err
		}

		quests, err := loadQuests(env)
		if err != nil {
			return err
		}
		quest, ok := quests[questID]
		if !ok {
			return fmt.Errorf("quest %s: %w", questID, ErrNotFound)
		}

		if quest.Status.IsTerminal() {
			// A quest closed by its cap keeps reporting the cap to later callers
			if quest.Status == models.QuestCompleted && quest.CapReached() {
				return fmt.Errorf("quest %s: %w", questID, ErrCapReached)
			}
			return fmt.Errorf("quest %s is %s: %w", questID, quest.Status, ErrNotActive)
		}

		if quest.IsExpiredAt(env.Now()) {
			quest.Status = models.QuestCancelled
			quests[questID] = quest
			if err := save(env.instance, keyQuests, quests); err != nil {
				return err
			}
			return commitThenFail(fmt.Errorf("quest %s: %w", questID, ErrExpired))
		}

		if quest.CapReached() {
			quest.Status = models.QuestCompleted
			quests[questID] = quest
			if err := save(env.instance, keyQuests, quests); err != nil {
				return err
			}
			return commitThenFail(fmt.Errorf("quest %s: %w", questID, ErrCapReached))
		}

		completions, err := loadCompletions(env)
		if err != nil {
			return err
		}
		key := completionKey(user, questID)
		if _, done := completions[key]; done {
			return fmt.Errorf("user %s, quest %s: %w", user, questID, ErrAlreadyCompleted)
		}

		quest.CurrentCompletions++
		if quest.CapReached() {
			quest.Status = models.QuestCompleted
		}
		quests[questID] = quest

		// Reward token movement happens outside the ledger; the claim is
		// recorded now and the payout queued for the reward account.
		record = models.CompletionRecord{
			User:          user,
			QuestID:       questID,
			CompletedAt:   env.Now(),
			RewardClaimed: true,
		}
		completions[key] = record

		done, err := loadIndex(env.persistent, keyUserCompletion)
		if err != nil {
			return err
		}
		done[user] = append(done[user], questID)

		if err := save(env.persistent, keyCompletions, completions); err != nil {
			return err
		}
		if err := save(env.persistent, keyUserCompletion, done); err != nil {
			return err
		}
		if quest.RewardAmount > 0 {
			if err := enqueuePayout(env, models.Payout{
				User:        user,
				QuestID:     questID,
				Amount:      quest.RewardAmount,
				RewardToken: quest.RewardToken,
				CompletedAt: env.Now(),
			}); err != nil {
				return err
			}
		}
		if err := save(env.instance, keyQuests, quests); err != nil {
			return err
		}

		env.Publish(models.TopicQuestCompleted, user, map[string]any{
			"quest_id":      questID,
			"reward_amount": quest.RewardAmount,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// HasCompleted reports whether a completion record exists for (user, questID)
func (l *CompletionLedger) HasCompleted(ctx context.Context, user models.Principal, questID models.Symbol) (bool, error) {
	var done bool
	err := l.host.View(ctx, func(env *Env) error {
		completions, err := loadCompletions(env)
		if err != nil {
			return err
		}
		_, done = completions[completionKey(user, questID)]
		return nil
	})
	return done, err
}

// GetCompletion returns the completion record or ErrNotFound
func (l *CompletionLedger) GetCompletion(ctx context.Context, user models.Principal, questID models.Symbol) (*models.CompletionRecord, error) {
	var record models.CompletionRecord
	err := l.host.View(ctx, func(env *Env) error {
		completions, err := loadCompletions(env)
		if err != nil {
			return err
		}
		var ok bool
		if record, ok = completions[completionKey(user, questID)]; !ok {
			return fmt.Errorf("completion %s/%s: %w", user, questID, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// UserCompletions returns the quests a user completed, oldest first
func (l *CompletionLedger) UserCompletions(ctx context.Context, user models.Principal) ([]models.Symbol, error) {
	var ids []models.Symbol
	err := l.host.View(ctx, func(env *Env) error {
		done, err := loadIndex(env.persistent, keyUserCompletion)
		if err != nil {
			return err
		}
		ids = append([]models.Symbol{}, done[user]...)
		return nil
	})
	return ids, err
}

// Leaderboard ranks users by completion count, ties broken by principal.
// A non-positive limit returns every user.
func (l *CompletionLedger) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	var entries []models.LeaderboardEntry
	err := l.host.View(ctx, func(env *Env) error {
		done, err := loadIndex(env.persistent, keyUserCompletion)
		if err != nil {
			return err
		}
		entries = make([]models.LeaderboardEntry, 0, len(done))
		for user, ids := range done {
			entries = append(entries, models.LeaderboardEntry{User: user, Completions: len(ids)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Completions != entries[j].Completions {
			return entries[i].Completions > entries[j].Completions
		}
		return entries[i].User < entries[j].User
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
