package ledger

import (
	"context"
	"fmt"

	"github.com/terra-clan/quest-ledger/internal/models"
)

// PayoutQueue exposes rewards owed by completions to the reward account
type PayoutQueue struct {
	host *Host
}

func enqueuePayout(env *Env, p models.Payout) error {
	queue, _, err := load[[]models.Payout](env.persistent, keyPayouts)
	if err != nil {
		return err
	}
	return save(env.persistent, keyPayouts, append(queue, p))
}

// Pending returns up to limit queued payouts, oldest first.
// A non-positive limit returns the whole queue.
func (q *PayoutQueue) Pending(ctx context.Context, limit int) ([]models.Payout, error) {
	var queue []models.Payout
	err := q.host.View(ctx, func(env *Env) error {
		var err error
		queue, _, err = load[[]models.Payout](env.persistent, keyPayouts)
		return err
	})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(queue) > limit {
		queue = queue[:limit]
	}
	return queue, nil
}

// Ack removes the head of the queue once the reward account has paid it.
// Only the orchestrator may ack, and only the current head.
func (q *PayoutQueue) Ack(ctx context.Context, p models.Payout) error {
	return q.host.Invoke(ctx, "ack_payout", func(env *Env) error {
		platform, err := loadPlatform(env)
		if err != nil {
			return err
		}
		if err := env.RequireAuth(platform.Orchestrator); err != nil {
			return err
		}

		queue, _, err := load[[]models.Payout](env.persistent, keyPayouts)
		if err != nil {
			return err
		}
		if len(queue) == 0 || queue[0].User != p.User || queue[0].QuestID != p.QuestID {
			return fmt.Errorf("payout %s/%s is not at the head of the queue: %w", p.User, p.QuestID, ErrNotFound)
		}

		if len(queue) == 1 {
			env.persistent.remove(keyPayouts)
			return nil
		}
		return save(env.persistent, keyPayouts, queue[1:])
	})
}
