package ledger

import (
	"context"
	"fmt"

	"github.com/terra-clan/quest-ledger/internal/models"
)

// BadgeLedger owns badge records and the owner -> badges reverse index.
// Every write updates both representations in the same invocation.
type BadgeLedger struct {
	host *Host
}

// Mint creates a badge owned by to. Only the platform orchestrator may mint.
func (l *BadgeLedger) Mint(ctx context.Context, to models.Principal, badgeID, questID models.Symbol, metadata string) (*models.Badge, error) {
	var badge models.Badge
	err := l.host.Invoke(ctx, "mint_badge", func(env *Env) error {
		platform, err := loadPlatform(env)
		if err != nil {
			return err
		}
		if err := env.RequireAuth(platform.Orchestrator); err != nil {
			return err
		}
		if to == "" {
			return fmt.Errorf("recipient is required: %w", ErrInvalidInput)
		}
		if err := badgeID.Validate(); err != nil {
			return fmt.Errorf("badge id: %v: %w", err, ErrInvalidInput)
		}
		if err := questID.Validate(); err != nil {
			return fmt.Errorf("quest id: %v: %w", err, ErrInvalidInput)
		}

		badges, err := loadBadges(env)
		if err != nil {
			return err
		}
		if _, exists := badges[badgeID]; exists {
			return fmt.Errorf("badge %s: %w", badgeID, ErrAlreadyMinted)
		}

		badge = models.Badge{
			ID:       badgeID,
			QuestID:  questID,
			Owner:    to,
			MintedAt: env.Now(),
			Metadata: metadata,
		}
		badges[badgeID] = badge

		owners, err := loadIndex(env.persistent, keyUserBadges)
		if err != nil {
			return err
		}
		owners[to] = append(owners[to], badgeID)

		count, err := loadCounter(env.instance, keyBadgeCount)
		if err != nil {
			return err
		}

		if err := save(env.persistent, keyUserBadges, owners); err != nil {
			return err
		}
		if err := save(env.instance, keyBadges, badges); err != nil {
			return err
		}
		if err := save(env.instance, keyBadgeCount, count+1); err != nil {
			return err
		}

		env.Publish(models.TopicBadgeMinted, to, map[string]any{
			"badge_id": badgeID,
			"quest_id": questID,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &badge, nil
}

// Transfer moves a badge from its owner to another principal.
// The caller must prove control of from, and from must own the badge.
func (l *BadgeLedger) Transfer(ctx context.Context, from, to models.Principal, badgeID models.Symbol) (*models.Badge, error) {
	var badge models.Badge
	err := l.host.Invoke(ctx, "transfer_badge", func(env *Env) error {
		if err := env.RequireAuth(from); err != nil {
			return err
		}
		if to == "" {
			return fmt.Errorf("recipient is required: %w", ErrInvalidInput)
		}

		badges, err := loadBadges(env)
		if err != nil {
			return err
		}
		var ok bool
		if badge, ok = badges[badgeID]; !ok {
			return fmt.Errorf("badge %s: %w", badgeID, ErrNotFound)
		}
		if badge.Owner != from {
			return fmt.Errorf("badge %s is not owned by %s: %w", badgeID, from, ErrUnauthorized)
		}

		badge.Owner = to
		badges[badgeID] = badge

		owners, err := loadIndex(env.persistent, keyUserBadges)
		if err != nil {
			return err
		}

		// Linear rebuild; badge lists are expected to stay small.
		if held, ok := owners[from]; ok {
			kept := make([]models.Symbol, 0, len(held))
			for _, id := range held {
				if id != badgeID {
					kept = append(kept, id)
				}
			}
			if len(kept) > 0 {
				owners[from] = kept
			} else {
				delete(owners, from)
			}
		}
		owners[to] = append(owners[to], badgeID)

		if err := save(env.instance, keyBadges, badges); err != nil {
			return err
		}
		if err := save(env.persistent, keyUserBadges, owners); err != nil {
			return err
		}

		env.Publish(models.TopicBadgeTransfer, from, map[string]any{
			"badge_id": badgeID,
			"to":       to,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &badge, nil
}

// GetBadge returns the badge or ErrNotFound
func (l *BadgeLedger) GetBadge(ctx context.Context, badgeID models.Symbol) (*models.Badge, error) {
	var badge models.Badge
	err := l.host.View(ctx, func(env *Env) error {
		badges, err := loadBadges(env)
		if err != nil {
			return err
		}
		var ok bool
		if badge, ok = badges[badgeID]; !ok {
			return fmt.Errorf("badge %s: %w", badgeID, ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &badge, nil
}

// OwnerOf returns the current holder of a badge or ErrNotFound
func (l *BadgeLedger) OwnerOf(ctx context.Context, badgeID models.Symbol) (models.Principal, error) {
	badge, err := l.GetBadge(ctx, badgeID)
	if err != nil {
		return "", err
	}
	return badge.Owner, nil
}

// UserBadges returns the badges held by owner in the order they were received
func (l *BadgeLedger) UserBadges(ctx context.Context, owner models.Principal) ([]models.Symbol, error) {
	var ids []models.Symbol
	err := l.host.View(ctx, func(env *Env) error {
		owners, err := loadIndex(env.persistent, keyUserBadges)
		if err != nil {
			return err
		}
		ids = append([]models.Symbol{}, owners[owner]...)
		return nil
	})
	return ids, err
}

// TotalBadges returns the number of badges ever minted
func (l *BadgeLedger) TotalBadges(ctx context.Context) (int64, error) {
	var count int64
	err := l.host.View(ctx, func(env *Env) error {
		var err error
		count, err = loadCounter(env.instance, keyBadgeCount)
		return err
	})
	return count, err
}
