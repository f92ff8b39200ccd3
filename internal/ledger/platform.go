package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/terra-clan/quest-ledger/internal/models"
)

// Platform holds the one-time configuration shared by all ledgers
type Platform struct {
	host *Host
}

// Initialize stores the admin, reward token and badge orchestrator.
// It can run once; a second call fails with ErrAlreadyInitialized.
func (p *Platform) Initialize(ctx context.Context, admin, rewardToken, orchestrator models.Principal) (*models.PlatformConfig, error) {
	if admin == "" || rewardToken == "" || orchestrator == "" {
		return nil, fmt.Errorf("admin, reward token and orchestrator are required: %w", ErrInvalidInput)
	}

	var cfg models.PlatformConfig
	err := p.host.Invoke(ctx, "initialize", func(env *Env) error {
		_, err := loadPlatform(env)
		switch {
		case err == nil:
			return ErrAlreadyInitialized
		case !errors.Is(err, ErrUninitialized):
			return err
		}

		cfg = models.PlatformConfig{
			Admin:         admin,
			RewardToken:   rewardToken,
			Orchestrator:  orchestrator,
			InitializedAt: env.Now(),
		}
		if err := save(env.instance, keyPlatform, cfg); err != nil {
			return err
		}
		if err := save(env.instance, keyQuestCount, int64(0)); err != nil {
			return err
		}
		if err := save(env.instance, keyBadgeCount, int64(0)); err != nil {
			return err
		}

		env.Publish(models.TopicPlatformInit, admin, map[string]any{
			"reward_token": rewardToken,
			"orchestrator": orchestrator,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Config returns the platform configuration or ErrUninitialized
func (p *Platform) Config(ctx context.Context) (*models.PlatformConfig, error) {
	var cfg models.PlatformConfig
	err := p.host.View(ctx, func(env *Env) error {
		var err error
		cfg, err = loadPlatform(env)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
