package reward

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/terra-clan/quest-ledger/internal/ledger"
	"github.com/terra-clan/quest-ledger/internal/models"
)

// PayoutSource is the queue of rewards owed by completions
type PayoutSource interface {
	Pending(ctx context.Context, limit int) ([]models.Payout, error)
	Ack(ctx context.Context, p models.Payout) error
}

// PlatformSource resolves the platform configuration, including the
// orchestrator the settler acts as
type PlatformSource interface {
	Config(ctx context.Context) (*models.PlatformConfig, error)
}

// Settler periodically pays queued rewards into the reward account.
// A payout is acked only after its mint succeeded, so delivery is
// at-least-once.
type Settler struct {
	payouts   PayoutSource
	account   Account
	platform  PlatformSource
	interval  time.Duration
	batch     int
	scheduler gocron.Scheduler
}

// NewSettler creates a settler acting as the platform orchestrator.
// Runs before the platform is initialized are skipped.
func NewSettler(payouts PayoutSource, account Account, platform PlatformSource, interval time.Duration, batch int) *Settler {
	if interval <= 0 {
		interval = time.Minute
	}
	if batch <= 0 {
		batch = 50
	}

	return &Settler{
		payouts:   payouts,
		account:   account,
		platform:  platform,
		interval:  interval,
		batch:     batch,
	}
}

// Start schedules settlement runs until ctx is cancelled or Stop is called
func (s *Settler) Start(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			if ctx.Err() != nil {
				return
			}
			if _, err := s.Settle(ctx); err != nil {
				slog.Error("payout settlement failed", "error", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule settlement: %w", err)
	}

	s.scheduler = scheduler
	scheduler.Start()
	slog.Info("payout settler started", "interval", s.interval, "batch", s.batch)
	return nil
}

// Stop shuts the scheduler down and waits for a running settlement
func (s *Settler) Stop() error {
	if s.scheduler == nil {
		return nil
	}
	if err := s.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop settler: %w", err)
	}
	slog.Info("payout settler stopped")
	return nil
}

// Settle pays up to one batch of queued payouts in order.
// It stops at the first failure so the queue order is preserved.
func (s *Settler) Settle(ctx context.Context) (int, error) {
	cfg, err := s.platform.Config(ctx)
	if errors.Is(err, ledger.ErrUninitialized) {
		slog.Debug("platform not initialized, skipping settlement")
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read platform config: %w", err)
	}
	ctx = ledger.WithCaller(ctx, cfg.Orchestrator)

	pending, err := s.payouts.Pending(ctx, s.batch)
	if err != nil {
		return 0, fmt.Errorf("failed to list payouts: %w", err)
	}
	if len(pending) == 0 {
		slog.Debug("no payouts pending")
		return 0, nil
	}

	settled := 0
	for _, p := range pending {
		if err := s.account.Mint(ctx, p.User, p.Amount); err != nil {
			return settled, fmt.Errorf("failed to mint payout %s/%s: %w", p.User, p.QuestID, err)
		}
		if err := s.payouts.Ack(ctx, p); err != nil {
			return settled, fmt.Errorf("failed to ack payout %s/%s: %w", p.User, p.QuestID, err)
		}
		settled++

		slog.Info("payout settled",
			"user", p.User,
			"quest_id", p.QuestID,
			"amount", p.Amount,
		)
	}

	return settled, nil
}
