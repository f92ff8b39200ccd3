// Package reward is the fungible reward account that pays out completed
// quests. The ledger only queues payouts; this package turns them into
// token mints.
package reward

import (
	"context"
	"fmt"

	"github.com/terra-clan/quest-ledger/internal/ledger"
	"github.com/terra-clan/quest-ledger/internal/models"
)

// Account credits rewards to principals
type Account interface {
	Mint(ctx context.Context, to models.Principal, amount int64) error
}

// Token is a mintable reward token. Only the platform orchestrator may mint.
type Token struct {
	host   *ledger.Host
	name   string
	symbol string
}

// NewToken creates a token minted through host
func NewToken(host *ledger.Host, name, symbol string) *Token {
	return &Token{host: host, name: name, symbol: symbol}
}

// Name returns the token name
func (t *Token) Name() string {
	return t.name
}

// Symbol returns the token ticker
func (t *Token) Symbol() string {
	return t.symbol
}

// Mint credits amount to `to`. Balances are kept by the token network;
// this records the mint as a committed event.
func (t *Token) Mint(ctx context.Context, to models.Principal, amount int64) error {
	if to == "" {
		return fmt.Errorf("recipient is required: %w", ledger.ErrInvalidInput)
	}
	if amount <= 0 {
		return fmt.Errorf("amount must be positive: %w", ledger.ErrInvalidInput)
	}

	return t.host.Invoke(ctx, "mint_reward", func(env *ledger.Env) error {
		platform, err := env.Platform()
		if err != nil {
			return err
		}
		if err := env.RequireAuth(platform.Orchestrator); err != nil {
			return err
		}
		env.Publish(models.TopicRewardMinted, to, map[string]any{
			"amount": amount,
			"symbol": t.symbol,
		})
		return nil
	})
}
