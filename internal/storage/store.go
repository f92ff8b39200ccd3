package storage

import (
	"context"
	"errors"
)

// Tier selects one of the two durability regions of the store
type Tier string

const (
	// TierInstance holds platform-wide state scoped to the ledger instance
	TierInstance Tier = "instance"
	// TierPersistent holds long-lived per-user state
	TierPersistent Tier = "persistent"
)

// ErrUnknownTier is returned for tiers other than instance and persistent
var ErrUnknownTier = errors.New("unknown storage tier")

// Valid reports whether t names a known tier
func (t Tier) Valid() bool {
	return t == TierInstance || t == TierPersistent
}

// Mutation is a single buffered write. Delete removes the key and ignores Value.
type Mutation struct {
	Tier   Tier
	Key    string
	Value  []byte
	Delete bool
}

// Store defines the key-value persistence used by the ledger.
// Commit must apply all mutations or none of them.
type Store interface {
	Get(ctx context.Context, tier Tier, key string) ([]byte, bool, error)
	Commit(ctx context.Context, muts []Mutation) error

	// Health
	Ping(ctx context.Context) error
	Close() error
}

func validateMutations(muts []Mutation) error {
	for _, m := range muts {
		if !m.Tier.Valid() {
			return ErrUnknownTier
		}
		if m.Key == "" {
			return errors.New("mutation key is empty")
		}
	}
	return nil
}
