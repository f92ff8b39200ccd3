package storage

import (
	"context"
	"sync"
)

// MemoryStore implements Store in process memory
type MemoryStore struct {
	mu    sync.RWMutex
	tiers map[Tier]map[string][]byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tiers: map[Tier]map[string][]byte{
			TierInstance:   make(map[string][]byte),
			TierPersistent: make(map[string][]byte),
		},
	}
}

// Get returns a copy of the stored value
func (s *MemoryStore) Get(_ context.Context, tier Tier, key string) ([]byte, bool, error) {
	if !tier.Valid() {
		return nil, false, ErrUnknownTier
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.tiers[tier][key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

// Commit applies all mutations under one lock
func (s *MemoryStore) Commit(_ context.Context, muts []Mutation) error {
	if err := validateMutations(muts); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range muts {
		if m.Delete {
			delete(s.tiers[m.Tier], m.Key)
			continue
		}
		s.tiers[m.Tier][m.Key] = append([]byte(nil), m.Value...)
	}
	return nil
}

// Len returns the number of keys held in a tier
func (s *MemoryStore) Len(tier Tier) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tiers[tier])
}

// Ping always succeeds
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}
