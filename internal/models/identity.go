package models

import (
	"fmt"
	"time"
)

// MaxSymbolLen is the longest identifier accepted for quests and badges
const MaxSymbolLen = 32

// Principal is an identity that can prove authorization for an action
type Principal string

// Symbol is a short identifier for quests and badges
type Symbol string

// Validate checks that the symbol is 1..32 chars of [A-Za-z0-9_]
func (s Symbol) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("symbol is empty")
	}
	if len(s) > MaxSymbolLen {
		return fmt.Errorf("symbol %q exceeds %d characters", s, MaxSymbolLen)
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		default:
			return fmt.Errorf("symbol %q contains invalid character %q", s, c)
		}
	}
	return nil
}

// PlatformConfig is the one-time platform configuration
type PlatformConfig struct {
	Admin         Principal `json:"admin"`
	RewardToken   Principal `json:"reward_token"`
	Orchestrator  Principal `json:"orchestrator"` // only principal allowed to mint badges
	InitializedAt time.Time `json:"initialized_at"`
}
