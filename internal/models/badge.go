package models

import "time"

// Badge is a non-fungible proof that its holder completed a quest
type Badge struct {
	ID       Symbol    `json:"id"`
	QuestID  Symbol    `json:"quest_id"`
	Owner    Principal `json:"owner"`
	MintedAt time.Time `json:"minted_at"`
	Metadata string    `json:"metadata"` // opaque, usually JSON
}
