package models

import "time"

// Event topics, one per successful mutating operation
const (
	TopicQuestCreated   = "quest_crt"
	TopicQuestCompleted = "quest_dn"
	TopicQuestCancelled = "quest_cn"
	TopicBadgeMinted    = "bdg_mint"
	TopicBadgeTransfer  = "bdg_xfer"
	TopicRewardMinted   = "minted"
	TopicPlatformInit   = "init"
)

// Event is a notification emitted after a committed mutation
type Event struct {
	ID         string         `json:"id"`
	Sequence   uint64         `json:"sequence"`
	Topic      string         `json:"topic"`
	Principal  Principal      `json:"principal"`
	Payload    map[string]any `json:"payload"`
	LedgerTime time.Time      `json:"ledger_time"`
}
