// Package ledger implements the quest, completion and badge ledgers on top of
// a two-tier key-value store. Each operation runs as a single serialized
// invocation that commits all of its writes or none of them.
package ledger

// Ledger bundles the ledgers that share one Host
type Ledger struct {
	Host        *Host
	Platform    *Platform
	Quests      *QuestLedger
	Completions *CompletionLedger
	Badges      *BadgeLedger
	Payouts     *PayoutQueue
}

// New wires every ledger to host
func New(host *Host) *Ledger {
	return &Ledger{
		Host:        host,
		Platform:    &Platform{host: host},
		Quests:      &QuestLedger{host: host},
		Completions: &CompletionLedger{host: host},
		Badges:      &BadgeLedger{host: host},
		Payouts:     &PayoutQueue{host: host},
	}
}
