package models

import "time"

// InitializeRequest configures the platform
type InitializeRequest struct {
	Admin        Principal `json:"admin"`
	RewardToken  Principal `json:"reward_token"`
	Orchestrator Principal `json:"orchestrator"`
}

// CreateQuestRequest represents a request to create a quest.
// The creator is the authenticated caller.
type CreateQuestRequest struct {
	ID             Symbol     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	RewardAmount   int64      `json:"reward_amount"`
	BadgeID        *Symbol    `json:"badge_id,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	MaxCompletions *int64     `json:"max_completions,omitempty"`
}

// MintBadgeRequest represents a request to mint a badge
type MintBadgeRequest struct {
	To       Principal `json:"to"`
	BadgeID  Symbol    `json:"badge_id"`
	QuestID  Symbol    `json:"quest_id"`
	Metadata string    `json:"metadata"`
}

// TransferBadgeRequest moves a badge from the caller to another principal
type TransferBadgeRequest struct {
	To Principal `json:"to"`
}

// CompletionStatusResponse answers has_completed
type CompletionStatusResponse struct {
	User      Principal `json:"user"`
	QuestID   Symbol    `json:"quest_id"`
	Completed bool      `json:"completed"`
}

// QuestListResponse lists quests with the global counter
type QuestListResponse struct {
	Quests []*Quest `json:"quests"`
	Total  int64    `json:"total"`
}
