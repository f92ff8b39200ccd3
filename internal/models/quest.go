package models

import (
	"time"
)

// QuestStatus represents the lifecycle state of a quest
type QuestStatus string

const (
	QuestActive    QuestStatus = "active"
	QuestCompleted QuestStatus = "completed" // completion cap reached
	QuestCancelled QuestStatus = "cancelled" // admin action or detected expiry
)

// IsTerminal returns true if no further transition is possible
func (s QuestStatus) IsTerminal() bool {
	return s == QuestCompleted || s == QuestCancelled
}

// Valid reports whether s is a known status
func (s QuestStatus) Valid() bool {
	switch s {
	case QuestActive, QuestCompleted, QuestCancelled:
		return true
	}
	return false
}

// Quest is a task definition with a reward and optional cap/expiry
type Quest struct {
	ID                 Symbol      `json:"id"`
	Creator            Principal   `json:"creator"`
	Title              string      `json:"title"`
	Description        string      `json:"description"`
	RewardAmount       int64       `json:"reward_amount"`
	RewardToken        Principal   `json:"reward_token"`
	BadgeID            *Symbol     `json:"badge_id,omitempty"`
	Status             QuestStatus `json:"status"`
	CreatedAt          time.Time   `json:"created_at"`
	ExpiresAt          *time.Time  `json:"expires_at,omitempty"`
	MaxCompletions     *int64      `json:"max_completions,omitempty"`
	CurrentCompletions int64       `json:"current_completions"`
}

// IsExpiredAt reports whether the quest expiry lies strictly before now
func (q *Quest) IsExpiredAt(now time.Time) bool {
	if q.ExpiresAt == nil {
		return false
	}
	return now.After(*q.ExpiresAt)
}

// CapReached reports whether the completion cap has been hit
func (q *Quest) CapReached() bool {
	if q.MaxCompletions == nil {
		return false
	}
	return q.CurrentCompletions >= *q.MaxCompletions
}

// CompletionRecord marks that a user finished a quest exactly once
type CompletionRecord struct {
	User          Principal `json:"user"`
	QuestID       Symbol    `json:"quest_id"`
	CompletedAt   time.Time `json:"completed_at"`
	RewardClaimed bool      `json:"reward_claimed"`
}

// Payout is a reward owed to a user, queued for the reward account
type Payout struct {
	User        Principal `json:"user"`
	QuestID     Symbol    `json:"quest_id"`
	Amount      int64     `json:"amount"`
	RewardToken Principal `json:"reward_token"`
	CompletedAt time.Time `json:"completed_at"`
}

// LeaderboardEntry is a principal with its completion count
type LeaderboardEntry struct {
	User        Principal `json:"user"`
	Completions int       `json:"completions"`
}
