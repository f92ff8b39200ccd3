package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terra-clan/quest-ledger/internal/models"
)

// Journal appends events to the ledger_events table
type Journal struct {
	pool *pgxpool.Pool
}

// NewJournal creates a journal on an existing pool
func NewJournal(pool *pgxpool.Pool) *Journal {
	return &Journal{pool: pool}
}

// Publish implements Sink. Replays of the same event are ignored.
func (j *Journal) Publish(ctx context.Context, evt models.Event) error {
	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO ledger_events (id, sequence, topic, principal, payload, ledger_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`

	_, err = j.pool.Exec(ctx, query,
		evt.ID,
		int64(evt.Sequence),
		evt.Topic,
		string(evt.Principal),
		payload,
		evt.LedgerTime,
	)
	if err != nil {
		return fmt.Errorf("failed to journal event %d: %w", evt.Sequence, err)
	}

	return nil
}

// Since returns journaled events with a sequence greater than after
func (j *Journal) Since(ctx context.Context, after uint64, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, sequence, topic, principal, payload, ledger_time
		FROM ledger_events
		WHERE sequence > $1
		ORDER BY sequence ASC
		LIMIT $2
	`

	rows, err := j.pool.Query(ctx, query, int64(after), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var result []models.Event
	for rows.Next() {
		var evt models.Event
		var seq int64
		var principal string
		var payload []byte

		if err := rows.Scan(&evt.ID, &seq, &evt.Topic, &principal, &payload, &evt.LedgerTime); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		evt.Sequence = uint64(seq)
		evt.Principal = models.Principal(principal)
		if err := json.Unmarshal(payload, &evt.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
		result = append(result, evt)
	}

	return result, rows.Err()
}
