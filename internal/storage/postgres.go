package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store using PostgreSQL.
// Both tiers live in the ledger_entries table so a commit is one transaction.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 10
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 2
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Ping checks database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Pool exposes the connection pool for components sharing the database
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// Close closes the database connection pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Get retrieves the value stored under tier/key
func (s *PostgresStore) Get(ctx context.Context, tier Tier, key string) ([]byte, bool, error) {
	if !tier.Valid() {
		return nil, false, ErrUnknownTier
	}

	query := `SELECT value FROM ledger_entries WHERE tier = $1 AND key = $2`

	var value []byte
	err := s.pool.QueryRow(ctx, query, string(tier), key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get %s/%s: %w", tier, key, err)
	}

	return value, true, nil
}

// Commit applies all mutations in a single transaction
func (s *PostgresStore) Commit(ctx context.Context, muts []Mutation) error {
	if len(muts) == 0 {
		return nil
	}
	if err := validateMutations(muts); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, m := range muts {
		if m.Delete {
			batch.Queue(`DELETE FROM ledger_entries WHERE tier = $1 AND key = $2`, string(m.Tier), m.Key)
			continue
		}
		batch.Queue(`
			INSERT INTO ledger_entries (tier, key, value, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (tier, key) DO UPDATE
			SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
		`, string(m.Tier), m.Key, m.Value)
	}

	results := tx.SendBatch(ctx, batch)
	for _, m := range muts {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("failed to write %s/%s: %w", m.Tier, m.Key, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
