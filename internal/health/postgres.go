package health

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresChecker verifies the database is reachable and migrated.
// It keeps its own small connection so a saturated ledger pool still reports.
type PostgresChecker struct {
	db *sql.DB
}

// NewPostgresChecker opens a dedicated connection to dsn
func NewPostgresChecker(dsn string) (*PostgresChecker, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &PostgresChecker{db: db}, nil
}

// HealthCheck pings the database and checks the ledger table exists
func (c *PostgresChecker) HealthCheck(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}

	var exists bool
	err := c.db.QueryRowContext(ctx, `SELECT to_regclass('ledger_entries') IS NOT NULL`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("postgres query failed: %w", err)
	}
	if !exists {
		return fmt.Errorf("ledger_entries table is missing, migrations not applied")
	}
	return nil
}

// Close closes the connection
func (c *PostgresChecker) Close() error {
	return c.db.Close()
}
