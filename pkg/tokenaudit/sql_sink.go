package tokenaudit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// SQLSink persists Events to PostgreSQL.
type SQLSink struct {
	db *sql.DB
}

// SQLConfig holds the connection parameters for SQLSink.
type SQLConfig struct {
	// DSN is the PostgreSQL connection string.
	DSN string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS tokensvc_audit_events (
    id TEXT PRIMARY KEY,
    action TEXT NOT NULL,
    result TEXT NOT NULL,
    token_id TEXT NOT NULL,
    category TEXT NOT NULL,
    timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
    error TEXT
);

CREATE INDEX IF NOT EXISTS idx_tokensvc_audit_token_id ON tokensvc_audit_events(token_id);
CREATE INDEX IF NOT EXISTS idx_tokensvc_audit_timestamp ON tokensvc_audit_events(timestamp);
`

// NewSQLSink opens a connection, verifies it with Ping, and ensures
// the audit table exists.
func NewSQLSink(cfg SQLConfig) (*SQLSink, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("tokenaudit: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("tokenaudit: ping: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if _, err := db.Exec(createTableSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("tokenaudit: create table: %w", err)
	}

	return &SQLSink{db: db}, nil
}

// Record implements Sink.
func (s *SQLSink) Record(ctx context.Context, event Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tokensvc_audit_events (id, action, result, token_id, category, timestamp, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, event.Action, event.Result, event.TokenID.String(), event.Category, event.Timestamp, event.Error,
	)
	if err != nil {
		return fmt.Errorf("tokenaudit: insert event: %w", err)
	}
	return nil
}

// Close releases the underlying database connection.
func (s *SQLSink) Close() error {
	return s.db.Close()
}
