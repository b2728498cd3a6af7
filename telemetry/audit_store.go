package telemetry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresAuditSink persists redacted Events to a durable table. It is
// purely additive: construction and every Consume call are best-effort and
// never block or fail request processing — a dead audit database degrades
// observability, not triage.
type PostgresAuditSink struct {
	db     *sql.DB
	logger interface {
		Error(string, map[string]interface{})
	}
}

// NewPostgresAuditSink opens a connection pool against dsn (a standard
// postgres:// URL) and ensures the audit table exists.
func NewPostgresAuditSink(ctx context.Context, dsn string, logger interface {
	Error(string, map[string]interface{})
}) (*PostgresAuditSink, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening audit database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging audit database: %w", err)
	}

	sink := &PostgresAuditSink{db: db, logger: logger}
	if err := sink.ensureTable(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensuring audit table: %w", err)
	}
	return sink, nil
}

func (s *PostgresAuditSink) ensureTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS triage_audit_events (
			id BIGSERIAL PRIMARY KEY,
			request_id VARCHAR(64) NOT NULL,
			step_name VARCHAR(64),
			kind VARCHAR(32) NOT NULL,
			status VARCHAR(32),
			config_hash VARCHAR(32),
			fields JSONB,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

// Consume implements Sink. Errors are logged, never propagated.
func (s *PostgresAuditSink) Consume(ev Event) {
	fieldsJSON, err := json.Marshal(redact(ev.Fields))
	if err != nil {
		fieldsJSON = []byte("{}")
	}

	ctx := context.Background()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO triage_audit_events (request_id, step_name, kind, status, config_hash, fields, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ev.RequestID, string(ev.StepName), ev.Kind, string(ev.Status), ev.ConfigHash, fieldsJSON, ev.Timestamp,
	)
	if err != nil && s.logger != nil {
		s.logger.Error("audit insert failed", map[string]interface{}{
			"request_id": ev.RequestID,
			"error":      err.Error(),
		})
	}
}

// Close releases the underlying connection pool.
func (s *PostgresAuditSink) Close() error {
	return s.db.Close()
}
