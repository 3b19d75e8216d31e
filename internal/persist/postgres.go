package persist

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS ledger_events (
	seq            BIGINT PRIMARY KEY,
	event_id       TEXT NOT NULL UNIQUE,
	event_type     TEXT NOT NULL,
	version        INT NOT NULL DEFAULT 1,
	at_ms          BIGINT NOT NULL,
	aggregate_id   TEXT NOT NULL DEFAULT '',
	aggregate_type TEXT NOT NULL DEFAULT '',
	payload        JSONB
);`

// PostgresAdapter persists records in a single append-only table. Inserts
// use ON CONFLICT DO NOTHING so a replayed write is harmless.
type PostgresAdapter struct {
	db *sql.DB
}

// NewPostgresAdapter opens dsn, verifies connectivity and ensures the
// events table exists.
func NewPostgresAdapter(ctx context.Context, dsn string) (*PostgresAdapter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres adapter: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres adapter: ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres adapter: ensure schema: %w", err)
	}
	return &PostgresAdapter{db: db}, nil
}

// PutEvent implements Adapter.
func (a *PostgresAdapter) PutEvent(ctx context.Context, rec Record) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO ledger_events (seq, event_id, event_type, version, at_ms, aggregate_id, aggregate_type, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (seq) DO NOTHING`,
		int64(rec.Seq), rec.ID, rec.Type, rec.Version, rec.Timestamp,
		rec.AggregateID, rec.AggregateType, []byte(rec.Payload))
	return err
}

// AllEvents implements Adapter.
func (a *PostgresAdapter) AllEvents(ctx context.Context) ([]Record, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT seq, event_id, event_type, version, at_ms, aggregate_id, aggregate_type, payload
		FROM ledger_events ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var seq int64
		var payload []byte
		if err := rows.Scan(&seq, &rec.ID, &rec.Type, &rec.Version, &rec.Timestamp,
			&rec.AggregateID, &rec.AggregateType, &payload); err != nil {
			return nil, err
		}
		rec.Seq = uint64(seq)
		rec.Payload = payload
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Reset implements Adapter.
func (a *PostgresAdapter) Reset(ctx context.Context) error {
	_, err := a.db.ExecContext(ctx, `DELETE FROM ledger_events`)
	return err
}

// Close implements Adapter.
func (a *PostgresAdapter) Close() error { return a.db.Close() }
