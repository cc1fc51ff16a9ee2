package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS notification_reads (
	notification_id TEXT PRIMARY KEY,
	read_at         TIMESTAMPTZ NOT NULL
)`

// Ledger is the PostgreSQL implementation of domain.ReadLedger.
type Ledger struct {
	pool *pgxpool.Pool
}

// New creates a Ledger and makes sure its table exists.
func New(ctx context.Context, pool *pgxpool.Pool) (*Ledger, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("create notification_reads: %w", err)
	}
	return &Ledger{pool: pool}, nil
}

// Record upserts ids in a single statement. read_at only moves forward.
func (l *Ledger) Record(ctx context.Context, at time.Time, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	args := make([]any, 0, len(ids)+1)
	args = append(args, at)
	values := make([]string, 0, len(ids))
	for i, id := range ids {
		values = append(values, fmt.Sprintf("($%d, $1)", i+2))
		args = append(args, id)
	}

	query := "INSERT INTO notification_reads (notification_id, read_at) VALUES " +
		strings.Join(values, ",") +
		" ON CONFLICT (notification_id) DO UPDATE" +
		" SET read_at = GREATEST(notification_reads.read_at, EXCLUDED.read_at)"

	if _, err := l.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("record reads: %w", err)
	}
	return nil
}

// ReadIDs returns every recorded notification id with its read time.
func (l *Ledger) ReadIDs(ctx context.Context) (map[string]time.Time, error) {
	rows, err := l.pool.Query(ctx, `SELECT notification_id, read_at FROM notification_reads`)
	if err != nil {
		return nil, fmt.Errorf("list reads: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]time.Time)
	for rows.Next() {
		var (
			id string
			at time.Time
		)
		if err := rows.Scan(&id, &at); err != nil {
			return nil, fmt.Errorf("scan read: %w", err)
		}
		ids[id] = at
	}
	return ids, rows.Err()
}

// PurgeOlderThan deletes records older than the given number of days.
func (l *Ledger) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	tag, err := l.pool.Exec(ctx, `DELETE FROM notification_reads WHERE read_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge reads: %w", err)
	}
	return tag.RowsAffected(), nil
}
