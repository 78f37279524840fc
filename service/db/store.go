package db

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/brojonat/coinguard/service/infraction"
	"github.com/brojonat/coinguard/service/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the infractions table. Rows keep the dataset's original
// line order through seq.
const Schema = `
CREATE TABLE IF NOT EXISTS infractions (
    seq            BIGSERIAL PRIMARY KEY,
    txid           TEXT NOT NULL,
    address        TEXT NOT NULL,
    amount         BIGINT NOT NULL CHECK (amount > 0),
    display_amount TEXT NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS infractions_txid_idx ON infractions (txid);
CREATE INDEX IF NOT EXISTS infractions_address_idx ON infractions (address);
`

// Store provides database operations for the infraction dataset.
type Store struct {
	pool    *pgxpool.Pool
	metrics *metrics.Metrics
}

// NewStore creates a new Store with the given database connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// WithMetrics records query timings on m.
func (s *Store) WithMetrics(m *metrics.Metrics) *Store {
	s.metrics = m
	return s
}

// EnsureSchema creates the infractions table and its indexes if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	start := time.Now()
	_, err := s.pool.Exec(ctx, Schema)
	s.record("ensure_schema", start, err)
	if err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// InsertInfractions appends records in one transaction and returns the
// number of rows written.
func (s *Store) InsertInfractions(ctx context.Context, records []infraction.Record) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	_, n, err := s.writeInfractions(ctx, "insert", false, records)
	return n, err
}

// ReplaceInfractions deletes every stored record and writes records in the
// same transaction, so a failed copy keeps the previous rows. It returns the
// number of rows deleted and written.
func (s *Store) ReplaceInfractions(ctx context.Context, records []infraction.Record) (deleted, inserted int64, err error) {
	return s.writeInfractions(ctx, "replace", true, records)
}

func (s *Store) writeInfractions(ctx context.Context, operation string, replace bool, records []infraction.Record) (int64, int64, error) {
	start := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		s.record(operation, start, err)
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var deleted int64
	if replace {
		tag, err := tx.Exec(ctx, `DELETE FROM infractions`)
		if err != nil {
			s.record(operation, start, err)
			return 0, 0, fmt.Errorf("failed to delete infractions: %w", err)
		}
		deleted = tag.RowsAffected()
	}

	var n int64
	if len(records) > 0 {
		rows := make([][]any, len(records))
		for i, r := range records {
			rows[i] = []any{
				r.TxID.String(),
				r.Address,
				int64(r.Amount),
				infraction.FormatDisplayAmount(r.DisplayAmount),
			}
		}

		n, err = tx.CopyFrom(ctx,
			pgx.Identifier{"infractions"},
			[]string{"txid", "address", "amount", "display_amount"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			s.record(operation, start, err)
			return 0, 0, fmt.Errorf("failed to copy infractions: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		s.record(operation, start, err)
		return 0, 0, fmt.Errorf("failed to commit infractions: %w", err)
	}

	s.record(operation, start, nil)
	return deleted, n, nil
}

// ListInfractionLines returns every stored record as a canonical dataset
// line, in insertion order. The lines are not parsed here: the registry
// validates them like any other source.
func (s *Store) ListInfractionLines(ctx context.Context) ([]string, error) {
	start := time.Now()

	rows, err := s.pool.Query(ctx,
		`SELECT txid, address, amount, display_amount FROM infractions ORDER BY seq`)
	if err != nil {
		s.record("list", start, err)
		return nil, fmt.Errorf("failed to list infractions: %w", err)
	}

	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var (
			txid, address, display string
			amount                 int64
		)
		if err := row.Scan(&txid, &address, &amount, &display); err != nil {
			return "", err
		}
		return txid + "\t" + address + "\t" + strconv.FormatInt(amount, 10) + "\t" + display, nil
	})
	s.record("list", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to scan infractions: %w", err)
	}

	return lines, nil
}

// CountInfractions returns the number of stored records.
func (s *Store) CountInfractions(ctx context.Context) (int64, error) {
	start := time.Now()

	var n int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM infractions`).Scan(&n)
	s.record("count", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to count infractions: %w", err)
	}
	return n, nil
}

// DeleteInfractions removes every stored record and returns how many were
// deleted.
func (s *Store) DeleteInfractions(ctx context.Context) (int64, error) {
	start := time.Now()

	tag, err := s.pool.Exec(ctx, `DELETE FROM infractions`)
	s.record("delete", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to delete infractions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) record(operation string, start time.Time, err error) {
	if s.metrics != nil {
		s.metrics.RecordDBQuery(operation, "infractions", time.Since(start).Seconds(), err)
	}
}
