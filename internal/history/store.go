// Package history persists published aggregates so a fresh process can
// show the last known totals before its first scan completes.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tokenbar/tokenbar/internal/usage"
)

// DefaultRetention is how far back Prune keeps snapshots.
const DefaultRetention = 90 * 24 * time.Hour

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func OpenStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("history: creating DB dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("history: opening DB: %w", err)
	}
	if err := configureSQLiteConnection(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: configuring DB: %w", err)
	}

	store := NewStore(db)
	if err := store.Init(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			snapshot_id TEXT PRIMARY KEY,
			captured_at TEXT NOT NULL,
			day_key TEXT NOT NULL,
			month_key TEXT NOT NULL,
			today_input_tokens INTEGER NOT NULL,
			today_output_tokens INTEGER NOT NULL,
			today_cache_creation_tokens INTEGER NOT NULL,
			today_cache_read_tokens INTEGER NOT NULL,
			today_cost_usd REAL NOT NULL,
			today_records INTEGER NOT NULL,
			month_input_tokens INTEGER NOT NULL,
			month_output_tokens INTEGER NOT NULL,
			month_cache_creation_tokens INTEGER NOT NULL,
			month_cache_read_tokens INTEGER NOT NULL,
			month_cost_usd REAL NOT NULL,
			month_records INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_captured_at ON snapshots(captured_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("history: creating schema: %w", err)
		}
	}
	return nil
}

// Record inserts one published aggregate.
func (s *Store) Record(ctx context.Context, agg usage.Aggregate) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (
			snapshot_id, captured_at, day_key, month_key,
			today_input_tokens, today_output_tokens, today_cache_creation_tokens,
			today_cache_read_tokens, today_cost_usd, today_records,
			month_input_tokens, month_output_tokens, month_cache_creation_tokens,
			month_cache_read_tokens, month_cost_usd, month_records
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		uuid.NewString(),
		agg.ComputedAt.UTC().Format(time.RFC3339Nano),
		agg.Day,
		agg.Month,
		agg.Today.InputTokens,
		agg.Today.OutputTokens,
		agg.Today.CacheCreationTokens,
		agg.Today.CacheReadTokens,
		agg.Today.Cost,
		agg.Today.Records,
		agg.ThisMonth.InputTokens,
		agg.ThisMonth.OutputTokens,
		agg.ThisMonth.CacheCreationTokens,
		agg.ThisMonth.CacheReadTokens,
		agg.ThisMonth.Cost,
		agg.ThisMonth.Records,
	)
	if err != nil {
		return fmt.Errorf("history: inserting snapshot: %w", err)
	}
	return nil
}

const snapshotColumns = `captured_at, day_key, month_key,
	today_input_tokens, today_output_tokens, today_cache_creation_tokens,
	today_cache_read_tokens, today_cost_usd, today_records,
	month_input_tokens, month_output_tokens, month_cache_creation_tokens,
	month_cache_read_tokens, month_cost_usd, month_records`

// Latest returns the most recently captured snapshot, if any.
func (s *Store) Latest(ctx context.Context) (usage.Aggregate, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots ORDER BY captured_at DESC LIMIT 1`)

	agg, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return usage.Aggregate{}, false, nil
		}
		return usage.Aggregate{}, false, err
	}
	return agg, true, nil
}

// Recent returns up to n snapshots, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]usage.Aggregate, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots ORDER BY captured_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("history: querying snapshots: %w", err)
	}
	defer rows.Close()

	var out []usage.Aggregate
	for rows.Next() {
		agg, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterating snapshots: %w", err)
	}
	return out, nil
}

// Prune drops snapshots older than keep and reports how many went.
func (s *Store) Prune(ctx context.Context, keep time.Duration) (int64, error) {
	if keep <= 0 {
		keep = DefaultRetention
	}
	cutoff := s.now().UTC().Add(-keep).Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE captured_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("history: pruning snapshots: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("history: counting pruned snapshots: %w", err)
	}
	return removed, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (usage.Aggregate, error) {
	var (
		agg      usage.Aggregate
		captured string
	)
	err := row.Scan(
		&captured,
		&agg.Day,
		&agg.Month,
		&agg.Today.InputTokens,
		&agg.Today.OutputTokens,
		&agg.Today.CacheCreationTokens,
		&agg.Today.CacheReadTokens,
		&agg.Today.Cost,
		&agg.Today.Records,
		&agg.ThisMonth.InputTokens,
		&agg.ThisMonth.OutputTokens,
		&agg.ThisMonth.CacheCreationTokens,
		&agg.ThisMonth.CacheReadTokens,
		&agg.ThisMonth.Cost,
		&agg.ThisMonth.Records,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return usage.Aggregate{}, err
		}
		return usage.Aggregate{}, fmt.Errorf("history: scanning snapshot: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, captured)
	if err != nil {
		return usage.Aggregate{}, fmt.Errorf("history: parsing captured_at %q: %w", captured, err)
	}
	agg.ComputedAt = ts
	return agg, nil
}
