// Package barstore provides the embedded bar store: upsert and range-query over
// OHLCV bars keyed by (symbol, interval, ts). It is the only shared mutable resource
// in the system — every write goes through Upsert/UpsertMany, and
// every read is an independent, point-in-time range query.
package barstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver, no CGo dependency

	"github.com/nrgio/marketpulse/internal/domain"
	"github.com/rs/zerolog"
)

//go:embed schemas/*.sql
var schemaFiles embed.FS

// Store is a SQLite-backed implementation of the bar store.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Reader is the read-side contract the signal engine and HTTP handlers depend on.
type Reader interface {
	RangeQuery(ctx context.Context, symbol string, interval domain.Interval, limit int) ([]domain.Bar, error)
	Symbols(ctx context.Context) ([]string, error)
	Counts(ctx context.Context, minBars1m int) (map[string]map[string]int, error)
}

// Writer is the write-side contract ingestion and the aggregator depend on.
type Writer interface {
	Upsert(ctx context.Context, bar domain.Bar) error
	UpsertMany(ctx context.Context, bars []domain.Bar) error
}

// Store satisfies both Reader and Writer.
var (
	_ Reader = (*Store)(nil)
	_ Writer = (*Store)(nil)
)

// Open creates (if needed) and opens the SQLite database at path, applying the
// embedded schema and production-grade PRAGMAs.
func Open(path string, log zerolog.Logger) (*Store, error) {
	connStr := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)

	conn, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("barstore: failed to open %s: %w", path, err)
	}
	conn.SetMaxOpenConns(1) // modernc.org/sqlite: serialize writers, WAL still allows concurrent readers
	conn.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("barstore: failed to ping %s: %w", path, err)
	}

	schema, err := schemaFiles.ReadFile("schemas/bars.sql")
	if err != nil {
		return nil, fmt.Errorf("barstore: failed to read embedded schema: %w", err)
	}
	if _, err := conn.ExecContext(ctx, string(schema)); err != nil {
		return nil, fmt.Errorf("barstore: failed to apply schema: %w", err)
	}

	return &Store{db: conn, log: log.With().Str("component", "barstore").Logger()}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert inserts bar or overwrites its OHLCV fields on a (symbol, interval, ts)
// conflict: insert when the key is absent, overwrite OHLCV fields otherwise.
func (s *Store) Upsert(ctx context.Context, bar domain.Bar) error {
	if err := bar.Validate(); err != nil {
		return fmt.Errorf("barstore: refusing to upsert invalid bar: %w", err)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bars (symbol, interval, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol, interval, ts) DO UPDATE SET
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume
	`, bar.Symbol, string(bar.Interval), bar.Ts, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
	if err != nil {
		return fmt.Errorf("barstore: upsert %s/%s/%d: %w", bar.Symbol, bar.Interval, bar.Ts, err)
	}
	return nil
}

// UpsertMany applies Upsert to every bar inside a single transaction, so a batch
// of higher-timeframe recomputations commits atomically.
func (s *Store) UpsertMany(ctx context.Context, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("barstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bars (symbol, interval, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol, interval, ts) DO UPDATE SET
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume
	`)
	if err != nil {
		return fmt.Errorf("barstore: prepare batch upsert: %w", err)
	}
	defer stmt.Close()

	for _, bar := range bars {
		if err := bar.Validate(); err != nil {
			return fmt.Errorf("barstore: refusing to upsert invalid bar: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, bar.Symbol, string(bar.Interval), bar.Ts, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume); err != nil {
			return fmt.Errorf("barstore: upsert %s/%s/%d: %w", bar.Symbol, bar.Interval, bar.Ts, err)
		}
	}
	return tx.Commit()
}

// RangeQuery returns the most recent limit bars for (symbol, interval), ordered ts
// ascending.
func (s *Store) RangeQuery(ctx context.Context, symbol string, interval domain.Interval, limit int) ([]domain.Bar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, interval, ts, open, high, low, close, volume
		FROM (
			SELECT symbol, interval, ts, open, high, low, close, volume
			FROM bars
			WHERE symbol = ? AND interval = ?
			ORDER BY ts DESC
			LIMIT ?
		)
		ORDER BY ts ASC
	`, symbol, string(interval), limit)
	if err != nil {
		return nil, fmt.Errorf("barstore: range query %s/%s: %w", symbol, interval, err)
	}
	defer rows.Close()

	var bars []domain.Bar
	for rows.Next() {
		var b domain.Bar
		var iv string
		if err := rows.Scan(&b.Symbol, &iv, &b.Ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("barstore: scan bar: %w", err)
		}
		b.Interval = domain.Interval(iv)
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// Symbols enumerates every distinct symbol the store has ever seen a bar for.
func (s *Store) Symbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM bars ORDER BY symbol ASC`)
	if err != nil {
		return nil, fmt.Errorf("barstore: symbols query: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("barstore: scan symbol: %w", err)
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

// Counts returns, per symbol and interval, the number of persisted bars, filtered to
// symbols whose 1m bar count is at least minBars1m.
func (s *Store) Counts(ctx context.Context, minBars1m int) (map[string]map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, interval, COUNT(*) AS n
		FROM bars
		GROUP BY symbol, interval
	`)
	if err != nil {
		return nil, fmt.Errorf("barstore: counts query: %w", err)
	}
	defer rows.Close()

	raw := make(map[string]map[string]int)
	for rows.Next() {
		var symbol, interval string
		var n int
		if err := rows.Scan(&symbol, &interval, &n); err != nil {
			return nil, fmt.Errorf("barstore: scan count: %w", err)
		}
		if raw[symbol] == nil {
			raw[symbol] = make(map[string]int)
		}
		raw[symbol][interval] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	filtered := make(map[string]map[string]int)
	for symbol, counts := range raw {
		if counts[string(domain.Interval1m)] >= minBars1m {
			filtered[symbol] = counts
		}
	}
	return filtered, nil
}
