package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"divcap/internal/domain"
)

// Compile-time interface check.
var _ ReportStore = (*SQLiteStore)(nil)

// SQLiteStore implements ReportStore backed by a SQLite database. Every
// analysis run is appended so the dashboard can serve the latest report
// without recomputing it.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	generated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS comparisons (
	run_id                 INTEGER NOT NULL REFERENCES runs(id),
	ticker                 TEXT NOT NULL,
	best_strategy          TEXT NOT NULL DEFAULT '',
	best_return_pct        REAL NOT NULL DEFAULT 0,
	buy_hold_return_pct    REAL NOT NULL DEFAULT 0,
	div_capture_return_pct REAL NOT NULL DEFAULT 0,
	div_capture_variant    TEXT NOT NULL DEFAULT '',
	final_value            REAL NOT NULL DEFAULT 0,
	dc_win_rate_pct        REAL NOT NULL DEFAULT 0,
	dc_win_rate_valid      INTEGER NOT NULL DEFAULT 0,
	risk_volatility_pct    REAL NOT NULL DEFAULT 0,
	median_dividend        REAL NOT NULL DEFAULT 0,
	median_dividend_valid  INTEGER NOT NULL DEFAULT 0,
	trading_days           INTEGER NOT NULL DEFAULT 0,
	err                    TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_comparisons_run ON comparisons(run_id);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun persists one analysis run and its per-ticker rows in a single
// transaction, returning the new run's ID.
func (s *SQLiteStore) SaveRun(ctx context.Context, generatedAt time.Time, rows []domain.TickerReport) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (generated_at) VALUES (?)`, generatedAt.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO comparisons (
			run_id, ticker, best_strategy, best_return_pct, buy_hold_return_pct,
			div_capture_return_pct, div_capture_variant, final_value,
			dc_win_rate_pct, dc_win_rate_valid, risk_volatility_pct,
			median_dividend, median_dividend_valid, trading_days, err
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, row := range rows {
		c := row.Comparison
		if c == nil {
			c = &domain.StrategyComparison{Ticker: row.Ticker}
		}
		_, err := stmt.ExecContext(ctx,
			runID, row.Ticker, c.BestStrategy, c.BestReturnPct, c.BuyHoldReturnPct,
			c.DivCaptureReturnPct, c.DivCaptureVariant, c.FinalValue,
			c.DCWinRatePct, boolToInt(c.DCWinRateValid), c.RiskVolatilityPct,
			c.MedianDividend, boolToInt(c.MedianDividendValid), c.TradingDays, row.Err)
		if err != nil {
			return 0, fmt.Errorf("inserting comparison for %s: %w", row.Ticker, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

// LatestRun returns the most recent run's timestamp and rows, sorted by best
// return descending with failed tickers last.
func (s *SQLiteStore) LatestRun(ctx context.Context) (time.Time, []domain.TickerReport, bool, error) {
	var runID int64
	var generatedAtMs int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, generated_at FROM runs ORDER BY id DESC LIMIT 1`).
		Scan(&runID, &generatedAtMs)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil, false, nil
	}
	if err != nil {
		return time.Time{}, nil, false, err
	}

	dbRows, err := s.db.QueryContext(ctx, `
		SELECT ticker, best_strategy, best_return_pct, buy_hold_return_pct,
		       div_capture_return_pct, div_capture_variant, final_value,
		       dc_win_rate_pct, dc_win_rate_valid, risk_volatility_pct,
		       median_dividend, median_dividend_valid, trading_days, err
		FROM comparisons
		WHERE run_id = ?
		ORDER BY err <> '', best_return_pct DESC, ticker`, runID)
	if err != nil {
		return time.Time{}, nil, false, err
	}
	defer dbRows.Close()

	var rows []domain.TickerReport
	for dbRows.Next() {
		var c domain.StrategyComparison
		var errText string
		var winValid, medValid int
		if err := dbRows.Scan(
			&c.Ticker, &c.BestStrategy, &c.BestReturnPct, &c.BuyHoldReturnPct,
			&c.DivCaptureReturnPct, &c.DivCaptureVariant, &c.FinalValue,
			&c.DCWinRatePct, &winValid, &c.RiskVolatilityPct,
			&c.MedianDividend, &medValid, &c.TradingDays, &errText,
		); err != nil {
			return time.Time{}, nil, false, err
		}
		c.DCWinRateValid = winValid != 0
		c.MedianDividendValid = medValid != 0

		report := domain.TickerReport{Ticker: c.Ticker, Err: errText}
		if errText == "" {
			cc := c
			report.Comparison = &cc
		}
		rows = append(rows, report)
	}
	if err := dbRows.Err(); err != nil {
		return time.Time{}, nil, false, err
	}

	return time.UnixMilli(generatedAtMs).UTC(), rows, true, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
