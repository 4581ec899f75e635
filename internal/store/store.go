// Package store defines storage interfaces for cached market data and
// persisted analysis runs, with Parquet and SQLite implementations.
package store

import (
	"context"
	"time"

	"divcap/internal/domain"
)

// BarStore persists and retrieves daily OHLCV bar series per ticker.
type BarStore interface {
	// WriteBars persists a batch of bars for one ticker.
	WriteBars(ctx context.Context, ticker string, bars []domain.PriceBar) error

	// ReadBars returns bars for the given ticker within [start, end].
	ReadBars(ctx context.Context, ticker string, start, end time.Time) ([]domain.PriceBar, error)

	// ListTickers returns all distinct tickers with cached bar data.
	ListTickers(ctx context.Context) ([]string, error)
}

// DividendStore persists and retrieves dividend event series per ticker.
type DividendStore interface {
	// WriteDividends persists a batch of dividend events for one ticker.
	WriteDividends(ctx context.Context, ticker string, divs []domain.DividendEvent) error

	// ReadDividends returns dividend events for the ticker within [start, end].
	ReadDividends(ctx context.Context, ticker string, start, end time.Time) ([]domain.DividendEvent, error)
}

// ReportStore persists completed analysis runs so the dashboard can serve
// the most recent one without re-running the backtests.
type ReportStore interface {
	// SaveRun persists one analysis run and its per-ticker rows, returning
	// the new run's ID.
	SaveRun(ctx context.Context, generatedAt time.Time, rows []domain.TickerReport) (int64, error)

	// LatestRun returns the most recent run's timestamp and rows. A store
	// with no runs returns ok=false.
	LatestRun(ctx context.Context) (generatedAt time.Time, rows []domain.TickerReport, ok bool, err error)
}
