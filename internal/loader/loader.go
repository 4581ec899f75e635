// Package loader supplies per-ticker price and dividend series to the
// backtest engine: an Alpaca-backed remote loader, and a caching loader
// that fronts it with the local Parquet store.
package loader

import (
	"context"
	"time"

	"divcap/internal/domain"
)

// SeriesLoader loads one ticker's aligned daily series. Implementations must
// return bars in ascending date order and dividends in ascending ex-date
// order; gaps for holidays and weekends are expected and are not errors.
type SeriesLoader interface {
	// LoadPriceSeries returns daily bars for the ticker within [start, end].
	LoadPriceSeries(ctx context.Context, ticker string, start, end time.Time) ([]domain.PriceBar, error)

	// LoadDividendSeries returns dividend events for the ticker within
	// [start, end]. The result may be empty.
	LoadDividendSeries(ctx context.Context, ticker string, start, end time.Time) ([]domain.DividendEvent, error)
}
