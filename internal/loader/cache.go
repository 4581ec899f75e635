package loader

import (
	"context"
	"log/slog"
	"time"

	"divcap/internal/domain"
	"divcap/internal/store"
)

// Compile-time interface check.
var _ SeriesLoader = (*CachingLoader)(nil)

// CachingLoader fronts a remote SeriesLoader with the local Parquet store.
// Cache policy: a non-empty cached series whose last entry is recent enough
// to cover the requested end (within the staleness window) is served as-is;
// anything else triggers a remote fetch whose result replaces the cache.
// The cache is an explicit per-process object, not package state, so tests
// stay deterministic.
type CachingLoader struct {
	remote    SeriesLoader
	bars      store.BarStore
	divs      store.DividendStore
	staleness time.Duration
	log       *slog.Logger
}

// NewCachingLoader creates a CachingLoader over the given remote loader and
// Parquet store.
func NewCachingLoader(remote SeriesLoader, s *store.ParquetStore) *CachingLoader {
	return &CachingLoader{
		remote:    remote,
		bars:      s,
		divs:      s,
		staleness: 4 * 24 * time.Hour, // long weekend plus a holiday
		log:       slog.Default().With("loader", "cache"),
	}
}

// LoadPriceSeries returns cached bars when fresh, otherwise fetches from the
// remote loader and updates the cache.
func (l *CachingLoader) LoadPriceSeries(ctx context.Context, ticker string, start, end time.Time) ([]domain.PriceBar, error) {
	cached, err := l.bars.ReadBars(ctx, ticker, start, end)
	if err == nil && len(cached) > 0 && l.fresh(cached[len(cached)-1].Date, end) {
		l.log.Debug("bar cache hit", "ticker", ticker, "bars", len(cached))
		return cached, nil
	}

	bars, err := l.remote.LoadPriceSeries(ctx, ticker, start, end)
	if err != nil {
		return nil, err
	}
	if err := l.bars.WriteBars(ctx, ticker, bars); err != nil {
		// Cache write failure degrades to uncached operation.
		l.log.Warn("bar cache write failed", "ticker", ticker, "error", err)
	}
	return bars, nil
}

// LoadDividendSeries returns cached dividends when fresh, otherwise fetches
// and caches. Dividends are refreshed whenever the newest cached ex-date is
// older than the staleness window relative to the requested end.
func (l *CachingLoader) LoadDividendSeries(ctx context.Context, ticker string, start, end time.Time) ([]domain.DividendEvent, error) {
	cached, err := l.divs.ReadDividends(ctx, ticker, start, end)
	if err == nil && len(cached) > 0 && l.fresh(cached[len(cached)-1].ExDate, end) {
		l.log.Debug("dividend cache hit", "ticker", ticker, "events", len(cached))
		return cached, nil
	}

	divs, err := l.remote.LoadDividendSeries(ctx, ticker, start, end)
	if err != nil {
		return nil, err
	}
	if err := l.divs.WriteDividends(ctx, ticker, divs); err != nil {
		l.log.Warn("dividend cache write failed", "ticker", ticker, "error", err)
	}
	return divs, nil
}

// fresh reports whether a cached series ending at last still covers end
// within the staleness window.
func (l *CachingLoader) fresh(last, end time.Time) bool {
	return last.Add(l.staleness).After(end)
}
