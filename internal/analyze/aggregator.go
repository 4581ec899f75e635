// Package analyze orchestrates the multi-ticker analysis: it loads each
// ticker's series, runs every configured strategy variant through the
// backtest engine, compares the results, and assembles the cross-ticker
// report with display buckets and a benchmark row.
package analyze

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"divcap/internal/backtest"
	"divcap/internal/domain"
	"divcap/internal/loader"
)

// Report is one complete analysis run over the ticker universe.
type Report struct {
	GeneratedAt time.Time
	Rows        []domain.TickerReport // best return desc, failed tickers last
	Buckets     []Bucket
	Benchmark   *domain.TickerReport // nil when no benchmark is configured
	Analyzed    int
	Failed      int
}

// Bucket is a display grouping of rows by best return. Boundaries are
// configuration, not computed thresholds.
type Bucket struct {
	Name string
	Rows []domain.TickerReport
}

// Options configures an Aggregator. The universe is explicit input; there is
// no package-level ticker list.
type Options struct {
	Universe           []string
	Benchmark          string
	StartDate          time.Time
	StartingCapital    float64
	MaxWorkers         int
	BucketBoundaries   []float64 // descending, percent
	PreferBuyHoldOnTie bool
	Variants           []backtest.Variant // defaults to backtest.DefaultVariants()
}

// Aggregator runs the per-ticker pipeline across the universe. Tickers share
// no mutable state, so they run in parallel up to MaxWorkers.
type Aggregator struct {
	loader loader.SeriesLoader
	engine *backtest.Engine
	opts   Options
	log    *slog.Logger
}

// New creates an Aggregator with the given loader, engine, and options.
func New(l loader.SeriesLoader, engine *backtest.Engine, opts Options, log *slog.Logger) *Aggregator {
	if log == nil {
		log = slog.Default()
	}
	if len(opts.Variants) == 0 {
		opts.Variants = backtest.DefaultVariants()
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 1
	}
	if opts.StartingCapital <= 0 {
		opts.StartingCapital = 100_000
	}
	return &Aggregator{
		loader: l,
		engine: engine,
		opts:   opts,
		log:    log.With("component", "analyze"),
	}
}

// Run analyzes the whole universe and returns the assembled report. A ticker
// whose analysis fails is recorded with an error annotation; it never aborts
// the batch.
func (a *Aggregator) Run(ctx context.Context) (*Report, error) {
	end := time.Now().UTC()
	start := a.opts.StartDate
	if start.IsZero() {
		start = end.AddDate(-1, 0, 0)
	}

	rows := make([]domain.TickerReport, len(a.opts.Universe))

	var wg sync.WaitGroup
	sem := make(chan struct{}, a.opts.MaxWorkers)
	for i, ticker := range a.opts.Universe {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, ticker string) {
			defer wg.Done()
			defer func() { <-sem }()
			rows[i] = a.analyzeTicker(ctx, ticker, start, end)
		}(i, ticker)
	}
	wg.Wait()

	report := &Report{
		GeneratedAt: end,
		Rows:        rows,
	}
	for _, r := range rows {
		if r.Failed() {
			report.Failed++
		} else {
			report.Analyzed++
		}
	}
	sortRows(report.Rows)
	report.Buckets = bucketize(report.Rows, a.opts.BucketBoundaries)

	if a.opts.Benchmark != "" {
		bench := a.analyzeBenchmark(ctx, a.opts.Benchmark, start, end)
		report.Benchmark = &bench
	}

	a.log.Info("analysis complete",
		"analyzed", report.Analyzed,
		"failed", report.Failed,
		"universe", len(a.opts.Universe))
	return report, nil
}

// analyzeTicker runs every variant for one ticker and compares the results.
func (a *Aggregator) analyzeTicker(ctx context.Context, ticker string, start, end time.Time) domain.TickerReport {
	bars, err := a.loader.LoadPriceSeries(ctx, ticker, start, end)
	if err != nil {
		return domain.TickerReport{Ticker: ticker, Err: fmt.Sprintf("loading prices: %v", err)}
	}
	divs, err := a.loader.LoadDividendSeries(ctx, ticker, start, end)
	if err != nil {
		return domain.TickerReport{Ticker: ticker, Err: fmt.Sprintf("loading dividends: %v", err)}
	}

	results := make([]*domain.BacktestResult, 0, len(a.opts.Variants))
	for _, v := range a.opts.Variants {
		res, err := a.engine.Run(ticker, bars, divs, v, a.opts.StartingCapital)
		if err != nil {
			return domain.TickerReport{Ticker: ticker, Err: err.Error()}
		}
		results = append(results, res)
	}

	cmp, err := backtest.Compare(results, bars, divs, backtest.CompareOptions{
		PreferBuyHoldOnTie: a.opts.PreferBuyHoldOnTie,
	})
	if err != nil {
		return domain.TickerReport{Ticker: ticker, Err: err.Error()}
	}
	return domain.TickerReport{Ticker: ticker, Comparison: cmp}
}

// analyzeBenchmark runs the benchmark through Buy & Hold only. The
// dividend-capture fields stay not-applicable rather than zero.
func (a *Aggregator) analyzeBenchmark(ctx context.Context, ticker string, start, end time.Time) domain.TickerReport {
	bars, err := a.loader.LoadPriceSeries(ctx, ticker, start, end)
	if err != nil {
		return domain.TickerReport{Ticker: ticker, Err: fmt.Sprintf("loading prices: %v", err)}
	}

	res, err := a.engine.Run(ticker, bars, nil, backtest.BuyHold(), a.opts.StartingCapital)
	if err != nil {
		return domain.TickerReport{Ticker: ticker, Err: err.Error()}
	}

	cmp, err := backtest.Compare([]*domain.BacktestResult{res}, bars, nil, backtest.CompareOptions{})
	if err != nil {
		return domain.TickerReport{Ticker: ticker, Err: err.Error()}
	}
	return domain.TickerReport{Ticker: ticker, Comparison: cmp}
}

// Rebuild reassembles a Report from persisted rows, recomputing ordering,
// counts, and buckets. Used when serving a saved run without re-analyzing.
func Rebuild(generatedAt time.Time, rows []domain.TickerReport, boundaries []float64) *Report {
	report := &Report{
		GeneratedAt: generatedAt,
		Rows:        rows,
	}
	for _, r := range rows {
		if r.Failed() {
			report.Failed++
		} else {
			report.Analyzed++
		}
	}
	sortRows(report.Rows)
	report.Buckets = bucketize(report.Rows, boundaries)
	return report
}

// sortRows orders successful rows by best return descending, then failed
// rows alphabetically at the end.
func sortRows(rows []domain.TickerReport) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Failed() != b.Failed() {
			return !a.Failed()
		}
		if a.Failed() {
			return a.Ticker < b.Ticker
		}
		if a.Comparison.BestReturnPct != b.Comparison.BestReturnPct {
			return a.Comparison.BestReturnPct > b.Comparison.BestReturnPct
		}
		return a.Ticker < b.Ticker
	})
}

// bucketize partitions successful rows into display groups by best return.
// Boundaries are descending percentages, e.g. [50, 20] produces ">50%",
// "20-50%", and "<20%". Failed rows are excluded; only non-empty buckets are
// returned.
func bucketize(rows []domain.TickerReport, boundaries []float64) []Bucket {
	if len(boundaries) == 0 {
		return nil
	}

	buckets := make([]Bucket, len(boundaries)+1)
	for i := range buckets {
		buckets[i].Name = bucketName(i, boundaries)
	}

	for _, r := range rows {
		if r.Failed() {
			continue
		}
		idx := bucketIndex(r.Comparison.BestReturnPct, boundaries)
		buckets[idx].Rows = append(buckets[idx].Rows, r)
	}

	var out []Bucket
	for _, b := range buckets {
		if len(b.Rows) > 0 {
			out = append(out, b)
		}
	}
	return out
}

func bucketIndex(returnPct float64, boundaries []float64) int {
	for i, b := range boundaries {
		if returnPct > b {
			return i
		}
	}
	return len(boundaries)
}

func bucketName(i int, boundaries []float64) string {
	switch {
	case i == 0:
		return fmt.Sprintf(">%g%%", boundaries[0])
	case i == len(boundaries):
		return fmt.Sprintf("<%g%%", boundaries[len(boundaries)-1])
	default:
		return fmt.Sprintf("%g-%g%%", boundaries[i], boundaries[i-1])
	}
}
