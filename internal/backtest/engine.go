package backtest

import (
	"log/slog"
	"sort"
	"time"

	"divcap/internal/domain"
)

// defaultMinBars is the series length below which results are flagged as
// low-confidence. Shorter series still run; they just log a warning.
const defaultMinBars = 20

// Engine runs strategy simulations over in-memory series. It performs no
// I/O and holds no state between runs, so a single Engine is safe to share
// across goroutines.
type Engine struct {
	log     *slog.Logger
	minBars int
}

// NewEngine creates an Engine that logs through the given logger. minBars is
// the series length below which a low-confidence warning is logged; zero or
// negative uses the default of 20.
func NewEngine(log *slog.Logger, minBars int) *Engine {
	if log == nil {
		log = slog.Default()
	}
	if minBars <= 0 {
		minBars = defaultMinBars
	}
	return &Engine{log: log.With("component", "backtest"), minBars: minBars}
}

// Run simulates one strategy variant over the full data window and returns
// its BacktestResult. bars must be in ascending date order and divs in
// ascending ex-date order, as the loaders guarantee.
//
// An empty price series returns *InsufficientDataError. A dividend whose
// ex-date cannot be mapped to an in-range trading day is skipped and counted
// in SkippedDividends; it never aborts the run.
func (e *Engine) Run(ticker string, bars []domain.PriceBar, divs []domain.DividendEvent, v Variant, capital float64) (*domain.BacktestResult, error) {
	if len(bars) == 0 {
		return nil, &InsufficientDataError{Ticker: ticker, Bars: 0}
	}
	if len(bars) < e.minBars {
		e.log.Warn("short price series, low-confidence result",
			"ticker", ticker, "bars", len(bars), "min", e.minBars)
	}

	switch v.Kind {
	case domain.StrategyBuyHold:
		return e.runBuyHold(ticker, bars, v, capital), nil
	case domain.StrategyDivCapture:
		return e.runDivCapture(ticker, bars, divs, v, capital), nil
	default:
		return nil, &InsufficientDataError{Ticker: ticker, Bars: len(bars)}
	}
}

// runBuyHold buys all-in at the first bar's close and values the position at
// the last bar's close. No intermediate trades are recorded; the whole window
// is one implicit position.
func (e *Engine) runBuyHold(ticker string, bars []domain.PriceBar, v Variant, capital float64) *domain.BacktestResult {
	shares := capital / bars[0].Close
	finalValue := shares * bars[len(bars)-1].Close

	return &domain.BacktestResult{
		Ticker:         ticker,
		StrategyName:   v.Name,
		Kind:           domain.StrategyBuyHold,
		TradingDays:    len(bars),
		TotalReturnPct: (finalValue - capital) / capital * 100,
		FinalValue:     finalValue,
	}
}

// runDivCapture walks the dividend events in chronological order, opening a
// position at the variant's entry offset and closing at its exit offset, both
// measured in trading days from the snapped ex-date. At most one position is
// open at a time: an entry that would overlap the previous trade is deferred
// until that trade's exit bar.
//
// The dividend is credited to cash only when the holding period spans the
// ex-date (entry <= ex-date <= exit). All fills are at the close of the
// respective bar, using full available cash. Accumulation stays in full
// float64 precision; rounding is left to the report formatter.
func (e *Engine) runDivCapture(ticker string, bars []domain.PriceBar, divs []domain.DividendEvent, v Variant, capital float64) *domain.BacktestResult {
	cash := capital
	var trades []domain.Trade
	skipped := 0
	nextFree := 0 // first bar index at which the book is flat again

	for _, div := range divs {
		exIdx, ok := snapToTradingDay(bars, div.ExDate)
		if !ok {
			// Local recovery: log and skip this one event.
			e.log.Warn("dividend alignment failed, skipping event",
				"ticker", ticker, "ex_date", div.ExDate.Format("2006-01-02"))
			skipped++
			continue
		}

		entry := exIdx + v.EntryOffset
		if entry < nextFree {
			// Overlapping windows are common with weekly distributions;
			// defer the later entry until the position is flat.
			entry = nextFree
		}
		if entry < 0 {
			entry = 0
		}

		exit := exIdx + v.ExitOffset
		partial := false
		if exit >= len(bars) {
			// Price data ends before the scheduled exit: close at the last
			// available bar and mark the trade.
			exit = len(bars) - 1
			partial = true
		}
		if entry >= exit {
			// Window collapsed (deferral or truncated data); no round trip is
			// possible, so the event counts as skipped.
			skipped++
			continue
		}

		entryPrice := bars[entry].Close
		exitPrice := bars[exit].Close
		shares := cash / entryPrice

		captured := 0.0
		if entry <= exIdx && exIdx <= exit {
			captured = div.CashAmount
		}

		cash = shares*exitPrice + shares*captured

		trades = append(trades, domain.Trade{
			EntryDate:        bars[entry].Date,
			ExitDate:         bars[exit].Date,
			EntryPrice:       entryPrice,
			ExitPrice:        exitPrice,
			RealizedReturn:   (exitPrice - entryPrice) / entryPrice,
			DividendCaptured: captured,
			Partial:          partial,
		})
		nextFree = exit
	}

	if len(trades) == 0 {
		// With no tradeable dividend events the strategy degenerates to
		// Buy & Hold: same capital deployment, same window, zero round trips.
		bh := e.runBuyHold(ticker, bars, v, capital)
		bh.Kind = domain.StrategyDivCapture
		bh.SkippedDividends = skipped
		return bh
	}

	wins := 0
	for _, tr := range trades {
		if tr.RealizedReturn > 0 {
			wins++
		}
	}

	return &domain.BacktestResult{
		Ticker:           ticker,
		StrategyName:     v.Name,
		Kind:             domain.StrategyDivCapture,
		TradingDays:      len(bars),
		TotalReturnPct:   (cash - capital) / capital * 100,
		FinalValue:       cash,
		WinRatePct:       float64(wins) / float64(len(trades)) * 100,
		WinRateValid:     true,
		Trades:           trades,
		SkippedDividends: skipped,
	}
}

// snapToTradingDay maps an ex-date to a bar index. Rule: the first trading
// day ON OR AFTER the ex-date. An ex-date on a weekend or holiday therefore
// snaps forward to the next bar; an ex-date past the end of the series has
// no mapping and the event is skipped.
func snapToTradingDay(bars []domain.PriceBar, exDate time.Time) (int, bool) {
	target := dayOf(exDate)
	idx := sort.Search(len(bars), func(i int) bool {
		return !dayOf(bars[i].Date).Before(target)
	})
	if idx == len(bars) {
		return 0, false
	}
	return idx, true
}

// dayOf truncates a timestamp to its calendar day in UTC so bar timestamps
// and ex-dates compare by date regardless of intraday components.
func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
