// Package domain defines the core value types shared across the divcap
// toolkit: price bars, dividend events, simulated trades, and the result
// records produced by the backtest engine and strategy comparator.
package domain

import "time"

// PriceBar is a single daily OHLCV bar for one ticker.
//
// Invariants: bars in a series are strictly increasing by Date with no
// duplicates, and Close > 0.
type PriceBar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// DividendEvent is a single cash distribution keyed by its ex-dividend date.
//
// Invariant: CashAmount > 0. The ex-date may fall on a non-trading day; the
// backtest engine snaps it to the first trading day on or after it.
type DividendEvent struct {
	ExDate     time.Time
	CashAmount float64
}

// StrategyKind is the enumerated strategy family. Dispatch is always on the
// kind (plus variant offsets), never on substring matches of display names.
type StrategyKind int

const (
	// StrategyBuyHold buys on the first bar and holds to the last.
	StrategyBuyHold StrategyKind = iota
	// StrategyDivCapture trades a window around each dividend ex-date.
	StrategyDivCapture
)

// String returns the canonical name of the strategy kind.
func (k StrategyKind) String() string {
	switch k {
	case StrategyBuyHold:
		return "buy-hold"
	case StrategyDivCapture:
		return "div-capture"
	default:
		return "unknown"
	}
}

// Trade is one completed round trip recorded by a dividend-capture
// simulation. Trades are immutable once appended to a result.
type Trade struct {
	EntryDate        time.Time
	ExitDate         time.Time
	EntryPrice       float64
	ExitPrice        float64
	RealizedReturn   float64 // simple return, e.g. 0.0125 for +1.25%
	DividendCaptured float64 // cash credited per share, 0 if not captured
	Partial          bool    // position closed early because price data ended
}

// BacktestResult is the outcome of running one strategy variant over one
// ticker's full data window. Created once at the end of a run and never
// mutated afterwards.
type BacktestResult struct {
	Ticker           string
	StrategyName     string
	Kind             StrategyKind
	TradingDays      int
	TotalReturnPct   float64 // full precision; rounding happens in the formatter
	FinalValue       float64
	WinRatePct       float64
	WinRateValid     bool // true only for dividend-capture runs with >= 1 trade
	Trades           []Trade
	SkippedDividends int // ex-dates that could not be mapped to a trading day
}

// StrategyComparison is the per-ticker summary derived from all of that
// ticker's BacktestResults plus the raw price and dividend series. The field
// set is fixed: the report formatter and dashboard depend on it.
type StrategyComparison struct {
	Ticker              string
	BestStrategy        string
	BestReturnPct       float64
	BuyHoldReturnPct    float64
	DivCaptureReturnPct float64
	DivCaptureVariant   string // name of the best dividend-capture variant
	FinalValue          float64
	DCWinRatePct        float64
	DCWinRateValid      bool
	RiskVolatilityPct   float64 // annualized stdev of daily returns, percent
	MedianDividend      float64 // median of the last three dividend amounts
	MedianDividendValid bool
	TradingDays         int
}

// TickerReport pairs a ticker with either its comparison or the error that
// prevented one. Failed tickers stay in the report with an annotation rather
// than being dropped.
type TickerReport struct {
	Ticker     string
	Comparison *StrategyComparison
	Err        string
}

// Failed reports whether this ticker's analysis ended in an error.
func (r *TickerReport) Failed() bool { return r.Err != "" }
