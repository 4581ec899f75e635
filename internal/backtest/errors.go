package backtest

import "fmt"

// InsufficientDataError reports that a ticker's price series is too short to
// run any simulation. It aborts that ticker's run only; other tickers in a
// batch continue.
type InsufficientDataError struct {
	Ticker string
	Bars   int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: %d bars", e.Ticker, e.Bars)
}
