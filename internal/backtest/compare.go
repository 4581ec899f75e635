package backtest

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"divcap/internal/domain"
)

// tradingDaysPerYear is the annualization factor for daily volatility.
const tradingDaysPerYear = 252

// CompareOptions tunes the comparator's tie-break behaviour.
type CompareOptions struct {
	// PreferBuyHoldOnTie picks Buy & Hold when two strategies report the
	// same total return at display precision (2 dp). Lower turnover wins.
	PreferBuyHoldOnTie bool
}

// Compare reduces all of one ticker's BacktestResults to a single
// StrategyComparison: the best-performing strategy, a price-volatility risk
// descriptor, and the median of the last three dividend amounts.
func Compare(results []*domain.BacktestResult, bars []domain.PriceBar, divs []domain.DividendEvent, opts CompareOptions) (*domain.StrategyComparison, error) {
	if len(results) == 0 {
		return nil, fmt.Errorf("compare: no backtest results")
	}

	best := results[0]
	var bestDC *domain.BacktestResult
	var buyHold *domain.BacktestResult

	for _, r := range results {
		if betterThan(r, best, opts.PreferBuyHoldOnTie) {
			best = r
		}
		switch r.Kind {
		case domain.StrategyBuyHold:
			buyHold = r
		case domain.StrategyDivCapture:
			if bestDC == nil || betterThan(r, bestDC, false) {
				bestDC = r
			}
		}
	}

	cmp := &domain.StrategyComparison{
		Ticker:            best.Ticker,
		BestStrategy:      best.StrategyName,
		BestReturnPct:     best.TotalReturnPct,
		FinalValue:        best.FinalValue,
		RiskVolatilityPct: annualizedVolatilityPct(bars),
		TradingDays:       best.TradingDays,
	}
	if buyHold != nil {
		cmp.BuyHoldReturnPct = buyHold.TotalReturnPct
	}
	if bestDC != nil {
		cmp.DivCaptureReturnPct = bestDC.TotalReturnPct
		cmp.DivCaptureVariant = bestDC.StrategyName
		cmp.DCWinRatePct = bestDC.WinRatePct
		cmp.DCWinRateValid = bestDC.WinRateValid
	}
	cmp.MedianDividend, cmp.MedianDividendValid = medianDividend(divs)

	return cmp, nil
}

// betterThan reports whether candidate beats incumbent. Returns are compared
// at display precision (2 dp); on an exact display tie the preference flag
// decides (Buy & Hold as the simpler strategy), then full precision.
func betterThan(candidate, incumbent *domain.BacktestResult, preferBuyHold bool) bool {
	rc := round2(candidate.TotalReturnPct)
	ri := round2(incumbent.TotalReturnPct)
	if rc != ri {
		return rc > ri
	}
	if preferBuyHold && candidate.Kind != incumbent.Kind {
		return candidate.Kind == domain.StrategyBuyHold
	}
	return candidate.TotalReturnPct > incumbent.TotalReturnPct
}

// annualizedVolatilityPct computes the sample standard deviation of daily
// close-to-close simple returns, annualized by sqrt(252), in percent. It is
// a property of the price series alone, independent of strategy choice.
func annualizedVolatilityPct(bars []domain.PriceBar) float64 {
	if len(bars) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		returns = append(returns, bars[i].Close/bars[i-1].Close-1)
	}
	sd, err := stats.StandardDeviationSample(returns)
	if err != nil {
		return 0
	}
	return sd * math.Sqrt(tradingDaysPerYear) * 100
}

// medianDividend returns the median cash amount over the last three dividend
// events: one event is itself, two average, three take the sorted middle.
// This exact small-sample rule is reported to users as a forward-income
// indicator and must stay stable.
func medianDividend(divs []domain.DividendEvent) (float64, bool) {
	if len(divs) == 0 {
		return 0, false
	}
	recent := divs
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	amounts := make([]float64, len(recent))
	for i, d := range recent {
		amounts[i] = d.CashAmount
	}
	m, err := stats.Median(amounts)
	if err != nil {
		return 0, false
	}
	return m, true
}

// round2 rounds to two decimal places, the precision used for display and
// for the comparator's tie detection.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
