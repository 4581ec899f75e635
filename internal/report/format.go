// Package report renders aggregated analysis results for the dashboard and
// the CLI: a flat JSON row shape with a fixed key set, and a plain-text
// comparison table grouped by performance bucket.
//
// All percentage rounding to two decimal places happens here and only here;
// upstream values carry full float64 precision.
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"divcap/internal/analyze"
	"divcap/internal/domain"
)

// notApplicable is the explicit marker for fields that do not apply to a row
// (e.g. win rate with zero trades, dividend fields on the benchmark). It is
// never rendered as 0 or NaN.
const notApplicable = "N/A"

// Row is the flat serialized form of one ticker's comparison. The key set is
// what the dashboard expects; do not rename fields. Dividend-capture fields
// are strings so rows without a capture result (the benchmark, failed
// tickers) can carry the explicit "N/A" marker instead of a misleading zero.
type Row struct {
	Ticker              string  `json:"ticker"`
	Strategy            string  `json:"strategy"` // variant name or "N/A"
	TradingDays         int     `json:"trading_days"`
	BuyHoldReturnPct    float64 `json:"buy_hold_return_pct"`
	DivCaptureReturnPct string  `json:"div_capture_return_pct"` // "31.42" or "N/A"
	BestStrategy        string  `json:"best_strategy"`
	FinalValue          float64 `json:"final_value"`
	DCWinRatePct        string  `json:"dc_win_rate_pct"` // "62.50" or "N/A"
	RiskVolatilityPct   float64 `json:"risk_volatility_pct"`
	MedianDividend      string  `json:"median_dividend"` // "0.18" or "N/A"
	Error               string  `json:"error,omitempty"`
}

// Payload is the full JSON document served to the dashboard.
type Payload struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Analyzed    int             `json:"analyzed"`
	Failed      int             `json:"failed"`
	Rows        []Row           `json:"rows"`
	Buckets     []BucketPayload `json:"buckets"`
	Benchmark   *Row            `json:"benchmark,omitempty"`
	Commentary  string          `json:"commentary,omitempty"`
}

// BucketPayload is one display bucket with its member tickers.
type BucketPayload struct {
	Name    string   `json:"name"`
	Tickers []string `json:"tickers"`
}

// Round2 rounds to two decimal places for display.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// NewRow flattens one ticker report into the fixed row shape.
func NewRow(r domain.TickerReport) Row {
	if r.Failed() {
		return Row{
			Ticker:              r.Ticker,
			Strategy:            notApplicable,
			DivCaptureReturnPct: notApplicable,
			DCWinRatePct:        notApplicable,
			MedianDividend:      notApplicable,
			Error:               r.Err,
		}
	}

	c := r.Comparison
	row := Row{
		Ticker:              c.Ticker,
		Strategy:            notApplicable,
		TradingDays:         c.TradingDays,
		BuyHoldReturnPct:    Round2(c.BuyHoldReturnPct),
		DivCaptureReturnPct: notApplicable,
		BestStrategy:        c.BestStrategy,
		FinalValue:          Round2(c.FinalValue),
		DCWinRatePct:        notApplicable,
		RiskVolatilityPct:   Round2(c.RiskVolatilityPct),
		MedianDividend:      notApplicable,
	}
	// An empty variant name means no dividend-capture strategy ran for this
	// row (benchmark), so its fields stay not-applicable.
	if c.DivCaptureVariant != "" {
		row.Strategy = c.DivCaptureVariant
		row.DivCaptureReturnPct = fmt.Sprintf("%.2f", c.DivCaptureReturnPct)
	}
	if c.DCWinRateValid {
		row.DCWinRatePct = fmt.Sprintf("%.2f", c.DCWinRatePct)
	}
	if c.MedianDividendValid {
		row.MedianDividend = fmt.Sprintf("%.4f", c.MedianDividend)
	}
	return row
}

// NewPayload converts an analysis report (plus optional commentary) into the
// serializable document.
func NewPayload(rep *analyze.Report, commentary string) *Payload {
	p := &Payload{
		GeneratedAt: rep.GeneratedAt,
		Analyzed:    rep.Analyzed,
		Failed:      rep.Failed,
		Commentary:  commentary,
	}
	for _, r := range rep.Rows {
		p.Rows = append(p.Rows, NewRow(r))
	}
	for _, b := range rep.Buckets {
		bp := BucketPayload{Name: b.Name}
		for _, r := range b.Rows {
			bp.Tickers = append(bp.Tickers, r.Ticker)
		}
		p.Buckets = append(p.Buckets, bp)
	}
	if rep.Benchmark != nil {
		row := NewRow(*rep.Benchmark)
		p.Benchmark = &row
	}
	return p
}

// JSON renders the payload as indented JSON.
func (p *Payload) JSON() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// Text renders the payload as a plain-text table grouped by bucket, with the
// benchmark row appended.
func (p *Payload) Text() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Dividend capture analysis — %s\n", p.GeneratedAt.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "%d of %d tickers analyzed\n\n", p.Analyzed, p.Analyzed+p.Failed)

	byTicker := make(map[string]Row, len(p.Rows))
	for _, r := range p.Rows {
		byTicker[r.Ticker] = r
	}

	header := fmt.Sprintf("%-6s %6s %10s %10s %-14s %12s %8s %8s %8s",
		"TICKER", "DAYS", "B&H%", "DC%", "BEST", "FINAL", "WIN%", "VOL%", "MEDDIV")

	for _, bucket := range p.Buckets {
		fmt.Fprintf(&b, "== %s ==\n%s\n", bucket.Name, header)
		for _, ticker := range bucket.Tickers {
			writeRow(&b, byTicker[ticker])
		}
		b.WriteString("\n")
	}

	var failed []Row
	for _, r := range p.Rows {
		if r.Error != "" {
			failed = append(failed, r)
		}
	}
	if len(failed) > 0 {
		b.WriteString("== errors ==\n")
		for _, r := range failed {
			fmt.Fprintf(&b, "%-6s %s\n", r.Ticker, r.Error)
		}
		b.WriteString("\n")
	}

	if p.Benchmark != nil {
		fmt.Fprintf(&b, "== benchmark ==\n%s\n", header)
		writeRow(&b, *p.Benchmark)
	}

	if p.Commentary != "" {
		fmt.Fprintf(&b, "\n%s\n", p.Commentary)
	}

	return b.String()
}

func writeRow(b *strings.Builder, r Row) {
	fmt.Fprintf(b, "%-6s %6d %10.2f %10s %-14s %12.2f %8s %8.2f %8s\n",
		r.Ticker, r.TradingDays, r.BuyHoldReturnPct, r.DivCaptureReturnPct,
		r.BestStrategy, r.FinalValue, r.DCWinRatePct, r.RiskVolatilityPct,
		r.MedianDividend)
}
