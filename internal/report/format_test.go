package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"divcap/internal/analyze"
	"divcap/internal/domain"
)

func sampleComparison() *domain.StrategyComparison {
	return &domain.StrategyComparison{
		Ticker:              "YMAX",
		BestStrategy:        "DD to DD+4",
		BestReturnPct:       31.41592,
		BuyHoldReturnPct:    12.119,
		DivCaptureReturnPct: 31.41592,
		DivCaptureVariant:   "DD to DD+4",
		FinalValue:          131415.92,
		DCWinRatePct:        68.1818,
		DCWinRateValid:      true,
		RiskVolatilityPct:   24.6666,
		MedianDividend:      0.1834,
		MedianDividendValid: true,
		TradingDays:         250,
	}
}

func TestNewRowRoundsToTwoDecimals(t *testing.T) {
	row := NewRow(domain.TickerReport{Ticker: "YMAX", Comparison: sampleComparison()})

	if row.BuyHoldReturnPct != 12.12 {
		t.Errorf("BuyHoldReturnPct = %v, want 12.12", row.BuyHoldReturnPct)
	}
	if row.DivCaptureReturnPct != "31.42" {
		t.Errorf("DivCaptureReturnPct = %q, want %q", row.DivCaptureReturnPct, "31.42")
	}
	if row.Strategy != "DD to DD+4" {
		t.Errorf("Strategy = %q, want %q", row.Strategy, "DD to DD+4")
	}
	if row.RiskVolatilityPct != 24.67 {
		t.Errorf("RiskVolatilityPct = %v, want 24.67", row.RiskVolatilityPct)
	}
	if row.DCWinRatePct != "68.18" {
		t.Errorf("DCWinRatePct = %q, want %q", row.DCWinRatePct, "68.18")
	}
	if row.MedianDividend != "0.1834" {
		t.Errorf("MedianDividend = %q, want %q", row.MedianDividend, "0.1834")
	}
}

func TestNewRowNotApplicableFields(t *testing.T) {
	// Benchmark-style comparison: Buy & Hold only, no dividends.
	c := &domain.StrategyComparison{
		Ticker:           "SPY",
		BestStrategy:     "Buy & Hold",
		BestReturnPct:    10,
		BuyHoldReturnPct: 10,
		TradingDays:      250,
	}
	row := NewRow(domain.TickerReport{Ticker: "SPY", Comparison: c})

	if row.DCWinRatePct != "N/A" {
		t.Errorf("DCWinRatePct = %q, want N/A (never 0 or NaN)", row.DCWinRatePct)
	}
	if row.MedianDividend != "N/A" {
		t.Errorf("MedianDividend = %q, want N/A", row.MedianDividend)
	}
	// No capture variant ran, so the strategy fields are N/A, not ""/0.
	if row.Strategy != "N/A" {
		t.Errorf("Strategy = %q, want N/A", row.Strategy)
	}
	if row.DivCaptureReturnPct != "N/A" {
		t.Errorf("DivCaptureReturnPct = %q, want N/A", row.DivCaptureReturnPct)
	}
}

func TestNewRowFailedTicker(t *testing.T) {
	row := NewRow(domain.TickerReport{Ticker: "XDTE", Err: "insufficient data for XDTE: 0 bars"})
	if row.Error == "" {
		t.Error("failed ticker row must carry its error annotation")
	}
	if row.Strategy != "N/A" || row.DivCaptureReturnPct != "N/A" ||
		row.DCWinRatePct != "N/A" || row.MedianDividend != "N/A" {
		t.Error("failed ticker fields should be N/A")
	}
}

func TestPayloadJSONKeySet(t *testing.T) {
	rep := &analyze.Report{
		GeneratedAt: time.Date(2025, 8, 29, 12, 0, 0, 0, time.UTC),
		Rows:        []domain.TickerReport{{Ticker: "YMAX", Comparison: sampleComparison()}},
		Buckets: []analyze.Bucket{
			{Name: "20-50%", Rows: []domain.TickerReport{{Ticker: "YMAX", Comparison: sampleComparison()}}},
		},
		Analyzed: 1,
	}

	data, err := NewPayload(rep, "").JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	rows := doc["rows"].([]any)
	row := rows[0].(map[string]any)

	// The dashboard depends on this exact key set; renames break it.
	for _, key := range []string{
		"ticker", "strategy", "trading_days", "buy_hold_return_pct",
		"div_capture_return_pct", "best_strategy", "final_value",
		"dc_win_rate_pct", "risk_volatility_pct", "median_dividend",
	} {
		if _, ok := row[key]; !ok {
			t.Errorf("row JSON missing key %q", key)
		}
	}
}

func TestPayloadBenchmarkJSONNotApplicable(t *testing.T) {
	rep := &analyze.Report{
		GeneratedAt: time.Date(2025, 8, 29, 12, 0, 0, 0, time.UTC),
		Benchmark: &domain.TickerReport{
			Ticker: "SPY",
			Comparison: &domain.StrategyComparison{
				Ticker: "SPY", BestStrategy: "Buy & Hold", BuyHoldReturnPct: 9.5, TradingDays: 250,
			},
		},
	}

	data, err := NewPayload(rep, "").JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}

	var doc struct {
		Benchmark map[string]any `json:"benchmark"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	// The benchmark never runs a capture variant; its strategy fields must
	// serialize as explicit N/A markers, not as ""/0.
	for _, key := range []string{"strategy", "div_capture_return_pct", "dc_win_rate_pct", "median_dividend"} {
		if got := doc.Benchmark[key]; got != "N/A" {
			t.Errorf("benchmark %s = %v, want %q", key, got, "N/A")
		}
	}
}

func TestPayloadText(t *testing.T) {
	rep := &analyze.Report{
		GeneratedAt: time.Date(2025, 8, 29, 12, 0, 0, 0, time.UTC),
		Rows: []domain.TickerReport{
			{Ticker: "YMAX", Comparison: sampleComparison()},
			{Ticker: "XDTE", Err: "loading prices: provider down"},
		},
		Buckets: []analyze.Bucket{
			{Name: "20-50%", Rows: []domain.TickerReport{{Ticker: "YMAX", Comparison: sampleComparison()}}},
		},
		Benchmark: &domain.TickerReport{
			Ticker: "SPY",
			Comparison: &domain.StrategyComparison{
				Ticker: "SPY", BestStrategy: "Buy & Hold", BuyHoldReturnPct: 9.5, TradingDays: 250,
			},
		},
		Analyzed: 1,
		Failed:   1,
	}

	text := NewPayload(rep, "markets were calm").Text()

	for _, want := range []string{
		"1 of 2 tickers analyzed",
		"== 20-50% ==",
		"YMAX",
		"== errors ==",
		"XDTE",
		"provider down",
		"== benchmark ==",
		"SPY",
		"N/A",
		"markets were calm",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("text output missing %q\n%s", want, text)
		}
	}
}

func TestRound2(t *testing.T) {
	if Round2(2.344) != 2.34 {
		t.Errorf("Round2(2.344) = %v", Round2(2.344))
	}
	if Round2(2.346) != 2.35 {
		t.Errorf("Round2(2.346) = %v", Round2(2.346))
	}
	if Round2(-1.2349) != -1.23 {
		t.Errorf("Round2(-1.2349) = %v", Round2(-1.2349))
	}
}
