package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"divcap/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParquetBarsRoundTrip(t *testing.T) {
	s := NewParquetStore(t.TempDir())
	ctx := context.Background()

	bars := []domain.PriceBar{
		{Date: day(2024, 12, 30), Open: 19.8, High: 20.1, Low: 19.7, Close: 20.0, Volume: 1200},
		{Date: day(2024, 12, 31), Open: 20.0, High: 20.4, Low: 19.9, Close: 20.3, Volume: 900},
		{Date: day(2025, 1, 2), Open: 20.3, High: 20.6, Low: 20.2, Close: 20.5, Volume: 1100},
	}

	if err := s.WriteBars(ctx, "ymax", bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	// Range spans the year boundary, so both year files are read.
	got, err := s.ReadBars(ctx, "YMAX", day(2024, 12, 1), day(2025, 1, 31))
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ReadBars returned %d bars, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if !got[i-1].Date.Before(got[i].Date) {
			t.Error("bars not in ascending date order")
		}
	}
	if got[2].Close != 20.5 {
		t.Errorf("Close = %v, want 20.5", got[2].Close)
	}

	// Re-writing an overlapping batch dedups by date; new records win.
	if err := s.WriteBars(ctx, "YMAX", []domain.PriceBar{
		{Date: day(2025, 1, 2), Open: 20.3, High: 20.6, Low: 20.2, Close: 99.9, Volume: 1100},
	}); err != nil {
		t.Fatalf("WriteBars (overwrite): %v", err)
	}
	got, err = s.ReadBars(ctx, "YMAX", day(2025, 1, 1), day(2025, 1, 31))
	if err != nil {
		t.Fatalf("ReadBars: %v", err)
	}
	if len(got) != 1 || got[0].Close != 99.9 {
		t.Errorf("after overwrite got %+v, want single bar with Close 99.9", got)
	}
}

func TestParquetDividendsRoundTrip(t *testing.T) {
	s := NewParquetStore(t.TempDir())
	ctx := context.Background()

	divs := []domain.DividendEvent{
		{ExDate: day(2025, 1, 10), CashAmount: 0.18},
		{ExDate: day(2025, 1, 17), CashAmount: 0.21},
		{ExDate: day(2025, 1, 24), CashAmount: 0.17},
	}
	if err := s.WriteDividends(ctx, "QDTE", divs); err != nil {
		t.Fatalf("WriteDividends: %v", err)
	}

	got, err := s.ReadDividends(ctx, "QDTE", day(2025, 1, 12), day(2025, 1, 31))
	if err != nil {
		t.Fatalf("ReadDividends: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadDividends returned %d events, want 2 (range filter)", len(got))
	}
	if got[0].CashAmount != 0.21 || got[1].CashAmount != 0.17 {
		t.Errorf("unexpected events: %+v", got)
	}

	// Missing ticker is not an error.
	none, err := s.ReadDividends(ctx, "NOPE", day(2025, 1, 1), day(2025, 12, 31))
	if err != nil || len(none) != 0 {
		t.Errorf("ReadDividends for unknown ticker = (%v, %v), want (empty, nil)", none, err)
	}
}

func TestParquetListTickers(t *testing.T) {
	s := NewParquetStore(t.TempDir())
	ctx := context.Background()

	if tickers, err := s.ListTickers(ctx); err != nil || len(tickers) != 0 {
		t.Fatalf("empty store ListTickers = (%v, %v)", tickers, err)
	}

	bar := []domain.PriceBar{{Date: day(2025, 3, 3), Open: 1, High: 1, Low: 1, Close: 1, Volume: 1}}
	if err := s.WriteBars(ctx, "ymax", bar); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteBars(ctx, "QDTE", bar); err != nil {
		t.Fatal(err)
	}

	tickers, err := s.ListTickers(ctx)
	if err != nil {
		t.Fatalf("ListTickers: %v", err)
	}
	if len(tickers) != 2 || tickers[0] != "QDTE" || tickers[1] != "YMAX" {
		t.Errorf("ListTickers = %v, want [QDTE YMAX]", tickers)
	}
}

func TestSQLiteSaveAndLatestRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "divcap.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	// Empty store: no latest run.
	if _, _, ok, err := s.LatestRun(ctx); err != nil || ok {
		t.Fatalf("LatestRun on empty store = (ok=%v, err=%v), want (false, nil)", ok, err)
	}

	generatedAt := day(2025, 8, 29)
	rows := []domain.TickerReport{
		{
			Ticker: "YMAX",
			Comparison: &domain.StrategyComparison{
				Ticker: "YMAX", BestStrategy: "DD to DD+4", BestReturnPct: 31.4,
				BuyHoldReturnPct: 12.1, DivCaptureReturnPct: 31.4,
				DivCaptureVariant: "DD to DD+4", FinalValue: 131_400,
				DCWinRatePct: 68.2, DCWinRateValid: true,
				RiskVolatilityPct: 24.7, MedianDividend: 0.18, MedianDividendValid: true,
				TradingDays: 250,
			},
		},
		{
			Ticker: "QDTE",
			Comparison: &domain.StrategyComparison{
				Ticker: "QDTE", BestStrategy: "Buy & Hold", BestReturnPct: 8.2,
				BuyHoldReturnPct: 8.2, TradingDays: 250,
			},
		},
		{Ticker: "XDTE", Err: "insufficient data for XDTE: 0 bars"},
	}

	runID, err := s.SaveRun(ctx, generatedAt, rows)
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if runID == 0 {
		t.Error("SaveRun returned zero run ID")
	}

	gotAt, gotRows, ok, err := s.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if !ok {
		t.Fatal("LatestRun found no run after SaveRun")
	}
	if !gotAt.Equal(generatedAt) {
		t.Errorf("generatedAt = %v, want %v", gotAt, generatedAt)
	}
	if len(gotRows) != 3 {
		t.Fatalf("LatestRun returned %d rows, want 3", len(gotRows))
	}

	// Sorted by best return desc, failed rows last.
	if gotRows[0].Ticker != "YMAX" || gotRows[1].Ticker != "QDTE" || gotRows[2].Ticker != "XDTE" {
		t.Errorf("row order = [%s %s %s], want [YMAX QDTE XDTE]",
			gotRows[0].Ticker, gotRows[1].Ticker, gotRows[2].Ticker)
	}
	if !gotRows[2].Failed() || gotRows[2].Comparison != nil {
		t.Error("failed ticker should carry Err and no Comparison")
	}
	if c := gotRows[0].Comparison; c == nil || !c.DCWinRateValid || c.DCWinRatePct != 68.2 {
		t.Errorf("YMAX comparison round-trip mismatch: %+v", c)
	}

	// A second run supersedes the first.
	if _, err := s.SaveRun(ctx, generatedAt.Add(time.Hour), rows[:1]); err != nil {
		t.Fatalf("second SaveRun: %v", err)
	}
	_, gotRows, _, err = s.LatestRun(ctx)
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if len(gotRows) != 1 {
		t.Errorf("latest run has %d rows, want 1", len(gotRows))
	}
}
