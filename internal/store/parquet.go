package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"divcap/internal/domain"
)

// Compile-time interface checks.
var _ BarStore = (*ParquetStore)(nil)
var _ DividendStore = (*ParquetStore)(nil)

// ParquetStore implements BarStore and DividendStore using Parquet files on
// disk. It is the local cache in front of the market-data provider.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a new ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// BarRecord is the Parquet schema for daily bar data.
type BarRecord struct {
	Symbol string  `parquet:"symbol"`
	Date   int64   `parquet:"date,timestamp(millisecond)"` // Unix ms
	Open   float64 `parquet:"open"`
	High   float64 `parquet:"high"`
	Low    float64 `parquet:"low"`
	Close  float64 `parquet:"close"`
	Volume int64   `parquet:"volume"`
}

// DividendRecord is the Parquet schema for dividend events.
type DividendRecord struct {
	Symbol     string  `parquet:"symbol"`
	ExDate     int64   `parquet:"ex_date,timestamp(millisecond)"` // Unix ms
	CashAmount float64 `parquet:"cash_amount"`
}

// ---------------------------------------------------------------------------
// BarStore implementation
// ---------------------------------------------------------------------------

// WriteBars writes bar data to Parquet files organized by ticker and year.
// Each ticker+year combination produces a separate file at:
//
//	<DataDir>/us/daily/<TICKER>/<YYYY>.parquet
func (s *ParquetStore) WriteBars(_ context.Context, ticker string, bars []domain.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	groups := make(map[int][]BarRecord)
	for _, b := range bars {
		year := b.Date.Year()
		groups[year] = append(groups[year], BarRecord{
			Symbol: strings.ToUpper(ticker),
			Date:   b.Date.UnixMilli(),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}

	for year, records := range groups {
		path := s.barPath(ticker, year)

		// Read existing records to merge; dedup by date, new wins.
		existing, _ := readParquetFile[BarRecord](path)
		merged := mergeByKey(existing, records, func(r BarRecord) int64 { return r.Date })

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing bars for %s/%d: %w", ticker, year, err)
		}
	}
	return nil
}

// ReadBars reads bar data from Parquet files for the given ticker and range.
// Bars are returned in ascending date order.
func (s *ParquetStore) ReadBars(_ context.Context, ticker string, start, end time.Time) ([]domain.PriceBar, error) {
	var bars []domain.PriceBar
	for year := start.Year(); year <= end.Year(); year++ {
		records, err := readParquetFile[BarRecord](s.barPath(ticker, year))
		if err != nil {
			// File doesn't exist for this year — skip.
			continue
		}

		for _, r := range records {
			d := time.UnixMilli(r.Date).UTC()
			if !d.Before(start) && !d.After(end) {
				bars = append(bars, domain.PriceBar{
					Date:   d,
					Open:   r.Open,
					High:   r.High,
					Low:    r.Low,
					Close:  r.Close,
					Volume: r.Volume,
				})
			}
		}
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

// ListTickers lists all tickers that have cached bar data.
func (s *ParquetStore) ListTickers(_ context.Context) ([]string, error) {
	dir := filepath.Join(s.DataDir, "us", "daily")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var tickers []string
	for _, e := range entries {
		if e.IsDir() {
			tickers = append(tickers, e.Name())
		}
	}
	sort.Strings(tickers)
	return tickers, nil
}

// ---------------------------------------------------------------------------
// DividendStore implementation
// ---------------------------------------------------------------------------

// WriteDividends writes dividend events to a single per-ticker Parquet file:
//
//	<DataDir>/us/dividends/<TICKER>.parquet
func (s *ParquetStore) WriteDividends(_ context.Context, ticker string, divs []domain.DividendEvent) error {
	if len(divs) == 0 {
		return nil
	}

	records := make([]DividendRecord, 0, len(divs))
	for _, d := range divs {
		records = append(records, DividendRecord{
			Symbol:     strings.ToUpper(ticker),
			ExDate:     d.ExDate.UnixMilli(),
			CashAmount: d.CashAmount,
		})
	}

	path := s.dividendPath(ticker)
	existing, _ := readParquetFile[DividendRecord](path)
	merged := mergeByKey(existing, records, func(r DividendRecord) int64 { return r.ExDate })

	if err := writeParquetFile(path, merged); err != nil {
		return fmt.Errorf("writing dividends for %s: %w", ticker, err)
	}
	return nil
}

// ReadDividends reads dividend events for the ticker within [start, end] in
// ascending ex-date order.
func (s *ParquetStore) ReadDividends(_ context.Context, ticker string, start, end time.Time) ([]domain.DividendEvent, error) {
	records, err := readParquetFile[DividendRecord](s.dividendPath(ticker))
	if err != nil {
		// No cached dividends is not an error; weekly funds without history
		// simply have none yet.
		return nil, nil
	}

	var divs []domain.DividendEvent
	for _, r := range records {
		d := time.UnixMilli(r.ExDate).UTC()
		if !d.Before(start) && !d.After(end) {
			divs = append(divs, domain.DividendEvent{ExDate: d, CashAmount: r.CashAmount})
		}
	}
	sort.Slice(divs, func(i, j int) bool { return divs[i].ExDate.Before(divs[j].ExDate) })
	return divs, nil
}

// ---------------------------------------------------------------------------
// Path helpers
// ---------------------------------------------------------------------------

// barPath returns the filesystem path for a bar Parquet file.
// Layout: <dataDir>/us/daily/<TICKER>/<YYYY>.parquet
func (s *ParquetStore) barPath(ticker string, year int) string {
	return filepath.Join(s.DataDir, "us", "daily", strings.ToUpper(ticker), fmt.Sprintf("%d.parquet", year))
}

// dividendPath returns the filesystem path for a ticker's dividend file.
// Layout: <dataDir>/us/dividends/<TICKER>.parquet
func (s *ParquetStore) dividendPath(ticker string) string {
	return filepath.Join(s.DataDir, "us", "dividends", strings.ToUpper(ticker)+".parquet")
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergeByKey deduplicates records by an int64 key, preferring incoming over
// existing. Results are sorted ascending by key.
func mergeByKey[T any](existing, incoming []T, keyOf func(T) int64) []T {
	seen := make(map[int64]T, len(existing)+len(incoming))
	for _, r := range existing {
		seen[keyOf(r)] = r
	}
	for _, r := range incoming {
		seen[keyOf(r)] = r
	}

	merged := make([]T, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return keyOf(merged[i]) < keyOf(merged[j])
	})
	return merged
}
