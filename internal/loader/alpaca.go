package loader

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"divcap/internal/domain"
	"divcap/internal/util"
)

// Compile-time interface check.
var _ SeriesLoader = (*AlpacaLoader)(nil)

// AlpacaLoader loads daily bars and cash-dividend corporate actions from the
// Alpaca market-data API. It rate-limits and retries its own calls; provider
// errors are propagated to the caller unchanged apart from wrapping.
type AlpacaLoader struct {
	client  *marketdata.Client
	limiter *util.RateLimiter
	log     *slog.Logger
}

// NewAlpacaLoader creates an AlpacaLoader with the given credentials and a
// requests-per-minute budget.
func NewAlpacaLoader(apiKey, apiSecret, dataURL string, ratePerMin int) *AlpacaLoader {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}

	return &AlpacaLoader{
		client:  marketdata.NewClient(opts),
		limiter: util.NewRateLimiter(ratePerMin),
		log:     slog.Default().With("loader", "alpaca"),
	}
}

// LoadPriceSeries fetches daily bars for the ticker. Alpaca returns bars in
// ascending timestamp order already; timestamps are normalized to UTC days.
func (l *AlpacaLoader) LoadPriceSeries(ctx context.Context, ticker string, start, end time.Time) ([]domain.PriceBar, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var raw []marketdata.Bar
	err := util.Retry(ctx, 3, time.Second, func() error {
		var err error
		raw, err = l.client.GetBars(ticker, marketdata.GetBarsRequest{
			TimeFrame: marketdata.OneDay,
			Start:     start,
			End:       end,
			Feed:      "iex",
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars %s: %w", ticker, err)
	}

	bars := make([]domain.PriceBar, 0, len(raw))
	for _, b := range raw {
		bars = append(bars, domain.PriceBar{
			Date:   b.Timestamp.UTC(),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: int64(b.Volume),
		})
	}
	return bars, nil
}

// LoadDividendSeries fetches cash-dividend corporate actions for the ticker
// and returns them in ascending ex-date order.
func (l *AlpacaLoader) LoadDividendSeries(ctx context.Context, ticker string, start, end time.Time) ([]domain.DividendEvent, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var actions marketdata.CorporateActions
	err := util.Retry(ctx, 3, time.Second, func() error {
		var err error
		actions, err = l.client.GetCorporateActions(marketdata.GetCorporateActionsRequest{
			Symbols: []string{ticker},
			Types:   []string{"cash_dividend"},
			Start:   civil.DateOf(start),
			End:     civil.DateOf(end),
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("GetCorporateActions %s: %w", ticker, err)
	}

	divs := make([]domain.DividendEvent, 0, len(actions.CashDividends))
	for _, cd := range actions.CashDividends {
		if cd.Rate <= 0 {
			continue
		}
		divs = append(divs, domain.DividendEvent{
			ExDate:     cd.ExDate.In(time.UTC),
			CashAmount: cd.Rate,
		})
	}
	sort.Slice(divs, func(i, j int) bool { return divs[i].ExDate.Before(divs[j].ExDate) })

	l.log.Debug("loaded dividends", "ticker", ticker, "count", len(divs))
	return divs, nil
}
