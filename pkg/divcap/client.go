// Package divcap provides a Go SDK for the divcap-server dashboard API.
package divcap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client talks to a running divcap-server instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client for the given base URL, e.g.
// "http://localhost:8080".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Report mirrors the /api/report JSON document.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	Analyzed    int       `json:"analyzed"`
	Failed      int       `json:"failed"`
	Rows        []Row     `json:"rows"`
	Buckets     []Bucket  `json:"buckets"`
	Benchmark   *Row      `json:"benchmark,omitempty"`
	Commentary  string    `json:"commentary,omitempty"`
}

// Row is one ticker's comparison result. Dividend-capture fields are strings
// carrying either a formatted number or "N/A".
type Row struct {
	Ticker              string  `json:"ticker"`
	Strategy            string  `json:"strategy"`
	TradingDays         int     `json:"trading_days"`
	BuyHoldReturnPct    float64 `json:"buy_hold_return_pct"`
	DivCaptureReturnPct string  `json:"div_capture_return_pct"`
	BestStrategy        string  `json:"best_strategy"`
	FinalValue          float64 `json:"final_value"`
	DCWinRatePct        string  `json:"dc_win_rate_pct"`
	RiskVolatilityPct   float64 `json:"risk_volatility_pct"`
	MedianDividend      string  `json:"median_dividend"`
	Error               string  `json:"error,omitempty"`
}

// Bucket groups tickers by best-return band.
type Bucket struct {
	Name    string   `json:"name"`
	Tickers []string `json:"tickers"`
}

// Tickers mirrors the /api/tickers response.
type Tickers struct {
	Universe []string `json:"universe"`
	Cached   []string `json:"cached"`
}

// GetReport retrieves the current analysis report. With refresh set, the
// server re-runs the analysis before responding; this can take a while.
func (c *Client) GetReport(ctx context.Context, refresh bool) (*Report, error) {
	u := c.baseURL + "/api/report"
	if refresh {
		u += "?refresh=1"
	}
	var rep Report
	if err := c.getJSON(ctx, u, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

// GetTickers retrieves the configured universe and cached tickers.
func (c *Client) GetTickers(ctx context.Context) (*Tickers, error) {
	var t Tickers
	if err := c.getJSON(ctx, c.baseURL+"/api/tickers", &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Health checks whether the server is up.
func (c *Client) Health(ctx context.Context) error {
	return c.getJSON(ctx, c.baseURL+"/healthz", &struct{}{})
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("divcap: %s: %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("divcap: %s", resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
