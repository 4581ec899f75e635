// Package sentiment fetches market-mood context for the commentary layer:
// the CNN Fear & Greed index and a VIX quote. Both are thin HTTP wrappers;
// failures here degrade commentary, never the analysis itself.
package sentiment

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Snapshot is the market-mood context passed to the commentary prompt.
type Snapshot struct {
	FearGreedScore  float64
	FearGreedRating string
	VIX             float64
	FetchedAt       time.Time
}

const (
	defaultFearGreedURL = "https://production.dataviz.cnn.io/index/fearandgreed/graphdata"
	defaultVIXCSVURL    = "https://stooq.com/q/l/?s=%5Evix&f=sd2t2ohlcv&h&e=csv"
)

// Client fetches sentiment data over HTTP. The zero value is not usable;
// construct with NewClient.
type Client struct {
	http         *http.Client
	fearGreedURL string
	vixCSVURL    string
}

// NewClient creates a sentiment Client with a bounded request timeout.
func NewClient() *Client {
	return &Client{
		http:         &http.Client{Timeout: 10 * time.Second},
		fearGreedURL: defaultFearGreedURL,
		vixCSVURL:    defaultVIXCSVURL,
	}
}

// NewClientWithURLs creates a Client with endpoint overrides; empty strings
// keep the defaults.
func NewClientWithURLs(fearGreedURL, vixCSVURL string) *Client {
	c := NewClient()
	if fearGreedURL != "" {
		c.fearGreedURL = fearGreedURL
	}
	if vixCSVURL != "" {
		c.vixCSVURL = vixCSVURL
	}
	return c
}

// Fetch collects the Fear & Greed index and VIX quote. Each source failing
// independently zeroes its fields; an error is returned only when both fail.
func (c *Client) Fetch(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{FetchedAt: time.Now().UTC()}

	fgErr := c.fetchFearGreed(ctx, snap)
	vixErr := c.fetchVIX(ctx, snap)

	if fgErr != nil && vixErr != nil {
		return nil, fmt.Errorf("all sentiment sources failed: %v; %v", fgErr, vixErr)
	}
	return snap, nil
}

// --- CNN Fear & Greed ---

type fearGreedResponse struct {
	FearAndGreed struct {
		Score  float64 `json:"score"`
		Rating string  `json:"rating"`
	} `json:"fear_and_greed"`
}

func (c *Client) fetchFearGreed(ctx context.Context, snap *Snapshot) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.fearGreedURL, nil)
	if err != nil {
		return err
	}
	// CNN rejects requests without a browser-ish user agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; divcap/1.0)")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fear & greed: status %d", resp.StatusCode)
	}

	var parsed fearGreedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("fear & greed: %w", err)
	}

	snap.FearGreedScore = parsed.FearAndGreed.Score
	snap.FearGreedRating = parsed.FearAndGreed.Rating
	return nil
}

// --- VIX via Stooq CSV ---

func (c *Client) fetchVIX(ctx context.Context, snap *Snapshot) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.vixCSVURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("vix: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return err
	}

	v, err := ParseVIXCSV(string(body))
	if err != nil {
		return err
	}
	snap.VIX = v
	return nil
}

// ParseVIXCSV extracts the close price from a Stooq single-quote CSV
// (header row: Symbol,Date,Time,Open,High,Low,Close,Volume).
func ParseVIXCSV(data string) (float64, error) {
	records, err := csv.NewReader(strings.NewReader(data)).ReadAll()
	if err != nil {
		return 0, fmt.Errorf("vix csv: %w", err)
	}
	if len(records) < 2 {
		return 0, fmt.Errorf("vix csv: no data rows")
	}

	header, row := records[0], records[1]
	for i, col := range header {
		if strings.EqualFold(col, "Close") {
			if i >= len(row) {
				break
			}
			v, err := strconv.ParseFloat(row[i], 64)
			if err != nil {
				return 0, fmt.Errorf("vix csv: bad close %q", row[i])
			}
			return v, nil
		}
	}
	return 0, fmt.Errorf("vix csv: close column not found")
}
