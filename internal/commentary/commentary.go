// Package commentary turns an aggregated analysis report plus a sentiment
// snapshot into a short narrative via an OpenAI-compatible chat-completion
// API. It is a thin prompt-and-post wrapper with no algorithmic content.
package commentary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"divcap/internal/analyze"
	"divcap/internal/sentiment"
)

// Client posts chat-completion requests. Disabled (Enabled() == false) when
// no API key is configured; callers then skip commentary entirely.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

// NewClient creates a commentary Client. baseURL should point at an
// OpenAI-compatible /v1 root.
func NewClient(apiKey, baseURL, model string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Enabled reports whether the client has credentials to make requests.
func (c *Client) Enabled() bool { return c.apiKey != "" }

// --- wire types ---

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate builds the market-summary prompt and returns the model's reply.
func (c *Client) Generate(ctx context.Context, rep *analyze.Report, snap *sentiment.Snapshot) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("commentary: no API key configured")
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a concise financial analyst. Two short paragraphs, plain language, no investment advice disclaimer needed."},
			{Role: "user", Content: BuildPrompt(rep, snap)},
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("commentary: status %d: %s", resp.StatusCode, msg)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("commentary: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("commentary: empty response")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// BuildPrompt renders the report and sentiment snapshot as the user prompt.
// Only successful tickers are listed; failures are summarized as a count.
func BuildPrompt(rep *analyze.Report, snap *sentiment.Snapshot) string {
	var b strings.Builder

	b.WriteString("Weekly dividend-capture backtest results (dividend capture vs buy-and-hold):\n")
	for _, r := range rep.Rows {
		if r.Failed() {
			continue
		}
		c := r.Comparison
		fmt.Fprintf(&b, "- %s: best=%s %.2f%%, buy&hold %.2f%%, volatility %.2f%%",
			c.Ticker, c.BestStrategy, c.BestReturnPct, c.BuyHoldReturnPct, c.RiskVolatilityPct)
		if c.DCWinRateValid {
			fmt.Fprintf(&b, ", capture win rate %.1f%%", c.DCWinRatePct)
		}
		b.WriteString("\n")
	}
	if rep.Failed > 0 {
		fmt.Fprintf(&b, "(%d tickers failed to load)\n", rep.Failed)
	}
	if rep.Benchmark != nil && !rep.Benchmark.Failed() {
		fmt.Fprintf(&b, "Benchmark %s buy&hold: %.2f%%\n",
			rep.Benchmark.Ticker, rep.Benchmark.Comparison.BuyHoldReturnPct)
	}

	if snap != nil {
		fmt.Fprintf(&b, "\nMarket context: VIX %.2f, Fear & Greed %.0f (%s).\n",
			snap.VIX, snap.FearGreedScore, snap.FearGreedRating)
	}

	b.WriteString("\nSummarize what worked, what lagged, and how current sentiment should temper expectations.")
	return b.String()
}
