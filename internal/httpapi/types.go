package httpapi

// TickersResponse lists the configured universe and the tickers that already
// have cached market data on disk.
type TickersResponse struct {
	Universe []string `json:"universe"`
	Cached   []string `json:"cached"`
}
