package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseVIXCSV(t *testing.T) {
	csvData := "Symbol,Date,Time,Open,High,Low,Close,Volume\n^VIX,2025-08-28,22:15:03,15.2,16.1,14.9,15.48,0\n"
	v, err := ParseVIXCSV(csvData)
	if err != nil {
		t.Fatalf("ParseVIXCSV: %v", err)
	}
	if v != 15.48 {
		t.Errorf("close = %v, want 15.48", v)
	}
}

func TestParseVIXCSVErrors(t *testing.T) {
	if _, err := ParseVIXCSV("Symbol,Date\n"); err == nil {
		t.Error("header-only CSV should fail")
	}
	if _, err := ParseVIXCSV("Symbol,Close\n^VIX,notanumber\n"); err == nil {
		t.Error("non-numeric close should fail")
	}
	if _, err := ParseVIXCSV("Symbol,Date\n^VIX,2025-08-28\n"); err == nil {
		t.Error("missing close column should fail")
	}
}

func testClient(fgURL, vixURL string) *Client {
	return NewClientWithURLs(fgURL, vixURL)
}

func TestFetch(t *testing.T) {
	fg := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("fear & greed request should carry a user agent")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"fear_and_greed": map[string]any{"score": 62.5, "rating": "greed"},
		})
	}))
	defer fg.Close()

	vix := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Symbol,Date,Time,Open,High,Low,Close,Volume\n^VIX,2025-08-28,22:15:03,15.2,16.1,14.9,15.48,0\n")
	}))
	defer vix.Close()

	snap, err := testClient(fg.URL, vix.URL).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if snap.FearGreedScore != 62.5 || snap.FearGreedRating != "greed" {
		t.Errorf("fear & greed = %v/%q, want 62.5/greed", snap.FearGreedScore, snap.FearGreedRating)
	}
	if snap.VIX != 15.48 {
		t.Errorf("VIX = %v, want 15.48", snap.VIX)
	}
}

func TestFetchPartialFailure(t *testing.T) {
	fg := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer fg.Close()

	vix := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "Symbol,Close\n^VIX,17.2\n")
	}))
	defer vix.Close()

	// One source down: snapshot still usable.
	snap, err := testClient(fg.URL, vix.URL).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch with one source down should succeed: %v", err)
	}
	if snap.VIX != 17.2 || snap.FearGreedScore != 0 {
		t.Errorf("snapshot = %+v, want VIX 17.2 and zero fear & greed", snap)
	}
}

func TestFetchAllSourcesDown(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	if _, err := testClient(down.URL, down.URL).Fetch(context.Background()); err == nil {
		t.Error("Fetch should fail when every source is down")
	}
}
