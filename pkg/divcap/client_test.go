package divcap

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGetReport(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RequestURI()
		fmt.Fprint(w, `{
			"generated_at": "2025-08-29T12:00:00Z",
			"analyzed": 1,
			"failed": 0,
			"rows": [{"ticker": "YMAX", "best_strategy": "DD to DD+4", "dc_win_rate_pct": "68.18", "median_dividend": "N/A"}],
			"buckets": [{"name": "20-50%", "tickers": ["YMAX"]}]
		}`)
	}))
	defer srv.Close()

	rep, err := NewClient(srv.URL).GetReport(context.Background(), false)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if gotPath != "/api/report" {
		t.Errorf("path = %q", gotPath)
	}
	if len(rep.Rows) != 1 || rep.Rows[0].Ticker != "YMAX" {
		t.Errorf("rows = %+v", rep.Rows)
	}
	if rep.Buckets[0].Name != "20-50%" {
		t.Errorf("bucket = %+v", rep.Buckets[0])
	}

	if _, err := NewClient(srv.URL).GetReport(context.Background(), true); err != nil {
		t.Fatalf("GetReport refresh: %v", err)
	}
	if gotPath != "/api/report?refresh=1" {
		t.Errorf("refresh path = %q", gotPath)
	}
}

func TestGetTickers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"universe": ["YMAX", "QDTE"], "cached": ["YMAX"]}`)
	}))
	defer srv.Close()

	tk, err := NewClient(srv.URL).GetTickers(context.Background())
	if err != nil {
		t.Fatalf("GetTickers: %v", err)
	}
	if len(tk.Universe) != 2 || len(tk.Cached) != 1 {
		t.Errorf("tickers = %+v", tk)
	}
}

func TestErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error": "analysis failed: provider down"}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).GetReport(context.Background(), false)
	if err == nil {
		t.Fatal("expected error")
	}
	if want := "provider down"; !strings.Contains(err.Error(), want) {
		t.Errorf("error = %q, want it to mention %q", err, want)
	}
}
