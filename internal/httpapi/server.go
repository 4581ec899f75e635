// Package httpapi serves the analysis results to the web dashboard. The
// server is read-mostly: it serves the latest persisted run and only
// re-analyzes on an explicit refresh request.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"divcap/internal/analyze"
	"divcap/internal/commentary"
	"divcap/internal/report"
	"divcap/internal/sentiment"
	"divcap/internal/store"
)

// Runner produces a fresh analysis report. *analyze.Aggregator satisfies it.
type Runner interface {
	Run(ctx context.Context) (*analyze.Report, error)
}

var _ Runner = (*analyze.Aggregator)(nil)

// DashboardServer serves the dashboard HTTP API.
type DashboardServer struct {
	runner     Runner
	reports    store.ReportStore // nil disables persistence
	bars       store.BarStore    // nil disables the cached-ticker listing
	commentary *commentary.Client
	sentiments *sentiment.Client
	universe   []string
	boundaries []float64
	log        *slog.Logger

	mu      sync.Mutex
	payload *report.Payload
}

// NewDashboardServer creates a dashboard server. reports, bars, comm, and
// sent may each be nil; the corresponding features degrade gracefully.
func NewDashboardServer(
	runner Runner,
	reports store.ReportStore,
	bars store.BarStore,
	comm *commentary.Client,
	sent *sentiment.Client,
	universe []string,
	boundaries []float64,
	log *slog.Logger,
) *DashboardServer {
	if log == nil {
		log = slog.Default()
	}
	return &DashboardServer{
		runner:     runner,
		reports:    reports,
		bars:       bars,
		commentary: comm,
		sentiments: sent,
		universe:   universe,
		boundaries: boundaries,
		log:        log.With("component", "httpapi"),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *DashboardServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/report", getOnly(s.handleReport))
	mux.HandleFunc("/api/tickers", getOnly(s.handleTickers))
	mux.HandleFunc("/healthz", getOnly(s.handleHealth))
}

// getOnly restricts a handler to GET requests, matching the dispatch of the
// "GET /path" ServeMux patterns available in newer Go releases.
func getOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

// Handler returns an http.Handler with CORS middleware.
func (s *DashboardServer) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// handleReport serves the current payload. Resolution order: in-memory cache,
// then the latest persisted run, then a fresh analysis. ?refresh=1 forces a
// fresh run.
func (s *DashboardServer) handleReport(w http.ResponseWriter, r *http.Request) {
	refresh := r.URL.Query().Get("refresh") == "1"

	s.mu.Lock()
	defer s.mu.Unlock()

	if !refresh && s.payload == nil {
		s.loadPersisted(r.Context())
	}
	if refresh || s.payload == nil {
		if err := s.refresh(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("analysis failed: %v", err))
			return
		}
	}

	writeJSON(w, s.payload)
}

// loadPersisted rehydrates the payload from the most recent saved run.
// Persisted runs carry no commentary or benchmark row.
func (s *DashboardServer) loadPersisted(ctx context.Context) {
	if s.reports == nil {
		return
	}
	generatedAt, rows, ok, err := s.reports.LatestRun(ctx)
	if err != nil {
		s.log.Warn("loading latest run", "error", err)
		return
	}
	if !ok {
		return
	}
	s.payload = report.NewPayload(analyze.Rebuild(generatedAt, rows, s.boundaries), "")
	s.log.Info("serving persisted run", "generated_at", generatedAt)
}

// refresh runs a full analysis, persists it, and rebuilds the payload.
// Commentary and sentiment are best-effort extras.
func (s *DashboardServer) refresh(ctx context.Context) error {
	started := time.Now()
	rep, err := s.runner.Run(ctx)
	if err != nil {
		return err
	}

	if s.reports != nil {
		if _, err := s.reports.SaveRun(ctx, rep.GeneratedAt, rep.Rows); err != nil {
			s.log.Warn("persisting run", "error", err)
		}
	}

	text := ""
	if s.commentary != nil && s.commentary.Enabled() {
		var snap *sentiment.Snapshot
		if s.sentiments != nil {
			if snap, err = s.sentiments.Fetch(ctx); err != nil {
				s.log.Warn("fetching sentiment", "error", err)
			}
		}
		if text, err = s.commentary.Generate(ctx, rep, snap); err != nil {
			s.log.Warn("generating commentary", "error", err)
			text = ""
		}
	}

	s.payload = report.NewPayload(rep, text)
	s.log.Info("analysis refreshed",
		"analyzed", rep.Analyzed,
		"failed", rep.Failed,
		"elapsed", time.Since(started).Round(time.Millisecond))
	return nil
}

func (s *DashboardServer) handleTickers(w http.ResponseWriter, r *http.Request) {
	resp := TickersResponse{Universe: s.universe}
	if s.bars != nil {
		cached, err := s.bars.ListTickers(r.Context())
		if err != nil {
			s.log.Warn("listing cached tickers", "error", err)
		} else {
			resp.Cached = cached
		}
	}
	if resp.Universe == nil {
		resp.Universe = []string{}
	}
	if resp.Cached == nil {
		resp.Cached = []string{}
	}
	writeJSON(w, resp)
}

func (s *DashboardServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}
