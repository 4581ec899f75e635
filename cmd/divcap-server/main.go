package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"divcap/internal/analyze"
	"divcap/internal/backtest"
	"divcap/internal/commentary"
	"divcap/internal/config"
	"divcap/internal/httpapi"
	"divcap/internal/loader"
	"divcap/internal/sentiment"
	"divcap/internal/store"
	"divcap/internal/util"
)

func main() {
	cfgPath := "config/divcap.yaml"
	if p := os.Getenv("DIVCAP_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	var startDate time.Time
	if cfg.Analysis.StartDate != "" {
		startDate, err = time.Parse("2006-01-02", cfg.Analysis.StartDate)
		if err != nil {
			log.Fatalf("parsing analysis.start_date: %v", err)
		}
	}

	pstore := store.NewParquetStore(cfg.Storage.DataDir)
	remote := loader.NewAlpacaLoader(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL, cfg.Analysis.RateLimitPerMin)
	series := loader.NewCachingLoader(remote, pstore)

	variants := backtest.DefaultVariants()
	if len(cfg.Analysis.Variants) > 0 {
		variants, err = backtest.DefaultRegistry().Resolve(cfg.Analysis.Variants)
		if err != nil {
			log.Fatalf("resolving analysis.variants: %v", err)
		}
	}

	engine := backtest.NewEngine(logger, cfg.Analysis.MinBarsForWarning)
	agg := analyze.New(series, engine, analyze.Options{
		Universe:           cfg.Analysis.Universe,
		Benchmark:          cfg.Analysis.Benchmark,
		StartDate:          startDate,
		StartingCapital:    cfg.Analysis.StartingCapital,
		MaxWorkers:         cfg.Analysis.MaxWorkers,
		BucketBoundaries:   cfg.Analysis.BucketBoundaries,
		PreferBuyHoldOnTie: cfg.Analysis.PreferBuyHoldOnTie(),
		Variants:           variants,
	}, logger)

	var reports store.ReportStore
	if cfg.Storage.SQLitePath != "" {
		sq, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			log.Fatalf("opening sqlite store: %v", err)
		}
		defer sq.Close()
		reports = sq
	}

	var comm *commentary.Client
	if cfg.Commentary.APIKey != "" {
		comm = commentary.NewClient(cfg.Commentary.APIKey, cfg.Commentary.BaseURL, cfg.Commentary.Model)
	}

	srv := httpapi.NewDashboardServer(
		agg,
		reports,
		pstore,
		comm,
		sentiment.NewClientWithURLs(cfg.Sentiment.FearGreedURL, cfg.Sentiment.VIXCSVURL),
		cfg.Analysis.Universe,
		cfg.Analysis.BucketBoundaries,
		logger,
	)

	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, port),
		Handler: srv.Handler(),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		logger.Info("dashboard API listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
