package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"divcap/internal/analyze"
	"divcap/internal/backtest"
	"divcap/internal/commentary"
	"divcap/internal/config"
	"divcap/internal/loader"
	"divcap/internal/report"
	"divcap/internal/sentiment"
	"divcap/internal/store"
	"divcap/internal/util"
)

func main() {
	jsonOut := flag.Bool("json", false, "emit the report as JSON instead of text")
	noSave := flag.Bool("no-save", false, "skip persisting the run to SQLite")
	flag.Parse()

	cfgPath := "config/divcap.yaml"
	if p := os.Getenv("DIVCAP_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

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

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rep, err := agg.Run(ctx)
	if err != nil {
		log.Fatalf("analysis failed: %v", err)
	}

	if !*noSave && cfg.Storage.SQLitePath != "" {
		sq, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			logger.Warn("opening sqlite store", "error", err)
		} else {
			defer sq.Close()
			if _, err := sq.SaveRun(ctx, rep.GeneratedAt, rep.Rows); err != nil {
				logger.Warn("persisting run", "error", err)
			}
		}
	}

	text := ""
	comm := commentary.NewClient(cfg.Commentary.APIKey, cfg.Commentary.BaseURL, cfg.Commentary.Model)
	if comm.Enabled() {
		snap, err := sentiment.NewClientWithURLs(cfg.Sentiment.FearGreedURL, cfg.Sentiment.VIXCSVURL).Fetch(ctx)
		if err != nil {
			logger.Warn("fetching sentiment", "error", err)
		}
		if text, err = comm.Generate(ctx, rep, snap); err != nil {
			logger.Warn("generating commentary", "error", err)
			text = ""
		}
	}

	payload := report.NewPayload(rep, text)
	if *jsonOut {
		data, err := payload.JSON()
		if err != nil {
			log.Fatalf("encoding report: %v", err)
		}
		fmt.Println(string(data))
	} else {
		fmt.Print(payload.Text())
	}
}
