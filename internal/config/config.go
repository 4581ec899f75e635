package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the divcap toolkit.
type Config struct {
	Storage    Storage          `yaml:"storage"`
	Server     Server           `yaml:"server"`
	Alpaca     Alpaca           `yaml:"alpaca"`
	Logging    Logging          `yaml:"logging"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Sentiment  SentimentConfig  `yaml:"sentiment"`
	Commentary CommentaryConfig `yaml:"commentary"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Server holds network listener configuration for the dashboard API.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Alpaca holds credentials and endpoints for the Alpaca market-data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AnalysisConfig controls the multi-ticker backtest run. The ticker universe
// is explicit configuration, not a package-level constant: everything that
// consumes it receives it from here.
type AnalysisConfig struct {
	Universe          []string  `yaml:"universe"`
	Benchmark         string    `yaml:"benchmark"`
	StartDate         string    `yaml:"start_date"`
	StartingCapital   float64   `yaml:"starting_capital"`
	MaxWorkers        int       `yaml:"max_workers"`
	RateLimitPerMin   int       `yaml:"rate_limit_per_min"`
	BucketBoundaries  []float64 `yaml:"bucket_boundaries"` // descending, percent
	Variants          []string  `yaml:"variants"`          // registry names; empty runs the default set
	PreferBuyHoldTie  *bool     `yaml:"prefer_buy_hold_on_tie"`
	MinBarsForWarning int       `yaml:"min_bars_for_warning"`
}

// PreferBuyHoldOnTie reports whether Buy & Hold wins display-precision return
// ties. Defaults to true when unset.
func (a *AnalysisConfig) PreferBuyHoldOnTie() bool {
	if a.PreferBuyHoldTie == nil {
		return true
	}
	return *a.PreferBuyHoldTie
}

// SentimentConfig optionally overrides the market-sentiment endpoints. Empty
// values keep the built-in defaults.
type SentimentConfig struct {
	FearGreedURL string `yaml:"fear_greed_url"`
	VIXCSVURL    string `yaml:"vix_csv_url"`
}

// CommentaryConfig holds settings for the LLM commentary client. Commentary
// is skipped entirely when APIKey is empty.
type CommentaryConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies environment variable overrides, and fills defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if len(cfg.Analysis.Universe) == 0 {
		return nil, fmt.Errorf("config: analysis.universe must list at least one ticker")
	}

	return cfg, nil
}

// applyDefaults fills zero-valued fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Analysis.StartingCapital <= 0 {
		cfg.Analysis.StartingCapital = 100_000
	}
	if cfg.Analysis.MaxWorkers <= 0 {
		cfg.Analysis.MaxWorkers = 4
	}
	if cfg.Analysis.RateLimitPerMin <= 0 {
		cfg.Analysis.RateLimitPerMin = 200
	}
	if len(cfg.Analysis.BucketBoundaries) == 0 {
		cfg.Analysis.BucketBoundaries = []float64{50, 20}
	}
	if cfg.Analysis.MinBarsForWarning <= 0 {
		cfg.Analysis.MinBarsForWarning = 20
	}
	if cfg.Commentary.Model == "" {
		cfg.Commentary.Model = "gpt-4o-mini"
	}
	if cfg.Commentary.BaseURL == "" {
		cfg.Commentary.BaseURL = "https://api.openai.com/v1"
	}
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Commentary.APIKey = v
	}

	// Standard Alpaca env vars (highest priority — canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
