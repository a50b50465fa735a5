package config

import (
	"encoding/json"
	"fmt"
	"os"

	"trading-sim-go/internal/models"
)

// LogConfig controls log level, destination and file rotation.
type LogConfig struct {
	Level      string `json:"level"`  // debug, info, warn, error
	Output     string `json:"output"` // console, file, both
	File       string `json:"file,omitempty"`
	MaxSize    int    `json:"max_size,omitempty"` // megabytes per file
	MaxBackups int    `json:"max_backups,omitempty"`
	MaxAge     int    `json:"max_age,omitempty"` // days
	Compress   bool   `json:"compress,omitempty"`
}

// StrategyConfig selects a signal strategy and its numeric parameters.
// Unset parameters fall back to the strategy's defaults.
type StrategyConfig struct {
	Type   string             `json:"type"` // momentum, mean_reversion, trend_following
	Params map[string]float64 `json:"params,omitempty"`
}

// PaperConfig seeds a paper-trading session.
type PaperConfig struct {
	InitialBalances map[string]float64 `json:"initial_balances"`
}

// Config is the full application configuration, loaded from a JSON file.
type Config struct {
	Symbol     string         `json:"symbol"` // "BTC/USDT" form
	StrategyID string         `json:"strategy_id,omitempty"`
	Strategy   StrategyConfig `json:"strategy"`

	InitialCapital float64 `json:"initial_capital"`
	SlippageRate   float64 `json:"slippage_rate"`
	CommissionRate float64 `json:"commission_rate"`

	Paper PaperConfig       `json:"paper"`
	Risk  models.RiskLimits `json:"risk"`

	DBPath  string `json:"db_path,omitempty"`  // badger directory; empty disables persistence
	DataDir string `json:"data_dir,omitempty"` // kline CSV cache

	WSBaseURL   string    `json:"ws_base_url,omitempty"`
	Interval    string    `json:"interval,omitempty"`
	LogSettings LogConfig `json:"log"`
}

// Load reads and parses a JSON configuration file, applying defaults for
// optional fields.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cfg := &Config{}
	if err := json.NewDecoder(file).Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Interval == "" {
		c.Interval = "1m"
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.WSBaseURL == "" {
		c.WSBaseURL = "wss://stream.binance.com:9443"
	}
	if c.LogSettings.Level == "" {
		c.LogSettings.Level = "info"
	}
	if c.LogSettings.Output == "" {
		c.LogSettings.Output = "console"
	}
}

func (c *Config) validate() error {
	if c.Symbol == "" {
		return &models.ValidationError{Field: "symbol", Reason: "is required"}
	}
	if c.InitialCapital <= 0 {
		return &models.ValidationError{Field: "initial_capital", Reason: "must be positive"}
	}
	if c.SlippageRate < 0 || c.CommissionRate < 0 {
		return &models.ValidationError{Field: "rates", Reason: "slippage and commission must not be negative"}
	}
	return nil
}
