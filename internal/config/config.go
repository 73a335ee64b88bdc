// Package config exposes strongly typed application configuration structs
// loaded from YAML, with environment variables overriding credentials.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Venue describes connectivity to the perpetuals venue the bot reads prices
// from and submits simulated orders against.
type Venue struct {
	Provider         string `yaml:"provider"` // "indexer" or "stub"
	BaseURL          string `yaml:"base_url"`
	StreamURL        string `yaml:"stream_url"`
	Resolution       string `yaml:"resolution"`
	RequestTimeoutMs int    `yaml:"request_timeout_ms"`
	ThrottleMs       int    `yaml:"throttle_ms"`
}

// Scanner tunes the periodic cointegration scan.
type Scanner struct {
	HistoryLimit    int    `yaml:"history_limit"`
	MaxHalfLife     int    `yaml:"max_half_life"`
	RefreshInterval int    `yaml:"refresh_interval_mins"`
	PairsPath       string `yaml:"pairs_path"`
}

// Signal tunes the rolling z-score evaluated per pair.
type Signal struct {
	Window          int     `yaml:"window"`
	ZScoreThreshold float64 `yaml:"zscore_threshold"`
	RecentLimit     int     `yaml:"recent_limit"`
}

// Trading bounds the simulated position book.
type Trading struct {
	InitialBalance   float64 `yaml:"initial_balance"`
	MaxPositions     int     `yaml:"max_positions"`
	MinCollateralUSD float64 `yaml:"min_collateral_usd"`
	USDPerTrade      float64 `yaml:"usd_per_trade"`
	TakeProfitUSD    float64 `yaml:"take_profit_usd"`
	EntryIntervalMs  int     `yaml:"entry_interval_ms"`
	ExitPollMs       int     `yaml:"exit_poll_ms"`
	TradeLogPath     string  `yaml:"trade_log_path"`
	PositionsPath    string  `yaml:"positions_path"`
	Hours            Hours   `yaml:"hours"`
}

// Hours gates entries to a daily trading window.
type Hours struct {
	Enabled      bool   `yaml:"enabled"`
	Start        string `yaml:"start"` // "HH:MM"
	End          string `yaml:"end"`
	Timezone     string `yaml:"timezone"`
	SkipWeekends bool   `yaml:"skip_weekends"`
}

// Notify holds the outbound messaging credentials. Values here are overridden
// by TELEGRAM_TOKEN / TELEGRAM_CHAT_ID when set in the environment.
type Notify struct {
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID string `yaml:"telegram_chat_id"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App     App     `yaml:"app"`
	Venue   Venue   `yaml:"venue"`
	Scanner Scanner `yaml:"scanner"`
	Signal  Signal  `yaml:"signal"`
	Trading Trading `yaml:"trading"`
	Notify  Notify  `yaml:"notify"`
}

// Load reads a YAML file from disk and hydrates a Config struct, applying
// defaults and environment credential overrides.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	config.applyDefaults()
	config.applyEnv()
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.MetricsAddr == "" {
		c.App.MetricsAddr = ":9109"
	}
	if c.Venue.Resolution == "" {
		c.Venue.Resolution = "5MINS"
	}
	if c.Venue.RequestTimeoutMs <= 0 {
		c.Venue.RequestTimeoutMs = 10_000
	}
	if c.Venue.ThrottleMs <= 0 {
		c.Venue.ThrottleMs = 200
	}
	if c.Scanner.HistoryLimit <= 0 {
		c.Scanner.HistoryLimit = 120
	}
	if c.Scanner.MaxHalfLife <= 0 {
		c.Scanner.MaxHalfLife = 24
	}
	if c.Scanner.RefreshInterval <= 0 {
		c.Scanner.RefreshInterval = 10
	}
	if c.Scanner.PairsPath == "" {
		c.Scanner.PairsPath = "cointegrated_pairs.csv"
	}
	if c.Signal.Window <= 0 {
		c.Signal.Window = 21
	}
	if c.Signal.ZScoreThreshold <= 0 {
		c.Signal.ZScoreThreshold = 1.5
	}
	if c.Signal.RecentLimit <= 0 {
		c.Signal.RecentLimit = 48
	}
	if c.Trading.InitialBalance <= 0 {
		c.Trading.InitialBalance = 130
	}
	if c.Trading.MaxPositions <= 0 {
		c.Trading.MaxPositions = 12
	}
	if c.Trading.MinCollateralUSD <= 0 {
		c.Trading.MinCollateralUSD = 20
	}
	if c.Trading.USDPerTrade <= 0 {
		c.Trading.USDPerTrade = 50
	}
	if c.Trading.TakeProfitUSD <= 0 {
		c.Trading.TakeProfitUSD = 0.5
	}
	if c.Trading.EntryIntervalMs <= 0 {
		c.Trading.EntryIntervalMs = 1000
	}
	if c.Trading.ExitPollMs <= 0 {
		c.Trading.ExitPollMs = 1000
	}
	if c.Trading.TradeLogPath == "" {
		c.Trading.TradeLogPath = "trade_simulation_log.csv"
	}
	if c.Trading.PositionsPath == "" {
		c.Trading.PositionsPath = "active_trades.json"
	}
	if c.Trading.Hours.Timezone == "" {
		c.Trading.Hours.Timezone = "UTC"
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		c.Notify.TelegramToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Notify.TelegramChatID = v
	}
}
