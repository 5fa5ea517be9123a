// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
// Defaults mirror the tuned production values; every knob can be overridden
// via environment variables (a .env file is loaded if present).
type Config struct {
	DataDir  string // Base directory for all state files (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	// Trading mode: "SIM" (paper trading against the JSON ledger) or
	// "REAL" (live orders through the brokerage).
	Mode    string
	Sandbox bool // Use the brokerage sandbox environment

	// Brokerage API
	BrokerBaseURL        string
	BrokerSandboxURL     string
	BrokerConsumerKey    string
	BrokerConsumerSecret string
	BrokerAccessToken    string // OAuth access token obtained out of band
	BrokerAccessSecret   string
	BrokerAccountID      string // Preferred account; empty = first in the list
	QuoteBatchSize       int    // Max symbols per quote API call

	// Polling / timing
	PollInterval      time.Duration
	SessionRenewEvery time.Duration
	MarketOpenHour    int
	MarketOpenMinute  int
	MarketCloseHour   int
	MarketCloseMinute int

	// Value scoring weights (must sum to 1.0)
	Scoring ScoringConfig

	// Trading window
	Window WindowConfig

	// Sector rotation
	Sector SectorConfig

	// Portfolio / risk
	Risk RiskConfig

	// Signal thresholds
	Signals SignalConfig

	// Simulation
	InitialCash float64
}

// ScoringConfig holds the fundamental scoring weights and gate
type ScoringConfig struct {
	WeightPE            float64
	WeightEPSGrowth     float64
	WeightRevenueGrowth float64
	WeightProfitMargin  float64
	WeightDebtEquity    float64
	WeightFairValueGap  float64
	GateThreshold       float64 // Minimum value score to buy
}

// WeightSum returns the sum of all scoring weights
func (s ScoringConfig) WeightSum() float64 {
	return s.WeightPE + s.WeightEPSGrowth + s.WeightRevenueGrowth +
		s.WeightProfitMargin + s.WeightDebtEquity + s.WeightFairValueGap
}

// WindowConfig holds the trading window parameters
type WindowConfig struct {
	LookbackDays int
	HalfWidth    float64 // +/- fraction around the median (0.05 = a 10% window)

	// Window position zone thresholds (exclusive, strictly increasing)
	StrongBuyThreshold  float64
	BuyThreshold        float64
	SellThreshold       float64
	StrongSellThreshold float64
}

// SectorConfig holds sector rotation parameters
type SectorConfig struct {
	PerfPeriodDays int
	MinAllocation  float64
	MaxAllocation  float64
}

// RiskConfig holds portfolio risk limits
type RiskConfig struct {
	MaxPositions          int
	MaxPositionPct        float64 // Fraction of portfolio per stock
	WashSaleLossThreshold float64 // Minimum realized loss ($) to trigger a block
	WashSaleBlockDays     int
}

// SignalConfig holds signal generation score thresholds
type SignalConfig struct {
	BuyScore       float64
	StrongBuyScore float64
	SellScore      float64 // Sell when value weakens below this in a sell zone
	CollapseScore  float64 // Sell regardless of window if score drops below this
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("TRADER_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getEnvAsInt("PORT", 8001),
		DevMode:  getEnvAsBool("DEV_MODE", false),

		Mode:    getEnv("TRADER_MODE", "SIM"),
		Sandbox: getEnvAsBool("BROKER_SANDBOX", false),

		BrokerBaseURL:        getEnv("BROKER_BASE_URL", "https://api.etrade.com"),
		BrokerSandboxURL:     getEnv("BROKER_SANDBOX_URL", "https://apisb.etrade.com"),
		BrokerConsumerKey:    getEnv("BROKER_CONSUMER_KEY", ""),
		BrokerConsumerSecret: getEnv("BROKER_CONSUMER_SECRET", ""),
		BrokerAccessToken:    getEnv("BROKER_ACCESS_TOKEN", ""),
		BrokerAccessSecret:   getEnv("BROKER_ACCESS_SECRET", ""),
		BrokerAccountID:      getEnv("BROKER_ACCOUNT_ID", ""),
		QuoteBatchSize:       getEnvAsInt("QUOTE_BATCH_SIZE", 25),

		PollInterval:      time.Duration(getEnvAsInt("POLL_INTERVAL_SECONDS", 600)) * time.Second,
		SessionRenewEvery: time.Duration(getEnvAsInt("SESSION_RENEW_MINUTES", 90)) * time.Minute,
		MarketOpenHour:    9,
		MarketOpenMinute:  30,
		MarketCloseHour:   16,
		MarketCloseMinute: 0,

		Scoring: ScoringConfig{
			WeightPE:            getEnvAsFloat("SCORE_WEIGHT_PE", 0.25),
			WeightEPSGrowth:     getEnvAsFloat("SCORE_WEIGHT_EPS_GROWTH", 0.25),
			WeightRevenueGrowth: getEnvAsFloat("SCORE_WEIGHT_REVENUE_GROWTH", 0.15),
			WeightProfitMargin:  getEnvAsFloat("SCORE_WEIGHT_PROFIT_MARGIN", 0.10),
			WeightDebtEquity:    getEnvAsFloat("SCORE_WEIGHT_DEBT_EQUITY", 0.10),
			WeightFairValueGap:  getEnvAsFloat("SCORE_WEIGHT_FAIR_VALUE_GAP", 0.15),
			GateThreshold:       getEnvAsFloat("FUNDAMENTAL_GATE_THRESHOLD", 40),
		},

		Window: WindowConfig{
			LookbackDays:        getEnvAsInt("WINDOW_LOOKBACK_DAYS", 60),
			HalfWidth:           getEnvAsFloat("WINDOW_HALF_WIDTH", 0.05),
			StrongBuyThreshold:  getEnvAsFloat("STRONG_BUY_THRESHOLD", 0.20),
			BuyThreshold:        getEnvAsFloat("BUY_THRESHOLD", 0.35),
			SellThreshold:       getEnvAsFloat("SELL_THRESHOLD", 0.65),
			StrongSellThreshold: getEnvAsFloat("STRONG_SELL_THRESHOLD", 0.80),
		},

		Sector: SectorConfig{
			PerfPeriodDays: getEnvAsInt("SECTOR_PERF_PERIOD_DAYS", 60),
			MinAllocation:  getEnvAsFloat("SECTOR_MIN_ALLOCATION", 0.15),
			MaxAllocation:  getEnvAsFloat("SECTOR_MAX_ALLOCATION", 0.55),
		},

		Risk: RiskConfig{
			MaxPositions:          getEnvAsInt("MAX_POSITIONS", 20),
			MaxPositionPct:        getEnvAsFloat("MAX_POSITION_PCT", 0.05),
			WashSaleLossThreshold: getEnvAsFloat("WASH_SALE_LOSS_THRESHOLD", 100.0),
			WashSaleBlockDays:     getEnvAsInt("WASH_SALE_BLOCK_DAYS", 30),
		},

		Signals: SignalConfig{
			BuyScore:       getEnvAsFloat("BUY_SCORE_THRESHOLD", 60),
			StrongBuyScore: getEnvAsFloat("STRONG_BUY_SCORE_THRESHOLD", 70),
			SellScore:      getEnvAsFloat("SELL_SCORE_THRESHOLD", 50),
			CollapseScore:  getEnvAsFloat("COLLAPSE_SCORE_THRESHOLD", 30),
		},

		InitialCash: getEnvAsFloat("INITIAL_CASH", 100_000),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is internally consistent
func (c *Config) Validate() error {
	if c.Mode != "SIM" && c.Mode != "REAL" {
		return fmt.Errorf("invalid mode %q (must be SIM or REAL)", c.Mode)
	}

	if c.Mode == "REAL" {
		if c.BrokerConsumerKey == "" || c.BrokerConsumerSecret == "" {
			return fmt.Errorf("REAL mode requires BROKER_CONSUMER_KEY and BROKER_CONSUMER_SECRET")
		}
		if c.BrokerAccessToken == "" || c.BrokerAccessSecret == "" {
			return fmt.Errorf("REAL mode requires BROKER_ACCESS_TOKEN and BROKER_ACCESS_SECRET")
		}
	}

	if sum := c.Scoring.WeightSum(); math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("scoring weights must sum to 1.0, got %.4f", sum)
	}

	w := c.Window
	if !(w.StrongBuyThreshold < w.BuyThreshold && w.BuyThreshold < w.SellThreshold && w.SellThreshold < w.StrongSellThreshold) {
		return fmt.Errorf("window thresholds must be strictly increasing")
	}

	if c.Sector.MinAllocation > c.Sector.MaxAllocation {
		return fmt.Errorf("sector min allocation %.2f exceeds max %.2f", c.Sector.MinAllocation, c.Sector.MaxAllocation)
	}

	return nil
}

// BrokerURL returns the active brokerage base URL for the configured environment
func (c *Config) BrokerURL() string {
	if c.Sandbox {
		return c.BrokerSandboxURL
	}
	return c.BrokerBaseURL
}

// TradesFile returns the path of the append-only trade ledger
func (c *Config) TradesFile() string {
	return filepath.Join(c.DataDir, "trades.json")
}

// WashSaleFile returns the path of the persisted wash-sale block list
func (c *Config) WashSaleFile() string {
	return filepath.Join(c.DataDir, "wash_sale_list.json")
}

// PortfolioStateFile returns the path of the persisted portfolio state
func (c *Config) PortfolioStateFile() string {
	return filepath.Join(c.DataDir, "portfolio_state.json")
}

// HistoryDBFile returns the path of the historical price cache database
func (c *Config) HistoryDBFile() string {
	return filepath.Join(c.DataDir, "history.db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
