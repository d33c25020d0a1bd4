// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/conductor/internal/clients/paper"
	"github.com/aristath/conductor/internal/modules/optimization"
	"github.com/aristath/conductor/internal/modules/portfolio"
	"github.com/aristath/conductor/internal/modules/routing"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	LogLevel  string
	LogPretty bool

	RebalanceSchedule     string
	UseAdvancedOrders     bool
	InitialPortfolioValue float64
	RiskFreeRate          float64
	HistoryEMALength      int

	// Execution thresholds
	DustThreshold      float64
	SmallOrderNotional float64
	LargeOrderNotional float64
	TWAPDuration       time.Duration
	TWAPIntervals      int
	IcebergSlices      int
	IcebergInterval    time.Duration
	IcebergPriceRange  float64
	MaxLegRetries      int
	OrderRetention     time.Duration // finished orders are forgotten after this, 0 keeps them

	// Router
	QuoteTimeout     time.Duration
	QuoteConcurrency int
	VenueRateLimit   float64 // quote requests per second per venue, 0 disables

	// Optimizer tuning
	CorrelationThreshold    float64
	CorrelationPenaltyScale float64
	MaxCorrelationPenalty   float64
	RiskParityBlend         float64
	DefaultVolatility       float64

	// Constraints
	MinWeight float64
	MaxWeight float64
	MaxAssets int

	// Paper trading simulation
	Universe        map[string]float64 // symbol -> starting price
	PaperSeed       uint64
	PaperWarmupDays int
	PaperVenues     []paper.VenueConfig
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	universe, err := parseUniverse(getEnv("UNIVERSE", "BTC:60000,ETH:3000,SOL:150,ADA:0.45"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse UNIVERSE: %w", err)
	}
	venues, err := parseVenues(getEnv("PAPER_VENUES", "alpha:0.001:50ms:0:0.0005,beta:0.0008:120ms:2:0.001"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse PAPER_VENUES: %w", err)
	}

	tuning := optimization.DefaultTuning()
	thresholds := portfolio.DefaultThresholds()
	constraints := optimization.DefaultConstraints()

	cfg := &Config{
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvAsBool("LOG_PRETTY", true),

		RebalanceSchedule:     getEnv("REBALANCE_SCHEDULE", "@every 1m"),
		UseAdvancedOrders:     getEnvAsBool("USE_ADVANCED_ORDERS", true),
		InitialPortfolioValue: getEnvAsFloat("INITIAL_PORTFOLIO_VALUE", 100000),
		RiskFreeRate:          getEnvAsFloat("RISK_FREE_RATE", 0.02),
		HistoryEMALength:      getEnvAsInt("HISTORY_EMA_LENGTH", 20),

		DustThreshold:      getEnvAsFloat("DUST_THRESHOLD", thresholds.Dust),
		SmallOrderNotional: getEnvAsFloat("SMALL_ORDER_NOTIONAL", thresholds.SmallNotional),
		LargeOrderNotional: getEnvAsFloat("LARGE_ORDER_NOTIONAL", thresholds.LargeNotional),
		TWAPDuration:       getEnvAsDuration("TWAP_DURATION", thresholds.TWAPDuration),
		TWAPIntervals:      getEnvAsInt("TWAP_INTERVALS", thresholds.TWAPIntervals),
		IcebergSlices:      getEnvAsInt("ICEBERG_SLICES", thresholds.IcebergSlices),
		IcebergInterval:    getEnvAsDuration("ICEBERG_INTERVAL", thresholds.IcebergInterval),
		IcebergPriceRange:  getEnvAsFloat("ICEBERG_PRICE_RANGE", thresholds.IcebergPriceRange),
		MaxLegRetries:      getEnvAsInt("MAX_LEG_RETRIES", thresholds.MaxLegRetries),
		OrderRetention:     getEnvAsDuration("ORDER_RETENTION", 24*time.Hour),

		QuoteTimeout:     getEnvAsDuration("QUOTE_TIMEOUT", routing.DefaultQuoteTimeout),
		QuoteConcurrency: getEnvAsInt("QUOTE_CONCURRENCY", routing.DefaultMaxConcurrency),
		VenueRateLimit:   getEnvAsFloat("VENUE_RATE_LIMIT", 10),

		CorrelationThreshold:    getEnvAsFloat("CORRELATION_THRESHOLD", tuning.CorrelationThreshold),
		CorrelationPenaltyScale: getEnvAsFloat("CORRELATION_PENALTY_SCALE", tuning.CorrelationPenaltyScale),
		MaxCorrelationPenalty:   getEnvAsFloat("MAX_CORRELATION_PENALTY", tuning.MaxCorrelationPenalty),
		RiskParityBlend:         getEnvAsFloat("RISK_PARITY_BLEND", tuning.RiskParityBlend),
		DefaultVolatility:       getEnvAsFloat("DEFAULT_VOLATILITY", tuning.DefaultVolatility),

		MinWeight: getEnvAsFloat("MIN_WEIGHT", constraints.MinWeight),
		MaxWeight: getEnvAsFloat("MAX_WEIGHT", constraints.MaxWeight),
		MaxAssets: getEnvAsInt("MAX_ASSETS", constraints.MaxAssets),

		Universe:        universe,
		PaperSeed:       uint64(getEnvAsInt("PAPER_SEED", 1)),
		PaperWarmupDays: getEnvAsInt("PAPER_WARMUP_DAYS", 90),
		PaperVenues:     venues,
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration is usable
func (c *Config) Validate() error {
	if c.InitialPortfolioValue <= 0 {
		return fmt.Errorf("INITIAL_PORTFOLIO_VALUE must be positive, got %v", c.InitialPortfolioValue)
	}
	if c.OrderRetention < 0 {
		return fmt.Errorf("ORDER_RETENTION must not be negative, got %s", c.OrderRetention)
	}
	if c.RebalanceSchedule == "" {
		return fmt.Errorf("REBALANCE_SCHEDULE is required")
	}
	if len(c.Universe) == 0 {
		return fmt.Errorf("UNIVERSE must list at least one symbol")
	}
	if len(c.PaperVenues) == 0 {
		return fmt.Errorf("PAPER_VENUES must list at least one venue")
	}
	if c.VenueRateLimit < 0 {
		return fmt.Errorf("VENUE_RATE_LIMIT must be non-negative, got %v", c.VenueRateLimit)
	}
	if err := c.Constraints().Validate(); err != nil {
		return fmt.Errorf("invalid constraints: %w", err)
	}
	if err := c.Thresholds().Validate(); err != nil {
		return fmt.Errorf("invalid thresholds: %w", err)
	}
	return nil
}

// Tuning returns the optimizer tuning constants
func (c *Config) Tuning() optimization.Tuning {
	return optimization.Tuning{
		CorrelationThreshold:    c.CorrelationThreshold,
		CorrelationPenaltyScale: c.CorrelationPenaltyScale,
		MaxCorrelationPenalty:   c.MaxCorrelationPenalty,
		RiskParityBlend:         c.RiskParityBlend,
		DefaultVolatility:       c.DefaultVolatility,
	}
}

// Constraints returns the optimizer constraints
func (c *Config) Constraints() optimization.Constraints {
	return optimization.Constraints{
		MinWeight: c.MinWeight,
		MaxWeight: c.MaxWeight,
		MaxAssets: c.MaxAssets,
	}
}

// Thresholds returns the portfolio execution thresholds
func (c *Config) Thresholds() portfolio.Thresholds {
	return portfolio.Thresholds{
		Dust:              c.DustThreshold,
		SmallNotional:     c.SmallOrderNotional,
		LargeNotional:     c.LargeOrderNotional,
		TWAPDuration:      c.TWAPDuration,
		TWAPIntervals:     c.TWAPIntervals,
		IcebergSlices:     c.IcebergSlices,
		IcebergInterval:   c.IcebergInterval,
		IcebergPriceRange: c.IcebergPriceRange,
		MaxLegRetries:     c.MaxLegRetries,
	}
}

// RouterOptions returns the smart router options
func (c *Config) RouterOptions() routing.Options {
	opts := routing.DefaultOptions()
	opts.QuoteTimeout = c.QuoteTimeout
	opts.MaxConcurrency = c.QuoteConcurrency
	return opts
}

// Symbols returns the universe symbols in lexical order
func (c *Config) Symbols() []string {
	out := make([]string, 0, len(c.Universe))
	for s := range c.Universe {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// parseUniverse parses "SYM:price,SYM:price".
func parseUniverse(raw string) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, item := range splitList(raw) {
		symbol, priceStr, ok := strings.Cut(item, ":")
		if !ok || symbol == "" {
			return nil, fmt.Errorf("expected SYMBOL:PRICE, got %q", item)
		}
		price, err := strconv.ParseFloat(priceStr, 64)
		if err != nil || price <= 0 {
			return nil, fmt.Errorf("invalid price for %s: %q", symbol, priceStr)
		}
		out[strings.ToUpper(symbol)] = price
	}
	return out, nil
}

// parseVenues parses "name:fee:latency:liquidity:spread" entries.
func parseVenues(raw string) ([]paper.VenueConfig, error) {
	var out []paper.VenueConfig
	for _, item := range splitList(raw) {
		parts := strings.Split(item, ":")
		if len(parts) != 5 || parts[0] == "" {
			return nil, fmt.Errorf("expected name:fee:latency:liquidity:spread, got %q", item)
		}
		fee, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid fee for venue %s: %w", parts[0], err)
		}
		latency, err := time.ParseDuration(parts[2])
		if err != nil {
			return nil, fmt.Errorf("invalid latency for venue %s: %w", parts[0], err)
		}
		liquidity, err := strconv.ParseFloat(parts[3], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid liquidity for venue %s: %w", parts[0], err)
		}
		spread, err := strconv.ParseFloat(parts[4], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid spread for venue %s: %w", parts[0], err)
		}
		out = append(out, paper.VenueConfig{
			Name:      parts[0],
			Fee:       fee,
			Latency:   latency,
			Liquidity: liquidity,
			Spread:    spread,
		})
	}
	return out, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
