package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Execution mode and exchange credentials
	ExecutionMode string // "paper" or "live"
	ClobAPIKey    string
	ClobSecret    string
	ClobPassphrase string
	WalletPrivateKey string
	ProxyAddress  string
	SignatureType int
	RPCURL        string

	// Live order-book feed (internal/bookview.LiveProvider); unused in paper mode
	BookFeedURL string

	// Market/strategy configuration sources
	MarketsConfigPath  string // JSON file: []strategy.MarketConfig
	StrategyConfigPath string // JSON file: map[conditionID][]strategyID
	ParamsConfigPath   string // JSON file: map[paramType]strategy.StrategyParams

	// Position cache sizing (internal/poscache.RistrettoCache)
	PosCacheNumCounters int64
	PosCacheMaxCost     int64
	PosCacheBufferItems int64

	// Risk-off
	RiskOffDir   string // directory for internal/riskcache JSON records
	MinMergeSize float64

	// Optional Postgres mirror of risk-off events (internal/riskstore)
	RiskStoreEnabled bool
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPass     string
	PostgresDB       string
	PostgresSSL      string

	// Cycle pacing
	MarketPollInterval time.Duration
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		ExecutionMode:    getEnvOrDefault("EXECUTION_MODE", "paper"),
		ClobAPIKey:       os.Getenv("CLOB_API_KEY"),
		ClobSecret:       os.Getenv("CLOB_SECRET"),
		ClobPassphrase:   os.Getenv("CLOB_PASSPHRASE"),
		WalletPrivateKey: os.Getenv("WALLET_PRIVATE_KEY"),
		ProxyAddress:     os.Getenv("PROXY_ADDRESS"),
		SignatureType:    getIntOrDefault("SIGNATURE_TYPE", 1),
		RPCURL:           getEnvOrDefault("RPC_URL", "https://polygon-rpc.com"),
		BookFeedURL:      getEnvOrDefault("BOOK_FEED_URL", "wss://ws-subscriptions-clob.polymarket.com/ws/market"),

		MarketsConfigPath:  getEnvOrDefault("MARKETS_CONFIG_PATH", "config/markets.json"),
		StrategyConfigPath: getEnvOrDefault("STRATEGY_CONFIG_PATH", "config/strategy_config.json"),
		ParamsConfigPath:   getEnvOrDefault("PARAMS_CONFIG_PATH", "config/params.json"),

		PosCacheNumCounters: getInt64OrDefault("POSCACHE_NUM_COUNTERS", 1e5),
		PosCacheMaxCost:     getInt64OrDefault("POSCACHE_MAX_COST", 1<<20),
		PosCacheBufferItems: getInt64OrDefault("POSCACHE_BUFFER_ITEMS", 64),

		RiskOffDir:   getEnvOrDefault("RISK_OFF_DIR", "positions"),
		MinMergeSize: getFloat64OrDefault("MIN_MERGE_SIZE", 5.0),

		RiskStoreEnabled: getBoolOrDefault("RISK_STORE_ENABLED", false),
		PostgresHost:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnvOrDefault("POSTGRES_USER", "polystrat"),
		PostgresPass:     getEnvOrDefault("POSTGRES_PASSWORD", "polystrat123"),
		PostgresDB:       getEnvOrDefault("POSTGRES_DB", "polystrat"),
		PostgresSSL:      getEnvOrDefault("POSTGRES_SSLMODE", "disable"),

		MarketPollInterval: getDurationOrDefault("MARKET_POLL_INTERVAL", 2*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return errors.New("HTTP_PORT cannot be empty")
	}

	if c.ExecutionMode != "paper" && c.ExecutionMode != "live" {
		return fmt.Errorf("EXECUTION_MODE must be 'paper' or 'live', got %q", c.ExecutionMode)
	}

	if c.ExecutionMode == "live" {
		if c.ClobAPIKey == "" || c.ClobSecret == "" || c.ClobPassphrase == "" {
			return errors.New("CLOB_API_KEY, CLOB_SECRET, CLOB_PASSPHRASE are required when EXECUTION_MODE=live")
		}
		if c.WalletPrivateKey == "" {
			return errors.New("WALLET_PRIVATE_KEY is required when EXECUTION_MODE=live")
		}
	}

	if c.MinMergeSize < 0 {
		return fmt.Errorf("MIN_MERGE_SIZE must be non-negative, got %f", c.MinMergeSize)
	}

	if c.PosCacheNumCounters <= 0 || c.PosCacheMaxCost <= 0 || c.PosCacheBufferItems <= 0 {
		return errors.New("POSCACHE_NUM_COUNTERS, POSCACHE_MAX_COST, POSCACHE_BUFFER_ITEMS must be positive")
	}

	if c.RiskStoreEnabled && (c.PostgresHost == "" || c.PostgresDB == "") {
		return errors.New("POSTGRES_HOST and POSTGRES_DB are required when RISK_STORE_ENABLED=true")
	}

	if c.MarketPollInterval <= 0 {
		return fmt.Errorf("MARKET_POLL_INTERVAL must be positive, got %s", c.MarketPollInterval)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}
