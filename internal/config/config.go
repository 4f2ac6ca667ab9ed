package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	// HTTP server settings
	APIAddr     string
	APIKey      string
	DevMode     bool
	CORSOrigins []string

	// RPC settings
	RPCUrl       string
	RPCTimeout   time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	// Aggregator settings
	JupiterBaseURL  string
	JupiterPriceURL string
	JupiterAPIKey   string

	// Redis settings
	RedisAddr string

	// ClickHouse audit settings (disabled when Addr is empty)
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// Treasury settings
	TreasuryPrivateKey string
	FeePercent         decimal.Decimal
	NetworkFeeEstimate decimal.Decimal
}

func Load() *Config {
	return &Config{
		// HTTP
		APIAddr:     getEnv("API_ADDR", ":8001"),
		APIKey:      getEnv("API_KEY", ""),
		DevMode:     getBoolEnv("DEV_MODE", false),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "*"), ","),

		// RPC
		RPCUrl:       getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		RPCTimeout:   getDurationEnv("RPC_TIMEOUT", 30*time.Second),
		MaxRetries:   getIntEnv("MAX_RETRIES", 3),
		RetryBackoff: getDurationEnv("RETRY_BACKOFF", time.Second),

		// Aggregator
		JupiterBaseURL:  getEnv("JUPITER_BASE_URL", "https://quote-api.jup.ag/v6"),
		JupiterPriceURL: getEnv("JUPITER_PRICE_URL", "https://api.jup.ag/price/v2"),
		JupiterAPIKey:   getEnv("JUPITER_API_KEY", ""),

		// Redis
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "erebus"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// Treasury
		TreasuryPrivateKey: getEnv("TREASURY_PRIVATE_KEY", ""),
		FeePercent:         getDecimalEnv("TRANSFER_FEE_PERCENT", "0.01"),
		NetworkFeeEstimate: getDecimalEnv("NETWORK_FEE_ESTIMATE", "0.000005"),
	}
}

func (c *Config) Validate() error {
	if c.RPCUrl == "" {
		return fmt.Errorf("SOLANA_RPC_URL is required")
	}
	if c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}
	if c.FeePercent.IsNegative() || c.FeePercent.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("TRANSFER_FEE_PERCENT must be within 0..1")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getDecimalEnv(key, defaultVal string) decimal.Decimal {
	if val := os.Getenv(key); val != "" {
		if d, err := decimal.NewFromString(val); err == nil {
			return d
		}
	}
	d, _ := decimal.NewFromString(defaultVal)
	return d
}
