package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/dumbdevss/vault-app/internal/scheduler"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	AggregatorURL          string
	AggregatorAPIKey       string
	IndexerURL             string
	ChainID                int
	DatabaseURL            string
	QuoteTimeout           time.Duration
	QuoteDebounce          time.Duration
	QuoteRefreshInterval   time.Duration
	CatalogRefreshInterval time.Duration
	HTTPPort               string
	AdminAPIKey            string
	SheetsSpreadsheetID    string
	SheetsCredentialsJSON  string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		AggregatorURL:          envOrDefault("AGGREGATOR_URL", "https://api.panora.exchange"),
		AggregatorAPIKey:       envOrDefaultWarn("AGGREGATOR_API_KEY", ""),
		IndexerURL:             envOrDefault("INDEXER_URL", "https://api.mainnet.aptoslabs.com/v1/graphql"),
		ChainID:                envOrDefaultInt("CHAIN_ID", 1),
		DatabaseURL:            envOrDefault("DATABASE_URL", ""),
		QuoteTimeout:           envOrDefaultDuration("QUOTE_TIMEOUT", 10*time.Second),
		QuoteDebounce:          envOrDefaultDuration("QUOTE_DEBOUNCE", scheduler.DefaultDebounce),
		QuoteRefreshInterval:   envOrDefaultDuration("QUOTE_REFRESH_INTERVAL", scheduler.DefaultRefreshInterval),
		CatalogRefreshInterval: envOrDefaultDuration("CATALOG_REFRESH_INTERVAL", 5*time.Minute),
		HTTPPort:               envOrDefault("HTTP_PORT", "8080"),
		AdminAPIKey:            envOrDefault("ADMIN_API_KEY", ""),
		SheetsSpreadsheetID:    envOrDefault("SHEETS_SPREADSHEET_ID", ""),
		SheetsCredentialsJSON:  envOrDefault("SHEETS_CREDENTIALS_JSON", ""),
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultWarn(key, defaultVal string) string {
	v := envOrDefault(key, defaultVal)
	if v == "" {
		slog.Warn("required env var not set", "key", key)
	}
	return v
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}
