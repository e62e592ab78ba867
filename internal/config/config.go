package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string
	LogLevel    string
	MarketTime  MarketTimeConfig
	Shopify     ShopifyConfig
	Sync        SyncConfig
	ExportDir   string
}

// MarketTimeConfig is used to call the MarketTime public API
type MarketTimeConfig struct {
	APIKey    string // API_KEY: x-api-key header
	WhoAmI    string // WHOAMI: tenant path segment in the public API URL
	BaseURL   string // override for tests; empty means the public endpoint
	PageLimit int    // server-side cap on orders/get page size
}

type ShopifyConfig struct {
	ShopDomain  string
	AccessToken string
	APIVersion  string
}

// SyncConfig holds run tunables for retries, de-dupe pagination and
// optional PO scoping.
type SyncConfig struct {
	RetryCount        int
	RestPageLimit     int      // draft_orders.json page size for the de-dupe fallback
	MaxPagesPerStatus int      // safety cap per draft status during REST scan
	POWhitelist       []string // when non-empty, only these PO numbers are processed
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")

	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("SHOPIFY_API_VERSION", "2024-10")
	viper.SetDefault("SOURCE_PAGE_LIMIT", "50")
	viper.SetDefault("RETRY_COUNT", "3")
	viper.SetDefault("REST_PAGE_LIMIT", "250")
	viper.SetDefault("MAX_PAGES_PER_STATUS", "100")
	viper.SetDefault("EXPORT_DIR", "exports")

	viper.AutomaticEnv()

	// Try to read .env file (optional)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		LogLevel:    getEnvOrViper("LOG_LEVEL", "info"),
		MarketTime: MarketTimeConfig{
			APIKey:    strings.TrimSpace(getEnvOrViper("API_KEY", "")),
			WhoAmI:    strings.TrimSpace(getEnvOrViper("WHOAMI", "")),
			BaseURL:   strings.TrimSpace(getEnvOrViper("MT_BASE_URL", "")),
			PageLimit: viper.GetInt("SOURCE_PAGE_LIMIT"),
		},
		Shopify: ShopifyConfig{
			ShopDomain:  strings.TrimSpace(getEnvOrViper("SHOPIFY_STORE", "")),
			AccessToken: strings.TrimSpace(getEnvOrViper("SHOPIFY_TOKEN", "")),
			APIVersion:  getEnvOrViper("SHOPIFY_API_VERSION", "2024-10"),
		},
		Sync: SyncConfig{
			RetryCount:        viper.GetInt("RETRY_COUNT"),
			RestPageLimit:     viper.GetInt("REST_PAGE_LIMIT"),
			MaxPagesPerStatus: viper.GetInt("MAX_PAGES_PER_STATUS"),
			POWhitelist:       splitList(getEnvOrViper("PO_WHITELIST", "")),
		},
		ExportDir: getEnvOrViper("EXPORT_DIR", "exports"),
	}

	// Validate required fields
	if cfg.MarketTime.APIKey == "" {
		return nil, fmt.Errorf("API_KEY is required")
	}
	if cfg.MarketTime.WhoAmI == "" {
		return nil, fmt.Errorf("WHOAMI is required")
	}
	if cfg.Shopify.ShopDomain == "" {
		return nil, fmt.Errorf("SHOPIFY_STORE is required")
	}
	if cfg.Shopify.AccessToken == "" {
		return nil, fmt.Errorf("SHOPIFY_TOKEN is required")
	}

	return cfg, nil
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}

func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
