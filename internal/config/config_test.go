package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("API_KEY", "mt-key")
	t.Setenv("WHOAMI", "acme")
	t.Setenv("SHOPIFY_STORE", "shop.myshopify.com")
	t.Setenv("SHOPIFY_TOKEN", "shpat_test")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mt-key", cfg.MarketTime.APIKey)
	assert.Equal(t, "acme", cfg.MarketTime.WhoAmI)
	assert.Equal(t, 50, cfg.MarketTime.PageLimit)
	assert.Equal(t, "2024-10", cfg.Shopify.APIVersion)
	assert.Equal(t, 3, cfg.Sync.RetryCount)
	assert.Equal(t, 250, cfg.Sync.RestPageLimit)
	assert.Equal(t, 100, cfg.Sync.MaxPagesPerStatus)
	assert.Empty(t, cfg.Sync.POWhitelist)
	assert.Equal(t, "exports", cfg.ExportDir)
}

func TestLoadMissingRequired(t *testing.T) {
	tests := []struct {
		name string
		omit string
	}{
		{"api key", "API_KEY"},
		{"whoami", "WHOAMI"},
		{"shop domain", "SHOPIFY_STORE"},
		{"access token", "SHOPIFY_TOKEN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.omit, "")

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.omit)
		})
	}
}

func TestLoadPOWhitelist(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PO_WHITELIST", "PO-1, PO-2 ,,PO-3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"PO-1", "PO-2", "PO-3"}, cfg.Sync.POWhitelist)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Nil(t, splitList("  "))
	assert.Equal(t, []string{"a"}, splitList("a"))
}
