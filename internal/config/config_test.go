package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageFile, cfg.Storage.Driver)
	assert.Equal(t, "inventory_data.json", cfg.Storage.DataFile)
	assert.Equal(t, "0.08", cfg.Billing.DefaultTaxRate.String())
	assert.Equal(t, time.Second, cfg.Worker.DebounceWindow)
	assert.Equal(t, 300*time.Second, cfg.Cache.ProductTTL)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:8080"}, cfg.Server.AllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("STORAGE_DRIVER", "Postgres")
	t.Setenv("DEFAULT_TAX_RATE", "0.2")
	t.Setenv("DB_NAME", "shop")
	t.Setenv("REDIS_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoragePostgres, cfg.Storage.Driver)
	assert.Equal(t, "0.2", cfg.Billing.DefaultTaxRate.String())
	assert.True(t, cfg.Redis.Enabled)
	assert.Contains(t, cfg.GetDSN(), "dbname=shop")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "bad duration", key: "SERVER_READ_TIMEOUT", val: "soon"},
		{name: "bad tax rate", key: "DEFAULT_TAX_RATE", val: "eight"},
		{name: "tax rate above one", key: "DEFAULT_TAX_RATE", val: "8"},
		{name: "tax rate too precise", key: "DEFAULT_TAX_RATE", val: "0.08125"},
		{name: "unknown driver", key: "STORAGE_DRIVER", val: "mongo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			t.Cleanup(viper.Reset)
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
