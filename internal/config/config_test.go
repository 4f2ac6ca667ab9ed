package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8001", cfg.APIAddr)
	assert.Equal(t, "https://api.mainnet-beta.solana.com", cfg.RPCUrl)
	assert.Equal(t, 30*time.Second, cfg.RPCTimeout)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Empty(t, cfg.ClickHouseAddr, "audit sink disabled by default")
	assert.True(t, cfg.FeePercent.Equal(decimal.RequireFromString("0.01")))
	assert.True(t, cfg.NetworkFeeEstimate.Equal(decimal.RequireFromString("0.000005")))
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("API_ADDR", ":9000")
	t.Setenv("RPC_TIMEOUT", "5s")
	t.Setenv("MAX_RETRIES", "7")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("TRANSFER_FEE_PERCENT", "0.02")

	cfg := Load()
	assert.Equal(t, ":9000", cfg.APIAddr)
	assert.Equal(t, 5*time.Second, cfg.RPCTimeout)
	assert.Equal(t, 7, cfg.MaxRetries)
	assert.True(t, cfg.DevMode)
	assert.True(t, cfg.FeePercent.Equal(decimal.RequireFromString("0.02")))
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("MAX_RETRIES", "many")
	t.Setenv("RPC_TIMEOUT", "soon")
	t.Setenv("TRANSFER_FEE_PERCENT", "one percent")

	cfg := Load()
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.RPCTimeout)
	assert.True(t, cfg.FeePercent.Equal(decimal.RequireFromString("0.01")))
}

func TestValidate(t *testing.T) {
	cfg := Load()
	require.NoError(t, cfg.Validate())

	cfg.RPCUrl = ""
	assert.Error(t, cfg.Validate())

	cfg = Load()
	cfg.RedisAddr = ""
	assert.Error(t, cfg.Validate())

	cfg = Load()
	cfg.FeePercent = decimal.RequireFromString("1.5")
	assert.Error(t, cfg.Validate())

	cfg = Load()
	cfg.FeePercent = decimal.RequireFromString("-0.01")
	assert.Error(t, cfg.Validate())
}
