package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestGetDefaults(t *testing.T) {
	t.Setenv(EnvLighterROToken, "ro:test-token")

	path := writeConfig(t, "account_index: \"42\"\n")

	cfg, err := Get(path)
	require.NoError(t, err)

	assert.Equal(t, int64(42), cfg.AccountIndex)
	assert.Equal(t, "ro:test-token", cfg.LighterROToken)
	assert.Equal(t, 50, cfg.MaxPages)
	assert.Equal(t, "600", cfg.ApproxDepositTarget.String())
	assert.Equal(t, "75", cfg.ApproxDepositBand.String())
	assert.Equal(t, "1", cfg.FxRate.String())
	assert.False(t, cfg.Binance.Enabled)
	assert.False(t, cfg.Bybit.Enabled)
}

func TestGetFullConfig(t *testing.T) {
	t.Setenv(EnvLighterROToken, "ro:test-token")
	t.Setenv(EnvBinanceAPIKey, "key")
	t.Setenv(EnvBinanceAPISecret, "secret")

	path := writeConfig(t, `
account_index: "42"
market_id: "7"
l1_address: "0x52908400098527886E0F7030069857D2E4169EE7"
max_pages: "10"
approx_deposit_target: "500"
approx_deposit_band: "50"
fx_rate: "1350"
inject_inferred_deposit: true
binance_enabled: true
binance_symbols: ["BTCUSDT"]
`)

	cfg, err := Get(path)
	require.NoError(t, err)

	assert.Equal(t, int64(7), cfg.MarketID)
	assert.Equal(t, 10, cfg.MaxPages)
	assert.Equal(t, "500", cfg.ApproxDepositTarget.String())
	assert.Equal(t, "1350", cfg.FxRate.String())
	assert.True(t, cfg.InjectInferredDep)
	assert.True(t, cfg.Binance.Enabled)
	assert.Equal(t, []string{"BTCUSDT"}, cfg.Binance.Symbols)
	assert.Equal(t, "key", cfg.Binance.APIKey)
}

func TestGetValidation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"missing account index", "market_id: \"7\"\n", "account_index"},
		{"bad account index", "account_index: \"abc\"\n", "account_index"},
		{"bad l1 address", "account_index: \"1\"\nl1_address: \"not-an-address\"\n", "l1_address"},
		{"bad max pages", "account_index: \"1\"\nmax_pages: \"-3\"\n", "max_pages"},
		{"bad fx rate", "account_index: \"1\"\nfx_rate: \"0\"\n", "fx_rate"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Get(writeConfig(t, tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestGetCEXRequiresEnvKeys(t *testing.T) {
	t.Setenv(EnvLighterROToken, "ro:test-token")
	t.Setenv(EnvBybitAPIKey, "")
	t.Setenv(EnvBybitAPISecret, "")

	path := writeConfig(t, "account_index: \"1\"\nbybit_enabled: true\n")

	_, err := Get(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BYBIT_API_KEY")
}
