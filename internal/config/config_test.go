package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"MARKETPULSE_DATA_DIR", "MARKETPULSE_HTTP_ADDR", "MARKETPULSE_LOG_LEVEL",
		"MARKETPULSE_LOG_PRETTY", "MARKETPULSE_BINANCE_SYMBOLS", "MARKETPULSE_BINANCE_TRANSPORT",
		"MARKETPULSE_REST_POLL_SECONDS", "MARKETPULSE_BAR_INTERVALS", "MARKETPULSE_BACKUP_S3_BUCKET",
	}
	originals := make(map[string]string, len(keys))
	for _, k := range keys {
		originals[k] = os.Getenv(k)
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		for _, k := range keys {
			if v := originals[k]; v != "" {
				os.Setenv(k, v)
			} else {
				os.Unsetenv(k)
			}
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	tmp := t.TempDir()
	os.Setenv("MARKETPULSE_DATA_DIR", tmp)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, TransportAuto, cfg.BinanceTransport)
	assert.Equal(t, []string{"BTCUSDT"}, cfg.BinanceSymbols)
	assert.Contains(t, cfg.BarIntervals, "1m")
	assert.Equal(t, 2.0, cfg.BinanceRESTPollSeconds)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	clearEnv(t)
	tmp := t.TempDir()
	os.Setenv("MARKETPULSE_DATA_DIR", tmp)
	os.Setenv("MARKETPULSE_BINANCE_SYMBOLS", "ethusdt, solusdt")
	os.Setenv("MARKETPULSE_BINANCE_TRANSPORT", "rest")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{"ETHUSDT", "SOLUSDT"}, cfg.BinanceSymbols)
	assert.Equal(t, TransportREST, cfg.BinanceTransport)
}

func TestLoad_BarIntervalsAlwaysIncludeOneMinute(t *testing.T) {
	clearEnv(t)
	tmp := t.TempDir()
	os.Setenv("MARKETPULSE_DATA_DIR", tmp)
	os.Setenv("MARKETPULSE_BAR_INTERVALS", "5m,1h")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{"1m", "5m", "1h"}, cfg.BarIntervals)
}

func TestLoad_InvalidTransportRejected(t *testing.T) {
	clearEnv(t)
	tmp := t.TempDir()
	os.Setenv("MARKETPULSE_DATA_DIR", tmp)
	os.Setenv("MARKETPULSE_BINANCE_TRANSPORT", "carrier-pigeon")

	_, err := Load("")
	require.Error(t, err)
}

func TestLoad_StorePathDerivedFromDataDir(t *testing.T) {
	clearEnv(t)
	tmp := t.TempDir()
	os.Setenv("MARKETPULSE_DATA_DIR", tmp)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.DirExists(t, cfg.DataDir)
	assert.Contains(t, cfg.StorePath, "bars.db")
}
