package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Len(t, cfg.ActiveExchanges(), 2)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
num_exchanges: 3
simulation_duration_ms: 500
risk:
  max_position_per_instrument: 2000
  max_total_position: 50000
  max_capital: 10000000
  max_order_size: 1000
  max_orders_per_second: 10000
  max_price_deviation_pct: 5.0
  max_drawdown_pct: 2.0
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 3, cfg.NumExchanges)
	require.Equal(t, uint64(500), cfg.SimulationDurationMs)
	require.Equal(t, int64(2000), cfg.Risk.MaxPositionPerInstrument)
	// Untouched fields keep defaults.
	require.Equal(t, 65536, cfg.OrderQueueSize)
	require.Equal(t, path, cfg.ConfigPath)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load("does/not/exist.yaml")
	require.Error(t, err)
}

func TestValidateRejectsNonPowerOfTwoQueue(t *testing.T) {
	cfg := Default()
	cfg.OrderQueueSize = 1000
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsInvertedMomentumWindows(t *testing.T) {
	cfg := Default()
	cfg.MomentumFastWindow = 30
	cfg.MomentumSlowWindow = 10
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsExcessNumExchanges(t *testing.T) {
	cfg := Default()
	cfg.NumExchanges = 4
	cfg.Exchanges = cfg.Exchanges[:2]
	require.Error(t, cfg.Validate())
}
