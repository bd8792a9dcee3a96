package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalYAML = `
environment: test
backend:
  type: clickhouse
feed:
  symbols: [AAPL]
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "flow-signals", cfg.Kafka.Topic)
	assert.Equal(t, int64(1000), cfg.Detection.Sweep.WindowMs)
	assert.Equal(t, 2, cfg.Detection.Sweep.MinExchanges)
	assert.Equal(t, 50000.0, cfg.Detection.Sweep.MinPremium)
	assert.Equal(t, 1000000.0, cfg.Detection.Premium.MegaWhale)
	assert.Equal(t, 5, cfg.Detection.Accumulation.LookbackDays)
	assert.InDelta(t, 1.0, cfg.Detection.WeightSum(), 1e-9)
}

func TestLoadMissingEnvironment(t *testing.T) {
	_, err := Load(writeConfig(t, `
backend:
  type: kafka
feed:
  symbols: [AAPL]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "environment")
}

func TestLoadBadBackend(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
backend:
  type: postgres
feed:
  symbols: [AAPL]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend.type")
}

func TestLoadNoSymbols(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
backend:
  type: kafka
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "symbols")
}

func TestDetectionWeightSumValidation(t *testing.T) {
	d := DefaultDetection()
	d.Conviction.Weights.PremiumSize = 0.50
	err := d.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weights must sum")
}

func TestDetectionMinExchangesValidation(t *testing.T) {
	d := DefaultDetection()
	d.Sweep.MinExchanges = 1
	err := d.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_exchanges")
}

func TestDetectionPositiveThresholds(t *testing.T) {
	d := DefaultDetection()
	d.Premium.Whale = -1
	assert.Error(t, d.Validate())

	d = DefaultDetection()
	assert.NoError(t, d.Validate())
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("SYMBOLS", "SPY,QQQ")
	t.Setenv("BACKEND", "kafka")

	cfg, err := LoadWithEnv(writeConfig(t, minimalYAML))
	require.NoError(t, err)
	assert.Equal(t, []string{"SPY", "QQQ"}, cfg.Feed.Symbols)
	assert.Equal(t, "kafka", cfg.Backend.Type)
}
