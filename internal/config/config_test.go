package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trader.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const validYAML = `
okx:
  api_key: test-key
  secret_key: test-secret
  passphrase: test-phrase
  sim: true
system:
  log_level: DEBUG
trading:
  symbol: BTC-USDT-SWAP
`

func TestParseValidConfig(t *testing.T) {
	cfg, err := parseFile(writeConfig(t, validYAML))
	require.NoError(t, err)

	require.Equal(t, "test-key", cfg.Okx.APIKey)
	require.True(t, cfg.Okx.Sim)
	require.Equal(t, "DEBUG", cfg.System.LogLevel)
	require.Equal(t, "BTC-USDT-SWAP", cfg.Trading.Symbol)

	// Defaults
	require.Equal(t, 64, cfg.Engine.QueueSize)
	require.Equal(t, 64, cfg.Okx.QueueSize)
	require.Equal(t, 9090, cfg.System.MetricsPort)
	require.Equal(t, 10.0, cfg.Okx.RequestsPerSec)
}

func TestMissingCredentialsRejected(t *testing.T) {
	_, err := parseFile(writeConfig(t, `
okx:
  api_key: test-key
system:
  log_level: INFO
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "secret_key")
	require.Contains(t, err.Error(), "passphrase")
}

func TestInvalidLogLevelRejected(t *testing.T) {
	_, err := parseFile(writeConfig(t, `
okx:
  api_key: a
  secret_key: b
  passphrase: c
system:
  log_level: LOUD
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "log_level")
}

func TestEnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_OKX_KEY", "from-env")

	cfg, err := parseFile(writeConfig(t, `
okx:
  api_key: ${TEST_OKX_KEY}
  secret_key: s
  passphrase: p
`))
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Okx.APIKey)
}

func TestNoticeRequiresWebhookWhenEnabled(t *testing.T) {
	_, err := parseFile(writeConfig(t, `
okx:
  api_key: a
  secret_key: b
  passphrase: c
notice:
  enabled: true
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "webhook_url")
}

func TestStringMasksCredentials(t *testing.T) {
	cfg, err := parseFile(writeConfig(t, `
okx:
  api_key: supersecretapikey
  secret_key: anothersecretvalue
  passphrase: p
`))
	require.NoError(t, err)

	rendered := cfg.String()
	require.NotContains(t, rendered, "supersecretapikey")
	require.NotContains(t, rendered, "anothersecretvalue")
	require.Contains(t, rendered, "supe")

	// The in-memory config stays intact.
	require.Equal(t, "supersecretapikey", cfg.Okx.APIKey)
}
