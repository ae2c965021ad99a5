package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  port: 9090
  webhook_secret: file-secret
  internal_key: file-key
database:
  path: /var/lib/forwarder/forwarder.db
public_base_url: https://forwarder.example.com
btcpay:
  base_url: https://btcpay.example.com
  api_key: btcpay-key
lnurl:
  base_url: https://rail.example.com
lnd:
  rest_url: https://lnd.example.com:8080
  macaroon_hex: abcd
offramp:
  base_url: https://offramp.example.com
  username: user
  password: pass
  refresh_minutes: 30
http_timeout_seconds: 10
logging:
  level: debug
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "file-secret", cfg.WebhookSecret)
	assert.Equal(t, "/var/lib/forwarder/forwarder.db", cfg.DBPath)
	assert.Equal(t, "https://btcpay.example.com", cfg.BTCPayBaseURL)
	assert.Equal(t, 30*time.Minute, cfg.OffRampRefreshInterval)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.OffRampEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "forwarder.db", cfg.DBPath)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.False(t, cfg.OffRampEnabled())
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET", "env-secret")
	t.Setenv("PORT", "7070")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.WebhookSecret)
	assert.Equal(t, 7070, cfg.Port)
}

func TestValidateRequiredFields(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Error(t, cfg.Validate(), "defaults alone must not pass validation")

	cfg.WebhookSecret = "s"
	cfg.BTCPayBaseURL = "https://btcpay.example.com"
	cfg.LNURLBaseURL = "https://rail.example.com"
	assert.Error(t, cfg.Validate(), "lnd rest url still missing")

	cfg.LNDRestURL = "https://lnd.example.com:8080"
	assert.NoError(t, cfg.Validate())
}
