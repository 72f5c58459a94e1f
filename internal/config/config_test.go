package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Client.Relays)
	assert.Equal(t, 10*time.Second, cfg.Client.ConnectTimeout)
	assert.Equal(t, 30*time.Second, cfg.Client.CollectTimeout)
	assert.Equal(t, 2, cfg.Client.POWWorkers)
	assert.Equal(t, 20, cfg.Client.MaxSendsPerSecond)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9187, cfg.Metrics.Port)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
client:
  relays:
    - wss://relay.example.com
  collect_timeout: 5s
logging:
  level: debug
`), 0o600))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"wss://relay.example.com"}, cfg.Client.Relays)
	assert.Equal(t, 5*time.Second, cfg.Client.CollectTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// untouched keys keep their defaults
	assert.Equal(t, 10*time.Second, cfg.Client.ConnectTimeout)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("NORC_CLIENT_POW_WORKERS", "8")
	t.Setenv("NORC_LOGGING_LEVEL", "warn")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Client.POWWorkers)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"bad relay url": `
client:
  relays:
    - http://not-a-relay
`,
		"log level": `
logging:
  level: loud
`,
		"timeout too short": `
client:
  connect_timeout: 10ms
`,
		"metrics port": `
metrics:
  port: 80
`,
	}
	for name, yaml := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
			_, err := Load(path, nil)
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsBadSecretKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
identity:
  secret_key: "not a key"
`), 0o600))
	_, err := Load(path, nil)
	assert.Error(t, err)
}
