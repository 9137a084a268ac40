package cluster

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// clearEnv makes sure no NASC_* variable leaks in from the host.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{
		EnvCoordinatorURL, EnvIndexerURL, EnvBrokerURL, EnvRouterURL,
		EnvLogLevel, EnvReadinessTimeout, EnvReadinessMaxTries,
	} {
		t.Setenv(env, "")
		require.NoError(t, os.Unsetenv(env))
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(), cfg)
	assert.False(t, cfg.HasRouter())
}

func TestLoadConfig_YAML(t *testing.T) {
	clearEnv(t)

	path := writeFile(t, "cluster.yaml", `
coordinator_url: http://coordinator:8081
indexer_url: http://overlord:8090
broker_url: http://broker:8082
router_url: http://router:8888
readiness:
  initial_interval: 100ms
  timeout: 30s
  max_tries: 10
`)

	cfg, err := LoadConfig(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "http://coordinator:8081", cfg.CoordinatorURL)
	assert.Equal(t, "http://overlord:8090", cfg.IndexerURL)
	assert.Equal(t, "http://broker:8082", cfg.BrokerURL)
	assert.True(t, cfg.HasRouter())
	assert.Equal(t, 100*time.Millisecond, cfg.Readiness.InitialInterval)
	assert.Equal(t, 5*time.Second, cfg.Readiness.MaxInterval, "unset fields keep their defaults")
	assert.Equal(t, 30*time.Second, cfg.Readiness.Timeout)
	assert.Equal(t, uint(10), cfg.Readiness.MaxTries)
}

func TestLoadConfig_MissingFileIsIgnored(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().CoordinatorURL, cfg.CoordinatorURL)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	clearEnv(t)

	path := writeFile(t, "cluster.yaml", "coordinator_url: [unterminated")
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "parsing cluster config")
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := writeFile(t, "cluster.yaml", "router_url: http://router:8888\n")
	t.Setenv(EnvRouterURL, "http://other-router:9999")
	t.Setenv(EnvReadinessTimeout, "2m")
	t.Setenv(EnvReadinessMaxTries, "7")

	cfg, err := LoadConfig(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "http://other-router:9999", cfg.RouterURL)
	assert.Equal(t, 2*time.Minute, cfg.Readiness.Timeout)
	assert.Equal(t, uint(7), cfg.Readiness.MaxTries)
}

func TestLoadConfig_EmptyEnvClearsRouter(t *testing.T) {
	clearEnv(t)

	path := writeFile(t, "cluster.yaml", "router_url: http://router:8888\n")
	t.Setenv(EnvRouterURL, "")

	cfg, err := LoadConfig(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.False(t, cfg.HasRouter())
}

func TestLoadConfig_DotEnv(t *testing.T) {
	clearEnv(t)

	envFile := writeFile(t, "test.env", "NASC_BROKER_URL=http://broker-from-dotenv:8082\n")
	t.Cleanup(func() { _ = os.Unsetenv(EnvBrokerURL) })

	cfg, err := LoadConfig("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "http://broker-from-dotenv:8082", cfg.BrokerURL)
}

func TestLoadConfig_ProcessEnvBeatsDotEnv(t *testing.T) {
	clearEnv(t)

	envFile := writeFile(t, "test.env", "NASC_BROKER_URL=http://broker-from-dotenv:8082\n")
	t.Setenv(EnvBrokerURL, "http://broker-from-env:8082")

	cfg, err := LoadConfig("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "http://broker-from-env:8082", cfg.BrokerURL)
}

func TestLoadConfig_BadEnvValues(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
	}{
		{"timeout", EnvReadinessTimeout, "soon"},
		{"max tries", EnvReadinessMaxTries, "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.env, tt.val)

			_, err := LoadConfig("", filepath.Join(t.TempDir(), "missing.env"))
			assert.ErrorContains(t, err, tt.env)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"no router is fine", func(c *Config) { c.RouterURL = "" }, ""},
		{"missing coordinator", func(c *Config) { c.CoordinatorURL = "" }, "coordinator_url is required"},
		{"missing indexer", func(c *Config) { c.IndexerURL = "" }, "indexer_url is required"},
		{"missing broker", func(c *Config) { c.BrokerURL = "" }, "broker_url is required"},
		{"unbounded readiness", func(c *Config) {
			c.Readiness.Timeout = 0
			c.Readiness.MaxTries = 0
		}, "readiness needs a timeout or max_tries"},
		{"tries only", func(c *Config) { c.Readiness.Timeout = 0 }, ""},
		{"not a URL", func(c *Config) { c.BrokerURL = "broker" }, `broker_url must be a URL, got "broker"`},
		{"bad router URL", func(c *Config) { c.RouterURL = "router:8888/" }, "router_url must be a URL"},
		{"unknown log level", func(c *Config) { c.LogLevel = "chatty" }, "log_level must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
