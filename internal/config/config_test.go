package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSV(t *testing.T) {
	t.Parallel()

	assert.Nil(t, CSV(""))
	assert.Equal(t, []string{"a:9092", "b:9092"}, CSV(" a:9092 ,, b:9092 "))
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("FOODCLIENT_CONFIG", "")
	t.Setenv("API_BASE_URL", "http://backend:8080")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://backend:8080", cfg.APIBaseURL)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "memory", cfg.StorageDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, ":8081", cfg.ListenAddr)
	assert.Equal(t, "foods", cfg.ESIndex)
}

func TestLoad_YAMLFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "foodclient.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"api_base_url: http://from-file\nlisten_addr: \":9000\"\nsession_ttl: 30m\n",
	), 0o600))

	t.Setenv("FOODCLIENT_CONFIG", path)
	t.Setenv("API_BASE_URL", "")
	t.Setenv("LISTEN_ADDR", ":9100")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("STORAGE_DRIVER", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://from-file", cfg.APIBaseURL)
	assert.Equal(t, ":9100", cfg.ListenAddr)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "missing base url", mutate: func(c *Config) { c.APIBaseURL = "" }},
		{name: "unknown driver", mutate: func(c *Config) { c.StorageDriver = "mongo" }},
		{name: "redis without url", mutate: func(c *Config) { c.StorageDriver = "redis" }},
		{name: "non-positive ttl", mutate: func(c *Config) { c.SessionTTL = 0 }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := defaults()
			cfg.APIBaseURL = "http://backend"
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
