package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "localhost:8080", cfg.Server.Addr())
	assert.Equal(t, "https://etytree-virtuoso.wmflabs.org/sparql", cfg.Sparql.Endpoint)
	assert.Equal(t, 30*time.Second, cfg.Sparql.Timeout)
	assert.Equal(t, "https://en.wiktionary.org/api", cfg.Wiktionary.RESTBase)
	assert.Equal(t, "cognates.db", cfg.Database.Path)
	assert.Empty(t, cfg.Cache.Dir)
	assert.True(t, cfg.CircuitBreaker.Enabled)
	assert.Equal(t, 0.6, cfg.CircuitBreaker.ReadyToTripRatio)
	assert.Equal(t, time.Second, cfg.Search.MinInterval)
	assert.Equal(t, 10000, cfg.Search.MaxPaths)
	assert.True(t, cfg.Lemma.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".cognates.yaml")
	content := `
log:
  level: debug
  format: json
sparql:
  endpoint: http://localhost:8890/sparql
  timeout: 5s
cache:
  dir: /tmp/cognates-cache
search:
  min_interval: 250ms
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "http://localhost:8890/sparql", cfg.Sparql.Endpoint)
	assert.Equal(t, 5*time.Second, cfg.Sparql.Timeout)
	assert.Equal(t, "/tmp/cognates-cache", cfg.Cache.Dir)
	assert.Equal(t, 250*time.Millisecond, cfg.Search.MinInterval)
	// Untouched keys keep their defaults.
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("COGNATES_SPARQL_ENDPOINT", "http://env.example/sparql")
	t.Setenv("COGNATES_SERVER_PORT", "9090")
	t.Setenv("COGNATES_LEMMA_ENABLED", "false")

	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "http://env.example/sparql", cfg.Sparql.Endpoint)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.False(t, cfg.Lemma.Enabled)
}

func TestValidate(t *testing.T) {
	v := viper.New()
	v.Set("log.format", "xml")
	_, err := Load(v)
	assert.ErrorContains(t, err, "log.format")

	v = viper.New()
	v.Set("server.port", 70000)
	_, err = Load(v)
	assert.ErrorContains(t, err, "server.port")
}
