package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. COGNATES_SPARQL_ENDPOINT.
const EnvPrefix = "COGNATES"

// Config holds all configuration for the application
type Config struct {
	Log            LogConfig            `mapstructure:"log"`
	Server         ServerConfig         `mapstructure:"server"`
	Sparql         SparqlConfig         `mapstructure:"sparql"`
	Wiktionary     WiktionaryConfig     `mapstructure:"wiktionary"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Cache          CacheConfig          `mapstructure:"cache"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Search         SearchConfig         `mapstructure:"search"`
	Prefetch       PrefetchConfig       `mapstructure:"prefetch"`
	Lemma          LemmaConfig          `mapstructure:"lemma"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// SparqlConfig points at the etymology graph store.
type SparqlConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// WiktionaryConfig holds the dictionary endpoints.
type WiktionaryConfig struct {
	RESTBase  string `mapstructure:"rest_base"`
	WebBase   string `mapstructure:"web_base"`
	ActionAPI string `mapstructure:"action_api"`
	// FinderBase is the cognate finder URL rewritten definition links
	// point at.
	FinderBase string        `mapstructure:"finder_base"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig holds the sqlite session database location.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// CacheConfig selects the memoization store. An empty Dir keeps caches in
// memory for the life of the process.
type CacheConfig struct {
	Dir string `mapstructure:"dir"`
}

// CircuitBreakerConfig holds configuration for circuit breaking
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	ReadyToTripRatio float64       `mapstructure:"ready_to_trip_ratio"`
}

// SearchConfig tunes search sessions.
type SearchConfig struct {
	MinInterval           time.Duration `mapstructure:"min_interval"`
	IncludeIdentityChains bool          `mapstructure:"include_identity_chains"`
	MaxPaths              int           `mapstructure:"max_paths"`
}

// PrefetchConfig tunes background definition prefetching.
type PrefetchConfig struct {
	Enabled   bool `mapstructure:"enabled"`
	Workers   int  `mapstructure:"workers"`
	BatchSize int  `mapstructure:"batch_size"`
}

// LemmaConfig toggles Japanese lemma normalisation of search words.
type LemmaConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Addr returns the server listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load decodes configuration from v, after registering defaults and
// environment overrides on it. A nil v uses the global viper instance.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.GetViper()
	}
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// SetDefaults sets default configuration values
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")

	v.SetDefault("sparql.endpoint", "https://etytree-virtuoso.wmflabs.org/sparql")
	v.SetDefault("sparql.timeout", 30*time.Second)

	v.SetDefault("wiktionary.rest_base", "https://en.wiktionary.org/api")
	v.SetDefault("wiktionary.web_base", "https://en.wiktionary.org")
	v.SetDefault("wiktionary.action_api", "https://en.wiktionary.org/w/api.php")
	v.SetDefault("wiktionary.finder_base", "https://cognates.vercel.app/")
	v.SetDefault("wiktionary.timeout", 15*time.Second)

	v.SetDefault("database.path", "cognates.db")
	v.SetDefault("cache.dir", "")

	v.SetDefault("circuit_breaker.enabled", true)
	v.SetDefault("circuit_breaker.max_requests", 1)
	v.SetDefault("circuit_breaker.interval", time.Minute)
	v.SetDefault("circuit_breaker.timeout", 30*time.Second)
	v.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)

	v.SetDefault("search.min_interval", time.Second)
	v.SetDefault("search.include_identity_chains", false)
	v.SetDefault("search.max_paths", 10000)

	v.SetDefault("prefetch.enabled", true)
	v.SetDefault("prefetch.workers", 4)
	v.SetDefault("prefetch.batch_size", 20)

	v.SetDefault("lemma.enabled", true)
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	if c.Sparql.Endpoint == "" {
		return fmt.Errorf("sparql.endpoint must be set")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}
