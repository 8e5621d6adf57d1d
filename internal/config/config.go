package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/geodir/internal/db"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Geocode    GeocodeConfig    `yaml:"geocode" mapstructure:"geocode"`
	Enrich     EnrichConfig     `yaml:"enrich" mapstructure:"enrich"`
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Categories CategoriesConfig `yaml:"categories" mapstructure:"categories"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	DatabaseURL string        `yaml:"database_url" mapstructure:"database_url"`
	Pool        db.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// GeocodeConfig configures the geocoding provider.
type GeocodeConfig struct {
	Provider     string `yaml:"provider" mapstructure:"provider"` // "nominatim" or "google"
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	APIKey       string `yaml:"api_key" mapstructure:"api_key"`
	UserAgent    string `yaml:"user_agent" mapstructure:"user_agent"`
	CountryCodes string `yaml:"country_codes" mapstructure:"country_codes"`
	Language     string `yaml:"language" mapstructure:"language"`
	TimeoutSecs  int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Retries      int    `yaml:"retries" mapstructure:"retries"`
	BackoffMs    int    `yaml:"backoff_ms" mapstructure:"backoff_ms"`
	CacheEnabled bool   `yaml:"cache_enabled" mapstructure:"cache_enabled"`
	CacheTTLDays int    `yaml:"cache_ttl_days" mapstructure:"cache_ttl_days"`
}

// Timeout returns the per-request timeout.
func (g GeocodeConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSecs) * time.Second
}

// EnrichConfig configures the enrichment pipeline.
type EnrichConfig struct {
	Async            bool `yaml:"async" mapstructure:"async"`
	QueueSize        int  `yaml:"queue_size" mapstructure:"queue_size"`
	MinIntervalMs    int  `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`
	BreakerThreshold int  `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int  `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// MinInterval returns the minimum gap between provider calls.
func (e EnrichConfig) MinInterval() time.Duration {
	return time.Duration(e.MinIntervalMs) * time.Millisecond
}

// BreakerReset returns how long the breaker stays open.
func (e EnrichConfig) BreakerReset() time.Duration {
	return time.Duration(e.BreakerResetSecs) * time.Second
}

// SearchConfig configures full-text search.
type SearchConfig struct {
	Language string `yaml:"language" mapstructure:"language"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port              int      `yaml:"port" mapstructure:"port"`
	CORSOrigins       []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	AdminEnabled      bool     `yaml:"admin_enabled" mapstructure:"admin_enabled"`
	ReadRPS           float64  `yaml:"read_rps" mapstructure:"read_rps"`
	ReadBurst         int      `yaml:"read_burst" mapstructure:"read_burst"`
	ProposalRPS       float64  `yaml:"proposal_rps" mapstructure:"proposal_rps"`
	ProposalBurst     int      `yaml:"proposal_burst" mapstructure:"proposal_burst"`
	CategoryCacheSecs int      `yaml:"category_cache_secs" mapstructure:"category_cache_secs"`
	ShutdownSecs      int      `yaml:"shutdown_secs" mapstructure:"shutdown_secs"`
}

// CategoriesConfig configures category lifecycle rules.
type CategoriesConfig struct {
	DeletePolicy string `yaml:"delete_policy" mapstructure:"delete_policy"` // restrict, nullify or cascade
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("GEODIR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Every key is registered so AutomaticEnv can see it.
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.pool.max_conns", 10)
	v.SetDefault("store.pool.min_conns", 1)
	v.SetDefault("geocode.provider", "nominatim")
	v.SetDefault("geocode.base_url", "")
	v.SetDefault("geocode.api_key", "")
	v.SetDefault("geocode.user_agent", "geodir/1.0")
	v.SetDefault("geocode.country_codes", "ro")
	v.SetDefault("geocode.language", "ro")
	v.SetDefault("geocode.timeout_secs", 10)
	v.SetDefault("geocode.retries", 2)
	v.SetDefault("geocode.backoff_ms", 1000)
	v.SetDefault("geocode.cache_enabled", false)
	v.SetDefault("geocode.cache_ttl_days", 90)
	v.SetDefault("enrich.async", true)
	v.SetDefault("enrich.queue_size", 256)
	v.SetDefault("enrich.min_interval_ms", 500)
	v.SetDefault("enrich.breaker_threshold", 5)
	v.SetDefault("enrich.breaker_reset_secs", 60)
	v.SetDefault("search.language", "romanian")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.admin_enabled", false)
	v.SetDefault("server.read_rps", 5)
	v.SetDefault("server.read_burst", 20)
	v.SetDefault("server.proposal_rps", 0.01)
	v.SetDefault("server.proposal_burst", 3)
	v.SetDefault("server.category_cache_secs", 300)
	v.SetDefault("server.shutdown_secs", 10)
	v.SetDefault("categories.delete_policy", "restrict")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks values that would otherwise fail deep inside a command.
func (c *Config) Validate() error {
	switch c.Geocode.Provider {
	case "nominatim":
	case "google":
		if c.Geocode.APIKey == "" {
			return eris.New("config: geocode.api_key is required for the google provider")
		}
	default:
		return eris.Errorf("config: unknown geocode.provider %q", c.Geocode.Provider)
	}
	switch c.Categories.DeletePolicy {
	case "", "restrict", "nullify", "cascade":
	default:
		return eris.Errorf("config: unknown categories.delete_policy %q", c.Categories.DeletePolicy)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return eris.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if c.Enrich.MinIntervalMs < 0 {
		return eris.New("config: enrich.min_interval_ms must not be negative")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
