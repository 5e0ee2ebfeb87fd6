// Package config loads application configuration from file and
// environment and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	EDGAR    EDGARConfig    `yaml:"edgar" mapstructure:"edgar"`
	Taxonomy TaxonomyConfig `yaml:"taxonomy" mapstructure:"taxonomy"`
	Resolve  ResolveConfig  `yaml:"resolve" mapstructure:"resolve"`
	Recon    ReconConfig    `yaml:"recon" mapstructure:"recon"`
	Batch    BatchConfig    `yaml:"batch" mapstructure:"batch"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// EDGARConfig configures access to the SEC data APIs. The SEC rejects
// requests without a descriptive User-Agent, so the default must be
// overridden with a real contact address in production.
type EDGARConfig struct {
	UserAgent    string `yaml:"user_agent" mapstructure:"user_agent"`
	DataBaseURL  string `yaml:"data_base_url" mapstructure:"data_base_url"`
	FilesBaseURL string `yaml:"files_base_url" mapstructure:"files_base_url"`
	TimeoutSecs  int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries   int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// TaxonomyConfig configures which us-gaap taxonomy releases to load.
type TaxonomyConfig struct {
	BaseURL  string   `yaml:"base_url" mapstructure:"base_url"`
	Versions []string `yaml:"versions" mapstructure:"versions"`
}

// ResolveConfig configures concept resolution.
type ResolveConfig struct {
	Scorer string  `yaml:"scorer" mapstructure:"scorer"`
	Alpha  float64 `yaml:"alpha" mapstructure:"alpha"`
	TopN   int     `yaml:"top_n" mapstructure:"top_n"`
}

// ReconConfig configures reconciliation.
type ReconConfig struct {
	CutoffYear int `yaml:"cutoff_year" mapstructure:"cutoff_year"`
	FromYear   int `yaml:"from_year" mapstructure:"from_year"`
	ToYear     int `yaml:"to_year" mapstructure:"to_year"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentEntities int `yaml:"max_concurrent_entities" mapstructure:"max_concurrent_entities"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("RECON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "edgar-recon.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("batch.max_concurrent_entities", 5)
	v.SetDefault("edgar.user_agent", "edgar-recon research@example.com")
	v.SetDefault("edgar.data_base_url", "https://data.sec.gov")
	v.SetDefault("edgar.files_base_url", "https://www.sec.gov")
	v.SetDefault("edgar.timeout_secs", 30)
	v.SetDefault("edgar.max_retries", 3)
	v.SetDefault("taxonomy.base_url", "https://xbrl.fasb.org")
	v.SetDefault("taxonomy.versions", []string{"2024", "2023"})
	v.SetDefault("resolve.scorer", "textual")
	v.SetDefault("resolve.alpha", 0.6)
	v.SetDefault("resolve.top_n", 10)
	v.SetDefault("recon.cutoff_year", 2014)
	v.SetDefault("recon.from_year", 2014)
	v.SetDefault("recon.to_year", 2024)

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
