// Package config loads CLI settings from config.yaml, .env and NCDATA_* environment variables.
package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/ncdata-cli/internal/tabular"
)

// Config is the root configuration.
type Config struct {
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Address AddressConfig `yaml:"address" mapstructure:"address"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Scrape  ScrapeConfig  `yaml:"scrape" mapstructure:"scrape"`
	Retry   RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// AddressConfig describes the address input file.
type AddressConfig struct {
	Column    string `yaml:"column" mapstructure:"column"`
	Encoding  string `yaml:"encoding" mapstructure:"encoding"`
	Delimiter string `yaml:"delimiter" mapstructure:"delimiter"`
}

// GeocodeConfig configures the Geoapify client.
type GeocodeConfig struct {
	APIKey       string  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	Concurrency  int     `yaml:"concurrency" mapstructure:"concurrency"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CacheTTLDays int     `yaml:"cache_ttl_days" mapstructure:"cache_ttl_days"`
}

// StoreConfig configures the geocode cache backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ScrapeConfig configures the certified-lab site crawl.
type ScrapeConfig struct {
	StartURL      string `yaml:"start_url" mapstructure:"start_url"`
	SelectXPath   string `yaml:"select_xpath" mapstructure:"select_xpath"`
	LabLinkXPath  string `yaml:"lab_link_xpath" mapstructure:"lab_link_xpath"`
	ReadySelector string `yaml:"ready_selector" mapstructure:"ready_selector"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Headless      bool   `yaml:"headless" mapstructure:"headless"`
	BrowserBin    string `yaml:"browser_bin" mapstructure:"browser_bin"`
	MaxLabs       int    `yaml:"max_labs" mapstructure:"max_labs"`
	SchemaPath    string `yaml:"schema_path" mapstructure:"schema_path"`
}

// RetryConfig configures backoff for transient remote failures.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// OutputConfig controls written tables.
type OutputConfig struct {
	Format      string         `yaml:"format" mapstructure:"format"`
	LabsPath    string         `yaml:"labs_path" mapstructure:"labs_path"`
	ColumnMoves []tabular.Move `yaml:"column_moves" mapstructure:"column_moves"`
}

// Load reads configuration from file and environment. A .env file in the
// working directory is loaded first; variables already set win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("NCDATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("address.column", "Address")
	v.SetDefault("address.encoding", "latin1")
	v.SetDefault("geocode.api_key", "")
	v.SetDefault("geocode.base_url", "https://api.geoapify.com")
	v.SetDefault("geocode.rate_limit", 5.0)
	v.SetDefault("geocode.concurrency", 4)
	v.SetDefault("geocode.timeout_secs", 30)
	v.SetDefault("geocode.cache_ttl_days", 90)
	v.SetDefault("store.driver", "none")
	v.SetDefault("store.path", "ncdata-cache.db")
	v.SetDefault("store.database_url", "")
	v.SetDefault("scrape.start_url", "https://slphreporting.dph.ncdhhs.gov/Certification/CertifiedLaboratory.asp")
	v.SetDefault("scrape.select_xpath", "//a[@href='#' and contains(@onclick, 'selectOnClick')]")
	v.SetDefault("scrape.lab_link_xpath", "//a[contains(@href, 'Javascript:labNameOnClick')]")
	v.SetDefault("scrape.ready_selector", ".required")
	v.SetDefault("scrape.timeout_secs", 30)
	v.SetDefault("scrape.headless", true)
	v.SetDefault("scrape.max_labs", 0)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.max_backoff_ms", 30000)
	v.SetDefault("output.format", "")
	v.SetDefault("output.labs_path", "NC_State_certified_labs.csv")

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

// Validate checks the settings a command mode needs. Modes: "geocode", "scrape".
func (c *Config) Validate(mode string) error {
	var problems []string
	switch mode {
	case "geocode":
		if c.Geocode.APIKey == "" {
			problems = append(problems, "geocode.api_key is required")
		}
		if c.Geocode.Concurrency < 1 {
			problems = append(problems, "geocode.concurrency must be at least 1")
		}
		if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	case "scrape":
		if c.Scrape.StartURL == "" {
			problems = append(problems, "scrape.start_url is required")
		}
		if c.Scrape.TimeoutSecs < 1 {
			problems = append(problems, "scrape.timeout_secs must be at least 1")
		}
		if c.Scrape.MaxLabs < 0 {
			problems = append(problems, "scrape.max_labs must not be negative")
		}
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
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
