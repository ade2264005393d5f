package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Notify     NotifyConfig     `yaml:"notify" mapstructure:"notify"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Guidance   GuidanceConfig   `yaml:"guidance" mapstructure:"guidance"`
	Seed       SeedConfig       `yaml:"seed" mapstructure:"seed"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Engine     EngineConfig     `yaml:"engine" mapstructure:"engine"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// NotionConfig holds Notion API credentials and the lead database ID.
type NotionConfig struct {
	Token  string `yaml:"token" mapstructure:"token"`
	LeadDB string `yaml:"lead_db" mapstructure:"lead_db"`
}

// NotifyConfig configures lead and reminder delivery.
type NotifyConfig struct {
	WebhookURL  string `yaml:"webhook_url" mapstructure:"webhook_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// PricingConfig configures the unit price cache.
type PricingConfig struct {
	FreshnessDays    int     `yaml:"freshness_days" mapstructure:"freshness_days"`
	Provider         string  `yaml:"provider" mapstructure:"provider"`
	StaticConfidence float64 `yaml:"static_confidence" mapstructure:"static_confidence"`
}

// GuidanceConfig configures the AI explanation advisor.
type GuidanceConfig struct {
	Enabled          bool `yaml:"enabled" mapstructure:"enabled"`
	TimeoutSecs      int  `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	FailureThreshold int  `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetSecs        int  `yaml:"reset_secs" mapstructure:"reset_secs"`
}

// SeedConfig configures the price seeding job.
type SeedConfig struct {
	Concurrency int     `yaml:"concurrency" mapstructure:"concurrency"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	CacheSize      int      `yaml:"cache_size" mapstructure:"cache_size"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// EngineConfig overrides engine thresholds and service costs. Zero values
// keep the calibrated defaults.
type EngineConfig struct {
	HorizonYears             int                `yaml:"horizon_years" mapstructure:"horizon_years"`
	InflationRate            float64            `yaml:"inflation_rate" mapstructure:"inflation_rate"`
	SedimentFlushDueLbs      float64            `yaml:"sediment_flush_due_lbs" mapstructure:"sediment_flush_due_lbs"`
	SedimentDebtLbs          float64            `yaml:"sediment_debt_lbs" mapstructure:"sediment_debt_lbs"`
	SedimentLockoutLbs       float64            `yaml:"sediment_lockout_lbs" mapstructure:"sediment_lockout_lbs"`
	AnodeBudgetYears         float64            `yaml:"anode_budget_years" mapstructure:"anode_budget_years"`
	AnodeBudgetSoftenedYears float64            `yaml:"anode_budget_softened_years" mapstructure:"anode_budget_softened_years"`
	ServiceCosts             map[string]float64 `yaml:"service_costs" mapstructure:"service_costs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OPTERRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "opterra.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cache_size", 1024)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 512)
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("notify.timeout_secs", 10)
	v.SetDefault("pricing.freshness_days", 30)
	v.SetDefault("pricing.provider", "anthropic")
	v.SetDefault("pricing.static_confidence", 0.3)
	v.SetDefault("guidance.enabled", true)
	v.SetDefault("guidance.timeout_secs", 8)
	v.SetDefault("guidance.failure_threshold", 5)
	v.SetDefault("guidance.reset_secs", 60)
	v.SetDefault("seed.concurrency", 4)
	v.SetDefault("seed.rate_per_sec", 2.0)
	v.SetDefault("seed.max_retries", 3)

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

// Validate checks the settings a command mode needs before it starts.
// Modes: "assess", "serve", "seed", "remind", "migrate".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "assess":
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.CacheSize < 0 {
			errs = append(errs, "server.cache_size must be >= 0")
		}
		errs = append(errs, c.storeErrors()...)
	case "seed":
		errs = append(errs, c.storeErrors()...)
		switch c.Pricing.Provider {
		case "anthropic":
			if c.Anthropic.Key == "" {
				errs = append(errs, "anthropic.key is required")
			}
		case "perplexity":
			if c.Perplexity.Key == "" {
				errs = append(errs, "perplexity.key is required")
			}
		default:
			errs = append(errs, fmt.Sprintf("pricing.provider %q must be anthropic or perplexity", c.Pricing.Provider))
		}
		if c.Seed.Concurrency < 1 || c.Seed.Concurrency > 32 {
			errs = append(errs, "seed.concurrency must be between 1 and 32")
		}
		if c.Seed.RatePerSec <= 0 {
			errs = append(errs, "seed.rate_per_sec must be > 0")
		}
	case "remind":
		errs = append(errs, c.storeErrors()...)
		if c.Notify.WebhookURL == "" {
			errs = append(errs, "notify.webhook_url is required")
		}
	case "migrate":
		errs = append(errs, c.storeErrors()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Pricing.FreshnessDays <= 0 {
		errs = append(errs, "pricing.freshness_days must be > 0")
	}
	if c.Pricing.StaticConfidence < 0 || c.Pricing.StaticConfidence > 1 {
		errs = append(errs, "pricing.static_confidence must be between 0 and 1")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) storeErrors() []string {
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return []string{"store.sqlite_path is required for the sqlite driver"}
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required for the postgres driver"}
		}
	default:
		return []string{fmt.Sprintf("store.driver %q must be sqlite or postgres", c.Store.Driver)}
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
