package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/akashaero/fairval/internal/solve"
)

// Config holds the full application configuration.
type Config struct {
	Provider    ProviderConfig    `yaml:"provider" mapstructure:"provider"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Assumptions AssumptionsConfig `yaml:"assumptions" mapstructure:"assumptions"`
	Solver      SolverConfig      `yaml:"solver" mapstructure:"solver"`
	Batch       BatchConfig       `yaml:"batch" mapstructure:"batch"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// ProviderConfig configures the market data source.
type ProviderConfig struct {
	BaseURL       string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent     string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries    int     `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerSec    float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	CacheTTLHours int     `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// CacheTTL returns the snapshot cache lifetime.
func (c ProviderConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`                 // sqlite file
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"` // postgres DSN
}

// AssumptionsConfig holds the default valuation knobs, overridable per run
// by command flags.
type AssumptionsConfig struct {
	HorizonYears   int     `yaml:"horizon_years" mapstructure:"horizon_years"`
	RequiredReturn float64 `yaml:"required_return" mapstructure:"required_return"`
	TerminalGrowth float64 `yaml:"terminal_growth" mapstructure:"terminal_growth"`
	GrowthRate     float64 `yaml:"growth_rate" mapstructure:"growth_rate"`
	FCFMargin      float64 `yaml:"fcf_margin" mapstructure:"fcf_margin"`
}

// BracketConfig is a search interval for one implied field.
type BracketConfig struct {
	Lo float64 `yaml:"lo" mapstructure:"lo"`
	Hi float64 `yaml:"hi" mapstructure:"hi"`
}

// SolverConfig configures the implied-parameter solver.
type SolverConfig struct {
	Tolerance     float64       `yaml:"tolerance" mapstructure:"tolerance"`
	MaxIterations int           `yaml:"max_iterations" mapstructure:"max_iterations"`
	GrowthBracket BracketConfig `yaml:"growth_bracket" mapstructure:"growth_bracket"`
	MarginBracket BracketConfig `yaml:"margin_bracket" mapstructure:"margin_bracket"`
	ReturnBracket BracketConfig `yaml:"return_bracket" mapstructure:"return_bracket"`
}

// Options converts the solver settings to solve.Options.
func (c SolverConfig) Options() solve.Options {
	return solve.Options{Tolerance: c.Tolerance, MaxIterations: c.MaxIterations}
}

// Brackets returns the per-field search intervals.
func (c SolverConfig) Brackets() map[solve.Field][2]float64 {
	return map[solve.Field][2]float64{
		solve.FieldGrowthRate:     {c.GrowthBracket.Lo, c.GrowthBracket.Hi},
		solve.FieldFCFMargin:      {c.MarginBracket.Lo, c.MarginBracket.Hi},
		solve.FieldRequiredReturn: {c.ReturnBracket.Lo, c.ReturnBracket.Hi},
	}
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentTickers int    `yaml:"max_concurrent_tickers" mapstructure:"max_concurrent_tickers"`
	ResultsDir           string `yaml:"results_dir" mapstructure:"results_dir"`
	SaveRuns             bool   `yaml:"save_runs" mapstructure:"save_runs"`
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
	v.SetEnvPrefix("FAIRVAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("provider.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("provider.user_agent", "Mozilla/5.0 (X11; Linux x86_64) fairval/1.0")
	v.SetDefault("provider.timeout_secs", 20)
	v.SetDefault("provider.max_retries", 3)
	v.SetDefault("provider.rate_per_sec", 0.4)
	v.SetDefault("provider.cache_ttl_hours", 6)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "fairval.db")
	v.SetDefault("assumptions.horizon_years", 7)
	v.SetDefault("assumptions.required_return", 0.10)
	v.SetDefault("assumptions.terminal_growth", 0.025)
	v.SetDefault("assumptions.growth_rate", 0.10)
	v.SetDefault("assumptions.fcf_margin", 0.20)
	v.SetDefault("solver.tolerance", 1e-6)
	v.SetDefault("solver.max_iterations", 200)
	v.SetDefault("solver.growth_bracket.lo", -0.50)
	v.SetDefault("solver.growth_bracket.hi", 1.00)
	v.SetDefault("solver.margin_bracket.lo", 0.001)
	v.SetDefault("solver.margin_bracket.hi", 0.95)
	v.SetDefault("solver.return_bracket.lo", 0.03)
	v.SetDefault("solver.return_bracket.hi", 0.60)
	v.SetDefault("batch.max_concurrent_tickers", 4)
	v.SetDefault("batch.results_dir", "results")
	v.SetDefault("batch.save_runs", true)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

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
