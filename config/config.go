// Package config loads the application configuration: file paths, thresholds,
// server and logging options. A YAML file overrides the defaults field by
// field; command-line flags override the file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/warp/wage-compliance/fixes"
	"github.com/warp/wage-compliance/generic"
	"github.com/warp/wage-compliance/prp"
	"github.com/warp/wage-compliance/rag"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Rates      RatesConfig      `yaml:"rates"`
	Rules      RulesConfig      `yaml:"rules"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	Batch      BatchConfig      `yaml:"batch"`
	Log        LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	// Path of the SQLite file; ":memory:" keeps records for the process lifetime.
	Path string `yaml:"path"`
}

type RatesConfig struct {
	// Path of the rate document; empty uses the embedded UK rates.
	Path           string        `yaml:"path"`
	ReloadInterval time.Duration `yaml:"reload_interval"`
}

type RulesConfig struct {
	// Path of the component rule document; empty uses the embedded rules.
	Path string `yaml:"path"`
}

type ThresholdsConfig struct {
	DeductionRatio             generic.Decimal `yaml:"deduction_ratio"`
	NegligibleShortfallPerHour generic.Decimal `yaml:"negligible_shortfall_per_hour"`
	UrgentShortfallPercent     generic.Decimal `yaml:"urgent_shortfall_percent"`
	WeeklyHoursCeiling         generic.Decimal `yaml:"weekly_hours_ceiling"`
	LowMarginPerHour           generic.Decimal `yaml:"low_margin_per_hour"`
}

type BatchConfig struct {
	Workers     int `yaml:"workers"`
	MaxRequests int `yaml:"max_requests"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	rc := rag.DefaultConfig()
	fc := fixes.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Database: DatabaseConfig{Path: "compliance.db"},
		Rates:    RatesConfig{ReloadInterval: time.Minute},
		Thresholds: ThresholdsConfig{
			DeductionRatio:             generic.Decimal{Decimal: rc.DeductionRatioThreshold},
			NegligibleShortfallPerHour: generic.Decimal{Decimal: fc.NegligibleShortfallPerHour},
			UrgentShortfallPercent:     generic.Decimal{Decimal: fc.UrgentShortfallPercent},
			WeeklyHoursCeiling:         generic.Decimal{Decimal: fc.WeeklyHoursCeiling},
			LowMarginPerHour:           generic.Decimal{Decimal: fc.LowMarginPerHour},
		},
		Batch: BatchConfig{Workers: 8, MaxRequests: 1000},
		Log:   LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &generic.ConfigurationError{Source: path, Err: err}
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &generic.ConfigurationError{Source: path, Err: fmt.Errorf("parse config: %w", err)}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &generic.ConfigurationError{Source: path, Err: err}
	}
	return cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers must be at least 1, got %d", c.Batch.Workers)
	}
	if c.Batch.MaxRequests < 1 {
		return fmt.Errorf("batch.max_requests must be at least 1, got %d", c.Batch.MaxRequests)
	}
	if c.Rates.ReloadInterval < 0 {
		return fmt.Errorf("rates.reload_interval must not be negative")
	}
	t := c.Thresholds
	for name, v := range map[string]decimal.Decimal{
		"deduction_ratio":               t.DeductionRatio.Decimal,
		"negligible_shortfall_per_hour": t.NegligibleShortfallPerHour.Decimal,
		"urgent_shortfall_percent":      t.UrgentShortfallPercent.Decimal,
		"weekly_hours_ceiling":          t.WeeklyHoursCeiling.Decimal,
		"low_margin_per_hour":           t.LowMarginPerHour.Decimal,
	} {
		if !v.IsPositive() {
			return fmt.Errorf("thresholds.%s must be positive, got %s", name, v)
		}
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// =============================================================================
// COMPONENT CONFIGS
// =============================================================================

func (c *Config) ClassifierConfig() rag.Config {
	return rag.Config{DeductionRatioThreshold: c.Thresholds.DeductionRatio.Decimal}
}

func (c *Config) FixesConfig() fixes.Config {
	return fixes.Config{
		NegligibleShortfallPerHour: c.Thresholds.NegligibleShortfallPerHour.Decimal,
		UrgentShortfallPercent:     c.Thresholds.UrgentShortfallPercent.Decimal,
		WeeklyHoursCeiling:         c.Thresholds.WeeklyHoursCeiling.Decimal,
		LowMarginPerHour:           c.Thresholds.LowMarginPerHour.Decimal,
	}
}

// LoadRules reads the component rule document, or the embedded one.
func (c *Config) LoadRules() (*prp.Rules, error) {
	if c.Rules.Path == "" {
		return prp.DefaultRules()
	}
	data, err := os.ReadFile(c.Rules.Path)
	if err != nil {
		return nil, &generic.ConfigurationError{Source: c.Rules.Path, Err: err}
	}
	return prp.ParseRules(data, c.Rules.Path)
}

// NewLogger builds the root zap logger.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
