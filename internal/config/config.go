package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/kegsizer/internal/driver"
	"github.com/eugenenazirov/kegsizer/internal/geometry"
	"github.com/eugenenazirov/kegsizer/internal/mass"
	"github.com/eugenenazirov/kegsizer/internal/optimizer"
	"github.com/eugenenazirov/kegsizer/internal/thermal"
)

const (
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > Environment variables > YAML config > Defaults
type Config struct {
	Port                 string
	LogLevel             string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int

	Enclosures []geometry.Enclosure
	Model      optimizer.Parameters
	Solver     optimizer.Settings
}

// yamlConfig represents the YAML configuration file structure. Physical sections are
// decoded on top of the current values so a file only needs the keys it changes.
type yamlConfig struct {
	Port                 string               `yaml:"port"`
	LogLevel             string               `yaml:"log_level"`
	ShutdownGracePeriod  string               `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string               `yaml:"read_header_timeout"`
	WriteTimeout         string               `yaml:"write_timeout"`
	IdleTimeout          string               `yaml:"idle_timeout"`
	EnableRequestLogging *bool                `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit        `yaml:"rate_limit"`
	Enclosures           []geometry.Enclosure `yaml:"enclosures"`
	Keg                  yamlKeg              `yaml:"keg"`
	Material             mass.Properties      `yaml:"material"`
	Thermal              thermal.Properties   `yaml:"thermal"`
	Solver               optimizer.Settings   `yaml:"solver"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

// yamlKeg represents the keg shape and fill section in YAML.
type yamlKeg struct {
	Spacing          float64 `yaml:"spacing"`
	AspectRatio      float64 `yaml:"aspect_ratio"`
	MaterialFraction float64 `yaml:"material_fraction"`
	LiquidDensity    float64 `yaml:"liquid_density"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	Port           *string
	LogLevel       *string
	EnclosuresStr  *string
	Spacing        *float64
	Method         *string
	RateLimitRPS   *float64
	RateLimitBurst *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > Environment variables > YAML config > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	// Load from YAML file if specified
	if overrides != nil && overrides.ConfigFile != "" {
		if err := loadFromFile(&cfg, overrides.ConfigFile); err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
	}

	// Apply environment variables (override YAML)
	if err := applyEnvConfig(&cfg); err != nil {
		return Config{}, err
	}

	// Apply CLI overrides (highest precedence)
	if overrides != nil {
		if err := applyCLIOverrides(&cfg, overrides); err != nil {
			return Config{}, err
		}
	}

	// Validate final configuration
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		LogLevel:             defaultLogLevel,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         60 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
		Enclosures:           driver.DefaultEnclosures(),
		Model:                optimizer.DefaultParameters(),
		Solver:               optimizer.DefaultSettings(),
	}
}

// loadFromFile loads configuration from a YAML file on top of cfg.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	yamlCfg := yamlConfig{
		Keg: yamlKeg{
			Spacing:          cfg.Model.Spacing,
			AspectRatio:      cfg.Model.AspectRatio,
			MaterialFraction: cfg.Model.MaterialFraction,
			LiquidDensity:    cfg.Model.LiquidDensity,
		},
		Material: cfg.Model.Material,
		Thermal:  cfg.Model.Thermal,
		Solver:   cfg.Solver,
	}
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return fmt.Errorf("parse YAML: %w", err)
	}

	return applyYAMLConfig(cfg, &yamlCfg)
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}

	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}

	durations := []struct {
		raw    string
		target *time.Duration
		name   string
	}{
		{yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod, "shutdown_grace_period"},
		{yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout, "read_header_timeout"},
		{yamlCfg.WriteTimeout, &cfg.WriteTimeout, "write_timeout"},
		{yamlCfg.IdleTimeout, &cfg.IdleTimeout, "idle_timeout"},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		value, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.name, err)
		}
		*d.target = value
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}

	if yamlCfg.RateLimit.RPS != nil {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}

	if yamlCfg.RateLimit.Burst != nil {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}

	if len(yamlCfg.Enclosures) > 0 {
		cfg.Enclosures = yamlCfg.Enclosures
	}

	cfg.Model.Spacing = yamlCfg.Keg.Spacing
	cfg.Model.AspectRatio = yamlCfg.Keg.AspectRatio
	cfg.Model.MaterialFraction = yamlCfg.Keg.MaterialFraction
	cfg.Model.LiquidDensity = yamlCfg.Keg.LiquidDensity
	cfg.Model.Material = yamlCfg.Material
	cfg.Model.Thermal = yamlCfg.Thermal
	cfg.Solver = yamlCfg.Solver

	return nil
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) error {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Port = port
	}

	if level := strings.TrimSpace(os.Getenv("LOG_LEVEL")); level != "" {
		cfg.LogLevel = level
	}

	if raw := strings.TrimSpace(os.Getenv("ENCLOSURES")); raw != "" {
		enclosures, err := geometry.ParseEnclosures(raw)
		if err != nil {
			return fmt.Errorf("parse ENCLOSURES: %w", err)
		}
		cfg.Enclosures = enclosures
	}

	if spacing := strings.TrimSpace(os.Getenv("SPACING")); spacing != "" {
		value, err := strconv.ParseFloat(spacing, 64)
		if err != nil {
			return fmt.Errorf("parse SPACING: %w", err)
		}
		cfg.Model.Spacing = value
	}

	if method := strings.TrimSpace(os.Getenv("SOLVER_METHOD")); method != "" {
		m, err := optimizer.ParseMethod(method)
		if err != nil {
			return fmt.Errorf("parse SOLVER_METHOD: %w", err)
		}
		cfg.Solver.Method = m
	}

	if rps := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}

	return nil
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) error {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}

	if overrides.EnclosuresStr != nil && *overrides.EnclosuresStr != "" {
		enclosures, err := geometry.ParseEnclosures(*overrides.EnclosuresStr)
		if err != nil {
			return fmt.Errorf("parse enclosures: %w", err)
		}
		cfg.Enclosures = enclosures
	}

	if overrides.Spacing != nil {
		cfg.Model.Spacing = *overrides.Spacing
	}

	if overrides.Method != nil && *overrides.Method != "" {
		m, err := optimizer.ParseMethod(*overrides.Method)
		if err != nil {
			return fmt.Errorf("parse method: %w", err)
		}
		cfg.Solver.Method = m
	}

	if overrides.RateLimitRPS != nil {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}

	return nil
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if len(cfg.Enclosures) == 0 {
		return fmt.Errorf("enclosures cannot be empty")
	}
	for _, e := range cfg.Enclosures {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	if err := cfg.Model.Validate(); err != nil {
		return fmt.Errorf("keg model: %w", err)
	}
	if err := cfg.Solver.Validate(); err != nil {
		return fmt.Errorf("solver: %w", err)
	}
	return nil
}
