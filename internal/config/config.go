package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/bento-grid/internal/layout"
	"github.com/eugenenazirov/bento-grid/internal/storage"
)

const (
	defaultPort           = "8080"
	defaultColumns        = 6
	defaultMaxColumns     = 24
	defaultLogLevel       = "info"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > config file > Environment variables > Defaults
type Config struct {
	Port                 string
	GridColumns          int
	MaxGridColumns       int
	ShuffleByDefault     bool
	InitialImages        []layout.ImageItem
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	LogLevel             string
	RateLimitRPS         float64
	RateLimitBurst       int
}

// fileConfig represents the YAML or TOML configuration file structure.
// Pointer fields distinguish "unset" from zero values.
type fileConfig struct {
	Port                 string             `yaml:"port" toml:"port"`
	Grid                 fileGrid           `yaml:"grid" toml:"grid"`
	Images               []layout.ImageItem `yaml:"images" toml:"images"`
	ShutdownGracePeriod  string             `yaml:"shutdown_grace_period" toml:"shutdown_grace_period"`
	ReadHeaderTimeout    string             `yaml:"read_header_timeout" toml:"read_header_timeout"`
	WriteTimeout         string             `yaml:"write_timeout" toml:"write_timeout"`
	IdleTimeout          string             `yaml:"idle_timeout" toml:"idle_timeout"`
	EnableRequestLogging *bool              `yaml:"enable_request_logging" toml:"enable_request_logging"`
	LogLevel             string             `yaml:"log_level" toml:"log_level"`
	RateLimit            fileRateLimit      `yaml:"rate_limit" toml:"rate_limit"`
}

// fileGrid represents the grid section.
type fileGrid struct {
	Columns    int   `yaml:"columns" toml:"columns"`
	MaxColumns int   `yaml:"max_columns" toml:"max_columns"`
	Shuffle    *bool `yaml:"shuffle" toml:"shuffle"`
}

// fileRateLimit represents the rate limit section.
type fileRateLimit struct {
	RPS   *float64 `yaml:"rps" toml:"rps"`
	Burst *int     `yaml:"burst" toml:"burst"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	Port           *string
	Columns        *int
	Shuffle        *bool
	LogLevel       *string
	RateLimitRPS   *float64
	RateLimitBurst *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > config file > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	// Apply environment variables
	applyEnvConfig(&cfg)

	// Load from file if specified (overrides environment)
	if overrides != nil && overrides.ConfigFile != "" {
		fileCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load config file: %w", err)
		}
		if err := applyFileConfig(&cfg, fileCfg); err != nil {
			return Config{}, err
		}
	}

	// Apply CLI overrides (highest precedence)
	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		GridColumns:          defaultColumns,
		MaxGridColumns:       defaultMaxColumns,
		ShuffleByDefault:     true,
		InitialImages:        storage.DefaultImages(),
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		LogLevel:             defaultLogLevel,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
	}
}

// loadFromFile loads configuration from a YAML file, or a TOML file when the
// path has a .toml extension.
func loadFromFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg fileConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), &fileCfg); err != nil {
			return nil, fmt.Errorf("parse TOML: %w", err)
		}
		return &fileCfg, nil
	}

	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	return &fileCfg, nil
}

// applyFileConfig applies file configuration to the Config struct.
func applyFileConfig(cfg *Config, fileCfg *fileConfig) error {
	if fileCfg.Port != "" {
		cfg.Port = fileCfg.Port
	}

	if fileCfg.Grid.Columns != 0 {
		cfg.GridColumns = fileCfg.Grid.Columns
	}
	if fileCfg.Grid.MaxColumns != 0 {
		cfg.MaxGridColumns = fileCfg.Grid.MaxColumns
	}
	if fileCfg.Grid.Shuffle != nil {
		cfg.ShuffleByDefault = *fileCfg.Grid.Shuffle
	}

	if len(fileCfg.Images) > 0 {
		images, err := storage.NormalizeImages(fileCfg.Images)
		if err != nil {
			return fmt.Errorf("parse images: %w", err)
		}
		cfg.InitialImages = images
	}

	durations := []struct {
		raw    string
		target *time.Duration
	}{
		{fileCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{fileCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{fileCfg.WriteTimeout, &cfg.WriteTimeout},
		{fileCfg.IdleTimeout, &cfg.IdleTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		if parsed, err := time.ParseDuration(d.raw); err == nil {
			*d.target = parsed
		}
	}

	if fileCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *fileCfg.EnableRequestLogging
	}

	if fileCfg.LogLevel != "" {
		cfg.LogLevel = fileCfg.LogLevel
	}

	if fileCfg.RateLimit.RPS != nil && *fileCfg.RateLimit.RPS >= 0 {
		cfg.RateLimitRPS = *fileCfg.RateLimit.RPS
	}

	if fileCfg.RateLimit.Burst != nil && *fileCfg.RateLimit.Burst >= 0 {
		cfg.RateLimitBurst = *fileCfg.RateLimit.Burst
	}

	return nil
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Port = port
	}

	if columns := strings.TrimSpace(os.Getenv("GRID_COLUMNS")); columns != "" {
		if value, err := strconv.Atoi(columns); err == nil && value > 0 {
			cfg.GridColumns = value
		}
	}

	if maxColumns := strings.TrimSpace(os.Getenv("GRID_MAX_COLUMNS")); maxColumns != "" {
		if value, err := strconv.Atoi(maxColumns); err == nil && value > 0 {
			cfg.MaxGridColumns = value
		}
	}

	if shuffle := strings.TrimSpace(os.Getenv("GRID_SHUFFLE")); shuffle != "" {
		if value, err := strconv.ParseBool(shuffle); err == nil {
			cfg.ShuffleByDefault = value
		}
	}

	if level := strings.TrimSpace(os.Getenv("LOG_LEVEL")); level != "" {
		cfg.LogLevel = level
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
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.Columns != nil && *overrides.Columns > 0 {
		cfg.GridColumns = *overrides.Columns
	}

	if overrides.Shuffle != nil {
		cfg.ShuffleByDefault = *overrides.Shuffle
	}

	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.GridColumns < 1 {
		return fmt.Errorf("grid columns must be >= 1")
	}
	if cfg.MaxGridColumns < cfg.GridColumns {
		return fmt.Errorf("grid max columns (%d) must be >= grid columns (%d)", cfg.MaxGridColumns, cfg.GridColumns)
	}
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if len(cfg.InitialImages) == 0 {
		return fmt.Errorf("image catalog cannot be empty")
	}
	return nil
}
