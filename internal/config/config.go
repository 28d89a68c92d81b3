package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/litrun/internal/shtest"
)

const (
	defaultSuiteFile      = "test/e2e/lit.cfg.yaml"
	defaultTestTimeout    = 60 * time.Second
	defaultHistorySize    = 10
	defaultPort           = "8080"
	defaultRateLimitRPS   = 5.0
	defaultRateLimitBurst = 10
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	ObjRoot     string        `yaml:"obj_root"`
	SuiteFile   string        `yaml:"suite_file"`
	Workers     int           `yaml:"workers"`
	TestTimeout time.Duration `yaml:"test_timeout"`
	Shell       string        `yaml:"shell"`
	Pipefail    bool          `yaml:"pipefail"`
	Filter      string        `yaml:"filter"`
	ResultsFile string        `yaml:"results_file"`
	ShowAll     bool          `yaml:"show_all"`
	LaunchRPS   float64       `yaml:"-"`
	LaunchBurst int           `yaml:"-"`
	Verbose     bool          `yaml:"verbose"`
	HistorySize int           `yaml:"history_size"`

	Port                 string        `yaml:"port"`
	ShutdownGracePeriod  time.Duration `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    time.Duration `yaml:"read_header_timeout"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	IdleTimeout          time.Duration `yaml:"idle_timeout"`
	EnableRequestLogging bool          `yaml:"enable_request_logging"`
	RateLimitRPS         float64       `yaml:"-"`
	RateLimitBurst       int           `yaml:"-"`
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	ObjRoot              string         `yaml:"obj_root"`
	SuiteFile            string         `yaml:"suite_file"`
	Workers              int            `yaml:"workers"`
	TestTimeout          string         `yaml:"test_timeout"`
	Shell                string         `yaml:"shell"`
	Pipefail             *bool          `yaml:"pipefail"`
	Filter               string         `yaml:"filter"`
	ResultsFile          string         `yaml:"results_file"`
	ShowAll              *bool          `yaml:"show_all"`
	LaunchRate           *yamlRateLimit `yaml:"launch_rate"`
	Verbose              *bool          `yaml:"verbose"`
	HistorySize          int            `yaml:"history_size"`
	Port                 string         `yaml:"port"`
	ShutdownGracePeriod  string         `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string         `yaml:"read_header_timeout"`
	WriteTimeout         string         `yaml:"write_timeout"`
	IdleTimeout          string         `yaml:"idle_timeout"`
	EnableRequestLogging *bool          `yaml:"enable_request_logging"`
	RateLimit            *yamlRateLimit `yaml:"rate_limit"`
}

// yamlRateLimit represents a token bucket section in YAML.
type yamlRateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	ObjRoot        *string
	SuiteFile      *string
	Workers        *int
	TestTimeout    *time.Duration
	Shell          *string
	Pipefail       *bool
	Filter         *string
	ResultsFile    *string
	ShowAll        *bool
	LaunchRPS      *float64
	LaunchBurst    *int
	Verbose        *bool
	Port           *string
	RateLimitRPS   *float64
	RateLimitBurst *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	// Apply environment variables first so the YAML file overrides them
	if err := applyEnvConfig(&cfg); err != nil {
		return Config{}, err
	}

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("apply YAML config: %w", err)
		}
	}

	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	// Suite paths derived from the obj root are used from other working directories.
	if strings.TrimSpace(cfg.ObjRoot) != "" {
		abs, err := filepath.Abs(cfg.ObjRoot)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %w", ErrInvalidObjRoot, err)
		}
		cfg.ObjRoot = abs
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		SuiteFile:            defaultSuiteFile,
		Workers:              runtime.NumCPU(),
		TestTimeout:          defaultTestTimeout,
		Shell:                shtest.DefaultShell,
		Pipefail:             true,
		HistorySize:          defaultHistorySize,
		Port:                 defaultPort,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         5 * time.Minute,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	setString(&cfg.ObjRoot, yamlCfg.ObjRoot)
	setString(&cfg.SuiteFile, yamlCfg.SuiteFile)
	setString(&cfg.Shell, yamlCfg.Shell)
	setString(&cfg.Filter, yamlCfg.Filter)
	setString(&cfg.ResultsFile, yamlCfg.ResultsFile)
	setString(&cfg.Port, yamlCfg.Port)

	if yamlCfg.Workers != 0 {
		cfg.Workers = yamlCfg.Workers
	}
	if yamlCfg.HistorySize != 0 {
		cfg.HistorySize = yamlCfg.HistorySize
	}

	setBool(&cfg.Pipefail, yamlCfg.Pipefail)
	setBool(&cfg.ShowAll, yamlCfg.ShowAll)
	setBool(&cfg.Verbose, yamlCfg.Verbose)
	setBool(&cfg.EnableRequestLogging, yamlCfg.EnableRequestLogging)

	durations := []struct {
		name   string
		raw    string
		target *time.Duration
	}{
		{"test_timeout", yamlCfg.TestTimeout, &cfg.TestTimeout},
		{"shutdown_grace_period", yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{"read_header_timeout", yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{"write_timeout", yamlCfg.WriteTimeout, &cfg.WriteTimeout},
		{"idle_timeout", yamlCfg.IdleTimeout, &cfg.IdleTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		value, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.target = value
	}

	if yamlCfg.LaunchRate != nil {
		cfg.LaunchRPS = yamlCfg.LaunchRate.RPS
		cfg.LaunchBurst = yamlCfg.LaunchRate.Burst
	}

	if yamlCfg.RateLimit != nil {
		cfg.RateLimitRPS = yamlCfg.RateLimit.RPS
		cfg.RateLimitBurst = yamlCfg.RateLimit.Burst
	}

	return nil
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) error {
	if root := strings.TrimSpace(os.Getenv("MY_OBJ_ROOT")); root != "" {
		cfg.ObjRoot = root
	}

	if suiteFile := strings.TrimSpace(os.Getenv("LITRUN_SUITE")); suiteFile != "" {
		cfg.SuiteFile = suiteFile
	}

	if shell := strings.TrimSpace(os.Getenv("LITRUN_SHELL")); shell != "" {
		cfg.Shell = shell
	}

	if workers := strings.TrimSpace(os.Getenv("LITRUN_WORKERS")); workers != "" {
		value, err := strconv.Atoi(workers)
		if err != nil {
			return fmt.Errorf("%w: LITRUN_WORKERS: invalid integer %q", ErrInvalidConfig, workers)
		}
		cfg.Workers = value
	}

	if timeout := strings.TrimSpace(os.Getenv("LITRUN_TIMEOUT")); timeout != "" {
		value, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("%w: LITRUN_TIMEOUT: %v", ErrInvalidConfig, err)
		}
		cfg.TestTimeout = value
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Port = port
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
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	setStringPtr(&cfg.ObjRoot, overrides.ObjRoot)
	setStringPtr(&cfg.SuiteFile, overrides.SuiteFile)
	setStringPtr(&cfg.Shell, overrides.Shell)
	setStringPtr(&cfg.Filter, overrides.Filter)
	setStringPtr(&cfg.ResultsFile, overrides.ResultsFile)
	setStringPtr(&cfg.Port, overrides.Port)

	if overrides.Workers != nil && *overrides.Workers > 0 {
		cfg.Workers = *overrides.Workers
	}
	if overrides.TestTimeout != nil && *overrides.TestTimeout > 0 {
		cfg.TestTimeout = *overrides.TestTimeout
	}

	setBool(&cfg.Pipefail, overrides.Pipefail)
	setBool(&cfg.ShowAll, overrides.ShowAll)
	setBool(&cfg.Verbose, overrides.Verbose)

	if overrides.LaunchRPS != nil && *overrides.LaunchRPS >= 0 {
		cfg.LaunchRPS = *overrides.LaunchRPS
	}
	if overrides.LaunchBurst != nil && *overrides.LaunchBurst >= 0 {
		cfg.LaunchBurst = *overrides.LaunchBurst
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
	if strings.TrimSpace(cfg.ObjRoot) == "" {
		return ErrMissingObjRoot
	}
	info, err := os.Stat(cfg.ObjRoot)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidObjRoot, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrInvalidObjRoot, cfg.ObjRoot)
	}

	if cfg.SuiteFile == "" {
		return fmt.Errorf("%w: suite file must be set", ErrInvalidConfig)
	}
	if cfg.Workers < 1 {
		return fmt.Errorf("%w: workers must be >= 1", ErrInvalidConfig)
	}
	if cfg.TestTimeout <= 0 {
		return fmt.Errorf("%w: test timeout must be > 0", ErrInvalidConfig)
	}
	if cfg.HistorySize < 1 {
		return fmt.Errorf("%w: history size must be >= 1", ErrInvalidConfig)
	}
	if cfg.LaunchRPS < 0 || cfg.LaunchBurst < 0 {
		return fmt.Errorf("%w: launch rate must be >= 0", ErrInvalidConfig)
	}
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("%w: RATE_LIMIT_RPS must be >= 0", ErrInvalidConfig)
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("%w: RATE_LIMIT_BURST must be >= 0", ErrInvalidConfig)
	}
	if cfg.Filter != "" {
		if _, err := regexp.Compile(cfg.Filter); err != nil {
			return fmt.Errorf("%w: filter: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

func setString(target *string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*target = value
	}
}

func setStringPtr(target *string, value *string) {
	if value != nil {
		setString(target, *value)
	}
}

func setBool(target *bool, value *bool) {
	if value != nil {
		*target = *value
	}
}
