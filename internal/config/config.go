package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/cesargomez89/vidfetch/internal/constants"
)

// Config holds all application configuration
type Config struct {
	Port             string
	DownloadsDir     string
	DBPath           string
	DefaultFormat    string
	LogLevel         string
	LogFormat        string
	YtDlpPath        string
	MaxConcurrent    int
	MaxPending       int
	JobTimeout       time.Duration
	JobTTL           time.Duration
	CleanupInterval  time.Duration
	YtDlpAutoInstall bool
}

// fileConfig mirrors Config for the optional YAML file. Pointer fields let
// us tell "absent" from "zero".
type fileConfig struct {
	Server struct {
		Port *string `yaml:"port"`
	} `yaml:"server"`
	Storage struct {
		DownloadsDir *string `yaml:"downloads_dir"`
		DBPath       *string `yaml:"db_path"`
	} `yaml:"storage"`
	Jobs struct {
		DefaultFormat   *string `yaml:"default_format"`
		MaxConcurrent   *int    `yaml:"max_concurrent"`
		MaxPending      *int    `yaml:"max_pending"`
		Timeout         *string `yaml:"timeout"`
		TTL             *string `yaml:"ttl"`
		CleanupInterval *string `yaml:"cleanup_interval"`
	} `yaml:"jobs"`
	YtDlp struct {
		Path        *string `yaml:"path"`
		AutoInstall *bool   `yaml:"auto_install"`
	} `yaml:"ytdlp"`
	Log struct {
		Level  *string `yaml:"level"`
		Format *string `yaml:"format"`
	} `yaml:"log"`
}

// Defaults returns the built-in configuration
func Defaults() *Config {
	return &Config{
		Port:            constants.DefaultPort,
		DownloadsDir:    constants.DefaultDownloadsDir,
		DBPath:          constants.DefaultDBPath,
		DefaultFormat:   constants.DefaultFormat,
		LogLevel:        "info",
		LogFormat:       "text",
		MaxConcurrent:   constants.DefaultConcurrency,
		MaxPending:      constants.DefaultMaxPending,
		JobTimeout:      constants.DefaultJobTimeout,
		JobTTL:          constants.DefaultJobTTL,
		CleanupInterval: constants.DefaultCleanupInterval,
	}
}

// Load builds the configuration from defaults, the YAML file named by
// CONFIG_FILE (if any) and environment variables, in that order.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	var errs []string
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.DownloadsDir = getEnv("DOWNLOADS_DIR", cfg.DownloadsDir)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.DefaultFormat = getEnv("DEFAULT_FORMAT", cfg.DefaultFormat)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.YtDlpPath = getEnv("YTDLP_PATH", cfg.YtDlpPath)
	cfg.MaxConcurrent = getEnvInt("MAX_CONCURRENT_JOBS", cfg.MaxConcurrent, &errs)
	cfg.MaxPending = getEnvInt("MAX_PENDING_JOBS", cfg.MaxPending, &errs)
	cfg.JobTimeout = getEnvDuration("JOB_TIMEOUT", cfg.JobTimeout, &errs)
	cfg.JobTTL = getEnvDuration("JOB_TTL", cfg.JobTTL, &errs)
	cfg.CleanupInterval = getEnvDuration("CLEANUP_INTERVAL", cfg.CleanupInterval, &errs)
	cfg.YtDlpAutoInstall = getEnvBool("YTDLP_AUTO_INSTALL", cfg.YtDlpAutoInstall, &errs)

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration load failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	var fc fileConfig
	if err := yaml.NewDecoder(f).Decode(&fc); err != nil {
		return fmt.Errorf("failed to decode config file %s: %w", path, err)
	}

	setString(&c.Port, fc.Server.Port)
	setString(&c.DownloadsDir, fc.Storage.DownloadsDir)
	setString(&c.DBPath, fc.Storage.DBPath)
	setString(&c.DefaultFormat, fc.Jobs.DefaultFormat)
	setString(&c.YtDlpPath, fc.YtDlp.Path)
	setString(&c.LogLevel, fc.Log.Level)
	setString(&c.LogFormat, fc.Log.Format)
	if fc.Jobs.MaxConcurrent != nil {
		c.MaxConcurrent = *fc.Jobs.MaxConcurrent
	}
	if fc.Jobs.MaxPending != nil {
		c.MaxPending = *fc.Jobs.MaxPending
	}
	if fc.YtDlp.AutoInstall != nil {
		c.YtDlpAutoInstall = *fc.YtDlp.AutoInstall
	}

	durations := []struct {
		key string
		src *string
		dst *time.Duration
	}{
		{"jobs.timeout", fc.Jobs.Timeout, &c.JobTimeout},
		{"jobs.ttl", fc.Jobs.TTL, &c.JobTTL},
		{"jobs.cleanup_interval", fc.Jobs.CleanupInterval, &c.CleanupInterval},
	}
	for _, d := range durations {
		if d.src == nil {
			continue
		}
		v, err := time.ParseDuration(*d.src)
		if err != nil {
			return fmt.Errorf("config file %s: %s must be a duration, got: %s", path, d.key, *d.src)
		}
		*d.dst = v
	}
	return nil
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	var errors []string

	if c.Port == "" {
		errors = append(errors, "PORT cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
		}
	}

	if c.DownloadsDir == "" {
		errors = append(errors, "DOWNLOADS_DIR cannot be empty")
	}

	if c.DBPath == "" {
		errors = append(errors, "DB_PATH cannot be empty")
	}

	if c.DefaultFormat == "" {
		errors = append(errors, "DEFAULT_FORMAT cannot be empty")
	}

	if c.MaxConcurrent < 1 {
		errors = append(errors, fmt.Sprintf("MAX_CONCURRENT_JOBS must be at least 1, got: %d", c.MaxConcurrent))
	}

	if c.MaxPending < 0 {
		errors = append(errors, fmt.Sprintf("MAX_PENDING_JOBS cannot be negative, got: %d", c.MaxPending))
	}

	if c.JobTimeout < 0 {
		errors = append(errors, fmt.Sprintf("JOB_TIMEOUT cannot be negative, got: %s", c.JobTimeout))
	}

	if c.JobTTL < 0 {
		errors = append(errors, fmt.Sprintf("JOB_TTL cannot be negative, got: %s", c.JobTTL))
	}

	if c.JobTTL > 0 && c.CleanupInterval <= 0 {
		errors = append(errors, fmt.Sprintf("CLEANUP_INTERVAL must be positive when JOB_TTL is set, got: %s", c.CleanupInterval))
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int, errs *[]string) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s must be a valid number, got: %s", key, value))
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration, errs *[]string) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	// A bare "0" disables the feature
	if value == "0" {
		return 0
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s must be a duration like 30s or 1h, got: %s", key, value))
		return fallback
	}
	return d
}

func getEnvBool(key string, fallback bool, errs *[]string) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s must be true or false, got: %s", key, value))
		return fallback
	}
	return b
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
