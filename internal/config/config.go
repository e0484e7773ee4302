// Package config loads lamstat settings from defaults, an optional YAML
// file and LAMSTAT_* environment variables. Command-line flags are applied
// on top by the caller.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/younsl/lamstat/internal/models"
	"github.com/younsl/lamstat/pkg/aws"
	"github.com/younsl/lamstat/pkg/utils"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override
const EnvPrefix = "LAMSTAT_"

// DefaultFunctions are extracted when no function is configured
var DefaultFunctions = []string{
	"slack_invitor",
	"slack_invitor_invite_all",
	"slack_invitor_convention",
}

// Config holds every lamstat setting
type Config struct {
	Region    string   `yaml:"region"`
	Functions []string `yaml:"functions"`
	Mode      string   `yaml:"mode"`

	// Time window: a calendar window (start/end) wins over lookback
	Lookback string `yaml:"lookback"`
	Start    string `yaml:"start"`
	End      string `yaml:"end"`

	// logs mode
	PageSize      int32  `yaml:"page_size"`
	FilterPattern string `yaml:"filter_pattern"`

	// insights mode
	QueryLimit   int32         `yaml:"query_limit"`
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxPolls     int           `yaml:"max_polls"`

	// metrics and series modes
	Metrics    []string `yaml:"metrics"`
	Statistics []string `yaml:"statistics"`
	SeriesStat string   `yaml:"series_stat"`
	Period     int32    `yaml:"period"` // seconds

	OutputDir string `yaml:"output_dir"`
	S3Bucket  string `yaml:"s3_bucket"`
	S3Prefix  string `yaml:"s3_prefix"`
	LogLevel  string `yaml:"log_level"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Region:       utils.GetDefaultRegion(),
		Functions:    append([]string(nil), DefaultFunctions...),
		Mode:         models.ModeLogs,
		Lookback:     "30d",
		QueryLimit:   aws.MaxQueryLimit,
		PollInterval: aws.DefaultPollInterval,
		MaxPolls:     aws.DefaultMaxPolls,
		Metrics:      append([]string(nil), aws.DefaultMetrics...),
		Statistics:   aws.StatisticNames(aws.DefaultStatistics),
		SeriesStat:   aws.DefaultSeriesStat,
		Period:       aws.DefaultPeriod,
		OutputDir:    ".",
		LogLevel:     "info",
	}
}

// Load builds the configuration from defaults, the YAML file at path (when
// path is not empty) and environment overrides read through getenv
func Load(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
		}
	}

	if getenv == nil {
		getenv = os.Getenv
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	get := func(key string) string {
		return strings.TrimSpace(getenv(EnvPrefix + key))
	}

	c.Region = getEnv(get, "REGION", c.Region)
	c.Mode = getEnv(get, "MODE", c.Mode)
	c.Lookback = getEnv(get, "LOOKBACK", c.Lookback)
	c.Start = getEnv(get, "START", c.Start)
	c.End = getEnv(get, "END", c.End)
	c.FilterPattern = getEnv(get, "FILTER_PATTERN", c.FilterPattern)
	c.SeriesStat = getEnv(get, "SERIES_STAT", c.SeriesStat)
	c.OutputDir = getEnv(get, "OUTPUT_DIR", c.OutputDir)
	c.S3Bucket = getEnv(get, "S3_BUCKET", c.S3Bucket)
	c.S3Prefix = getEnv(get, "S3_PREFIX", c.S3Prefix)
	c.LogLevel = getEnv(get, "LOG_LEVEL", c.LogLevel)
	c.Functions = getListEnv(get, "FUNCTIONS", c.Functions)
	c.Metrics = getListEnv(get, "METRICS", c.Metrics)
	c.Statistics = getListEnv(get, "STATISTICS", c.Statistics)

	var err error
	if c.PageSize, err = getInt32Env(get, "PAGE_SIZE", c.PageSize); err != nil {
		return err
	}
	if c.QueryLimit, err = getInt32Env(get, "QUERY_LIMIT", c.QueryLimit); err != nil {
		return err
	}
	if c.Period, err = getInt32Env(get, "PERIOD", c.Period); err != nil {
		return err
	}
	maxPolls, err := getInt32Env(get, "MAX_POLLS", int32(c.MaxPolls))
	if err != nil {
		return err
	}
	c.MaxPolls = int(maxPolls)
	if value := get("POLL_INTERVAL"); value != "" {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %sPOLL_INTERVAL %q: %w", EnvPrefix, value, err)
		}
		c.PollInterval = d
	}

	return nil
}

// Validate checks the settings that would otherwise fail mid-run
func (c *Config) Validate() error {
	if _, ok := models.ModeSuffixes[c.Mode]; !ok {
		return fmt.Errorf("unsupported mode %q (use logs, insights, metrics or series)", c.Mode)
	}
	if !utils.IsValidRegion(c.Region) {
		return fmt.Errorf("invalid region %q", c.Region)
	}
	if len(c.Functions) == 0 {
		return fmt.Errorf("no functions configured")
	}
	if _, err := c.Window(time.Now()); err != nil {
		return err
	}
	if c.QueryLimit < 1 || c.QueryLimit > aws.MaxQueryLimit {
		return fmt.Errorf("query_limit must be between 1 and %d, got %d", aws.MaxQueryLimit, c.QueryLimit)
	}
	if c.Period < 60 || c.Period%60 != 0 {
		return fmt.Errorf("period must be a positive multiple of 60 seconds, got %d", c.Period)
	}
	if c.MaxPolls < 1 {
		return fmt.Errorf("max_polls must be at least 1, got %d", c.MaxPolls)
	}
	if c.PageSize < 0 || c.PageSize > 10000 {
		return fmt.Errorf("page_size must be between 0 and 10000, got %d", c.PageSize)
	}
	return nil
}

// Window resolves the configured time window relative to now
func (c *Config) Window(now time.Time) (utils.Window, error) {
	return utils.ResolveWindow(now, c.Lookback, c.Start, c.End)
}

func getEnv(get func(string) string, key, defaultValue string) string {
	if value := get(key); value != "" {
		return value
	}
	return defaultValue
}

func getListEnv(get func(string) string, key string, defaultValue []string) []string {
	value := get(key)
	if value == "" {
		return defaultValue
	}
	return SplitList(value)
}

func getInt32Env(get func(string) string, key string, defaultValue int32) (int32, error) {
	value := get(key)
	if value == "" {
		return defaultValue, nil
	}
	i, err := strconv.ParseInt(value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s%s %q: %w", EnvPrefix, key, value, err)
	}
	return int32(i), nil
}

// SplitList splits a comma separated list, dropping empty items
func SplitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
