package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pariz/gountries"
	"gopkg.in/yaml.v3"
)

// Environment variables names
const (
	EnvTMDBToken       = "TMDB_TOKEN"
	EnvMinVotes        = "MIN_VOTES"
	EnvMinRating       = "MIN_RATING"
	EnvLookbackDays    = "LOOKBACK_DAYS"
	EnvMaxPagesPerType = "MAX_PAGES_PER_TYPE"
	EnvOutputPath      = "OUTPUT_PATH"
	EnvWatchRegion     = "WATCH_REGION"
	EnvCastSize        = "CAST_SIZE"
	EnvExcludedGenres  = "EXCLUDED_GENRES"
	EnvMaxRetries      = "MAX_RETRIES"
	EnvLogLevel        = "LOG_LEVEL"
	EnvListenAddr      = "LISTEN_ADDR"
	EnvSiteTitle       = "SITE_TITLE"
)

var (
	ErrMissingToken = errors.New(EnvTMDBToken + " environment variable not set")
)

// Config holds everything read at process start. It is never modified afterwards.
type Config struct {
	TMDBToken string `yaml:"-"`

	// Filters
	MinVotes        int64   `yaml:"min_votes"`
	MinRating       float64 `yaml:"min_rating"`
	LookbackDays    int     `yaml:"lookback_days"`
	MaxPagesPerType int     `yaml:"max_pages_per_type"`

	// Details
	WatchRegion    string   `yaml:"watch_region"`
	CastSize       int      `yaml:"cast_size"`
	ExcludedGenres []string `yaml:"excluded_genres"`

	// Upstream
	RequestsPerWindow int           `yaml:"requests_per_window"`
	RateWindow        time.Duration `yaml:"rate_window"`
	MaxRetries        int           `yaml:"max_retries"`
	RetryBackoff      time.Duration `yaml:"retry_backoff"`

	OutputPath string `yaml:"output_path"`
	LogLevel   string `yaml:"log_level"`
	ListenAddr string `yaml:"listen_addr"`
	SiteTitle  string `yaml:"site_title"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		MinVotes:          1,
		MinRating:         6.0,
		LookbackDays:      365,
		MaxPagesPerType:   500,
		WatchRegion:       "US",
		CastSize:          3,
		ExcludedGenres:    []string{"Animation", "Music", "Documentary", "Kids", "Reality"},
		RequestsPerWindow: 40,
		RateWindow:        10 * time.Second,
		MaxRetries:        3,
		RetryBackoff:      time.Second,
		OutputPath:        "data.json",
		LogLevel:          "info",
		ListenAddr:        ":8080",
		SiteTitle:         "Marquee",
	}
}

// Load reads the optional YAML file at path on top of the defaults, then applies environment overrides.
// An empty path or a missing file only yields defaults and environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	c.TMDBToken = strings.TrimSpace(os.Getenv(EnvTMDBToken))

	if v := os.Getenv(EnvMinVotes); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("error getting %s: %w", EnvMinVotes, err)
		}
		c.MinVotes = n
	}
	if v := os.Getenv(EnvMinRating); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("error getting %s: %w", EnvMinRating, err)
		}
		c.MinRating = f
	}
	if v := os.Getenv(EnvLookbackDays); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("error getting %s: %w", EnvLookbackDays, err)
		}
		c.LookbackDays = n
	}
	if v := os.Getenv(EnvMaxPagesPerType); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("error getting %s: %w", EnvMaxPagesPerType, err)
		}
		c.MaxPagesPerType = n
	}
	if v := os.Getenv(EnvCastSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("error getting %s: %w", EnvCastSize, err)
		}
		c.CastSize = n
	}
	if v := os.Getenv(EnvMaxRetries); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("error getting %s: %w", EnvMaxRetries, err)
		}
		c.MaxRetries = n
	}
	if v, ok := os.LookupEnv(EnvExcludedGenres); ok {
		c.ExcludedGenres = splitList(v)
	}
	if v := os.Getenv(EnvWatchRegion); v != "" {
		c.WatchRegion = v
	}
	if v := os.Getenv(EnvOutputPath); v != "" {
		c.OutputPath = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvListenAddr); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv(EnvSiteTitle); v != "" {
		c.SiteTitle = v
	}
	c.WatchRegion = strings.ToUpper(strings.TrimSpace(c.WatchRegion))
	return nil
}

// Validate checks the values needed by every command
func (c *Config) Validate() error {
	if c.MinVotes < 0 {
		return fmt.Errorf("%s must be positive, got %d", EnvMinVotes, c.MinVotes)
	}
	if c.MinRating < 0 || c.MinRating > 10 {
		return fmt.Errorf("%s must be between 0 and 10, got %v", EnvMinRating, c.MinRating)
	}
	if c.LookbackDays <= 0 {
		return fmt.Errorf("%s must be greater than 0, got %d", EnvLookbackDays, c.LookbackDays)
	}
	if c.MaxPagesPerType <= 0 {
		return fmt.Errorf("%s must be greater than 0, got %d", EnvMaxPagesPerType, c.MaxPagesPerType)
	}
	if c.CastSize < 0 {
		return fmt.Errorf("%s must be positive, got %d", EnvCastSize, c.CastSize)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%s must be positive, got %d", EnvMaxRetries, c.MaxRetries)
	}
	if c.RequestsPerWindow <= 0 || c.RateWindow <= 0 {
		return errors.New("rate limit must allow at least one request per window")
	}
	if c.OutputPath == "" {
		return fmt.Errorf("%s must not be empty", EnvOutputPath)
	}
	if _, err := gountries.New().FindCountryByAlpha(c.WatchRegion); err != nil {
		return fmt.Errorf("invalid %s %q: %w", EnvWatchRegion, c.WatchRegion, err)
	}
	return nil
}

// ValidateFetch also requires the upstream credential
func (c *Config) ValidateFetch() error {
	if c.TMDBToken == "" {
		return ErrMissingToken
	}
	return c.Validate()
}

// RegionName returns the common name of the watch region
func (c *Config) RegionName() string {
	country, err := gountries.New().FindCountryByAlpha(c.WatchRegion)
	if err != nil {
		return c.WatchRegion
	}
	return country.Name.Common
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
