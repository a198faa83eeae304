// Package config loads settings for the command line programs from the
// environment and optional .env files.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvUsername     = "ACSF_USERNAME"
	EnvAPIKey       = "ACSF_API_KEY"
	EnvSiteGroup    = "ACSF_SITE_GROUP"
	EnvEnvironment  = "ACSF_ENVIRONMENT"
	EnvBaseURL      = "ACSF_BASE_URL"
	EnvPollInterval = "ACSF_POLL_INTERVAL"
	EnvMaxAttempts  = "ACSF_MAX_ATTEMPTS"
	EnvConcurrency  = "ACSF_CONCURRENCY"
)

const (
	// DefaultPollInterval is the pause between task status polls.
	DefaultPollInterval = 30 * time.Second
	// DefaultMaxAttempts bounds polling to two hours at the default interval.
	DefaultMaxAttempts = 240
	// DefaultConcurrency is the number of parallel status requests when waiting on many tasks.
	DefaultConcurrency = 4
	// DefaultEnvironment is used when ACSF_ENVIRONMENT is not set.
	DefaultEnvironment = "dev"
)

// ErrMissing is returned when a required setting is absent.
var ErrMissing = errors.New("required setting is missing")

// Config holds the settings shared by the command line programs.
type Config struct {
	Username    string
	APIKey      string
	SiteGroup   string
	Environment string
	// BaseURL overrides the URL derived from SiteGroup and Environment.
	BaseURL string

	PollInterval time.Duration
	MaxAttempts  int
	Concurrency  int
}

// Load reads the given .env files, or ./.env if none are given, into the
// process environment and builds a Config from it. Variables already set in
// the environment win over .env values. A missing default ./.env is not an error.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrap(err, "failed to read .env")
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", strings.Join(envFiles, ", "))
	}

	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from lookup, typically os.LookupEnv, and validates it.
func FromLookup(lookup func(key string) (string, bool)) (*Config, error) {
	get := func(key, fallback string) string {
		if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
		return fallback
	}

	cfg := &Config{
		Username:    get(EnvUsername, ""),
		APIKey:      get(EnvAPIKey, ""),
		SiteGroup:   get(EnvSiteGroup, ""),
		Environment: get(EnvEnvironment, DefaultEnvironment),
		BaseURL:     get(EnvBaseURL, ""),
	}

	var err error
	if cfg.PollInterval, err = parseInterval(get(EnvPollInterval, "")); err != nil {
		return nil, errors.Wrap(err, EnvPollInterval)
	}
	if cfg.MaxAttempts, err = parsePositive(get(EnvMaxAttempts, ""), DefaultMaxAttempts); err != nil {
		return nil, errors.Wrap(err, EnvMaxAttempts)
	}
	if cfg.Concurrency, err = parsePositive(get(EnvConcurrency, ""), DefaultConcurrency); err != nil {
		return nil, errors.Wrap(err, EnvConcurrency)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the required settings are present.
func (c *Config) Validate() error {
	if c.Username == "" {
		return errors.Wrap(ErrMissing, EnvUsername)
	}
	if c.APIKey == "" {
		return errors.Wrap(ErrMissing, EnvAPIKey)
	}
	if c.BaseURL == "" && c.SiteGroup == "" {
		return errors.Wrapf(ErrMissing, "%s or %s", EnvSiteGroup, EnvBaseURL)
	}
	return nil
}

// parseInterval accepts Go durations ("45s", "2m") and bare seconds ("30").
func parseInterval(value string) (time.Duration, error) {
	if value == "" {
		return DefaultPollInterval, nil
	}

	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		if seconds < 0 {
			return 0, errors.Newf("negative interval %q", value)
		}
		return time.Duration(seconds * float64(time.Second)), nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid interval %q", value)
	}
	if d < 0 {
		return 0, errors.Newf("negative interval %q", value)
	}
	return d, nil
}

func parsePositive(value string, fallback int) (int, error) {
	if value == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid number %q", value)
	}
	if n <= 0 {
		return 0, errors.Newf("must be positive, got %d", n)
	}
	return n, nil
}
