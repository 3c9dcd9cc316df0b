package config

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultSecretName  = "FactsetAPICredentials"
	DefaultRegion      = "us-west-1"
	DefaultBaseURL     = "https://api.factset.com"
	DefaultReadTimeout = 25
	DefaultLogLevel    = "info"
)

// Config holds the deploy time settings shared by every endpoint. Batch
// ceilings and schemas are fixed per endpoint and are not configurable.
//
// ReadTimeout is expressed in seconds.
type Config struct {
	SecretName  string `json:"secret-name"`
	Region      string `json:"region"`
	BaseURL     string `json:"base-url"`
	ReadTimeout int64  `json:"read-timeout"`
	LogLevel    string `json:"log-level"`
}

// New returns a config populated with the defaults.
func New() *Config {
	cfg := new(Config)
	cfg.applyDefaults()
	return cfg
}

// NewFromJson returns a config parsed from s with defaults applied to any
// missing settings.
func NewFromJson(s string) (*Config, error) {
	cfg := new(Config)

	if err := json.Unmarshal([]byte(s), cfg); err != nil {
		return nil, errors.Wrap(err, "failed parsing config")
	}

	if cfg.ReadTimeout < 0 {
		return nil, errors.New("read-timeout must not be negative")
	}

	cfg.applyDefaults()
	return cfg, nil
}

// NewFromEnv builds a config from the environment. FACTSET_CONFIG may hold a
// complete json document; the individual variables override it.
//
// AWS_REGION is not consulted. The secret lives in its own region whatever
// region the lambda runs in, so only FACTSET_REGION moves it.
func NewFromEnv(lookup func(string) (string, bool)) (*Config, error) {
	cfg := New()

	if s, ok := lookup("FACTSET_CONFIG"); ok && s != "" {
		parsed, err := NewFromJson(s)
		if err != nil {
			return nil, errors.Wrap(err, "invalid FACTSET_CONFIG")
		}
		cfg = parsed
	}

	if v, ok := lookup("FACTSET_REGION"); ok && v != "" {
		cfg.Region = v
	}

	if v, ok := lookup("FACTSET_SECRET_NAME"); ok && v != "" {
		cfg.SecretName = v
	}

	if v, ok := lookup("FACTSET_BASE_URL"); ok && v != "" {
		cfg.BaseURL = v
	}

	if v, ok := lookup("FACTSET_READ_TIMEOUT"); ok && v != "" {
		t, err := strconv.ParseInt(v, 10, 64)
		if err != nil || t <= 0 {
			return nil, errors.Errorf("invalid FACTSET_READ_TIMEOUT '%s'", v)
		}
		cfg.ReadTimeout = t
	}

	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = v
	}

	return cfg, nil
}

// Timeout returns the read timeout as a duration.
func (cfg *Config) Timeout() time.Duration {
	return time.Duration(cfg.ReadTimeout) * time.Second
}

func (cfg *Config) applyDefaults() {
	if cfg.SecretName == "" {
		cfg.SecretName = DefaultSecretName
	}

	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
}
