package adminkit

import (
	"errors"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

// Config holds runtime configuration of the engine.
// Every field is read from an ADMINKIT_ prefixed environment variable.
type Config struct {
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// LookupTimeout bounds principal resolution and admin record lookups.
	LookupTimeout time.Duration `envconfig:"LOOKUP_TIMEOUT" default:"2s"`

	// Idempotent reads are retried on transient store errors only.
	ReadRetries int           `envconfig:"READ_RETRIES" default:"2"`
	ReadBackoff time.Duration `envconfig:"READ_BACKOFF" default:"50ms"`

	// ConflictRetries is used by RetryOnConflict when no attempt count is given.
	ConflictRetries int `envconfig:"CONFLICT_RETRIES" default:"3"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	OIDCIssuer   string `envconfig:"OIDC_ISSUER"`
	OIDCClientID string `envconfig:"OIDC_CLIENT_ID"`

	// BootstrapIdentity becomes the first super_admin while no admin exists.
	BootstrapIdentity string `envconfig:"BOOTSTRAP_IDENTITY"`

	Pool PoolConfig `envconfig:"POOL"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("ADMINKIT", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		LookupTimeout:   2 * time.Second,
		ReadRetries:     2,
		ReadBackoff:     50 * time.Millisecond,
		ConflictRetries: 3,
		LogLevel:        "info",
		LogFormat:       "text",
		Pool:            DefaultPoolConfig(),
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.LookupTimeout <= 0 {
		return errors.New("lookup timeout must be positive")
	}
	if c.ReadRetries < 0 {
		return errors.New("read retries must not be negative")
	}
	if c.ConflictRetries < 1 {
		return errors.New("conflict retries must be at least 1")
	}
	if c.OIDCIssuer != "" && c.OIDCClientID == "" {
		return errors.New("oidc client id must be provided with an oidc issuer")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ServiceOptions translates the configuration into service options.
func (c *Config) ServiceOptions() []ServiceOption {
	return []ServiceOption{
		WithLookupTimeout(c.LookupTimeout),
		WithReadRetries(c.ReadRetries, c.ReadBackoff),
		WithConflictRetries(c.ConflictRetries),
	}
}

// NewLogger builds the logrus logger described by the configuration.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}
