// Package cluster holds what integration tests need to reach the cluster under
// test: its configuration, an admin client that waits for each role to report
// healthy, and the baseline module binding both.
package cluster

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config describes the cluster under test.
// RouterURL is optional; every other URL is required.
type Config struct {
	CoordinatorURL string    `yaml:"coordinator_url" validate:"required,url"`
	IndexerURL     string    `yaml:"indexer_url" validate:"required,url"`
	BrokerURL      string    `yaml:"broker_url" validate:"required,url"`
	RouterURL      string    `yaml:"router_url" validate:"omitempty,url"`
	LogLevel       string    `yaml:"log_level" validate:"omitempty,oneof=debug info warn error DEBUG INFO WARN ERROR"`
	Readiness      Readiness `yaml:"readiness"`
}

// Readiness bounds every wait for a role to become healthy.
type Readiness struct {
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxTries        uint          `yaml:"max_tries"`
}

// DefaultConfig returns the configuration of a local docker cluster.
func DefaultConfig() *Config {
	return &Config{
		CoordinatorURL: "http://localhost:8081",
		IndexerURL:     "http://localhost:8090",
		BrokerURL:      "http://localhost:8082",
		LogLevel:       "info",
		Readiness: Readiness{
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Timeout:         5 * time.Minute,
			MaxTries:        120,
		},
	}
}

// Environment variables overriding file values.
const (
	EnvCoordinatorURL    = "NASC_COORDINATOR_URL"
	EnvIndexerURL        = "NASC_INDEXER_URL"
	EnvBrokerURL         = "NASC_BROKER_URL"
	EnvRouterURL         = "NASC_ROUTER_URL"
	EnvLogLevel          = "NASC_LOG_LEVEL"
	EnvReadinessTimeout  = "NASC_READINESS_TIMEOUT"
	EnvReadinessMaxTries = "NASC_READINESS_MAX_TRIES"
)

// LoadConfig builds a Config from, lowest priority first:
//  1. DefaultConfig
//  2. the YAML file at path (skipped when path is empty or the file is missing)
//  3. .env files (envFiles, or ".env"; missing files are ignored)
//  4. NASC_* environment variables
func LoadConfig(path string, envFiles ...string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading cluster config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing cluster config %s: %w", path, err)
			}
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// godotenv never overrides variables already set in the process.
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	for env, field := range map[string]*string{
		EnvCoordinatorURL: &c.CoordinatorURL,
		EnvIndexerURL:     &c.IndexerURL,
		EnvBrokerURL:      &c.BrokerURL,
		EnvRouterURL:      &c.RouterURL,
		EnvLogLevel:       &c.LogLevel,
	} {
		if v, ok := os.LookupEnv(env); ok {
			*field = v
		}
	}

	if v := os.Getenv(EnvReadinessTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvReadinessTimeout, err)
		}
		c.Readiness.Timeout = d
	}
	if v := os.Getenv(EnvReadinessMaxTries); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvReadinessMaxTries, err)
		}
		c.Readiness.MaxTries = uint(n)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
	})
	return v
}

// Validate checks that every mandatory role has a URL and the retry budget is bounded.
func (c *Config) Validate() error {
	var errs []error

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			errs = append(errs, fieldError(fe))
		}
	}
	if c.Readiness.Timeout <= 0 && c.Readiness.MaxTries == 0 {
		errs = append(errs, fmt.Errorf("readiness needs a timeout or max_tries"))
	}
	return errors.Join(errs...)
}

func fieldError(fe validator.FieldError) error {
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", fe.Field())
	case "url":
		return fmt.Errorf("%s must be a URL, got %q", fe.Field(), fe.Value())
	case "oneof":
		return fmt.Errorf("%s must be one of: %s", fe.Field(), fe.Param())
	}
	return fmt.Errorf("%s is invalid", fe.Field())
}

// HasRouter reports whether a router endpoint is configured.
func (c *Config) HasRouter() bool {
	return c.RouterURL != ""
}
