// Package config loads the portal settings from PORTAL_ prefixed
// environment variables.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/goliatone/go-auth-portal/store"
	"github.com/goliatone/go-errors"
)

// Prefix is prepended to every variable name.
const Prefix = "PORTAL_"

type Config struct {
	Env      string `env:"ENV" envDefault:"development"`
	Addr     string `env:"ADDR" envDefault:":8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// ActivityLog is a file receiving one JSON record per auth event. Empty
	// logs events instead.
	ActivityLog string `env:"ACTIVITY_LOG"`

	API       APIConfig       `envPrefix:"API_"`
	Store     StoreConfig     `envPrefix:"STORE_"`
	Session   SessionConfig   `envPrefix:"SESSION_"`
	CSRF      CSRFConfig      `envPrefix:"CSRF_"`
	Query     QueryConfig     `envPrefix:"QUERY_"`
	Telemetry TelemetryConfig `envPrefix:"OTEL_"`
}

type APIConfig struct {
	BaseURL string        `env:"BASE_URL" envDefault:"http://localhost:3000/api/v1"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

type StoreConfig struct {
	Driver string `env:"DRIVER" envDefault:"sqlite"`
	DSN    string `env:"DSN" envDefault:"file:portal.db?cache=shared"`
	// PruneInterval is how often stale SQL session rows are removed. Zero
	// disables pruning.
	PruneInterval time.Duration `env:"PRUNE_INTERVAL" envDefault:"1h"`
	// MaxAge is the idle lifetime of a SQL session row. Reads and writes
	// both reset it, so an active session is never pruned.
	MaxAge time.Duration `env:"MAX_AGE" envDefault:"720h"`
}

type SessionConfig struct {
	CookieName   string        `env:"COOKIE_NAME" envDefault:"portal_sid"`
	CookieSecure bool          `env:"COOKIE_SECURE"`
	CookieMaxAge time.Duration `env:"COOKIE_MAX_AGE" envDefault:"720h"`
}

type CSRFConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"true"`
	Key     string `env:"KEY"`
}

type QueryConfig struct {
	StaleTime       time.Duration `env:"STALE_TIME" envDefault:"5m"`
	GCTime          time.Duration `env:"GC_TIME" envDefault:"10m"`
	CollectInterval time.Duration `env:"COLLECT_INTERVAL" envDefault:"1m"`
}

// TelemetryConfig enables trace export when Endpoint is set.
type TelemetryConfig struct {
	Endpoint    string `env:"ENDPOINT"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"go-auth-portal"`
	Insecure    bool   `env:"INSECURE"`
}

// Load reads and validates the process environment.
func Load() (Config, error) {
	return parse(env.Options{Prefix: Prefix})
}

// LoadFrom reads and validates the given variables instead of the process
// environment. Keys carry the PORTAL_ prefix.
func LoadFrom(environ map[string]string) (Config, error) {
	if environ == nil {
		environ = map[string]string{}
	}
	return parse(env.Options{Prefix: Prefix, Environment: environ})
}

func parse(opts env.Options) (Config, error) {
	cfg, err := parseEnv(opts)
	if err != nil {
		return Config{}, err
	}
	return cfg, validate(cfg)
}

func parseEnv(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, errors.Wrap(err, errors.CategoryBadInput, "unable to parse environment").
			WithTextCode("CONFIG_PARSE_FAILED")
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return errors.FromOzzoValidation(err, "invalid configuration").
			WithTextCode("CONFIG_INVALID")
	}
	return nil
}

// IsDevelopment reports whether debug features should be on.
func (c Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "dev"
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.LogLevel, validation.In("trace", "debug", "info", "warn", "error")),
		validation.Field(&c.API),
		validation.Field(&c.Store),
		validation.Field(&c.CSRF),
		validation.Field(&c.Query),
	)
}

func (c APIConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.Timeout, validation.Min(time.Millisecond)),
	)
}

func (c StoreConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Driver, validation.Required, validation.In(store.Drivers...)),
		validation.Field(&c.DSN, validation.When(c.Driver != store.DriverMemory, validation.Required)),
		validation.Field(&c.PruneInterval, validation.Min(time.Duration(0))),
	)
}

func (c CSRFConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Key, validation.RuneLength(32, 0).Error("must be at least 32 characters")),
	)
}

func (c QueryConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.StaleTime, validation.Min(time.Duration(0))),
		validation.Field(&c.GCTime, validation.Min(time.Second)),
	)
}
