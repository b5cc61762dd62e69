package config

import (
	"flag"

	"github.com/caarlos0/env/v11"
)

// ParseFlags reads the environment and then lets command line flags
// override it. A nil environ reads the process environment.
func ParseFlags(fs *flag.FlagSet, args []string, environ map[string]string) (Config, error) {
	opts := env.Options{Prefix: Prefix}
	if environ != nil {
		opts.Environment = environ
	}

	cfg, err := parseEnv(opts)
	if err != nil {
		return Config{}, err
	}

	BindFlags(fs, &cfg)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// BindFlags registers a flag for each setting an operator tends to change,
// using the current values as defaults.
func BindFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.Env, "env", cfg.Env, "runtime environment")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (trace, debug, info, warn, error)")
	fs.StringVar(&cfg.ActivityLog, "activity-log", cfg.ActivityLog, "file receiving auth events as JSON lines")
	fs.StringVar(&cfg.API.BaseURL, "api", cfg.API.BaseURL, "backend API base URL")
	fs.DurationVar(&cfg.API.Timeout, "api-timeout", cfg.API.Timeout, "backend request timeout")
	fs.StringVar(&cfg.Store.Driver, "store", cfg.Store.Driver, "session store driver (memory, file, sqlite, postgres)")
	fs.StringVar(&cfg.Store.DSN, "dsn", cfg.Store.DSN, "session store DSN or file path")
	fs.BoolVar(&cfg.Session.CookieSecure, "secure-cookie", cfg.Session.CookieSecure, "mark the session cookie secure")
	fs.BoolVar(&cfg.CSRF.Enabled, "csrf", cfg.CSRF.Enabled, "enable CSRF protection")
	fs.StringVar(&cfg.Telemetry.Endpoint, "otel-endpoint", cfg.Telemetry.Endpoint, "OTLP HTTP endpoint, empty disables tracing")
}
