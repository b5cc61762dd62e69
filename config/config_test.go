package config

import (
	"flag"
	"io"
	"testing"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(nil)
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "http://localhost:3000/api/v1", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, time.Hour, cfg.Store.PruneInterval)
	assert.Equal(t, 720*time.Hour, cfg.Store.MaxAge)
	assert.Equal(t, "portal_sid", cfg.Session.CookieName)
	assert.True(t, cfg.CSRF.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Query.StaleTime)
	assert.Equal(t, 10*time.Minute, cfg.Query.GCTime)
	assert.Equal(t, "go-auth-portal", cfg.Telemetry.ServiceName)
	assert.Empty(t, cfg.Telemetry.Endpoint)
}

func TestLoadFromOverrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"PORTAL_ENV":                   "production",
		"PORTAL_API_BASE_URL":          "https://api.example.com/v1",
		"PORTAL_API_TIMEOUT":           "3s",
		"PORTAL_STORE_DRIVER":          "postgres",
		"PORTAL_STORE_DSN":             "postgres://localhost/portal",
		"PORTAL_SESSION_COOKIE_SECURE": "true",
		"PORTAL_QUERY_STALE_TIME":      "30s",
		"PORTAL_OTEL_ENDPOINT":         "localhost:4318",
	})
	require.NoError(t, err)

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "https://api.example.com/v1", cfg.API.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.API.Timeout)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.True(t, cfg.Session.CookieSecure)
	assert.Equal(t, 30*time.Second, cfg.Query.StaleTime)
	assert.Equal(t, "localhost:4318", cfg.Telemetry.Endpoint)
}

func TestLoadFromInvalid(t *testing.T) {
	tests := []struct {
		name    string
		environ map[string]string
	}{
		{"unknown driver", map[string]string{"PORTAL_STORE_DRIVER": "redis"}},
		{"bad url", map[string]string{"PORTAL_API_BASE_URL": "not a url"}},
		{"short csrf key", map[string]string{"PORTAL_CSRF_KEY": "short"}},
		{"bad log level", map[string]string{"PORTAL_LOG_LEVEL": "loud"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(tt.environ)
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

func TestLoadFromParseError(t *testing.T) {
	_, err := LoadFrom(map[string]string{"PORTAL_API_TIMEOUT": "soon"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryBadInput))
}

func TestStoreValidation(t *testing.T) {
	assert.NoError(t, StoreConfig{Driver: "memory"}.Validate())
	assert.Error(t, StoreConfig{Driver: "file"}.Validate())
	assert.NoError(t, StoreConfig{Driver: "file", DSN: "/tmp/portal.json"}.Validate())
}

func TestParseFlagsOverrideEnvironment(t *testing.T) {
	fs := flag.NewFlagSet("portal", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	cfg, err := ParseFlags(fs, []string{"-addr", ":9090", "-store", "memory", "-csrf=false"}, map[string]string{
		"PORTAL_ADDR":      ":7070",
		"PORTAL_LOG_LEVEL": "debug",
	})
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.False(t, cfg.CSRF.Enabled)
}

func TestParseFlagsValidatesResult(t *testing.T) {
	fs := flag.NewFlagSet("portal", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	_, err := ParseFlags(fs, []string{"-store", "redis"}, map[string]string{})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestParseFlagsUnknownFlag(t *testing.T) {
	fs := flag.NewFlagSet("portal", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	_, err := ParseFlags(fs, []string{"-nope"}, map[string]string{})
	require.Error(t, err)
}
