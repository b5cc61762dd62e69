package guard

import (
	"time"

	"github.com/gofiber/fiber/v2"
	portal "github.com/goliatone/go-auth-portal"
	"github.com/goliatone/go-auth-portal/store"
)

// DefaultCookieName is the browser session id cookie.
const DefaultCookieName = "portal_sid"

// DefaultContextKey is the locals key holding the *portal.Session.
const DefaultContextKey = "session"

// DefaultSessionIDKey is the locals key holding the raw session id.
const DefaultSessionIDKey = "session_id"

// Config defines the configuration shared by the guard middleware.
type Config struct {
	// Skip defines a function to skip middleware
	Skip func(*fiber.Ctx) bool

	// Store holds the session records. Defaults to an in-memory store.
	Store store.Store

	// CookieName is the name of the session id cookie
	CookieName string

	// CookieSecure marks the cookie as HTTPS only
	CookieSecure bool

	// CookieMaxAge is how long the browser keeps the cookie
	CookieMaxAge time.Duration

	// ContextKey is where the *portal.Session is stored in locals
	ContextKey string

	// SessionIDKey is where the session id is stored in locals
	SessionIDKey string

	// SignInRoute receives unauthenticated visitors of protected routes
	SignInRoute string

	// HomeRoute receives authenticated visitors of public only routes
	HomeRoute string

	Logger portal.Logger
}

func configDefault(config ...Config) Config {
	cfg := Config{}
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Store == nil {
		cfg.Store = store.NewMemory()
	}

	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}

	if cfg.CookieMaxAge == 0 {
		cfg.CookieMaxAge = 30 * 24 * time.Hour
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if cfg.SessionIDKey == "" {
		cfg.SessionIDKey = DefaultSessionIDKey
	}

	if cfg.SignInRoute == "" {
		cfg.SignInRoute = portal.RouteSignIn
	}

	if cfg.HomeRoute == "" {
		cfg.HomeRoute = portal.RouteDashboard
	}

	if cfg.Logger == nil {
		cfg.Logger = portal.NopLogger{}
	}

	return cfg
}
