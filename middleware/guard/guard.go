// Package guard provides fiber middleware that binds a browser to a portal
// session and keeps visitors on the routes their session allows.
//
// Guards only check that a token is present. An expired token passes until
// the backend rejects it with a 401, which clears the session.
package guard

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	portal "github.com/goliatone/go-auth-portal"
	"github.com/google/uuid"
)

// Sessions makes sure every browser carries a session id cookie and stores
// the *portal.Session namespaced by that id in the request locals and in
// the user context.
func Sessions(config ...Config) fiber.Handler {
	cfg := configDefault(config...)

	return func(c *fiber.Ctx) error {
		if cfg.Skip != nil && cfg.Skip(c) {
			return c.Next()
		}

		sid := c.Cookies(cfg.CookieName)
		if _, err := uuid.Parse(sid); err != nil {
			sid = uuid.NewString()
			cfg.Logger.Debug("new browser session", "sid", sid, "path", c.Path())
		}

		c.Cookie(&fiber.Cookie{
			Name:     cfg.CookieName,
			Value:    sid,
			Path:     "/",
			Expires:  time.Now().Add(cfg.CookieMaxAge),
			HTTPOnly: true,
			Secure:   cfg.CookieSecure,
			SameSite: fiber.CookieSameSiteLaxMode,
		})

		sess := portal.NewSession(cfg.Store, portal.WithNamespace(sid))
		c.Locals(cfg.SessionIDKey, sid)
		c.Locals(cfg.ContextKey, sess)
		c.SetUserContext(portal.WithContext(c.UserContext(), sess))

		return c.Next()
	}
}

// ProtectedRoute lets requests with a token through. Anyone else is sent to
// the sign in route, carrying the original path in the "from" query.
func ProtectedRoute(config ...Config) fiber.Handler {
	cfg := configDefault(config...)

	return func(c *fiber.Ctx) error {
		if cfg.Skip != nil && cfg.Skip(c) {
			return c.Next()
		}

		sess, ok := SessionFrom(c, cfg.ContextKey)
		if ok && sess.IsAuthenticated(c.UserContext()) {
			return c.Next()
		}

		cfg.Logger.Info("Authentication required, redirecting to sign in", "path", c.OriginalURL())
		return c.Redirect(SignInURL(cfg.SignInRoute, c.OriginalURL()), redirectStatus(c))
	}
}

// PublicRoute keeps signed in users away from pages such as sign in and
// sign up by sending them to the home route.
func PublicRoute(config ...Config) fiber.Handler {
	cfg := configDefault(config...)

	return func(c *fiber.Ctx) error {
		if cfg.Skip != nil && cfg.Skip(c) {
			return c.Next()
		}

		sess, ok := SessionFrom(c, cfg.ContextKey)
		if !ok || !sess.IsAuthenticated(c.UserContext()) {
			return c.Next()
		}

		return c.Redirect(cfg.HomeRoute, redirectStatus(c))
	}
}

// SessionFrom returns the session stored by Sessions. It falls back to the
// user context when the locals key is not set.
func SessionFrom(c *fiber.Ctx, key ...string) (*portal.Session, bool) {
	k := DefaultContextKey
	if len(key) > 0 && key[0] != "" {
		k = key[0]
	}

	if sess, ok := c.Locals(k).(*portal.Session); ok && sess != nil {
		return sess, true
	}
	return portal.FromContext(c.UserContext())
}

// SessionID returns the browser session id, empty without Sessions.
func SessionID(c *fiber.Ctx, key ...string) string {
	k := DefaultSessionIDKey
	if len(key) > 0 && key[0] != "" {
		k = key[0]
	}
	sid, _ := c.Locals(k).(string)
	return sid
}

// SignInURL builds the sign in location for a rejected request.
func SignInURL(signIn, from string) string {
	if from == "" {
		return signIn
	}
	return signIn + "?from=" + url.QueryEscape(from)
}

// SafeRedirect returns from when it is a local path and fallback otherwise.
func SafeRedirect(from, fallback string) string {
	if from == "" || !strings.HasPrefix(from, "/") {
		return fallback
	}
	if strings.HasPrefix(from, "//") || strings.Contains(from, `\`) {
		return fallback
	}
	return from
}

func redirectStatus(c *fiber.Ctx) int {
	if c.Method() == http.MethodGet || c.Method() == http.MethodHead {
		return http.StatusFound
	}
	return http.StatusSeeOther
}
