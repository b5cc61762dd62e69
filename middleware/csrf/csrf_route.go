package csrf

import "github.com/gofiber/fiber/v2"

// RouteConfig controls how the CSRF token bootstrap endpoint behaves.
type RouteConfig struct {
	// Path is the route registered for retrieving the CSRF token.
	Path string
	// ContextKey is the locals key where the middleware stored the token.
	ContextKey string
	// RouteName is the name assigned to the registered route.
	RouteName string
}

const (
	defaultRoutePath = "/csrf"
	defaultRouteName = "portal.csrf.get"
)

// RegisterRoutes registers a GET endpoint that returns the CSRF token and
// related metadata (form field and header names). It expects the CSRF
// middleware to run before it.
func RegisterRoutes(app fiber.Router, cfg ...RouteConfig) {
	conf := routeConfigDefault(cfg...)
	app.Get(conf.Path, tokenHandler(conf)).Name(conf.RouteName)
}

func routeConfigDefault(cfg ...RouteConfig) RouteConfig {
	conf := RouteConfig{
		Path:       defaultRoutePath,
		ContextKey: DefaultContextKey,
		RouteName:  defaultRouteName,
	}
	if len(cfg) == 0 {
		return conf
	}

	c := cfg[0]
	if c.Path != "" {
		conf.Path = c.Path
	}

	if c.ContextKey != "" {
		conf.ContextKey = c.ContextKey
	}

	if c.RouteName != "" {
		conf.RouteName = c.RouteName
	}

	return conf
}

func tokenHandler(cfg RouteConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, _ := c.Locals(cfg.ContextKey).(string)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(map[string]string{
				"error": ErrTokenMissing.Error(),
			})
		}

		c.Set("Cache-Control", "no-store, max-age=0")
		c.Set("Pragma", "no-cache")
		c.Set("Expires", "0")

		helpers := TemplateHelpers(c, cfg.ContextKey)
		return c.JSON(map[string]string{
			"token":       token,
			"field_name":  fieldName(c, cfg.ContextKey),
			"header_name": helpers["csrf_header_name"].(string),
		})
	}
}

func fieldName(c *fiber.Ctx, key string) string {
	if v, ok := c.Locals(key + "_field").(string); ok && v != "" {
		return v
	}
	return DefaultFormFieldName
}
