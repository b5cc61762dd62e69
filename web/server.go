// Package web serves the server rendered portal: sign in, sign up, the
// dashboard and the profile pages, all backed by the portal services.
package web

import (
	"context"
	"embed"
	"io/fs"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/template/django/v3"
	portal "github.com/goliatone/go-auth-portal"
	"github.com/goliatone/go-auth-portal/middleware/csrf"
	"github.com/goliatone/go-auth-portal/middleware/guard"
	"github.com/goliatone/go-auth-portal/query"
	"github.com/goliatone/go-auth-portal/store"
)

//go:embed views
var viewsFS embed.FS

// Config wires the portal server.
type Config struct {
	AppName string

	// Client is the base API client. Each request gets a copy bound to the
	// browser's session.
	Client *portal.Client

	// Queries is the shared cache. Each browser sees its own scope.
	Queries *query.Client

	// Store keeps the session records.
	Store store.Store

	Logger   portal.Logger
	Activity portal.ActivitySink

	CookieName   string
	CookieMaxAge time.Duration
	CookieSecure bool

	// Debug logs rendered view data.
	Debug bool

	// CSRF enables form token checks. CSRFKey signs the tokens; a random
	// key is used when empty.
	CSRF    bool
	CSRFKey []byte

	// Views overrides the embedded templates.
	Views fs.FS

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server is the portal HTTP server.
type Server struct {
	app        *fiber.App
	cfg        Config
	logger     portal.Logger
	controller *Controller
}

// New builds the fiber app with every route registered.
func New(cfg Config) (*Server, error) {
	if cfg.AppName == "" {
		cfg.AppName = "portal"
	}
	if cfg.Client == nil {
		cfg.Client = portal.NewClient(portal.WithLogger(cfg.Logger))
	}
	if cfg.Queries == nil {
		cfg.Queries = query.NewClient(query.WithLogger(cfg.Client.Logger()))
	}
	if cfg.Store == nil {
		cfg.Store = store.NewMemory()
	}
	if cfg.Logger == nil {
		cfg.Logger = cfg.Client.Logger()
	}

	views := cfg.Views
	if views == nil {
		sub, err := fs.Sub(viewsFS, "views")
		if err != nil {
			return nil, err
		}
		views = sub
	}

	engine := django.NewPathForwardingFileSystem(http.FS(views), "/", ".html")

	s := &Server{
		cfg:    cfg,
		logger: cfg.Logger,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		Views:                 engine,
		ErrorHandler:          s.errorHandler,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		DisableStartupMessage: true,
	})

	s.controller = NewController(ControllerConfig{
		Client:   cfg.Client,
		Queries:  cfg.Queries,
		Logger:   cfg.Logger,
		Activity: cfg.Activity,
		Debug:    cfg.Debug,
	})

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	guardCfg := guard.Config{
		Store:        s.cfg.Store,
		CookieName:   s.cfg.CookieName,
		CookieMaxAge: s.cfg.CookieMaxAge,
		CookieSecure: s.cfg.CookieSecure,
		Logger:       s.logger,
	}

	s.app.Use(recover.New())
	s.app.Use(requestid.New())
	s.app.Use(s.requestLogger)

	s.app.Get("/healthz", s.controller.Health)

	s.app.Use(guard.Sessions(guardCfg))
	if s.cfg.CSRF {
		s.app.Use(csrf.New(csrf.Config{SecureKey: s.cfg.CSRFKey}))
		csrf.RegisterRoutes(s.app)
	}

	c := s.controller
	public := guard.PublicRoute(guardCfg)
	protected := guard.ProtectedRoute(guardCfg)

	s.app.Get(portal.RouteHome, func(ctx *fiber.Ctx) error {
		return ctx.Redirect(portal.RouteSignIn, fiber.StatusFound)
	})

	s.app.Get(c.Routes.SignIn, public, c.SignInShow)
	s.app.Post(c.Routes.SignIn, public, c.SignInPost)
	s.app.Get(c.Routes.SignUp, public, c.SignUpShow)
	s.app.Post(c.Routes.SignUp, public, c.SignUpPost)

	s.app.Get(c.Routes.Dashboard, protected, c.Dashboard)
	s.app.Get(c.Routes.Profile, protected, c.ProfileShow)
	s.app.Post(c.Routes.Profile, protected, c.ProfileUpdate)
	s.app.Post(c.Routes.Password, protected, c.PasswordChange)
	s.app.Post(c.Routes.Logout, c.Logout)

	s.app.Use(func(ctx *fiber.Ctx) error {
		return fiber.ErrNotFound
	})
}

// App exposes the fiber app, mostly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.logger.Info("portal listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown waits for in flight requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Debug("request",
		"id", c.GetRespHeader(fiber.HeaderXRequestID),
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration", time.Since(start).String(),
	)
	return err
}
