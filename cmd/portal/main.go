// Command portal serves the sign in, sign up, dashboard and profile pages
// in front of the backend API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	portal "github.com/goliatone/go-auth-portal"
	"github.com/goliatone/go-auth-portal/activitymap"
	"github.com/goliatone/go-auth-portal/config"
	"github.com/goliatone/go-auth-portal/query"
	"github.com/goliatone/go-auth-portal/store"
	"github.com/goliatone/go-auth-portal/telemetry"
	"github.com/goliatone/go-auth-portal/web"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
)

func main() {
	fs := flag.NewFlagSet("portal", flag.ExitOnError)
	cfg, err := config.ParseFlags(fs, os.Args[1:], nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "portal:", err)
		os.Exit(2)
	}

	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("portal"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lgr); err != nil {
		logger := lgr.GetLogger("app")
		logger.Error("portal stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, lgr *glog.BaseLogger) error {
	logger := func(name string) portal.Logger {
		return portal.WithMinLevel(lgr.GetLogger(name), cfg.LogLevel)
	}
	appLogger := logger("app")

	if cfg.IsDevelopment() {
		appLogger.Debug("configuration", "config", print.MaybePrettyJSON(redacted(cfg)))
	}

	tp, shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			appLogger.Warn("trace shutdown failed", "error", err)
		}
	}()

	sessions, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return err
	}
	defer sessions.Close()

	if pruner, ok := sessions.(*store.Bun); ok && cfg.Store.PruneInterval > 0 {
		go prune(ctx, pruner, cfg.Store.PruneInterval, cfg.Store.MaxAge, logger("store"))
	}

	client := portal.NewClient(
		portal.WithBaseURL(cfg.API.BaseURL),
		portal.WithTimeout(cfg.API.Timeout),
		portal.WithLogger(logger("client")),
		portal.WithTracerProvider(tp),
	)

	queries := query.NewClient(
		query.WithStaleTime(cfg.Query.StaleTime),
		query.WithGCTime(cfg.Query.GCTime),
		query.WithLogger(logger("query")),
	)
	go queries.RunCollector(ctx, cfg.Query.CollectInterval)

	activity := portal.LoggerActivitySink(logger("activity"))
	if cfg.ActivityLog != "" {
		f, err := os.OpenFile(cfg.ActivityLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return errors.Wrap(err, errors.CategoryOperation, "unable to open activity log")
		}
		defer f.Close()
		activity = activitymap.JSONSink(f)
	}

	srv, err := web.New(web.Config{
		AppName:      "go-auth-portal",
		Client:       client,
		Queries:      queries,
		Store:        sessions,
		Logger:       logger("web"),
		Activity:     activity,
		CookieName:   cfg.Session.CookieName,
		CookieMaxAge: cfg.Session.CookieMaxAge,
		CookieSecure: cfg.Session.CookieSecure,
		CSRF:         cfg.CSRF.Enabled,
		CSRFKey:      []byte(cfg.CSRF.Key),
		Debug:        cfg.IsDevelopment(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})
	if err != nil {
		return err
	}

	errc := make(chan error, 1)
	go func() {
		appLogger.Info("starting portal", "api", cfg.API.BaseURL, "store", cfg.Store.Driver)
		errc <- srv.Listen(cfg.Addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	appLogger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

func prune(ctx context.Context, b *store.Bun, every, maxAge time.Duration, logger portal.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := b.Prune(ctx, time.Now().Add(-maxAge))
			if err != nil {
				logger.Error("session prune failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("sessions pruned", "rows", n)
			}
		}
	}
}

func redacted(cfg config.Config) config.Config {
	if cfg.CSRF.Key != "" {
		cfg.CSRF.Key = "****"
	}
	return cfg
}
