package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	portal "github.com/goliatone/go-auth-portal"
	"github.com/goliatone/go-auth-portal/query"
	"github.com/goliatone/go-auth-portal/store"
	"github.com/goliatone/go-print"
)

// cliConfig holds the global settings shared by every command.
type cliConfig struct {
	APIBaseURL string        `env:"PORTAL_API_BASE_URL" envDefault:"http://localhost:3000/api/v1"`
	Timeout    time.Duration `env:"PORTAL_API_TIMEOUT" envDefault:"10s"`
	Session    string        `env:"AUTHCTL_SESSION"`
	Verbose    bool          `env:"AUTHCTL_VERBOSE"`
}

type command struct {
	usage string
	run   func(ctx context.Context, app *cli, args []string) error
}

var commands = map[string]command{
	"signup":   {"signup -email E -name N -password P", cmdSignUp},
	"signin":   {"signin -email E -password P", cmdSignIn},
	"logout":   {"logout", cmdLogout},
	"whoami":   {"whoami", cmdWhoAmI},
	"profile":  {"profile", cmdProfile},
	"update":   {"update [-name N] [-email E]", cmdUpdate},
	"password": {"password -current C -new N -confirm N", cmdPassword},
	"health":   {"health", cmdHealth},
	"status":   {"status", cmdStatus},
}

type cli struct {
	out   io.Writer
	auth  *portal.AuthService
	users *portal.UserService
	sess  *portal.Session
}

func parseGlobal(args []string, errOut io.Writer) (cliConfig, []string, error) {
	var cfg cliConfig
	if err := env.Parse(&cfg); err != nil {
		return cliConfig{}, nil, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("authctl", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.StringVar(&cfg.APIBaseURL, "api", cfg.APIBaseURL, "backend API base URL")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "request timeout")
	fs.StringVar(&cfg.Session, "session", cfg.Session, "session file (default in the user config dir)")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "log API traffic")
	fs.Usage = func() { usage(fs, errOut) }
	if err := fs.Parse(args); err != nil {
		return cliConfig{}, nil, err
	}

	if cfg.Session == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			dir = os.TempDir()
		}
		cfg.Session = filepath.Join(dir, "go-auth-portal", "session.json")
	}
	return cfg, fs.Args(), nil
}

func usage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "usage: authctl [flags] <command> [command flags]")
	fmt.Fprintln(w, "\ncommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
	fmt.Fprintln(w, "\nflags:")
	fs.PrintDefaults()
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, out, errOut io.Writer) int {
	cfg, rest, err := parseGlobal(args, errOut)
	if err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		fmt.Fprintln(errOut, "authctl:", err)
		return 2
	}
	if len(rest) == 0 {
		fmt.Fprintln(errOut, "authctl: missing command")
		return 2
	}

	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(errOut, "authctl: unknown command %q\n", rest[0])
		return 2
	}

	st, err := store.NewFile(cfg.Session)
	if err != nil {
		fmt.Fprintln(errOut, "authctl:", err)
		return 1
	}
	defer st.Close()

	var logger portal.Logger = portal.NopLogger{}
	if cfg.Verbose {
		logger = portal.DefaultLogger()
	}

	sess := portal.NewSession(st)
	client := portal.NewClient(
		portal.WithBaseURL(cfg.APIBaseURL),
		portal.WithTimeout(cfg.Timeout),
		portal.WithLogger(logger),
		portal.WithClientSession(sess),
	)
	queries := query.NewClient(query.WithLogger(logger))
	opts := []portal.ServiceOption{portal.WithServiceLogger(logger)}

	app := &cli{
		out:   out,
		auth:  portal.NewAuthService(client, queries, opts...),
		users: portal.NewUserService(client, queries, opts...),
		sess:  sess,
	}

	if err := cmd.run(ctx, app, rest[1:]); err != nil {
		fmt.Fprintln(errOut, "authctl:", message(err))
		if portal.IsValidationError(err) {
			for field, msg := range portal.ValidationErrorsToMap(err) {
				fmt.Fprintf(errOut, "  %s: %s\n", field, msg)
			}
		}
		return 1
	}
	return 0
}

func message(err error) string {
	if portal.IsValidationError(err) {
		return "invalid input"
	}
	return portal.ErrorMessage(err)
}

func (a *cli) print(v any) {
	fmt.Fprintln(a.out, print.MaybePrettyJSON(v))
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func cmdSignUp(ctx context.Context, a *cli, args []string) error {
	var data portal.SignUpData
	fs := newFlags("signup")
	fs.StringVar(&data.Email, "email", "", "email")
	fs.StringVar(&data.Name, "name", "", "display name")
	fs.StringVar(&data.Password, "password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	res, err := a.auth.SignUp(ctx, data)
	if err != nil {
		return err
	}
	a.print(res.User)
	return nil
}

func cmdSignIn(ctx context.Context, a *cli, args []string) error {
	var data portal.SignInData
	fs := newFlags("signin")
	fs.StringVar(&data.Email, "email", "", "email")
	fs.StringVar(&data.Password, "password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	res, err := a.auth.SignIn(ctx, data)
	if err != nil {
		return err
	}
	a.print(res.User)
	return nil
}

func cmdLogout(ctx context.Context, a *cli, _ []string) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "signed out")
	return nil
}

// cmdWhoAmI prints the user stored in the session without calling the API.
func cmdWhoAmI(ctx context.Context, a *cli, _ []string) error {
	user, err := a.sess.User(ctx)
	if err != nil {
		return err
	}
	if user == nil {
		return portal.ErrNotAuthenticated
	}
	a.print(user)
	return nil
}

func cmdProfile(ctx context.Context, a *cli, _ []string) error {
	res := a.users.Profile(ctx)
	switch {
	case res.IsIdle():
		return portal.ErrNotAuthenticated
	case res.IsError():
		return res.Err
	}
	a.print(res.Data)
	return nil
}

func cmdUpdate(ctx context.Context, a *cli, args []string) error {
	var form portal.UpdateProfileForm
	fs := newFlags("update")
	fs.StringVar(&form.Name, "name", "", "new display name")
	fs.StringVar(&form.Email, "email", "", "new email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	data := form.Data()
	if data.IsEmpty() {
		fmt.Fprintln(a.out, "nothing to update")
		return nil
	}

	user, err := a.users.UpdateProfile(ctx, data)
	if err != nil {
		return err
	}
	a.print(user)
	return nil
}

func cmdPassword(ctx context.Context, a *cli, args []string) error {
	var form portal.ChangePasswordForm
	fs := newFlags("password")
	fs.StringVar(&form.CurrentPassword, "current", "", "current password")
	fs.StringVar(&form.NewPassword, "new", "", "new password")
	fs.StringVar(&form.ConfirmPassword, "confirm", "", "new password again")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := form.Validate(); err != nil {
		return err
	}
	if err := a.users.ChangePassword(ctx, form.Data()); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "password changed")
	return nil
}

func cmdHealth(ctx context.Context, a *cli, _ []string) error {
	res := a.auth.HealthCheck(ctx)
	if res.IsError() {
		return res.Err
	}
	a.print(res.Data)
	return nil
}

// cmdStatus reports what the stored token says about itself.
func cmdStatus(ctx context.Context, a *cli, _ []string) error {
	token, err := a.sess.Token(ctx)
	if err != nil {
		return err
	}
	info, err := portal.InspectToken(token)
	if err != nil {
		return err
	}

	status := map[string]any{
		"authenticated": true,
		"subject":       info.Subject,
		"email":         info.Email,
	}
	if info.ExpiresAt != nil {
		status["expires_at"] = info.ExpiresAt.Format(time.RFC3339)
		status["expired"] = info.Expired(time.Now())
		status["expires_in"] = strings.TrimPrefix(time.Until(*info.ExpiresAt).Round(time.Second).String(), "-")
	}
	a.print(status)
	return nil
}
