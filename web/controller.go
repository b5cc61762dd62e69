package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	portal "github.com/goliatone/go-auth-portal"
	"github.com/goliatone/go-auth-portal/middleware/csrf"
	"github.com/goliatone/go-auth-portal/middleware/guard"
	"github.com/goliatone/go-auth-portal/query"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

type ControllerRoutes struct {
	SignIn    string
	SignUp    string
	Dashboard string
	Profile   string
	Password  string
	Logout    string
}

type ControllerViews struct {
	SignIn    string
	SignUp    string
	Dashboard string
	Profile   string
}

type ControllerConfig struct {
	Client   *portal.Client
	Queries  *query.Client
	Logger   portal.Logger
	Activity portal.ActivitySink
	Debug    bool
}

// Controller renders the portal pages. Every handler works on services
// bound to the browser session of the request.
type Controller struct {
	Debug  bool
	Logger portal.Logger
	Routes *ControllerRoutes
	Views  *ControllerViews

	client   *portal.Client
	queries  *query.Client
	activity portal.ActivitySink
}

func NewController(cfg ControllerConfig) *Controller {
	return &Controller{
		Debug:    cfg.Debug,
		Logger:   cfg.Logger,
		client:   cfg.Client,
		queries:  cfg.Queries,
		activity: cfg.Activity,
		Routes: &ControllerRoutes{
			SignIn:    portal.RouteSignIn,
			SignUp:    portal.RouteSignUp,
			Dashboard: portal.RouteDashboard,
			Profile:   portal.RouteProfile,
			Password:  portal.RouteProfile + "/password",
			Logout:    "/logout",
		},
		Views: &ControllerViews{
			SignIn:    "signin",
			SignUp:    "signup",
			Dashboard: "dashboard",
			Profile:   "profile",
		},
	}
}

type services struct {
	auth  *portal.AuthService
	users *portal.UserService
}

func (a *Controller) services(c *fiber.Ctx) services {
	client := a.client
	queries := a.queries
	if sess, ok := guard.SessionFrom(c); ok {
		client = client.WithSession(sess)
		queries = queries.Scoped(guard.SessionID(c))
	}

	opts := []portal.ServiceOption{
		portal.WithServiceLogger(a.Logger),
		portal.WithActivitySink(a.activity),
	}
	return services{
		auth:  portal.NewAuthService(client, queries, opts...),
		users: portal.NewUserService(client, queries, opts...),
	}
}

// signInPayload is the sign in form
type signInPayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
	From     string `form:"from" json:"from"`
}

// signUpPayload is the sign up form
type signUpPayload struct {
	Email    string `form:"email" json:"email"`
	Name     string `form:"name" json:"name"`
	Password string `form:"password" json:"password"`
}

func (a *Controller) SignInShow(c *fiber.Ctx) error {
	return render(c, a.Views.SignIn, router.ViewContext{
		"errors": map[string]string{},
		"record": signInPayload{From: c.Query("from")},
	})
}

func (a *Controller) SignInPost(c *fiber.Ctx) error {
	payload := new(signInPayload)
	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("sign in parse payload", "error", err)
		return render(c.Status(fiber.StatusBadRequest), a.Views.SignIn, router.ViewContext{
			"errors":  map[string]string{"form": "Failed to parse form"},
			"record":  payload,
			"message": "Failed to parse form",
		})
	}

	svc := a.services(c)
	_, err := svc.auth.SignIn(c.UserContext(), portal.SignInData{
		Email:    strings.TrimSpace(payload.Email),
		Password: payload.Password,
	})
	if err != nil {
		payload.Password = ""
		return a.formError(c, a.Views.SignIn, payload, err)
	}

	return c.Redirect(guard.SafeRedirect(payload.From, a.Routes.Dashboard), fiber.StatusSeeOther)
}

func (a *Controller) SignUpShow(c *fiber.Ctx) error {
	return render(c, a.Views.SignUp, router.ViewContext{
		"errors": map[string]string{},
		"record": signUpPayload{},
	})
}

func (a *Controller) SignUpPost(c *fiber.Ctx) error {
	payload := new(signUpPayload)
	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("sign up parse payload", "error", err)
		return render(c.Status(fiber.StatusBadRequest), a.Views.SignUp, router.ViewContext{
			"errors":  map[string]string{"form": "Failed to parse form"},
			"record":  payload,
			"message": "Failed to parse form",
		})
	}

	svc := a.services(c)
	_, err := svc.auth.SignUp(c.UserContext(), portal.SignUpData{
		Email:    strings.TrimSpace(payload.Email),
		Name:     strings.TrimSpace(payload.Name),
		Password: payload.Password,
	})
	if err != nil {
		strength := portal.PasswordStrength(payload.Password)
		label := ""
		if strength.Level != portal.StrengthNone {
			label = strength.Level.Label()
		}
		payload.Password = ""
		return a.formError(c, a.Views.SignUp, payload, err,
			"strength", strength,
			"strength_label", label,
		)
	}

	return c.Redirect(a.Routes.Dashboard, fiber.StatusSeeOther)
}

func (a *Controller) Dashboard(c *fiber.Ctx) error {
	svc := a.services(c)
	ctx := c.UserContext()

	profile := svc.users.Profile(ctx)
	if !svc.auth.IsAuthenticated(ctx) {
		// a 401 while loading the profile ended the session
		return c.Redirect(guard.SignInURL(a.Routes.SignIn, c.OriginalURL()), fiber.StatusFound)
	}

	user := profile.Data
	if user == nil {
		// the profile query failed, show what the session remembers
		user, _ = svc.auth.Session().User(ctx)
	}

	view := router.ViewContext{
		"user":  user,
		"error": "",
	}
	if profile.IsError() {
		view["error"] = portal.ErrorMessage(profile.Err)
	}

	token, _ := svc.auth.Session().Token(ctx)
	if info, err := portal.InspectToken(token); err == nil && info.ExpiresAt != nil {
		view["token_expires"] = info.ExpiresAt.Format(time.RFC1123)
		view["token_expired"] = info.Expired(time.Now())
	}

	if a.Debug {
		a.Logger.Debug("dashboard", "user", print.MaybePrettyJSON(user))
	}

	return render(c, a.Views.Dashboard, view)
}

func (a *Controller) ProfileShow(c *fiber.Ctx) error {
	svc := a.services(c)
	return a.renderProfile(c, svc, router.ViewContext{})
}

func (a *Controller) ProfileUpdate(c *fiber.Ctx) error {
	svc := a.services(c)

	form := new(portal.UpdateProfileForm)
	if err := c.BodyParser(form); err != nil {
		a.Logger.Error("profile parse payload", "error", err)
		return a.renderProfile(c.Status(fiber.StatusBadRequest), svc, router.ViewContext{
			"profile_message": "Failed to parse form",
		})
	}

	data := form.Data()
	if data.IsEmpty() {
		return a.renderProfile(c, svc, router.ViewContext{
			"profile_record":  form,
			"profile_message": "Nothing to update",
		})
	}

	if _, err := svc.users.UpdateProfile(c.UserContext(), data); err != nil {
		return a.renderProfile(c.Status(statusFor(err)), svc, router.ViewContext{
			"profile_record":  form,
			"profile_errors":  fieldErrors(err),
			"profile_message": formMessage(err),
		})
	}

	return a.renderProfile(c, svc, router.ViewContext{
		"profile_notice": "Profile updated successfully",
	})
}

func (a *Controller) PasswordChange(c *fiber.Ctx) error {
	svc := a.services(c)

	form := new(portal.ChangePasswordForm)
	if err := c.BodyParser(form); err != nil {
		a.Logger.Error("password parse payload", "error", err)
		return a.renderProfile(c.Status(fiber.StatusBadRequest), svc, router.ViewContext{
			"password_message": "Failed to parse form",
		})
	}

	if err := form.Validate(); err != nil {
		return a.renderProfile(c.Status(fiber.StatusUnprocessableEntity), svc, router.ViewContext{
			"password_errors": portal.ValidationErrorsToMap(err),
		})
	}

	if err := svc.users.ChangePassword(c.UserContext(), form.Data()); err != nil {
		return a.renderProfile(c.Status(statusFor(err)), svc, router.ViewContext{
			"password_errors":  fieldErrors(err),
			"password_message": formMessage(err),
		})
	}

	return a.renderProfile(c, svc, router.ViewContext{
		"password_notice": "Password changed successfully",
	})
}

func (a *Controller) Logout(c *fiber.Ctx) error {
	svc := a.services(c)
	if err := svc.auth.Logout(c.UserContext()); err != nil {
		return err
	}
	return c.Redirect(a.Routes.SignIn, fiber.StatusSeeOther)
}

// Health reports the portal status and whether the backend answers.
func (a *Controller) Health(c *fiber.Ctx) error {
	auth := portal.NewAuthService(a.client, a.queries, portal.WithServiceLogger(a.Logger))

	res := auth.HealthCheck(c.UserContext())
	if res.IsError() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":  "degraded",
			"backend": portal.ErrorMessage(res.Err),
		})
	}

	backend := ""
	if res.Data != nil {
		backend = res.Data.Message
	}
	return c.JSON(fiber.Map{
		"status":  "ok",
		"backend": backend,
	})
}

func (a *Controller) renderProfile(c *fiber.Ctx, svc services, extra router.ViewContext) error {
	ctx := c.UserContext()
	profile := svc.users.Profile(ctx)

	user := profile.Data
	if user == nil {
		user, _ = svc.auth.Session().User(ctx)
	}

	view := router.ViewContext{
		"user":            user,
		"profile_errors":  map[string]string{},
		"password_errors": map[string]string{},
	}
	if profile.IsError() {
		view["error"] = portal.ErrorMessage(profile.Err)
	}
	if user != nil {
		view["profile_record"] = portal.UpdateProfileForm{Name: user.Name, Email: user.Email}
	}
	for k, v := range extra {
		view[k] = v
	}

	return render(c, a.Views.Profile, view)
}

func (a *Controller) formError(c *fiber.Ctx, view string, record any, err error, extra ...any) error {
	data := router.ViewContext{
		"record":  record,
		"errors":  fieldErrors(err),
		"message": formMessage(err),
	}
	for i := 0; i+1 < len(extra); i += 2 {
		if k, ok := extra[i].(string); ok {
			data[k] = extra[i+1]
		}
	}
	return render(c.Status(statusFor(err)), view, data)
}

// formMessage is the banner shown above a form. Validation failures are
// shown next to their fields instead.
func formMessage(err error) string {
	if portal.IsValidationError(err) {
		return ""
	}
	return portal.ErrorMessage(err)
}

func fieldErrors(err error) map[string]string {
	if !portal.IsValidationError(err) {
		return map[string]string{}
	}
	return portal.ValidationErrorsToMap(err)
}

// statusFor picks the response status for a failed form submission.
func statusFor(err error) int {
	if portal.IsValidationError(err) {
		return http.StatusUnprocessableEntity
	}
	if portal.IsNetworkError(err) {
		return http.StatusBadGateway
	}
	if status := portal.StatusCode(err); status >= 400 && status < 500 {
		return status
	}
	return http.StatusBadGateway
}

func render(c *fiber.Ctx, name string, data router.ViewContext) error {
	sess, _ := guard.SessionFrom(c)
	view := portal.MergeTemplateData(portal.TemplateData(c.UserContext(), sess), data)
	view["csrf"] = csrf.TemplateHelpers(c)
	view["path"] = c.Path()
	return c.Render(name, fiber.Map(view))
}
