package portal

import (
	"context"

	"github.com/goliatone/go-auth-portal/query"
)

// AuthService signs users up, in and out. A successful sign up or sign in
// persists the token and user in the client session and invalidates cached
// user data.
type AuthService struct {
	client  *Client
	api     *AuthAPI
	queries *query.Client
	cfg     serviceConfig

	signUp *query.Mutation[SignUpData, *AuthResponse]
	signIn *query.Mutation[SignInData, *AuthResponse]
}

func NewAuthService(c *Client, queries *query.Client, opts ...ServiceOption) *AuthService {
	if queries == nil {
		queries = query.NewClient(query.WithLogger(c.Logger()))
	}

	s := &AuthService{
		client:  c,
		api:     NewAuthAPI(c),
		queries: queries,
		cfg:     newServiceConfig(c, opts),
	}

	s.signUp = query.NewMutation(queries, s.signUpFn, query.MutationOptions[SignUpData, *AuthResponse]{
		OnSuccess: func(ctx context.Context, _ SignUpData, res *AuthResponse) {
			s.authenticated(ctx, ActivityEventSignUpSuccess, "User signed up successfully", res)
		},
		OnError: func(ctx context.Context, in SignUpData, err error) {
			s.failed(ctx, ActivityEventSignUpFailure, "Sign up failed", in.Email, err)
		},
	})

	s.signIn = query.NewMutation(queries, s.signInFn, query.MutationOptions[SignInData, *AuthResponse]{
		OnSuccess: func(ctx context.Context, _ SignInData, res *AuthResponse) {
			s.authenticated(ctx, ActivityEventSignInSuccess, "User signed in successfully", res)
		},
		OnError: func(ctx context.Context, in SignInData, err error) {
			s.failed(ctx, ActivityEventSignInFailure, "Sign in failed", in.Email, err)
		},
	})

	return s
}

// Session is the session the service reads and writes.
func (s *AuthService) Session() *Session {
	return s.client.Session()
}

// SignUp validates data, registers the account and stores the session.
func (s *AuthService) SignUp(ctx context.Context, data SignUpData) (*AuthResponse, error) {
	if err := data.Validate(); err != nil {
		return nil, validationError(err)
	}
	return s.signUp.Mutate(ctx, data)
}

// SignIn validates data, authenticates and stores the session.
func (s *AuthService) SignIn(ctx context.Context, data SignInData) (*AuthResponse, error) {
	if err := data.Validate(); err != nil {
		return nil, validationError(err)
	}
	return s.signIn.Mutate(ctx, data)
}

func (s *AuthService) SignUpState() query.MutationState[*AuthResponse] {
	return s.signUp.State()
}

func (s *AuthService) SignInState() query.MutationState[*AuthResponse] {
	return s.signIn.State()
}

// Logout clears the session and every cached query visible to the service.
func (s *AuthService) Logout(ctx context.Context) error {
	sess := s.Session()

	event := ActivityEvent{EventType: ActivityEventLogout, Session: sess.Namespace()}
	if u, err := sess.User(ctx); err == nil && u != nil {
		event.UserID = u.ID
		event.Email = u.Email
	}

	if err := sess.Clear(ctx); err != nil {
		s.cfg.logger.Error("Logout failed", "error", err)
		return err
	}
	s.queries.Clear()

	s.cfg.logger.Info("User logged out")
	recordActivity(ctx, s.cfg.activity, s.cfg.logger, event)
	return nil
}

// IsAuthenticated reports whether the session holds a token.
func (s *AuthService) IsAuthenticated(ctx context.Context) bool {
	return s.Session().IsAuthenticated(ctx)
}

// HealthCheck reads the backend root through the query cache.
func (s *AuthService) HealthCheck(ctx context.Context) query.Result[*HealthStatus] {
	return query.Fetch(ctx, s.queries, query.AuthHealth, s.api.HealthCheck)
}

func (s *AuthService) signUpFn(ctx context.Context, data SignUpData) (*AuthResponse, error) {
	res, err := s.api.SignUp(ctx, data)
	if err != nil {
		return nil, err
	}
	return res, s.persist(ctx, res)
}

func (s *AuthService) signInFn(ctx context.Context, data SignInData) (*AuthResponse, error) {
	res, err := s.api.SignIn(ctx, data)
	if err != nil {
		return nil, err
	}
	return res, s.persist(ctx, res)
}

func (s *AuthService) persist(ctx context.Context, res *AuthResponse) error {
	return s.Session().Save(ctx, res.AccessToken, res.User)
}

func (s *AuthService) authenticated(ctx context.Context, kind ActivityEventType, msg string, res *AuthResponse) {
	s.queries.InvalidateQueries(query.UserAll)
	s.cfg.logger.Info(msg, "userId", res.User.ID)
	recordActivity(ctx, s.cfg.activity, s.cfg.logger, ActivityEvent{
		EventType: kind,
		UserID:    res.User.ID,
		Email:     res.User.Email,
		Session:   s.Session().Namespace(),
	})
}

func (s *AuthService) failed(ctx context.Context, kind ActivityEventType, msg, email string, err error) {
	reason := ErrorMessage(err)
	s.cfg.logger.Error(msg, "error", reason)
	recordActivity(ctx, s.cfg.activity, s.cfg.logger, ActivityEvent{
		EventType: kind,
		Email:     email,
		Session:   s.Session().Namespace(),
		Metadata: map[string]any{
			"reason": reason,
		},
	})
}
