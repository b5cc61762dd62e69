package portal

import (
	"context"

	"github.com/goliatone/go-auth-portal/query"
)

// ProfileStaleTime is how long a fetched profile is served from cache.
const ProfileStaleTime = query.DefaultStaleTime

// UserService reads and edits the signed in user.
type UserService struct {
	client  *Client
	api     *UserAPI
	queries *query.Client
	cfg     serviceConfig

	updateProfile  *query.Mutation[UpdateProfileData, *User]
	changePassword *query.Mutation[ChangePasswordData, struct{}]
}

func NewUserService(c *Client, queries *query.Client, opts ...ServiceOption) *UserService {
	if queries == nil {
		queries = query.NewClient(query.WithLogger(c.Logger()))
	}

	s := &UserService{
		client:  c,
		api:     NewUserAPI(c),
		queries: queries,
		cfg:     newServiceConfig(c, opts),
	}

	s.updateProfile = query.NewMutation(queries, s.api.UpdateProfile, query.MutationOptions[UpdateProfileData, *User]{
		OnSuccess: func(ctx context.Context, _ UpdateProfileData, u *User) {
			s.queries.SetQueryData(query.UserProfile, u)
			if err := s.client.Session().SetUser(ctx, *u); err != nil {
				s.cfg.logger.Warn("unable to persist user", "error", err)
			}
			s.cfg.logger.Info("Profile updated successfully")
			recordActivity(ctx, s.cfg.activity, s.cfg.logger, ActivityEvent{
				EventType: ActivityEventProfileUpdated,
				UserID:    u.ID,
				Email:     u.Email,
				Session:   s.client.Session().Namespace(),
			})
		},
		OnError: func(_ context.Context, _ UpdateProfileData, err error) {
			s.cfg.logger.Error("Profile update failed", "error", ErrorMessage(err))
		},
	})

	s.changePassword = query.NewMutation(queries, s.changePasswordFn, query.MutationOptions[ChangePasswordData, struct{}]{
		OnSuccess: func(ctx context.Context, _ ChangePasswordData, _ struct{}) {
			s.cfg.logger.Info("Password changed successfully")
			event := ActivityEvent{
				EventType: ActivityEventPasswordChanged,
				Session:   s.client.Session().Namespace(),
			}
			if u, err := s.client.Session().User(ctx); err == nil && u != nil {
				event.UserID = u.ID
				event.Email = u.Email
			}
			recordActivity(ctx, s.cfg.activity, s.cfg.logger, event)
		},
		OnError: func(_ context.Context, _ ChangePasswordData, err error) {
			s.cfg.logger.Error("Password change failed", "error", ErrorMessage(err))
		},
	})

	return s
}

// Profile returns the cached profile, fetching it when stale. Without a
// token nothing is fetched and the result is idle.
func (s *UserService) Profile(ctx context.Context) query.Result[*User] {
	return query.Fetch(ctx, s.queries, query.UserProfile, s.api.Profile,
		query.Enabled(s.client.Session().IsAuthenticated(ctx)),
		query.StaleTime(ProfileStaleTime),
	)
}

// UpdateProfile validates data and sends the changes. The returned user
// replaces the cached profile and the persisted user.
func (s *UserService) UpdateProfile(ctx context.Context, data UpdateProfileData) (*User, error) {
	if err := data.Validate(); err != nil {
		return nil, validationError(err)
	}
	return s.updateProfile.Mutate(ctx, data)
}

// ChangePassword validates data and sends it. No cached state changes.
func (s *UserService) ChangePassword(ctx context.Context, data ChangePasswordData) error {
	if err := data.Validate(); err != nil {
		return validationError(err)
	}
	_, err := s.changePassword.Mutate(ctx, data)
	return err
}

func (s *UserService) UpdateProfileState() query.MutationState[*User] {
	return s.updateProfile.State()
}

func (s *UserService) ChangePasswordState() query.MutationState[struct{}] {
	return s.changePassword.State()
}

func (s *UserService) changePasswordFn(ctx context.Context, data ChangePasswordData) (struct{}, error) {
	return struct{}{}, s.api.ChangePassword(ctx, data)
}
