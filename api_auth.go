package portal

import "context"

// AuthAPI binds the authentication endpoints.
type AuthAPI struct {
	client *Client
}

func NewAuthAPI(c *Client) *AuthAPI {
	return &AuthAPI{client: c}
}

func (a *AuthAPI) SignUp(ctx context.Context, data SignUpData) (*AuthResponse, error) {
	var res AuthResponse
	if err := a.client.Post(ctx, EndpointSignUp, data, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (a *AuthAPI) SignIn(ctx context.Context, data SignInData) (*AuthResponse, error) {
	var res AuthResponse
	if err := a.client.Post(ctx, EndpointSignIn, data, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// HealthCheck calls the backend root.
func (a *AuthAPI) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	var res HealthStatus
	if err := a.client.Get(ctx, EndpointHealth, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
