package portal

import "context"

// UserAPI binds the endpoints of the signed in user.
type UserAPI struct {
	client *Client
}

func NewUserAPI(c *Client) *UserAPI {
	return &UserAPI{client: c}
}

func (a *UserAPI) Profile(ctx context.Context) (*User, error) {
	var u User
	if err := a.client.Get(ctx, EndpointMe, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (a *UserAPI) UpdateProfile(ctx context.Context, data UpdateProfileData) (*User, error) {
	var u User
	if err := a.client.Patch(ctx, EndpointMe, data, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (a *UserAPI) ChangePassword(ctx context.Context, data ChangePasswordData) error {
	return a.client.Patch(ctx, EndpointChangePassword, data, nil)
}
