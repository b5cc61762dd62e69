package portal

import "time"

const (
	// DefaultBaseURL is used when no base URL is configured.
	DefaultBaseURL = "http://localhost:3000/api/v1"
	// DefaultTimeout bounds every request.
	DefaultTimeout = 10 * time.Second
)

// Persisted session keys.
const (
	TokenKey = "auth_token"
	UserKey  = "auth_user"
)

// Portal routes.
const (
	RouteHome      = "/"
	RouteSignIn    = "/signin"
	RouteSignUp    = "/signup"
	RouteDashboard = "/dashboard"
	RouteProfile   = "/profile"
)

// Backend endpoints, relative to the base URL.
const (
	EndpointHealth         = "/"
	EndpointSignUp         = "/auth/signup"
	EndpointSignIn         = "/auth/signin"
	EndpointMe             = "/users/me"
	EndpointChangePassword = "/users/me/password"
)

// Validation messages.
const (
	MsgEmailRequired      = "Email is required"
	MsgEmailInvalid       = "Please enter a valid email address"
	MsgNameRequired       = "Name is required"
	MsgNameMinLength      = "Name must be at least 3 characters"
	MsgPasswordRequired   = "Password is required"
	MsgPasswordMinLength  = "Password must be at least 8 characters"
	MsgPasswordPattern    = "Password must contain at least one letter, one number, and one special character"
	MsgCurrentPasswordReq = "Current password is required"
	MsgConfirmPasswordReq = "Please confirm your new password"
	MsgPasswordMismatch   = "Passwords don't match"
)

// MsgUnexpectedError is shown for values that carry no usable message.
const MsgUnexpectedError = "An unexpected error occurred"

const (
	passwordSpecialChars = "@$!%*#?&"
	passwordMinLength    = 8
	nameMinLength        = 3
)
