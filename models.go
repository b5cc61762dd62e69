package portal

import (
	"encoding/json"
	"strings"
)

// User is the account record owned by the backend.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// AuthResponse is returned by the sign up and sign in endpoints.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

// SignUpData is the registration payload.
type SignUpData struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// SignInData is the credentials payload.
type SignInData struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordData is sent to the password endpoint. The confirmation
// field of the form never leaves the client.
type ChangePasswordData struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// UpdateProfileData carries the fields to change; nil fields are left
// untouched by the backend.
type UpdateProfileData struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

// HealthStatus is the body of the backend root endpoint.
type HealthStatus struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// ErrorPayload is the structured error body sent by the backend.
type ErrorPayload struct {
	Message    Message `json:"message"`
	StatusCode int     `json:"statusCode"`
	Error      string  `json:"error,omitempty"`
}

// Message accepts either a string or a list of strings. Validation failures
// arrive as lists and are joined for display.
type Message string

func (m *Message) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*m = Message(s)
		return nil
	}

	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		// anything else is treated as absent
		*m = ""
		return nil
	}
	*m = Message(strings.Join(list, ", "))
	return nil
}

func (m Message) String() string {
	return string(m)
}
