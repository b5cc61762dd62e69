package portal

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenInfo describes an access token. It is read without verifying the
// signature: the portal has no key and uses it for display only. Access
// decisions stay with the backend.
type TokenInfo struct {
	Subject   string
	Email     string
	IssuedAt  *time.Time
	ExpiresAt *time.Time
	Claims    jwt.MapClaims
}

// Expired reports whether the token carries an expiry before now.
func (t TokenInfo) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && now.After(*t.ExpiresAt)
}

// InspectToken decodes the claims of a JWT without verifying it.
func InspectToken(token string) (*TokenInfo, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "unable to decode token").
			WithTextCode(errors.TextCodeTokenMalformed)
	}

	info := &TokenInfo{Claims: claims}
	info.Subject, _ = claims.GetSubject()
	if email, ok := claims["email"].(string); ok {
		info.Email = email
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		t := iat.Time
		info.IssuedAt = &t
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		info.ExpiresAt = &t
	}
	return info, nil
}
