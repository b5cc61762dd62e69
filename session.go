package portal

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/goliatone/go-auth-portal/store"
)

// Session reads and writes the token and user record of one client. Token
// and user are independent; the services set and clear them together.
//
// A Session with a namespace prefixes its keys with "<namespace>:", which
// lets many browser sessions share one store.
type Session struct {
	store     store.Store
	namespace string
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithNamespace scopes the session keys.
func WithNamespace(ns string) SessionOption {
	return func(s *Session) {
		s.namespace = strings.TrimSpace(ns)
	}
}

// NewSession returns a Session over st. A nil store falls back to memory.
func NewSession(st store.Store, opts ...SessionOption) *Session {
	if st == nil {
		st = store.NewMemory()
	}
	s := &Session{store: st}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Namespace returns the key prefix, empty for the bare keys.
func (s *Session) Namespace() string {
	return s.namespace
}

func (s *Session) key(name string) string {
	if s.namespace == "" {
		return name
	}
	return s.namespace + ":" + name
}

// Token returns the stored token, empty when absent.
func (s *Session) Token(ctx context.Context) (string, error) {
	v, ok, err := s.store.Get(ctx, s.key(TokenKey))
	if err != nil || !ok {
		return "", err
	}
	return v, nil
}

func (s *Session) SetToken(ctx context.Context, token string) error {
	return s.store.Set(ctx, s.key(TokenKey), token)
}

func (s *Session) RemoveToken(ctx context.Context) error {
	return s.store.Delete(ctx, s.key(TokenKey))
}

// User returns the stored user, nil when absent.
func (s *Session) User(ctx context.Context) (*User, error) {
	v, ok, err := s.store.Get(ctx, s.key(UserKey))
	if err != nil || !ok {
		return nil, err
	}

	var u User
	if err := json.Unmarshal([]byte(v), &u); err != nil {
		return nil, invalidSession(err)
	}
	return &u, nil
}

func (s *Session) SetUser(ctx context.Context, u User) error {
	b, err := json.Marshal(u)
	if err != nil {
		return invalidSession(err)
	}
	return s.store.Set(ctx, s.key(UserKey), string(b))
}

func (s *Session) RemoveUser(ctx context.Context) error {
	return s.store.Delete(ctx, s.key(UserKey))
}

// Save stores token and user.
func (s *Session) Save(ctx context.Context, token string, u User) error {
	if err := s.SetToken(ctx, token); err != nil {
		return err
	}
	return s.SetUser(ctx, u)
}

// Clear removes token and user.
func (s *Session) Clear(ctx context.Context) error {
	return s.store.Delete(ctx, s.key(TokenKey), s.key(UserKey))
}

// IsAuthenticated reports token presence. Expiry is not checked: a stale
// token is valid until the backend rejects it.
func (s *Session) IsAuthenticated(ctx context.Context) bool {
	token, err := s.Token(ctx)
	return err == nil && token != ""
}
