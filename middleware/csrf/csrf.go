package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"html/template"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-auth-portal/store"
)

var (
	ErrTokenMismatch    = errors.New("CSRF token mismatch")
	ErrTokenMissing     = errors.New("CSRF token missing")
	ErrTokenExpired     = errors.New("CSRF token expired")
	ErrSecureKeyMissing = errors.New("CSRF secure key required for stateless mode")
)

// DefaultTokenLength is the default length for CSRF tokens
const DefaultTokenLength = 32

// DefaultContextKey is the default key for storing CSRF tokens in locals
const DefaultContextKey = "csrf_token"

// DefaultFormFieldName is the default name for the CSRF token form field
const DefaultFormFieldName = "_token"

// DefaultHeaderName is the default header name for CSRF tokens
const DefaultHeaderName = "X-CSRF-Token"

// DefaultSessionIDKey is the locals key read to bind tokens to a browser
// session. The guard Sessions middleware sets it.
const DefaultSessionIDKey = "session_id"

// Config defines the configuration for CSRF middleware
type Config struct {
	// Skip defines a function to skip middleware
	Skip func(*fiber.Ctx) bool

	// TokenLength defines the length of the generated token
	TokenLength int

	// ContextKey defines the key for storing the token in locals
	ContextKey string

	// FormFieldName defines the name of the form field containing the token
	FormFieldName string

	// HeaderName defines the header name for the token
	HeaderName string

	// SessionIDKey is the locals key holding the browser session id
	SessionIDKey string

	// Storage keeps one token per session. If nil, tokens are signed and
	// verified without state.
	Storage store.Store

	// ErrorHandler defines the error handler
	ErrorHandler fiber.ErrorHandler

	// SafeMethods defines HTTP methods that don't require CSRF protection
	SafeMethods []string

	// Expiration defines how long stateless tokens are valid
	Expiration time.Duration

	// SecureKey signs stateless tokens, at least 32 bytes
	SecureKey []byte
}

// New creates a new CSRF middleware
func New(config ...Config) fiber.Handler {
	cfg := configDefault(config...)

	return func(c *fiber.Ctx) error {
		if cfg.Skip != nil && cfg.Skip(c) {
			return c.Next()
		}

		token, err := getOrGenerateToken(c, cfg)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		c.Locals(cfg.ContextKey, token)
		c.Locals(cfg.ContextKey+"_field", cfg.FormFieldName)
		c.Locals(cfg.ContextKey+"_header", cfg.HeaderName)

		// safe methods don't require validation
		method := strings.ToUpper(c.Method())
		if slices.Contains(cfg.SafeMethods, method) {
			return c.Next()
		}

		if err := validateToken(c, cfg, token); err != nil {
			return cfg.ErrorHandler(c, err)
		}

		return c.Next()
	}
}

// TemplateHelpers returns the token, a hidden form field and a meta tag for
// the current request.
func TemplateHelpers(c *fiber.Ctx, tokenKey ...string) map[string]any {
	key := DefaultContextKey
	if len(tokenKey) > 0 && tokenKey[0] != "" {
		key = tokenKey[0]
	}

	token, _ := c.Locals(key).(string)

	fieldName := DefaultFormFieldName
	if v, ok := c.Locals(key + "_field").(string); ok && v != "" {
		fieldName = v
	}

	headerName := DefaultHeaderName
	if v, ok := c.Locals(key + "_header").(string); ok && v != "" {
		headerName = v
	}

	escaped := template.HTMLEscapeString(token)
	return map[string]any{
		"csrf_token":       token,
		"csrf_field":       `<input type="hidden" name="` + fieldName + `" value="` + escaped + `">`,
		"csrf_meta":        `<meta name="csrf-token" content="` + escaped + `">`,
		"csrf_header_name": headerName,
	}
}

// getOrGenerateToken generates or retrieves a CSRF token
func getOrGenerateToken(c *fiber.Ctx, cfg Config) (string, error) {
	if cfg.Storage != nil {
		key := getSessionKey(c, cfg)
		if token, ok, err := cfg.Storage.Get(c.UserContext(), key); err == nil && ok && token != "" {
			return token, nil
		}

		token, err := generateToken(cfg.TokenLength)
		if err != nil {
			return "", err
		}

		if err := cfg.Storage.Set(c.UserContext(), key, token); err != nil {
			return "", err
		}
		return token, nil
	}

	return generateStatelessToken(c, cfg)
}

// validateToken validates the CSRF token from the request
func validateToken(c *fiber.Ctx, cfg Config, expectedToken string) error {
	receivedToken := extractToken(c, cfg)
	if receivedToken == "" {
		return ErrTokenMissing
	}

	if cfg.Storage != nil {
		if expectedToken == "" {
			return ErrTokenMismatch
		}
		if subtle.ConstantTimeCompare([]byte(receivedToken), []byte(expectedToken)) != 1 {
			return ErrTokenMismatch
		}
		return nil
	}

	return validateStatelessToken(c, cfg, receivedToken)
}

// generateToken generates a cryptographically secure random token
func generateToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func generateStatelessToken(c *fiber.Ctx, cfg Config) (string, error) {
	if len(cfg.SecureKey) == 0 {
		return "", ErrSecureKeyMissing
	}

	nonce := make([]byte, cfg.TokenLength)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	timestamp := time.Now().UTC().Unix()
	payload := fmt.Sprintf("%d:%s:%s", timestamp, hex.EncodeToString(nonce), getSessionKey(c, cfg))

	token := payload + ":" + hex.EncodeToString(sign(cfg.SecureKey, payload))
	return base64.RawURLEncoding.EncodeToString([]byte(token)), nil
}

func validateStatelessToken(c *fiber.Ctx, cfg Config, token string) error {
	if len(cfg.SecureKey) == 0 {
		return ErrSecureKeyMissing
	}

	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return ErrTokenMismatch
	}

	// session keys never contain ':' so the split is unambiguous
	parts := strings.Split(string(decoded), ":")
	if len(parts) != 4 {
		return ErrTokenMismatch
	}

	timestamp, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return ErrTokenMismatch
	}

	if _, err := hex.DecodeString(parts[1]); err != nil {
		return ErrTokenMismatch
	}

	signature, err := hex.DecodeString(parts[3])
	if err != nil {
		return ErrTokenMismatch
	}

	if !hmac.Equal(signature, sign(cfg.SecureKey, strings.Join(parts[:3], ":"))) {
		return ErrTokenMismatch
	}

	if subtle.ConstantTimeCompare([]byte(parts[2]), []byte(getSessionKey(c, cfg))) != 1 {
		return ErrTokenMismatch
	}

	if cfg.Expiration > 0 {
		expiresAt := time.Unix(timestamp, 0).Add(cfg.Expiration)
		if time.Now().UTC().After(expiresAt) {
			return ErrTokenExpired
		}
	}

	return nil
}

func sign(key []byte, payload string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(payload))
	return mac.Sum(nil)
}

// extractToken looks in the form first and then the header
func extractToken(c *fiber.Ctx, cfg Config) string {
	if token := c.FormValue(cfg.FormFieldName); token != "" {
		return token
	}
	return c.Get(cfg.HeaderName)
}

// getSessionKey ties tokens to the browser session, or the client IP
// when there is none.
func getSessionKey(c *fiber.Ctx, cfg Config) string {
	if id, ok := c.Locals(cfg.SessionIDKey).(string); ok && id != "" {
		return "csrf_" + id
	}

	// fallback to IP based key, less secure but OK
	return "csrf_ip_" + strings.ReplaceAll(c.IP(), ":", "_")
}

// configDefault returns a default config
func configDefault(config ...Config) Config {
	cfg := Config{}
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.TokenLength == 0 {
		cfg.TokenLength = DefaultTokenLength
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if cfg.FormFieldName == "" {
		cfg.FormFieldName = DefaultFormFieldName
	}

	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultHeaderName
	}

	if cfg.SessionIDKey == "" {
		cfg.SessionIDKey = DefaultSessionIDKey
	}

	if cfg.SafeMethods == nil {
		cfg.SafeMethods = []string{fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions, fiber.MethodTrace}
	}

	if cfg.Expiration == 0 {
		cfg.Expiration = 24 * time.Hour
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}

	cfg.SecureKey = initializeSecureKey(cfg.SecureKey, cfg.Storage)

	return cfg
}

func defaultErrorHandler(c *fiber.Ctx, err error) error {
	switch err {
	case ErrTokenMissing:
		return c.Status(fiber.StatusBadRequest).SendString("CSRF token missing")
	case ErrTokenMismatch:
		return c.Status(fiber.StatusForbidden).SendString("CSRF token mismatch")
	case ErrTokenExpired:
		return c.Status(fiber.StatusForbidden).SendString("CSRF token expired")
	case ErrSecureKeyMissing:
		return c.Status(fiber.StatusInternalServerError).SendString("CSRF configuration error")
	default:
		return c.Status(fiber.StatusInternalServerError).SendString("CSRF validation error")
	}
}

func initializeSecureKey(current []byte, storage store.Store) []byte {
	if storage != nil {
		return current
	}
	if len(current) > 0 {
		if len(current) < 32 {
			panic(fmt.Errorf("csrf: secure key must be at least 32 bytes, got %d", len(current)))
		}
		return current
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		panic(fmt.Errorf("csrf: unable to initialize secure key: %w", err))
	}
	return key
}
