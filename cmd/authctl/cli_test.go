package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "u-1",
		"email": "jane@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func newBackend(t *testing.T) string {
	t.Helper()
	token := signedToken(t)
	user := map[string]any{"id": "u-1", "email": "jane@example.com", "name": "Jane Doe"}

	reply := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/" {
			reply(w, http.StatusNotFound, map[string]any{"message": "Not Found", "statusCode": 404})
			return
		}
		reply(w, http.StatusOK, map[string]any{"message": "API is running", "timestamp": "2026-01-01T00:00:00Z"})
	})
	mux.HandleFunc("/api/v1/auth/signin", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["password"] != "SecurePass123!" {
			reply(w, http.StatusUnauthorized, map[string]any{"message": "Invalid credentials", "statusCode": 401})
			return
		}
		reply(w, http.StatusOK, map[string]any{"access_token": token, "user": user})
	})
	mux.HandleFunc("/api/v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			reply(w, http.StatusUnauthorized, map[string]any{"message": "Unauthorized", "statusCode": 401})
			return
		}
		reply(w, http.StatusOK, user)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL + "/api/v1"
}

type harness struct {
	t       *testing.T
	api     string
	session string
}

func newHarness(t *testing.T) *harness {
	return &harness{
		t:       t,
		api:     newBackend(t),
		session: filepath.Join(t.TempDir(), "session.json"),
	}
}

func (h *harness) run(args ...string) (int, string, string) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{"-api", h.api, "-session", h.session}, args...)
	code := run(context.Background(), full, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestSignInPersistsAcrossInvocations(t *testing.T) {
	h := newHarness(t)

	code, out, _ := h.run("signin", "-email", "jane@example.com", "-password", "SecurePass123!")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Jane Doe")

	code, out, _ = h.run("whoami")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "jane@example.com")

	code, out, _ = h.run("profile")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "u-1")

	code, out, _ = h.run("status")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "u-1")
	assert.Contains(t, out, "expires_at")
}

func TestLogoutForgetsSession(t *testing.T) {
	h := newHarness(t)

	code, _, _ := h.run("signin", "-email", "jane@example.com", "-password", "SecurePass123!")
	require.Equal(t, 0, code)

	code, out, _ := h.run("logout")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "signed out")

	code, _, errOut := h.run("whoami")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "not authenticated")

	code, _, errOut = h.run("profile")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "not authenticated")
}

func TestSignInRejected(t *testing.T) {
	h := newHarness(t)

	code, _, errOut := h.run("signin", "-email", "jane@example.com", "-password", "WrongPass123!")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Invalid credentials")
}

func TestSignInValidation(t *testing.T) {
	h := newHarness(t)

	code, _, errOut := h.run("signin", "-email", "nope", "-password", "x")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "invalid input")
	assert.Contains(t, errOut, "email:")
}

func TestPasswordMismatchNeverLeavesClient(t *testing.T) {
	h := newHarness(t)

	code, _, errOut := h.run("password", "-current", "SecurePass123!", "-new", "NewPass123!", "-confirm", "Other123!")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "confirmPassword:")
}

func TestHealth(t *testing.T) {
	h := newHarness(t)

	code, out, _ := h.run("health")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "API is running")
}

func TestUsageErrors(t *testing.T) {
	h := newHarness(t)

	code, _, errOut := h.run()
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "missing command")

	code, _, errOut = h.run("frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "unknown command")
}
