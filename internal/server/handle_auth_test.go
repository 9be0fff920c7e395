package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/auth/register", "", CredentialsRequest{
		Email: "Vet@Example.com", Password: "s3cret-pass",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var reg AuthResponse
	json.NewDecoder(w.Body).Decode(&reg)
	if reg.Token == "" {
		t.Fatal("expected token")
	}
	if reg.User.Email != "vet@example.com" {
		t.Errorf("email = %q, want vet@example.com", reg.User.Email)
	}

	w = env.do(t, http.MethodPost, "/api/auth/login", "", CredentialsRequest{
		Email: "vet@example.com", Password: "s3cret-pass",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var login AuthResponse
	json.NewDecoder(w.Body).Decode(&login)
	if login.User.ID != reg.User.ID {
		t.Errorf("login user = %q, want %q", login.User.ID, reg.User.ID)
	}

	w = env.do(t, http.MethodGet, "/api/auth/me", login.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var me UserResponse
	json.NewDecoder(w.Body).Decode(&me)
	if me.Email != "vet@example.com" {
		t.Errorf("me email = %q", me.Email)
	}
	if strings.Contains(w.Body.String(), "passwordHash") {
		t.Error("password hash leaked in /me response")
	}
}

func TestRegisterErrors(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/auth/register", "", CredentialsRequest{
		Email: "dup@example.com", Password: "long-enough",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	tests := []struct {
		name     string
		req      CredentialsRequest
		wantCode int
		wantMsg  string
	}{
		{"duplicate email", CredentialsRequest{Email: "dup@example.com", Password: "long-enough"}, http.StatusConflict, "email already registered"},
		{"bad email", CredentialsRequest{Email: "not-an-email", Password: "long-enough"}, http.StatusBadRequest, "email must be a valid email"},
		{"short password", CredentialsRequest{Email: "new@example.com", Password: "short"}, http.StatusBadRequest, "password must be at least 8 characters"},
		{"missing fields", CredentialsRequest{}, http.StatusBadRequest, "email is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/auth/register", "", tt.req)
			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
			var resp ErrorResponse
			json.NewDecoder(w.Body).Decode(&resp)
			if !strings.Contains(resp.Error, tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", resp.Error, tt.wantMsg)
			}
		})
	}
}

func TestLoginBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/auth/register", "", CredentialsRequest{
		Email: "vet@example.com", Password: "s3cret-pass",
	})

	tests := []struct {
		name string
		req  CredentialsRequest
	}{
		{"wrong password", CredentialsRequest{Email: "vet@example.com", Password: "wrong-pass"}},
		{"unknown email", CredentialsRequest{Email: "ghost@example.com", Password: "s3cret-pass"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/auth/login", "", tt.req)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d: %s", w.Code, w.Body.String())
			}
		})
	}

	w := env.do(t, http.MethodPost, "/api/auth/login", "", CredentialsRequest{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty body: expected 400, got %d", w.Code)
	}
}

func TestMeRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	other, _ := NewTokens("another-secret-0123456789abcdef-xyz", time.Hour)
	forged, _, _ := other.Issue(User{ID: "u1", Email: "x@example.com"})

	for name, tok := range map[string]string{
		"no token":     "",
		"garbage":      "not-a-jwt",
		"other secret": forged,
	} {
		t.Run(name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/api/auth/me", tok, nil)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestAuthRateLimit(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.AuthRateLimit = 2 })

	var last int
	for range 3 {
		w := env.do(t, http.MethodPost, "/api/auth/login", "", CredentialsRequest{
			Email: "ghost@example.com", Password: "whatever1",
		})
		last = w.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("third request: expected 429, got %d", last)
	}
}

func TestTokens(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tokens, err := NewTokens(testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	tokens.now = func() time.Time { return now }

	raw, expires, err := tokens.Issue(User{ID: "user-1", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !expires.Equal(now.Add(time.Hour)) {
		t.Errorf("expires = %v", expires)
	}

	claims, err := tokens.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Subject != "user-1" || claims.Email != "a@example.com" {
		t.Errorf("claims = %+v", claims)
	}

	t.Run("expired", func(t *testing.T) {
		tokens.now = func() time.Time { return now.Add(2 * time.Hour) }
		defer func() { tokens.now = func() time.Time { return now } }()
		if _, err := tokens.Parse(raw); err == nil {
			t.Fatal("expected expired token to fail")
		}
	})

	t.Run("unsigned", func(t *testing.T) {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := tokens.Parse(unsigned); err == nil {
			t.Fatal("expected alg=none token to fail")
		}
	})

	t.Run("config", func(t *testing.T) {
		if _, err := NewTokens("", time.Hour); err == nil {
			t.Error("expected error for empty secret")
		}
		if _, err := NewTokens(testSecret, 0); err == nil {
			t.Error("expected error for zero ttl")
		}
	})
}
