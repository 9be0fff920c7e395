package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// CredentialsRequest is the request body for register and login.
type CredentialsRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

func handleRegister(logger *slog.Logger, store Store, tokens *Tokens) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CredentialsRequest
		if msg, ok := decodeValid(r, &req); !ok {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		email := strings.TrimSpace(strings.ToLower(req.Email))

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			logger.Error("hashing password", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		u, err := store.CreateUser(r.Context(), email, string(hash))
		if errors.Is(err, ErrEmailTaken) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		if err != nil {
			logger.Error("creating user", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeToken(w, logger, tokens, u, http.StatusCreated)
	}
}

func handleLogin(logger *slog.Logger, store Store, tokens *Tokens) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CredentialsRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		email := strings.TrimSpace(strings.ToLower(req.Email))
		if email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "email and password are required")
			return
		}

		u, err := store.UserByEmail(r.Context(), email)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if err != nil {
			logger.Error("loading user", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		writeToken(w, logger, tokens, u, http.StatusOK)
	}
}

func handleMe(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := store.UserByID(r.Context(), userFrom(r).ID)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		writeJSON(w, http.StatusOK, UserResponse{ID: u.ID, Email: u.Email})
	}
}

func writeToken(w http.ResponseWriter, logger *slog.Logger, tokens *Tokens, u User, status int) {
	token, expires, err := tokens.Issue(u)
	if err != nil {
		logger.Error("issuing token", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, status, AuthResponse{
		Token:     token,
		ExpiresAt: expires,
		User:      UserResponse{ID: u.ID, Email: u.Email},
	})
}
