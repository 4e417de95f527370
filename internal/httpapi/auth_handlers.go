// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stockroom Contributors

package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/samber/oops"

	"github.com/stockroom/stockroom/internal/auth"
	"github.com/stockroom/stockroom/pkg/errutil"
)

// userResponse is the user envelope. The password hash is not part of
// it and never leaves the server.
type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	FullName  *string   `json:"full_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newUserResponse(u *auth.User) userResponse {
	return userResponse{
		ID:        u.ID.String(),
		Email:     u.Email,
		Username:  u.Username,
		FullName:  u.FullName,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// tokenResponse is the OAuth2 password-flow token envelope.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type registerRequest struct {
	Email    string  `json:"email"`
	Username string  `json:"username"`
	Password string  `json:"password"`
	FullName *string `json:"full_name"`
}

// decodeJSON parses the request body into v.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return oops.Code("REQUEST_INVALID").Wrapf(err, "invalid request body")
	}
	return nil
}

// handleRoot returns the service banner.
func (a *API) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "stockroom",
		"version": a.version,
	})
}

// handleRegister creates a new account.
func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := a.registrar.Register(r.Context(), auth.NewUserInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		errutil.LogError(a.logger, "registration failed", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, newUserResponse(user))
}

// handleToken is the login endpoint. It takes form-encoded credentials
// and returns a bearer token. Every failed attempt answers with the same
// 401 regardless of which check rejected it.
func (a *API) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, oops.Code("REQUEST_INVALID").Wrapf(err, "invalid form body"))
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	token, err := a.authenticator.Login(r.Context(), username, password, a.now())
	if err != nil {
		a.recordLogin("failure")
		errutil.LogError(a.logger, "login failed", err)
		writeError(w, err)
		return
	}

	a.recordLogin("success")
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

// handleMe returns the authenticated identity.
func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newUserResponse(UserFrom(r.Context())))
}

func (a *API) recordLogin(outcome string) {
	if a.metrics != nil {
		a.metrics.RecordLogin(outcome)
	}
}
