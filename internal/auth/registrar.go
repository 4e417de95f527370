// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stockroom Contributors

package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/samber/oops"
)

// NewUserInput carries the fields of a registration request.
type NewUserInput struct {
	Username string
	Email    string
	Password string
	FullName *string
}

// Registrar creates user accounts. It is the only writer to the user
// store; the authentication core reads what it persists.
type Registrar struct {
	users  UserRepository
	hasher PasswordHasher
}

// NewRegistrar creates a Registrar.
func NewRegistrar(users UserRepository, hasher PasswordHasher) *Registrar {
	return &Registrar{
		users:  users,
		hasher: hasher,
	}
}

// Register validates the input, hashes the password and persists a new
// active user. Email conflicts are detected before username conflicts.
// The pre-checks give precise conflict answers; the store's uniqueness
// constraints stay the last word under concurrent registration.
func (r *Registrar) Register(ctx context.Context, in NewUserInput) (*User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)

	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	if err := ValidateFullName(in.FullName); err != nil {
		return nil, err
	}

	if _, err := r.users.GetByEmail(ctx, email); err == nil {
		return nil, oops.Code("USER_EMAIL_TAKEN").
			With("email", email).
			Wrap(ErrEmailTaken)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, oops.Code("USER_REGISTER_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	if _, err := r.users.GetByUsername(ctx, username); err == nil {
		return nil, oops.Code("USER_USERNAME_TAKEN").
			With("username", username).
			Wrap(ErrUsernameTaken)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, oops.Code("USER_REGISTER_FAILED").
			With("operation", "get user by username").
			Wrap(err)
	}

	hash, err := r.hasher.Hash(in.Password)
	if err != nil {
		return nil, oops.Code("USER_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(username, email, hash, in.FullName)
	if err != nil {
		return nil, err
	}

	// The repository maps unique violations to USER_USERNAME_TAKEN /
	// USER_EMAIL_TAKEN, so a lost race reports the same kinds as the
	// pre-checks.
	if err := r.users.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}
