// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stockroom Contributors

package auth

import (
	"context"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Username validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 100
)

// Password validation constraints.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

// MaxEmailLength bounds stored email addresses.
const MaxEmailLength = 255

// MaxFullNameLength bounds the optional display name.
const MaxFullNameLength = 255

// usernameRegex matches usernames that:
// - Start with a letter (a-z, A-Z)
// - Contain only letters, numbers, and underscores
var usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// User represents an authenticated principal. Uniqueness of username and
// email is case-insensitive; the original casing is preserved for display.
type User struct {
	ID           ulid.ULID
	Username     string
	Email        string
	FullName     *string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser creates an active User with a validated username, email and
// optional full name. The password hash must already be computed; this
// package never stores plaintext.
func NewUser(username, email, passwordHash string, fullName *string) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidateFullName(fullName); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("password hash cannot be empty")
	}

	now := time.Now().UTC()
	return &User{
		ID:           ulid.Make(),
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ValidateUsername validates a username against rules.
// Username requirements:
// - Length: MinUsernameLength to MaxUsernameLength characters
// - Must start with a letter
// - Can contain only letters (a-z, A-Z), numbers (0-9), and underscores (_)
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code("AUTH_INVALID_USERNAME").Errorf("username cannot be empty")
	}
	if len(username) < MinUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("min", MinUsernameLength).
			Errorf("username must be at least %d characters", MinUsernameLength)
	}
	if len(username) > MaxUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return oops.Code("AUTH_INVALID_USERNAME").
			Errorf("username must start with a letter and contain only letters, numbers, and underscores")
	}
	return nil
}

// ValidateEmail validates an email address.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code("AUTH_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if len(email) > MaxEmailLength {
		return oops.Code("AUTH_INVALID_EMAIL").
			With("max", MaxEmailLength).
			Errorf("email must be at most %d characters", MaxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return oops.Code("AUTH_INVALID_EMAIL").Errorf("invalid email address")
	}
	return nil
}

// ValidatePassword validates a plaintext password before hashing.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return oops.Code("AUTH_INVALID_PASSWORD").
			With("min", MinPasswordLength).
			Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return oops.Code("AUTH_INVALID_PASSWORD").
			With("max", MaxPasswordLength).
			Errorf("password must be at most %d characters", MaxPasswordLength)
	}
	return nil
}

// ValidateFullName validates the optional display name.
func ValidateFullName(fullName *string) error {
	if fullName == nil {
		return nil
	}
	if len(*fullName) > MaxFullNameLength {
		return oops.Code("AUTH_INVALID_FULL_NAME").
			With("max", MaxFullNameLength).
			Errorf("full name must be at most %d characters", MaxFullNameLength)
	}
	return nil
}

// UserRepository manages user persistence. The authentication core only
// ever reads through this interface; writes belong to the registration
// flow.
type UserRepository interface {
	// Create stores a new user. Returns ErrUsernameTaken or
	// ErrEmailTaken (wrapped) when a uniqueness constraint is violated.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID. Returns ErrNotFound (wrapped) if absent.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByUsername retrieves a user by username (case-insensitive).
	// Returns ErrNotFound (wrapped) if absent.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByEmail retrieves a user by email (case-insensitive).
	// Returns ErrNotFound (wrapped) if absent.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// SetActive flips the active flag for a user.
	// Returns ErrNotFound (wrapped) if absent.
	SetActive(ctx context.Context, id ulid.ULID, active bool) error
}
