// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stockroom Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"
)

// dummyPasswordHash is used when a user doesn't exist to prevent timing attacks.
// We still run password verification to make response time consistent.
// This is NOT a real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Authenticator validates login attempts and mints bearer tokens on
// success. It reads credentials through UserRepository and never writes.
type Authenticator struct {
	users  UserRepository
	hasher PasswordHasher
	codec  *TokenCodec
	ttl    time.Duration
}

// NewAuthenticator creates an Authenticator. ttl is the validity window
// stamped into every issued token.
func NewAuthenticator(users UserRepository, hasher PasswordHasher, codec *TokenCodec, ttl time.Duration) *Authenticator {
	return &Authenticator{
		users:  users,
		hasher: hasher,
		codec:  codec,
		ttl:    ttl,
	}
}

// TTL returns the configured token validity window.
func (a *Authenticator) TTL() time.Duration {
	return a.ttl
}

// Login authenticates a user and returns a signed bearer token valid from
// now until now+ttl. Unknown username, wrong password and inactive
// account all fail with the same AUTH_INVALID_CREDENTIALS kind, and the
// password hash is always verified, so none of the three can be told
// apart by response or timing.
func (a *Authenticator) Login(ctx context.Context, username, password string, now time.Time) (string, error) {
	user, lookupErr := a.users.GetByUsername(ctx, username)

	// Determine which hash to verify against (real or dummy for timing attack prevention)
	var targetHash string
	var userExists bool

	if lookupErr != nil {
		if errors.Is(lookupErr, ErrNotFound) {
			// Use dummy hash - still perform verification to maintain constant time
			targetHash = dummyPasswordHash
			userExists = false
		} else {
			return "", oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get user by username").
				Wrap(lookupErr)
		}
	} else {
		targetHash = user.PasswordHash
		userExists = true
	}

	// Always verify the password before any other verdict
	valid, verifyErr := a.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		// For dummy hash verification errors, just treat as invalid
		if !userExists {
			return "", oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid username or password")
		}
		return "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	// Unknown user, wrong password and inactive account collapse into one
	// uniform failure
	if !userExists || !valid || !user.IsActive {
		return "", oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid username or password")
	}

	token, err := a.codec.Issue(user.ID, now, a.ttl)
	if err != nil {
		return "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "issue token").
			Wrap(err)
	}

	return token, nil
}
