// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stockroom Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/stockroom/stockroom/pkg/errutil"
)

// Guard resolves bearer tokens to live identities and performs the
// ownership check that gates per-user resources. All state is request
// scoped; every resolution does a fresh credential lookup so a
// deactivated account is rejected on its very next request.
type Guard struct {
	codec *TokenCodec
	users UserRepository
}

// NewGuard creates a Guard.
func NewGuard(codec *TokenCodec, users UserRepository) *Guard {
	return &Guard{
		codec: codec,
		users: users,
	}
}

// Resolve verifies the token and confirms its subject still resolves to
// an active user. Every failure the caller may act on carries the
// AUTH_UNAUTHORIZED kind; the finer token reason is kept in the error
// context for diagnostic logging only.
func (g *Guard) Resolve(ctx context.Context, token string, now time.Time) (*User, error) {
	subject, err := g.codec.Verify(token, now)
	if err != nil {
		return nil, oops.Code("AUTH_UNAUTHORIZED").
			With("reason", errutil.Code(err)).
			Errorf("could not validate credentials")
	}

	user, err := g.users.GetByID(ctx, subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Subject no longer exists (orphaned token)
			return nil, oops.Code("AUTH_UNAUTHORIZED").
				With("reason", "unknown_subject").
				With("subject", subject.String()).
				Errorf("could not validate credentials")
		}
		return nil, oops.Code("AUTH_RESOLVE_FAILED").
			With("operation", "get user by id").
			With("subject", subject.String()).
			Wrap(err)
	}

	if !user.IsActive {
		return nil, oops.Code("AUTH_UNAUTHORIZED").
			With("reason", "inactive_subject").
			With("subject", subject.String()).
			Errorf("could not validate credentials")
	}

	return user, nil
}

// AuthorizeOwner checks that user owns the resource identified by
// ownerID. The check is a pure identity comparison. Failure is
// AUTH_FORBIDDEN - authenticated but not entitled - which callers must
// surface distinctly from AUTH_UNAUTHORIZED.
func (g *Guard) AuthorizeOwner(user *User, ownerID ulid.ULID) error {
	if user == nil {
		return oops.Code("AUTH_UNAUTHORIZED").Errorf("no authenticated identity")
	}
	if user.ID != ownerID {
		return oops.Code("AUTH_FORBIDDEN").
			With("user_id", user.ID.String()).
			With("owner_id", ownerID.String()).
			Errorf("not enough permissions")
	}
	return nil
}
