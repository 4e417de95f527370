// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stockroom Contributors

// Package authtest provides test helpers for the auth package.
package authtest

import (
	"context"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/stockroom/stockroom/internal/auth"
)

// MemoryUserRepository is a UserRepository backed by an in-memory map. It
// mirrors the error contract of the PostgreSQL repository: lookups wrap
// auth.ErrNotFound and conflicting creates wrap the taken sentinels.
type MemoryUserRepository struct {
	mu    sync.Mutex
	users map[ulid.ULID]*auth.User

	// Error overrides for failure-path tests. When set, the matching
	// method returns the error without touching the map.
	CreateErr    error
	GetErr       error
	SetActiveErr error
}

// NewMemoryUserRepository creates an empty MemoryUserRepository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[ulid.ULID]*auth.User)}
}

// Add seeds a user, bypassing conflict checks.
func (m *MemoryUserRepository) Add(user *auth.User) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u := *user
	m.users[u.ID] = &u
}

// Len reports the number of stored users.
func (m *MemoryUserRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.users)
}

// Create stores a new user.
func (m *MemoryUserRepository) Create(_ context.Context, user *auth.User) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if strings.EqualFold(existing.Username, user.Username) {
			return oops.Code("USER_USERNAME_TAKEN").
				With("username", user.Username).
				Wrap(auth.ErrUsernameTaken)
		}
		if strings.EqualFold(existing.Email, user.Email) {
			return oops.Code("USER_EMAIL_TAKEN").
				With("email", user.Email).
				Wrap(auth.ErrEmailTaken)
		}
	}

	u := *user
	m.users[u.ID] = &u

	return nil
}

// GetByID returns the user with the given ID.
func (m *MemoryUserRepository) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").
			With("user_id", id.String()).
			Wrap(auth.ErrNotFound)
	}

	u := *user

	return &u, nil
}

// GetByUsername returns the user with the given username, case-insensitively.
func (m *MemoryUserRepository) GetByUsername(_ context.Context, username string) (*auth.User, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, user := range m.users {
		if strings.EqualFold(user.Username, username) {
			u := *user

			return &u, nil
		}
	}

	return nil, oops.Code("USER_NOT_FOUND").
		With("username", username).
		Wrap(auth.ErrNotFound)
}

// GetByEmail returns the user with the given email, case-insensitively.
func (m *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, user := range m.users {
		if strings.EqualFold(user.Email, email) {
			u := *user

			return &u, nil
		}
	}

	return nil, oops.Code("USER_NOT_FOUND").
		With("email", email).
		Wrap(auth.ErrNotFound)
}

// SetActive flips the active flag on a stored user.
func (m *MemoryUserRepository) SetActive(_ context.Context, id ulid.ULID, active bool) error {
	if m.SetActiveErr != nil {
		return m.SetActiveErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").
			With("user_id", id.String()).
			Wrap(auth.ErrNotFound)
	}

	user.IsActive = active

	return nil
}

// Verify interfaces are satisfied.
var _ auth.UserRepository = (*MemoryUserRepository)(nil)
