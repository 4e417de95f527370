// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stockroom Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrUsernameTaken is returned when a username uniqueness constraint is violated.
var ErrUsernameTaken = errors.New("username already taken")

// ErrEmailTaken is returned when an email uniqueness constraint is violated.
var ErrEmailTaken = errors.New("email already registered")
