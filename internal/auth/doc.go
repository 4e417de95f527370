// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stockroom Contributors

// Package auth provides the authentication and authorization core for
// stockroom: password hashing, bearer token issuance and verification,
// credential lookup, and the ownership check that gates per-user
// resources.
//
// # Domain Types
//
// User should be created through NewUser, which validates the username,
// email and optional full name. Direct struct initialization bypasses
// validation and may create invalid state. Repository implementations
// receive pre-validated values from the constructor.
//
// # Services
//
// Service types coordinate domain operations:
//   - Authenticator - validates a login attempt and mints a bearer token
//   - Guard - resolves a bearer token to a live identity and performs
//     ownership checks for resource handlers
//   - Registrar - creates new user accounts
//
// Services are created with New* constructors. All operations are
// stateless and safe for concurrent use; the only shared state is the
// immutable signing/cost configuration captured at construction.
//
// # Error Kinds
//
// Failures that cross the package boundary carry oops codes. Login
// failures are always AUTH_INVALID_CREDENTIALS regardless of cause so
// that account existence cannot be probed. Token resolution failures are
// always AUTH_UNAUTHORIZED; the finer-grained TOKEN_* codes survive only
// inside the wrapped cause for diagnostic logging. Ownership failures are
// AUTH_FORBIDDEN, which callers must surface distinctly from
// AUTH_UNAUTHORIZED.
package auth
