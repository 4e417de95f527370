// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stockroom Contributors

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultTokenAlgorithm is the signing algorithm used when none is configured.
const DefaultTokenAlgorithm = "HS256"

// TokenCodec issues and verifies signed bearer tokens. Tokens are JWTs
// signed with a process-wide HMAC secret; validity is recomputed entirely
// from the token's signed contents, so nothing is stored server-side and
// rotating the secret invalidates every outstanding token.
type TokenCodec struct {
	secret []byte
	method jwt.SigningMethod
}

// NewTokenCodec creates a TokenCodec for the given secret and HMAC
// algorithm ("HS256", "HS384" or "HS512"). An empty algorithm selects
// DefaultTokenAlgorithm.
func NewTokenCodec(secret []byte, algorithm string) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, oops.Code("TOKEN_EMPTY_SECRET").Errorf("signing secret cannot be empty")
	}
	if algorithm == "" {
		algorithm = DefaultTokenAlgorithm
	}
	method := jwt.GetSigningMethod(algorithm)
	if method == nil {
		return nil, oops.Code("TOKEN_BAD_ALGORITHM").
			With("algorithm", algorithm).
			Errorf("unknown signing algorithm: %s", algorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, oops.Code("TOKEN_BAD_ALGORITHM").
			With("algorithm", algorithm).
			Errorf("signing algorithm must be HMAC-based: %s", algorithm)
	}
	return &TokenCodec{secret: secret, method: method}, nil
}

// Issue builds and signs a token asserting subject, valid from now until
// now+ttl.
func (c *TokenCodec) Issue(subject ulid.ULID, now time.Time, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", oops.Code("TOKEN_INVALID_TTL").
			With("ttl", ttl.String()).
			Errorf("token ttl must be positive")
	}

	claims := jwt.RegisteredClaims{
		Subject:   subject.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").Wrap(err)
	}
	return signed, nil
}

// Verify decodes tokenString, checks the signature before trusting any
// claim, then checks the validity window against now. On success it
// returns the subject. Failures carry one of three codes for diagnostic
// logging - TOKEN_MALFORMED, TOKEN_BAD_SIGNATURE, TOKEN_EXPIRED - which
// callers must treat identically.
func (c *TokenCodec) Verify(tokenString string, now time.Time) (ulid.ULID, error) {
	if tokenString == "" {
		return ulid.ULID{}, oops.Code("TOKEN_MALFORMED").Errorf("empty token")
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, c.keyfunc,
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return ulid.ULID{}, classifyTokenError(err)
	}

	subject, err := ulid.Parse(claims.Subject)
	if err != nil {
		return ulid.ULID{}, oops.Code("TOKEN_MALFORMED").
			Wrapf(err, "invalid subject claim")
	}
	return subject, nil
}

func (c *TokenCodec) keyfunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return c.secret, nil
}

// classifyTokenError buckets jwt parse failures into the three reasons.
// Time-window violations (expired, not yet valid, used before issued) all
// land in TOKEN_EXPIRED.
func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return oops.Code("TOKEN_MALFORMED").Wrap(err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return oops.Code("TOKEN_BAD_SIGNATURE").Wrap(err)
	case errors.Is(err, jwt.ErrTokenExpired),
		errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return oops.Code("TOKEN_EXPIRED").Wrap(err)
	default:
		return oops.Code("TOKEN_MALFORMED").Wrap(err)
	}
}
