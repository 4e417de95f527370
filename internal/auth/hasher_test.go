// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stockroom Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stockroom/stockroom/internal/auth"
	"github.com/stockroom/stockroom/pkg/errutil"
)

func TestHashPassword(t *testing.T) {
	hasher := auth.NewArgon2idHasher(auth.Argon2Params{})

	t.Run("produces valid hash", func(t *testing.T) {
		hash, err := hasher.Hash("password123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
	})

	t.Run("different passwords produce different hashes", func(t *testing.T) {
		hash1, err := hasher.Hash("password1")
		require.NoError(t, err)
		hash2, err := hasher.Hash("password2")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("same password produces different hashes (salt)", func(t *testing.T) {
		hash1, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		hash2, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		assert.ErrorIs(t, err, auth.ErrEmptyPassword)
	})

	t.Run("encodes configured parameters", func(t *testing.T) {
		custom := auth.NewArgon2idHasher(auth.Argon2Params{Time: 2, MemoryKiB: 19456, Threads: 1})

		hash, err := custom.Hash("password123")
		require.NoError(t, err)
		assert.Contains(t, hash, "$m=19456,t=2,p=1$")
	})
}

func TestVerifyPassword(t *testing.T) {
	hasher := auth.NewArgon2idHasher(auth.Argon2Params{})

	t.Run("correct password verifies", func(t *testing.T) {
		hash, err := hasher.Hash("correctpassword")
		require.NoError(t, err)

		ok, err := hasher.Verify("correctpassword", hash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("incorrect password fails without error", func(t *testing.T) {
		hash, err := hasher.Hash("correctpassword")
		require.NoError(t, err)

		ok, err := hasher.Verify("wrongpassword", hash)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unicode password roundtrips", func(t *testing.T) {
		hash, err := hasher.Hash("pässwörd☃")
		require.NoError(t, err)

		ok, err := hasher.Verify("pässwörd☃", hash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("verifies against stored parameters, not configured ones", func(t *testing.T) {
		custom := auth.NewArgon2idHasher(auth.Argon2Params{Time: 2, MemoryKiB: 19456, Threads: 1})

		hash, err := custom.Hash("costchange")
		require.NoError(t, err)

		// A hasher configured with different costs still verifies it.
		ok, err := hasher.Verify("costchange", hash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("invalid hash format returns error", func(t *testing.T) {
		_, err := hasher.Verify("password", "not-a-valid-hash")
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_HASH")
	})

	t.Run("wrong algorithm returns error", func(t *testing.T) {
		_, err := hasher.Verify("password", "$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported hash algorithm")
	})

	t.Run("invalid version format returns error", func(t *testing.T) {
		_, err := hasher.Verify("password", "$argon2id$vXX$m=65536,t=1,p=4$c2FsdA$aGFzaA")
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_HASH")
	})

	t.Run("invalid parameters format returns error", func(t *testing.T) {
		_, err := hasher.Verify("password", "$argon2id$v=19$invalid$c2FsdA$aGFzaA")
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_HASH")
	})

	t.Run("invalid salt base64 returns error", func(t *testing.T) {
		_, err := hasher.Verify("password", "$argon2id$v=19$m=65536,t=1,p=4$!!!invalid!!!$aGFzaA")
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_HASH")
	})

	t.Run("invalid hash base64 returns error", func(t *testing.T) {
		_, err := hasher.Verify("password", "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$!!!invalid!!!")
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_HASH")
	})

	t.Run("threads overflow returns error", func(t *testing.T) {
		// threads=256 exceeds uint8 max (255)
		_, err := hasher.Verify("password", "$argon2id$v=19$m=65536,t=1,p=256$c2FsdA$aGFzaA")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "threads value")
	})
}

func TestVerifyBcryptCompat(t *testing.T) {
	hasher := auth.NewArgon2idHasher(auth.Argon2Params{})

	bcryptHash, err := bcrypt.GenerateFromPassword([]byte("legacy-password"), bcrypt.MinCost)
	require.NoError(t, err)

	t.Run("correct password verifies against bcrypt hash", func(t *testing.T) {
		ok, err := hasher.Verify("legacy-password", string(bcryptHash))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("incorrect password fails without error", func(t *testing.T) {
		ok, err := hasher.Verify("not-the-password", string(bcryptHash))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("truncated bcrypt hash returns error", func(t *testing.T) {
		_, err := hasher.Verify("legacy-password", "$2b$10$tooshort")
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_HASH")
	})
}
