// AngelaMos | 2026
// security_test.go

package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cheapParams = Argon2Params{
	Memory:  1024,
	Time:    1,
	Threads: 1,
	KeyLen:  16,
	SaltLen: 8,
}

func TestPasswordHasherRoundTrip(t *testing.T) {
	h, err := NewPasswordHasher(cheapParams)
	require.NoError(t, err)

	encoded, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.Contains(t, encoded, "$argon2id$")

	valid, rehash, err := h.Verify("correct horse", encoded)
	require.NoError(t, err)
	assert.True(t, valid)
	assert.Empty(t, rehash)

	valid, _, err = h.Verify("wrong horse", encoded)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestPasswordHasherRehashOnParamChange(t *testing.T) {
	old, err := NewPasswordHasher(cheapParams)
	require.NoError(t, err)

	encoded, err := old.Hash("secret1")
	require.NoError(t, err)

	stronger := cheapParams
	stronger.Time = 2
	h, err := NewPasswordHasher(stronger)
	require.NoError(t, err)

	valid, rehash, err := h.Verify("secret1", encoded)
	require.NoError(t, err)
	assert.True(t, valid)
	require.NotEmpty(t, rehash)
	assert.Contains(t, rehash, "t=2")
}

func TestPasswordHasherTimingSafeMissingHash(t *testing.T) {
	h, err := NewPasswordHasher(cheapParams)
	require.NoError(t, err)

	valid, rehash, err := h.VerifyTimingSafe("anything", nil)
	require.NoError(t, err)
	assert.False(t, valid)
	assert.Empty(t, rehash)

	empty := ""
	valid, _, err = h.VerifyTimingSafe("anything", &empty)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestPasswordHasherRejectsMalformedHash(t *testing.T) {
	h, err := NewPasswordHasher(cheapParams)
	require.NoError(t, err)

	for _, encoded := range []string{
		"",
		"plain",
		"$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=1$m=1,t=1,p=1$c2FsdA$a2V5",
	} {
		_, _, err := h.Verify("x", encoded)
		assert.ErrorIs(t, err, ErrInvalidHash, encoded)
	}
}

func TestTokenHashing(t *testing.T) {
	token, err := GenerateRefreshToken()
	require.NoError(t, err)

	hash := HashToken(token)
	assert.Len(t, hash, 64)
	assert.Equal(t, hash, HashToken(token))
	assert.NotEqual(t, hash, HashToken(token+"x"))
}
