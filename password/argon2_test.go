package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// low-cost parameters to keep the test fast
func newTestHasher(t *testing.T) *Hasher {
	t.Helper()

	h, err := NewHasher(Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	})
	require.NoError(t, err)
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := newTestHasher(t)

	encoded, err := h.Hash("correct horse battery")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$"))

	ok, err := h.Verify("correct horse battery", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("wrong password!", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashRejectsShortPassword(t *testing.T) {
	h := newTestHasher(t)

	_, err := h.Hash("short")
	assert.Error(t, err)
}

func TestHashSaltsDiffer(t *testing.T) {
	h := newTestHasher(t)

	a, err := h.Hash("correct horse battery")
	require.NoError(t, err)
	b, err := h.Hash("correct horse battery")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	h := newTestHasher(t)

	for _, bad := range []string{
		"",
		"not a phc string",
		"$bcrypt$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=19$m=8192,t=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA",
	} {
		_, err := h.Verify("whatever-pass", bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestNewHasherValidatesConfig(t *testing.T) {
	_, err := NewHasher(Config{Memory: 1, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16})
	assert.Error(t, err)

	_, err = NewHasher(DefaultConfig())
	assert.NoError(t, err)
}
