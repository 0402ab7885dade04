package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEnvelope(t *testing.T) *Envelope {
	t.Helper()
	env, err := NewEnvelope("test-key", "test-randomizer")
	require.NoError(t, err)
	return env
}

func TestEnvelope_RoundTrip(t *testing.T) {
	env := newTestEnvelope(t)

	inputs := []string{
		"",
		"a",
		"exactly16bytes!!",
		`{"email":"user@example.com","password":"hunter22"}`,
		strings.Repeat("long payload ", 500),
		"unicode: héllo wörld ✓",
	}

	for _, in := range inputs {
		ct, err := env.Encrypt(in)
		require.NoError(t, err)
		assert.Regexp(t, "^[0-9a-f]+$", ct)

		out, err := env.Decrypt(ct)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	}
}

func TestEnvelope_Deterministic(t *testing.T) {
	env := newTestEnvelope(t)

	a, err := env.Encrypt("same")
	require.NoError(t, err)
	b, err := env.Encrypt("same")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	other, err := NewEnvelope("test-key", "other-randomizer")
	require.NoError(t, err)
	c, err := other.Encrypt("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestEnvelope_Malformed(t *testing.T) {
	env := newTestEnvelope(t)

	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"not_hex", "zzzz"},
		{"odd_length", "abc"},
		{"short_block", "00112233"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Decrypt(tt.in)
			assert.ErrorIs(t, err, ErrMalformedCiphertext)
		})
	}
}

func TestEnvelope_WrongKey(t *testing.T) {
	env := newTestEnvelope(t)
	ct, err := env.Encrypt("secret message that spans blocks")
	require.NoError(t, err)

	other, err := NewEnvelope("another-key", "test-randomizer")
	require.NoError(t, err)

	out, err := other.Decrypt(ct)
	if err == nil {
		assert.NotEqual(t, "secret message that spans blocks", out)
	}
}

func TestEnvelope_JSON(t *testing.T) {
	env := newTestEnvelope(t)

	ct, err := env.EncryptJSON(map[string]string{"id": "42"})
	require.NoError(t, err)

	var out struct {
		ID string `json:"id"`
	}
	require.NoError(t, env.DecryptJSON(ct, &out))
	assert.Equal(t, "42", out.ID)

	notJSON, err := env.Encrypt("not json")
	require.NoError(t, err)
	assert.ErrorIs(t, env.DecryptJSON(notJSON, &out), ErrMalformedCiphertext)
}

func TestNewEnvelope_EmptyKey(t *testing.T) {
	_, err := NewEnvelope("", "r")
	assert.Error(t, err)
}
