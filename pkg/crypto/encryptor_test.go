package crypto

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEncryptor_GenerateNewKey(t *testing.T) {
	enc, err := NewEncryptor("")
	require.NoError(t, err)
	assert.NotNil(t, enc.identity)
	assert.NotNil(t, enc.recipient)
}

func TestNewEncryptor_InvalidKey(t *testing.T) {
	_, err := NewEncryptor("invalid-key-format")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "parsing identity")
}

func TestGenerateKey(t *testing.T) {
	key1, err := GenerateKey()
	require.NoError(t, err)
	key2, err := GenerateKey()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key1, "AGE-SECRET-KEY-"))
	assert.NotEqual(t, key1, key2)
}

func TestSeal_Open(t *testing.T) {
	enc, err := NewEncryptor("")
	require.NoError(t, err)

	plaintext := []byte("package main\n\nfunc main() {}\n")

	var sealed bytes.Buffer
	n, err := enc.Seal(&sealed, bytes.NewReader(plaintext))
	require.NoError(t, err)
	assert.Equal(t, int64(len(plaintext)), n)
	assert.NotContains(t, sealed.String(), "package main")

	r, err := enc.Open(&sealed)
	require.NoError(t, err)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, plaintext, out)
}

func TestSeal_LargeStream(t *testing.T) {
	enc, err := NewEncryptor("")
	require.NoError(t, err)

	large := make([]byte, 1024*1024)
	for i := range large {
		large[i] = byte(i % 256)
	}

	var sealed bytes.Buffer
	_, err = enc.Seal(&sealed, bytes.NewReader(large))
	require.NoError(t, err)

	r, err := enc.Open(&sealed)
	require.NoError(t, err)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, large, out)
}

func TestOpen_WrongKey(t *testing.T) {
	enc1, err := NewEncryptor("")
	require.NoError(t, err)
	enc2, err := NewEncryptor("")
	require.NoError(t, err)

	var sealed bytes.Buffer
	_, err = enc1.Seal(&sealed, strings.NewReader("secret"))
	require.NoError(t, err)

	_, err = enc2.Open(&sealed)
	assert.Error(t, err)
}

func TestEncryptor_KeyReuse(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	enc1, err := NewEncryptor(key)
	require.NoError(t, err)
	enc2, err := NewEncryptor(key)
	require.NoError(t, err)
	assert.Equal(t, enc1.PublicKey(), enc2.PublicKey())

	var sealed bytes.Buffer
	_, err = enc1.Seal(&sealed, strings.NewReader("reusable key test"))
	require.NoError(t, err)

	r, err := enc2.Open(&sealed)
	require.NoError(t, err)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "reusable key test", string(out))
}

func TestGenerateRandomString(t *testing.T) {
	for _, size := range []int{8, 16, 32} {
		s1, err := GenerateRandomString(size)
		require.NoError(t, err)
		s2, err := GenerateRandomString(size)
		require.NoError(t, err)
		assert.Len(t, s1, size)
		assert.NotEqual(t, s1, s2)
	}
}
