package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

var ErrMalformedCiphertext = errors.New("malformed ciphertext")

// Envelope encrypts request and response payloads exchanged with clients.
//
// Output is deterministic for a given key and randomizer: the same plaintext
// always yields the same hex string. Clients depend on that property, so it
// must not be used where ciphertext indistinguishability matters.
type Envelope struct {
	block cipher.Block
	iv    []byte
}

// NewEnvelope derives an AES-256 key and a CBC IV from key, salted with
// randomizer.
func NewEnvelope(key, randomizer string) (*Envelope, error) {
	if key == "" {
		return nil, errors.New("envelope key is empty")
	}

	r := hkdf.New(sha256.New, []byte(key), []byte(randomizer), []byte("canicloud envelope"))
	material := make([]byte, 32+aes.BlockSize)
	if _, err := io.ReadFull(r, material); err != nil {
		return nil, fmt.Errorf("deriving key: %w", err)
	}

	block, err := aes.NewCipher(material[:32])
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	return &Envelope{block: block, iv: material[32:]}, nil
}

// Encrypt returns the lowercase hex ciphertext of plaintext.
func (e *Envelope) Encrypt(plaintext string) (string, error) {
	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(e.block, e.iv).CryptBlocks(out, padded)
	return hex.EncodeToString(out), nil
}

func (e *Envelope) Decrypt(ciphertext string) (string, error) {
	raw, err := hex.DecodeString(ciphertext)
	if err != nil || len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", ErrMalformedCiphertext
	}

	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(e.block, e.iv).CryptBlocks(out, raw)

	plain, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// EncryptJSON marshals v and encrypts the result.
func (e *Envelope) EncryptJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return e.Encrypt(string(data))
}

// DecryptJSON decrypts ciphertext and unmarshals it into v. Invalid JSON is
// reported as ErrMalformedCiphertext.
func (e *Envelope) DecryptJSON(ciphertext string, v interface{}) error {
	plain, err := e.Decrypt(ciphertext)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(plain), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}
	return nil
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, ErrMalformedCiphertext
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, ErrMalformedCiphertext
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, ErrMalformedCiphertext
		}
	}
	return b[:len(b)-n], nil
}
