package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"filippo.io/age"
)

// Encryptor seals project code at rest with an age X25519 identity.
type Encryptor struct {
	identity  *age.X25519Identity
	recipient *age.X25519Recipient
}

// NewEncryptor parses an age identity. An empty key generates a throwaway
// identity, which makes previously stored code unreadable after restart.
func NewEncryptor(key string) (*Encryptor, error) {
	var identity *age.X25519Identity
	var err error

	if key == "" {
		identity, err = age.GenerateX25519Identity()
		if err != nil {
			return nil, fmt.Errorf("generating identity: %w", err)
		}
	} else {
		identity, err = age.ParseX25519Identity(key)
		if err != nil {
			return nil, fmt.Errorf("parsing identity: %w", err)
		}
	}

	return &Encryptor{
		identity:  identity,
		recipient: identity.Recipient(),
	}, nil
}

func GenerateKey() (string, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return "", fmt.Errorf("generating identity: %w", err)
	}
	return identity.String(), nil
}

// Seal copies src into dst encrypted. It returns the number of plaintext
// bytes consumed.
func (e *Encryptor) Seal(dst io.Writer, src io.Reader) (int64, error) {
	w, err := age.Encrypt(dst, e.recipient)
	if err != nil {
		return 0, fmt.Errorf("creating encryptor: %w", err)
	}

	n, err := io.Copy(w, src)
	if err != nil {
		return n, fmt.Errorf("writing plaintext: %w", err)
	}

	if err := w.Close(); err != nil {
		return n, fmt.Errorf("closing encryptor: %w", err)
	}
	return n, nil
}

// Open returns a reader yielding the plaintext of src.
func (e *Encryptor) Open(src io.Reader) (io.Reader, error) {
	r, err := age.Decrypt(src, e.identity)
	if err != nil {
		return nil, fmt.Errorf("creating decryptor: %w", err)
	}
	return r, nil
}

func (e *Encryptor) PublicKey() string {
	return e.recipient.String()
}

func GenerateRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		return nil, fmt.Errorf("generating random bytes: %w", err)
	}
	return b, nil
}

// GenerateRandomString returns n URL-safe random characters.
func GenerateRandomString(n int) (string, error) {
	b, err := GenerateRandomBytes(n)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b)[:n], nil
}
