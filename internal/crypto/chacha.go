// Package crypto provides the authenticated-encryption primitive used
// for backup artifacts and for wrapping profile master keys.
package crypto

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/semmidev/custos/internal/domain"
)

// ChaChaCrypter seals and opens with ChaCha20-Poly1305. Ciphertexts are
// nonce-prefixed: the first NonceSizeX bytes are the random nonce.
type ChaChaCrypter struct{}

func NewChaCha() *ChaChaCrypter {
	return &ChaChaCrypter{}
}

func (c *ChaChaCrypter) Seal(key []byte, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (c *ChaChaCrypter) Open(key []byte, ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	if len(ciphertext) < aead.NonceSize() {
		return nil, fmt.Errorf("ciphertext shorter than nonce")
	}

	nonce, sealed := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}

	return plaintext, nil
}

// EncryptFile seals the whole source file under key and writes the
// nonce-prefixed ciphertext to destPath. Backup artifacts are already
// size-bounded dumps, so whole-file sealing keeps the format trivial.
func EncryptFile(c domain.Crypter, key []byte, sourcePath, destPath string) error {
	return transformFile(sourcePath, destPath, func(data []byte) ([]byte, error) {
		return c.Seal(key, data)
	})
}

// DecryptFile reverses EncryptFile.
func DecryptFile(c domain.Crypter, key []byte, sourcePath, destPath string) error {
	return transformFile(sourcePath, destPath, func(data []byte) ([]byte, error) {
		return c.Open(key, data)
	})
}
