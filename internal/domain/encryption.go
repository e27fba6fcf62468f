package domain

import "time"

// MasterKeySize is the length of an unwrapped profile master key.
const MasterKeySize = 32

// EncryptionProfile stores a master key only in wrapped (root-key
// encrypted) form. The raw key never leaves process memory.
type EncryptionProfile struct {
	ID          string
	Name        string
	Description string
	WrappedKey  []byte
	CreatedAt   time.Time
}

// Crypter performs authenticated encryption under a caller-supplied key.
type Crypter interface {
	Seal(key []byte, plaintext []byte) ([]byte, error)
	Open(key []byte, ciphertext []byte) ([]byte, error)
}
