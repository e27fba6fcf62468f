// Package keystore manages per-backup master keys. Keys are persisted
// only in wrapped (root-key encrypted) form; the raw 32-byte key is
// materialized in memory for the duration of a dump or restore and
// nowhere else. Deleting a profile permanently orphans every artifact
// produced under it.
package keystore

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/semmidev/custos/internal/domain"
	"github.com/semmidev/custos/internal/store"
)

// ErrKeyIntegrity signals that a wrapped key decrypted to material of
// the wrong length: either the root key changed or the record is
// corrupt.
var ErrKeyIntegrity = errors.New("unwrapped key has unexpected length")

type Manager struct {
	store   store.Store
	crypter domain.Crypter
	rootKey []byte
}

func New(st store.Store, crypter domain.Crypter, rootKey []byte) (*Manager, error) {
	if len(rootKey) != domain.MasterKeySize {
		return nil, fmt.Errorf("root key must be %d bytes, got %d", domain.MasterKeySize, len(rootKey))
	}
	return &Manager{store: st, crypter: crypter, rootKey: rootKey}, nil
}

// Create generates a fresh master key, wraps it under the root key and
// persists only the wrapped form. The returned profile carries no raw
// key material.
func (m *Manager) Create(ctx context.Context, name, description string) (*domain.EncryptionProfile, error) {
	masterKey := make([]byte, domain.MasterKeySize)
	if _, err := rand.Read(masterKey); err != nil {
		return nil, fmt.Errorf("failed to generate master key: %w", err)
	}

	wrapped, err := m.crypter.Seal(m.rootKey, masterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap master key: %w", err)
	}

	profile := &domain.EncryptionProfile{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		WrappedKey:  wrapped,
		CreatedAt:   time.Now(),
	}

	if err := m.store.CreateProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to persist profile: %w", err)
	}
	return profile, nil
}

func (m *Manager) Get(ctx context.Context, id string) (*domain.EncryptionProfile, error) {
	return m.store.GetProfile(ctx, id)
}

func (m *Manager) List(ctx context.Context) ([]*domain.EncryptionProfile, error) {
	return m.store.ListProfiles(ctx)
}

// MasterKey unwraps a profile's master key. Reserved for the dump and
// restore paths; never expose the result to an external caller.
func (m *Manager) MasterKey(ctx context.Context, id string) ([]byte, error) {
	profile, err := m.store.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	key, err := m.crypter.Open(m.rootKey, profile.WrappedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap master key: %w", err)
	}
	if len(key) != domain.MasterKeySize {
		return nil, ErrKeyIntegrity
	}
	return key, nil
}

// Delete irreversibly removes a profile. There is no re-wrap or escrow
// flow: artifacts encrypted under it become permanently unreadable.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.store.DeleteProfile(ctx, id)
}
