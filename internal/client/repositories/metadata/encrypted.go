package metadata

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/orbit/internal/common"
	"github.com/dmitrijs2005/orbit/internal/cryptox"
)

// SaltKey holds the plain argon2 salt used to derive the value key.
const SaltKey = "storage.salt"

var (
	ErrReservedKey = errors.New("reserved metadata key")
	ErrDecrypt     = errors.New("failed to decrypt metadata value")
)

// EncryptedRepository seals every value with AES-GCM before handing it to
// the wrapped Repository. Keys stay in clear text.
type EncryptedRepository struct {
	inner Repository
	key   []byte
}

// NewEncryptedRepository derives the value key from secret and the salt
// stored under SaltKey, creating and storing a new salt on first use.
// secret is zeroed before returning, so pass a copy you no longer need.
func NewEncryptedRepository(ctx context.Context, inner Repository, secret []byte) (*EncryptedRepository, error) {
	if len(secret) == 0 {
		return nil, errors.New("empty storage secret")
	}
	defer common.WipeByteArray(secret)

	salt, err := inner.Get(ctx, SaltKey)
	if err != nil {
		return nil, err
	}
	if len(salt) == 0 {
		salt = common.GenerateRandByteArray(cryptox.SaltSize)
		if err := inner.Set(ctx, SaltKey, salt); err != nil {
			return nil, err
		}
	}

	return &EncryptedRepository{
		inner: inner,
		key:   cryptox.DeriveKey(secret, salt),
	}, nil
}

func (r *EncryptedRepository) Get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := r.inner.Get(ctx, key)
	if err != nil || sealed == nil {
		return nil, err
	}
	if key == SaltKey {
		return sealed, nil
	}

	plain, err := cryptox.Open(sealed, r.key)
	if err != nil {
		return nil, fmt.Errorf("%w[%s]: %v", ErrDecrypt, key, err)
	}
	return plain, nil
}

func (r *EncryptedRepository) Set(ctx context.Context, key string, value []byte) error {
	if key == SaltKey {
		return ErrReservedKey
	}

	sealed, err := cryptox.Seal(value, r.key)
	if err != nil {
		return fmt.Errorf("failed to encrypt metadata[%s]: %w", key, err)
	}
	return r.inner.Set(ctx, key, sealed)
}

func (r *EncryptedRepository) Delete(ctx context.Context, key string) error {
	if key == SaltKey {
		return ErrReservedKey
	}
	return r.inner.Delete(ctx, key)
}
