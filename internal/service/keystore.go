package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modledger/modledger/internal/model"
	"github.com/modledger/modledger/internal/store"
)

var (
	// ErrInvalidLevel is returned when a requested level falls outside [0,127].
	ErrInvalidLevel = errors.New("invalid key level")
	// ErrInvalidRole is returned when a role label is empty.
	ErrInvalidRole = errors.New("invalid key role")
)

// KeyStore manages the admin-key lifecycle: generation, level checks, role
// lookup, revocation, and the bootstrap key created on first start.
type KeyStore struct {
	store  *store.Store
	logger *slog.Logger
}

// NewKeyStore creates a KeyStore on top of the given store.
func NewKeyStore(s *store.Store, logger *slog.Logger) *KeyStore {
	return &KeyStore{store: s, logger: logger}
}

const keyAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// newKey draws model.KeyLength characters uniformly from the 52 ASCII
// letters using the CSPRNG. Rejection sampling keeps the distribution
// uniform (256 is not a multiple of 52).
func newKey() (string, error) {
	out := make([]byte, 0, model.KeyLength)
	buf := make([]byte, model.KeyLength)
	for len(out) < model.KeyLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) < 4*len(keyAlphabet) { // largest multiple of 52 below 256
				out = append(out, keyAlphabet[int(b)%len(keyAlphabet)])
				if len(out) == model.KeyLength {
					break
				}
			}
		}
	}
	return string(out), nil
}

// Generate creates and persists a new admin key at the given level. The raw
// token is returned once; on storage failure nothing is persisted.
func (k *KeyStore) Generate(ctx context.Context, level int16, role string) (string, error) {
	if level < model.MinLevel || level > model.RootLevel {
		return "", ErrInvalidLevel
	}
	if role == "" {
		return "", ErrInvalidRole
	}

	key, err := newKey()
	if err != nil {
		return "", err
	}

	if err := k.store.InsertKey(ctx, key, level, role); err != nil {
		k.logger.Error("key generation failed", "role", role, "lvl", level, "error", err)
		return "", err
	}

	k.logger.Info("admin key generated", "role", role, "lvl", level)
	return key, nil
}

// CheckLevel reports whether key exists with level at least min. Absence of
// the key and storage errors are both false: callers cannot tell a failed
// lookup from a key that does not exist.
func (k *KeyStore) CheckLevel(ctx context.Context, key string, min int16) bool {
	row, err := k.store.GetKey(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			k.logger.Error("key level check failed", "error", err)
		}
		return false
	}
	return row.Level >= min
}

// CheckRoleLevel is CheckLevel with an additional exact role requirement.
func (k *KeyStore) CheckRoleLevel(ctx context.Context, key, role string, min int16) bool {
	row, err := k.store.GetKey(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			k.logger.Error("key role check failed", "error", err)
		}
		return false
	}
	return row.Role == role && row.Level >= min
}

// Role returns the role label attached to key. store.ErrNotFound passes
// through when the key does not exist.
func (k *KeyStore) Role(ctx context.Context, key string) (string, error) {
	row, err := k.store.GetKey(ctx, key)
	if err != nil {
		return "", err
	}
	return row.Role, nil
}

// RevokeKey deletes the key matching the token. Revoking a key that does not
// exist is a no-op.
func (k *KeyStore) RevokeKey(ctx context.Context, key string) error {
	n, err := k.store.DeleteKeyByKey(ctx, key)
	if err != nil {
		k.logger.Error("key revocation failed", "error", err)
		return err
	}
	k.logger.Info("admin key revoked", "removed", n)
	return nil
}

// RevokeRole deletes every key carrying the given role label.
func (k *KeyStore) RevokeRole(ctx context.Context, role string) error {
	n, err := k.store.DeleteKeysByRole(ctx, role)
	if err != nil {
		k.logger.Error("role revocation failed", "role", role, "error", err)
		return err
	}
	k.logger.Info("admin keys revoked", "role", role, "removed", n)
	return nil
}

// Regenerate swaps the token of an existing key for a fresh one, keeping the
// level and role. The old credential stops working the moment the swap
// commits.
func (k *KeyStore) Regenerate(ctx context.Context, oldKey string) (string, error) {
	key, err := newKey()
	if err != nil {
		return "", err
	}
	if err := k.store.ReplaceKey(ctx, oldKey, key); err != nil {
		k.logger.Error("key regeneration failed", "error", err)
		return "", err
	}
	k.logger.Info("admin key regenerated")
	return key, nil
}

// Bootstrap ensures exactly one level-127 "admin" key exists. It runs on
// every process start; when a root key is already present it is a no-op.
// The generated token is logged once since there is no other channel to
// hand it to the operator.
func (k *KeyStore) Bootstrap(ctx context.Context) error {
	exists, err := k.store.HasKeyAtLevel(ctx, model.RootLevel)
	if err != nil {
		return fmt.Errorf("check for root key: %w", err)
	}
	if exists {
		k.logger.Info("root admin key already exists")
		return nil
	}

	key, err := k.Generate(ctx, model.RootLevel, model.RoleAdmin)
	if err != nil {
		return fmt.Errorf("generate root key: %w", err)
	}
	k.logger.Info("root admin key created", "key", key)
	return nil
}
