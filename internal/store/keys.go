package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/modledger/modledger/internal/model"
)

// InsertKey persists a new admin key inside its own transaction. On failure
// nothing is persisted. The unique index on admin_key rejects the (already
// astronomically unlikely) duplicate token.
func (s *Store) InsertKey(ctx context.Context, key string, level int16, role string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin key insert: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "INSERT INTO keys (admin_key, lvl, role) VALUES (?, ?, ?)", key, level, role); err != nil {
		return fmt.Errorf("insert key: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit key insert: %w", err)
	}
	return nil
}

// GetKey returns the admin key row for the given token.
func (s *Store) GetKey(ctx context.Context, key string) (*model.AdminKey, error) {
	var k model.AdminKey
	if err := s.db.GetContext(ctx, &k, "SELECT id, admin_key, lvl, role FROM keys WHERE admin_key = ?", key); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get key: %w", err)
	}
	return &k, nil
}

// DeleteKeyByKey removes the key row matching the token. Deleting zero rows
// is not an error; the count lets callers log what happened.
func (s *Store) DeleteKeyByKey(ctx context.Context, key string) (int64, error) {
	return s.deleteKeys(ctx, "DELETE FROM keys WHERE admin_key = ?", key)
}

// DeleteKeysByRole removes every key carrying the given role label.
func (s *Store) DeleteKeysByRole(ctx context.Context, role string) (int64, error) {
	return s.deleteKeys(ctx, "DELETE FROM keys WHERE role = ?", role)
}

func (s *Store) deleteKeys(ctx context.Context, q string, arg interface{}) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin key delete: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, q, arg)
	if err != nil {
		return 0, fmt.Errorf("delete keys: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete keys rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit key delete: %w", err)
	}
	return n, nil
}

// ReplaceKey swaps an existing token for a new one in a single transaction,
// preserving the level and role. Used for owner key regeneration so the old
// credential never coexists with the new one.
func (s *Store) ReplaceKey(ctx context.Context, oldKey, newKey string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin key replace: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, "UPDATE keys SET admin_key = ? WHERE admin_key = ?", newKey, oldKey)
	if err != nil {
		return fmt.Errorf("replace key: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("replace key rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit key replace: %w", err)
	}
	return nil
}

// HasKeyAtLevel reports whether any key exists at exactly the given level.
// Bootstrap uses it to keep the level-127 key a singleton across restarts.
func (s *Store) HasKeyAtLevel(ctx context.Context, level int16) (bool, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM keys WHERE lvl = ?", level); err != nil {
		return false, fmt.Errorf("count keys at level: %w", err)
	}
	return n > 0, nil
}

// ListKeys returns all stored admin keys ordered by id.
func (s *Store) ListKeys(ctx context.Context) ([]model.AdminKey, error) {
	var keys []model.AdminKey
	if err := s.db.SelectContext(ctx, &keys, "SELECT id, admin_key, lvl, role FROM keys ORDER BY id"); err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}
