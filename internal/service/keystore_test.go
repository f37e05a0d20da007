package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/modledger/modledger/internal/model"
	"github.com/modledger/modledger/internal/store"
)

func newTestKeyStore(t *testing.T) (*KeyStore, *store.Store) {
	t.Helper()
	s, err := store.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewKeyStore(s, logger), s
}

func TestGenerateTokenShape(t *testing.T) {
	keys, _ := newTestKeyStore(t)
	ctx := context.Background()

	key, err := keys.Generate(ctx, 1, "moderator")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(key) != model.KeyLength {
		t.Errorf("got key length %d, want %d", len(key), model.KeyLength)
	}
	for _, c := range key {
		if !strings.ContainsRune(keyAlphabet, c) {
			t.Errorf("key contains %q, outside the 52-letter alphabet", c)
		}
	}
}

func TestGenerateDistinctTokens(t *testing.T) {
	keys, _ := newTestKeyStore(t)
	ctx := context.Background()

	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		key, err := keys.Generate(ctx, 1, "bulk")
		if err != nil {
			t.Fatalf("Generate #%d: %v", i, err)
		}
		if seen[key] {
			t.Fatalf("duplicate token after %d generations", i)
		}
		seen[key] = true
	}
}

func TestGenerateRejectsBadInput(t *testing.T) {
	keys, _ := newTestKeyStore(t)
	ctx := context.Background()

	if _, err := keys.Generate(ctx, -1, "x"); err != ErrInvalidLevel {
		t.Errorf("level -1: got %v, want ErrInvalidLevel", err)
	}
	if _, err := keys.Generate(ctx, 128, "x"); err != ErrInvalidLevel {
		t.Errorf("level 128: got %v, want ErrInvalidLevel", err)
	}
	if _, err := keys.Generate(ctx, 1, ""); err != ErrInvalidRole {
		t.Errorf("empty role: got %v, want ErrInvalidRole", err)
	}
}

func TestCheckLevel(t *testing.T) {
	keys, _ := newTestKeyStore(t)
	ctx := context.Background()

	root, err := keys.Generate(ctx, 127, "admin")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	low, err := keys.Generate(ctx, 1, "helper")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if !keys.CheckLevel(ctx, root, 127) {
		t.Error("root key should pass level 127")
	}
	if keys.CheckLevel(ctx, low, 127) {
		t.Error("level-1 key must not pass level 127")
	}
	if !keys.CheckLevel(ctx, low, 0) {
		t.Error("level-1 key should pass level 0")
	}
	if keys.CheckLevel(ctx, "no-such-key", 0) {
		t.Error("unknown key must never pass")
	}
}

func TestCheckRoleLevel(t *testing.T) {
	keys, _ := newTestKeyStore(t)
	ctx := context.Background()

	owner, _ := keys.Generate(ctx, 127, "owner")
	admin, _ := keys.Generate(ctx, 127, "admin")

	if !keys.CheckRoleLevel(ctx, owner, "owner", 127) {
		t.Error("owner key should pass owner/127")
	}
	if keys.CheckRoleLevel(ctx, admin, "owner", 127) {
		t.Error("admin key must not pass the owner role check")
	}
}

func TestRoleLookup(t *testing.T) {
	keys, _ := newTestKeyStore(t)
	ctx := context.Background()

	key, _ := keys.Generate(ctx, 5, "auditor")

	role, err := keys.Role(ctx, key)
	if err != nil {
		t.Fatalf("Role: %v", err)
	}
	if role != "auditor" {
		t.Errorf("got role %q, want auditor", role)
	}

	if _, err := keys.Role(ctx, "missing"); err != store.ErrNotFound {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestRevokeKey(t *testing.T) {
	keys, _ := newTestKeyStore(t)
	ctx := context.Background()

	key, _ := keys.Generate(ctx, 3, "temp")
	if err := keys.RevokeKey(ctx, key); err != nil {
		t.Fatalf("RevokeKey: %v", err)
	}

	if keys.CheckLevel(ctx, key, 0) {
		t.Error("revoked key still authorizes")
	}

	// Revoking again is idempotent.
	if err := keys.RevokeKey(ctx, key); err != nil {
		t.Errorf("repeat revoke: %v", err)
	}
}

func TestRevokeRole(t *testing.T) {
	keys, _ := newTestKeyStore(t)
	ctx := context.Background()

	k1, _ := keys.Generate(ctx, 2, "bots")
	k2, _ := keys.Generate(ctx, 3, "bots")
	survivor, _ := keys.Generate(ctx, 2, "humans")

	if err := keys.RevokeRole(ctx, "bots"); err != nil {
		t.Fatalf("RevokeRole: %v", err)
	}
	if keys.CheckLevel(ctx, k1, 0) || keys.CheckLevel(ctx, k2, 0) {
		t.Error("bots keys still authorize after role revocation")
	}
	if !keys.CheckLevel(ctx, survivor, 0) {
		t.Error("unrelated role was revoked")
	}
}

func TestRegenerate(t *testing.T) {
	keys, _ := newTestKeyStore(t)
	ctx := context.Background()

	oldKey, _ := keys.Generate(ctx, 127, "owner")

	newKey, err := keys.Regenerate(ctx, oldKey)
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if newKey == oldKey {
		t.Fatal("regenerated token equals the old one")
	}
	if keys.CheckLevel(ctx, oldKey, 0) {
		t.Error("old token still authorizes after regeneration")
	}
	if !keys.CheckRoleLevel(ctx, newKey, "owner", 127) {
		t.Error("new token lost its role or level")
	}
}

func TestBootstrapIdempotent(t *testing.T) {
	keys, s := newTestKeyStore(t)
	ctx := context.Background()

	if err := keys.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if err := keys.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap (repeat): %v", err)
	}

	all, err := s.ListKeys(ctx)
	if err != nil {
		t.Fatalf("ListKeys: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("got %d keys after double bootstrap, want 1", len(all))
	}
	if all[0].Level != model.RootLevel || all[0].Role != model.RoleAdmin {
		t.Errorf("bootstrap key is %d/%q, want 127/admin", all[0].Level, all[0].Role)
	}
}
