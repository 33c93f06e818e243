package identity

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Integration tests are opt-in and require NOTENEST_TEST_DATABASE_URL.
// In non-CI runs, unreachable Postgres skips these tests to keep local runs fast.

func TestPostgresStore_CreateUser_ConflictUsername_CaseInsensitive(t *testing.T) {
	t.Parallel()

	pool := mustOpenTestPool(t)
	defer pool.Close()

	schema := mustCreateTestSchema(t, pool)
	t.Cleanup(func() { mustDropSchema(t, pool, schema) })
	mustApplyUsersSchema(t, pool, schema)

	s := mustNewIdentityStore(t, pool, schema)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	_, err := s.CreateUser(ctx, CreateUserInput{
		Username:     "Alice",
		Email:        "alice@example.com",
		PasswordHash: "hash-1",
		Now:          time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create user 1: %v", err)
	}

	// Same username (case-insensitive) should conflict.
	_, err = s.CreateUser(ctx, CreateUserInput{
		Username:     "aLiCe",
		Email:        "other@example.com",
		PasswordHash: "hash-2",
		Now:          time.Now().UTC(),
	})
	if err == nil {
		t.Fatalf("expected conflict, got nil")
	}
	if !IsConflict(err) {
		t.Fatalf("expected conflict error, got: %v", err)
	}
}

func TestPostgresStore_CreateUser_ConflictEmail_CaseInsensitive(t *testing.T) {
	t.Parallel()

	pool := mustOpenTestPool(t)
	defer pool.Close()

	schema := mustCreateTestSchema(t, pool)
	t.Cleanup(func() { mustDropSchema(t, pool, schema) })
	mustApplyUsersSchema(t, pool, schema)

	s := mustNewIdentityStore(t, pool, schema)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	_, err := s.CreateUser(ctx, CreateUserInput{
		Username:     "user-one",
		Email:        "User@Example.com",
		PasswordHash: "hash-1",
		Now:          time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create user 1: %v", err)
	}

	// Same email (case-insensitive) should conflict.
	_, err = s.CreateUser(ctx, CreateUserInput{
		Username:     "user-two",
		Email:        "user@example.COM",
		PasswordHash: "hash-2",
		Now:          time.Now().UTC(),
	})
	if err == nil {
		t.Fatalf("expected conflict, got nil")
	}
	if !IsConflict(err) {
		t.Fatalf("expected conflict error, got: %v", err)
	}
}

func TestPostgresStore_SwapRefreshSlot_RotateThenRejectReplay(t *testing.T) {
	t.Parallel()

	pool := mustOpenTestPool(t)
	defer pool.Close()

	schema := mustCreateTestSchema(t, pool)
	t.Cleanup(func() { mustDropSchema(t, pool, schema) })
	mustApplyUsersSchema(t, pool, schema)

	s := mustNewIdentityStore(t, pool, schema)

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	u := "rotate-user-" + strings.ToLower(mustNewULIDLike(t))
	created, err := s.CreateUser(ctx, CreateUserInput{
		Username:     u,
		Email:        u + "@example.com",
		PasswordHash: "hash-r",
		Now:          time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	now := time.Now().UTC()
	first, second := "digest-one", "digest-two"

	// Unconditional set, as login does.
	swapped, err := s.SwapRefreshSlot(ctx, created.ID, nil, &first, now)
	if err != nil || !swapped {
		t.Fatalf("set slot: swapped=%v err=%v", swapped, err)
	}

	// Rotation with the current slot value succeeds once.
	swapped, err = s.SwapRefreshSlot(ctx, created.ID, &first, &second, now)
	if err != nil || !swapped {
		t.Fatalf("rotate: swapped=%v err=%v", swapped, err)
	}

	// Presenting the consumed value again must not swap.
	swapped, err = s.SwapRefreshSlot(ctx, created.ID, &first, &second, now)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if swapped {
		t.Fatalf("expected replay to lose the compare-and-set")
	}

	auth, err := s.GetUserAuthByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get auth: %v", err)
	}
	if auth.RefreshSlot == nil || *auth.RefreshSlot != second {
		t.Fatalf("expected slot=%q got=%v", second, auth.RefreshSlot)
	}
}

func TestPostgresStore_SwapRefreshSlot_ClearOnLogout(t *testing.T) {
	t.Parallel()

	pool := mustOpenTestPool(t)
	defer pool.Close()

	schema := mustCreateTestSchema(t, pool)
	t.Cleanup(func() { mustDropSchema(t, pool, schema) })
	mustApplyUsersSchema(t, pool, schema)

	s := mustNewIdentityStore(t, pool, schema)

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	u := "logout-user-" + strings.ToLower(mustNewULIDLike(t))
	created, err := s.CreateUser(ctx, CreateUserInput{
		Username:     u,
		Email:        u + "@example.com",
		PasswordHash: "hash-l",
		Now:          time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	now := time.Now().UTC()
	digest := "digest-live"

	if swapped, err := s.SwapRefreshSlot(ctx, created.ID, nil, &digest, now); err != nil || !swapped {
		t.Fatalf("set slot: swapped=%v err=%v", swapped, err)
	}
	if swapped, err := s.SwapRefreshSlot(ctx, created.ID, nil, nil, now); err != nil || !swapped {
		t.Fatalf("clear slot: swapped=%v err=%v", swapped, err)
	}

	// A rotation from the cleared slot must lose.
	replacement := "digest-new"
	swapped, err := s.SwapRefreshSlot(ctx, created.ID, &digest, &replacement, now)
	if err != nil {
		t.Fatalf("rotate after clear: %v", err)
	}
	if swapped {
		t.Fatalf("expected rotation from cleared slot to lose")
	}

	auth, err := s.GetUserAuthByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get auth: %v", err)
	}
	if auth.RefreshSlot != nil {
		t.Fatalf("expected empty slot, got %q", *auth.RefreshSlot)
	}
}

func TestPostgresStore_SwapRefreshSlot_UnknownUser_ReturnsNotFound(t *testing.T) {
	t.Parallel()

	pool := mustOpenTestPool(t)
	defer pool.Close()

	schema := mustCreateTestSchema(t, pool)
	t.Cleanup(func() { mustDropSchema(t, pool, schema) })
	mustApplyUsersSchema(t, pool, schema)

	s := mustNewIdentityStore(t, pool, schema)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	digest := "digest-x"
	_, err := s.SwapRefreshSlot(ctx, mustNewULIDLike(t), nil, &digest, time.Now().UTC())
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got: %v", err)
	}
}

func TestPostgresStore_UpdateAccount_And_UpdatePicture(t *testing.T) {
	t.Parallel()

	pool := mustOpenTestPool(t)
	defer pool.Close()

	schema := mustCreateTestSchema(t, pool)
	t.Cleanup(func() { mustDropSchema(t, pool, schema) })
	mustApplyUsersSchema(t, pool, schema)

	s := mustNewIdentityStore(t, pool, schema)

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	u := "update-user-" + strings.ToLower(mustNewULIDLike(t))
	created, err := s.CreateUser(ctx, CreateUserInput{
		Username:     u,
		Email:        u + "@example.com",
		PasswordHash: "hash-u",
		Now:          time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	renamed, err := s.UpdateAccount(ctx, created.ID, u+"-renamed", u+"-renamed@example.com", time.Now().UTC())
	if err != nil {
		t.Fatalf("update account: %v", err)
	}
	if renamed.Username != u+"-renamed" {
		t.Fatalf("expected renamed username, got %q", renamed.Username)
	}

	url := "https://assets.example.com/profiles/p.png"
	assetID := "profiles/2026/08/29/asset"
	withPic, err := s.UpdatePicture(ctx, created.ID, &url, &assetID, time.Now().UTC())
	if err != nil {
		t.Fatalf("update picture: %v", err)
	}
	if withPic.PictureURL == nil || *withPic.PictureURL != url {
		t.Fatalf("expected picture url %q, got %v", url, withPic.PictureURL)
	}
	if withPic.PictureAssetID == nil || *withPic.PictureAssetID != assetID {
		t.Fatalf("expected picture asset id %q, got %v", assetID, withPic.PictureAssetID)
	}
}

// ---- helpers ----

func mustNewIdentityStore(t *testing.T, pool *pgxpool.Pool, schema string) *PostgresStore {
	t.Helper()
	s, err := NewPostgresStore(pool, WithSchema(schema))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func mustOpenTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	raw := strings.TrimSpace(os.Getenv("NOTENEST_TEST_DATABASE_URL"))
	if raw == "" {
		t.Skip("integration test skipped: NOTENEST_TEST_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	cfg, err := pgxpool.ParseConfig(raw)
	if err != nil {
		t.Fatalf("parse NOTENEST_TEST_DATABASE_URL: %v", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}

	// Validate acquire quickly (fast fail).
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer pingCancel()

	c, err := pool.Acquire(pingCtx)
	if err != nil {
		pool.Close()
		if shouldSkipIntegration(err) {
			t.Skipf("integration test skipped: Postgres unreachable (NOTENEST_TEST_DATABASE_URL set): %v", err)
		}
		t.Fatalf("acquire: %v", err)
	}
	c.Release()

	return pool
}

func mustCreateTestSchema(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()

	schema := "notenest_it_" + strings.ToLower(mustNewULIDLike(t))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := pool.Exec(ctx, `CREATE SCHEMA `+pgxIdent1(schema)); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return schema
}

func mustDropSchema(t *testing.T, pool *pgxpool.Pool, schema string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = pool.Exec(ctx, `DROP SCHEMA IF EXISTS `+pgxIdent1(schema)+` CASCADE`)
}

func mustApplyUsersSchema(t *testing.T, pool *pgxpool.Pool, schema string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	users := schema + ".users"

	schemaSQL := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL,
  username_norm TEXT NOT NULL,
  email TEXT NOT NULL,
  email_norm TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  refresh_slot TEXT NULL,
  picture_url TEXT NULL,
  picture_asset_id TEXT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),

  CONSTRAINT chk_users_id_ulid_len CHECK (char_length(id) = 26),
  CONSTRAINT uq_users_username_norm UNIQUE (username_norm),
  CONSTRAINT uq_users_email_norm UNIQUE (email_norm)
);
`, users)

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
}

func shouldSkipIntegration(err error) bool {
	if err == nil {
		return false
	}
	if os.Getenv("CI") != "" {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "dial tcp") ||
		strings.Contains(msg, "no such host") {
		return true
	}
	return false
}

func mustNewULIDLike(t *testing.T) string {
	t.Helper()

	id, err := NewULID(time.Now().UTC())
	if err != nil {
		t.Fatalf("ulid: %v", err)
	}
	return id
}

func pgxIdent1(ident string) string {
	return pgx.Identifier{ident}.Sanitize()
}
