package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"notenest/cmd/identity"
	"notenest/cmd/security/password"
	"notenest/cmd/security/token"
)

func newTestService(t *testing.T) (*Service, *identity.MemStore) {
	t.Helper()

	store := identity.NewMemStore()
	m := mustManager(t, testConfig())

	// Keep hashing costs low for unit tests.
	p := password.DefaultParams()
	p.MemoryKiB = 8 * 1024
	p.Iterations = 1

	svc := NewService(testConfig(), store, m, WithPasswordParams(p))
	return svc, store
}

func TestService_Register_ImplicitLogin(t *testing.T) {
	t.Parallel()

	svc, store := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	u, issued, err := svc.Register(ctx, now, "alice", "alice@x.com", "pw123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Username != "alice" || u.Email != "alice@x.com" || u.ID == "" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if issued.AccessToken == "" || issued.RefreshToken == "" {
		t.Fatalf("expected both tokens to be issued")
	}
	if !issued.RefreshExp.After(issued.AccessExp) {
		t.Fatalf("refresh expiry must be after access expiry")
	}

	auth, err := store.GetUserAuthByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserAuthByID: %v", err)
	}
	want := token.HashRefreshTokenHex(issued.RefreshToken)
	if auth.RefreshSlot == nil || *auth.RefreshSlot != want {
		t.Fatalf("slot does not hold the digest of the issued refresh token")
	}
}

func TestService_Register_BlankFieldsAndDuplicates(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	cases := []struct{ username, email, pw string }{
		{"", "a@x.com", "pw123"},
		{"a", "", "pw123"},
		{"a", "a@x.com", ""},
		{"a", "not-an-email", "pw123"},
	}
	for _, c := range cases {
		if _, _, err := svc.Register(ctx, now, c.username, c.email, c.pw); !errors.Is(err, ErrValidation) {
			t.Fatalf("Register(%q,%q): expected ErrValidation, got %v", c.username, c.email, err)
		}
	}

	if _, _, err := svc.Register(ctx, now, "alice", "alice@x.com", "pw123"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, _, err := svc.Register(ctx, now, "other", "ALICE@x.com", "pw123"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate email, got %v", err)
	}
	if _, _, err := svc.Register(ctx, now, "Alice", "new@x.com", "pw123"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate username, got %v", err)
	}
}

func TestService_Login_RotatesSlot(t *testing.T) {
	t.Parallel()

	svc, store := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	u, registered, err := svc.Register(ctx, now, "alice", "alice@x.com", "pw123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, loggedIn, err := svc.Login(ctx, now.Add(time.Second), "alice", "pw123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if loggedIn.RefreshToken == registered.RefreshToken {
		t.Fatalf("login must mint a fresh refresh token")
	}

	auth, err := store.GetUserAuthByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserAuthByID: %v", err)
	}
	want := token.HashRefreshTokenHex(loggedIn.RefreshToken)
	if auth.RefreshSlot == nil || *auth.RefreshSlot != want {
		t.Fatalf("slot not rotated to the login refresh token")
	}

	// The refresh token from registration is invalidated by the login.
	if _, _, err := svc.Refresh(ctx, now.Add(2*time.Second), registered.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for pre-login refresh token, got %v", err)
	}
}

func TestService_Login_ByEmailAndFailures(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, _, err := svc.Register(ctx, now, "alice", "alice@x.com", "pw123"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, _, err := svc.Login(ctx, now, "alice@x.com", "pw123"); err != nil {
		t.Fatalf("login by email: %v", err)
	}

	if _, _, err := svc.Login(ctx, now, "nobody", "pw123"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
	if _, _, err := svc.Login(ctx, now, "alice", "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for wrong password, got %v", err)
	}
	if _, _, err := svc.Login(ctx, now, "", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for blank credentials, got %v", err)
	}
}

func TestService_Refresh_RotatesAndRejectsReplay(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	u, first, err := svc.Register(ctx, now, "alice", "alice@x.com", "pw123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	ru, second, err := svc.Refresh(ctx, now.Add(time.Second), first.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if ru.ID != u.ID {
		t.Fatalf("refresh returned wrong user")
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatalf("refresh must rotate the refresh token")
	}

	// The exchanged token is consumed; a second exchange fails well before
	// its TTL elapses.
	if _, _, err := svc.Refresh(ctx, now.Add(2*time.Second), first.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized on replay, got %v", err)
	}

	// The rotated-in token works.
	if _, _, err := svc.Refresh(ctx, now.Add(3*time.Second), second.RefreshToken); err != nil {
		t.Fatalf("refresh with rotated token: %v", err)
	}
}

func TestService_Refresh_GarbageTokens(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, tok := range []string{"", "   ", "garbage", "a.b.c"} {
		if _, _, err := svc.Refresh(ctx, now, tok); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("token %q: expected ErrUnauthorized, got %v", tok, err)
		}
	}
}

func TestService_Logout_InvalidatesRefreshToken(t *testing.T) {
	t.Parallel()

	svc, store := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	u, issued, err := svc.Register(ctx, now, "alice", "alice@x.com", "pw123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := svc.Logout(ctx, now.Add(time.Second), u.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	auth, err := store.GetUserAuthByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserAuthByID: %v", err)
	}
	if auth.RefreshSlot != nil {
		t.Fatalf("logout must clear the refresh slot")
	}

	// The token issued before logout is cryptographically fine but its
	// digest no longer occupies the slot.
	if _, _, err := svc.Refresh(ctx, now.Add(2*time.Second), issued.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after logout, got %v", err)
	}
}

func TestService_Refresh_ConcurrentSingleWinner(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, issued, err := svc.Register(ctx, now, "alice", "alice@x.com", "pw123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	okCh := make(chan struct{}, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.Refresh(ctx, now.Add(time.Second), issued.RefreshToken)
			switch {
			case err == nil:
				okCh <- struct{}{}
			case errors.Is(err, ErrUnauthorized):
			default:
				t.Errorf("unexpected refresh error: %v", err)
			}
		}()
	}
	wg.Wait()
	close(okCh)

	var wins int
	for range okCh {
		wins++
	}
	if wins != 1 {
		t.Fatalf("exactly one concurrent refresh may win, got %d", wins)
	}
}
