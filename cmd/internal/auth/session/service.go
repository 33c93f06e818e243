package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"notenest/cmd/identity"
	"notenest/cmd/security/password"
	"notenest/cmd/security/token"
)

// Service implements the session handshake for NoteNest.
//
// It validates credentials against the identity store, mints token pairs via
// the TokenManager, and maintains the single refresh-token slot per user.
// The slot holds a digest of the refresh token, never the token itself.
type Service struct {
	cfg    Config
	tokens TokenManager
	users  identity.Store

	pwParams password.Params
}

// Issued is the result of a successful handshake transition: a short-lived
// access token and a long-lived refresh token, with their expiries.
type Issued struct {
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
}

// ServiceOption configures optional Service behavior.
type ServiceOption func(*Service)

// WithPasswordParams overrides the password hashing parameters.
func WithPasswordParams(p password.Params) ServiceOption {
	return func(s *Service) { s.pwParams = p }
}

// NewService constructs a Service over the given store and token manager.
func NewService(cfg Config, users identity.Store, tokens TokenManager, opts ...ServiceOption) *Service {
	s := &Service{
		cfg:      cfg,
		tokens:   tokens,
		users:    users,
		pwParams: password.DefaultParams(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

// mintPair issues both tokens for a user and returns them together with the
// storable digest of the refresh token.
func (s *Service) mintPair(userID string, now time.Time) (Issued, string, error) {
	access, accessExp, err := s.tokens.IssueAccess(userID, now)
	if err != nil {
		return Issued{}, "", fmt.Errorf("issue access token: %w", err)
	}
	refresh, refreshExp, err := s.tokens.IssueRefresh(userID, now)
	if err != nil {
		return Issued{}, "", fmt.Errorf("issue refresh token: %w", err)
	}
	return Issued{
		AccessToken:  access,
		AccessExp:    accessExp,
		RefreshToken: refresh,
		RefreshExp:   refreshExp,
	}, token.HashRefreshTokenHex(refresh), nil
}

// Register creates a new identity and performs an implicit login.
//
// Blank fields fail with ErrValidation; a taken username or email fails with
// ErrConflict. On success the new user's refresh slot holds the digest of
// the freshly minted refresh token.
func (s *Service) Register(ctx context.Context, now time.Time, username, email, plain string) (identity.User, Issued, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" || email == "" || plain == "" {
		return identity.User{}, Issued{}, fmt.Errorf("%w: username, email and password are required", ErrValidation)
	}
	if !strings.Contains(email, "@") {
		return identity.User{}, Issued{}, fmt.Errorf("%w: invalid email", ErrValidation)
	}

	hash, err := password.Hash(plain, s.pwParams)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooShort) || errors.Is(err, password.ErrPasswordTooLong) {
			return identity.User{}, Issued{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return identity.User{}, Issued{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.CreateUser(ctx, identity.CreateUserInput{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Now:          now,
	})
	if err != nil {
		switch {
		case identity.IsConflict(err):
			return identity.User{}, Issued{}, fmt.Errorf("%w: %v", ErrConflict, err)
		case identity.IsInvalidInput(err):
			return identity.User{}, Issued{}, fmt.Errorf("%w: %v", ErrValidation, err)
		default:
			return identity.User{}, Issued{}, fmt.Errorf("create user: %w", err)
		}
	}

	issued, err := s.startSession(ctx, now, u.ID)
	if err != nil {
		return identity.User{}, Issued{}, err
	}
	return u, issued, nil
}

// Login authenticates by username or email and starts a fresh session.
//
// An unknown identity fails with ErrNotFound; a password mismatch fails with
// ErrUnauthorized. On success the refresh slot is overwritten unconditionally,
// invalidating any refresh token issued before this login.
func (s *Service) Login(ctx context.Context, now time.Time, usernameOrEmail, plain string) (identity.User, Issued, error) {
	usernameOrEmail = strings.TrimSpace(usernameOrEmail)
	if usernameOrEmail == "" || plain == "" {
		return identity.User{}, Issued{}, fmt.Errorf("%w: credentials are required", ErrValidation)
	}

	auth, err := s.lookup(ctx, usernameOrEmail)
	if err != nil {
		if identity.IsNotFound(err) {
			return identity.User{}, Issued{}, ErrNotFound
		}
		return identity.User{}, Issued{}, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := password.Verify(auth.PasswordHash, plain, s.pwParams)
	if err != nil {
		return identity.User{}, Issued{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return identity.User{}, Issued{}, ErrUnauthorized
	}

	issued, err := s.startSession(ctx, now, auth.User.ID)
	if err != nil {
		return identity.User{}, Issued{}, err
	}
	return auth.User, issued, nil
}

func (s *Service) lookup(ctx context.Context, usernameOrEmail string) (identity.UserAuth, error) {
	if strings.Contains(usernameOrEmail, "@") {
		return s.users.GetUserAuthByEmail(ctx, usernameOrEmail)
	}
	return s.users.GetUserAuthByUsername(ctx, usernameOrEmail)
}

// startSession mints a pair and overwrites the slot unconditionally.
func (s *Service) startSession(ctx context.Context, now time.Time, userID string) (Issued, error) {
	issued, digest, err := s.mintPair(userID, now)
	if err != nil {
		return Issued{}, err
	}
	if _, err := s.users.SwapRefreshSlot(ctx, userID, nil, &digest, now); err != nil {
		return Issued{}, fmt.Errorf("store refresh slot: %w", err)
	}
	return issued, nil
}

// Refresh exchanges a refresh token for a fresh pair, rotating the slot.
//
// The incoming token must verify under the refresh secret AND its digest
// must still occupy the user's slot. The swap to the new digest is a single
// conditional update: when two requests race with the same stale token, at
// most one wins; the loser, like every other failure here, gets
// ErrUnauthorized with no further detail.
func (s *Service) Refresh(ctx context.Context, now time.Time, refreshToken string) (identity.User, Issued, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" || len(refreshToken) > 4096 {
		return identity.User{}, Issued{}, ErrUnauthorized
	}

	claims, err := s.tokens.Verify(refreshToken, ClassRefresh, now)
	if err != nil {
		return identity.User{}, Issued{}, ErrUnauthorized
	}

	auth, err := s.users.GetUserAuthByID(ctx, claims.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			return identity.User{}, Issued{}, ErrUnauthorized
		}
		return identity.User{}, Issued{}, fmt.Errorf("load user: %w", err)
	}

	issued, newDigest, err := s.mintPair(auth.User.ID, now)
	if err != nil {
		return identity.User{}, Issued{}, err
	}

	oldDigest := token.HashRefreshTokenHex(refreshToken)
	swapped, err := s.users.SwapRefreshSlot(ctx, auth.User.ID, &oldDigest, &newDigest, now)
	if err != nil {
		if identity.IsNotFound(err) {
			return identity.User{}, Issued{}, ErrUnauthorized
		}
		return identity.User{}, Issued{}, fmt.Errorf("rotate refresh slot: %w", err)
	}
	if !swapped {
		// Replay of an already-exchanged token, or the loser of a
		// concurrent rotation.
		return identity.User{}, Issued{}, ErrUnauthorized
	}

	return auth.User, issued, nil
}

// Logout clears the refresh slot so every previously issued refresh token
// fails from now on. The caller must already be authenticated.
func (s *Service) Logout(ctx context.Context, now time.Time, userID string) error {
	if _, err := s.users.SwapRefreshSlot(ctx, userID, nil, nil, now); err != nil {
		if identity.IsNotFound(err) {
			return ErrUnauthorized
		}
		return fmt.Errorf("clear refresh slot: %w", err)
	}
	return nil
}
