package identity

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemStore is an in-memory Store used in tests and DB-less development runs.
// A single mutex gives SwapRefreshSlot the same compare-and-set atomicity the
// Postgres store gets from its conditional UPDATE.
type MemStore struct {
	mu    sync.Mutex
	users map[string]*memUser // by id
}

type memUser struct {
	user         User
	passwordHash string
	refreshSlot  *string
}

// NewMemStore creates an empty in-memory credential store.
func NewMemStore() *MemStore {
	return &MemStore{users: make(map[string]*memUser)}
}

func (s *MemStore) CreateUser(_ context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if username == "" || email == "" || in.PasswordHash == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput}
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, mu := range s.users {
		if NormalizeEmail(mu.user.Email) == NormalizeEmail(email) {
			return User{}, ConflictError{Op: op, Field: "email"}
		}
		if NormalizeUsername(mu.user.Username) == NormalizeUsername(username) {
			return User{}, ConflictError{Op: op, Field: "username"}
		}
	}

	id, err := NewULID(now)
	if err != nil {
		return User{}, err
	}

	u := User{
		ID:        id,
		Username:  username,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.users[id] = &memUser{user: u, passwordHash: in.PasswordHash}
	return u, nil
}

func (s *MemStore) GetUserByID(_ context.Context, id string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mu, ok := s.users[id]
	if !ok {
		return User{}, NotFoundError{Op: "identity.GetUserByID", Resource: "user"}
	}
	return mu.user, nil
}

func (s *MemStore) getAuthLocked(op string, match func(*memUser) bool) (UserAuth, error) {
	for _, mu := range s.users {
		if match(mu) {
			return UserAuth{User: mu.user, PasswordHash: mu.passwordHash, RefreshSlot: cloneStr(mu.refreshSlot)}, nil
		}
	}
	return UserAuth{}, NotFoundError{Op: op, Resource: "user"}
}

func (s *MemStore) GetUserAuthByID(_ context.Context, id string) (UserAuth, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getAuthLocked("identity.GetUserAuthByID", func(mu *memUser) bool {
		return mu.user.ID == id
	})
}

func (s *MemStore) GetUserAuthByUsername(_ context.Context, username string) (UserAuth, error) {
	norm := NormalizeUsername(username)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getAuthLocked("identity.GetUserAuthByUsername", func(mu *memUser) bool {
		return NormalizeUsername(mu.user.Username) == norm
	})
}

func (s *MemStore) GetUserAuthByEmail(_ context.Context, email string) (UserAuth, error) {
	norm := NormalizeEmail(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getAuthLocked("identity.GetUserAuthByEmail", func(mu *memUser) bool {
		return NormalizeEmail(mu.user.Email) == norm
	})
}

func (s *MemStore) UpdateAccount(_ context.Context, id, username, email string, now time.Time) (User, error) {
	const op = "identity.UpdateAccount"

	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mu, ok := s.users[id]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	for otherID, other := range s.users {
		if otherID == id {
			continue
		}
		if NormalizeEmail(other.user.Email) == NormalizeEmail(email) {
			return User{}, ConflictError{Op: op, Field: "email"}
		}
		if NormalizeUsername(other.user.Username) == NormalizeUsername(username) {
			return User{}, ConflictError{Op: op, Field: "username"}
		}
	}

	mu.user.Username = username
	mu.user.Email = email
	mu.user.UpdatedAt = now
	return mu.user, nil
}

func (s *MemStore) UpdatePicture(_ context.Context, id string, url, assetID *string, now time.Time) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mu, ok := s.users[id]
	if !ok {
		return User{}, NotFoundError{Op: "identity.UpdatePicture", Resource: "user"}
	}
	mu.user.PictureURL = cloneStr(url)
	mu.user.PictureAssetID = cloneStr(assetID)
	mu.user.UpdatedAt = now
	return mu.user, nil
}

func (s *MemStore) SwapRefreshSlot(_ context.Context, userID string, oldHash, newHash *string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mu, ok := s.users[userID]
	if !ok {
		return false, NotFoundError{Op: "identity.SwapRefreshSlot", Resource: "user"}
	}
	if oldHash != nil {
		if mu.refreshSlot == nil || *mu.refreshSlot != *oldHash {
			return false, nil
		}
	}
	mu.refreshSlot = cloneStr(newHash)
	mu.user.UpdatedAt = now
	return true, nil
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
