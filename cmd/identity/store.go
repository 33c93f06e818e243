package identity

import (
	"context"
	"time"
)

// User is NoteNest's canonical security principal, redacted by construction:
// the struct carries neither the password hash nor the refresh slot, so it is
// safe to hand to handlers and serialize in responses.
type User struct {
	ID       string
	Username string
	Email    string

	// Profile picture reference on the external asset host.
	PictureURL     *string
	PictureAssetID *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserAuth is the login-time view: the user plus the secret columns.
// It must never leave the auth subsystem.
type UserAuth struct {
	User         User
	PasswordHash string

	// RefreshSlot holds the digest of the most recently issued refresh token,
	// or nil when the user has no active session lineage.
	RefreshSlot *string
}

// CreateUserInput describes a registration. Username and Email are stored
// as given plus in normalized form for uniqueness; PasswordHash is the
// already-encoded argon2id string.
type CreateUserInput struct {
	Username     string
	Email        string
	PasswordHash string
	Now          time.Time
}

// Store is the credential-store persistence boundary.
//
// All lookups by username/email use normalized equality. Implementations map
// uniqueness violations to ConflictError and missing rows to NotFoundError.
type Store interface {
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)

	GetUserByID(ctx context.Context, id string) (User, error)
	GetUserAuthByID(ctx context.Context, id string) (UserAuth, error)
	GetUserAuthByUsername(ctx context.Context, username string) (UserAuth, error)
	GetUserAuthByEmail(ctx context.Context, email string) (UserAuth, error)

	UpdateAccount(ctx context.Context, id, username, email string, now time.Time) (User, error)
	UpdatePicture(ctx context.Context, id string, url, assetID *string, now time.Time) (User, error)

	// SwapRefreshSlot replaces the user's refresh slot in one atomic step.
	//
	// Contract (rotation safety, see package doc):
	//   - oldHash == nil: overwrite unconditionally (login/register).
	//   - oldHash != nil: overwrite only if the current slot equals *oldHash;
	//     a mismatch (already-rotated token, concurrent refresh loser, or a
	//     cleared slot) returns swapped == false with a nil error.
	//   - newHash == nil clears the slot (logout).
	//
	// The compare-and-set must be a single store-level operation, never a
	// read-then-write sequence.
	SwapRefreshSlot(ctx context.Context, userID string, oldHash, newHash *string, now time.Time) (swapped bool, err error)
}
