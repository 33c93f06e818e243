package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over PostgreSQL.
//
// Design notes:
// - The pgx pool is owned by the caller; this store must NOT close it.
// - The schema identifier is validated before being interpolated into SQL.
// - SwapRefreshSlot is a single conditional UPDATE; the row lock taken by
//   UPDATE serializes concurrent rotations for the same user.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the store (default "notenest").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" || !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("identity: nil pool")
	}
	st := &PostgresStore{pool: pool, schema: "notenest"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	return st, nil
}

func (s *PostgresStore) usersTable() string {
	return s.schema + ".users"
}

const userColumns = `id, username, email, picture_url, picture_asset_id, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Username, &u.Email,
		&u.PictureURL, &u.PictureAssetID,
		&u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

// CreateUser inserts a new user row, mapping uniqueness violations to
// ConflictError on the offending logical field.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
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

	id, err := NewULID(now)
	if err != nil {
		return User{}, fmt.Errorf("%s: %w", op, err)
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO `+s.usersTable()+` (
			id, username, username_norm, email, email_norm,
			password_hash, refresh_slot, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, NULL, $7, $7)
		RETURNING `+userColumns+`
	`, id, username, NormalizeUsername(username), email, NormalizeEmail(email), in.PasswordHash, now)

	u, err := scanUser(row)
	if err != nil {
		if field, ok := uniqueViolationField(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByID loads the redacted user record.
func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (User, error) {
	const op = "identity.GetUserByID"

	u, err := scanUser(s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM `+s.usersTable()+`
		WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	if err != nil {
		return User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func (s *PostgresStore) getUserAuth(ctx context.Context, op, where string, arg any) (UserAuth, error) {
	var ua UserAuth
	err := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`, password_hash, refresh_slot
		FROM `+s.usersTable()+`
		WHERE `+where+`
	`, arg).Scan(
		&ua.User.ID, &ua.User.Username, &ua.User.Email,
		&ua.User.PictureURL, &ua.User.PictureAssetID,
		&ua.User.CreatedAt, &ua.User.UpdatedAt,
		&ua.PasswordHash, &ua.RefreshSlot,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return UserAuth{}, NotFoundError{Op: op, Resource: "user"}
	}
	if err != nil {
		return UserAuth{}, fmt.Errorf("%s: %w", op, err)
	}
	return ua, nil
}

// GetUserAuthByID loads the auth view by user id.
func (s *PostgresStore) GetUserAuthByID(ctx context.Context, id string) (UserAuth, error) {
	return s.getUserAuth(ctx, "identity.GetUserAuthByID", "id = $1", id)
}

// GetUserAuthByUsername loads the auth view by normalized username.
func (s *PostgresStore) GetUserAuthByUsername(ctx context.Context, username string) (UserAuth, error) {
	return s.getUserAuth(ctx, "identity.GetUserAuthByUsername", "username_norm = $1", NormalizeUsername(username))
}

// GetUserAuthByEmail loads the auth view by normalized email.
func (s *PostgresStore) GetUserAuthByEmail(ctx context.Context, email string) (UserAuth, error) {
	return s.getUserAuth(ctx, "identity.GetUserAuthByEmail", "email_norm = $1", NormalizeEmail(email))
}

// UpdateAccount updates username/email, maintaining the normalized columns.
func (s *PostgresStore) UpdateAccount(ctx context.Context, id, username, email string, now time.Time) (User, error) {
	const op = "identity.UpdateAccount"

	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput}
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE `+s.usersTable()+`
		SET username = $2, username_norm = $3,
		    email = $4, email_norm = $5,
		    updated_at = $6
		WHERE id = $1
		RETURNING `+userColumns+`
	`, id, username, NormalizeUsername(username), email, NormalizeEmail(email), now)

	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	if err != nil {
		if field, ok := uniqueViolationField(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// UpdatePicture replaces the profile picture reference.
func (s *PostgresStore) UpdatePicture(ctx context.Context, id string, url, assetID *string, now time.Time) (User, error) {
	const op = "identity.UpdatePicture"

	row := s.pool.QueryRow(ctx, `
		UPDATE `+s.usersTable()+`
		SET picture_url = $2, picture_asset_id = $3, updated_at = $4
		WHERE id = $1
		RETURNING `+userColumns+`
	`, id, url, assetID, now)

	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	if err != nil {
		return User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// SwapRefreshSlot performs the atomic compare-and-set on the refresh slot.
// One UPDATE statement carries both the comparison and the overwrite, so
// concurrent refreshes with the same stale token cannot both succeed.
func (s *PostgresStore) SwapRefreshSlot(ctx context.Context, userID string, oldHash, newHash *string, now time.Time) (bool, error) {
	const op = "identity.SwapRefreshSlot"

	tag, err := s.pool.Exec(ctx, `
		UPDATE `+s.usersTable()+`
		SET refresh_slot = $3, updated_at = $4
		WHERE id = $1
		  AND ($2::text IS NULL OR refresh_slot = $2)
	`, userID, oldHash, newHash, now)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	// Nothing updated: either the user is gone or the slot did not match.
	if _, err := s.GetUserByID(ctx, userID); err != nil {
		if IsNotFound(err) {
			return false, NotFoundError{Op: op, Resource: "user"}
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return false, nil
}

// uniqueViolationField maps a Postgres unique violation to the logical field.
func uniqueViolationField(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "email"):
		return "email", true
	case strings.Contains(pgErr.ConstraintName, "username"):
		return "username", true
	default:
		return "", true
	}
}
