package notes

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"notenest/cmd/identity"
)

// PostgresStore implements Store over PostgreSQL. The pool is owned by the
// caller; this store must not close it.
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
			return fmt.Errorf("notes: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore builds a PostgresStore over the given pool.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("notes: nil pool")
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

func (s *PostgresStore) table() string {
	return s.schema + ".notes"
}

const noteColumns = `id, user_id, title, content, pinned, created_at, updated_at`

func scanNote(row pgx.Row) (Note, error) {
	var n Note
	err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &n.Pinned, &n.CreatedAt, &n.UpdatedAt)
	return n, err
}

func (s *PostgresStore) List(ctx context.Context, userID string) ([]Note, error) {
	const op = "notes.List"

	rows, err := s.pool.Query(ctx, `
		SELECT `+noteColumns+`
		FROM `+s.table()+`
		WHERE user_id = $1
		ORDER BY pinned DESC, created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (s *PostgresStore) Create(ctx context.Context, in CreateNoteInput) (Note, error) {
	const op = "notes.Create"

	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return Note{}, ErrInvalidInput
	}

	id, err := identity.NewULID(in.Now)
	if err != nil {
		return Note{}, fmt.Errorf("%s: %w", op, err)
	}

	n, err := scanNote(s.pool.QueryRow(ctx, `
		INSERT INTO `+s.table()+` (id, user_id, title, content, pinned, created_at, updated_at)
		VALUES ($1, $2, $3, $4, FALSE, $5, $5)
		RETURNING `+noteColumns+`
	`, id, in.UserID, in.Title, in.Content, in.Now))
	if err != nil {
		return Note{}, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

func (s *PostgresStore) Update(ctx context.Context, userID, noteID, title, content string, now time.Time) (Note, error) {
	const op = "notes.Update"

	title = strings.TrimSpace(title)
	if title == "" {
		return Note{}, ErrInvalidInput
	}

	n, err := scanNote(s.pool.QueryRow(ctx, `
		UPDATE `+s.table()+`
		SET title = $3, content = $4, updated_at = $5
		WHERE id = $1 AND user_id = $2
		RETURNING `+noteColumns+`
	`, noteID, userID, title, content, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return Note{}, ErrNotFound
	}
	if err != nil {
		return Note{}, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID, noteID string) error {
	const op = "notes.Delete"

	tag, err := s.pool.Exec(ctx, `
		DELETE FROM `+s.table()+`
		WHERE id = $1 AND user_id = $2
	`, noteID, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) TogglePin(ctx context.Context, userID, noteID string, now time.Time) (Note, error) {
	const op = "notes.TogglePin"

	n, err := scanNote(s.pool.QueryRow(ctx, `
		UPDATE `+s.table()+`
		SET pinned = NOT pinned, updated_at = $3
		WHERE id = $1 AND user_id = $2
		RETURNING `+noteColumns+`
	`, noteID, userID, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return Note{}, ErrNotFound
	}
	if err != nil {
		return Note{}, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}
