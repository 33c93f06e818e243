// Package notes implements per-user note storage and its HTTP surface.
package notes

import (
	"context"
	"errors"
	"time"
)

// Note is a user-owned note. Pinned notes sort before unpinned ones.
type Note struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Pinned    bool      `json:"pinned"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateNoteInput carries the fields for a new note.
type CreateNoteInput struct {
	UserID  string
	Title   string
	Content string
	Now     time.Time
}

var (
	// ErrNotFound is returned when no note matches the id for that owner.
	// A note belonging to another user is indistinguishable from a missing one.
	ErrNotFound = errors.New("note not found")

	// ErrInvalidInput is returned for blank or oversized fields.
	ErrInvalidInput = errors.New("invalid input")
)

// Store persists notes. Every operation is scoped by owner.
type Store interface {
	// List returns the user's notes, pinned first, then newest first.
	List(ctx context.Context, userID string) ([]Note, error)
	Create(ctx context.Context, in CreateNoteInput) (Note, error)
	Update(ctx context.Context, userID, noteID, title, content string, now time.Time) (Note, error)
	Delete(ctx context.Context, userID, noteID string) error
	TogglePin(ctx context.Context, userID, noteID string, now time.Time) (Note, error)
}
