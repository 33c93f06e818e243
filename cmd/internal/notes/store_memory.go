package notes

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"notenest/cmd/identity"
)

// MemStore is an in-memory Store for tests and DB-less development.
type MemStore struct {
	mu    sync.Mutex
	notes map[string]*Note
}

func NewMemStore() *MemStore {
	return &MemStore{notes: make(map[string]*Note)}
}

func (s *MemStore) List(_ context.Context, userID string) ([]Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Note
	for _, n := range s.notes {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pinned != out[j].Pinned {
			return out[i].Pinned
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemStore) Create(_ context.Context, in CreateNoteInput) (Note, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return Note{}, ErrInvalidInput
	}

	id, err := identity.NewULID(in.Now)
	if err != nil {
		return Note{}, err
	}

	n := Note{
		ID:        id,
		UserID:    in.UserID,
		Title:     in.Title,
		Content:   in.Content,
		CreatedAt: in.Now,
		UpdatedAt: in.Now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes[id] = &n
	return n, nil
}

func (s *MemStore) get(userID, noteID string) (*Note, bool) {
	n, ok := s.notes[noteID]
	if !ok || n.UserID != userID {
		return nil, false
	}
	return n, true
}

func (s *MemStore) Update(_ context.Context, userID, noteID, title, content string, now time.Time) (Note, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Note{}, ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.get(userID, noteID)
	if !ok {
		return Note{}, ErrNotFound
	}
	n.Title = title
	n.Content = content
	n.UpdatedAt = now
	return *n, nil
}

func (s *MemStore) Delete(_ context.Context, userID, noteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.get(userID, noteID); !ok {
		return ErrNotFound
	}
	delete(s.notes, noteID)
	return nil
}

func (s *MemStore) TogglePin(_ context.Context, userID, noteID string, now time.Time) (Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.get(userID, noteID)
	if !ok {
		return Note{}, ErrNotFound
	}
	n.Pinned = !n.Pinned
	n.UpdatedAt = now
	return *n, nil
}
