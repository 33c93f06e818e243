// Package assets abstracts the external host that stores profile pictures.
package assets

import (
	"context"
	"io"
)

// Stored identifies an uploaded asset: its public URL and the host-side id
// needed to delete it later.
type Stored struct {
	URL string
	ID  string
}

// Host uploads and deletes binary assets on an external object store.
type Host interface {
	Upload(ctx context.Context, r io.Reader, contentType string) (Stored, error)
	Delete(ctx context.Context, id string) error
}

// NoopHost is used when no object store is configured. Uploads are refused
// rather than silently dropped.
type NoopHost struct{}

func (NoopHost) Upload(context.Context, io.Reader, string) (Stored, error) {
	return Stored{}, ErrNotConfigured
}

func (NoopHost) Delete(context.Context, string) error { return nil }
