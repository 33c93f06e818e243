package assets

import "errors"

var (
	// ErrNotConfigured is returned when no asset host is configured.
	ErrNotConfigured = errors.New("asset host not configured")

	// ErrUnsupportedType is returned for content types outside the allowed set.
	ErrUnsupportedType = errors.New("unsupported content type")
)
