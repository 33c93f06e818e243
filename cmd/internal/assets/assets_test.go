package assets

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestStorageKey_DateBucketed(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 7, 10, 0, 0, 0, time.UTC)
	key := storageKey(now)

	re := regexp.MustCompile(`^profiles/2026/03/07/[0-9a-f-]{36}$`)
	if !re.MatchString(key) {
		t.Fatalf("unexpected key format: %q", key)
	}
}

func TestAllowedContentType(t *testing.T) {
	t.Parallel()

	for _, ct := range []string{"image/jpeg", "image/jpg", "image/png", " IMAGE/PNG "} {
		if !AllowedContentType(ct) {
			t.Fatalf("expected %q to be allowed", ct)
		}
	}
	for _, ct := range []string{"image/gif", "application/pdf", "text/html", ""} {
		if AllowedContentType(ct) {
			t.Fatalf("expected %q to be rejected", ct)
		}
	}
}

func TestNoopHost_RefusesUploads(t *testing.T) {
	t.Parallel()

	_, err := NoopHost{}.Upload(context.Background(), strings.NewReader("x"), "image/png")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if err := (NoopHost{}).Delete(context.Background(), "any"); err != nil {
		t.Fatalf("noop delete: %v", err)
	}
}
