package app

import (
	"errors"
	"fmt"
	"os"

	"notenest/cmd/internal/auth/session"
)

// ValidateSecurityConfig enforces the signing-key policy at startup.
// Fail-fast keeps a misconfigured deployment from serving tokens signed
// with weak or shared secrets.
func ValidateSecurityConfig() error {
	// Bytes, not runes: the secrets are fed to HMAC as raw bytes.
	access := os.Getenv("NOTENEST_ACCESS_TOKEN_SECRET")
	refresh := os.Getenv("NOTENEST_REFRESH_TOKEN_SECRET")

	switch {
	case access == "":
		return errors.New("security policy: NOTENEST_ACCESS_TOKEN_SECRET is missing")
	case refresh == "":
		return errors.New("security policy: NOTENEST_REFRESH_TOKEN_SECRET is missing")
	case len(access) < 32:
		return errors.New("security policy: NOTENEST_ACCESS_TOKEN_SECRET is too short (min 32 bytes)")
	case len(refresh) < 32:
		return errors.New("security policy: NOTENEST_REFRESH_TOKEN_SECRET is too short (min 32 bytes)")
	case access == refresh:
		return errors.New("security policy: access and refresh secrets must differ")
	}

	if _, err := session.LoadConfigFromEnv(); err != nil {
		return fmt.Errorf("security policy: %w", err)
	}
	return nil
}
