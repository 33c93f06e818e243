package session

import (
	"crypto/subtle"
	"os"
	"time"
)

// Config defines all runtime configuration for the session subsystem.
//
// It controls token TTLs, clock skew tolerance, and the two HMAC signing
// secrets. The struct is environment-driven and immutable after load so
// deployments can tune security parameters without code changes.
type Config struct {
	// Issuer is the value set in the "iss" claim of both token classes.
	Issuer string

	// AccessTokenTTL defines the lifetime of access tokens (minutes-scale).
	AccessTokenTTL time.Duration

	// RefreshTokenTTL defines the lifetime of refresh tokens (days-scale).
	// It also drives the refresh cookie's expiry.
	RefreshTokenTTL time.Duration

	// ClockSkew defines the allowed time skew during token validation.
	ClockSkew time.Duration

	// AccessSecret signs access tokens. Minimum 32 bytes.
	AccessSecret []byte

	// RefreshSecret signs refresh tokens. Minimum 32 bytes and must differ
	// from AccessSecret; the key separation is what keeps an access-token
	// compromise from minting refresh tokens.
	RefreshSecret []byte
}

const minSecretBytes = 32

// DefaultConfig returns defaults suitable for development. The signing
// secrets have no default and must always be provided.
func DefaultConfig() Config {
	return Config{
		Issuer:          "notenest",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		ClockSkew:       30 * time.Second,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Required:
//   - NOTENEST_ACCESS_TOKEN_SECRET
//   - NOTENEST_REFRESH_TOKEN_SECRET
//
// Optional (durations must be valid Go duration strings):
//   - NOTENEST_AUTH_ISSUER
//   - NOTENEST_AUTH_ACCESS_TTL
//   - NOTENEST_AUTH_REFRESH_TTL
//   - NOTENEST_AUTH_CLOCK_SKEW
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("NOTENEST_AUTH_ISSUER"); v != "" {
		cfg.Issuer = v
	}

	if v := os.Getenv("NOTENEST_AUTH_ACCESS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.AccessTokenTTL = d
	}

	if v := os.Getenv("NOTENEST_AUTH_REFRESH_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.RefreshTokenTTL = d
	}

	if v := os.Getenv("NOTENEST_AUTH_CLOCK_SKEW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, ErrConfig
		}
		cfg.ClockSkew = d
	}

	cfg.AccessSecret = []byte(os.Getenv("NOTENEST_ACCESS_TOKEN_SECRET"))
	cfg.RefreshSecret = []byte(os.Getenv("NOTENEST_REFRESH_TOKEN_SECRET"))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces the structural invariants of the configuration:
// both secrets present and long enough, secrets distinct per token class,
// and the refresh TTL strictly longer than the access TTL.
func (c Config) Validate() error {
	if c.Issuer == "" {
		return ErrConfig
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 || c.ClockSkew < 0 {
		return ErrConfig
	}
	if c.RefreshTokenTTL <= c.AccessTokenTTL {
		return ErrConfig
	}
	if len(c.AccessSecret) < minSecretBytes || len(c.RefreshSecret) < minSecretBytes {
		return ErrConfig
	}
	if len(c.AccessSecret) == len(c.RefreshSecret) &&
		subtle.ConstantTimeCompare(c.AccessSecret, c.RefreshSecret) == 1 {
		return ErrConfig
	}
	return nil
}
