package authapi

import (
	"os"
	"strconv"
	"strings"
)

// Cookie names used for the session token pair. The client contract depends
// on these exact names.
const (
	AccessCookieName  = "accessToken"
	RefreshCookieName = "refreshToken"
)

// Config controls auth API behavior and security defaults.
type Config struct {
	// MaxBodyBytes caps JSON request bodies.
	MaxBodyBytes int64

	// MaxUploadBytes caps profile picture uploads.
	MaxUploadBytes int64

	// CookieSecure marks session cookies secure-transport-only. Only
	// disable for plain-HTTP local development.
	CookieSecure bool

	// CookiePath is the path scope of both session cookies.
	CookiePath string
}

// LoadConfigFromEnv loads API config from environment variables with safe defaults.
func LoadConfigFromEnv() Config {
	cfg := Config{
		MaxBodyBytes:   envInt64("NOTENEST_API_MAX_BODY_BYTES", 1<<20),    // 1 MiB
		MaxUploadBytes: envInt64("NOTENEST_API_MAX_UPLOAD_BYTES", 5<<20), // 5 MiB
		CookieSecure:   envBool("NOTENEST_API_COOKIE_SECURE", true),
		CookiePath:     "/",
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 5 << 20
	}

	return cfg
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
