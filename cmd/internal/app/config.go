package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	// DatabaseURL empty means in-memory stores (dev mode).
	DatabaseURL    string
	DBMaxConns     int32
	DBMinConns     int32
	MigrateOnStart bool

	// If true, /readyz returns 503 unless the database is configured and reachable.
	ReadinessRequireDB bool

	// StaticDir, when set, is served at / for the web client bundle.
	StaticDir string
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("NOTENEST_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("NOTENEST_LOG_LEVEL", "info"),
		LogFormat: EnvString("NOTENEST_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("NOTENEST_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("NOTENEST_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("NOTENEST_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("NOTENEST_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("NOTENEST_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL:    EnvString("NOTENEST_DATABASE_URL", ""),
		DBMaxConns:     EnvInt32("NOTENEST_DB_MAX_CONNS", 10),
		DBMinConns:     EnvInt32("NOTENEST_DB_MIN_CONNS", 0),
		MigrateOnStart: EnvBool("NOTENEST_DB_MIGRATE", true),

		ReadinessRequireDB: EnvBool("NOTENEST_READINESS_REQUIRE_DB", false),

		StaticDir: EnvString("NOTENEST_STATIC_DIR", ""),
	}
}
