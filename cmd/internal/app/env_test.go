package app

import (
	"testing"
	"time"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("NOTENEST_TEST_STR", "  value  ")
	t.Setenv("NOTENEST_TEST_BOOL", "true")
	t.Setenv("NOTENEST_TEST_INT", "42")
	t.Setenv("NOTENEST_TEST_DUR", "90s")

	if got := EnvString("NOTENEST_TEST_STR", "def"); got != "value" {
		t.Fatalf("EnvString trimmed=%q", got)
	}
	if got := EnvString("NOTENEST_TEST_UNSET", "def"); got != "def" {
		t.Fatalf("EnvString default=%q", got)
	}
	if !EnvBool("NOTENEST_TEST_BOOL", false) {
		t.Fatal("EnvBool true")
	}
	if got := EnvInt("NOTENEST_TEST_INT", 1); got != 42 {
		t.Fatalf("EnvInt=%d", got)
	}
	if got := EnvDuration("NOTENEST_TEST_DUR", time.Second); got != 90*time.Second {
		t.Fatalf("EnvDuration=%v", got)
	}
}

func TestEnvHelpers_RejectInvalid(t *testing.T) {
	t.Setenv("NOTENEST_TEST_BOOL", "not-a-bool")
	t.Setenv("NOTENEST_TEST_INT", "-5")
	t.Setenv("NOTENEST_TEST_INT32", "-5")
	t.Setenv("NOTENEST_TEST_DUR", "0s")

	if EnvBool("NOTENEST_TEST_BOOL", false) {
		t.Fatal("EnvBool should fall back on parse failure")
	}
	if got := EnvInt("NOTENEST_TEST_INT", 7); got != 7 {
		t.Fatalf("EnvInt negative should fall back, got %d", got)
	}
	if got := EnvInt32("NOTENEST_TEST_INT32", 7); got != 7 {
		t.Fatalf("EnvInt32 negative should fall back, got %d", got)
	}
	if got := EnvDuration("NOTENEST_TEST_DUR", time.Minute); got != time.Minute {
		t.Fatalf("EnvDuration non-positive should fall back, got %v", got)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.HTTPAddr != "0.0.0.0:8080" {
		t.Fatalf("HTTPAddr=%q", cfg.HTTPAddr)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Fatalf("log defaults: level=%q format=%q", cfg.LogLevel, cfg.LogFormat)
	}
	if !cfg.MigrateOnStart {
		t.Fatal("MigrateOnStart should default to true")
	}
	if cfg.ReadinessRequireDB {
		t.Fatal("ReadinessRequireDB should default to false")
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("NOTENEST_HTTP_ADDR", "127.0.0.1:9999")
	t.Setenv("NOTENEST_LOG_FORMAT", "pretty")
	t.Setenv("NOTENEST_DB_MIGRATE", "false")
	t.Setenv("NOTENEST_HTTP_READ_TIMEOUT", "30s")

	cfg := LoadConfig()
	if cfg.HTTPAddr != "127.0.0.1:9999" {
		t.Fatalf("HTTPAddr=%q", cfg.HTTPAddr)
	}
	if cfg.LogFormat != "pretty" {
		t.Fatalf("LogFormat=%q", cfg.LogFormat)
	}
	if cfg.MigrateOnStart {
		t.Fatal("MigrateOnStart override failed")
	}
	if cfg.ReadTimeout != 30*time.Second {
		t.Fatalf("ReadTimeout=%v", cfg.ReadTimeout)
	}
}
