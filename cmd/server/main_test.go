package main

import (
	"testing"
	"time"

	"video-membership/internal/progress"
)

func TestConfigureResumeCacheDefaultsToNoop(t *testing.T) {
	cache, err := configureResumeCache(progress.RedisCacheConfig{})
	if err != nil {
		t.Fatalf("configureResumeCache returned error: %v", err)
	}
	if _, ok := cache.(progress.NoopCache); !ok {
		t.Fatalf("expected noop cache when no redis addr configured, got %T", cache)
	}
}

func TestResolveStorageDriverDefaultsToPostgresWithDSN(t *testing.T) {
	driver, err := resolveStorageDriver("", "", "postgres://example")
	if err != nil {
		t.Fatalf("resolveStorageDriver returned error: %v", err)
	}
	if driver != "postgres" {
		t.Fatalf("expected postgres driver, got %q", driver)
	}
}

func TestResolveStorageDriverFallsBackToJSON(t *testing.T) {
	driver, err := resolveStorageDriver("", "", "")
	if err != nil {
		t.Fatalf("resolveStorageDriver returned error: %v", err)
	}
	if driver != "json" {
		t.Fatalf("expected json driver, got %q", driver)
	}
}

func TestResolveStorageDriverFlagWins(t *testing.T) {
	driver, err := resolveStorageDriver("JSON", "postgres", "postgres://example")
	if err != nil {
		t.Fatalf("resolveStorageDriver returned error: %v", err)
	}
	if driver != "json" {
		t.Fatalf("expected flag value to win, got %q", driver)
	}
}

func TestValidateProductionDatastoreRejectsNonPostgres(t *testing.T) {
	if err := validateProductionDatastore("json", "postgres://example"); err == nil {
		t.Fatal("expected error when production mode uses non-postgres driver")
	}
}

func TestValidateProductionDatastoreRequiresDSN(t *testing.T) {
	if err := validateProductionDatastore("postgres", " "); err == nil {
		t.Fatal("expected error when production postgres has no DSN")
	}
	if err := validateProductionDatastore("postgres", "postgres://example"); err != nil {
		t.Fatalf("expected valid production config, got %v", err)
	}
}

func TestModeValueDefaultsToDevelopment(t *testing.T) {
	if mode := modeValue("", ""); mode != "development" {
		t.Fatalf("expected development default, got %q", mode)
	}
	if mode := modeValue(" Production ", ""); mode != "production" {
		t.Fatalf("expected trimmed lowercase mode, got %q", mode)
	}
	if mode := modeValue("", "PRODUCTION"); mode != "production" {
		t.Fatalf("expected env mode, got %q", mode)
	}
}

func TestResolveListenAddr(t *testing.T) {
	if addr := resolveListenAddr("", "development", ""); addr != ":8080" {
		t.Fatalf("expected development default addr, got %q", addr)
	}
	if addr := resolveListenAddr("", "production", ""); addr != ":80" {
		t.Fatalf("expected production default addr, got %q", addr)
	}
	if addr := resolveListenAddr(":9000", "production", ":7000"); addr != ":9000" {
		t.Fatalf("expected flag addr to win, got %q", addr)
	}
	if addr := resolveListenAddr("", "production", ":7000"); addr != ":7000" {
		t.Fatalf("expected env addr, got %q", addr)
	}
}

func TestSplitAndTrim(t *testing.T) {
	got := splitAndTrim(" https://a.example , ,https://b.example ")
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Fatalf("unexpected split result: %#v", got)
	}
	if splitAndTrim("  ") != nil {
		t.Fatal("expected nil for blank input")
	}
}

func TestResolveDurationEnvFallback(t *testing.T) {
	t.Setenv("TEST_RESOLVE_DURATION", "90s")
	if d := resolveDuration(0, "TEST_RESOLVE_DURATION", time.Minute); d != 90*time.Second {
		t.Fatalf("expected env duration, got %v", d)
	}
	if d := resolveDuration(time.Hour, "TEST_RESOLVE_DURATION", time.Minute); d != time.Hour {
		t.Fatalf("expected flag duration to win, got %v", d)
	}
	if d := resolveDuration(0, "TEST_RESOLVE_DURATION_UNSET", time.Minute); d != time.Minute {
		t.Fatalf("expected fallback duration, got %v", d)
	}
}

func TestResolvePostgresDSNPrefersFlag(t *testing.T) {
	t.Setenv("VIDEO_MEMBERSHIP_POSTGRES_DSN", "postgres://env")
	t.Setenv("DATABASE_URL", "postgres://database-url")
	if dsn := resolvePostgresDSN("postgres://flag"); dsn != "postgres://flag" {
		t.Fatalf("expected flag DSN, got %q", dsn)
	}
	if dsn := resolvePostgresDSN(""); dsn != "postgres://env" {
		t.Fatalf("expected env DSN, got %q", dsn)
	}
}
