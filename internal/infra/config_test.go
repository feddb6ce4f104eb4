package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("PORT", "")
	t.Setenv("LAMMPS_BIN", "")
	t.Setenv("ENGINE_TIMEOUT_SECONDS", "")
	t.Setenv("RETENTION_HOURS", "")
	t.Setenv("WORKER_CONCURRENCY", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.EngineBin != "lmp" {
		t.Fatalf("EngineBin = %q, want lmp", cfg.EngineBin)
	}
	if cfg.EngineTimeout != 600*time.Second {
		t.Fatalf("EngineTimeout = %v, want 10m", cfg.EngineTimeout)
	}
	if cfg.RetentionMaxAge != 24*time.Hour {
		t.Fatalf("RetentionMaxAge = %v, want 24h", cfg.RetentionMaxAge)
	}
	if cfg.Concurrency != 2 {
		t.Fatalf("Concurrency = %d, want 2", cfg.Concurrency)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("AllowedOrigins mismatch: %#v", cfg.AllowedOrigins)
	}
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("LoadConfig accepted empty DATABASE_URL")
	}
}

func TestLoadConfigHonorsOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("LAMMPS_BIN", "/opt/lammps/bin/lmp_serial")
	t.Setenv("ENGINE_TIMEOUT_SECONDS", "90")
	t.Setenv("RETENTION_HOURS", "6")
	t.Setenv("WORKER_CONCURRENCY", "0")
	t.Setenv("ALLOWED_ORIGINS", "https://md.example.com, https://lab.example.com ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.EngineBin != "/opt/lammps/bin/lmp_serial" {
		t.Fatalf("EngineBin = %q", cfg.EngineBin)
	}
	if cfg.EngineTimeout != 90*time.Second {
		t.Fatalf("EngineTimeout = %v, want 90s", cfg.EngineTimeout)
	}
	if cfg.RetentionMaxAge != 6*time.Hour {
		t.Fatalf("RetentionMaxAge = %v, want 6h", cfg.RetentionMaxAge)
	}
	// Zero concurrency is clamped to a single worker slot.
	if cfg.Concurrency != 1 {
		t.Fatalf("Concurrency = %d, want 1", cfg.Concurrency)
	}
	want := []string{"https://md.example.com", "https://lab.example.com"}
	if len(cfg.AllowedOrigins) != len(want) {
		t.Fatalf("AllowedOrigins = %#v, want %#v", cfg.AllowedOrigins, want)
	}
	for i := range want {
		if cfg.AllowedOrigins[i] != want[i] {
			t.Fatalf("AllowedOrigins[%d] = %q, want %q", i, cfg.AllowedOrigins[i], want[i])
		}
	}
}
