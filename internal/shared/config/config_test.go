package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetenv(t, "ENV", "COMPARE_CHUNK_SIZE", "COMPARE_CHUNK_DELAY", "EXTRACTION_TIMEOUT",
		"REQUEST_TIMEOUT", "JOB_MAX_RETRIES", "CALLBACK_ATTEMPTS", "PROMPT_REGISTRY_URL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Env != "dev" {
		t.Fatalf("expected dev, got %q", cfg.Env)
	}
	if cfg.CompareChunkSize != 120 || cfg.CompareDelay != 600*time.Millisecond {
		t.Fatalf("unexpected chunk settings: %d %s", cfg.CompareChunkSize, cfg.CompareDelay)
	}
	if cfg.ExtractionTimeout != 600*time.Second || cfg.RequestTimeout != 120*time.Second {
		t.Fatalf("unexpected timeouts: %s %s", cfg.ExtractionTimeout, cfg.RequestTimeout)
	}
	if cfg.JobMaxRetries != 5 || cfg.CallbackAttempts != 3 || cfg.JobRunningLease != 30*time.Minute {
		t.Fatalf("unexpected retry settings: %d %d %s", cfg.JobMaxRetries, cfg.CallbackAttempts, cfg.JobRunningLease)
	}
	if cfg.PromptRegistryURL != "http://prompt-registry:8000" {
		t.Fatalf("unexpected registry url %q", cfg.PromptRegistryURL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("DATABASE_URL", "postgres://localhost/db")
	t.Setenv("COMPARE_CHUNK_SIZE", "10")
	t.Setenv("COMPARE_CHUNK_DELAY", "0s")
	t.Setenv("PROMPT_REGISTRY_URL", "http://registry:9000/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.IsProduction() || cfg.CompareChunkSize != 10 || cfg.CompareDelay != 0 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.PromptRegistryURL != "http://registry:9000" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.PromptRegistryURL)
	}
}

func TestLoadProductionRequiresDatabase(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error without DATABASE_URL")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}

func TestLoadEnvFilesKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# comment\nDOTENV_NEW=\"fresh\"\nexport DOTENV_KEEP=file\nbroken line\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("DOTENV_KEEP", "env")
	unsetenv(t, "DOTENV_NEW")

	loadEnvFiles(path, filepath.Join(dir, "missing.env"))

	if got := os.Getenv("DOTENV_NEW"); got != "fresh" {
		t.Fatalf("expected fresh, got %q", got)
	}
	if got := os.Getenv("DOTENV_KEEP"); got != "env" {
		t.Fatalf("expected existing value to win, got %q", got)
	}
}

func TestNormalizeEnv(t *testing.T) {
	tests := map[string]string{
		"PROD":        "production",
		"staging":     "staging",
		"local":       "local",
		"development": "dev",
		"":            "dev",
		"weird":       "dev",
	}
	for raw, want := range tests {
		if got := normalizeEnv(raw); got != want {
			t.Fatalf("normalizeEnv(%q) = %q, want %q", raw, got, want)
		}
	}
}
