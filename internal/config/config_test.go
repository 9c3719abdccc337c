package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GITHUB_TOKEN", "DATABASE_URL", "TURSO_DATABASE_URL", "TURSO_AUTH_TOKEN"} {
		t.Setenv(k, "")
	}
}

func TestLoadFrom_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Collect.PacingMS != 100 {
		t.Errorf("PacingMS = %d, want 100", cfg.Collect.PacingMS)
	}
	if cfg.Collect.SummaryDays != 14 || cfg.Collect.HistoryDays != 90 {
		t.Errorf("windows = %d/%d, want 14/90", cfg.Collect.SummaryDays, cfg.Collect.HistoryDays)
	}
	if cfg.Daemon.Addr != "127.0.0.1:8788" {
		t.Errorf("Addr = %q, want 127.0.0.1:8788", cfg.Daemon.Addr)
	}
}

func TestSaveTo_RoundTripsAndRestrictsMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg := DefaultConfig()
	cfg.GitHub.Token = "ghp_test"
	cfg.Database.URL = "libsql://traffic.turso.io"
	cfg.Collect.PacingMS = 250

	if err := SaveTo(path, cfg); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if mode := info.Mode().Perm(); mode != 0o600 {
		t.Errorf("mode = %o, want 600", mode)
	}

	got, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if got.GitHub.Token != "ghp_test" || got.Database.URL != "libsql://traffic.turso.io" {
		t.Errorf("loaded = %+v", got)
	}
	if got.Collect.Pacing().Milliseconds() != 250 {
		t.Errorf("Pacing = %v, want 250ms", got.Collect.Pacing())
	}
}

func TestLoadFrom_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[github\ntoken = "), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("LoadFrom accepted invalid TOML")
	}
}

func TestGitHubToken_EnvWins(t *testing.T) {
	clearEnv(t)
	cfg := DefaultConfig()
	cfg.GitHub.Token = "from-file"

	if got := GitHubToken(cfg); got != "from-file" {
		t.Errorf("GitHubToken = %q, want from-file", got)
	}
	t.Setenv("GITHUB_TOKEN", "from-env")
	if got := GitHubToken(cfg); got != "from-env" {
		t.Errorf("GitHubToken = %q, want from-env", got)
	}
}

func TestDatabaseDSN(t *testing.T) {
	clearEnv(t)
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")

	cfg := DefaultConfig()
	if got := DatabaseDSN(cfg); got != filepath.Join("/tmp/xdg-data", "ghtraffic", "traffic.db") {
		t.Errorf("default DSN = %q", got)
	}

	cfg.Database.URL = "libsql://traffic.turso.io"
	cfg.Database.AuthToken = "tok/en"
	if got := DatabaseDSN(cfg); got != "libsql://traffic.turso.io?authToken=tok%2Fen" {
		t.Errorf("remote DSN = %q", got)
	}

	t.Setenv("TURSO_DATABASE_URL", "libsql://env.turso.io?tls=1")
	t.Setenv("TURSO_AUTH_TOKEN", "envtok")
	if got := DatabaseDSN(cfg); got != "libsql://env.turso.io?tls=1&authToken=envtok" {
		t.Errorf("turso env DSN = %q", got)
	}

	t.Setenv("DATABASE_URL", "/data/local.db")
	if got := DatabaseDSN(cfg); got != "/data/local.db" {
		t.Errorf("DATABASE_URL DSN = %q, want /data/local.db", got)
	}

	if got := DatabaseDSNFor("libsql://flag.turso.io", cfg); got != "libsql://flag.turso.io?authToken=envtok" {
		t.Errorf("explicit DSN = %q", got)
	}
}

func TestRedact(t *testing.T) {
	got := Redact("libsql://x.turso.io?authToken=secret&tls=1")
	if strings.Contains(got, "secret") {
		t.Errorf("Redact leaked token: %q", got)
	}
	if got != "libsql://x.turso.io?authToken=****&tls=1" {
		t.Errorf("Redact = %q", got)
	}
	if got := Redact("/tmp/a.db"); got != "/tmp/a.db" {
		t.Errorf("Redact(local) = %q", got)
	}
}

func TestLoadEnv_DoesNotOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("GITHUB_TOKEN", "already-set")
	// godotenv treats a set-but-empty variable as present
	_ = os.Unsetenv("TURSO_AUTH_TOKEN")

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("GITHUB_TOKEN=from-dotenv\nTURSO_AUTH_TOKEN=dotenv-token\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := LoadEnv(path); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if got := os.Getenv("GITHUB_TOKEN"); got != "already-set" {
		t.Errorf("GITHUB_TOKEN = %q, want already-set", got)
	}
	if got := os.Getenv("TURSO_AUTH_TOKEN"); got != "dotenv-token" {
		t.Errorf("TURSO_AUTH_TOKEN = %q, want dotenv-token", got)
	}

	if err := LoadEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("LoadEnv(missing) = %v, want nil", err)
	}
}
