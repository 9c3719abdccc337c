package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds all ghtraffic configuration.
type Config struct {
	GitHub     GitHubConfig     `toml:"github"`
	Database   DatabaseConfig   `toml:"database"`
	Collect    CollectConfig    `toml:"collect"`
	Daemon     DaemonConfig     `toml:"daemon"`
	Appearance AppearanceConfig `toml:"appearance"`
}

// GitHubConfig holds GitHub API settings.
type GitHubConfig struct {
	Token  string `toml:"token,omitempty"`
	APIURL string `toml:"api_url,omitempty"`
}

// DatabaseConfig selects the traffic database. URL is a local path, a
// file: URI, or a libsql:// URL.
type DatabaseConfig struct {
	URL       string `toml:"url,omitempty"`
	AuthToken string `toml:"auth_token,omitempty"`
}

// CollectConfig tunes collection runs and read windows.
type CollectConfig struct {
	PacingMS    int `toml:"pacing_ms"`
	SummaryDays int `toml:"summary_days"`
	HistoryDays int `toml:"history_days"`
}

// DaemonConfig holds settings for the background collector and its API.
type DaemonConfig struct {
	Addr            string `toml:"addr"`
	IntervalMinutes int    `toml:"interval_minutes"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// Pacing returns the delay between repositories as a duration.
func (c CollectConfig) Pacing() time.Duration {
	return time.Duration(c.PacingMS) * time.Millisecond
}

// Interval returns the collection interval as a duration.
func (c DaemonConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Collect: CollectConfig{
			PacingMS:    100,
			SummaryDays: 14,
			HistoryDays: 90,
		},
		Daemon: DaemonConfig{
			Addr:            "127.0.0.1:8788",
			IntervalMinutes: 24 * 60,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
	}
}

// Dir returns the XDG-compliant config directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ghtraffic")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "ghtraffic")
}

// Path returns the full path to the config file.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// DataDir returns the XDG-compliant data directory holding the default database.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "ghtraffic")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "ghtraffic")
}

// DefaultDatabasePath returns the local SQLite file used when no URL is set.
func DefaultDatabasePath() string {
	return filepath.Join(DataDir(), "traffic.db")
}

// LoadEnv reads KEY=value pairs from the given .env files (or ./.env) into
// the process environment. Variables already set are not overwritten and a
// missing file is not an error.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("loading env: %w", err)
	}
	return nil
}

// Load reads the config file at Path(), returning defaults if it doesn't exist.
func Load() (Config, error) {
	return LoadFrom(Path())
}

// LoadFrom reads the config file at path, returning defaults if it doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path is the user's own config location
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to Path().
func Save(cfg Config) error {
	return SaveTo(Path(), cfg)
}

// SaveTo writes the config to path. The file holds secrets, so it is
// created owner-readable only.
func SaveTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // see LoadFrom
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(Path())
	return err == nil
}

// GitHubToken returns the token from env var or config, in that order.
func GitHubToken(cfg Config) string {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token
	}
	return cfg.GitHub.Token
}

// DatabaseDSN resolves the database to open. DATABASE_URL wins, then
// TURSO_DATABASE_URL, then the config file, then the default local file.
// For remote libSQL URLs the auth token (TURSO_AUTH_TOKEN or config) is
// appended as the authToken query parameter unless one is already present.
func DatabaseDSN(cfg Config) string {
	return DatabaseDSNFor("", cfg)
}

// DatabaseDSNFor resolves like DatabaseDSN, except that a non-empty explicit
// URL (from a command-line flag) wins over the environment.
func DatabaseDSNFor(explicit string, cfg Config) string {
	dsn := firstNonEmpty(
		explicit,
		os.Getenv("DATABASE_URL"),
		os.Getenv("TURSO_DATABASE_URL"),
		cfg.Database.URL,
	)
	if dsn == "" {
		return DefaultDatabasePath()
	}
	if !isRemote(dsn) {
		return dsn
	}

	token := firstNonEmpty(os.Getenv("TURSO_AUTH_TOKEN"), cfg.Database.AuthToken)
	if token == "" || strings.Contains(dsn, "authToken=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "authToken=" + url.QueryEscape(token)
}

// Redact hides the authToken of a DSN for display.
func Redact(dsn string) string {
	i := strings.Index(dsn, "authToken=")
	if i < 0 {
		return dsn
	}
	end := strings.IndexByte(dsn[i:], '&')
	if end < 0 {
		return dsn[:i] + "authToken=****"
	}
	return dsn[:i] + "authToken=****" + dsn[i+end:]
}

func isRemote(dsn string) bool {
	for _, prefix := range []string{"libsql://", "wss://", "ws://", "https://", "http://"} {
		if strings.HasPrefix(dsn, prefix) {
			return true
		}
	}
	return false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
