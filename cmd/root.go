// Package cmd implements the ghtraffic CLI commands.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/ghtraffic/internal/config"
	"github.com/theirongolddev/ghtraffic/internal/github"
	"github.com/theirongolddev/ghtraffic/internal/logging"
	"github.com/theirongolddev/ghtraffic/internal/pipeline"
	"github.com/theirongolddev/ghtraffic/internal/store"
)

var (
	flagConfig   string
	flagDB       string
	flagEnvFile  string
	flagLogLevel string
	flagLogJSON  bool
	flagQuiet    bool
)

var rootCmd = &cobra.Command{
	Use:   "ghtraffic",
	Short: "GitHub repository traffic collector",
	Long: "Collect views, clones, and referrers for every repository you own and keep\n" +
		"them past GitHub's 14-day window.",
	SilenceUsage:      true,
	PersistentPreRunE: initRuntime,
	RunE:              runSummary,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default "+config.Path()+")")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "Database path or libsql:// URL (overrides DATABASE_URL and config)")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "Dotenv file to load if present")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&flagLogJSON, "log-json", false, "Log JSON lines instead of console output")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Only log errors")
}

func initRuntime(_ *cobra.Command, _ []string) error {
	if err := logging.Init(logging.Options{Level: flagLogLevel, JSON: flagLogJSON, Quiet: flagQuiet}); err != nil {
		return err
	}
	if err := config.LoadEnv(flagEnvFile); err != nil {
		log.Warn().Err(err).Str("file", flagEnvFile).Msg("could not load env file")
	}
	return nil
}

// configPath returns --config or the default config location.
func configPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	return config.Path()
}

// loadConfig loads the config file, falling back to defaults if it is missing.
func loadConfig() (config.Config, error) {
	cfg, err := config.LoadFrom(configPath())
	if err != nil {
		return cfg, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// openStore opens the traffic database and ensures the schema exists.
func openStore(ctx context.Context, cfg config.Config) (*store.Store, error) {
	dsn := config.DatabaseDSNFor(flagDB, cfg)
	s, err := store.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, config.Redact(dsn))
	}
	if err := s.InitSchema(ctx, nil); err != nil {
		_ = s.Close()
		return nil, err
	}
	log.Debug().Str("db", config.Redact(dsn)).Str("driver", s.Driver()).Msg("opened database")
	return s, nil
}

func newReader(s *store.Store, cfg config.Config) *pipeline.Reader {
	return pipeline.NewReader(s, pipeline.ReaderConfig{
		SummaryDays: cfg.Collect.SummaryDays,
		HistoryDays: cfg.Collect.HistoryDays,
		Logger:      logging.Component("reader"),
	})
}

// newGitHubClient builds an API client from GITHUB_TOKEN or the config.
func newGitHubClient(cfg config.Config) (*github.Client, error) {
	var opts []github.Option
	if cfg.GitHub.APIURL != "" {
		opts = append(opts, github.WithBaseURL(cfg.GitHub.APIURL))
	}
	client, err := github.NewClient(config.GitHubToken(cfg), opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: set GITHUB_TOKEN or run `ghtraffic setup`", err)
	}
	return client, nil
}

func newCollector(client *github.Client, s *store.Store, cfg config.Config, onRepo func(done, total int, o pipeline.RepoOutcome)) *pipeline.Collector {
	return pipeline.NewCollector(client, s, pipeline.CollectorConfig{
		Pacing: cfg.Collect.Pacing(),
		Logger: logging.Component("collector"),
		OnRepo: onRepo,
	})
}
