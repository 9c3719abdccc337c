package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/ghtraffic/internal/config"
	"github.com/theirongolddev/ghtraffic/internal/logging"
	"github.com/theirongolddev/ghtraffic/internal/pipeline"
	"github.com/theirongolddev/ghtraffic/internal/tui"
	"github.com/theirongolddev/ghtraffic/internal/tui/theme"
)

var (
	flagTUIRefresh time.Duration
	flagTUILogFile string
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().DurationVar(&flagTUIRefresh, "refresh", 5*time.Minute, "Reload from the database this often (0 disables)")
	tuiCmd.Flags().StringVar(&flagTUILogFile, "log-file", filepath.Join(config.DataDir(), "tui.log"), "Where logs go while the dashboard owns the terminal")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	theme.SetActive(cfg.Appearance.Theme)

	// The alt screen owns stderr; send logs to a file instead.
	if err := os.MkdirAll(filepath.Dir(flagTUILogFile), 0o750); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	//nolint:gosec // log path is configured by the local user
	logf, err := os.OpenFile(flagTUILogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = logf.Close() }()
	if err := logging.Init(logging.Options{Level: flagLogLevel, JSON: true, Out: logf}); err != nil {
		return err
	}

	s, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	opts := tui.Options{
		Source:          newReader(s, cfg),
		RefreshInterval: flagTUIRefresh,
		NeedSetup:       !fileExists(configPath()),
		ConfigPath:      configPath(),
	}

	// Collecting from the dashboard needs a token; without one it is read-only.
	if client, err := newGitHubClient(cfg); err == nil {
		opts.RateLimit = client.RateLimit
		opts.Collect = func(ctx context.Context, progress func(done, total int)) (pipeline.BatchReport, error) {
			onRepo := func(done, total int, _ pipeline.RepoOutcome) { progress(done, total) }
			return newCollector(client, s, cfg, onRepo).Run(ctx)
		}
	} else {
		log.Info().Err(err).Msg("collect disabled in dashboard")
	}

	// Force TrueColor profile so all background styling produces ANSI codes
	lipgloss.SetColorProfile(termenv.TrueColor)

	p := tea.NewProgram(tui.NewApp(opts), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
