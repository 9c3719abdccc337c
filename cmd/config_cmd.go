package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/ghtraffic/internal/config"
	"github.com/theirongolddev/ghtraffic/internal/store"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", configPath())
	if fileExists(configPath()) {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [github]")
	switch token := config.GitHubToken(cfg); {
	case token == "":
		fmt.Println("    Token:   not configured")
	case os.Getenv("GITHUB_TOKEN") != "":
		fmt.Printf("    Token:   %s (GITHUB_TOKEN)\n", maskToken(token))
	default:
		fmt.Printf("    Token:   %s\n", maskToken(token))
	}
	if cfg.GitHub.APIURL != "" {
		fmt.Printf("    API URL: %s\n", cfg.GitHub.APIURL)
	}
	fmt.Println()

	dsn := config.DatabaseDSNFor(flagDB, cfg)
	fmt.Println("  [database]")
	fmt.Printf("    URL:    %s\n", config.Redact(dsn))
	fmt.Printf("    Driver: %s\n", store.DriverFor(dsn))
	fmt.Println()

	fmt.Println("  [collect]")
	fmt.Printf("    Pacing:       %s\n", cfg.Collect.Pacing())
	fmt.Printf("    Summary days: %d\n", cfg.Collect.SummaryDays)
	fmt.Printf("    History days: %d\n", cfg.Collect.HistoryDays)
	fmt.Println()

	fmt.Println("  [daemon]")
	fmt.Printf("    Address:  %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Interval: %s\n", cfg.Daemon.Interval())
	fmt.Println()

	fmt.Println("  [appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  Run `ghtraffic setup` to reconfigure.")
	return nil
}
