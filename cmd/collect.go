package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/ghtraffic/internal/cli"
	"github.com/theirongolddev/ghtraffic/internal/pipeline"
)

var flagCollectStrict bool

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Fetch traffic for every owned repository and store it",
	Long: "Runs one collection batch: lists the repositories you own (forks excluded),\n" +
		"fetches views, clones, and referrers for each, and upserts them into the\n" +
		"database. A failing repository is reported and skipped.",
	RunE: runCollect,
}

func init() {
	collectCmd.Flags().BoolVar(&flagCollectStrict, "strict", false, "Exit non-zero if any repository failed")
	rootCmd.AddCommand(collectCmd)
}

func runCollect(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := newGitHubClient(cfg)
	if err != nil {
		return err
	}

	s, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	progressFn := func(done, total int, _ pipeline.RepoOutcome) {
		if flagQuiet || flagLogJSON {
			return
		}
		fmt.Fprintf(os.Stderr, "\r  Collecting [%d/%d]", done, total)
		if done == total {
			fmt.Fprintln(os.Stderr)
		}
	}

	report, err := newCollector(client, s, cfg, progressFn).Run(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Print(cli.RenderBatchReport(report))
	if rs := client.RateLimit(); rs.Known() && !flagQuiet {
		fmt.Printf("  API quota: %d/%d remaining\n", rs.Remaining, rs.Limit)
	}

	if flagCollectStrict && len(report.Failed()) > 0 {
		return errors.New("some repositories failed")
	}
	return nil
}
