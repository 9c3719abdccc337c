package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/ghtraffic/internal/cli"
	"github.com/theirongolddev/ghtraffic/internal/pipeline"
)

var (
	flagHistoryRepo  string
	flagHistoryDays  int
	flagHistoryDaily bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Stored daily traffic, newest first",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVarP(&flagHistoryRepo, "repo", "r", "all", "Repository (owner/name) or all")
	historyCmd.Flags().IntVarP(&flagHistoryDays, "days", "n", 30, "Days of history to show (at most the configured history window)")
	historyCmd.Flags().BoolVar(&flagHistoryDaily, "daily", false, "Sum repositories per day")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if flagHistoryDays <= 0 {
		return fmt.Errorf("--days must be positive, got %d", flagHistoryDays)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	res := newReader(s, cfg).History(cmd.Context())

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("TRAFFIC HISTORY  %s  Last %dd", flagHistoryRepo, flagHistoryDays)))
	fmt.Println()
	if res.Failed() {
		fmt.Print(cli.RenderReadError(res.Err))
	}

	rows := pipeline.FilterHistory(res.Data, flagHistoryRepo, flagHistoryDays, time.Now())
	fmt.Print(cli.RenderHistory(rows, flagHistoryDaily))
	return nil
}
