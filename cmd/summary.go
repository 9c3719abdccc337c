package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/ghtraffic/internal/cli"
	"github.com/theirongolddev/ghtraffic/internal/pipeline"
)

var (
	flagSummarySort  string
	flagSummaryQuery string
	flagSummaryAll   bool
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Per-repository totals for the last 14 days",
	RunE:  runSummary,
}

func init() {
	for _, c := range []*cobra.Command{summaryCmd, rootCmd} {
		c.Flags().StringVarP(&flagSummarySort, "sort", "s", "views", "Sort by views, visitors, clones, or name")
		c.Flags().StringVar(&flagSummaryQuery, "search", "", "Only repositories whose name contains this")
		c.Flags().BoolVarP(&flagSummaryAll, "all", "a", false, "Include repositories without visitors")
	}
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, _ []string) error {
	key, err := pipeline.ParseSortKey(flagSummarySort)
	if err != nil {
		return err
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

	res := newReader(s, cfg).Summaries(cmd.Context())

	fmt.Println()
	fmt.Println(cli.RenderTitle("GITHUB TRAFFIC"))
	fmt.Println()
	if res.Failed() {
		fmt.Print(cli.RenderReadError(res.Err))
	}

	data := pipeline.FilterRepos(res.Data, flagSummaryQuery, flagSummaryAll)
	pipeline.SortRepos(data, key)
	fmt.Print(cli.RenderSummaries(data, cfg.Collect.SummaryDays))
	return nil
}
