package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/ghtraffic/internal/cli"
	"github.com/theirongolddev/ghtraffic/internal/pipeline"
)

var flagReferrersRepo string

var referrersCmd = &cobra.Command{
	Use:   "referrers",
	Short: "Top referrers per repository over the last 14 days",
	RunE:  runReferrers,
}

func init() {
	referrersCmd.Flags().StringVar(&flagReferrersRepo, "search", "", "Only repositories whose name contains this")
	rootCmd.AddCommand(referrersCmd)
}

func runReferrers(cmd *cobra.Command, _ []string) error {
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
	fmt.Println(cli.RenderTitle("REFERRERS"))
	fmt.Println()
	if res.Failed() {
		fmt.Print(cli.RenderReadError(res.Err))
	}

	fmt.Print(cli.RenderReferrers(pipeline.FilterRepos(res.Data, flagReferrersRepo, true)))
	return nil
}
