package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/ghtraffic/internal/config"
	"github.com/theirongolddev/ghtraffic/internal/store"
)

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the traffic tables and indexes if they don't exist",
	RunE:  runInitDB,
}

func init() {
	rootCmd.AddCommand(initDBCmd)
}

func runInitDB(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dsn := config.DatabaseDSNFor(flagDB, cfg)
	s, err := store.Open(dsn)
	if err != nil {
		return fmt.Errorf("%w (%s)", err, config.Redact(dsn))
	}
	defer func() { _ = s.Close() }()

	fmt.Printf("  Database: %s (%s)\n", config.Redact(dsn), s.Driver())
	err = s.InitSchema(cmd.Context(), func(name string) {
		fmt.Printf("  ok  %s\n", name)
	})
	if err != nil {
		return err
	}

	daily, refs, err := s.RowCounts(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("  Schema ready: %d daily rows, %d referrer rows\n", daily, refs)
	return nil
}
