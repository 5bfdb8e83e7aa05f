package cli

import (
	"github.com/spf13/cobra"

	"github.com/BartekS5/cinesync/internal/config"
)

// Options are the flags shared by every command.
type Options struct {
	ConfigPath string
	BatchSize  int
	DryRun     bool
}

func NewRootCmd() *cobra.Command {
	opts := &Options{}

	rootCmd := &cobra.Command{
		Use:   "cinesync",
		Short: "cinesync - incremental SQL to MongoDB synchronization",
		Long: `cinesync keeps MongoDB collections of film works, persons and genres in step
with a PostgreSQL or SQL Server database. Each pass picks up the rows changed since
the last committed watermark and upserts their denormalized documents.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", config.DefaultPath, "Path to the YAML settings file")
	rootCmd.PersistentFlags().IntVarP(&opts.BatchSize, "batch-size", "b", 0, "Rows per batch (overrides the settings file)")
	rootCmd.PersistentFlags().BoolVar(&opts.DryRun, "dry-run", false, "Extract and transform without writing documents or the watermark")

	rootCmd.AddCommand(
		newRunCmd(opts),
		newOnceCmd(opts),
		newCheckpointCmd(opts),
		newValidateCmd(),
	)
	return rootCmd
}
