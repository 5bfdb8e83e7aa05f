package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BartekS5/cinesync/pkg/logger"
)

func newRunCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run synchronization passes until interrupted",
		RunE: func(c *cobra.Command, args []string) error {
			return runSync(c, opts, false)
		},
	}
}

func newOnceCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single synchronization pass and exit",
		RunE: func(c *cobra.Command, args []string) error {
			return runSync(c, opts, true)
		},
	}
}

func runSync(c *cobra.Command, opts *Options, once bool) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return err
	}
	defer logger.Close()

	ctx, stop := signalContext(c.Context())
	defer stop()

	app, err := setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if !once {
		return app.pipeline.Run(ctx)
	}

	if err := app.pipeline.Prepare(ctx); err != nil {
		return fmt.Errorf("prepare collections: %w", err)
	}
	stats, err := app.pipeline.RunPass(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.OutOrStdout(), "Pass finished: %d documents published, committed=%v\n", stats.Published(), stats.Committed)
	return nil
}
