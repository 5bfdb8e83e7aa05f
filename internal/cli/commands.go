package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/BartekS5/cinesync/internal/checkpoint"
	"github.com/BartekS5/cinesync/internal/entity"
	"github.com/BartekS5/cinesync/pkg/database"
	"github.com/BartekS5/cinesync/pkg/utils"
)

func newCheckpointCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect or change the committed watermark",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the committed watermark",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return withStore(c, opts, func(a *app, key string) error {
				wm, found, err := checkpoint.GetWatermark(c.Context(), a.store, key)
				if err != nil {
					return err
				}
				if !found {
					fmt.Fprintf(c.OutOrStdout(), "%s: <none>\n", key)
					return nil
				}
				fmt.Fprintf(c.OutOrStdout(), "%s: %s\n", key, utils.FormatDateTime(wm))
				return nil
			})
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Forget the watermark so the next pass replicates everything",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return withStore(c, opts, func(a *app, key string) error {
				if err := a.store.Set(c.Context(), key, ""); err != nil {
					return err
				}
				fmt.Fprintf(c.OutOrStdout(), "%s: reset\n", key)
				return nil
			})
		},
	}

	set := &cobra.Command{
		Use:   "set <timestamp>",
		Short: "Set the watermark, e.g. 2024-01-31T00:00:00Z",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			ts, err := utils.ConvertDateTime(args[0])
			if err != nil {
				return err
			}
			return withStore(c, opts, func(a *app, key string) error {
				if err := checkpoint.SetWatermark(c.Context(), a.store, key, ts); err != nil {
					return err
				}
				fmt.Fprintf(c.OutOrStdout(), "%s: %s\n", key, utils.FormatDateTime(ts))
				return nil
			})
		},
	}

	cmd.AddCommand(show, reset, set)
	return cmd
}

func withStore(c *cobra.Command, opts *Options, fn func(a *app, key string) error) error {
	cfg, err := loadCheckpointConfig(opts)
	if err != nil {
		return err
	}
	if err := initLogging(cfg); err != nil {
		return err
	}
	a, err := openStore(c.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a, cfg.CheckpointKey())
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check entity registrations and their query templates",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			regs := entity.All()
			for _, dialect := range []string{database.DriverPostgres, database.DriverSQLServer} {
				if err := entity.Check(regs, dialect); err != nil {
					return fmt.Errorf("%s templates: %w", dialect, err)
				}
			}
			for _, r := range regs {
				props := make([]string, 0, len(r.Schema.Properties))
				for name := range r.Schema.Properties {
					props = append(props, name)
				}
				sort.Strings(props)
				fmt.Fprintf(c.OutOrStdout(), "%-8s ok  fields=%v indexes=%d\n", r.Name, props, len(r.Schema.Indexes))
			}
			return nil
		},
	}
}
