package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"archiver/internal/config"
	"archiver/internal/journal"
	"archiver/internal/preflight"
	"archiver/internal/registry"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show watcher state, routing, path checks, and journal totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			reg, err := registry.FromConfig(cfg)
			if err != nil {
				return err
			}

			sections := []statusSection{
				{title: "Archiver", lines: []statusLine{
					watcherLine(preflight.CheckWatcher(cfg.LockPath())),
					{label: "Config", kind: statusInfo, message: ctx.configPath},
				}},
				{title: "Routing", lines: routingLines(reg, cfg.Archive.DeleteAfterExtract, time.Now())},
				{title: "Paths", lines: preflightLines(preflight.RunAll(cfg))},
				{title: "Journal", lines: statusJournal(cmd.Context(), cfg)},
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, renderStatus(sections, shouldColorize(out)))
			return nil
		},
	}
}

func statusJournal(ctx context.Context, cfg *config.Config) []statusLine {
	if !cfg.Journal.Enabled {
		return []statusLine{{label: "Journal", kind: statusInfo, message: "disabled"}}
	}
	if _, err := os.Stat(cfg.Journal.Path); err != nil {
		return journalLines(nil)
	}
	j, err := journal.OpenPath(cfg.Journal.Path)
	if err != nil {
		return []statusLine{{label: "Journal", kind: statusError, message: err.Error()}}
	}
	defer j.Close()

	stats, err := j.Stats(ctx)
	if err != nil {
		return []statusLine{{label: "Journal", kind: statusError, message: err.Error()}}
	}
	return journalLines(stats)
}
