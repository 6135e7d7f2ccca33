package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"archiver/internal/classify"
	"archiver/internal/scan"
	"archiver/internal/triage"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [file...]",
		Short: "Run one triage cycle over the source directory or the given files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			cycle, _, closeFn, err := ctx.pipeline(cfg, logger)
			if err != nil {
				return err
			}
			defer closeFn()

			var entries []classify.Entry
			if len(args) > 0 {
				entries, err = scan.Paths(args)
			} else {
				entries, err = scan.Dir(cfg.Paths.SourceDir)
			}
			if err != nil {
				return err
			}

			report := cycle.Run(cmd.Context(), entries)
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	return cmd
}

func printReport(out io.Writer, report triage.Report) {
	s := report.Summary
	fmt.Fprintf(out, "Cycle %s: %d entries in %s\n", report.CycleID, report.Entries, report.Duration.Round(time.Millisecond))

	counts := [][]string{
		{"moved", strconv.Itoa(s.Moved)},
		{"extracted", strconv.Itoa(s.Extracted)},
		{"vanished", strconv.Itoa(s.Vanished)},
		{"still locked", strconv.Itoa(s.StillLocked)},
		{"unsupported", strconv.Itoa(s.Unsupported)},
		{"failed", strconv.Itoa(s.Failed)},
		{"skipped", strconv.Itoa(len(report.Skipped))},
	}
	fmt.Fprintln(out, renderTable([]string{"Outcome", "Files"}, counts, []columnAlignment{alignLeft, alignRight}))

	if len(s.Items) > 0 {
		rows := make([][]string, 0, len(s.Items))
		for _, item := range s.Items {
			rows = append(rows, []string{item.Record.Name(), item.Record.Type, string(item.Outcome), item.Dest})
		}
		fmt.Fprintln(out, renderTable([]string{"File", "Type", "Outcome", "Destination"}, rows, nil))
	}
	if len(report.Skipped) > 0 {
		rows := make([][]string, 0, len(report.Skipped))
		for _, skip := range report.Skipped {
			rows = append(rows, []string{filepath.Base(skip.Path), string(skip.Reason)})
		}
		fmt.Fprintln(out, renderTable([]string{"Skipped", "Reason"}, rows, nil))
	}
}
