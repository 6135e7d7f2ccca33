package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"archiver/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent triage outcomes from the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !cfg.Journal.Enabled {
				fmt.Fprintln(out, "Journal is disabled")
				return nil
			}
			if _, err := os.Stat(cfg.Journal.Path); os.IsNotExist(err) {
				fmt.Fprintln(out, "No history recorded yet")
				return nil
			}
			j, err := journal.Open(cfg)
			if err != nil {
				return err
			}
			defer j.Close()

			entries, err := j.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No history recorded yet")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"When", "File", "Type", "Outcome", "Detail"},
				historyRows(entries),
				nil,
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	return cmd
}

func historyRows(entries []journal.Entry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		detail := e.Dest
		switch {
		case e.Error != "":
			detail = e.Error
		case e.Reason != "":
			detail = e.Reason
		}
		rows = append(rows, []string{
			e.Recorded.Local().Format("2006-01-02 15:04:05"),
			filepath.Base(e.Path),
			e.Type,
			e.Outcome,
			detail,
		})
	}
	return rows
}
