package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"kaizen/internal/store"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show lifetime counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				s, err := st.LoadStats(cmd.Context())
				if err != nil {
					return err
				}
				rows := [][]string{
					{"Files moved", humanize.Comma(s.FilesMoved)},
					{"Minutes focused", humanize.Comma(s.MinutesFocused)},
					{"Sessions completed", humanize.Comma(s.SessionsCompleted)},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
}
