package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"kaizen/internal/store"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var sessionsOnly, movesOnly bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent moves and focus sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}
			return ctx.withStore(func(st *store.Store) error {
				out := cmd.OutOrStdout()
				if !sessionsOnly {
					moves, err := st.RecentMoves(cmd.Context(), limit)
					if err != nil {
						return err
					}
					printMoves(out, moves)
				}
				if !movesOnly {
					sessions, err := st.RecentSessions(cmd.Context(), limit)
					if err != nil {
						return err
					}
					if !sessionsOnly {
						fmt.Fprintln(out)
					}
					printSessions(out, sessions)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum rows per table")
	cmd.Flags().BoolVar(&movesOnly, "moves", false, "Only show moved files")
	cmd.Flags().BoolVar(&sessionsOnly, "sessions", false, "Only show focus sessions")
	cmd.MarkFlagsMutuallyExclusive("moves", "sessions")
	return cmd
}

func printMoves(w io.Writer, moves []store.MoveRecord) {
	if len(moves) == 0 {
		fmt.Fprintln(w, "No files moved yet.")
		return
	}
	rows := make([][]string, 0, len(moves))
	for _, m := range moves {
		name := filepath.Base(m.DestPath)
		if m.Renamed {
			name += " (renamed)"
		}
		rows = append(rows, []string{
			humanize.Time(m.MovedAt),
			m.Category,
			name,
			filepath.Dir(m.SourcePath),
		})
	}
	fmt.Fprintln(w, renderTable([]string{"When", "Category", "File", "From"}, rows, nil))
}

func printSessions(w io.Writer, sessions []store.SessionRecord) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No focus sessions yet.")
		return
	}
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			humanize.Time(s.StartedAt),
			strconv.Itoa(s.WorkMinutes),
			yesNo(s.Completed),
		})
	}
	fmt.Fprintln(w, renderTable([]string{"Started", "Minutes", "Completed"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft}))
}
