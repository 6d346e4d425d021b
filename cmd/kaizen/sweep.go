package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"kaizen/internal/config"
	"kaizen/internal/orchestrator"
	"kaizen/internal/output"
	"kaizen/internal/store"
)

func newSweepCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "sweep [folder...]",
		Short: "Organize files already sitting in the watch folders",
		Long: "Sweep classifies every file currently in the given folders (or the configured\n" +
			"watch folders) and moves it into its category folder. Use --dry-run to list\n" +
			"what would move without touching anything.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var roots []string
			if len(args) > 0 {
				roots = args
			}
			logger := ctx.consoleLogger(cmd.ErrOrStderr(), cfg)

			if dryRun {
				orch, err := orchestrator.New(config.NewHolder(cfg), "", orchestrator.Deps{Logger: logger})
				if err != nil {
					return err
				}
				defer orch.Close()
				printPreview(cmd.OutOrStdout(), orch.Preview(roots))
				return nil
			}

			release, err := acquireLock(cfg.DataDir)
			if err != nil {
				if errors.Is(err, errAlreadyRunning) {
					return fmt.Errorf("%w; stop it before sweeping", err)
				}
				return err
			}
			defer release()

			st, err := store.Open(cfg.DataDir)
			if err != nil {
				return err
			}
			defer st.Close()

			orch, err := orchestrator.New(config.NewHolder(cfg), "", orchestrator.Deps{Store: st, Logger: logger})
			if err != nil {
				return err
			}

			sweepCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			summary, err := orch.Sweep(sweepCtx, roots)
			orch.Close()

			out := output.New(output.Config{
				Verbose:   verbose,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				IsTTY:     isTerminal(os.Stdout),
			})
			for _, m := range orch.Queue().Drain() {
				out.Message(m)
			}
			if err != nil {
				return err
			}

			for _, scanErr := range summary.ScanErrors {
				out.Error("%v", scanErr)
			}
			out.Info("%s", summary.String())
			out.Verbose("Finished in %s", summary.Duration.Round(time.Millisecond))
			if summary.HasErrors() {
				return errors.New("sweep finished with errors")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show timing details")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List what would move without moving anything")
	return cmd
}

func printPreview(w io.Writer, preview *orchestrator.PreviewResult) {
	roots := make([]string, 0, len(preview.ByRoot))
	for root := range preview.ByRoot {
		roots = append(roots, root)
	}
	slices.Sort(roots)

	for _, root := range roots {
		rp := preview.ByRoot[root]
		fmt.Fprintf(w, "%s\n", rp.Directory)
		if rp.Err != nil {
			fmt.Fprintf(w, "  unavailable: %v\n\n", rp.Err)
			continue
		}

		categories := make([]string, 0, len(rp.ByCategory))
		for category := range rp.ByCategory {
			categories = append(categories, category)
		}
		slices.Sort(categories)

		rows := make([][]string, 0, len(categories)+2)
		for _, category := range categories {
			rows = append(rows, []string{category, strconv.Itoa(len(rp.ByCategory[category]))})
		}
		if len(rp.Unrecognized) > 0 {
			rows = append(rows, []string{"(unrecognized)", strconv.Itoa(len(rp.Unrecognized))})
		}
		if len(rp.Ignored) > 0 {
			rows = append(rows, []string{"(ignored)", strconv.Itoa(len(rp.Ignored))})
		}
		if len(rows) == 0 {
			fmt.Fprintln(w, "  nothing to sort")
			fmt.Fprintln(w)
			continue
		}
		fmt.Fprintln(w, renderTable([]string{"Category", "Files"}, rows, []columnAlignment{alignLeft, alignRight}))
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%d files would be moved\n", preview.GrandTotal)
}
