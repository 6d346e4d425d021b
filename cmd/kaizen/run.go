package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"kaizen/internal/config"
	"kaizen/internal/hud"
	"kaizen/internal/launcher"
	"kaizen/internal/orchestrator"
	"kaizen/internal/output"
	"kaizen/internal/store"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var plain bool
	var startFocus bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Watch folders, sort arrivals and show the HUD",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			useHUD := !plain && isTerminal(os.Stdout)

			logger, closeLog, err := ctx.newLogger(cfg, useHUD)
			if err != nil {
				return err
			}
			defer closeLog()

			release, err := acquireLock(cfg.DataDir)
			if err != nil {
				return err
			}
			defer release()

			st, err := store.Open(cfg.DataDir)
			if err != nil {
				return err
			}
			defer st.Close()

			runCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			orch, err := orchestrator.New(config.NewHolder(cfg), ctx.configPath(), orchestrator.Deps{
				Store:    st,
				Launcher: launcher.System{},
				Bell:     func() { fmt.Fprint(os.Stderr, "\a") },
				Logger:   logger,
			})
			if err != nil {
				return err
			}
			defer orch.Close()
			logger.Info().Str("config", ctx.configPath()).Bool("hud", useHUD).Msg("kaizen starting")
			if startFocus {
				if err := orch.Focus().Start(); err != nil {
					return err
				}
			}

			if useHUD {
				return runWithHUD(runCtx, cancel, orch)
			}

			out := output.New(output.Config{
				Writer:     cmd.OutOrStdout(),
				ErrWriter:  cmd.ErrOrStderr(),
				IsTTY:      isTerminal(os.Stdout),
				Timestamps: true,
			})
			return runPlain(runCtx, orch, out, cfg.WatchPaths)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Print notifications as lines instead of showing the HUD")
	cmd.Flags().BoolVar(&startFocus, "focus", false, "Start a focus session immediately")
	return cmd
}

func runWithHUD(ctx context.Context, cancel context.CancelFunc, orch *orchestrator.Orchestrator) error {
	runErr := make(chan error, 1)
	go func() { runErr <- orch.Run(ctx) }()

	hudErr := hud.Run(ctx, cancel, orch)
	cancel()
	return errors.Join(hudErr, <-runErr)
}

func runPlain(ctx context.Context, orch *orchestrator.Orchestrator, out *output.Output, roots []string) error {
	pumpCtx, stopPump := context.WithCancel(context.Background())
	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		out.Pump(pumpCtx, orch.Queue(), output.DefaultPollInterval)
	}()

	out.Info("Watching %s. Press Ctrl+C to stop.", strings.Join(roots, ", "))
	err := orch.Run(ctx)

	stopPump()
	<-pumpDone
	stats := orch.Stats()
	out.Info("Files moved: %d   Focus: %d min   Sessions: %d",
		stats.FilesMoved, stats.MinutesFocused, stats.SessionsCompleted)
	return err
}
