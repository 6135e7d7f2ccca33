package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"archiver/internal/daemon"
	"archiver/internal/logging"
	"archiver/internal/preflight"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Triage the source directory on every poll interval until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatcher(cmd.Context(), cmd, ctx)
		},
	}
}

func runWatcher(cmdCtx context.Context, cmd *cobra.Command, ctx *commandContext) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := ctx.logger(cfg, cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	for _, result := range preflight.Failed(preflight.RunAll(cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "fix the path or its permissions"),
			logging.String(logging.FieldImpact, "files for this path may be skipped or fail to move"),
		)
	}

	cycle, j, closeFn, err := ctx.pipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	var opts []daemon.Option
	if j != nil {
		opts = append(opts, daemon.WithPruner(j))
	}
	d, err := daemon.New(cfg, cycle, logger, opts...)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := d.Start(signalCtx); err != nil {
		return err
	}

	<-signalCtx.Done()
	logger.Info("archiver watcher shutting down")
	d.Stop()
	return nil
}
