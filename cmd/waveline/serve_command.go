package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"waveline/internal/daemon"
	"waveline/internal/deps"
	"waveline/internal/logging"
	"waveline/internal/queue"
	"waveline/internal/workflow"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the waveline daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
				if !status.Available {
					logger.Warn("dependency unavailable",
						logging.String("name", status.Name),
						logging.String("command", status.Command),
						logging.String("detail", status.Detail))
				}
			}

			store, err := queue.Open(cfg)
			if err != nil {
				return fmt.Errorf("open job store: %w", err)
			}

			mgr := workflow.NewManager(cfg, store, logger)
			d, err := daemon.New(cfg, store, logger, mgr)
			if err != nil {
				_ = store.Close()
				return fmt.Errorf("create daemon: %w", err)
			}
			defer d.Close()

			if err := d.Start(signalCtx); err != nil {
				return err
			}

			<-signalCtx.Done()
			logger.Info("waveline shutting down")
			return nil
		},
	}
}
