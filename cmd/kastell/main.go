package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/p-arndt/kastell/internal/config"
	"github.com/p-arndt/kastell/internal/incus"
	"github.com/p-arndt/kastell/internal/sandbox"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(logger)
	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCommand(logger *slog.Logger) *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "kastell",
		Short:         "control layer for ephemeral compute sandboxes",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to kastell.yaml")

	root.AddCommand(
		newServeCommand(&cfgPath, logger),
		newCreateCommand(&cfgPath, logger),
		newListCommand(&cfgPath, logger),
		newExecCommand(&cfgPath, logger),
		newRunCommand(&cfgPath, logger),
		newDestroyCommand(&cfgPath, logger),
		newMountCommand(&cfgPath, logger),
		newUnmountCommand(&cfgPath, logger),
		newMountsCommand(&cfgPath, logger),
		newSnapshotCommand(&cfgPath, logger),
	)
	return root
}

// buildManager wires config, gateway and facade for one command invocation.
func buildManager(cfgPath string, logger *slog.Logger) (*config.Config, *sandbox.Manager, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	gw := incus.New(cfg.IncusBin, cfg.Project, msDuration(cfg.IncusTimeoutMs), logger)
	return cfg, sandbox.NewManager(cfg, gw, logger), nil
}
