package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/p-arndt/kastell/internal/api"
	"github.com/p-arndt/kastell/internal/reaper"
	"github.com/p-arndt/kastell/internal/sandbox"
)

func msDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func newServeCommand(cfgPath *string, logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP control daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, mgr, err := buildManager(*cfgPath, logger)
			if err != nil {
				return err
			}
			if cfg.APIKey == "" {
				logger.Warn("no API key configured, running in open access mode")
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			rpr := reaper.New(mgr,
				time.Duration(cfg.Reaper.MaxAgeSeconds)*time.Second,
				time.Duration(cfg.Reaper.IntervalSeconds)*time.Second,
				logger)
			go rpr.Run(ctx)

			srv := api.NewServer(cfg, mgr, logger)
			httpServer := &http.Server{
				Addr:         cfg.Listen,
				Handler:      srv.Handler(),
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 5 * time.Minute, // exec can be long
				IdleTimeout:  60 * time.Second,
			}

			go func() {
				<-ctx.Done()
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer shutdownCancel()
				httpServer.Shutdown(shutdownCtx)
			}()

			logger.Info("listening", "addr", cfg.Listen)
			if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}
}

func newCreateCommand(cfgPath *string, logger *slog.Logger) *cobra.Command {
	var image, typ string
	cmd := &cobra.Command{
		Use:   "create [name]",
		Short: "create a sandbox and wait until it is ready",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, mgr, err := buildManager(*cfgPath, logger)
			if err != nil {
				return err
			}
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			sb, err := mgr.Create(cmd.Context(), sandbox.CreateOpts{Name: name, Image: image, Type: typ})
			if err != nil {
				return err
			}
			fmt.Println(sb.Name())
			return nil
		},
	}
	cmd.Flags().StringVar(&image, "image", "", "image to launch (default from config)")
	cmd.Flags().StringVar(&typ, "type", "", "sandbox type: container or vm")
	return cmd
}

func newListCommand(cfgPath *string, logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list managed sandboxes",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, mgr, err := buildManager(*cfgPath, logger)
			if err != nil {
				return err
			}
			infos, err := mgr.List(cmd.Context(), sandbox.Filter{})
			if err != nil {
				return err
			}
			return printJSON(infos)
		},
	}
}

func newExecCommand(cfgPath *string, logger *slog.Logger) *cobra.Command {
	var timeoutMs int
	var dir string
	cmd := &cobra.Command{
		Use:   "exec <name> <command>",
		Short: "run a shell command inside a sandbox",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, mgr, err := buildManager(*cfgPath, logger)
			if err != nil {
				return err
			}
			res, err := mgr.RunCommand(cmd.Context(), args[0], args[1], sandbox.CommandOpts{
				Dir:     dir,
				Timeout: msDuration(timeoutMs),
			})
			if err != nil {
				return err
			}
			fmt.Fprint(os.Stdout, res.Stdout)
			fmt.Fprint(os.Stderr, res.Stderr)
			if res.ExitCode != 0 {
				os.Exit(res.ExitCode)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&timeoutMs, "timeout-ms", 0, "command timeout in milliseconds")
	cmd.Flags().StringVar(&dir, "cwd", "", "working directory inside the sandbox")
	return cmd
}

func newRunCommand(cfgPath *string, logger *slog.Logger) *cobra.Command {
	var language string
	cmd := &cobra.Command{
		Use:   "run <name> <source-file>",
		Short: "run a source file inside a sandbox",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, mgr, err := buildManager(*cfgPath, logger)
			if err != nil {
				return err
			}
			source, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			res, err := mgr.RunCode(cmd.Context(), args[0], string(source), sandbox.CodeOpts{Language: language})
			if err != nil {
				return err
			}
			fmt.Print(res.Output)
			if res.ExitCode != 0 {
				os.Exit(res.ExitCode)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&language, "language", "python", "source language (python, bash, javascript)")
	return cmd
}

func newDestroyCommand(cfgPath *string, logger *slog.Logger) *cobra.Command {
	var keepSnapshots, force bool
	cmd := &cobra.Command{
		Use:   "destroy <name>",
		Short: "destroy a sandbox and its snapshots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, mgr, err := buildManager(*cfgPath, logger)
			if err != nil {
				return err
			}
			return mgr.Destroy(cmd.Context(), args[0], sandbox.DestroyOpts{
				KeepSnapshots: keepSnapshots,
				Force:         force,
			})
		},
	}
	cmd.Flags().BoolVar(&keepSnapshots, "keep-snapshots", false, "skip the snapshot cascade")
	cmd.Flags().BoolVar(&force, "force", false, "force-delete the instance")
	return cmd
}

func newMountCommand(cfgPath *string, logger *slog.Logger) *cobra.Command {
	var mode string
	var shift bool
	cmd := &cobra.Command{
		Use:   "mount <name> <source> <target>",
		Short: "mount a host folder into a sandbox",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, mgr, err := buildManager(*cfgPath, logger)
			if err != nil {
				return err
			}
			mnt, err := mgr.Mount(cmd.Context(), args[0], sandbox.MountOpts{
				Source: args[1],
				Target: args[2],
				Mode:   sandbox.MountMode(mode),
				Shift:  shift,
			})
			if err != nil {
				return err
			}
			return printJSON(mnt)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "readwrite", "isolation mode: overlay, readonly or readwrite")
	cmd.Flags().BoolVar(&shift, "shift", false, "shift ownership ids on the device")
	return cmd
}

func newUnmountCommand(cfgPath *string, logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "unmount <name> <target>",
		Short: "unmount a sandbox path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, mgr, err := buildManager(*cfgPath, logger)
			if err != nil {
				return err
			}
			return mgr.Unmount(cmd.Context(), args[0], args[1])
		},
	}
}

func newMountsCommand(cfgPath *string, logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "mounts <name>",
		Short: "list a sandbox's mounts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, mgr, err := buildManager(*cfgPath, logger)
			if err != nil {
				return err
			}
			mounts, err := mgr.ListMounts(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(mounts)
		},
	}
}

func newSnapshotCommand(cfgPath *string, logger *slog.Logger) *cobra.Command {
	snapshot := &cobra.Command{
		Use:   "snapshot",
		Short: "manage sandbox snapshots",
	}

	var stateful bool
	create := &cobra.Command{
		Use:   "create <name> <snapshot>",
		Short: "create a snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, mgr, err := buildManager(*cfgPath, logger)
			if err != nil {
				return err
			}
			return mgr.Snapshot(cmd.Context(), args[0], args[1], stateful)
		},
	}
	create.Flags().BoolVar(&stateful, "stateful", false, "include runtime state")

	list := &cobra.Command{
		Use:   "list <name>",
		Short: "list snapshots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, mgr, err := buildManager(*cfgPath, logger)
			if err != nil {
				return err
			}
			snaps, err := mgr.ListSnapshots(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(snaps)
		},
	}

	restore := &cobra.Command{
		Use:   "restore <name> <snapshot>",
		Short: "restore a snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, mgr, err := buildManager(*cfgPath, logger)
			if err != nil {
				return err
			}
			return mgr.RestoreSnapshot(cmd.Context(), args[0], args[1])
		},
	}

	del := &cobra.Command{
		Use:   "delete <name> <snapshot>",
		Short: "delete a snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, mgr, err := buildManager(*cfgPath, logger)
			if err != nil {
				return err
			}
			return mgr.DeleteSnapshot(cmd.Context(), args[0], args[1])
		},
	}

	snapshot.AddCommand(create, list, restore, del)
	return snapshot
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
