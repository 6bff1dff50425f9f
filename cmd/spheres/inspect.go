package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"lod-spheres/internal/config"
	"lod-spheres/internal/recording"
	"lod-spheres/internal/viewer"

	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print per-entity message counts, vertex totals and time ranges of a saved recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := recording.SummarizeFile(args[0])
			if err != nil {
				return err
			}
			_, err = s.WriteTo(cmd.OutOrStdout())
			return err
		},
	}
}

func newViewCmd() *cobra.Command {
	var (
		listen string
		fps    int
	)
	cmd := &cobra.Command{
		Use:   "view [file | ws://host:port/ws]",
		Short: "Replay a saved recording, follow a served stream, or listen for a pushed one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 0) == (listen == "") {
				return fmt.Errorf("give either a file or URL argument, or --listen")
			}
			if fps > 0 {
				config.SetPlaybackFPS(fps)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			src, opts, err := openViewSource(ctx, args, listen)
			if err != nil {
				return err
			}
			opts.Logger = slog.Default()
			return viewer.Run(ctx, src, opts)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "accept streams pushed with 'run --connect' on this address, e.g. :9876")
	cmd.Flags().IntVar(&fps, "fps", 0, "replay speed in frames per second")
	return cmd
}

func openViewSource(ctx context.Context, args []string, listen string) (viewer.Source, viewer.Options, error) {
	if listen != "" {
		l, err := recording.Listen(listen, slog.Default())
		if err != nil {
			return nil, viewer.Options{}, err
		}
		slog.Info("waiting for producers", "url", l.URL())
		return viewer.NewListenerSource(l), viewer.Options{Title: "spheres (listening)", Live: true}, nil
	}

	target := args[0]
	if strings.HasPrefix(target, "ws://") || strings.HasPrefix(target, "wss://") {
		sub, err := recording.Subscribe(ctx, target)
		if err != nil {
			return nil, viewer.Options{}, err
		}
		return sub, viewer.Options{Title: sub.AppID(), Live: true}, nil
	}

	fs, err := viewer.OpenFileSource(target)
	if err != nil {
		return nil, viewer.Options{}, err
	}
	return fs, viewer.Options{Title: fs.AppID()}, nil
}

func newConfigCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if path != "" {
				var err error
				if cfg, err = config.Load(path); err != nil {
					return err
				}
			}
			b, err := cfg.Encode()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", "", "TOML config file to validate and print")
	return cmd
}
