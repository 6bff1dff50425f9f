package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"lod-spheres/internal/app"
	"lod-spheres/internal/config"
	"lod-spheres/internal/meshing"
	"lod-spheres/internal/profiling"
	"lod-spheres/internal/recording"
	"lod-spheres/internal/viewer"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type runOptions struct {
	configPath string
	frames     int
	workers    int
	save       string
	serve      string
	connect    string
	spawn      bool
}

func newRunCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate the sphere stream and send it to the selected sinks",
		Long: `Generate the sphere stream and send it to the selected sinks.

Without --save, --serve, --connect or --spawn the run is dry: meshes are
generated and summarized but not kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRunConfig(cmd, opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runStream(ctx, cfg, opts, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "TOML config file")
	f.IntVar(&opts.frames, "frames", 0, "number of frames (overrides config)")
	f.IntVar(&opts.workers, "workers", 0, "mesh worker goroutines, 0 = one per CPU (overrides config)")
	f.StringVar(&opts.save, "save", "", "write the recording to this file")
	f.StringVar(&opts.serve, "serve", "", "serve the stream to websocket viewers on this address, e.g. :9877")
	f.StringVar(&opts.connect, "connect", "", "push the stream to a listening viewer, e.g. ws://host:9876/ws")
	f.BoolVar(&opts.spawn, "spawn", false, "open a viewer window and stream into it")
	return cmd
}

func loadRunConfig(cmd *cobra.Command, opts runOptions) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return cfg, err
		}
	}
	if cmd.Flags().Changed("frames") {
		cfg.Frames = opts.frames
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = opts.workers
	}
	return cfg, cfg.Validate()
}

// openSinks builds every requested sink. The returned pipe is non-nil when
// a viewer must be spawned.
func openSinks(ctx context.Context, cfg config.Config, opts runOptions, logger *slog.Logger) (recording.MultiSink, *viewer.Pipe, error) {
	var sinks recording.MultiSink
	fail := func(err error) (recording.MultiSink, *viewer.Pipe, error) {
		_ = sinks.Close()
		return nil, nil, err
	}

	if opts.save != "" {
		fs, err := recording.CreateFile(opts.save, cfg.AppID)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, fs)
		logger.Info("saving recording", "path", fs.Path())
	}
	if opts.serve != "" {
		srv, err := recording.Serve(opts.serve, cfg.AppID, logger)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, srv)
		logger.Info("serving stream", "url", srv.URL())
	}
	if opts.connect != "" {
		cs, err := recording.Connect(ctx, opts.connect, cfg.AppID)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, cs)
		logger.Info("pushing stream", "url", opts.connect)
	}
	var pipe *viewer.Pipe
	if opts.spawn {
		pipe = viewer.NewPipe(len(cfg.Tiers) * 4)
		sinks = append(sinks, pipe)
	}
	return sinks, pipe, nil
}

func runStream(ctx context.Context, cfg config.Config, opts runOptions, out io.Writer) error {
	logger := slog.Default()

	sinks, pipe, err := openSinks(ctx, cfg, opts, logger)
	if err != nil {
		return err
	}
	summary := recording.NewSummarySink(cfg.AppID)
	dryRun := len(sinks) == 0
	sinks = append(sinks, summary)

	stream := recording.NewRecordingStream(cfg.AppID, sinks)
	pool := meshing.NewWorkerPool(cfg.WorkerCount(), len(cfg.Tiers)*2)
	defer pool.Shutdown()

	logger.Info("starting", "app", cfg.AppID, "frames", cfg.Frames, "tiers", len(cfg.Tiers),
		"workers", pool.Workers(), "dry_run", dryRun)

	drive := func(ctx context.Context) error {
		_, err := app.Run(ctx, cfg, stream, pool, logger)
		return errors.Join(err, stream.Close())
	}

	if pipe == nil {
		err = drive(ctx)
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			err := drive(gctx)
			// Closing the viewer early is a normal way to stop.
			if errors.Is(err, recording.ErrStreamClosed) {
				return nil
			}
			return err
		})
		viewErr := viewer.Run(gctx, pipe.Source(), viewer.Options{
			Title:  cfg.AppID,
			Live:   true,
			Logger: logger,
		})
		err = errors.Join(g.Wait(), viewErr)
	}
	if errors.Is(err, context.Canceled) {
		logger.Info("interrupted")
		err = nil
	}

	verbose := logger.Enabled(context.Background(), slog.LevelDebug)
	if verbose {
		for _, st := range profiling.RunStats() {
			logger.Debug("profile", "bucket", st.Name, "calls", st.Count, "total", st.Total, "mean", st.Mean())
		}
	}
	if dryRun || verbose {
		if _, werr := summary.Summary().WriteTo(out); werr != nil {
			return errors.Join(err, fmt.Errorf("write summary: %w", werr))
		}
	}
	return err
}
