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
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/lixenwraith/gltf-audio/audio"
	"github.com/lixenwraith/gltf-audio/config"
	"github.com/lixenwraith/gltf-audio/engine"
	"github.com/lixenwraith/gltf-audio/monitor"
	"github.com/lixenwraith/gltf-audio/status"
)

type playOptions struct {
	backend  string
	monitor  bool
	interval time.Duration
	maxTicks int
}

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var opts playOptions

	cmd := &cobra.Command{
		Use:   "play FILE",
		Short: "Play a scene until every emitter has stopped",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("backend") {
				cfg.Audio.Backend = audio.BackendType(opts.backend)
			}
			if flags.Changed("interval") {
				cfg.Engine.TickInterval = config.Duration(opts.interval)
			}
			if flags.Changed("max-ticks") {
				cfg.Engine.MaxTicks = opts.maxTicks
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if opts.monitor && !isTerminal(os.Stdout) {
				return errors.New("--monitor requires a terminal")
			}

			// The monitor owns the terminal, console logging would tear the screen
			console := cmd.ErrOrStderr()
			if opts.monitor {
				console = io.Discard
			}
			logger, closer, err := newLogger(cfg.Log, console)
			if err != nil {
				return err
			}
			defer closer.Close()

			backend, err := audio.NewBackend(&cfg.Audio)
			if err != nil {
				return fmt.Errorf("%w: %v", engine.ErrResourceCreation, err)
			}

			listener := cfg.ListenerState()
			scene, err := engine.Load(args[0], engine.Options{
				Backend:   backend,
				Decoder:   audio.Decoder{ForceMono: cfg.Audio.ForceMono},
				Logger:    logger,
				Extension: cfg.Engine.Extension,
				Listener:  &listener,
				MaxTicks:  cfg.Engine.MaxTicks,
			})
			if err != nil {
				return err
			}
			defer scene.Close()

			logger.Info("scene loaded",
				"file", args[0],
				"backend", cfg.Audio.Backend,
				"instances", len(scene.Instances()),
				"sources", len(scene.Document().Sources))

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if opts.monitor {
				err = runMonitor(runCtx, scene, cfg.Interval(), args[0])
			} else {
				err = scene.Run(runCtx, cfg.Interval())
			}
			logMetrics(logger, scene.Registry())
			if errors.Is(err, context.Canceled) {
				logger.Info("playback interrupted", "ticks", scene.Ticks())
				return nil
			}
			if err != nil {
				return err
			}
			logger.Info("playback finished", "ticks", scene.Ticks(), "state", scene.State())
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.backend, "backend", "", "Audio backend: speaker or null")
	cmd.Flags().BoolVar(&opts.monitor, "monitor", false, "Show a live terminal view with listener controls")
	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "Tick interval, 0 yields between ticks")
	cmd.Flags().IntVar(&opts.maxTicks, "max-ticks", 0, "Stop after this many ticks, 0 is unbounded")

	return cmd
}

// logMetrics writes the final registry snapshot as one debug record
func logMetrics(logger *slog.Logger, r *status.Registry) {
	samples := r.Snapshot()
	args := make([]any, 0, 2*len(samples))
	for _, s := range samples {
		args = append(args, s.Key, s.Value)
	}
	logger.Debug("final metrics", args...)
}

func runMonitor(ctx context.Context, c *engine.Context, interval time.Duration, title string) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init terminal: %w", err)
	}
	defer screen.Fini()

	return monitor.New(screen, c, interval, title).Run(ctx)
}
