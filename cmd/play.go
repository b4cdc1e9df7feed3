// Package cmd contains the CLI subcommands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/videowall/wlvideo/internal/compositor"
	"github.com/videowall/wlvideo/internal/config"
	"github.com/videowall/wlvideo/internal/events"
	"github.com/videowall/wlvideo/internal/gpu"
	"github.com/videowall/wlvideo/internal/logging"
	"github.com/videowall/wlvideo/internal/metrics"
	"github.com/videowall/wlvideo/internal/player"
	"github.com/videowall/wlvideo/internal/probe"
	"github.com/videowall/wlvideo/internal/render"
	"github.com/videowall/wlvideo/internal/systemd"
	"github.com/videowall/wlvideo/internal/video"
)

// CreatePlayCmd creates the play command.
func CreatePlayCmd() *cobra.Command {
	opts := config.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "play <video.mp4>",
		Short: "Play a video as wallpaper on Wayland outputs",
		Long: `Decodes the given video and renders it fullscreen behind every desktop ` +
			`surface, looping forever by default. Prefers zero-copy presentation of ` +
			`hardware-decoded buffers and falls back to a software upload path.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			opts.Video = args[0]
			if err := config.LoadConfig(&opts, cmd); err != nil {
				return err
			}

			logCfg := config.LoadLoggingConfig(opts.Config)
			if opts.Verbose {
				logCfg.Level = "debug"
			}
			logging.Initialize(logCfg)

			return runPlay(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.Config, "config", "c", "", "Path to configuration file")
	f.StringVarP(&opts.Output, "output", "o", opts.Output, "Display name to render to (\"*\" for all)")
	f.StringVarP(&opts.Scale, "scale", "s", opts.Scale, "Scale mode: fit, fill or stretch")
	f.BoolVar(&opts.Loop, "loop", opts.Loop, "Restart playback at end of stream")
	f.BoolVar(&opts.Hwaccel, "hwaccel", opts.Hwaccel, "Use hardware decoding when available")
	f.StringVarP(&opts.Device, "device", "d", "", "DRM render node for decoding (e.g. /dev/dri/renderD128)")
	f.StringVar(&opts.MetricsListen, "metrics-listen", "", "Expose Prometheus metrics on this address")
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable debug logging")
	return cmd
}

func runPlay(ctx context.Context, opts config.Options) error {
	logger := logging.GetLogger("play")

	scale, err := video.ParseScaleMode(opts.Scale)
	if err != nil {
		logger.Warn("Falling back to fill scaling", "error", err)
	}

	info, err := probe.File(opts.Video)
	if err != nil {
		return fmt.Errorf("probe %s: %w", opts.Video, err)
	}
	logger.Info("Video probed",
		"path", info.Path,
		"codec", info.Codec,
		"resolution", fmt.Sprintf("%dx%d", info.Width, info.Height),
		"fps", info.FrameRate,
		"duration", info.Duration)

	conn, err := compositor.Dial()
	if err != nil {
		return fmt.Errorf("connect to compositor: %w", err)
	}
	defer conn.Close()

	// The render context comes up first: its vendor constrains which
	// decode device may export importable buffers.
	factory := render.Factory(conn, opts.Device)
	driver, err := factory()
	if err != nil {
		return fmt.Errorf("create gpu context: %w", err)
	}

	renderVendor := gpu.VendorFromDescription(driver.Name())
	if renderVendor == gpu.VendorUnknown {
		renderVendor = gpu.VendorFromNode(opts.Device)
	}

	device := opts.Device
	if opts.Hwaccel {
		nodes, err := gpu.FindRenderNodes()
		if err != nil {
			logger.Warn("DRM node enumeration failed", "error", err)
		}
		node, err := gpu.PickDecodeNode(nodes, opts.Device, renderVendor)
		if err != nil {
			driver.Close()
			return err
		}
		device = node.Path
		if renderVendor != gpu.VendorUnknown && node.Vendor != gpu.VendorUnknown && node.Vendor != renderVendor {
			logger.Warn("Decode and render devices differ, zero-copy import will not work",
				"decode_vendor", node.Vendor, "render_vendor", renderVendor)
		}
		logger.Info("Decode device selected",
			"device", node.Path, "vendor", node.Vendor, "render_vendor", renderVendor)
	}

	source, err := video.OpenSource(opts.Video, video.SourceOptions{
		Device:  device,
		Hwaccel: opts.Hwaccel,
	})
	if err != nil {
		driver.Close()
		return fmt.Errorf("open decoder: %w", err)
	}

	bus := events.New()
	recorder := metrics.NewRecorder(bus)
	defer recorder.Close()

	if opts.MetricsListen != "" {
		exporter := metrics.NewExporter(opts.MetricsListen, logging.GetLogger("metrics"))
		exporter.Start()
		defer exporter.Stop()
	}

	p, err := player.New(conn, source, driver, factory, bus,
		logging.GetLogger("player"), player.Config{
			OutputFilter: opts.Output,
			Scale:        scale,
			Loop:         opts.Loop,
		})
	if err != nil {
		driver.Close()
		return err
	}

	if opts.Config != "" {
		watcher := config.NewConfigWatcher(opts.Config, config.LoadOptionsFile, logging.GetLogger("config"))
		watcher.OnReload(func(o config.Options) {
			s, perr := video.ParseScaleMode(o.Scale)
			if perr != nil {
				logger.Warn("Ignoring invalid scale mode from config", "error", perr)
			}
			p.Updates() <- player.Config{OutputFilter: o.Output, Scale: s, Loop: o.Loop}
		})
		if err := watcher.Start(); err != nil {
			logger.Warn("Config watcher failed to start", "error", err)
		} else {
			defer watcher.Stop()
		}
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sdLogger := logging.GetLogger("systemd")
	systemd.NotifyReady(sdLogger)
	systemd.StartWatchdog(runCtx, sdLogger)
	defer systemd.NotifyStopping(sdLogger)

	if err := p.Run(runCtx); err != nil {
		if errors.Is(err, player.ErrNoUsableDisplay) {
			return fmt.Errorf("no usable display: %w", err)
		}
		return err
	}
	return nil
}
