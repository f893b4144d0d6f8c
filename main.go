package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/camgrab/cmd"
	"github.com/smazurov/camgrab/internal/acquire"
	"github.com/smazurov/camgrab/internal/config"
	"github.com/smazurov/camgrab/internal/events"
	"github.com/smazurov/camgrab/internal/grab"
	"github.com/smazurov/camgrab/internal/hal"
	"github.com/smazurov/camgrab/internal/hal/drivers"
	"github.com/smazurov/camgrab/internal/logging"
	"github.com/smazurov/camgrab/internal/metrics"
	"github.com/smazurov/camgrab/internal/save"
	"github.com/smazurov/camgrab/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Camera selection
	Driver      string `help:"Camera driver (mvs, sim)" default:"mvs" toml:"camera.driver" env:"CAMERA_DRIVER"`
	Address     string `help:"Camera IP (GigE) or serial (USB3), empty picks first found" short:"a" toml:"camera.address" env:"CAMERA_ADDRESS"`
	Transport   string `help:"Transport filter (gige, usb, all)" default:"all" toml:"camera.transport" env:"CAMERA_TRANSPORT"`
	SDKPath     string `help:"Vendor SDK installation root" toml:"camera.sdk_path" env:"CAMERA_SDK_PATH"`
	RuntimePath string `help:"Vendor SDK runtime library directory" toml:"camera.runtime_path" env:"CAMERA_RUNTIME_PATH"`

	// Acquisition settings
	Count      int     `help:"Number of frames to collect (0 = until interrupted)" short:"n" default:"10" toml:"acquire.count" env:"ACQUIRE_COUNT"`
	IntervalMs int     `help:"Delay between frames in continuous mode (ms)" default:"0" toml:"acquire.interval_ms" env:"ACQUIRE_INTERVAL_MS"`
	Size       string  `help:"Centered ROI as WIDTHxHEIGHT, empty keeps device ROI" short:"s" toml:"acquire.size" env:"ACQUIRE_SIZE"`
	Trigger    string  `help:"Trigger mode (continuous, software, hardware)" short:"t" default:"continuous" toml:"acquire.trigger" env:"ACQUIRE_TRIGGER"`
	Edge       string  `help:"Hardware trigger edge (rising, falling)" default:"rising" toml:"acquire.edge" env:"ACQUIRE_EDGE"`
	TimeoutMs  int     `help:"Frame wait timeout in ms (0 = mode default)" default:"0" toml:"acquire.timeout_ms" env:"ACQUIRE_TIMEOUT_MS"`
	Exposure   float64 `help:"Exposure time in microseconds (0 = camera default)" short:"e" default:"0" toml:"acquire.exposure_us" env:"ACQUIRE_EXPOSURE_US"`
	Gain       float64 `help:"Analog gain in dB (0 = camera default)" short:"g" default:"0" toml:"acquire.gain_db" env:"ACQUIRE_GAIN_DB"`
	Profile    string  `help:"Camera profile TOML watched for exposure/gain hot-reload" toml:"acquire.profile" env:"ACQUIRE_PROFILE"`

	// Output settings
	Output      string `help:"Directory for saved images" short:"o" default:"images" toml:"output.dir" env:"OUTPUT_DIR"`
	Prefix      string `help:"Saved file name prefix" default:"img" toml:"output.prefix" env:"OUTPUT_PREFIX"`
	ImageFormat string `help:"Saved image format (jpg, png)" default:"jpg" toml:"output.format" env:"OUTPUT_FORMAT"`
	Resize      string `help:"Software resize of decoded frames as WIDTHxHEIGHT" toml:"output.resize" env:"OUTPUT_RESIZE"`

	// Metrics settings
	MetricsAddr string `help:"Prometheus listen address, empty disables metrics" toml:"metrics.addr" env:"METRICS_ADDR"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingCamera  string `help:"Camera session logging level" default:"info" toml:"logging.camera" env:"LOGGING_CAMERA"`
	LoggingAcquire string `help:"Acquisition logging level" default:"info" toml:"logging.acquire" env:"LOGGING_ACQUIRE"`
	LoggingGrab    string `help:"Collection loop logging level" default:"info" toml:"logging.grab" env:"LOGGING_GRAB"`
}

// parseSize parses "WIDTHxHEIGHT". Empty is allowed and returns zeros.
func parseSize(s string) (int, int, error) {
	if s == "" {
		return 0, 0, nil
	}
	var w, h int
	if _, err := fmt.Sscanf(strings.ToLower(s), "%dx%d", &w, &h); err != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid size %q, expected WIDTHxHEIGHT", s)
	}
	return w, h, nil
}

func buildOptions(opts *Options, logger *slog.Logger) (grab.Options, error) {
	var out grab.Options

	mode, err := acquire.ParseTriggerMode(opts.Trigger)
	if err != nil {
		return out, err
	}
	edge := acquire.EdgeRising
	switch opts.Edge {
	case "rising", "":
	case "falling":
		edge = acquire.EdgeFalling
	default:
		return out, fmt.Errorf("unknown trigger edge %q (rising, falling)", opts.Edge)
	}

	var transport hal.Transport
	switch opts.Transport {
	case "all", "":
		transport = hal.TransportAll
	case "gige":
		transport = hal.TransportGigE
	case "usb":
		transport = hal.TransportUSB3
	default:
		return out, fmt.Errorf("unknown transport %q (gige, usb, all)", opts.Transport)
	}

	roiW, roiH, err := parseSize(opts.Size)
	if err != nil {
		return out, err
	}
	resizeW, resizeH, err := parseSize(opts.Resize)
	if err != nil {
		return out, err
	}

	format, err := save.ParseFormat(opts.ImageFormat)
	if err != nil {
		return out, err
	}

	if opts.Exposure < 0 || opts.Gain < 0 {
		return out, fmt.Errorf("exposure and gain must be non-negative")
	}
	if mode != acquire.TriggerContinuous && opts.IntervalMs > 0 {
		logger.Warn("Interval ignored outside continuous mode", "trigger", mode)
	}

	return grab.Options{
		Address:        opts.Address,
		Transport:      transport,
		Count:          opts.Count,
		Interval:       time.Duration(opts.IntervalMs) * time.Millisecond,
		ROIWidth:       roiW,
		ROIHeight:      roiH,
		ResizeWidth:    resizeW,
		ResizeHeight:   resizeH,
		Trigger:        acquire.TriggerConfig{Mode: mode, Edge: edge},
		Timeout:        time.Duration(opts.TimeoutMs) * time.Millisecond,
		ExposureMicros: opts.Exposure,
		GainDB:         opts.Gain,
		OutputDir:      opts.Output,
		Prefix:         opts.Prefix,
		Format:         format,
		ProfilePath:    opts.Profile,
	}, nil
}

func main() {
	// Create Huma CLI. The variable is captured by the closure so config
	// loading can see which flags were set explicitly on the command line;
	// the closure only runs inside cli.Run(), after the assignment.
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically; CLI flags win over env and TOML
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		// Initialize logging: the TOML [logging] table first, so modules
		// without dedicated flags (decode, metrics) can still be tuned,
		// then the resolved CLI/env values on top.
		logCfg := config.LoadLoggingConfig(opts.Config)
		logCfg.Level = opts.LoggingLevel
		logCfg.Format = opts.LoggingFormat
		logCfg.Modules["camera"] = opts.LoggingCamera
		logCfg.Modules["acquire"] = opts.LoggingAcquire
		logCfg.Modules["grab"] = opts.LoggingGrab
		logging.Initialize(logCfg)

		logger := logging.GetLogger("main")

		grabOpts, err := buildOptions(opts, logger)
		if err != nil {
			logger.Error("Invalid options", "error", err)
			os.Exit(1)
		}

		drv, err := drivers.Open(opts.Driver, opts.SDKPath, opts.RuntimePath)
		if err != nil {
			logger.Error("Driver unavailable", "driver", opts.Driver, "error", err)
			os.Exit(1)
		}

		// Create event bus for in-process event handling
		eventBus := events.New()

		var acqMetrics *metrics.Acquisition
		var metricsServer *metrics.Server
		if opts.MetricsAddr != "" {
			acqMetrics = metrics.NewAcquisition()
			metricsServer = metrics.NewServer(opts.MetricsAddr, acqMetrics, logging.GetLogger("metrics"))
		}

		service := grab.New(drv, grabOpts, eventBus, acqMetrics, logging.GetLogger("grab"))

		ctx, cancel := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			if metricsServer != nil {
				metricsServer.Start()
			}

			logger.Info("Starting collection",
				"version", version.String(), "driver", opts.Driver,
				"count", grabOpts.Count, "trigger", grabOpts.Trigger.Mode)
			summary, runErr := service.Run(ctx)
			if metricsServer != nil {
				metricsServer.Stop()
			}
			if runErr != nil {
				logger.Error("Collection failed", "error", runErr,
					"captured", summary.Captured, "requested", summary.Requested)
				os.Exit(1)
			}
			// The CLI otherwise idles waiting for a signal after OnStart
			// returns; a finite collection run is done at this point.
			os.Exit(0)
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			cancel()
			if metricsServer != nil {
				metricsServer.Stop()
			}
		})
	})

	cli.Root().Version = version.String()

	// Add device listing command
	cli.Root().AddCommand(cmd.CreateListCmd())

	// Add environment validation command
	cli.Root().AddCommand(cmd.CreateValidateCmd())

	// Run the CLI
	cli.Run()
}
