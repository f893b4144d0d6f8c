// Package grab runs the image-collection loop: resolve a device, open a
// session, configure acquisition, then fetch/decode/save frames until the
// requested count is reached or the context is cancelled.
package grab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/smazurov/camgrab/internal/acquire"
	"github.com/smazurov/camgrab/internal/camera"
	"github.com/smazurov/camgrab/internal/config"
	"github.com/smazurov/camgrab/internal/decode"
	"github.com/smazurov/camgrab/internal/events"
	"github.com/smazurov/camgrab/internal/hal"
	"github.com/smazurov/camgrab/internal/metrics"
	"github.com/smazurov/camgrab/internal/save"
	"github.com/smazurov/camgrab/internal/systemd"
)

// Default frame deadlines. Hardware triggering waits on an external
// pulse, so its default is deliberately generous.
const (
	defaultTimeout         = 5 * time.Second
	defaultHardwareTimeout = 30 * time.Second
)

// Options configures one collection run.
type Options struct {
	// Address selects the camera: dotted-quad IP for GigE, serial number
	// for any transport. Empty picks the first enumerated device.
	Address   string
	Transport hal.Transport

	// Count is the number of frames to collect. Zero or negative runs
	// until the context is cancelled.
	Count int
	// Interval paces continuous-mode collection between frames.
	Interval time.Duration

	// ROIWidth/ROIHeight select a centered sensor readout window. Zero
	// keeps the device's current ROI.
	ROIWidth  int
	ROIHeight int

	// ResizeWidth/ResizeHeight scale the decoded image in software after
	// decode. Zero keeps the decoded size.
	ResizeWidth  int
	ResizeHeight int

	Trigger acquire.TriggerConfig
	// Timeout bounds each frame wait. Zero selects the mode default.
	Timeout time.Duration

	// ExposureMicros and GainDB are pushed when non-zero, matching the
	// collection tool's optional flags.
	ExposureMicros float64
	GainDB         float64

	OutputDir string
	Prefix    string
	Format    save.Format

	// ProfilePath enables hot reload of exposure/gain from a TOML file
	// while the loop runs.
	ProfilePath string
}

// Summary is the outcome of a run.
type Summary struct {
	Requested   int
	Captured    int
	Timeouts    int
	DecodeSkips int
}

// Service wires the acquisition pipeline to the event bus and metrics.
type Service struct {
	drv     hal.Driver
	opts    Options
	bus     *events.Bus
	metrics *metrics.Acquisition
	logger  *slog.Logger
}

// New creates a collection service. bus and m may be nil.
func New(drv hal.Driver, opts Options, bus *events.Bus, m *metrics.Acquisition, logger *slog.Logger) *Service {
	return &Service{drv: drv, opts: opts, bus: bus, metrics: m, logger: logger}
}

func (s *Service) publish(ev events.Event) {
	if s.bus != nil {
		s.bus.Publish(ev)
	}
}

func now() string { return time.Now().UTC().Format(time.RFC3339Nano) }

// progress renders the STATUS= line the service manager shows in
// systemctl output while the loop runs.
func progress(captured, requested int) string {
	if requested > 0 {
		return fmt.Sprintf("captured %d/%d frames", captured, requested)
	}
	return fmt.Sprintf("captured %d frames", captured)
}

// resolve enumerates and picks the target device.
func (s *Service) resolve() (hal.Descriptor, error) {
	mask := s.opts.Transport
	if mask == 0 {
		mask = hal.TransportAll
	}
	descs, err := camera.Enumerate(s.drv, mask)
	if err != nil {
		return hal.Descriptor{}, err
	}
	s.publish(events.DeviceDiscoveryEvent{Transport: mask.String(), Count: len(descs), Timestamp: now()})

	if s.opts.Address == "" {
		if len(descs) == 0 {
			return hal.Descriptor{}, fmt.Errorf("no cameras found on %s", mask)
		}
		return descs[0], nil
	}
	desc, ok := camera.FindByAddress(descs, s.opts.Address)
	if !ok {
		// GigE devices answer to their IP above; the serial printed by
		// `camgrab list` selects a camera on any transport.
		desc, ok = camera.FindBySerial(descs, s.opts.Address)
	}
	if !ok {
		return hal.Descriptor{}, fmt.Errorf("camera %s not found among %d devices", s.opts.Address, len(descs))
	}
	return desc, nil
}

// Run executes the collection loop. The session is closed on every exit
// path; timeouts and undecodable frames are counted and skipped, never
// fatal.
func (s *Service) Run(ctx context.Context) (Summary, error) {
	summary := Summary{Requested: s.opts.Count}

	desc, err := s.resolve()
	if err != nil {
		return summary, err
	}

	sess := camera.NewSession(s.drv, s.logger)
	if err := sess.Open(desc); err != nil {
		return summary, err
	}
	defer func() {
		sess.Close()
		s.publish(events.AcquisitionStateEvent{Serial: desc.Serial, State: camera.StateDisconnected.String(), Timestamp: now()})
	}()

	ctrl, err := acquire.NewController(sess, s.logger)
	if err != nil {
		return summary, err
	}

	if err := s.configure(ctrl); err != nil {
		return summary, err
	}

	sink, err := save.NewSink(s.opts.OutputDir, s.opts.Prefix, s.opts.Format)
	if err != nil {
		return summary, err
	}

	if s.opts.ProfilePath != "" {
		watcher := config.NewConfigWatcher(s.opts.ProfilePath, config.LoadProfile, s.logger)
		watcher.OnReload(func(p config.Profile) { s.applyProfile(ctrl, p) })
		if err := watcher.Start(); err != nil {
			s.logger.Warn("Profile watcher failed to start, hot-reload disabled", "error", err)
		} else {
			defer func() { _ = watcher.Stop() }()
		}
	}

	if err := ctrl.Start(); err != nil {
		return summary, err
	}
	defer func() { _ = ctrl.Stop() }()
	s.publish(events.AcquisitionStateEvent{Serial: desc.Serial, State: camera.StateStreaming.String(), Timestamp: now()})
	systemd.NotifyReady(s.logger)
	defer systemd.NotifyStopping(s.logger)

	if s.metrics != nil {
		s.metrics.PayloadBytes.WithLabelValues(desc.Serial).Set(float64(ctrl.Config().PayloadSize))
	}

	timeout := s.opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
		if s.opts.Trigger.Mode == acquire.TriggerHardware {
			timeout = defaultHardwareTimeout
		}
	}

	for i := 0; s.opts.Count <= 0 || i < s.opts.Count; i++ {
		if ctx.Err() != nil {
			break
		}

		if s.opts.Trigger.Mode == acquire.TriggerSoftware {
			if err := ctrl.SoftwareTrigger(); err != nil {
				// Recoverable: skip this slot and try again next round.
				s.logger.Warn("Software trigger rejected", "error", err)
			}
		}
		if s.opts.Trigger.Mode == acquire.TriggerHardware {
			s.logger.Info("Waiting for external trigger", "frame", i+1, "timeout", timeout)
		}

		start := time.Now()
		frame, err := ctrl.GetFrame(timeout)
		if s.metrics != nil {
			s.metrics.FetchSeconds.WithLabelValues(desc.Serial).Observe(time.Since(start).Seconds())
		}
		if err != nil {
			if camera.IsCode(err, camera.ErrCodeTimeout) {
				summary.Timeouts++
				if s.metrics != nil {
					s.metrics.FrameTimeouts.WithLabelValues(desc.Serial).Inc()
				}
				s.publish(events.FrameDroppedEvent{Serial: desc.Serial, Reason: "timeout", Timestamp: now()})
				s.logger.Warn("Frame wait timed out", "frame", i+1, "timeout", timeout)
				continue
			}
			return summary, err
		}

		img, err := ctrl.Decode(frame)
		if err != nil {
			// Decoding failure never aborts the loop; skip the frame.
			summary.DecodeSkips++
			if s.metrics != nil {
				s.metrics.DecodeFailures.WithLabelValues(desc.Serial).Inc()
			}
			reason := "decode"
			var unsupported *decode.UnsupportedFormatError
			if errors.As(err, &unsupported) {
				reason = "unsupported_format"
			}
			s.publish(events.FrameDroppedEvent{Serial: desc.Serial, Reason: reason, Error: err.Error(), Timestamp: now()})
			s.logger.Warn("Frame skipped, decode failed", "frame", i+1, "pixel_format", frame.PixelFormat, "error", err)
			continue
		}

		if s.opts.ResizeWidth > 0 && s.opts.ResizeHeight > 0 {
			img = decode.Resize(img, s.opts.ResizeWidth, s.opts.ResizeHeight)
		}

		path, err := sink.Write(summary.Captured, img)
		if err != nil {
			return summary, err
		}
		summary.Captured++

		if s.metrics != nil {
			s.metrics.FramesCaptured.WithLabelValues(desc.Serial).Inc()
		}
		s.publish(events.FrameCapturedEvent{
			Serial:      desc.Serial,
			FrameNum:    frame.FrameNum,
			Width:       img.Width,
			Height:      img.Height,
			PixelFormat: frame.PixelFormat.String(),
			SavedPath:   path,
			Timestamp:   now(),
		})
		s.logger.Info("Frame saved", "frame", i+1, "path", path,
			"size", fmt.Sprintf("%dx%d", img.Width, img.Height))
		systemd.NotifyStatus(s.logger, "%s", progress(summary.Captured, s.opts.Count))

		if s.opts.Trigger.Mode == acquire.TriggerContinuous && s.opts.Interval > 0 &&
			(s.opts.Count <= 0 || i < s.opts.Count-1) {
			select {
			case <-ctx.Done():
			case <-time.After(s.opts.Interval):
			}
		}
	}

	if err := ctrl.Stop(); err != nil {
		return summary, err
	}
	s.logger.Info("Collection finished",
		"captured", summary.Captured, "requested", summary.Requested,
		"timeouts", summary.Timeouts, "decode_skips", summary.DecodeSkips)
	return summary, nil
}

// configure pushes the requested acquisition settings onto a connected
// controller.
func (s *Service) configure(ctrl *acquire.Controller) error {
	if s.opts.ROIWidth > 0 && s.opts.ROIHeight > 0 {
		if err := ctrl.ConfigureROI(s.opts.ROIWidth, s.opts.ROIHeight); err != nil {
			return err
		}
	}
	if err := ctrl.PreferBayer8(); err != nil {
		return err
	}
	if err := ctrl.ConfigureTrigger(s.opts.Trigger); err != nil {
		return err
	}
	if s.opts.ExposureMicros > 0 {
		if err := ctrl.SetExposure(s.opts.ExposureMicros); err != nil {
			return err
		}
	}
	if s.opts.GainDB > 0 {
		if err := ctrl.SetGain(s.opts.GainDB); err != nil {
			return err
		}
	}
	return nil
}

// applyProfile pushes reloaded exposure/gain between frames. Rejected
// values are logged and skipped; the previous setting stays active.
func (s *Service) applyProfile(ctrl *acquire.Controller, p config.Profile) {
	if p.ExposureMicros > 0 {
		if err := ctrl.SetExposure(p.ExposureMicros); err != nil {
			s.logger.Warn("Profile exposure rejected", "exposure_us", p.ExposureMicros, "error", err)
		}
	}
	if p.GainDB > 0 {
		if err := ctrl.SetGain(p.GainDB); err != nil {
			s.logger.Warn("Profile gain rejected", "gain_db", p.GainDB, "error", err)
		}
	}
	s.publish(events.ProfileReloadedEvent{Path: s.opts.ProfilePath, Timestamp: now()})
	s.logger.Info("Camera profile reloaded", "path", s.opts.ProfilePath)
}
