// Package acquire drives frame acquisition over an open camera session:
// ROI, pixel format and trigger configuration, payload-size bookkeeping,
// streaming start/stop, and the blocking frame fetch.
package acquire

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/camgrab/internal/camera"
	"github.com/smazurov/camgrab/internal/decode"
	"github.com/smazurov/camgrab/internal/hal"
)

// StreamConfig is the controller's view of the device streaming state.
// PayloadSize is re-read from the device whenever width, height or pixel
// format change; transfer buffers are reallocated only then, never per
// frame.
type StreamConfig struct {
	Width   int
	Height  int
	OffsetX int
	OffsetY int

	PixelFormat hal.PixelFormat
	PayloadSize int

	Trigger        TriggerConfig
	ExposureMicros float64
	GainDB         float64
}

// Frame is one raw payload as delivered by the device. Data aliases the
// controller's transfer buffer and is overwritten by the next GetFrame;
// Width, Height and PixelFormat are the device-reported values for this
// frame and are authoritative for decoding.
type Frame struct {
	Data        []byte
	Width       int
	Height      int
	PixelFormat hal.PixelFormat
	FrameNum    uint32
}

// Controller configures and drives acquisition on one connected session.
// It exclusively owns the raw transfer buffer and the decode scratch
// buffer.
type Controller struct {
	sess   *camera.Session
	logger *slog.Logger

	mu       sync.Mutex
	cfg      StreamConfig
	sensorW  int
	sensorH  int
	raw      []byte
	scratch  *decode.Image
	rawDirty bool
}

// NewController reads the device's current geometry and format into a
// fresh controller. The session must be Connected.
func NewController(sess *camera.Session, logger *slog.Logger) (*Controller, error) {
	c := &Controller{sess: sess, logger: logger}

	var err error
	read := func(name string) int {
		if err != nil {
			return 0
		}
		var v int64
		v, err = sess.GetInt(name)
		return int(v)
	}

	c.sensorW = read("WidthMax")
	c.sensorH = read("HeightMax")
	c.cfg.Width = read("Width")
	c.cfg.Height = read("Height")
	c.cfg.OffsetX = read("OffsetX")
	c.cfg.OffsetY = read("OffsetY")
	c.cfg.PayloadSize = read("PayloadSize")
	if err != nil {
		return nil, err
	}

	pf, err := sess.GetEnum("PixelFormat")
	if err != nil {
		return nil, err
	}
	c.cfg.PixelFormat = hal.PixelFormat(pf)

	if exp, gerr := sess.GetFloat("ExposureTime"); gerr == nil {
		c.cfg.ExposureMicros = exp
	}
	if gain, gerr := sess.GetFloat("Gain"); gerr == nil {
		c.cfg.GainDB = gain
	}

	logger.Info("Acquisition controller ready",
		"sensor", fmt.Sprintf("%dx%d", c.sensorW, c.sensorH),
		"roi", fmt.Sprintf("%dx%d+%d+%d", c.cfg.Width, c.cfg.Height, c.cfg.OffsetX, c.cfg.OffsetY),
		"pixel_format", c.cfg.PixelFormat,
		"payload_size", c.cfg.PayloadSize)
	return c, nil
}

// Config returns a snapshot of the current stream configuration.
func (c *Controller) Config() StreamConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// SensorSize returns the full sensor extent.
func (c *Controller) SensorSize() (width, height int) {
	return c.sensorW, c.sensorH
}

func (c *Controller) requireNotStreaming(op string) error {
	if c.sess.State() == camera.StateStreaming {
		return camera.NewError(camera.ErrCodeStreamState, op+" is illegal while streaming", nil)
	}
	return nil
}

// CenterOffsets computes the centered, clamped ROI offsets for a request
// against this sensor: floor((sensor-requested)/2), pulled back into range
// when out of bounds.
func (c *Controller) CenterOffsets(width, height int) (offsetX, offsetY int) {
	offsetX = clampOffset((c.sensorW-width)/2, width, c.sensorW)
	offsetY = clampOffset((c.sensorH-height)/2, height, c.sensorH)
	return offsetX, offsetY
}

func clampOffset(offset, extent, sensor int) int {
	if offset > sensor-extent {
		offset = sensor - extent
	}
	if offset < 0 {
		offset = 0
	}
	return offset
}

// ConfigureROI selects a centered readout window. Illegal while streaming.
func (c *Controller) ConfigureROI(width, height int) error {
	offsetX, offsetY := c.CenterOffsets(width, height)
	return c.ConfigureROIWithOffset(width, height, offsetX, offsetY)
}

// ConfigureROIWithOffset selects a readout window at an explicit position.
// Offsets are clamped into the sensor extent; the requested size itself
// must fit the sensor. Illegal while streaming.
func (c *Controller) ConfigureROIWithOffset(width, height, offsetX, offsetY int) error {
	if err := c.requireNotStreaming("ConfigureROI"); err != nil {
		return err
	}
	if width < 1 || width > c.sensorW || height < 1 || height > c.sensorH {
		return camera.NewError(camera.ErrCodeParameter,
			fmt.Sprintf("requested ROI %dx%d exceeds sensor %dx%d", width, height, c.sensorW, c.sensorH), nil)
	}
	offsetX = clampOffset(offsetX, width, c.sensorW)
	offsetY = clampOffset(offsetY, height, c.sensorH)

	// Push order matches the device's constraint checking: extents first,
	// then offsets validated against them.
	if err := c.sess.SetInt("Width", int64(width)); err != nil {
		return err
	}
	if err := c.sess.SetInt("Height", int64(height)); err != nil {
		return err
	}
	if err := c.sess.SetInt("OffsetX", int64(offsetX)); err != nil {
		return err
	}
	if err := c.sess.SetInt("OffsetY", int64(offsetY)); err != nil {
		return err
	}

	c.mu.Lock()
	c.cfg.Width = width
	c.cfg.Height = height
	c.cfg.OffsetX = offsetX
	c.cfg.OffsetY = offsetY
	c.mu.Unlock()

	if err := c.refreshPayloadSize(); err != nil {
		return err
	}
	c.logger.Info("ROI configured",
		"roi", fmt.Sprintf("%dx%d+%d+%d", width, height, offsetX, offsetY),
		"payload_size", c.Config().PayloadSize)
	return nil
}

// ConfigurePixelFormat switches the device pixel format and re-reads the
// payload size. Illegal while streaming.
func (c *Controller) ConfigurePixelFormat(format hal.PixelFormat) error {
	if err := c.requireNotStreaming("ConfigurePixelFormat"); err != nil {
		return err
	}
	if err := c.sess.SetEnum("PixelFormat", uint32(format)); err != nil {
		return err
	}
	c.mu.Lock()
	c.cfg.PixelFormat = format
	c.mu.Unlock()

	if err := c.refreshPayloadSize(); err != nil {
		return err
	}
	c.logger.Info("Pixel format configured", "pixel_format", format)
	return nil
}

// PreferBayer8 switches a higher-bit-depth RG Bayer native format down to
// BayerRG8 to simplify downstream decode. A device that refuses keeps its
// native format; that is not an error, the decoder handles the 10/12-bit
// variants too.
func (c *Controller) PreferBayer8() error {
	cfg := c.Config()
	if !cfg.PixelFormat.IsBayerRG() || cfg.PixelFormat == hal.PixelBayerRG8 {
		return nil
	}
	if err := c.ConfigurePixelFormat(hal.PixelBayerRG8); err != nil {
		if camera.IsCode(err, camera.ErrCodeParameter) {
			c.logger.Warn("Device kept its native pixel format",
				"native", cfg.PixelFormat, "error", err)
			return nil
		}
		return err
	}
	return nil
}

// ConfigureTrigger pushes the gating configuration. Continuous disables
// trigger gating entirely; software and hardware arm it with the matching
// source. Illegal while streaming.
func (c *Controller) ConfigureTrigger(trig TriggerConfig) error {
	if err := c.requireNotStreaming("ConfigureTrigger"); err != nil {
		return err
	}

	switch trig.Mode {
	case TriggerContinuous:
		if err := c.sess.SetEnum("TriggerMode", triggerModeOff); err != nil {
			return err
		}
	case TriggerSoftware:
		if err := c.sess.SetEnum("TriggerMode", triggerModeOn); err != nil {
			return err
		}
		if err := c.sess.SetEnum("TriggerSource", TriggerSourceSoftware); err != nil {
			return err
		}
	case TriggerHardware:
		source := trig.Source
		if source == TriggerSourceSoftware {
			return camera.NewError(camera.ErrCodeParameter,
				"hardware trigger cannot use the software source", nil)
		}
		if err := c.sess.SetEnum("TriggerMode", triggerModeOn); err != nil {
			return err
		}
		if err := c.sess.SetEnum("TriggerSource", source); err != nil {
			return err
		}
		if err := c.sess.SetEnum("TriggerActivation", trig.deviceEdge()); err != nil {
			return err
		}
	default:
		return camera.NewError(camera.ErrCodeParameter,
			fmt.Sprintf("unknown trigger mode %d", trig.Mode), nil)
	}

	c.mu.Lock()
	c.cfg.Trigger = trig
	c.mu.Unlock()
	c.logger.Info("Trigger configured", "mode", trig.Mode, "edge", trig.Edge)
	return nil
}

// SetExposure sets the exposure time in microseconds. Legal in any
// connected state.
func (c *Controller) SetExposure(micros float64) error {
	if err := c.sess.SetFloat("ExposureTime", micros); err != nil {
		return err
	}
	c.mu.Lock()
	c.cfg.ExposureMicros = micros
	c.mu.Unlock()
	return nil
}

// SetGain sets the analog gain in decibels. Legal in any connected state.
func (c *Controller) SetGain(db float64) error {
	if err := c.sess.SetFloat("Gain", db); err != nil {
		return err
	}
	c.mu.Lock()
	c.cfg.GainDB = db
	c.mu.Unlock()
	return nil
}

// refreshPayloadSize re-reads PayloadSize after a geometry or format
// change and marks the transfer buffer for reallocation on next Start.
func (c *Controller) refreshPayloadSize() error {
	size, err := c.sess.GetInt("PayloadSize")
	if err != nil {
		return err
	}
	c.mu.Lock()
	if int(size) != c.cfg.PayloadSize {
		c.cfg.PayloadSize = int(size)
		c.rawDirty = true
	}
	c.mu.Unlock()
	return nil
}

// Start allocates (or resizes) the transfer buffers and begins streaming.
// Fails with a stream-state error when already streaming.
func (c *Controller) Start() error {
	if c.sess.State() == camera.StateStreaming {
		return camera.NewError(camera.ErrCodeStreamState, "already streaming", nil)
	}

	c.mu.Lock()
	if len(c.raw) != c.cfg.PayloadSize || c.rawDirty {
		c.raw = make([]byte, c.cfg.PayloadSize)
		c.rawDirty = false
	}
	if c.scratch == nil {
		c.scratch = decode.NewImage(c.cfg.Width, c.cfg.Height)
	} else {
		c.scratch.Reset(c.cfg.Width, c.cfg.Height)
	}
	c.mu.Unlock()

	if err := c.sess.BeginStreaming(); err != nil {
		return err
	}
	c.logger.Info("Streaming started", "payload_size", c.Config().PayloadSize)
	return nil
}

// SoftwareTrigger sends one trigger pulse. Legal only in software trigger
// mode while streaming; a rejected pulse is recoverable, the caller may
// retry on the next loop iteration.
func (c *Controller) SoftwareTrigger() error {
	c.mu.Lock()
	mode := c.cfg.Trigger.Mode
	c.mu.Unlock()
	if mode != TriggerSoftware {
		return camera.NewError(camera.ErrCodeStreamState,
			fmt.Sprintf("software trigger requires software trigger mode, mode is %s", mode), nil)
	}
	if c.sess.State() != camera.StateStreaming {
		return camera.NewError(camera.ErrCodeStreamState, "software trigger requires streaming", nil)
	}
	return c.sess.Command("TriggerSoftware")
}

// GetFrame blocks until a frame arrives or timeout elapses. On timeout the
// controller stays Streaming, ready for the next call; the returned error
// carries the FRAME_TIMEOUT code. The returned frame aliases the transfer
// buffer and is valid until the next GetFrame.
func (c *Controller) GetFrame(timeout time.Duration) (Frame, error) {
	c.mu.Lock()
	buf := c.raw
	c.mu.Unlock()

	info, err := c.sess.Fetch(buf, timeout)
	if err != nil {
		if errors.Is(err, hal.ErrTimeout) {
			return Frame{}, camera.NewError(camera.ErrCodeTimeout,
				fmt.Sprintf("no frame within %s", timeout), err)
		}
		var ce *camera.Error
		if errors.As(err, &ce) {
			return Frame{}, err
		}
		return Frame{}, camera.NewError(camera.ErrCodeConnection, "frame fetch failed", err)
	}

	n := info.PayloadLen
	if n <= 0 || n > len(buf) {
		n = len(buf)
	}
	return Frame{
		Data:        buf[:n],
		Width:       info.Width,
		Height:      info.Height,
		PixelFormat: info.PixelFormat,
		FrameNum:    info.FrameNum,
	}, nil
}

// Decode converts a frame into the controller's decode scratch buffer.
// The returned image is overwritten by the next Decode call.
func (c *Controller) Decode(frame Frame) (*decode.Image, error) {
	c.mu.Lock()
	scratch := c.scratch
	c.mu.Unlock()
	if scratch == nil {
		scratch = decode.NewImage(frame.Width, frame.Height)
		c.mu.Lock()
		c.scratch = scratch
		c.mu.Unlock()
	}
	if err := decode.Decode(scratch, frame.Data, frame.PixelFormat, frame.Width, frame.Height); err != nil {
		return nil, err
	}
	return scratch, nil
}

// Stop halts streaming. Calling it while already stopped is a no-op; the
// transfer buffers stay allocated for the next Start.
func (c *Controller) Stop() error {
	return c.sess.EndStreaming()
}
