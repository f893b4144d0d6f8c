package halsim

import (
	"encoding/binary"
	"time"

	"github.com/smazurov/camgrab/internal/hal"
)

// Trigger enum values as exposed by the device parameter table.
const (
	TriggerModeOff uint32 = 0
	TriggerModeOn  uint32 = 1

	TriggerSourceLine0    uint32 = 0
	TriggerSourceSoftware uint32 = 7

	TriggerEdgeRising  uint32 = 0
	TriggerEdgeFalling uint32 = 1
)

// Exposure and gain limits enforced by the simulated parameter table.
const (
	exposureMinUS = 10
	exposureMaxUS = 10_000_000
	gainMinDB     = 0
	gainMaxDB     = 20
)

type handle struct {
	cam       *Camera
	destroyed bool
}

func (h *handle) Open(mode hal.AccessMode) error {
	c := h.cam
	c.mu.Lock()
	defer c.mu.Unlock()
	if h.destroyed {
		return &hal.StatusError{Op: "Open", Code: StatusHandle}
	}
	if c.failOpenCode != 0 {
		code := c.failOpenCode
		c.failOpenCode = 0
		return &hal.StatusError{Op: "Open", Code: code}
	}
	if c.open {
		// Exclusive access: a second opener is refused.
		return &hal.StatusError{Op: "Open", Code: StatusCallOrder}
	}
	_ = mode
	c.open = true
	c.opens++
	return nil
}

func (h *handle) Close() error {
	c := h.cam
	c.mu.Lock()
	defer c.mu.Unlock()
	c.streaming = false
	c.open = false
	return nil
}

func (h *handle) Destroy() error {
	c := h.cam
	c.mu.Lock()
	defer c.mu.Unlock()
	h.destroyed = true
	c.destroys++
	return nil
}

func (h *handle) requireOpen(op string) error {
	if h.destroyed || !h.cam.open {
		return &hal.StatusError{Op: op, Code: StatusCallOrder}
	}
	return nil
}

func (h *handle) GetInt(name string) (int64, error) {
	c := h.cam
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := h.requireOpen("GetInt " + name); err != nil {
		return 0, err
	}
	switch name {
	case "Width":
		return int64(c.width), nil
	case "Height":
		return int64(c.height), nil
	case "OffsetX":
		return int64(c.offsetX), nil
	case "OffsetY":
		return int64(c.offsetY), nil
	case "WidthMax":
		return int64(c.sensorW), nil
	case "HeightMax":
		return int64(c.sensorH), nil
	case "PayloadSize":
		return int64(c.payloadSize()), nil
	default:
		return 0, &hal.StatusError{Op: "GetInt " + name, Code: StatusSupport}
	}
}

func (h *handle) SetInt(name string, value int64) error {
	c := h.cam
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := h.requireOpen("SetInt " + name); err != nil {
		return err
	}
	if c.streaming {
		// Geometry is locked while the stream engine is running.
		return &hal.StatusError{Op: "SetInt " + name, Code: StatusCallOrder}
	}
	v := int(value)
	reject := func() error {
		return &hal.StatusError{Op: "SetInt " + name, Code: StatusParameter}
	}
	switch name {
	case "Width":
		if v < 1 || v > c.sensorW {
			return reject()
		}
		c.width = v
	case "Height":
		if v < 1 || v > c.sensorH {
			return reject()
		}
		c.height = v
	case "OffsetX":
		if v < 0 || v+c.width > c.sensorW {
			return reject()
		}
		c.offsetX = v
	case "OffsetY":
		if v < 0 || v+c.height > c.sensorH {
			return reject()
		}
		c.offsetY = v
	default:
		return &hal.StatusError{Op: "SetInt " + name, Code: StatusSupport}
	}
	return nil
}

func (h *handle) GetFloat(name string) (float64, error) {
	c := h.cam
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := h.requireOpen("GetFloat " + name); err != nil {
		return 0, err
	}
	switch name {
	case "ExposureTime":
		return c.exposureUS, nil
	case "Gain":
		return c.gainDB, nil
	default:
		return 0, &hal.StatusError{Op: "GetFloat " + name, Code: StatusSupport}
	}
}

func (h *handle) SetFloat(name string, value float64) error {
	c := h.cam
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := h.requireOpen("SetFloat " + name); err != nil {
		return err
	}
	switch name {
	case "ExposureTime":
		if value < exposureMinUS || value > exposureMaxUS {
			return &hal.StatusError{Op: "SetFloat ExposureTime", Code: StatusParameter}
		}
		c.exposureUS = value
	case "Gain":
		if value < gainMinDB || value > gainMaxDB {
			return &hal.StatusError{Op: "SetFloat Gain", Code: StatusParameter}
		}
		c.gainDB = value
	default:
		return &hal.StatusError{Op: "SetFloat " + name, Code: StatusSupport}
	}
	return nil
}

func (h *handle) GetEnum(name string) (uint32, error) {
	c := h.cam
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := h.requireOpen("GetEnum " + name); err != nil {
		return 0, err
	}
	switch name {
	case "PixelFormat":
		return uint32(c.pixelFormat), nil
	case "TriggerMode":
		return c.triggerMode, nil
	case "TriggerSource":
		return c.triggerSource, nil
	case "TriggerActivation":
		return c.triggerEdge, nil
	default:
		return 0, &hal.StatusError{Op: "GetEnum " + name, Code: StatusSupport}
	}
}

func (h *handle) SetEnum(name string, value uint32) error {
	c := h.cam
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := h.requireOpen("SetEnum " + name); err != nil {
		return err
	}
	switch name {
	case "PixelFormat":
		if c.streaming {
			return &hal.StatusError{Op: "SetEnum PixelFormat", Code: StatusCallOrder}
		}
		pf := hal.PixelFormat(value)
		if !c.formats[pf] {
			return &hal.StatusError{Op: "SetEnum PixelFormat", Code: StatusParameter}
		}
		c.pixelFormat = pf
	case "TriggerMode":
		if value != TriggerModeOff && value != TriggerModeOn {
			return &hal.StatusError{Op: "SetEnum TriggerMode", Code: StatusParameter}
		}
		c.triggerMode = value
	case "TriggerSource":
		if value != TriggerSourceLine0 && value != TriggerSourceSoftware {
			return &hal.StatusError{Op: "SetEnum TriggerSource", Code: StatusParameter}
		}
		c.triggerSource = value
	case "TriggerActivation":
		if value != TriggerEdgeRising && value != TriggerEdgeFalling {
			return &hal.StatusError{Op: "SetEnum TriggerActivation", Code: StatusParameter}
		}
		c.triggerEdge = value
	default:
		return &hal.StatusError{Op: "SetEnum " + name, Code: StatusSupport}
	}
	return nil
}

func (h *handle) Command(name string) error {
	c := h.cam
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := h.requireOpen("Command " + name); err != nil {
		return err
	}
	switch name {
	case "TriggerSoftware":
		if c.triggerMode != TriggerModeOn || c.triggerSource != TriggerSourceSoftware {
			return &hal.StatusError{Op: "Command TriggerSoftware", Code: StatusCallOrder}
		}
		select {
		case c.pulses <- struct{}{}:
		default:
		}
		return nil
	default:
		return &hal.StatusError{Op: "Command " + name, Code: StatusSupport}
	}
}

func (h *handle) StartStreaming() error {
	c := h.cam
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := h.requireOpen("StartStreaming"); err != nil {
		return err
	}
	if c.streaming {
		return &hal.StatusError{Op: "StartStreaming", Code: StatusCallOrder}
	}
	c.streaming = true
	return nil
}

func (h *handle) StopStreaming() error {
	c := h.cam
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := h.requireOpen("StopStreaming"); err != nil {
		return err
	}
	c.streaming = false
	return nil
}

func (h *handle) GetFrame(buf []byte, timeout time.Duration) (hal.FrameInfo, error) {
	c := h.cam
	c.mu.Lock()
	if h.destroyed || !c.open || !c.streaming {
		c.mu.Unlock()
		return hal.FrameInfo{}, &hal.StatusError{Op: "GetFrame", Code: StatusCallOrder}
	}
	gated := c.triggerMode == TriggerModeOn
	delay := c.frameDelay
	c.mu.Unlock()

	if gated {
		select {
		case <-c.pulses:
		case <-time.After(timeout):
			return hal.FrameInfo{}, hal.ErrTimeout
		}
	} else if delay > 0 {
		if delay > timeout {
			time.Sleep(timeout)
			return hal.FrameInfo{}, hal.ErrTimeout
		}
		time.Sleep(delay)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.streaming {
		return hal.FrameInfo{}, &hal.StatusError{Op: "GetFrame", Code: StatusCallOrder}
	}
	payload := c.payloadSize()
	if len(buf) < payload {
		return hal.FrameInfo{}, &hal.StatusError{Op: "GetFrame", Code: StatusBufSize}
	}
	c.frameNum++
	fillPattern(buf[:payload], c.width, c.height, c.pixelFormat, c.frameNum)
	return hal.FrameInfo{
		Width:       c.width,
		Height:      c.height,
		PixelFormat: c.pixelFormat,
		FrameNum:    c.frameNum,
		PayloadLen:  payload,
	}, nil
}

// fillPattern writes a deterministic diagonal gradient so tests can assert
// on pixel values without real optics.
func fillPattern(buf []byte, width, height int, pf hal.PixelFormat, frameNum uint32) {
	bits := pf.SampleBits()
	if bits < 8 {
		bits = 8
	}
	shift := uint(bits - 8)
	i := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := byte(x + y + int(frameNum))
			switch pf.BytesPerPixel() {
			case 0, 1:
				buf[i] = v
				i++
			case 2:
				binary.LittleEndian.PutUint16(buf[i:], uint16(v)<<shift)
				i += 2
			case 3:
				buf[i] = v
				buf[i+1] = v
				buf[i+2] = v
				i += 3
			}
		}
	}
}
