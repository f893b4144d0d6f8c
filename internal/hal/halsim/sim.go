// Package halsim provides an in-memory implementation of the hal contract.
// It models one or more cameras with a parameter table, ROI limits,
// trigger gating and a synthetic frame generator, so the session and
// acquisition logic can be exercised without hardware or the vendor SDK.
package halsim

import (
	"sync"
	"time"

	"github.com/smazurov/camgrab/internal/hal"
)

// Vendor status codes reproduced by the simulator. Values follow the MVS
// convention so log output looks the same against either backend.
const (
	StatusHandle    = 0x80000000
	StatusSupport   = 0x80000001
	StatusCallOrder = 0x80000003
	StatusParameter = 0x80000004
	StatusNoData    = 0x80000007
	StatusBufSize   = 0x8000000A
)

// Config describes one simulated camera.
type Config struct {
	Transport    hal.Transport
	Manufacturer string
	Model        string
	Serial       string
	IP           uint32 // GigE only, packed big-endian
	VendorID     uint16 // USB3 only
	ProductID    uint16

	SensorWidth  int
	SensorHeight int
	// NativeFormat is the pixel format the camera powers up with.
	NativeFormat hal.PixelFormat
	// Formats lists the selectable pixel formats. NativeFormat is always
	// included.
	Formats []hal.PixelFormat
	// FrameDelay is the free-run interval between frames. Zero means
	// frames are available immediately.
	FrameDelay time.Duration
}

// Camera is one simulated device. All state behind mu; the handle type is
// a thin view over it.
type Camera struct {
	mu   sync.Mutex
	desc hal.Descriptor

	sensorW, sensorH int
	width, height    int
	offsetX, offsetY int
	pixelFormat      hal.PixelFormat
	formats          map[hal.PixelFormat]bool
	exposureUS       float64
	gainDB           float64
	triggerMode      uint32
	triggerSource    uint32
	triggerEdge      uint32
	frameDelay       time.Duration

	open      bool
	streaming bool
	frameNum  uint32
	pulses    chan struct{}

	failOpenCode uint32
	opens        int
	destroys     int
}

// NewCamera builds a simulated camera from cfg. Zero-value dimensions
// default to a 1920x1200 sensor with a BayerRG12 native format, matching
// the class of sensor the acquisition path targets.
func NewCamera(cfg Config) *Camera {
	if cfg.SensorWidth == 0 {
		cfg.SensorWidth = 1920
	}
	if cfg.SensorHeight == 0 {
		cfg.SensorHeight = 1200
	}
	if cfg.NativeFormat == 0 {
		cfg.NativeFormat = hal.PixelBayerRG12
	}
	if cfg.Transport == 0 {
		cfg.Transport = hal.TransportGigE
	}
	if cfg.Serial == "" {
		cfg.Serial = "SIM00000001"
	}

	formats := map[hal.PixelFormat]bool{cfg.NativeFormat: true}
	for _, f := range cfg.Formats {
		formats[f] = true
	}

	desc := hal.Descriptor{
		Transport:    cfg.Transport,
		Manufacturer: cfg.Manufacturer,
		Model:        cfg.Model,
		Serial:       cfg.Serial,
	}
	if desc.Manufacturer == "" {
		desc.Manufacturer = "Simulated"
	}
	if desc.Model == "" {
		desc.Model = "SIM-CA013"
	}
	switch cfg.Transport {
	case hal.TransportGigE:
		desc.GigE = &hal.GigEInfo{CurrentIP: cfg.IP}
	case hal.TransportUSB3:
		desc.USB3 = &hal.USB3Info{VendorID: cfg.VendorID, ProductID: cfg.ProductID}
	}

	return &Camera{
		desc:        desc,
		sensorW:     cfg.SensorWidth,
		sensorH:     cfg.SensorHeight,
		width:       cfg.SensorWidth,
		height:      cfg.SensorHeight,
		pixelFormat: cfg.NativeFormat,
		formats:     formats,
		exposureUS:  10000,
		frameDelay:  cfg.FrameDelay,
		pulses:      make(chan struct{}, 4),
	}
}

// Descriptor returns the enumeration descriptor for this camera.
func (c *Camera) Descriptor() hal.Descriptor { return c.desc }

// FailOpen makes the next Open return the given vendor status code.
// The handle is still created, which is exactly the partial-failure branch
// the session teardown logic has to cover.
func (c *Camera) FailOpen(code uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failOpenCode = code
}

// Pulse injects one external trigger edge, as a hardware line would.
func (c *Camera) Pulse() {
	select {
	case c.pulses <- struct{}{}:
	default:
	}
}

// DestroyCount reports how many times the camera's handle was destroyed.
func (c *Camera) DestroyCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroys
}

// OpenCount reports how many times the camera was opened.
func (c *Camera) OpenCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens
}

// IsOpen reports whether an exclusive open is currently held.
func (c *Camera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// IsStreaming reports whether the camera is delivering frames.
func (c *Camera) IsStreaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streaming
}

func (c *Camera) payloadSize() int {
	bpp := c.pixelFormat.BytesPerPixel()
	if bpp == 0 {
		// Formats the decoder does not know still transfer; assume one
		// byte per pixel so the unsupported-format path stays reachable.
		bpp = 1
	}
	return c.width * c.height * bpp
}

// Driver implements hal.Driver over a fixed set of simulated cameras.
type Driver struct {
	mu      sync.Mutex
	cameras []*Camera
	enumErr error
}

// New creates a simulator driver exposing the given cameras.
func New(cameras ...*Camera) *Driver {
	return &Driver{cameras: cameras}
}

// FailEnumerate makes every subsequent Enumerate call return err,
// simulating a transport-layer fault.
func (d *Driver) FailEnumerate(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enumErr = err
}

// Name implements hal.Driver.
func (d *Driver) Name() string { return "sim" }

// Enumerate implements hal.Driver.
func (d *Driver) Enumerate(mask hal.Transport) ([]hal.Descriptor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.enumErr != nil {
		return nil, d.enumErr
	}
	descs := make([]hal.Descriptor, 0, len(d.cameras))
	for _, c := range d.cameras {
		if c.desc.Transport&mask != 0 {
			descs = append(descs, c.desc)
		}
	}
	return descs, nil
}

// CreateHandle implements hal.Driver.
func (d *Driver) CreateHandle(desc hal.Descriptor) (hal.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.cameras {
		if c.desc.Serial == desc.Serial {
			return &handle{cam: c}, nil
		}
	}
	return nil, &hal.StatusError{Op: "CreateHandle", Code: StatusHandle}
}
