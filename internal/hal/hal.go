// Package hal defines the narrow hardware-access contract the rest of the
// application programs against. It mirrors the call surface of the vendor
// camera SDK (enumerate, open, typed parameter access, streaming control,
// frame fetch) without exposing any of its types.
//
// Two backends implement the contract: the cgo binding to the vendor
// library (build tag "mvs") and an in-memory simulator used by tests and
// development machines without camera hardware.
package hal

import (
	"errors"
	"fmt"
	"time"
)

// Transport selects which transport layers an enumeration queries.
// The values match the vendor's device-type mask so they can be passed
// through to the SDK unchanged.
type Transport uint32

const (
	TransportGigE Transport = 0x00000001
	TransportUSB3 Transport = 0x00000004

	TransportAll = TransportGigE | TransportUSB3
)

// String returns a human-readable transport name.
func (t Transport) String() string {
	switch t {
	case TransportGigE:
		return "gige"
	case TransportUSB3:
		return "usb3"
	case TransportAll:
		return "gige|usb3"
	default:
		return fmt.Sprintf("transport(0x%08X)", uint32(t))
	}
}

// AccessMode controls how a handle opens the device.
type AccessMode uint32

const (
	// AccessExclusive locks the device to this handle. Only one exclusive
	// opener is permitted per device; a leaked handle blocks every other
	// process from opening it.
	AccessExclusive AccessMode = 1
)

// ErrTimeout is returned by Handle.GetFrame when no frame arrived within
// the deadline. Backends map their vendor-specific "no data" status onto
// this sentinel so callers can use errors.Is.
var ErrTimeout = errors.New("frame wait timed out")

// StatusError wraps a raw vendor status code. The code is kept verbatim so
// logs show the same 0x%08X value the vendor documentation indexes.
type StatusError struct {
	Op   string
	Code uint32
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed: status 0x%08X", e.Op, e.Code)
}

// IsStatus reports whether err carries the given vendor status code.
func IsStatus(err error, code uint32) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// FrameInfo describes one delivered frame. Dimensions and pixel format are
// the device-reported values for that specific frame; during a parameter
// change they may transiently differ from the configured values, and the
// frame's own tag is authoritative for decoding.
type FrameInfo struct {
	Width       int
	Height      int
	PixelFormat PixelFormat
	FrameNum    uint32
	PayloadLen  int
}

// Handle is an open (or openable) connection to one device.
//
// Lifecycle: CreateHandle -> Open -> ... -> Close -> Destroy. Destroy must
// be called even when Open fails, otherwise the vendor layer leaks the
// allocation backing the handle.
type Handle interface {
	Open(mode AccessMode) error
	Close() error
	Destroy() error

	GetInt(name string) (int64, error)
	SetInt(name string, value int64) error
	GetFloat(name string) (float64, error)
	SetFloat(name string, value float64) error
	GetEnum(name string) (uint32, error)
	SetEnum(name string, value uint32) error
	Command(name string) error

	StartStreaming() error
	StopStreaming() error

	// GetFrame blocks until a frame arrives or the timeout elapses, copying
	// the payload into buf. buf must be at least PayloadSize bytes; the
	// backend never retains it.
	GetFrame(buf []byte, timeout time.Duration) (FrameInfo, error)
}

// Driver is the entry point of a backend.
type Driver interface {
	// Name identifies the backend ("mvs", "sim").
	Name() string

	// Enumerate queries the transport layers selected by mask. Zero
	// reachable devices is a normal result, not an error.
	Enumerate(mask Transport) ([]Descriptor, error)

	// CreateHandle allocates a handle for the described device. The handle
	// is not yet open.
	CreateHandle(desc Descriptor) (Handle, error)
}
