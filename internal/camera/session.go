package camera

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/camgrab/internal/hal"
)

// State is the session lifecycle state. It is the sole source of truth for
// which operations are legal.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateStreaming
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateStreaming:
		return "streaming"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session owns the exclusive hardware handle for one device.
//
// Lifecycle: Disconnected --Open--> Connected --Close--> Disconnected,
// with Close also valid (and stream-stopping) from Streaming. Close is
// idempotent and never fails from the caller's perspective; the underlying
// handle is destroyed exactly once on every path, including Open's partial
// failure, so the device's exclusive lock is never leaked.
type Session struct {
	drv    hal.Driver
	logger *slog.Logger

	mu     sync.Mutex
	handle hal.Handle
	state  State
	desc   hal.Descriptor

	// fetches counts in-flight Fetch calls. Close waits on it before
	// destroying the handle, so the driver never sees a freed handle from
	// a blocked frame wait.
	fetches sync.WaitGroup
}

// NewSession creates a disconnected session bound to a driver.
func NewSession(drv hal.Driver, logger *slog.Logger) *Session {
	return &Session{drv: drv, logger: logger}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Descriptor returns the descriptor the session was opened with.
func (s *Session) Descriptor() hal.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.desc
}

// Open acquires the exclusive hardware handle for the described device.
// When handle creation succeeds but the open itself fails, the handle is
// destroyed before the error propagates.
func (s *Session) Open(desc hal.Descriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateDisconnected {
		return NewError(ErrCodeStreamState,
			fmt.Sprintf("open requires a disconnected session, state is %s", s.state), nil)
	}

	handle, err := s.drv.CreateHandle(desc)
	if err != nil {
		return NewError(ErrCodeConnection, "handle creation failed", err)
	}

	if err := handle.Open(hal.AccessExclusive); err != nil {
		// Release the half-built handle; a leak here blocks every other
		// opener of this device.
		if derr := handle.Destroy(); derr != nil {
			s.logger.Warn("Destroying handle after failed open also failed", "error", derr)
		}
		return NewError(ErrCodeConnection,
			fmt.Sprintf("opening device %s failed", desc.Address()), err)
	}

	s.handle = handle
	s.desc = desc
	s.state = StateConnected
	s.logger.Info("Camera connected",
		"model", desc.Model, "serial", desc.Serial, "address", desc.Address())
	return nil
}

// Close releases the device. Valid from Connected or Streaming; calling it
// while Disconnected is a no-op. Release is best effort: failures in the
// underlying close are logged, never returned, and the session always ends
// up Disconnected.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return
	}
	handle := s.handle
	serial := s.desc.Serial
	wasStreaming := s.state == StateStreaming
	s.handle = nil
	s.state = StateDisconnected
	s.mu.Unlock()

	if wasStreaming {
		if err := handle.StopStreaming(); err != nil {
			s.logger.Warn("Stopping stream during close failed", "error", err)
		}
	}
	// An in-flight Fetch still holds the handle; destroying it under a
	// blocked frame wait is a use-after-free against the vendor driver.
	// The stream is already stopped, so the wait ends within its timeout.
	s.fetches.Wait()

	if err := handle.Close(); err != nil {
		s.logger.Warn("Device close failed", "error", err)
	}
	if err := handle.Destroy(); err != nil {
		s.logger.Warn("Handle destroy failed", "error", err)
	}
	s.logger.Info("Camera disconnected", "serial", serial)
}

// requireConnected returns the handle when the session is Connected or
// Streaming. Callers hold no lock; parameter access races with state
// changes are resolved by the device itself rejecting calls on a closed
// handle.
func (s *Session) requireConnected(op string) (hal.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisconnected {
		return nil, NewError(ErrCodeStreamState, op+" requires a connected session", nil)
	}
	return s.handle, nil
}

// GetInt reads a named integer device parameter.
func (s *Session) GetInt(name string) (int64, error) {
	h, err := s.requireConnected("GetInt")
	if err != nil {
		return 0, err
	}
	v, err := h.GetInt(name)
	if err != nil {
		return 0, NewError(ErrCodeParameter, "reading "+name+" failed", err)
	}
	return v, nil
}

// SetInt writes a named integer device parameter. Rejection leaves the
// session state unchanged; the caller may retry with a corrected value.
func (s *Session) SetInt(name string, value int64) error {
	h, err := s.requireConnected("SetInt")
	if err != nil {
		return err
	}
	if err := h.SetInt(name, value); err != nil {
		return NewError(ErrCodeParameter, fmt.Sprintf("setting %s=%d rejected", name, value), err)
	}
	return nil
}

// GetFloat reads a named float device parameter.
func (s *Session) GetFloat(name string) (float64, error) {
	h, err := s.requireConnected("GetFloat")
	if err != nil {
		return 0, err
	}
	v, err := h.GetFloat(name)
	if err != nil {
		return 0, NewError(ErrCodeParameter, "reading "+name+" failed", err)
	}
	return v, nil
}

// SetFloat writes a named float device parameter.
func (s *Session) SetFloat(name string, value float64) error {
	h, err := s.requireConnected("SetFloat")
	if err != nil {
		return err
	}
	if err := h.SetFloat(name, value); err != nil {
		return NewError(ErrCodeParameter, fmt.Sprintf("setting %s=%g rejected", name, value), err)
	}
	return nil
}

// GetEnum reads a named enumerated device parameter.
func (s *Session) GetEnum(name string) (uint32, error) {
	h, err := s.requireConnected("GetEnum")
	if err != nil {
		return 0, err
	}
	v, err := h.GetEnum(name)
	if err != nil {
		return 0, NewError(ErrCodeParameter, "reading "+name+" failed", err)
	}
	return v, nil
}

// SetEnum writes a named enumerated device parameter.
func (s *Session) SetEnum(name string, value uint32) error {
	h, err := s.requireConnected("SetEnum")
	if err != nil {
		return err
	}
	if err := h.SetEnum(name, value); err != nil {
		return NewError(ErrCodeParameter, fmt.Sprintf("setting %s=%d rejected", name, value), err)
	}
	return nil
}

// Command executes a named device command (e.g. the software trigger).
func (s *Session) Command(name string) error {
	h, err := s.requireConnected("Command")
	if err != nil {
		return err
	}
	if err := h.Command(name); err != nil {
		return NewError(ErrCodeParameter, "command "+name+" rejected", err)
	}
	return nil
}

// BeginStreaming transitions Connected -> Streaming. Only the acquisition
// controller calls this, after its transfer buffers match the current
// payload size.
func (s *Session) BeginStreaming() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnected {
		return NewError(ErrCodeStreamState,
			fmt.Sprintf("streaming can only start from connected, state is %s", s.state), nil)
	}
	if err := s.handle.StartStreaming(); err != nil {
		return NewError(ErrCodeConnection, "starting stream failed", err)
	}
	s.state = StateStreaming
	return nil
}

// EndStreaming transitions Streaming -> Connected. Calling it while
// already Connected is a no-op.
func (s *Session) EndStreaming() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateConnected:
		return nil
	case StateDisconnected:
		return NewError(ErrCodeStreamState, "stop requires a connected session", nil)
	}
	if err := s.handle.StopStreaming(); err != nil {
		// The device may already have halted; state still moves back so
		// the session does not get stuck in Streaming.
		s.logger.Warn("Stopping stream reported an error", "error", err)
	}
	s.state = StateConnected
	return nil
}

// Fetch performs the blocking frame read. Exposed for the acquisition
// controller, which owns buf.
func (s *Session) Fetch(buf []byte, timeout time.Duration) (hal.FrameInfo, error) {
	s.mu.Lock()
	if s.state != StateStreaming {
		s.mu.Unlock()
		return hal.FrameInfo{}, NewError(ErrCodeStreamState, "fetch requires a streaming session", nil)
	}
	h := s.handle
	// Registered under the lock, so Close cannot start waiting between
	// the state check and the Add.
	s.fetches.Add(1)
	s.mu.Unlock()
	defer s.fetches.Done()

	// The lock is dropped for the blocking wait so Close initiated from a
	// signal handler can begin the teardown; it still waits for this call
	// to return before the handle is destroyed.
	return h.GetFrame(buf, timeout)
}
