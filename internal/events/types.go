package events

// Event type constants for kelindar/event.
const (
	TypeFrameCaptured uint32 = iota + 1
	TypeFrameDropped
	TypeDeviceDiscovery
	TypeAcquisitionState
	TypeProfileReloaded
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// FrameCapturedEvent is published after a frame was fetched, decoded and
// handed to the sink.
type FrameCapturedEvent struct {
	Serial      string `json:"serial"`
	FrameNum    uint32 `json:"frame_num"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	PixelFormat string `json:"pixel_format"`
	SavedPath   string `json:"saved_path,omitempty"`
	Timestamp   string `json:"timestamp"`
}

// Type returns the event type identifier for FrameCapturedEvent.
func (e FrameCapturedEvent) Type() uint32 { return TypeFrameCaptured }

// FrameDroppedEvent is published when a fetch timed out or a frame could
// not be decoded. The acquisition loop continues either way.
type FrameDroppedEvent struct {
	Serial    string `json:"serial"`
	Reason    string `json:"reason" example:"timeout"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for FrameDroppedEvent.
func (e FrameDroppedEvent) Type() uint32 { return TypeFrameDropped }

// DeviceDiscoveryEvent reports the result of a device enumeration.
type DeviceDiscoveryEvent struct {
	Transport string `json:"transport"`
	Count     int    `json:"count"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for DeviceDiscoveryEvent.
func (e DeviceDiscoveryEvent) Type() uint32 { return TypeDeviceDiscovery }

// AcquisitionStateEvent reports a session state transition.
type AcquisitionStateEvent struct {
	Serial    string `json:"serial"`
	State     string `json:"state" example:"streaming"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for AcquisitionStateEvent.
func (e AcquisitionStateEvent) Type() uint32 { return TypeAcquisitionState }

// ProfileReloadedEvent is published when the camera profile file changed
// on disk and its settings were applied to the running device.
type ProfileReloadedEvent struct {
	Path      string `json:"path"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for ProfileReloadedEvent.
func (e ProfileReloadedEvent) Type() uint32 { return TypeProfileReloaded }
