package acquire

import "fmt"

// TriggerMode is the acquisition gating policy.
type TriggerMode int

const (
	// TriggerContinuous free-runs: the sensor exposes and delivers frames
	// on its own clock.
	TriggerContinuous TriggerMode = iota
	// TriggerSoftware gates each exposure on a SoftwareTrigger call.
	TriggerSoftware
	// TriggerHardware gates each exposure on an external line edge.
	TriggerHardware
)

// String returns the mode name used on the command line.
func (m TriggerMode) String() string {
	switch m {
	case TriggerContinuous:
		return "continuous"
	case TriggerSoftware:
		return "software"
	case TriggerHardware:
		return "hardware"
	default:
		return fmt.Sprintf("trigger(%d)", int(m))
	}
}

// ParseTriggerMode converts a command-line mode name.
func ParseTriggerMode(s string) (TriggerMode, error) {
	switch s {
	case "continuous", "":
		return TriggerContinuous, nil
	case "software":
		return TriggerSoftware, nil
	case "hardware":
		return TriggerHardware, nil
	default:
		return 0, fmt.Errorf("unknown trigger mode %q (continuous, software, hardware)", s)
	}
}

// TriggerEdge selects the active edge for hardware triggering.
type TriggerEdge int

const (
	EdgeRising TriggerEdge = iota
	EdgeFalling
)

// String returns the edge name.
func (e TriggerEdge) String() string {
	if e == EdgeFalling {
		return "falling"
	}
	return "rising"
}

// Device enum values for the trigger parameters, as the GenICam feature
// tree defines them.
const (
	triggerModeOff uint32 = 0
	triggerModeOn  uint32 = 1

	// TriggerSourceLine0 is the default external input line.
	TriggerSourceLine0 uint32 = 0
	// TriggerSourceSoftware selects the SoftwareTrigger command as source.
	TriggerSourceSoftware uint32 = 7

	edgeRising  uint32 = 0
	edgeFalling uint32 = 1
)

// TriggerConfig is the full gating configuration pushed to the device.
// Source and Edge only apply to hardware mode; a zero Source selects
// Line0.
type TriggerConfig struct {
	Mode   TriggerMode
	Source uint32
	Edge   TriggerEdge
}

func (t TriggerConfig) deviceEdge() uint32 {
	if t.Edge == EdgeFalling {
		return edgeFalling
	}
	return edgeRising
}
