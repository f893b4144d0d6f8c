// Package camera owns device discovery and the per-device session state
// machine. It wraps the hal contract with the error taxonomy and the
// no-leak teardown guarantees the rest of the application relies on.
package camera

import (
	"github.com/smazurov/camgrab/internal/hal"
)

// Enumerate queries the transports selected by mask and returns the
// reachable devices. No devices responding is a normal empty result; only
// a transport-layer fault is an error.
func Enumerate(drv hal.Driver, mask hal.Transport) ([]hal.Descriptor, error) {
	descs, err := drv.Enumerate(mask)
	if err != nil {
		return nil, NewError(ErrCodeDiscovery, "device enumeration failed", err)
	}
	return descs, nil
}

// FindByAddress scans list for the device matching the transport-specific
// identity: dotted-quad IP for GigE devices, serial number for USB3. A
// miss is a normal outcome, reported via ok.
func FindByAddress(list []hal.Descriptor, address string) (hal.Descriptor, bool) {
	for _, d := range list {
		if d.Transport == hal.TransportGigE && d.GigE != nil {
			if d.GigE.IPString() == address {
				return d, true
			}
			continue
		}
		if d.Serial == address {
			return d, true
		}
	}
	return hal.Descriptor{}, false
}

// FindBySerial scans list for the device with the given serial number,
// regardless of transport.
func FindBySerial(list []hal.Descriptor, serial string) (hal.Descriptor, bool) {
	for _, d := range list {
		if d.Serial == serial {
			return d, true
		}
	}
	return hal.Descriptor{}, false
}
