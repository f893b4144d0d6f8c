package hal

import "fmt"

// GigEInfo carries the GigE-specific identity of an enumerated device.
// The IP is kept in the vendor's packed big-endian form and formatted on
// demand.
type GigEInfo struct {
	CurrentIP  uint32
	SubnetMask uint32
	Gateway    uint32
}

// IPString formats the packed address as a dotted quad.
func (g GigEInfo) IPString() string {
	ip := g.CurrentIP
	return fmt.Sprintf("%d.%d.%d.%d", (ip>>24)&0xFF, (ip>>16)&0xFF, (ip>>8)&0xFF, ip&0xFF)
}

// USB3Info carries the USB3-specific identity of an enumerated device.
type USB3Info struct {
	VendorID  uint16
	ProductID uint16
	GUID      string
}

// Descriptor identifies one enumerated device. The transport-specific
// portion is a tagged union keyed by Transport: exactly one of GigE/USB3
// is non-nil, matching the transport kind.
type Descriptor struct {
	Transport    Transport
	Manufacturer string
	Model        string
	Serial       string

	GigE *GigEInfo
	USB3 *USB3Info
}

// Address returns the transport-specific identity used to match a device:
// the dotted-quad IP for GigE, the serial number for USB3.
func (d Descriptor) Address() string {
	switch {
	case d.Transport == TransportGigE && d.GigE != nil:
		return d.GigE.IPString()
	default:
		return d.Serial
	}
}

// String renders the descriptor for listings and logs.
func (d Descriptor) String() string {
	return fmt.Sprintf("%s %s %s (%s, %s)", d.Manufacturer, d.Model, d.Serial, d.Transport, d.Address())
}
