package hal

import "fmt"

// PixelFormat is a GenICam GVSP pixel-format code as reported by the
// device. The upper bits encode layout and bits-per-pixel; the constants
// below are the formats the acquisition path understands.
type PixelFormat uint32

const (
	PixelMono8 PixelFormat = 0x01080001

	PixelBayerRG8        PixelFormat = 0x01080009
	PixelBayerRG10       PixelFormat = 0x0110000D
	PixelBayerRG10Packed PixelFormat = 0x010C0027
	PixelBayerRG12       PixelFormat = 0x01100011
	PixelBayerRG12Packed PixelFormat = 0x010C002B

	PixelBGR8 PixelFormat = 0x02180014
)

// String returns the GenICam name for known codes and the raw hex code
// otherwise.
func (p PixelFormat) String() string {
	switch p {
	case PixelMono8:
		return "Mono8"
	case PixelBayerRG8:
		return "BayerRG8"
	case PixelBayerRG10:
		return "BayerRG10"
	case PixelBayerRG10Packed:
		return "BayerRG10Packed"
	case PixelBayerRG12:
		return "BayerRG12"
	case PixelBayerRG12Packed:
		return "BayerRG12Packed"
	case PixelBGR8:
		return "BGR8"
	default:
		return fmt.Sprintf("0x%08X", uint32(p))
	}
}

// SampleBits returns the significant bits per sample for formats the
// decoder understands, and 0 for unknown codes.
func (p PixelFormat) SampleBits() int {
	switch p {
	case PixelMono8, PixelBayerRG8, PixelBGR8:
		return 8
	case PixelBayerRG10, PixelBayerRG10Packed:
		return 10
	case PixelBayerRG12, PixelBayerRG12Packed:
		return 12
	default:
		return 0
	}
}

// IsBayerRG reports whether the format is any bit depth of the RG-pattern
// Bayer family.
func (p PixelFormat) IsBayerRG() bool {
	switch p {
	case PixelBayerRG8, PixelBayerRG10, PixelBayerRG10Packed, PixelBayerRG12, PixelBayerRG12Packed:
		return true
	default:
		return false
	}
}

// BytesPerPixel returns the transfer size of one pixel for known formats.
// The 10/12-bit Bayer variants are transferred as 2-byte samples.
func (p PixelFormat) BytesPerPixel() int {
	switch p {
	case PixelMono8, PixelBayerRG8:
		return 1
	case PixelBayerRG10, PixelBayerRG10Packed, PixelBayerRG12, PixelBayerRG12Packed:
		return 2
	case PixelBGR8:
		return 3
	default:
		return 0
	}
}
