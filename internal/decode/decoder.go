// Package decode converts raw sensor payloads into displayable BGR images.
// Decoding is a pure function of (payload, pixel format, dimensions); the
// decoder never mutates the payload and carries no state of its own.
package decode

import (
	"encoding/binary"
	"fmt"

	"github.com/smazurov/camgrab/internal/hal"
)

// UnsupportedFormatError reports a pixel-format code the decoder has no
// handler for. Callers skip the frame and keep acquiring.
type UnsupportedFormatError struct {
	Format hal.PixelFormat
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported pixel format %s", e.Format)
}

// Decode converts one raw payload into dst. Dimensions and format must be
// the ones tagged on the frame itself, not the configured values: during a
// parameter change the device may still deliver a frame in the old shape.
//
// Handled formats:
//   - BayerRG8: bilinear 2x2 demosaic.
//   - BayerRG10/12 (plain and packed): 2-byte little-endian samples,
//     right-shifted down to 8 bits, then demosaiced. The shift discards the
//     low-order bits without rounding; the precision loss is intentional.
//   - Mono8: grayscale replicated into all three channels.
//   - BGR8: already in target layout, copied through.
//
// Anything else returns UnsupportedFormatError.
func Decode(dst *Image, raw []byte, format hal.PixelFormat, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid frame dimensions %dx%d", width, height)
	}
	n := width * height

	switch format {
	case hal.PixelBayerRG8:
		if len(raw) < n {
			return fmt.Errorf("payload too short for %s %dx%d: %d bytes", format, width, height, len(raw))
		}
		dst.Reset(width, height)
		demosaicRGGB(dst, raw[:n], width, height)
		return nil

	case hal.PixelBayerRG10, hal.PixelBayerRG10Packed, hal.PixelBayerRG12, hal.PixelBayerRG12Packed:
		if len(raw) < 2*n {
			return fmt.Errorf("payload too short for %s %dx%d: %d bytes", format, width, height, len(raw))
		}
		plane := reduceTo8(raw, n, uint(format.SampleBits()-8))
		dst.Reset(width, height)
		demosaicRGGB(dst, plane, width, height)
		return nil

	case hal.PixelMono8:
		if len(raw) < n {
			return fmt.Errorf("payload too short for %s %dx%d: %d bytes", format, width, height, len(raw))
		}
		dst.Reset(width, height)
		expandGray(dst, raw[:n])
		return nil

	case hal.PixelBGR8:
		if len(raw) < 3*n {
			return fmt.Errorf("payload too short for %s %dx%d: %d bytes", format, width, height, len(raw))
		}
		dst.Reset(width, height)
		copy(dst.Pix, raw[:3*n])
		return nil

	default:
		return &UnsupportedFormatError{Format: format}
	}
}

// reduceTo8 reinterprets raw as n little-endian 16-bit samples and shifts
// each down to 8 significant bits.
func reduceTo8(raw []byte, n int, shift uint) []byte {
	plane := make([]byte, n)
	for i := 0; i < n; i++ {
		plane[i] = byte(binary.LittleEndian.Uint16(raw[2*i:]) >> shift)
	}
	return plane
}

// expandGray replicates a single-channel plane into B, G and R.
func expandGray(dst *Image, plane []byte) {
	for i, v := range plane {
		dst.Pix[i*3] = v
		dst.Pix[i*3+1] = v
		dst.Pix[i*3+2] = v
	}
}
