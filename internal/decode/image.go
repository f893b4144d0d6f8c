package decode

import "image"

// Image is a fixed-stride interleaved 3-channel byte buffer in BGR channel
// order. Pix holds Width*Height*3 bytes, row-major.
type Image struct {
	Width  int
	Height int
	Pix    []byte
}

// NewImage allocates a black BGR image.
func NewImage(width, height int) *Image {
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*3),
	}
}

// Reset resizes the image in place, reusing the pixel buffer when it is
// large enough. Used for the pre-allocated decode scratch buffer so the
// acquisition loop never allocates per frame.
func (m *Image) Reset(width, height int) {
	need := width * height * 3
	if cap(m.Pix) < need {
		m.Pix = make([]byte, need)
	}
	m.Pix = m.Pix[:need]
	m.Width = width
	m.Height = height
}

// At returns the B, G, R bytes at (x, y).
func (m *Image) At(x, y int) (b, g, r byte) {
	i := (y*m.Width + x) * 3
	return m.Pix[i], m.Pix[i+1], m.Pix[i+2]
}

// ToRGBA converts to a standard library image for encoding.
func (m *Image) ToRGBA() *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		src := m.Pix[y*m.Width*3 : (y+1)*m.Width*3]
		dst := out.Pix[y*out.Stride : y*out.Stride+m.Width*4]
		for x := 0; x < m.Width; x++ {
			dst[x*4+0] = src[x*3+2]
			dst[x*4+1] = src[x*3+1]
			dst[x*4+2] = src[x*3+0]
			dst[x*4+3] = 0xFF
		}
	}
	return out
}
