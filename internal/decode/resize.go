package decode

// Resize scales src to width x height with bilinear interpolation and
// returns a new image. src is unchanged. Requesting the source size
// returns a copy.
func Resize(src *Image, width, height int) *Image {
	out := NewImage(width, height)
	if src.Width == 0 || src.Height == 0 || width == 0 || height == 0 {
		return out
	}
	if width == src.Width && height == src.Height {
		copy(out.Pix, src.Pix)
		return out
	}

	xRatio := float64(src.Width-1) / float64(max(width-1, 1))
	yRatio := float64(src.Height-1) / float64(max(height-1, 1))

	for y := 0; y < height; y++ {
		sy := float64(y) * yRatio
		y0 := int(sy)
		y1 := min(y0+1, src.Height-1)
		fy := sy - float64(y0)

		for x := 0; x < width; x++ {
			sx := float64(x) * xRatio
			x0 := int(sx)
			x1 := min(x0+1, src.Width-1)
			fx := sx - float64(x0)

			di := (y*width + x) * 3
			for c := 0; c < 3; c++ {
				p00 := float64(src.Pix[(y0*src.Width+x0)*3+c])
				p01 := float64(src.Pix[(y0*src.Width+x1)*3+c])
				p10 := float64(src.Pix[(y1*src.Width+x0)*3+c])
				p11 := float64(src.Pix[(y1*src.Width+x1)*3+c])

				top := p00 + (p01-p00)*fx
				bot := p10 + (p11-p10)*fx
				out.Pix[di+c] = byte(top + (bot-top)*fy + 0.5)
			}
		}
	}
	return out
}
