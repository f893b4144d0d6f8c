package decode

// demosaicRGGB reconstructs full BGR color from an RG-pattern Bayer plane
// by bilinear interpolation: each missing channel is the average of the
// in-bounds neighbors that sensed it. The pattern tiles as
//
//	R G
//	G B
//
// with R at even row / even column.
func demosaicRGGB(dst *Image, plane []byte, width, height int) {
	at := func(x, y int) int { return int(plane[y*width+x]) }

	// avg accumulates only neighbors inside the sensor area, so edge
	// pixels interpolate from whatever neighbors exist.
	avg := func(coords ...[2]int) byte {
		sum, cnt := 0, 0
		for _, c := range coords {
			x, y := c[0], c[1]
			if x >= 0 && x < width && y >= 0 && y < height {
				sum += at(x, y)
				cnt++
			}
		}
		if cnt == 0 {
			return 0
		}
		return byte(sum / cnt)
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var b, g, r byte
			evenRow := y%2 == 0
			evenCol := x%2 == 0

			switch {
			case evenRow && evenCol: // red site
				r = plane[y*width+x]
				g = avg([2]int{x - 1, y}, [2]int{x + 1, y}, [2]int{x, y - 1}, [2]int{x, y + 1})
				b = avg([2]int{x - 1, y - 1}, [2]int{x + 1, y - 1}, [2]int{x - 1, y + 1}, [2]int{x + 1, y + 1})

			case evenRow && !evenCol: // green site on a red row
				g = plane[y*width+x]
				r = avg([2]int{x - 1, y}, [2]int{x + 1, y})
				b = avg([2]int{x, y - 1}, [2]int{x, y + 1})

			case !evenRow && evenCol: // green site on a blue row
				g = plane[y*width+x]
				r = avg([2]int{x, y - 1}, [2]int{x, y + 1})
				b = avg([2]int{x - 1, y}, [2]int{x + 1, y})

			default: // blue site
				b = plane[y*width+x]
				g = avg([2]int{x - 1, y}, [2]int{x + 1, y}, [2]int{x, y - 1}, [2]int{x, y + 1})
				r = avg([2]int{x - 1, y - 1}, [2]int{x + 1, y - 1}, [2]int{x - 1, y + 1}, [2]int{x + 1, y + 1})
			}

			i := (y*width + x) * 3
			dst.Pix[i] = b
			dst.Pix[i+1] = g
			dst.Pix[i+2] = r
		}
	}
}
