package imageutil

// Skeletonize thins a binary image (non-zero = foreground) to a
// one-pixel-wide medial representation using the Zhang-Suen algorithm.
// The result holds 255 on skeleton pixels and 0 elsewhere.
func Skeletonize(bin *GrayImage) *GrayImage {
	width, height := bin.Width(), bin.Height()

	// Padded working grid so neighbourhood lookups never leave the buffer.
	pw := width + 2
	grid := make([]uint8, pw*(height+2))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if bin.Pix[y*bin.Stride+x] != 0 {
				grid[(y+1)*pw+x+1] = 1
			}
		}
	}

	marked := make([]int, 0, 256)
	for {
		changed := false
		for step := 0; step < 2; step++ {
			marked = marked[:0]
			for y := 1; y <= height; y++ {
				for x := 1; x <= width; x++ {
					i := y*pw + x
					if grid[i] == 1 && thinRemovable(grid, i, pw, step) {
						marked = append(marked, i)
					}
				}
			}
			for _, i := range marked {
				grid[i] = 0
			}
			if len(marked) > 0 {
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	skel := NewGrayImage(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if grid[(y+1)*pw+x+1] == 1 {
				skel.Pix[y*skel.Stride+x] = 255
			}
		}
	}
	return skel
}

// thinRemovable applies the Zhang-Suen deletion test to the pixel at i.
// Neighbours are P2..P9 clockwise starting north.
func thinRemovable(grid []uint8, i, stride, step int) bool {
	p := [8]uint8{
		grid[i-stride],   // P2 north
		grid[i-stride+1], // P3 north-east
		grid[i+1],        // P4 east
		grid[i+stride+1], // P5 south-east
		grid[i+stride],   // P6 south
		grid[i+stride-1], // P7 south-west
		grid[i-1],        // P8 west
		grid[i-stride-1], // P9 north-west
	}

	neighbours := 0
	transitions := 0
	for k := 0; k < 8; k++ {
		neighbours += int(p[k])
		if p[k] == 0 && p[(k+1)%8] == 1 {
			transitions++
		}
	}
	if neighbours < 2 || neighbours > 6 || transitions != 1 {
		return false
	}

	if step == 0 {
		return p[0]*p[2]*p[4] == 0 && p[2]*p[4]*p[6] == 0
	}
	return p[0]*p[2]*p[6] == 0 && p[0]*p[4]*p[6] == 0
}
