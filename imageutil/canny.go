package imageutil

import "math"

// Default Canny hysteresis thresholds used for glyph edge maps.
const (
	CannyLow  = 50
	CannyHigh = 150
)

// Canny performs Canny edge detection on a grayscale image and returns a
// binary edge map (255 on edges). lowThreshold and highThreshold control
// edge sensitivity.
func Canny(gray *GrayImage, lowThreshold, highThreshold float64) *GrayImage {
	width, height := gray.Width(), gray.Height()
	if width < 3 || height < 3 {
		return NewGrayImage(width, height)
	}

	blurred := ConvolveFloat(gray.Floats(), width, height, GaussianKernel5x5())

	sobelX, sobelY := sobelKernels()
	gx := ConvolveFloat(blurred, width, height, sobelX)
	gy := ConvolveFloat(blurred, width, height, sobelY)

	magnitude := make([]float64, width*height)
	for i := range magnitude {
		magnitude[i] = math.Hypot(gx[i], gy[i])
	}

	suppressed := nonMaxSuppression(magnitude, gx, gy, width, height)
	return hysteresis(suppressed, lowThreshold, highThreshold, width, height)
}

// CannyDefault performs Canny edge detection with thresholds (50, 150).
func CannyDefault(gray *GrayImage) *GrayImage {
	return Canny(gray, CannyLow, CannyHigh)
}

// nonMaxSuppression keeps only pixels that are local maxima along the
// gradient direction, quantised to 0, 45, 90 and 135 degrees.
func nonMaxSuppression(magnitude, gx, gy []float64, width, height int) []float64 {
	suppressed := make([]float64, width*height)

	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			mag := magnitude[i]
			if mag == 0 {
				continue
			}

			angle := math.Atan2(gy[i], gx[i]) * 180 / math.Pi
			if angle < 0 {
				angle += 180
			}

			var q, r float64
			switch {
			case angle < 22.5 || angle >= 157.5:
				q, r = magnitude[i+1], magnitude[i-1]
			case angle < 67.5:
				q, r = magnitude[i+width+1], magnitude[i-width-1]
			case angle < 112.5:
				q, r = magnitude[i+width], magnitude[i-width]
			default:
				q, r = magnitude[i+width-1], magnitude[i-width+1]
			}

			if mag >= q && mag >= r {
				suppressed[i] = mag
			}
		}
	}

	return suppressed
}

// hysteresis classifies pixels as strong or weak and keeps weak pixels
// only when they are 8-connected to a strong one. Connection is traced
// with an explicit stack instead of repeated full-image passes.
func hysteresis(suppressed []float64, low, high float64, width, height int) *GrayImage {
	edges := NewGrayImage(width, height)
	stack := make([]int, 0, 256)

	for i, v := range suppressed {
		if v >= high {
			edges.Pix[(i/width)*edges.Stride+i%width] = 255
			stack = append(stack, i)
		}
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%width, i/width

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || ny < 0 || nx >= width || ny >= height {
					continue
				}
				ni := ny*width + nx
				p := ny*edges.Stride + nx
				if edges.Pix[p] == 0 && suppressed[ni] >= low {
					edges.Pix[p] = 255
					stack = append(stack, ni)
				}
			}
		}
	}

	return edges
}

// EdgeRatio returns the fraction of pixels that lie on an edge.
func EdgeRatio(edges *GrayImage) float64 {
	total := edges.Width() * edges.Height()
	if total == 0 {
		return 0
	}
	return float64(edges.CountNonZero()) / float64(total)
}
