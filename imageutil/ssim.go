package imageutil

import "errors"

// SSIMWindow is the side of the uniform window used by SSIM.
const SSIMWindow = 7

// ErrImageTooSmall is returned when an image cannot hold one SSIM window.
var ErrImageTooSmall = errors.New("image smaller than SSIM window")

// SSIM computes the mean structural similarity between two equally sized
// row-major float images. dataRange is the dynamic range of the values
// (1 for binary masks, 255 for 8-bit images). Local statistics use a
// uniform 7×7 window with sample covariance, and the mean is taken over
// the pixels whose window lies fully inside the image.
func SSIM(a, b []float64, width, height int, dataRange float64) (float64, error) {
	if len(a) != width*height || len(b) != width*height {
		return 0, errors.New("ssim: buffer size does not match dimensions")
	}
	if width < SSIMWindow || height < SSIMWindow {
		return 0, ErrImageTooSmall
	}

	const k1, k2 = 0.01, 0.03
	c1 := (k1 * dataRange) * (k1 * dataRange)
	c2 := (k2 * dataRange) * (k2 * dataRange)

	n := float64(SSIMWindow * SSIMWindow)
	covNorm := n / (n - 1)

	aa := make([]float64, len(a))
	bb := make([]float64, len(a))
	ab := make([]float64, len(a))
	for i := range a {
		aa[i] = a[i] * a[i]
		bb[i] = b[i] * b[i]
		ab[i] = a[i] * b[i]
	}

	box := BoxKernel(SSIMWindow)
	ux := ConvolveFloat(a, width, height, box)
	uy := ConvolveFloat(b, width, height, box)
	uxx := ConvolveFloat(aa, width, height, box)
	uyy := ConvolveFloat(bb, width, height, box)
	uxy := ConvolveFloat(ab, width, height, box)

	pad := SSIMWindow / 2
	var sum float64
	count := 0
	for y := pad; y < height-pad; y++ {
		for x := pad; x < width-pad; x++ {
			i := y*width + x
			vx := covNorm * (uxx[i] - ux[i]*ux[i])
			vy := covNorm * (uyy[i] - uy[i]*uy[i])
			vxy := covNorm * (uxy[i] - ux[i]*uy[i])

			num := (2*ux[i]*uy[i] + c1) * (2*vxy + c2)
			den := (ux[i]*ux[i] + uy[i]*uy[i] + c1) * (vx + vy + c2)
			sum += num / den
			count++
		}
	}

	return sum / float64(count), nil
}

// SSIMGray computes SSIM between two grayscale images scaled to [0, 1].
func SSIMGray(a, b *GrayImage) (float64, error) {
	if a.Width() != b.Width() || a.Height() != b.Height() {
		return 0, errors.New("ssim: image sizes differ")
	}
	fa := a.Floats()
	fb := b.Floats()
	for i := range fa {
		fa[i] /= 255
		fb[i] /= 255
	}
	return SSIM(fa, fb, a.Width(), a.Height(), 1)
}
