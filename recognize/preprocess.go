package recognize

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/wbrown/sheetmatch/imageutil"
)

// MaxWidth is the widest image passed to OCR; wider photos are scaled
// down.
const MaxWidth = 1024

// Preprocess prepares a photo of a marking for OCR: it limits the width,
// converts to grayscale, darkens with a 0.8 gamma, raises contrast and
// removes speckle noise, then binarizes with Otsu's threshold. The result
// is dark text on a light background regardless of the package color.
func Preprocess(img image.Image) *imageutil.GrayImage {
	if img.Bounds().Dx() > MaxWidth {
		img = imaging.Resize(img, MaxWidth, 0, imaging.Lanczos)
	}
	gray := imaging.Grayscale(img)
	gray = imaging.AdjustGamma(gray, 0.8)
	gray = imaging.AdjustContrast(gray, 40)
	gray = imaging.Blur(gray, 0.8)

	out := imageutil.GrayImageFromImage(gray)
	bin := out.Threshold(otsuLevel(out))

	// Markings are usually light print on a dark package, so a mostly
	// dark result is inverted.
	if bin.CountNonZero()*2 < bin.Width()*bin.Height() {
		bin = GrayInvert(bin)
	}
	return bin
}

// GrayInvert returns the negative of img.
func GrayInvert(img *imageutil.GrayImage) *imageutil.GrayImage {
	return imageutil.GrayImageFromImage(imaging.Invert(img.Gray))
}

// otsuLevel returns the threshold that maximizes the between-class
// variance of the image histogram.
func otsuLevel(img *imageutil.GrayImage) uint8 {
	var hist [256]int
	width, height := img.Width(), img.Height()
	for y := 0; y < height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+width]
		for _, v := range row {
			hist[v]++
		}
	}

	total := width * height
	if total == 0 {
		return 128
	}
	var sum float64
	for i, n := range hist {
		sum += float64(i * n)
	}

	var sumB, best float64
	var weightB int
	level := 0
	for i, n := range hist {
		weightB += n
		if weightB == 0 {
			continue
		}
		weightF := total - weightB
		if weightF == 0 {
			break
		}
		sumB += float64(i * n)
		meanB := sumB / float64(weightB)
		meanF := (sum - sumB) / float64(weightF)
		between := float64(weightB) * float64(weightF) * (meanB - meanF) * (meanB - meanF)
		if between > best {
			best, level = between, i
		}
	}
	// Threshold keeps pixels at or above the level, so the boundary
	// class of Otsu's split goes to the background.
	return uint8(level + 1)
}
