// Package imageutil provides the pure Go raster operations behind glyph
// footprint comparison: gray image wrappers, convolution, Canny edges,
// thinning, structural similarity and contour geometry.
package imageutil

import (
	"image"
	"image/color"
)

// GrayImage wraps image.Gray for single-channel images (footprints,
// binary masks, edge maps).
type GrayImage struct {
	*image.Gray
}

// NewGrayImage creates a new GrayImage with the specified dimensions.
func NewGrayImage(width, height int) *GrayImage {
	return &GrayImage{
		Gray: image.NewGray(image.Rect(0, 0, width, height)),
	}
}

// GrayImageFromImage converts any image.Image to GrayImage. The result
// always starts at the origin.
func GrayImageFromImage(img image.Image) *GrayImage {
	bounds := img.Bounds()
	gray := NewGrayImage(bounds.Dx(), bounds.Dy())

	if src, ok := img.(*image.Gray); ok {
		for y := 0; y < bounds.Dy(); y++ {
			srcRow := src.Pix[(y+bounds.Min.Y-src.Rect.Min.Y)*src.Stride+(bounds.Min.X-src.Rect.Min.X):]
			copy(gray.Pix[y*gray.Stride:y*gray.Stride+bounds.Dx()], srcRow[:bounds.Dx()])
		}
		return gray
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x-bounds.Min.X, y-bounds.Min.Y, img.At(x, y))
		}
	}
	return gray
}

// Width returns the image width.
func (img *GrayImage) Width() int {
	return img.Bounds().Dx()
}

// Height returns the image height.
func (img *GrayImage) Height() int {
	return img.Bounds().Dy()
}

// GetGray returns the grayscale value at (x, y).
func (img *GrayImage) GetGray(x, y int) uint8 {
	return img.GrayAt(x, y).Y
}

// SetGrayValue sets the grayscale value at (x, y).
func (img *GrayImage) SetGrayValue(x, y int, v uint8) {
	img.Gray.SetGray(x, y, color.Gray{Y: v})
}

// Clone creates a deep copy of the image.
func (img *GrayImage) Clone() *GrayImage {
	clone := NewGrayImage(img.Width(), img.Height())
	for y := 0; y < img.Height(); y++ {
		copy(clone.Pix[y*clone.Stride:], img.Pix[y*img.Stride:y*img.Stride+img.Width()])
	}
	return clone
}

// Floats returns the pixel values in row-major order.
func (img *GrayImage) Floats() []float64 {
	width, height := img.Width(), img.Height()
	out := make([]float64, width*height)
	for y := 0; y < height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < width; x++ {
			out[y*width+x] = float64(row[x])
		}
	}
	return out
}

// Threshold returns a binary image: 255 where the pixel is at least
// level, 0 elsewhere.
func (img *GrayImage) Threshold(level uint8) *GrayImage {
	width, height := img.Width(), img.Height()
	bin := NewGrayImage(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if img.Pix[y*img.Stride+x] >= level {
				bin.Pix[y*bin.Stride+x] = 255
			}
		}
	}
	return bin
}

// CountNonZero returns the number of pixels with a non-zero value.
func (img *GrayImage) CountNonZero() int {
	count := 0
	for y := 0; y < img.Height(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+img.Width()]
		for _, v := range row {
			if v != 0 {
				count++
			}
		}
	}
	return count
}

// IsBlank reports whether every pixel is zero.
func (img *GrayImage) IsBlank() bool {
	return img.CountNonZero() == 0
}

// Equal reports whether two images have the same size and pixels.
func (img *GrayImage) Equal(other *GrayImage) bool {
	if img.Width() != other.Width() || img.Height() != other.Height() {
		return false
	}
	for y := 0; y < img.Height(); y++ {
		a := img.Pix[y*img.Stride : y*img.Stride+img.Width()]
		b := other.Pix[y*other.Stride : y*other.Stride+other.Width()]
		for x := range a {
			if a[x] != b[x] {
				return false
			}
		}
	}
	return true
}

// AbsDiffSum returns the sum of absolute per-pixel differences. Images
// of different sizes are compared over their common area only.
func AbsDiffSum(a, b *GrayImage) float64 {
	width := min(a.Width(), b.Width())
	height := min(a.Height(), b.Height())

	var sum float64
	for y := 0; y < height; y++ {
		ra := a.Pix[y*a.Stride:]
		rb := b.Pix[y*b.Stride:]
		for x := 0; x < width; x++ {
			sum += float64(abs(int(ra[x]) - int(rb[x])))
		}
	}
	return sum
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
