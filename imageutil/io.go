package imageutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// LoadGray loads an image file and converts it to grayscale.
func LoadGray(path string) (*GrayImage, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	return GrayImageFromImage(img), nil
}

// SaveGray writes a grayscale image; the format follows the file
// extension. Parent directories are created as needed.
func SaveGray(img *GrayImage, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := imaging.Save(img.Gray, path); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}

// GaussianBlur blurs a grayscale image with the given sigma.
func GaussianBlur(img *GrayImage, sigma float64) *GrayImage {
	if sigma <= 0 {
		return img.Clone()
	}
	return GrayImageFromImage(imaging.Blur(img.Gray, sigma))
}
