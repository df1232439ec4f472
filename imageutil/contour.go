package imageutil

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"
)

// toMat copies a grayscale image into a single-channel 8-bit Mat.
// The caller owns the returned Mat.
func toMat(img *GrayImage) (gocv.Mat, error) {
	width, height := img.Width(), img.Height()
	data := make([]byte, width*height)
	for y := 0; y < height; y++ {
		copy(data[y*width:(y+1)*width], img.Pix[y*img.Stride:])
	}
	mat, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC1, data)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to create mat: %w", err)
	}
	return mat, nil
}

// LargestContour returns the points of the external contour with the
// largest area found in a binary edge map, or nil when there is none.
func LargestContour(edges *GrayImage) ([]image.Point, error) {
	mat, err := toMat(edges)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	contours := gocv.FindContours(mat, gocv.RetrievalExternal, gocv.ChainApproxNone)
	defer contours.Close()

	best := -1
	bestArea := -1.0
	for i := 0; i < contours.Size(); i++ {
		area := gocv.ContourArea(contours.At(i))
		if area > bestArea {
			best, bestArea = i, area
		}
	}
	if best < 0 {
		return nil, nil
	}
	return contours.At(best).ToPoints(), nil
}

// MatchShapes compares two contours with Hu moment invariants
// (OpenCV CONTOURS_MATCH_I1). Lower is more similar.
func MatchShapes(a, b []image.Point) float64 {
	va := gocv.NewPointVectorFromPoints(a)
	defer va.Close()
	vb := gocv.NewPointVectorFromPoints(b)
	defer vb.Close()
	return gocv.MatchShapes(va, vb, gocv.ContoursMatchI1, 0)
}

// EdgeDistanceField returns, for every pixel, the Euclidean distance to
// the nearest edge pixel of a binary edge map (row-major). An edge map
// without edges yields nil.
func EdgeDistanceField(edges *GrayImage) ([]float64, error) {
	if edges.IsBlank() {
		return nil, nil
	}

	mat, err := toMat(edges)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	// Edges become zeros so the transform measures distance to them.
	inverted := gocv.NewMat()
	defer inverted.Close()
	gocv.BitwiseNot(mat, &inverted)

	dist := gocv.NewMat()
	defer dist.Close()
	labels := gocv.NewMat()
	defer labels.Close()
	gocv.DistanceTransform(inverted, &dist, &labels, gocv.DistL2, gocv.DistanceMask3, gocv.DistanceLabelCComp)

	width, height := edges.Width(), edges.Height()
	field := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			field[y*width+x] = float64(dist.GetFloatAt(y, x))
		}
	}
	return field, nil
}

// Chamfer returns the mean of a distance field sampled at the edge pixels
// of another edge map. It is directed: field comes from image A, edges
// from image B.
func Chamfer(field []float64, edges *GrayImage) float64 {
	width, height := edges.Width(), edges.Height()
	var sum float64
	count := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if edges.Pix[y*edges.Stride+x] != 0 {
				sum += field[y*width+x]
				count++
			}
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// DirectedHausdorff returns the largest distance from a point of a to its
// nearest point of b.
func DirectedHausdorff(a, b []image.Point) float64 {
	var worst float64
	for _, p := range a {
		nearest := math.MaxFloat64
		for _, q := range b {
			dx := float64(p.X - q.X)
			dy := float64(p.Y - q.Y)
			if d := dx*dx + dy*dy; d < nearest {
				nearest = d
				if nearest <= worst {
					// Cannot raise the running maximum any more.
					break
				}
			}
		}
		if nearest > worst {
			worst = nearest
		}
	}
	return math.Sqrt(worst)
}

// Hausdorff returns the symmetric Hausdorff distance between two point
// sets.
func Hausdorff(a, b []image.Point) float64 {
	return math.Max(DirectedHausdorff(a, b), DirectedHausdorff(b, a))
}
