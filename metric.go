package sheetmatch

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/wbrown/sheetmatch/imageutil"
)

// Metric measures the visual dissimilarity of two footprints. Distances
// are non-negative, symmetric, and zero for identical footprints.
type Metric interface {
	Name() string
	Distance(a, b *Footprint) (float64, error)
}

// MetricByName returns a metric with its default settings.
func MetricByName(name string) (Metric, error) {
	switch name {
	case "pixel":
		return PixelMethod{}, nil
	case "", "fused":
		return NewFusedMethod(DefaultFusedWeights(), DefaultSkeletonScale, 0), nil
	default:
		return nil, fmt.Errorf("unknown metric %q", name)
	}
}

var errSizeMismatch = errors.New("footprint sizes differ")

// PixelMethod sums the absolute per-pixel intensity differences.
type PixelMethod struct{}

func (PixelMethod) Name() string { return "pixel" }

func (PixelMethod) Distance(a, b *Footprint) (float64, error) {
	if !a.Image.Bounds().Size().Eq(b.Image.Bounds().Size()) {
		return 0, errSizeMismatch
	}
	return imageutil.AbsDiffSum(a.Image, b.Image), nil
}

// DefaultSkeletonScale multiplies the skeleton dissimilarity (1 - SSIM).
const DefaultSkeletonScale = 50

// FusedWeights weights the four sub-metrics of FusedMethod.
type FusedWeights struct {
	Geometric  float64 `yaml:"geometric"`
	Shape      float64 `yaml:"shape"`
	Skeleton   float64 `yaml:"skeleton"`
	Complexity float64 `yaml:"complexity"`
}

// DefaultFusedWeights uses the skeleton term only.
func DefaultFusedWeights() FusedWeights {
	return FusedWeights{Skeleton: 1}
}

// FusedMethod combines contour, shape, skeleton and complexity
// sub-metrics extracted from the binarized footprints:
//
//	geometric  = 0.6*Hausdorff(contours) + 0.4*Chamfer(edges)
//	shape      = Hu moment match of the largest contours
//	skeleton   = (1 - SSIM(skeletons)) * SkeletonScale
//	complexity = |edgeRatio(a) - edgeRatio(b)|
//
// Sub-metrics with zero weight are never computed. A blank footprint
// against a non-blank one is EmptyPenalty, regardless of the weights.
// A footprint that has ink but no contour contributes EmptyPenalty to
// the geometric and shape terms against one that has a contour; between
// two such footprints these terms are zero.
//
// Extracted features are memoized per footprint, so Weights must not
// change once the metric is in use.
type FusedMethod struct {
	Weights       FusedWeights
	SkeletonScale float64

	// EmptyPenalty is the distance between a blank and a non-blank
	// footprint, and replaces contour based terms when exactly one side
	// has no contour. Zero means the canvas diagonal.
	EmptyPenalty float64

	mu       sync.Mutex
	features map[*Footprint]*features
}

// features are the per-footprint inputs of the sub-metrics.
type features struct {
	edges     *imageutil.GrayImage
	contour   []image.Point
	field     []float64
	skeleton  *imageutil.GrayImage
	edgeRatio float64
}

// NewFusedMethod returns a fused metric. A non-positive skeleton scale
// selects DefaultSkeletonScale.
func NewFusedMethod(weights FusedWeights, skeletonScale, emptyPenalty float64) *FusedMethod {
	if skeletonScale <= 0 {
		skeletonScale = DefaultSkeletonScale
	}
	return &FusedMethod{
		Weights:       weights,
		SkeletonScale: skeletonScale,
		EmptyPenalty:  emptyPenalty,
		features:      make(map[*Footprint]*features),
	}
}

func (m *FusedMethod) Name() string { return "fused" }

func (m *FusedMethod) Distance(a, b *Footprint) (float64, error) {
	if !a.Image.Bounds().Size().Eq(b.Image.Bounds().Size()) {
		return 0, errSizeMismatch
	}
	if a == b || a.Image.Equal(b.Image) {
		return 0, nil
	}
	if a.Image.IsBlank() != b.Image.IsBlank() {
		// Inserting or deleting a glyph must cost more than any
		// plausible substitution, whatever the weights.
		return m.penalty(a.Image), nil
	}

	fa, err := m.extract(a)
	if err != nil {
		return 0, err
	}
	fb, err := m.extract(b)
	if err != nil {
		return 0, err
	}

	w := m.Weights
	var total float64
	if w.Geometric != 0 {
		total += w.Geometric * m.geometric(fa, fb, a.Image)
	}
	if w.Shape != 0 {
		total += w.Shape * m.shape(fa, fb, a.Image)
	}
	if w.Skeleton != 0 {
		total += w.Skeleton * m.skeletonTerm(fa, fb)
	}
	if w.Complexity != 0 {
		total += w.Complexity * math.Abs(fa.edgeRatio-fb.edgeRatio)
	}
	return math.Max(total, 0), nil
}

// emptyTerm resolves a contour based term when either side lacks a
// contour. The bool result is false when both sides have one.
func (m *FusedMethod) emptyTerm(fa, fb *features, img *imageutil.GrayImage) (float64, bool) {
	emptyA, emptyB := len(fa.contour) == 0, len(fb.contour) == 0
	switch {
	case emptyA && emptyB:
		return 0, true
	case emptyA || emptyB:
		return m.penalty(img), true
	}
	return 0, false
}

func (m *FusedMethod) penalty(img *imageutil.GrayImage) float64 {
	if m.EmptyPenalty > 0 {
		return m.EmptyPenalty
	}
	return math.Hypot(float64(img.Width()), float64(img.Height()))
}

func (m *FusedMethod) geometric(fa, fb *features, img *imageutil.GrayImage) float64 {
	if v, ok := m.emptyTerm(fa, fb, img); ok {
		return v
	}
	hausdorff := imageutil.Hausdorff(fa.contour, fb.contour)
	chamfer := (imageutil.Chamfer(fa.field, fb.edges) + imageutil.Chamfer(fb.field, fa.edges)) / 2
	return 0.6*hausdorff + 0.4*chamfer
}

func (m *FusedMethod) shape(fa, fb *features, img *imageutil.GrayImage) float64 {
	if v, ok := m.emptyTerm(fa, fb, img); ok {
		return v
	}
	return imageutil.MatchShapes(fa.contour, fb.contour)
}

func (m *FusedMethod) skeletonTerm(fa, fb *features) float64 {
	sim, err := imageutil.SSIMGray(fa.skeleton, fb.skeleton)
	if err != nil {
		// Canvases smaller than the SSIM window compare as dissimilar.
		sim = 0
	}
	return (1 - sim) * m.SkeletonScale
}

// extract computes, once per footprint, the features needed by the
// weighted sub-metrics.
func (m *FusedMethod) extract(fp *Footprint) (*features, error) {
	m.mu.Lock()
	if m.features == nil {
		m.features = make(map[*Footprint]*features)
	}
	f, ok := m.features[fp]
	m.mu.Unlock()
	if ok {
		return f, nil
	}

	w := m.Weights
	bin := fp.Image.Threshold(128)
	f = &features{}

	if w.Geometric != 0 || w.Shape != 0 || w.Complexity != 0 {
		f.edges = imageutil.CannyDefault(bin)
		f.edgeRatio = imageutil.EdgeRatio(f.edges)
	}
	if w.Geometric != 0 || w.Shape != 0 {
		contour, err := imageutil.LargestContour(f.edges)
		if err != nil {
			return nil, fmt.Errorf("glyph %q: %w", string(fp.Glyph), err)
		}
		f.contour = contour
	}
	if w.Geometric != 0 {
		field, err := imageutil.EdgeDistanceField(f.edges)
		if err != nil {
			return nil, fmt.Errorf("glyph %q: %w", string(fp.Glyph), err)
		}
		f.field = field
	}
	if w.Skeleton != 0 {
		f.skeleton = imageutil.Skeletonize(bin)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.features[fp]; ok {
		return existing, nil
	}
	m.features[fp] = f
	return f, nil
}
