package sheetmatch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wbrown/sheetmatch/imageutil"
)

func renderAll(t *testing.T, r *GlyphRenderer, glyphs ...Glyph) map[Glyph]*Footprint {
	t.Helper()
	out := make(map[Glyph]*Footprint, len(glyphs))
	for _, g := range glyphs {
		fp, err := r.Render(g)
		require.NoError(t, err)
		out[g] = fp
	}
	return out
}

func TestMetricByName(t *testing.T) {
	m, err := MetricByName("pixel")
	require.NoError(t, err)
	assert.Equal(t, "pixel", m.Name())

	m, err = MetricByName("")
	require.NoError(t, err)
	assert.Equal(t, "fused", m.Name())

	_, err = MetricByName("cosine")
	assert.Error(t, err)
}

func TestPixelMethod(t *testing.T) {
	fps := renderAll(t, newTestRenderer(t, ""), "A", "B", "8", EmptyGlyph)
	m := PixelMethod{}

	for g, fp := range fps {
		d, err := m.Distance(fp, fp)
		require.NoError(t, err)
		assert.Zero(t, d, "glyph %q", string(g))
	}

	ab, err := m.Distance(fps["A"], fps["B"])
	require.NoError(t, err)
	ba, err := m.Distance(fps["B"], fps["A"])
	require.NoError(t, err)
	assert.Equal(t, ab, ba)

	b8, err := m.Distance(fps["B"], fps["8"])
	require.NoError(t, err)
	assert.Less(t, b8, ab, "B should look more like 8 than like A")
}

func TestPixelMethodSizeMismatch(t *testing.T) {
	a := &Footprint{Glyph: "A", Image: imageutil.NewGrayImage(10, 10)}
	b := &Footprint{Glyph: "B", Image: imageutil.NewGrayImage(12, 10)}
	_, err := PixelMethod{}.Distance(a, b)
	assert.Error(t, err)
}

func TestFusedMethodDefaults(t *testing.T) {
	fps := renderAll(t, newTestRenderer(t, ""), "B", "8", "L", EmptyGlyph)
	m := NewFusedMethod(DefaultFusedWeights(), 0, 0)
	assert.Equal(t, float64(DefaultSkeletonScale), m.SkeletonScale)

	for g, fp := range fps {
		d, err := m.Distance(fp, fp)
		require.NoError(t, err)
		assert.Zero(t, d, "glyph %q", string(g))
	}

	pairs := [][2]Glyph{{"B", "8"}, {"B", "L"}, {"L", EmptyGlyph}}
	for _, p := range pairs {
		ab, err := m.Distance(fps[p[0]], fps[p[1]])
		require.NoError(t, err)
		ba, err := m.Distance(fps[p[1]], fps[p[0]])
		require.NoError(t, err)
		assert.Equal(t, ab, ba, "pair %q/%q", string(p[0]), string(p[1]))
		assert.False(t, math.IsNaN(ab) || math.IsInf(ab, 0))
		assert.GreaterOrEqual(t, ab, 0.0)
	}

	// Only the skeleton is needed with the default weights.
	f := m.features[fps["B"]]
	require.NotNil(t, f)
	assert.NotNil(t, f.skeleton)
	assert.Nil(t, f.edges)
	assert.Nil(t, f.contour)
}

func TestFusedMethodEqualImages(t *testing.T) {
	fp, err := newTestRenderer(t, "").Render("Q")
	require.NoError(t, err)
	clone := &Footprint{Glyph: "Q", Image: fp.Image.Clone()}

	m := NewFusedMethod(FusedWeights{Geometric: 1, Shape: 1, Skeleton: 1, Complexity: 1}, 0, 0)
	d, err := m.Distance(fp, clone)
	require.NoError(t, err)
	assert.Zero(t, d)
	assert.Empty(t, m.features, "identical footprints need no features")
}

func TestFusedMethodEmptyPenalty(t *testing.T) {
	fps := renderAll(t, newTestRenderer(t, ""), "H", "A", "B", "8", EmptyGlyph)
	diagonal := math.Hypot(DefaultCanvasSize, DefaultCanvasSize)

	tests := []struct {
		name   string
		metric *FusedMethod
		want   float64
	}{
		{"default weights", NewFusedMethod(DefaultFusedWeights(), 0, 0), diagonal},
		{"geometric only", NewFusedMethod(FusedWeights{Geometric: 1}, 0, 0), diagonal},
		{"configured penalty", NewFusedMethod(FusedWeights{Shape: 2, Skeleton: 1}, 0, 7), 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := tt.metric.Distance(fps["H"], fps[EmptyGlyph])
			require.NoError(t, err)
			assert.InDelta(t, tt.want, d, 1e-9)

			d, err = tt.metric.Distance(fps[EmptyGlyph], fps["A"])
			require.NoError(t, err)
			assert.InDelta(t, tt.want, d, 1e-9)
		})
	}

	// With the default penalty, dropping a glyph costs more than
	// swapping two look-alikes.
	m := NewFusedMethod(DefaultFusedWeights(), 0, 0)
	sub, err := m.Distance(fps["B"], fps["8"])
	require.NoError(t, err)
	indel, err := m.Distance(fps["B"], fps[EmptyGlyph])
	require.NoError(t, err)
	assert.Less(t, sub, indel)
}

func TestFusedMethodDefaultMonotonic(t *testing.T) {
	fps := renderAll(t, newTestRenderer(t, ""), "A", "B", "8")
	m := NewFusedMethod(DefaultFusedWeights(), 0, 0)

	ab, err := m.Distance(fps["A"], fps["B"])
	require.NoError(t, err)
	b8, err := m.Distance(fps["B"], fps["8"])
	require.NoError(t, err)
	assert.Less(t, b8, ab, "B should look more like 8 than like A")
}

func TestFusedMethodAllTerms(t *testing.T) {
	fps := renderAll(t, newTestRenderer(t, ""), "O", "0", "X")
	m := NewFusedMethod(FusedWeights{Geometric: 1, Shape: 1, Skeleton: 1, Complexity: 1}, 0, 0)

	near, err := m.Distance(fps["O"], fps["0"])
	require.NoError(t, err)
	far, err := m.Distance(fps["O"], fps["X"])
	require.NoError(t, err)
	assert.Greater(t, near, 0.0)
	assert.Greater(t, far, 0.0)

	f := m.features[fps["O"]]
	require.NotNil(t, f)
	assert.NotEmpty(t, f.contour)
	assert.Len(t, f.field, DefaultCanvasSize*DefaultCanvasSize)
}
