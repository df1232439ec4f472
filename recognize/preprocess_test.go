package recognize

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// marking draws a light bar ("print") on a dark background ("package").
func marking(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.RGBA{R: 30, G: 30, B: 35, A: 255}
			if y > height/3 && y < 2*height/3 && x > width/4 && x < 3*width/4 {
				c = color.RGBA{R: 220, G: 220, B: 210, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func TestPreprocessDarkTextOnLight(t *testing.T) {
	out := Preprocess(marking(200, 90))

	require.Equal(t, 200, out.Width())
	require.Equal(t, 90, out.Height())
	assert.Equal(t, uint8(255), out.GetGray(5, 5), "background should become white")
	assert.Equal(t, uint8(0), out.GetGray(100, 45), "print should become black")

	for y := 0; y < out.Height(); y++ {
		for x := 0; x < out.Width(); x++ {
			if v := out.GetGray(x, y); v != 0 && v != 255 {
				t.Fatalf("pixel (%d,%d) is not binary: %d", x, y, v)
			}
		}
	}
}

func TestPreprocessLimitsWidth(t *testing.T) {
	out := Preprocess(marking(2048, 400))
	assert.Equal(t, MaxWidth, out.Width())
	assert.Equal(t, 200, out.Height())
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "74LS00", CleanText(" 74ls 00\n"))
	assert.Equal(t, "", CleanText("\t \n"))
}

func TestReadingTexts(t *testing.T) {
	r := Reading{Raw: "74L5OO", Processed: "74LS00"}
	assert.Equal(t, []string{"74L5OO", "74LS00"}, r.Texts())
}
