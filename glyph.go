// Package sheetmatch resolves noisy OCR readings of component markings to
// the closest entry of a catalog, using the visual similarity of rendered
// glyphs as the cost model of an edit distance.
package sheetmatch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/wbrown/sheetmatch/imageutil"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultFontSize is the point size glyphs are rendered at (72 DPI,
	// so points equal pixels).
	DefaultFontSize = 150

	// DefaultCanvasSize is the side of the square footprint canvas.
	DefaultCanvasSize = 200

	// DefaultBlurRadius is the sigma of the Gaussian applied to each
	// rendered glyph.
	DefaultBlurRadius = 6
)

// Glyph is a single character, or EmptyGlyph for "no character".
type Glyph string

// EmptyGlyph stands for a missing character. It renders to a blank
// footprint and is the basis of insertion and deletion costs.
const EmptyGlyph Glyph = ""

// GlyphsOf splits s into one glyph per rune.
func GlyphsOf(s string) []Glyph {
	glyphs := make([]Glyph, 0, len(s))
	for _, r := range s {
		glyphs = append(glyphs, Glyph(r))
	}
	return glyphs
}

// SafeName returns a file-system safe name for g. Letters and digits keep
// their literal form, other characters are escaped as u%04x. Both are
// suffixed with the decimal code point so names never collide on
// case-insensitive file systems.
func SafeName(g Glyph) string {
	if g == EmptyGlyph {
		return "empty"
	}
	r, _ := utf8.DecodeRuneInString(string(g))
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return fmt.Sprintf("%c_%d", r, r)
	}
	return fmt.Sprintf("u%04x_%d", r, r)
}

// Footprint is the blurred raster of a glyph. It is never modified after
// creation.
type Footprint struct {
	Glyph Glyph
	Image *imageutil.GrayImage
}

// GlyphOptions configures a GlyphRenderer. Zero values select the
// defaults.
type GlyphOptions struct {
	// FontPath is a TrueType file. Empty selects the embedded Go Mono.
	FontPath   string
	FontSize   float64
	CanvasSize int

	// BlurRadius is the Gaussian sigma. Negative disables blurring.
	BlurRadius float64

	// CacheDir holds one PNG per rendered glyph. Empty disables the disk
	// cache.
	CacheDir string

	Logger *slog.Logger
}

// GlyphRenderer turns glyphs into footprints. Footprints are kept in
// memory and, when a cache directory is set, on disk. It is safe for
// concurrent use.
type GlyphRenderer struct {
	font       *truetype.Font
	fontSize   float64
	canvasSize int
	blurRadius float64
	cacheDir   string
	logger     *slog.Logger

	mu         sync.Mutex
	footprints map[Glyph]*Footprint
	renders    int
}

// NewGlyphRenderer loads the font and prepares a renderer.
func NewGlyphRenderer(opts GlyphOptions) (*GlyphRenderer, error) {
	ttf, err := loadFont(opts.FontPath)
	if err != nil {
		return nil, err
	}

	r := &GlyphRenderer{
		font:       ttf,
		fontSize:   opts.FontSize,
		canvasSize: opts.CanvasSize,
		blurRadius: opts.BlurRadius,
		cacheDir:   opts.CacheDir,
		logger:     opts.Logger,
		footprints: make(map[Glyph]*Footprint),
	}
	if r.fontSize <= 0 {
		r.fontSize = DefaultFontSize
	}
	if r.canvasSize <= 0 {
		r.canvasSize = DefaultCanvasSize
	}
	switch {
	case r.blurRadius == 0:
		r.blurRadius = DefaultBlurRadius
	case r.blurRadius < 0:
		r.blurRadius = 0
	}
	if r.logger == nil {
		r.logger = discardLogger()
	}
	return r, nil
}

// loadFont parses a TrueType font from path, or the embedded Go Mono when
// path is empty.
func loadFont(path string) (*truetype.Font, error) {
	fontBytes := gomono.TTF
	if path != "" {
		var err error
		if fontBytes, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("failed to read font: %w", err)
		}
	}

	ttf, err := freetype.ParseFont(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return ttf, nil
}

// CanvasSize returns the side of the footprint canvas in pixels.
func (r *GlyphRenderer) CanvasSize() int {
	return r.canvasSize
}

// Renders reports how many footprints were rasterised, as opposed to
// served from memory or disk.
func (r *GlyphRenderer) Renders() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.renders
}

// Render returns the footprint of g.
func (r *GlyphRenderer) Render(g Glyph) (*Footprint, error) {
	r.mu.Lock()
	fp, ok := r.footprints[g]
	r.mu.Unlock()
	if ok {
		return fp, nil
	}

	if err := r.check(g); err != nil {
		return nil, err
	}

	img, rendered, err := r.loadOrRender(g)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.footprints[g]; ok {
		return existing, nil
	}
	if rendered {
		r.renders++
	}
	fp = &Footprint{Glyph: g, Image: img}
	r.footprints[g] = fp
	return fp, nil
}

// Warm renders glyphs concurrently so later lookups are served from
// memory.
func (r *GlyphRenderer) Warm(ctx context.Context, glyphs []Glyph) error {
	seen := make(map[Glyph]bool, len(glyphs))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(4)
	for _, g := range glyphs {
		if seen[g] {
			continue
		}
		seen[g] = true

		g := g
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := r.Render(g)
			return err
		})
	}
	return eg.Wait()
}

// check rejects glyphs that cannot produce a faithful footprint.
func (r *GlyphRenderer) check(g Glyph) error {
	if g == EmptyGlyph {
		return nil
	}
	if utf8.RuneCountInString(string(g)) != 1 {
		return &UnrenderableGlyphError{Glyph: g, Reason: "not a single character"}
	}
	ch, _ := utf8.DecodeRuneInString(string(g))
	if ch == utf8.RuneError || !unicode.IsGraphic(ch) {
		return &UnrenderableGlyphError{Glyph: g, Reason: "not a printable character"}
	}
	if !unicode.IsSpace(ch) && r.font.Index(ch) == 0 {
		return &UnrenderableGlyphError{Glyph: g, Reason: "missing from font"}
	}
	return nil
}

func (r *GlyphRenderer) path(g Glyph) string {
	return filepath.Join(r.cacheDir, SafeName(g)+".png")
}

// loadOrRender reads the footprint from the disk cache, rendering and
// storing it on a miss. The bool result reports a fresh render.
func (r *GlyphRenderer) loadOrRender(g Glyph) (*imageutil.GrayImage, bool, error) {
	if r.cacheDir != "" {
		path := r.path(g)
		img, err := imageutil.LoadGray(path)
		switch {
		case err == nil && img.Width() == r.canvasSize && img.Height() == r.canvasSize:
			return img, false, nil
		case err == nil:
			r.logger.Warn("footprint size mismatch, re-rendering",
				"path", path, "width", img.Width(), "height", img.Height())
		case !errors.Is(err, fs.ErrNotExist):
			r.logger.Warn("unreadable footprint, re-rendering", "path", path, "error", err)
		}
	}

	img, err := r.renderFootprint(g)
	if err != nil {
		return nil, false, err
	}
	r.logger.Debug("rendered glyph", "glyph", string(g))

	if r.cacheDir != "" {
		if err := imageutil.SaveGray(img, r.path(g)); err != nil {
			// The footprint is still usable; only the disk copy is lost.
			r.logger.Warn("failed to store footprint", "glyph", string(g), "error", err)
		}
	}
	return img, true, nil
}

// renderFootprint draws g centered on a blank canvas and blurs it.
//
// The horizontal position centers the advance width. The baseline sits at
// (size + ascent - descent) / 2, which centers the band between the
// font's ascent and descent lines, so every glyph of the font shares the
// same baseline regardless of its own extent.
func (r *GlyphRenderer) renderFootprint(g Glyph) (*imageutil.GrayImage, error) {
	size := r.canvasSize
	canvas := image.NewGray(image.Rect(0, 0, size, size))
	if g == EmptyGlyph {
		return imageutil.GrayImageFromImage(canvas), nil
	}
	ch, _ := utf8.DecodeRuneInString(string(g))

	face := truetype.NewFace(r.font, &truetype.Options{
		Size:    r.fontSize,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	defer face.Close()

	advance, ok := face.GlyphAdvance(ch)
	if !ok {
		return nil, &UnrenderableGlyphError{Glyph: g, Reason: "missing from font"}
	}
	metrics := face.Metrics()
	ascent := metrics.Ascent.Round()
	descent := metrics.Descent.Round()
	baseline := (size + ascent - descent) / 2
	x := (size - advance.Round()) / 2

	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(r.font)
	ctx.SetFontSize(r.fontSize)
	ctx.SetClip(canvas.Bounds())
	ctx.SetDst(canvas)
	ctx.SetSrc(image.White)
	ctx.SetHinting(font.HintingNone)

	if _, err := ctx.DrawString(string(ch), freetype.Pt(x, baseline)); err != nil {
		return nil, fmt.Errorf("failed to draw glyph %q: %w", string(g), err)
	}

	return imageutil.GaussianBlur(imageutil.GrayImageFromImage(canvas), r.blurRadius), nil
}
