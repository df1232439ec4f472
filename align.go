package sheetmatch

import (
	"fmt"
	"math"
)

// GlyphCost prices turning one glyph into another. Deletions and
// insertions are priced against EmptyGlyph. *PairCache implements it.
type GlyphCost interface {
	Get(a, b Glyph) (float64, error)
}

// Aligner computes the cost of turning subject into target.
//
// A *CachePersistError may be returned together with a valid cost; any
// other error means the cost is unusable.
type Aligner interface {
	Align(subject, target string) (float64, error)
}

// AlignerByName returns the named aligner over costs.
func AlignerByName(name string, costs GlyphCost) (Aligner, error) {
	switch name {
	case "", "levenshtein":
		return &LevenshteinAligner{Costs: costs}, nil
	case "positional":
		return &PositionalAligner{Costs: costs}, nil
	default:
		return nil, fmt.Errorf("unknown aligner %q", name)
	}
}

// SameLengthFunc aligns two glyph sequences of equal length.
type SameLengthFunc func(subject, target []Glyph) (float64, error)

// persistErrs keeps the first persistence failure seen while letting the
// computation continue.
type persistErrs struct {
	first error
}

// keep returns nil for nil and persistence errors, and err otherwise.
func (p *persistErrs) keep(err error) error {
	if err == nil {
		return nil
	}
	if IsPersistError(err) {
		if p.first == nil {
			p.first = err
		}
		return nil
	}
	return err
}

// AlignWindow aligns strings of possibly different lengths. Equal
// lengths are passed to same directly. Otherwise a window the size of the
// shorter string slides across the longer one, and the cheapest window
// wins; offset is its start in the longer string, and the first of
// several equal minima is kept. When either string is empty the cost is
// that of inserting or deleting every glyph of the other.
func AlignWindow(subject, target string, costs GlyphCost, same SameLengthFunc) (cost float64, offset int, err error) {
	var pe persistErrs
	s, t := GlyphsOf(subject), GlyphsOf(target)

	if len(s) == 0 || len(t) == 0 {
		for _, g := range append(s, t...) {
			d, err := costs.Get(g, EmptyGlyph)
			if err := pe.keep(err); err != nil {
				return 0, 0, err
			}
			cost += d
		}
		return cost, 0, pe.first
	}

	if len(s) == len(t) {
		cost, err := same(s, t)
		if err := pe.keep(err); err != nil {
			return 0, 0, err
		}
		return cost, 0, pe.first
	}

	long, short := s, t
	subjectLonger := true
	if len(t) > len(s) {
		long, short = t, s
		subjectLonger = false
	}

	best := math.Inf(1)
	for i := 0; i+len(short) <= len(long); i++ {
		window := long[i : i+len(short)]

		var c float64
		var err error
		if subjectLonger {
			c, err = same(window, short)
		} else {
			c, err = same(short, window)
		}
		if err := pe.keep(err); err != nil {
			return 0, 0, err
		}
		if c < best {
			best, offset = c, i
		}
	}
	return best, offset, pe.first
}

// LevenshteinAligner runs an edit distance whose substitution, deletion
// and insertion costs are glyph distances.
type LevenshteinAligner struct {
	Costs GlyphCost
}

func (a *LevenshteinAligner) Align(subject, target string) (float64, error) {
	cost, _, err := AlignWindow(subject, target, a.Costs, a.EditDistance)
	return cost, err
}

// EditDistance is the minimum total cost of turning subject into target
// by substituting, deleting and inserting glyphs.
func (a *LevenshteinAligner) EditDistance(subject, target []Glyph) (float64, error) {
	var pe persistErrs
	get := func(x, y Glyph) (float64, error) {
		d, err := a.Costs.Get(x, y)
		return d, pe.keep(err)
	}

	m, n := len(subject), len(target)
	del := make([]float64, m)
	for i, g := range subject {
		d, err := get(g, EmptyGlyph)
		if err != nil {
			return 0, err
		}
		del[i] = d
	}
	ins := make([]float64, n)
	for j, g := range target {
		d, err := get(EmptyGlyph, g)
		if err != nil {
			return 0, err
		}
		ins[j] = d
	}

	prev := make([]float64, n+1)
	cur := make([]float64, n+1)
	for j := 1; j <= n; j++ {
		prev[j] = prev[j-1] + ins[j-1]
	}
	for i := 1; i <= m; i++ {
		cur[0] = prev[0] + del[i-1]
		for j := 1; j <= n; j++ {
			sub, err := get(subject[i-1], target[j-1])
			if err != nil {
				return 0, err
			}
			cur[j] = min(
				prev[j-1]+sub,
				prev[j]+del[i-1],
				cur[j-1]+ins[j-1],
			)
		}
		prev, cur = cur, prev
	}
	return prev[n], pe.first
}

// PositionalAligner sums glyph distances position by position, windowing
// unequal lengths the same way as LevenshteinAligner.
type PositionalAligner struct {
	Costs GlyphCost
}

func (a *PositionalAligner) Align(subject, target string) (float64, error) {
	cost, _, err := AlignWindow(subject, target, a.Costs, a.PositionSum)
	return cost, err
}

// PositionSum adds the distances of glyphs at equal positions.
func (a *PositionalAligner) PositionSum(subject, target []Glyph) (float64, error) {
	var pe persistErrs
	var total float64
	for i := range subject {
		d, err := a.Costs.Get(subject[i], target[i])
		if err := pe.keep(err); err != nil {
			return 0, err
		}
		total += d
	}
	return total, pe.first
}
