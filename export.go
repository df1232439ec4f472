package sheetmatch

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/wbrown/sheetmatch/store"
)

// DefaultAlphabet is the character set of part markings.
const DefaultAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// PairDistance is the distance between two distinct glyphs.
type PairDistance struct {
	A, B     Glyph
	Distance float64
}

// DistanceTable measures every unordered pair of distinct glyphs of
// alphabet and returns them from most to least similar. Pairs of equal
// distance keep alphabet order.
func DistanceTable(costs GlyphCost, alphabet string) ([]PairDistance, error) {
	var pe persistErrs
	glyphs := GlyphsOf(alphabet)

	var pairs []PairDistance
	for i, a := range glyphs {
		for _, b := range glyphs[i+1:] {
			if a == b {
				continue
			}
			d, err := costs.Get(a, b)
			if err := pe.keep(err); err != nil {
				return nil, err
			}
			pairs = append(pairs, PairDistance{A: a, B: b, Distance: d})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Distance < pairs[j].Distance
	})
	return pairs, pe.first
}

// DistanceTable measures every pair of alphabet through the engine's
// pair cache.
func (e *Engine) DistanceTable(alphabet string) ([]PairDistance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return DistanceTable(e.pairs, alphabet)
}

// WriteDistanceTableCSV writes pairs as semicolon separated
// char1;char2;distance rows with four decimals.
func WriteDistanceTableCSV(w io.Writer, pairs []PairDistance) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.Write([]string{"char1", "char2", "distance"}); err != nil {
		return err
	}
	for _, p := range pairs {
		row := []string{string(p.A), string(p.B), strconv.FormatFloat(p.Distance, 'f', 4, 64)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePairCSV dumps a pair distance table as Subject,Candidate,Distance
// rows. Each pair of distinct glyphs is followed by its mirrored row.
func WritePairCSV(w io.Writer, table *store.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Subject", "Candidate", "Distance"}); err != nil {
		return err
	}

	var err error
	table.Iterate(func(subject string, entries []store.Entry) {
		for _, e := range entries {
			if err != nil {
				return
			}
			d := formatDistance(e.Distance)
			if err = cw.Write([]string{subject, e.Target, d}); err != nil {
				return
			}
			if subject != e.Target {
				err = cw.Write([]string{e.Target, subject, d})
			}
		}
	})
	if err != nil {
		return fmt.Errorf("write pair csv: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

// WriteMatchCSV dumps a match table as a matrix: one row per subject,
// one column per target sorted by name, empty cells for pairs never
// computed.
func WriteMatchCSV(w io.Writer, table *store.Table) error {
	seen := make(map[string]bool)
	var targets []string
	table.Iterate(func(_ string, entries []store.Entry) {
		for _, e := range entries {
			if !seen[e.Target] {
				seen[e.Target] = true
				targets = append(targets, e.Target)
			}
		}
	})
	sort.Strings(targets)

	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"Subject"}, targets...)); err != nil {
		return err
	}

	var err error
	table.Iterate(func(subject string, entries []store.Entry) {
		if err != nil {
			return
		}
		costs := make(map[string]float64, len(entries))
		for _, e := range entries {
			costs[e.Target] = e.Distance
		}
		row := make([]string, 0, len(targets)+1)
		row = append(row, subject)
		for _, t := range targets {
			if d, ok := costs[t]; ok {
				row = append(row, formatDistance(d))
			} else {
				row = append(row, "")
			}
		}
		err = cw.Write(row)
	})
	if err != nil {
		return fmt.Errorf("write match csv: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

func formatDistance(d float64) string {
	return strconv.FormatFloat(d, 'g', -1, 64)
}
