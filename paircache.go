package sheetmatch

import (
	"fmt"
	"log/slog"

	"github.com/wbrown/sheetmatch/store"
)

// FootprintSource supplies glyph footprints. *GlyphRenderer implements it.
type FootprintSource interface {
	Render(g Glyph) (*Footprint, error)
}

// memo is a write-through memo table: loaded from its backend on first
// use, persisted after every insertion.
type memo struct {
	name    string
	backend store.Backend
	logger  *slog.Logger

	table        *store.Table
	lookupHits   int
	lookupMisses int
}

func newMemo(name string, backend store.Backend, logger *slog.Logger) memo {
	if backend == nil {
		backend = store.NewMemory()
	}
	if logger == nil {
		logger = discardLogger()
	}
	return memo{name: name, backend: backend, logger: logger}
}

// load materializes the table. Unusable persisted data is discarded with
// a warning so matching can always proceed.
func (m *memo) load() *store.Table {
	if m.table != nil {
		return m.table
	}
	table, err := m.backend.Load()
	if err != nil {
		m.logger.Warn("discarding unusable cache, starting empty",
			"cache", m.name, "error", err)
		table = store.NewTable()
	} else {
		m.logger.Info("loaded cache",
			"cache", m.name, "subjects", table.Len(), "entries", table.Pairs())
	}
	m.table = table
	return table
}

func (m *memo) lookup(subject, target string) (float64, bool) {
	d, ok := m.load().Lookup(subject, target)
	if ok {
		m.lookupHits++
	}
	return d, ok
}

// add records a computed value and writes it through to the backend.
func (m *memo) add(subject, target string, distance float64) error {
	m.lookupMisses++
	entries := m.load().Append(subject, store.Entry{Target: target, Distance: distance})

	var err error
	if w, ok := m.backend.(store.SubjectWriter); ok {
		err = w.Put(subject, entries)
	} else {
		err = m.backend.Save(m.table)
	}
	if err != nil {
		m.logger.Warn("cache write failed", "cache", m.name, "error", err)
		return &CachePersistError{Cache: m.name, Err: err}
	}
	return nil
}

// Stats returns hit/miss statistics.
func (m *memo) Stats() (hits, misses int, hitRate float64) {
	total := m.lookupHits + m.lookupMisses
	if total == 0 {
		return 0, 0, 0
	}
	return m.lookupHits, m.lookupMisses, float64(m.lookupHits) / float64(total)
}

// Table returns the live table.
func (m *memo) Table() *store.Table {
	return m.load()
}

// PairCache memoizes glyph pair distances under the unordered pair, so
// every pair is measured at most once and distance(a, b) equals
// distance(b, a) by construction. It is not safe for concurrent use.
type PairCache struct {
	memo
	source FootprintSource
	metric Metric
}

// NewPairCache returns a pair cache. A nil backend keeps the table in
// memory only.
func NewPairCache(source FootprintSource, metric Metric, backend store.Backend, logger *slog.Logger) *PairCache {
	return &PairCache{
		memo:   newMemo("pair", backend, logger),
		source: source,
		metric: metric,
	}
}

// Get returns the distance between a and b. A *CachePersistError is
// returned together with a valid distance when only the write failed.
func (c *PairCache) Get(a, b Glyph) (float64, error) {
	subject, target := a, b
	if target < subject {
		subject, target = target, subject
	}

	if d, ok := c.lookup(string(subject), string(target)); ok {
		return d, nil
	}

	fs, err := c.source.Render(subject)
	if err != nil {
		return 0, err
	}
	ft, err := c.source.Render(target)
	if err != nil {
		return 0, err
	}
	d, err := c.metric.Distance(fs, ft)
	if err != nil {
		return 0, fmt.Errorf("distance %q/%q: %w", string(subject), string(target), err)
	}

	c.logger.Debug("computed glyph distance",
		"subject", string(subject), "target", string(target), "distance", d)
	return d, c.add(string(subject), string(target), d)
}
