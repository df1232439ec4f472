package sheetmatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/wbrown/sheetmatch/store"
)

// Engine wires the renderer, metric, caches, aligner and matcher built
// from one Config. The caches and aligner are single-threaded, so every
// operation that touches them runs under one mutex; an Engine may be
// shared by goroutines.
type Engine struct {
	Config Config

	logger       *slog.Logger
	metric       Metric
	alignerName  string
	pairBackend  store.Backend
	matchBackend store.Backend
	db           *badger.DB

	renderer *GlyphRenderer
	pairs    *PairCache
	matches  *MatchCache
	aligner  Aligner
	matcher  *Matcher

	mu        sync.Mutex
	matchTime time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger shared by all components.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetric replaces the configured visual distance.
func WithMetric(metric Metric) Option {
	return func(e *Engine) {
		e.metric = metric
	}
}

// WithPairBackend replaces the configured pair cache backend.
func WithPairBackend(backend store.Backend) Option {
	return func(e *Engine) {
		e.pairBackend = backend
	}
}

// WithMatchBackend replaces the configured match cache backend.
func WithMatchBackend(backend store.Backend) Option {
	return func(e *Engine) {
		e.matchBackend = backend
	}
}

// WithAligner selects the aligner by name (levenshtein or positional).
func WithAligner(name string) Option {
	return func(e *Engine) {
		e.alignerName = name
	}
}

// New builds an engine. Close releases its backends.
func New(cfg Config, opts ...Option) (*Engine, error) {
	e := &Engine{Config: cfg, alignerName: cfg.Aligner}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = discardLogger()
	}

	if e.metric == nil {
		metric, err := cfg.NewMetric()
		if err != nil {
			return nil, err
		}
		e.metric = metric
	}

	renderer, err := NewGlyphRenderer(GlyphOptions{
		FontPath:   cfg.Font,
		FontSize:   cfg.FontSize,
		CanvasSize: cfg.CanvasSize,
		BlurRadius: cfg.BlurRadius,
		CacheDir:   cfg.GlyphDir(),
		Logger:     e.logger,
	})
	if err != nil {
		return nil, err
	}
	e.renderer = renderer

	if err := e.openBackends(); err != nil {
		return nil, err
	}

	e.pairs = NewPairCache(e.renderer, e.metric, e.pairBackend, e.logger)
	e.aligner, err = AlignerByName(e.alignerName, e.pairs)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.matches = NewMatchCache(e.aligner, e.matchBackend, e.logger)
	e.matcher = NewMatcher(e.matches)

	e.logger.Debug("engine ready",
		"metric", e.metric.Name(), "aligner", e.alignerName, "backend", cfg.Cache.Backend)
	return e, nil
}

// openBackends creates the configured backends for whichever cache was
// not given one explicitly.
func (e *Engine) openBackends() error {
	if e.pairBackend != nil && e.matchBackend != nil {
		return nil
	}

	var pair, match store.Backend
	switch e.Config.Cache.Backend {
	case "", "json":
		pair = store.NewJSONFile(e.Config.PairCachePath())
		match = store.NewJSONFile(e.Config.MatchCachePath())
	case "memory":
		pair = store.NewMemory()
		match = store.NewMemory()
	case "badger":
		db, err := store.OpenBadger(store.BadgerConfig{
			Path:   e.Config.BadgerDir(),
			Logger: e.logger,
		})
		if err != nil {
			return err
		}
		e.db = db
		pair = store.NewBadger(db, "distances")
		match = store.NewBadger(db, "matches")
	default:
		return fmt.Errorf("unknown cache backend %q", e.Config.Cache.Backend)
	}

	if e.pairBackend == nil {
		e.pairBackend = pair
	}
	if e.matchBackend == nil {
		e.matchBackend = match
	}
	return nil
}

// Close releases the backends.
func (e *Engine) Close() error {
	var errs []error
	for _, b := range []store.Backend{e.pairBackend, e.matchBackend} {
		if b != nil {
			errs = append(errs, b.Close())
		}
	}
	if e.db != nil {
		errs = append(errs, e.db.Close())
		e.db = nil
	}
	return errors.Join(errs...)
}

// Render returns the footprint of g.
func (e *Engine) Render(g Glyph) (*Footprint, error) {
	return e.renderer.Render(g)
}

// Warm renders glyphs ahead of use.
func (e *Engine) Warm(ctx context.Context, glyphs []Glyph) error {
	return e.renderer.Warm(ctx, glyphs)
}

// PairDistance returns the memoized visual distance of two glyphs.
func (e *Engine) PairDistance(a, b Glyph) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pairs.Get(a, b)
}

// Align returns the alignment cost of subject against target without
// memoizing it.
func (e *Engine) Align(subject, target string) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.aligner.Align(subject, target)
}

// MatchCost returns the memoized alignment cost of subject against
// target.
func (e *Engine) MatchCost(subject, target string) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.matches.Get(subject, target)
}

// Match returns the catalog entry closest to query.
func (e *Engine) Match(query string, catalog []string) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	defer func() { e.matchTime += time.Since(start) }()
	return e.matcher.Match(query, catalog)
}

// MatchBest matches several readings of one marking and keeps the best.
func (e *Engine) MatchBest(queries, catalog []string) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	defer func() { e.matchTime += time.Since(start) }()
	return e.matcher.MatchBest(queries, catalog)
}

// Stats summarizes cache activity since the engine was built.
type Stats struct {
	PairHits    int
	PairMisses  int
	MatchHits   int
	MatchMisses int
	Renders     int
	MatchTime   time.Duration
}

// Stats returns cache hit/miss statistics.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	var s Stats
	s.PairHits, s.PairMisses, _ = e.pairs.Stats()
	s.MatchHits, s.MatchMisses, _ = e.matches.Stats()
	s.Renders = e.renderer.Renders()
	s.MatchTime = e.matchTime
	return s
}

// PairTable returns a snapshot of the glyph pair memo table.
func (e *Engine) PairTable() *store.Table {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pairs.Table().Clone()
}

// MatchTable returns a snapshot of the match memo table.
func (e *Engine) MatchTable() *store.Table {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.matches.Table().Clone()
}

// ClearCache deletes every persisted cache of cfg: both memo tables and
// the stored footprints. Engines using cfg must be closed first.
func ClearCache(cfg Config) error {
	if cfg.Cache.Dir == "" {
		return errors.New("cache.dir is not set")
	}
	var errs []error
	for _, path := range []string{cfg.PairCachePath(), cfg.MatchCachePath()} {
		if err := store.NewJSONFile(path).Remove(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, dir := range []string{cfg.BadgerDir(), cfg.GlyphDir()} {
		if dir == "" {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
