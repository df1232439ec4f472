package sheetmatch

import (
	"log/slog"

	"github.com/wbrown/sheetmatch/store"
)

// MatchCache memoizes alignment costs per (subject, target). Subjects
// are OCR readings and targets catalog entries, so keys are ordered. It
// is not safe for concurrent use.
type MatchCache struct {
	memo
	aligner Aligner
}

// NewMatchCache returns a match cache. A nil backend keeps the table in
// memory only.
func NewMatchCache(aligner Aligner, backend store.Backend, logger *slog.Logger) *MatchCache {
	return &MatchCache{
		memo:    newMemo("match", backend, logger),
		aligner: aligner,
	}
}

// Get returns the alignment cost of subject against target. A
// *CachePersistError is returned together with a valid cost when only a
// write failed.
func (c *MatchCache) Get(subject, target string) (float64, error) {
	if d, ok := c.lookup(subject, target); ok {
		return d, nil
	}

	var pe persistErrs
	d, err := c.aligner.Align(subject, target)
	if err := pe.keep(err); err != nil {
		return 0, err
	}

	c.logger.Debug("computed match cost", "subject", subject, "target", target, "cost", d)
	if err := c.add(subject, target, d); err != nil && pe.first == nil {
		pe.first = err
	}
	return d, pe.first
}
