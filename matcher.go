package sheetmatch

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoQuery is returned by MatchBest when every reading is empty.
var ErrNoQuery = errors.New("no non-empty query")

// CostSource returns the alignment cost of a query against a catalog
// entry. *MatchCache implements it.
type CostSource interface {
	Get(subject, target string) (float64, error)
}

// Result is the selected catalog entry for a query.
type Result struct {
	Query string
	Entry string
	Cost  float64
}

// Matcher selects the catalog entry closest to a query.
type Matcher struct {
	Costs CostSource
}

// NewMatcher returns a matcher over costs.
func NewMatcher(costs CostSource) *Matcher {
	return &Matcher{Costs: costs}
}

// Match returns the catalog entry with the lowest cost. Ties go to the
// entry that comes first in catalog. An empty catalog fails with
// ErrEmptyCatalog. A *CachePersistError may accompany a valid result.
func (m *Matcher) Match(query string, catalog []string) (Result, error) {
	if len(catalog) == 0 {
		return Result{}, ErrEmptyCatalog
	}

	var pe persistErrs
	best := Result{Query: query}
	for i, entry := range catalog {
		cost, err := m.Costs.Get(query, entry)
		if err := pe.keep(err); err != nil {
			return Result{}, fmt.Errorf("match %q against %q: %w", query, entry, err)
		}
		if i == 0 || cost < best.Cost {
			best.Entry, best.Cost = entry, cost
		}
	}
	return best, pe.first
}

// MatchBest matches several readings of the same marking and keeps the
// cheapest result. Readings are trimmed; empty ones are skipped, and ties
// go to the earlier reading.
func (m *Matcher) MatchBest(queries []string, catalog []string) (Result, error) {
	if len(catalog) == 0 {
		return Result{}, ErrEmptyCatalog
	}

	var pe persistErrs
	var best Result
	found := false
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		r, err := m.Match(q, catalog)
		if err := pe.keep(err); err != nil {
			return Result{}, err
		}
		if !found || r.Cost < best.Cost {
			best, found = r, true
		}
	}
	if !found {
		return Result{}, ErrNoQuery
	}
	return best, pe.first
}
