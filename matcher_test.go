package sheetmatch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wbrown/sheetmatch/store"
)

// tableCosts serves fixed costs; missing pairs cost 100.
type tableCosts map[[2]string]float64

func (c tableCosts) Get(subject, target string) (float64, error) {
	if d, ok := c[[2]string{subject, target}]; ok {
		return d, nil
	}
	return 100, nil
}

// countingAligner counts alignments and prices them by length
// difference plus one.
type countingAligner struct {
	calls int
	err   error
}

func (a *countingAligner) Align(subject, target string) (float64, error) {
	a.calls++
	diff := len(subject) - len(target)
	if diff < 0 {
		diff = -diff
	}
	return float64(diff + 1), a.err
}

func TestMatchPicksLowestCost(t *testing.T) {
	m := NewMatcher(tableCosts{
		{"74LS0O", "74LS00"}: 1,
		{"74LS0O", "74LS04"}: 3,
	})
	r, err := m.Match("74LS0O", []string{"74LS04", "74LS00", "74HC595"})
	require.NoError(t, err)
	assert.Equal(t, Result{Query: "74LS0O", Entry: "74LS00", Cost: 1}, r)
}

func TestMatchTieKeepsFirst(t *testing.T) {
	m := NewMatcher(tableCosts{
		{"Q", "B"}: 2,
		{"Q", "A"}: 2,
		{"Q", "C"}: 2,
	})
	r, err := m.Match("Q", []string{"B", "A", "C"})
	require.NoError(t, err)
	assert.Equal(t, "B", r.Entry)
}

func TestMatchSingleEntry(t *testing.T) {
	m := NewMatcher(tableCosts{})
	r, err := m.Match("anything", []string{"only"})
	require.NoError(t, err)
	assert.Equal(t, "only", r.Entry)
	assert.Equal(t, float64(100), r.Cost)
}

func TestMatchEmptyCatalog(t *testing.T) {
	m := NewMatcher(tableCosts{})
	_, err := m.Match("74LS00", nil)
	assert.ErrorIs(t, err, ErrEmptyCatalog)

	_, err = m.MatchBest([]string{"74LS00"}, []string{})
	assert.ErrorIs(t, err, ErrEmptyCatalog)
}

func TestMatchBest(t *testing.T) {
	m := NewMatcher(tableCosts{
		{"74L500", "74LS00"}: 4,
		{"74LS00", "74LS00"}: 0,
		{"74LSOO", "74LS00"}: 0,
	})
	catalog := []string{"74LS00", "74HC595"}

	r, err := m.MatchBest([]string{" 74L500 ", "", "74LS00", "74LSOO"}, catalog)
	require.NoError(t, err)
	assert.Equal(t, Result{Query: "74LS00", Entry: "74LS00", Cost: 0}, r)

	_, err = m.MatchBest([]string{"", "  "}, catalog)
	assert.ErrorIs(t, err, ErrNoQuery)
}

func TestMatchCacheMemoizesOrderedPairs(t *testing.T) {
	aligner := &countingAligner{}
	backend := store.NewMemory()
	c := NewMatchCache(aligner, backend, nil)

	d, err := c.Get("7AXX151", "74LS151")
	require.NoError(t, err)
	assert.Equal(t, float64(1), d)

	_, err = c.Get("7AXX151", "74LS151")
	require.NoError(t, err)
	assert.Equal(t, 1, aligner.calls)

	// Readings and entries are different roles; no mirroring.
	_, err = c.Get("74LS151", "7AXX151")
	require.NoError(t, err)
	assert.Equal(t, 2, aligner.calls)

	reloaded, err := backend.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"7AXX151", "74LS151"}, reloaded.Subjects())
}

func TestMatchCachePersistErrors(t *testing.T) {
	c := NewMatchCache(&countingAligner{}, failingBackend{}, nil)
	d, err := c.Get("AB", "ABC")
	assert.True(t, IsPersistError(err))
	assert.Equal(t, float64(2), d)

	// The aligner's own persistence failure is reported too.
	pairFailure := &CachePersistError{Cache: "pair", Err: errDiskFull}
	c = NewMatchCache(&countingAligner{err: pairFailure}, nil, nil)
	d, err = c.Get("AB", "AB")
	assert.ErrorIs(t, err, pairFailure)
	assert.Equal(t, float64(1), d)
	_, ok := c.Table().Lookup("AB", "AB")
	assert.True(t, ok)
}

func TestMatchCacheHardError(t *testing.T) {
	boom := errors.New("boom")
	c := NewMatchCache(&countingAligner{err: boom}, nil, nil)
	_, err := c.Get("AB", "AB")
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, c.Table().Pairs(), "failed alignments are not cached")
}

func TestMatchPropagatesPersistErrors(t *testing.T) {
	c := NewMatchCache(&countingAligner{}, failingBackend{}, nil)
	m := NewMatcher(c)

	r, err := m.Match("ABC", []string{"AB", "ABC"})
	assert.True(t, IsPersistError(err))
	assert.Equal(t, "ABC", r.Entry)

	r, err = m.MatchBest([]string{"ABCD", "ABC"}, []string{"ABC"})
	assert.True(t, IsPersistError(err))
	assert.Equal(t, "ABC", r.Query)
}
