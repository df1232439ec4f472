package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() *Table {
	t := NewTable()
	t.Append("O", Entry{Target: "0", Distance: 12.5})
	t.Append("B", Entry{Target: "8", Distance: 3})
	t.Append("O", Entry{Target: "Q", Distance: 40})
	return t
}

func TestOrderedMapKeepsInsertionOrder(t *testing.T) {
	m := NewOrderedMap[string, int]()
	m.Set("c", 1)
	m.Set("a", 2)
	m.Set("b", 3)
	m.Set("a", 4)

	assert.Equal(t, []string{"c", "a", "b"}, m.Keys())
	v, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, 4, v)

	m.Delete("c")
	assert.Equal(t, []string{"a", "b"}, m.Keys())
	assert.Equal(t, 2, m.Len())
}

func TestTableLookupAndAppend(t *testing.T) {
	tbl := sampleTable()

	d, ok := tbl.Lookup("O", "Q")
	require.True(t, ok)
	assert.Equal(t, 40.0, d)

	_, ok = tbl.Lookup("O", "D")
	assert.False(t, ok)
	_, ok = tbl.Lookup("Z", "2")
	assert.False(t, ok)

	assert.Equal(t, []string{"O", "B"}, tbl.Subjects())
	assert.Equal(t, 3, tbl.Pairs())

	entries, ok := tbl.Entries("O")
	require.True(t, ok)
	entries[0].Distance = 999
	d, _ = tbl.Lookup("O", "0")
	assert.Equal(t, 12.5, d, "Entries must return a copy")
}

func TestTableClone(t *testing.T) {
	orig := sampleTable()
	c := orig.Clone()
	assert.Equal(t, orig.Subjects(), c.Subjects())
	assert.Equal(t, 3, c.Pairs())

	orig.Append("O", Entry{Target: "D", Distance: 9})
	orig.Append("8", Entry{Target: "B", Distance: 3})
	assert.Equal(t, 3, c.Pairs(), "clone must not see later writes")
	assert.Equal(t, []string{"O", "B"}, c.Subjects())
}

func TestTableJSONPreservesOrder(t *testing.T) {
	data, err := json.Marshal(sampleTable())
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"O":[{"target":"0","distance":12.5},{"target":"Q","distance":40}],"B":[{"target":"8","distance":3}]}`,
		string(data))

	decoded := NewTable()
	require.NoError(t, json.Unmarshal([]byte(`{"z":[],"a":[{"target":"x","distance":1}],"m":[]}`), decoded))
	assert.Equal(t, []string{"z", "a", "m"}, decoded.Subjects())
}

func TestTableRejectsMalformedDocuments(t *testing.T) {
	cases := map[string]string{
		"not an object":    `[1,2]`,
		"missing distance": `{"a":[{"target":"b"}]}`,
		"missing target":   `{"a":[{"distance":1}]}`,
		"negative":         `{"a":[{"target":"b","distance":-1}]}`,
		"entries not list": `{"a":{"target":"b","distance":1}}`,
		"null entries":     `{"a":null}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			err := json.Unmarshal([]byte(doc), NewTable())
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestJSONFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "pairs.json")
	f := NewJSONFile(path)

	empty, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())

	require.NoError(t, f.Save(sampleTable()))

	loaded, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"O", "B"}, loaded.Subjects())
	d, ok := loaded.Lookup("B", "8")
	require.True(t, ok)
	assert.Equal(t, 3.0, d)

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches, "temp files should be renamed away")

	require.NoError(t, f.Remove())
	require.NoError(t, f.Remove())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestJSONFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pairs.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewJSONFile(path).Load()
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestJSONFileUnreadable(t *testing.T) {
	// A directory at the document path exists but cannot be read as a file.
	path := t.TempDir()
	_, err := NewJSONFile(path).Load()
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestMemoryBackend(t *testing.T) {
	m := NewMemory()
	tbl, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())

	require.NoError(t, m.Save(sampleTable()))
	assert.Equal(t, 1, m.Saves())

	loaded, err := m.Load()
	require.NoError(t, err)
	loaded.Append("new", Entry{Target: "x", Distance: 1})

	again, err := m.Load()
	require.NoError(t, err)
	assert.Equal(t, 2, again.Len(), "loaded tables must not alias stored state")
}

func TestBadgerBackend(t *testing.T) {
	db, err := OpenBadger(BadgerConfig{InMemory: true})
	require.NoError(t, err)
	defer db.Close()

	pairs := NewBadger(db, "pairs")
	matches := NewBadger(db, "matches")

	require.NoError(t, pairs.Save(sampleTable()))
	require.NoError(t, matches.Put("74LSOO", []Entry{{Target: "74LS00", Distance: 7}}))

	loaded, err := pairs.Load()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"O", "B"}, loaded.Subjects())
	d, ok := loaded.Lookup("O", "Q")
	require.True(t, ok)
	assert.Equal(t, 40.0, d)

	m, err := matches.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"74LSOO"}, m.Subjects())

	assert.Equal(t, 1, m.Len(), "prefixes keep tables apart")
}

func TestBadgerRequiresPath(t *testing.T) {
	_, err := OpenBadger(BadgerConfig{})
	assert.Error(t, err)
}

func TestBadgerPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	db, err := OpenBadger(BadgerConfig{Path: dir})
	require.NoError(t, err)
	require.NoError(t, NewBadger(db, "pairs").Save(sampleTable()))
	require.NoError(t, db.Close())

	db, err = OpenBadger(BadgerConfig{Path: dir})
	require.NoError(t, err)
	defer db.Close()

	loaded, err := NewBadger(db, "pairs").Load()
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Pairs())
}
