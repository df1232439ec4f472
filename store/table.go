// Package store persists the memo tables of the matching engine: an
// insertion-ordered mapping from a subject key to the list of targets
// evaluated against it and their distances.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrCorrupt is returned by Load when persisted data cannot be decoded
	// into a table.
	ErrCorrupt = errors.New("corrupt cache data")

	// ErrUnreadable is returned by Load when persisted data exists but
	// cannot be read.
	ErrUnreadable = errors.New("unreadable cache data")
)

// Entry is one memoized (target, distance) record of a subject.
type Entry struct {
	Target   string  `json:"target"`
	Distance float64 `json:"distance"`
}

// Table maps subjects to their entries, preserving the order in which
// subjects were first added. Entry lists only grow.
type Table struct {
	m *OrderedMap[string, []Entry]
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{m: NewOrderedMap[string, []Entry]()}
}

// Lookup returns the distance recorded for (subject, target).
func (t *Table) Lookup(subject, target string) (float64, bool) {
	entries, ok := t.m.Get(subject)
	if !ok {
		return 0, false
	}
	for _, e := range entries {
		if e.Target == target {
			return e.Distance, true
		}
	}
	return 0, false
}

// Entries returns a copy of the entries of subject.
func (t *Table) Entries(subject string) ([]Entry, bool) {
	entries, ok := t.m.Get(subject)
	if !ok {
		return nil, false
	}
	return append([]Entry(nil), entries...), true
}

// Append records a new entry for subject and returns the subject's
// updated entry list.
func (t *Table) Append(subject string, e Entry) []Entry {
	var out []Entry
	t.m.Update(subject, func(entries []Entry) []Entry {
		out = append(entries, e)
		return out
	})
	return append([]Entry(nil), out...)
}

// Set replaces the entries of subject.
func (t *Table) Set(subject string, entries []Entry) {
	t.m.Set(subject, append([]Entry{}, entries...))
}

// Subjects returns the subjects in insertion order.
func (t *Table) Subjects() []string {
	return t.m.Keys()
}

// Len returns the number of subjects.
func (t *Table) Len() int {
	return t.m.Len()
}

// Pairs returns the total number of entries across all subjects.
func (t *Table) Pairs() int {
	n := 0
	t.m.Iterate(func(_ string, entries []Entry) {
		n += len(entries)
	})
	return n
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	c := NewTable()
	t.m.Iterate(func(subject string, entries []Entry) {
		c.Set(subject, entries)
	})
	return c
}

// Iterate calls f for each subject in insertion order.
func (t *Table) Iterate(f func(subject string, entries []Entry)) {
	t.m.Iterate(f)
}

// MarshalJSON encodes the table as a JSON object whose keys follow
// insertion order.
func (t *Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	var err error
	t.m.Iterate(func(subject string, entries []Entry) {
		if err != nil {
			return
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false

		var key, value []byte
		if key, err = json.Marshal(subject); err != nil {
			return
		}
		if value, err = encodeEntries(entries); err != nil {
			return
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	})
	if err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into the table, keeping the key
// order of the document. Any malformed entry rejects the whole document.
func (t *Table) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("%w: expected object", ErrCorrupt)
	}

	table := NewTable()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		subject, ok := tok.(string)
		if !ok {
			return fmt.Errorf("%w: expected subject key", ErrCorrupt)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("%w: subject %q: %v", ErrCorrupt, subject, err)
		}
		entries, err := DecodeEntries(raw)
		if err != nil {
			return fmt.Errorf("subject %q: %w", subject, err)
		}
		table.Set(subject, entries)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	t.m = table.m
	return nil
}

// DecodeEntries decodes a JSON array of entries, requiring both fields on
// every record and a finite, non-negative distance.
func DecodeEntries(data []byte) ([]Entry, error) {
	var raw []struct {
		Target   *string  `json:"target"`
		Distance *float64 `json:"distance"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: entries must be an array", ErrCorrupt)
	}

	entries := make([]Entry, 0, len(raw))
	for i, r := range raw {
		if r.Target == nil || r.Distance == nil {
			return nil, fmt.Errorf("%w: entry %d is missing a field", ErrCorrupt, i)
		}
		if *r.Distance < 0 || math.IsInf(*r.Distance, 0) || math.IsNaN(*r.Distance) {
			return nil, fmt.Errorf("%w: entry %d has invalid distance %v", ErrCorrupt, i, *r.Distance)
		}
		entries = append(entries, Entry{Target: *r.Target, Distance: *r.Distance})
	}
	return entries, nil
}

func encodeEntries(entries []Entry) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}
	return json.Marshal(entries)
}

// Backend loads and saves tables.
//
// Load returns an empty table and a nil error when nothing has been
// persisted yet. It wraps ErrCorrupt or ErrUnreadable when persisted data
// exists but cannot be used.
type Backend interface {
	Load() (*Table, error)
	Save(t *Table) error
	Close() error
}

// SubjectWriter is implemented by backends that can persist the entries
// of a single subject without rewriting the whole table.
type SubjectWriter interface {
	Put(subject string, entries []Entry) error
}
