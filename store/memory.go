package store

import (
	"encoding/json"
	"sync"
)

// Memory keeps a serialized snapshot of the last saved table. Load
// always returns a fresh copy, so callers cannot alias stored state.
type Memory struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load() (*Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := NewTable()
	if m.data == nil {
		return t, nil
	}
	if err := json.Unmarshal(m.data, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (m *Memory) Save(t *Table) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
	m.saves++
	return nil
}

func (m *Memory) Close() error {
	return nil
}

// Saves reports how many times Save has succeeded.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Bytes returns the last saved document.
func (m *Memory) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}
