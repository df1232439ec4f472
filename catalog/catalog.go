// Package catalog lists the reference documents a reading is matched
// against. Each document's file name, without extension, is a catalog
// entry.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Dir is a directory of reference documents. The listing is read once
// and kept until Invalidate is called.
type Dir struct {
	Path string

	// Ext filters documents by extension (case-insensitive, with the
	// leading dot). Empty accepts every regular file.
	Ext string

	mu      sync.Mutex
	entries []string
	files   map[string]string
}

// NewDir returns a catalog over the documents in path.
func NewDir(path, ext string) *Dir {
	return &Dir{Path: path, Ext: ext}
}

// List returns the catalog entries sorted by name.
func (d *Dir) List() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.entries == nil {
		if err := d.scan(); err != nil {
			return nil, err
		}
	}
	return append([]string(nil), d.entries...), nil
}

// Resolve returns the path of the document behind entry.
func (d *Dir) Resolve(entry string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.entries == nil {
		if err := d.scan(); err != nil {
			return "", err
		}
	}
	path, ok := d.files[entry]
	if !ok {
		return "", fmt.Errorf("no document for catalog entry %q", entry)
	}
	return path, nil
}

// Invalidate drops the cached listing.
func (d *Dir) Invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = nil
	d.files = nil
}

func (d *Dir) scan() error {
	dirEntries, err := os.ReadDir(d.Path)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}

	entries := make([]string, 0, len(dirEntries))
	files := make(map[string]string, len(dirEntries))
	for _, de := range dirEntries {
		if !de.Type().IsRegular() {
			continue
		}
		name := de.Name()
		ext := filepath.Ext(name)
		if d.Ext != "" && !strings.EqualFold(ext, d.Ext) {
			continue
		}
		stem := strings.TrimSuffix(name, ext)
		if stem == "" {
			continue
		}
		if _, dup := files[stem]; dup {
			continue
		}
		files[stem] = filepath.Join(d.Path, name)
		entries = append(entries, stem)
	}
	sort.Strings(entries)

	d.entries = entries
	d.files = files
	return nil
}
