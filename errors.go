package sheetmatch

import (
	"errors"
	"fmt"
)

// ErrEmptyCatalog is returned by Match when there is nothing to match
// against.
var ErrEmptyCatalog = errors.New("empty catalog")

// UnrenderableGlyphError reports a glyph the configured font cannot draw.
type UnrenderableGlyphError struct {
	Glyph  Glyph
	Reason string
}

func (e *UnrenderableGlyphError) Error() string {
	return fmt.Sprintf("cannot render glyph %q: %s", string(e.Glyph), e.Reason)
}

// CachePersistError reports a failed write of a memo table. The
// in-memory table is still valid when this is returned, and the value
// returned alongside it is correct.
type CachePersistError struct {
	Cache string
	Err   error
}

func (e *CachePersistError) Error() string {
	return fmt.Sprintf("failed to persist %s cache: %v", e.Cache, e.Err)
}

func (e *CachePersistError) Unwrap() error {
	return e.Err
}

// IsPersistError reports whether err is a CachePersistError, meaning the
// accompanying result can be used.
func IsPersistError(err error) bool {
	var pe *CachePersistError
	return errors.As(err, &pe)
}
