package cindex

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jward/cindex/internal/engine"
	"github.com/jward/cindex/kinds"
)

// State is the lifecycle position of a translation unit.
type State int32

const (
	StateUnparsed State = iota
	StateParsing
	StateParsed
	StateReparsing
	StateLoadFailed
)

func (s State) String() string {
	switch s {
	case StateUnparsed:
		return "unparsed"
	case StateParsing:
		return "parsing"
	case StateParsed:
		return "parsed"
	case StateReparsing:
		return "reparsing"
	case StateLoadFailed:
		return "load failed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// TranslationUnit owns one parsed unit. Every handle derived from it
// carries the generation it was created under; Reparse bumps the
// generation so older handles fail with ErrStale, and Dispose makes
// every handle fail with ErrDisposed.
//
// Parse, Reparse, Save, tokenizing, completion and Dispose hold the
// write lock; handle reads hold the read lock.
type TranslationUnit struct {
	index *Index
	id    uint64
	state atomic.Int32

	mu       sync.RWMutex
	unit     *engine.Unit
	gen      uint64
	memo     *memoTable
	disposed bool

	filename string
	args     []string
	overlays []UnsavedFile
	options  ParseOptions
}

func newTranslationUnit(ix *Index, filename string, args []string, overlays []UnsavedFile, options ParseOptions) *TranslationUnit {
	tu := &TranslationUnit{
		index:    ix,
		id:       unitSeq.Add(1),
		filename: filename,
		args:     append([]string(nil), args...),
		overlays: copyOverlays(overlays),
		options:  options,
	}
	tu.state.Store(int32(StateParsing))
	return tu
}

func copyOverlays(in []UnsavedFile) []UnsavedFile {
	if len(in) == 0 {
		return nil
	}
	out := make([]UnsavedFile, len(in))
	for i, o := range in {
		out[i] = UnsavedFile{Name: o.Name, Contents: append([]byte(nil), o.Contents...)}
	}
	return out
}

// install swaps in a freshly built unit. Callers hold the write lock or
// own tu exclusively.
func (tu *TranslationUnit) install(u *engine.Unit) {
	tu.unit = u
	tu.gen++
	tu.memo = newMemoTable()
	if m := u.Main(); m != nil {
		tu.filename = m.Name
	}
	tu.state.Store(int32(StateParsed))
}

// snapshot returns the current unit for a new handle.
func (tu *TranslationUnit) snapshot() (*engine.Unit, uint64, *memoTable, error) {
	tu.mu.RLock()
	defer tu.mu.RUnlock()
	if err := tu.usableLocked(); err != nil {
		return nil, 0, nil, err
	}
	return tu.unit, tu.gen, tu.memo, nil
}

// view validates a handle created under gen.
func (tu *TranslationUnit) view(gen uint64) (*engine.Unit, *memoTable, error) {
	if tu == nil {
		return nil, nil, fmt.Errorf("%w: handle has no translation unit", ErrInvalidArgument)
	}
	tu.mu.RLock()
	defer tu.mu.RUnlock()
	if tu.disposed {
		return nil, nil, ErrDisposed
	}
	if gen != tu.gen {
		return nil, nil, ErrStale
	}
	if tu.unit == nil {
		return nil, nil, ErrLoadFailed
	}
	return tu.unit, tu.memo, nil
}

// alive reports ErrDisposed once the unit is gone. Handles detached
// from any unit, such as loaded diagnostics, are always alive.
func (tu *TranslationUnit) alive() error {
	if tu == nil {
		return nil
	}
	tu.mu.RLock()
	defer tu.mu.RUnlock()
	if tu.disposed {
		return ErrDisposed
	}
	return nil
}

func (tu *TranslationUnit) usableLocked() error {
	if tu.disposed {
		return ErrDisposed
	}
	if tu.unit == nil {
		return ErrLoadFailed
	}
	return nil
}

// State reports the lifecycle state.
func (tu *TranslationUnit) State() State { return State(tu.state.Load()) }

// Index returns the owning index.
func (tu *TranslationUnit) Index() *Index { return tu.index }

// Spelling returns the primary file name.
func (tu *TranslationUnit) Spelling() string {
	tu.mu.RLock()
	defer tu.mu.RUnlock()
	return tu.filename
}

// Cursor returns the root TRANSLATION_UNIT cursor.
func (tu *TranslationUnit) Cursor() (Cursor, error) {
	u, gen, _, err := tu.snapshot()
	if err != nil {
		return Cursor{}, fmt.Errorf("cindex: cursor: %w", err)
	}
	return tu.cursorFor(u, gen, u.Root()), nil
}

// CursorAt returns the innermost cursor whose extent contains loc, or
// the root when nothing narrower does.
func (tu *TranslationUnit) CursorAt(loc SourceLocation) (Cursor, error) {
	u, gen, _, err := tu.snapshot()
	if err != nil {
		return Cursor{}, fmt.Errorf("cindex: cursor at: %w", err)
	}
	if loc.IsNull() {
		return Cursor{}, fmt.Errorf("cindex: cursor at: %w: null location", ErrInvalidArgument)
	}
	if loc.tu != tu {
		return Cursor{}, fmt.Errorf("cindex: cursor at: %w", ErrTUMismatch)
	}
	exp := loc.unit.ExpansionLoc(loc.loc())
	file := exp.File
	if loc.unit != u {
		// Located against a unit replaced by Reparse; match by name.
		f := loc.unit.File(exp.File)
		if f == nil {
			return tu.nullCursor(gen), nil
		}
		cur := u.FileByName(f.Name)
		if cur == nil {
			return tu.nullCursor(gen), nil
		}
		file = cur.ID
	}
	return tu.cursorFor(u, gen, u.NodeAt(file, exp.Offset)), nil
}

// File returns the file registered under name.
func (tu *TranslationUnit) File(name string) (File, error) {
	u, gen, _, err := tu.snapshot()
	if err != nil {
		return File{}, fmt.Errorf("cindex: file: %w", err)
	}
	f := u.FileByName(name)
	if f == nil {
		return File{}, fmt.Errorf("cindex: file %q: %w", name, ErrFileNotFound)
	}
	return File{tu: tu, unit: u, gen: gen, id: f.ID}, nil
}

// FileInclusion is one #include resolved while parsing.
type FileInclusion struct {
	Source   File
	Include  File
	Location SourceLocation
	Depth    int
}

// IsIncludeDirectly reports an inclusion made by the main file.
func (fi FileInclusion) IsIncludeDirectly() bool { return fi.Depth == 1 }

// Includes lists every inclusion in the order the preprocessor saw them.
func (tu *TranslationUnit) Includes() ([]FileInclusion, error) {
	u, gen, _, err := tu.snapshot()
	if err != nil {
		return nil, fmt.Errorf("cindex: includes: %w", err)
	}
	out := make([]FileInclusion, 0, len(u.Includes))
	for _, inc := range u.Includes {
		out = append(out, FileInclusion{
			Source:   File{tu: tu, unit: u, gen: gen, id: inc.Source},
			Include:  File{tu: tu, unit: u, gen: gen, id: inc.Included},
			Location: newLocation(tu, u, gen, inc.Loc),
			Depth:    inc.Depth,
		})
	}
	return out, nil
}

// ResourceUsage returns a point-in-time estimate of the memory held per
// resource kind.
func (tu *TranslationUnit) ResourceUsage() (map[kinds.ResourceUsageKind]uint64, error) {
	u, _, _, err := tu.snapshot()
	if err != nil {
		return nil, fmt.Errorf("cindex: resource usage: %w", err)
	}
	return u.Usage(), nil
}

// Reparse rebuilds the unit from the original arguments and the given
// overlays, then swaps it in. Handles from before the call become stale.
// On failure the unit moves to StateLoadFailed and a *ReparseError is
// returned.
func (tu *TranslationUnit) Reparse(ctx context.Context, overlays []UnsavedFile) error {
	tu.mu.Lock()
	defer tu.mu.Unlock()
	if tu.disposed {
		return fmt.Errorf("cindex: reparse: %w", ErrDisposed)
	}
	if tu.unit == nil {
		return &ReparseError{Path: tu.filename, Err: ErrLoadFailed}
	}

	tu.state.Store(int32(StateReparsing))
	start := time.Now()
	tu.overlays = copyOverlays(overlays)
	u, err := tu.index.build(ctx, tu.filename, tu.args, tu.overlays, tu.options)
	if err != nil {
		tu.unit = nil
		tu.memo = nil
		tu.gen++
		tu.state.Store(int32(StateLoadFailed))
		return &ReparseError{Path: tu.filename, Err: err}
	}
	tu.install(u)
	tu.index.logger.Debug("reparsed translation unit",
		"file", tu.filename,
		"generation", tu.gen,
		"diagnostics", len(u.Diags),
		"elapsed", time.Since(start),
	)
	return nil
}

// Dispose releases the unit and its reference on the index. Every handle
// derived from it fails with ErrDisposed afterwards.
func (tu *TranslationUnit) Dispose() {
	tu.mu.Lock()
	if tu.disposed {
		tu.mu.Unlock()
		return
	}
	tu.disposed = true
	tu.unit = nil
	tu.memo = nil
	tu.mu.Unlock()
	tu.index.release()
}

// Disposed reports whether Dispose has been called.
func (tu *TranslationUnit) Disposed() bool {
	tu.mu.RLock()
	defer tu.mu.RUnlock()
	return tu.disposed
}

// UnsavedFileFromReader reads an overlay's contents from r.
func UnsavedFileFromReader(name string, r io.Reader) (UnsavedFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return UnsavedFile{}, fmt.Errorf("cindex: reading overlay %s: %w", name, err)
	}
	return UnsavedFile{Name: name, Contents: data}, nil
}
