package cindex

import (
	"fmt"
	"sync"

	"github.com/jward/cindex/internal/engine"
)

// SourceLocation is a position in a translation unit. Its expansion,
// spelling and presumed flavors are computed on first use and cached.
// After the unit is disposed every flavor reads as zero and Err reports
// ErrDisposed.
type SourceLocation struct {
	tu    *TranslationUnit
	unit  *engine.Unit
	gen   uint64
	file  engine.FileID
	off   uint32
	exp   uint32
	cache *locCache
}

type position struct {
	file engine.FileID
	line int
	col  int
	off  uint32
}

type locCache struct {
	once      sync.Once
	expansion position
	spelling  position
	presumed  string
	pline     int
}

func newLocation(tu *TranslationUnit, u *engine.Unit, gen uint64, l engine.Loc) SourceLocation {
	if l.IsNull() {
		return SourceLocation{}
	}
	return SourceLocation{tu: tu, unit: u, gen: gen, file: l.File, off: l.Offset, exp: l.Exp, cache: &locCache{}}
}

// NullLocation returns the location that refers to nothing.
func NullLocation() SourceLocation { return SourceLocation{} }

func (l SourceLocation) IsNull() bool { return l.unit == nil || l.file == 0 }

// Err is ErrDisposed once the owning unit has been disposed.
func (l SourceLocation) Err() error { return l.tu.alive() }

func (l SourceLocation) loc() engine.Loc {
	return engine.Loc{File: l.file, Offset: l.off, Exp: l.exp}
}

func (l SourceLocation) resolve() *locCache {
	if l.IsNull() || l.Err() != nil {
		return &locCache{}
	}
	l.cache.once.Do(func() {
		c := l.cache
		c.expansion = l.position(l.unit.ExpansionLoc(l.loc()))
		c.spelling = l.position(l.unit.SpellingLoc(l.loc()))
		if f := l.unit.File(c.expansion.file); f != nil {
			c.presumed, c.pline = f.Presumed(c.expansion.line)
		}
	})
	return l.cache
}

func (l SourceLocation) position(el engine.Loc) position {
	f := l.unit.File(el.File)
	if f == nil {
		return position{}
	}
	line, col := f.LineCol(el.Offset)
	return position{file: el.File, line: line, col: col, off: el.Offset}
}

func (l SourceLocation) fileOf(p position) File {
	if p.file == 0 {
		return File{}
	}
	return File{tu: l.tu, unit: l.unit, gen: l.gen, id: p.file}
}

// ExpansionLocation maps a position produced by a macro to the macro's
// use site.
func (l SourceLocation) ExpansionLocation() (File, int, int, int) {
	p := l.resolve().expansion
	return l.fileOf(p), p.line, p.col, int(p.off)
}

// SpellingLocation maps a position produced by a macro to where its
// characters were written.
func (l SourceLocation) SpellingLocation() (File, int, int, int) {
	p := l.resolve().spelling
	return l.fileOf(p), p.line, p.col, int(p.off)
}

// PresumedLocation applies #line markers to the expansion location.
func (l SourceLocation) PresumedLocation() (string, int, int) {
	c := l.resolve()
	return c.presumed, c.pline, c.expansion.col
}

func (l SourceLocation) File() File  { return l.fileOf(l.resolve().expansion) }
func (l SourceLocation) Line() int   { return l.resolve().expansion.line }
func (l SourceLocation) Column() int { return l.resolve().expansion.col }
func (l SourceLocation) Offset() int { return int(l.resolve().expansion.off) }

func (l SourceLocation) TranslationUnit() *TranslationUnit { return l.tu }

// Equal is structural: same unit, file, offset and macro expansion.
func (l SourceLocation) Equal(o SourceLocation) bool {
	if l.IsNull() || o.IsNull() {
		return l.IsNull() && o.IsNull()
	}
	return l.tu == o.tu && l.unit == o.unit && l.file == o.file && l.off == o.off && l.exp == o.exp
}

func (l SourceLocation) String() string {
	f := l.File()
	if f.IsNull() {
		return fmt.Sprintf("<SourceLocation file None, line %d, column %d>", l.Line(), l.Column())
	}
	return fmt.Sprintf("<SourceLocation file '%s', line %d, column %d>", f.Name(), l.Line(), l.Column())
}

// LocationOption configures NewSourceLocation.
type LocationOption func(*locationSpec)

type locationSpec struct {
	sources   int
	positions int

	file   File
	tu     *TranslationUnit
	name   string
	byName bool

	line, col int
	off       int
	byOffset  bool
}

// WithFile locates within f.
func WithFile(f File) LocationOption {
	return func(s *locationSpec) {
		s.sources++
		s.file = f
	}
}

// WithFilename locates within the file tu knows as name.
func WithFilename(tu *TranslationUnit, name string) LocationOption {
	return func(s *locationSpec) {
		s.sources++
		s.tu, s.name, s.byName = tu, name, true
	}
}

// AtPosition selects a 1-based line and column.
func AtPosition(line, col int) LocationOption {
	return func(s *locationSpec) {
		s.positions++
		s.line, s.col, s.byOffset = line, col, false
	}
}

// AtOffset selects a 0-based byte offset.
func AtOffset(off int) LocationOption {
	return func(s *locationSpec) {
		s.positions++
		s.off, s.byOffset = off, true
	}
}

// NewSourceLocation builds a location from exactly one source (WithFile
// or WithFilename) and exactly one position (AtPosition or AtOffset).
// Positions past the end of the file clamp to its last character.
func NewSourceLocation(opts ...LocationOption) (SourceLocation, error) {
	var s locationSpec
	for _, opt := range opts {
		opt(&s)
	}
	switch {
	case s.sources != 1:
		return SourceLocation{}, fmt.Errorf("%w: need exactly one of WithFile or WithFilename, got %d", ErrInvalidArgument, s.sources)
	case s.positions != 1:
		return SourceLocation{}, fmt.Errorf("%w: need exactly one of AtPosition or AtOffset, got %d", ErrInvalidArgument, s.positions)
	case s.byOffset && s.off < 0:
		return SourceLocation{}, fmt.Errorf("%w: offset %d < 0", ErrInvalidArgument, s.off)
	case !s.byOffset && (s.line < 1 || s.col < 1):
		return SourceLocation{}, fmt.Errorf("%w: line %d, column %d must be >= 1", ErrInvalidArgument, s.line, s.col)
	}

	f := s.file
	if s.byName {
		if s.tu == nil {
			return SourceLocation{}, fmt.Errorf("%w: WithFilename needs a translation unit", ErrInvalidArgument)
		}
		var err error
		if f, err = s.tu.File(s.name); err != nil {
			return SourceLocation{}, err
		}
	}
	if f.tu != nil {
		if _, _, err := f.tu.view(f.gen); err != nil {
			return SourceLocation{}, fmt.Errorf("cindex: source location: %w", err)
		}
	}
	src := f.src()
	if src == nil {
		return SourceLocation{}, fmt.Errorf("%w: null file", ErrInvalidArgument)
	}

	var off uint32
	switch {
	case s.byOffset && s.off >= int(src.Size()):
		off = src.ClampOffset(src.Size())
	case s.byOffset:
		off = uint32(s.off)
	default:
		off = src.Offset(s.line, s.col)
	}
	loc := engine.Loc{File: f.id, Offset: off, Exp: expansionAt(f.unit, f.id, off)}
	return newLocation(f.tu, f.unit, f.gen, loc), nil
}

// LocationFromPosition is NewSourceLocation(WithFile(f), AtPosition(line, col))
// with a check that f belongs to tu.
func LocationFromPosition(tu *TranslationUnit, f File, line, col int) (SourceLocation, error) {
	if f.tu != tu {
		return SourceLocation{}, ErrTUMismatch
	}
	return NewSourceLocation(WithFile(f), AtPosition(line, col))
}

// LocationFromOffset is NewSourceLocation(WithFile(f), AtOffset(off))
// with a check that f belongs to tu.
func LocationFromOffset(tu *TranslationUnit, f File, off int) (SourceLocation, error) {
	if f.tu != tu {
		return SourceLocation{}, ErrTUMismatch
	}
	return NewSourceLocation(WithFile(f), AtOffset(off))
}

// expansionAt finds the macro use covering off, as 1 + its index.
func expansionAt(u *engine.Unit, file engine.FileID, off uint32) uint32 {
	for i, e := range u.Expansions {
		if e.Use.Contains(file, off) {
			return uint32(i + 1)
		}
	}
	return 0
}

// SourceRange is a start and end location in one translation unit.
type SourceRange struct {
	start SourceLocation
	end   SourceLocation
}

func newRange(tu *TranslationUnit, u *engine.Unit, gen uint64, r engine.Range) SourceRange {
	if r.IsNull() {
		return SourceRange{}
	}
	return SourceRange{
		start: newLocation(tu, u, gen, engine.Loc{File: r.File, Offset: r.Start}),
		end:   newLocation(tu, u, gen, engine.Loc{File: r.File, Offset: r.End}),
	}
}

// NullRange returns the range that covers nothing.
func NullRange() SourceRange { return SourceRange{} }

// NewSourceRange pairs two locations of the same translation unit.
func NewSourceRange(start, end SourceLocation) (SourceRange, error) {
	if !start.IsNull() && !end.IsNull() && (start.tu != end.tu || start.unit != end.unit) {
		return SourceRange{}, ErrTUMismatch
	}
	for _, l := range []SourceLocation{start, end} {
		if err := l.Err(); err != nil {
			return SourceRange{}, fmt.Errorf("cindex: source range: %w", err)
		}
	}
	return SourceRange{start: start, end: end}, nil
}

func (r SourceRange) Start() SourceLocation { return r.start }
func (r SourceRange) End() SourceLocation   { return r.end }

func (r SourceRange) IsNull() bool { return r.start.IsNull() && r.end.IsNull() }

// Err is ErrDisposed once the owning unit has been disposed.
func (r SourceRange) Err() error {
	if err := r.start.Err(); err != nil {
		return err
	}
	return r.end.Err()
}

func (r SourceRange) Equal(o SourceRange) bool {
	return r.start.Equal(o.start) && r.end.Equal(o.end)
}

// Contains reports whether loc lies between the endpoints, inclusive,
// in the same file.
func (r SourceRange) Contains(loc SourceLocation) bool {
	if r.IsNull() || loc.IsNull() || loc.tu != r.start.tu {
		return false
	}
	sf, ef, lf := r.start.File(), r.end.File(), loc.File()
	if sf.Name() != lf.Name() || ef.Name() != lf.Name() {
		return false
	}
	off := loc.Offset()
	return r.start.Offset() <= off && off <= r.end.Offset()
}

func (r SourceRange) String() string {
	return fmt.Sprintf("<SourceRange start %s, end %s>", r.start, r.end)
}
