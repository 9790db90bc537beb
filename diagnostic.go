package cindex

import (
	"fmt"
	"strings"

	"github.com/jward/cindex/internal/engine"
)

// Severity orders diagnostics from Ignored to Fatal.
type Severity = engine.Severity

const (
	SeverityIgnored = engine.SeverityIgnored
	SeverityNote    = engine.SeverityNote
	SeverityWarning = engine.SeverityWarning
	SeverityError   = engine.SeverityError
	SeverityFatal   = engine.SeverityFatal
)

// DiagnosticSet is an indexable view of diagnostics. A set obtained from
// a translation unit re-reads the unit on every call, so it reflects
// Reparse; a set from LoadDiagnostics or code completion is fixed.
type DiagnosticSet struct {
	tu    *TranslationUnit
	fixed *engine.Unit
}

// Diagnostics returns the live view of the unit's diagnostics.
func (tu *TranslationUnit) Diagnostics() DiagnosticSet {
	return DiagnosticSet{tu: tu}
}

func (s DiagnosticSet) unit() (*engine.Unit, uint64, error) {
	if s.fixed != nil {
		return s.fixed, 0, nil
	}
	if s.tu == nil {
		return nil, 0, nil
	}
	s.tu.mu.RLock()
	defer s.tu.mu.RUnlock()
	if err := s.tu.usableLocked(); err != nil {
		return nil, 0, err
	}
	return s.tu.unit, s.tu.gen, nil
}

// Len is the current diagnostic count; 0 for a disposed unit.
func (s DiagnosticSet) Len() int {
	u, _, err := s.unit()
	if err != nil || u == nil {
		return 0
	}
	return len(u.Diags)
}

// At returns diagnostic i in emission order.
func (s DiagnosticSet) At(i int) (Diagnostic, error) {
	u, gen, err := s.unit()
	if err != nil {
		return Diagnostic{}, fmt.Errorf("cindex: diagnostic: %w", err)
	}
	if u == nil || i < 0 || i >= len(u.Diags) {
		n := 0
		if u != nil {
			n = len(u.Diags)
		}
		return Diagnostic{}, fmt.Errorf("cindex: diagnostic %d of %d: %w", i, n, ErrOutOfRange)
	}
	return Diagnostic{tu: s.tu, unit: u, gen: gen, d: &u.Diags[i]}, nil
}

// All returns every diagnostic as of the call.
func (s DiagnosticSet) All() []Diagnostic {
	u, gen, err := s.unit()
	if err != nil || u == nil {
		return nil
	}
	out := make([]Diagnostic, len(u.Diags))
	for i := range u.Diags {
		out[i] = Diagnostic{tu: s.tu, unit: u, gen: gen, d: &u.Diags[i]}
	}
	return out
}

// Diagnostic is one reported issue. It reads the unit it was taken from
// and stays readable after a reparse. Once that unit is disposed it
// reads as empty and Err reports ErrDisposed.
type Diagnostic struct {
	tu   *TranslationUnit
	unit *engine.Unit
	gen  uint64
	d    *engine.Diagnostic
}

func (d Diagnostic) IsNull() bool { return d.d == nil }

// Err is ErrDisposed once the owning unit has been disposed.
func (d Diagnostic) Err() error { return d.tu.alive() }

// entry is the engine diagnostic, or nil for a null or disposed handle.
func (d Diagnostic) entry() *engine.Diagnostic {
	if d.d == nil || d.Err() != nil {
		return nil
	}
	return d.d
}

func (d Diagnostic) Severity() Severity {
	if e := d.entry(); e != nil {
		return e.Severity
	}
	return SeverityIgnored
}

func (d Diagnostic) Location() (SourceLocation, error) {
	if err := d.Err(); err != nil {
		return SourceLocation{}, fmt.Errorf("cindex: diagnostic location: %w", err)
	}
	if d.d == nil {
		return SourceLocation{}, nil
	}
	return newLocation(d.tu, d.unit, d.gen, d.d.Loc), nil
}

// Spelling is the message text.
func (d Diagnostic) Spelling() string {
	if e := d.entry(); e != nil {
		return e.Message
	}
	return ""
}

func (d Diagnostic) CategoryNumber() int {
	if e := d.entry(); e != nil {
		return e.Category
	}
	return 0
}

func (d Diagnostic) CategoryName() string {
	return engine.CategoryName(d.CategoryNumber())
}

// EnablingOption is the flag that turns the diagnostic on, such as
// "-Wunused-function"; empty when no flag controls it.
func (d Diagnostic) EnablingOption() string {
	e := d.entry()
	if e == nil || e.Option == "" {
		return ""
	}
	return "-W" + e.Option
}

// DisablingOption is the flag that turns the diagnostic off, such as
// "-Wno-unused-function"; empty when no flag controls it.
func (d Diagnostic) DisablingOption() string {
	e := d.entry()
	if e == nil || e.Option == "" {
		return ""
	}
	return "-Wno-" + e.Option
}

// Children are the notes attached to the diagnostic.
func (d Diagnostic) Children() []Diagnostic {
	e := d.entry()
	if e == nil {
		return nil
	}
	out := make([]Diagnostic, len(e.Children))
	for i := range e.Children {
		out[i] = Diagnostic{tu: d.tu, unit: d.unit, gen: d.gen, d: &e.Children[i]}
	}
	return out
}

// Ranges is the view of highlighted source ranges.
func (d Diagnostic) Ranges() (DiagnosticRanges, error) {
	if err := d.Err(); err != nil {
		return DiagnosticRanges{}, fmt.Errorf("cindex: diagnostic ranges: %w", err)
	}
	return DiagnosticRanges{d: d}, nil
}

// FixIts is the view of suggested edits.
func (d Diagnostic) FixIts() (FixIts, error) {
	if err := d.Err(); err != nil {
		return FixIts{}, fmt.Errorf("cindex: diagnostic fix-its: %w", err)
	}
	return FixIts{d: d}, nil
}

func (d Diagnostic) String() string {
	return d.Format(DefaultDiagnosticDisplayOptions())
}

// DiagnosticRanges is a bounds-checked view over a diagnostic's ranges.
type DiagnosticRanges struct{ d Diagnostic }

// Len is 0 once the unit is disposed.
func (r DiagnosticRanges) Len() int {
	if e := r.d.entry(); e != nil {
		return len(e.Ranges)
	}
	return 0
}

func (r DiagnosticRanges) At(i int) (SourceRange, error) {
	if err := r.d.Err(); err != nil {
		return SourceRange{}, fmt.Errorf("cindex: diagnostic range %d: %w", i, err)
	}
	if i < 0 || i >= r.Len() {
		return SourceRange{}, fmt.Errorf("cindex: diagnostic range %d of %d: %w", i, r.Len(), ErrOutOfRange)
	}
	return newRange(r.d.tu, r.d.unit, r.d.gen, r.d.d.Ranges[i]), nil
}

// FixIt replaces Range with Value; an empty range is an insertion.
type FixIt struct {
	Range SourceRange
	Value string
}

func (f FixIt) String() string {
	return fmt.Sprintf("<FixIt range %s, value %q>", f.Range, f.Value)
}

// FixIts is a bounds-checked view over a diagnostic's fix-its.
type FixIts struct{ d Diagnostic }

func (f FixIts) Len() int {
	if e := f.d.entry(); e != nil {
		return len(e.FixIts)
	}
	return 0
}

func (f FixIts) At(i int) (FixIt, error) {
	if err := f.d.Err(); err != nil {
		return FixIt{}, fmt.Errorf("cindex: fix-it %d: %w", i, err)
	}
	if i < 0 || i >= f.Len() {
		return FixIt{}, fmt.Errorf("cindex: fix-it %d of %d: %w", i, f.Len(), ErrOutOfRange)
	}
	fx := f.d.d.FixIts[i]
	return FixIt{Range: newRange(f.d.tu, f.d.unit, f.d.gen, fx.Range), Value: fx.Text}, nil
}

// DiagnosticDisplayOptions select what Format renders.
type DiagnosticDisplayOptions uint32

const (
	DisplaySourceLocation DiagnosticDisplayOptions = 0x01
	DisplayColumn         DiagnosticDisplayOptions = 0x02
	DisplaySourceRanges   DiagnosticDisplayOptions = 0x04
	DisplayOption         DiagnosticDisplayOptions = 0x08
	DisplayCategoryID     DiagnosticDisplayOptions = 0x10
	DisplayCategoryName   DiagnosticDisplayOptions = 0x20
)

// DefaultDiagnosticDisplayOptions mirrors what a compiler prints.
func DefaultDiagnosticDisplayOptions() DiagnosticDisplayOptions {
	return DisplaySourceLocation | DisplayColumn | DisplayOption
}

// Format renders the diagnostic on one line, for example
// "t.c:1:13: warning: unused function 'f' [-Wunused-function]". A
// disposed diagnostic renders as the empty string.
func (d Diagnostic) Format(opts DiagnosticDisplayOptions) string {
	loc, err := d.Location()
	if d.d == nil || err != nil {
		return ""
	}
	var b strings.Builder
	if opts&DisplaySourceLocation != 0 && !loc.IsNull() {
		f, line, col, _ := loc.ExpansionLocation()
		fmt.Fprintf(&b, "%s:%d", f.Name(), line)
		if opts&DisplayColumn != 0 {
			fmt.Fprintf(&b, ":%d", col)
		}
		if opts&DisplaySourceRanges != 0 {
			ranges := DiagnosticRanges{d: d}
			for i := 0; i < ranges.Len(); i++ {
				r, _ := ranges.At(i)
				fmt.Fprintf(&b, "{%d:%d-%d:%d}", r.Start().Line(), r.Start().Column(), r.End().Line(), r.End().Column())
			}
		}
		b.WriteString(": ")
	}
	fmt.Fprintf(&b, "%s: %s", d.Severity(), d.Spelling())

	var extra []string
	if opts&DisplayOption != 0 {
		if opt := d.EnablingOption(); opt != "" {
			extra = append(extra, opt)
		}
	}
	if n := d.CategoryNumber(); n > 0 {
		if opts&DisplayCategoryID != 0 {
			extra = append(extra, fmt.Sprint(n))
		}
		if opts&DisplayCategoryName != 0 {
			extra = append(extra, d.CategoryName())
		}
	}
	if len(extra) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(extra, ","))
	}
	return b.String()
}
