package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jward/cindex"
)

// toCLICursor flattens c for output. Fields that do not apply to the
// cursor's kind are left empty.
func toCLICursor(c cindex.Cursor, depth int) CLICursor {
	out := CLICursor{Kind: c.Kind().String(), Depth: depth}
	out.Spelling, _, _ = c.Spelling()
	out.Display, _ = c.DisplayName()
	if loc, err := c.Location(); err == nil && !loc.IsNull() {
		out.File, out.Line, out.Col = loc.File().Name(), loc.Line(), loc.Column()
	}
	if t, err := c.Type(); err == nil {
		out.Type, _ = t.Spelling()
	}
	if c.Kind().IsDeclaration() {
		out.Definition, _ = c.IsDefinition()
		out.USR, _ = c.USR()
	}
	return out
}

func toCLILocation(l cindex.Location) CLILocation {
	return CLILocation{File: l.File, StartLine: l.StartLine, StartCol: l.StartCol, EndLine: l.EndLine, EndCol: l.EndCol}
}

func toCLIToken(t cindex.Token) CLIToken {
	loc := t.Location()
	return CLIToken{Kind: t.Kind().String(), Spelling: t.Spelling(), Line: loc.Line(), Col: loc.Column()}
}

func toCLIDiagnostic(d cindex.Diagnostic) CLIDiagnostic {
	loc, _ := d.Location()
	out := CLIDiagnostic{
		Severity: d.Severity().String(),
		Message:  d.Spelling(),
		Line:     loc.Line(),
		Col:      loc.Column(),
		Option:   d.EnablingOption(),
		Category: d.CategoryName(),
	}
	if !loc.IsNull() {
		out.File = loc.File().Name()
	}
	if fixes, err := d.FixIts(); err == nil {
		for i := range fixes.Len() {
			if f, err := fixes.At(i); err == nil {
				out.FixIts = append(out.FixIts, fmt.Sprintf("%s -> %q", f.Range, f.Value))
			}
		}
	}
	for _, child := range d.Children() {
		out.Notes = append(out.Notes, toCLIDiagnostic(child))
	}
	return out
}

func toCLICallEdge(e cindex.CallEdge) CLICallEdge {
	out := CLICallEdge{}
	out.Caller, _, _ = e.Caller.Spelling()
	out.Callee, _, _ = e.Callee.Spelling()
	if loc, err := e.Call.Location(); err == nil && !loc.IsNull() {
		out.File, out.Line, out.Col = loc.File().Name(), loc.Line(), loc.Column()
	}
	return out
}

func toCLISymbol(s cindex.SymbolResult) CLISymbol {
	out := CLISymbol{
		Name: s.QualifiedName,
		Kind: s.Cursor.Kind().String(),
		File: s.Location.File,
		Line: s.Location.StartLine,
		Col:  s.Location.StartCol,

		RefCount:         s.RefCount,
		ExternalRefCount: s.ExternalRefCount,
	}
	out.USR, _ = s.Cursor.USR()
	return out
}

func toCLISymbolDetail(d *cindex.SymbolDetail) CLISymbolDetail {
	return CLISymbolDetail{
		Symbol:     toCLISymbol(d.Symbol),
		Parameters: cursorList(d.Parameters),
		Members:    cursorList(d.Members),
		TypeParams: cursorList(d.TypeParams),
		Bases:      cursorList(d.Bases),
	}
}

// parsePosition parses "LINE:COL".
func parsePosition(s string) (line, col int, err error) {
	ls, cs, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("position %q: want LINE:COL", s)
	}
	if line, err = strconv.Atoi(ls); err != nil {
		return 0, 0, fmt.Errorf("position %q: bad line: %w", s, err)
	}
	if col, err = strconv.Atoi(cs); err != nil {
		return 0, 0, fmt.Errorf("position %q: bad column: %w", s, err)
	}
	return line, col, nil
}

// cursorAt resolves the cursor under LINE:COL in the unit's main file.
func cursorAt(tu *cindex.TranslationUnit, pos string) (cindex.Cursor, error) {
	line, col, err := parsePosition(pos)
	if err != nil {
		return cindex.Cursor{}, err
	}
	loc, err := cindex.NewSourceLocation(cindex.WithFilename(tu, tu.Spelling()), cindex.AtPosition(line, col))
	if err != nil {
		return cindex.Cursor{}, err
	}
	return tu.CursorAt(loc)
}

func toCLICallGraph(g *cindex.CallGraph) CLICallGraph {
	out := CLICallGraph{Depth: g.Depth, Nodes: []CLIGraphNode{}, Edges: edgeList(g.Edges)}
	out.Root, _, _ = g.Root.Spelling()
	for _, n := range g.Nodes {
		c := toCLICursor(n.Function, n.Depth)
		out.Nodes = append(out.Nodes, CLIGraphNode{Name: c.Spelling, Depth: n.Depth, File: c.File, Line: c.Line})
	}
	return out
}

func toCLIHierarchy(h *cindex.TypeHierarchy) CLIHierarchy {
	rels := func(in []*cindex.TypeRelation) []CLIRelation {
		out := make([]CLIRelation, 0, len(in))
		for _, r := range in {
			name, _, _ := r.Record.Spelling()
			out = append(out, CLIRelation{Name: name, Kind: r.Kind})
		}
		return out
	}
	out := CLIHierarchy{
		Bases:      rels(h.Bases),
		Subclasses: rels(h.Subclasses),
		Composes:   rels(h.Composes),
		ComposedBy: rels(h.ComposedBy),
	}
	out.Record, _, _ = h.Record.Spelling()
	return out
}
