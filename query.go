package cindex

import (
	"fmt"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/jward/cindex/internal/engine"
	"github.com/jward/cindex/kinds"
)

// QueryBuilder answers cross-reference questions about one unit
// generation. The reference index is built on first use.
type QueryBuilder struct {
	tu  *TranslationUnit
	u   *engine.Unit
	gen uint64

	once    sync.Once
	refs    map[engine.NodeID][]engine.NodeID // canonical decl -> referencing nodes
	calls   map[engine.NodeID][]engine.NodeID // canonical callee -> call expressions
	bases   map[engine.NodeID][]engine.NodeID // canonical base -> base specifiers
	callees map[engine.NodeID][]engine.NodeID // function node -> call expressions inside it
}

// Location is a source span in line/column terms.
type Location struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// CallEdge is one call: the function the call is written in, the call
// expression, and the function it calls.
type CallEdge struct {
	Caller Cursor
	Call   Cursor
	Callee Cursor
}

// Query returns a QueryBuilder over the unit's current generation. It
// fails with ErrStale once the unit is reparsed.
func (tu *TranslationUnit) Query() (*QueryBuilder, error) {
	u, gen, _, err := tu.snapshot()
	if err != nil {
		return nil, fmt.Errorf("cindex: query: %w", err)
	}
	return &QueryBuilder{tu: tu, u: u, gen: gen}, nil
}

func (q *QueryBuilder) check(op string) error {
	if _, _, err := q.tu.view(q.gen); err != nil {
		return fmt.Errorf("cindex: %s: %w", op, err)
	}
	return nil
}

func (q *QueryBuilder) canon(id engine.NodeID) engine.NodeID {
	if c := q.u.Nodes[id].Canonical; c != 0 {
		return c
	}
	return id
}

func (q *QueryBuilder) build() {
	q.once.Do(func() {
		q.refs = make(map[engine.NodeID][]engine.NodeID)
		q.calls = make(map[engine.NodeID][]engine.NodeID)
		q.bases = make(map[engine.NodeID][]engine.NodeID)
		q.callees = make(map[engine.NodeID][]engine.NodeID)
		q.u.Walk(q.u.Root(), func(id engine.NodeID) bool {
			n := &q.u.Nodes[id]
			if n.Ref == 0 || !q.u.Valid(n.Ref) {
				return true
			}
			target := q.canon(n.Ref)
			switch n.Kind {
			case kinds.CallExpr:
				q.calls[target] = append(q.calls[target], id)
				if fn := q.enclosingFunction(id); fn != 0 {
					q.callees[fn] = append(q.callees[fn], id)
				}
			case kinds.CXXBaseSpecifier:
				q.bases[target] = append(q.bases[target], id)
				q.refs[target] = append(q.refs[target], id)
			default:
				if n.Kind.IsReference() || n.Kind.IsExpression() {
					q.refs[target] = append(q.refs[target], id)
				}
			}
			return true
		})
	})
}

// enclosingFunction walks lexical parents to the function a node is
// written in; 0 at namespace scope.
func (q *QueryBuilder) enclosingFunction(id engine.NodeID) engine.NodeID {
	for p := q.u.Nodes[id].Parent; q.u.Valid(p); p = q.u.Nodes[p].Parent {
		if isFunction(q.u.Nodes[p].Kind) {
			return p
		}
	}
	return 0
}

func isFunction(k kinds.CursorKind) bool {
	switch k {
	case kinds.FunctionDecl, kinds.CXXMethod, kinds.Constructor, kinds.Destructor,
		kinds.ConversionFunction, kinds.FunctionTemplate:
		return true
	}
	return false
}

// target resolves a cursor to the canonical declaration it names.
func (q *QueryBuilder) target(c Cursor) (engine.NodeID, error) {
	if c.tu != q.tu || c.gen != q.gen {
		return 0, ErrStale
	}
	if c.IsNull() {
		return 0, ErrNotFound
	}
	id := c.node
	if ref := q.u.Nodes[id].Ref; ref != 0 {
		id = ref
	}
	return q.canon(id), nil
}

func (q *QueryBuilder) location(r engine.Range) Location {
	f := q.u.File(r.File)
	if f == nil {
		return Location{}
	}
	sl, sc := f.LineCol(r.Start)
	el, ec := f.LineCol(r.End)
	return Location{File: f.Name, StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec}
}

func (q *QueryBuilder) cursors(ids []engine.NodeID) []Cursor {
	out := make([]Cursor, len(ids))
	for i, id := range ids {
		out[i] = q.tu.cursorFor(q.u, q.gen, id)
	}
	return out
}

// DefinitionAt finds the definition of whatever is referenced at
// (line, col) in file. A declaration with no definition in the unit
// yields its declaration instead; nothing at the position yields nil.
func (q *QueryBuilder) DefinitionAt(file string, line, col int) ([]Location, error) {
	if err := q.check("definition at"); err != nil {
		return nil, err
	}
	id, err := q.nodeAt("definition at", file, line, col)
	if err != nil {
		return nil, err
	}
	n := &q.u.Nodes[id]
	target := n.Ref
	if target == 0 {
		if !n.Kind.IsDeclaration() {
			return nil, nil
		}
		target = id
	}
	t := &q.u.Nodes[target]
	def := t.Definition
	if def == 0 && t.Canonical != 0 {
		def = q.u.Nodes[t.Canonical].Definition
	}
	if def == 0 {
		def = target
	}
	return []Location{q.location(q.u.Nodes[def].Extent)}, nil
}

// ReferencesTo lists every reference, call and base specifier naming
// the entity c declares or refers to, in document order.
func (q *QueryBuilder) ReferencesTo(c Cursor) ([]Cursor, error) {
	if err := q.check("references to"); err != nil {
		return nil, err
	}
	t, err := q.target(c)
	if err != nil {
		return nil, fmt.Errorf("cindex: references to: %w", err)
	}
	q.build()
	return q.cursors(q.refs[t]), nil
}

// Callers lists the calls of the function c names.
func (q *QueryBuilder) Callers(c Cursor) ([]CallEdge, error) {
	if err := q.check("callers"); err != nil {
		return nil, err
	}
	t, err := q.target(c)
	if err != nil {
		return nil, fmt.Errorf("cindex: callers: %w", err)
	}
	q.build()
	return q.edges(q.calls[t]), nil
}

// Callees lists the calls written inside the function c declares. Calls
// inside other redeclarations of the same function are not included;
// pass the definition.
func (q *QueryBuilder) Callees(c Cursor) ([]CallEdge, error) {
	if err := q.check("callees"); err != nil {
		return nil, err
	}
	if c.tu != q.tu || c.gen != q.gen {
		return nil, fmt.Errorf("cindex: callees: %w", ErrStale)
	}
	q.build()
	fn := c.node
	if d := q.u.Nodes[fn].Definition; d != 0 {
		fn = d
	} else if can := q.u.Nodes[fn].Canonical; can != 0 {
		if d := q.u.Nodes[can].Definition; d != 0 {
			fn = d
		}
	}
	return q.edges(q.callees[fn]), nil
}

func (q *QueryBuilder) edges(calls []engine.NodeID) []CallEdge {
	out := make([]CallEdge, 0, len(calls))
	for _, call := range calls {
		out = append(out, CallEdge{
			Caller: q.tu.cursorFor(q.u, q.gen, q.enclosingFunction(call)),
			Call:   q.tu.cursorFor(q.u, q.gen, call),
			Callee: q.tu.cursorFor(q.u, q.gen, q.u.Nodes[call].Ref),
		})
	}
	return out
}

// Subclasses lists the records that name c's record as a direct base.
func (q *QueryBuilder) Subclasses(c Cursor) ([]Cursor, error) {
	if err := q.check("subclasses"); err != nil {
		return nil, err
	}
	t, err := q.target(c)
	if err != nil {
		return nil, fmt.Errorf("cindex: subclasses: %w", err)
	}
	q.build()
	var out []Cursor
	for _, spec := range q.bases[t] {
		out = append(out, q.tu.cursorFor(q.u, q.gen, q.u.Nodes[spec].Parent))
	}
	return out, nil
}

// BaseClasses lists the declarations of c's direct bases.
func (q *QueryBuilder) BaseClasses(c Cursor) ([]Cursor, error) {
	if err := q.check("base classes"); err != nil {
		return nil, err
	}
	t, err := q.target(c)
	if err != nil {
		return nil, fmt.Errorf("cindex: base classes: %w", err)
	}
	rec := t
	if d := q.u.Nodes[t].Definition; d != 0 {
		rec = d
	}
	var out []Cursor
	for _, k := range q.u.Nodes[rec].Children {
		n := &q.u.Nodes[k]
		if n.Kind == kinds.CXXBaseSpecifier && n.Ref != 0 {
			out = append(out, q.tu.cursorFor(q.u, q.gen, n.Ref))
		}
	}
	return out, nil
}

// SymbolResult is a declaration matched by Symbols or SearchSymbols.
type SymbolResult struct {
	Cursor           Cursor
	QualifiedName    string
	Location         Location
	RefCount         int // references to the declared entity
	ExternalRefCount int // references from files other than the declaration's
}

// Symbols finds declarations whose qualified name matches a glob
// pattern. "::" separates scopes, so "ns::*" matches the direct members
// of ns and "ns::**" every nested declaration too.
func (q *QueryBuilder) Symbols(pattern string) ([]SymbolResult, error) {
	if err := q.check("symbols"); err != nil {
		return nil, err
	}
	if pattern == "" {
		return nil, fmt.Errorf("cindex: symbols: %w: empty pattern", ErrInvalidArgument)
	}
	glob, err := globFor("symbols", pattern)
	if err != nil {
		return nil, err
	}
	var out []SymbolResult
	q.eachDeclaration(func(id engine.NodeID) {
		qn := q.u.QualifiedName(id)
		if ok, _ := doublestar.Match(glob, strings.ReplaceAll(qn, "::", "/")); ok {
			out = append(out, q.symbolResult(id))
		}
	})
	return out, nil
}
