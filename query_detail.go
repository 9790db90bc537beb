package cindex

import (
	"fmt"

	"github.com/jward/cindex/internal/engine"
	"github.com/jward/cindex/kinds"
)

// SymbolDetail bundles a declaration with its structural children. One
// call replaces walking the declaration's children by hand.
type SymbolDetail struct {
	Symbol     SymbolResult // the declaration itself with ref counts
	Parameters []Cursor     // PARM_DECLs of a function (empty for non-functions)
	Members    []Cursor     // fields, methods, nested records and enumerators (empty for non-types)
	TypeParams []Cursor     // template parameters (empty for non-templates)
	Bases      []Cursor     // CXX_BASE_SPECIFIERs of a record
}

// SymbolDetail describes the declaration c names. A reference resolves
// to its referenced declaration and a declaration to its definition
// when the unit has one. A cursor that names no declaration yields nil
// with no error.
func (q *QueryBuilder) SymbolDetail(c Cursor) (*SymbolDetail, error) {
	if err := q.check("symbol detail"); err != nil {
		return nil, err
	}
	if c.tu != q.tu || c.gen != q.gen {
		return nil, fmt.Errorf("cindex: symbol detail: %w", ErrStale)
	}
	if c.IsNull() {
		return nil, nil
	}
	return q.detail(c.node), nil
}

// SymbolDetailAt resolves the declaration at or referenced from (line,
// col) in file and returns its SymbolDetail. Positions are 1-based.
func (q *QueryBuilder) SymbolDetailAt(file string, line, col int) (*SymbolDetail, error) {
	if err := q.check("symbol detail at"); err != nil {
		return nil, err
	}
	id, err := q.nodeAt("symbol detail at", file, line, col)
	if err != nil {
		return nil, err
	}
	return q.detail(id), nil
}

func (q *QueryBuilder) detail(id engine.NodeID) *SymbolDetail {
	n := &q.u.Nodes[id]
	if n.Ref != 0 && q.u.Valid(n.Ref) {
		id = n.Ref
		n = &q.u.Nodes[id]
	}
	if !n.Kind.IsDeclaration() {
		return nil
	}
	if n.Definition != 0 {
		id = n.Definition
	} else if can := n.Canonical; can != 0 && q.u.Nodes[can].Definition != 0 {
		id = q.u.Nodes[can].Definition
	}
	container := isRecord(n.Kind) || n.Kind == kinds.EnumDecl

	d := &SymbolDetail{
		Symbol:     q.symbolResult(id),
		Parameters: []Cursor{},
		Members:    []Cursor{},
		TypeParams: []Cursor{},
		Bases:      []Cursor{},
	}
	for _, k := range q.u.Nodes[id].Children {
		c := q.tu.cursorFor(q.u, q.gen, k)
		switch q.u.Nodes[k].Kind {
		case kinds.ParmDecl:
			d.Parameters = append(d.Parameters, c)
		case kinds.TemplateTypeParameter, kinds.TemplateNonTypeParameter, kinds.TemplateTemplateParameter:
			d.TypeParams = append(d.TypeParams, c)
		case kinds.CXXBaseSpecifier:
			d.Bases = append(d.Bases, c)
		case kinds.FieldDecl, kinds.CXXMethod, kinds.Constructor, kinds.Destructor,
			kinds.ConversionFunction, kinds.EnumConstantDecl, kinds.VarDecl, kinds.FunctionTemplate,
			kinds.StructDecl, kinds.ClassDecl, kinds.UnionDecl, kinds.EnumDecl, kinds.TypedefDecl:
			if container {
				d.Members = append(d.Members, c)
			}
		}
	}
	return d
}

// nodeAt validates a 1-based position and returns the innermost node
// there.
func (q *QueryBuilder) nodeAt(op, file string, line, col int) (engine.NodeID, error) {
	if line < 1 || col < 1 {
		return 0, fmt.Errorf("cindex: %s: %w: position %d:%d", op, ErrInvalidArgument, line, col)
	}
	f := q.u.FileByName(file)
	if f == nil {
		return 0, fmt.Errorf("cindex: %s %s: %w", op, file, ErrFileNotFound)
	}
	return q.u.NodeAt(f.ID, f.Offset(line, col)), nil
}

// ScopeAt returns the scope chain at a position, innermost first and
// ending with the translation unit cursor. Scopes are compound
// statements, functions, records, enums, namespaces and linkage specs.
func (q *QueryBuilder) ScopeAt(file string, line, col int) ([]Cursor, error) {
	if err := q.check("scope at"); err != nil {
		return nil, err
	}
	id, err := q.nodeAt("scope at", file, line, col)
	if err != nil {
		return nil, err
	}
	var chain []Cursor
	for ; q.u.Valid(id); id = q.u.Nodes[id].Parent {
		if isScope(q.u.Nodes[id].Kind) {
			chain = append(chain, q.tu.cursorFor(q.u, q.gen, id))
		}
		if id == q.u.Root() {
			break
		}
	}
	return chain, nil
}

func isScope(k kinds.CursorKind) bool {
	switch k {
	case kinds.TranslationUnit, kinds.Namespace, kinds.LinkageSpec, kinds.CompoundStmt, kinds.EnumDecl:
		return true
	}
	return isFunction(k) || isRecord(k)
}
