package cindex

import (
	"fmt"

	"github.com/jward/cindex/internal/engine"
	"github.com/jward/cindex/kinds"
)

// TypeRelation is a relationship between two records in a hierarchy.
type TypeRelation struct {
	Record Cursor
	Kind   string // "inheritance", "virtual_inheritance" or "composition"
}

// TypeHierarchy is a complete hierarchy view for a single record,
// combining base specifiers and by-value fields.
type TypeHierarchy struct {
	Record     Cursor          // the queried record's definition, or declaration
	Bases      []*TypeRelation // direct bases
	Subclasses []*TypeRelation // records deriving directly from this one
	Composes   []*TypeRelation // records held by value in this record's fields
	ComposedBy []*TypeRelation // records holding this one by value
}

// TypeHierarchy returns the full type hierarchy of the record c names:
// what it derives from, what derives from it, what it composes and what
// composes it.
func (q *QueryBuilder) TypeHierarchy(c Cursor) (*TypeHierarchy, error) {
	const op = "type hierarchy"
	if err := q.check(op); err != nil {
		return nil, err
	}
	t, err := q.target(c)
	if err != nil {
		return nil, fmt.Errorf("cindex: %s: %w", op, err)
	}
	if k := q.u.Nodes[t].Kind; !isRecord(k) {
		return nil, kindError(op, k, kinds.StructDecl, kinds.ClassDecl, kinds.UnionDecl)
	}
	q.build()

	h := &TypeHierarchy{Record: q.declCursor(t)}
	rec := q.declCursor(t).node

	for _, k := range q.u.Nodes[rec].Children {
		n := &q.u.Nodes[k]
		if n.Kind == kinds.CXXBaseSpecifier && n.Ref != 0 {
			h.Bases = append(h.Bases, &TypeRelation{Record: q.declCursor(q.canon(n.Ref)), Kind: q.inheritanceKind(k)})
		}
	}
	for _, spec := range q.bases[t] {
		h.Subclasses = append(h.Subclasses, &TypeRelation{
			Record: q.tu.cursorFor(q.u, q.gen, q.u.Nodes[spec].Parent),
			Kind:   q.inheritanceKind(spec),
		})
	}

	composed := map[engine.NodeID]bool{}
	composers := map[engine.NodeID]bool{}
	q.u.Walk(q.u.Root(), func(id engine.NodeID) bool {
		n := &q.u.Nodes[id]
		if n.Kind != kinds.FieldDecl {
			return true
		}
		held := q.fieldRecord(id)
		if held == 0 {
			return false
		}
		owner := q.canon(n.Parent)
		switch {
		case owner == t && !composed[held]:
			composed[held] = true
			h.Composes = append(h.Composes, &TypeRelation{Record: q.declCursor(held), Kind: "composition"})
		case held == t && !composers[owner]:
			composers[owner] = true
			h.ComposedBy = append(h.ComposedBy, &TypeRelation{Record: q.declCursor(owner), Kind: "composition"})
		}
		return false
	})
	return h, nil
}

// fieldRecord returns the canonical record a field holds by value, or 0.
func (q *QueryBuilder) fieldRecord(field engine.NodeID) engine.NodeID {
	typ, err := q.tu.cursorFor(q.u, q.gen, field).Type()
	if err != nil {
		return 0
	}
	if canon, err := typ.Canonical(); err == nil {
		typ = canon
	}
	decl, err := typ.Declaration()
	if err != nil || decl.IsNull() || !isRecord(decl.Kind()) {
		return 0
	}
	return q.canon(decl.node)
}

func (q *QueryBuilder) inheritanceKind(spec engine.NodeID) string {
	if q.u.Nodes[spec].Has(engine.FlagVirtualBase) {
		return "virtual_inheritance"
	}
	return "inheritance"
}

func isRecord(k kinds.CursorKind) bool {
	switch k {
	case kinds.StructDecl, kinds.ClassDecl, kinds.UnionDecl, kinds.ClassTemplate:
		return true
	}
	return false
}
