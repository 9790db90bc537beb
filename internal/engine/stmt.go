package engine

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/cindex/kinds"
)

func (b *builder) stmtItem(n *sitter.Node, sc *scope) { b.stmt(n, sc) }

// stmt builds one statement under sc.parent.
func (b *builder) stmt(n *sitter.Node, sc *scope) NodeID {
	if n == nil {
		return 0
	}
	switch n.Type() {
	case "comment", "ERROR":
		return 0
	case "compound_statement":
		id := b.add(kinds.CompoundStmt, sc, n)
		b.items(n, sc.under(id), b.stmtItem)
		return id
	case "expression_statement":
		for _, c := range named(n) {
			if c.Type() != "comment" {
				return b.expr(c, sc)
			}
		}
		return b.add(kinds.NullStmt, sc, n)
	case ";":
		return b.add(kinds.NullStmt, sc, n)
	case "declaration", "type_definition", "struct_specifier", "union_specifier", "class_specifier",
		"enum_specifier", "alias_declaration", "using_declaration", "namespace_alias_definition":
		id := b.add(kinds.DeclStmt, sc, n)
		b.declItem(n, sc.under(id))
		return id
	case "return_statement":
		id := b.add(kinds.ReturnStmt, sc, n)
		b.u.Nodes[id].Extent.End = b.trimEnd(n.StartByte(), n.EndByte())
		for _, c := range named(n) {
			b.expr(c, sc.under(id))
		}
		return id
	case "if_statement":
		id := b.add(kinds.IfStmt, sc, n)
		sub := sc.under(id)
		b.condition(field(n, "condition"), sub)
		b.stmt(field(n, "consequence"), sub)
		if alt := field(n, "alternative"); alt != nil {
			if alt.Type() == "else_clause" {
				alt = firstNamed(alt)
			}
			b.stmt(alt, sub)
		}
		return id
	case "while_statement":
		id := b.add(kinds.WhileStmt, sc, n)
		sub := sc.under(id)
		b.condition(field(n, "condition"), sub)
		b.stmt(field(n, "body"), sub)
		return id
	case "do_statement":
		id := b.add(kinds.DoStmt, sc, n)
		b.u.Nodes[id].Extent.End = b.trimEnd(n.StartByte(), n.EndByte())
		sub := sc.under(id)
		b.stmt(field(n, "body"), sub)
		b.condition(field(n, "condition"), sub)
		return id
	case "for_statement":
		id := b.add(kinds.ForStmt, sc, n)
		sub := sc.under(id)
		init := field(n, "initializer")
		if init != nil && init.Type() == "declaration" {
			b.stmt(init, sub)
		} else {
			b.expr(init, sub)
		}
		b.expr(field(n, "condition"), sub)
		b.expr(field(n, "update"), sub)
		b.stmt(field(n, "body"), sub)
		return id
	case "for_range_loop":
		return b.rangeFor(n, sc)
	case "switch_statement":
		id := b.add(kinds.SwitchStmt, sc, n)
		sub := sc.under(id)
		b.condition(field(n, "condition"), sub)
		b.stmt(field(n, "body"), sub)
		return id
	case "case_statement":
		kind := kinds.CaseStmt
		value := field(n, "value")
		if value == nil {
			kind = kinds.DefaultStmt
		}
		id := b.add(kind, sc, n)
		sub := sc.under(id)
		b.expr(value, sub)
		for _, c := range named(n) {
			if sameNode(c, value) {
				continue
			}
			b.item(c, sub, b.stmtItem)
		}
		return id
	case "break_statement", "continue_statement":
		kind := kinds.BreakStmt
		if n.Type() == "continue_statement" {
			kind = kinds.ContinueStmt
		}
		id := b.add(kind, sc, n)
		b.u.Nodes[id].Extent.End = b.trimEnd(n.StartByte(), n.EndByte())
		return id
	case "goto_statement":
		id := b.add(kinds.GotoStmt, sc, n)
		b.u.Nodes[id].Extent.End = b.trimEnd(n.StartByte(), n.EndByte())
		if label := field(n, "label"); label != nil {
			ref := b.add(kinds.LabelRef, sc.under(id), label)
			b.u.Nodes[ref].Name = b.text(label)
		}
		return id
	case "labeled_statement":
		id := b.add(kinds.LabelStmt, sc, n)
		label := field(n, "label")
		b.declareName(id, label)
		for _, c := range named(n) {
			if !sameNode(c, label) {
				b.stmt(c, sc.under(id))
			}
		}
		return id
	case "try_statement":
		id := b.add(kinds.CXXTryStmt, sc, n)
		sub := sc.under(id)
		b.stmt(field(n, "body"), sub)
		for _, c := range named(n) {
			if c.Type() != "catch_clause" {
				continue
			}
			cid := b.add(kinds.CXXCatchStmt, sub, c)
			csc := sub.under(cid)
			b.params(field(c, "parameters"), cid, csc)
			for _, p := range b.u.Nodes[cid].Children {
				if b.u.Nodes[p].Kind == kinds.ParmDecl {
					b.u.Nodes[p].Kind = kinds.VarDecl
					b.u.Nodes[p].SemParent = sc.sem
				}
			}
			b.stmt(field(c, "body"), csc)
		}
		return id
	case "throw_statement":
		return b.expr(n, sc)
	case "attributed_statement":
		for _, c := range named(n) {
			if c.Type() != "attribute_declaration" {
				return b.stmt(c, sc)
			}
		}
		return 0
	case "function_definition":
		return b.functionDef(n, sc)
	}
	if isExprNode(n.Type()) {
		return b.expr(n, sc)
	}
	id := b.add(kinds.UnexposedStmt, sc, n)
	for _, c := range named(n) {
		b.stmt(c, sc.under(id))
	}
	return id
}

func isExprNode(t string) bool {
	switch t {
	case "identifier", "call_expression", "binary_expression", "assignment_expression",
		"unary_expression", "update_expression", "pointer_expression", "field_expression",
		"number_literal", "string_literal", "char_literal", "parenthesized_expression",
		"conditional_expression", "cast_expression", "subscript_expression", "comma_expression",
		"sizeof_expression", "true", "false", "null", "nullptr", "this":
		return true
	}
	return false
}

// condition builds a controlling expression. Parentheses that belong to
// the statement syntax are not an expression of their own.
func (b *builder) condition(n *sitter.Node, sc *scope) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "parenthesized_expression", "condition_clause":
		for _, c := range named(n) {
			switch c.Type() {
			case "comment":
			case "declaration", "init_statement":
				b.stmt(c, sc)
			default:
				if c.Type() == "expression_statement" {
					b.stmt(c, sc)
					continue
				}
				b.expr(c, sc)
			}
		}
		return
	}
	b.expr(n, sc)
}

func (b *builder) rangeFor(n *sitter.Node, sc *scope) NodeID {
	id := b.add(kinds.CXXForRangeStmt, sc, n)
	sub := sc.under(id)
	right := field(n, "right")
	sp := specs{typ: field(n, "type")}
	for _, c := range named(n) {
		if c.Type() == "type_qualifier" {
			sp.quals |= qualOf(b.text(c))
		}
	}
	var rangeType TypeID
	if right != nil {
		// The range is built after the loop variable but typed first so
		// "auto" can be deduced from its element type.
		rangeType = b.peekType(right, sc)
	}
	if d := field(n, "declarator"); d != nil {
		base := b.specBase(sp, sub)
		v := b.declarator(n, sub, &sp, d, base)
		if v != 0 {
			vn := &b.u.Nodes[v]
			vn.Extent.End = d.EndByte()
			vn.Flags |= FlagDefinition
			if t := b.u.TypeOf(vn.Type); t.Kind == kinds.TypeUnexposed && t.Name == "auto" {
				if rt := b.u.TypeOf(b.u.Desugar(rangeType)); rt.Kind.IsArray() {
					vn.Type = rt.Elem
				}
			}
		}
	}
	b.expr(right, sub)
	b.stmt(field(n, "body"), sub)
	return id
}

// peekType returns the type of a simple name expression without
// building it.
func (b *builder) peekType(n *sitter.Node, sc *scope) TypeID {
	if n.Type() != "identifier" {
		return 0
	}
	if d := b.u.lookup(sc.parent, b.text(n), isValueDecl, 0); d != 0 {
		return b.u.Nodes[d].Type
	}
	return 0
}
