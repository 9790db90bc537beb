package engine

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/cindex/kinds"
)

// under is the scope for children of id.
func (sc *scope) under(id NodeID) *scope {
	return &scope{parent: id, sem: sc.sem, record: sc.record, fn: sc.fn}
}

var castKinds = map[string]kinds.CursorKind{
	"static_cast":      kinds.CXXStaticCastExpr,
	"dynamic_cast":     kinds.CXXDynamicCastExpr,
	"reinterpret_cast": kinds.CXXReinterpretCastExpr,
	"const_cast":       kinds.CXXConstCastExpr,
}

// expr builds the expression n under sc.parent and returns its node.
func (b *builder) expr(n *sitter.Node, sc *scope) NodeID {
	if n == nil {
		return 0
	}
	switch n.Type() {
	case "comment", "ERROR":
		return 0
	case "identifier":
		return b.declRef(n, b.text(n), sc, -1)
	case "qualified_identifier":
		return b.qualifiedRef(n, sc, -1)
	case "template_function":
		id := b.declRef(field(n, "name"), b.text(field(n, "name")), sc, -1)
		b.u.Nodes[id].Extent = b.rng(n)
		b.u.Nodes[id].TemplateArgs = b.rng(field(n, "arguments"))
		return id
	case "number_literal":
		return b.number(n, sc)
	case "string_literal", "concatenated_string", "raw_string_literal":
		return b.stringLit(n, sc)
	case "char_literal":
		id := b.add(kinds.CharacterLiteral, sc, n)
		b.u.Nodes[id].Value = b.text(n)
		b.u.Nodes[id].Type = b.u.builtin(kinds.TypeInt)
		if b.cpp {
			b.u.Nodes[id].Type = b.u.builtin(kinds.TypeCharS)
		}
		return id
	case "true", "false":
		kind := kinds.CXXBoolLiteralExpr
		t := b.u.builtin(kinds.TypeBool)
		if !b.cpp {
			kind, t = kinds.IntegerLiteral, b.u.builtin(kinds.TypeInt)
		}
		id := b.add(kind, sc, n)
		b.u.Nodes[id].Value = b.text(n)
		if !b.cpp {
			b.u.Nodes[id].Value = strconv.FormatUint(boolBits(b.text(n) == "true"), 10)
		}
		b.u.Nodes[id].Type = t
		return id
	case "null", "nullptr":
		if b.text(n) == "nullptr" {
			id := b.add(kinds.CXXNullPtrLiteralExpr, sc, n)
			b.u.Nodes[id].Type = b.u.builtin(kinds.TypeNullPtr)
			return id
		}
		if m := b.objectMacro("NULL"); m != nil {
			return b.macroExpr(n, m, sc, -1)
		}
		id := b.add(kinds.GNUNullExpr, sc, n)
		b.u.Nodes[id].Type = b.u.pointerTo(b.u.builtin(kinds.TypeVoid))
		return id
	case "this":
		id := b.add(kinds.CXXThisExpr, sc, n)
		if sc.record != 0 {
			b.u.Nodes[id].Type = b.u.pointerTo(b.u.Nodes[sc.record].Type)
		}
		return id
	case "call_expression":
		return b.call(n, sc)
	case "field_expression":
		return b.member(n, sc, -1)
	case "binary_expression", "comma_expression":
		kind := kinds.BinaryOperator
		id := b.add(kind, sc, n)
		op := b.text(field(n, "operator"))
		if n.Type() == "comma_expression" {
			op = ","
		}
		b.u.Nodes[id].Op = op
		sub := sc.under(id)
		b.expr(field(n, "left"), sub)
		b.expr(field(n, "right"), sub)
		return b.typed(id)
	case "assignment_expression":
		op := b.text(field(n, "operator"))
		kind := kinds.CompoundAssignmentOperator
		if op == "=" {
			kind = kinds.BinaryOperator
		}
		id := b.add(kind, sc, n)
		b.u.Nodes[id].Op = op
		sub := sc.under(id)
		b.expr(field(n, "left"), sub)
		b.expr(field(n, "right"), sub)
		return b.typed(id)
	case "unary_expression", "pointer_expression", "update_expression":
		id := b.add(kinds.UnaryOperator, sc, n)
		op := b.text(field(n, "operator"))
		arg := field(n, "argument")
		if n.Type() == "update_expression" && arg != nil && arg.StartByte() < n.StartByte()+1 {
			op = "post" + op
		}
		b.u.Nodes[id].Op = op
		b.expr(arg, sc.under(id))
		return b.typed(id)
	case "subscript_expression":
		id := b.add(kinds.ArraySubscriptExpr, sc, n)
		sub := sc.under(id)
		b.expr(field(n, "argument"), sub)
		index := field(n, "index")
		if index == nil {
			index = field(n, "indices")
		}
		if index != nil && index.Type() == "subscript_argument_list" {
			for _, a := range named(index) {
				b.expr(a, sub)
			}
		} else {
			b.expr(index, sub)
		}
		var pieces []Range
		for _, c := range children(n) {
			if t := c.Type(); t == "[" || t == "]" {
				pieces = append(pieces, b.rng(c))
			}
		}
		if index != nil && index.Type() == "subscript_argument_list" {
			for _, c := range children(index) {
				if t := c.Type(); t == "[" || t == "]" {
					pieces = append(pieces, b.rng(c))
				}
			}
		}
		b.u.Nodes[id].Pieces = pieces
		return b.typed(id)
	case "parenthesized_expression":
		id := b.add(kinds.ParenExpr, sc, n)
		for _, c := range named(n) {
			b.expr(c, sc.under(id))
		}
		return b.typed(id)
	case "cast_expression":
		id := b.add(kinds.CStyleCastExpr, sc, n)
		b.u.Nodes[id].Type = b.typeDescriptor(field(n, "type"), id, sc.under(id))
		b.expr(field(n, "value"), sc.under(id))
		return id
	case "compound_literal_expression":
		id := b.add(kinds.CompoundLiteralExpr, sc, n)
		b.u.Nodes[id].Type = b.typeDescriptor(field(n, "type"), id, sc.under(id))
		b.expr(field(n, "value"), sc.under(id))
		return id
	case "conditional_expression":
		id := b.add(kinds.ConditionalOperator, sc, n)
		sub := sc.under(id)
		b.expr(field(n, "condition"), sub)
		b.expr(field(n, "consequence"), sub)
		b.expr(field(n, "alternative"), sub)
		return b.typed(id)
	case "sizeof_expression", "alignof_expression", "alignof":
		id := b.add(kinds.CXXUnaryExpr, sc, n)
		b.u.Nodes[id].Op = "sizeof"
		if n.Type() != "sizeof_expression" {
			b.u.Nodes[id].Op = "alignof"
		}
		b.u.Nodes[id].Type = b.u.builtin(kinds.TypeULong)
		if t := field(n, "type"); t != nil {
			b.u.Nodes[id].Underlying = b.typeDescriptor(t, id, sc.under(id))
		} else if v := field(n, "value"); v != nil {
			x := b.expr(v, sc.under(id))
			if x != 0 {
				b.u.Nodes[id].Underlying = b.u.Nodes[x].Type
			}
		}
		return id
	case "initializer_list":
		id := b.add(kinds.InitListExpr, sc, n)
		if sc.parent != 0 && b.u.Nodes[sc.parent].Kind.IsDeclaration() {
			b.u.Nodes[id].Type = b.u.Nodes[sc.parent].Type
		}
		for _, c := range named(n) {
			b.expr(c, sc.under(id))
		}
		return id
	case "initializer_pair":
		for _, c := range named(n) {
			if sameNode(c, field(n, "value")) {
				return b.expr(c, sc)
			}
		}
		return 0
	case "new_expression":
		id := b.add(kinds.CXXNewExpr, sc, n)
		t, refs := b.typeSpec(field(n, "type"), sc.under(id), false)
		b.attachRefs(id, refs)
		b.u.Nodes[id].Type = b.u.pointerTo(t)
		if args := field(n, "arguments"); args != nil {
			for _, a := range named(args) {
				b.expr(a, sc.under(id))
			}
		}
		return id
	case "delete_expression":
		id := b.add(kinds.CXXDeleteExpr, sc, n)
		b.u.Nodes[id].Type = b.u.builtin(kinds.TypeVoid)
		for _, c := range named(n) {
			b.expr(c, sc.under(id))
		}
		return id
	case "throw_statement", "throw_expression":
		id := b.add(kinds.CXXThrowExpr, sc, n)
		b.u.Nodes[id].Extent.End = b.trimEnd(n.StartByte(), n.EndByte())
		b.u.Nodes[id].Type = b.u.builtin(kinds.TypeVoid)
		for _, c := range named(n) {
			b.expr(c, sc.under(id))
		}
		return id
	case "lambda_expression":
		id := b.add(kinds.LambdaExpr, sc, n)
		b.u.Nodes[id].Type = b.u.intern(Type{Kind: kinds.TypeRecord, Name: "(lambda)", Size: -1})
		lsc := &scope{parent: id, sem: id, record: sc.record, fn: id}
		if d := field(n, "declarator"); d != nil {
			b.params(field(d, "parameters"), id, lsc)
		}
		if body := field(n, "body"); body != nil {
			b.stmt(body, lsc)
		}
		return id
	}
	id := b.add(kinds.UnexposedExpr, sc, n)
	for _, c := range named(n) {
		b.expr(c, sc.under(id))
	}
	return id
}

// typed fills the type of an operator node from its operands.
func (b *builder) typed(id NodeID) NodeID {
	b.u.Nodes[id].Type = b.u.exprType(id)
	return id
}

func (b *builder) declRef(n *sitter.Node, name string, sc *scope, nargs int) NodeID {
	if n == nil {
		return 0
	}
	if m := b.objectMacro(name); m != nil {
		return b.macroExpr(n, m, sc, nargs)
	}
	id := b.add(kinds.DeclRefExpr, sc, n)
	b.u.Nodes[id].Name = b.u.Strings.Intern(name)
	b.u.Nodes[id].NameRange = b.rng(n)
	cands := b.u.lookupAll(sc.parent, name, isValueDecl, 0)
	decl := b.u.pickOverload(cands, nargs)
	if decl != 0 {
		b.u.bindRef(id, decl)
		return id
	}
	switch {
	case sc.record != 0:
		b.deferred = append(b.deferred, id)
	case nargs >= 0 && !b.cpp:
		b.emit(Diagnostic{
			Severity: SeverityError,
			Loc:      b.loc(n),
			Message:  "call to undeclared function '" + name + "'; ISO C99 and later do not support implicit function declarations",
			Option:   "implicit-function-declaration",
			Category: CategorySemantic,
			Ranges:   []Range{b.rng(n)},
		})
		b.u.Nodes[id].Type = b.u.functionOf(b.u.builtin(kinds.TypeInt), nil, false, false)
	default:
		b.errorf(n, "use of undeclared identifier '%s'", name)
	}
	return id
}

func (b *builder) qualifiedRef(n *sitter.Node, sc *scope, nargs int) NodeID {
	id := b.add(kinds.DeclRefExpr, sc, n)
	container, last, refs := b.qualified(n, sc.parent)
	b.attachRefs(id, refs)
	if last == nil {
		return id
	}
	name := b.text(last)
	nd := &b.u.Nodes[id]
	nd.Name = name
	nd.NameRange = b.rng(last)
	nd.QualRange = Range{File: b.file, Start: n.StartByte(), End: last.StartByte()}
	nd.Loc = b.loc(last)
	if container == 0 {
		return id
	}
	decl := b.u.pickOverload(b.u.lookupAllIn(container, name, isValueDecl, 0), nargs)
	if decl == 0 {
		b.errorf(last, "no member named '%s' in '%s'", name, b.u.Nodes[container].Name)
		return id
	}
	b.u.bindRef(id, decl)
	if b.u.Nodes[id].Kind == kinds.MemberRefExpr && b.u.Nodes[decl].Kind == kinds.FieldDecl {
		b.u.Nodes[id].Kind = kinds.DeclRefExpr
	}
	return id
}

// bindRef points a reference expression at decl. Non-static members
// named without an object are member references through "this".
func (u *Unit) bindRef(id, decl NodeID) {
	n := &u.Nodes[id]
	d := &u.Nodes[decl]
	n.Ref = decl
	n.Type = d.Type
	if n.Kind == kinds.DeclRefExpr {
		switch d.Kind {
		case kinds.FieldDecl:
			n.Kind = kinds.MemberRefExpr
		case kinds.CXXMethod:
			if !d.Has(FlagStatic) {
				n.Kind = kinds.MemberRefExpr
			}
		}
	}
}

// pickOverload chooses among same-named candidates by argument count.
// nargs < 0 means the name is not called and the last one wins.
func (u *Unit) pickOverload(cands []NodeID, nargs int) NodeID {
	if len(cands) == 0 {
		return 0
	}
	if nargs < 0 {
		return cands[len(cands)-1]
	}
	var best NodeID
	for _, c := range cands {
		t := u.TypeOf(u.Nodes[c].Type)
		if t.Kind != kinds.TypeFunctionProto {
			best = c
			continue
		}
		required := 0
		for _, p := range u.Nodes[c].Children {
			if pn := &u.Nodes[p]; pn.Kind == kinds.ParmDecl && pn.Value == "" {
				required++
			}
		}
		if nargs >= required && (nargs <= len(t.Params) || t.Variadic) {
			best = c
		}
	}
	if best == 0 {
		best = cands[len(cands)-1]
	}
	return best
}

// macroExpr models a use of an object-like macro in an expression.
func (b *builder) macroExpr(n *sitter.Node, m *Macro, sc *scope, nargs int) NodeID {
	exp := b.expand(m, b.rng(n))
	body := strings.TrimSpace(m.Body)
	var id NodeID
	switch {
	case body != "" && body != m.Name && isIdentStart(body[0]) && isIdent(body) && b.objectMacro(body) == nil:
		id = b.add(kinds.DeclRefExpr, sc, n)
		b.u.Nodes[id].Name = body
		if decl := b.u.pickOverload(b.u.lookupAll(sc.parent, body, isValueDecl, 0), nargs); decl != 0 {
			b.u.bindRef(id, decl)
		} else {
			b.errorf(n, "use of undeclared identifier '%s'", body)
		}
	case strings.HasPrefix(body, `"`):
		id = b.add(kinds.StringLiteral, sc, n)
		b.u.Nodes[id].Value = body
		b.u.Nodes[id].Type = b.stringType(body)
	default:
		if v, ok := b.evalText(body); ok {
			id = b.add(kinds.IntegerLiteral, sc, n)
			nd := &b.u.Nodes[id]
			nd.Value = strconv.FormatUint(v.v, 10)
			nd.Type = b.u.builtin(kinds.TypeInt)
			if v.unsigned {
				nd.Value += "u"
				nd.Type = b.u.builtin(kinds.TypeUInt)
			}
			if strings.ContainsAny(body, ".") {
				nd.Kind = kinds.FloatingLiteral
				nd.Value = body
				nd.Type = b.u.builtin(kinds.TypeDouble)
			}
			break
		}
		id = b.add(kinds.UnexposedExpr, sc, n)
		b.u.Nodes[id].Name = m.Name
		b.u.Nodes[id].Value = body
	}
	b.u.Nodes[id].Loc.Exp = exp
	return id
}

func isIdent(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isIdentChar(s[i]) {
			return false
		}
	}
	return s != ""
}

// evalText evaluates macro replacement text as an integer constant.
func (b *builder) evalText(text string) (ppVal, bool) {
	toks := b.ppExpand(ppTokens(text, b.cpp), 0)
	if len(toks) == 0 {
		return ppVal{}, false
	}
	for _, t := range toks {
		if isIdentStart(t[0]) && t != "true" && t != "false" {
			return ppVal{}, false
		}
	}
	e := &ppEval{toks: toks, cpp: b.cpp}
	v := e.ternary()
	return v, e.err == "" && e.pos == len(toks)
}

func (b *builder) number(n *sitter.Node, sc *scope) NodeID {
	text := b.text(n)
	lower := strings.ToLower(strings.ReplaceAll(text, "'", ""))
	hex := strings.HasPrefix(lower, "0x")
	float := strings.Contains(lower, ".") || (!hex && strings.Contains(lower, "e")) || (hex && strings.Contains(lower, "p"))
	if float {
		id := b.add(kinds.FloatingLiteral, sc, n)
		b.u.Nodes[id].Value = text
		k := kinds.TypeDouble
		switch {
		case strings.HasSuffix(lower, "f") && !hex:
			k = kinds.TypeFloat
		case strings.HasSuffix(lower, "l"):
			k = kinds.TypeLongDouble
		}
		b.u.Nodes[id].Type = b.u.builtin(k)
		return id
	}
	id := b.add(kinds.IntegerLiteral, sc, n)
	b.u.Nodes[id].Value = text
	v, _, ok := parseIntLiteral(text)
	if !ok {
		b.errorf(n, "integer literal is too large to be represented in any integer type")
	}
	b.u.Nodes[id].Type = b.u.builtin(intLiteralKind(lower, v))
	return id
}

// intLiteralKind picks the first type of the suffix's candidate list
// that holds v. Decimal literals without 'u' stay signed.
func intLiteralKind(lower string, v uint64) kinds.TypeKind {
	suffix := strings.TrimLeft(lower, "0123456789abcdefx")
	if strings.HasPrefix(lower, "0x") {
		body := strings.TrimPrefix(lower, "0x")
		suffix = strings.TrimLeft(body, "0123456789abcdef")
	}
	unsigned := strings.Contains(suffix, "u")
	longs := strings.Count(suffix, "l")
	decimal := !strings.HasPrefix(lower, "0") || lower == "0" || strings.HasPrefix(lower, "0u") || strings.HasPrefix(lower, "0l")

	type cand struct {
		k   kinds.TypeKind
		max uint64
	}
	var cands []cand
	add := func(signed, uns kinds.TypeKind, smax, umax uint64) {
		if !unsigned {
			cands = append(cands, cand{signed, smax})
		}
		if unsigned || !decimal {
			cands = append(cands, cand{uns, umax})
		}
	}
	if longs == 0 {
		add(kinds.TypeInt, kinds.TypeUInt, 1<<31-1, 1<<32-1)
	}
	if longs <= 1 {
		add(kinds.TypeLong, kinds.TypeULong, 1<<63-1, 1<<64-1)
	}
	add(kinds.TypeLongLong, kinds.TypeULongLong, 1<<63-1, 1<<64-1)
	for _, c := range cands {
		if v <= c.max {
			return c.k
		}
	}
	return kinds.TypeULongLong
}

func (b *builder) stringLit(n *sitter.Node, sc *scope) NodeID {
	id := b.add(kinds.StringLiteral, sc, n)
	text := b.text(n)
	b.u.Nodes[id].Value = text
	b.u.Nodes[id].Type = b.stringType(text)
	return id
}

// stringType is "char [N]" for a literal (const-qualified in C++), N
// counting the terminator; adjacent literals concatenate.
func (b *builder) stringType(text string) TypeID {
	elem := kinds.TypeCharS
	n := int64(1)
	for _, part := range Lex([]byte(text), b.cpp) {
		if part.Kind != TokLiteral {
			continue
		}
		s := text[part.Start:part.End]
		q := strings.IndexByte(s, '"')
		if q < 0 {
			continue
		}
		switch s[:q] {
		case "L":
			elem = kinds.TypeWChar
		case "u":
			elem = kinds.TypeChar16
		case "U":
			elem = kinds.TypeChar32
		}
		n += stringLen(s[q:])
	}
	et := b.u.builtin(elem)
	if b.cpp {
		et = b.u.qualified(et, QualConst)
	}
	return b.u.arrayOf(et, n, false)
}

// stringLen counts the characters of a quoted literal body, escapes
// counting once.
func stringLen(quoted string) int64 {
	s := strings.TrimSuffix(strings.TrimPrefix(quoted, `"`), `"`)
	var n int64
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch {
			case s[i] == 'x':
				for i+1 < len(s) && strings.IndexByte("0123456789abcdefABCDEF", s[i+1]) >= 0 {
					i++
				}
			case s[i] >= '0' && s[i] <= '7':
				for j := 0; j < 2 && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '7'; j++ {
					i++
				}
			}
		}
		n++
	}
	return n
}

func (b *builder) call(n *sitter.Node, sc *scope) NodeID {
	fn := field(n, "function")
	args := field(n, "arguments")
	var argNodes []*sitter.Node
	for _, a := range named(args) {
		if a.Type() != "comment" {
			argNodes = append(argNodes, a)
		}
	}

	if fn != nil && fn.Type() == "template_function" {
		if kind, ok := castKinds[b.text(field(fn, "name"))]; ok {
			id := b.add(kind, sc, n)
			var t TypeID
			if targs := field(fn, "arguments"); targs != nil {
				for _, a := range named(targs) {
					t = b.typeDescriptor(a, id, sc.under(id))
					break
				}
			}
			b.u.Nodes[id].Type = t
			for _, a := range argNodes {
				b.expr(a, sc.under(id))
			}
			return id
		}
	}

	id := b.add(kinds.CallExpr, sc, n)
	sub := sc.under(id)
	var callee NodeID
	switch {
	case fn == nil:
	case fn.Type() == "identifier":
		callee = b.declRef(fn, b.text(fn), sub, len(argNodes))
	case fn.Type() == "qualified_identifier":
		callee = b.qualifiedRef(fn, sub, len(argNodes))
	case fn.Type() == "field_expression":
		callee = b.member(fn, sub, len(argNodes))
	case fn.Type() == "primitive_type" || fn.Type() == "type_identifier":
		b.u.Nodes[id].Kind = kinds.CXXFunctionalCastExpr
		t, refs := b.typeSpec(fn, sub, false)
		b.attachRefs(id, refs)
		b.u.Nodes[id].Type = t
		for _, a := range argNodes {
			b.expr(a, sub)
		}
		return id
	default:
		callee = b.expr(fn, sub)
	}

	var argIDs []NodeID
	for _, a := range argNodes {
		if x := b.expr(a, sub); x != 0 {
			argIDs = append(argIDs, x)
		}
	}
	nd := &b.u.Nodes[id]
	nd.Args = argIDs
	if callee != 0 {
		c := &b.u.Nodes[callee]
		nd.Name = c.Name
		nd.Ref = c.Ref
	}
	return b.typed(id)
}

func (b *builder) member(n *sitter.Node, sc *scope, nargs int) NodeID {
	id := b.add(kinds.MemberRefExpr, sc, n)
	f := field(n, "field")
	op := "."
	if b.hasToken(n, "->") {
		op = "->"
	}
	nd := &b.u.Nodes[id]
	nd.Op = op
	if f != nil {
		nd.Name = b.text(f)
		nd.Loc = b.loc(f)
		nd.NameRange = b.rng(f)
	}
	base := b.expr(field(n, "argument"), sc.under(id))
	if f == nil || base == 0 {
		return id
	}
	rec := b.u.recordOf(b.u.Nodes[base].Type, op == "->")
	if rec == 0 {
		return id
	}
	name := b.lastName(f)
	decl := b.u.pickOverload(b.u.lookupAllIn(rec, name, isValueDecl, 0), nargs)
	if decl == 0 {
		if b.u.Nodes[rec].Has(FlagDefinition) {
			b.errorf(f, "no member named '%s' in '%s'", name, b.u.Spelling(b.u.Nodes[rec].Type))
		}
		return id
	}
	b.u.Nodes[id].Ref = decl
	b.u.Nodes[id].Type = b.u.Nodes[decl].Type
	return id
}

// recordOf returns the record definition behind a value of type t,
// looking through one pointer level when arrow is set.
func (u *Unit) recordOf(t TypeID, arrow bool) NodeID {
	c := u.TypeOf(u.Desugar(t))
	if arrow {
		if c.Kind != kinds.TypePointer && !c.Kind.IsArray() {
			return 0
		}
		c = u.TypeOf(u.Desugar(c.Elem))
	}
	if c.Kind != kinds.TypeRecord || c.Decl == 0 {
		return 0
	}
	return u.definitionOf(c.Decl)
}

// =============================================================================
// Expression types
// =============================================================================

// exprKids returns the expression children of id.
func (u *Unit) exprKids(id NodeID) []NodeID {
	var out []NodeID
	for _, c := range u.Nodes[id].Children {
		if u.Nodes[c].Kind.IsExpression() {
			out = append(out, c)
		}
	}
	return out
}

func (u *Unit) boolType() TypeID {
	if u.Lang == LangCPP {
		return u.builtin(kinds.TypeBool)
	}
	return u.builtin(kinds.TypeInt)
}

// exprType computes the type of an operator node from its operands.
// Leaf expressions keep the type they were built with.
func (u *Unit) exprType(id NodeID) TypeID {
	n := &u.Nodes[id]
	kids := u.exprKids(id)
	kt := func(i int) TypeID {
		if i < len(kids) {
			return u.Nodes[kids[i]].Type
		}
		return 0
	}
	switch n.Kind {
	case kinds.DeclRefExpr, kinds.MemberRefExpr:
		if n.Ref != 0 {
			return u.Nodes[n.Ref].Type
		}
	case kinds.ParenExpr:
		return kt(0)
	case kinds.UnaryOperator:
		switch n.Op {
		case "&":
			return u.pointerTo(kt(0))
		case "*":
			t := u.TypeOf(u.Desugar(kt(0)))
			if t.Kind == kinds.TypePointer || t.Kind.IsArray() {
				return t.Elem
			}
			return 0
		case "!":
			return u.boolType()
		case "-", "+", "~":
			return u.promote(kt(0))
		}
		return kt(0)
	case kinds.BinaryOperator:
		switch n.Op {
		case "==", "!=", "<", ">", "<=", ">=", "&&", "||":
			return u.boolType()
		case "=":
			return kt(0)
		case ",":
			return kt(1)
		case "<<", ">>":
			return u.promote(kt(0))
		case "+", "-":
			l, r := u.decay(kt(0)), u.decay(kt(1))
			lp := u.TypeOf(u.Canonical(l)).Kind == kinds.TypePointer
			rp := u.TypeOf(u.Canonical(r)).Kind == kinds.TypePointer
			switch {
			case lp && rp:
				return u.builtin(kinds.TypeLong)
			case lp:
				return l
			case rp:
				return r
			}
		}
		return u.arith(kt(0), kt(1))
	case kinds.CompoundAssignmentOperator:
		return kt(0)
	case kinds.ArraySubscriptExpr:
		for _, t := range []TypeID{kt(0), kt(1)} {
			c := u.TypeOf(u.Desugar(u.decay(t)))
			if c.Kind == kinds.TypePointer {
				return c.Elem
			}
		}
		return 0
	case kinds.CallExpr:
		if n.Ref != 0 && u.Nodes[n.Ref].Kind == kinds.Constructor {
			return n.Type
		}
		t := u.TypeOf(u.Desugar(kt(0)))
		if t.Kind == kinds.TypePointer {
			t = u.TypeOf(u.Desugar(t.Elem))
		}
		if t.Kind == kinds.TypeFunctionProto || t.Kind == kinds.TypeFunctionNoProto {
			return t.Elem
		}
		return 0
	case kinds.ConditionalOperator:
		if t := kt(1); t != 0 {
			return t
		}
		return kt(2)
	}
	return n.Type
}

func intRank(k kinds.TypeKind) int {
	switch k {
	case kinds.TypeLong, kinds.TypeULong:
		return 2
	case kinds.TypeLongLong, kinds.TypeULongLong:
		return 3
	case kinds.TypeInt128, kinds.TypeUInt128:
		return 4
	}
	return 1
}

// promote applies integer promotion.
func (u *Unit) promote(t TypeID) TypeID {
	c := u.TypeOf(u.Canonical(t))
	switch c.Kind {
	case kinds.TypeBool, kinds.TypeCharU, kinds.TypeUChar, kinds.TypeCharS, kinds.TypeSChar,
		kinds.TypeShort, kinds.TypeUShort, kinds.TypeWChar, kinds.TypeChar16, kinds.TypeEnum:
		return u.builtin(kinds.TypeInt)
	}
	return u.unqualified(t)
}

// arith applies the usual arithmetic conversions.
func (u *Unit) arith(a, b TypeID) TypeID {
	if a == 0 || b == 0 {
		return 0
	}
	ca, cb := u.TypeOf(u.Canonical(a)).Kind, u.TypeOf(u.Canonical(b)).Kind
	for _, k := range []kinds.TypeKind{kinds.TypeLongDouble, kinds.TypeDouble, kinds.TypeFloat} {
		if ca == k || cb == k {
			return u.builtin(k)
		}
	}
	pa, pb := u.promote(a), u.promote(b)
	ka, kb := u.TypeOf(u.Canonical(pa)).Kind, u.TypeOf(u.Canonical(pb)).Kind
	if !ka.IsInteger() || !kb.IsInteger() {
		return pa
	}
	ra, rb := intRank(ka), intRank(kb)
	switch {
	case ra > rb:
		return u.builtin(ka)
	case rb > ra:
		return u.builtin(kb)
	case kb.IsUnsigned():
		return u.builtin(kb)
	}
	return u.builtin(ka)
}

// =============================================================================
// Constant evaluation
// =============================================================================

// constEval folds an integer constant expression built under id.
func (u *Unit) constEval(id NodeID) (uint64, bool, bool) {
	v, ok := u.eval(id, 0)
	return v.v, v.unsigned, ok
}

func (u *Unit) eval(id NodeID, depth int) (ppVal, bool) {
	if !u.Valid(id) || depth > 64 {
		return ppVal{}, false
	}
	n := &u.Nodes[id]
	kids := u.exprKids(id)
	kid := func(i int) (ppVal, bool) {
		if i >= len(kids) {
			return ppVal{}, false
		}
		return u.eval(kids[i], depth+1)
	}
	switch n.Kind {
	case kinds.IntegerLiteral:
		v, uns, ok := parseIntLiteral(n.Value)
		return ppVal{v: v, unsigned: uns || u.TypeOf(u.Canonical(n.Type)).Kind.IsUnsigned()}, ok
	case kinds.CharacterLiteral:
		c, ok := parseCharLiteral(n.Value)
		return ppVal{v: uint64(c)}, ok
	case kinds.CXXBoolLiteralExpr:
		return ppVal{v: boolBits(n.Value == "true")}, true
	case kinds.ParenExpr:
		return kid(0)
	case kinds.UnaryOperator:
		v, ok := kid(0)
		if !ok {
			return v, false
		}
		switch n.Op {
		case "-":
			return ppVal{v: -v.v, unsigned: v.unsigned}, true
		case "+":
			return v, true
		case "~":
			return ppVal{v: ^v.v, unsigned: v.unsigned}, true
		case "!":
			return ppVal{v: boolBits(v.v == 0)}, true
		}
	case kinds.BinaryOperator:
		l, ok1 := kid(0)
		r, ok2 := kid(1)
		if !ok1 || !ok2 {
			return ppVal{}, false
		}
		if n.Op == "," {
			return r, true
		}
		e := &ppEval{cpp: u.Lang == LangCPP}
		v := e.apply(n.Op, l, r)
		return v, e.err == ""
	case kinds.ConditionalOperator:
		c, ok := kid(0)
		if !ok {
			return c, false
		}
		if c.v != 0 {
			return kid(1)
		}
		return kid(2)
	case kinds.DeclRefExpr:
		if n.Ref == 0 {
			return ppVal{}, false
		}
		d := &u.Nodes[n.Ref]
		switch d.Kind {
		case kinds.EnumConstantDecl:
			return ppVal{v: d.EnumBits, unsigned: d.Has(FlagUnsigned)}, true
		case kinds.VarDecl:
			if u.TypeOf(d.Type).Quals&QualConst == 0 {
				return ppVal{}, false
			}
			init := u.exprKids(n.Ref)
			if len(init) == 0 {
				return ppVal{}, false
			}
			return u.eval(init[len(init)-1], depth+1)
		}
	case kinds.CStyleCastExpr, kinds.CXXStaticCastExpr, kinds.CXXFunctionalCastExpr:
		if len(kids) == 0 {
			return ppVal{}, false
		}
		v, ok := u.eval(kids[len(kids)-1], depth+1)
		if !ok {
			return v, false
		}
		return u.convert(v, n.Type), true
	case kinds.CXXUnaryExpr:
		t := n.Underlying
		if t == 0 && len(kids) > 0 {
			t = u.Nodes[kids[0]].Type
		}
		s := u.SizeOf(t)
		if s < 0 {
			return ppVal{}, false
		}
		if n.Op == "alignof" {
			s = min(s, 8)
		}
		return ppVal{v: uint64(s), unsigned: true}, true
	}
	return ppVal{}, false
}

// convert truncates or extends v to the width and signedness of t.
func (u *Unit) convert(v ppVal, t TypeID) ppVal {
	k := u.TypeOf(u.Canonical(t)).Kind
	if k == kinds.TypeBool {
		return ppVal{v: boolBits(v.v != 0), unsigned: true}
	}
	size := u.SizeOf(t)
	out := ppVal{v: v.v, unsigned: k.IsUnsigned()}
	if size > 0 && size < 8 {
		bits := uint(size * 8)
		mask := uint64(1)<<bits - 1
		out.v &= mask
		if !out.unsigned && out.v&(1<<(bits-1)) != 0 {
			out.v |= ^mask
		}
	}
	return out
}
