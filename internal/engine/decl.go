package engine

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/cindex/kinds"
)

// refSpec is a reference cursor to attach under a declaration once the
// declaration node exists.
type refSpec struct {
	kind   kinds.CursorKind
	target NodeID
	rng    Range
}

func (b *builder) attachRefs(owner NodeID, refs []refSpec) {
	for _, r := range refs {
		id := b.u.newNode(r.kind, owner)
		nd := &b.u.Nodes[id]
		nd.SemParent = owner
		nd.Extent = r.rng
		nd.Loc = Loc{File: r.rng.File, Offset: r.rng.Start}
		nd.Ref = r.target
		if b.preamble {
			nd.Flags |= FlagFromPreamble
		}
		b.u.addChild(owner, id)
		b.u.Nodes[id].Name = b.u.refName(r.kind, r.target)
	}
}

// refName is the spelling of a reference cursor: the type spelling for
// TYPE_REF, the plain name otherwise.
func (u *Unit) refName(kind kinds.CursorKind, target NodeID) string {
	if !u.Valid(target) {
		return ""
	}
	t := &u.Nodes[target]
	if kind == kinds.TypeRef {
		switch t.Kind {
		case kinds.StructDecl, kinds.UnionDecl, kinds.ClassDecl, kinds.EnumDecl, kinds.TypedefDecl, kinds.TypeAliasDecl:
			return u.Spelling(t.Type)
		}
	}
	return t.Name
}

// specs are the declaration specifiers and declarators of one
// declaration-like node.
type specs struct {
	typ         *sitter.Node
	quals       Qual
	static      bool
	extern      bool
	inline      bool
	virtual     bool
	declarators []*sitter.Node
}

var declaratorTypes = map[string]bool{
	"identifier":               true,
	"field_identifier":         true,
	"type_identifier":          true,
	"pointer_declarator":       true,
	"reference_declarator":     true,
	"array_declarator":         true,
	"function_declarator":      true,
	"parenthesized_declarator": true,
	"attributed_declarator":    true,
	"init_declarator":          true,
	"qualified_identifier":     true,
	"destructor_name":          true,
	"operator_name":            true,
	"operator_cast":            true,
	"template_function":        true,
}

func (b *builder) readSpecs(n *sitter.Node) specs {
	sp := specs{typ: field(n, "type")}
	for _, c := range named(n) {
		switch c.Type() {
		case "storage_class_specifier":
			switch b.text(c) {
			case "static":
				sp.static = true
			case "extern":
				sp.extern = true
			case "inline":
				sp.inline = true
			}
		case "type_qualifier":
			sp.quals |= qualOf(b.text(c))
		case "virtual", "virtual_function_specifier":
			sp.virtual = true
		default:
			if sameNode(c, sp.typ) || !declaratorTypes[c.Type()] {
				continue
			}
			if sp.typ != nil && c.StartByte() < sp.typ.EndByte() {
				continue
			}
			sp.declarators = append(sp.declarators, c)
		}
	}
	if b.hasToken(n, "virtual") {
		sp.virtual = true
	}
	if b.hasToken(n, "inline") {
		sp.inline = true
	}
	return sp
}

func qualOf(word string) Qual {
	switch word {
	case "const":
		return QualConst
	case "volatile":
		return QualVolatile
	case "restrict", "__restrict", "__restrict__":
		return QualRestrict
	}
	return 0
}

func (b *builder) qualsOf(n *sitter.Node) Qual {
	var q Qual
	for _, c := range named(n) {
		if c.Type() == "type_qualifier" {
			q |= qualOf(b.text(c))
		}
	}
	return q
}

// shape describes a declarator without building anything.
type shape struct {
	name   *sitter.Node
	init   *sitter.Node
	isFunc bool
}

func (b *builder) shapeOf(d *sitter.Node) shape {
	var s shape
	if d != nil && d.Type() == "init_declarator" {
		s.init = field(d, "value")
		d = field(d, "declarator")
	}
	last := ""
	for d != nil {
		switch d.Type() {
		case "pointer_declarator", "array_declarator", "function_declarator":
			last = d.Type()
			d = field(d, "declarator")
		case "reference_declarator":
			last = d.Type()
			d = firstNamed(d)
		case "parenthesized_declarator", "attributed_declarator":
			d = firstNamed(d)
		case "operator_cast":
			s.name = d
			last = "function_declarator"
			d = nil
		default:
			s.name = d
			d = nil
		}
	}
	s.isFunc = last == "function_declarator"
	return s
}

func firstNamed(n *sitter.Node) *sitter.Node {
	if n == nil || n.NamedChildCount() == 0 {
		return nil
	}
	return n.NamedChild(0)
}

// applyDeclarator wraps base in the declarator's constructors, outermost
// first, creating PARM_DECL and size-expression children under owner.
func (b *builder) applyDeclarator(d *sitter.Node, t TypeID, owner NodeID, sc *scope) (TypeID, bool) {
	constMethod := false
	osc := &scope{parent: owner, sem: owner, record: sc.record, fn: sc.fn}
	for d != nil {
		switch d.Type() {
		case "init_declarator":
			d = field(d, "declarator")
		case "pointer_declarator", "abstract_pointer_declarator":
			t = b.u.qualified(b.u.pointerTo(t), b.qualsOf(d))
			d = field(d, "declarator")
		case "reference_declarator", "abstract_reference_declarator":
			t = b.u.referenceTo(t, b.hasToken(d, "&&"))
			d = firstNamed(d)
		case "array_declarator", "abstract_array_declarator":
			size := field(d, "size")
			n, vla := int64(-1), false
			if size != nil {
				if b.text(size) == "*" {
					vla = true
				} else if e := b.expr(size, osc); e != 0 {
					if v, _, ok := b.u.constEval(e); ok {
						n = int64(v)
					} else {
						vla = true
					}
				}
			}
			t = b.u.arrayOf(t, n, vla)
			d = field(d, "declarator")
		case "function_declarator", "abstract_function_declarator":
			params, variadic, proto := b.params(field(d, "parameters"), owner, sc)
			t = b.u.functionOf(t, params, variadic, proto)
			if b.qualsOf(d)&QualConst != 0 {
				constMethod = true
			}
			d = field(d, "declarator")
		case "parenthesized_declarator", "abstract_parenthesized_declarator", "attributed_declarator":
			d = firstNamed(d)
		case "operator_cast":
			d = field(d, "declarator")
		default:
			return t, constMethod
		}
	}
	return t, constMethod
}

// params builds a parameter list. In C an empty list has no prototype
// and a lone "void" means no parameters.
func (b *builder) params(list *sitter.Node, owner NodeID, sc *scope) ([]TypeID, bool, bool) {
	if list == nil {
		return nil, false, b.cpp
	}
	ps := named(list)
	variadic := b.hasToken(list, "...")
	var decls []*sitter.Node
	for _, p := range ps {
		switch p.Type() {
		case "parameter_declaration", "optional_parameter_declaration", "variadic_parameter_declaration":
			decls = append(decls, p)
		case "variadic_parameter":
			variadic = true
		}
	}
	if len(decls) == 1 && decls[0].Type() == "parameter_declaration" && field(decls[0], "declarator") == nil &&
		b.text(field(decls[0], "type")) == "void" {
		return nil, variadic, true
	}
	proto := b.cpp || len(decls) > 0 || variadic

	var types []TypeID
	for _, p := range decls {
		sp := b.readSpecs(p)
		decl := field(p, "declarator")
		sh := b.shapeOf(decl)

		var id NodeID
		if owner != 0 {
			id = b.add(kinds.ParmDecl, &scope{parent: owner, sem: owner, record: sc.record}, p)
			if sh.name != nil {
				b.u.Nodes[id].Name = b.text(sh.name)
				b.u.Nodes[id].Loc = b.loc(sh.name)
				b.u.Nodes[id].NameRange = b.rng(sh.name)
			}
		}
		psc := &scope{parent: id, sem: owner, record: sc.record, fn: sc.fn}
		base, refs := b.typeSpec(sp.typ, psc, false)
		base = b.u.qualified(base, sp.quals)
		if id != 0 {
			b.attachRefs(id, refs)
		}
		t, _ := b.applyDeclarator(decl, base, id, psc)
		t = b.u.decay(t)
		types = append(types, t)
		if id != 0 {
			b.u.Nodes[id].Type = t
			if def := field(p, "default_value"); def != nil {
				b.u.Nodes[id].Value = b.text(def)
				b.expr(def, &scope{parent: id, sem: owner, record: sc.record, fn: sc.fn})
			}
		}
	}
	return types, variadic, proto
}

// decay applies array-to-pointer and function-to-pointer adjustment.
func (u *Unit) decay(t TypeID) TypeID {
	ty := u.TypeOf(t)
	switch {
	case ty.Kind.IsArray():
		return u.qualified(u.pointerTo(ty.Elem), ty.Quals)
	case ty.Kind == kinds.TypeFunctionProto || ty.Kind == kinds.TypeFunctionNoProto:
		return u.pointerTo(t)
	}
	return t
}

// =============================================================================
// Type specifiers
// =============================================================================

var implicitTypedefs = map[string]kinds.TypeKind{
	"size_t":    kinds.TypeULong,
	"ssize_t":   kinds.TypeLong,
	"ptrdiff_t": kinds.TypeLong,
	"intptr_t":  kinds.TypeLong,
	"uintptr_t": kinds.TypeULong,
	"int8_t":    kinds.TypeSChar,
	"int16_t":   kinds.TypeShort,
	"int32_t":   kinds.TypeInt,
	"int64_t":   kinds.TypeLong,
	"uint8_t":   kinds.TypeUChar,
	"uint16_t":  kinds.TypeUShort,
	"uint32_t":  kinds.TypeUInt,
	"uint64_t":  kinds.TypeULong,
}

// typeSpec resolves a type specifier. standalone is set when the
// specifier is the whole declaration ("struct S;").
func (b *builder) typeSpec(t *sitter.Node, sc *scope, standalone bool) (TypeID, []refSpec) {
	if t == nil {
		return b.u.builtin(kinds.TypeInt), nil
	}
	switch t.Type() {
	case "primitive_type":
		return b.u.builtin(builtinKind([]string{b.text(t)})), nil
	case "sized_type_specifier":
		var words []string
		for _, c := range children(t) {
			words = append(words, b.text(c))
		}
		return b.u.builtin(builtinKind(words)), nil
	case "type_identifier":
		return b.namedType(t, sc)
	case "struct_specifier", "union_specifier", "class_specifier":
		return b.record(t, sc, standalone)
	case "enum_specifier":
		return b.enum(t, sc, standalone)
	case "qualified_identifier":
		container, last, refs := b.qualified(t, sc.parent)
		if container == 0 || last == nil {
			return b.unknownType(t), refs
		}
		decl := b.u.lookupIn(container, b.text(last), isTypeDecl, 0)
		if decl == 0 {
			b.errorf(last, "no type named '%s' in '%s'", b.text(last), b.u.Nodes[container].Name)
			return 0, refs
		}
		return b.typeForDecl(decl), append(refs, b.refTo(decl, last))
	case "template_type":
		name := field(t, "name")
		var refs []refSpec
		if decl := b.u.lookup(sc.parent, b.text(name), isTypeDecl, 0); decl != 0 {
			refs = append(refs, refSpec{kind: kinds.TemplateRef, target: decl, rng: b.rng(name)})
		}
		if args := field(t, "arguments"); args != nil {
			for _, a := range named(args) {
				if a.Type() == "type_descriptor" {
					_, r := b.typeSpec(field(a, "type"), sc, false)
					refs = append(refs, r...)
				}
			}
		}
		return b.u.intern(Type{Kind: kinds.TypeUnexposed, Name: b.text(t), Size: -1}), refs
	}
	return b.u.intern(Type{Kind: kinds.TypeUnexposed, Name: b.text(t), Size: -1}), nil
}

func (b *builder) unknownType(t *sitter.Node) TypeID {
	b.errorf(t, "unknown type name '%s'", b.text(t))
	return 0
}

func (b *builder) namedType(t *sitter.Node, sc *scope) (TypeID, []refSpec) {
	name := b.text(t)
	if decl := b.u.lookup(sc.parent, name, isTypeDecl, 0); decl != 0 {
		return b.typeForDecl(decl), []refSpec{b.refTo(decl, t)}
	}
	if m := b.objectMacro(name); m != nil {
		words := strings.Fields(m.Body)
		if len(words) > 0 && builtinWords(words) {
			b.expand(m, b.rng(t))
			return b.u.builtin(builtinKind(words)), nil
		}
		if len(words) == 1 {
			if decl := b.u.lookup(sc.parent, words[0], isTypeDecl, 0); decl != 0 {
				b.expand(m, b.rng(t))
				return b.typeForDecl(decl), nil
			}
		}
	}
	if k, ok := implicitTypedefs[name]; ok {
		return b.u.intern(Type{Kind: kinds.TypeTypedef, Name: name, Elem: b.u.builtin(k), Size: -1}), nil
	}
	return b.unknownType(t), nil
}

func (b *builder) refTo(decl NodeID, at *sitter.Node) refSpec {
	kind := kinds.TypeRef
	switch b.u.Nodes[decl].Kind {
	case kinds.ClassTemplate:
		kind = kinds.TemplateRef
	case kinds.Namespace, kinds.NamespaceAlias:
		kind = kinds.NamespaceRef
	}
	return refSpec{kind: kind, target: decl, rng: b.rng(at)}
}

// typeForDecl is the type a type-naming declaration introduces.
func (b *builder) typeForDecl(decl NodeID) TypeID {
	n := &b.u.Nodes[decl]
	switch n.Kind {
	case kinds.StructDecl, kinds.UnionDecl, kinds.ClassDecl, kinds.EnumDecl, kinds.ClassTemplate,
		kinds.TypedefDecl, kinds.TypeAliasDecl:
		return n.Type
	}
	return b.u.intern(Type{Kind: kinds.TypeUnexposed, Name: n.Name, Size: -1})
}

var builtinWordSet = wordSet("void", "bool", "_Bool", "char", "short", "int", "long", "float", "double",
	"signed", "unsigned", "wchar_t", "char16_t", "char32_t", "__int128", "const", "volatile")

func builtinWords(words []string) bool {
	for _, w := range words {
		if !builtinWordSet[w] {
			return false
		}
	}
	return true
}

// builtinKind maps a run of type keywords to its builtin kind.
func builtinKind(words []string) kinds.TypeKind {
	var unsigned, signed, char, short, i128 bool
	long := 0
	base := ""
	for _, w := range words {
		switch w {
		case "unsigned":
			unsigned = true
		case "signed":
			signed = true
		case "long":
			long++
		case "short":
			short = true
		case "char":
			char = true
		case "__int128":
			i128 = true
		case "void", "bool", "_Bool", "float", "double", "wchar_t", "char16_t", "char32_t":
			base = w
		}
	}
	switch base {
	case "void":
		return kinds.TypeVoid
	case "bool", "_Bool":
		return kinds.TypeBool
	case "float":
		return kinds.TypeFloat
	case "double":
		if long > 0 {
			return kinds.TypeLongDouble
		}
		return kinds.TypeDouble
	case "wchar_t":
		return kinds.TypeWChar
	case "char16_t":
		return kinds.TypeChar16
	case "char32_t":
		return kinds.TypeChar32
	}
	pick := func(s, u kinds.TypeKind) kinds.TypeKind {
		if unsigned {
			return u
		}
		return s
	}
	switch {
	case char && unsigned:
		return kinds.TypeUChar
	case char && signed:
		return kinds.TypeSChar
	case char:
		return kinds.TypeCharS
	case short:
		return pick(kinds.TypeShort, kinds.TypeUShort)
	case i128:
		return pick(kinds.TypeInt128, kinds.TypeUInt128)
	case long >= 2:
		return pick(kinds.TypeLongLong, kinds.TypeULongLong)
	case long == 1:
		return pick(kinds.TypeLong, kinds.TypeULong)
	}
	return pick(kinds.TypeInt, kinds.TypeUInt)
}

// qualified resolves the scope part of a qualified name. It returns the
// container holding the final name (0 when unqualified), the final name
// node and NAMESPACE_REF/TYPE_REF specs for each qualifier.
func (b *builder) qualified(q *sitter.Node, from NodeID) (NodeID, *sitter.Node, []refSpec) {
	var container NodeID
	var refs []refSpec
	for q != nil && q.Type() == "qualified_identifier" {
		s := field(q, "scope")
		switch {
		case s == nil:
			container = b.u.Root()
		default:
			nameNode := s
			if s.Type() == "template_type" {
				nameNode = field(s, "name")
			}
			var target NodeID
			if container == 0 {
				target = b.u.lookup(from, b.text(nameNode), isScopeDecl, 0)
			} else {
				target = b.u.lookupIn(container, b.text(nameNode), isScopeDecl, 0)
			}
			if target == 0 {
				b.errorf(nameNode, "use of undeclared identifier '%s'", b.text(nameNode))
				return 0, field(q, "name"), refs
			}
			refs = append(refs, b.refTo(target, nameNode))
			container = b.u.scopeTarget(target)
		}
		q = field(q, "name")
	}
	if q != nil && q.Type() == "template_function" {
		q = field(q, "name")
	}
	return container, q, refs
}

// scopeTarget follows namespace aliases and typedefs to the declaration
// whose members a qualifier names.
func (u *Unit) scopeTarget(id NodeID) NodeID {
	for i := 0; i < 8 && id != 0; i++ {
		n := &u.Nodes[id]
		switch n.Kind {
		case kinds.NamespaceAlias:
			id = n.Ref
		case kinds.TypedefDecl, kinds.TypeAliasDecl:
			t := u.TypeOf(u.Canonical(n.Underlying))
			if t.Decl == 0 {
				return 0
			}
			id = t.Decl
		default:
			return u.definitionOf(id)
		}
	}
	return id
}

// definitionOf returns the defining redeclaration of id when known.
func (u *Unit) definitionOf(id NodeID) NodeID {
	if id == 0 {
		return 0
	}
	if d := u.Nodes[id].Definition; d != 0 {
		return d
	}
	return id
}

// =============================================================================
// Records and enums
// =============================================================================

func recordKind(t *sitter.Node) kinds.CursorKind {
	switch t.Type() {
	case "union_specifier":
		return kinds.UnionDecl
	case "class_specifier":
		return kinds.ClassDecl
	}
	return kinds.StructDecl
}

func (b *builder) tagName(t *sitter.Node) *sitter.Node {
	name := field(t, "name")
	if name == nil {
		return nil
	}
	switch name.Type() {
	case "template_type":
		return field(name, "name")
	case "qualified_identifier":
		_, last, _ := b.qualified(name, 0)
		return last
	}
	return name
}

// prevTag finds an earlier declaration of the same tag in sc.
func (b *builder) prevTag(name string, sc *scope) NodeID {
	if name == "" {
		return 0
	}
	prev := b.u.lookup(sc.parent, name, isTagDecl, 0)
	if prev != 0 && b.u.Nodes[prev].SemParent == sc.sem {
		return prev
	}
	return 0
}

func (b *builder) record(t *sitter.Node, sc *scope, standalone bool) (TypeID, []refSpec) {
	kind := recordKind(t)
	nameNode := b.tagName(t)
	name := b.text(nameNode)
	body := field(t, "body")

	if body == nil && name != "" && !standalone {
		if prev := b.u.lookup(sc.parent, name, isTagDecl, 0); prev != 0 {
			return b.u.Nodes[prev].Type, []refSpec{b.refTo(prev, nameNode)}
		}
	}
	if sc.tmpl != nil {
		kind = kinds.ClassTemplate
	}

	var id NodeID
	if body == nil && !standalone {
		id = b.hidden(kind, sc, t)
		b.u.Nodes[id].Flags |= FlagImplicit
	} else {
		id = b.add(kind, sc, t)
	}
	prev := b.prevTag(name, sc)
	b.declareName(id, nameNode)
	nd := &b.u.Nodes[id]
	nd.Access = sc.access
	nd.Canonical = id
	if prev != 0 {
		nd.Canonical = b.u.Nodes[prev].Canonical
	}
	if name == "" {
		nd.Flags |= FlagAnonymous
	}
	if t.Type() == "class_specifier" {
		nd.Display = "class"
	}
	b.u.Nodes[id].Type = b.u.declType(kinds.TypeRecord, b.u.Nodes[id].Canonical, "")
	b.consumeTemplate(id, sc)

	if body != nil {
		b.u.Nodes[id].Flags |= FlagDefinition
		b.u.Nodes[id].Definition = id
		b.u.Nodes[b.u.Nodes[id].Canonical].Definition = id
		access := kinds.AccessInvalid
		if b.cpp {
			access = kinds.AccessPublic
			if t.Type() == "class_specifier" {
				access = kinds.AccessPrivate
			}
		}
		for _, c := range named(t) {
			if c.Type() == "base_class_clause" {
				b.bases(c, id, access)
			}
		}
		msc := &scope{parent: id, sem: id, record: id, access: access}
		b.items(body, msc, b.memberItem)
	}

	var refs []refSpec
	if nameNode != nil {
		refs = append(refs, b.refTo(id, nameNode))
	}
	return b.u.Nodes[id].Type, refs
}

// declareName sets the name fields of id from a name node.
func (b *builder) declareName(id NodeID, name *sitter.Node) {
	if name == nil {
		return
	}
	nd := &b.u.Nodes[id]
	nd.Name = b.u.Strings.Intern(b.text(name))
	nd.Loc = b.loc(name)
	nd.NameRange = b.rng(name)
}

func (b *builder) bases(clause *sitter.Node, rec NodeID, defaultAccess kinds.AccessSpecifier) {
	access := kinds.AccessInvalid
	virtual := false
	var start *sitter.Node
	sc := &scope{parent: rec, sem: rec, record: rec}
	for _, c := range children(clause) {
		switch c.Type() {
		case ":", ",":
			access, virtual, start = kinds.AccessInvalid, false, nil
			continue
		case "access_specifier":
			access = accessOf(b.text(c))
		case "virtual":
			virtual = true
		}
		if b.text(c) == "virtual" {
			virtual = true
		}
		if start == nil {
			start = c
		}
		if !c.IsNamed() || c.Type() == "access_specifier" || b.text(c) == "virtual" {
			continue
		}
		id := b.add(kinds.CXXBaseSpecifier, sc, c)
		typ, refs := b.typeSpec(c, &scope{parent: id, sem: rec, record: rec}, false)
		nd := &b.u.Nodes[id]
		nd.Extent.Start = start.StartByte()
		nd.Loc = Loc{File: b.file, Offset: start.StartByte()}
		nd.Type = typ
		nd.Access = access
		if access == kinds.AccessInvalid {
			nd.Access = defaultAccess
		}
		if virtual {
			nd.Flags |= FlagVirtualBase
		}
		if len(refs) > 0 {
			nd.Ref = refs[len(refs)-1].target
		}
		b.u.Nodes[id].Name = b.u.Spelling(typ)
		b.attachRefs(id, refs)
	}
}

func accessOf(label string) kinds.AccessSpecifier {
	switch strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(label), ":")) {
	case "public":
		return kinds.AccessPublic
	case "protected":
		return kinds.AccessProtected
	case "private":
		return kinds.AccessPrivate
	}
	return kinds.AccessInvalid
}

func enumBase(t *sitter.Node) *sitter.Node {
	if n := field(t, "base"); n != nil {
		return n
	}
	if n := field(t, "underlying_type"); n != nil {
		return n
	}
	colon := false
	for _, c := range children(t) {
		switch {
		case c.Type() == "enum_base_clause":
			if n := field(c, "type"); n != nil {
				return n
			}
			return firstNamed(c)
		case c.Type() == ":":
			colon = true
		case colon && c.IsNamed():
			return c
		}
	}
	return nil
}

func (b *builder) enum(t *sitter.Node, sc *scope, standalone bool) (TypeID, []refSpec) {
	nameNode := b.tagName(t)
	name := b.text(nameNode)
	body := field(t, "body")
	base := enumBase(t)

	if body == nil && base == nil && name != "" && !standalone {
		if prev := b.u.lookup(sc.parent, name, isTagDecl, 0); prev != 0 {
			return b.u.Nodes[prev].Type, []refSpec{b.refTo(prev, nameNode)}
		}
	}

	var id NodeID
	if body == nil && !standalone && base == nil {
		id = b.hidden(kinds.EnumDecl, sc, t)
		b.u.Nodes[id].Flags |= FlagImplicit
	} else {
		id = b.add(kinds.EnumDecl, sc, t)
	}
	prev := b.prevTag(name, sc)
	b.declareName(id, nameNode)
	nd := &b.u.Nodes[id]
	nd.Access = sc.access
	nd.Canonical = id
	if prev != 0 {
		nd.Canonical = b.u.Nodes[prev].Canonical
	}
	if name == "" {
		nd.Flags |= FlagAnonymous
	}
	if b.hasToken(t, "class") || b.hasToken(t, "struct") {
		nd.Flags |= FlagScoped
	}
	typ := b.u.declType(kinds.TypeEnum, b.u.Nodes[id].Canonical, "")
	b.u.Nodes[id].Type = typ

	var under TypeID
	if base != nil {
		var refs []refSpec
		under, refs = b.typeSpec(base, &scope{parent: id, sem: id, record: sc.record}, false)
		b.attachRefs(id, refs)
	}

	if body != nil {
		b.u.Nodes[id].Flags |= FlagDefinition
		b.u.Nodes[id].Definition = id
		b.u.Nodes[b.u.Nodes[id].Canonical].Definition = id
		esc := &scope{parent: id, sem: id, record: sc.record, fn: sc.fn}
		var next uint64
		unsigned := false
		minNeg, maxPos := false, uint64(0)
		for _, e := range named(body) {
			if e.Type() != "enumerator" {
				continue
			}
			cid := b.add(kinds.EnumConstantDecl, esc, e)
			b.declareName(cid, field(e, "name"))
			if val := field(e, "value"); val != nil {
				x := b.expr(val, &scope{parent: cid, sem: cid, record: sc.record, fn: sc.fn})
				if v, u, ok := b.u.constEval(x); ok {
					next, unsigned = v, u
				} else {
					b.errorf(val, "expression is not an integer constant expression")
				}
			}
			c := &b.u.Nodes[cid]
			c.EnumBits = next
			if unsigned {
				c.Flags |= FlagUnsigned
			}
			if b.cpp {
				c.Type = typ
			} else {
				c.Type = b.u.builtin(kinds.TypeInt)
			}
			if !unsigned && int64(next) < 0 {
				minNeg = true
			} else if next > maxPos {
				maxPos = next
			}
			next++
		}
		if under == 0 {
			under = b.u.builtin(widenEnum(minNeg, maxPos))
		}
	}
	if under == 0 {
		under = b.u.builtin(kinds.TypeInt)
	}
	b.u.Nodes[id].Underlying = under

	var refs []refSpec
	if nameNode != nil {
		refs = append(refs, b.refTo(id, nameNode))
	}
	return typ, refs
}

// widenEnum picks the integer type of an enum without a fixed
// underlying type: int when every value fits, then unsigned int, long
// and unsigned long.
func widenEnum(neg bool, maxPos uint64) kinds.TypeKind {
	switch {
	case maxPos <= 1<<31-1:
		return kinds.TypeInt
	case !neg && maxPos <= 1<<32-1:
		return kinds.TypeUInt
	case maxPos <= 1<<63-1:
		return kinds.TypeLong
	}
	return kinds.TypeULong
}

// =============================================================================
// Declarations
// =============================================================================

// baseFunc yields the specifier type once the owning node exists.
type baseFunc func(owner NodeID) (TypeID, []refSpec)

func (b *builder) declaration(n *sitter.Node, sc *scope) []NodeID {
	sp := b.readSpecs(n)
	if len(sp.declarators) == 0 {
		if sp.typ != nil {
			b.typeSpec(sp.typ, sc, true)
		}
		return nil
	}
	base := b.specBase(sp, sc)
	var ids []NodeID
	for _, d := range sp.declarators {
		if id := b.declarator(n, sc, &sp, d, base); id != 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// specBase resolves the specifier once for ordinary declarations, or
// inside the declaration for templates so parameters are in scope.
func (b *builder) specBase(sp specs, sc *scope) baseFunc {
	if sc.tmpl != nil {
		return func(owner NodeID) (TypeID, []refSpec) {
			t, refs := b.specType(sp, &scope{parent: owner, sem: sc.sem, record: sc.record, fn: sc.fn})
			return t, refs
		}
	}
	t, refs := b.specType(sp, sc)
	return func(NodeID) (TypeID, []refSpec) { return t, refs }
}

func (b *builder) specType(sp specs, sc *scope) (TypeID, []refSpec) {
	if sp.typ == nil {
		return b.u.builtin(kinds.TypeVoid), nil
	}
	t, refs := b.typeSpec(sp.typ, sc, false)
	return b.u.qualified(t, sp.quals), refs
}

func (b *builder) declKind(sc *scope, sp *specs, sh shape, rec NodeID) kinds.CursorKind {
	if sh.isFunc {
		kind := kinds.FunctionDecl
		if rec != 0 {
			last := b.lastName(sh.name)
			switch {
			case sh.name.Type() == "destructor_name" || strings.HasPrefix(last, "~"):
				kind = kinds.Destructor
			case sh.name.Type() == "operator_cast":
				kind = kinds.ConversionFunction
			case last == b.u.Nodes[rec].Name:
				kind = kinds.Constructor
			default:
				kind = kinds.CXXMethod
			}
		}
		if sc.tmpl != nil && (kind == kinds.FunctionDecl || kind == kinds.CXXMethod) {
			kind = kinds.FunctionTemplate
		}
		return kind
	}
	if sc.record != 0 && sc.parent == sc.record && !sp.static {
		return kinds.FieldDecl
	}
	return kinds.VarDecl
}

func (b *builder) lastName(n *sitter.Node) string {
	for n != nil {
		switch n.Type() {
		case "qualified_identifier":
			n = field(n, "name")
		case "template_function":
			n = field(n, "name")
		default:
			return b.text(n)
		}
	}
	return ""
}

// declarator builds one declared entity of a declaration node n.
func (b *builder) declarator(n *sitter.Node, sc *scope, sp *specs, d *sitter.Node, base baseFunc) NodeID {
	sh := b.shapeOf(d)
	if sh.name == nil {
		return 0
	}

	nameNode := sh.name
	sem := sc.sem
	var rec NodeID
	if sc.parent == sc.record {
		rec = sc.record
	}
	var qualRefs []refSpec
	var qualRange Range
	if nameNode.Type() == "qualified_identifier" {
		container, last, refs := b.qualified(nameNode, sc.parent)
		qualRefs = refs
		qualRange = Range{File: b.file, Start: nameNode.StartByte(), End: last.StartByte()}
		nameNode = last
		if container != 0 {
			sem = container
			if isRecordKind(b.u.Nodes[container].Kind) {
				rec = container
			}
		}
	}
	if nameNode.Type() == "template_function" {
		nameNode = field(nameNode, "name")
	}

	kind := b.declKind(sc, sp, sh, rec)
	id := b.add(kind, sc, n)
	nd := &b.u.Nodes[id]
	nd.SemParent = sem
	nd.Name = b.text(nameNode)
	if sh.name.Type() == "operator_cast" {
		nd.Name = "operator " + strings.TrimSpace(b.text(field(sh.name, "type")))
	}
	nd.Loc = b.loc(nameNode)
	nd.NameRange = b.rng(nameNode)
	nd.QualRange = qualRange
	nd.Extent.End = b.trimEnd(n.StartByte(), d.EndByte())
	nd.Access = sc.access
	if m := b.objectMacro(nd.Name); m != nil && nameNode.Type() == "identifier" {
		if words := strings.Fields(m.Body); len(words) == 1 && isIdentStart(words[0][0]) {
			exp := b.expand(m, b.rng(nameNode))
			nd.Name = words[0]
			nd.Loc.Exp = exp
		}
	}
	if sp.static {
		nd.Flags |= FlagStatic
	}
	if sp.extern {
		nd.Flags |= FlagExtern
	}
	if sp.inline {
		nd.Flags |= FlagInline
	}
	if sp.virtual {
		nd.Flags |= FlagVirtual
	}
	if sc.tmpl != nil {
		nd.Extent.Start = sc.tmplStart
		b.consumeTemplate(id, sc)
	}

	baseType, refs := base(id)
	b.attachRefs(id, qualRefs)
	b.attachRefs(id, refs)
	inner := rec
	if inner == 0 {
		inner = sc.record
	}
	dsc := &scope{parent: id, sem: id, record: inner, fn: sc.fn}
	t, constMethod := b.applyDeclarator(d, baseType, id, dsc)

	nd = &b.u.Nodes[id]
	nd.Type = t
	if sh.isFunc {
		nd.Result = b.u.TypeOf(t).Elem
		if constMethod {
			nd.Flags |= FlagConstMethod
		}
		if def := field(n, "default_value"); def != nil && b.text(def) == "0" {
			nd.Flags |= FlagPureVirtual | FlagVirtual
		}
		return id
	}

	if kind == kinds.VarDecl && !sp.extern {
		nd.Flags |= FlagDefinition
	}
	for _, c := range named(n) {
		if c.Type() == "bitfield_clause" {
			b.u.Nodes[id].Extent.End = c.EndByte()
			b.expr(firstNamed(c), dsc)
		}
	}
	if sh.init != nil {
		if kind == kinds.VarDecl {
			b.u.Nodes[id].Flags |= FlagDefinition
		}
		b.initializer(sh.init, id, dsc)
	} else if def := field(n, "default_value"); def != nil && kind == kinds.FieldDecl {
		b.initializer(def, id, dsc)
	}
	return id
}

func (b *builder) initializer(init *sitter.Node, owner NodeID, sc *scope) {
	var x NodeID
	if init.Type() == "argument_list" {
		x = b.constructExpr(init, owner, sc)
	} else {
		x = b.expr(init, sc)
	}
	t := b.u.TypeOf(b.u.Nodes[owner].Type)
	if x != 0 && t.Kind == kinds.TypeUnexposed && t.Name == "auto" {
		b.u.Nodes[owner].Type = b.u.unqualified(b.u.Nodes[x].Type)
	}
}

// constructExpr models "T x(args)" as a constructor call.
func (b *builder) constructExpr(args *sitter.Node, owner NodeID, sc *scope) NodeID {
	id := b.add(kinds.CallExpr, sc, args)
	t := b.u.Nodes[owner].Type
	b.u.Nodes[id].Type = t
	var argIDs []NodeID
	asc := &scope{parent: id, sem: sc.sem, record: sc.record, fn: sc.fn}
	for _, a := range named(args) {
		if a.Type() == "comment" {
			continue
		}
		if x := b.expr(a, asc); x != 0 {
			argIDs = append(argIDs, x)
		}
	}
	b.u.Nodes[id].Args = argIDs
	if decl := b.u.TypeOf(b.u.Desugar(t)).Decl; decl != 0 {
		rec := b.u.definitionOf(decl)
		b.u.Nodes[id].Name = b.u.Nodes[rec].Name
		for _, c := range b.u.Nodes[rec].Children {
			cn := &b.u.Nodes[c]
			if cn.Kind == kinds.Constructor && len(b.u.TypeOf(cn.Type).Params) == len(argIDs) {
				b.u.Nodes[id].Ref = c
				break
			}
		}
	}
	return id
}

func isRecordKind(k kinds.CursorKind) bool {
	switch k {
	case kinds.StructDecl, kinds.UnionDecl, kinds.ClassDecl, kinds.ClassTemplate:
		return true
	}
	return false
}

func (b *builder) functionDef(n *sitter.Node, sc *scope) NodeID {
	sp := b.readSpecs(n)
	d := field(n, "declarator")
	if d == nil {
		return 0
	}
	if sp.typ == nil && !b.cpp {
		b.warn(n, "implicit-int", "type specifier missing, defaults to 'int'")
	}
	base := b.specBase(sp, sc)
	if sp.typ == nil && !b.cpp {
		base = func(NodeID) (TypeID, []refSpec) { return b.u.builtin(kinds.TypeInt), nil }
	}
	id := b.declarator(n, sc, &sp, d, base)
	if id == 0 {
		return 0
	}
	nd := &b.u.Nodes[id]
	nd.Flags |= FlagDefinition
	nd.Extent.End = n.EndByte()

	rec := NodeID(0)
	if isRecordKind(b.u.Nodes[nd.SemParent].Kind) {
		rec = nd.SemParent
	}
	fsc := &scope{parent: id, sem: id, record: rec, fn: id}
	for _, c := range named(n) {
		if c.Type() == "field_initializer_list" {
			b.memberInits(c, rec, fsc)
		}
	}
	if body := field(n, "body"); body != nil && b.u.Options&ParseSkipFunctionBodies == 0 {
		b.stmt(body, fsc)
	}
	return id
}

func (b *builder) memberInits(list *sitter.Node, rec NodeID, sc *scope) {
	for _, fi := range named(list) {
		if fi.Type() != "field_initializer" {
			continue
		}
		for _, c := range named(fi) {
			switch c.Type() {
			case "field_identifier", "identifier", "type_identifier":
				target := NodeID(0)
				kind := kinds.MemberRef
				if rec != 0 {
					target = b.u.lookupIn(rec, b.text(c), isValueDecl, 0)
					if target == 0 {
						if base := b.u.lookupIn(rec, b.text(c), isTypeDecl, 0); base != 0 {
							target, kind = base, kinds.TypeRef
						}
					}
				}
				b.attachRefs(sc.parent, []refSpec{{kind: kind, target: target, rng: b.rng(c)}})
			case "argument_list", "initializer_list":
				for _, a := range named(c) {
					b.expr(a, sc)
				}
			}
		}
	}
}

func (b *builder) typedef(n *sitter.Node, sc *scope) {
	sp := b.readSpecs(n)
	base, refs := b.specType(sp, sc)
	for _, d := range sp.declarators {
		sh := b.shapeOf(d)
		if sh.name == nil {
			continue
		}
		id := b.add(kinds.TypedefDecl, sc, n)
		b.declareName(id, sh.name)
		b.u.Nodes[id].Extent.End = b.trimEnd(n.StartByte(), d.EndByte())
		b.u.Nodes[id].Access = sc.access
		b.attachRefs(id, refs)
		t, _ := b.applyDeclarator(d, base, id, &scope{parent: id, sem: id, record: sc.record, fn: sc.fn})
		nd := &b.u.Nodes[id]
		nd.Underlying = t
		nd.Type = b.u.declType(kinds.TypeTypedef, id, nd.Name)
	}
}

// typeDescriptor resolves a type_descriptor, attaching its references
// under owner.
func (b *builder) typeDescriptor(td *sitter.Node, owner NodeID, sc *scope) TypeID {
	if td == nil {
		return 0
	}
	if td.Type() != "type_descriptor" {
		t, refs := b.typeSpec(td, sc, false)
		b.attachRefs(owner, refs)
		return t
	}
	sp := b.readSpecs(td)
	base, refs := b.specType(sp, &scope{parent: owner, sem: sc.sem, record: sc.record, fn: sc.fn})
	b.attachRefs(owner, refs)
	t, _ := b.applyDeclarator(field(td, "declarator"), base, owner, sc)
	return t
}

// =============================================================================
// C++ declarations
// =============================================================================

func (b *builder) namespace(n *sitter.Node, sc *scope) {
	id := b.add(kinds.Namespace, sc, n)
	if name := field(n, "name"); name != nil {
		b.declareName(id, name)
	} else {
		b.u.Nodes[id].Flags |= FlagAnonymous
	}
	if body := field(n, "body"); body != nil {
		b.items(body, &scope{parent: id, sem: id}, b.declItem)
	}
}

func (b *builder) linkage(n *sitter.Node, sc *scope) {
	id := b.add(kinds.LinkageSpec, sc, n)
	b.u.Nodes[id].Name = strings.Trim(b.text(field(n, "value")), `"`)
	inner := &scope{parent: id, sem: sc.sem}
	body := field(n, "body")
	if body == nil {
		return
	}
	if body.Type() == "declaration_list" {
		b.items(body, inner, b.declItem)
		return
	}
	b.declItem(body, inner)
}

func (b *builder) template(n *sitter.Node, sc *scope) {
	params := field(n, "parameters")
	tsc := *sc
	tsc.tmpl = params
	tsc.tmplStart = n.StartByte()
	for _, c := range named(n) {
		if sameNode(c, params) || c.Type() == "comment" {
			continue
		}
		if sc.record != 0 {
			b.memberItem(c, &tsc)
		} else {
			b.declItem(c, &tsc)
		}
		return
	}
}

// consumeTemplate attaches pending template parameters to id.
func (b *builder) consumeTemplate(id NodeID, sc *scope) {
	if sc.tmpl == nil {
		return
	}
	params := sc.tmpl
	sc.tmpl = nil
	b.u.Nodes[id].Extent.Start = sc.tmplStart
	psc := &scope{parent: id, sem: id, record: sc.record}
	var names []string
	for _, p := range named(params) {
		var kind kinds.CursorKind
		var name *sitter.Node
		switch p.Type() {
		case "type_parameter_declaration", "variadic_type_parameter_declaration":
			kind = kinds.TemplateTypeParameter
			for _, c := range named(p) {
				if c.Type() == "type_identifier" {
					name = c
				}
			}
		case "optional_type_parameter_declaration":
			kind = kinds.TemplateTypeParameter
			name = field(p, "name")
		case "template_template_parameter_declaration":
			kind = kinds.TemplateTemplateParameter
			for _, c := range named(p) {
				if c.Type() == "type_parameter_declaration" {
					for _, cc := range named(c) {
						if cc.Type() == "type_identifier" {
							name = cc
						}
					}
				}
			}
		case "parameter_declaration", "optional_parameter_declaration", "variadic_parameter_declaration":
			kind = kinds.TemplateNonTypeParameter
			name = b.shapeOf(field(p, "declarator")).name
		default:
			continue
		}
		pid := b.add(kind, psc, p)
		b.declareName(pid, name)
		names = append(names, b.u.Nodes[pid].Name)
		if kind == kinds.TemplateNonTypeParameter {
			sp := b.readSpecs(p)
			t, refs := b.specType(sp, &scope{parent: pid, sem: id, record: sc.record})
			b.attachRefs(pid, refs)
			b.u.Nodes[pid].Type = t
		} else {
			b.u.Nodes[pid].Type = b.u.intern(Type{Kind: kinds.TypeUnexposed, Name: b.u.Nodes[pid].Name, Size: -1})
		}
	}
	if b.u.Nodes[id].Kind == kinds.ClassTemplate {
		b.u.Nodes[id].Display = b.u.Nodes[id].Name + "<" + strings.Join(names, ", ") + ">"
	}
}

func (b *builder) using(n *sitter.Node, sc *scope) {
	var target *sitter.Node
	for _, c := range named(n) {
		if c.Type() != "comment" {
			target = c
		}
	}
	if target == nil {
		return
	}
	if b.hasToken(n, "namespace") {
		id := b.add(kinds.UsingDirective, sc, n)
		b.u.Nodes[id].Extent.End = b.trimEnd(n.StartByte(), n.EndByte())
		container, last, refs := b.qualified(target, sc.parent)
		var ns NodeID
		if last != nil {
			if container != 0 {
				ns = b.u.lookupIn(container, b.text(last), isNamespaceDecl, 0)
			} else {
				ns = b.u.lookup(sc.parent, b.text(last), isNamespaceDecl, 0)
			}
		}
		if ns == 0 {
			b.errorf(target, "expected namespace name")
		} else {
			refs = append(refs, b.refTo(ns, last))
		}
		b.u.Nodes[id].Ref = ns
		if last != nil {
			b.u.Nodes[id].Name = b.text(last)
			b.u.Nodes[id].Loc = b.loc(last)
		}
		b.attachRefs(id, refs)
		return
	}

	id := b.add(kinds.UsingDeclaration, sc, n)
	b.u.Nodes[id].Extent.End = b.trimEnd(n.StartByte(), n.EndByte())
	container, last, refs := b.qualified(target, sc.parent)
	if last == nil {
		return
	}
	name := b.text(last)
	var found []NodeID
	if container != 0 {
		found = b.u.lookupAllIn(container, name, isAnyDecl, 0)
	} else {
		found = b.u.lookupAll(sc.parent, name, isAnyDecl, 0)
	}
	b.declareName(id, last)
	b.u.Nodes[id].Overloads = found
	b.attachRefs(id, refs)

	ref := b.u.newNode(kinds.OverloadedDeclRef, id)
	rn := &b.u.Nodes[ref]
	rn.SemParent = id
	rn.Name = name
	rn.Extent = b.rng(last)
	rn.Loc = b.loc(last)
	rn.Overloads = found
	if len(found) > 0 {
		rn.Ref = found[0]
		b.u.Nodes[id].Ref = found[0]
	}
	b.u.addChild(id, ref)
}

func (b *builder) alias(n *sitter.Node, sc *scope) {
	id := b.add(kinds.TypeAliasDecl, sc, n)
	b.declareName(id, field(n, "name"))
	b.u.Nodes[id].Extent.End = b.trimEnd(n.StartByte(), n.EndByte())
	b.u.Nodes[id].Access = sc.access
	b.consumeTemplate(id, sc)
	t := b.typeDescriptor(field(n, "type"), id, &scope{parent: id, sem: id, record: sc.record})
	nd := &b.u.Nodes[id]
	nd.Underlying = t
	nd.Type = b.u.declType(kinds.TypeTypedef, id, nd.Name)
}

func (b *builder) namespaceAlias(n *sitter.Node, sc *scope) {
	id := b.add(kinds.NamespaceAlias, sc, n)
	b.u.Nodes[id].Extent.End = b.trimEnd(n.StartByte(), n.EndByte())
	b.declareName(id, field(n, "name"))
	var target *sitter.Node
	for _, c := range named(n) {
		if !sameNode(c, field(n, "name")) && c.Type() != "comment" {
			target = c
		}
	}
	if target == nil {
		return
	}
	container, last, refs := b.qualified(target, sc.parent)
	if last == nil {
		return
	}
	var ns NodeID
	if container != 0 {
		ns = b.u.lookupIn(container, b.text(last), isNamespaceDecl, 0)
	} else {
		ns = b.u.lookup(sc.parent, b.text(last), isNamespaceDecl, 0)
	}
	if ns != 0 {
		refs = append(refs, b.refTo(ns, last))
	}
	b.u.Nodes[id].Ref = ns
	b.attachRefs(id, refs)
}

// =============================================================================
// Item dispatch
// =============================================================================

// declItem builds one item at namespace or file scope.
func (b *builder) declItem(n *sitter.Node, sc *scope) {
	switch n.Type() {
	case "function_definition":
		b.functionDef(n, sc)
	case "declaration":
		b.declaration(n, sc)
	case "type_definition":
		b.typedef(n, sc)
	case "struct_specifier", "union_specifier", "class_specifier", "enum_specifier":
		b.typeSpec(n, sc, true)
	case "namespace_definition":
		b.namespace(n, sc)
	case "template_declaration":
		b.template(n, sc)
	case "linkage_specification":
		b.linkage(n, sc)
	case "using_declaration":
		b.using(n, sc)
	case "alias_declaration":
		b.alias(n, sc)
	case "namespace_alias_definition":
		b.namespaceAlias(n, sc)
	case "field_declaration", "access_specifier":
		if sc.record != 0 {
			b.memberItem(n, sc)
		}
	case "expression_statement", "compound_statement", "if_statement", "for_statement", "while_statement",
		"return_statement", "do_statement", "switch_statement":
		if sc.fn != 0 {
			b.stmt(n, sc)
			return
		}
		b.emit(Diagnostic{
			Severity: SeverityError,
			Loc:      b.loc(n),
			Message:  "expected unqualified-id",
			Category: CategoryParse,
		})
	}
}

// memberItem builds one item of a class body.
func (b *builder) memberItem(n *sitter.Node, sc *scope) {
	switch n.Type() {
	case "access_specifier":
		id := b.add(kinds.CXXAccessSpecDecl, sc, n)
		end := n.EndByte()
		for end < uint32(len(b.src)) && isSpace(b.src[end]) {
			end++
		}
		if end < uint32(len(b.src)) && b.src[end] == ':' {
			b.u.Nodes[id].Extent.End = end + 1
		}
		sc.access = accessOf(b.text(n))
		b.u.Nodes[id].Access = sc.access
	case "field_declaration":
		sp := b.readSpecs(n)
		if len(sp.declarators) == 0 {
			if sp.typ != nil {
				b.typeSpec(sp.typ, sc, true)
			}
			return
		}
		base := b.specBase(sp, sc)
		for _, d := range sp.declarators {
			b.declarator(n, sc, &sp, d, base)
		}
	case "function_definition", "inline_method_definition":
		b.functionDef(n, sc)
	case "declaration":
		b.declaration(n, sc)
	case "template_declaration":
		b.template(n, sc)
	case "type_definition":
		b.typedef(n, sc)
	case "alias_declaration":
		b.alias(n, sc)
	case "using_declaration":
		b.using(n, sc)
	case "struct_specifier", "union_specifier", "class_specifier", "enum_specifier":
		b.typeSpec(n, sc, true)
	}
}
