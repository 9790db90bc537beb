package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jward/cindex/kinds"
)

// TypeID indexes Unit.Types; 0 is the invalid type.
type TypeID uint32

// Qual is a set of cv-qualifiers.
type Qual uint8

const (
	QualConst Qual = 1 << iota
	QualVolatile
	QualRestrict
)

// Type is one interned type. Structurally equal types share an id.
type Type struct {
	Kind     kinds.TypeKind
	Quals    Qual
	Elem     TypeID // pointee, element or result type
	Size     int64  // array length, -1 when unknown
	Params   []TypeID
	Variadic bool
	Decl     NodeID // record, enum or typedef declaration
	Name     string // typedef or unexposed spelling
	Canon    TypeID
}

type typeKey struct {
	kind     kinds.TypeKind
	quals    Qual
	elem     TypeID
	size     int64
	params   string
	variadic bool
	decl     NodeID
	name     string
}

// intern returns the id for t, adding it when new.
func (u *Unit) intern(t Type) TypeID {
	var ps strings.Builder
	for _, p := range t.Params {
		ps.WriteString(strconv.Itoa(int(p)))
		ps.WriteByte(',')
	}
	key := typeKey{t.Kind, t.Quals, t.Elem, t.Size, ps.String(), t.Variadic, t.Decl, t.Name}
	if u.typeIndex == nil {
		u.typeIndex = make(map[typeKey]TypeID)
	}
	if id, ok := u.typeIndex[key]; ok {
		return id
	}
	if len(u.Types) == 0 {
		u.Types = append(u.Types, Type{Kind: kinds.TypeInvalid})
	}
	id := TypeID(len(u.Types))
	u.Types = append(u.Types, t)
	u.typeIndex[key] = id
	u.Types[id].Canon = u.computeCanon(id)
	return id
}

// TypeOf returns the type for id; the invalid type for 0.
func (u *Unit) TypeOf(id TypeID) *Type {
	if id == 0 || int(id) >= len(u.Types) {
		return &Type{Kind: kinds.TypeInvalid}
	}
	return &u.Types[id]
}

func (u *Unit) builtin(k kinds.TypeKind) TypeID { return u.intern(Type{Kind: k, Size: -1}) }

func (u *Unit) qualified(id TypeID, q Qual) TypeID {
	if q == 0 || id == 0 {
		return id
	}
	t := *u.TypeOf(id)
	t.Quals |= q
	t.Canon = 0
	return u.intern(t)
}

func (u *Unit) unqualified(id TypeID) TypeID {
	t := *u.TypeOf(id)
	if t.Quals == 0 {
		return id
	}
	t.Quals = 0
	t.Canon = 0
	return u.intern(t)
}

func (u *Unit) pointerTo(elem TypeID) TypeID {
	return u.intern(Type{Kind: kinds.TypePointer, Elem: elem, Size: -1})
}

func (u *Unit) referenceTo(elem TypeID, rvalue bool) TypeID {
	k := kinds.TypeLValueReference
	if rvalue {
		k = kinds.TypeRValueReference
	}
	return u.intern(Type{Kind: k, Elem: elem, Size: -1})
}

func (u *Unit) arrayOf(elem TypeID, size int64, variable bool) TypeID {
	k := kinds.TypeConstantArray
	switch {
	case variable:
		k, size = kinds.TypeVariableArray, -1
	case size < 0:
		k = kinds.TypeIncompleteArray
	}
	return u.intern(Type{Kind: k, Elem: elem, Size: size})
}

func (u *Unit) functionOf(result TypeID, params []TypeID, variadic, proto bool) TypeID {
	if !proto {
		return u.intern(Type{Kind: kinds.TypeFunctionNoProto, Elem: result, Size: -1})
	}
	return u.intern(Type{Kind: kinds.TypeFunctionProto, Elem: result, Params: params, Variadic: variadic, Size: -1})
}

func (u *Unit) declType(k kinds.TypeKind, decl NodeID, name string) TypeID {
	return u.intern(Type{Kind: k, Decl: decl, Name: name, Size: -1})
}

func (u *Unit) computeCanon(id TypeID) TypeID {
	t := u.Types[id]
	var c Type
	switch t.Kind {
	case kinds.TypeTypedef:
		if t.Decl == 0 {
			// Implicit typedefs (size_t and friends) carry their target in Elem.
			return u.qualified(u.TypeOf(t.Elem).Canon, t.Quals)
		}
		under := u.Nodes[t.Decl].Underlying
		return u.qualified(u.TypeOf(under).Canon, t.Quals)
	case kinds.TypePointer, kinds.TypeLValueReference, kinds.TypeRValueReference,
		kinds.TypeConstantArray, kinds.TypeIncompleteArray, kinds.TypeVariableArray,
		kinds.TypeVector, kinds.TypeComplex:
		ec := u.TypeOf(t.Elem).Canon
		if ec == t.Elem {
			return id
		}
		c = t
		c.Elem = ec
	case kinds.TypeFunctionProto, kinds.TypeFunctionNoProto:
		changed := false
		c = t
		c.Elem = u.TypeOf(t.Elem).Canon
		changed = c.Elem != t.Elem
		c.Params = make([]TypeID, len(t.Params))
		for i, p := range t.Params {
			c.Params[i] = u.TypeOf(p).Canon
			changed = changed || c.Params[i] != p
		}
		if !changed {
			return id
		}
	case kinds.TypeRecord, kinds.TypeEnum:
		if t.Decl != 0 {
			if canon := u.Nodes[t.Decl].Canonical; canon != 0 && canon != t.Decl {
				c = t
				c.Decl = canon
				break
			}
		}
		return id
	default:
		return id
	}
	c.Canon = 0
	return u.intern(c)
}

// Canonical returns the canonical form of id.
func (u *Unit) Canonical(id TypeID) TypeID {
	if id == 0 {
		return 0
	}
	return u.TypeOf(id).Canon
}

// Desugar strips typedefs and references down to the canonical type,
// used when looking through a value to its record.
func (u *Unit) Desugar(id TypeID) TypeID {
	c := u.Canonical(id)
	t := u.TypeOf(c)
	if t.Kind == kinds.TypeLValueReference || t.Kind == kinds.TypeRValueReference {
		return u.Canonical(t.Elem)
	}
	return c
}

var builtinSpelling = map[kinds.TypeKind]string{
	kinds.TypeVoid:       "void",
	kinds.TypeBool:       "bool",
	kinds.TypeCharU:      "char",
	kinds.TypeUChar:      "unsigned char",
	kinds.TypeChar16:     "char16_t",
	kinds.TypeChar32:     "char32_t",
	kinds.TypeUShort:     "unsigned short",
	kinds.TypeUInt:       "unsigned int",
	kinds.TypeULong:      "unsigned long",
	kinds.TypeULongLong:  "unsigned long long",
	kinds.TypeUInt128:    "unsigned __int128",
	kinds.TypeCharS:      "char",
	kinds.TypeSChar:      "signed char",
	kinds.TypeWChar:      "wchar_t",
	kinds.TypeShort:      "short",
	kinds.TypeInt:        "int",
	kinds.TypeLong:       "long",
	kinds.TypeLongLong:   "long long",
	kinds.TypeInt128:     "__int128",
	kinds.TypeFloat:      "float",
	kinds.TypeDouble:     "double",
	kinds.TypeLongDouble: "long double",
	kinds.TypeNullPtr:    "std::nullptr_t",
}

// Spelling renders id the way a compiler would print it.
func (u *Unit) Spelling(id TypeID) string {
	return u.spell(id, "")
}

// spell renders id around an inner declarator string, so that pointers
// to functions and arrays come out as "int (*)(int)".
func (u *Unit) spell(id TypeID, inner string) string {
	t := u.TypeOf(id)
	quals := qualString(t.Quals)
	join := func(base, in string) string {
		if in == "" {
			return base
		}
		return base + " " + in
	}

	switch t.Kind {
	case kinds.TypeInvalid:
		return join("<invalid>", inner)
	case kinds.TypePointer, kinds.TypeLValueReference, kinds.TypeRValueReference, kinds.TypeBlockPointer:
		sym := map[kinds.TypeKind]string{
			kinds.TypePointer:         "*",
			kinds.TypeLValueReference: "&",
			kinds.TypeRValueReference: "&&",
			kinds.TypeBlockPointer:    "^",
		}[t.Kind]
		in := sym
		if quals != "" {
			in += quals
		}
		in += inner
		elem := u.TypeOf(t.Elem)
		if elem.Kind == kinds.TypeFunctionProto || elem.Kind == kinds.TypeFunctionNoProto || elem.Kind.IsArray() {
			in = "(" + in + ")"
		}
		return u.spell(t.Elem, in)
	case kinds.TypeConstantArray, kinds.TypeIncompleteArray, kinds.TypeVariableArray, kinds.TypeDependentSizedArray:
		dim := "[]"
		switch t.Kind {
		case kinds.TypeConstantArray:
			dim = fmt.Sprintf("[%d]", t.Size)
		case kinds.TypeVariableArray:
			dim = "[*]"
		}
		return u.spell(t.Elem, inner+dim)
	case kinds.TypeFunctionProto, kinds.TypeFunctionNoProto:
		var ps []string
		for _, p := range t.Params {
			ps = append(ps, u.Spelling(p))
		}
		if t.Variadic {
			ps = append(ps, "...")
		}
		sig := "(" + strings.Join(ps, ", ") + ")"
		if t.Kind == kinds.TypeFunctionProto && len(ps) == 0 && u.Lang == LangC {
			sig = "(void)"
		}
		res := u.spell(t.Elem, "")
		if inner != "" {
			return res + " " + inner + sig
		}
		return res + " " + sig
	}

	base := u.baseSpelling(t)
	if quals != "" {
		base = quals + " " + base
	}
	return join(base, inner)
}

func (u *Unit) baseSpelling(t *Type) string {
	if s, ok := builtinSpelling[t.Kind]; ok {
		return s
	}
	switch t.Kind {
	case kinds.TypeRecord, kinds.TypeEnum:
		name := t.Name
		if name == "" && t.Decl != 0 {
			name = u.Nodes[t.Decl].Name
		}
		tag := ""
		if t.Decl != 0 {
			switch u.Nodes[t.Decl].Kind {
			case kinds.StructDecl, kinds.ClassDecl:
				tag = "struct"
				if u.Nodes[t.Decl].Kind == kinds.ClassDecl {
					tag = "class"
				}
			case kinds.UnionDecl:
				tag = "union"
			case kinds.EnumDecl:
				tag = "enum"
			}
		}
		if name == "" {
			return tag + " (anonymous)"
		}
		if u.Lang == LangC && tag != "" {
			return tag + " " + name
		}
		return u.qualifiedName(t.Decl, name)
	case kinds.TypeTypedef, kinds.TypeUnexposed, kinds.TypeDependent:
		return t.Name
	}
	return t.Kind.Spelling()
}

func (u *Unit) qualifiedName(decl NodeID, name string) string {
	var parts []string
	for p := u.Nodes[decl].SemParent; p != 0 && u.Valid(p); p = u.Nodes[p].SemParent {
		n := &u.Nodes[p]
		if n.Kind == kinds.Namespace || n.Kind == kinds.StructDecl || n.Kind == kinds.ClassDecl ||
			n.Kind == kinds.UnionDecl || n.Kind == kinds.ClassTemplate {
			if n.Name != "" {
				parts = append([]string{n.Name}, parts...)
			}
		}
	}
	parts = append(parts, name)
	return strings.Join(parts, "::")
}

func qualString(q Qual) string {
	var parts []string
	if q&QualConst != 0 {
		parts = append(parts, "const")
	}
	if q&QualVolatile != 0 {
		parts = append(parts, "volatile")
	}
	if q&QualRestrict != 0 {
		parts = append(parts, "restrict")
	}
	return strings.Join(parts, " ")
}

// SizeOf returns the LP64 size of id in bytes, or -1 when unknown.
func (u *Unit) SizeOf(id TypeID) int64 {
	t := u.TypeOf(u.Canonical(id))
	switch t.Kind {
	case kinds.TypeBool, kinds.TypeCharU, kinds.TypeUChar, kinds.TypeCharS, kinds.TypeSChar:
		return 1
	case kinds.TypeShort, kinds.TypeUShort, kinds.TypeChar16:
		return 2
	case kinds.TypeInt, kinds.TypeUInt, kinds.TypeFloat, kinds.TypeWChar, kinds.TypeChar32, kinds.TypeEnum:
		return 4
	case kinds.TypeLong, kinds.TypeULong, kinds.TypeLongLong, kinds.TypeULongLong, kinds.TypeDouble,
		kinds.TypePointer, kinds.TypeNullPtr, kinds.TypeLValueReference, kinds.TypeRValueReference:
		return 8
	case kinds.TypeLongDouble, kinds.TypeInt128, kinds.TypeUInt128:
		return 16
	case kinds.TypeConstantArray:
		if es := u.SizeOf(t.Elem); es >= 0 {
			return es * t.Size
		}
	case kinds.TypeRecord:
		return u.recordSize(t.Decl)
	}
	return -1
}

func (u *Unit) recordSize(decl NodeID) int64 {
	if decl == 0 {
		return -1
	}
	if def := u.Nodes[decl].Definition; def != 0 {
		decl = def
	}
	n := &u.Nodes[decl]
	if !n.Has(FlagDefinition) {
		return -1
	}
	var size, align int64 = 0, 1
	union := n.Kind == kinds.UnionDecl
	for _, c := range n.Children {
		if u.Nodes[c].Kind != kinds.FieldDecl {
			continue
		}
		fs := u.SizeOf(u.Nodes[c].Type)
		if fs < 0 {
			return -1
		}
		fa := min(fs, 8)
		if ft := u.TypeOf(u.Canonical(u.Nodes[c].Type)); ft.Kind == kinds.TypeConstantArray {
			fa = min(max(u.SizeOf(ft.Elem), 1), 8)
		}
		if fa < 1 {
			fa = 1
		}
		align = max(align, fa)
		if union {
			size = max(size, fs)
			continue
		}
		if r := size % fa; r != 0 {
			size += fa - r
		}
		size += fs
	}
	if r := size % align; r != 0 {
		size += align - r
	}
	if size == 0 && u.Lang == LangCPP {
		size = 1
	}
	return size
}

// IsPOD reports plain-old-data types: scalars, and records whose fields
// are all POD and which declare no constructors, destructors or
// virtual methods.
func (u *Unit) IsPOD(id TypeID) bool {
	t := u.TypeOf(u.Canonical(id))
	switch {
	case t.Kind.IsBuiltin() && t.Kind != kinds.TypeVoid:
		return true
	case t.Kind == kinds.TypePointer || t.Kind == kinds.TypeEnum || t.Kind == kinds.TypeMemberPointer:
		return true
	case t.Kind.IsArray():
		return u.IsPOD(t.Elem)
	case t.Kind == kinds.TypeRecord:
		decl := t.Decl
		if d := u.Nodes[decl].Definition; d != 0 {
			decl = d
		}
		for _, c := range u.Nodes[decl].Children {
			n := &u.Nodes[c]
			switch n.Kind {
			case kinds.Constructor, kinds.Destructor, kinds.CXXBaseSpecifier:
				return false
			case kinds.CXXMethod:
				if n.Has(FlagVirtual) {
					return false
				}
			case kinds.FieldDecl:
				if !u.IsPOD(n.Type) {
					return false
				}
			}
		}
		return true
	}
	return false
}

// QualifiedName joins the names of the namespaces and records enclosing
// id with "::".
func (u *Unit) QualifiedName(id NodeID) string {
	return u.qualifiedName(id, u.Nodes[id].Name)
}
