package engine

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jward/cindex/kinds"
)

// computeUSRs assigns unified symbol resolutions to every declaration
// and macro definition.
func (u *Unit) computeUSRs() {
	done := make([]bool, len(u.Nodes))
	for i := 2; i < len(u.Nodes); i++ {
		u.usrOf(NodeID(i), done, 0)
	}
}

func (u *Unit) usrOf(id NodeID, done []bool, depth int) string {
	if !u.Valid(id) || depth > 64 {
		return ""
	}
	n := &u.Nodes[id]
	if done[id] {
		return n.USR
	}
	done[id] = true
	n.USR = u.buildUSR(id, done, depth)
	return n.USR
}

// fileTag is the "c:name.c" prefix used for entities private to a file.
func (u *Unit) fileTag(n *Node) string {
	f := u.File(n.Loc.File)
	if f == nil {
		return "c:"
	}
	return "c:" + filepath.Base(f.Name)
}

func (u *Unit) buildUSR(id NodeID, done []bool, depth int) string {
	n := &u.Nodes[id]
	switch {
	case n.Kind == kinds.MacroDefinition:
		return u.fileTag(n) + "@" + strconv.Itoa(int(n.Loc.Offset)) + "@macro@" + n.Name
	case !n.Kind.IsDeclaration():
		return ""
	}
	if n.Canonical != 0 && n.Canonical != id {
		// Redeclarations share the first declaration's USR, except for
		// locals which have no cross-declaration identity.
		return u.usrOf(n.Canonical, done, depth+1)
	}

	parent := n.SemParent
	var prefix string
	local := false
	for p := parent; u.Valid(p); p = u.Nodes[p].SemParent {
		if isFunctionKind(u.Nodes[p].Kind) || u.Nodes[p].Kind == kinds.LambdaExpr {
			local = true
			break
		}
	}
	switch {
	case local && (n.Kind == kinds.VarDecl || n.Kind == kinds.ParmDecl || isTagDecl(u, n) ||
		n.Kind == kinds.TypedefDecl || n.Kind == kinds.TypeAliasDecl):
		fn := u.usrOf(parent, done, depth+1)
		prefix = u.fileTag(n) + "@" + strconv.Itoa(int(n.Loc.Offset)) + strings.TrimPrefix(fn, "c:")
		if isTagDecl(u, n) || n.Kind == kinds.TypedefDecl || n.Kind == kinds.TypeAliasDecl {
			return prefix + u.tagPart(id)
		}
		return prefix + "@" + n.Name
	case u.Valid(parent) && parent != u.Root():
		prefix = u.usrOf(parent, done, depth+1)
		if prefix == "" {
			prefix = "c:"
		}
	default:
		prefix = "c:"
	}

	switch n.Kind {
	case kinds.FunctionDecl, kinds.CXXMethod, kinds.Constructor, kinds.Destructor,
		kinds.ConversionFunction, kinds.FunctionTemplate:
		if n.Kind == kinds.FunctionDecl && n.Has(FlagStatic) && prefix == "c:" {
			prefix = u.fileTag(n)
		}
		s := prefix + "@F@" + n.Name
		if n.Kind == kinds.FunctionTemplate {
			s = prefix + "@FT@" + u.templateParams(id) + n.Name
		}
		if u.Lang == LangCPP {
			s += u.paramSig(n.Type)
			if n.Has(FlagConstMethod) {
				s += "1"
			}
			if n.Kind == kinds.CXXMethod && n.Has(FlagStatic) {
				s += "#S"
			}
		}
		return s
	case kinds.VarDecl:
		if n.Has(FlagStatic) && prefix == "c:" {
			prefix = u.fileTag(n)
		}
		return prefix + "@" + n.Name
	case kinds.FieldDecl:
		return prefix + "@FI@" + n.Name
	case kinds.EnumConstantDecl:
		return prefix + "@" + n.Name
	case kinds.Namespace:
		if n.Has(FlagAnonymous) {
			return prefix + "@aN"
		}
		return prefix + "@N@" + n.Name
	case kinds.NamespaceAlias:
		return prefix + "@NA@" + n.Name
	case kinds.StructDecl, kinds.UnionDecl, kinds.ClassDecl, kinds.EnumDecl, kinds.ClassTemplate,
		kinds.TypedefDecl, kinds.TypeAliasDecl:
		return prefix + u.tagPart(id)
	case kinds.TemplateTypeParameter, kinds.TemplateNonTypeParameter, kinds.TemplateTemplateParameter:
		return u.fileTag(n) + "@" + strconv.Itoa(int(n.Loc.Offset)) + "@" + n.Name
	case kinds.ParmDecl:
		fn := u.usrOf(parent, done, depth+1)
		return u.fileTag(n) + "@" + strconv.Itoa(int(n.Loc.Offset)) + strings.TrimPrefix(fn, "c:") + "@" + n.Name
	}
	return ""
}

func (u *Unit) tagPart(id NodeID) string {
	n := &u.Nodes[id]
	tag := "S"
	switch n.Kind {
	case kinds.UnionDecl:
		tag = "U"
	case kinds.EnumDecl:
		tag = "E"
	case kinds.ClassTemplate:
		return "@ST" + u.templateParams(id) + "@" + n.Name
	case kinds.TypedefDecl, kinds.TypeAliasDecl:
		return "@T@" + n.Name
	}
	if n.Name == "" || n.Has(FlagAnonymous) {
		return "@" + tag + "a@" + strconv.Itoa(int(n.Loc.Offset))
	}
	return "@" + tag + "@" + n.Name
}

// templateParams encodes the parameter list of a template as ">N#T#N".
func (u *Unit) templateParams(id NodeID) string {
	var b strings.Builder
	count := 0
	for _, c := range u.Nodes[id].Children {
		switch u.Nodes[c].Kind {
		case kinds.TemplateTypeParameter:
			b.WriteString("#T")
		case kinds.TemplateNonTypeParameter:
			b.WriteString("#N")
		case kinds.TemplateTemplateParameter:
			b.WriteString("#t")
		default:
			continue
		}
		count++
	}
	return ">" + strconv.Itoa(count) + b.String()
}

func (u *Unit) paramSig(t TypeID) string {
	ft := u.TypeOf(t)
	if ft.Kind != kinds.TypeFunctionProto {
		return "#"
	}
	var b strings.Builder
	for _, p := range ft.Params {
		b.WriteByte('#')
		b.WriteString(u.typeUSR(p, 0))
	}
	if ft.Variadic {
		b.WriteString("#.")
	}
	if len(ft.Params) == 0 && !ft.Variadic {
		b.WriteByte('#')
	}
	return b.String()
}

var builtinUSR = map[kinds.TypeKind]string{
	kinds.TypeVoid:       "v",
	kinds.TypeBool:       "b",
	kinds.TypeUChar:      "c",
	kinds.TypeChar16:     "q",
	kinds.TypeChar32:     "w",
	kinds.TypeUShort:     "s",
	kinds.TypeUInt:       "i",
	kinds.TypeULong:      "l",
	kinds.TypeULongLong:  "k",
	kinds.TypeUInt128:    "j",
	kinds.TypeCharU:      "C",
	kinds.TypeCharS:      "C",
	kinds.TypeSChar:      "r",
	kinds.TypeWChar:      "W",
	kinds.TypeShort:      "S",
	kinds.TypeInt:        "I",
	kinds.TypeLong:       "L",
	kinds.TypeLongLong:   "K",
	kinds.TypeInt128:     "J",
	kinds.TypeFloat:      "f",
	kinds.TypeDouble:     "d",
	kinds.TypeLongDouble: "D",
	kinds.TypeNullPtr:    "n",
}

// typeUSR encodes a canonical type for function signatures.
func (u *Unit) typeUSR(id TypeID, depth int) string {
	if depth > 32 {
		return "?"
	}
	t := u.TypeOf(u.Canonical(id))
	q := ""
	if t.Quals != 0 {
		q = strconv.Itoa(int(t.Quals))
	}
	if s, ok := builtinUSR[t.Kind]; ok {
		return q + s
	}
	switch t.Kind {
	case kinds.TypePointer:
		return q + "*" + u.typeUSR(t.Elem, depth+1)
	case kinds.TypeLValueReference:
		return q + "&" + u.typeUSR(t.Elem, depth+1)
	case kinds.TypeRValueReference:
		return q + "&&" + u.typeUSR(t.Elem, depth+1)
	case kinds.TypeConstantArray, kinds.TypeIncompleteArray, kinds.TypeVariableArray, kinds.TypeDependentSizedArray:
		size := ""
		if t.Size >= 0 {
			size = strconv.FormatInt(t.Size, 10)
		}
		return q + "{" + size + u.typeUSR(t.Elem, depth+1)
	case kinds.TypeRecord, kinds.TypeEnum:
		if u.Valid(t.Decl) {
			return q + "$" + u.Nodes[u.Nodes[t.Decl].Canonical].USR
		}
	case kinds.TypeFunctionProto, kinds.TypeFunctionNoProto:
		var b strings.Builder
		b.WriteString("F" + u.typeUSR(t.Elem, depth+1) + "(")
		for i, p := range t.Params {
			if i > 0 {
				b.WriteByte('#')
			}
			b.WriteString(u.typeUSR(p, depth+1))
		}
		b.WriteByte(')')
		return q + b.String()
	}
	return q + "?" + t.Name
}
