package cindex

import (
	"encoding/binary"
	"errors"
	"fmt"
	"iter"

	"github.com/cespare/xxhash/v2"

	"github.com/jward/cindex/internal/engine"
	"github.com/jward/cindex/kinds"
)

// Cursor is a value handle on one AST node. It carries its unit and the
// generation it was created under; every accessor but Kind and IsNull
// validates both first.
type Cursor struct {
	tu   *TranslationUnit
	gen  uint64
	node engine.NodeID
	kind kinds.CursorKind
}

func (tu *TranslationUnit) cursorFor(u *engine.Unit, gen uint64, id engine.NodeID) Cursor {
	if !u.Valid(id) {
		return tu.nullCursor(gen)
	}
	return Cursor{tu: tu, gen: gen, node: id, kind: u.Nodes[id].Kind}
}

func (tu *TranslationUnit) nullCursor(gen uint64) Cursor {
	return Cursor{tu: tu, gen: gen, kind: kinds.NoDeclFound}
}

// Kind is the cursor's discriminator.
func (c Cursor) Kind() kinds.CursorKind { return c.kind }

// IsNull reports the not-found sentinel.
func (c Cursor) IsNull() bool { return c.node == 0 }

// Equal reports whether both cursors refer to the same node of the same
// unit generation.
func (c Cursor) Equal(o Cursor) bool {
	return c.tu == o.tu && c.gen == o.gen && c.node == o.node
}

// Hash is stable for equal cursors.
func (c Cursor) Hash() uint64 {
	var buf [20]byte
	var id uint64
	if c.tu != nil {
		id = c.tu.id
	}
	binary.LittleEndian.PutUint64(buf[0:], id)
	binary.LittleEndian.PutUint64(buf[8:], c.gen)
	binary.LittleEndian.PutUint32(buf[16:], uint32(c.node))
	return xxhash.Sum64(buf[:])
}

// TranslationUnit returns the owning unit.
func (c Cursor) TranslationUnit() *TranslationUnit { return c.tu }

func (c Cursor) view() (*engine.Unit, *memoTable, error) {
	return c.tu.view(c.gen)
}

func (c Cursor) wrap(op string, err error) error {
	return fmt.Errorf("cindex: %s: %w", op, err)
}

func (c Cursor) key(prop string) memoKey { return memoKey{node: uint32(c.node), prop: prop} }

func (c Cursor) at(u *engine.Unit, id engine.NodeID) Cursor { return c.tu.cursorFor(u, c.gen, id) }

func (c Cursor) typeAt(u *engine.Unit, id engine.TypeID) Type {
	return Type{tu: c.tu, gen: c.gen, id: id, kind: u.TypeOf(id).Kind}
}

// gate validates the handle and checks the kind.
func (c Cursor) gate(op string, allowed ...kinds.CursorKind) (*engine.Unit, *memoTable, error) {
	u, mt, err := c.view()
	if err != nil {
		return nil, nil, c.wrap(op, err)
	}
	for _, k := range allowed {
		if c.kind == k {
			return u, mt, nil
		}
	}
	return nil, nil, kindError(op, c.kind, allowed...)
}

// =============================================================================
// Memoized properties
// =============================================================================

type spellingResult struct {
	text string
	ok   bool
}

// Spelling returns the declared entity's name. The second result is
// false for every non-declaration kind; use DisplayName for the text of
// references, expressions and the translation unit.
func (c Cursor) Spelling() (string, bool, error) {
	u, mt, err := c.view()
	if err != nil {
		return "", false, c.wrap("spelling", err)
	}
	if c.IsNull() || !c.kind.IsDeclaration() {
		return "", false, nil
	}
	s, err := memoized(mt, c.key("spelling"), func() (spellingResult, error) {
		return spellingResult{text: u.Nodes[c.node].Name, ok: true}, nil
	})
	return s.text, s.ok, err
}

// DisplayName is the spelling plus, for functions and templates, the
// parameter list.
func (c Cursor) DisplayName() (string, error) {
	u, mt, err := c.view()
	if err != nil {
		return "", c.wrap("display name", err)
	}
	if c.IsNull() {
		return "", nil
	}
	return memoized(mt, c.key("display"), func() (string, error) {
		n := &u.Nodes[c.node]
		if n.Display != "" {
			return n.Display, nil
		}
		return n.Name, nil
	})
}

// Location is where the entity's name starts.
func (c Cursor) Location() (SourceLocation, error) {
	u, mt, err := c.view()
	if err != nil {
		return SourceLocation{}, c.wrap("location", err)
	}
	if c.IsNull() {
		return SourceLocation{}, nil
	}
	return memoized(mt, c.key("location"), func() (SourceLocation, error) {
		n := &u.Nodes[c.node]
		l := n.Loc
		if l.IsNull() {
			l = engine.Loc{File: n.Extent.File, Offset: n.Extent.Start}
		}
		return newLocation(c.tu, u, c.gen, l), nil
	})
}

// Extent is the source range the node covers.
func (c Cursor) Extent() (SourceRange, error) {
	u, mt, err := c.view()
	if err != nil {
		return SourceRange{}, c.wrap("extent", err)
	}
	if c.IsNull() {
		return SourceRange{}, nil
	}
	return memoized(mt, c.key("extent"), func() (SourceRange, error) {
		return newRange(c.tu, u, c.gen, u.Nodes[c.node].Extent), nil
	})
}

// Type is the declared or computed type; invalid when there is none.
func (c Cursor) Type() (Type, error) {
	u, mt, err := c.view()
	if err != nil {
		return Type{}, c.wrap("type", err)
	}
	if c.IsNull() {
		return c.typeAt(u, 0), nil
	}
	return memoized(mt, c.key("type"), func() (Type, error) {
		return c.typeAt(u, u.Nodes[c.node].Type), nil
	})
}

// ResultType is the return type of a function-like cursor; invalid for
// other kinds.
func (c Cursor) ResultType() (Type, error) {
	u, mt, err := c.view()
	if err != nil {
		return Type{}, c.wrap("result type", err)
	}
	if c.IsNull() {
		return c.typeAt(u, 0), nil
	}
	return memoized(mt, c.key("result"), func() (Type, error) {
		n := &u.Nodes[c.node]
		if n.Result != 0 {
			return c.typeAt(u, n.Result), nil
		}
		switch t := u.TypeOf(n.Type); t.Kind {
		case kinds.TypeFunctionProto, kinds.TypeFunctionNoProto:
			return c.typeAt(u, t.Elem), nil
		}
		return c.typeAt(u, 0), nil
	})
}

// Referenced is the entity a reference or expression names; a
// declaration references itself.
func (c Cursor) Referenced() (Cursor, error) {
	u, mt, err := c.view()
	if err != nil {
		return Cursor{}, c.wrap("referenced", err)
	}
	if c.IsNull() {
		return c, nil
	}
	return memoized(mt, c.key("referenced"), func() (Cursor, error) {
		n := &u.Nodes[c.node]
		if n.Ref != 0 {
			return c.at(u, n.Ref), nil
		}
		if n.Kind.IsDeclaration() {
			return c, nil
		}
		return c.tu.nullCursor(c.gen), nil
	})
}

// Canonical is the first declaration of the entity.
func (c Cursor) Canonical() (Cursor, error) {
	u, mt, err := c.view()
	if err != nil {
		return Cursor{}, c.wrap("canonical", err)
	}
	if c.IsNull() {
		return c, nil
	}
	return memoized(mt, c.key("canonical"), func() (Cursor, error) {
		if can := u.Nodes[c.node].Canonical; can != 0 {
			return c.at(u, can), nil
		}
		return c, nil
	})
}

// Definition is the defining declaration of the entity this cursor
// declares or references; null when the unit has none.
func (c Cursor) Definition() (Cursor, error) {
	u, mt, err := c.view()
	if err != nil {
		return Cursor{}, c.wrap("definition", err)
	}
	if c.IsNull() {
		return c, nil
	}
	return memoized(mt, c.key("definition"), func() (Cursor, error) {
		id := c.node
		if ref := u.Nodes[id].Ref; ref != 0 {
			id = ref
		}
		n := &u.Nodes[id]
		if n.Definition != 0 {
			return c.at(u, n.Definition), nil
		}
		if n.Canonical != 0 {
			if def := u.Nodes[n.Canonical].Definition; def != 0 {
				return c.at(u, def), nil
			}
		}
		if n.Has(engine.FlagDefinition) {
			return c.at(u, id), nil
		}
		return c.tu.nullCursor(c.gen), nil
	})
}

// AccessSpecifier is the C++ access of a member or base specifier.
func (c Cursor) AccessSpecifier() (kinds.AccessSpecifier, error) {
	u, mt, err := c.view()
	if err != nil {
		return kinds.AccessInvalid, c.wrap("access specifier", err)
	}
	if c.IsNull() {
		return kinds.AccessInvalid, nil
	}
	return memoized(mt, c.key("access"), func() (kinds.AccessSpecifier, error) {
		return u.Nodes[c.node].Access, nil
	})
}

// USR is the unified symbol resolution string; empty for entities that
// have none.
func (c Cursor) USR() (string, error) {
	u, mt, err := c.view()
	if err != nil {
		return "", c.wrap("usr", err)
	}
	if c.IsNull() {
		return "", nil
	}
	return memoized(mt, c.key("usr"), func() (string, error) {
		return u.Nodes[c.node].USR, nil
	})
}

// Tokens are the tokens starting within the cursor's half-open extent.
func (c Cursor) Tokens() ([]Token, error) {
	u, mt, err := c.view()
	if err != nil {
		return nil, c.wrap("tokens", err)
	}
	if c.IsNull() {
		return nil, nil
	}
	toks, err := memoized(mt, c.key("tokens"), func() ([]Token, error) {
		ext := u.Nodes[c.node].Extent
		end := ext.End
		if end > ext.Start {
			end--
		}
		return tokenize(c.tu, u, c.gen, ext.File, ext.Start, end), nil
	})
	if err != nil {
		return nil, err
	}
	return append([]Token(nil), toks...), nil
}

// =============================================================================
// Traversal
// =============================================================================

// SemanticParent is the scope the entity is declared in.
func (c Cursor) SemanticParent() (Cursor, error) {
	u, _, err := c.view()
	if err != nil {
		return Cursor{}, c.wrap("semantic parent", err)
	}
	if c.IsNull() {
		return c, nil
	}
	return c.at(u, u.Nodes[c.node].SemParent), nil
}

// LexicalParent is the node the cursor is written inside.
func (c Cursor) LexicalParent() (Cursor, error) {
	u, _, err := c.view()
	if err != nil {
		return Cursor{}, c.wrap("lexical parent", err)
	}
	if c.IsNull() {
		return c, nil
	}
	return c.at(u, u.Nodes[c.node].Parent), nil
}

// Children returns the direct children in document order.
func (c Cursor) Children() ([]Cursor, error) {
	u, _, err := c.view()
	if err != nil {
		return nil, c.wrap("children", err)
	}
	if c.IsNull() {
		return nil, nil
	}
	kids := u.Nodes[c.node].Children
	out := make([]Cursor, len(kids))
	for i, k := range kids {
		out[i] = c.at(u, k)
	}
	return out, nil
}

// All yields the direct children in document order. A stale or disposed
// cursor yields nothing.
func (c Cursor) All() iter.Seq[Cursor] {
	return func(yield func(Cursor) bool) {
		kids, err := c.Children()
		if err != nil {
			return
		}
		for _, k := range kids {
			if !yield(k) {
				return
			}
		}
	}
}

// VisitResult steers Visit.
type VisitResult int

const (
	VisitBreak VisitResult = iota
	VisitContinue
	VisitRecurse
)

// Visit calls fn for each child in document order. Returning
// VisitRecurse descends into that child before moving on; VisitBreak
// stops the whole walk.
func (c Cursor) Visit(fn func(c, parent Cursor) VisitResult) error {
	u, _, err := c.view()
	if err != nil {
		return c.wrap("visit", err)
	}
	if c.IsNull() {
		return nil
	}
	c.visit(u, c.node, fn)
	return nil
}

func (c Cursor) visit(u *engine.Unit, id engine.NodeID, fn func(c, parent Cursor) VisitResult) bool {
	parent := c.at(u, id)
	for _, k := range u.Nodes[id].Children {
		switch fn(c.at(u, k), parent) {
		case VisitBreak:
			return false
		case VisitRecurse:
			if !c.visit(u, k, fn) {
				return false
			}
		}
	}
	return true
}

// =============================================================================
// Kind-gated accessors
// =============================================================================

// EnumType is the integer type underlying an ENUM_DECL.
func (c Cursor) EnumType() (Type, error) {
	u, mt, err := c.gate("enum type", kinds.EnumDecl)
	if err != nil {
		return Type{}, err
	}
	return memoized(mt, c.key("enum_type"), func() (Type, error) {
		return c.typeAt(u, u.Nodes[c.node].Underlying), nil
	})
}

// EnumValue holds an enumerator's value. IsUnsigned selects which field
// carries the numerically correct reading.
type EnumValue struct {
	Signed     int64
	Unsigned   uint64
	IsUnsigned bool
}

func (v EnumValue) String() string {
	if v.IsUnsigned {
		return fmt.Sprintf("%d", v.Unsigned)
	}
	return fmt.Sprintf("%d", v.Signed)
}

// EnumValue reads an ENUM_CONSTANT_DECL's value, with signedness taken
// from the enum's underlying integer type.
func (c Cursor) EnumValue() (EnumValue, error) {
	u, mt, err := c.gate("enum value", kinds.EnumConstantDecl)
	if err != nil {
		return EnumValue{}, err
	}
	return memoized(mt, c.key("enum_value"), func() (EnumValue, error) {
		n := &u.Nodes[c.node]
		bits := n.EnumBits
		v := EnumValue{Signed: int64(bits), Unsigned: bits}
		enum := n.SemParent
		if !u.Valid(enum) || u.Nodes[enum].Kind != kinds.EnumDecl {
			enum = n.Parent
		}
		if u.Valid(enum) {
			under := u.Canonical(u.Nodes[enum].Underlying)
			v.IsUnsigned = u.TypeOf(under).Kind.IsUnsigned()
		} else {
			v.IsUnsigned = n.Has(engine.FlagUnsigned)
		}
		return v, nil
	})
}

// IncludedFile is the file an INCLUSION_DIRECTIVE brought in.
func (c Cursor) IncludedFile() (File, error) {
	u, _, err := c.gate("included file", kinds.InclusionDirective)
	if err != nil {
		return File{}, err
	}
	id := u.Nodes[c.node].Included
	if id == 0 {
		return File{}, c.wrap("included file", ErrFileNotFound)
	}
	return File{tu: c.tu, unit: u, gen: c.gen, id: id}, nil
}

// UnderlyingTypedefType is the type a typedef or alias names.
func (c Cursor) UnderlyingTypedefType() (Type, error) {
	u, mt, err := c.gate("underlying typedef type", kinds.TypedefDecl, kinds.TypeAliasDecl)
	if err != nil {
		return Type{}, err
	}
	return memoized(mt, c.key("underlying"), func() (Type, error) {
		return c.typeAt(u, u.Nodes[c.node].Underlying), nil
	})
}

// OverloadedDecls lists the candidates of an OVERLOADED_DECL_REF.
func (c Cursor) OverloadedDecls() ([]Cursor, error) {
	u, _, err := c.gate("overloaded decls", kinds.OverloadedDeclRef)
	if err != nil {
		return nil, err
	}
	ids := u.Nodes[c.node].Overloads
	out := make([]Cursor, len(ids))
	for i, id := range ids {
		out[i] = c.at(u, id)
	}
	return out, nil
}

// OverloadedDecl returns candidate i of an OVERLOADED_DECL_REF.
func (c Cursor) OverloadedDecl(i int) (Cursor, error) {
	u, _, err := c.gate("overloaded decl", kinds.OverloadedDeclRef)
	if err != nil {
		return Cursor{}, err
	}
	ids := u.Nodes[c.node].Overloads
	if i < 0 || i >= len(ids) {
		return Cursor{}, fmt.Errorf("cindex: overloaded decl %d of %d: %w", i, len(ids), ErrOutOfRange)
	}
	return c.at(u, ids[i]), nil
}

// IsVirtualBase reports a virtual CXX_BASE_SPECIFIER.
func (c Cursor) IsVirtualBase() (bool, error) {
	u, _, err := c.gate("is virtual base", kinds.CXXBaseSpecifier)
	if err != nil {
		return false, err
	}
	return u.Nodes[c.node].Has(engine.FlagVirtualBase), nil
}

var argumentKinds = []kinds.CursorKind{
	kinds.FunctionDecl, kinds.CXXMethod, kinds.Constructor, kinds.Destructor,
	kinds.ConversionFunction, kinds.CallExpr,
}

// Arguments lists a function's parameters or a call's argument
// expressions.
func (c Cursor) Arguments() ([]Cursor, error) {
	u, _, err := c.gate("arguments", argumentKinds...)
	if err != nil {
		return nil, err
	}
	n := &u.Nodes[c.node]
	var out []Cursor
	if c.kind == kinds.CallExpr {
		for _, a := range n.Args {
			out = append(out, c.at(u, a))
		}
		return out, nil
	}
	for _, k := range n.Children {
		if u.Nodes[k].Kind == kinds.ParmDecl {
			out = append(out, c.at(u, k))
		}
	}
	return out, nil
}

func (c Cursor) methodFlag(op string, f engine.NodeFlags) (bool, error) {
	u, _, err := c.gate(op, kinds.CXXMethod)
	if err != nil {
		return false, err
	}
	return u.Nodes[c.node].Has(f), nil
}

func (c Cursor) IsStaticMethod() (bool, error) {
	return c.methodFlag("is static method", engine.FlagStatic)
}

func (c Cursor) IsVirtualMethod() (bool, error) {
	return c.methodFlag("is virtual method", engine.FlagVirtual)
}

func (c Cursor) IsPureVirtualMethod() (bool, error) {
	return c.methodFlag("is pure virtual method", engine.FlagPureVirtual)
}

func (c Cursor) IsConstMethod() (bool, error) {
	return c.methodFlag("is const method", engine.FlagConstMethod)
}

// IsDefinition reports whether this declaration is also the definition.
func (c Cursor) IsDefinition() (bool, error) {
	u, _, err := c.view()
	if err != nil {
		return false, c.wrap("is definition", err)
	}
	if c.IsNull() {
		return false, nil
	}
	return u.Nodes[c.node].Has(engine.FlagDefinition), nil
}

// =============================================================================
// Linkage and storage class
// =============================================================================

// Linkage is the cross-unit visibility of a declaration.
type Linkage int

const (
	LinkageInvalid        = Linkage(engine.LinkageInvalid)
	LinkageNoLinkage      = Linkage(engine.LinkageNone)
	LinkageInternal       = Linkage(engine.LinkageInternal)
	LinkageUniqueExternal = Linkage(engine.LinkageUniqueExternal)
	LinkageExternal       = Linkage(engine.LinkageExternal)
)

func (l Linkage) String() string {
	switch l {
	case LinkageInvalid:
		return "INVALID"
	case LinkageNoLinkage:
		return "NO_LINKAGE"
	case LinkageInternal:
		return "INTERNAL"
	case LinkageUniqueExternal:
		return "UNIQUE_EXTERNAL"
	case LinkageExternal:
		return "EXTERNAL"
	}
	return fmt.Sprintf("Linkage(%d)", int(l))
}

func (c Cursor) Linkage() (Linkage, error) {
	u, _, err := c.view()
	if err != nil {
		return LinkageInvalid, c.wrap("linkage", err)
	}
	if c.IsNull() {
		return LinkageInvalid, nil
	}
	return Linkage(u.Linkage(c.node)), nil
}

// StorageClass is the storage class written on a declaration.
type StorageClass int

const (
	StorageInvalid              = StorageClass(engine.StorageInvalid)
	StorageNone                 = StorageClass(engine.StorageNone)
	StorageExtern               = StorageClass(engine.StorageExtern)
	StorageStatic               = StorageClass(engine.StorageStatic)
	StoragePrivateExtern        = StorageClass(engine.StoragePrivateExtern)
	StorageOpenCLWorkGroupLocal = StorageClass(engine.StorageOpenCLWorkGroupLocal)
	StorageAuto                 = StorageClass(engine.StorageAuto)
	StorageRegister             = StorageClass(engine.StorageRegister)
)

func (s StorageClass) String() string {
	switch s {
	case StorageInvalid:
		return "INVALID"
	case StorageNone:
		return "NONE"
	case StorageExtern:
		return "EXTERN"
	case StorageStatic:
		return "STATIC"
	case StoragePrivateExtern:
		return "PRIVATEEXTERN"
	case StorageOpenCLWorkGroupLocal:
		return "OPENCLWORKGROUPLOCAL"
	case StorageAuto:
		return "AUTO"
	case StorageRegister:
		return "REGISTER"
	}
	return fmt.Sprintf("StorageClass(%d)", int(s))
}

func (c Cursor) StorageClass() (StorageClass, error) {
	u, _, err := c.view()
	if err != nil {
		return StorageInvalid, c.wrap("storage class", err)
	}
	if c.IsNull() {
		return StorageInvalid, nil
	}
	return StorageClass(u.StorageClass(c.node)), nil
}

// =============================================================================
// Reference name extents
// =============================================================================

// NameRangeFlags select what ReferenceNameExtent includes.
type NameRangeFlags int

const (
	NameRangeWantQualifier    NameRangeFlags = 1
	NameRangeWantTemplateArgs NameRangeFlags = 2
	NameRangeWantSinglePiece  NameRangeFlags = 4
)

// ReferenceNameExtent returns piece i of the name the cursor refers
// through. Names such as "a[i]" have several pieces; probe increasing
// indexes until ErrNotFound.
func (c Cursor) ReferenceNameExtent(piece int, flags NameRangeFlags) (SourceRange, error) {
	u, _, err := c.view()
	if err != nil {
		return SourceRange{}, c.wrap("reference name extent", err)
	}
	if c.IsNull() || piece < 0 {
		return SourceRange{}, ErrNotFound
	}
	n := &u.Nodes[c.node]

	if len(n.Pieces) > 0 {
		if flags&NameRangeWantSinglePiece != 0 {
			if piece > 0 {
				return SourceRange{}, ErrNotFound
			}
			first, last := n.Pieces[0], n.Pieces[len(n.Pieces)-1]
			return newRange(c.tu, u, c.gen, engine.Range{File: first.File, Start: first.Start, End: last.End}), nil
		}
		if piece >= len(n.Pieces) {
			return SourceRange{}, ErrNotFound
		}
		return newRange(c.tu, u, c.gen, n.Pieces[piece]), nil
	}

	if piece > 0 || n.NameRange.IsNull() {
		return SourceRange{}, ErrNotFound
	}
	r := n.NameRange
	if flags&NameRangeWantQualifier != 0 && !n.QualRange.IsNull() && n.QualRange.File == r.File {
		r.Start = min(r.Start, n.QualRange.Start)
	}
	if flags&NameRangeWantTemplateArgs != 0 && !n.TemplateArgs.IsNull() && n.TemplateArgs.File == r.File {
		r.End = max(r.End, n.TemplateArgs.End)
	}
	return newRange(c.tu, u, c.gen, r), nil
}

// ReferenceNameExtents probes every piece.
func (c Cursor) ReferenceNameExtents(flags NameRangeFlags) ([]SourceRange, error) {
	var out []SourceRange
	for i := 0; ; i++ {
		r, err := c.ReferenceNameExtent(i, flags)
		if errors.Is(err, ErrNotFound) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
}

func (c Cursor) String() string {
	name, err := c.DisplayName()
	if err != nil || name == "" {
		return fmt.Sprintf("<Cursor %s>", c.kind)
	}
	return fmt.Sprintf("<Cursor %s %q>", c.kind, name)
}
