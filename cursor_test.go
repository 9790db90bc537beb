package cindex

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/cindex/kinds"
)

const childrenSource = `struct s0 {
  int a;
  int b;
};

struct s1;

void f0(int a0, int a1) {
  int l0, l1;

  if (a0)
    return;

  for (;;) {
    break;
  }
}
`

func spelling(t *testing.T, c Cursor) string {
	t.Helper()
	s, _, err := c.Spelling()
	require.NoError(t, err)
	return s
}

func TestCursor_Root(t *testing.T) {
	tu := parseSource(t, "t.c", childrenSource)

	root, err := tu.Cursor()
	require.NoError(t, err)
	assert.Equal(t, kinds.TranslationUnit, root.Kind())
	display, err := root.DisplayName()
	require.NoError(t, err)
	assert.Equal(t, "t.c", display)
	assert.Same(t, tu, root.TranslationUnit())

	parent, err := root.SemanticParent()
	require.NoError(t, err)
	assert.True(t, parent.IsNull())
}

func TestCursor_ChildrenInDocumentOrder(t *testing.T) {
	tu := parseSource(t, "t.c", childrenSource)

	root, err := tu.Cursor()
	require.NoError(t, err)
	top, err := root.Children()
	require.NoError(t, err)
	require.Len(t, top, 3)

	assert.Equal(t, kinds.StructDecl, top[0].Kind())
	assert.Equal(t, "s0", spelling(t, top[0]))
	assert.Equal(t, kinds.StructDecl, top[1].Kind())
	assert.Equal(t, "s1", spelling(t, top[1]))
	assert.Equal(t, kinds.FunctionDecl, top[2].Kind())
	assert.Equal(t, "f0", spelling(t, top[2]))

	fields, err := top[0].Children()
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, kinds.FieldDecl, fields[0].Kind())
	assert.Equal(t, "a", spelling(t, fields[0]))
	assert.Equal(t, kinds.FieldDecl, fields[1].Kind())
	assert.Equal(t, "b", spelling(t, fields[1]))

	s1Kids, err := top[1].Children()
	require.NoError(t, err)
	assert.Empty(t, s1Kids)

	var kids []kinds.CursorKind
	for c := range top[2].All() {
		kids = append(kids, c.Kind())
	}
	assert.Equal(t, []kinds.CursorKind{kinds.ParmDecl, kinds.ParmDecl, kinds.CompoundStmt}, kids)

	for _, c := range fields {
		parent, err := c.SemanticParent()
		require.NoError(t, err)
		assert.True(t, parent.Equal(top[0]))
		lex, err := c.LexicalParent()
		require.NoError(t, err)
		assert.True(t, lex.Equal(top[0]))
	}
}

func TestCursor_NonDeclarationsHaveNoSpelling(t *testing.T) {
	tu := parseSource(t, "t.c", "int x;\nint g(void) { return x; }\n")
	root, err := tu.Cursor()
	require.NoError(t, err)

	tests := []struct {
		name    string
		c       Cursor
		display string
	}{
		{"translation unit", root, "t.c"},
		{"statement", findKind(t, tu, kinds.CompoundStmt), ""},
		{"reference", findKind(t, tu, kinds.DeclRefExpr), "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok, err := tt.c.Spelling()
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Empty(t, s)

			display, err := tt.c.DisplayName()
			require.NoError(t, err)
			assert.Equal(t, tt.display, display)
		})
	}

	s, ok, err := findKind(t, tu, kinds.FunctionDecl).Spelling()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "g", s)
}

func TestCursor_VisitBreakAndRecurse(t *testing.T) {
	tu := parseSource(t, "t.c", childrenSource)
	root, err := tu.Cursor()
	require.NoError(t, err)

	var shallow []string
	require.NoError(t, root.Visit(func(c, _ Cursor) VisitResult {
		shallow = append(shallow, spelling(t, c))
		return VisitContinue
	}))
	assert.Equal(t, []string{"s0", "s1", "f0"}, shallow)

	visited := 0
	require.NoError(t, root.Visit(func(c, parent Cursor) VisitResult {
		visited++
		if c.Kind() == kinds.FieldDecl {
			assert.Equal(t, "s0", spelling(t, parent))
			return VisitBreak
		}
		return VisitRecurse
	}))
	assert.Equal(t, 2, visited, "s0 then its first field")
}

func TestCursor_EqualAndHash(t *testing.T) {
	tu := parseSource(t, "t.c", childrenSource)

	a := findCursor(t, tu, "a")
	again := findCursor(t, tu, "a")
	b := findCursor(t, tu, "b")

	assert.True(t, a.Equal(again))
	assert.Equal(t, a.Hash(), again.Hash())
	assert.False(t, a.Equal(b))

	m := map[Cursor]bool{a: true}
	assert.True(t, m[again])
}

func TestCursor_MemoizedPropertiesAreStable(t *testing.T) {
	tu := parseSource(t, "t.c", "int f(int x, char y);\n")
	f := findCursor(t, tu, "f")

	first, err := f.DisplayName()
	require.NoError(t, err)
	second, err := f.DisplayName()
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "f(int, char)", first)

	l1, err := f.Location()
	require.NoError(t, err)
	l2, err := f.Location()
	require.NoError(t, err)
	assert.True(t, l1.Equal(l2))
}

func TestCursor_DefinitionAndCanonical(t *testing.T) {
	tu := parseSource(t, "t.c", "int f(void);\nint f(void) { return 0; }\n")

	root, err := tu.Cursor()
	require.NoError(t, err)
	decls, err := root.Children()
	require.NoError(t, err)
	require.Len(t, decls, 2)
	decl, def := decls[0], decls[1]

	isDef, err := decl.IsDefinition()
	require.NoError(t, err)
	assert.False(t, isDef)
	isDef, err = def.IsDefinition()
	require.NoError(t, err)
	assert.True(t, isDef)

	got, err := decl.Definition()
	require.NoError(t, err)
	assert.True(t, got.Equal(def))

	canon, err := def.Canonical()
	require.NoError(t, err)
	assert.True(t, canon.Equal(decl))

	declUSR, err := decl.USR()
	require.NoError(t, err)
	defUSR, err := def.USR()
	require.NoError(t, err)
	assert.NotEmpty(t, declUSR)
	assert.Equal(t, declUSR, defUSR)
}

func TestCursor_Referenced(t *testing.T) {
	tu := parseSource(t, "t.c", "int x;\nint g(void) { return x; }\n")

	ref := findKind(t, tu, kinds.DeclRefExpr)
	target, err := ref.Referenced()
	require.NoError(t, err)
	assert.Equal(t, kinds.VarDecl, target.Kind())
	assert.Equal(t, "x", spelling(t, target))

	ranges, err := ref.ReferenceNameExtents(0)
	require.NoError(t, err)
	require.Len(t, ranges, 1)
	assertLocation(t, ranges[0].Start(), 2, 22, 28)
	assertLocation(t, ranges[0].End(), 2, 23, 29)

	_, err = ref.ReferenceNameExtent(1, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCursor_KindGatedAccessors(t *testing.T) {
	tu := parseSource(t, "t.c", "int x;\n")
	x := findCursor(t, tu, "x")

	_, err := x.EnumValue()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWrongKind)
	var ke *KindError
	require.True(t, errors.As(err, &ke))

	_, err = x.EnumType()
	assert.ErrorIs(t, err, ErrWrongKind)
	_, err = x.IsVirtualMethod()
	assert.ErrorIs(t, err, ErrWrongKind)
	_, err = x.UnderlyingTypedefType()
	assert.ErrorIs(t, err, ErrWrongKind)
}

func TestCursor_EnumValues(t *testing.T) {
	tu := parseSource(t, "t.cpp", "enum TEST : unsigned long long { SPAM = 0xFFFFFFFFFFFFFFFF, EGGS = 2 };\nenum N { NEG = -1, ZERO };\n")

	spam, err := findCursor(t, tu, "SPAM").EnumValue()
	require.NoError(t, err)
	assert.True(t, spam.IsUnsigned)
	assert.Equal(t, uint64(0xFFFFFFFFFFFFFFFF), spam.Unsigned)
	assert.Equal(t, "18446744073709551615", spam.String())

	eggs, err := findCursor(t, tu, "EGGS").EnumValue()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), eggs.Unsigned)

	neg, err := findCursor(t, tu, "NEG").EnumValue()
	require.NoError(t, err)
	assert.False(t, neg.IsUnsigned)
	assert.Equal(t, int64(-1), neg.Signed)

	zero, err := findCursor(t, tu, "ZERO").EnumValue()
	require.NoError(t, err)
	assert.Equal(t, int64(0), zero.Signed)

	under, err := findCursor(t, tu, "TEST").EnumType()
	require.NoError(t, err)
	assert.Equal(t, kinds.TypeULongLong, under.Kind())

	// Signedness looks through typedefs and aliases of the underlying type.
	aliased := parseSource(t, "u.cpp", "typedef unsigned long long u64;\n"+
		"enum E : u64 { BIG = 0xFFFFFFFFFFFFFFFF };\n"+
		"using wide = u64;\n"+
		"enum F : wide { HUGE = 0xFFFFFFFFFFFFFFFE };\n")
	tests := []struct {
		name string
		want uint64
		text string
	}{
		{"BIG", 0xFFFFFFFFFFFFFFFF, "18446744073709551615"},
		{"HUGE", 0xFFFFFFFFFFFFFFFE, "18446744073709551614"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := findCursor(t, aliased, tt.name).EnumValue()
			require.NoError(t, err)
			assert.True(t, v.IsUnsigned)
			assert.Equal(t, tt.want, v.Unsigned)
			assert.Equal(t, tt.text, v.String())
		})
	}
}

func TestCursor_MethodsAndAccess(t *testing.T) {
	src := `class C {
  int hidden;
public:
  virtual void v() = 0;
  static void s();
  void c() const;
};
`
	tu := parseSource(t, "t.cpp", src)

	access, err := findCursor(t, tu, "hidden").AccessSpecifier()
	require.NoError(t, err)
	assert.Equal(t, kinds.AccessPrivate, access)

	v := findCursor(t, tu, "v")
	require.Equal(t, kinds.CXXMethod, v.Kind())
	access, err = v.AccessSpecifier()
	require.NoError(t, err)
	assert.Equal(t, kinds.AccessPublic, access)

	pure, err := v.IsPureVirtualMethod()
	require.NoError(t, err)
	assert.True(t, pure)
	virt, err := v.IsVirtualMethod()
	require.NoError(t, err)
	assert.True(t, virt)

	static, err := findCursor(t, tu, "s").IsStaticMethod()
	require.NoError(t, err)
	assert.True(t, static)

	constMethod, err := findCursor(t, tu, "c").IsConstMethod()
	require.NoError(t, err)
	assert.True(t, constMethod)
}

func TestCursor_LinkageAndStorage(t *testing.T) {
	tu := parseSource(t, "t.c", "int ext;\nstatic int internal;\nvoid f(void) { int local; }\n")

	tests := []struct {
		name    string
		linkage Linkage
		storage StorageClass
	}{
		{"ext", LinkageExternal, StorageNone},
		{"internal", LinkageInternal, StorageStatic},
		{"local", LinkageNoLinkage, StorageNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := findCursor(t, tu, tt.name)
			l, err := c.Linkage()
			require.NoError(t, err)
			assert.Equal(t, tt.linkage, l)
			s, err := c.StorageClass()
			require.NoError(t, err)
			assert.Equal(t, tt.storage, s)
		})
	}
}

func TestCursor_StaleAfterReparse(t *testing.T) {
	tu := parseSource(t, "t.c", "int x;\n")
	x := findCursor(t, tu, "x")

	require.NoError(t, tu.Reparse(context.Background(), []UnsavedFile{{Name: "t.c", Contents: []byte("int y;\n")}}))

	_, _, err := x.Spelling()
	assert.ErrorIs(t, err, ErrStale)
	_, err = x.Children()
	assert.ErrorIs(t, err, ErrStale)

	assert.Equal(t, "y", spelling(t, findCursor(t, tu, "y")))
}

func TestCursor_DisposedUnit(t *testing.T) {
	tu := parseSource(t, "t.c", "int x;\n")
	x := findCursor(t, tu, "x")
	typ, err := x.Type()
	require.NoError(t, err)

	tu.Dispose()
	assert.True(t, tu.Disposed())

	_, _, err = x.Spelling()
	assert.ErrorIs(t, err, ErrDisposed)
	_, err = x.Extent()
	assert.ErrorIs(t, err, ErrDisposed)
	_, err = typ.Spelling()
	assert.ErrorIs(t, err, ErrDisposed)
	_, err = tu.Cursor()
	assert.ErrorIs(t, err, ErrDisposed)

	var seen int
	for range x.All() {
		seen++
	}
	assert.Zero(t, seen)
}

func TestCursor_DisposedUnitHandles(t *testing.T) {
	tu := parseSource(t, "t.c", "static void f(void) {}\nint x;\n")
	f, err := tu.File("t.c")
	require.NoError(t, err)
	loc := locationAt(t, tu, "t.c", 1, 13)
	require.Equal(t, 13, loc.Column())
	ext, err := findCursor(t, tu, "x").Extent()
	require.NoError(t, err)
	toks, err := tu.Tokens(ext)
	require.NoError(t, err)
	require.NotEmpty(t, toks)
	d, err := tu.Diagnostics().At(0)
	require.NoError(t, err)
	require.NoError(t, d.Err())

	tu.Dispose()

	// Files and new locations.
	assert.ErrorIs(t, f.Err(), ErrDisposed)
	assert.True(t, f.IsNull())
	_, err = f.Contents()
	assert.ErrorIs(t, err, ErrDisposed)
	_, err = NewSourceLocation(WithFile(f), AtPosition(1, 1))
	assert.ErrorIs(t, err, ErrDisposed)
	_, err = NewSourceLocation(WithFilename(tu, "t.c"), AtOffset(0))
	assert.ErrorIs(t, err, ErrDisposed)
	_, err = LocationFromPosition(tu, f, 1, 1)
	assert.ErrorIs(t, err, ErrDisposed)
	_, err = LocationFromOffset(tu, f, 0)
	assert.ErrorIs(t, err, ErrDisposed)

	// Existing locations and ranges read as zero.
	assert.ErrorIs(t, loc.Err(), ErrDisposed)
	assert.Zero(t, loc.Line())
	assert.Zero(t, loc.Column())
	assert.ErrorIs(t, ext.Err(), ErrDisposed)
	_, err = NewSourceRange(ext.Start(), ext.End())
	assert.ErrorIs(t, err, ErrDisposed)

	// Diagnostics.
	_, err = tu.Diagnostics().At(0)
	assert.ErrorIs(t, err, ErrDisposed)
	assert.ErrorIs(t, d.Err(), ErrDisposed)
	_, err = d.Location()
	assert.ErrorIs(t, err, ErrDisposed)
	_, err = d.Ranges()
	assert.ErrorIs(t, err, ErrDisposed)
	_, err = d.FixIts()
	assert.ErrorIs(t, err, ErrDisposed)
	assert.Empty(t, d.Spelling())
	assert.Empty(t, d.String())

	// Tokens.
	assert.ErrorIs(t, toks[0].Err(), ErrDisposed)
	assert.Empty(t, toks[0].Spelling())
	assert.Zero(t, toks[0].Location().Line())
	_, err = toks[0].Cursor()
	assert.ErrorIs(t, err, ErrDisposed)
}

func TestCursor_ReferenceNameExtent_Pieces(t *testing.T) {
	src := "namespace ns { int v; }\nint a[2];\nint f() { return a[1] + ns::v; }\n"
	tu := parseSource(t, "t.cpp", src)
	offsets := func(r SourceRange) [2]int { return [2]int{r.Start().Offset(), r.End().Offset()} }

	sub := findKind(t, tu, kinds.ArraySubscriptExpr)
	open, err := sub.ReferenceNameExtent(0, 0)
	require.NoError(t, err)
	assert.Equal(t, [2]int{52, 53}, offsets(open))
	closing, err := sub.ReferenceNameExtent(1, 0)
	require.NoError(t, err)
	assert.Equal(t, [2]int{54, 55}, offsets(closing))
	_, err = sub.ReferenceNameExtent(2, 0)
	assert.ErrorIs(t, err, ErrNotFound)

	pieces, err := sub.ReferenceNameExtents(0)
	require.NoError(t, err)
	assert.Len(t, pieces, 2)
	single, err := sub.ReferenceNameExtents(NameRangeWantSinglePiece)
	require.NoError(t, err)
	require.Len(t, single, 1)
	assert.Equal(t, [2]int{52, 55}, offsets(single[0]))

	qualified := find(t, tu, "ns::v", func(c Cursor) bool {
		name, err := c.DisplayName()
		return err == nil && c.Kind() == kinds.DeclRefExpr && name == "v"
	})
	plain, err := qualified.ReferenceNameExtent(0, 0)
	require.NoError(t, err)
	assert.Equal(t, [2]int{62, 63}, offsets(plain))
	withQual, err := qualified.ReferenceNameExtent(0, NameRangeWantQualifier)
	require.NoError(t, err)
	assert.Equal(t, [2]int{58, 63}, offsets(withQual))
	_, err = qualified.ReferenceNameExtent(1, NameRangeWantQualifier)
	assert.ErrorIs(t, err, ErrNotFound)
}
