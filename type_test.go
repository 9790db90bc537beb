package cindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/cindex/kinds"
)

const typesSource = `typedef int I;
struct S { int a; int b; };
int x;
int *p;
const int c = 1;
int arr[3];
I alias;
struct S s;
int f(int a, long b);
int v(int a, ...);
`

func cursorType(t *testing.T, tu *TranslationUnit, name string) Type {
	t.Helper()
	typ, err := findCursor(t, tu, name).Type()
	require.NoError(t, err)
	return typ
}

func typeSpelling(t *testing.T, typ Type) string {
	t.Helper()
	s, err := typ.Spelling()
	require.NoError(t, err)
	return s
}

func TestType_Kinds(t *testing.T) {
	tu := parseSource(t, "t.c", typesSource)

	tests := []struct {
		name     string
		kind     kinds.TypeKind
		spelling string
	}{
		{"x", kinds.TypeInt, "int"},
		{"p", kinds.TypePointer, "int *"},
		{"arr", kinds.TypeConstantArray, "int [3]"},
		{"alias", kinds.TypeTypedef, "I"},
		{"f", kinds.TypeFunctionProto, "int (int, long)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ := cursorType(t, tu, tt.name)
			assert.Equal(t, tt.kind, typ.Kind())
			assert.Equal(t, tt.spelling, typeSpelling(t, typ))
		})
	}
}

func TestType_PointeeAndArray(t *testing.T) {
	tu := parseSource(t, "t.c", typesSource)

	pointee, err := cursorType(t, tu, "p").Pointee()
	require.NoError(t, err)
	assert.Equal(t, kinds.TypeInt, pointee.Kind())

	arr := cursorType(t, tu, "arr")
	elem, err := arr.ArrayElementType()
	require.NoError(t, err)
	assert.Equal(t, kinds.TypeInt, elem.Kind())
	n, err := arr.ArraySize()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	n, err = arr.ElementCount()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	size, err := arr.SizeOf()
	require.NoError(t, err)
	assert.Equal(t, int64(12), size)
}

func TestType_KindMismatch(t *testing.T) {
	tu := parseSource(t, "t.c", typesSource)
	x := cursorType(t, tu, "x")

	_, err := x.ArrayElementType()
	assert.ErrorIs(t, err, ErrWrongKind)
	_, err = x.ArgumentTypes()
	assert.ErrorIs(t, err, ErrWrongKind)
	_, err = x.Pointee()
	assert.ErrorIs(t, err, ErrWrongKind)
	_, err = x.ResultType()
	assert.ErrorIs(t, err, ErrWrongKind)
	_, err = cursorType(t, tu, "p").ArraySize()
	assert.ErrorIs(t, err, ErrWrongKind)
}

func TestType_Qualifiers(t *testing.T) {
	tu := parseSource(t, "t.c", typesSource)

	isConst, err := cursorType(t, tu, "c").IsConstQualified()
	require.NoError(t, err)
	assert.True(t, isConst)

	isConst, err = cursorType(t, tu, "x").IsConstQualified()
	require.NoError(t, err)
	assert.False(t, isConst)
}

func TestType_CanonicalAndDeclaration(t *testing.T) {
	tu := parseSource(t, "t.c", typesSource)

	alias := cursorType(t, tu, "alias")
	canon, err := alias.Canonical()
	require.NoError(t, err)
	assert.Equal(t, kinds.TypeInt, canon.Kind())

	decl, err := alias.Declaration()
	require.NoError(t, err)
	assert.Equal(t, kinds.TypedefDecl, decl.Kind())
	assert.Equal(t, "I", spelling(t, decl))

	rec, err := cursorType(t, tu, "s").Canonical()
	require.NoError(t, err)
	assert.Equal(t, kinds.TypeRecord, rec.Kind())
	decl, err = rec.Declaration()
	require.NoError(t, err)
	assert.Equal(t, "S", spelling(t, decl))
	size, err := rec.SizeOf()
	require.NoError(t, err)
	assert.Equal(t, int64(8), size)
	pod, err := rec.IsPOD()
	require.NoError(t, err)
	assert.True(t, pod)

	decl, err = cursorType(t, tu, "x").Declaration()
	require.NoError(t, err)
	assert.True(t, decl.IsNull())
}

func TestType_Function(t *testing.T) {
	tu := parseSource(t, "t.c", typesSource)

	f := cursorType(t, tu, "f")
	result, err := f.ResultType()
	require.NoError(t, err)
	assert.Equal(t, kinds.TypeInt, result.Kind())

	variadic, err := f.IsFunctionVariadic()
	require.NoError(t, err)
	assert.False(t, variadic)
	variadic, err = cursorType(t, tu, "v").IsFunctionVariadic()
	require.NoError(t, err)
	assert.True(t, variadic)

	args, err := f.ArgumentTypes()
	require.NoError(t, err)
	require.Equal(t, 2, args.Len())
	all, err := args.All()
	require.NoError(t, err)
	assert.Equal(t, kinds.TypeInt, all[0].Kind())
	assert.Equal(t, kinds.TypeLong, all[1].Kind())

	_, err = args.At(2)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = args.At(-1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestType_ArgumentTypesStaleAfterReparse(t *testing.T) {
	tu := parseSource(t, "t.c", typesSource)
	args, err := cursorType(t, tu, "f").ArgumentTypes()
	require.NoError(t, err)

	require.NoError(t, tu.Reparse(context.Background(), []UnsavedFile{{Name: "t.c", Contents: []byte(typesSource)}}))

	assert.Equal(t, 2, args.Len())
	_, err = args.At(0)
	assert.ErrorIs(t, err, ErrStale)
}

func TestType_Equal(t *testing.T) {
	tu := parseSource(t, "t.c", typesSource)

	x := cursorType(t, tu, "x")
	pointee, err := cursorType(t, tu, "p").Pointee()
	require.NoError(t, err)
	assert.True(t, x.Equal(pointee))
	assert.False(t, x.Equal(cursorType(t, tu, "p")))
}
