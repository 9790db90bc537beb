package cindex

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoDecls = "int one;\nint two;\n"

func assertLocation(t *testing.T, loc SourceLocation, line, col, off int) {
	t.Helper()
	assert.Equal(t, line, loc.Line(), "line")
	assert.Equal(t, col, loc.Column(), "column")
	assert.Equal(t, off, loc.Offset(), "offset")
}

func TestNewSourceLocation_Arguments(t *testing.T) {
	tu := parseSource(t, "t.c", twoDecls)
	f, err := tu.File("t.c")
	require.NoError(t, err)

	tests := []struct {
		name string
		opts []LocationOption
	}{
		{"no arguments", nil},
		{"no position", []LocationOption{WithFile(f)}},
		{"no source", []LocationOption{AtPosition(1, 1)}},
		{"two sources", []LocationOption{WithFile(f), WithFilename(tu, "t.c"), AtOffset(0)}},
		{"two positions", []LocationOption{WithFile(f), AtOffset(0), AtPosition(1, 1)}},
		{"zero line", []LocationOption{WithFile(f), AtPosition(0, 1)}},
		{"negative offset", []LocationOption{WithFile(f), AtOffset(-1)}},
		{"filename without unit", []LocationOption{WithFilename(nil, "t.c"), AtOffset(0)}},
		{"null file", []LocationOption{WithFile(File{}), AtOffset(0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSourceLocation(tt.opts...)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}

	_, err = NewSourceLocation(WithFilename(tu, "missing.c"), AtOffset(0))
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestNewSourceLocation_Properties(t *testing.T) {
	tu := parseSource(t, "t.c", twoDecls)

	assertLocation(t, locationAt(t, tu, "t.c", 1, 1), 1, 1, 0)

	loc, err := NewSourceLocation(WithFilename(tu, "t.c"), AtOffset(2))
	require.NoError(t, err)
	assertLocation(t, loc, 1, 3, 2)
	assert.Equal(t, "t.c", loc.File().Name())
	assert.Same(t, tu, loc.TranslationUnit())
}

func TestNewSourceLocation_ClampsPastEnd(t *testing.T) {
	tu := parseSource(t, "t.c", "int i;")

	assertLocation(t, locationAt(t, tu, "t.c", 5, 2), 1, 6, 5)

	loc, err := NewSourceLocation(WithFilename(tu, "t.c"), AtOffset(100))
	require.NoError(t, err)
	assertLocation(t, loc, 1, 6, 5)
}

func TestSourceLocation_String(t *testing.T) {
	tu := parseSource(t, "t.c", twoDecls)

	assert.Equal(t, "<SourceLocation file 't.c', line 1, column 1>", locationAt(t, tu, "t.c", 1, 1).String())
	assert.Equal(t, "<SourceLocation file None, line 0, column 0>", NullLocation().String())
}

func TestSourceLocation_Flavors(t *testing.T) {
	tu := parseSource(t, "t.c", "\n#define foo bar\n\nint foo = 2;\n")

	// Line 3 is empty, so column 4 clamps to its newline.
	loc := locationAt(t, tu, "t.c", 3, 4)

	f, line, col, off := loc.ExpansionLocation()
	assert.Equal(t, "t.c", f.Name())
	assert.Equal(t, []int{3, 1, 17}, []int{line, col, off})

	f, line, col, off = loc.SpellingLocation()
	assert.Equal(t, "t.c", f.Name())
	assert.Equal(t, []int{3, 1, 17}, []int{line, col, off})
}

func TestSourceLocation_MacroNamedDeclaration(t *testing.T) {
	tu := parseSource(t, "t.c", "\n#define foo bar\n\nint foo = 2;\n")

	bar := findCursor(t, tu, "bar")
	loc, err := bar.Location()
	require.NoError(t, err)

	// Expanded where "foo" is written on line 4, spelled in the #define.
	_, line, col, _ := loc.ExpansionLocation()
	assert.Equal(t, []int{4, 5}, []int{line, col})
	_, line, _, _ = loc.SpellingLocation()
	assert.Equal(t, 2, line)
}

func TestSourceLocation_Presumed(t *testing.T) {
	tu := parseSource(t, "t.c", "\n#100 \"t.c\" 1\n\nint i;\n")

	loc := locationAt(t, tu, "t.c", 3, 1)
	name, line, _ := loc.PresumedLocation()
	assert.Equal(t, "t.c", name)
	assert.Equal(t, 100, line)
	assert.Equal(t, 3, loc.Line())
}

func TestSourceLocation_FromCursor(t *testing.T) {
	tu := parseSource(t, "t.c", twoDecls)

	one, err := findCursor(t, tu, "one").Location()
	require.NoError(t, err)
	two, err := findCursor(t, tu, "two").Location()
	require.NoError(t, err)
	assertLocation(t, one, 1, 5, 4)
	assertLocation(t, two, 2, 5, 13)

	// A leading blank line shifts lines and offsets but not columns.
	tu = parseSource(t, "t.c", "\n"+twoDecls)
	one, err = findCursor(t, tu, "one").Location()
	require.NoError(t, err)
	two, err = findCursor(t, tu, "two").Location()
	require.NoError(t, err)
	assertLocation(t, one, 2, 5, 5)
	assertLocation(t, two, 3, 5, 14)
}

func TestSourceLocation_Equal(t *testing.T) {
	tu := parseSource(t, "t.c", twoDecls)
	f, err := tu.File("t.c")
	require.NoError(t, err)

	a, err := LocationFromPosition(tu, f, 1, 5)
	require.NoError(t, err)
	b, err := LocationFromOffset(tu, f, 4)
	require.NoError(t, err)
	c, err := LocationFromOffset(tu, f, 5)
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(NullLocation()))
	assert.True(t, NullLocation().Equal(NullLocation()))

	other := parseSource(t, "t.c", twoDecls)
	_, err = LocationFromOffset(other, f, 0)
	assert.ErrorIs(t, err, ErrTUMismatch)
}

func TestCursorAt_Location(t *testing.T) {
	tu := parseSource(t, "t.c", twoDecls)

	c, err := tu.CursorAt(locationAt(t, tu, "t.c", 2, 5))
	require.NoError(t, err)
	s, _, err := c.Spelling()
	require.NoError(t, err)
	assert.Equal(t, "two", s)

	_, err = tu.CursorAt(NullLocation())
	assert.ErrorIs(t, err, ErrInvalidArgument)

	other := parseSource(t, "t.c", twoDecls)
	_, err = tu.CursorAt(locationAt(t, other, "t.c", 1, 1))
	assert.ErrorIs(t, err, ErrTUMismatch)
}

func TestSourceRange_Usage(t *testing.T) {
	tu := parseSource(t, "t.c", twoDecls)

	one, err := findCursor(t, tu, "one").Extent()
	require.NoError(t, err)
	assertLocation(t, one.Start(), 1, 1, 0)
	assertLocation(t, one.End(), 1, 8, 7)
	assert.Equal(t, "int one", twoDecls[one.Start().Offset():one.End().Offset()])

	two, err := findCursor(t, tu, "two").Extent()
	require.NoError(t, err)
	assertLocation(t, two.Start(), 2, 1, 9)
	assertLocation(t, two.End(), 2, 8, 16)
	assert.Equal(t, "int two", twoDecls[two.Start().Offset():two.End().Offset()])

	f, err := tu.File("t.c")
	require.NoError(t, err)
	l1, err := LocationFromPosition(tu, f, 1, 1)
	require.NoError(t, err)
	l2, err := LocationFromPosition(tu, f, 1, 8)
	require.NoError(t, err)
	l3, err := LocationFromPosition(tu, f, 1, 6)
	require.NoError(t, err)

	r1, err := NewSourceRange(l1, l2)
	require.NoError(t, err)
	r2, err := NewSourceRange(l1, l2)
	require.NoError(t, err)
	r3, err := NewSourceRange(l1, l3)
	require.NoError(t, err)
	assert.True(t, r1.Equal(r2))
	assert.False(t, r1.Equal(r3))

	assert.True(t, r1.Contains(l3))
	assert.True(t, r1.Contains(l2))
	assert.False(t, r3.Contains(l2))
	assert.False(t, NullRange().Contains(l1))
}

func TestSourceRange_String(t *testing.T) {
	tu := parseSource(t, "t.c", twoDecls)
	start, err := NewSourceLocation(WithFilename(tu, "t.c"), AtOffset(0))
	require.NoError(t, err)
	end, err := NewSourceLocation(WithFilename(tu, "t.c"), AtOffset(3))
	require.NoError(t, err)

	r, err := NewSourceRange(start, end)
	require.NoError(t, err)
	assert.True(t, r.Start().Equal(start))
	assert.True(t, r.End().Equal(end))
	assert.Equal(t, "<SourceRange start <SourceLocation file 't.c', line 1, column 1>, end <SourceLocation file 't.c', line 1, column 4>>", r.String())
}

func TestNewSourceRange_Mismatch(t *testing.T) {
	a := parseSource(t, "t.c", twoDecls)
	b := parseSource(t, "t.c", twoDecls)

	_, err := NewSourceRange(locationAt(t, a, "t.c", 1, 1), locationAt(t, b, "t.c", 1, 2))
	assert.True(t, errors.Is(err, ErrTUMismatch))
}
