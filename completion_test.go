package cindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/cindex/kinds"
)

const memberSource = `
class X {
    public:
        void foo();
        void foobar();
};

X x1;
x1.foo();
`

func typedTexts(r *CodeCompletionResults) []string {
	var out []string
	for _, res := range r.Results {
		out = append(out, res.CompletionString.TypedText())
	}
	return out
}

func TestCodeComplete_Members(t *testing.T) {
	tu := parseSource(t, "t.cpp", memberSource)

	cc, err := tu.CodeComplete(context.Background(), "t.cpp", 9, 4, nil, DefaultCompleteOptions())
	require.NoError(t, err)
	require.Positive(t, cc.Len())

	texts := typedTexts(cc)
	assert.Contains(t, texts, "foo")
	assert.Contains(t, texts, "foobar")

	for _, res := range cc.Results {
		if res.CompletionString.TypedText() == "foo" {
			assert.Equal(t, kinds.CXXMethod, res.CursorKind)
			assert.Equal(t, "voidfoo()", res.CompletionString.String())
			assert.True(t, res.CompletionString.Chunks[0].IsKindResultType())
			assert.True(t, res.CompletionString.Chunks[1].IsKindTypedText())
		}
	}
}

func TestCodeComplete_WithOverlay(t *testing.T) {
	tu := parseSource(t, "t.cpp", memberSource)

	edited := []UnsavedFile{{Name: "t.cpp", Contents: []byte(memberSource + "x1.fo\n")}}
	cc, err := tu.CodeComplete(context.Background(), "t.cpp", 10, 6, edited, DefaultCompleteOptions())
	require.NoError(t, err)
	cc.Sort()
	assert.Equal(t, []string{"foo", "foobar"}, typedTexts(cc))

	// The unit itself keeps its own contents.
	f, err := tu.File("t.cpp")
	require.NoError(t, err)
	contents, err := f.Contents()
	require.NoError(t, err)
	assert.Equal(t, memberSource, string(contents))
}

func TestCodeComplete_ScopeAndMacros(t *testing.T) {
	src := "#define ALPHA_MAX 10\nint alpha;\nint alphabet;\nvoid g(void) {\n  int alpine;\n  al\n}\nint alphanumeric;\n"
	tu := parseSource(t, "t.c", src)

	cc, err := tu.CodeComplete(context.Background(), "t.c", 6, 5, nil, 0)
	require.NoError(t, err)
	texts := typedTexts(cc)
	assert.Contains(t, texts, "alpha")
	assert.Contains(t, texts, "alphabet")
	assert.Contains(t, texts, "alpine")
	assert.NotContains(t, texts, "alphanumeric", "declared after the completion point")
	assert.NotContains(t, texts, "ALPHA_MAX", "macros need CompleteIncludeMacros")

	withMacros, err := tu.CodeComplete(context.Background(), "t.c", 6, 5, nil, DefaultCompleteOptions())
	require.NoError(t, err)
	assert.Contains(t, typedTexts(withMacros), "ALPHA_MAX", "prefix matching ignores case")

	cc.Sort()
	assert.Equal(t, "alpine", cc.Results[0].CompletionString.TypedText(), "locals rank first")

	// A column past the end of the line completes at its end.
	wide, err := tu.CodeComplete(context.Background(), "t.c", 6, 80, nil, 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, texts, typedTexts(wide))
}

func TestCodeComplete_Errors(t *testing.T) {
	tu := parseSource(t, "t.c", "int i;\n")

	_, err := tu.CodeComplete(context.Background(), "t.c", 0, 1, nil, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = tu.CodeComplete(context.Background(), "other.c", 1, 1, nil, 0)
	assert.ErrorIs(t, err, ErrFileNotFound)

	tu.Dispose()
	_, err = tu.CodeComplete(context.Background(), "t.c", 1, 1, nil, 0)
	assert.ErrorIs(t, err, ErrDisposed)
}
