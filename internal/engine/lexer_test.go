package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLex_Kinds(t *testing.T) {
	t.Parallel()
	src := []byte("int i = 5; // c\n  x->y")
	toks := Lex(src, false)
	require.Len(t, toks, 9)

	var got []string
	var kinds []TokKind
	for _, tok := range toks {
		got = append(got, string(src[tok.Start:tok.End]))
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal(t, []string{"int", "i", "=", "5", ";", "// c", "x", "->", "y"}, got)
	assert.Equal(t, []TokKind{
		TokKeyword, TokIdent, TokPunct, TokLiteral, TokPunct, TokComment,
		TokIdent, TokPunct, TokIdent,
	}, kinds)

	assert.True(t, toks[0].AtLineStart)
	assert.False(t, toks[1].AtLineStart)
	assert.True(t, toks[6].AtLineStart)
}

func TestLex_Literals(t *testing.T) {
	t.Parallel()
	src := []byte(`"a\"b" 'c' 0x1fUL 1.5e-3 u8"s"`)
	toks := Lex(src, true)
	require.Len(t, toks, 5)
	for _, tok := range toks {
		assert.Equal(t, TokLiteral, tok.Kind, string(src[tok.Start:tok.End]))
	}
	assert.Equal(t, `"a\"b"`, string(src[toks[0].Start:toks[0].End]))
	assert.Equal(t, "1.5e-3", string(src[toks[3].Start:toks[3].End]))
}

func TestIsKeyword(t *testing.T) {
	t.Parallel()
	assert.True(t, IsKeyword("int", false))
	assert.True(t, IsKeyword("restrict", false))
	assert.False(t, IsKeyword("restrict", true))
	assert.False(t, IsKeyword("class", false))
	assert.True(t, IsKeyword("class", true))
	assert.False(t, IsKeyword("main", true))

	assert.Contains(t, Keywords(true), "namespace")
	assert.NotContains(t, Keywords(false), "namespace")
	assert.Greater(t, len(Keywords(true)), len(Keywords(false)))
}
