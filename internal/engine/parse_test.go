package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/cindex/kinds"
)

func parseOverlay(t *testing.T, req Request, files map[string]string) *Unit {
	t.Helper()
	for name, src := range files {
		req.Overlays = append(req.Overlays, UnsavedFile{Name: name, Contents: []byte(src)})
	}
	u, err := Parse(context.Background(), req)
	require.NoError(t, err)
	return u
}

func hasDecl(u *Unit, kind kinds.CursorKind, name string) bool {
	found := false
	u.Walk(u.Root(), func(id NodeID) bool {
		n := u.Node(id)
		if n.Kind == kind && n.Name == name {
			found = true
		}
		return !found
	})
	return found
}

func TestParse_NoInput(t *testing.T) {
	t.Parallel()
	_, err := Parse(context.Background(), Request{Args: []string{"-Wall"}})
	assert.ErrorIs(t, err, ErrNoInput)

	_, err = Parse(context.Background(), Request{Filename: "/does/not/exist.c"})
	assert.Error(t, err)
}

func TestParse_Cancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Parse(ctx, Request{Filename: "t.c", Overlays: []UnsavedFile{{Name: "t.c", Contents: []byte("int i;")}}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParse_Defines(t *testing.T) {
	t.Parallel()
	u := parseOverlay(t, Request{Filename: "t.c", Args: []string{"-DWIDE", "-D", "N=4"}}, map[string]string{
		"t.c": "#ifdef WIDE\nint wide[N];\n#else\nint narrow;\n#endif\n",
	})
	assert.True(t, hasDecl(u, kinds.VarDecl, "wide"))
	assert.False(t, hasDecl(u, kinds.VarDecl, "narrow"))
	assert.False(t, u.HasErrors())
}

func TestParse_PreambleCache(t *testing.T) {
	t.Parallel()
	cache := NewCache(0)
	files := map[string]string{
		"t.c": "#include \"a.h\"\nint x = 1;\n",
		"a.h": "int a;\n",
	}
	req := Request{Filename: "t.c", Options: ParsePrecompiledPreamble, Cache: cache}

	first := parseOverlay(t, req, files)
	assert.Equal(t, 1, cache.Len())
	hits, misses := cache.Stats()
	assert.Equal(t, uint64(0), hits)
	assert.Equal(t, uint64(1), misses)

	second := parseOverlay(t, req, files)
	hits, _ = cache.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.True(t, hasDecl(first, kinds.VarDecl, "a"))
	assert.True(t, hasDecl(second, kinds.VarDecl, "a"))

	// An edited header is a different entry.
	files["a.h"] = "int a, b;\n"
	parseOverlay(t, req, files)
	assert.Equal(t, 2, cache.Len())

	cache.Purge()
	assert.Zero(t, cache.Len())
}

func TestParse_CacheRequiresPreambleOption(t *testing.T) {
	t.Parallel()
	cache := NewCache(0)
	parseOverlay(t, Request{Filename: "t.c", Cache: cache}, map[string]string{
		"t.c": "#include \"a.h\"\n",
		"a.h": "int a;\n",
	})
	assert.Zero(t, cache.Len())
}

func TestParse_ExcludePCH(t *testing.T) {
	t.Parallel()
	files := map[string]string{
		"t.c": "#include \"a.h\"\nint x;\n",
		"a.h": "int a;\n",
	}
	topLevel := func(u *Unit) []string {
		var out []string
		for _, c := range u.Node(u.Root()).Children {
			if n := u.Node(c); n.Kind.IsDeclaration() {
				out = append(out, n.Name)
			}
		}
		return out
	}

	u := parseOverlay(t, Request{Filename: "t.c", Options: ParsePrecompiledPreamble}, files)
	assert.Equal(t, []string{"a", "x"}, topLevel(u))

	u = parseOverlay(t, Request{Filename: "t.c", Options: ParsePrecompiledPreamble, ExcludePCH: true}, files)
	assert.Equal(t, []string{"x"}, topLevel(u))
}

func TestParse_SkipFunctionBodies(t *testing.T) {
	t.Parallel()
	files := map[string]string{"t.c": "int f(void) { int local = 1; return local; }\n"}

	u := parseOverlay(t, Request{Filename: "t.c"}, files)
	assert.True(t, hasDecl(u, kinds.VarDecl, "local"))

	u = parseOverlay(t, Request{Filename: "t.c", Options: ParseSkipFunctionBodies}, files)
	assert.True(t, hasDecl(u, kinds.FunctionDecl, "f"))
	assert.False(t, hasDecl(u, kinds.VarDecl, "local"))
}

func TestLangForFile(t *testing.T) {
	t.Parallel()
	tests := []struct {
		path string
		args []string
		want Lang
	}{
		{"a.c", nil, LangC},
		{"a.cpp", nil, LangCPP},
		{"a.HPP", nil, LangCPP},
		{"a.h", nil, LangC},
		{"a.txt", nil, LangC},
		{"a.h", []string{"-x", "c++"}, LangCPP},
		{"a.cpp", []string{"-xc"}, LangC},
		{"a.c", []string{"-std=c++17"}, LangCPP},
		{"a.cpp", []string{"-std=c11"}, LangC},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, LangForFile(tt.path, tt.args))
		})
	}
	assert.Equal(t, "c++", LangCPP.String())
	assert.NotNil(t, Grammar(LangC))
}
