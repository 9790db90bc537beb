package runtime

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/cindex"
)

const cTestSource = `struct point { int x; int y; };

static int sq(int v) { return v * v; }

int norm(struct point p) {
    return sq(p.x) + sq(p.y);
}

int origin = 0;
`

// newTestRuntime parses src as t.c and returns a Runtime over it.
func newTestRuntime(t *testing.T, src string, opts ...RuntimeOption) *Runtime {
	t.Helper()
	ix := cindex.Create()
	tu, err := ix.Parse(context.Background(), "t.c", nil, []cindex.UnsavedFile{{Name: "t.c", Contents: []byte(src)}}, 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		tu.Dispose()
		ix.Dispose()
	})
	return NewRuntime(tu, "", opts...)
}

// --- Cursor host functions ---

func TestRunSource_RootAndChildren(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t, cTestSource)

	script := `
r := root()
assert(r["kind"] == "TRANSLATION_UNIT", 'got {r["kind"]}')
assert(r["spelling"] == "", 'got {r["spelling"]}')
assert(r["display"] == main_file, 'got {r["display"]}')

kids := children(r)
assert(len(kids) == 4, 'expected 4 top-level cursors, got {len(kids)}')
assert(kids[0]["kind"] == "STRUCT_DECL")
assert(kids[1]["spelling"] == "sq")
assert(kids[2]["display"] == "norm(struct point)", 'got {kids[2]["display"]}')
assert(kids[3]["line"] == 9)

// Cursors can be passed back by map or by id.
fields := children(kids[0]["id"])
assert(len(fields) == 2)
assert(fields[1]["spelling"] == "y")
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestRunSource_WalkAndEmit(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t, "int f(int a) { return a; }\n")

	script := `
for _, c := range walk(root()) {
    emit([c["kind"], c["depth"]])
}
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))

	got := rt.Results()
	require.NotEmpty(t, got)
	assert.Equal(t, []any{"FUNCTION_DECL", int64(1)}, got[0])
	assert.Equal(t, []any{"PARM_DECL", int64(2)}, got[1])
	assert.Equal(t, []any{"COMPOUND_STMT", int64(2)}, got[2])
	assert.Equal(t, []any{"RETURN_STMT", int64(3)}, got[3])

	// Each run starts with no results.
	require.NoError(t, rt.RunSource(context.Background(), `x := 1`, nil))
	assert.Empty(t, rt.Results())
}

func TestRunSource_ReferencedAndDefinition(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t, cTestSource)

	script := `
calls := []
for _, c := range walk(root()) {
    if c["kind"] == "CALL_EXPR" {
        calls.append(c)
    }
}
assert(len(calls) == 2, 'expected 2 calls, got {len(calls)}')

callee := referenced(calls[0])
assert(callee["spelling"] == "sq")
assert(callee["is_definition"])
assert(callee["usr"] != "")

def := definition(callee)
assert(def["id"] == callee["id"], "a definition is its own definition")

// Statements refer to nothing.
body := children(children(root())[1])[1]
assert(referenced(body) == nil)
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestRunSource_TypesAndTokens(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t, cTestSource)

	script := `
origin := children(root())[3]
ty := type_of(origin)
assert(ty["kind"] == "INT", 'got {ty["kind"]}')
assert(ty["spelling"] == "int")
assert(ty["size"] == 4)

toks := tokens(origin)
assert(len(toks) == 4, 'got {len(toks)}')
assert(toks[0]["kind"] == "KEYWORD")
assert(toks[1]["spelling"] == "origin")
assert(toks[3]["kind"] == "LITERAL")
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestRunSource_CursorAt(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t, cTestSource)

	script := `
c := cursor_at(main_file, 3, 12)
assert(c["kind"] == "FUNCTION_DECL", 'got {c["kind"]}')
assert(c["spelling"] == "sq")
assert(c["line"] == 3)
assert(c["col"] == 12)
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))

	err := rt.RunSource(context.Background(), `cursor_at("missing.c", 1, 1)`, nil)
	assert.Error(t, err)
}

func TestRunSource_Diagnostics(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t, "static void unused(void) {}\n")

	script := `
for _, d := range diagnostics() {
    emit(d)
}
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
	got := rt.Results()
	require.Len(t, got, 1)
	d := got[0].(map[string]any)
	assert.Equal(t, "warning", d["severity"])
	assert.Equal(t, "unused function 'unused'", d["spelling"])
	assert.Equal(t, "-Wunused-function", d["option"])
	assert.Equal(t, int64(1), d["line"])
	assert.Equal(t, int64(13), d["col"])
}

func TestRunSource_TSQuery(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t, cTestSource)

	script := `
matches := ts_query("(function_definition declarator: (function_declarator declarator: (identifier) @name))")
assert(len(matches) == 2, 'expected 2 matches, got {len(matches)}')
first := matches[0]["name"]
assert(first["text"] == "sq")
assert(first["line"] == 3)
assert(first["cursor"]["kind"] == "FUNCTION_DECL", 'got {first["cursor"]["kind"]}')
assert(matches[1]["name"]["text"] == "norm")

none := ts_query("(goto_statement) @g")
assert(len(none) == 0)
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))

	err := rt.RunSource(context.Background(), `ts_query("(not_a_real_node_type @x)")`, nil)
	assert.Error(t, err)
}

func TestRunSource_BadCursorArgument(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t, cTestSource)

	tests := []struct {
		name   string
		script string
	}{
		{"unknown id", `children(999)`},
		{"wrong type", `children("root")`},
		{"map without id", `children({"kind": "x"})`},
		{"arity", `children()`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, rt.RunSource(context.Background(), tt.script, nil))
		})
	}
}

func TestRunSource_StaleAfterReparse(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t, cTestSource)

	require.NoError(t, rt.RunSource(context.Background(), `emit(children(root())[1]["id"])`, nil))
	id := rt.Results()[0]

	require.NoError(t, rt.tu.Reparse(context.Background(), []cindex.UnsavedFile{{Name: "t.c", Contents: []byte(cTestSource)}}))

	err := rt.RunSource(context.Background(), `children(cursor)`, map[string]any{"cursor": id})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "predates reparse")
}

func TestRunSource_NoUnit(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(nil, "")
	assert.Error(t, rt.RunSource(context.Background(), `root()`, nil))
	require.NoError(t, rt.RunSource(context.Background(), `emit(1 + 2)`, nil))
	assert.Equal(t, []any{int64(3)}, rt.Results())
}

func TestRunSource_LogGoesToLogger(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	rt := NewRuntime(nil, "", WithLogger(logger))

	require.NoError(t, rt.RunSource(context.Background(), `log.Warn("careful")`, nil))
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "msg=careful")
	assert.Contains(t, buf.String(), "source=script")
}

// --- Script loading ---

func TestRunScript_LoadsFile(t *testing.T) {
	dir := t.TempDir()

	scriptPath := filepath.Join(dir, "test.risor")
	if err := os.WriteFile(scriptPath, []byte(`result := 1 + 1`), 0644); err != nil {
		t.Fatalf("writing script: %v", err)
	}

	rt := NewRuntime(nil, dir)
	ctx := context.Background()

	err := rt.RunScript(ctx, "test.risor", nil)
	if err != nil {
		t.Fatalf("RunScript: %v", err)
	}
}

func TestRunScript_MissingFile(t *testing.T) {
	rt := NewRuntime(nil, t.TempDir())
	ctx := context.Background()

	err := rt.RunScript(ctx, "nonexistent.risor", nil)
	if err == nil {
		t.Fatal("expected error for missing script, got nil")
	}
}

func TestLoadScript(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.risor")
	content := `x := 42`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing: %v", err)
	}

	rt := NewRuntime(nil, dir)
	got, err := rt.LoadScript(path)
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	if got != content {
		t.Errorf("LoadScript = %q, want %q", got, content)
	}
}

func TestVisitorScriptPath(t *testing.T) {
	t.Parallel()
	got := VisitorScriptPath("outline")
	if got != filepath.Join("visit", "outline.risor") {
		t.Errorf("VisitorScriptPath(\"outline\") = %q", got)
	}
}

func TestLoadScript_FromFSFS(t *testing.T) {
	t.Parallel()

	content := `x := 42`
	mapFS := fstest.MapFS{
		"visit/outline.risor": &fstest.MapFile{Data: []byte(content)},
	}

	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))

	got, err := rt.LoadScript("visit/outline.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	// Absolute-style paths resolve within the FS.
	got, err = rt.LoadScript("/visit/outline.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLoadScript_FromFSFS_NotFound(t *testing.T) {
	t.Parallel()

	rt := NewRuntime(nil, "", WithRuntimeFS(fstest.MapFS{}))

	_, err := rt.LoadScript("nonexistent.risor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from fs")
}

func TestRunScript_FromFSFS(t *testing.T) {
	mapFS := fstest.MapFS{
		"test.risor": &fstest.MapFile{Data: []byte(`emit(len(children(root())))`)},
	}

	rt := newTestRuntime(t, cTestSource, WithRuntimeFS(mapFS))
	require.NoError(t, rt.RunScript(context.Background(), "test.risor", nil))
	assert.Equal(t, []any{int64(4)}, rt.Results())
}

// --- Importer wiring ---

func TestImport_FSImporter(t *testing.T) {
	// Risor's FSImporter resolves "lib_helpers" by trying name + ".risor",
	// so the file must be at the flat path "lib_helpers.risor" in the FS.
	mapFS := fstest.MapFS{
		"lib_helpers.risor": &fstest.MapFile{Data: []byte(`
func greet(name) {
	return "hello " + name
}
`)},
	}

	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))

	script := `
import lib_helpers

msg := lib_helpers.greet("world")
assert(msg == "hello world", 'expected "hello world", got ' + msg)
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestImport_LocalImporter(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "math_utils.risor"), []byte(`
func double(x) {
	return x * 2
}
`), 0644))

	rt := NewRuntime(nil, dir)

	script := `
import math_utils

result := math_utils.double(21)
assert(result == 42, 'expected 42, got {result}')
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestImport_GlobalsAvailableInImportedModules(t *testing.T) {
	// Imported modules see the host globals, here the cursor functions.
	mapFS := fstest.MapFS{
		"helper.risor": &fstest.MapFile{Data: []byte(`
func top_level_count() {
	return len(children(root()))
}
`)},
	}

	rt := newTestRuntime(t, cTestSource, WithRuntimeFS(mapFS))

	script := `
import helper
emit(helper.top_level_count())
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
	assert.Equal(t, []any{int64(4)}, rt.Results())
}

func TestNewRuntime_Defaults(t *testing.T) {
	t.Parallel()

	rt := NewRuntime(nil, "/some/dir")
	require.NotNil(t, rt)
	assert.Nil(t, rt.fsys)
	assert.Equal(t, "/some/dir", rt.scriptsDir)
	assert.NotNil(t, rt.logger)
}
