package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// envelope decodes a CLIResult with typed results.
type envelope[T any] struct {
	Command    string `json:"command"`
	Results    T      `json:"results"`
	TotalCount *int   `json:"total_count"`
	Error      string `json:"error"`
}

// runCLI executes the root command with a config from dir and returns
// stdout, stderr and the command error.
func runCLI(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	return runCLIContext(context.Background(), t, dir, args...)
}

func runCLIContext(ctx context.Context, t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	cfg := filepath.Join(dir, ".cindex.yaml")
	if _, err := os.Stat(cfg); os.IsNotExist(err) {
		require.NoError(t, os.WriteFile(cfg, []byte("{}\n"), 0o644))
	}
	root, _ := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config", cfg}, args...))
	err := root.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func decode[T any](t *testing.T, out string) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal([]byte(out), &env), out)
	return env
}

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func findCLICursor(cs []CLICursor, kind, spelling string) (CLICursor, bool) {
	for _, c := range cs {
		if c.Kind == kind && c.Spelling == spelling {
			return c, true
		}
	}
	return CLICursor{}, false
}

func TestFindRepoRoot_DirectGitDir(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}

	got := findRepoRoot(root)
	assert.Equal(t, root, got)
}

func TestFindRepoRoot_NestedSubdirectory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	deep := filepath.Join(root, "sub", "deep")
	if err := os.MkdirAll(deep, 0o755); err != nil {
		t.Fatal(err)
	}

	got := findRepoRoot(deep)
	assert.Equal(t, root, got)
}

func TestFindRepoRoot_NoGitAncestor(t *testing.T) {
	t.Parallel()
	// TempDir has no .git directory anywhere in its ancestry
	// (unless /tmp itself is a repo, which would be unusual).
	dir := t.TempDir()

	got := findRepoRoot(dir)
	assert.Equal(t, dir, got)
}

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validateFormat("json"))
	assert.NoError(t, validateFormat("text"))
	assert.ErrorContains(t, validateFormat("yaml"), "must be json or text")

	dir := t.TempDir()
	_, _, err := runCLI(t, dir, "--format", "yaml", "dump", "x.c")
	assert.ErrorContains(t, err, "invalid format")
}

func TestParsePosition(t *testing.T) {
	t.Parallel()
	line, col, err := parsePosition("12:7")
	require.NoError(t, err)
	assert.Equal(t, 12, line)
	assert.Equal(t, 7, col)

	for _, bad := range []string{"12", "a:1", "1:b", ""} {
		_, _, err := parsePosition(bad)
		assert.Error(t, err, bad)
	}
}

func TestDump_JSON(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeFile(t, dir, "t.c", "int add(int a, int b) { return a + b; }\n")

	out, _, err := runCLI(t, dir, "dump", path)
	require.NoError(t, err)
	env := decode[[]CLICursor](t, out)
	assert.Equal(t, "dump", env.Command)
	require.NotEmpty(t, env.Results)
	assert.Equal(t, "TRANSLATION_UNIT", env.Results[0].Kind)
	assert.Equal(t, 0, env.Results[0].Depth)

	fn, ok := findCLICursor(env.Results, "FUNCTION_DECL", "add")
	require.True(t, ok)
	assert.True(t, fn.Definition)
	assert.Equal(t, 1, fn.Depth)
	assert.Equal(t, 1, fn.Line)
	assert.NotEmpty(t, fn.USR)

	parm, ok := findCLICursor(env.Results, "PARM_DECL", "b")
	require.True(t, ok)
	assert.Equal(t, 2, parm.Depth)
	assert.Equal(t, "int", parm.Type)
}

func TestDump_TextDepthAndDefines(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, ".cindex.yaml", "defines: [WIDE]\n")
	path := writeFile(t, dir, "t.c", "#ifdef WIDE\nlong w(void) { return 1; }\n#else\nint n;\n#endif\n")

	out, _, err := runCLI(t, dir, "--format", "text", "dump", "--depth", "1", path)
	require.NoError(t, err)
	assert.Contains(t, out, "TRANSLATION_UNIT")
	assert.Contains(t, out, "  FUNCTION_DECL w")
	assert.NotContains(t, out, "VAR_DECL n")
	assert.NotContains(t, out, "COMPOUND_STMT", "depth 1 stops at top-level declarations")

	// Flag arguments are added after the config's.
	out, _, err = runCLI(t, dir, "--format", "text", "--arg=-UWIDE", "dump", path)
	require.NoError(t, err)
	assert.Contains(t, out, "VAR_DECL n")
}

func TestDump_Stdin(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := writeFile(t, dir, ".cindex.yaml", "{}\n")

	root, _ := newRootCmd()
	var stdout bytes.Buffer
	root.SetOut(&stdout)
	root.SetIn(strings.NewReader("int from_stdin;\n"))
	root.SetArgs([]string{"--config", cfg, "dump", "-"})
	require.NoError(t, root.Execute())

	env := decode[[]CLICursor](t, stdout.String())
	_, ok := findCLICursor(env.Results, "VAR_DECL", "from_stdin")
	assert.True(t, ok)
}

func TestDump_ErrorEnvelope(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	out, _, err := runCLI(t, dir, "dump", filepath.Join(dir, "missing.c"))
	require.Error(t, err)
	env := decode[any](t, out)
	assert.Equal(t, "dump", env.Command)
	assert.NotEmpty(t, env.Error)

	_, stderr, err := runCLI(t, dir, "--format", "text", "dump", filepath.Join(dir, "missing.c"))
	require.Error(t, err)
	assert.Contains(t, stderr, "Error:")
}

func TestTokens(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeFile(t, dir, "t.c", "int x;\nint y;\n")

	out, _, err := runCLI(t, dir, "tokens", path)
	require.NoError(t, err)
	env := decode[[]CLIToken](t, out)
	require.Len(t, env.Results, 6)
	assert.Equal(t, CLIToken{Kind: "KEYWORD", Spelling: "int", Line: 1, Col: 1}, env.Results[0])
	assert.Equal(t, "IDENTIFIER", env.Results[1].Kind)
	assert.Equal(t, "PUNCTUATION", env.Results[2].Kind)

	out, _, err = runCLI(t, dir, "tokens", "--from", "2:1", path)
	require.NoError(t, err)
	env = decode[[]CLIToken](t, out)
	require.Len(t, env.Results, 3)
	assert.Equal(t, "y", env.Results[1].Spelling)

	_, _, err = runCLI(t, dir, "tokens", "--from", "nope", path)
	assert.Error(t, err)
}

func TestDiag(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeFile(t, dir, "t.c", "static void helper(void) {}\nint i\n")

	out, _, err := runCLI(t, dir, "diag", path)
	require.NoError(t, err)
	env := decode[[]CLIDiagnostic](t, out)
	var severities []string
	for _, d := range env.Results {
		severities = append(severities, d.Severity)
	}
	assert.Contains(t, severities, "warning")
	assert.Contains(t, severities, "error")

	out, _, err = runCLI(t, dir, "diag", "--min-severity", "error", path)
	require.NoError(t, err)
	env = decode[[]CLIDiagnostic](t, out)
	require.NotEmpty(t, env.Results)
	for _, d := range env.Results {
		assert.Equal(t, "error", d.Severity)
		assert.NotEmpty(t, d.Message)
	}

	_, _, err = runCLI(t, dir, "diag", "--min-severity", "loud", path)
	assert.ErrorContains(t, err, "invalid severity")
}

func TestComplete(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeFile(t, dir, "t.c", "#define ALPHA_MAX 10\nint alpha;\nint alphabet;\nvoid g(void) {\n  al\n}\n")

	out, _, err := runCLI(t, dir, "complete", path, "5:5")
	require.NoError(t, err)
	env := decode[[]CLICompletion](t, out)
	var texts []string
	for _, c := range env.Results {
		texts = append(texts, c.Text)
	}
	assert.Contains(t, texts, "alpha")
	assert.Contains(t, texts, "alphabet")
	assert.Contains(t, texts, "ALPHA_MAX")
	require.NotNil(t, env.TotalCount)
	assert.Equal(t, len(env.Results), *env.TotalCount)

	out, _, err = runCLI(t, dir, "complete", "--no-macros", "--limit", "1", path, "5:5")
	require.NoError(t, err)
	env = decode[[]CLICompletion](t, out)
	require.Len(t, env.Results, 1)
	assert.Greater(t, *env.TotalCount, 1)
	assert.NotEqual(t, "ALPHA_MAX", env.Results[0].Text)
}

func TestComplete_Edited(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeFile(t, dir, "t.c", "int counter;\n")
	edited := writeFile(t, dir, "edited.c", "int counter;\nint main(void) { return cou; }\n")

	out, _, err := runCLI(t, dir, "complete", "--edited", edited, path, "2:28")
	require.NoError(t, err)
	env := decode[[]CLICompletion](t, out)
	require.NotEmpty(t, env.Results)
	assert.Equal(t, "counter", env.Results[0].Text)
}

func TestSaveLoad(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeFile(t, dir, "t.c", "struct P { int x; };\nstatic void helper(void) {}\nint global = 3;\n")
	saved := filepath.Join(dir, "t.ast")

	out, _, err := runCLI(t, dir, "save", path, saved)
	require.NoError(t, err)
	assert.Equal(t, saved, decode[CLISaved](t, out).Results.Path)
	assert.FileExists(t, saved)

	out, _, err = runCLI(t, dir, "load", saved)
	require.NoError(t, err)
	loaded := decode[[]CLICursor](t, out)
	require.Len(t, loaded.Results, 4)
	_, ok := findCLICursor(loaded.Results, "VAR_DECL", "global")
	assert.True(t, ok)

	out, _, err = runCLI(t, dir, "diag", "--saved", saved)
	require.NoError(t, err)
	diags := decode[[]CLIDiagnostic](t, out)
	require.Len(t, diags.Results, 1)
	assert.Equal(t, "unused function 'helper'", diags.Results[0].Message)
}

func TestSave_RefusesErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeFile(t, dir, "t.c", "int i\n")

	_, _, err := runCLI(t, dir, "save", path, filepath.Join(dir, "t.ast"))
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "t.ast"))
}

const scriptSource = `struct point { int x; int y; };

int counter;
const char *name = "cindex";

static int sq(int v) { return v * v; }

int norm(struct point p) {
    counter++;
    return sq(p.x) + sq(p.y);
}
`

func TestScript_Bundled(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeFile(t, dir, "t.c", scriptSource)

	out, _, err := runCLI(t, dir, "script", path, "globals")
	require.NoError(t, err)
	env := decode[[]map[string]any](t, out)
	require.Len(t, env.Results, 2)
	assert.Equal(t, "counter", env.Results[0]["name"])
	assert.Equal(t, float64(3), env.Results[0]["line"])

	out, _, err = runCLI(t, dir, "script", path, "calls")
	require.NoError(t, err)
	calls := decode[[]map[string]any](t, out)
	require.Len(t, calls.Results, 2)
	assert.Equal(t, "norm(struct point)", calls.Results[0]["caller"])
	assert.Equal(t, "sq", calls.Results[0]["callee"])
}

func TestScript_EvalFileAndVars(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeFile(t, dir, "t.c", scriptSource)

	out, _, err := runCLI(t, dir, "script", path, "--eval", "emit(greeting)", "--set", "greeting=hi")
	require.NoError(t, err)
	assert.Equal(t, []any{"hi"}, decode[[]any](t, out).Results)

	script := writeFile(t, dir, "count.risor", "emit(len(children(root())))\n")
	out, _, err = runCLI(t, dir, "script", path, "--file", script)
	require.NoError(t, err)
	assert.Equal(t, []any{float64(5)}, decode[[]any](t, out).Results)

	_, _, err = runCLI(t, dir, "script", path)
	assert.ErrorContains(t, err, "exactly one")
	_, _, err = runCLI(t, dir, "script", path, "--eval", "1", "--set", "novalue")
	assert.ErrorContains(t, err, "NAME=VALUE")
	_, _, err = runCLI(t, dir, "script", path, "no-such-visitor")
	assert.Error(t, err)
}

const querySource = `namespace geo {
struct Shape { virtual double area() const; };
struct Circle : Shape { double area() const; };
struct Square : Shape { double area() const; };
double total(const Shape &s);
}

int helper(int x) { return x * 2; }

int run() {
  int a = helper(1);
  int b = helper(a);
  return a + b;
}
`

func TestQuery_DefinitionAndCallers(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeFile(t, dir, "q.cpp", querySource)

	out, _, err := runCLI(t, dir, "query", "definition", path, "11", "11")
	require.NoError(t, err)
	locs := decode[[]CLILocation](t, out)
	require.Len(t, locs.Results, 1)
	assert.Equal(t, 8, locs.Results[0].StartLine)

	out, _, err = runCLI(t, dir, "query", "callers", path, "8", "5")
	require.NoError(t, err)
	edges := decode[[]CLICallEdge](t, out)
	require.Len(t, edges.Results, 2)
	for _, e := range edges.Results {
		assert.Equal(t, "run", e.Caller)
		assert.Equal(t, "helper", e.Callee)
	}

	// Pointing at a call resolves to the callee.
	out, _, err = runCLI(t, dir, "query", "callers", "--limit", "1", path, "11", "11")
	require.NoError(t, err)
	edges = decode[[]CLICallEdge](t, out)
	assert.Len(t, edges.Results, 1)
	assert.Equal(t, 2, *edges.TotalCount)

	_, _, err = runCLI(t, dir, "query", "callers", path, "0", "1")
	assert.ErrorContains(t, err, "at least 1")
	_, _, err = runCLI(t, dir, "query", "callers", path, "7", "1")
	assert.ErrorContains(t, err, "no declaration")
}

func TestQuery_HierarchyAndSymbols(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeFile(t, dir, "q.cpp", querySource)

	out, _, err := runCLI(t, dir, "query", "subclasses", path, "2", "8")
	require.NoError(t, err)
	subs := decode[[]CLICursor](t, out)
	var names []string
	for _, c := range subs.Results {
		names = append(names, c.Spelling)
	}
	assert.Equal(t, []string{"Circle", "Square"}, names)

	out, _, err = runCLI(t, dir, "query", "symbols", path, "geo::*")
	require.NoError(t, err)
	syms := decode[[]CLISymbol](t, out)
	names = nil
	for _, s := range syms.Results {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"geo::Shape", "geo::Circle", "geo::Square", "geo::total"}, names)

	out, _, err = runCLI(t, dir, "--format", "text", "query", "symbols", path, "help*")
	require.NoError(t, err)
	assert.Contains(t, out, "helper")
	assert.Contains(t, out, "FUNCTION_DECL")
}

func TestQuery_Discovery(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeFile(t, dir, "q.cpp", querySource)
	symbolNames := func(syms []CLISymbol) []string {
		var out []string
		for _, s := range syms {
			out = append(out, s.Name)
		}
		return out
	}

	out, _, err := runCLI(t, dir, "query", "search", path, "--kind", "function_decl", "--sort", "name", "--limit", "2")
	require.NoError(t, err)
	found := decode[[]CLISymbol](t, out)
	assert.Equal(t, []string{"geo::total", "helper"}, symbolNames(found.Results))
	require.NotNil(t, found.TotalCount)
	assert.Equal(t, 3, *found.TotalCount)

	out, _, err = runCLI(t, dir, "query", "unused", path, "--kind", "FUNCTION_DECL")
	require.NoError(t, err)
	unused := decode[[]CLISymbol](t, out)
	assert.Equal(t, []string{"geo::total", "run"}, symbolNames(unused.Results))

	out, _, err = runCLI(t, dir, "query", "files", path)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, decode[[]string](t, out).Results)

	_, _, err = runCLI(t, dir, "query", "search", path, "--kind", "NOT_A_KIND")
	assert.ErrorContains(t, err, "unknown cursor kind")
	_, _, err = runCLI(t, dir, "query", "search", path, "--sort", "size")
	assert.ErrorContains(t, err, "invalid --sort")
}

func TestQuery_DetailAndScope(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeFile(t, dir, "q.cpp", querySource)

	out, _, err := runCLI(t, dir, "query", "symbol-detail", path, "8", "5")
	require.NoError(t, err)
	detail := decode[CLISymbolDetail](t, out)
	assert.Equal(t, "helper", detail.Results.Symbol.Name)
	require.Len(t, detail.Results.Parameters, 1)
	assert.Equal(t, "x", detail.Results.Parameters[0].Spelling)

	out, _, err = runCLI(t, dir, "query", "scope-at", path, "12", "3")
	require.NoError(t, err)
	var scopes []string
	for _, c := range decode[[]CLICursor](t, out).Results {
		scopes = append(scopes, c.Kind)
	}
	assert.Equal(t, []string{"COMPOUND_STMT", "FUNCTION_DECL", "TRANSLATION_UNIT"}, scopes)

	out, _, err = runCLI(t, dir, "--format", "text", "query", "symbol-detail", path, "8", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Parameters:")
}

func TestCheck(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "src/good.c", "int main(void) { return 0; }\n")
	writeFile(t, dir, "src/bad.c", "int i\n")
	writeFile(t, dir, "src/inc.h", "int not_parsed\n")
	writeFile(t, dir, "build/gen.c", "int excluded_by_config\n")
	writeFile(t, dir, "vendor/lib.c", "int excluded_by_gitignore\n")
	writeFile(t, dir, ".gitignore", "vendor/\n")

	out, _, err := runCLI(t, dir, "check", dir)
	require.ErrorContains(t, err, "1 of 2 files have errors")
	env := decode[[]CLIFileReport](t, out)
	require.Len(t, env.Results, 2)
	assert.Equal(t, "src/bad.c", env.Results[0].File)
	assert.Equal(t, 1, env.Results[0].Errors)
	assert.NotEmpty(t, env.Results[0].Error)
	assert.Equal(t, "src/good.c", env.Results[1].File)
	assert.Zero(t, env.Results[1].Errors)

	out, _, err = runCLI(t, dir, "check", "--include", "src/good.c", dir)
	require.NoError(t, err)
	assert.Len(t, decode[[]CLIFileReport](t, out).Results, 1)

	_, _, err = runCLI(t, dir, "check", "--include", "[", dir)
	assert.ErrorContains(t, err, "invalid --include")
}

func TestCheck_Werror(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "w.c", "static void helper(void) {}\n")

	_, _, err := runCLI(t, dir, "check", dir)
	require.NoError(t, err)
	_, _, err = runCLI(t, dir, "check", "--werror", dir)
	assert.ErrorContains(t, err, "1 of 1 files")
}

func TestWatch_ReparsesOnChange(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeFile(t, dir, "t.c", "int ok;\n")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	// Keep rewriting until the watcher has seen a change; the watch may
	// not be registered yet when the first write lands.
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				_ = os.WriteFile(path, []byte("int broken\n"), 0o644)
			}
		}
	}()

	out, _, err := runCLIContext(ctx, t, dir, "watch", "--count", "1", "--debounce", "30ms", path)
	close(done)
	require.NoError(t, err)
	require.NoError(t, ctx.Err(), "watch did not see the change")

	dec := json.NewDecoder(strings.NewReader(out))
	var first, second envelope[[]CLIDiagnostic]
	require.NoError(t, dec.Decode(&first))
	require.NoError(t, dec.Decode(&second))
	assert.Empty(t, first.Results)
	require.NotEmpty(t, second.Results)
	assert.Equal(t, "error", second.Results[0].Severity)
}

func TestWatchedFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "a.h", "int a;\n")
	path := writeFile(t, dir, "t.c", "#include \"a.h\"\nint b;\n")

	root, c := newRootCmd()
	root.SetContext(context.Background())
	root.SetErr(&bytes.Buffer{})
	c.configPath = writeFile(t, dir, ".cindex.yaml", "{}\n")
	require.NoError(t, c.setup(root))

	ix, tu, err := c.parse(root, path, 0)
	require.NoError(t, err)
	defer ix.Dispose()
	defer tu.Dispose()

	assert.ElementsMatch(t, []string{path, filepath.Join(dir, "a.h")}, watchedFiles(tu))
}

func TestQuery_TransitiveAndHierarchy(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeFile(t, dir, "g.cpp", `struct Base { int b; };
struct Part { int p; };
struct Derived : Base { Part part; };
static int leaf(int x) { return x; }
static int mid(int x) { return leaf(x); }
int top() { return mid(2); }
`)

	out, _, err := runCLI(t, dir, "query", "transitive-callers", path, "4", "12")
	require.NoError(t, err)
	g := decode[CLICallGraph](t, out)
	assert.Equal(t, "leaf", g.Results.Root)
	assert.Equal(t, 2, g.Results.Depth)
	require.Len(t, g.Results.Nodes, 3)
	assert.Equal(t, "top", g.Results.Nodes[2].Name)
	assert.Len(t, g.Results.Edges, 2)

	out, _, err = runCLI(t, dir, "query", "transitive-callees", "--depth", "1", path, "6", "5")
	require.NoError(t, err)
	g = decode[CLICallGraph](t, out)
	require.Len(t, g.Results.Nodes, 2)
	assert.Equal(t, "mid", g.Results.Nodes[1].Name)

	out, _, err = runCLI(t, dir, "query", "hierarchy", path, "3", "8")
	require.NoError(t, err)
	h := decode[CLIHierarchy](t, out)
	assert.Equal(t, "Derived", h.Results.Record)
	assert.Equal(t, []CLIRelation{{Name: "Base", Kind: "inheritance"}}, h.Results.Bases)
	assert.Equal(t, []CLIRelation{{Name: "Part", Kind: "composition"}}, h.Results.Composes)

	out, _, err = runCLI(t, dir, "--format", "text", "query", "hierarchy", path, "1", "8")
	require.NoError(t, err)
	assert.Contains(t, out, "Subclasses:\n  Derived (inheritance)")
}
