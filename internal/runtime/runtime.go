package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"

	"github.com/jward/cindex"
)

// Runtime embeds a Risor VM and exposes the cursors of one translation
// unit to visitor scripts.
type Runtime struct {
	tu         *cindex.TranslationUnit
	scriptsDir string
	fsys       fs.FS
	logger     *slog.Logger
	handles    *handleTable

	mu      sync.Mutex
	results []any
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load scripts from an fs.FS
// instead of from disk. Also configures the Risor importer to use
// FSImporter for import statement resolution.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithLogger routes the script "log" global to l.
func WithLogger(l *slog.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.logger = l
	}
}

// NewRuntime creates a Runtime over tu and a scripts directory. tu may be
// nil, in which case only the generic globals are available.
func NewRuntime(tu *cindex.TranslationUnit, scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		tu:         tu,
		scriptsDir: scriptsDir,
		logger:     slog.Default(),
		handles:    newHandleTable(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunScript loads and executes a Risor script with all standard globals
// plus any extra globals provided by the caller.
func (r *Runtime) RunScript(ctx context.Context, scriptPath string, extraGlobals map[string]any) error {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return err
	}
	return r.eval(ctx, src, scriptPath, extraGlobals)
}

// RunSource executes Risor source code directly with all standard globals
// plus any extra globals. Useful for testing without script files.
func (r *Runtime) RunSource(ctx context.Context, source string, extraGlobals map[string]any) error {
	return r.eval(ctx, source, "<inline>", extraGlobals)
}

// Results returns the values the last run passed to emit, converted to
// Go values.
func (r *Runtime) Results() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any(nil), r.results...)
}

func (r *Runtime) eval(ctx context.Context, source, label string, extraGlobals map[string]any) error {
	r.mu.Lock()
	r.results = nil
	r.mu.Unlock()

	globals := r.buildGlobals(extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}

	// Wire importer so Risor import statements resolve correctly.
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	_, err := risor.Eval(ctx, source, opts...)
	if err != nil {
		return fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return nil
}

// buildImporter returns a Risor importer configured for the Runtime's script source.
// Returns nil if neither fs.FS nor scriptsDir is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file and returns its source code.
// When an fs.FS is configured, uses fs.ReadFile on the embedded filesystem.
// Otherwise, uses os.ReadFile with scriptsDir as the base directory.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(r.scriptsDir, path)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// VisitorScriptPath returns the path of a named visitor script.
func VisitorScriptPath(name string) string {
	return filepath.Join("visit", name+".risor")
}

// buildGlobals constructs the full set of globals exposed to Risor scripts.
func (r *Runtime) buildGlobals(extra map[string]any) map[string]any {
	globals := map[string]any{
		"emit": makeEmitFn(r),
		"log":  mustProxy(&logObject{logger: r.logger}),
	}

	// Cursor access needs a unit (nil in some tests).
	if r.tu != nil {
		globals["main_file"] = r.tu.Spelling()
		globals["root"] = makeRootFn(r)
		globals["children"] = makeChildrenFn(r)
		globals["walk"] = makeWalkFn(r)
		globals["parent"] = makeParentFn(r)
		globals["referenced"] = makeReferencedFn(r)
		globals["definition"] = makeDefinitionFn(r)
		globals["type_of"] = makeTypeOfFn(r)
		globals["tokens"] = makeTokensFn(r)
		globals["cursor_at"] = makeCursorAtFn(r)
		globals["diagnostics"] = makeDiagnosticsFn(r)
		globals["ts_query"] = makeTSQueryFn(r)
	}

	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
