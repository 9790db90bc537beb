package runtime

import (
	"context"
	"errors"
	"log/slog"

	"github.com/risor-io/risor/object"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/cindex"
	"github.com/jward/cindex/internal/engine"
)

// handleTable gives cursors stable integer ids so scripts can pass them
// back to host functions. Risor maps cannot carry Go values.
type handleTable struct {
	cursors []cindex.Cursor
	byHash  map[uint64][]int64
}

func newHandleTable() *handleTable {
	return &handleTable{byHash: make(map[uint64][]int64)}
}

func (h *handleTable) id(c cindex.Cursor) int64 {
	key := c.Hash()
	for _, id := range h.byHash[key] {
		if h.cursors[id].Equal(c) {
			return id
		}
	}
	id := int64(len(h.cursors))
	h.cursors = append(h.cursors, c)
	h.byHash[key] = append(h.byHash[key], id)
	return id
}

func (h *handleTable) get(id int64) (cindex.Cursor, bool) {
	if id < 0 || id >= int64(len(h.cursors)) {
		return cindex.Cursor{}, false
	}
	return h.cursors[id], true
}

// cursorObject renders c as a map. The "id" key is what host functions
// take back.
func (r *Runtime) cursorObject(c cindex.Cursor) object.Object {
	if c.IsNull() {
		return object.Nil
	}
	return object.NewMap(r.cursorFields(c))
}

func (r *Runtime) cursorFields(c cindex.Cursor) map[string]object.Object {
	m := map[string]object.Object{
		"id":      object.NewInt(r.handles.id(c)),
		"kind":    object.NewString(c.Kind().String()),
		"is_decl": object.NewBool(c.Kind().IsDeclaration()),
		"is_expr": object.NewBool(c.Kind().IsExpression()),
	}
	spelling, _, _ := c.Spelling()
	m["spelling"] = object.NewString(spelling)
	display, _ := c.DisplayName()
	m["display"] = object.NewString(display)

	// Every key is present on every cursor.
	file, line, col := "", 0, 0
	if loc, err := c.Location(); err == nil && !loc.IsNull() {
		file, line, col = loc.File().Name(), loc.Line(), loc.Column()
	}
	m["file"] = object.NewString(file)
	m["line"] = object.NewInt(int64(line))
	m["col"] = object.NewInt(int64(col))

	usr, def := "", false
	if c.Kind().IsDeclaration() {
		usr, _ = c.USR()
		def, _ = c.IsDefinition()
	}
	m["usr"] = object.NewString(usr)
	m["is_definition"] = object.NewBool(def)
	return m
}

// cursorArg accepts a cursor map or its id.
func (r *Runtime) cursorArg(obj object.Object) (cindex.Cursor, error) {
	var id int64
	if m, err := extractMap(obj); err == nil {
		if _, ok := m["id"]; !ok {
			return cindex.Cursor{}, errors.New("cursor map has no id")
		}
		id = getInt64(m, "id")
	} else if id, err = toInt64(obj); err != nil {
		return cindex.Cursor{}, errors.New("expected cursor map or id")
	}
	c, ok := r.handles.get(id)
	if !ok {
		return cindex.Cursor{}, errors.New("unknown cursor id")
	}
	return c, nil
}

func (r *Runtime) cursorList(cs []cindex.Cursor) object.Object {
	items := make([]object.Object, 0, len(cs))
	for _, c := range cs {
		items = append(items, r.cursorObject(c))
	}
	return listOf(items)
}

// cursorFn builds a one-argument host function over a cursor.
func cursorFn(r *Runtime, name string, fn func(c cindex.Cursor) (object.Object, error)) *object.Builtin {
	return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError(name, 1, len(args))
		}
		c, err := r.cursorArg(args[0])
		if err != nil {
			return object.Errorf("%s: %v", name, err)
		}
		out, err := fn(c)
		if err != nil {
			return object.Errorf("%s: %v", name, err)
		}
		return out
	})
}

// optional maps the "no such entity" errors to nil.
func optional(err error) error {
	if errors.Is(err, cindex.ErrWrongKind) || errors.Is(err, cindex.ErrNotFound) {
		return nil
	}
	return err
}

// root() → cursor
func makeRootFn(r *Runtime) *object.Builtin {
	return object.NewBuiltin("root", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("root", 0, len(args))
		}
		c, err := r.tu.Cursor()
		if err != nil {
			return object.Errorf("root: %v", err)
		}
		return r.cursorObject(c)
	})
}

// children(c) → []cursor
func makeChildrenFn(r *Runtime) *object.Builtin {
	return cursorFn(r, "children", func(c cindex.Cursor) (object.Object, error) {
		kids, err := c.Children()
		if err != nil {
			return nil, err
		}
		return r.cursorList(kids), nil
	})
}

// walk(c) → []cursor, every descendant of c in document order with a
// "depth" key (1 for direct children).
func makeWalkFn(r *Runtime) *object.Builtin {
	return cursorFn(r, "walk", func(c cindex.Cursor) (object.Object, error) {
		depth := map[int64]int64{r.handles.id(c): 0}
		var items []object.Object
		err := c.Visit(func(child, parent cindex.Cursor) cindex.VisitResult {
			d := depth[r.handles.id(parent)] + 1
			depth[r.handles.id(child)] = d
			fields := r.cursorFields(child)
			fields["depth"] = object.NewInt(d)
			items = append(items, object.NewMap(fields))
			return cindex.VisitRecurse
		})
		if err != nil {
			return nil, err
		}
		return listOf(items), nil
	})
}

// parent(c) → semantic parent or nil
func makeParentFn(r *Runtime) *object.Builtin {
	return cursorFn(r, "parent", func(c cindex.Cursor) (object.Object, error) {
		p, err := c.SemanticParent()
		if err != nil {
			return nil, err
		}
		return r.cursorObject(p), nil
	})
}

// referenced(c) → the entity c refers to, or nil
func makeReferencedFn(r *Runtime) *object.Builtin {
	return cursorFn(r, "referenced", func(c cindex.Cursor) (object.Object, error) {
		ref, err := c.Referenced()
		if err != nil {
			return object.Nil, optional(err)
		}
		return r.cursorObject(ref), nil
	})
}

// definition(c) → the defining declaration, or nil
func makeDefinitionFn(r *Runtime) *object.Builtin {
	return cursorFn(r, "definition", func(c cindex.Cursor) (object.Object, error) {
		def, err := c.Definition()
		if err != nil {
			return object.Nil, optional(err)
		}
		return r.cursorObject(def), nil
	})
}

// type_of(c) → {kind, spelling, size} or nil
func makeTypeOfFn(r *Runtime) *object.Builtin {
	return cursorFn(r, "type_of", func(c cindex.Cursor) (object.Object, error) {
		t, err := c.Type()
		if err != nil {
			return object.Nil, optional(err)
		}
		spelling, _ := t.Spelling()
		m := map[string]object.Object{
			"kind":     object.NewString(t.Kind().String()),
			"spelling": object.NewString(spelling),
		}
		if size, err := t.SizeOf(); err == nil {
			m["size"] = object.NewInt(size)
		}
		return object.NewMap(m), nil
	})
}

// tokens(c) → []{kind, spelling, line, col}
func makeTokensFn(r *Runtime) *object.Builtin {
	return cursorFn(r, "tokens", func(c cindex.Cursor) (object.Object, error) {
		toks, err := c.Tokens()
		if err != nil {
			return nil, err
		}
		items := make([]object.Object, 0, len(toks))
		for _, t := range toks {
			loc := t.Location()
			items = append(items, object.NewMap(map[string]object.Object{
				"kind":     object.NewString(t.Kind().String()),
				"spelling": object.NewString(t.Spelling()),
				"line":     object.NewInt(int64(loc.Line())),
				"col":      object.NewInt(int64(loc.Column())),
			}))
		}
		return listOf(items), nil
	})
}

// cursor_at(file, line, col) → cursor
func makeCursorAtFn(r *Runtime) *object.Builtin {
	return object.NewBuiltin("cursor_at", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 3 {
			return object.NewArgsError("cursor_at", 3, len(args))
		}
		file, err := toString(args[0])
		if err != nil {
			return object.Errorf("cursor_at: file: %v", err)
		}
		line, err := toInt64(args[1])
		if err != nil {
			return object.Errorf("cursor_at: line: %v", err)
		}
		col, err := toInt64(args[2])
		if err != nil {
			return object.Errorf("cursor_at: column: %v", err)
		}
		loc, err := cindex.NewSourceLocation(cindex.WithFilename(r.tu, file), cindex.AtPosition(int(line), int(col)))
		if err != nil {
			return object.Errorf("cursor_at: %v", err)
		}
		c, err := r.tu.CursorAt(loc)
		if err != nil {
			return object.Errorf("cursor_at: %v", err)
		}
		return r.cursorObject(c)
	})
}

// diagnostics() → []{severity, spelling, option, line, col, text}
func makeDiagnosticsFn(r *Runtime) *object.Builtin {
	return object.NewBuiltin("diagnostics", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("diagnostics", 0, len(args))
		}
		var items []object.Object
		for _, d := range r.tu.Diagnostics().All() {
			loc, err := d.Location()
			if err != nil {
				return object.Errorf("diagnostics: %v", err)
			}
			items = append(items, object.NewMap(map[string]object.Object{
				"severity": object.NewString(d.Severity().String()),
				"spelling": object.NewString(d.Spelling()),
				"option":   object.NewString(d.EnablingOption()),
				"line":     object.NewInt(int64(loc.Line())),
				"col":      object.NewInt(int64(loc.Column())),
				"text":     object.NewString(d.String()),
			}))
		}
		return listOf(items)
	})
}

// ts_query(pattern) → []map[capture]{text, line, col, cursor}
//
// Runs a tree-sitter query over the raw main file, for syntax the cursor
// tree does not model. Each capture carries the innermost cursor at its
// start.
func makeTSQueryFn(r *Runtime) *object.Builtin {
	return object.NewBuiltin("ts_query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("ts_query", 1, len(args))
		}
		pattern, err := toString(args[0])
		if err != nil {
			return object.Errorf("ts_query: pattern: %v", err)
		}
		f, err := r.tu.File(r.tu.Spelling())
		if err != nil {
			return object.Errorf("ts_query: %v", err)
		}
		src, err := f.Contents()
		if err != nil {
			return object.Errorf("ts_query: %v", err)
		}
		lang := engine.Grammar(engine.LangForFile(f.Name(), nil))

		parser := sitter.NewParser()
		defer parser.Close()
		parser.SetLanguage(lang)
		tree, err := parser.ParseCtx(ctx, nil, src)
		if err != nil {
			return object.Errorf("ts_query: tree-sitter parse failed: %v", err)
		}
		defer tree.Close()

		q, err := sitter.NewQuery([]byte(pattern), lang)
		if err != nil {
			return object.Errorf("ts_query: invalid pattern: %v", err)
		}
		defer q.Close()

		qc := sitter.NewQueryCursor()
		defer qc.Close()
		qc.Exec(q, tree.RootNode())

		var results []object.Object
		for {
			match, ok := qc.NextMatch()
			if !ok {
				break
			}
			match = qc.FilterPredicates(match, src)

			captures := make(map[string]object.Object)
			for _, capture := range match.Captures {
				n := capture.Node
				start := n.StartPoint()
				entry := map[string]object.Object{
					"text": object.NewString(n.Content(src)),
					"line": object.NewInt(int64(start.Row) + 1),
					"col":  object.NewInt(int64(start.Column) + 1),
				}
				loc, err := cindex.NewSourceLocation(cindex.WithFile(f), cindex.AtOffset(int(n.StartByte())))
				if err == nil {
					if c, err := r.tu.CursorAt(loc); err == nil {
						entry["cursor"] = r.cursorObject(c)
					}
				}
				captures[q.CaptureNameForId(capture.Index)] = object.NewMap(entry)
			}
			results = append(results, object.NewMap(captures))
		}
		return listOf(results)
	})
}

// emit(value) records a result for the host.
func makeEmitFn(r *Runtime) *object.Builtin {
	return object.NewBuiltin("emit", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("emit", 1, len(args))
		}
		r.mu.Lock()
		r.results = append(r.results, toGo(args[0]))
		r.mu.Unlock()
		return object.Nil
	})
}

// logObject provides log.Info/Warn/Error methods for Risor scripts.
type logObject struct {
	logger *slog.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Info(msg, "source", "script")
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn(msg, "source", "script")
}

func (l *logObject) Error(msg string) {
	l.logger.Error(msg, "source", "script")
}
