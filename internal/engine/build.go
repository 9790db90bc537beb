package engine

import (
	"context"
	"fmt"
	"time"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/cindex/kinds"
)

// scope is the builder's position: where new nodes are attached and
// which declaration they semantically belong to.
type scope struct {
	parent NodeID
	sem    NodeID
	record NodeID
	fn     NodeID
	access kinds.AccessSpecifier
	// tmpl is the template parameter list of an enclosing
	// template_declaration, consumed by the next declaration built.
	tmpl      *sitter.Node
	tmplStart uint32
}

type builder struct {
	ctx    context.Context
	u      *Unit
	cfg    *config
	vfs    *vfs
	cache  *Cache
	parser *sitter.Parser
	policy *diagPolicy
	cpp    bool

	file  FileID
	src   []byte
	stack []FileID

	// preamble is set while building headers included from the leading
	// directive block of the main file.
	preamble     bool
	preambleDone bool

	entered  map[FileID]bool
	inactive []Range
	deferred []NodeID
	err      error
}

func newBuilder(ctx context.Context, u *Unit, cfg *config, v *vfs, cache *Cache) *builder {
	p := sitter.NewParser()
	p.SetLanguage(Grammar(u.Lang))
	return &builder{
		ctx:     ctx,
		u:       u,
		cfg:     cfg,
		vfs:     v,
		cache:   cache,
		parser:  p,
		policy:  cfg.policy,
		cpp:     u.Lang == LangCPP,
		entered: make(map[FileID]bool),
	}
}

// addFile registers a file, reusing the id of one already opened under
// the same cleaned path.
func (u *Unit) addFile(name string, content []byte, mod time.Time, overlay bool) FileID {
	clean := cleanPath(name)
	for _, f := range u.Files {
		if cleanPath(f.Name) == clean {
			return f.ID
		}
	}
	id := FileID(len(u.Files) + 1)
	u.Files = append(u.Files, newSourceFile(id, name, content, mod, overlay))
	return id
}

// parseTree parses f. Preamble headers are served from the shared cache
// when precompiled preambles are requested; the caller owns the result.
func (b *builder) parseTree(f *SourceFile) (*sitter.Tree, error) {
	cacheable := b.preamble && b.cache != nil && b.u.Options&ParsePrecompiledPreamble != 0
	var key uint64
	if cacheable {
		key = b.cache.key(b.u.Lang, f.Name, f.Content)
		if t := b.cache.get(key); t != nil {
			return t, nil
		}
	}
	tree, err := b.parser.ParseCtx(b.ctx, nil, f.Content)
	if err != nil {
		return nil, fmt.Errorf("engine: parsing %s: %w", f.Name, err)
	}
	if cacheable {
		b.cache.put(key, tree.Copy())
	}
	return tree, nil
}

// buildFile parses one file and attaches its items under sc.
func (b *builder) buildFile(id FileID, sc scope) error {
	f := b.u.File(id)
	tree, err := b.parseTree(f)
	if err != nil {
		return err
	}
	defer tree.Close()

	prevFile, prevSrc := b.file, b.src
	b.file, b.src = id, f.Content
	b.stack = append(b.stack, id)
	b.entered[id] = true
	defer func() {
		b.file, b.src = prevFile, prevSrc
		b.stack = b.stack[:len(b.stack)-1]
	}()

	root := tree.RootNode()
	b.items(root, &sc, func(n *sitter.Node, sc *scope) {
		b.declItem(n, sc)
		if b.u.Options&ParseDetailedPreprocessingRecord != 0 {
			b.scanMacroUses(n.StartByte(), n.EndByte())
		}
	})
	return b.err
}

// items walks the named children of a container, handling directives
// in place and descending into the active branch of conditionals.
func (b *builder) items(n *sitter.Node, sc *scope, fn func(*sitter.Node, *scope)) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if b.err != nil {
			return
		}
		if err := b.ctx.Err(); err != nil {
			b.err = err
			return
		}
		c := n.NamedChild(i)
		b.item(c, sc, fn)
	}
}

func (b *builder) item(c *sitter.Node, sc *scope, fn func(*sitter.Node, *scope)) {
	switch c.Type() {
	case "comment":
	case "preproc_include":
		b.include(c, *sc)
	case "preproc_def", "preproc_function_def":
		b.define(c)
	case "preproc_call":
		b.directive(c)
	case "preproc_if", "preproc_ifdef":
		b.conditional(c, sc, fn)
	default:
		if !b.preambleDone && b.file == b.u.MainFile && c.Type() != "ERROR" {
			b.preambleDone = true
			b.u.PreambleEnd = c.StartByte()
		}
		b.syntax(c)
		fn(c, sc)
	}
}

// checkContainers are nodes whose children go through items, so the
// syntax walk only checks their unnamed tokens.
var checkContainers = map[string]bool{
	"compound_statement":     true,
	"field_declaration_list": true,
	"declaration_list":       true,
	"preproc_if":             true,
	"preproc_ifdef":          true,
}

// syntax reports ERROR and MISSING nodes under n.
func (b *builder) syntax(n *sitter.Node) {
	if !n.HasError() {
		return
	}
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch {
		case n.IsMissing():
			b.missing(n)
			return
		case n.IsError() || n.Type() == "ERROR":
			b.syntaxError(n)
			return
		}
		container := checkContainers[n.Type()]
		for i := 0; i < int(n.ChildCount()); i++ {
			c := n.Child(i)
			if container && c.IsNamed() {
				continue
			}
			walk(c)
		}
	}
	walk(n)
}

func (b *builder) missing(n *sitter.Node) {
	what := n.Type()
	msg := fmt.Sprintf("expected '%s'", what)
	if what == "identifier" || what == "field_identifier" || what == "type_identifier" {
		msg = "expected identifier"
	}
	at := Range{File: b.file, Start: n.StartByte(), End: n.StartByte()}
	d := Diagnostic{
		Severity: SeverityError,
		Loc:      Loc{File: b.file, Offset: n.StartByte()},
		Message:  msg,
		Category: CategoryParse,
	}
	if what != "" && len(what) <= 3 && !isIdentStart(what[0]) {
		d.FixIts = []FixIt{{Range: at, Text: what}}
	}
	b.emit(d)
}

func (b *builder) syntaxError(n *sitter.Node) {
	msg := "expected expression"
	if p := n.Parent(); p == nil || p.Type() == "translation_unit" || p.Type() == "declaration_list" ||
		p.Type() == "field_declaration_list" {
		msg = "expected unqualified-id"
	}
	start := n.StartByte()
	if n.ChildCount() > 0 {
		start = n.Child(0).StartByte()
	}
	b.emit(Diagnostic{
		Severity: SeverityError,
		Loc:      Loc{File: b.file, Offset: start},
		Message:  msg,
		Category: CategoryParse,
		Ranges:   []Range{b.rng(n)},
	})
}

// emit records d after applying warning flags.
func (b *builder) emit(d Diagnostic) {
	if b.policy.apply(&d) {
		b.u.Diags = append(b.u.Diags, d)
	}
}

func (b *builder) warn(n *sitter.Node, option, format string, args ...any) {
	b.emit(Diagnostic{
		Severity: SeverityWarning,
		Loc:      b.loc(n),
		Message:  fmt.Sprintf(format, args...),
		Option:   option,
		Category: CategorySemantic,
	})
}

func (b *builder) errorf(n *sitter.Node, format string, args ...any) {
	b.emit(Diagnostic{
		Severity: SeverityError,
		Loc:      b.loc(n),
		Message:  fmt.Sprintf(format, args...),
		Category: CategorySemantic,
		Ranges:   []Range{b.rng(n)},
	})
}

// =============================================================================
// Node helpers
// =============================================================================

// add creates a node for n attached under sc.parent.
func (b *builder) add(kind kinds.CursorKind, sc *scope, n *sitter.Node) NodeID {
	id := b.hidden(kind, sc, n)
	b.u.addChild(sc.parent, id)
	return id
}

// hidden creates a node that is not a child of anything, such as an
// implicit forward declaration.
func (b *builder) hidden(kind kinds.CursorKind, sc *scope, n *sitter.Node) NodeID {
	id := b.u.newNode(kind, sc.parent)
	nd := &b.u.Nodes[id]
	nd.SemParent = sc.sem
	if n != nil {
		nd.Extent = b.rng(n)
		nd.Loc = b.loc(n)
	}
	if b.preamble {
		nd.Flags |= FlagFromPreamble
	}
	return id
}

func (b *builder) rng(n *sitter.Node) Range {
	return Range{File: b.file, Start: n.StartByte(), End: n.EndByte()}
}

func (b *builder) loc(n *sitter.Node) Loc {
	return Loc{File: b.file, Offset: n.StartByte()}
}

func (b *builder) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(b.src[n.StartByte():n.EndByte()])
}

// trimEnd drops trailing whitespace and a final ';' from a span.
func (b *builder) trimEnd(start, end uint32) uint32 {
	for end > start && isSpace(b.src[end-1]) {
		end--
	}
	if end > start && b.src[end-1] == ';' {
		end--
	}
	for end > start && isSpace(b.src[end-1]) {
		end--
	}
	return end
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func field(n *sitter.Node, name string) *sitter.Node {
	if n == nil {
		return nil
	}
	return n.ChildByFieldName(name)
}

func named(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}

func children(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.ChildCount())
	for i := 0; i < int(n.ChildCount()); i++ {
		out = append(out, n.Child(i))
	}
	return out
}

func sameNode(a, c *sitter.Node) bool {
	if a == nil || c == nil {
		return false
	}
	return a.StartByte() == c.StartByte() && a.EndByte() == c.EndByte() && a.Type() == c.Type()
}

// hasToken reports whether n has a direct child whose text is word.
func (b *builder) hasToken(n *sitter.Node, word string) bool {
	for _, c := range children(n) {
		if b.text(c) == word {
			return true
		}
	}
	return false
}
