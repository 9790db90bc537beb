package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/cindex/kinds"
)

// Macro is one #define visible at some point of the build.
type Macro struct {
	Name         string
	Params       []string
	FunctionLike bool
	Variadic     bool
	Body         string
	BodyLoc      Loc
	NameRange    Range
	// Def is the MACRO_DEFINITION node, set only with a detailed
	// preprocessing record.
	Def     NodeID
	Builtin bool
	Used    bool
}

// maxIncludeDepth bounds recursive inclusion of unguarded headers.
const maxIncludeDepth = 200

func (b *builder) predefine() {
	builtins := [][2]string{
		{"__STDC__", "1"},
		{"__STDC_HOSTED__", "1"},
		{"__x86_64__", "1"},
		{"__LP64__", "1"},
		{"__linux__", "1"},
		{"__clang__", "1"},
		{"__GNUC__", "4"},
		{"__CHAR_BIT__", "8"},
		{"__SIZEOF_INT__", "4"},
		{"__SIZEOF_LONG__", "8"},
		{"__SIZEOF_POINTER__", "8"},
	}
	if b.cpp {
		builtins = append(builtins, [2]string{"__cplusplus", "201703L"})
	} else {
		builtins = append(builtins, [2]string{"__STDC_VERSION__", "201710L"})
	}
	for _, kv := range builtins {
		b.u.Macros[kv[0]] = &Macro{Name: kv[0], Body: kv[1], Builtin: true}
	}
	for _, d := range b.cfg.defines {
		if d.undef {
			delete(b.u.Macros, d.name)
			continue
		}
		b.u.Macros[d.name] = &Macro{Name: d.name, Body: d.value, Builtin: true}
	}
}

func (b *builder) define(n *sitter.Node) {
	name := field(n, "name")
	if name == nil {
		return
	}
	m := &Macro{
		Name:         b.text(name),
		NameRange:    b.rng(name),
		FunctionLike: n.Type() == "preproc_function_def",
	}
	end := name.EndByte()
	if params := field(n, "parameters"); params != nil {
		for _, p := range named(params) {
			if p.Type() == "identifier" {
				m.Params = append(m.Params, b.text(p))
			}
		}
		m.Variadic = b.hasToken(params, "...")
		end = params.EndByte()
	}
	if value := field(n, "value"); value != nil {
		raw := b.text(value)
		ws := len(raw) - len(strings.TrimLeft(raw, " \t"))
		m.Body = strings.TrimSpace(raw)
		m.BodyLoc = Loc{File: b.file, Offset: value.StartByte() + uint32(ws)}
		if m.Body != "" {
			end = b.trimSpaceEnd(value.StartByte(), value.EndByte())
		}
	}

	if prev := b.u.Macros[m.Name]; prev != nil && !prev.Builtin &&
		(prev.Body != m.Body || strings.Join(prev.Params, ",") != strings.Join(m.Params, ",")) {
		d := Diagnostic{
			Severity: SeverityWarning,
			Loc:      b.loc(name),
			Message:  fmt.Sprintf("'%s' macro redefined", m.Name),
			Option:   "macro-redefined",
			Category: CategoryLexical,
		}
		if !prev.NameRange.IsNull() {
			d.Children = []Diagnostic{{
				Severity: SeverityNote,
				Loc:      Loc{File: prev.NameRange.File, Offset: prev.NameRange.Start},
				Message:  "previous definition is here",
				Category: CategoryLexical,
			}}
		}
		b.emit(d)
	}

	if b.u.Options&ParseDetailedPreprocessingRecord != 0 {
		root := b.u.Root()
		id := b.u.newNode(kinds.MacroDefinition, root)
		nd := &b.u.Nodes[id]
		nd.Name = m.Name
		nd.Extent = Range{File: b.file, Start: name.StartByte(), End: end}
		nd.Loc = b.loc(name)
		if b.preamble {
			nd.Flags |= FlagFromPreamble
		}
		b.u.addChild(root, id)
		m.Def = id
	}
	b.u.Macros[m.Name] = m
}

func (b *builder) trimSpaceEnd(start, end uint32) uint32 {
	for end > start && isSpace(b.src[end-1]) {
		end--
	}
	return end
}

// directive handles #undef, #error, #warning, #pragma and friends.
func (b *builder) directive(n *sitter.Node) {
	dir := field(n, "directive")
	arg := strings.TrimSpace(b.text(field(n, "argument")))
	word := strings.TrimSpace(strings.TrimPrefix(b.text(dir), "#"))
	at := Loc{File: b.file, Offset: n.StartByte()}
	if dir != nil {
		at.Offset = dir.StartByte() + uint32(len(b.text(dir))-len(word))
	}
	switch word {
	case "undef":
		if f := strings.Fields(arg); len(f) > 0 {
			delete(b.u.Macros, f[0])
		}
	case "error":
		b.emit(Diagnostic{Severity: SeverityError, Loc: at, Message: arg, Category: CategoryUser})
	case "warning":
		b.emit(Diagnostic{Severity: SeverityWarning, Loc: at, Message: arg, Option: "#warnings", Category: CategoryUser})
	case "pragma", "line", "ident", "sccs", "include_next", "import", "assert", "unassert":
	default:
		if _, err := strconv.Atoi(word); err == nil {
			return
		}
		b.emit(Diagnostic{
			Severity: SeverityError,
			Loc:      at,
			Message:  "invalid preprocessing directive",
			Category: CategoryLexical,
		})
	}
}

// conditional walks an #if/#ifdef chain and builds the first taken
// branch. Skipped bodies are remembered so macro scanning ignores them.
func (b *builder) conditional(n *sitter.Node, sc *scope, fn func(*sitter.Node, *scope)) {
	for n != nil {
		var cond *sitter.Node
		taken := false
		switch n.Type() {
		case "preproc_if", "preproc_elif":
			cond = field(n, "condition")
			taken = b.evalCondition(cond)
		case "preproc_ifdef", "preproc_elifdef":
			cond = field(n, "name")
			_, defined := b.u.Macros[b.text(cond)]
			negate := n.ChildCount() > 0 && strings.HasSuffix(b.text(n.Child(0)), "ndef")
			taken = defined != negate
		case "preproc_else":
			taken = true
		default:
			return
		}
		alt := field(n, "alternative")
		if taken {
			for _, c := range named(n) {
				if sameNode(c, cond) || sameNode(c, alt) {
					continue
				}
				b.item(c, sc, fn)
			}
			if alt != nil {
				b.inactive = append(b.inactive, Range{File: b.file, Start: alt.StartByte(), End: alt.EndByte()})
			}
			return
		}
		start, end := n.StartByte(), n.EndByte()
		if cond != nil {
			start = cond.EndByte()
		}
		if alt != nil {
			end = alt.StartByte()
		}
		b.inactive = append(b.inactive, Range{File: b.file, Start: start, End: end})
		n = alt
	}
}

func (b *builder) isInactive(off uint32) bool {
	for _, r := range b.inactive {
		if r.Contains(b.file, off) {
			return true
		}
	}
	return false
}

// include resolves and builds one #include.
func (b *builder) include(n *sitter.Node, sc scope) {
	path := field(n, "path")
	if path == nil {
		return
	}
	spelled := b.text(path)
	angled := false
	switch path.Type() {
	case "string_literal":
		spelled = strings.Trim(spelled, `"`)
	case "system_lib_string":
		spelled = strings.TrimSuffix(strings.TrimPrefix(spelled, "<"), ">")
		angled = true
	default:
		m := b.u.Macros[spelled]
		if m == nil || m.FunctionLike {
			b.emit(Diagnostic{
				Severity: SeverityError,
				Loc:      b.loc(path),
				Message:  "expected \"FILENAME\" or <FILENAME>",
				Category: CategoryLexical,
			})
			return
		}
		spelled = m.Body
		angled = strings.HasPrefix(spelled, "<")
		spelled = strings.Trim(spelled, `"<>`)
	}

	includer := b.u.File(b.file)
	resolved, err := b.vfs.resolveInclude(spelled, angled, includer.Name)
	if err != nil {
		b.emit(Diagnostic{
			Severity: SeverityFatal,
			Loc:      b.loc(path),
			Message:  err.Error(),
			Category: CategoryLexical,
			Ranges:   []Range{b.rng(path)},
		})
		return
	}
	fid := b.u.fileByPath(resolved)
	if fid == 0 {
		data, mod, overlay, err := b.vfs.read(resolved)
		if err != nil {
			b.emit(Diagnostic{
				Severity: SeverityFatal,
				Loc:      b.loc(path),
				Message:  fmt.Sprintf("cannot open file '%s': %v", spelled, err),
				Category: CategoryLexical,
			})
			return
		}
		fid = b.u.addFile(resolved, data, mod, overlay)
	}

	depth := len(b.stack)
	b.u.Includes = append(b.u.Includes, Inclusion{
		Source:   b.file,
		Included: fid,
		Loc:      b.loc(n),
		Depth:    depth,
	})
	if b.u.Options&ParseDetailedPreprocessingRecord != 0 {
		root := b.u.Root()
		id := b.u.newNode(kinds.InclusionDirective, root)
		nd := &b.u.Nodes[id]
		nd.Name = spelled
		nd.Extent = Range{File: b.file, Start: n.StartByte(), End: path.EndByte()}
		nd.Loc = b.loc(n)
		nd.Included = fid
		if b.preamble {
			nd.Flags |= FlagFromPreamble
		}
		b.u.addChild(root, id)
	}

	if b.entered[fid] && b.u.File(fid).IncludeGuarded {
		return
	}
	if depth >= maxIncludeDepth {
		b.emit(Diagnostic{
			Severity: SeverityFatal,
			Loc:      b.loc(path),
			Message:  "#include nested too deeply",
			Category: CategoryLexical,
		})
		return
	}

	wasPreamble := b.preamble
	if b.file == b.u.MainFile && !b.preambleDone {
		b.preamble = true
	}
	if err := b.buildFile(fid, sc); err != nil && b.err == nil {
		b.err = err
	}
	b.preamble = wasPreamble
}

func (u *Unit) fileByPath(path string) FileID {
	clean := cleanPath(path)
	for _, f := range u.Files {
		if cleanPath(f.Name) == clean {
			return f.ID
		}
	}
	return 0
}

// objectMacro returns the object-like macro named name, if defined.
func (b *builder) objectMacro(name string) *Macro {
	m := b.u.Macros[name]
	if m == nil || m.FunctionLike {
		return nil
	}
	return m
}

// expand records a use of m over use and returns the Loc.Exp index.
func (b *builder) expand(m *Macro, use Range) uint32 {
	def := m.BodyLoc
	if def.IsNull() {
		def = Loc{File: use.File, Offset: use.Start}
	}
	m.Used = true
	b.u.Expansions = append(b.u.Expansions, Expansion{Macro: m.Name, Use: use, Def: def})
	return uint32(len(b.u.Expansions))
}

// scanMacroUses adds MACRO_INSTANTIATION nodes for macro names used in
// src[start:end], skipping directive lines and inactive regions.
func (b *builder) scanMacroUses(start, end uint32) {
	toks := Lex(b.src[start:end], b.cpp)
	root := b.u.Root()
	directive := false
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		text := string(b.src[start+t.Start : start+t.End])
		if t.AtLineStart {
			directive = text == "#"
		}
		if directive || t.Kind != TokIdent || b.isInactive(start+t.Start) {
			continue
		}
		m := b.u.Macros[text]
		if m == nil {
			continue
		}
		last := t.End
		if m.FunctionLike {
			if i+1 >= len(toks) || string(b.src[start+toks[i+1].Start:start+toks[i+1].End]) != "(" {
				continue
			}
			depth := 0
			for j := i + 1; j < len(toks); j++ {
				switch string(b.src[start+toks[j].Start : start+toks[j].End]) {
				case "(":
					depth++
				case ")":
					depth--
				}
				if depth == 0 {
					last = toks[j].End
					i = j
					break
				}
			}
		}
		m.Used = true
		id := b.u.newNode(kinds.MacroInstantiation, root)
		nd := &b.u.Nodes[id]
		nd.Name = m.Name
		nd.Extent = Range{File: b.file, Start: start + t.Start, End: start + last}
		nd.Loc = Loc{File: b.file, Offset: start + t.Start}
		nd.Ref = m.Def
		b.u.addChild(root, id)
	}
}

// =============================================================================
// #if expressions
// =============================================================================

type ppVal struct {
	v        uint64
	unsigned bool
}

type ppEval struct {
	toks []string
	pos  int
	cpp  bool
	err  string
}

func (b *builder) evalCondition(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	toks := b.ppExpand(ppTokens(b.text(n), b.cpp), 0)
	e := &ppEval{toks: toks, cpp: b.cpp}
	v := e.ternary()
	if e.err == "" && e.pos < len(e.toks) {
		e.err = "token is not a valid binary operator in a preprocessor subexpression"
	}
	if e.err != "" {
		b.emit(Diagnostic{Severity: SeverityError, Loc: b.loc(n), Message: e.err, Category: CategoryLexical})
		return false
	}
	return v.v != 0
}

func ppTokens(text string, cpp bool) []string {
	var out []string
	for _, t := range Lex([]byte(text), cpp) {
		if t.Kind != TokComment {
			out = append(out, text[t.Start:t.End])
		}
	}
	return out
}

// ppExpand resolves defined() and expands macros ahead of evaluation.
func (b *builder) ppExpand(toks []string, depth int) []string {
	var out []string
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t == "defined" {
			name := ""
			switch {
			case i+3 < len(toks) && toks[i+1] == "(" && toks[i+3] == ")":
				name, i = toks[i+2], i+3
			case i+1 < len(toks):
				name, i = toks[i+1], i+1
			}
			if _, ok := b.u.Macros[name]; ok {
				out = append(out, "1")
			} else {
				out = append(out, "0")
			}
			continue
		}
		m := b.u.Macros[t]
		if m == nil || depth > 32 || !isIdentStart(t[0]) {
			out = append(out, t)
			continue
		}
		if !m.FunctionLike {
			out = append(out, b.ppExpand(ppTokens(m.Body, b.cpp), depth+1)...)
			continue
		}
		if i+1 >= len(toks) || toks[i+1] != "(" {
			out = append(out, t)
			continue
		}
		args, next := splitArgs(toks, i+1)
		i = next
		subst := make(map[string][]string, len(m.Params))
		for k, p := range m.Params {
			if k < len(args) {
				subst[p] = args[k]
			}
		}
		var body []string
		for _, bt := range ppTokens(m.Body, b.cpp) {
			if a, ok := subst[bt]; ok {
				body = append(body, a...)
				continue
			}
			body = append(body, bt)
		}
		out = append(out, b.ppExpand(body, depth+1)...)
	}
	return out
}

// splitArgs reads a parenthesized argument list starting at toks[open]
// and returns the arguments and the index of the closing paren.
func splitArgs(toks []string, open int) ([][]string, int) {
	var args [][]string
	var cur []string
	depth := 0
	for i := open; i < len(toks); i++ {
		switch toks[i] {
		case "(":
			depth++
			if depth == 1 {
				continue
			}
		case ")":
			depth--
			if depth == 0 {
				return append(args, cur), i
			}
		case ",":
			if depth == 1 {
				args = append(args, cur)
				cur = nil
				continue
			}
		}
		cur = append(cur, toks[i])
	}
	return append(args, cur), len(toks) - 1
}

var ppPrec = map[string]int{
	"||": 1, "&&": 2, "|": 3, "^": 4, "&": 5,
	"==": 6, "!=": 6,
	"<": 7, ">": 7, "<=": 7, ">=": 7,
	"<<": 8, ">>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
}

func (e *ppEval) peek() string {
	if e.pos < len(e.toks) {
		return e.toks[e.pos]
	}
	return ""
}

func (e *ppEval) fail(msg string) ppVal {
	if e.err == "" {
		e.err = msg
	}
	return ppVal{}
}

func (e *ppEval) ternary() ppVal {
	c := e.binary(1)
	if e.peek() != "?" {
		return c
	}
	e.pos++
	a := e.ternary()
	if e.peek() != ":" {
		return e.fail("expected ':' in preprocessor expression")
	}
	e.pos++
	b := e.ternary()
	if c.v != 0 {
		return a
	}
	return b
}

func (e *ppEval) binary(min int) ppVal {
	lhs := e.unary()
	for e.err == "" {
		op := e.peek()
		prec, ok := ppPrec[op]
		if !ok || prec < min {
			break
		}
		e.pos++
		rhs := e.binary(prec + 1)
		lhs = e.apply(op, lhs, rhs)
	}
	return lhs
}

func (e *ppEval) unary() ppVal {
	t := e.peek()
	if t == "" {
		return e.fail("expected value in expression")
	}
	e.pos++
	switch {
	case t == "!":
		v := e.unary()
		return ppVal{v: boolBits(v.v == 0)}
	case t == "~":
		v := e.unary()
		return ppVal{v: ^v.v, unsigned: v.unsigned}
	case t == "-":
		v := e.unary()
		return ppVal{v: -v.v, unsigned: v.unsigned}
	case t == "+":
		return e.unary()
	case t == "(":
		v := e.ternary()
		if e.peek() != ")" {
			return e.fail("expected ')' in preprocessor expression")
		}
		e.pos++
		return v
	case isDigit(t[0]):
		v, unsigned, ok := parseIntLiteral(t)
		if !ok {
			return e.fail("floating point literal in preprocessor expression")
		}
		return ppVal{v: v, unsigned: unsigned}
	case t[0] == '\'' || (len(t) > 1 && t[1] == '\''):
		v, ok := parseCharLiteral(t)
		if !ok {
			return e.fail("invalid character literal")
		}
		return ppVal{v: uint64(v)}
	case isIdentStart(t[0]):
		if e.cpp && t == "true" {
			return ppVal{v: 1}
		}
		return ppVal{}
	}
	return e.fail("invalid token at start of a preprocessor expression")
}

func (e *ppEval) apply(op string, l, r ppVal) ppVal {
	unsigned := l.unsigned || r.unsigned
	less := func() bool {
		if unsigned {
			return l.v < r.v
		}
		return int64(l.v) < int64(r.v)
	}
	switch op {
	case "||":
		return ppVal{v: boolBits(l.v != 0 || r.v != 0)}
	case "&&":
		return ppVal{v: boolBits(l.v != 0 && r.v != 0)}
	case "|":
		return ppVal{v: l.v | r.v, unsigned: unsigned}
	case "^":
		return ppVal{v: l.v ^ r.v, unsigned: unsigned}
	case "&":
		return ppVal{v: l.v & r.v, unsigned: unsigned}
	case "==":
		return ppVal{v: boolBits(l.v == r.v)}
	case "!=":
		return ppVal{v: boolBits(l.v != r.v)}
	case "<":
		return ppVal{v: boolBits(less())}
	case ">=":
		return ppVal{v: boolBits(!less())}
	case ">":
		return ppVal{v: boolBits(!less() && l.v != r.v)}
	case "<=":
		return ppVal{v: boolBits(less() || l.v == r.v)}
	case "<<":
		return ppVal{v: l.v << (r.v & 63), unsigned: l.unsigned}
	case ">>":
		if l.unsigned {
			return ppVal{v: l.v >> (r.v & 63), unsigned: true}
		}
		return ppVal{v: uint64(int64(l.v) >> (r.v & 63))}
	case "+":
		return ppVal{v: l.v + r.v, unsigned: unsigned}
	case "-":
		return ppVal{v: l.v - r.v, unsigned: unsigned}
	case "*":
		return ppVal{v: l.v * r.v, unsigned: unsigned}
	case "/", "%":
		if r.v == 0 {
			return e.fail("division by zero in preprocessor expression")
		}
		if unsigned {
			if op == "/" {
				return ppVal{v: l.v / r.v, unsigned: true}
			}
			return ppVal{v: l.v % r.v, unsigned: true}
		}
		if int64(l.v) == math.MinInt64 && int64(r.v) == -1 {
			return ppVal{v: l.v}
		}
		if op == "/" {
			return ppVal{v: uint64(int64(l.v) / int64(r.v))}
		}
		return ppVal{v: uint64(int64(l.v) % int64(r.v))}
	}
	return e.fail("invalid preprocessor operator")
}

func boolBits(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// parseIntLiteral reads a C integer literal. unsigned is set for a 'u'
// suffix or a value that only fits unsigned.
func parseIntLiteral(text string) (v uint64, unsigned bool, ok bool) {
	s := strings.ReplaceAll(text, "'", "")
	for len(s) > 0 {
		c := s[len(s)-1] | 0x20
		if c != 'u' && c != 'l' && c != 'z' {
			break
		}
		if c == 'u' {
			unsigned = true
		}
		s = s[:len(s)-1]
	}
	base := 10
	switch {
	case len(s) > 2 && (s[1] == 'x' || s[1] == 'X') && s[0] == '0':
		base, s = 16, s[2:]
	case len(s) > 2 && (s[1] == 'b' || s[1] == 'B') && s[0] == '0':
		base, s = 2, s[2:]
	case len(s) > 1 && s[0] == '0':
		base, s = 8, s[1:]
	}
	v, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		return 0, false, false
	}
	if v > math.MaxInt64 {
		unsigned = true
	}
	return v, unsigned, true
}

// parseCharLiteral reads a character literal such as 'a' or L'\n'.
func parseCharLiteral(text string) (int64, bool) {
	i := strings.IndexByte(text, '\'')
	if i < 0 || len(text) < i+3 {
		return 0, false
	}
	body := text[i+1 : len(text)-1]
	if body == "" {
		return 0, false
	}
	if body[0] != '\\' {
		return int64(int8(body[0])), true
	}
	if len(body) < 2 {
		return 0, false
	}
	switch body[1] {
	case 'n':
		return '\n', true
	case 't':
		return '\t', true
	case 'r':
		return '\r', true
	case 'a':
		return 7, true
	case 'b':
		return 8, true
	case 'f':
		return 12, true
	case 'v':
		return 11, true
	case 'x':
		v, err := strconv.ParseUint(body[2:], 16, 32)
		return int64(v), err == nil
	case '\\', '\'', '"', '?':
		return int64(body[1]), true
	}
	if isDigit(body[1]) {
		v, err := strconv.ParseUint(body[1:], 8, 32)
		return int64(v), err == nil
	}
	return 0, false
}
