package engine

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/jward/cindex/kinds"
)

// Completion priorities; lower sorts first.
const (
	PriorityLocal   = 34
	PriorityMember  = 35
	PriorityKeyword = 40
	PriorityGlobal  = 50
	PriorityMacro   = 70
)

// Chunk is one fragment of a completion string. Nested is set for
// optional chunks only.
type Chunk struct {
	Kind   kinds.CompletionChunkKind
	Text   string
	Nested []Chunk
}

// Completion is one candidate at a completion point.
type Completion struct {
	Kind         kinds.CursorKind
	Name         string
	Chunks       []Chunk
	Priority     int
	Availability kinds.Availability
}

// CompleteAt lists the candidates for the identifier being typed at off
// in file. After "." or "->" those are the receiver's members;
// otherwise the visible declarations, keywords and macros.
func (u *Unit) CompleteAt(file FileID, off uint32) []Completion {
	f := u.File(file)
	if f == nil {
		return nil
	}
	off = min(off, f.Size())
	src := f.Content
	start := off
	for start > 0 && isIdentChar(src[start-1]) {
		start--
	}
	prefix := string(src[start:off])

	limit := u.visibilityLimit(file, start)
	from := u.scopeAt(file, start)

	var out []Completion
	if recv, arrow, ok := receiverBefore(src, start); ok {
		if rec := u.recordOf(u.receiverType(recv, from, limit), arrow); rec != 0 {
			out = u.memberCompletions(rec)
		}
	} else {
		out = u.scopeCompletions(from, limit)
	}
	return rank(filterPrefix(out, prefix), prefix)
}

// visibilityLimit is one past the last node that starts before off in
// file, so declarations written after the completion point stay hidden.
func (u *Unit) visibilityLimit(file FileID, off uint32) NodeID {
	var last NodeID
	for i := 2; i < len(u.Nodes); i++ {
		if r := u.Nodes[i].Extent; r.File == file && r.Start < off {
			last = NodeID(i)
		}
	}
	return last + 1
}

// scopeAt finds the innermost node enclosing the byte before off.
func (u *Unit) scopeAt(file FileID, off uint32) NodeID {
	if off > 0 {
		off--
	}
	if file != u.MainFile {
		return u.Root()
	}
	return u.NodeAt(file, off)
}

// receiverBefore returns the text of the expression ending just before
// a "." or "->" that precedes start.
func receiverBefore(src []byte, start uint32) (string, bool, bool) {
	i := int(start)
	for i > 0 && isSpace(src[i-1]) {
		i--
	}
	arrow := false
	switch {
	case i >= 2 && src[i-2] == '-' && src[i-1] == '>':
		arrow = true
		i -= 2
	case i >= 1 && src[i-1] == '.':
		i--
		if i > 0 && isDigit(src[i-1]) {
			return "", false, false
		}
	default:
		return "", false, false
	}
	end := i
	for {
		for i > 0 && isSpace(src[i-1]) {
			i--
		}
		if i == 0 {
			break
		}
		switch c := src[i-1]; {
		case c == ')' || c == ']':
			open, close := byte('('), c
			if c == ']' {
				open = '['
			}
			depth := 0
			for i > 0 {
				i--
				if src[i] == close {
					depth++
				} else if src[i] == open {
					depth--
					if depth == 0 {
						break
					}
				}
			}
			continue
		case isIdentChar(c):
			for i > 0 && isIdentChar(src[i-1]) {
				i--
			}
		default:
			return strings.TrimSpace(string(src[i:end])), arrow, i < end
		}
		j := i
		for j > 0 && isSpace(src[j-1]) {
			j--
		}
		switch {
		case j >= 2 && src[j-2] == '-' && src[j-1] == '>':
			i = j - 2
		case j >= 1 && src[j-1] == '.':
			i = j - 1
		case j >= 2 && src[j-2] == ':' && src[j-1] == ':':
			i = j - 2
		default:
			return strings.TrimSpace(string(src[i:end])), arrow, i < end
		}
	}
	return strings.TrimSpace(string(src[i:end])), arrow, i < end
}

// receiverType resolves a receiver expression such as "a.b->c(1)[2]"
// by walking its pieces left to right.
func (u *Unit) receiverType(text string, from, limit NodeID) TypeID {
	var t TypeID
	first := true
	for len(text) > 0 {
		text = strings.TrimLeft(text, " \t\r\n")
		switch {
		case strings.HasPrefix(text, "->"):
			if rec := u.recordOf(t, true); rec != 0 {
				t = u.Nodes[rec].Type
			}
			text = text[2:]
			continue
		case strings.HasPrefix(text, "."), strings.HasPrefix(text, "::"):
			text = strings.TrimLeft(text, ".:")
			continue
		case text[0] == '(' || text[0] == '[':
			// A call yields the result type and a subscript the element
			// type; both live in Elem.
			t = u.TypeOf(u.Desugar(t)).Elem
			text = text[matching(text):]
			continue
		}
		n := 0
		for n < len(text) && isIdentChar(text[n]) {
			n++
		}
		if n == 0 {
			return 0
		}
		name := text[:n]
		text = text[n:]
		var decl NodeID
		switch {
		case first && name == "this":
			for s := from; u.Valid(s); s = u.enclosing(s) {
				if sp := u.Nodes[s].SemParent; u.Valid(sp) && isFunctionKind(u.Nodes[s].Kind) && isRecordKind(u.Nodes[sp].Kind) {
					t = u.pointerTo(u.Nodes[sp].Type)
					break
				}
			}
			first = false
			continue
		case first:
			decl = u.lookup(from, name, isValueDecl, limit)
		default:
			rec := u.recordOf(t, false)
			if rec == 0 {
				return 0
			}
			decl = u.lookupIn(rec, name, isValueDecl, 0)
		}
		if decl == 0 {
			return 0
		}
		t = u.Nodes[decl].Type
		first = false
	}
	return t
}

// matching returns the index just past the bracket closing text[0].
func matching(text string) int {
	open := text[0]
	close := byte(')')
	if open == '[' {
		close = ']'
	}
	depth := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(text)
}

func (u *Unit) memberCompletions(rec NodeID) []Completion {
	var out []Completion
	seen := map[string]bool{}
	var visit func(r NodeID, depth int)
	visit = func(r NodeID, depth int) {
		if depth > 16 || !u.Valid(r) {
			return
		}
		r = u.definitionOf(r)
		var bases []NodeID
		for _, c := range u.Nodes[r].Children {
			n := &u.Nodes[c]
			switch n.Kind {
			case kinds.FieldDecl, kinds.CXXMethod, kinds.ConversionFunction, kinds.FunctionTemplate, kinds.VarDecl:
				if n.Name == "" || seen[n.Name+"\x00"+u.Spelling(n.Type)] {
					continue
				}
				seen[n.Name+"\x00"+u.Spelling(n.Type)] = true
				out = append(out, u.declCompletion(c, PriorityMember))
			case kinds.StructDecl, kinds.UnionDecl:
				if n.Has(FlagAnonymous) {
					visit(c, depth+1)
				}
			case kinds.CXXBaseSpecifier:
				if n.Ref != 0 {
					bases = append(bases, u.scopeTarget(n.Ref))
				}
			}
		}
		for _, base := range bases {
			visit(base, depth+1)
		}
	}
	visit(rec, 0)
	return out
}

func (u *Unit) isLocal(id NodeID) bool {
	for p := u.Nodes[id].SemParent; u.Valid(p); p = u.Nodes[p].SemParent {
		if isFunctionKind(u.Nodes[p].Kind) || u.Nodes[p].Kind == kinds.LambdaExpr {
			return true
		}
	}
	return false
}

func (u *Unit) scopeCompletions(from, limit NodeID) []Completion {
	var out []Completion
	names := map[string]bool{}
	cached := u.GlobalCompletions != nil
	for _, id := range u.visibleDecls(from, limit) {
		local := u.isLocal(id)
		if cached && !local {
			continue
		}
		prio := PriorityGlobal
		if local {
			prio = PriorityLocal
		}
		names[u.Nodes[id].Name] = true
		out = append(out, u.declCompletion(id, prio))
	}
	if cached {
		for _, c := range u.GlobalCompletions {
			if !names[c.Name] {
				out = append(out, c)
			}
		}
		return out
	}
	return append(out, u.builtinCompletions()...)
}

// globalCompletions is the position-independent part of a non-member
// completion list.
func (u *Unit) globalCompletions() []Completion {
	out := []Completion{}
	for _, id := range u.visibleDecls(u.Root(), 0) {
		out = append(out, u.declCompletion(id, PriorityGlobal))
	}
	return append(out, u.builtinCompletions()...)
}

func (u *Unit) builtinCompletions() []Completion {
	var out []Completion
	for _, kw := range Keywords(u.Lang == LangCPP) {
		out = append(out, Completion{
			Kind:     kinds.NotImplemented,
			Name:     kw,
			Chunks:   []Chunk{{Kind: kinds.ChunkTypedText, Text: kw}},
			Priority: PriorityKeyword,
		})
	}
	names := make([]string, 0, len(u.Macros))
	for name, m := range u.Macros {
		if !m.Builtin {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		m := u.Macros[name]
		chunks := []Chunk{{Kind: kinds.ChunkTypedText, Text: name}}
		if m.FunctionLike {
			chunks = append(chunks, Chunk{Kind: kinds.ChunkLeftParen, Text: "("})
			for i, p := range m.Params {
				if i > 0 {
					chunks = append(chunks, Chunk{Kind: kinds.ChunkComma, Text: ", "})
				}
				chunks = append(chunks, Chunk{Kind: kinds.ChunkPlaceholder, Text: p})
			}
			if m.Variadic {
				if len(m.Params) > 0 {
					chunks = append(chunks, Chunk{Kind: kinds.ChunkComma, Text: ", "})
				}
				chunks = append(chunks, Chunk{Kind: kinds.ChunkPlaceholder, Text: "..."})
			}
			chunks = append(chunks, Chunk{Kind: kinds.ChunkRightParen, Text: ")"})
		}
		out = append(out, Completion{Kind: kinds.MacroDefinition, Name: name, Chunks: chunks, Priority: PriorityMacro})
	}
	return out
}

// declCompletion renders the completion string for a declaration.
func (u *Unit) declCompletion(id NodeID, prio int) Completion {
	n := &u.Nodes[id]
	c := Completion{Kind: n.Kind, Name: n.Name, Priority: prio}
	switch {
	case isFunctionKind(n.Kind):
		ft := u.TypeOf(n.Type)
		if ft.Elem != 0 {
			c.Chunks = append(c.Chunks, Chunk{Kind: kinds.ChunkResultType, Text: u.Spelling(ft.Elem)})
		}
		c.Chunks = append(c.Chunks,
			Chunk{Kind: kinds.ChunkTypedText, Text: n.Name},
			Chunk{Kind: kinds.ChunkLeftParen, Text: "("})
		c.Chunks = append(c.Chunks, u.paramChunks(id)...)
		c.Chunks = append(c.Chunks, Chunk{Kind: kinds.ChunkRightParen, Text: ")"})
		if n.Has(FlagConstMethod) {
			c.Chunks = append(c.Chunks, Chunk{Kind: kinds.ChunkInformative, Text: " const"})
		}
	case isValueDecl(u, n):
		c.Chunks = []Chunk{
			{Kind: kinds.ChunkResultType, Text: u.Spelling(n.Type)},
			{Kind: kinds.ChunkTypedText, Text: n.Name},
		}
	default:
		c.Chunks = []Chunk{{Kind: kinds.ChunkTypedText, Text: n.Name}}
	}
	return c
}

// paramChunks lists placeholders for a function's parameters. Trailing
// parameters with default arguments are wrapped in an optional chunk.
func (u *Unit) paramChunks(fn NodeID) []Chunk {
	var params []NodeID
	for _, c := range u.Nodes[fn].Children {
		if u.Nodes[c].Kind == kinds.ParmDecl {
			params = append(params, c)
		}
	}
	firstDefault := len(params)
	for i := len(params) - 1; i >= 0; i-- {
		if len(u.exprKids(params[i])) == 0 {
			break
		}
		firstDefault = i
	}
	placeholder := func(p NodeID) Chunk {
		pn := &u.Nodes[p]
		text := u.Spelling(pn.Type)
		if pn.Name != "" {
			text += " " + pn.Name
		}
		return Chunk{Kind: kinds.ChunkPlaceholder, Text: text}
	}
	var out []Chunk
	for i := 0; i < firstDefault; i++ {
		if i > 0 {
			out = append(out, Chunk{Kind: kinds.ChunkComma, Text: ", "})
		}
		out = append(out, placeholder(params[i]))
	}
	if firstDefault < len(params) {
		var nested []Chunk
		for i := firstDefault; i < len(params); i++ {
			if i > 0 {
				nested = append(nested, Chunk{Kind: kinds.ChunkComma, Text: ", "})
			}
			nested = append(nested, placeholder(params[i]))
		}
		out = append(out, Chunk{Kind: kinds.ChunkOptional, Nested: nested})
	}
	if ft := u.TypeOf(u.Nodes[fn].Type); ft.Variadic {
		if len(params) > 0 {
			out = append(out, Chunk{Kind: kinds.ChunkComma, Text: ", "})
		}
		out = append(out, Chunk{Kind: kinds.ChunkPlaceholder, Text: "..."})
	}
	return out
}

// TypedText returns the text of the typed-text chunk.
func (c Completion) TypedText() string {
	for _, ch := range c.Chunks {
		if ch.Kind == kinds.ChunkTypedText {
			return ch.Text
		}
	}
	return ""
}

func filterPrefix(in []Completion, prefix string) []Completion {
	if prefix == "" {
		return in
	}
	lower := strings.ToLower(prefix)
	out := in[:0:0]
	for _, c := range in {
		if strings.HasPrefix(strings.ToLower(c.TypedText()), lower) {
			out = append(out, c)
		}
	}
	return out
}

// rank orders candidates by priority, then by Jaro-Winkler similarity
// to the typed prefix, then alphabetically.
func rank(in []Completion, prefix string) []Completion {
	if prefix == "" {
		sort.SliceStable(in, func(i, j int) bool {
			if in[i].Priority != in[j].Priority {
				return in[i].Priority < in[j].Priority
			}
			return in[i].TypedText() < in[j].TypedText()
		})
		return in
	}
	score := make(map[string]float32, len(in))
	for _, c := range in {
		t := c.TypedText()
		if _, ok := score[t]; !ok {
			score[t] = edlib.JaroWinklerSimilarity(prefix, t)
		}
	}
	sort.SliceStable(in, func(i, j int) bool {
		a, b := in[i], in[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		sa, sb := score[a.TypedText()], score[b.TypedText()]
		if sa != sb {
			return sa > sb
		}
		return a.TypedText() < b.TypedText()
	})
	return in
}
