package cindex

import (
	"cmp"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/jward/cindex/internal/engine"
	"github.com/jward/cindex/kinds"
)

// --- Common Types ---

// Pagination controls offset+limit paging on list/search results.
type Pagination struct {
	Offset int // skip this many results (default 0)
	Limit  int // max results to return (default 50, max 500)
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

// normalize returns a Pagination with defaults applied and bounds enforced.
func (p Pagination) normalize() Pagination {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// SortField specifies how to order results. The zero value keeps
// document order.
type SortField string

const (
	SortByName     SortField = "name"
	SortByKind     SortField = "kind"
	SortByFile     SortField = "file"
	SortByRefCount SortField = "ref_count"
)

// SortOrder specifies ascending or descending.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Sort controls result ordering.
type Sort struct {
	Field SortField
	Order SortOrder
}

// PagedResult wraps a page of results with total count for pagination.
type PagedResult[T any] struct {
	Items      []T
	TotalCount int // total matching results (before pagination)
}

// SymbolFilter specifies which declarations to include. All fields are
// optional.
type SymbolFilter struct {
	Kinds           []kinds.CursorKind // match any of these kinds
	DefinitionsOnly bool
	File            string // exact file name
	PathPrefix      string // restrict to files under this directory
}

// --- Internal Helpers ---

// normalizePathPrefix ensures a path prefix ends with "/" for correct matching.
// "src/net" -> "src/net/" to prevent matching "src/network/".
func normalizePathPrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	if !strings.HasSuffix(prefix, "/") {
		return prefix + "/"
	}
	return prefix
}

func (f SymbolFilter) match(r *SymbolResult, n *engine.Node) bool {
	if len(f.Kinds) > 0 && !slices.Contains(f.Kinds, n.Kind) {
		return false
	}
	if f.DefinitionsOnly && !n.Has(engine.FlagDefinition) {
		return false
	}
	if f.File != "" && r.Location.File != f.File {
		return false
	}
	if p := normalizePathPrefix(f.PathPrefix); p != "" && !strings.HasPrefix(r.Location.File, p) {
		return false
	}
	return true
}

func sortSymbols(rs []SymbolResult, s Sort) {
	var less func(a, b SymbolResult) int
	switch s.Field {
	case SortByName:
		less = func(a, b SymbolResult) int { return cmp.Compare(a.QualifiedName, b.QualifiedName) }
	case SortByKind:
		less = func(a, b SymbolResult) int { return cmp.Compare(a.Cursor.Kind().String(), b.Cursor.Kind().String()) }
	case SortByFile:
		less = func(a, b SymbolResult) int {
			return cmp.Or(cmp.Compare(a.Location.File, b.Location.File), cmp.Compare(a.Location.StartLine, b.Location.StartLine))
		}
	case SortByRefCount:
		less = func(a, b SymbolResult) int { return cmp.Compare(a.RefCount, b.RefCount) }
	default:
		return
	}
	if s.Order == Desc {
		asc := less
		less = func(a, b SymbolResult) int { return asc(b, a) }
	}
	slices.SortStableFunc(rs, less)
}

func paginate[T any](items []T, page Pagination) *PagedResult[T] {
	page = page.normalize()
	out := &PagedResult[T]{Items: []T{}, TotalCount: len(items)}
	if page.Offset < len(items) {
		end := min(page.Offset+page.Limit, len(items))
		out.Items = items[page.Offset:end]
	}
	return out
}

// eachDeclaration calls fn for every named declaration outside function
// bodies, in document order.
func (q *QueryBuilder) eachDeclaration(fn func(id engine.NodeID)) {
	q.u.Walk(q.u.Root(), func(id engine.NodeID) bool {
		n := &q.u.Nodes[id]
		if id == q.u.Root() {
			return true
		}
		if !n.Kind.IsDeclaration() {
			return false
		}
		if n.Name == "" || n.Kind == kinds.ParmDecl {
			return true
		}
		fn(id)
		return true
	})
}

// symbolResult builds the result for a declaration with its reference
// counts.
func (q *QueryBuilder) symbolResult(id engine.NodeID) SymbolResult {
	q.build()
	n := &q.u.Nodes[id]
	r := SymbolResult{
		Cursor:        q.tu.cursorFor(q.u, q.gen, id),
		QualifiedName: q.u.QualifiedName(id),
		Location:      q.location(n.Extent),
	}
	for _, ref := range q.refs[q.canon(id)] {
		r.RefCount++
		if q.u.Nodes[ref].Extent.File != n.Extent.File {
			r.ExternalRefCount++
		}
	}
	return r
}

// globFor converts a "::"-separated qualified-name pattern to a path glob.
func globFor(op, pattern string) (string, error) {
	if pattern == "" {
		return "**", nil
	}
	glob := strings.ReplaceAll(pattern, "::", "/")
	if !doublestar.ValidatePattern(glob) {
		return "", fmt.Errorf("cindex: %s: %w: bad pattern %q", op, ErrInvalidArgument, pattern)
	}
	return glob, nil
}

// --- Search Endpoints ---

// SearchSymbols is the filtering and paging form of Symbols. An empty
// pattern matches every declaration.
func (q *QueryBuilder) SearchSymbols(pattern string, filter SymbolFilter, sort Sort, page Pagination) (*PagedResult[SymbolResult], error) {
	if err := q.check("search symbols"); err != nil {
		return nil, err
	}
	glob, err := globFor("search symbols", pattern)
	if err != nil {
		return nil, err
	}
	var out []SymbolResult
	q.eachDeclaration(func(id engine.NodeID) {
		qn := q.u.QualifiedName(id)
		if ok, _ := doublestar.Match(glob, strings.ReplaceAll(qn, "::", "/")); !ok {
			return
		}
		r := q.symbolResult(id)
		if filter.match(&r, &q.u.Nodes[id]) {
			out = append(out, r)
		}
	})
	sortSymbols(out, sort)
	return paginate(out, page), nil
}

// UnusedSymbols lists declarations nothing in the unit refers to. The
// main function and declarations whose canonical entity has any
// reference are left out.
func (q *QueryBuilder) UnusedSymbols(filter SymbolFilter, sort Sort, page Pagination) (*PagedResult[SymbolResult], error) {
	if err := q.check("unused symbols"); err != nil {
		return nil, err
	}
	q.build()
	var out []SymbolResult
	q.eachDeclaration(func(id engine.NodeID) {
		n := &q.u.Nodes[id]
		if n.Name == "main" && n.Kind == kinds.FunctionDecl {
			return
		}
		canon := q.canon(id)
		if len(q.refs[canon]) > 0 || len(q.calls[canon]) > 0 {
			return
		}
		r := q.symbolResult(id)
		if filter.match(&r, n) {
			out = append(out, r)
		}
	})
	sortSymbols(out, sort)
	return paginate(out, page), nil
}

// Files lists the files the unit was built from, main file first, with
// paging.
func (q *QueryBuilder) Files(pathPrefix string, page Pagination) (*PagedResult[string], error) {
	if err := q.check("files"); err != nil {
		return nil, err
	}
	prefix := normalizePathPrefix(pathPrefix)
	keep := func(name string) bool { return prefix == "" || strings.HasPrefix(name, prefix) }

	var names, rest []string
	if main := q.u.File(q.u.MainFile); main != nil && keep(main.Name) {
		names = append(names, main.Name)
	}
	for _, f := range q.u.Files {
		if f.ID != q.u.MainFile && keep(f.Name) {
			rest = append(rest, f.Name)
		}
	}
	sort.Strings(rest)
	return paginate(append(names, rest...), page), nil
}
