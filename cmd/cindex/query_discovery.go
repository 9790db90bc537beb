package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/cindex"
	"github.com/jward/cindex/kinds"
)

// --- Discovery / Search Commands ---

// discoveryFlags are the filter, sort and paging flags shared by search
// and unused.
type discoveryFlags struct {
	kinds       []string
	file        string
	pathPrefix  string
	definitions bool
	sortBy      string
	order       string
	offset      int
}

func (f *discoveryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.kinds, "kind", nil, "filter by cursor kind (e.g. FUNCTION_DECL); repeatable")
	cmd.Flags().StringVar(&f.file, "in-file", "", "filter by declaring file")
	cmd.Flags().StringVar(&f.pathPrefix, "path-prefix", "", "filter by declaring file path prefix")
	cmd.Flags().BoolVar(&f.definitions, "definitions", false, "only report definitions")
	cmd.Flags().StringVar(&f.sortBy, "sort", "", "sort by name, kind, file or ref_count (default document order)")
	cmd.Flags().StringVar(&f.order, "order", "asc", "sort order: asc or desc")
	cmd.Flags().IntVar(&f.offset, "offset", 0, "skip this many results")
}

func (f *discoveryFlags) filter() (cindex.SymbolFilter, error) {
	filter := cindex.SymbolFilter{
		DefinitionsOnly: f.definitions,
		File:            f.file,
		PathPrefix:      f.pathPrefix,
	}
	for _, name := range f.kinds {
		k, err := parseCursorKind(name)
		if err != nil {
			return filter, err
		}
		filter.Kinds = append(filter.Kinds, k)
	}
	return filter, nil
}

func (f *discoveryFlags) sort() (cindex.Sort, error) {
	s := cindex.Sort{Field: cindex.SortField(f.sortBy), Order: cindex.SortOrder(f.order)}
	switch s.Field {
	case "", cindex.SortByName, cindex.SortByKind, cindex.SortByFile, cindex.SortByRefCount:
	default:
		return s, fmt.Errorf("invalid --sort %q: valid values are name, kind, file, ref_count", f.sortBy)
	}
	if s.Order != cindex.Asc && s.Order != cindex.Desc {
		return s, fmt.Errorf("invalid --order %q: valid values are asc, desc", f.order)
	}
	return s, nil
}

// parseCursorKind accepts a kind name in any case, with or without the
// underscores of its canonical spelling.
func parseCursorKind(name string) (kinds.CursorKind, error) {
	norm := func(s string) string { return strings.ToLower(strings.ReplaceAll(s, "_", "")) }
	want := norm(name)
	for _, k := range kinds.AllCursorKinds() {
		if norm(k.String()) == want {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown cursor kind %q", name)
}

func symbolList(rs []cindex.SymbolResult) []CLISymbol {
	out := make([]CLISymbol, 0, len(rs))
	for _, r := range rs {
		out = append(out, toCLISymbol(r))
	}
	return out
}

func (c *cli) searchCmd(limit *int) *cobra.Command {
	var flags discoveryFlags
	cmd := &cobra.Command{
		Use:   "search <file> [pattern]",
		Short: "Search declarations with filters, sorting and paging",
		Long:  `Like symbols, but every declaration outside function bodies is a candidate and results can be filtered and paged. An omitted pattern matches everything.`,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := ""
			if len(args) == 2 {
				pattern = args[1]
			}
			return c.runQuery(cmd, args[0], 0, func(_ *cindex.TranslationUnit, q *cindex.QueryBuilder) (any, int, error) {
				filter, err := flags.filter()
				if err != nil {
					return nil, 0, err
				}
				sort, err := flags.sort()
				if err != nil {
					return nil, 0, err
				}
				res, err := q.SearchSymbols(pattern, filter, sort, cindex.Pagination{Offset: flags.offset, Limit: *limit})
				if err != nil {
					return nil, 0, err
				}
				return symbolList(res.Items), res.TotalCount, nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func (c *cli) unusedCmd(limit *int) *cobra.Command {
	var flags discoveryFlags
	cmd := &cobra.Command{
		Use:   "unused <file>",
		Short: "List declarations nothing in the unit refers to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runQuery(cmd, args[0], 0, func(_ *cindex.TranslationUnit, q *cindex.QueryBuilder) (any, int, error) {
				filter, err := flags.filter()
				if err != nil {
					return nil, 0, err
				}
				sort, err := flags.sort()
				if err != nil {
					return nil, 0, err
				}
				res, err := q.UnusedSymbols(filter, sort, cindex.Pagination{Offset: flags.offset, Limit: *limit})
				if err != nil {
					return nil, 0, err
				}
				return symbolList(res.Items), res.TotalCount, nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func (c *cli) filesCmd(limit *int) *cobra.Command {
	var prefix string
	var offset int
	cmd := &cobra.Command{
		Use:   "files <file>",
		Short: "List the files a unit was built from, main file first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runQuery(cmd, args[0], 0, func(_ *cindex.TranslationUnit, q *cindex.QueryBuilder) (any, int, error) {
				res, err := q.Files(prefix, cindex.Pagination{Offset: offset, Limit: *limit})
				if err != nil {
					return nil, 0, err
				}
				return res.Items, res.TotalCount, nil
			})
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "filter by path prefix")
	cmd.Flags().IntVar(&offset, "offset", 0, "skip this many results")
	return cmd
}

// --- Detail Commands ---

func (c *cli) symbolDetailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "symbol-detail <file> <line> <col>",
		Short: "Show a declaration with its parameters, members, template parameters and bases",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runQuery(cmd, args[0], 0, func(tu *cindex.TranslationUnit, q *cindex.QueryBuilder) (any, int, error) {
				line, col, err := lineCol(args[1], args[2])
				if err != nil {
					return nil, 0, err
				}
				d, err := q.SymbolDetailAt(tu.Spelling(), line, col)
				if err != nil || d == nil {
					return nil, 0, err
				}
				return toCLISymbolDetail(d), 1, nil
			})
		},
	}
}

func (c *cli) scopeAtCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scope-at <file> <line> <col>",
		Short: "Show the scope chain at a position, innermost first",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runQuery(cmd, args[0], 0, func(tu *cindex.TranslationUnit, q *cindex.QueryBuilder) (any, int, error) {
				line, col, err := lineCol(args[1], args[2])
				if err != nil {
					return nil, 0, err
				}
				chain, err := q.ScopeAt(tu.Spelling(), line, col)
				if err != nil {
					return nil, 0, err
				}
				return cursorList(chain), len(chain), nil
			})
		},
	}
}

func lineCol(lineArg, colArg string) (int, int, error) {
	line, err := parseIntArg(lineArg, "line")
	if err != nil {
		return 0, 0, err
	}
	col, err := parseIntArg(colArg, "col")
	if err != nil {
		return 0, 0, err
	}
	return line, col, nil
}
