package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jward/cindex"
)

func (c *cli) queryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Cross-reference queries over one translation unit",
		Long:  "Run queries against a parsed file. All line and column numbers are 1-based.",
	}
	cmd.PersistentFlags().IntVar(&limit, "limit", 0, "maximum results to print (0 = all)")

	// positional runs fn on the declaration named at <file> <line> <col>.
	positional := func(use, short string, fn func(q *cindex.QueryBuilder, target cindex.Cursor) (any, int, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <file> <line> <col>",
			Short: short,
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.runQuery(cmd, args[0], limit, func(tu *cindex.TranslationUnit, q *cindex.QueryBuilder) (any, int, error) {
					target, err := targetAt(tu, args[1], args[2])
					if err != nil {
						return nil, 0, err
					}
					return fn(q, target)
				})
			},
		}
	}

	definition := &cobra.Command{
		Use:   "definition <file> <line> <col>",
		Short: "Find the definition of the entity at a position",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runQuery(cmd, args[0], limit, func(tu *cindex.TranslationUnit, q *cindex.QueryBuilder) (any, int, error) {
				line, col, err := lineCol(args[1], args[2])
				if err != nil {
					return nil, 0, err
				}
				locs, err := q.DefinitionAt(tu.Spelling(), line, col)
				if err != nil {
					return nil, 0, err
				}
				out := make([]CLILocation, 0, len(locs))
				for _, l := range locs {
					out = append(out, toCLILocation(l))
				}
				return out, len(out), nil
			})
		},
	}

	references := positional("references", "Find references to the entity at a position",
		func(q *cindex.QueryBuilder, target cindex.Cursor) (any, int, error) {
			refs, err := q.ReferencesTo(target)
			if err != nil {
				return nil, 0, err
			}
			return cursorList(refs), len(refs), nil
		})
	callers := positional("callers", "Find calls to the function at a position",
		func(q *cindex.QueryBuilder, target cindex.Cursor) (any, int, error) {
			edges, err := q.Callers(target)
			return edgeList(edges), len(edges), err
		})
	callees := positional("callees", "Find calls made by the function at a position",
		func(q *cindex.QueryBuilder, target cindex.Cursor) (any, int, error) {
			edges, err := q.Callees(target)
			return edgeList(edges), len(edges), err
		})
	subclasses := positional("subclasses", "Find classes deriving from the class at a position",
		func(q *cindex.QueryBuilder, target cindex.Cursor) (any, int, error) {
			subs, err := q.Subclasses(target)
			return cursorList(subs), len(subs), err
		})
	bases := positional("bases", "Find the base classes of the class at a position",
		func(q *cindex.QueryBuilder, target cindex.Cursor) (any, int, error) {
			bs, err := q.BaseClasses(target)
			return cursorList(bs), len(bs), err
		})

	var depth int
	transitiveCallers := positional("transitive-callers", "Find every function that reaches the function at a position",
		func(q *cindex.QueryBuilder, target cindex.Cursor) (any, int, error) {
			g, err := q.TransitiveCallers(target, depth)
			if err != nil {
				return nil, 0, err
			}
			return toCLICallGraph(g), len(g.Nodes), nil
		})
	transitiveCallees := positional("transitive-callees", "Find every function reached from the function at a position",
		func(q *cindex.QueryBuilder, target cindex.Cursor) (any, int, error) {
			g, err := q.TransitiveCallees(target, depth)
			if err != nil {
				return nil, 0, err
			}
			return toCLICallGraph(g), len(g.Nodes), nil
		})
	for _, gc := range []*cobra.Command{transitiveCallers, transitiveCallees} {
		gc.Flags().IntVar(&depth, "depth", 5, "maximum call depth (capped at 100)")
	}
	hierarchy := positional("hierarchy", "Show bases, subclasses and composition of the record at a position",
		func(q *cindex.QueryBuilder, target cindex.Cursor) (any, int, error) {
			h, err := q.TypeHierarchy(target)
			if err != nil {
				return nil, 0, err
			}
			return toCLIHierarchy(h), 1, nil
		})

	symbols := &cobra.Command{
		Use:   "symbols <file> <pattern>",
		Short: "Find declarations by qualified-name glob",
		Long:  `Matches qualified names against a glob where "::" separates scopes: "ns::*" matches direct members of ns, "ns::**" every nested declaration.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runQuery(cmd, args[0], limit, func(_ *cindex.TranslationUnit, q *cindex.QueryBuilder) (any, int, error) {
				syms, err := q.Symbols(args[1])
				if err != nil {
					return nil, 0, err
				}
				out := make([]CLISymbol, 0, len(syms))
				for _, s := range syms {
					out = append(out, toCLISymbol(s))
				}
				return out, len(out), nil
			})
		},
	}

	cmd.AddCommand(definition, references, callers, callees, subclasses, bases,
		transitiveCallers, transitiveCallees, hierarchy, symbols,
		c.searchCmd(&limit), c.unusedCmd(&limit), c.filesCmd(&limit), c.symbolDetailCmd(), c.scopeAtCmd())
	return cmd
}

// runQuery parses file, runs fn against a fresh QueryBuilder and prints
// at most limit of its results.
func (c *cli) runQuery(cmd *cobra.Command, file string, limit int, fn func(*cindex.TranslationUnit, *cindex.QueryBuilder) (any, int, error)) error {
	ix, tu, err := c.parse(cmd, file, 0)
	if err != nil {
		return c.outputError(cmd, err)
	}
	defer ix.Dispose()
	defer tu.Dispose()

	q, err := tu.Query()
	if err != nil {
		return c.outputError(cmd, err)
	}
	results, total, err := fn(tu, q)
	if err != nil {
		return c.outputError(cmd, err)
	}
	return c.outputResult(cmd, CLIResult{Command: cmd.Name(), Results: truncate(results, limit), TotalCount: &total})
}

// targetAt returns the declaration at or referenced from <line> <col>.
func targetAt(tu *cindex.TranslationUnit, lineArg, colArg string) (cindex.Cursor, error) {
	line, col, err := lineCol(lineArg, colArg)
	if err != nil {
		return cindex.Cursor{}, err
	}
	c, err := cursorAt(tu, fmt.Sprintf("%d:%d", line, col))
	if err != nil {
		return cindex.Cursor{}, err
	}
	if ref, err := c.Referenced(); err == nil && !ref.IsNull() {
		c = ref
	}
	if c.IsNull() || !c.Kind().IsDeclaration() {
		return cindex.Cursor{}, fmt.Errorf("no declaration found at %s:%d:%d", tu.Spelling(), line, col)
	}
	return c, nil
}

// parseIntArg parses a positional argument as a positive integer with a
// clear error.
func parseIntArg(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", name, value)
	}
	if n < 1 {
		return 0, fmt.Errorf("invalid %s %q: must be at least 1", name, value)
	}
	return n, nil
}

func cursorList(cs []cindex.Cursor) []CLICursor {
	out := make([]CLICursor, 0, len(cs))
	for _, c := range cs {
		out = append(out, toCLICursor(c, 0))
	}
	return out
}

func edgeList(edges []cindex.CallEdge) []CLICallEdge {
	out := make([]CLICallEdge, 0, len(edges))
	for _, e := range edges {
		out = append(out, toCLICallEdge(e))
	}
	return out
}

// truncate cuts a result slice to limit entries; limit <= 0 keeps all.
func truncate(v any, limit int) any {
	if limit <= 0 {
		return v
	}
	switch r := v.(type) {
	case []CLICursor:
		return r[:min(limit, len(r))]
	case []CLILocation:
		return r[:min(limit, len(r))]
	case []CLICallEdge:
		return r[:min(limit, len(r))]
	case []CLISymbol:
		return r[:min(limit, len(r))]
	case []string:
		return r[:min(limit, len(r))]
	}
	return v
}
