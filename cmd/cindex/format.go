package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// outputResult writes result to the command's stdout in the selected
// format.
func (c *cli) outputResult(cmd *cobra.Command, result CLIResult) error {
	w := cmd.OutOrStdout()
	if c.format == "text" {
		return outputResultText(w, result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func (c *cli) outputError(cmd *cobra.Command, err error) error {
	c.errorHandled = true
	if c.format == "text" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: cmd.Name(), Error: err.Error()})
	return err
}

// cursorLabel is the spelling of a declaration, or the display name of
// anything else.
func cursorLabel(c CLICursor) string {
	if c.Spelling != "" {
		return c.Spelling
	}
	return c.Display
}

// formatCursorsText prints an indented outline, one cursor per line.
func formatCursorsText(w io.Writer, cursors []CLICursor) {
	for _, c := range cursors {
		fmt.Fprintf(w, "%s%s %s", strings.Repeat("  ", c.Depth), c.Kind, cursorLabel(c))
		if c.Type != "" {
			fmt.Fprintf(w, " '%s'", c.Type)
		}
		if c.Line > 0 {
			fmt.Fprintf(w, " <%s:%d:%d>", c.File, c.Line, c.Col)
		}
		fmt.Fprintln(w)
	}
}

// formatLocationsText formats CLILocation results as "file:line:col" lines.
func formatLocationsText(w io.Writer, locs []CLILocation) {
	for _, loc := range locs {
		fmt.Fprintf(w, "%s:%d:%d\n", loc.File, loc.StartLine, loc.StartCol)
	}
}

// formatTokensText formats tokens as aligned columns.
func formatTokensText(w io.Writer, toks []CLIToken) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tCOL\tKIND\tSPELLING")
	for _, t := range toks {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", t.Line, t.Col, t.Kind, t.Spelling)
	}
	tw.Flush()
}

// formatDiagnosticsText prints diagnostics the way a compiler does.
func formatDiagnosticsText(w io.Writer, diags []CLIDiagnostic, indent string) {
	for _, d := range diags {
		fmt.Fprintf(w, "%s%s:%d:%d: %s: %s", indent, d.File, d.Line, d.Col, d.Severity, d.Message)
		if d.Option != "" {
			fmt.Fprintf(w, " [%s]", d.Option)
		}
		fmt.Fprintln(w)
		for _, fix := range d.FixIts {
			fmt.Fprintf(w, "%s  fix-it: %s\n", indent, fix)
		}
		formatDiagnosticsText(w, d.Notes, indent+"  ")
	}
}

// formatCompletionsText formats completion candidates as aligned columns.
func formatCompletionsText(w io.Writer, items []CLICompletion) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TEXT\tKIND\tPRIORITY\tSIGNATURE")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", it.Text, it.Kind, it.Priority, it.Signature)
	}
	tw.Flush()
}

// formatCallEdgesText formats CLICallEdge results as aligned columns.
func formatCallEdgesText(w io.Writer, edges []CLICallEdge) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CALLER\tCALLEE\tFILE\tLINE\tCOL")
	for _, e := range edges {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", e.Caller, e.Callee, e.File, e.Line, e.Col)
	}
	tw.Flush()
}

// formatSymbolsText formats CLISymbol results as aligned columns.
func formatSymbolsText(w io.Writer, syms []CLISymbol) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tFILE\tLINE")
	for _, s := range syms {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", s.Name, s.Kind, s.File, s.Line)
	}
	tw.Flush()
}

// formatSymbolDetailText prints a declaration followed by each group of
// its children.
func formatSymbolDetailText(w io.Writer, d CLISymbolDetail) {
	fmt.Fprintf(w, "%s %s <%s:%d> refs=%d\n", d.Symbol.Kind, d.Symbol.Name, d.Symbol.File, d.Symbol.Line, d.Symbol.RefCount)
	for _, group := range []struct {
		title   string
		cursors []CLICursor
	}{
		{"Parameters", d.Parameters},
		{"Template parameters", d.TypeParams},
		{"Bases", d.Bases},
		{"Members", d.Members},
	} {
		if len(group.cursors) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s:\n", group.title)
		for _, c := range group.cursors {
			fmt.Fprintf(w, "  %s %s", c.Kind, cursorLabel(c))
			if c.Type != "" {
				fmt.Fprintf(w, " : %s", c.Type)
			}
			fmt.Fprintln(w)
		}
	}
}

// formatCallGraphText prints graph nodes indented by depth, then edges.
func formatCallGraphText(w io.Writer, g CLICallGraph) {
	for _, n := range g.Nodes {
		fmt.Fprintf(w, "%s%s <%s:%d>\n", strings.Repeat("  ", n.Depth), n.Name, n.File, n.Line)
	}
	if len(g.Edges) > 0 {
		fmt.Fprintln(w)
		formatCallEdgesText(w, g.Edges)
	}
}

// formatHierarchyText prints each relation group of a type hierarchy.
func formatHierarchyText(w io.Writer, h CLIHierarchy) {
	fmt.Fprintf(w, "Record: %s\n", h.Record)
	for _, group := range []struct {
		title string
		rels  []CLIRelation
	}{
		{"Bases", h.Bases},
		{"Subclasses", h.Subclasses},
		{"Composes", h.Composes},
		{"Composed by", h.ComposedBy},
	} {
		if len(group.rels) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s:\n", group.title)
		for _, r := range group.rels {
			fmt.Fprintf(w, "  %s (%s)\n", r.Name, r.Kind)
		}
	}
}

// formatReportsText lists per-file diagnostic counts.
func formatReportsText(w io.Writer, reports []CLIFileReport) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tERRORS\tWARNINGS")
	for _, r := range reports {
		if r.Error != "" {
			fmt.Fprintf(tw, "%s\t-\t-\t%s\n", r.File, r.Error)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\n", r.File, r.Errors, r.Warnings)
	}
	tw.Flush()
}

// formatValuesText prints script output, one JSON value per line.
func formatValuesText(w io.Writer, values []any) error {
	enc := json.NewEncoder(w)
	for _, v := range values {
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
	return nil
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLICursor:
		formatCursorsText(w, v)
	case CLICursor:
		formatCursorsText(w, []CLICursor{v})
	case []CLILocation:
		formatLocationsText(w, v)
	case []CLIToken:
		formatTokensText(w, v)
	case []CLIDiagnostic:
		formatDiagnosticsText(w, v, "")
	case []CLICompletion:
		formatCompletionsText(w, v)
	case []CLICallEdge:
		formatCallEdgesText(w, v)
	case []CLISymbol:
		formatSymbolsText(w, v)
	case []CLIFileReport:
		formatReportsText(w, v)
	case CLICallGraph:
		formatCallGraphText(w, v)
	case CLIHierarchy:
		formatHierarchyText(w, v)
	case CLISymbolDetail:
		formatSymbolDetailText(w, v)
	case []string:
		for _, line := range v {
			fmt.Fprintln(w, line)
		}
	case CLISaved:
		fmt.Fprintf(w, "saved %s to %s\n", v.File, v.Path)
	case []any:
		if err := formatValuesText(w, v); err != nil {
			return err
		}
	case nil:
		// No output for nil results (e.g., cursor-at on whitespace).
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}

	if result.TotalCount != nil {
		count := *result.TotalCount
		shown := resultLen(result.Results)
		if shown < count {
			fmt.Fprintf(w, "\nShowing %d of %d results\n", shown, count)
		}
	}
	return nil
}

// resultLen returns the length of a result slice, or 1 for a single value.
func resultLen(v any) int {
	switch r := v.(type) {
	case []CLICursor:
		return len(r)
	case []CLILocation:
		return len(r)
	case []CLIToken:
		return len(r)
	case []CLIDiagnostic:
		return len(r)
	case []CLICompletion:
		return len(r)
	case []CLICallEdge:
		return len(r)
	case []CLISymbol:
		return len(r)
	case []CLIFileReport:
		return len(r)
	case []any:
		return len(r)
	case []string:
		return len(r)
	case CLICallGraph:
		return len(r.Nodes)
	case nil:
		return 0
	default:
		return 1
	}
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
