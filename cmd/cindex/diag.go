package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/cindex"
)

// severityNames maps --min-severity values to severities.
var severityNames = map[string]cindex.Severity{
	"note":    cindex.SeverityNote,
	"warning": cindex.SeverityWarning,
	"error":   cindex.SeverityError,
	"fatal":   cindex.SeverityFatal,
}

func (c *cli) diagCmd() *cobra.Command {
	var (
		minSeverity string
		saved       bool
	)
	cmd := &cobra.Command{
		Use:   "diag <file>",
		Short: "Print the diagnostics of a translation unit",
		Long:  "Parses the file and prints its diagnostics. With --saved the argument is a file written by save and is not reparsed.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			floor, ok := severityNames[minSeverity]
			if !ok {
				return c.outputError(cmd, fmt.Errorf("invalid severity %q: must be note, warning, error or fatal", minSeverity))
			}

			var set cindex.DiagnosticSet
			if saved {
				var err error
				if set, err = cindex.LoadDiagnostics(args[0]); err != nil {
					return c.outputError(cmd, err)
				}
			} else {
				ix, tu, err := c.parse(cmd, args[0], 0)
				if err != nil {
					return c.outputError(cmd, err)
				}
				defer ix.Dispose()
				defer tu.Dispose()
				set = tu.Diagnostics()
			}

			out := []CLIDiagnostic{}
			for _, d := range set.All() {
				if d.Severity() >= floor {
					out = append(out, toCLIDiagnostic(d))
				}
			}
			return c.outputResult(cmd, CLIResult{Command: "diag", Results: out})
		},
	}
	cmd.Flags().StringVar(&minSeverity, "min-severity", "note", "lowest severity to print: note|warning|error|fatal")
	cmd.Flags().BoolVar(&saved, "saved", false, "read diagnostics from a saved unit")
	return cmd
}

// countSeverities returns the number of errors (including fatal) and
// warnings in set.
func countSeverities(set cindex.DiagnosticSet) (errors, warnings int) {
	for _, d := range set.All() {
		switch {
		case d.Severity() >= cindex.SeverityError:
			errors++
		case d.Severity() == cindex.SeverityWarning:
			warnings++
		}
	}
	return errors, warnings
}

// firstError returns the text of the first error in set, or "".
func firstError(set cindex.DiagnosticSet) string {
	for _, d := range set.All() {
		if d.Severity() >= cindex.SeverityError {
			return strings.TrimSpace(d.String())
		}
	}
	return ""
}
