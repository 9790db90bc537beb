package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/cindex"
)

func (c *cli) completeCmd() *cobra.Command {
	var (
		noMacros bool
		limit    int
		edited   string
	)
	cmd := &cobra.Command{
		Use:   "complete <file> <line:col>",
		Short: "List code completion candidates at a position",
		Long:  "Completes at LINE:COL. With --edited the completion runs over the given contents instead of the file on disk.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			line, col, err := parsePosition(args[1])
			if err != nil {
				return c.outputError(cmd, err)
			}
			ix, tu, err := c.parse(cmd, args[0], cindex.ParseCacheCompletionResults)
			if err != nil {
				return c.outputError(cmd, err)
			}
			defer ix.Dispose()
			defer tu.Dispose()

			var overlays []cindex.UnsavedFile
			if edited != "" {
				data, err := os.ReadFile(edited)
				if err != nil {
					return c.outputError(cmd, err)
				}
				overlays = append(overlays, cindex.UnsavedFile{Name: tu.Spelling(), Contents: data})
			}

			opts := cindex.DefaultCompleteOptions()
			if noMacros {
				opts &^= cindex.CompleteIncludeMacros
			}
			results, err := tu.CodeComplete(cmd.Context(), tu.Spelling(), line, col, overlays, opts)
			if err != nil {
				return c.outputError(cmd, err)
			}
			results.Sort()

			total := results.Len()
			out := []CLICompletion{}
			for i, r := range results.Results {
				if limit > 0 && i >= limit {
					break
				}
				out = append(out, CLICompletion{
					Text:      r.CompletionString.TypedText(),
					Kind:      r.CursorKind.String(),
					Priority:  r.CompletionString.Priority,
					Signature: r.CompletionString.String(),
				})
			}
			return c.outputResult(cmd, CLIResult{Command: "complete", Results: out, TotalCount: &total})
		},
	}
	cmd.Flags().BoolVar(&noMacros, "no-macros", false, "leave macros out of the candidates")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum candidates to print (0 = all)")
	cmd.Flags().StringVar(&edited, "edited", "", "file holding unsaved contents of <file>")
	return cmd
}
