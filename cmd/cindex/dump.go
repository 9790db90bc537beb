package main

import (
	"github.com/spf13/cobra"

	"github.com/jward/cindex"
)

func (c *cli) dumpCmd() *cobra.Command {
	var (
		maxDepth    int
		withHeaders bool
		skipBodies  bool
		at          string
	)
	cmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Print the cursor tree of a translation unit",
		Long:  "Parses the file and prints its cursors in document order. Use - to read the source from stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var extra cindex.ParseOptions
			if skipBodies {
				extra |= cindex.ParseSkipFunctionBodies
			}
			ix, tu, err := c.parse(cmd, args[0], extra)
			if err != nil {
				return c.outputError(cmd, err)
			}
			defer ix.Dispose()
			defer tu.Dispose()

			root, err := tu.Cursor()
			if at != "" {
				root, err = cursorAt(tu, at)
			}
			if err != nil {
				return c.outputError(cmd, err)
			}

			mainFile := tu.Spelling()
			out := []CLICursor{toCLICursor(root, 0)}
			var walk func(parent cindex.Cursor, depth int) error
			walk = func(parent cindex.Cursor, depth int) error {
				if maxDepth > 0 && depth > maxDepth {
					return nil
				}
				children, err := parent.Children()
				if err != nil {
					return err
				}
				for _, child := range children {
					cc := toCLICursor(child, depth)
					if !withHeaders && cc.File != "" && cc.File != mainFile {
						continue
					}
					out = append(out, cc)
					if err := walk(child, depth+1); err != nil {
						return err
					}
				}
				return nil
			}
			if err := walk(root, 1); err != nil {
				return c.outputError(cmd, err)
			}
			return c.outputResult(cmd, CLIResult{Command: "dump", Results: out})
		},
	}
	cmd.Flags().IntVar(&maxDepth, "depth", 0, "maximum depth to print (0 = unlimited)")
	cmd.Flags().BoolVar(&withHeaders, "headers", false, "include cursors from included files")
	cmd.Flags().BoolVar(&skipBodies, "skip-bodies", false, "do not parse function bodies")
	cmd.Flags().StringVar(&at, "at", "", "start from the cursor at LINE:COL")
	return cmd
}
