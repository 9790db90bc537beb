package main

import (
	"github.com/spf13/cobra"
)

func (c *cli) saveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <file> <out>",
		Short: "Parse a file and save the translation unit",
		Long:  "Writes the parsed unit to a SQLite file that load and diag --saved can read without the original compiler arguments.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, tu, err := c.parse(cmd, args[0], 0)
			if err != nil {
				return c.outputError(cmd, err)
			}
			defer ix.Dispose()
			defer tu.Dispose()

			if err := tu.Save(args[1]); err != nil {
				return c.outputError(cmd, err)
			}
			c.logger.Debug("saved translation unit", "file", tu.Spelling(), "path", args[1])
			return c.outputResult(cmd, CLIResult{Command: "save", Results: CLISaved{File: tu.Spelling(), Path: args[1]}})
		},
	}
}

func (c *cli) loadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <saved>",
		Short: "Load a saved translation unit and print its top-level cursors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ix := c.newIndex()
			defer ix.Dispose()

			tu, err := ix.Read(cmd.Context(), args[0])
			if err != nil {
				return c.outputError(cmd, err)
			}
			defer tu.Dispose()

			root, err := tu.Cursor()
			if err != nil {
				return c.outputError(cmd, err)
			}
			children, err := root.Children()
			if err != nil {
				return c.outputError(cmd, err)
			}
			out := []CLICursor{toCLICursor(root, 0)}
			for _, child := range children {
				out = append(out, toCLICursor(child, 1))
			}
			return c.outputResult(cmd, CLIResult{Command: "load", Results: out})
		},
	}
}
