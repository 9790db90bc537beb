package main

import (
	"github.com/spf13/cobra"

	"github.com/jward/cindex"
)

func (c *cli) tokensCmd() *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "tokens <file>",
		Short: "Tokenize a file",
		Long:  "Prints the tokens of the main file, or of the range between --from and --to.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, tu, err := c.parse(cmd, args[0], 0)
			if err != nil {
				return c.outputError(cmd, err)
			}
			defer ix.Dispose()
			defer tu.Dispose()

			toks, err := tokensIn(tu, from, to)
			if err != nil {
				return c.outputError(cmd, err)
			}
			out := make([]CLIToken, 0, len(toks))
			for _, t := range toks {
				out = append(out, toCLIToken(t))
			}
			return c.outputResult(cmd, CLIResult{Command: "tokens", Results: out})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "start position LINE:COL")
	cmd.Flags().StringVar(&to, "to", "", "end position LINE:COL")
	return cmd
}

// tokensIn returns the tokens between two LINE:COL positions. An empty
// from starts at the beginning of the file and an empty to runs to its
// end.
func tokensIn(tu *cindex.TranslationUnit, from, to string) ([]cindex.Token, error) {
	f, err := tu.File(tu.Spelling())
	if err != nil {
		return nil, err
	}
	at := func(pos string, dflt cindex.LocationOption) (cindex.SourceLocation, error) {
		opt := dflt
		if pos != "" {
			line, col, err := parsePosition(pos)
			if err != nil {
				return cindex.SourceLocation{}, err
			}
			opt = cindex.AtPosition(line, col)
		}
		return cindex.NewSourceLocation(cindex.WithFile(f), opt)
	}
	start, err := at(from, cindex.AtOffset(0))
	if err != nil {
		return nil, err
	}
	contents, err := f.Contents()
	if err != nil {
		return nil, err
	}
	end, err := at(to, cindex.AtOffset(len(contents)))
	if err != nil {
		return nil, err
	}
	return tu.TokensBetween(start, end)
}
