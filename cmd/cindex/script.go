package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/cindex/internal/runtime"
	"github.com/jward/cindex/scripts"
)

func (c *cli) scriptCmd() *cobra.Command {
	var (
		scriptsDir string
		file       string
		eval       string
		vars       []string
	)
	cmd := &cobra.Command{
		Use:   "script <file> [visitor]",
		Short: "Run a Risor visitor script over a translation unit",
		Long: `Parses the file and runs a Risor script against it. The visitor is one of
the bundled scripts (outline, calls, globals), a script under --scripts-dir,
a script file given with --file, or inline source given with --eval.
Values the script passes to emit are printed as results.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sources := 0
			for _, set := range []bool{len(args) == 2, file != "", eval != ""} {
				if set {
					sources++
				}
			}
			if sources != 1 {
				return c.outputError(cmd, fmt.Errorf("need exactly one of a visitor name, --file or --eval"))
			}
			globals, err := parseVars(vars)
			if err != nil {
				return c.outputError(cmd, err)
			}

			ix, tu, err := c.parse(cmd, args[0], 0)
			if err != nil {
				return c.outputError(cmd, err)
			}
			defer ix.Dispose()
			defer tu.Dispose()

			opts := []runtime.RuntimeOption{runtime.WithLogger(c.logger.With("script", true))}
			switch {
			case eval != "":
				rt := runtime.NewRuntime(tu, scriptsDir, opts...)
				err = rt.RunSource(cmd.Context(), eval, globals)
				return c.scriptResult(cmd, rt, err)
			case file != "":
				rt := runtime.NewRuntime(tu, filepath.Dir(file), opts...)
				err = rt.RunScript(cmd.Context(), filepath.Base(file), globals)
				return c.scriptResult(cmd, rt, err)
			}
			if scriptsDir == "" {
				opts = append(opts, runtime.WithRuntimeFS(scripts.FS))
			}
			rt := runtime.NewRuntime(tu, scriptsDir, opts...)
			err = rt.RunScript(cmd.Context(), runtime.VisitorScriptPath(args[1]), globals)
			return c.scriptResult(cmd, rt, err)
		},
	}
	cmd.Flags().StringVar(&scriptsDir, "scripts-dir", "", "load visitors from disk path instead of embedded")
	cmd.Flags().StringVar(&file, "file", "", "run this script file")
	cmd.Flags().StringVar(&eval, "eval", "", "run this script source")
	cmd.Flags().StringArrayVar(&vars, "set", nil, "script global NAME=VALUE, repeatable")
	return cmd
}

func (c *cli) scriptResult(cmd *cobra.Command, rt *runtime.Runtime, err error) error {
	if err != nil {
		return c.outputError(cmd, err)
	}
	results := rt.Results()
	if results == nil {
		results = []any{}
	}
	return c.outputResult(cmd, CLIResult{Command: "script", Results: results})
}

// parseVars turns NAME=VALUE pairs into string script globals.
func parseVars(vars []string) (map[string]any, error) {
	if len(vars) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(vars))
	for _, v := range vars {
		name, value, ok := strings.Cut(v, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --set %q: want NAME=VALUE", v)
		}
		out[name] = value
	}
	return out, nil
}
