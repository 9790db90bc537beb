package main

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/jward/cindex"
)

func (c *cli) watchCmd() *cobra.Command {
	var (
		debounce time.Duration
		count    int
	)
	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Reparse a file whenever it or its headers change",
		Long:  "Parses the file, prints its diagnostics, then reparses and prints them again after every change to the file or any header it includes.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ix, tu, err := c.parse(cmd, args[0], cindex.ParsePrecompiledPreamble)
			if err != nil {
				return c.outputError(cmd, err)
			}
			defer ix.Dispose()
			defer func() { tu.Dispose() }()

			w, err := fsnotify.NewWatcher()
			if err != nil {
				return c.outputError(cmd, err)
			}
			defer w.Close()

			watched := map[string]bool{}
			dirs := map[string]bool{}
			refresh := func() {
				for _, f := range watchedFiles(tu) {
					watched[f] = true
					dir := filepath.Dir(f)
					if dirs[dir] {
						continue
					}
					if err := w.Add(dir); err != nil {
						c.logger.Warn("cannot watch directory", "dir", dir, "error", err)
						continue
					}
					dirs[dir] = true
				}
			}
			refresh()
			if err := c.outputDiagnostics(cmd, tu); err != nil {
				return err
			}

			var (
				timer   *time.Timer
				fire    <-chan time.Time
				reparse int
			)
			for {
				select {
				case <-ctx.Done():
					return nil

				case event, ok := <-w.Events:
					if !ok {
						return nil
					}
					if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
						continue
					}
					path, err := filepath.Abs(event.Name)
					if err != nil || !watched[path] {
						continue
					}
					c.logger.Debug("change", "file", path, "op", event.Op.String())
					if timer == nil {
						timer = time.NewTimer(debounce)
					} else {
						timer.Reset(debounce)
					}
					fire = timer.C

				case err, ok := <-w.Errors:
					if !ok {
						return nil
					}
					c.logger.Warn("watcher error", "error", err)

				case <-fire:
					fire = nil
					start := time.Now()
					if err := tu.Reparse(ctx, nil); err != nil {
						// A failed unit cannot be reparsed; start over.
						c.logger.Warn("reparse failed", "file", tu.Spelling(), "error", err)
						fresh, perr := ix.Parse(ctx, args[0], c.compilerArgs(), nil, c.cfg.ParseOptions()|cindex.ParsePrecompiledPreamble)
						if perr != nil {
							c.logger.Error("parse failed", "file", args[0], "error", perr)
							continue
						}
						tu.Dispose()
						tu = fresh
					}
					c.logger.Debug("reparsed", "file", tu.Spelling(), "duration", time.Since(start))
					refresh()
					if err := c.outputDiagnostics(cmd, tu); err != nil {
						return err
					}
					reparse++
					if count > 0 && reparse >= count {
						return nil
					}
				}
			}
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 100*time.Millisecond, "wait this long after the last change before reparsing")
	cmd.Flags().IntVar(&count, "count", 0, "exit after this many reparses (0 = run until interrupted)")
	return cmd
}

// outputDiagnostics prints the unit's current diagnostics.
func (c *cli) outputDiagnostics(cmd *cobra.Command, tu *cindex.TranslationUnit) error {
	out := []CLIDiagnostic{}
	for _, d := range tu.Diagnostics().All() {
		out = append(out, toCLIDiagnostic(d))
	}
	return c.outputResult(cmd, CLIResult{Command: "watch", Results: out})
}

// watchedFiles returns the absolute paths of the main file and every
// file it includes.
func watchedFiles(tu *cindex.TranslationUnit) []string {
	names := []string{tu.Spelling()}
	if incs, err := tu.Includes(); err == nil {
		for _, inc := range incs {
			names = append(names, inc.Include.Name())
		}
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if abs, err := filepath.Abs(n); err == nil {
			out = append(out, abs)
		}
	}
	return out
}
