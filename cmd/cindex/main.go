package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/cindex"
	"github.com/jward/cindex/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root, state := newRootCmd()
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !state.errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

// cli holds the persistent flags and what PersistentPreRunE derives
// from them.
type cli struct {
	format     string
	verbose    bool
	configPath string
	args       []string

	cfg    *config.Config
	logger *slog.Logger

	// errorHandled is set by outputError so main() doesn't double-print.
	errorHandled bool
}

func newRootCmd() (*cobra.Command, *cli) {
	c := &cli{}
	root := &cobra.Command{
		Use:           "cindex",
		Short:         "Inspect C and C++ translation units",
		Long:          "cindex parses C and C++ files and prints cursors, tokens, diagnostics and completions.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		// No Run: prints help by default.
	}

	root.PersistentFlags().StringVar(&c.format, "format", "json", "output format: json|text")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log parse timings to stderr")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: nearest .cindex.yaml)")
	root.PersistentFlags().StringArrayVarP(&c.args, "arg", "a", nil, "compiler argument, repeatable (e.g. -a -DDEBUG -a -Iinclude)")

	root.AddCommand(
		c.dumpCmd(),
		c.tokensCmd(),
		c.diagCmd(),
		c.completeCmd(),
		c.saveCmd(),
		c.loadCmd(),
		c.scriptCmd(),
		c.queryCmd(),
		c.checkCmd(),
		c.watchCmd(),
	)
	return root, c
}

func (c *cli) setup(cmd *cobra.Command) error {
	if err := validateFormat(c.format); err != nil {
		return err
	}

	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	c.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	var err error
	if c.configPath != "" {
		c.cfg, err = config.LoadFromPath(c.configPath)
	} else {
		var cwd string
		if cwd, err = os.Getwd(); err == nil {
			c.cfg, err = config.Load(cwd)
		}
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	return nil
}

// newIndex creates an index logging through the CLI logger.
func (c *cli) newIndex() *cindex.Index {
	return cindex.Create(cindex.WithLogger(c.logger))
}

// compilerArgs merges config and flag arguments; flags come last so they
// win.
func (c *cli) compilerArgs() []string {
	return append(c.cfg.CompilerArgs(), c.args...)
}

// parse parses path with the configured arguments and options plus
// extra. A path of "-" reads the main file from stdin. The caller
// disposes the returned unit and index.
func (c *cli) parse(cmd *cobra.Command, path string, extra cindex.ParseOptions) (*cindex.Index, *cindex.TranslationUnit, error) {
	var overlays []cindex.UnsavedFile
	if path == "-" {
		uf, err := cindex.UnsavedFileFromReader(stdinName, cmd.InOrStdin())
		if err != nil {
			return nil, nil, err
		}
		path = uf.Name
		overlays = append(overlays, uf)
	}

	start := time.Now()
	ix := c.newIndex()
	tu, err := ix.Parse(cmd.Context(), path, c.compilerArgs(), overlays, c.cfg.ParseOptions()|extra)
	if err != nil {
		ix.Dispose()
		return nil, nil, err
	}
	c.logger.Debug("parsed", "file", path, "duration", time.Since(start))
	return ix, tu, nil
}

// stdinName is the file name given to source read from stdin.
const stdinName = "stdin.c"

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root without finding .git.
			return startDir
		}
		dir = parent
	}
}
