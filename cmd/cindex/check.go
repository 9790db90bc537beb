package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
	"github.com/spf13/cobra"

	"github.com/jward/cindex"
)

// defaultSourcePattern selects C and C++ source files. Headers are
// parsed through the files that include them.
const defaultSourcePattern = "**/*.{c,cc,cpp,cxx}"

func (c *cli) checkCmd() *cobra.Command {
	var (
		pattern string
		jobs    int
		werror  bool
	)
	cmd := &cobra.Command{
		Use:   "check [dir]",
		Short: "Parse every source file under a directory and report diagnostics",
		Long: `Walks the directory (default: the repository root), skipping paths
matched by .gitignore or the config's exclude list, parses every file
matching --include and reports error and warning counts. Exits non-zero
when any file has errors.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			dir, err := resolveTargetDir(args)
			if err != nil {
				return c.outputError(cmd, err)
			}
			if !doublestar.ValidatePattern(pattern) {
				return c.outputError(cmd, fmt.Errorf("invalid --include pattern %q", pattern))
			}

			files, err := discoverSources(dir, pattern, c.cfg.Excluder())
			if err != nil {
				return c.outputError(cmd, err)
			}
			c.logger.Debug("discovered sources", "dir", dir, "count", len(files))

			ix := c.newIndex()
			defer ix.Dispose()

			parseJobs := make([]cindex.ParseJob, 0, len(files))
			for _, f := range files {
				parseJobs = append(parseJobs, cindex.ParseJob{
					Filename: filepath.Join(dir, f),
					Args:     c.compilerArgs(),
					Options:  c.cfg.ParseOptions(),
				})
			}
			units, err := ix.ParseAll(cmd.Context(), parseJobs, jobs)
			if err != nil {
				return c.outputError(cmd, err)
			}

			reports := make([]CLIFileReport, 0, len(units))
			failed := 0
			for i, tu := range units {
				set := tu.Diagnostics()
				errs, warns := countSeverities(set)
				r := CLIFileReport{File: files[i], Errors: errs, Warnings: warns}
				if errs > 0 {
					r.Error = firstError(set)
				}
				if errs > 0 || (werror && warns > 0) {
					failed++
				}
				reports = append(reports, r)
				tu.Dispose()
			}
			c.logger.Debug("check complete", "files", len(units), "failed", failed, "duration", time.Since(start))

			if err := c.outputResult(cmd, CLIResult{Command: "check", Results: reports}); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files have errors", failed, len(units))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&pattern, "include", defaultSourcePattern, "doublestar pattern selecting files to parse")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "parallel parses (0 = number of CPUs)")
	cmd.Flags().BoolVar(&werror, "werror", false, "treat warnings as errors")
	return cmd
}

// resolveTargetDir returns the directory to check: the first argument
// made absolute, or the repository root around the working directory.
func resolveTargetDir(args []string) (string, error) {
	if len(args) > 0 {
		abs, err := filepath.Abs(args[0])
		if err != nil {
			return "", fmt.Errorf("resolving path %q: %w", args[0], err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return "", err
		}
		if !info.IsDir() {
			return "", fmt.Errorf("%s is not a directory", abs)
		}
		return abs, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}
	return findRepoRoot(cwd), nil
}

// discoverSources returns the slash-separated paths under root that match
// pattern and are not ignored, sorted.
func discoverSources(root, pattern string, exclude *ignore.GitIgnore) ([]string, error) {
	gitignore := loadGitignore(root)

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return err
		}
		rel = filepath.ToSlash(rel)

		check := rel
		if d.IsDir() {
			check += "/"
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
		}
		if ignored(gitignore, check) || ignored(exclude, check) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		ok, err := doublestar.Match(pattern, rel)
		if err != nil {
			return err
		}
		if ok {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func ignored(gi *ignore.GitIgnore, path string) bool {
	return gi != nil && gi.MatchesPath(path)
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
