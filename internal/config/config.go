// Package config loads the per-project .cindex.yaml file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
	"gopkg.in/yaml.v3"

	"github.com/jward/cindex"
)

// FileName is the name of the configuration file.
const FileName = ".cindex.yaml"

// Config is the project configuration applied to every parse.
type Config struct {
	// Args are passed to the parser before any per-file arguments.
	Args []string `yaml:"args"`
	// IncludePaths become -I arguments.
	IncludePaths []string `yaml:"include_paths"`
	// Defines become -D arguments; "NAME" or "NAME=VALUE".
	Defines []string `yaml:"defines"`
	// Options name parse options, see OptionNames.
	Options []string `yaml:"options"`
	// Exclude holds gitignore-style patterns of files to skip.
	Exclude []string `yaml:"exclude"`

	// Dir is the directory the file was loaded from; relative include
	// paths are resolved against it. Empty for the default config.
	Dir string `yaml:"-"`
}

// ErrConfigNotFound is returned when no config file can be found.
var ErrConfigNotFound = errors.New("config file not found")

// ErrInvalidConfig is returned when config validation fails.
var ErrInvalidConfig = errors.New("invalid configuration")

var optionsByName = map[string]cindex.ParseOptions{
	"detailed-preprocessing-record": cindex.ParseDetailedPreprocessingRecord,
	"incomplete":                    cindex.ParseIncomplete,
	"precompiled-preamble":          cindex.ParsePrecompiledPreamble,
	"cache-completion-results":      cindex.ParseCacheCompletionResults,
	"skip-function-bodies":          cindex.ParseSkipFunctionBodies,
}

// OptionNames lists the accepted values of the options field.
func OptionNames() []string {
	names := make([]string, 0, len(optionsByName))
	for n := range optionsByName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{Exclude: []string{".git/", "build/"}}
}

// Load finds .cindex.yaml by walking up from dir and reads it. The walk
// stops at the first directory holding .git. With no file found the
// default config is returned.
func Load(dir string) (*Config, error) {
	path, err := Find(dir)
	if errors.Is(err, ErrConfigNotFound) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// Find locates the config file by walking up from startDir.
func Find(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return "", ErrConfigNotFound
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrConfigNotFound
		}
		dir = parent
	}
}

// LoadFromPath reads and validates the config at path.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	if abs, err := filepath.Abs(filepath.Dir(path)); err == nil {
		cfg.Dir = abs
	}
	return cfg, nil
}

// Validate checks option names and define syntax.
func Validate(cfg *Config) error {
	for _, name := range cfg.Options {
		if _, ok := optionsByName[name]; !ok {
			return fmt.Errorf("%w: unknown option %q, want one of %v", ErrInvalidConfig, name, OptionNames())
		}
	}
	for _, d := range cfg.Defines {
		if d == "" || strings.HasPrefix(d, "=") {
			return fmt.Errorf("%w: define %q has no name", ErrInvalidConfig, d)
		}
	}
	for _, p := range cfg.Exclude {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("%w: empty exclude pattern", ErrInvalidConfig)
		}
	}
	return nil
}

// ParseOptions folds the named options into a bitmask.
func (c *Config) ParseOptions() cindex.ParseOptions {
	var opts cindex.ParseOptions
	for _, name := range c.Options {
		opts |= optionsByName[name]
	}
	return opts
}

// CompilerArgs returns the parser arguments the config contributes:
// include paths, then defines, then the raw args.
func (c *Config) CompilerArgs() []string {
	var out []string
	for _, p := range c.IncludePaths {
		if c.Dir != "" && !filepath.IsAbs(p) {
			p = filepath.Join(c.Dir, p)
		}
		out = append(out, "-I"+p)
	}
	for _, d := range c.Defines {
		out = append(out, "-D"+d)
	}
	return append(out, c.Args...)
}

// Excluder compiles the exclude patterns.
func (c *Config) Excluder() *ignore.GitIgnore {
	return ignore.CompileIgnoreLines(c.Exclude...)
}
