package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jward/cindex/kinds"
)

// ParseOptions is the bitmask accepted by Parse.
type ParseOptions uint32

const (
	ParseNone                        ParseOptions = 0
	ParseDetailedPreprocessingRecord ParseOptions = 1
	ParseIncomplete                  ParseOptions = 2
	ParsePrecompiledPreamble         ParseOptions = 4
	ParseCacheCompletionResults      ParseOptions = 8
	ParseSkipFunctionBodies          ParseOptions = 64
)

// ErrNoInput is returned when neither a file name nor a positional
// argument names the primary source file.
var ErrNoInput = errors.New("engine: no input file")

type define struct {
	name  string
	value string
	undef bool
}

// config is what Parse understands of the compiler arguments.
type config struct {
	primary    string
	quote      []string
	angled     []string
	defines    []define
	policy     *diagPolicy
	excludePCH bool
}

// flagsWithValue take the next argument when written apart from it.
var flagsWithValue = map[string]bool{
	"-I": true, "-iquote": true, "-isystem": true, "-idirafter": true,
	"-D": true, "-U": true, "-x": true, "-o": true, "-include": true,
	"-MF": true, "-MT": true, "-MQ": true, "-target": true, "-arch": true,
}

func parseArgs(args []string) *config {
	cfg := &config{policy: newDiagPolicy()}
	for i := 0; i < len(args); i++ {
		a := args[i]
		if !strings.HasPrefix(a, "-") || a == "-" {
			if cfg.primary == "" {
				cfg.primary = a
			}
			continue
		}
		name, val := a, ""
		if flagsWithValue[a] {
			if i+1 < len(args) {
				val = args[i+1]
				i++
			}
		} else {
			for _, p := range []string{"-iquote", "-isystem", "-idirafter", "-I", "-D", "-U"} {
				if strings.HasPrefix(a, p) && len(a) > len(p) {
					name, val = p, a[len(p):]
					break
				}
			}
		}
		switch name {
		case "-I":
			cfg.angled = append(cfg.angled, val)
		case "-iquote":
			cfg.quote = append(cfg.quote, val)
		case "-isystem", "-idirafter":
			cfg.angled = append(cfg.angled, val)
		case "-D":
			k, v, ok := strings.Cut(val, "=")
			if !ok {
				v = "1"
			}
			cfg.defines = append(cfg.defines, define{name: k, value: v})
		case "-U":
			cfg.defines = append(cfg.defines, define{name: val, undef: true})
		default:
			cfg.policy.flag(a)
		}
	}
	return cfg
}

// Request describes one parse.
type Request struct {
	// Filename is the primary file; when empty the first positional
	// argument is used.
	Filename string
	Args     []string
	Overlays []UnsavedFile
	Options  ParseOptions
	// ExcludePCH hides preamble declarations from the root's children
	// when Options has ParsePrecompiledPreamble.
	ExcludePCH bool
	Cache      *Cache
}

// Parse builds a unit. Error diagnostics do not fail the parse; only a
// missing or unreadable primary file, a cancelled context or a front-end
// failure do.
func Parse(ctx context.Context, req Request) (*Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg := parseArgs(req.Args)
	cfg.excludePCH = req.ExcludePCH
	name := req.Filename
	if name == "" {
		name = cfg.primary
	}
	if name == "" {
		return nil, ErrNoInput
	}

	v := newVFS(req.Overlays, cfg.quote, cfg.angled)
	data, mod, overlay, err := v.read(name)
	if err != nil {
		return nil, fmt.Errorf("engine: reading %s: %w", name, err)
	}

	u := &Unit{
		Lang:    LangForFile(name, req.Args),
		Args:    append([]string(nil), req.Args...),
		Options: req.Options,
		Macros:  make(map[string]*Macro),
		Strings: NewInterner(),
		Nodes:   make([]Node, 1, 256),
	}
	root := u.newNode(kinds.TranslationUnit, 0)
	u.MainFile = u.addFile(name, data, mod, overlay)
	rn := &u.Nodes[root]
	rn.SemParent = 0
	rn.Name = name
	rn.Display = name
	rn.Loc = Loc{File: u.MainFile}
	rn.Extent = Range{File: u.MainFile, Start: 0, End: uint32(len(data))}
	rn.Canonical = root

	b := newBuilder(ctx, u, cfg, v, req.Cache)
	defer b.parser.Close()
	b.predefine()
	if err := b.buildFile(u.MainFile, scope{parent: root, sem: root}); err != nil {
		return nil, err
	}
	if !b.preambleDone {
		u.PreambleEnd = uint32(len(data))
	}
	b.finish()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if u.Options&ParseCacheCompletionResults != 0 {
		u.GlobalCompletions = u.globalCompletions()
	}
	return u, nil
}
