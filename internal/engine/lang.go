package engine

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
)

// Lang is the source dialect of a unit.
type Lang uint8

const (
	LangC Lang = iota
	LangCPP
)

func (l Lang) String() string {
	if l == LangCPP {
		return "c++"
	}
	return "c"
}

// extToLang maps file extensions to dialects. Headers default to C.
var extToLang = map[string]Lang{
	".c":   LangC,
	".h":   LangC,
	".i":   LangC,
	".cpp": LangCPP,
	".cc":  LangCPP,
	".cxx": LangCPP,
	".c++": LangCPP,
	".hpp": LangCPP,
	".hh":  LangCPP,
	".hxx": LangCPP,
	".ii":  LangCPP,
}

// Lazily initialized on first call via sync.Once.
var (
	grammars     map[Lang]*sitter.Language
	grammarsOnce sync.Once
)

func initGrammars() {
	grammarsOnce.Do(func() {
		grammars = map[Lang]*sitter.Language{
			LangC:   c.GetLanguage(),
			LangCPP: cpp.GetLanguage(),
		}
	})
}

// LangForFile picks the dialect for a file name. A "-x" or "-std=" flag
// in args wins over the extension.
func LangForFile(path string, args []string) Lang {
	for i, a := range args {
		switch {
		case a == "-x" && i+1 < len(args):
			return langFromName(args[i+1])
		case strings.HasPrefix(a, "-x") && len(a) > 2:
			return langFromName(a[2:])
		case strings.HasPrefix(a, "-std="):
			std := strings.TrimPrefix(a, "-std=")
			if strings.Contains(std, "++") {
				return LangCPP
			}
			return LangC
		}
	}
	if l, ok := extToLang[strings.ToLower(filepath.Ext(path))]; ok {
		return l
	}
	return LangC
}

func langFromName(name string) Lang {
	switch name {
	case "c++", "c++-header", "cpp", "cxx":
		return LangCPP
	}
	return LangC
}

// Grammar returns the tree-sitter language for a dialect.
func Grammar(l Lang) *sitter.Language {
	initGrammars()
	return grammars[l]
}

func cleanPath(p string) string {
	if p == "" {
		return ""
	}
	return filepath.Clean(p)
}
