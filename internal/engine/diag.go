package engine

import (
	"strings"
)

// Severity orders diagnostics from Ignored to Fatal.
type Severity int

const (
	SeverityIgnored Severity = iota
	SeverityNote
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityIgnored:
		return "ignored"
	case SeverityNote:
		return "note"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal error"
	}
	return "unknown"
}

// Diagnostic categories, numbered from 1.
const (
	CategoryNone = iota
	CategoryLexical
	CategorySemantic
	CategoryParse
	CategoryUnused
	CategoryUser
)

var categoryNames = []string{
	CategoryNone:     "",
	CategoryLexical:  "Lexical or Preprocessor Issue",
	CategorySemantic: "Semantic Issue",
	CategoryParse:    "Parse Issue",
	CategoryUnused:   "Unused Entity Issue",
	CategoryUser:     "User-Defined Issue",
}

// CategoryName returns the label for a category number.
func CategoryName(n int) string {
	if n < 0 || n >= len(categoryNames) {
		return ""
	}
	return categoryNames[n]
}

// FixIt replaces Range with Text; an empty range is an insertion.
type FixIt struct {
	Range Range
	Text  string
}

// Diagnostic is one reported issue.
type Diagnostic struct {
	Severity Severity
	Loc      Loc
	Message  string
	// Option is the warning flag controlling this diagnostic, without the
	// "-W" prefix.
	Option   string
	Category int
	Ranges   []Range
	FixIts   []FixIt
	Children []Diagnostic
}

// diagPolicy applies -w, -Werror and -Wno- style flags.
type diagPolicy struct {
	noWarnings bool
	werror     bool
	disabled   map[string]bool
	promoted   map[string]bool
	fatalSeen  bool
}

func newDiagPolicy() *diagPolicy {
	return &diagPolicy{disabled: map[string]bool{}, promoted: map[string]bool{}}
}

// flag consumes one warning flag and reports whether it was one.
func (p *diagPolicy) flag(arg string) bool {
	switch {
	case arg == "-w":
		p.noWarnings = true
	case arg == "-Werror":
		p.werror = true
	case strings.HasPrefix(arg, "-Werror="):
		p.promoted[strings.TrimPrefix(arg, "-Werror=")] = true
	case strings.HasPrefix(arg, "-Wno-error="):
		delete(p.promoted, strings.TrimPrefix(arg, "-Wno-error="))
	case strings.HasPrefix(arg, "-Wno-"):
		p.disabled[strings.TrimPrefix(arg, "-Wno-")] = true
	case strings.HasPrefix(arg, "-W"):
		delete(p.disabled, strings.TrimPrefix(arg, "-W"))
	default:
		return false
	}
	return true
}

// apply adjusts d in place and reports whether it should be kept. Once a
// fatal error has been seen everything but notes attached to it is
// dropped.
func (p *diagPolicy) apply(d *Diagnostic) bool {
	if p.fatalSeen {
		return false
	}
	if d.Severity == SeverityWarning {
		switch {
		case p.noWarnings:
			return false
		case d.Option != "" && p.disabled[d.Option]:
			d.Severity = SeverityIgnored
		case p.werror || (d.Option != "" && p.promoted[d.Option]):
			d.Severity = SeverityError
		}
	}
	if d.Severity == SeverityFatal {
		p.fatalSeen = true
	}
	return true
}

// HasErrors reports whether any diagnostic is an Error or Fatal.
func (u *Unit) HasErrors() bool {
	for _, d := range u.Diags {
		if d.Severity >= SeverityError {
			return true
		}
	}
	return false
}
