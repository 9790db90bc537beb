package store

import "time"

// Metadata keys of a saved translation unit.
const (
	KeyFormat      = "format_version"
	KeyMainFile    = "main_file"
	KeyLanguage    = "language"
	KeyArgs        = "args"
	KeyOptions     = "options"
	KeyFingerprint = "fingerprint"
	KeySavedAt     = "saved_at"
)

// File is one source file visible to the saved unit, with its content
// as it was parsed.
type File struct {
	ID             int64
	Ordinal        int
	Path           string
	Content        []byte
	ModTime        time.Time
	Overlay        bool
	IncludeGuarded bool
}

// Diagnostic is one stored diagnostic. Notes attached to another
// diagnostic carry its ID in ParentID.
type Diagnostic struct {
	ID       int64
	ParentID *int64
	Ordinal  int
	Severity int
	Path     string
	Offset   int
	Message  string
	Option   string
	Category int

	Spans    []DiagnosticSpan
	Children []*Diagnostic
}

// Span kinds.
const (
	SpanRange = "range"
	SpanFixIt = "fixit"
)

// DiagnosticSpan is a highlighted range or a fix-it of a diagnostic.
type DiagnosticSpan struct {
	ID           int64
	DiagnosticID int64
	Ordinal      int
	Kind         string
	Path         string
	Start        int
	End          int
	Replacement  string
}

// TopLevelDecl records the kind and name of one child of the root cursor.
type TopLevelDecl struct {
	ID      int64
	Ordinal int
	Kind    int
	Name    string
}
