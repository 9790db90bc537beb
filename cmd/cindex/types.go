package main

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLICursor is a JSON-friendly cursor. Depth is 0 for the translation
// unit and grows by one per nesting level.
type CLICursor struct {
	Kind       string `json:"kind"`
	Spelling   string `json:"spelling"`
	Display    string `json:"display,omitempty"`
	Type       string `json:"type,omitempty"`
	File       string `json:"file,omitempty"`
	Line       int    `json:"line"`
	Col        int    `json:"col"`
	Depth      int    `json:"depth"`
	Definition bool   `json:"definition,omitempty"`
	USR        string `json:"usr,omitempty"`
}

// CLILocation is a source range in a file.
type CLILocation struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// CLIToken is one lexical token.
type CLIToken struct {
	Kind     string `json:"kind"`
	Spelling string `json:"spelling"`
	Line     int    `json:"line"`
	Col      int    `json:"col"`
}

// CLIDiagnostic is a JSON-friendly diagnostic with its attached notes.
type CLIDiagnostic struct {
	Severity string          `json:"severity"`
	Message  string          `json:"message"`
	File     string          `json:"file,omitempty"`
	Line     int             `json:"line"`
	Col      int             `json:"col"`
	Option   string          `json:"option,omitempty"`
	Category string          `json:"category,omitempty"`
	FixIts   []string        `json:"fixits,omitempty"`
	Notes    []CLIDiagnostic `json:"notes,omitempty"`
}

// CLICompletion is one code completion candidate.
type CLICompletion struct {
	Text      string `json:"text"`
	Kind      string `json:"kind"`
	Priority  int    `json:"priority"`
	Signature string `json:"signature"`
}

// CLICallEdge is a JSON-friendly call graph edge.
type CLICallEdge struct {
	Caller string `json:"caller"`
	Callee string `json:"callee"`
	File   string `json:"file,omitempty"`
	Line   int    `json:"line"`
	Col    int    `json:"col"`
}

// CLISymbol is a declaration found by name.
type CLISymbol struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	USR  string `json:"usr,omitempty"`
	File string `json:"file,omitempty"`
	Line int    `json:"line"`
	Col  int    `json:"col"`

	RefCount         int `json:"ref_count"`
	ExternalRefCount int `json:"external_ref_count"`
}

// CLISymbolDetail is a declaration with its structural children.
type CLISymbolDetail struct {
	Symbol     CLISymbol   `json:"symbol"`
	Parameters []CLICursor `json:"parameters"`
	Members    []CLICursor `json:"members"`
	TypeParams []CLICursor `json:"type_params"`
	Bases      []CLICursor `json:"bases"`
}

// CLIFileReport summarizes one file checked by the check command.
type CLIFileReport struct {
	File     string `json:"file"`
	Errors   int    `json:"errors"`
	Warnings int    `json:"warnings"`
	Error    string `json:"error,omitempty"`
}

// CLISaved reports where a unit was written.
type CLISaved struct {
	File string `json:"file"`
	Path string `json:"path"`
}

// CLICallGraph is a transitive call graph.
type CLICallGraph struct {
	Root  string         `json:"root"`
	Depth int            `json:"depth"`
	Nodes []CLIGraphNode `json:"nodes"`
	Edges []CLICallEdge  `json:"edges"`
}

// CLIGraphNode is a function in a call graph with its distance from the root.
type CLIGraphNode struct {
	Name  string `json:"name"`
	Depth int    `json:"depth"`
	File  string `json:"file,omitempty"`
	Line  int    `json:"line"`
}

// CLIHierarchy is the type hierarchy of one record.
type CLIHierarchy struct {
	Record     string        `json:"record"`
	Bases      []CLIRelation `json:"bases"`
	Subclasses []CLIRelation `json:"subclasses"`
	Composes   []CLIRelation `json:"composes"`
	ComposedBy []CLIRelation `json:"composed_by"`
}

// CLIRelation names a related record and how it is related.
type CLIRelation struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}
