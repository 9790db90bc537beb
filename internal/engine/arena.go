package engine

import (
	"time"

	"github.com/jward/cindex/kinds"
)

// NodeID indexes Unit.Nodes; 0 is the null node.
type NodeID uint32

// Loc is a position in a unit. Exp, when non-zero, is 1 + the index of
// the macro expansion the position was produced by.
type Loc struct {
	File   FileID
	Offset uint32
	Exp    uint32
}

// IsNull reports the zero location.
func (l Loc) IsNull() bool { return l.File == 0 }

// Range is a half-open byte span within one file.
type Range struct {
	File       FileID
	Start, End uint32
}

func (r Range) IsNull() bool { return r.File == 0 }

// Contains reports whether off falls inside r.
func (r Range) Contains(file FileID, off uint32) bool {
	return r.File == file && off >= r.Start && off < r.End
}

// Expansion records one object-like macro use: the use site in the
// including text and where the replacement was spelled.
type Expansion struct {
	Macro string
	Use   Range
	Def   Loc
}

// NodeFlags are boolean properties of a node.
type NodeFlags uint32

const (
	FlagDefinition NodeFlags = 1 << iota
	FlagStatic
	FlagExtern
	FlagInline
	FlagVirtual
	FlagPureVirtual
	FlagConstMethod
	FlagVirtualBase
	FlagImplicit
	FlagFromPreamble
	FlagAnonymous
	FlagScoped
	// FlagUnsigned marks an enumerator whose value was computed unsigned.
	FlagUnsigned
)

// Node is one AST entry. Fields not meaningful for a kind stay zero.
type Node struct {
	Kind      kinds.CursorKind
	Parent    NodeID
	SemParent NodeID
	Children  []NodeID

	Extent    Range
	Loc       Loc
	NameRange Range
	// QualRange covers a leading nested-name qualifier ("ns::") when present.
	QualRange Range
	// TemplateArgs covers "<...>" following the name.
	TemplateArgs Range
	// Pieces are extra name pieces for operator-like references such as
	// "a[i]"; when set they replace NameRange for piece lookups.
	Pieces []Range

	Name    string
	Display string
	Op      string
	Value   string
	USR     string

	Type       TypeID
	Result     TypeID
	Underlying TypeID

	Ref        NodeID
	Canonical  NodeID
	Definition NodeID
	Overloads  []NodeID
	Args       []NodeID

	Included FileID
	Access   kinds.AccessSpecifier
	Flags    NodeFlags
	EnumBits uint64
}

func (n *Node) Has(f NodeFlags) bool { return n.Flags&f != 0 }

// Inclusion is one resolved #include.
type Inclusion struct {
	Source   FileID
	Included FileID
	Loc      Loc
	Depth    int
}

// Unit is the engine-side state of one translation unit. It is
// immutable once Parse returns.
type Unit struct {
	Lang     Lang
	MainFile FileID
	Files    []*SourceFile
	Nodes    []Node
	Types    []Type

	Expansions []Expansion
	Includes   []Inclusion
	Macros     map[string]*Macro
	Diags      []Diagnostic

	Args    []string
	Options ParseOptions

	// PreambleEnd is the offset of the first main-file item that is not
	// a directive.
	PreambleEnd uint32

	// GlobalCompletions is filled when ParseCacheCompletionResults is set.
	GlobalCompletions []Completion

	// Strings holds the unit's identifier spellings.
	Strings *Interner

	typeIndex map[typeKey]TypeID
}

// Root is the TRANSLATION_UNIT node.
func (u *Unit) Root() NodeID { return 1 }

// Node returns the node for id; id must be valid.
func (u *Unit) Node(id NodeID) *Node { return &u.Nodes[id] }

// Valid reports whether id indexes a node.
func (u *Unit) Valid(id NodeID) bool { return id > 0 && int(id) < len(u.Nodes) }

// File returns the file for id or nil.
func (u *Unit) File(id FileID) *SourceFile {
	if id == 0 || int(id) > len(u.Files) {
		return nil
	}
	return u.Files[id-1]
}

// FileByName finds a file by the name it was opened under.
func (u *Unit) FileByName(name string) *SourceFile {
	for _, f := range u.Files {
		if f.Name == name {
			return f
		}
	}
	clean := cleanPath(name)
	for _, f := range u.Files {
		if cleanPath(f.Name) == clean {
			return f
		}
	}
	return nil
}

// Main returns the primary source file.
func (u *Unit) Main() *SourceFile { return u.File(u.MainFile) }

// Text returns the source text covered by r.
func (u *Unit) Text(r Range) string {
	f := u.File(r.File)
	if f == nil || r.End > f.Size() || r.Start > r.End {
		return ""
	}
	return string(f.Content[r.Start:r.End])
}

// ExpansionLoc maps l to where its macro was used, if any.
func (u *Unit) ExpansionLoc(l Loc) Loc {
	if l.Exp == 0 || int(l.Exp) > len(u.Expansions) {
		return Loc{File: l.File, Offset: l.Offset}
	}
	e := u.Expansions[l.Exp-1]
	return Loc{File: e.Use.File, Offset: e.Use.Start}
}

// SpellingLoc maps l to where its characters were written.
func (u *Unit) SpellingLoc(l Loc) Loc {
	if l.Exp == 0 || int(l.Exp) > len(u.Expansions) {
		return Loc{File: l.File, Offset: l.Offset}
	}
	d := u.Expansions[l.Exp-1].Def
	return Loc{File: d.File, Offset: d.Offset}
}

// NodeAt returns the innermost node whose extent contains off in file.
func (u *Unit) NodeAt(file FileID, off uint32) NodeID {
	cur := u.Root()
	for {
		next := NodeID(0)
		for _, c := range u.Nodes[cur].Children {
			if u.Nodes[c].Extent.Contains(file, off) {
				next = c
			}
		}
		if next == 0 {
			return cur
		}
		cur = next
	}
}

// Walk visits id and its descendants depth-first in document order.
func (u *Unit) Walk(id NodeID, fn func(NodeID) bool) {
	if !fn(id) {
		return
	}
	for _, c := range u.Nodes[id].Children {
		u.Walk(c, fn)
	}
}

func (u *Unit) newNode(kind kinds.CursorKind, parent NodeID) NodeID {
	id := NodeID(len(u.Nodes))
	u.Nodes = append(u.Nodes, Node{Kind: kind, Parent: parent, SemParent: parent})
	return id
}

func (u *Unit) addChild(parent, child NodeID) {
	if parent == 0 || child == 0 {
		return
	}
	u.Nodes[child].Parent = parent
	u.Nodes[parent].Children = append(u.Nodes[parent].Children, child)
}

// NewDetached returns a unit that holds files and diagnostics only. It
// has no AST and backs diagnostics read back from a saved unit.
func NewDetached(lang Lang) *Unit {
	return &Unit{
		Lang:    lang,
		Nodes:   make([]Node, 1),
		Macros:  make(map[string]*Macro),
		Strings: NewInterner(),
	}
}

// AddFile registers a file on a detached unit.
func (u *Unit) AddFile(name string, content []byte, mod time.Time, overlay bool) FileID {
	return u.addFile(name, content, mod, overlay)
}
