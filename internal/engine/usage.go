package engine

import (
	"unsafe"

	"github.com/jward/cindex/kinds"
)

// Usage estimates the memory held by the unit, in bytes, per resource.
func (u *Unit) Usage() map[kinds.ResourceUsageKind]uint64 {
	ast := uint64(len(u.Nodes)) * uint64(unsafe.Sizeof(Node{}))
	var side uint64
	for i := range u.Nodes {
		n := &u.Nodes[i]
		side += uint64(len(n.Children)+len(n.Overloads)+len(n.Args)) * 4
		side += uint64(len(n.Pieces)) * uint64(unsafe.Sizeof(Range{}))
		side += uint64(len(n.Display) + len(n.USR) + len(n.Value))
	}
	types := uint64(len(u.Types)) * uint64(unsafe.Sizeof(Type{}))

	var content, lines uint64
	for _, f := range u.Files {
		content += uint64(len(f.Content))
		lines += uint64(len(f.lineStarts))*4 + uint64(len(f.markers))*uint64(unsafe.Sizeof(lineMarker{}))
	}

	var macros uint64
	for _, m := range u.Macros {
		macros += uint64(unsafe.Sizeof(Macro{})) + uint64(len(m.Name)+len(m.Body))
		for _, p := range m.Params {
			macros += uint64(len(p))
		}
	}
	var record uint64
	if u.Options&ParseDetailedPreprocessingRecord != 0 {
		for i := range u.Nodes {
			if u.Nodes[i].Kind.IsPreprocessing() {
				record += uint64(unsafe.Sizeof(Node{}))
			}
		}
	}
	record += uint64(len(u.Expansions)) * uint64(unsafe.Sizeof(Expansion{}))

	var completions uint64
	for _, c := range u.GlobalCompletions {
		completions += uint64(unsafe.Sizeof(c)) + uint64(len(c.Name))
		for _, ch := range c.Chunks {
			completions += uint64(unsafe.Sizeof(ch)) + uint64(len(ch.Text))
		}
	}

	var idents uint64
	if u.Strings != nil {
		idents = u.Strings.Bytes()
	}

	return map[kinds.ResourceUsageKind]uint64{
		kinds.ResourceAST:                              ast + types,
		kinds.ResourceIdentifiers:                      idents,
		kinds.ResourceSelectors:                        0,
		kinds.ResourceGlobalCompletionResults:          completions,
		kinds.ResourceSourceManagerContentCache:        uint64(len(u.Files)) * uint64(unsafe.Sizeof(SourceFile{})),
		kinds.ResourceASTSideTables:                    side,
		kinds.ResourceSourceManagerMembufferMalloc:     content,
		kinds.ResourceSourceManagerMembufferMMap:       0,
		kinds.ResourceExternalASTSourceMembufferMalloc: 0,
		kinds.ResourceExternalASTSourceMembufferMMap:   0,
		kinds.ResourcePreprocessor:                     macros,
		kinds.ResourcePreprocessingRecord:              record,
		kinds.ResourceSourceManagerDataStructures:      lines,
		kinds.ResourcePreprocessorHeaderSearch:         uint64(len(u.Includes)) * uint64(unsafe.Sizeof(Inclusion{})),
	}
}
