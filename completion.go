package cindex

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jward/cindex/internal/engine"
	"github.com/jward/cindex/kinds"
)

// CompleteOptions is the bitmask accepted by CodeComplete.
type CompleteOptions uint32

const (
	CompleteIncludeMacros        CompleteOptions = 0x01
	CompleteIncludeCodePatterns  CompleteOptions = 0x02
	CompleteIncludeBriefComments CompleteOptions = 0x04
)

// DefaultCompleteOptions includes macros.
func DefaultCompleteOptions() CompleteOptions { return CompleteIncludeMacros }

// CompletionChunk is one fragment of a completion string. Nested is set
// only for ChunkOptional.
type CompletionChunk struct {
	Kind   kinds.CompletionChunkKind
	Text   string
	Nested *CompletionString
}

func (c CompletionChunk) IsKindOptional() bool { return c.Kind == kinds.ChunkOptional }

func (c CompletionChunk) IsKindTypedText() bool { return c.Kind == kinds.ChunkTypedText }

func (c CompletionChunk) IsKindPlaceholder() bool { return c.Kind == kinds.ChunkPlaceholder }

func (c CompletionChunk) IsKindResultType() bool { return c.Kind == kinds.ChunkResultType }

func (c CompletionChunk) String() string {
	return fmt.Sprintf("{'%s', %s}", c.Text, c.Kind)
}

// CompletionString is the structured text of one candidate.
type CompletionString struct {
	Chunks       []CompletionChunk
	Priority     int
	Availability kinds.Availability
}

func newCompletionString(chunks []engine.Chunk, prio int, avail kinds.Availability) *CompletionString {
	cs := &CompletionString{Priority: prio, Availability: avail}
	cs.Chunks = make([]CompletionChunk, len(chunks))
	for i, ch := range chunks {
		cc := CompletionChunk{Kind: ch.Kind, Text: ch.Text}
		if ch.Kind == kinds.ChunkOptional {
			cc.Nested = newCompletionString(ch.Nested, prio, avail)
		}
		cs.Chunks[i] = cc
	}
	return cs
}

// TypedText is the text the user would type to select the candidate.
func (cs *CompletionString) TypedText() string {
	for _, c := range cs.Chunks {
		if c.Kind == kinds.ChunkTypedText {
			return c.Text
		}
	}
	return ""
}

// String renders the chunks, wrapping optional groups in brackets.
func (cs *CompletionString) String() string {
	var b strings.Builder
	cs.render(&b)
	return b.String()
}

func (cs *CompletionString) render(b *strings.Builder) {
	for _, c := range cs.Chunks {
		if c.Kind == kinds.ChunkOptional && c.Nested != nil {
			b.WriteByte('[')
			c.Nested.render(b)
			b.WriteByte(']')
			continue
		}
		b.WriteString(c.Text)
	}
}

// CompletionResult is one candidate.
type CompletionResult struct {
	CursorKind       kinds.CursorKind
	CompletionString *CompletionString
}

func (r CompletionResult) String() string {
	return fmt.Sprintf("%s: %s", r.CursorKind, r.CompletionString)
}

// CodeCompletionResults is the outcome of one CodeComplete call. It is
// independent of later reparses.
type CodeCompletionResults struct {
	Results     []CompletionResult
	diagnostics DiagnosticSet
}

func (r *CodeCompletionResults) Len() int { return len(r.Results) }

// Diagnostics are those of the unit the completion ran against.
func (r *CodeCompletionResults) Diagnostics() DiagnosticSet { return r.diagnostics }

// Sort orders results by priority, then typed text.
func (r *CodeCompletionResults) Sort() {
	sort.SliceStable(r.Results, func(i, j int) bool {
		a, b := r.Results[i].CompletionString, r.Results[j].CompletionString
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.TypedText() < b.TypedText()
	})
}

// CodeComplete lists candidates at (line, col) in path. With no overlays
// the current unit is reused; otherwise path is reparsed with the
// overlays merged over the unit's own, leaving the unit itself unchanged.
// A column past the end of the line completes at the line's end.
func (tu *TranslationUnit) CodeComplete(ctx context.Context, path string, line, col int, overlays []UnsavedFile, opts CompleteOptions) (*CodeCompletionResults, error) {
	if line < 1 || col < 1 {
		return nil, fmt.Errorf("cindex: code complete: %w: position %d:%d", ErrInvalidArgument, line, col)
	}
	tu.mu.Lock()
	defer tu.mu.Unlock()
	if err := tu.usableLocked(); err != nil {
		return nil, fmt.Errorf("cindex: code complete: %w", err)
	}

	start := time.Now()
	u := tu.unit
	if len(overlays) > 0 {
		merged := mergeOverlays(tu.overlays, overlays)
		fresh, err := tu.index.build(ctx, tu.filename, tu.args, merged, tu.options)
		if err != nil {
			return nil, fmt.Errorf("cindex: code complete: %w", err)
		}
		u = fresh
	}
	f := u.FileByName(path)
	if f == nil {
		return nil, fmt.Errorf("cindex: code complete %s: %w", path, ErrFileNotFound)
	}

	var results []CompletionResult
	for _, c := range u.CompleteAt(f.ID, completionOffset(f, line, col)) {
		if c.Kind == kinds.MacroDefinition && opts&CompleteIncludeMacros == 0 {
			continue
		}
		results = append(results, CompletionResult{
			CursorKind:       c.Kind,
			CompletionString: newCompletionString(c.Chunks, c.Priority, c.Availability),
		})
	}
	tu.index.logger.Debug("code completion",
		"file", path,
		"line", line,
		"column", col,
		"results", len(results),
		"elapsed", time.Since(start),
	)
	return &CodeCompletionResults{
		Results:     results,
		diagnostics: DiagnosticSet{fixed: u},
	}, nil
}

// completionOffset maps a position to a byte offset, allowing the
// offset just past the last character of a line.
func completionOffset(f *engine.SourceFile, line, col int) uint32 {
	if line > f.LineCount() {
		return f.Size()
	}
	text := f.LineText(line)
	lineStart := f.Offset(line, 1)
	if col-1 > len(text) {
		col = len(text) + 1
	}
	return lineStart + uint32(col-1)
}

// mergeOverlays lays extra over base, with extra winning by name.
func mergeOverlays(base, extra []UnsavedFile) []UnsavedFile {
	out := copyOverlays(extra)
	seen := make(map[string]bool, len(out))
	for _, o := range out {
		seen[o.Name] = true
	}
	for _, o := range base {
		if !seen[o.Name] {
			out = append(out, o)
		}
	}
	return out
}
