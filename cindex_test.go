package cindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jward/cindex/kinds"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// parseSource parses src as an in-memory file named name. The index and
// unit are disposed when the test ends.
func parseSource(t *testing.T, name, src string, args ...string) *TranslationUnit {
	t.Helper()
	ix := Create()
	t.Cleanup(ix.Dispose)
	tu, err := ix.Parse(context.Background(), name, args, []UnsavedFile{{Name: name, Contents: []byte(src)}}, 0)
	require.NoError(t, err)
	t.Cleanup(tu.Dispose)
	return tu
}

// findCursor returns the first cursor in document order, at any depth,
// with the given spelling.
func findCursor(t *testing.T, tu *TranslationUnit, spelling string) Cursor {
	t.Helper()
	return find(t, tu, spelling, func(c Cursor) bool {
		s, ok, err := c.Spelling()
		return err == nil && ok && s == spelling
	})
}

// findKind returns the first cursor of kind k in document order.
func findKind(t *testing.T, tu *TranslationUnit, k kinds.CursorKind) Cursor {
	t.Helper()
	return find(t, tu, k.String(), func(c Cursor) bool { return c.Kind() == k })
}

func find(t *testing.T, tu *TranslationUnit, what string, match func(Cursor) bool) Cursor {
	t.Helper()
	root, err := tu.Cursor()
	require.NoError(t, err)
	var found Cursor
	require.NoError(t, root.Visit(func(c, _ Cursor) VisitResult {
		if match(c) {
			found = c
			return VisitBreak
		}
		return VisitRecurse
	}))
	if found.IsNull() {
		t.Fatalf("no cursor matching %s", what)
	}
	return found
}

func locationAt(t *testing.T, tu *TranslationUnit, name string, line, col int) SourceLocation {
	t.Helper()
	loc, err := NewSourceLocation(WithFilename(tu, name), AtPosition(line, col))
	require.NoError(t, err)
	return loc
}
