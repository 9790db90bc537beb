package cindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const graphSource = `static int leaf(int x) { return x; }
static int mid(int x) { return leaf(x) + leaf(1); }
int top(void) { return mid(2); }
int other(void) { return leaf(3); }
int rec(int n) { return n ? rec(n - 1) : 0; }
int counter;
`

func newGraphQuery(t *testing.T) (*TranslationUnit, *QueryBuilder) {
	t.Helper()
	tu := parseSource(t, "g.c", graphSource)
	q, err := tu.Query()
	require.NoError(t, err)
	return tu, q
}

func graphNodes(t *testing.T, g *CallGraph) ([]string, []int) {
	t.Helper()
	var names []string
	var depths []int
	for _, n := range g.Nodes {
		names = append(names, spelling(t, n.Function))
		depths = append(depths, n.Depth)
	}
	return names, depths
}

func TestTransitiveCallers(t *testing.T) {
	tu, q := newGraphQuery(t)

	g, err := q.TransitiveCallers(findCursor(t, tu, "leaf"), 5)
	require.NoError(t, err)
	names, depths := graphNodes(t, g)
	assert.Equal(t, []string{"leaf", "mid", "other", "top"}, names)
	assert.Equal(t, []int{0, 1, 1, 2}, depths)
	assert.Equal(t, 2, g.Depth)
	assert.Equal(t, "leaf", spelling(t, g.Root))
	assert.Len(t, g.Edges, 4)

	g, err = q.TransitiveCallers(findCursor(t, tu, "leaf"), 1)
	require.NoError(t, err)
	names, _ = graphNodes(t, g)
	assert.Equal(t, []string{"leaf", "mid", "other"}, names)
	assert.Len(t, g.Edges, 3, "top's call to mid leaves the graph")
}

func TestTransitiveCallees(t *testing.T) {
	tu, q := newGraphQuery(t)

	g, err := q.TransitiveCallees(findCursor(t, tu, "top"), 10)
	require.NoError(t, err)
	names, depths := graphNodes(t, g)
	assert.Equal(t, []string{"top", "mid", "leaf"}, names)
	assert.Equal(t, []int{0, 1, 2}, depths)
	require.Len(t, g.Edges, 3)
	var fromTop []string
	for _, e := range g.Edges {
		if spelling(t, e.Caller) == "top" {
			fromTop = append(fromTop, spelling(t, e.Callee))
		}
	}
	assert.Equal(t, []string{"mid"}, fromTop)
}

func TestTransitive_Recursion(t *testing.T) {
	tu, q := newGraphQuery(t)

	g, err := q.TransitiveCallers(findCursor(t, tu, "rec"), 10)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 1)
	assert.Len(t, g.Edges, 1, "the self call is an edge within the graph")
	assert.Zero(t, g.Depth)
}

func TestTransitive_Arguments(t *testing.T) {
	tu, q := newGraphQuery(t)

	g, err := q.TransitiveCallees(findCursor(t, tu, "top"), 0)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 1)
	assert.Empty(t, g.Edges)

	_, err = q.TransitiveCallers(findCursor(t, tu, "top"), -1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = q.TransitiveCallers(findCursor(t, tu, "counter"), 1)
	assert.ErrorIs(t, err, ErrWrongKind)
}
