package cindex

import (
	"fmt"
	"sort"

	"github.com/jward/cindex/internal/engine"
	"github.com/jward/cindex/kinds"
)

// maxGraphDepth caps transitive call graph traversal.
const maxGraphDepth = 100

// CallGraph is a transitive call graph rooted at a function.
type CallGraph struct {
	Root  Cursor
	Nodes []CallGraphNode // root first, then by depth and document order
	Edges []CallEdge      // every call between two nodes of the graph
	Depth int             // actual max depth reached (may be < maxDepth if graph is shallow)
}

// CallGraphNode is a function in the call graph with its distance from the root.
type CallGraphNode struct {
	Function Cursor
	Depth    int // BFS depth from root (0 = root itself)
}

// callGraphData holds forward and reverse adjacency between canonical
// function declarations, plus the call expressions behind each edge.
type callGraphData struct {
	forward       map[engine.NodeID][]engine.NodeID // caller -> callees
	reverse       map[engine.NodeID][]engine.NodeID // callee -> callers
	callsByCaller map[engine.NodeID][]engine.NodeID
	callsByCallee map[engine.NodeID][]engine.NodeID
}

func (q *QueryBuilder) buildCallGraph() *callGraphData {
	q.build()
	data := &callGraphData{
		forward:       make(map[engine.NodeID][]engine.NodeID),
		reverse:       make(map[engine.NodeID][]engine.NodeID),
		callsByCaller: make(map[engine.NodeID][]engine.NodeID),
		callsByCallee: make(map[engine.NodeID][]engine.NodeID),
	}
	fns := make([]engine.NodeID, 0, len(q.callees))
	for fn := range q.callees {
		fns = append(fns, fn)
	}
	sort.Slice(fns, func(i, j int) bool { return fns[i] < fns[j] })

	for _, fn := range fns {
		caller := q.canon(fn)
		for _, call := range q.callees[fn] {
			callee := q.canon(q.u.Nodes[call].Ref)
			data.forward[caller] = append(data.forward[caller], callee)
			data.reverse[callee] = append(data.reverse[callee], caller)
			data.callsByCaller[caller] = append(data.callsByCaller[caller], call)
			data.callsByCallee[callee] = append(data.callsByCallee[callee], call)
		}
	}
	return data
}

// TransitiveCallers returns every function that reaches c through calls,
// up to maxDepth hops. maxDepth of 0 returns only the root node; larger
// values are capped at 100.
func (q *QueryBuilder) TransitiveCallers(c Cursor, maxDepth int) (*CallGraph, error) {
	return q.transitive("transitive callers", c, maxDepth, true)
}

// TransitiveCallees returns every function c reaches through calls, up
// to maxDepth hops. maxDepth of 0 returns only the root node; larger
// values are capped at 100.
func (q *QueryBuilder) TransitiveCallees(c Cursor, maxDepth int) (*CallGraph, error) {
	return q.transitive("transitive callees", c, maxDepth, false)
}

func (q *QueryBuilder) transitive(op string, c Cursor, maxDepth int, reverse bool) (*CallGraph, error) {
	if err := q.check(op); err != nil {
		return nil, err
	}
	if maxDepth < 0 {
		return nil, fmt.Errorf("cindex: %s: %w: maxDepth must be non-negative, got %d", op, ErrInvalidArgument, maxDepth)
	}
	maxDepth = min(maxDepth, maxGraphDepth)
	root, err := q.target(c)
	if err != nil {
		return nil, fmt.Errorf("cindex: %s: %w", op, err)
	}
	if k := q.u.Nodes[root].Kind; !isFunction(k) {
		return nil, kindError(op, k, kinds.FunctionDecl, kinds.CXXMethod, kinds.Constructor, kinds.Destructor)
	}

	result := &CallGraph{
		Root:  q.declCursor(root),
		Nodes: []CallGraphNode{{Function: q.declCursor(root)}},
		Edges: []CallEdge{},
	}
	if maxDepth == 0 {
		return result, nil
	}

	data := q.buildCallGraph()
	adj, calls := data.forward, data.callsByCaller
	if reverse {
		adj, calls = data.reverse, data.callsByCallee
	}

	visited := map[engine.NodeID]int{root: 0}
	type bfsEntry struct {
		id    engine.NodeID
		depth int
	}
	queue := []bfsEntry{{id: root}}
	var order []engine.NodeID
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current.depth >= maxDepth {
			continue
		}
		for _, next := range adj[current.id] {
			if _, seen := visited[next]; seen {
				continue
			}
			depth := current.depth + 1
			visited[next] = depth
			result.Depth = max(result.Depth, depth)
			order = append(order, next)
			queue = append(queue, bfsEntry{id: next, depth: depth})
		}
	}
	for _, id := range order {
		result.Nodes = append(result.Nodes, CallGraphNode{Function: q.declCursor(id), Depth: visited[id]})
	}

	// An edge belongs to the graph when both ends were visited.
	seen := make(map[engine.NodeID]bool)
	var edgeCalls []engine.NodeID
	for _, id := range append([]engine.NodeID{root}, order...) {
		for _, call := range calls[id] {
			other := q.canon(q.u.Nodes[call].Ref)
			if reverse {
				other = q.canon(q.enclosingFunction(call))
			}
			if _, ok := visited[other]; ok && !seen[call] {
				seen[call] = true
				edgeCalls = append(edgeCalls, call)
			}
		}
	}
	sort.Slice(edgeCalls, func(i, j int) bool { return edgeCalls[i] < edgeCalls[j] })
	result.Edges = q.edges(edgeCalls)
	return result, nil
}

// declCursor returns the definition of a canonical declaration when the
// unit has one, else the declaration itself.
func (q *QueryBuilder) declCursor(id engine.NodeID) Cursor {
	if d := q.u.Nodes[id].Definition; d != 0 {
		id = d
	}
	return q.tu.cursorFor(q.u, q.gen, id)
}
