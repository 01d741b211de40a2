package graph

import (
	"context"
	"fmt"
	"sort"
)

// Pseudo-node names marking the entry and exit of a graph. Neither
// executes; edges from Start seed the runnable set and edges into End
// terminate the run.
const (
	Start = "__start__"
	End   = "__end__"
)

// Node is a unit of work in the graph. Run receives a snapshot of the
// merged state and returns a sparse delta; it must only write the
// fields it declares in Writes.
type Node interface {
	Name() string
	Writes() []Field
	Run(ctx context.Context, state TradingState) (StateDelta, error)
}

// Graph is a directed acyclic graph under construction. Call Compile to
// validate it and obtain a runnable form.
type Graph struct {
	nodes map[string]Node
	succ  map[string][]string
	pred  map[string][]string
	err   error
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]Node),
		succ:  make(map[string][]string),
		pred:  make(map[string][]string),
	}
}

// AddNode registers a node. Duplicate and reserved names are deferred
// errors reported by Compile.
func (g *Graph) AddNode(n Node) *Graph {
	name := n.Name()
	if name == Start || name == End {
		g.fail(fmt.Errorf("graph: node name %q is reserved", name))
		return g
	}
	if _, ok := g.nodes[name]; ok {
		g.fail(fmt.Errorf("graph: duplicate node %q", name))
		return g
	}
	g.nodes[name] = n
	return g
}

// AddEdge adds a directed edge. Endpoints may be Start and End.
func (g *Graph) AddEdge(from, to string) *Graph {
	if from == End {
		g.fail(fmt.Errorf("graph: edge out of %s", End))
		return g
	}
	if to == Start {
		g.fail(fmt.Errorf("graph: edge into %s", Start))
		return g
	}
	g.succ[from] = append(g.succ[from], to)
	g.pred[to] = append(g.pred[to], from)
	return g
}

func (g *Graph) fail(err error) {
	if g.err == nil {
		g.err = err
	}
}

// Compile validates the graph and freezes it. It rejects edges to
// unknown nodes, unreachable nodes, nodes that cannot reach End,
// cycles, and two nodes claiming ownership of the same field.
func (g *Graph) Compile() (*CompiledGraph, error) {
	if g.err != nil {
		return nil, g.err
	}
	if len(g.nodes) == 0 {
		return nil, fmt.Errorf("graph: no nodes")
	}

	known := func(name string) bool {
		if name == Start || name == End {
			return true
		}
		_, ok := g.nodes[name]
		return ok
	}
	for from, tos := range g.succ {
		if !known(from) {
			return nil, fmt.Errorf("graph: edge from unknown node %q", from)
		}
		for _, to := range tos {
			if !known(to) {
				return nil, fmt.Errorf("graph: edge to unknown node %q", to)
			}
		}
	}

	if len(g.succ[Start]) == 0 {
		return nil, fmt.Errorf("graph: no edges out of %s", Start)
	}
	if len(g.pred[End]) == 0 {
		return nil, fmt.Errorf("graph: no edges into %s", End)
	}

	// Every node must be reachable from Start.
	reachable := map[string]bool{Start: true}
	queue := []string{Start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.succ[cur] {
			if !reachable[next] {
				reachable[next] = true
				queue = append(queue, next)
			}
		}
	}
	for name := range g.nodes {
		if !reachable[name] {
			return nil, fmt.Errorf("graph: node %q unreachable from %s", name, Start)
		}
	}
	if !reachable[End] {
		return nil, fmt.Errorf("graph: %s unreachable", End)
	}

	// Every node must reach End (otherwise the join would never fire).
	reachesEnd := map[string]bool{End: true}
	queue = []string{End}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, prev := range g.pred[cur] {
			if !reachesEnd[prev] {
				reachesEnd[prev] = true
				queue = append(queue, prev)
			}
		}
	}
	for name := range g.nodes {
		if !reachesEnd[name] {
			return nil, fmt.Errorf("graph: node %q cannot reach %s", name, End)
		}
	}

	// Cycle check via Kahn's algorithm over the executable nodes.
	indegree := make(map[string]int, len(g.nodes))
	for name := range g.nodes {
		indegree[name] = len(g.pred[name])
	}
	indegree[End] = len(g.pred[End])

	queue = queue[:0]
	queue = append(queue, Start)
	visited := 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		visited++
		for _, next := range g.succ[cur] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	if visited != len(g.nodes)+2 {
		return nil, fmt.Errorf("graph: cycle detected")
	}

	// Each scalar field is owned by exactly one node so concurrent
	// branches can never race on a write.
	owner := make(map[Field]string)
	for name, n := range g.nodes {
		for _, f := range n.Writes() {
			if prev, ok := owner[f]; ok && prev != name {
				return nil, fmt.Errorf("graph: field %q claimed by both %q and %q", f, prev, name)
			}
			owner[f] = name
		}
	}

	cg := &CompiledGraph{
		nodes:    make(map[string]Node, len(g.nodes)),
		succ:     make(map[string][]string, len(g.succ)),
		indegree: make(map[string]int, len(g.nodes)+1),
		owner:    owner,
	}
	for name, n := range g.nodes {
		cg.nodes[name] = n
		cg.indegree[name] = len(g.pred[name])
	}
	cg.indegree[End] = len(g.pred[End])
	for from, tos := range g.succ {
		cg.succ[from] = append([]string(nil), tos...)
	}
	return cg, nil
}

// CompiledGraph is a validated, immutable graph ready for execution.
type CompiledGraph struct {
	nodes    map[string]Node
	succ     map[string][]string
	indegree map[string]int
	owner    map[Field]string
}

// Nodes returns the executable node names, sorted.
func (cg *CompiledGraph) Nodes() []string {
	names := make([]string, 0, len(cg.nodes))
	for name := range cg.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
